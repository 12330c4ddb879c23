package handlers

import "testing"

func TestValidUploadSize(t *testing.T) {
	cases := []struct {
		name string
		size int64
		want bool
	}{
		{"zero", 0, false},
		{"negative", -1, false},
		{"one byte", 1, true},
		{"at the 2 GiB cap", 2 * 1024 * 1024 * 1024, true},
		{"over the cap", 2*1024*1024*1024 + 1, false},
	}
	for _, tt := range cases {
		if got := validUploadSize(tt.size); got != tt.want {
			t.Errorf("%s: validUploadSize(%d) = %v, want %v", tt.name, tt.size, got, tt.want)
		}
	}
}
