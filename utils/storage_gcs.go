package utils

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// getGoogleClient initializes a Google Cloud Storage client.
// Prefers ADC (Cloud Run service account / GOOGLE_APPLICATION_CREDENTIALS).
// For explicit JSON (e.g. locally), set GCS_CREDENTIALS_JSON.
func getGoogleClient(ctx context.Context) (*storage.Client, error) {
	if credJSON := os.Getenv("GCS_CREDENTIALS_JSON"); strings.TrimSpace(credJSON) != "" {
		return storage.NewClient(ctx, option.WithCredentialsJSON([]byte(credJSON)))
	}
	return storage.NewClient(ctx)
}

func gcsBucketName() (string, error) {
	bucket := strings.TrimSpace(os.Getenv("GCS_BUCKET"))
	if bucket == "" {
		return "", errors.New("GCS_BUCKET is required")
	}
	return bucket, nil
}

// SaveBytesToGCS writes an object with the given content type.
func SaveBytesToGCS(ctx context.Context, objectKey, contentType string, data []byte) error {
	bucket, err := gcsBucketName()
	if err != nil {
		return err
	}
	client, err := getGoogleClient(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	w := client.Bucket(bucket).Object(objectKey).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

// ReadObjectFromGCS reads an object fully into memory, bounded by limit bytes
// (0 means no bound). Used to sanity-check uploaded spreadsheets and to build
// image thumbnails.
func ReadObjectFromGCS(ctx context.Context, objectKey string, limit int64) ([]byte, error) {
	bucket, err := gcsBucketName()
	if err != nil {
		return nil, err
	}
	client, err := getGoogleClient(ctx)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	r, err := client.Bucket(bucket).Object(objectKey).NewReader(ctx)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var src io.Reader = r
	if limit > 0 {
		src = io.LimitReader(r, limit)
	}
	return io.ReadAll(src)
}

// ObjectExistsInGCS reports whether the object is present in the bucket.
func ObjectExistsInGCS(ctx context.Context, objectKey string) (bool, error) {
	bucket, err := gcsBucketName()
	if err != nil {
		return false, err
	}
	client, err := getGoogleClient(ctx)
	if err != nil {
		return false, err
	}
	defer client.Close()

	_, err = client.Bucket(bucket).Object(objectKey).Attrs(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// DeleteObjectFromGCS removes an object; missing objects are not an error.
func DeleteObjectFromGCS(ctx context.Context, objectKey string) error {
	bucket, err := gcsBucketName()
	if err != nil {
		return err
	}
	client, err := getGoogleClient(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	err = client.Bucket(bucket).Object(objectKey).Delete(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil
	}
	return err
}
