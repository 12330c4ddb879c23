package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"bitbucket.org/xxlgroup/orderhub_backend/utils"
	"bitbucket.org/xxlgroup/orderhub_backend/workflow"
)

func TestRespondErrorStatusMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", utils.NewValidationError("bad input"), http.StatusBadRequest},
		{"not found", utils.ErrorRecordNotFound, http.StatusNotFound},
		{"conflict", &utils.ConflictError{PendingConfirmationId: 9}, http.StatusConflict},
		{"state", utils.NewStateError("wrong state"), http.StatusConflict},
		{"in progress", workflow.ErrExecutionInProgress, http.StatusConflict},
		{"expired", &utils.ExpiredError{ConfirmationId: 3}, http.StatusGone},
		{"execution", &utils.ExecutionError{Err: errors.New("boom")}, http.StatusBadGateway},
		{"not authorized", workflow.ErrNotAuthorized, http.StatusForbidden},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

		respondError(c, tt.err)
		if w.Code != tt.want {
			t.Errorf("%s: status = %d, want %d", tt.name, w.Code, tt.want)
		}
	}
}

func TestRespondErrorConflictCarriesPendingId(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", nil)

	respondError(c, &utils.ConflictError{PendingConfirmationId: 17})

	var body struct {
		PendingConfirmationId int `json:"pending_confirmation_id"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if body.PendingConfirmationId != 17 {
		t.Fatalf("pending_confirmation_id = %d, want 17", body.PendingConfirmationId)
	}
}

func TestRespondErrorExpiredCarriesConfirmationId(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", nil)

	respondError(c, &utils.ExpiredError{ConfirmationId: 8})

	var body struct {
		ConfirmationId int `json:"confirmation_id"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if body.ConfirmationId != 8 {
		t.Fatalf("confirmation_id = %d, want 8", body.ConfirmationId)
	}
}
