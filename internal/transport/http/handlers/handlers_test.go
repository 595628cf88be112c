package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/titikruang/ruang/internal/domain"
	"github.com/titikruang/ruang/internal/repository/memory"
	"github.com/titikruang/ruang/internal/service"
	"github.com/titikruang/ruang/pkg/validator"
)

func TestWriteServiceError(t *testing.T) {
	fields := make(validator.ValidationErrors)
	fields.Add("text", "Message text is required")

	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", domain.NewValidationError(fields), http.StatusBadRequest, "VALIDATION_ERROR"},
		{"quota", fmt.Errorf("%w: limit", domain.ErrQuotaExceeded), http.StatusConflict, "QUOTA_EXCEEDED"},
		{"permission", fmt.Errorf("%w: admin only", domain.ErrPermissionDenied), http.StatusForbidden, "FORBIDDEN"},
		{"not found", fmt.Errorf("message x: %w", domain.ErrNotFound), http.StatusNotFound, "NOT_FOUND"},
		{"provider", fmt.Errorf("%w: down", domain.ErrProviderUnavailable), http.StatusServiceUnavailable, "UNAVAILABLE"},
		{"other", errors.New("boom"), http.StatusInternalServerError, "INTERNAL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeServiceError(rec, "test", tt.err)

			assert.Equal(t, tt.status, rec.Code)

			var body struct {
				Error struct {
					Code   string            `json:"code"`
					Fields map[string]string `json:"fields"`
				} `json:"error"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.code, body.Error.Code)
			if tt.code == "VALIDATION_ERROR" {
				assert.Equal(t, "Message text is required", body.Error.Fields["text"])
			}
		})
	}
}

func TestGroupHandlerRejectsBadInput(t *testing.T) {
	h := NewGroupHandler(service.NewGroupService(memory.NewGroupRepo(nil), 0))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/groups", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	h.Create(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "INVALID_JSON")

	req = httptest.NewRequest(http.MethodGet, "/api/v1/groups/nope", nil)
	req.SetPathValue("id", "nope")
	rec = httptest.NewRecorder()
	h.Get(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "INVALID_ID")
}
