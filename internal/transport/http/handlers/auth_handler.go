package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/titikruang/ruang/internal/domain"
	"github.com/titikruang/ruang/internal/identity"
	"github.com/titikruang/ruang/internal/service"
	"github.com/titikruang/ruang/internal/transport/http/middleware"
	"github.com/titikruang/ruang/pkg/validator"
	"go.uber.org/zap"
)

type AuthHandler struct {
	authService *service.AuthService
	names       identity.NameStore
}

func NewAuthHandler(authService *service.AuthService, names identity.NameStore) *AuthHandler {
	return &AuthHandler{authService: authService, names: names}
}

func (h *AuthHandler) SignInAnonymously(w http.ResponseWriter, r *http.Request) {
	resp, err := h.authService.SignInAnonymously(r.Context())
	if err != nil {
		writeServiceError(w, "sign in anonymously", err)
		return
	}

	writeJSON(w, http.StatusCreated, resp)
}

func (h *AuthHandler) Resume(w http.ResponseWriter, r *http.Request) {
	var input service.ResumeInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	resp, err := h.authService.Resume(r.Context(), input)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCreds) {
			writeError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Unknown identity or wrong device secret")
		} else {
			writeServiceError(w, "resume", err)
		}
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

type MeResponse struct {
	Identity    uuid.UUID `json:"identity"`
	DisplayName string    `json:"display_name"`
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	id := middleware.GetUserID(r.Context())

	name, err := identity.DisplayName(r.Context(), h.names, id)
	if err != nil {
		writeServiceError(w, "display name", err)
		return
	}

	writeJSON(w, http.StatusOK, MeResponse{Identity: id, DisplayName: name})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}

func writeValidationErrors(w http.ResponseWriter, errs validator.ValidationErrors) {
	writeJSON(w, http.StatusBadRequest, map[string]any{
		"error": map[string]any{
			"code":   "VALIDATION_ERROR",
			"fields": errs,
		},
	})
}

// writeServiceError maps the domain error kinds to HTTP responses and logs
// anything it does not recognize.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		writeValidationErrors(w, verr.Fields)
	case errors.Is(err, domain.ErrQuotaExceeded):
		writeError(w, http.StatusConflict, "QUOTA_EXCEEDED", "You have reached the maximum number of groups")
	case errors.Is(err, domain.ErrPermissionDenied):
		writeError(w, http.StatusForbidden, "FORBIDDEN", "Only group admins can do that")
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found")
	case errors.Is(err, domain.ErrProviderUnavailable):
		zap.L().Warn("http: "+op, zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "Identity service unavailable, try again")
	default:
		zap.L().Error("http: "+op, zap.Error(err))
		writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
	}
}
