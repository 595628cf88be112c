package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/titikruang/ruang/internal/domain"
)

var (
	ErrProviderUnavailable = domain.ErrProviderUnavailable
	ErrValidation          = domain.ErrValidation
	ErrQuotaExceeded       = domain.ErrQuotaExceeded
	ErrPermissionDenied    = domain.ErrPermissionDenied
	ErrNotFound            = domain.ErrNotFound
	ErrUnauthorized        = errors.New("unauthorized")
	ErrRateLimited         = errors.New("rate limited")
)

// APIError is an error envelope returned by the server.
type APIError struct {
	Status  int               `json:"-"`
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func (e *APIError) Error() string {
	if len(e.Fields) > 0 {
		return fmt.Sprintf("%s (%d): %v", e.Code, e.Status, e.Fields)
	}
	return fmt.Sprintf("%s (%d): %s", e.Code, e.Status, e.Message)
}

// Unwrap maps the envelope code onto the matching error kind so callers
// can use errors.Is.
func (e *APIError) Unwrap() error {
	switch e.Code {
	case "VALIDATION_ERROR":
		return ErrValidation
	case "QUOTA_EXCEEDED":
		return ErrQuotaExceeded
	case "FORBIDDEN":
		return ErrPermissionDenied
	case "NOT_FOUND":
		return ErrNotFound
	case "UNAVAILABLE":
		return ErrProviderUnavailable
	case "UNAUTHORIZED", "INVALID_CREDENTIALS":
		return ErrUnauthorized
	case "RATE_LIMITED":
		return ErrRateLimited
	}
	return nil
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var envelope struct {
		Error *APIError `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error != nil {
		apiErr.Code = envelope.Error.Code
		apiErr.Message = envelope.Error.Message
		apiErr.Fields = envelope.Error.Fields
	}

	if apiErr.Code == "" {
		apiErr.Code = http.StatusText(resp.StatusCode)
		apiErr.Message = string(body)
	}
	return apiErr
}
