package gwerror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstructors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		err        *Error
		wantCode   string
		wantStatus int
	}{
		{"missing token", MissingToken(), CodeAuthMissingToken, http.StatusUnauthorized},
		{"invalid token", InvalidToken(), CodeAuthInvalidToken, http.StatusUnauthorized},
		{"forbidden", Forbidden("nope"), CodeForbidden, http.StatusForbidden},
		{"validation", Validation("bad input"), CodeValidationError, http.StatusBadRequest},
		{"not found", NotFound("gone"), CodeNotFound, http.StatusNotFound},
		{"too many requests", TooManyRequests(""), CodeTooManyRequests, http.StatusTooManyRequests},
		{"backend unavailable", BackendUnavailable(), CodeBackendUnavailable, http.StatusBadGateway},
		{"internal", Internal(), CodeInternalServerError, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.wantCode, tt.err.Code)
			assert.Equal(t, tt.wantStatus, tt.err.Status)
			assert.NotEmpty(t, tt.err.Message)
		})
	}
}

func TestUpstream(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		status      int
		message     string
		wantCode    string
		wantMessage string
	}{
		{"404 maps to not found", http.StatusNotFound, "Release not found", CodeNotFound, "Release not found"},
		{"409 keeps backend code", http.StatusConflict, "Version conflict", CodeBackendError, "Version conflict"},
		{"500 keeps backend code", http.StatusInternalServerError, "boom", CodeBackendError, "boom"},
		{"empty message falls back to status text", http.StatusBadRequest, "", CodeBackendError, "Bad Request"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := Upstream(tt.status, tt.message)
			assert.Equal(t, tt.wantCode, err.Code)
			assert.Equal(t, tt.status, err.Status)
			assert.Equal(t, tt.wantMessage, err.Message)
		})
	}
}

func TestFromError(t *testing.T) {
	t.Parallel()

	t.Run("classified errors pass through", func(t *testing.T) {
		t.Parallel()

		original := NotFound("missing")
		got := FromError(fmt.Errorf("wrapped: %w", original))
		assert.Same(t, original, got)
	})

	t.Run("unknown errors collapse to internal", func(t *testing.T) {
		t.Parallel()

		cause := errors.New("surprise")
		got := FromError(cause)
		assert.Equal(t, CodeInternalServerError, got.Code)
		assert.Equal(t, http.StatusInternalServerError, got.Status)
		assert.ErrorIs(t, got, cause)
	})
}

func TestErrorWrapping(t *testing.T) {
	t.Parallel()

	cause := errors.New("connect refused")
	err := BackendUnavailable().WithCause(cause)

	require.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), CodeBackendUnavailable)
	assert.Contains(t, err.Error(), "connect refused")

	var gwErr *Error
	require.True(t, errors.As(err, &gwErr))
	assert.True(t, IsClassified(err))
	assert.False(t, IsClassified(cause))
}

func TestWithDetails(t *testing.T) {
	t.Parallel()

	err := Validation("bad field").WithDetails(map[string]interface{}{"field": "releaseId"})
	assert.Equal(t, "releaseId", err.Details["field"])
}
