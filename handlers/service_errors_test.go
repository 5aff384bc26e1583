package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/llm-gateway/services"
	"github.com/upb/llm-gateway/services/providers"
	"github.com/upb/llm-gateway/utils"
	"go.uber.org/zap"
)

func TestHandleServiceError(t *testing.T) {
	logger := zap.NewNop()
	vendorErr := providers.NewVendorError("openai", providers.OpChat, 401, errors.New("invalid key sk-leak"))

	tests := []struct {
		name            string
		err             error
		expectedStatus  int
		expectedError   string
		expectedMessage string
	}{
		{
			name:            "not found",
			err:             services.NewDomainError(services.ErrorTypeNotFound, "session not found", errors.New("sql: no rows")),
			expectedStatus:  http.StatusNotFound,
			expectedError:   "not_found",
			expectedMessage: "session not found",
		},
		{
			name:            "validation",
			err:             services.ErrEmptyMessage,
			expectedStatus:  http.StatusBadRequest,
			expectedError:   "bad_request",
			expectedMessage: "message cannot be empty",
		},
		{
			name:            "unsupported provider",
			err:             services.NewUnsupportedProviderError("mistral"),
			expectedStatus:  http.StatusBadRequest,
			expectedError:   "bad_request",
			expectedMessage: "unsupported provider: mistral",
		},
		{
			name:            "conflict",
			err:             services.ErrDuplicateAPIKey,
			expectedStatus:  http.StatusConflict,
			expectedError:   "conflict",
			expectedMessage: "API key already stored for provider",
		},
		{
			name:            "external hides vendor body",
			err:             services.WrapExternal("chat request to provider openai failed", vendorErr),
			expectedStatus:  http.StatusBadGateway,
			expectedError:   "bad_gateway",
			expectedMessage: "chat request to provider openai failed",
		},
		{
			name:            "credential",
			err:             services.NewCredentialFormatError("expected 2 segments, got 1"),
			expectedStatus:  http.StatusInternalServerError,
			expectedError:   "internal_error",
			expectedMessage: "Stored credential could not be used",
		},
		{
			name:            "persistence hides driver error",
			err:             services.WrapPersistence("failed to store user message", errors.New("pq: connection reset")),
			expectedStatus:  http.StatusInternalServerError,
			expectedError:   "internal_error",
			expectedMessage: "An internal error occurred",
		},
		{
			name:            "plain error",
			err:             fmt.Errorf("boom"),
			expectedStatus:  http.StatusInternalServerError,
			expectedError:   "internal_error",
			expectedMessage: "An unexpected error occurred",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()

			HandleServiceError(w, tt.err, logger)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.NotContains(t, w.Body.String(), "sk-leak")
			assert.NotContains(t, w.Body.String(), "pq:")

			var response utils.ErrorResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
			assert.Equal(t, tt.expectedError, response.Error)
			assert.Equal(t, tt.expectedMessage, response.Message)
		})
	}
}

func TestHandleServiceError_Details(t *testing.T) {
	w := httptest.NewRecorder()

	HandleServiceError(w, services.NewUnsupportedProviderError("cohere"), zap.NewNop())

	var response utils.ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, "cohere", response.Details["provider"])
}

func TestHandleServiceError_Nil(t *testing.T) {
	w := httptest.NewRecorder()
	HandleServiceError(w, nil, zap.NewNop())
	assert.Empty(t, w.Body.String())
}

func TestHandleValidationError(t *testing.T) {
	t.Run("validator error lists fields", func(t *testing.T) {
		w := httptest.NewRecorder()
		err := utils.ValidateStruct(&ValidateKeyRequest{})

		HandleValidationError(w, err, zap.NewNop())

		assert.Equal(t, http.StatusBadRequest, w.Code)
		var response utils.ErrorResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		assert.Equal(t, "Validation failed", response.Message)
		assert.Equal(t, "apiKey is required", response.Details["apiKey"])
	})

	t.Run("generic error", func(t *testing.T) {
		w := httptest.NewRecorder()

		HandleValidationError(w, errors.New("bad input"), zap.NewNop())

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "bad input")
	})
}
