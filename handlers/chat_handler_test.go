package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/upb/llm-gateway/middleware"
	"github.com/upb/llm-gateway/services"
	"github.com/upb/llm-gateway/services/gateway"
	"github.com/upb/llm-gateway/services/providers"
	"github.com/upb/llm-gateway/utils"
	"go.uber.org/zap"
)

func TestHandleChat(t *testing.T) {
	sessionID := uuid.New()
	ownerID := uuid.New()

	tests := []struct {
		name           string
		body           string
		setupMock      func(*MockGatewayService)
		expectedStatus int
		expectedError  string
		checkResponse  func(*testing.T, *httptest.ResponseRecorder)
	}{
		{
			name: "successful chat",
			body: `{"message":"Hello","systemPrompt":"Be brief","settings":{"temperature":0.2}}`,
			setupMock: func(m *MockGatewayService) {
				m.On("Chat", mock.Anything, mock.MatchedBy(func(req *gateway.ChatRequest) bool {
					return req.Message == "Hello" &&
						req.SystemPrompt == "Be brief" &&
						req.Settings != nil && *req.Settings.Temperature == 0.2 &&
						req.OwnerID != nil && *req.OwnerID == ownerID
				})).Return(&gateway.ChatResponse{
					SessionID: sessionID,
					Response:  "Hi!",
					Model:     "gpt-4o-mini",
					Provider:  "openai",
					Usage:     providers.NewUsage(3, 2),
				}, nil)
			},
			expectedStatus: http.StatusOK,
			checkResponse: func(t *testing.T, w *httptest.ResponseRecorder) {
				resp := decodeData[gateway.ChatResponse](t, w.Body)
				assert.Equal(t, sessionID, resp.SessionID)
				assert.Equal(t, "Hi!", resp.Response)
				assert.Equal(t, 5, resp.Usage.TotalTokens)
				assert.Empty(t, resp.SoftFailures)
			},
		},
		{
			name:           "malformed JSON",
			body:           `{"message":`,
			setupMock:      func(m *MockGatewayService) {},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "bad_request",
		},
		{
			name:           "unknown field",
			body:           `{"message":"hi","ownerId":"x"}`,
			setupMock:      func(m *MockGatewayService) {},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "bad_request",
		},
		{
			name:           "missing message",
			body:           `{"systemPrompt":"x"}`,
			setupMock:      func(m *MockGatewayService) {},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "bad_request",
			checkResponse: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp utils.ErrorResponse
				require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
				assert.Contains(t, resp.Details, "message")
			},
		},
		{
			name:           "settings out of range",
			body:           `{"message":"hi","settings":{"temperature":3}}`,
			setupMock:      func(m *MockGatewayService) {},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "bad_request",
			checkResponse: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp utils.ErrorResponse
				require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
				assert.Contains(t, resp.Details, "settings.temperature")
			},
		},
		{
			name: "whitespace message rejected by service",
			body: `{"message":"   "}`,
			setupMock: func(m *MockGatewayService) {
				m.On("Chat", mock.Anything, mock.Anything).Return(nil, services.ErrEmptyMessage)
			},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "bad_request",
		},
		{
			name: "no API key",
			body: `{"message":"hi"}`,
			setupMock: func(m *MockGatewayService) {
				m.On("Chat", mock.Anything, mock.Anything).Return(nil, services.ErrNoActiveAPIKey)
			},
			expectedStatus: http.StatusNotFound,
			expectedError:  "not_found",
		},
		{
			name: "vendor failure",
			body: `{"message":"hi"}`,
			setupMock: func(m *MockGatewayService) {
				m.On("Chat", mock.Anything, mock.Anything).Return(nil,
					services.WrapExternal("chat request to provider openai failed", assert.AnError))
			},
			expectedStatus: http.StatusBadGateway,
			expectedError:  "bad_gateway",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockGatewayService)
			tt.setupMock(svc)
			handler := NewChatHandler(svc, zap.NewNop())

			req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			ctx := middleware.WithRequestID(req.Context(), "test-request-id")
			ctx = middleware.WithOwnerID(ctx, &ownerID)
			req = req.WithContext(ctx)

			w := httptest.NewRecorder()
			handler.HandleChat(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedError != "" {
				var resp utils.ErrorResponse
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
				assert.Equal(t, tt.expectedError, resp.Error)
			}
			if tt.checkResponse != nil {
				tt.checkResponse(t, w)
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestHandleChat_OwnerNotTakenFromBody(t *testing.T) {
	svc := new(MockGatewayService)
	svc.On("Chat", mock.Anything, mock.MatchedBy(func(req *gateway.ChatRequest) bool {
		return req.OwnerID == nil
	})).Return(&gateway.ChatResponse{Response: "ok"}, nil)
	handler := NewChatHandler(svc, zap.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", bytes.NewBufferString(`{"message":"hi"}`))
	w := httptest.NewRecorder()
	handler.HandleChat(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}
