package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/upb/llm-gateway/middleware"
	"github.com/upb/llm-gateway/services"
	"github.com/upb/llm-gateway/services/gateway"
	"github.com/upb/llm-gateway/utils"
	"go.uber.org/zap"
)

// Usage window bounds, in days
const (
	DefaultUsageDays = 7
	MaxUsageDays     = 366
)

// ValidateKeyRequest is the body of POST /providers/{name}/validate-key
type ValidateKeyRequest struct {
	APIKey string `json:"apiKey" validate:"required,max=1024"`
}

// ValidateKeyResponse reports a vendor's verdict on a key
type ValidateKeyResponse struct {
	Provider string `json:"provider"`
	Valid    bool   `json:"valid"`
}

// ProviderHandler handles provider, credential and usage requests
type ProviderHandler struct {
	service GatewayService
	logger  *zap.Logger
}

// NewProviderHandler creates a new ProviderHandler
func NewProviderHandler(service GatewayService, logger *zap.Logger) *ProviderHandler {
	return &ProviderHandler{
		service: service,
		logger:  logger,
	}
}

// HandleList handles GET /api/v1/providers
func (h *ProviderHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	catalog, err := h.service.ListProviders(r.Context())
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, catalog)
}

// HandleValidateKey handles POST /api/v1/providers/{name}/validate-key
func (h *ProviderHandler) HandleValidateKey(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if !h.service.IsProviderSupported(name) {
		HandleServiceError(w, services.NewUnsupportedProviderError(name), h.logger)
		return
	}

	var req ValidateKeyRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		_ = utils.WriteBadRequest(w, err.Error(), nil)
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	valid := h.service.ValidateAPIKey(r.Context(), name, req.APIKey)
	_ = utils.WriteOK(w, ValidateKeyResponse{Provider: name, Valid: valid})
}

// HandleListModels handles GET /api/v1/providers/{id}/models
func (h *ProviderHandler) HandleListModels(w http.ResponseWriter, r *http.Request) {
	providerID, ok := h.providerID(w, r)
	if !ok {
		return
	}

	available, err := h.service.GetAvailableModels(r.Context(), providerID)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, available)
}

// HandleStoreAPIKey handles POST /api/v1/providers/{id}/api-keys
func (h *ProviderHandler) HandleStoreAPIKey(w http.ResponseWriter, r *http.Request) {
	providerID, ok := h.providerID(w, r)
	if !ok {
		return
	}

	var req gateway.StoreAPIKeyRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		_ = utils.WriteBadRequest(w, err.Error(), nil)
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}
	req.ProviderID = providerID
	req.OwnerID = middleware.GetOwnerID(r.Context())

	stored, err := h.service.StoreAPIKey(r.Context(), &req)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteCreated(w, stored)
}

// HandleUsage handles GET /api/v1/providers/{id}/usage?days=N
func (h *ProviderHandler) HandleUsage(w http.ResponseWriter, r *http.Request) {
	providerID, ok := h.providerID(w, r)
	if !ok {
		return
	}

	days := DefaultUsageDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > MaxUsageDays {
			_ = utils.WriteBadRequest(w, "days must be an integer between 1 and 366", nil)
			return
		}
		days = n
	}

	summary, err := h.service.GetUsageStats(r.Context(), providerID, days)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, summary)
}

func (h *ProviderHandler) providerID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := utils.ParseUUID(chi.URLParam(r, "id"), "provider id")
	if err != nil {
		_ = utils.WriteBadRequest(w, err.Error(), nil)
		return uuid.Nil, false
	}
	return id, true
}
