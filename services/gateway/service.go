package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/upb/llm-gateway/config"
	"github.com/upb/llm-gateway/internal/observability"
	"github.com/upb/llm-gateway/internal/redact"
	"github.com/upb/llm-gateway/models"
	"github.com/upb/llm-gateway/repositories"
	"github.com/upb/llm-gateway/services"
	"github.com/upb/llm-gateway/services/crypto"
	"github.com/upb/llm-gateway/services/providers"
	"github.com/upb/llm-gateway/utils"
	"go.uber.org/zap"
)

// AdapterFactory builds provider adapters by canonical key
type AdapterFactory interface {
	CreateProvider(name string, cfg *providers.ProviderConfig) (providers.Adapter, error)
	IsProviderSupported(name string) bool
	SupportedProviders() []string
}

// CredentialCipher encrypts stored vendor keys
type CredentialCipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(encoded string) (string, error)
}

// fingerprintLength is how much of the key hash is shown back to clients
const fingerprintLength = 12

// Service orchestrates chat turns across providers, sessions and usage accounting
type Service struct {
	repos   *repositories.Repositories
	txMgr   repositories.TransactionManager
	factory AdapterFactory
	cipher  CredentialCipher
	cfg     config.GatewayConfig
	locks   *keyedMutex
	now     func() time.Time
	logger  *zap.Logger
}

// NewService creates a new gateway service with all dependencies
func NewService(
	repos *repositories.Repositories,
	txMgr repositories.TransactionManager,
	factory AdapterFactory,
	cipher CredentialCipher,
	cfg config.GatewayConfig,
	logger *zap.Logger,
) *Service {
	return &Service{
		repos:   repos,
		txMgr:   txMgr,
		factory: factory,
		cipher:  cipher,
		cfg:     cfg,
		locks:   newKeyedMutex(),
		now:     time.Now,
		logger:  logger,
	}
}

// Chat runs one chat turn: resolve provider and credential, resolve the
// session, call the vendor, then persist both turns and account usage.
func (s *Service) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	if req == nil || strings.TrimSpace(req.Message) == "" {
		return nil, services.ErrEmptyMessage
	}
	if req.Settings != nil {
		if err := utils.ValidateStruct(req.Settings); err != nil {
			return nil, invalidSettings(err)
		}
	}

	logger := observability.WithContext(ctx, s.logger)
	start := s.now()

	logger.Info("starting chat",
		zap.Bool("has_provider", req.ProviderID != nil),
		zap.Bool("has_session", req.SessionID != nil),
		zap.Bool("has_conversation_key", req.ConversationKey != nil),
		zap.String("model", req.ModelID))

	// Step 1: Resolve provider
	logger.Debug("step 1: resolving provider")
	provider, err := s.resolveProvider(ctx, req.ProviderID)
	if err != nil {
		return nil, err
	}
	logger = logger.With(zap.String("provider", provider.Name))

	// Step 2: Load and decrypt the active credential
	logger.Debug("step 2: loading credential")
	apiKey, err := s.activeKey(ctx, provider)
	if err != nil {
		return nil, err
	}

	// Step 3: Build the adapter
	logger.Debug("step 3: creating adapter")
	adapter, err := s.adapterFor(provider)
	if err != nil {
		return nil, err
	}
	model := req.ModelID
	if model == "" {
		model = adapter.DefaultModel()
	}

	// Step 4: Resolve session; turns on one session run one at a time
	logger.Debug("step 4: resolving session")
	session, created, err := s.resolveSession(ctx, req, provider, model)
	if err != nil {
		return nil, err
	}
	unlock := s.locks.Lock(session.ID.String())
	defer unlock()
	logger = logger.With(zap.String("session_id", session.ID.String()), zap.Bool("new_session", created))

	// Step 5: Load history
	var history []providers.Message
	if !created {
		logger.Debug("step 5: loading history", zap.Int("limit", s.cfg.HistoryLimit))
		history, err = s.loadHistory(ctx, session.ID)
		if err != nil {
			return nil, err
		}
	}

	userMessage := models.NewUserMessage(session.ID, req.Message)

	// Step 6: Invoke vendor
	logger.Debug("step 6: invoking vendor", zap.String("model", model), zap.Int("history", len(history)))
	chatReq := &providers.ChatRequest{
		Model:        model,
		Message:      req.Message,
		SystemPrompt: req.SystemPrompt,
		History:      history,
	}
	if req.Settings != nil {
		chatReq.Settings = *req.Settings
	}

	chatCtx, cancel := context.WithTimeout(ctx, s.cfg.ChatTimeout)
	result, err := adapter.Chat(chatCtx, chatReq, apiKey)
	cancel()
	if err != nil {
		logger.Error("vendor chat failed", redact.Error(err), zap.Bool("retryable", providers.IsRetryable(err)))
		return nil, vendorFailure(fmt.Sprintf("chat request to provider %s failed", provider.Name), err)
	}

	usage := models.MessageUsage{
		PromptTokens:     result.Usage.PromptTokens,
		CompletionTokens: result.Usage.CompletionTokens,
		TotalTokens:      result.Usage.TotalTokens,
	}

	// Step 7: Persist both turns
	logger.Debug("step 7: persisting messages")
	if err := s.repos.Messages.Create(ctx, userMessage); err != nil {
		logger.Error("failed to store user message", zap.Error(err))
		return nil, services.WrapPersistence("failed to store user message", err)
	}
	assistantMessage := models.NewAssistantMessage(session.ID, result.Content, result.Model, usage)
	if err := s.repos.Messages.Create(ctx, assistantMessage); err != nil {
		logger.Error("failed to store assistant message", zap.Error(err))
		return nil, services.WrapPersistence("failed to store assistant message", err)
	}

	response := &ChatResponse{
		SessionID: session.ID,
		Response:  result.Content,
		Model:     result.Model,
		Provider:  provider.Name,
		Usage:     result.Usage,
	}

	// Step 8: Account usage
	logger.Debug("step 8: recording usage")
	now := s.now()
	if err := s.repos.Usage.Increment(ctx, models.NewUsageIncrement(provider.ID, result.Model, usage, now)); err != nil {
		logger.Error("failed to record usage", zap.Error(err))
		// Don't fail the request
		response.SoftFailures = append(response.SoftFailures, SoftFailureUsageStats)
	}
	if err := s.repos.Sessions.Touch(ctx, session.ID, now); err != nil {
		logger.Warn("failed to touch session", zap.Error(err))
		response.SoftFailures = append(response.SoftFailures, SoftFailureSessionTouch)
	}

	logger.Info("chat completed",
		zap.String("model", result.Model),
		zap.Int("tokens", result.Usage.TotalTokens),
		zap.Int64("latency_ms", s.now().Sub(start).Milliseconds()),
		zap.Strings("soft_failures", response.SoftFailures))

	return response, nil
}

// ValidateAPIKey asks the vendor whether apiKey is accepted. Any failure is
// reported as false.
func (s *Service) ValidateAPIKey(ctx context.Context, providerName, apiKey string) bool {
	logger := observability.WithContext(ctx, s.logger).With(zap.String("provider", providerName))

	if !s.factory.IsProviderSupported(providerName) {
		logger.Warn("validation requested for unsupported provider")
		return false
	}
	if strings.TrimSpace(apiKey) == "" {
		return false
	}

	adapter, err := s.factory.CreateProvider(providerName, nil)
	if err != nil {
		logger.Error("failed to create adapter", zap.Error(err))
		return false
	}

	valid := adapter.ValidateAPIKey(ctx, apiKey)
	logger.Info("api key validated", zap.Bool("valid", valid))
	return valid
}

// IsProviderSupported reports whether name is a known adapter key
func (s *Service) IsProviderSupported(name string) bool {
	return s.factory.IsProviderSupported(name)
}

// GetAvailableModels lists the models of a stored provider using its active key
func (s *Service) GetAvailableModels(ctx context.Context, providerID uuid.UUID) ([]models.ModelDescriptor, error) {
	logger := observability.WithContext(ctx, s.logger).With(zap.String("provider_id", providerID.String()))

	provider, err := s.resolveProvider(ctx, &providerID)
	if err != nil {
		return nil, err
	}
	apiKey, err := s.activeKey(ctx, provider)
	if err != nil {
		return nil, err
	}
	adapter, err := s.adapterFor(provider)
	if err != nil {
		return nil, err
	}

	available, err := adapter.GetAvailableModels(ctx, apiKey)
	if err != nil {
		logger.Error("failed to list models", redact.Error(err), zap.Bool("retryable", providers.IsRetryable(err)))
		return nil, vendorFailure(fmt.Sprintf("failed to list models for provider %s", provider.Name), err)
	}
	return available, nil
}

// ListProviders returns the supported adapter keys and the stored providers
func (s *Service) ListProviders(ctx context.Context) (*ProviderCatalog, error) {
	stored, err := s.repos.Providers.List(ctx)
	if err != nil {
		return nil, services.WrapPersistence("failed to list providers", err)
	}
	return &ProviderCatalog{
		Supported:  s.factory.SupportedProviders(),
		Configured: stored,
	}, nil
}

// StoreAPIKey encrypts and stores a credential, replacing the owner's
// previously active keys for the provider.
func (s *Service) StoreAPIKey(ctx context.Context, req *StoreAPIKeyRequest) (*StoredAPIKey, error) {
	logger := observability.WithContext(ctx, s.logger).With(zap.String("provider_id", req.ProviderID.String()))

	if strings.TrimSpace(req.APIKey) == "" {
		return nil, services.ErrEmptyAPIKey
	}
	if req.ExpiresAt != nil && !req.ExpiresAt.After(s.now()) {
		return nil, services.NewDomainError(services.ErrorTypeValidation, "expiry must be in the future", nil)
	}

	provider, err := s.resolveProvider(ctx, &req.ProviderID)
	if err != nil {
		return nil, err
	}

	if req.Validate && !s.ValidateAPIKey(ctx, provider.Name, req.APIKey) {
		return nil, services.NewDomainError(services.ErrorTypeValidation, "API key rejected by provider", nil).
			WithDetail("provider", provider.Name)
	}

	keyHash := crypto.Hash(req.APIKey)
	exists, err := s.repos.APIKeys.ExistsByHash(ctx, provider.ID, keyHash)
	if err != nil {
		return nil, services.WrapPersistence("failed to check stored keys", err)
	}
	if exists {
		return nil, services.NewDomainError(services.ErrorTypeConflict, "API key already stored for provider", nil).
			WithDetail("provider", provider.Name)
	}

	ciphertext, err := s.cipher.Encrypt(req.APIKey)
	if err != nil {
		logger.Error("failed to encrypt api key", zap.Error(err))
		return nil, services.NewDomainError(services.ErrorTypeInternal, "failed to encrypt API key", err)
	}

	key := models.NewAPIKey(provider.ID, req.OwnerID, ciphertext, keyHash, req.ExpiresAt)
	replaced, err := services.WithTransactionResult(ctx, s.txMgr, func(ctx context.Context, _ repositories.Transaction) (int64, error) {
		n, err := s.repos.APIKeys.DeactivateAll(ctx, provider.ID, req.OwnerID)
		if err != nil {
			return 0, err
		}
		if err := s.repos.APIKeys.Create(ctx, key); err != nil {
			return 0, err
		}
		return n, nil
	})
	if err != nil {
		logger.Error("failed to store api key", zap.Error(err))
		return nil, services.WrapPersistence("failed to store API key", err)
	}

	logger.Info("api key stored",
		zap.String("api_key_id", key.ID.String()),
		zap.Int64("replaced", replaced))

	return &StoredAPIKey{
		ID:          key.ID,
		ProviderID:  provider.ID,
		Fingerprint: keyHash[:fingerprintLength],
		ExpiresAt:   key.ExpiresAt,
		CreatedAt:   key.CreatedAt,
		Replaced:    replaced,
	}, nil
}

// GetSessionMessages returns a session and all of its messages
func (s *Service) GetSessionMessages(ctx context.Context, sessionID uuid.UUID) (*SessionHistory, error) {
	session, err := s.getSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	messages, err := s.repos.Messages.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, services.WrapPersistence("failed to load messages", err)
	}
	if messages == nil {
		messages = []*models.Message{}
	}
	return &SessionHistory{Session: session, Messages: messages}, nil
}

// DeleteSession removes a session and its messages atomically
func (s *Service) DeleteSession(ctx context.Context, sessionID uuid.UUID) error {
	unlock := s.locks.Lock(sessionID.String())
	defer unlock()

	err := services.WithTransaction(ctx, s.txMgr, func(ctx context.Context, _ repositories.Transaction) error {
		if _, err := s.repos.Messages.DeleteBySession(ctx, sessionID); err != nil {
			return err
		}
		return s.repos.Sessions.Delete(ctx, sessionID)
	})
	if errors.Is(err, repositories.ErrNotFound) {
		return services.NewDomainError(services.ErrorTypeNotFound, "session not found", err).
			WithDetail("session_id", sessionID.String())
	}
	if err != nil {
		return services.WrapPersistence("failed to delete session", err)
	}

	observability.WithContext(ctx, s.logger).Info("session deleted", zap.String("session_id", sessionID.String()))
	return nil
}

// GetUsageStats sums a provider's usage over the last days days, today included
func (s *Service) GetUsageStats(ctx context.Context, providerID uuid.UUID, days int) (*UsageSummary, error) {
	if days < 1 {
		return nil, services.NewDomainError(services.ErrorTypeValidation, "days must be at least 1", nil)
	}
	if _, err := s.resolveProvider(ctx, &providerID); err != nil && !services.IsValidationError(err) {
		return nil, err
	}

	since := models.UsageDay(s.now()).AddDate(0, 0, -(days - 1))
	rows, err := s.repos.Usage.ListByProvider(ctx, providerID, since)
	if err != nil {
		return nil, services.WrapPersistence("failed to load usage", err)
	}

	summary := &UsageSummary{ProviderID: providerID, Since: since, Days: rows}
	if summary.Days == nil {
		summary.Days = []*models.UsageStat{}
	}
	for _, row := range rows {
		summary.RequestCount += row.RequestCount
		summary.PromptTokens += row.PromptTokens
		summary.CompletionTokens += row.CompletionTokens
		summary.TotalTokens += row.TotalTokens
	}
	return summary, nil
}

// resolveProvider loads the requested provider, or the default one when id
// is nil, and rejects inactive providers.
func (s *Service) resolveProvider(ctx context.Context, id *uuid.UUID) (*models.Provider, error) {
	var (
		provider *models.Provider
		err      error
	)
	if id != nil {
		provider, err = s.repos.Providers.GetByID(ctx, *id)
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, services.NewDomainError(services.ErrorTypeNotFound, "provider not found", err).
				WithDetail("provider_id", id.String())
		}
	} else {
		provider, err = s.repos.Providers.GetDefault(ctx)
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, services.ErrNoDefaultProvider
		}
	}
	if err != nil {
		return nil, services.WrapPersistence("failed to load provider", err)
	}

	if !provider.IsActive {
		return provider, services.NewDomainError(services.ErrorTypeValidation, "provider is not active", nil).
			WithDetail("provider", provider.Name)
	}
	return provider, nil
}

func (s *Service) activeKey(ctx context.Context, provider *models.Provider) (string, error) {
	key, err := s.repos.APIKeys.GetActive(ctx, provider.ID, s.now())
	if errors.Is(err, repositories.ErrNotFound) {
		return "", services.NewDomainError(services.ErrorTypeNotFound, "no active API key found for provider", err).
			WithDetail("provider", provider.Name)
	}
	if err != nil {
		return "", services.WrapPersistence("failed to load API key", err)
	}

	plaintext, err := s.cipher.Decrypt(key.Ciphertext)
	if err != nil {
		s.logger.Error("failed to decrypt api key",
			zap.String("provider", provider.Name),
			zap.String("api_key_id", key.ID.String()),
			zap.Error(err))
		return "", err
	}
	return plaintext, nil
}

func (s *Service) adapterFor(provider *models.Provider) (providers.Adapter, error) {
	var override *providers.ProviderConfig
	if provider.BaseURL != "" {
		override = &providers.ProviderConfig{BaseURL: provider.BaseURL}
	}
	return s.factory.CreateProvider(provider.Name, override)
}

// resolveSession returns the session for req, creating it when the request
// names none. created reports whether the session is new.
func (s *Service) resolveSession(ctx context.Context, req *ChatRequest, provider *models.Provider, model string) (*models.Session, bool, error) {
	if req.SessionID != nil {
		session, err := s.getSession(ctx, *req.SessionID)
		return session, false, err
	}

	session := models.NewSession(provider.ID, model, req.Message)
	session.OwnerID = req.OwnerID
	session.ConversationKey = req.ConversationKey

	if req.ConversationKey != nil {
		stored, created, err := s.repos.Sessions.GetOrCreateByKey(ctx, session)
		if err != nil {
			return nil, false, services.WrapPersistence("failed to resolve conversation", err)
		}
		return stored, created, nil
	}

	if err := s.repos.Sessions.Create(ctx, session); err != nil {
		return nil, false, services.WrapPersistence("failed to create session", err)
	}
	return session, true, nil
}

func (s *Service) getSession(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	session, err := s.repos.Sessions.GetByID(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, services.NewDomainError(services.ErrorTypeNotFound, "session not found", err).
			WithDetail("session_id", id.String())
	}
	if err != nil {
		return nil, services.WrapPersistence("failed to load session", err)
	}
	return session, nil
}

func (s *Service) loadHistory(ctx context.Context, sessionID uuid.UUID) ([]providers.Message, error) {
	stored, err := s.repos.Messages.ListRecent(ctx, sessionID, s.cfg.HistoryLimit)
	if err != nil {
		return nil, services.WrapPersistence("failed to load history", err)
	}
	history := make([]providers.Message, 0, len(stored))
	for _, m := range stored {
		history = append(history, providers.Message{Role: string(m.Role), Content: m.Content})
	}
	return history, nil
}

// invalidSettings reports each rejected setting as a detail
func invalidSettings(err error) error {
	domainErr := services.NewDomainError(services.ErrorTypeValidation, services.ErrInvalidSettings.Message, err)
	var validationErr *utils.ValidationError
	if errors.As(err, &validationErr) {
		for field, msg := range validationErr.Fields {
			domainErr.WithDetail(field, msg)
		}
	}
	return domainErr
}

// vendorFailure wraps a failed vendor call, flagging throttling and
// upstream outages so clients know a retry can succeed
func vendorFailure(message string, err error) error {
	domainErr := services.WrapExternal(message, err)
	if providers.IsRetryable(err) {
		domainErr.WithDetail("retryable", true)
	}
	return domainErr
}
