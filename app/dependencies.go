package app

import (
	"context"
	"fmt"

	"github.com/upb/llm-gateway/catalog"
	"github.com/upb/llm-gateway/config"
	"github.com/upb/llm-gateway/repositories"
	"github.com/upb/llm-gateway/repositories/postgres"
	"github.com/upb/llm-gateway/services/crypto"
	"github.com/upb/llm-gateway/services/gateway"
	"github.com/upb/llm-gateway/services/providers"
	"github.com/upb/llm-gateway/services/providers/vendors"
	"go.uber.org/zap"
)

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	DB     *postgres.DB
	Logger *zap.Logger

	// Repository Factory
	RepoFactory *postgres.RepositoryFactory

	// Repositories
	Repos     *repositories.Repositories
	TxManager repositories.TransactionManager

	// Credential cipher and adapter factory
	Cipher  *crypto.Cipher
	Factory *providers.Factory

	// Orchestrator
	Gateway *gateway.Service
}

// NewDependencies opens the database, applies the schema and wires every
// component on top of it.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if err := deps.initDatabase(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := deps.wire(ctx); err != nil {
		_ = deps.RepoFactory.Close()
		return nil, err
	}

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

// NewDependenciesFromDB wires every component over an already open pool.
// The schema is left to the caller.
func NewDependenciesFromDB(ctx context.Context, cfg *config.Config, db *postgres.DB, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config:      cfg,
		Logger:      logger,
		DB:          db,
		RepoFactory: postgres.NewRepositoryFactoryFromDB(db, logger),
	}

	if err := deps.wire(ctx); err != nil {
		return nil, err
	}
	return deps, nil
}

func (d *Dependencies) wire(ctx context.Context) error {
	d.initRepositories()

	if err := d.initCipher(); err != nil {
		return fmt.Errorf("failed to initialize credential cipher: %w", err)
	}

	d.initProviders()

	if d.Config.Gateway.SeedCatalog {
		if err := d.seedCatalog(ctx); err != nil {
			return fmt.Errorf("failed to seed provider catalog: %w", err)
		}
	}

	d.Gateway = gateway.NewService(d.Repos, d.TxManager, d.Factory, d.Cipher, d.Config.Gateway, d.Logger)
	return nil
}

// initDatabase initializes the PostgreSQL database connection and factory
func (d *Dependencies) initDatabase(ctx context.Context, cfg *config.Config) error {
	factory, err := postgres.NewRepositoryFactory(cfg, d.Logger)
	if err != nil {
		return fmt.Errorf("failed to create repository factory: %w", err)
	}

	d.RepoFactory = factory
	d.DB = factory.GetDB()

	if err := d.DB.PingContext(ctx); err != nil {
		_ = factory.Close()
		return fmt.Errorf("database ping failed: %w", err)
	}

	if err := d.DB.InitSchema(ctx); err != nil {
		_ = factory.Close()
		return err
	}

	d.Logger.Info("database connection established",
		zap.String("connection", cfg.Database.LogString()))

	return nil
}

// initRepositories initializes all repository instances
func (d *Dependencies) initRepositories() {
	d.Repos = d.RepoFactory.NewRepositories()
	d.TxManager = d.RepoFactory.GetTransactionManager()
	d.Logger.Info("repositories initialized")
}

func (d *Dependencies) initCipher() error {
	if !d.Config.Security.HasPassphrase() {
		d.Logger.Warn("CREDENTIAL_PASSPHRASE not set, using insecure default passphrase")
	}
	cipher, err := crypto.NewCipher(d.Config.Security.Passphrase(), d.Logger)
	if err != nil {
		return err
	}
	d.Cipher = cipher
	return nil
}

func (d *Dependencies) initProviders() {
	d.Factory = vendors.NewFactory(d.Config.Providers, d.Logger)
	d.Logger.Info("provider adapters registered",
		zap.Strings("providers", d.Factory.SupportedProviders()))
}

func (d *Dependencies) seedCatalog(ctx context.Context) error {
	c, err := catalog.Default()
	if err != nil {
		return err
	}
	result, err := c.Seed(ctx, d.Repos.Providers, d.Factory.IsProviderSupported, d.Logger)
	if err != nil {
		return err
	}
	d.Logger.Info("provider catalog seeded",
		zap.Strings("created", result.Created),
		zap.Int("skipped", len(result.Skipped)))
	return nil
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error

	if d.RepoFactory != nil {
		if err := d.RepoFactory.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		} else {
			d.Logger.Info("database connection closed")
		}
		d.RepoFactory = nil
	}

	if d.Logger != nil {
		_ = d.Logger.Sync()
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during shutdown: %v", errs)
	}

	return nil
}
