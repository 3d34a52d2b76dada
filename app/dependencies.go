package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/upb/it-assistant/config"
	"github.com/upb/it-assistant/internal/rag"
	"github.com/upb/it-assistant/internal/search"
	"github.com/upb/it-assistant/repositories"
	"github.com/upb/it-assistant/repositories/postgres"
	"github.com/upb/it-assistant/repositories/sqlite"
	"github.com/upb/it-assistant/services/assistant"
	"github.com/upb/it-assistant/services/conversation"
	"github.com/upb/it-assistant/services/cost"
	"github.com/upb/it-assistant/services/providers"
	"github.com/upb/it-assistant/services/providers/openai"
	"go.uber.org/zap"
)

// Dataset columns indexed for retrieval
var textFields = []string{search.FieldTitle, search.FieldText, search.FieldAltText}

// Store is the persistence backend selected by DB_DRIVER
type Store interface {
	HealthCheck(ctx context.Context) error
	Close() error
}

// Dependencies holds all application dependencies
type Dependencies struct {
	// Configuration
	Config *config.Config

	// Infrastructure
	Logger *zap.Logger
	Store  Store

	// Repositories
	repos     *repositories.Repositories
	TxManager repositories.TransactionManager

	// Knowledge base
	Knowledge *rag.KnowledgeRetriever

	// Providers
	ProviderRegistry *providers.Registry

	// Services
	Assistant     *assistant.Service
	Conversations *conversation.Service

	providers []providers.Provider
}

// Option customises NewDependencies
type Option func(*Dependencies)

// WithProvider registers an extra provider before the configured ones.
// A provider named like the configured default replaces it.
func WithProvider(p providers.Provider) Option {
	return func(d *Dependencies) {
		d.providers = append(d.providers, p)
	}
}

// NewDependencies wires the store, knowledge base, model client and services
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts ...Option) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}
	for _, opt := range opts {
		opt(deps)
	}

	if err := deps.initDatabase(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := deps.initKnowledge(); err != nil {
		_ = deps.Close(ctx)
		return nil, fmt.Errorf("failed to initialize knowledge base: %w", err)
	}

	if err := deps.initProviders(); err != nil {
		_ = deps.Close(ctx)
		return nil, fmt.Errorf("failed to initialize providers: %w", err)
	}

	if err := deps.initServices(); err != nil {
		_ = deps.Close(ctx)
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	logger.Info("dependencies initialized",
		zap.String("db_driver", cfg.Database.Driver),
		zap.Int("documents", deps.Knowledge.Size()),
		zap.Strings("providers", deps.ProviderRegistry.List()),
		zap.String("model", cfg.Assistant.Model))

	return deps, nil
}

// initDatabase opens the configured store and applies the schema
func (d *Dependencies) initDatabase(ctx context.Context) error {
	switch d.Config.Database.Driver {
	case config.DriverSQLite:
		store, err := sqlite.Open(ctx, d.Config.Database.SQLitePath, d.Logger)
		if err != nil {
			return err
		}
		d.Store = store
		d.repos = store.NewRepositories()
		d.TxManager = sqlite.NewTransactionManager(store, d.Logger)

	case config.DriverPostgres, "":
		factory, err := postgres.NewRepositoryFactory(d.Config, d.Logger)
		if err != nil {
			return err
		}
		if err := factory.GetDB().InitSchema(ctx); err != nil {
			_ = factory.Close()
			return err
		}
		d.Store = factory
		d.repos = factory.NewRepositories()
		d.TxManager = factory.GetTransactionManager()

	default:
		return fmt.Errorf("unsupported database driver %q", d.Config.Database.Driver)
	}

	d.Logger.Info("database initialized", zap.String("driver", d.Config.Database.Driver))
	return nil
}

// initKnowledge loads the dataset and builds the search index
func (d *Dependencies) initKnowledge() error {
	docs, err := search.LoadCSV(d.Config.Knowledge.DataPath)
	if err != nil {
		return err
	}

	index, err := search.Build(docs, textFields, nil)
	if err != nil {
		return err
	}

	d.Knowledge = rag.NewKnowledgeRetriever(index, d.Config.Knowledge.Boost(), d.Config.Knowledge.NumResults)
	d.Logger.Info("knowledge base indexed",
		zap.String("path", d.Config.Knowledge.DataPath),
		zap.Int("documents", index.Len()),
		zap.Strings("fields", index.TextFields()))
	return nil
}

// initProviders registers the configured model providers
func (d *Dependencies) initProviders() error {
	d.ProviderRegistry = providers.NewRegistry()

	for _, p := range d.providers {
		if err := d.ProviderRegistry.Register(p); err != nil {
			return fmt.Errorf("register %s: %w", p.Name(), err)
		}
	}

	openaiCfg := d.Config.Providers.OpenAI
	if openaiCfg.APIKey != "" {
		adapter := openai.NewOpenAIAdapter(providers.ProviderConfig{
			APIKey:  openaiCfg.APIKey,
			BaseURL: openaiCfg.BaseURL,
			OrgID:   openaiCfg.OrgID,
			Timeout: openaiCfg.Timeout,
		})
		err := d.ProviderRegistry.Register(adapter)
		if err != nil && !errors.Is(err, providers.ErrProviderAlreadyRegistered) {
			return err
		}
	}

	if d.ProviderRegistry.Count() == 0 {
		d.Logger.Warn("no LLM providers configured - set OPENAI_API_KEY")
	}
	return nil
}

// initServices builds the answer pipeline and the conversation service
func (d *Dependencies) initServices() error {
	provider, err := d.ProviderRegistry.Get(d.Config.Providers.Default)
	if err != nil {
		return fmt.Errorf("default provider %q: %w", d.Config.Providers.Default, err)
	}
	client := providers.NewClient(provider, d.Config.Providers.OpenAI.Timeout, d.Logger)

	table, err := cost.LoadTable(d.Config.Assistant.PricingFile)
	if err != nil {
		return err
	}

	evaluator := rag.NewEvaluator(client, d.Config.Assistant.EvalModel, d.Logger)
	accountant := cost.NewAccountant(table, d.Logger)
	for _, model := range []string{d.Config.Assistant.Model, evaluator.Model()} {
		if _, ok := accountant.Rate(model); !ok {
			d.Logger.Warn("no pricing for model, its cost will be reported as 0", zap.String("model", model))
		}
	}

	d.Assistant = assistant.NewService(
		d.Knowledge,
		client,
		evaluator,
		accountant,
		d.Config.Assistant.Model,
		d.Logger,
	)
	d.Conversations = conversation.NewService(d.Assistant, d.repos, d.TxManager, d.Logger)
	return nil
}

// Repositories returns the repositories of the selected store
func (d *Dependencies) Repositories() *repositories.Repositories {
	return d.repos
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error

	if d.Store != nil {
		if err := d.Store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		} else {
			d.Logger.Info("database connection closed")
		}
		d.Store = nil
	}

	if d.Logger != nil {
		_ = d.Logger.Sync()
	}

	return errors.Join(errs...)
}
