package workflow

import (
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"vecna/internal/catalog"
	"vecna/internal/config"
	"vecna/internal/generation"
	"vecna/internal/logging"
	"vecna/internal/notifications"
	"vecna/internal/parsing"
	"vecna/internal/quality"
	"vecna/internal/services/contentgen"
	"vecna/internal/services/jsonapi"
	"vecna/internal/services/rulesparser"
	"vecna/internal/taxonomy"
)

// Manager coordinates step execution for entities and families.
type Manager struct {
	cfg    *config.Config
	store  *catalog.Store
	logger *slog.Logger
	now    func() time.Time

	parse    *parsing.Executor
	taxonomy *taxonomy.Executor
	generate *generation.Executor
	gate     *quality.Gate
	notifier notifications.Service

	signals  *familySignals
	rebuilds singleflight.Group
}

// NewManager constructs a manager around the given service clients.
func NewManager(cfg *config.Config, store *catalog.Store, logger *slog.Logger, parser parsing.Parser, generator generation.Generator) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	// The step deadline spans every client retry and the lease outlasts it.
	timeout := jsonapi.CallBudget(cfg.Services.RetryAttempts, cfg.ServiceTimeout())
	lease := max(cfg.Lease(), timeout)

	kinds := make([]catalog.SuggestionKind, 0, len(cfg.Taxonomy.Kinds))
	for _, kind := range cfg.Taxonomy.Kinds {
		kinds = append(kinds, catalog.SuggestionKind(kind))
	}

	return &Manager{
		cfg:    cfg,
		store:  store,
		logger: logging.NewComponentLogger(logger, "workflow"),
		now:    func() time.Time { return time.Now().UTC() },
		parse:  parsing.NewExecutor(store, parser, logger, lease, timeout),
		taxonomy: taxonomy.NewExecutor(store, logger, taxonomy.Policy{
			Threshold: cfg.Taxonomy.ConfidenceThreshold,
			Kinds:     kinds,
		}),
		generate: generation.NewExecutor(store, generator, logger, generation.Settings{
			ContentTypes: cfg.Pipeline.ContentTypes,
			QualityTier:  cfg.Pipeline.QualityTier,
			Lease:        lease,
			Timeout:      timeout,
		}),
		gate:     quality.NewGate(cfg.Quality.CompleteThreshold),
		notifier: notifications.NewService(cfg),
		signals:  newFamilySignals(),
	}
}

// NewManagerFromConfig constructs a manager with HTTP clients for the
// configured parse and generate services.
func NewManagerFromConfig(cfg *config.Config, store *catalog.Store, logger *slog.Logger) *Manager {
	opts := []jsonapi.Option{jsonapi.WithRetryMaxAttempts(cfg.Services.RetryAttempts)}
	parser := rulesparser.NewClient(jsonapi.Config{
		BaseURL:        cfg.Services.ParseURL,
		APIKey:         cfg.Services.APIKey,
		TimeoutSeconds: cfg.Services.TimeoutSeconds,
	}, opts...)
	generator := contentgen.NewClient(jsonapi.Config{
		BaseURL:        cfg.Services.GenerateURL,
		APIKey:         cfg.Services.APIKey,
		TimeoutSeconds: cfg.Services.TimeoutSeconds,
	}, opts...)
	return NewManager(cfg, store, logger, parser, generator)
}

// SetClock replaces the time source used for lease reconciliation.
func (m *Manager) SetClock(now func() time.Time) {
	if now != nil {
		m.now = now
	}
}

// SetNotifier replaces the service that receives reviewer alerts.
func (m *Manager) SetNotifier(notifier notifications.Service) {
	if notifier != nil {
		m.notifier = notifier
	}
}

// Gate returns the completeness gate used by Approve.
func (m *Manager) Gate() *quality.Gate {
	return m.gate
}
