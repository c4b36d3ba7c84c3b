package config

const (
	defaultDataDir               = "~/.local/share/vecna"
	defaultLogDir                = "~/.local/share/vecna/logs"
	defaultParseURL              = "http://127.0.0.1:8081"
	defaultGenerateURL           = "http://127.0.0.1:8082"
	defaultServiceTimeoutSeconds = 120
	defaultServiceRetryAttempts  = 3
	defaultLeaseSeconds          = 900
	defaultQualityTier           = "standard"
	defaultConfidenceThreshold   = 0.7
	defaultCompleteThreshold     = 85.0
	defaultQueuePollInterval     = 10
	defaultReconcileInterval     = 60
	defaultMaxParallel           = 4
	defaultMaxSteps              = 16
	defaultNtfyRequestTimeout    = 10
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
	defaultSuggestionExpiryDays  = 0
	serviceAPIKeyEnv             = "VECNA_SERVICES_API_KEY"
	defaultConfigPathUnexpanded  = "~/.config/vecna/config.toml"
	projectConfigFilename        = "vecna.toml"
	defaultQueueDatabaseFilename = "vecna.db"
	defaultWorkerLockFilename    = "vecna-worker.lock"
	defaultLogFilename           = "vecna.log"
)

var (
	defaultContentTypes  = []string{"rules", "setup", "reference"}
	defaultTaxonomyKinds = []string{"theme", "mechanic", "player_experience"}
	validQualityTiers    = []string{"draft", "standard", "premium"}
	validContentTypes    = defaultContentTypes
	validSuggestionKinds = defaultTaxonomyKinds
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Services: Services{
			ParseURL:       defaultParseURL,
			GenerateURL:    defaultGenerateURL,
			TimeoutSeconds: defaultServiceTimeoutSeconds,
			RetryAttempts:  defaultServiceRetryAttempts,
		},
		Pipeline: Pipeline{
			LeaseSeconds: defaultLeaseSeconds,
			QualityTier:  defaultQualityTier,
			ContentTypes: append([]string(nil), defaultContentTypes...),
		},
		Taxonomy: Taxonomy{
			ConfidenceThreshold:  defaultConfidenceThreshold,
			Kinds:                append([]string(nil), defaultTaxonomyKinds...),
			SuggestionExpiryDays: defaultSuggestionExpiryDays,
		},
		Quality: Quality{
			CompleteThreshold: defaultCompleteThreshold,
		},
		Workflow: Workflow{
			QueuePollInterval: defaultQueuePollInterval,
			ReconcileInterval: defaultReconcileInterval,
			MaxParallel:       defaultMaxParallel,
			MaxSteps:          defaultMaxSteps,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNtfyRequestTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
