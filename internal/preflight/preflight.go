package preflight

import (
	"context"

	"vecna/internal/catalog"
	"vecna/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes every preflight check for the given config. store may be
// nil, in which case the catalog check is skipped.
func RunAll(ctx context.Context, cfg *config.Config, store *catalog.Store) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
	}
	if store != nil {
		results = append(results, CheckCatalog(ctx, store))
	}
	results = append(results,
		CheckService(ctx, "Parse service", cfg.Services.ParseURL, cfg.Services.APIKey),
		CheckService(ctx, "Generate service", cfg.Services.GenerateURL, cfg.Services.APIKey),
	)
	return results
}
