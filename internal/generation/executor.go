package generation

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"vecna/internal/catalog"
	"vecna/internal/gamecontext"
	"vecna/internal/logging"
	"vecna/internal/pipeline"
	"vecna/internal/services"
	"vecna/internal/services/contentgen"
	"vecna/internal/stageexec"
)

const stageName = "generation"

// Generator is the content generation service contract.
type Generator interface {
	Generate(ctx context.Context, req contentgen.Request) (contentgen.Response, error)
}

// Settings are the request parameters sent with every generation call.
type Settings struct {
	ContentTypes []string
	QualityTier  string
	Lease        time.Duration
	Timeout      time.Duration
}

// Executor moves an entity from taxonomy_assigned through generating to generated.
type Executor struct {
	store     *catalog.Store
	generator Generator
	logger    *slog.Logger
	settings  Settings
}

// NewExecutor constructs a generate executor.
func NewExecutor(store *catalog.Store, generator Generator, logger *slog.Logger, settings Settings) *Executor {
	return &Executor{
		store:     store,
		generator: generator,
		logger:    logging.NewComponentLogger(logger, stageName),
		settings:  settings,
	}
}

// Run generates content for entity.
func (e *Executor) Run(ctx context.Context, entity *catalog.Entity) (stageexec.Result, error) {
	return stageexec.Run(ctx, stageexec.Options{
		Logger:     e.logger,
		Store:      e.store,
		Handler:    e,
		StageName:  stageName,
		Entity:     entity,
		From:       pipeline.StateTaxonomyAssigned,
		Processing: pipeline.StateGenerating,
		Done:       pipeline.StateGenerated,
		Lease:      e.settings.Lease,
		Timeout:    e.settings.Timeout,
	})
}

// Precondition requires a built family context for dependent entities.
func (e *Executor) Precondition(ctx context.Context, entity *catalog.Entity) error {
	if e.generator == nil {
		return services.Wrap(services.ErrPrecondition, stageName, "start", "generate service not configured", nil)
	}
	if !entity.IsDependent() {
		return nil
	}
	if _, err := e.familyContext(ctx, entity); err != nil {
		return err
	}
	return nil
}

// Execute calls the generation service and stores any inline content.
func (e *Executor) Execute(ctx context.Context, entity *catalog.Entity) (stageexec.Completion, error) {
	req := contentgen.Request{
		EntityID:     entity.ID,
		ContentTypes: append([]string(nil), e.settings.ContentTypes...),
		QualityTier:  e.settings.QualityTier,
	}
	if entity.IsDependent() {
		fc, err := e.familyContext(ctx, entity)
		if err != nil {
			return stageexec.Completion{}, err
		}
		req.FamilyContext = &fc
	}
	enrichment, err := e.store.GetEnrichment(ctx, entity.ID)
	if err != nil {
		return stageexec.Completion{}, fmt.Errorf("load enrichment: %w", err)
	}
	if bundle, ok := gamecontext.BuildContext(enrichment.Data()); ok {
		req.Context = bundle
	}

	resp, err := e.generator.Generate(ctx, req)
	if err != nil {
		marker := services.ErrExternalService
		if services.IsTimeout(err) {
			marker = services.ErrTimeout
		}
		if status, failed, ok := contentgen.DecodeFailure(err); ok {
			message := fmt.Sprintf("generate service call failed (http %d): %s", status, ComposeError(failed))
			return stageexec.Completion{}, services.Diagnose(marker, message, nil)
		}
		return stageexec.Completion{}, services.Diagnose(marker, "generate service call failed", err)
	}
	if !resp.Success {
		return stageexec.Completion{}, services.Diagnose(services.ErrExternalService, ComposeError(resp), nil)
	}

	types := make([]string, 0, len(resp.Content))
	for contentType := range resp.Content {
		types = append(types, contentType)
	}
	sort.Strings(types)
	for _, contentType := range types {
		if err := e.store.SaveContent(ctx, entity.ID, contentType, resp.Content[contentType]); err != nil {
			return stageexec.Completion{}, fmt.Errorf("store %s content: %w", contentType, err)
		}
	}
	return stageexec.Completion{
		GeneratedContent: true,
		Attrs: []logging.Attr{
			logging.String("quality_tier", req.QualityTier),
			logging.Int("content_types", len(req.ContentTypes)),
			logging.Bool("family_context", req.FamilyContext != nil),
		},
	}, nil
}

// familyContext returns a copy of the cached context of entity's family.
func (e *Executor) familyContext(ctx context.Context, entity *catalog.Entity) (gamecontext.FamilyContext, error) {
	if entity.FamilyID == 0 {
		return gamecontext.FamilyContext{}, services.Wrap(services.ErrPrecondition, stageName, "family context",
			"dependent entity has no family", nil)
	}
	family, err := e.store.GetFamily(ctx, entity.FamilyID)
	if err != nil {
		return gamecontext.FamilyContext{}, err
	}
	if family == nil || family.Context == nil || family.Context.IsZero() {
		return gamecontext.FamilyContext{}, services.Wrap(services.ErrPrecondition, stageName, "family context",
			fmt.Sprintf("family %d context not built yet", entity.FamilyID), nil)
	}
	return *family.Context, nil
}

// ComposeError renders a failed generation response as the message recorded
// on the entity. Per-type sub-errors produce
// "generation failed for <types>: <first sub-error>", with types sorted.
func ComposeError(resp contentgen.Response) string {
	if len(resp.Errors) > 0 {
		types := make([]string, 0, len(resp.Errors))
		for contentType := range resp.Errors {
			types = append(types, contentType)
		}
		sort.Strings(types)
		first := strings.TrimSpace(resp.Errors[types[0]])
		if first == "" {
			first = strings.TrimSpace(resp.Error)
		}
		message := "generation failed for " + strings.Join(types, ", ")
		if first != "" {
			message += ": " + first
		}
		return message
	}
	if detail := strings.TrimSpace(resp.Error); detail != "" {
		return "generation failed: " + detail
	}
	return "generation failed"
}
