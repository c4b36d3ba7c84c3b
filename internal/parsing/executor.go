package parsing

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"vecna/internal/catalog"
	"vecna/internal/logging"
	"vecna/internal/pipeline"
	"vecna/internal/services"
	"vecna/internal/services/rulesparser"
	"vecna/internal/stageexec"
)

const stageName = "parsing"

// Parser is the extraction service contract.
type Parser interface {
	Parse(ctx context.Context, req rulesparser.Request) (rulesparser.Response, error)
}

// Executor moves an entity from rulebook_ready through parsing to parsed.
type Executor struct {
	store   *catalog.Store
	parser  Parser
	logger  *slog.Logger
	lease   time.Duration
	timeout time.Duration
}

// NewExecutor constructs a parse executor. lease bounds the parsing state;
// timeout bounds the extraction call.
func NewExecutor(store *catalog.Store, parser Parser, logger *slog.Logger, lease, timeout time.Duration) *Executor {
	return &Executor{
		store:   store,
		parser:  parser,
		logger:  logging.NewComponentLogger(logger, stageName),
		lease:   lease,
		timeout: timeout,
	}
}

// Run parses the rulebook of entity.
func (e *Executor) Run(ctx context.Context, entity *catalog.Entity) (stageexec.Result, error) {
	return stageexec.Run(ctx, stageexec.Options{
		Logger:     e.logger,
		Store:      e.store,
		Handler:    e,
		StageName:  stageName,
		Entity:     entity,
		From:       pipeline.StateRulebookReady,
		Processing: pipeline.StateParsing,
		Done:       pipeline.StateParsed,
		Lease:      e.lease,
		Timeout:    e.timeout,
	})
}

// Precondition requires a rulebook reference.
func (e *Executor) Precondition(_ context.Context, entity *catalog.Entity) error {
	if strings.TrimSpace(entity.RulebookURL) == "" {
		return services.Wrap(services.ErrPrecondition, stageName, "start", "no rulebook reference attached", nil)
	}
	if e.parser == nil {
		return services.Wrap(services.ErrPrecondition, stageName, "start", "parse service not configured", nil)
	}
	return nil
}

// Execute calls the extraction service. Any non-2xx response, transport
// error, timeout, or explicit failure flag is a failure.
func (e *Executor) Execute(ctx context.Context, entity *catalog.Entity) (stageexec.Completion, error) {
	resp, err := e.parser.Parse(ctx, rulesparser.Request{
		EntityID:          entity.ID,
		DocumentReference: strings.TrimSpace(entity.RulebookURL),
	})
	if err != nil {
		return stageexec.Completion{}, services.Diagnose(markerFor(err), "parse service call failed", err)
	}
	if !resp.Success {
		message := "parse service reported failure"
		if detail := strings.TrimSpace(resp.Error); detail != "" {
			message = fmt.Sprintf("%s: %s", message, detail)
		}
		return stageexec.Completion{}, services.Diagnose(services.ErrExternalService, message, nil)
	}
	return stageexec.Completion{
		ParsedText: true,
		Attrs:      []logging.Attr{logging.String("document", entity.RulebookURL)},
	}, nil
}

func markerFor(err error) error {
	if services.IsTimeout(err) {
		return services.ErrTimeout
	}
	return services.ErrExternalService
}
