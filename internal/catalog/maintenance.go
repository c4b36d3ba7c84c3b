package catalog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"vecna/internal/pipeline"
	"vecna/internal/services"
)

// Reclaimed describes one entity demoted by ReclaimExpiredLeases.
type Reclaimed struct {
	EntityID int64
	From     pipeline.State
	To       pipeline.State
}

// ReclaimExpiredLeases demotes every entity whose processing lease expired
// before now back to its stable predecessor, recording
// "lease expired while <state>" as the error.
func (s *Store) ReclaimExpiredLeases(ctx context.Context, now time.Time) ([]Reclaimed, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT id, state FROM entities
         WHERE state IN (?, ?) AND lease_expires_at IS NOT NULL AND lease_expires_at < ?
         ORDER BY id`,
		pipeline.StateParsing, pipeline.StateGenerating, formatTime(now),
	)
	if err != nil {
		return nil, fmt.Errorf("query expired leases: %w", err)
	}
	type candidate struct {
		id    int64
		state pipeline.State
	}
	var candidates []candidate
	for rows.Next() {
		var c candidate
		if err := rows.Scan(&c.id, &c.state); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan expired lease: %w", err)
		}
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	var reclaimed []Reclaimed
	for _, c := range candidates {
		target, ok := pipeline.RollbackState(c.state)
		if !ok {
			continue
		}
		_, err := s.Transition(ctx, c.id, StateChange{
			From:      c.state,
			To:        target,
			LastError: fmt.Sprintf("lease expired while %s", c.state),
		})
		if errors.Is(err, services.ErrStateConflict) {
			// Finished or rolled back between the scan and the write.
			continue
		}
		if err != nil {
			return reclaimed, err
		}
		reclaimed = append(reclaimed, Reclaimed{EntityID: c.id, From: c.state, To: target})
	}
	return reclaimed, nil
}

// DatabaseHealth describes the catalog database for diagnostics.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	SchemaVersion    int
	TotalEntities    int
	IntegrityCheck   bool
	Error            string
}

// CheckHealth returns diagnostic information about the catalog database.
func (s *Store) CheckHealth(ctx context.Context) (DatabaseHealth, error) {
	health := DatabaseHealth{DBPath: s.path}
	if s.path == "" {
		return health, errors.New("catalog database path is unknown")
	}

	info, err := os.Stat(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return health, nil
		}
		return health, fmt.Errorf("stat catalog database: %w", err)
	}
	if info.IsDir() {
		return health, fmt.Errorf("catalog database path %q is a directory", s.path)
	}
	health.DatabaseExists = true

	connCtx, cancel := context.WithTimeout(ensureContext(ctx), 2*time.Second)
	defer cancel()

	if err := s.db.PingContext(connCtx); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("ping catalog database: %w", err)
	}
	health.DatabaseReadable = true

	if err := s.db.QueryRowContext(connCtx, "SELECT version FROM schema_version LIMIT 1").Scan(&health.SchemaVersion); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("read schema version: %w", err)
	}
	if err := s.db.QueryRowContext(connCtx, "SELECT COUNT(*) FROM entities").Scan(&health.TotalEntities); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("count entities: %w", err)
	}

	var integrity string
	if err := s.db.QueryRowContext(connCtx, "PRAGMA integrity_check").Scan(&integrity); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("integrity check: %w", err)
	}
	health.IntegrityCheck = strings.EqualFold(integrity, "ok")
	return health, nil
}
