package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"vecna/internal/gamecontext"
)

// SaveEnrichment upserts imported enrichment and sets HasEnrichmentSummary
// when any descriptive field is present.
func (s *Store) SaveEnrichment(ctx context.Context, e Enrichment) error {
	metadata, err := encodeJSON(e.Metadata)
	if err != nil {
		return err
	}
	awards, err := encodeJSON(e.Awards)
	if err != nil {
		return err
	}
	_, hasSummary := gamecontext.BuildContext(e.Data())
	timestamp := s.timestamp()

	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO enrichment (entity_id, summary, gameplay, origins, reception, metadata_json, awards_json, updated_at)
             VALUES (?, ?, ?, ?, ?, ?, ?, ?)
             ON CONFLICT(entity_id) DO UPDATE SET
                 summary = excluded.summary, gameplay = excluded.gameplay, origins = excluded.origins,
                 reception = excluded.reception, metadata_json = excluded.metadata_json,
                 awards_json = excluded.awards_json, updated_at = excluded.updated_at`,
			e.EntityID,
			nullableString(strings.TrimSpace(e.Summary)),
			nullableString(strings.TrimSpace(e.Gameplay)),
			nullableString(strings.TrimSpace(e.Origins)),
			nullableString(strings.TrimSpace(e.Reception)),
			metadata,
			awards,
			timestamp,
		); err != nil {
			return fmt.Errorf("save enrichment: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE entities SET has_enrichment_summary = ?, updated_at = ? WHERE id = ?`,
			boolToInt(hasSummary), timestamp, e.EntityID,
		); err != nil {
			return fmt.Errorf("flag enrichment: %w", err)
		}
		return nil
	})
}

// GetEnrichment returns the entity's enrichment or (nil, nil) when none was imported.
func (s *Store) GetEnrichment(ctx context.Context, entityID int64) (*Enrichment, error) {
	var (
		e          = Enrichment{EntityID: entityID}
		summary    sql.NullString
		gameplay   sql.NullString
		origins    sql.NullString
		reception  sql.NullString
		metadata   sql.NullString
		awards     sql.NullString
		updatedRaw string
	)
	err := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT summary, gameplay, origins, reception, metadata_json, awards_json, updated_at
         FROM enrichment WHERE entity_id = ?`, entityID,
	).Scan(&summary, &gameplay, &origins, &reception, &metadata, &awards, &updatedRaw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get enrichment: %w", err)
	}
	e.Summary = summary.String
	e.Gameplay = gameplay.String
	e.Origins = origins.String
	e.Reception = reception.String
	if metadata.Valid {
		if err := json.Unmarshal([]byte(metadata.String), &e.Metadata); err != nil {
			return nil, fmt.Errorf("decode enrichment metadata: %w", err)
		}
	}
	if awards.Valid {
		if err := json.Unmarshal([]byte(awards.String), &e.Awards); err != nil {
			return nil, fmt.Errorf("decode enrichment awards: %w", err)
		}
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		e.UpdatedAt = updated
	}
	return &e, nil
}
