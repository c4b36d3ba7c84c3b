package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"vecna/internal/services"
)

// CreateTaxonomyValue returns the value named name within kind, inserting it when absent.
func (s *Store) CreateTaxonomyValue(ctx context.Context, kind SuggestionKind, name string) (*TaxonomyValue, error) {
	name = strings.TrimSpace(name)
	if kind == "" || name == "" {
		return nil, services.Wrap(services.ErrValidation, "catalog", "create taxonomy value", "kind and name are required", nil)
	}
	if err := s.execWithoutResultRetry(ctx,
		`INSERT OR IGNORE INTO taxonomy_values (kind, name) VALUES (?, ?)`, kind, name,
	); err != nil {
		return nil, fmt.Errorf("insert taxonomy value: %w", err)
	}
	value := &TaxonomyValue{Kind: kind, Name: name}
	if err := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT id FROM taxonomy_values WHERE kind = ? AND name = ?`, kind, name,
	).Scan(&value.ID); err != nil {
		return nil, fmt.Errorf("lookup taxonomy value: %w", err)
	}
	return value, nil
}

// GetTaxonomyValue fetches a taxonomy value. A missing row returns (nil, nil).
func (s *Store) GetTaxonomyValue(ctx context.Context, id int64) (*TaxonomyValue, error) {
	value := &TaxonomyValue{ID: id}
	var kind string
	err := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT kind, name FROM taxonomy_values WHERE id = ?`, id,
	).Scan(&kind, &value.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get taxonomy value: %w", err)
	}
	value.Kind = SuggestionKind(kind)
	return value, nil
}

// DeleteTaxonomyValue removes a value and every association to it. Suggestions
// that reference it are left in place.
func (s *Store) DeleteTaxonomyValue(ctx context.Context, id int64) error {
	if err := s.execWithoutResultRetry(ctx, `DELETE FROM taxonomy_values WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete taxonomy value: %w", err)
	}
	return nil
}

// AddSuggestion records a pending suggestion.
func (s *Store) AddSuggestion(ctx context.Context, in Suggestion) (*Suggestion, error) {
	if in.Confidence < 0 || in.Confidence > 1 {
		return nil, services.Wrap(services.ErrValidation, "catalog", "add suggestion",
			fmt.Sprintf("confidence %.3f outside [0,1]", in.Confidence), nil)
	}
	if in.Status == "" {
		in.Status = SuggestionPending
	}
	now := s.now()
	if in.CreatedAt.IsZero() {
		in.CreatedAt = now
	}
	in.UpdatedAt = now
	res, err := s.execWithRetry(ctx,
		`INSERT INTO suggestions (entity_id, kind, value_id, confidence, status, is_primary, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		in.EntityID, in.Kind, in.ValueID, in.Confidence, in.Status, boolToInt(in.IsPrimary),
		formatTime(in.CreatedAt), formatTime(in.UpdatedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("insert suggestion: %w", err)
	}
	if in.ID, err = res.LastInsertId(); err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return &in, nil
}

const suggestionColumns = "id, entity_id, kind, value_id, confidence, status, is_primary, created_at, updated_at"

// PendingSuggestions returns the entity's pending suggestions of the given
// kinds whose confidence is at least minConfidence, strongest first within a kind.
func (s *Store) PendingSuggestions(ctx context.Context, entityID int64, kinds []SuggestionKind, minConfidence float64) ([]Suggestion, error) {
	if len(kinds) == 0 {
		return nil, nil
	}
	args := []any{entityID, SuggestionPending, minConfidence}
	for _, kind := range kinds {
		args = append(args, kind)
	}
	return s.querySuggestions(ctx,
		`SELECT `+suggestionColumns+` FROM suggestions
         WHERE entity_id = ? AND status = ? AND confidence >= ? AND kind IN (`+makePlaceholders(len(kinds))+`)
         ORDER BY kind, confidence DESC, id`,
		args...,
	)
}

// LowConfidenceSuggestions returns pending suggestions below threshold. An
// entityID of zero lists every entity.
func (s *Store) LowConfidenceSuggestions(ctx context.Context, entityID int64, threshold float64) ([]Suggestion, error) {
	query := `SELECT ` + suggestionColumns + ` FROM suggestions WHERE status = ? AND confidence < ?`
	args := []any{SuggestionPending, threshold}
	if entityID != 0 {
		query += ` AND entity_id = ?`
		args = append(args, entityID)
	}
	return s.querySuggestions(ctx, query+` ORDER BY entity_id, kind, confidence DESC, id`, args...)
}

// MarkSuggestions sets the status of the given suggestions.
func (s *Store) MarkSuggestions(ctx context.Context, ids []int64, status SuggestionStatus) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	args := []any{status, s.timestamp()}
	for _, id := range ids {
		args = append(args, id)
	}
	res, err := s.execWithRetry(ctx,
		`UPDATE suggestions SET status = ?, updated_at = ? WHERE id IN (`+makePlaceholders(len(ids))+`)`,
		args...,
	)
	if err != nil {
		return 0, fmt.Errorf("mark suggestions %s: %w", status, err)
	}
	return res.RowsAffected()
}

// ExpireSuggestions rejects pending suggestions below threshold created before cutoff.
func (s *Store) ExpireSuggestions(ctx context.Context, cutoff time.Time, threshold float64) (int64, error) {
	res, err := s.execWithRetry(ctx,
		`UPDATE suggestions SET status = ?, updated_at = ?
         WHERE status = ? AND confidence < ? AND created_at < ?`,
		SuggestionRejected, s.timestamp(), SuggestionPending, threshold, formatTime(cutoff),
	)
	if err != nil {
		return 0, fmt.Errorf("expire suggestions: %w", err)
	}
	return res.RowsAffected()
}

func (s *Store) querySuggestions(ctx context.Context, query string, args ...any) ([]Suggestion, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("query suggestions: %w", err)
	}
	defer rows.Close()

	var suggestions []Suggestion
	for rows.Next() {
		var (
			sg         Suggestion
			kind       string
			status     string
			isPrimary  int
			createdRaw string
			updatedRaw string
		)
		if err := rows.Scan(&sg.ID, &sg.EntityID, &kind, &sg.ValueID, &sg.Confidence, &status, &isPrimary, &createdRaw, &updatedRaw); err != nil {
			return nil, fmt.Errorf("scan suggestion: %w", err)
		}
		sg.Kind = SuggestionKind(kind)
		sg.Status = SuggestionStatus(status)
		sg.IsPrimary = isPrimary != 0
		if created, err := parseTimeString(createdRaw); err == nil {
			sg.CreatedAt = created
		}
		if updated, err := parseTimeString(updatedRaw); err == nil {
			sg.UpdatedAt = updated
		}
		suggestions = append(suggestions, sg)
	}
	return suggestions, rows.Err()
}

// AcceptedValueIDs returns the value ids already associated with the entity for kind.
func (s *Store) AcceptedValueIDs(ctx context.Context, entityID int64, kind SuggestionKind) (map[int64]struct{}, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT value_id FROM entity_taxonomy WHERE entity_id = ? AND kind = ?`, entityID, kind,
	)
	if err != nil {
		return nil, fmt.Errorf("query accepted values: %w", err)
	}
	defer rows.Close()

	accepted := make(map[int64]struct{})
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan accepted value: %w", err)
		}
		accepted[id] = struct{}{}
	}
	return accepted, rows.Err()
}

// InsertAssociation links an entity to a taxonomy value. A duplicate link is
// ignored and reported as not inserted. A primary request is downgraded when
// the kind already has a primary value.
func (s *Store) InsertAssociation(ctx context.Context, a Association) (bool, error) {
	res, err := s.execWithRetry(ctx,
		`INSERT OR IGNORE INTO entity_taxonomy (entity_id, kind, value_id, is_primary, created_at)
         SELECT ?, ?, ?,
             CASE WHEN ? = 1 AND NOT EXISTS (
                 SELECT 1 FROM entity_taxonomy WHERE entity_id = ? AND kind = ? AND is_primary = 1
             ) THEN 1 ELSE 0 END,
             ?`,
		a.EntityID, a.Kind, a.ValueID,
		boolToInt(a.IsPrimary), a.EntityID, a.Kind,
		s.timestamp(),
	)
	if err != nil {
		return false, fmt.Errorf("insert association: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// Associations returns the entity's accepted taxonomy with value names, primary first within a kind.
func (s *Store) Associations(ctx context.Context, entityID int64) ([]Association, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT et.kind, et.value_id, tv.name, et.is_primary
         FROM entity_taxonomy et JOIN taxonomy_values tv ON tv.id = et.value_id
         WHERE et.entity_id = ?
         ORDER BY et.kind, et.is_primary DESC, tv.name`, entityID,
	)
	if err != nil {
		return nil, fmt.Errorf("query associations: %w", err)
	}
	defer rows.Close()

	var associations []Association
	for rows.Next() {
		a := Association{EntityID: entityID}
		var kind string
		var isPrimary int
		if err := rows.Scan(&kind, &a.ValueID, &a.ValueName, &isPrimary); err != nil {
			return nil, fmt.Errorf("scan association: %w", err)
		}
		a.Kind = SuggestionKind(kind)
		a.IsPrimary = isPrimary != 0
		associations = append(associations, a)
	}
	return associations, rows.Err()
}
