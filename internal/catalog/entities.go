package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"vecna/internal/pipeline"
	"vecna/internal/services"
)

// CreateEntity inserts an imported entity.
func (s *Store) CreateEntity(ctx context.Context, in NewEntity) (*Entity, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, services.Wrap(services.ErrValidation, "catalog", "create entity", "name is required", nil)
	}
	if !in.RelationType.Valid() {
		return nil, services.Wrap(services.ErrValidation, "catalog", "create entity",
			fmt.Sprintf("unknown relation type %q", in.RelationType), nil)
	}
	rulebook := strings.TrimSpace(in.RulebookURL)
	timestamp := s.timestamp()

	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO entities (
            name, family_id, base_entity_id, relation_type, publication_year, state,
            rulebook_url, has_rulebook, designers_json, publishers_json, mechanics_json,
            components_json, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		name,
		nullableInt(in.FamilyID),
		nullableInt(in.BaseEntityID),
		nullableString(string(in.RelationType)),
		in.PublicationYear,
		pipeline.StateImported,
		nullableString(rulebook),
		boolToInt(rulebook != ""),
		encodeList(in.Designers),
		encodeList(in.Publishers),
		encodeList(in.Mechanics),
		encodeList(in.Components),
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert entity: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetEntity(ctx, id)
}

// GetEntity fetches an entity by identifier. A missing row returns (nil, nil).
func (s *Store) GetEntity(ctx context.Context, id int64) (*Entity, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+entityColumns+` FROM entities WHERE id = ?`, id)
	entity, err := scanEntity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get entity: %w", err)
	}
	return entity, nil
}

// RequireEntity is GetEntity that reports a missing row as services.ErrNotFound.
func (s *Store) RequireEntity(ctx context.Context, id int64) (*Entity, error) {
	entity, err := s.GetEntity(ctx, id)
	if err != nil {
		return nil, err
	}
	if entity == nil {
		return nil, services.Wrap(services.ErrNotFound, "catalog", "get entity", fmt.Sprintf("entity %d", id), nil)
	}
	return entity, nil
}

// ListFamilyEntities returns every entity belonging to a family ordered by id.
func (s *Store) ListFamilyEntities(ctx context.Context, familyID int64) ([]*Entity, error) {
	return s.queryEntities(ctx, `SELECT `+entityColumns+` FROM entities WHERE family_id = ? ORDER BY id`, familyID)
}

// ListByState returns entities in any of the provided states, or all entities when none are given.
func (s *Store) ListByState(ctx context.Context, states ...pipeline.State) ([]*Entity, error) {
	if len(states) == 0 {
		return s.queryEntities(ctx, `SELECT `+entityColumns+` FROM entities ORDER BY id`)
	}
	args := make([]any, len(states))
	for i, state := range states {
		args[i] = state
	}
	query := `SELECT ` + entityColumns + ` FROM entities WHERE state IN (` + makePlaceholders(len(states)) + `) ORDER BY id`
	return s.queryEntities(ctx, query, args...)
}

// ListEligible returns entities an automatic advance could move, oldest update first.
// Imported entities without enrichment and blocked entities without their
// missing input are excluded.
func (s *Store) ListEligible(ctx context.Context, limit int) ([]*Entity, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.queryEntities(
		ctx,
		`SELECT `+entityColumns+` FROM entities
         WHERE (state = ? AND has_enrichment_summary = 1)
            OR (state = ? AND has_rulebook = 1)
            OR state IN (?, ?, ?, ?, ?)
         ORDER BY updated_at, id
         LIMIT ?`,
		pipeline.StateImported,
		pipeline.StateRulebookMissing,
		pipeline.StateEnriched,
		pipeline.StateRulebookReady,
		pipeline.StateParsed,
		pipeline.StateTaxonomyAssigned,
		pipeline.StateGenerated,
		limit,
	)
}

func (s *Store) queryEntities(ctx context.Context, query string, args ...any) ([]*Entity, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("query entities: %w", err)
	}
	defer rows.Close()

	var entities []*Entity
	for rows.Next() {
		entity, err := scanEntity(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entity: %w", err)
		}
		entities = append(entities, entity)
	}
	return entities, rows.Err()
}

// AttachRulebook records a rulebook reference and sets HasRulebook.
func (s *Store) AttachRulebook(ctx context.Context, id int64, url string) error {
	url = strings.TrimSpace(url)
	if url == "" {
		return services.Wrap(services.ErrValidation, "catalog", "attach rulebook", "rulebook url is required", nil)
	}
	res, err := s.execWithRetry(
		ctx,
		`UPDATE entities SET rulebook_url = ?, has_rulebook = 1, updated_at = ? WHERE id = ?`,
		url,
		s.timestamp(),
		id,
	)
	if err != nil {
		return fmt.Errorf("attach rulebook: %w", err)
	}
	return requireAffected(res, id, "attach rulebook")
}

// SetFamily assigns an entity to a family with the given base and relation.
func (s *Store) SetFamily(ctx context.Context, id, familyID, baseEntityID int64, relation RelationType) error {
	if !relation.Valid() {
		return services.Wrap(services.ErrValidation, "catalog", "set family",
			fmt.Sprintf("unknown relation type %q", relation), nil)
	}
	res, err := s.execWithRetry(
		ctx,
		`UPDATE entities SET family_id = ?, base_entity_id = ?, relation_type = ?, updated_at = ? WHERE id = ?`,
		nullableInt(familyID),
		nullableInt(baseEntityID),
		nullableString(string(relation)),
		s.timestamp(),
		id,
	)
	if err != nil {
		return fmt.Errorf("set family: %w", err)
	}
	return requireAffected(res, id, "set family")
}

// StateChange is a compare-and-swap state write. The write applies only while
// the stored state still equals From.
type StateChange struct {
	From pipeline.State
	To   pipeline.State
	// LeaseExpiresAt is stored when To is a processing state. Every other
	// write clears the lease.
	LeaseExpiresAt time.Time
	// LastError replaces the stored error when set. ClearError removes it.
	LastError  string
	ClearError bool

	MarkParsedText       bool
	MarkTaxonomy         bool
	MarkGeneratedContent bool
}

// Transition applies change to entity id and returns the updated row. A stale
// From yields services.ErrStateConflict; a missing row yields services.ErrNotFound.
func (s *Store) Transition(ctx context.Context, id int64, change StateChange) (*Entity, error) {
	if !change.From.Valid() || !change.To.Valid() {
		return nil, services.Wrap(services.ErrValidation, "catalog", "transition",
			fmt.Sprintf("invalid transition %q -> %q", change.From, change.To), nil)
	}
	now := s.now()
	timestamp := formatTime(now)

	var lease any
	if change.To.IsProcessing() && !change.LeaseExpiresAt.IsZero() {
		lease = formatTime(change.LeaseExpiresAt)
	}

	sets := []string{"state = ?", "lease_expires_at = ?", "last_processed_at = ?", "updated_at = ?"}
	args := []any{change.To, lease, timestamp, timestamp}
	switch {
	case change.LastError != "":
		sets = append(sets, "last_error = ?")
		args = append(args, change.LastError)
	case change.ClearError:
		sets = append(sets, "last_error = NULL")
	}
	if change.MarkParsedText {
		sets = append(sets, "has_parsed_text = 1")
	}
	if change.MarkTaxonomy {
		sets = append(sets, "has_taxonomy = 1")
	}
	if change.MarkGeneratedContent {
		sets = append(sets, "has_generated_content = 1", "content_generated_at = ?")
		args = append(args, timestamp)
	}
	args = append(args, id, change.From)

	res, err := s.execWithRetry(ctx, `UPDATE entities SET `+strings.Join(sets, ", ")+` WHERE id = ? AND state = ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("transition entity %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		current, getErr := s.GetEntity(ctx, id)
		if getErr != nil {
			return nil, getErr
		}
		if current == nil {
			return nil, services.Wrap(services.ErrNotFound, "catalog", "transition", fmt.Sprintf("entity %d", id), nil)
		}
		return nil, services.Wrap(services.ErrStateConflict, "catalog", "transition",
			fmt.Sprintf("entity %d is %s, expected %s", id, current.State, change.From), nil)
	}
	return s.GetEntity(ctx, id)
}

func requireAffected(res sql.Result, id int64, op string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return services.Wrap(services.ErrNotFound, "catalog", op, fmt.Sprintf("entity %d", id), nil)
	}
	return nil
}

// Stats returns a count of entities grouped by state.
func (s *Store) Stats(ctx context.Context) (map[pipeline.State]int, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `SELECT state, COUNT(1) FROM entities GROUP BY state`)
	if err != nil {
		return nil, fmt.Errorf("entity stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[pipeline.State]int)
	for rows.Next() {
		var state pipeline.State
		var count int
		if err := rows.Scan(&state, &count); err != nil {
			return nil, err
		}
		stats[state] = count
	}
	return stats, rows.Err()
}
