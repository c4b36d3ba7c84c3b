package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"vecna/internal/gamecontext"
	"vecna/internal/services"
)

const familyColumns = "id, name, base_entity_id, context_json, context_built_at, created_at, updated_at"

// CreateFamily inserts a family without a base entity.
func (s *Store) CreateFamily(ctx context.Context, name string) (*Family, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, services.Wrap(services.ErrValidation, "catalog", "create family", "name is required", nil)
	}
	timestamp := s.timestamp()
	res, err := s.execWithRetry(ctx,
		`INSERT INTO families (name, created_at, updated_at) VALUES (?, ?, ?)`,
		name, timestamp, timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert family: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetFamily(ctx, id)
}

// SetFamilyBase records which entity seeds the family context.
func (s *Store) SetFamilyBase(ctx context.Context, familyID, baseEntityID int64) error {
	res, err := s.execWithRetry(ctx,
		`UPDATE families SET base_entity_id = ?, updated_at = ? WHERE id = ?`,
		nullableInt(baseEntityID), s.timestamp(), familyID,
	)
	if err != nil {
		return fmt.Errorf("set family base: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return services.Wrap(services.ErrNotFound, "catalog", "set family base", fmt.Sprintf("family %d", familyID), nil)
	}
	return nil
}

// GetFamily fetches a family by identifier. A missing row returns (nil, nil).
func (s *Store) GetFamily(ctx context.Context, id int64) (*Family, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+familyColumns+` FROM families WHERE id = ?`, id)
	family, err := scanFamily(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get family: %w", err)
	}
	return family, nil
}

// ListFamilies returns every family ordered by id.
func (s *Store) ListFamilies(ctx context.Context) ([]*Family, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `SELECT `+familyColumns+` FROM families ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list families: %w", err)
	}
	defer rows.Close()

	var families []*Family
	for rows.Next() {
		family, err := scanFamily(rows)
		if err != nil {
			return nil, fmt.Errorf("scan family: %w", err)
		}
		families = append(families, family)
	}
	return families, rows.Err()
}

// SaveFamilyContext overwrites the cached family context.
func (s *Store) SaveFamilyContext(ctx context.Context, familyID int64, fc gamecontext.FamilyContext) error {
	data, err := json.Marshal(fc)
	if err != nil {
		return fmt.Errorf("encode family context: %w", err)
	}
	timestamp := s.timestamp()
	res, err := s.execWithRetry(ctx,
		`UPDATE families SET context_json = ?, context_built_at = ?, updated_at = ? WHERE id = ?`,
		string(data), timestamp, timestamp, familyID,
	)
	if err != nil {
		return fmt.Errorf("save family context: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return services.Wrap(services.ErrNotFound, "catalog", "save family context", fmt.Sprintf("family %d", familyID), nil)
	}
	return nil
}

func scanFamily(scanner rowScanner) (*Family, error) {
	var (
		family       Family
		baseEntityID sql.NullInt64
		contextJSON  sql.NullString
		builtAt      sql.NullString
		createdRaw   string
		updatedRaw   string
	)
	if err := scanner.Scan(&family.ID, &family.Name, &baseEntityID, &contextJSON, &builtAt, &createdRaw, &updatedRaw); err != nil {
		return nil, err
	}
	family.BaseEntityID = baseEntityID.Int64
	family.ContextBuiltAt = parseOptionalTime(builtAt)
	if contextJSON.Valid && contextJSON.String != "" {
		var fc gamecontext.FamilyContext
		if err := json.Unmarshal([]byte(contextJSON.String), &fc); err != nil {
			return nil, fmt.Errorf("decode family context: %w", err)
		}
		family.Context = &fc
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		family.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		family.UpdatedAt = updated
	}
	return &family, nil
}
