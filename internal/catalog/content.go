package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// SaveContent upserts the generated fields for one content type.
func (s *Store) SaveContent(ctx context.Context, entityID int64, contentType string, fields map[string]any) error {
	contentType = strings.TrimSpace(contentType)
	if contentType == "" {
		return fmt.Errorf("save content: content type is required")
	}
	if fields == nil {
		fields = map[string]any{}
	}
	data, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("encode content: %w", err)
	}
	if err := s.execWithoutResultRetry(ctx,
		`INSERT INTO content (entity_id, content_type, fields_json, updated_at) VALUES (?, ?, ?, ?)
         ON CONFLICT(entity_id, content_type) DO UPDATE SET
             fields_json = excluded.fields_json, updated_at = excluded.updated_at`,
		entityID, contentType, string(data), s.timestamp(),
	); err != nil {
		return fmt.Errorf("save content: %w", err)
	}
	return nil
}

// GetContent returns the entity's generated content keyed by content type.
func (s *Store) GetContent(ctx context.Context, entityID int64) (map[string]*Content, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT content_type, fields_json, updated_at FROM content WHERE entity_id = ? ORDER BY content_type`, entityID,
	)
	if err != nil {
		return nil, fmt.Errorf("query content: %w", err)
	}
	defer rows.Close()

	content := make(map[string]*Content)
	for rows.Next() {
		var (
			c          = Content{EntityID: entityID}
			raw        string
			updatedRaw string
		)
		if err := rows.Scan(&c.ContentType, &raw, &updatedRaw); err != nil {
			return nil, fmt.Errorf("scan content: %w", err)
		}
		if err := json.Unmarshal([]byte(raw), &c.Fields); err != nil {
			return nil, fmt.Errorf("decode content %s: %w", c.ContentType, err)
		}
		if updated, err := parseTimeString(updatedRaw); err == nil {
			c.UpdatedAt = updated
		}
		content[c.ContentType] = &c
	}
	return content, rows.Err()
}
