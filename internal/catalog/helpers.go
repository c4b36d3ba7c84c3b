package catalog

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"vecna/internal/pipeline"
)

type rowScanner interface {
	Scan(dest ...any) error
}

const entityColumns = "id, name, family_id, base_entity_id, relation_type, publication_year, state, last_error, last_processed_at, lease_expires_at, rulebook_url, has_rulebook, has_enrichment_summary, has_parsed_text, has_taxonomy, has_generated_content, content_generated_at, designers_json, publishers_json, mechanics_json, components_json, created_at, updated_at"

func scanEntity(scanner rowScanner) (*Entity, error) {
	var (
		entity             Entity
		familyID           sql.NullInt64
		baseEntityID       sql.NullInt64
		relationType       sql.NullString
		state              string
		lastError          sql.NullString
		lastProcessedRaw   sql.NullString
		leaseRaw           sql.NullString
		rulebookURL        sql.NullString
		hasRulebook        int
		hasEnrichment      int
		hasParsedText      int
		hasTaxonomy        int
		hasGenerated       int
		contentGeneratedAt sql.NullString
		designers          sql.NullString
		publishers         sql.NullString
		mechanics          sql.NullString
		components         sql.NullString
		createdRaw         string
		updatedRaw         string
	)
	if err := scanner.Scan(
		&entity.ID,
		&entity.Name,
		&familyID,
		&baseEntityID,
		&relationType,
		&entity.PublicationYear,
		&state,
		&lastError,
		&lastProcessedRaw,
		&leaseRaw,
		&rulebookURL,
		&hasRulebook,
		&hasEnrichment,
		&hasParsedText,
		&hasTaxonomy,
		&hasGenerated,
		&contentGeneratedAt,
		&designers,
		&publishers,
		&mechanics,
		&components,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	entity.FamilyID = familyID.Int64
	entity.BaseEntityID = baseEntityID.Int64
	entity.RelationType = RelationType(relationType.String)
	entity.State = pipeline.State(state)
	entity.LastError = lastError.String
	entity.RulebookURL = rulebookURL.String
	entity.HasRulebook = hasRulebook != 0
	entity.HasEnrichmentSummary = hasEnrichment != 0
	entity.HasParsedText = hasParsedText != 0
	entity.HasTaxonomy = hasTaxonomy != 0
	entity.HasGeneratedContent = hasGenerated != 0
	entity.LastProcessedAt = parseOptionalTime(lastProcessedRaw)
	entity.LeaseExpiresAt = parseOptionalTime(leaseRaw)
	entity.ContentGeneratedAt = parseOptionalTime(contentGeneratedAt)
	entity.Designers = decodeList(designers)
	entity.Publishers = decodeList(publishers)
	entity.Mechanics = decodeList(mechanics)
	entity.Components = decodeList(components)
	if created, err := parseTimeString(createdRaw); err == nil {
		entity.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		entity.UpdatedAt = updated
	}
	return &entity, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableInt(value int64) any {
	if value == 0 {
		return nil
	}
	return value
}

// timestampLayout is fixed width so stored timestamps compare lexically.
const timestampLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(value time.Time) string {
	return value.UTC().Format(timestampLayout)
}

func nullableTime(value *time.Time) any {
	if value == nil || value.IsZero() {
		return nil
	}
	return formatTime(*value)
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func parseOptionalTime(value sql.NullString) *time.Time {
	if !value.Valid {
		return nil
	}
	t, err := parseTimeString(value.String)
	if err != nil {
		return nil
	}
	return &t
}

func encodeJSON(value any) (any, error) {
	if value == nil {
		return nil, nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("encode json column: %w", err)
	}
	if string(data) == "null" || string(data) == "[]" {
		return nil, nil
	}
	return string(data), nil
}

func encodeList(values []string) any {
	if len(values) == 0 {
		return nil
	}
	data, err := json.Marshal(values)
	if err != nil {
		return nil
	}
	return string(data)
}

func decodeList(raw sql.NullString) []string {
	if !raw.Valid || raw.String == "" {
		return nil
	}
	var values []string
	if err := json.Unmarshal([]byte(raw.String), &values); err != nil {
		return nil
	}
	return values
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
