package catalog

import (
	"time"

	"vecna/internal/gamecontext"
	"vecna/internal/pipeline"
)

// RelationType describes how a dependent entity relates to its family base.
type RelationType string

const (
	RelationNone                RelationType = ""
	RelationExpansion           RelationType = "expansion"
	RelationStandaloneExpansion RelationType = "standalone_expansion"
	RelationReimplementation    RelationType = "reimplementation"
	RelationPromo               RelationType = "promo"
)

// Valid reports whether r is a known relation type.
func (r RelationType) Valid() bool {
	switch r {
	case RelationNone, RelationExpansion, RelationStandaloneExpansion, RelationReimplementation, RelationPromo:
		return true
	}
	return false
}

// Entity is one game record tracked through the pipeline.
type Entity struct {
	ID              int64
	Name            string
	FamilyID        int64
	BaseEntityID    int64
	RelationType    RelationType
	PublicationYear int
	State           pipeline.State
	LastError       string
	LastProcessedAt *time.Time
	LeaseExpiresAt  *time.Time
	RulebookURL     string

	HasRulebook          bool
	HasEnrichmentSummary bool
	HasParsedText        bool
	HasTaxonomy          bool
	HasGeneratedContent  bool

	ContentGeneratedAt *time.Time
	Designers          []string
	Publishers         []string
	Mechanics          []string
	Components         []string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Flags returns the data flags the transition engine consults.
func (e *Entity) Flags() pipeline.Flags {
	if e == nil {
		return pipeline.Flags{}
	}
	return pipeline.Flags{
		HasRulebook:          e.HasRulebook,
		HasEnrichmentSummary: e.HasEnrichmentSummary,
		HasParsedText:        e.HasParsedText,
		HasTaxonomy:          e.HasTaxonomy,
		HasGeneratedContent:  e.HasGeneratedContent,
	}
}

// IsDependent reports whether the entity reads its family's cached context
// rather than seeding it.
func (e *Entity) IsDependent() bool {
	return e != nil && e.BaseEntityID != 0 && e.BaseEntityID != e.ID
}

// Status projects the entity for progress aggregation.
func (e *Entity) Status() pipeline.EntityStatus {
	return pipeline.EntityStatus{
		ID:          e.ID,
		Name:        e.Name,
		State:       e.State,
		HasRulebook: e.HasRulebook,
		LastError:   e.LastError,
	}
}

// NewEntity holds the fields accepted when importing an entity.
type NewEntity struct {
	Name            string
	FamilyID        int64
	BaseEntityID    int64
	RelationType    RelationType
	PublicationYear int
	RulebookURL     string
	Designers       []string
	Publishers      []string
	Mechanics       []string
	Components      []string
}

// Family groups a base entity with its dependents.
type Family struct {
	ID             int64
	Name           string
	BaseEntityID   int64
	Context        *gamecontext.FamilyContext
	ContextBuiltAt *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Enrichment is the imported descriptive data for an entity.
type Enrichment struct {
	EntityID  int64
	Summary   string
	Gameplay  string
	Origins   string
	Reception string
	Metadata  []gamecontext.MetadataField
	Awards    []gamecontext.Award
	UpdatedAt time.Time
}

// Data converts the row into context builder input.
func (e *Enrichment) Data() gamecontext.EnrichmentData {
	if e == nil {
		return gamecontext.EnrichmentData{}
	}
	return gamecontext.EnrichmentData{
		Summary:   e.Summary,
		Gameplay:  e.Gameplay,
		Origins:   e.Origins,
		Reception: e.Reception,
		Metadata:  e.Metadata,
		Awards:    e.Awards,
	}
}

// SuggestionKind is a taxonomy dimension.
type SuggestionKind string

const (
	KindTheme            SuggestionKind = "theme"
	KindMechanic         SuggestionKind = "mechanic"
	KindPlayerExperience SuggestionKind = "player_experience"
)

// SuggestionStatus is the review status of a suggestion.
type SuggestionStatus string

const (
	SuggestionPending  SuggestionStatus = "pending"
	SuggestionAccepted SuggestionStatus = "accepted"
	SuggestionRejected SuggestionStatus = "rejected"
)

// Suggestion is a proposed taxonomy association awaiting accept or reject.
type Suggestion struct {
	ID         int64
	EntityID   int64
	Kind       SuggestionKind
	ValueID    int64
	Confidence float64
	Status     SuggestionStatus
	IsPrimary  bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// TaxonomyValue is a named value within a taxonomy kind.
type TaxonomyValue struct {
	ID   int64
	Kind SuggestionKind
	Name string
}

// Association links an entity to an accepted taxonomy value.
type Association struct {
	EntityID  int64
	Kind      SuggestionKind
	ValueID   int64
	ValueName string
	IsPrimary bool
}

// Content is generated output for one content type, keyed by field name.
type Content struct {
	EntityID    int64
	ContentType string
	Fields      map[string]any
	UpdatedAt   time.Time
}
