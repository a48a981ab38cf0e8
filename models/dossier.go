package models

import (
	"database/sql/driver"
	"encoding/json"
	"math"
	"time"

	"github.com/google/uuid"
)

// EntityType classifies an entity extracted from the case material.
type EntityType string

const (
	EntityDate   EntityType = "DATE"
	EntityName   EntityType = "NAME"
	EntityValue  EntityType = "VALUE"
	EntityClause EntityType = "CLAUSE"
)

// Valid reports whether t is a known entity type.
func (t EntityType) Valid() bool {
	switch t {
	case EntityDate, EntityName, EntityValue, EntityClause:
		return true
	}
	return false
}

// ExtractedEntity is a critical fact pulled out of the documents by
// analysis. Produced only by generation, immutable afterwards.
type ExtractedEntity struct {
	Type    EntityType `json:"type"`
	Value   string     `json:"value"`
	Context string     `json:"context"`
}

// LinkStrength grades how well a piece of evidence supports a fact.
type LinkStrength string

const (
	LinkStrong   LinkStrength = "strong"
	LinkModerate LinkStrength = "moderate"
	LinkWeak     LinkStrength = "weak"
)

// Valid reports whether s is a known link strength.
func (s LinkStrength) Valid() bool {
	switch s {
	case LinkStrong, LinkModerate, LinkWeak:
		return true
	}
	return false
}

// StrategicLink connects a narrated fact to an attached piece of evidence.
type StrategicLink struct {
	Fact     string       `json:"fact"`
	Evidence string       `json:"evidence"`
	Strength LinkStrength `json:"strength"`
}

// EvidenceStatus is the collection state of a checklist item.
type EvidenceStatus string

const (
	EvidencePending   EvidenceStatus = "pending"
	EvidenceCollected EvidenceStatus = "collected"
)

// Valid reports whether s is a known evidence status.
func (s EvidenceStatus) Valid() bool {
	return s == EvidencePending || s == EvidenceCollected
}

// EvidenceImportance ranks how critical a suggested item is to the case.
type EvidenceImportance string

const (
	ImportanceHigh   EvidenceImportance = "high"
	ImportanceMedium EvidenceImportance = "medium"
	ImportanceLow    EvidenceImportance = "low"
)

// Valid reports whether i is a known importance level.
func (i EvidenceImportance) Valid() bool {
	switch i {
	case ImportanceHigh, ImportanceMedium, ImportanceLow:
		return true
	}
	return false
}

// EvidenceItem is one entry of the collection checklist. Created by
// generation with status pending; only Status mutates afterwards, and items
// are never removed from a dossier.
type EvidenceItem struct {
	ID          string             `json:"id"`
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Status      EvidenceStatus     `json:"status"`
	Importance  EvidenceImportance `json:"importance"`
}

// Dossier is the full analysis produced by a single generation call.
// The top level is immutable after creation; only the status of individual
// evidence items changes.
type Dossier struct {
	ID                uuid.UUID      `json:"id"`
	Title             string         `json:"title"`
	Summary           string         `json:"summary"`
	LegalAnalysis     string         `json:"legal_analysis"`
	RiskAssessment    string         `json:"risk_assessment"`
	FactsTimeline     StringList     `json:"facts_timeline"`
	ExtractedEntities EntityList     `json:"extracted_entities"`
	StrategicLinks    LinkList       `json:"strategic_links"`
	SuggestedEvidence []EvidenceItem `json:"suggested_evidence"`
	CreatedAt         time.Time      `json:"created_at"`
}

// StringList is a JSONB-backed ordered list of strings.
type StringList []string

// Value implements driver.Valuer for JSONB
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		l = StringList{}
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner for JSONB
func (l *StringList) Scan(value interface{}) error {
	return scanJSONList(value, l)
}

// EntityList is a JSONB-backed list of extracted entities.
type EntityList []ExtractedEntity

// Value implements driver.Valuer for JSONB
func (l EntityList) Value() (driver.Value, error) {
	if l == nil {
		l = EntityList{}
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner for JSONB
func (l *EntityList) Scan(value interface{}) error {
	return scanJSONList(value, l)
}

// LinkList is a JSONB-backed list of strategic links.
type LinkList []StrategicLink

// Value implements driver.Valuer for JSONB
func (l LinkList) Value() (driver.Value, error) {
	if l == nil {
		l = LinkList{}
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner for JSONB
func (l *LinkList) Scan(value interface{}) error {
	return scanJSONList(value, l)
}

// scanJSONList handles the value types pgx may hand back for JSONB columns.
func scanJSONList(value interface{}, dest interface{}) error {
	if value == nil {
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return nil
	}

	if len(bytes) == 0 {
		return nil
	}

	return json.Unmarshal(bytes, dest)
}

// CompletionPercent is the checklist progress: round(100 * collected/total).
// An empty checklist counts as 0.
func CompletionPercent(items []EvidenceItem) int {
	if len(items) == 0 {
		return 0
	}
	collected := 0
	for _, item := range items {
		if item.Status == EvidenceCollected {
			collected++
		}
	}
	return int(math.Round(100 * float64(collected) / float64(len(items))))
}

// ToggleEvidence flips the status of the item with the given id between
// pending and collected, in place. It reports whether an item matched;
// no other item is touched.
func ToggleEvidence(items []EvidenceItem, id string) bool {
	for i := range items {
		if items[i].ID == id {
			if items[i].Status == EvidenceCollected {
				items[i].Status = EvidencePending
			} else {
				items[i].Status = EvidenceCollected
			}
			return true
		}
	}
	return false
}
