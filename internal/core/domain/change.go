package domain

import (
	"strings"

	"github.com/google/uuid"
)

// ChangeKind represents the classification of a detected difference.
type ChangeKind int

const (
	// ChangeAdded indicates content present only in the current state.
	ChangeAdded ChangeKind = iota

	// ChangeModified indicates content present in both states with
	// differing fingerprints.
	ChangeModified

	// ChangeDeleted indicates content present only in the previous state.
	ChangeDeleted

	// ChangeMoved indicates a section whose content is unchanged but
	// whose page position differs.
	ChangeMoved

	// ChangeRenamed indicates a document path rename supplied by the
	// caller. Processed as a modification.
	ChangeRenamed
)

// String returns the kind's display name.
func (k ChangeKind) String() string {
	switch k {
	case ChangeAdded:
		return "added"
	case ChangeModified:
		return "modified"
	case ChangeDeleted:
		return "deleted"
	case ChangeMoved:
		return "moved"
	case ChangeRenamed:
		return "renamed"
	default:
		return "unknown"
	}
}

// ContentChange records one detected difference between two document
// states. Created by the detector, enriched with similarity metrics,
// optionally filtered by threshold policy, and consumed exactly once
// by the orchestrator during a session.
type ContentChange struct {
	// ID is the unique identifier for the change.
	ID string

	// Kind classifies the change.
	Kind ChangeKind

	// Path is the document the change belongs to.
	Path string

	// Page is the affected page number. Zero when not page-scoped.
	Page int

	// SectionID is the affected section. Empty when not section-scoped.
	SectionID string

	// OldFingerprint is the previous fingerprint, nil for additions.
	OldFingerprint *ContentFingerprint

	// NewFingerprint is the current fingerprint, nil for deletions.
	NewFingerprint *ContentFingerprint

	// Similarity is the estimated content similarity in [0,1].
	// 0 for additions and deletions.
	Similarity float64

	// Magnitude is 1 - Similarity: how much the content changed.
	Magnitude float64

	// AffectedArtifacts lists the downstream artifact ids (chunks,
	// vectors, graph nodes) the change invalidates.
	AffectedArtifacts []string

	// DependsOn lists ids of related changes in the same batch that
	// should be ordered with this one.
	DependsOn []string
}

// NewContentChange creates a change with a fresh id. Additions and
// deletions start at similarity 0 and magnitude 1.
func NewContentChange(kind ChangeKind, path string) *ContentChange {
	return &ContentChange{
		ID:        uuid.New().String(),
		Kind:      kind,
		Path:      path,
		Magnitude: 1,
	}
}

// SetSimilarity records a similarity score, clamped into [0,1], and
// derives the magnitude. Magnitude is always 1 - similarity so it
// decreases monotonically as similarity rises.
func (c *ContentChange) SetSimilarity(similarity float64) {
	if similarity < 0 {
		similarity = 0
	}
	if similarity > 1 {
		similarity = 1
	}
	c.Similarity = similarity
	c.Magnitude = 1 - similarity
}

// HighImpact reports whether the change magnitude exceeds the
// threshold the orchestrator uses for full-processing escalation.
func (c *ContentChange) HighImpact() bool {
	return c.Magnitude > 0.7
}

// RelatedTo reports whether two changes should be ordered together:
// they share a page, sit on adjacent pages, or one section id is a
// prefix or substring of the other.
func (c *ContentChange) RelatedTo(other *ContentChange) bool {
	if c.Page > 0 && other.Page > 0 {
		diff := c.Page - other.Page
		if diff >= -1 && diff <= 1 {
			return true
		}
	}
	if c.SectionID != "" && other.SectionID != "" {
		if strings.Contains(c.SectionID, other.SectionID) ||
			strings.Contains(other.SectionID, c.SectionID) {
			return true
		}
	}
	return false
}

// LinkDependency records a related change id for ordering. Duplicate
// and self links are ignored.
func (c *ContentChange) LinkDependency(id string) {
	if id == "" || id == c.ID {
		return
	}
	for _, existing := range c.DependsOn {
		if existing == id {
			return
		}
	}
	c.DependsOn = append(c.DependsOn, id)
}
