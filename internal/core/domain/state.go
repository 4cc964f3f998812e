package domain

import (
	"fmt"
	"os"
	"sort"
	"time"
)

// DocumentState is a snapshot of a document's fingerprinted structure
// at a point in time. A state is never mutated after a refresh; it is
// superseded by a new state, and the tracker retains exactly one
// current state per document path.
type DocumentState struct {
	// Path is the document's location.
	Path string

	// ModifiedAt is the source file's last-modified timestamp.
	ModifiedAt time.Time

	// Size is the source file size in bytes.
	Size int64

	// ContentHash is the SHA-256 digest of the whole document.
	ContentHash string

	// Pages maps page number to that page's fingerprint.
	Pages map[int]ContentFingerprint

	// Sections maps section id to that section's fingerprint.
	Sections map[string]ContentFingerprint

	// PageArtifacts maps page number to the ids of derived artifacts
	// (chunks, vectors, graph nodes) currently representing it.
	PageArtifacts map[int][]string

	// SectionArtifacts maps section id to its derived artifact ids.
	SectionArtifacts map[string][]string

	// ProcessingVersion increments on every successful refresh.
	ProcessingVersion int

	// CapturedAt is when this snapshot was taken.
	CapturedAt time.Time
}

// NewDocumentState creates an empty state for a path.
func NewDocumentState(path string) *DocumentState {
	return &DocumentState{
		Path:             path,
		Pages:            make(map[int]ContentFingerprint),
		Sections:         make(map[string]ContentFingerprint),
		PageArtifacts:    make(map[int][]string),
		SectionArtifacts: make(map[string][]string),
		CapturedAt:       time.Now().UTC(),
	}
}

// NewDocumentStateFromFile builds a state from a source file. It
// computes the whole-file hash and stat metadata; page and section
// fingerprints are populated by the detector, not here.
func NewDocumentStateFromFile(path string) (*DocumentState, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	state := NewDocumentState(path)
	state.ModifiedAt = info.ModTime()
	state.Size = info.Size()
	state.ContentHash = hashBytes(normaliseContent(content))
	return state, nil
}

// ChangedPages returns the sorted symmetric difference of page keys
// whose fingerprints differ or are missing on either side.
func (s *DocumentState) ChangedPages(prev *DocumentState) []int {
	changed := make(map[int]struct{})

	for page, fp := range s.Pages {
		old, ok := prevPages(prev)[page]
		if !ok || !fp.Matches(old) {
			changed[page] = struct{}{}
		}
	}
	for page := range prevPages(prev) {
		if _, ok := s.Pages[page]; !ok {
			changed[page] = struct{}{}
		}
	}

	pages := make([]int, 0, len(changed))
	for page := range changed {
		pages = append(pages, page)
	}
	sort.Ints(pages)
	return pages
}

// ChangedSections returns the sorted symmetric difference of section
// keys whose fingerprints differ or are missing on either side.
func (s *DocumentState) ChangedSections(prev *DocumentState) []string {
	changed := make(map[string]struct{})

	for id, fp := range s.Sections {
		old, ok := prevSections(prev)[id]
		if !ok || !fp.Matches(old) {
			changed[id] = struct{}{}
		}
	}
	for id := range prevSections(prev) {
		if _, ok := s.Sections[id]; !ok {
			changed[id] = struct{}{}
		}
	}

	sections := make([]string, 0, len(changed))
	for id := range changed {
		sections = append(sections, id)
	}
	sort.Strings(sections)
	return sections
}

// HasChanges reports whether anything differs from the previous state:
// the whole-document hash, or any page or section key.
func (s *DocumentState) HasChanges(prev *DocumentState) bool {
	if prev == nil {
		return true
	}
	if s.ContentHash != prev.ContentHash {
		return true
	}
	return len(s.ChangedPages(prev)) > 0 || len(s.ChangedSections(prev)) > 0
}

// Clone returns a deep copy. Used for rollback payloads so the
// snapshot cannot alias live maps.
func (s *DocumentState) Clone() *DocumentState {
	if s == nil {
		return nil
	}

	clone := *s
	clone.Pages = make(map[int]ContentFingerprint, len(s.Pages))
	for k, v := range s.Pages {
		clone.Pages[k] = v
	}
	clone.Sections = make(map[string]ContentFingerprint, len(s.Sections))
	for k, v := range s.Sections {
		clone.Sections[k] = v
	}
	clone.PageArtifacts = make(map[int][]string, len(s.PageArtifacts))
	for k, v := range s.PageArtifacts {
		clone.PageArtifacts[k] = append([]string(nil), v...)
	}
	clone.SectionArtifacts = make(map[string][]string, len(s.SectionArtifacts))
	for k, v := range s.SectionArtifacts {
		clone.SectionArtifacts[k] = append([]string(nil), v...)
	}
	return &clone
}

func prevPages(prev *DocumentState) map[int]ContentFingerprint {
	if prev == nil {
		return nil
	}
	return prev.Pages
}

func prevSections(prev *DocumentState) map[string]ContentFingerprint {
	if prev == nil {
		return nil
	}
	return prev.Sections
}
