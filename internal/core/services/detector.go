package services

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ferrous-labs/kbdelta/internal/core/domain"
	"github.com/ferrous-labs/kbdelta/internal/logger"
)

// ChangeDetector turns two document states into a filtered,
// similarity-annotated list of content changes. Detection is a pure
// function of its inputs; the fingerprint cache is advisory and never
// affects correctness when disabled or cold.
type ChangeDetector struct {
	config domain.DeltaConfig

	mu    sync.Mutex
	cache map[string]cachedFingerprint
}

// cachedFingerprint pairs a fingerprint with its storage time for TTL
// eviction.
type cachedFingerprint struct {
	fingerprint domain.ContentFingerprint
	storedAt    time.Time
}

// NewChangeDetector creates a detector with the given policy.
// Invalid configuration errors synchronously.
func NewChangeDetector(config domain.DeltaConfig) (*ChangeDetector, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &ChangeDetector{
		config: config,
		cache:  make(map[string]cachedFingerprint),
	}, nil
}

// DetectChanges compares the current state against the previous one.
// A missing previous state yields zero changes: the caller treats that
// as initial ingest, which is the orchestrator's case to handle.
func (d *ChangeDetector) DetectChanges(current, previous *domain.DocumentState) ([]*domain.ContentChange, error) {
	if current == nil {
		return nil, fmt.Errorf("%w: current state is nil", domain.ErrDetection)
	}
	if previous == nil {
		return nil, nil
	}

	// Fast path: identical whole-document hashes mean no changes.
	if current.ContentHash != "" && current.ContentHash == previous.ContentHash {
		return nil, nil
	}

	// Coarse path: the current state carries no fine-grained
	// fingerprints (a bare file snapshot), so finer comparison is not
	// possible and the whole document is one modification. Running the
	// key passes here would misread every previous unit as deleted.
	if !hasFineFingerprints(current) {
		change := d.documentLevelChange(current, previous)
		if d.config.SimilarityAnalysis {
			d.enhanceSimilarity(change)
		}
		return d.filterByThreshold([]*domain.ContentChange{change}), nil
	}

	var changes []*domain.ContentChange

	if d.config.PageLevelDetection {
		changes = append(changes, d.detectPageChanges(current, previous)...)
	}
	if d.config.SectionLevelDetection {
		changes = append(changes, d.detectSectionChanges(current, previous)...)
	}

	if d.config.SimilarityAnalysis {
		for _, change := range changes {
			d.enhanceSimilarity(change)
		}
	}

	changes = d.filterByThreshold(changes)

	if d.config.DependencyLinking {
		linkDependencies(changes)
	}

	logger.Debug("Detected %d changes for %s", len(changes), current.Path)
	return changes, nil
}

// detectPageChanges classifies every page key present in either state.
// Unchanged pages are skipped. Keys are visited in ascending order so
// detection order is stable.
func (d *ChangeDetector) detectPageChanges(current, previous *domain.DocumentState) []*domain.ContentChange {
	var changes []*domain.ContentChange

	for _, page := range sortedPageKeys(current.Pages, previous.Pages) {
		curr, inCurrent := current.Pages[page]
		prev, inPrevious := previous.Pages[page]

		switch {
		case inCurrent && !inPrevious:
			change := domain.NewContentChange(domain.ChangeAdded, current.Path)
			change.Page = page
			change.NewFingerprint = &curr
			changes = append(changes, change)

		case !inCurrent && inPrevious:
			change := domain.NewContentChange(domain.ChangeDeleted, current.Path)
			change.Page = page
			change.OldFingerprint = &prev
			change.AffectedArtifacts = append([]string(nil), previous.PageArtifacts[page]...)
			changes = append(changes, change)

		case !curr.Matches(prev):
			change := domain.NewContentChange(domain.ChangeModified, current.Path)
			change.Page = page
			change.OldFingerprint = &prev
			change.NewFingerprint = &curr
			change.AffectedArtifacts = append([]string(nil), previous.PageArtifacts[page]...)
			changes = append(changes, change)
		}
	}

	return changes
}

// detectSectionChanges classifies every section key present in either
// state. A section whose content is unchanged but whose page position
// differs is a move.
func (d *ChangeDetector) detectSectionChanges(current, previous *domain.DocumentState) []*domain.ContentChange {
	var changes []*domain.ContentChange

	for _, id := range sortedSectionKeys(current.Sections, previous.Sections) {
		curr, inCurrent := current.Sections[id]
		prev, inPrevious := previous.Sections[id]

		switch {
		case inCurrent && !inPrevious:
			change := domain.NewContentChange(domain.ChangeAdded, current.Path)
			change.SectionID = id
			change.Page = curr.Page
			change.NewFingerprint = &curr
			changes = append(changes, change)

		case !inCurrent && inPrevious:
			change := domain.NewContentChange(domain.ChangeDeleted, current.Path)
			change.SectionID = id
			change.Page = prev.Page
			change.OldFingerprint = &prev
			change.AffectedArtifacts = append([]string(nil), previous.SectionArtifacts[id]...)
			changes = append(changes, change)

		case curr.Matches(prev) && curr.Page != prev.Page:
			change := domain.NewContentChange(domain.ChangeMoved, current.Path)
			change.SectionID = id
			change.Page = curr.Page
			change.OldFingerprint = &prev
			change.NewFingerprint = &curr
			change.AffectedArtifacts = append([]string(nil), previous.SectionArtifacts[id]...)
			changes = append(changes, change)

		case !curr.Matches(prev):
			change := domain.NewContentChange(domain.ChangeModified, current.Path)
			change.SectionID = id
			change.Page = curr.Page
			change.OldFingerprint = &prev
			change.NewFingerprint = &curr
			change.AffectedArtifacts = append([]string(nil), previous.SectionArtifacts[id]...)
			changes = append(changes, change)
		}
	}

	return changes
}

// documentLevelChange builds a single whole-document modification from
// the states' coarse metadata.
func (d *ChangeDetector) documentLevelChange(current, previous *domain.DocumentState) *domain.ContentChange {
	oldFP := domain.ContentFingerprint{ContentHash: previous.ContentHash, Length: int(previous.Size)}
	newFP := domain.ContentFingerprint{ContentHash: current.ContentHash, Length: int(current.Size)}

	change := domain.NewContentChange(domain.ChangeModified, current.Path)
	change.OldFingerprint = &oldFP
	change.NewFingerprint = &newFP
	return change
}

// enhanceSimilarity approximates content similarity from fingerprint
// signals only: the length delta ratio and the word-count delta ratio,
// averaged. Raw content is not assumed to be available at detection
// time. Additions and deletions stay at similarity 0, magnitude 1.
// A move keeps identical content; it is scored at the skip boundary so
// it survives threshold filtering without reading as high impact.
func (d *ChangeDetector) enhanceSimilarity(change *domain.ContentChange) {
	switch change.Kind {
	case domain.ChangeAdded, domain.ChangeDeleted:
		return
	case domain.ChangeMoved:
		change.SetSimilarity(d.config.MaxSimilarityForSkip)
		return
	case domain.ChangeModified, domain.ChangeRenamed:
	}

	if change.OldFingerprint == nil || change.NewFingerprint == nil {
		return
	}

	signals := []float64{
		deltaRatio(change.OldFingerprint.Length, change.NewFingerprint.Length),
	}
	if change.OldFingerprint.WordCount > 0 || change.NewFingerprint.WordCount > 0 {
		signals = append(signals, deltaRatio(change.OldFingerprint.WordCount, change.NewFingerprint.WordCount))
	}

	var sum float64
	for _, s := range signals {
		sum += s
	}
	change.SetSimilarity(sum / float64(len(signals)))
}

// filterByThreshold drops changes whose similarity exceeds the skip
// threshold. A change survives iff similarity <= MaxSimilarityForSkip;
// changes below the significant-update threshold are always kept.
func (d *ChangeDetector) filterByThreshold(changes []*domain.ContentChange) []*domain.ContentChange {
	filtered := changes[:0]
	for _, change := range changes {
		if change.Similarity > d.config.MaxSimilarityForSkip {
			logger.Debug("Skipping cosmetic change %s (similarity %.3f)", change.ID, change.Similarity)
			continue
		}
		filtered = append(filtered, change)
	}
	return filtered
}

// FingerprintPage derives (or recalls from cache) a page fingerprint
// and records it on the state.
func (d *ChangeDetector) FingerprintPage(state *domain.DocumentState, page int, content []byte, metadata map[string]string) domain.ContentFingerprint {
	fp, ok := d.cachedFingerprint(state.Path, content)
	if !ok {
		fp = domain.NewPageFingerprint(page, content, metadata)
		d.storeFingerprint(state.Path, content, fp)
	}
	fp.Page = page
	state.Pages[page] = fp
	return fp
}

// FingerprintSection derives (or recalls from cache) a section
// fingerprint and records it on the state.
func (d *ChangeDetector) FingerprintSection(state *domain.DocumentState, sectionID string, headingLevel int, parent string, content []byte, metadata map[string]string) domain.ContentFingerprint {
	fp, ok := d.cachedFingerprint(state.Path, content)
	if !ok {
		fp = domain.NewSectionFingerprint(sectionID, headingLevel, parent, content, metadata)
		d.storeFingerprint(state.Path, content, fp)
	}
	fp.SectionID = sectionID
	fp.HeadingLevel = headingLevel
	fp.ParentSection = parent
	state.Sections[sectionID] = fp
	return fp
}

// cachedFingerprint looks up a fingerprint by path and content hash,
// honouring the TTL. Misses are never an error.
func (d *ChangeDetector) cachedFingerprint(path string, content []byte) (domain.ContentFingerprint, bool) {
	if !d.config.CacheEnabled {
		return domain.ContentFingerprint{}, false
	}

	key := cacheKey(path, content)

	d.mu.Lock()
	defer d.mu.Unlock()

	entry, ok := d.cache[key]
	if !ok {
		return domain.ContentFingerprint{}, false
	}
	if d.config.CacheTTL > 0 && time.Since(entry.storedAt) > d.config.CacheTTL {
		delete(d.cache, key)
		return domain.ContentFingerprint{}, false
	}
	return entry.fingerprint, true
}

// storeFingerprint populates the cache. Advisory only.
func (d *ChangeDetector) storeFingerprint(path string, content []byte, fp domain.ContentFingerprint) {
	if !d.config.CacheEnabled {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.cache[cacheKey(path, content)] = cachedFingerprint{
		fingerprint: fp,
		storedAt:    time.Now(),
	}
}

// PurgeCache drops all cached fingerprints.
func (d *ChangeDetector) PurgeCache() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cache = make(map[string]cachedFingerprint)
}

// cacheKey derives the cache key from the document path and content
// hash.
func cacheKey(path string, content []byte) string {
	return domain.HashContent([]byte(path + "|" + domain.HashContent(content)))
}

// linkDependencies records ids of related changes on each other for
// ordering during processing.
func linkDependencies(changes []*domain.ContentChange) {
	for i, a := range changes {
		for _, b := range changes[i+1:] {
			if a.RelatedTo(b) {
				a.LinkDependency(b.ID)
				b.LinkDependency(a.ID)
			}
		}
	}
}

// deltaRatio returns min/max of two non-negative counts; two zero
// counts are identical.
func deltaRatio(a, b int) float64 {
	if a == b {
		return 1
	}
	min, max := a, b
	if min > max {
		min, max = max, min
	}
	if max == 0 {
		return 1
	}
	if min < 0 {
		min = 0
	}
	return float64(min) / float64(max)
}

func hasFineFingerprints(state *domain.DocumentState) bool {
	return len(state.Pages) > 0 || len(state.Sections) > 0
}

func sortedPageKeys(a, b map[int]domain.ContentFingerprint) []int {
	seen := make(map[int]struct{}, len(a)+len(b))
	for k := range a {
		seen[k] = struct{}{}
	}
	for k := range b {
		seen[k] = struct{}{}
	}
	keys := make([]int, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

func sortedSectionKeys(a, b map[string]domain.ContentFingerprint) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	for k := range a {
		seen[k] = struct{}{}
	}
	for k := range b {
		seen[k] = struct{}{}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
