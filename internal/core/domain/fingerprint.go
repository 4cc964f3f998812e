package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// ContentFingerprint is an immutable digest of a unit of content
// (a page or a logical section). Two fingerprints with equal content
// and metadata hashes are identical for change-detection purposes.
type ContentFingerprint struct {
	// ContentHash is the SHA-256 digest of the normalised content bytes.
	ContentHash string

	// MetadataHash is the SHA-256 digest of the canonicalised metadata.
	MetadataHash string

	// Length is the normalised content length in bytes.
	Length int

	// WordCount is the number of whitespace-separated words.
	WordCount int

	// LineCount is the number of lines in the content.
	LineCount int

	// Page is the page number this fingerprint covers. Zero when the
	// fingerprint is not page-scoped.
	Page int

	// SectionID identifies the logical section. Empty when the
	// fingerprint is not section-scoped.
	SectionID string

	// HeadingLevel is the structural depth of a section (1 = top level).
	HeadingLevel int

	// ParentSection links to the enclosing section, if any.
	ParentSection string
}

// NewContentFingerprint derives a fingerprint from content and metadata.
// Derivation is deterministic: identical inputs always produce a
// fingerprint that Matches a previously computed one.
func NewContentFingerprint(content []byte, metadata map[string]string) ContentFingerprint {
	normalised := normaliseContent(content)
	text := string(normalised)

	return ContentFingerprint{
		ContentHash:  hashBytes(normalised),
		MetadataHash: hashMetadata(metadata),
		Length:       len(normalised),
		WordCount:    len(strings.Fields(text)),
		LineCount:    countLines(text),
	}
}

// NewPageFingerprint derives a fingerprint scoped to a page number.
func NewPageFingerprint(page int, content []byte, metadata map[string]string) ContentFingerprint {
	fp := NewContentFingerprint(content, metadata)
	fp.Page = page
	return fp
}

// NewSectionFingerprint derives a fingerprint scoped to a section.
func NewSectionFingerprint(sectionID string, headingLevel int, parent string, content []byte, metadata map[string]string) ContentFingerprint {
	fp := NewContentFingerprint(content, metadata)
	fp.SectionID = sectionID
	fp.HeadingLevel = headingLevel
	fp.ParentSection = parent
	return fp
}

// Matches reports whether both content and metadata hashes are equal.
func (f ContentFingerprint) Matches(other ContentFingerprint) bool {
	return f.ContentHash == other.ContentHash && f.MetadataHash == other.MetadataHash
}

// ContentMatches reports whether the content hashes are equal,
// ignoring metadata.
func (f ContentFingerprint) ContentMatches(other ContentFingerprint) bool {
	return f.ContentHash == other.ContentHash
}

// IsZero reports whether the fingerprint has not been derived.
func (f ContentFingerprint) IsZero() bool {
	return f.ContentHash == ""
}

// HashContent returns the hex SHA-256 digest of the normalised
// content bytes. It is the same digest a fingerprint derives.
func HashContent(content []byte) string {
	return hashBytes(normaliseContent(content))
}

// normaliseContent canonicalises line endings so that fingerprints are
// stable across platforms.
func normaliseContent(content []byte) []byte {
	s := strings.ReplaceAll(string(content), "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return []byte(s)
}

// hashBytes returns the hex-encoded SHA-256 digest of b.
func hashBytes(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// hashMetadata digests a canonical key-sorted rendering of metadata.
// Nil and empty maps hash identically.
func hashMetadata(metadata map[string]string) string {
	if len(metadata) == 0 {
		return hashBytes(nil)
	}

	keys := make([]string, 0, len(metadata))
	for k := range metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&sb, "%s=%s\n", k, metadata[k])
	}
	return hashBytes([]byte(sb.String()))
}

// countLines counts newline-delimited lines, treating a trailing
// newline as terminating the final line rather than opening a new one.
func countLines(text string) int {
	if text == "" {
		return 0
	}
	n := strings.Count(text, "\n")
	if !strings.HasSuffix(text, "\n") {
		n++
	}
	return n
}
