package domain

import "time"

// SourceType is a kind of indexed source (file, jira issue, ...).
type SourceType struct {
	ID              int
	Name            string
	SourceHandlerID int
}

// Tag is a user-facing label attached to sources.
type Tag struct {
	ID       int
	Name     string
	Contains []string
}

// Source is an indexed object the search service can point at.
type Source struct {
	ID            int
	SourceType    SourceType
	Tags          []Tag
	URI           string
	ResolvedTo    string
	Title         string
	ObjCreated    time.Time
	ObjModified   time.Time
	LastChecked   time.Time
	LastProcessed time.Time
}

// DisplayName returns the title, falling back to the resolved location and the URI.
func (s *Source) DisplayName() string {
	switch {
	case s.Title != "":
		return s.Title
	case s.ResolvedTo != "":
		return s.ResolvedTo
	default:
		return s.URI
	}
}

// Embedding references a chunk of a source's content.
type Embedding struct {
	ID       int
	SourceID int
	ChunkIdx int
}

// SearchResult is a single ranked match. Immutable once received.
type SearchResult struct {
	Source     Source
	Embedding  Embedding
	Similarity float64
}

// ID returns the identity used for expand state and content loads.
func (r *SearchResult) ID() int { return r.Embedding.ID }

// TagCount is a tag facet entry.
type TagCount struct {
	Tag   Tag
	Count int
}

// SourceTypeCount is a source type facet entry.
type SourceTypeCount struct {
	SourceType SourceType
	Count      int
}

// Content placeholders stored in place of a section.
const (
	ContentNotAvailable = "<N/A>"
	ContentLoadFailed   = "<Error: Could not load content>"
)
