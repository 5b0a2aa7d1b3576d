package httpapi

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/kailas-cloud/semindex/internal/domain"
)

type sourceTypeDTO struct {
	ID              int    `json:"id"`
	Name            string `json:"name"`
	SourceHandlerID int    `json:"source_handler_id"`
}

type tagDTO struct {
	ID       int      `json:"id"`
	Name     string   `json:"name"`
	Contains []string `json:"contains,omitempty"`
}

type sourceDTO struct {
	ID            int           `json:"id"`
	SourceType    sourceTypeDTO `json:"source_type"`
	Tags          []tagDTO      `json:"tags,omitempty"`
	URI           string        `json:"uri"`
	ResolvedTo    *string       `json:"resolved_to,omitempty"`
	Title         *string       `json:"title,omitempty"`
	ObjCreated    wireTime      `json:"obj_created"`
	ObjModified   wireTime      `json:"obj_modified"`
	LastChecked   wireTime      `json:"last_checked"`
	LastProcessed wireTime      `json:"last_processed"`
}

type embeddingDTO struct {
	ID       int `json:"id"`
	SourceID int `json:"source_id"`
	ChunkIdx int `json:"chunk_idx"`
}

type searchResultDTO struct {
	Source     sourceDTO    `json:"source"`
	Embedding  embeddingDTO `json:"embedding"`
	Similarity float64      `json:"similarity"`
}

type contentDTO struct {
	Section string `json:"section"`
}

type histogramDTO struct {
	Bucket string `json:"bucket"`
	Count  int    `json:"count"`
}

type tagCountDTO struct {
	Tag   tagDTO `json:"tag"`
	Count int    `json:"count"`
}

type sourceTypeCountDTO struct {
	SourceType sourceTypeDTO `json:"source_type"`
	Count      int           `json:"count"`
}

// wireTime accepts RFC 3339 and the naive ISO timestamps emitted by the search service.
type wireTime time.Time

var wireTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	time.DateOnly,
}

func (t *wireTime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		*t = wireTime{}
		return nil
	}
	for _, layout := range wireTimeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			*t = wireTime(parsed)
			return nil
		}
	}
	return fmt.Errorf("timestamp: unsupported format %q", s)
}

func sourceTypeFromDTO(d sourceTypeDTO) domain.SourceType {
	return domain.SourceType{ID: d.ID, Name: d.Name, SourceHandlerID: d.SourceHandlerID}
}

func tagFromDTO(d tagDTO) domain.Tag {
	return domain.Tag{ID: d.ID, Name: d.Name, Contains: d.Contains}
}

func searchResultFromDTO(d *searchResultDTO) domain.SearchResult {
	src := domain.Source{
		ID:            d.Source.ID,
		SourceType:    sourceTypeFromDTO(d.Source.SourceType),
		URI:           d.Source.URI,
		ObjCreated:    time.Time(d.Source.ObjCreated),
		ObjModified:   time.Time(d.Source.ObjModified),
		LastChecked:   time.Time(d.Source.LastChecked),
		LastProcessed: time.Time(d.Source.LastProcessed),
	}
	if d.Source.ResolvedTo != nil {
		src.ResolvedTo = *d.Source.ResolvedTo
	}
	if d.Source.Title != nil {
		src.Title = *d.Source.Title
	}
	if len(d.Source.Tags) > 0 {
		src.Tags = make([]domain.Tag, len(d.Source.Tags))
		for i, t := range d.Source.Tags {
			src.Tags[i] = tagFromDTO(t)
		}
	}
	return domain.SearchResult{
		Source: src,
		Embedding: domain.Embedding{
			ID:       d.Embedding.ID,
			SourceID: d.Embedding.SourceID,
			ChunkIdx: d.Embedding.ChunkIdx,
		},
		Similarity: d.Similarity,
	}
}
