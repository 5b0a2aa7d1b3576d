package semindex

import (
	"github.com/kailas-cloud/semindex/internal/db"
	"github.com/kailas-cloud/semindex/internal/domain"
	vo "github.com/kailas-cloud/semindex/internal/domain/search/filter"
	"github.com/kailas-cloud/semindex/internal/domain/search/mode"
	"github.com/kailas-cloud/semindex/internal/location"
	"github.com/kailas-cloud/semindex/internal/notify"
	filteruc "github.com/kailas-cloud/semindex/internal/usecase/filter"
	healthuc "github.com/kailas-cloud/semindex/internal/usecase/health"
	searchuc "github.com/kailas-cloud/semindex/internal/usecase/search"
)

// Session components.
type (
	SearchCoordinator = searchuc.Service
	SearchState       = searchuc.State
	ResultState       = searchuc.ResultState
	FilterState       = filteruc.Service
	Notifications     = notify.Channel
	Notification      = notify.Notification
	Location          = location.URL
	HealthChecker     = healthuc.Service
	HealthReport      = healthuc.Report
)

// Data model.
type (
	Result          = domain.SearchResult
	Source          = domain.Source
	SourceType      = domain.SourceType
	Tag             = domain.Tag
	Embedding       = domain.Embedding
	TagCount        = domain.TagCount
	SourceTypeCount = domain.SourceTypeCount
	HistogramBucket = domain.HistogramBucket
	HistogramKind   = domain.HistogramKind
	DateRange       = vo.DateRange
	Selection       = vo.Selection
	Mode            = mode.Mode
)

// KVStore is the key-value store behind the shared content cache.
type KVStore = db.KVStore

// Search modes.
const (
	ModeChunks = mode.Chunks
	ModeDocs   = mode.Docs
)

// Histogram kinds.
const (
	HistogramCreateDate = domain.HistogramCreateDate
	HistogramModifyDate = domain.HistogramModifyDate
)

// Content placeholders shown instead of a section.
const (
	ContentNotAvailable = domain.ContentNotAvailable
	ContentLoadFailed   = domain.ContentLoadFailed
)

// NewSelection returns a selection holding exactly ids. A nil *Selection selects everything.
func NewSelection(ids ...int) *Selection { return vo.NewSelection(ids...) }
