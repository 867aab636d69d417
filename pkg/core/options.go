package core

import (
	"time"

	"github.com/hireflow/careermem-go/pkg/logging"
	"github.com/hireflow/careermem-go/pkg/memory"
)

// ClientOption configures a Client built by NewClientWithProviders.
type ClientOption func(*clientOptions)

type clientOptions struct {
	logger logging.Logger
	clock  func() time.Time
}

// WithLogger sets the logger used for background failures, conflicts and
// maintenance reports.
func WithLogger(logger logging.Logger) ClientOption {
	return func(o *clientOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithClock replaces time.Now. Tests use it to pin decay and recency.
func WithClock(clock func() time.Time) ClientOption {
	return func(o *clientOptions) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// AddOption configures AddMemory.
type AddOption func(*AddOptions)

// AddOptions contains options for adding a memory.
type AddOptions struct {
	// ReplaceContent overwrites a reinforced memory's content with the newer
	// phrasing.
	ReplaceContent bool
}

// WithReplaceContent makes a reinforced memory take the candidate's content.
//
// Example:
//
//	result, err := client.AddMemory(ctx, "user_001", candidate,
//	    core.WithReplaceContent(true),
//	)
func WithReplaceContent(replace bool) AddOption {
	return func(o *AddOptions) {
		o.ReplaceContent = replace
	}
}

func applyAddOptions(opts []AddOption) *AddOptions {
	o := &AddOptions{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// SortBy orders GetByType results.
type SortBy string

const (
	// SortByConfidence sorts by confidence, highest first.
	SortByConfidence SortBy = "confidence"

	// SortByRecency sorts by last reinforcement, newest first.
	SortByRecency SortBy = "recency"

	// SortByReinforcement sorts by reinforcement count, highest first.
	SortByReinforcement SortBy = "reinforcement"
)

// GetByTypeOption configures GetByType.
type GetByTypeOption func(*GetByTypeOptions)

// GetByTypeOptions contains options for listing memories of one type.
type GetByTypeOptions struct {
	// MinConfidence drops memories below this confidence.
	MinConfidence float64

	// Importance keeps only memories of this importance. Empty keeps all.
	Importance memory.Importance

	// SortBy is the result order. Default: SortByConfidence
	SortBy SortBy

	// Limit caps the result count. Zero means no cap.
	Limit int
}

// WithMinConfidence drops memories below min.
//
// Example:
//
//	skills, err := client.GetByType(ctx, "user_001", memory.TypeSkill,
//	    core.WithMinConfidence(0.5),
//	    core.WithSortBy(core.SortByReinforcement),
//	)
func WithMinConfidence(min float64) GetByTypeOption {
	return func(o *GetByTypeOptions) {
		o.MinConfidence = min
	}
}

// WithImportance keeps only memories of importance i.
func WithImportance(i memory.Importance) GetByTypeOption {
	return func(o *GetByTypeOptions) {
		o.Importance = i
	}
}

// WithSortBy sets the result order.
func WithSortBy(s SortBy) GetByTypeOption {
	return func(o *GetByTypeOptions) {
		o.SortBy = s
	}
}

// WithTypeLimit caps the number of results.
func WithTypeLimit(limit int) GetByTypeOption {
	return func(o *GetByTypeOptions) {
		o.Limit = limit
	}
}

func applyGetByTypeOptions(opts []GetByTypeOption) *GetByTypeOptions {
	o := &GetByTypeOptions{SortBy: SortByConfidence}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// SearchOption configures Search and SemanticSearch.
type SearchOption func(*SearchOptions)

// SearchOptions contains options for text search.
type SearchOptions struct {
	// MinConfidence drops memories below this confidence.
	MinConfidence float64

	// Limit caps the result count. Zero means no cap.
	Limit int
}

// WithSearchMinConfidence drops search hits below min.
//
// Example:
//
//	hits, err := client.Search(ctx, "user_001", "python",
//	    core.WithSearchMinConfidence(0.4),
//	    core.WithLimit(10),
//	)
func WithSearchMinConfidence(min float64) SearchOption {
	return func(o *SearchOptions) {
		o.MinConfidence = min
	}
}

// WithLimit caps the number of search results.
func WithLimit(limit int) SearchOption {
	return func(o *SearchOptions) {
		o.Limit = limit
	}
}

func applySearchOptions(opts []SearchOption) *SearchOptions {
	o := &SearchOptions{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
