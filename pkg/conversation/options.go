package conversation

import "github.com/hireflow/careermem-go/pkg/logging"

// Option configures a Service.
type Option func(*serviceOptions)

type serviceOptions struct {
	publisher  EventPublisher
	summarizer *Summarizer
	logger     logging.Logger
}

// WithEventPublisher sets the hook that receives resume edit events.
func WithEventPublisher(p EventPublisher) Option {
	return func(o *serviceOptions) {
		o.publisher = p
	}
}

// WithSummarizer replaces the summarizer built from the client's LLM.
func WithSummarizer(s *Summarizer) Option {
	return func(o *serviceOptions) {
		o.summarizer = s
	}
}

// WithLogger sets the service logger. Defaults to the client's logger.
func WithLogger(l logging.Logger) Option {
	return func(o *serviceOptions) {
		o.logger = l
	}
}

// CreateOption configures a new conversation.
type CreateOption func(*Conversation)

// WithTitle sets the conversation title.
func WithTitle(title string) CreateOption {
	return func(c *Conversation) {
		c.Title = title
	}
}

// WithCategory sets the conversation category, e.g. "interview_prep".
func WithCategory(category string) CreateOption {
	return func(c *Conversation) {
		c.Category = category
	}
}

// WithTags sets the conversation tags. They are attached to extracted
// memories and used to rank memories for replies.
func WithTags(tags ...string) CreateOption {
	return func(c *Conversation) {
		c.Tags = tags
	}
}

// WithContext links the conversation to a resume and jobs.
func WithContext(resumeID string, jobIDs ...string) CreateOption {
	return func(c *Conversation) {
		c.Context = Context{ResumeID: resumeID, JobIDs: jobIDs}
	}
}

// WithSettings overrides the default settings (memory and auto-summarize on).
func WithSettings(s Settings) CreateOption {
	return func(c *Conversation) {
		c.Settings = s
	}
}

// ListOption configures List.
type ListOption func(*ListOptions)

// ListOptions contains options for List.
type ListOptions struct {
	// IncludeArchived also returns archived conversations.
	IncludeArchived bool

	// Limit caps the number of results (0 = no limit).
	Limit int

	// Offset skips results for pagination.
	Offset int
}

// WithIncludeArchived also lists archived conversations.
func WithIncludeArchived() ListOption {
	return func(o *ListOptions) {
		o.IncludeArchived = true
	}
}

// WithListLimit caps the number of listed conversations.
func WithListLimit(limit int) ListOption {
	return func(o *ListOptions) {
		o.Limit = limit
	}
}

// WithListOffset skips the first offset conversations.
func WithListOffset(offset int) ListOption {
	return func(o *ListOptions) {
		o.Offset = offset
	}
}
