package conversation

import "context"

// ResumeEditEvent is published when an AI message applied an edit to a
// resume.
type ResumeEditEvent struct {
	ConversationID string         `json:"conversation_id"`
	ResumeID       string         `json:"resume_id"`
	Message        Message        `json:"message"`
	Changes        []ResumeChange `json:"changes"`
	NewAnalysis    map[string]any `json:"new_analysis,omitempty"`
}

// EventPublisher receives conversation events. Publish runs as a background
// task; an error is logged and does not affect the message append.
type EventPublisher interface {
	PublishResumeEdit(ctx context.Context, event ResumeEditEvent) error
}

// PublisherFunc adapts a function to EventPublisher.
type PublisherFunc func(ctx context.Context, event ResumeEditEvent) error

// PublishResumeEdit calls f.
func (f PublisherFunc) PublishResumeEdit(ctx context.Context, event ResumeEditEvent) error {
	return f(ctx, event)
}
