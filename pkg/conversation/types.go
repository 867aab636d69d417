// Package conversation provides the conversation store of a career coaching
// assistant: ordered message logs with engagement analytics, versioned
// summaries that feed facts back into the memory store, and a reply helper
// that personalizes LLM answers with stored memories.
package conversation

import "time"

// MessageType is the author of a message.
type MessageType string

// Message types.
const (
	MessageUser   MessageType = "user"
	MessageAI     MessageType = "ai"
	MessageSystem MessageType = "system"
)

// Valid reports whether t is a known message type.
func (t MessageType) Valid() bool {
	switch t {
	case MessageUser, MessageAI, MessageSystem:
		return true
	}
	return false
}

// Action is a UI action suggested alongside an AI message.
type Action struct {
	Type    string         `json:"type"`
	Label   string         `json:"label"`
	Payload map[string]any `json:"payload,omitempty"`
}

// ResumeChange is one field changed by a resume edit.
type ResumeChange struct {
	Section string `json:"section"`
	Field   string `json:"field"`
	Before  string `json:"before"`
	After   string `json:"after"`
}

// ResumeEdit records a resume modification made from a conversation. The
// resume itself lives elsewhere; only its id is kept.
type ResumeEdit struct {
	Applied     bool           `json:"applied"`
	ResumeID    string         `json:"resume_id"`
	Changes     []ResumeChange `json:"changes,omitempty"`
	NewAnalysis map[string]any `json:"new_analysis,omitempty"`
}

// MessageMetadata carries generation details of a message.
type MessageMetadata struct {
	Tokens      int         `json:"tokens,omitempty"`
	Model       string      `json:"model,omitempty"`
	Suggestions []string    `json:"suggestions,omitempty"`
	Actions     []Action    `json:"actions,omitempty"`
	ResumeEdit  *ResumeEdit `json:"resume_edit,omitempty"`
}

// Attachment references a file shared in a conversation.
type Attachment struct {
	Name     string `json:"name"`
	URL      string `json:"url"`
	MimeType string `json:"mime_type"`
}

// Edit is a previous version of an edited message.
type Edit struct {
	Content  string    `json:"content"`
	EditedAt time.Time `json:"edited_at"`
}

// Message is one entry of a conversation's log.
type Message struct {
	ID          string          `json:"id"`
	Type        MessageType     `json:"type"`
	Content     string          `json:"content"`
	Metadata    MessageMetadata `json:"metadata"`
	Attachments []Attachment    `json:"attachments,omitempty"`
	EditHistory []Edit          `json:"edit_history,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// MessageInput is a message to append.
type MessageInput struct {
	Type        MessageType     `json:"type"`
	Content     string          `json:"content"`
	Metadata    MessageMetadata `json:"metadata"`
	Attachments []Attachment    `json:"attachments,omitempty"`
}

// Summary is a versioned condensation of a conversation's recent messages.
type Summary struct {
	Content     string    `json:"content"`
	KeyTopics   []string  `json:"key_topics,omitempty"`
	ActionItems []string  `json:"action_items,omitempty"`
	Outcomes    []string  `json:"outcomes,omitempty"`
	Version     int       `json:"version"`
	GeneratedAt time.Time `json:"generated_at"`

	// MessageCount is the conversation length the summary was made at.
	MessageCount int `json:"message_count"`
}

// Context links a conversation to a resume and jobs by opaque id.
type Context struct {
	ResumeID string   `json:"resume_id,omitempty"`
	JobIDs   []string `json:"job_ids,omitempty"`
}

// Settings controls the background work a conversation triggers.
type Settings struct {
	MemoryEnabled bool `json:"memory_enabled"`
	AutoSummarize bool `json:"auto_summarize"`
}

// Analytics are derived from the message log.
type Analytics struct {
	MessageCount    int     `json:"message_count"`
	TokensUsed      int     `json:"tokens_used"`
	EngagementScore float64 `json:"engagement_score"`
}

// Feedback is the user's rating of a conversation.
type Feedback struct {
	Rating  int       `json:"rating"`
	Comment string    `json:"comment,omitempty"`
	RatedAt time.Time `json:"rated_at"`
}

// Conversation is one coaching thread, persisted as a single document.
//
// Analytics.MessageCount always equals len(Messages); every mutator that
// touches the log recomputes the analytics.
type Conversation struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Title        string    `json:"title"`
	Category     string    `json:"category,omitempty"`
	Tags         []string  `json:"tags,omitempty"`
	Messages     []Message `json:"messages"`
	Summary      *Summary  `json:"summary,omitempty"`
	Context      Context   `json:"context"`
	Settings     Settings  `json:"settings"`
	Analytics    Analytics `json:"analytics"`
	Feedback     *Feedback `json:"feedback,omitempty"`
	IsActive     bool      `json:"is_active"`
	IsPinned     bool      `json:"is_pinned"`
	IsStarred    bool      `json:"is_starred"`
	LastActiveAt time.Time `json:"last_active_at"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// SummaryVersion returns the current summary version, 0 if none.
func (c *Conversation) SummaryVersion() int {
	if c.Summary == nil {
		return 0
	}
	return c.Summary.Version
}

// AppendMessage adds m to the log and refreshes analytics and activity.
func (c *Conversation) AppendMessage(m Message, now time.Time) {
	c.Messages = append(c.Messages, m)
	c.LastActiveAt = now
	c.UpdatedAt = now
	c.refreshAnalytics()
}

// EditMessage replaces a message's content, keeping the old text in its edit
// history. It returns false if no message has id.
func (c *Conversation) EditMessage(id, content string, now time.Time) (Message, bool) {
	for i := range c.Messages {
		if c.Messages[i].ID != id {
			continue
		}
		m := &c.Messages[i]
		m.EditHistory = append(m.EditHistory, Edit{Content: m.Content, EditedAt: now})
		m.Content = content
		c.UpdatedAt = now
		return *m, true
	}
	return Message{}, false
}

// SetSummary stores s as the next summary version.
func (c *Conversation) SetSummary(s Summary, now time.Time) Summary {
	s.Version = c.SummaryVersion() + 1
	s.GeneratedAt = now
	c.Summary = &s
	c.UpdatedAt = now
	return s
}

// Rate records user feedback and refreshes the engagement score.
func (c *Conversation) Rate(rating int, comment string, now time.Time) {
	c.Feedback = &Feedback{Rating: rating, Comment: comment, RatedAt: now}
	c.UpdatedAt = now
	c.refreshAnalytics()
}

// Recent returns the last n messages (all of them if n <= 0).
func (c *Conversation) Recent(n int) []Message {
	if n <= 0 || n >= len(c.Messages) {
		return c.Messages
	}
	return c.Messages[len(c.Messages)-n:]
}

func (c *Conversation) refreshAnalytics() {
	tokens := 0
	for _, m := range c.Messages {
		tokens += m.Metadata.Tokens
	}
	var rating *int
	if c.Feedback != nil && c.Feedback.Rating > 0 {
		rating = &c.Feedback.Rating
	}
	c.Analytics = Analytics{
		MessageCount:    len(c.Messages),
		TokensUsed:      tokens,
		EngagementScore: EngagementScore(c.Messages, rating),
	}
}
