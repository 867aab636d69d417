package conversation

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hireflow/careermem-go/pkg/core"
	"github.com/hireflow/careermem-go/pkg/intelligence"
	"github.com/hireflow/careermem-go/pkg/logging"
	"github.com/hireflow/careermem-go/pkg/memory"
	"github.com/hireflow/careermem-go/pkg/storage"
)

// Kind is the document kind conversations are stored under.
const Kind = "conversation"

// DefaultTitle is the title of conversations created without one.
const DefaultTitle = "New conversation"

// Service manages conversations on top of a memory client.
//
// Conversations live in the client's DocumentStore, one document per
// conversation, and share its read cache. Every mutation of a conversation is
// serialized per conversation id. Appending a message returns as soon as the
// message is stored; memory extraction, summarization and event publishing
// run on the client's background task runner and never fail the append.
//
// Example:
//
//	svc := conversation.NewService(client)
//	conv, _ := svc.Create(ctx, "user_001", conversation.WithTitle("Interview prep"))
//	_, err := svc.AddMessage(ctx, conv.ID, conversation.MessageInput{
//	    Type:    conversation.MessageUser,
//	    Content: "I have a system design interview at a fintech next week",
//	})
type Service struct {
	client     *core.Client
	repo       *storage.Repository[Conversation]
	summarizer *Summarizer
	publisher  EventPublisher
	logger     logging.Logger
}

// NewService creates a conversation service over client.
//
// The summarizer defaults to one built on the client's LLM provider; without
// a provider, summaries and replies are unavailable and auto-summarization is
// skipped.
func NewService(client *core.Client, opts ...Option) *Service {
	o := &serviceOptions{logger: logging.With(client.Logger(), "component", "conversation")}
	for _, opt := range opts {
		opt(o)
	}
	if o.summarizer == nil && client.LLM() != nil {
		o.summarizer = NewSummarizer(client.LLM())
		o.summarizer.clock = client.Now
	}

	repoOpts := []storage.RepositoryOption{storage.WithRepositoryLogger(o.logger)}
	if cache := client.Cache(); cache != nil {
		repoOpts = append(repoOpts, storage.WithCache(cache, client.Config().Cache.TTL.Std()))
	}

	return &Service{
		client:     client,
		repo:       storage.NewRepository[Conversation](client.DocumentStore(), Kind, repoOpts...),
		summarizer: o.summarizer,
		publisher:  o.publisher,
		logger:     o.logger,
	}
}

// Create starts a conversation for userID. Memory extraction and
// auto-summarization are on unless WithSettings says otherwise.
func (s *Service) Create(ctx context.Context, userID string, opts ...CreateOption) (*Conversation, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, core.NewMemoryError("CreateConversation", fmt.Errorf("%w: user id is required", core.ErrValidation))
	}
	now := s.client.Now()
	conv := Conversation{
		ID:           uuid.NewString(),
		UserID:       userID,
		Title:        DefaultTitle,
		Messages:     []Message{},
		Settings:     Settings{MemoryEnabled: true, AutoSummarize: true},
		IsActive:     true,
		LastActiveAt: now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	for _, opt := range opts {
		opt(&conv)
	}
	if strings.TrimSpace(conv.Title) == "" {
		conv.Title = DefaultTitle
	}
	conv.Tags = memory.NormalizeTags(conv.Tags)
	conv.refreshAnalytics()

	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()
	created, err := s.repo.Mutate(storeCtx, conv.ID, userID, func(cur *Conversation, _ bool) error {
		*cur = conv
		return nil
	})
	if err != nil {
		return nil, core.WrapStorageError("CreateConversation", err)
	}
	return created, nil
}

// Get returns a conversation, or an error wrapping core.ErrNotFound.
func (s *Service) Get(ctx context.Context, id string) (*Conversation, error) {
	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()
	conv, err := s.repo.Load(storeCtx, id)
	if err != nil {
		return nil, core.WrapStorageError("GetConversation", err)
	}
	return conv, nil
}

// List returns a user's conversations, pinned first and then most recently
// active first. Archived conversations are left out unless
// WithIncludeArchived is given.
func (s *Service) List(ctx context.Context, userID string, opts ...ListOption) ([]Conversation, error) {
	o := &ListOptions{}
	for _, opt := range opts {
		opt(o)
	}

	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()
	all, err := s.repo.List(storeCtx, &storage.ListOptions{Owner: userID})
	if err != nil {
		return nil, core.WrapStorageError("ListConversations", err)
	}

	out := make([]Conversation, 0, len(all))
	for _, c := range all {
		if !c.IsActive && !o.IncludeArchived {
			continue
		}
		out = append(out, *c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].IsPinned != out[j].IsPinned {
			return out[i].IsPinned
		}
		if !out[i].LastActiveAt.Equal(out[j].LastActiveAt) {
			return out[i].LastActiveAt.After(out[j].LastActiveAt)
		}
		return out[i].ID < out[j].ID
	})
	return storage.Page(out, &storage.ListOptions{Limit: o.Limit, Offset: o.Offset}), nil
}

// Delete removes a conversation. Memories extracted from it are kept.
func (s *Service) Delete(ctx context.Context, id string) error {
	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()
	return core.WrapStorageError("DeleteConversation", s.repo.Delete(storeCtx, id))
}

// SetPinned pins or unpins a conversation.
func (s *Service) SetPinned(ctx context.Context, id string, pinned bool) (*Conversation, error) {
	return s.mutate(ctx, "SetPinned", id, func(c *Conversation, now time.Time) error {
		c.IsPinned = pinned
		c.UpdatedAt = now
		return nil
	})
}

// SetStarred stars or unstars a conversation.
func (s *Service) SetStarred(ctx context.Context, id string, starred bool) (*Conversation, error) {
	return s.mutate(ctx, "SetStarred", id, func(c *Conversation, now time.Time) error {
		c.IsStarred = starred
		c.UpdatedAt = now
		return nil
	})
}

// Archive hides a conversation from the default listing.
func (s *Service) Archive(ctx context.Context, id string) (*Conversation, error) {
	return s.mutate(ctx, "Archive", id, func(c *Conversation, now time.Time) error {
		c.IsActive = false
		c.UpdatedAt = now
		return nil
	})
}

// Rate records a 1-5 satisfaction rating, which feeds the engagement score.
func (s *Service) Rate(ctx context.Context, id string, rating int, comment string) (*Conversation, error) {
	if rating < 1 || rating > 5 {
		return nil, core.NewMemoryError("RateConversation", fmt.Errorf("%w: rating must be 1-5, got %d", core.ErrValidation, rating))
	}
	return s.mutate(ctx, "RateConversation", id, func(c *Conversation, now time.Time) error {
		c.Rate(rating, comment, now)
		return nil
	})
}

// UpdateContext links the conversation to a resume and jobs.
func (s *Service) UpdateContext(ctx context.Context, id, resumeID string, jobIDs []string) (*Conversation, error) {
	return s.mutate(ctx, "UpdateContext", id, func(c *Conversation, now time.Time) error {
		c.Context = Context{ResumeID: resumeID, JobIDs: jobIDs}
		c.UpdatedAt = now
		return nil
	})
}

// EditMessage changes a message's content and keeps the previous text in its
// edit history.
func (s *Service) EditMessage(ctx context.Context, convID, messageID, content string) (*Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, core.NewMemoryError("EditMessage", fmt.Errorf("%w: content is required", core.ErrValidation))
	}
	var edited Message
	_, err := s.mutate(ctx, "EditMessage", convID, func(c *Conversation, now time.Time) error {
		m, ok := c.EditMessage(messageID, content, now)
		if !ok {
			return fmt.Errorf("%w: message %s", core.ErrNotFound, messageID)
		}
		edited = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &edited, nil
}

// AddMessage appends a message to a conversation.
//
// The append itself is synchronous. Afterwards, as background tasks:
//   - a user message starts memory extraction if the conversation has memory enabled
//   - every SummaryInterval-th message starts summarization when auto-summarize is on
//   - an AI message carrying an applied resume edit is published as a ResumeEditEvent
//
// Parameters:
//   - ctx: Context for cancellation; background tasks outlive it
//   - convID: Target conversation
//   - in: The message; Type must be user, ai or system and Content non-empty
//
// Returns the stored message, an error wrapping core.ErrValidation for bad
// input, or core.ErrNotFound for an unknown conversation.
func (s *Service) AddMessage(ctx context.Context, convID string, in MessageInput) (*Message, error) {
	conv, msg, err := s.appendMessage(ctx, convID, in)
	if err != nil {
		return nil, err
	}
	s.afterAppend(ctx, conv, msg)
	return &msg, nil
}

func (s *Service) appendMessage(ctx context.Context, convID string, in MessageInput) (*Conversation, Message, error) {
	if !in.Type.Valid() {
		return nil, Message{}, core.NewMemoryError("AddMessage", fmt.Errorf("%w: unknown message type %q", core.ErrValidation, in.Type))
	}
	if strings.TrimSpace(in.Content) == "" {
		return nil, Message{}, core.NewMemoryError("AddMessage", fmt.Errorf("%w: content is required", core.ErrValidation))
	}

	var msg Message
	conv, err := s.mutate(ctx, "AddMessage", convID, func(c *Conversation, now time.Time) error {
		msg = Message{
			ID:          uuid.NewString(),
			Type:        in.Type,
			Content:     in.Content,
			Metadata:    in.Metadata,
			Attachments: in.Attachments,
			CreatedAt:   now,
		}
		c.AppendMessage(msg, now)
		return nil
	})
	if err != nil {
		return nil, Message{}, err
	}
	return conv, msg, nil
}

func (s *Service) afterAppend(ctx context.Context, conv *Conversation, msg Message) {
	if msg.Type == MessageUser && conv.Settings.MemoryEnabled {
		s.client.ExtractMemoriesAsync(ctx, conv.UserID, msg.Content, intelligence.ExtractionContext{
			ConversationID: conv.ID,
			MessageID:      msg.ID,
			Category:       conv.Category,
			Tags:           conv.Tags,
		})
	}

	if s.shouldSummarize(conv) {
		convID := conv.ID
		s.client.Tasks().Go(ctx, "summarize_conversation", func(ctx context.Context) error {
			_, err := s.Summarize(ctx, convID)
			return err
		})
	}

	if edit := msg.Metadata.ResumeEdit; msg.Type == MessageAI && edit != nil && edit.Applied && s.publisher != nil {
		event := ResumeEditEvent{
			ConversationID: conv.ID,
			ResumeID:       edit.ResumeID,
			Message:        msg,
			Changes:        edit.Changes,
			NewAnalysis:    edit.NewAnalysis,
		}
		s.client.Tasks().Go(ctx, "publish_resume_edit", func(ctx context.Context) error {
			return s.publisher.PublishResumeEdit(ctx, event)
		})
	}
}

func (s *Service) shouldSummarize(conv *Conversation) bool {
	interval := s.client.Config().Conversation.SummaryInterval
	n := len(conv.Messages)
	return s.summarizer != nil && conv.Settings.AutoSummarize &&
		interval > 0 && n >= interval && n%interval == 0
}

// Summarize condenses the conversation's last SummaryWindow messages.
//
// The flow:
//  1. Sends the window to the LLM under the LLM timeout
//  2. Stores the summary as version previous+1
//  3. Feeds the memories it found into the memory store as summary_extracted,
//     and its insights into the user's analytics (when memory is enabled)
//
// Returns the stored summary. LLM and parse failures wrap
// core.ErrExtractionFailed or core.ErrUpstreamTimeout and leave the
// conversation unchanged. If only the memory feedback fails, the stored
// summary is returned together with that error.
func (s *Service) Summarize(ctx context.Context, convID string) (*Summary, error) {
	if s.summarizer == nil {
		return nil, core.NewMemoryError("Summarize", fmt.Errorf("%w: no llm provider configured", core.ErrInvalidConfig))
	}
	conv, err := s.Get(ctx, convID)
	if err != nil {
		return nil, err
	}
	cfg := s.client.Config()
	window := conv.Recent(cfg.Conversation.SummaryWindow)
	if len(window) == 0 {
		return nil, core.NewMemoryError("Summarize", fmt.Errorf("%w: conversation has no messages", core.ErrValidation))
	}

	llmCtx, cancel := withTimeout(ctx, cfg.Timeouts.LLM.Std())
	result, err := s.summarizer.Summarize(llmCtx, conv.ID, window)
	cancel()
	if err != nil {
		return nil, core.NewMemoryError("Summarize", summaryError(err))
	}

	var saved Summary
	if _, err := s.mutate(ctx, "Summarize", convID, func(c *Conversation, now time.Time) error {
		saved = c.SetSummary(result.Summary, now)
		return nil
	}); err != nil {
		return nil, err
	}
	s.logger.Info("conversation summarized",
		"conversation_id", convID,
		"version", saved.Version,
		"memories", len(result.Candidates),
	)

	if !conv.Settings.MemoryEnabled || (len(result.Candidates) == 0 && len(result.Insights) == 0) {
		return &saved, nil
	}
	for i := range result.Candidates {
		result.Candidates[i].Tags = memory.UnionTags(result.Candidates[i].Tags, conv.Tags)
	}
	if _, err := s.client.ApplyExtraction(ctx, conv.UserID, &intelligence.Extraction{
		Candidates: result.Candidates,
		Insights:   result.Insights,
	}, "summary"); err != nil {
		s.logger.Error("failed to store summary memories", "conversation_id", convID, "error", err)
		return &saved, err
	}
	return &saved, nil
}

func (s *Service) mutate(ctx context.Context, op, id string, fn func(c *Conversation, now time.Time) error) (*Conversation, error) {
	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()
	now := s.client.Now()
	conv, err := s.repo.Mutate(storeCtx, id, "", func(c *Conversation, exists bool) error {
		if !exists {
			return fmt.Errorf("%w: conversation %s", core.ErrNotFound, id)
		}
		return fn(c, now)
	})
	if err != nil {
		return nil, core.WrapStorageError(op, err)
	}
	return conv, nil
}

func (s *Service) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return withTimeout(ctx, s.client.Config().Timeouts.Store.Std())
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// summaryError classifies a failed summarization.
func summaryError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", core.ErrUpstreamTimeout, err)
	}
	return fmt.Errorf("%w: %w", core.ErrExtractionFailed, err)
}
