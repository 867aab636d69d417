package conversation

import (
	"context"
	"fmt"
	"strings"

	"github.com/hireflow/careermem-go/pkg/core"
	"github.com/hireflow/careermem-go/pkg/intelligence"
	"github.com/hireflow/careermem-go/pkg/llm"
)

// replyMemoryLimit is how many memories a reply's system prompt lists.
const replyMemoryLimit = 10

// Reply appends text as a user message, asks the LLM for a personalized
// answer and appends that answer as an AI message.
//
// The system prompt carries the memories most relevant to the conversation's
// tags and the latest summary; the last HistoryWindow messages follow as chat
// history. A memory lookup failure only drops the personalization. The user
// message stays stored when the LLM call fails.
//
// Example:
//
//	answer, err := svc.Reply(ctx, conv.ID, "How should I prepare for the system design round?")
//	fmt.Println(answer.Content)
func (s *Service) Reply(ctx context.Context, convID, text string) (*Message, error) {
	provider := s.client.LLM()
	if provider == nil {
		return nil, core.NewMemoryError("Reply", fmt.Errorf("%w: no llm provider configured", core.ErrInvalidConfig))
	}

	conv, userMsg, err := s.appendMessage(ctx, convID, MessageInput{Type: MessageUser, Content: text})
	if err != nil {
		return nil, err
	}
	s.afterAppend(ctx, conv, userMsg)

	cfg := s.client.Config()
	messages := []llm.Message{{Role: llm.RoleSystem, Content: s.systemPrompt(ctx, conv)}}
	for _, m := range conv.Recent(cfg.Conversation.HistoryWindow) {
		messages = append(messages, llm.Message{Role: chatRole(m.Type), Content: m.Content})
	}

	llmCtx, cancel := withTimeout(ctx, cfg.Timeouts.LLM.Std())
	answer, err := provider.GenerateWithMessages(llmCtx, messages, llm.WithTemperature(0.7))
	cancel()
	if err != nil {
		s.logger.Warn("reply generation failed", "conversation_id", convID, "error", err)
		return nil, core.WrapLLMError("Reply", err)
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return nil, core.NewMemoryError("Reply", fmt.Errorf("%w: empty reply", core.ErrLLMOperation))
	}

	return s.AddMessage(ctx, convID, MessageInput{
		Type:    MessageAI,
		Content: answer,
		Metadata: MessageMetadata{
			Tokens: EstimateTokens(answer),
			Model:  cfg.LLM.Model,
		},
	})
}

func (s *Service) systemPrompt(ctx context.Context, conv *Conversation) string {
	var sb strings.Builder
	sb.WriteString(ReplyPrompt)

	if conv.Settings.MemoryEnabled {
		memories, err := s.client.BuildPromptContext(ctx, conv.UserID, intelligence.RelevanceContext{Tags: conv.Tags}, replyMemoryLimit)
		if err != nil {
			s.logger.Warn("memory context unavailable", "conversation_id", conv.ID, "error", err)
		} else if memories != "" {
			sb.WriteString("\n\n")
			sb.WriteString(memories)
		}
	}
	if conv.Summary != nil && conv.Summary.Content != "" {
		sb.WriteString("\n\nEarlier in this conversation: ")
		sb.WriteString(conv.Summary.Content)
	}
	return sb.String()
}

func chatRole(t MessageType) string {
	switch t {
	case MessageUser:
		return llm.RoleUser
	case MessageAI:
		return llm.RoleAssistant
	default:
		return llm.RoleSystem
	}
}

// EstimateTokens approximates the token count of text at four characters
// per token.
func EstimateTokens(text string) int {
	n := len([]rune(text))
	if n == 0 {
		return 0
	}
	return (n + 3) / 4
}
