package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kaptinlin/jsonrepair"

	"github.com/hireflow/careermem-go/pkg/intelligence"
	"github.com/hireflow/careermem-go/pkg/llm"
	"github.com/hireflow/careermem-go/pkg/memory"
)

// SummaryPayload is the JSON object the summary prompt asks for.
type SummaryPayload struct {
	Summary     string                      `json:"summary"`
	KeyTopics   []string                    `json:"keyTopics"`
	ActionItems []string                    `json:"actionItems"`
	Outcomes    []string                    `json:"outcomes"`
	Memories    []intelligence.RawCandidate `json:"memories"`
	Insights    []any                       `json:"insights"`
}

// SummaryResult is a parsed summary with its memories already validated.
type SummaryResult struct {
	Summary    Summary
	Candidates []memory.Candidate
	Insights   []string
}

// Summarizer condenses recent messages into a summary and the facts about
// the user they reveal.
//
// Example usage:
//
//	summarizer := NewSummarizer(llmProvider)
//	result, err := summarizer.Summarize(ctx, conv.ID, conv.Recent(20))
type Summarizer struct {
	// llm is the LLM provider for summarization.
	llm llm.Provider

	// evaluator assigns importance to memories that omit it.
	evaluator *intelligence.ImportanceEvaluator

	// clock stamps the memory source.
	clock func() time.Time
}

// NewSummarizer creates a summarizer over provider.
func NewSummarizer(provider llm.Provider) *Summarizer {
	return &Summarizer{
		llm:       provider,
		evaluator: intelligence.NewImportanceEvaluator(),
		clock:     time.Now,
	}
}

// Summarize asks the LLM to summarize messages.
//
// The response is parsed tolerantly: JSON broken by truncation or trailing
// commas is repaired before decoding. Memories with an unknown type or
// category are dropped; the rest are tagged summary_extracted with
// conversationID as their source.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - conversationID: Recorded on each memory's source
//   - messages: The window to summarize, oldest first
//
// Returns the result, or an error when the call fails or the response has no
// usable summary. The summary version is left for the store to assign.
func (s *Summarizer) Summarize(ctx context.Context, conversationID string, messages []Message) (*SummaryResult, error) {
	if len(messages) == 0 {
		return nil, errors.New("no messages to summarize")
	}

	types := make([]string, len(memory.AllTypes))
	for i, t := range memory.AllTypes {
		types[i] = string(t)
	}
	categories := make([]string, len(memory.AllCategories))
	for i, c := range memory.AllCategories {
		categories[i] = string(c)
	}

	prompt := []llm.Message{
		{Role: llm.RoleSystem, Content: fmt.Sprintf(SummaryPrompt, strings.Join(types, ", "), strings.Join(categories, ", "))},
		{Role: llm.RoleUser, Content: "Conversation:\n" + buildTranscript(messages)},
	}

	response, err := s.llm.GenerateWithMessages(ctx, prompt,
		llm.WithJSONMode(),
		llm.WithTemperature(0.3),
		llm.WithMaxTokens(1200),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize conversation: %w", err)
	}

	payload, err := ParseSummary(response)
	if err != nil {
		return nil, fmt.Errorf("failed to parse summary response: %w", err)
	}

	source := memory.Source{
		ConversationID:   conversationID,
		ExtractionMethod: memory.MethodSummaryExtracted,
		Timestamp:        s.clock(),
	}
	return &SummaryResult{
		Summary: Summary{
			Content:      payload.Summary,
			KeyTopics:    trimAll(payload.KeyTopics),
			ActionItems:  trimAll(payload.ActionItems),
			Outcomes:     trimAll(payload.Outcomes),
			MessageCount: len(messages),
		},
		Candidates: intelligence.ToCandidates(payload.Memories, source, s.evaluator),
		Insights:   intelligence.InsightTexts(payload.Insights),
	}, nil
}

// ParseSummary decodes a summary response, repairing malformed JSON first
// when plain decoding fails with a syntax error. A response without summary
// text yields an *intelligence.ParseError.
func ParseSummary(response string) (*SummaryPayload, error) {
	body := intelligence.StripCodeFences(response)
	if body == "" {
		return nil, &intelligence.ParseError{Reason: "empty response"}
	}

	var payload SummaryPayload
	err := json.Unmarshal([]byte(body), &payload)
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		fixed, repairErr := jsonrepair.JSONRepair(body)
		if repairErr != nil {
			return nil, &intelligence.ParseError{Reason: "unrepairable json", Err: repairErr}
		}
		payload = SummaryPayload{}
		err = json.Unmarshal([]byte(fixed), &payload)
	}
	if err != nil {
		return nil, &intelligence.ParseError{Reason: "invalid json", Err: err}
	}

	payload.Summary = strings.TrimSpace(payload.Summary)
	if payload.Summary == "" {
		return nil, &intelligence.ParseError{Reason: "missing summary"}
	}
	return &payload, nil
}

func trimAll(items []string) []string {
	out := make([]string, 0, len(items))
	for _, s := range items {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
