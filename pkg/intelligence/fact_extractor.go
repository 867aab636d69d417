package intelligence

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hireflow/careermem-go/pkg/llm"
	"github.com/hireflow/careermem-go/pkg/memory"
)

// ExtractionContext describes where a message came from.
type ExtractionContext struct {
	ConversationID string   `json:"conversation_id,omitempty"`
	MessageID      string   `json:"message_id,omitempty"`
	Page           string   `json:"page,omitempty"`
	Category       string   `json:"category,omitempty"`
	Tags           []string `json:"tags,omitempty"`
}

// Extraction is the typed outcome of one extraction call.
type Extraction struct {
	Candidates     []memory.Candidate
	Insights       []string
	ProfileUpdates map[string]any
}

// FactExtractor turns a user message into candidate memories using an LLM.
//
// Existing memories are shown to the model as negative examples so it does
// not re-extract facts that are already known.
//
// Example usage:
//
//	extractor := NewFactExtractor(llmProvider)
//	extraction, err := extractor.Extract(ctx, "I have 5 years of Go experience", ectx, known)
//	// extraction.Candidates holds validated memory candidates
type FactExtractor struct {
	// llm is the LLM provider for fact extraction.
	llm llm.Provider

	// evaluator assigns importance to candidates that omit it.
	evaluator *ImportanceEvaluator

	// customPrompt replaces the default system prompt when set.
	customPrompt string

	// clock returns the current time for the prompt date.
	clock func() time.Time
}

// NewFactExtractor creates a new fact extractor.
//
// Parameters:
//   - provider: LLM provider for fact extraction (required)
//
// Returns a new FactExtractor with the default prompt.
func NewFactExtractor(provider llm.Provider) *FactExtractor {
	return &FactExtractor{
		llm:       provider,
		evaluator: NewImportanceEvaluator(),
		clock:     time.Now,
	}
}

// NewFactExtractorWithPrompt creates a new fact extractor with a custom system prompt.
func NewFactExtractorWithPrompt(provider llm.Provider, customPrompt string) *FactExtractor {
	e := NewFactExtractor(provider)
	e.customPrompt = customPrompt
	return e
}

// Extract asks the LLM for memories in text.
//
// The process:
//  1. Builds a prompt listing known memories as negative examples
//  2. Calls the LLM in JSON mode at low temperature
//  3. Strictly parses {memories, insights, profileUpdates}
//  4. Drops candidates with unknown type or category or empty content
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - text: The user message or summary to analyze
//   - ectx: Where the text came from
//   - known: Existing memories to exclude (the caller picks the top few)
//   - method: Extraction method recorded on each candidate
//
// Returns the extraction, or an error when the call or parse fails. Callers on
// best-effort paths log the error and continue with an empty result.
func (e *FactExtractor) Extract(ctx context.Context, text string, ectx ExtractionContext, known []memory.Entry, method memory.ExtractionMethod) (*Extraction, error) {
	if strings.TrimSpace(text) == "" {
		return &Extraction{Candidates: []memory.Candidate{}, Insights: []string{}, ProfileUpdates: map[string]any{}}, nil
	}

	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: e.systemPrompt()},
		{Role: llm.RoleUser, Content: e.userPrompt(text, ectx, known)},
	}

	response, err := e.llm.GenerateWithMessages(ctx, messages,
		llm.WithJSONMode(),
		llm.WithTemperature(0.2),
		llm.WithMaxTokens(1500),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to extract memories: %w", err)
	}

	payload, err := ParseExtraction(response)
	if err != nil {
		return nil, fmt.Errorf("failed to parse extraction response: %w", err)
	}

	source := memory.Source{
		ConversationID:   ectx.ConversationID,
		MessageID:        ectx.MessageID,
		ExtractionMethod: method,
		Timestamp:        e.clock(),
	}
	candidates := ToCandidates(payload.Memories, source, e.evaluator)
	for i := range candidates {
		candidates[i].Tags = memory.UnionTags(candidates[i].Tags, ectx.Tags)
	}

	updates := payload.ProfileUpdates
	if updates == nil {
		updates = map[string]any{}
	}
	return &Extraction{
		Candidates:     candidates,
		Insights:       InsightTexts(payload.Insights),
		ProfileUpdates: updates,
	}, nil
}

func (e *FactExtractor) userPrompt(text string, ectx ExtractionContext, known []memory.Entry) string {
	var sb strings.Builder
	if len(known) > 0 {
		sb.WriteString("Already known about this user (do NOT extract these again):\n")
		for _, m := range known {
			fmt.Fprintf(&sb, "- [%s/%s] %s\n", m.Type, m.Category, m.Content)
		}
		sb.WriteString("\n")
	}
	if ectx.Page != "" || ectx.Category != "" || len(ectx.Tags) > 0 {
		sb.WriteString("Context:")
		if ectx.Page != "" {
			fmt.Fprintf(&sb, " page=%s", ectx.Page)
		}
		if ectx.Category != "" {
			fmt.Fprintf(&sb, " category=%s", ectx.Category)
		}
		if len(ectx.Tags) > 0 {
			fmt.Fprintf(&sb, " tags=%s", strings.Join(ectx.Tags, ","))
		}
		sb.WriteString("\n\n")
	}
	sb.WriteString("Message:\n")
	sb.WriteString(text)
	return sb.String()
}

func (e *FactExtractor) systemPrompt() string {
	if e.customPrompt != "" {
		return e.customPrompt
	}

	types := make([]string, len(memory.AllTypes))
	for i, t := range memory.AllTypes {
		types[i] = string(t)
	}
	categories := make([]string, len(memory.AllCategories))
	for i, c := range memory.AllCategories {
		categories[i] = string(c)
	}

	today := e.clock().Format("2006-01-02")
	return fmt.Sprintf(`You are a career coach's note taker. Extract durable facts about the job seeker from their message.

Memory types: %s
Categories: %s
Importance: low, medium, high, critical

Rules:
1. Only extract facts about the user (skills, goals, preferences, experience, constraints, style).
2. Each memory is one self-contained statement, phrased in the third person without the user's name.
3. Confidence is 0.0-1.0: explicit statements 0.8-1.0, inferences 0.5-0.7.
4. Mark deal breakers and hard constraints (visa, location, salary floor) as high or critical.
5. Tags are short lowercase keywords (technologies, industries, roles).
6. Skip greetings, questions to the assistant and anything already known.
7. Insights are short observations useful for coaching that are not facts.

Today: %s

Return JSON only:
{"memories": [{"type": "...", "category": "...", "content": "...", "confidence": 0.0, "importance": "...", "tags": ["..."]}],
 "insights": ["..."],
 "profileUpdates": {"careerStage": "...", "industries": ["..."]}}

If nothing is worth remembering return {"memories": [], "insights": [], "profileUpdates": {}}.`,
		strings.Join(types, ", "), strings.Join(categories, ", "), today)
}
