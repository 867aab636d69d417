package intelligence

import (
	"context"
	"fmt"
	"strings"

	"github.com/hireflow/careermem-go/pkg/llm"
	"github.com/hireflow/careermem-go/pkg/memory"
)

// maxSelectorCandidates bounds how many memories are listed in one prompt.
const maxSelectorCandidates = 200

// SemanticSelector asks an LLM which stored memories relate to a free-text
// query. It backs the search fallback when word matching finds too little.
type SemanticSelector struct {
	llm llm.Provider
}

// NewSemanticSelector creates a selector over provider.
func NewSemanticSelector(provider llm.Provider) *SemanticSelector {
	return &SemanticSelector{llm: provider}
}

// Select returns the ids the model judged relevant to query, restricted to ids
// present in entries. Response shapes are normalized by ParseIDList; a
// non-array answer is returned as a *ParseError.
func (s *SemanticSelector) Select(ctx context.Context, query string, entries []memory.Entry) ([]string, error) {
	if len(entries) == 0 || strings.TrimSpace(query) == "" {
		return []string{}, nil
	}
	if len(entries) > maxSelectorCandidates {
		entries = entries[:maxSelectorCandidates]
	}

	known := make(map[string]struct{}, len(entries))
	var sb strings.Builder
	for _, e := range entries {
		known[e.ID] = struct{}{}
		fmt.Fprintf(&sb, "%s: [%s/%s] %s\n", e.ID, e.Type, e.Category, e.Content)
	}

	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: `You select which stored facts about a job seeker are relevant to a query.
Return JSON only: {"ids": ["<id>", ...]} listing relevant ids, most relevant first. Return {"ids": []} if none apply.`},
		{Role: llm.RoleUser, Content: fmt.Sprintf("Query: %s\n\nMemories:\n%s", query, sb.String())},
	}

	response, err := s.llm.GenerateWithMessages(ctx, messages,
		llm.WithJSONMode(),
		llm.WithTemperature(0),
		llm.WithMaxTokens(500),
	)
	if err != nil {
		return nil, fmt.Errorf("semantic selection: %w", err)
	}

	ids, err := ParseIDList(response)
	if err != nil {
		return nil, err
	}
	out := ids[:0]
	for _, id := range ids {
		if _, ok := known[id]; ok {
			out = append(out, id)
		}
	}
	return out, nil
}
