package intelligence_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hireflow/careermem-go/pkg/intelligence"
	"github.com/hireflow/careermem-go/pkg/llm"
	"github.com/hireflow/careermem-go/pkg/llm/llmtest"
	"github.com/hireflow/careermem-go/pkg/memory"
)

const extractionResponse = `{
  "memories": [
    {"type": "skill", "category": "technical", "content": "Has 5 years of Go experience", "confidence": 0.9, "importance": "high", "tags": ["go"]},
    {"type": "preference", "category": "personal", "content": "Only considers remote roles", "confidence": 0.85, "tags": ["remote"]},
    {"type": "hobby", "category": "personal", "content": "Plays chess"}
  ],
  "insights": ["Motivated by ownership"],
  "profileUpdates": {"careerStage": "mid"}
}`

func TestFactExtractorExtract(t *testing.T) {
	provider := llmtest.New(extractionResponse)
	extractor := intelligence.NewFactExtractor(provider)

	known := []memory.Entry{entry("k1", memory.TypeSkill, memory.CategoryTechnical, "Knows PostgreSQL", 0.8)}
	ectx := intelligence.ExtractionContext{ConversationID: "conv-1", MessageID: "msg-1", Tags: []string{"Backend"}}

	got, err := extractor.Extract(context.Background(), "I've written Go for 5 years and I only want remote jobs", ectx, known, memory.MethodAIExtracted)
	require.NoError(t, err)

	require.Len(t, got.Candidates, 2)
	first := got.Candidates[0]
	assert.Equal(t, memory.TypeSkill, first.Type)
	assert.Equal(t, memory.ImportanceHigh, first.Importance)
	assert.Equal(t, []string{"backend", "go"}, first.Tags)
	assert.Equal(t, "conv-1", first.Source.ConversationID)
	assert.Equal(t, "msg-1", first.Source.MessageID)
	assert.Equal(t, memory.MethodAIExtracted, first.Source.ExtractionMethod)
	assert.NotEmpty(t, got.Candidates[1].Importance)

	assert.Equal(t, []string{"Motivated by ownership"}, got.Insights)
	assert.Equal(t, "mid", got.ProfileUpdates["careerStage"])

	calls := provider.Calls()
	require.Len(t, calls, 1)
	assert.True(t, calls[0].Options.JSONMode)
	assert.InDelta(t, 0.2, calls[0].Options.Temperature, 1e-9)
	require.Len(t, calls[0].Messages, 2)
	assert.Equal(t, llm.RoleSystem, calls[0].Messages[0].Role)
	assert.Contains(t, calls[0].Messages[1].Content, "Knows PostgreSQL")
}

func TestFactExtractorMalformedResponse(t *testing.T) {
	extractor := intelligence.NewFactExtractor(llmtest.New(`{"memories": [ {"type": "skill"`))

	got, err := extractor.Extract(context.Background(), "I know Go", intelligence.ExtractionContext{}, nil, memory.MethodAIExtracted)
	assert.Nil(t, got)
	assert.ErrorIs(t, err, intelligence.ErrParse)
}

func TestFactExtractorNothingToExtract(t *testing.T) {
	extractor := intelligence.NewFactExtractor(llmtest.New(`{"memories": [], "insights": [], "profileUpdates": {}}`))

	_, err := extractor.Extract(context.Background(), "hello!", intelligence.ExtractionContext{}, nil, memory.MethodAIExtracted)
	assert.ErrorIs(t, err, intelligence.ErrParse)
}

func TestFactExtractorProviderError(t *testing.T) {
	boom := errors.New("rate limited")
	extractor := intelligence.NewFactExtractor(llmtest.Failing(boom))

	_, err := extractor.Extract(context.Background(), "I know Go", intelligence.ExtractionContext{}, nil, memory.MethodAIExtracted)
	assert.ErrorIs(t, err, boom)
}

func TestFactExtractorEmptyText(t *testing.T) {
	provider := llmtest.New()
	extractor := intelligence.NewFactExtractor(provider)

	got, err := extractor.Extract(context.Background(), "   ", intelligence.ExtractionContext{}, nil, memory.MethodAIExtracted)
	require.NoError(t, err)
	assert.Empty(t, got.Candidates)
	assert.Zero(t, provider.CallCount())
}

func TestFactExtractorCustomPrompt(t *testing.T) {
	provider := llmtest.New(extractionResponse)
	extractor := intelligence.NewFactExtractorWithPrompt(provider, "custom instructions")

	_, err := extractor.Extract(context.Background(), "I know Go", intelligence.ExtractionContext{}, nil, memory.MethodExplicit)
	require.NoError(t, err)
	assert.Equal(t, "custom instructions", provider.Calls()[0].Messages[0].Content)
}

func TestSemanticSelector(t *testing.T) {
	entries := []memory.Entry{
		entry("a", memory.TypeSkill, memory.CategoryTechnical, "Knows Go", 0.8),
		entry("b", memory.TypeSkill, memory.CategoryTechnical, "Knows Python", 0.8),
	}

	selector := intelligence.NewSemanticSelector(llmtest.New(`{"results": [{"id": "b"}, {"id": "zzz"}]}`))
	ids, err := selector.Select(context.Background(), "data science", entries)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, ids)

	selector = intelligence.NewSemanticSelector(llmtest.New(`{"ids": "b"}`))
	_, err = selector.Select(context.Background(), "data science", entries)
	assert.ErrorIs(t, err, intelligence.ErrParse)
}

func TestSemanticSelectorSkipsEmptyInput(t *testing.T) {
	provider := llmtest.New()
	selector := intelligence.NewSemanticSelector(provider)

	ids, err := selector.Select(context.Background(), "", []memory.Entry{entry("a", memory.TypeSkill, memory.CategoryTechnical, "Knows Go", 0.8)})
	require.NoError(t, err)
	assert.Empty(t, ids)
	assert.Zero(t, provider.CallCount())
}

func TestNewManagerWithoutProvider(t *testing.T) {
	m := intelligence.NewManager(nil, nil)
	assert.Nil(t, m.Extractor)
	assert.Nil(t, m.Selector)
	assert.NotNil(t, m.Dedup)
	assert.Equal(t, 5, m.Config().NegativeExamples)

	m = intelligence.NewManager(llmtest.New(), nil)
	assert.NotNil(t, m.Extractor)
	assert.NotNil(t, m.Selector)
}
