package intelligence_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hireflow/careermem-go/pkg/intelligence"
	"github.com/hireflow/careermem-go/pkg/memory"
)

func TestParseIDListShapes(t *testing.T) {
	cases := map[string]string{
		"bare array":        `["a", "b"]`,
		"ids wrapper":       `{"ids": ["a", "b"]}`,
		"results wrapper":   `{"results": [{"id": "a"}, {"id": "b"}]}`,
		"relevant memories": `{"relevant_memories": [{"memory_id": "a"}, "b", "a"]}`,
		"code fence":        "```json\n{\"ids\": [\"a\", \"b\"]}\n```",
	}
	for name, response := range cases {
		t.Run(name, func(t *testing.T) {
			ids, err := intelligence.ParseIDList(response)
			require.NoError(t, err)
			assert.Equal(t, []string{"a", "b"}, ids)
		})
	}
}

func TestParseIDListNumbers(t *testing.T) {
	ids, err := intelligence.ParseIDList(`[1712345678901, 42]`)
	require.NoError(t, err)
	assert.Equal(t, []string{"1712345678901", "42"}, ids)
}

func TestParseIDListEmpty(t *testing.T) {
	ids, err := intelligence.ParseIDList(`{"ids": []}`)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestParseIDListRejectsNonArray(t *testing.T) {
	for _, response := range []string{
		`{"ids": "a"}`,
		`{"answer": ["a"]}`,
		`"a"`,
		`not json`,
		``,
	} {
		_, err := intelligence.ParseIDList(response)
		require.Error(t, err, response)
		assert.ErrorIs(t, err, intelligence.ErrParse)

		var perr *intelligence.ParseError
		assert.True(t, errors.As(err, &perr))
	}
}

func TestParseExtraction(t *testing.T) {
	payload, err := intelligence.ParseExtraction(`{
		"memories": [{"type": "skill", "category": "technical", "content": "Knows Go", "confidence": 0.9, "importance": "high", "tags": ["go"]}],
		"insights": ["Responds well to concrete examples", {"text": "Anxious about interviews"}],
		"profileUpdates": {"careerStage": "mid"}
	}`)
	require.NoError(t, err)
	require.Len(t, payload.Memories, 1)
	assert.Equal(t, "Knows Go", payload.Memories[0].Content)
	assert.Equal(t, []string{"Responds well to concrete examples", "Anxious about interviews"},
		intelligence.InsightTexts(payload.Insights))
	assert.Equal(t, "mid", payload.ProfileUpdates["careerStage"])
}

func TestParseExtractionErrors(t *testing.T) {
	_, err := intelligence.ParseExtraction(`{"memories": []}`)
	assert.ErrorIs(t, err, intelligence.ErrParse)

	_, err = intelligence.ParseExtraction(`{"memories": [`)
	assert.ErrorIs(t, err, intelligence.ErrParse)
	var syntax *json.SyntaxError
	assert.ErrorAs(t, err, &syntax)
}

func TestToCandidates(t *testing.T) {
	raw := []intelligence.RawCandidate{
		{Type: "skill", Category: "technical", Content: " Knows Go ", Confidence: memory.Float(1.4), Importance: "HIGH", Tags: []string{"Go", "go"}},
		{Type: "superpower", Category: "technical", Content: "Flies"},
		{Type: "skill", Category: "cosmic", Content: "Knows Go"},
		{Type: "skill", Category: "technical", Content: "   "},
		{Type: "career-goal", Category: "professional", Content: "Wants a staff role", Importance: "urgent"},
	}
	source := memory.Source{ConversationID: "c1", ExtractionMethod: memory.MethodAIExtracted}

	got := intelligence.ToCandidates(raw, source, intelligence.NewImportanceEvaluator())
	require.Len(t, got, 2)

	assert.Equal(t, "Knows Go", got[0].Content)
	assert.Equal(t, 1.0, *got[0].Confidence)
	assert.Equal(t, memory.ImportanceHigh, got[0].Importance)
	assert.Equal(t, []string{"go"}, got[0].Tags)
	assert.Equal(t, "c1", got[0].Source.ConversationID)

	assert.Equal(t, memory.TypeCareerGoal, got[1].Type)
	assert.Nil(t, got[1].Confidence)
	assert.Equal(t, memory.ImportanceMedium, got[1].Importance)
}

func TestStripCodeFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, intelligence.StripCodeFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, intelligence.StripCodeFences("```{\"a\":1}```"))
	assert.Equal(t, `[1]`, intelligence.StripCodeFences("  [1] "))
}
