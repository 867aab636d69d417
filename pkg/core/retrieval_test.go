package core_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	careermem "github.com/hireflow/careermem-go/pkg/core"
	"github.com/hireflow/careermem-go/pkg/intelligence"
	"github.com/hireflow/careermem-go/pkg/llm/llmtest"
	"github.com/hireflow/careermem-go/pkg/memory"
)

func TestSemanticSearchFallback(t *testing.T) {
	provider := &llmtest.Provider{}
	client, _ := setupClientTest(t, provider, nil)
	ctx := context.Background()

	k8s, err := client.AddMemory(ctx, testUser, skill("Maintains Kubernetes clusters on GKE", 0.8))
	require.NoError(t, err)
	_, err = client.AddMemory(ctx, testUser, memory.Candidate{
		Type: memory.TypePreference, Category: memory.CategoryPersonal, Content: "Prefers remote-first companies",
	})
	require.NoError(t, err)

	provider.Push(llmtest.Reply{Text: fmt.Sprintf(`{"relevant_memories": [{"id": %q}, {"id": "999"}]}`, k8s.Memory.ID)})
	hits, err := client.SemanticSearch(ctx, testUser, "cloud infrastructure")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, k8s.Memory.ID, hits[0].ID)

	provider.Push(llmtest.Reply{Text: `{"ids": "oops"}`})
	hits, err = client.SemanticSearch(ctx, testUser, "cloud infrastructure")
	require.NoError(t, err)
	assert.Empty(t, hits)

	assert.Equal(t, 2, provider.CallCount())
}

func TestSemanticSearchSkipsLLMWhenTextMatches(t *testing.T) {
	provider := llmtest.Always(`{"ids": []}`)
	client, _ := setupClientTest(t, provider, func(c *careermem.Config) {
		c.Memory.SemanticFallbackBelow = 1
	})
	ctx := context.Background()

	_, err := client.AddMemory(ctx, testUser, skill("Maintains Kubernetes clusters on GKE", 0.8))
	require.NoError(t, err)

	hits, err := client.SemanticSearch(ctx, testUser, "kubernetes")
	require.NoError(t, err)
	assert.Len(t, hits, 1)
	assert.Equal(t, 0, provider.CallCount())

	_, err = client.SemanticSearch(ctx, testUser, "")
	assert.ErrorIs(t, err, careermem.ErrValidation)
}

func TestGetRelevant(t *testing.T) {
	client, _ := setupClientTest(t, nil, nil)
	ctx := context.Background()

	contents := []string{
		"Builds gRPC microservices",
		"Profiles memory allocations with pprof",
		"Writes table-driven unit tests",
		"Maintains Kubernetes controllers",
		"Designs event pipelines on Kafka",
		"Tunes PostgreSQL indexes",
		"Ships command line tools",
		"Reviews concurrency bugs in code review",
	}
	for i, content := range contents {
		c := skill(content, 0.5+float64(i)*0.05)
		c.Tags = []string{"go"}
		_, err := client.AddMemory(ctx, testUser, c)
		require.NoError(t, err)
	}
	_, err := client.AddMemory(ctx, testUser, memory.Candidate{
		Type: memory.TypePreference, Category: memory.CategoryPersonal,
		Content: "Likes quiet offices", Importance: memory.ImportanceLow,
	})
	require.NoError(t, err)

	ranked, err := client.GetRelevant(ctx, testUser, intelligence.RelevanceContext{Tags: []string{"go"}}, 5)
	require.NoError(t, err)
	require.Len(t, ranked, 5)

	seen := make(map[string]bool)
	for i, r := range ranked {
		assert.False(t, seen[r.Entry.ID], "duplicate %s", r.Entry.ID)
		seen[r.Entry.ID] = true
		assert.True(t, r.Entry.HasTag("go"))
		assert.Equal(t, 1, r.Entry.Usage.AccessCount)
		if i > 0 {
			assert.GreaterOrEqual(t, ranked[i-1].Score, r.Score)
		}
	}

	store, err := client.GetStore(ctx, testUser)
	require.NoError(t, err)
	touched := 0
	for _, e := range store.Entries {
		if e.Usage.AccessCount > 0 {
			touched++
			assert.True(t, seen[e.ID])
		}
	}
	assert.Equal(t, 5, touched)

	none, err := client.GetRelevant(ctx, "new_user", intelligence.RelevanceContext{Tags: []string{"go"}}, 5)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestBuildPromptContext(t *testing.T) {
	client, _ := setupClientTest(t, nil, nil)
	ctx := context.Background()

	_, err := client.AddMemory(ctx, testUser, skill("Proficient in Go and Kubernetes", 0.9))
	require.NoError(t, err)
	_, err = client.AddMemory(ctx, testUser, memory.Candidate{
		Type: memory.TypeCommunicationStyle, Category: memory.CategoryBehavioral,
		Content: "Prefers short, direct answers", Confidence: memory.Float(0.8),
	})
	require.NoError(t, err)

	text, err := client.BuildPromptContext(ctx, testUser, intelligence.RelevanceContext{Types: []memory.Type{memory.TypeSkill}}, 5)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(text, "What you know about this user:\n"))
	assert.Contains(t, text, "- [skill] Proficient in Go and Kubernetes (confidence 0.90)")
	assert.Contains(t, text, "Communication style: Prefers short, direct answers")
	assert.False(t, strings.HasSuffix(text, "\n"))

	empty, err := client.BuildPromptContext(ctx, "new_user", intelligence.RelevanceContext{}, 5)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
