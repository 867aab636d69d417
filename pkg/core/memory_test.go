package core_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	careermem "github.com/hireflow/careermem-go/pkg/core"
	"github.com/hireflow/careermem-go/pkg/llm"
	"github.com/hireflow/careermem-go/pkg/memory"
	"github.com/hireflow/careermem-go/pkg/storage"
	"github.com/hireflow/careermem-go/pkg/storage/memstore"
)

const testUser = "user_001"

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// setupClientTest builds a client over an in-memory store with a pinned
// clock. configure may adjust the default config.
func setupClientTest(t *testing.T, provider llm.Provider, configure func(*careermem.Config)) (*careermem.Client, *testClock) {
	t.Helper()
	return setupClientWithStore(t, memstore.New(), provider, configure)
}

func setupClientWithStore(t *testing.T, store storage.DocumentStore, provider llm.Provider, configure func(*careermem.Config)) (*careermem.Client, *testClock) {
	t.Helper()
	cfg := careermem.DefaultConfig()
	if configure != nil {
		configure(cfg)
	}
	clock := &testClock{now: time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)}

	client, err := careermem.NewClientWithProviders(cfg, store, provider, careermem.WithClock(clock.Now))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client, clock
}

func skill(content string, confidence float64) memory.Candidate {
	return memory.Candidate{
		Type:       memory.TypeSkill,
		Category:   memory.CategoryTechnical,
		Content:    content,
		Confidence: memory.Float(confidence),
		Importance: memory.ImportanceMedium,
	}
}

func TestAddMemoryReinforcesNearDuplicate(t *testing.T) {
	client, _ := setupClientTest(t, nil, nil)
	ctx := context.Background()

	first, err := client.AddMemory(ctx, testUser, skill("Proficient in Python programming and data analysis", 0.8))
	require.NoError(t, err)
	assert.False(t, first.Reinforced)

	second, err := client.AddMemory(ctx, testUser, skill("Proficient in Python programming and data analysis work", 0.7))
	require.NoError(t, err)
	assert.True(t, second.Reinforced)
	assert.Equal(t, first.Memory.ID, second.Memory.ID)

	store, err := client.GetStore(ctx, testUser)
	require.NoError(t, err)
	require.Len(t, store.Entries, 1)
	assert.Equal(t, 2, store.Entries[0].Decay.ReinforcementCount)
	assert.InDelta(t, 0.9, store.Entries[0].Confidence, 1e-9)
	assert.Equal(t, "Proficient in Python programming and data analysis", store.Entries[0].Content)
	assert.Equal(t, 1, store.Analytics.TotalMemories)
}

func TestAddMemoryKeepsDistinctFacts(t *testing.T) {
	client, _ := setupClientTest(t, nil, nil)
	ctx := context.Background()

	_, err := client.AddMemory(ctx, testUser, skill("Proficient in Python", 0.8))
	require.NoError(t, err)
	_, err = client.AddMemory(ctx, testUser, skill("Enjoys coding in Python", 0.7))
	require.NoError(t, err)

	// same words, different category
	other := skill("Proficient in Python", 0.8)
	other.Category = memory.CategoryProfessional
	_, err = client.AddMemory(ctx, testUser, other)
	require.NoError(t, err)

	store, err := client.GetStore(ctx, testUser)
	require.NoError(t, err)
	assert.Len(t, store.Entries, 3)
	assert.Equal(t, 3, store.Analytics.TotalMemories)
}

func TestAddMemoryTreatsPunctuationAsPartOfWords(t *testing.T) {
	client, _ := setupClientTest(t, nil, nil)
	ctx := context.Background()

	_, err := client.AddMemory(ctx, testUser, skill("Proficient in Python.", 0.8))
	require.NoError(t, err)
	res, err := client.AddMemory(ctx, testUser, skill("proficient in python", 0.8))
	require.NoError(t, err)
	assert.False(t, res.Reinforced)

	store, err := client.GetStore(ctx, testUser)
	require.NoError(t, err)
	assert.Len(t, store.Entries, 2)
}

func TestAddMemoryReplaceContent(t *testing.T) {
	client, _ := setupClientTest(t, nil, nil)
	ctx := context.Background()

	_, err := client.AddMemory(ctx, testUser, skill("Proficient in Python programming and data analysis", 0.8))
	require.NoError(t, err)
	res, err := client.AddMemory(ctx, testUser,
		skill("Proficient in Python programming and data analysis work", 0.8),
		careermem.WithReplaceContent(true),
	)
	require.NoError(t, err)
	assert.True(t, res.Reinforced)
	assert.Equal(t, "Proficient in Python programming and data analysis work", res.Memory.Content)
}

func TestAddMemoryDefaults(t *testing.T) {
	client, clock := setupClientTest(t, nil, nil)

	res, err := client.AddMemory(context.Background(), testUser, memory.Candidate{
		Type:     memory.TypeCareerGoal,
		Category: memory.CategoryProfessional,
		Content:  "Wants to move into engineering management",
		Tags:     []string{"Leadership", "leadership "},
	})
	require.NoError(t, err)

	m := res.Memory
	assert.NotEmpty(t, m.ID)
	assert.Equal(t, memory.DefaultConfidence, m.Confidence)
	assert.Equal(t, memory.MethodUserAdded, m.Source.ExtractionMethod)
	assert.Equal(t, 1, m.Decay.ReinforcementCount)
	assert.Equal(t, 0.1, m.Decay.DecayRate)
	assert.Equal(t, clock.Now(), m.Decay.LastReinforced)
	assert.Equal(t, []string{"leadership"}, m.Tags)
	assert.True(t, m.Importance.Valid())
	assert.True(t, m.IsActive)
}

func TestAddMemoryValidation(t *testing.T) {
	client, _ := setupClientTest(t, nil, nil)
	ctx := context.Background()

	tests := []struct {
		name   string
		userID string
		cand   memory.Candidate
	}{
		{name: "missing user", userID: "", cand: skill("Go", 0.5)},
		{name: "unknown type", userID: testUser, cand: memory.Candidate{Type: "hobby", Category: memory.CategoryPersonal, Content: "Chess"}},
		{name: "unknown category", userID: testUser, cand: memory.Candidate{Type: memory.TypeSkill, Category: "misc", Content: "Chess"}},
		{name: "empty content", userID: testUser, cand: memory.Candidate{Type: memory.TypeSkill, Category: memory.CategoryTechnical, Content: "  "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := client.AddMemory(ctx, tt.userID, tt.cand)
			assert.ErrorIs(t, err, careermem.ErrValidation)
		})
	}
}

func TestAddMemoryClampsConfidence(t *testing.T) {
	client, _ := setupClientTest(t, nil, nil)

	res, err := client.AddMemory(context.Background(), testUser, skill("Writes Rust daily", 1.7))
	require.NoError(t, err)
	assert.Equal(t, 1.0, res.Memory.Confidence)

	again, err := client.AddMemory(context.Background(), testUser, skill("Writes Rust daily", 0.5))
	require.NoError(t, err)
	assert.Equal(t, 1.0, again.Memory.Confidence)
}

func TestAddMemoryCapacity(t *testing.T) {
	client, _ := setupClientTest(t, nil, nil)
	ctx := context.Background()

	_, err := client.UpdateSettings(ctx, testUser, memory.Settings{AutoDecay: true, MaxMemories: 2})
	require.NoError(t, err)

	_, err = client.AddMemory(ctx, testUser, skill("Kubernetes operators", 0.9))
	require.NoError(t, err)
	weak, err := client.AddMemory(ctx, testUser, skill("Basic Excel formulas", 0.4))
	require.NoError(t, err)
	_, err = client.AddMemory(ctx, testUser, skill("Terraform modules", 0.7))
	require.NoError(t, err)

	store, err := client.GetStore(ctx, testUser)
	require.NoError(t, err)
	assert.Equal(t, 2, store.Analytics.TotalMemories)
	assert.Len(t, store.Entries, 2)

	_, ok := store.Get(weak.Memory.ID)
	assert.False(t, ok)

	for i := 0; i < 3; i++ {
		_, err = client.AddMemory(ctx, testUser, skill(fmt.Sprintf("Distinct skill number %d", i), 0.5))
		require.NoError(t, err)

		store, err = client.GetStore(ctx, testUser)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(store.Entries), 2)
	}
}

func TestConcurrentAddsNeverDuplicate(t *testing.T) {
	client, _ := setupClientTest(t, nil, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := client.AddMemory(ctx, testUser, skill("Experienced with PostgreSQL query tuning", 0.6))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	store, err := client.GetStore(ctx, testUser)
	require.NoError(t, err)
	require.Len(t, store.Entries, 1)
	assert.Equal(t, 20, store.Entries[0].Decay.ReinforcementCount)
	assert.Equal(t, 1.0, store.Entries[0].Confidence)
}

func TestGetStoreNotFound(t *testing.T) {
	client, _ := setupClientTest(t, nil, nil)

	_, err := client.GetStore(context.Background(), "nobody")
	assert.ErrorIs(t, err, careermem.ErrNotFound)

	_, err = client.RunMaintenance(context.Background(), "nobody")
	assert.ErrorIs(t, err, careermem.ErrNotFound)
}

func TestGetByType(t *testing.T) {
	client, clock := setupClientTest(t, nil, nil)
	ctx := context.Background()

	low, err := client.AddMemory(ctx, testUser, skill("Docker basics", 0.3))
	require.NoError(t, err)
	clock.Advance(time.Hour)
	high, err := client.AddMemory(ctx, testUser, skill("Distributed systems design", 0.9))
	require.NoError(t, err)
	clock.Advance(time.Hour)
	mid, err := client.AddMemory(ctx, testUser, skill("GraphQL schema design", 0.6))
	require.NoError(t, err)
	_, err = client.AddMemory(ctx, testUser, skill("GraphQL schema design", 0.6))
	require.NoError(t, err)
	_, err = client.AddMemory(ctx, testUser, memory.Candidate{
		Type: memory.TypePreference, Category: memory.CategoryPersonal, Content: "Prefers remote roles",
	})
	require.NoError(t, err)

	byConfidence, err := client.GetByType(ctx, testUser, memory.TypeSkill)
	require.NoError(t, err)
	assert.Equal(t, []string{high.Memory.ID, mid.Memory.ID, low.Memory.ID}, ids(byConfidence))

	byRecency, err := client.GetByType(ctx, testUser, memory.TypeSkill, careermem.WithSortBy(careermem.SortByRecency))
	require.NoError(t, err)
	assert.Equal(t, mid.Memory.ID, byRecency[0].ID)

	byReinforcement, err := client.GetByType(ctx, testUser, memory.TypeSkill, careermem.WithSortBy(careermem.SortByReinforcement))
	require.NoError(t, err)
	assert.Equal(t, mid.Memory.ID, byReinforcement[0].ID)

	confident, err := client.GetByType(ctx, testUser, memory.TypeSkill, careermem.WithMinConfidence(0.5))
	require.NoError(t, err)
	assert.Len(t, confident, 2)

	_, err = client.GetByType(ctx, testUser, "hobby")
	assert.ErrorIs(t, err, careermem.ErrValidation)

	none, err := client.GetByType(ctx, "new_user", memory.TypeSkill)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSearch(t *testing.T) {
	client, _ := setupClientTest(t, nil, nil)
	ctx := context.Background()

	tagged := skill("Builds REST services", 0.5)
	tagged.Tags = []string{"python"}
	_, err := client.AddMemory(ctx, testUser, tagged)
	require.NoError(t, err)
	_, err = client.AddMemory(ctx, testUser, skill("Writes PYTHON scripts for automation", 0.9))
	require.NoError(t, err)
	_, err = client.AddMemory(ctx, testUser, skill("Knows Java", 0.95))
	require.NoError(t, err)

	hits, err := client.Search(ctx, testUser, "Python")
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "Writes PYTHON scripts for automation", hits[0].Content)
	assert.Equal(t, "Builds REST services", hits[1].Content)

	filtered, err := client.Search(ctx, testUser, "python", careermem.WithSearchMinConfidence(0.6))
	require.NoError(t, err)
	assert.Len(t, filtered, 1)

	byType, err := client.Search(ctx, testUser, "skill", careermem.WithLimit(2))
	require.NoError(t, err)
	assert.Len(t, byType, 2)

	_, err = client.Search(ctx, testUser, "   ")
	assert.ErrorIs(t, err, careermem.ErrValidation)
}

func ids(entries []memory.Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.ID
	}
	return out
}
