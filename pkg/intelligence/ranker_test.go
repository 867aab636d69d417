package intelligence_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hireflow/careermem-go/pkg/intelligence"
	"github.com/hireflow/careermem-go/pkg/memory"
)

func TestScore(t *testing.T) {
	hot := entry("hot", memory.TypeSkill, memory.CategoryTechnical, "Knows Python", 0.5)
	hot.Importance = memory.ImportanceHigh
	hot.Tags = []string{"python"}
	assert.Equal(t, 1.0, intelligence.Score(hot, intelligence.RelevanceContext{Tags: []string{"Python"}}, now))

	cold := daysAgo(entry("cold", memory.TypeSkill, memory.CategoryTechnical, "Knows Perl", 0.5), 10)
	cold.Importance = memory.ImportanceLow
	assert.InDelta(t, 0.6, intelligence.Score(cold, intelligence.RelevanceContext{}, now), 1e-9)

	ancient := daysAgo(entry("old", memory.TypeSkill, memory.CategoryTechnical, "Knows COBOL", 0.3), 400)
	ancient.Importance = memory.ImportanceLow
	assert.InDelta(t, 0.3, intelligence.Score(ancient, intelligence.RelevanceContext{}, now), 1e-9)
}

func TestImportanceBoost(t *testing.T) {
	assert.Equal(t, 0.4, intelligence.ImportanceBoost(memory.ImportanceCritical))
	assert.Equal(t, 0.3, intelligence.ImportanceBoost(memory.ImportanceHigh))
	assert.Equal(t, 0.1, intelligence.ImportanceBoost(memory.ImportanceMedium))
	assert.Equal(t, 0.0, intelligence.ImportanceBoost(memory.ImportanceLow))
}

func TestRankSelection(t *testing.T) {
	r := intelligence.NewRanker()

	tagged := entry("tagged", memory.TypeSkill, memory.CategoryTechnical, "Knows Django", 0.6)
	tagged.Tags = []string{"python"}
	typed := entry("typed", memory.TypeCareerGoal, memory.CategoryProfessional, "Wants to lead a team", 0.6)
	critical := entry("critical", memory.TypePreference, memory.CategoryPersonal, "Needs visa sponsorship", 0.6)
	critical.Importance = memory.ImportanceCritical
	unrelated := entry("unrelated", memory.TypeToolPreference, memory.CategoryTechnical, "Uses vim", 0.9)
	inactive := entry("inactive", memory.TypeSkill, memory.CategoryTechnical, "Knows Flask", 0.9)
	inactive.Tags = []string{"python"}
	inactive = inactive.Deactivate(now)

	got := r.Rank([]memory.Entry{tagged, typed, critical, unrelated, inactive}, intelligence.RelevanceContext{
		Tags:  []string{"python"},
		Types: []memory.Type{memory.TypeCareerGoal},
	}, 0, now)

	ids := make([]string, len(got))
	for i, s := range got {
		ids[i] = s.Entry.ID
	}
	assert.ElementsMatch(t, []string{"tagged", "typed", "critical"}, ids)
	assert.Equal(t, "critical", ids[0])
}

func TestRankLimitOrderAndUniqueness(t *testing.T) {
	r := intelligence.NewRanker()

	var entries []memory.Entry
	for i := 0; i < 15; i++ {
		e := daysAgo(entry(fmt.Sprintf("m%02d", i), memory.TypeSkill, memory.CategoryTechnical,
			fmt.Sprintf("Skill number %d", i), 0.3+float64(i%5)*0.1), i)
		if i%2 == 0 {
			e.Tags = []string{"python"}
		}
		if i%3 == 0 {
			e.Importance = memory.ImportanceHigh
		}
		entries = append(entries, e)
	}
	// the same memory listed twice is ranked once
	entries = append(entries, entries[0])

	got := r.Rank(entries, intelligence.RelevanceContext{Tags: []string{"python"}}, 5, now)
	require.Len(t, got, 5)

	seen := map[string]bool{}
	for i, s := range got {
		assert.False(t, seen[s.Entry.ID], "duplicate id %s", s.Entry.ID)
		seen[s.Entry.ID] = true
		assert.GreaterOrEqual(t, s.Score, 0.0)
		assert.LessOrEqual(t, s.Score, 1.0)
		if i > 0 {
			assert.GreaterOrEqual(t, got[i-1].Score, s.Score)
		}
	}
}

func TestRankDefaultLimit(t *testing.T) {
	r := intelligence.NewRanker()
	var entries []memory.Entry
	for i := 0; i < 25; i++ {
		e := entry(fmt.Sprintf("m%02d", i), memory.TypeSkill, memory.CategoryTechnical, "x", 0.5)
		e.Importance = memory.ImportanceHigh
		entries = append(entries, e)
	}
	assert.Len(t, r.Rank(entries, intelligence.RelevanceContext{}, 0, now), intelligence.DefaultRelevantLimit)
}

func TestRankTiesBrokenByID(t *testing.T) {
	r := intelligence.NewRanker()
	b := entry("b", memory.TypeSkill, memory.CategoryTechnical, "Knows Go", 0.5)
	a := entry("a", memory.TypeSkill, memory.CategoryTechnical, "Knows Go", 0.5)

	got := r.Rank([]memory.Entry{b, a}, intelligence.RelevanceContext{Types: []memory.Type{memory.TypeSkill}}, 0, now)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].Entry.ID)
	assert.Equal(t, "b", got[1].Entry.ID)
}

func TestTopIgnoresSelection(t *testing.T) {
	r := intelligence.NewRanker()
	low := entry("low", memory.TypeToolPreference, memory.CategoryTechnical, "Uses vim", 0.9)
	low.Importance = memory.ImportanceLow
	other := daysAgo(entry("other", memory.TypeToolPreference, memory.CategoryTechnical, "Uses tmux", 0.4), 30)
	other.Importance = memory.ImportanceLow

	got := r.Top([]memory.Entry{other, low}, intelligence.RelevanceContext{}, 1, now.Add(time.Hour))
	require.Len(t, got, 1)
	assert.Equal(t, "low", got[0].Entry.ID)
}
