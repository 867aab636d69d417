package memory

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefreshAnalyticsCountsActiveOnly(t *testing.T) {
	s := NewUserStore("u1", testNow)
	s.Entries = append(s.Entries, newTestEntry("a", 0.8), newTestEntry("b", 0.6))
	inactive := newTestEntry("c", 0.1).Deactivate(testNow)
	s.Entries = append(s.Entries, inactive)

	s.RefreshAnalytics(testNow)

	assert.Equal(t, 2, s.Analytics.TotalMemories)
	assert.Equal(t, 2, s.Analytics.ByType[TypeSkill])
	assert.Equal(t, 2, s.Analytics.ByCategory[CategoryTechnical])
	assert.InDelta(t, 0.7, s.Analytics.AverageConfidence, 1e-9)
	assert.Len(t, s.Active(), 2)
}

func TestRemoveDropsDanglingRelationships(t *testing.T) {
	s := NewUserStore("u1", testNow)
	a := newTestEntry("a", 0.8)
	b := newTestEntry("b", 0.8)
	b.Relationships = []Relationship{{MemoryID: "a", Type: RelationBuildsOn, Strength: 1}}
	s.Entries = []Entry{a, b}

	require.True(t, s.Remove("a"))
	assert.False(t, s.Remove("a"))

	got, ok := s.Get("b")
	require.True(t, ok)
	assert.Empty(t, got.Relationships)
}

func TestMakeRoomEvictsInactiveFirst(t *testing.T) {
	s := NewUserStore("u1", testNow)
	for i := 0; i < 3; i++ {
		s.Entries = append(s.Entries, newTestEntry(fmt.Sprintf("m%d", i), 0.5+float64(i)/10))
	}
	s.Entries[1] = s.Entries[1].Deactivate(testNow)

	affected := s.MakeRoom(3)

	assert.Equal(t, []string{"m1"}, affected)
	assert.Len(t, s.Entries, 2)
}

func TestMakeRoomEvictsWeakestActive(t *testing.T) {
	s := NewUserStore("u1", testNow)
	s.Entries = []Entry{newTestEntry("strong", 0.9), newTestEntry("weak", 0.4)}

	affected := s.MakeRoom(2)

	assert.Equal(t, []string{"weak"}, affected)
	assert.Equal(t, -1, s.Index("weak"))
	assert.Len(t, s.Entries, 1)
	assert.Nil(t, s.MakeRoom(10))
}

func TestMakeRoomShrinksBelowLoweredLimit(t *testing.T) {
	s := NewUserStore("u1", testNow)
	for i := 0; i < 4; i++ {
		s.Entries = append(s.Entries, newTestEntry(fmt.Sprintf("m%d", i), 0.5+float64(i)/10))
	}

	affected := s.MakeRoom(2)

	assert.Equal(t, []string{"m0", "m1", "m2"}, affected)
	require.Len(t, s.Entries, 1)
	assert.Equal(t, "m3", s.Entries[0].ID)
}

func TestPurgeInactive(t *testing.T) {
	s := NewUserStore("u1", testNow)
	old := newTestEntry("old", 0.1).Deactivate(testNow.Add(-40 * 24 * time.Hour))
	recent := newTestEntry("recent", 0.1).Deactivate(testNow.Add(-time.Hour))
	s.Entries = []Entry{old, recent, newTestEntry("live", 0.8)}

	assert.Equal(t, 0, s.PurgeInactive(0, testNow))
	assert.Equal(t, 1, s.PurgeInactive(30*24*time.Hour, testNow))
	assert.Equal(t, -1, s.Index("old"))
	assert.Len(t, s.Entries, 2)
}

func TestAddInsightsIsBounded(t *testing.T) {
	s := NewUserStore("u1", testNow)
	for i := 0; i < MaxInsights+5; i++ {
		s.AddInsights([]string{fmt.Sprintf("insight %d", i), ""}, "extraction", testNow)
	}
	require.Len(t, s.Analytics.Insights, MaxInsights)
	assert.Equal(t, "insight 5", s.Analytics.Insights[0].Text)
}
