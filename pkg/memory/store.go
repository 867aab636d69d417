package memory

import (
	"sort"
	"time"
)

const (
	// DefaultMaxMemories bounds the number of entries kept per user.
	DefaultMaxMemories = 1000

	// MaxInsights bounds the insight list kept in Analytics.
	MaxInsights = 50
)

// Profile is the aggregate view derived from a user's active memories.
type Profile struct {
	CareerStage           string   `json:"career_stage,omitempty"`
	CareerStageConfidence float64  `json:"career_stage_confidence"`
	Industries            []string `json:"industries,omitempty"`
	Skills                []string `json:"skills,omitempty"`
	PersonalityTraits     []string `json:"personality_traits,omitempty"`
	CommunicationStyle    string   `json:"communication_style,omitempty"`
	Goals                 []string `json:"goals,omitempty"`
	Preferences           []string `json:"preferences,omitempty"`
}

// Insight is a free-text observation produced by extraction or summarization.
type Insight struct {
	Text      string    `json:"text"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"created_at"`
}

// Analytics is a snapshot of the memory set.
type Analytics struct {
	TotalMemories     int              `json:"total_memories"`
	ByType            map[Type]int     `json:"by_type"`
	ByCategory        map[Category]int `json:"by_category"`
	AverageConfidence float64          `json:"average_confidence"`
	Insights          []Insight        `json:"insights,omitempty"`
	LastAnalyzedAt    time.Time        `json:"last_analyzed_at"`
}

// Settings controls retention for a user's memory set.
type Settings struct {
	// RetentionDays purges inactive entries older than this many days. Zero keeps them.
	RetentionDays int `json:"retention_days"`

	// AutoDecay enables the periodic decay pass.
	AutoDecay bool `json:"auto_decay"`

	// MaxMemories bounds the entry count and the maintenance merge scan.
	MaxMemories int `json:"max_memories"`
}

// DefaultSettings returns the settings applied to new users.
func DefaultSettings() Settings {
	return Settings{AutoDecay: true, MaxMemories: DefaultMaxMemories}
}

// UserStore is the per-user aggregate root persisted as one document.
type UserStore struct {
	UserID    string    `json:"user_id"`
	Entries   []Entry   `json:"entries"`
	Profile   Profile   `json:"profile"`
	Analytics Analytics `json:"analytics"`
	Settings  Settings  `json:"settings"`

	// ProfileHints holds profile updates suggested by extraction. They fill
	// gaps in the derived profile on every recompute.
	ProfileHints map[string]any `json:"profile_hints,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewUserStore returns an empty store for userID.
func NewUserStore(userID string, now time.Time) *UserStore {
	s := &UserStore{
		UserID:    userID,
		Entries:   []Entry{},
		Settings:  DefaultSettings(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.RefreshAnalytics(now)
	return s
}

// Active returns copies of the active entries.
func (s *UserStore) Active() []Entry {
	out := make([]Entry, 0, len(s.Entries))
	for _, e := range s.Entries {
		if e.IsActive {
			out = append(out, e.Clone())
		}
	}
	return out
}

// Index returns the position of the entry with id, or -1.
func (s *UserStore) Index(id string) int {
	for i, e := range s.Entries {
		if e.ID == id {
			return i
		}
	}
	return -1
}

// Get returns a copy of the entry with id.
func (s *UserStore) Get(id string) (Entry, bool) {
	if i := s.Index(id); i >= 0 {
		return s.Entries[i].Clone(), true
	}
	return Entry{}, false
}

// Remove drops the entry with id and any relationships pointing at it.
func (s *UserStore) Remove(id string) bool {
	i := s.Index(id)
	if i < 0 {
		return false
	}
	s.Entries = append(s.Entries[:i], s.Entries[i+1:]...)
	for j, e := range s.Entries {
		if len(e.Relationships) == 0 {
			continue
		}
		kept := make([]Relationship, 0, len(e.Relationships))
		for _, r := range e.Relationships {
			if r.MemoryID != id {
				kept = append(kept, r)
			}
		}
		s.Entries[j].Relationships = kept
	}
	return true
}

// MakeRoom frees a slot when the store holds max or more entries, so that
// one append keeps len(Entries) <= max. Inactive entries are evicted oldest
// first; when none are left the weakest active entries go. It returns the
// ids of evicted entries.
func (s *UserStore) MakeRoom(max int) []string {
	if max <= 0 || len(s.Entries) < max {
		return nil
	}
	var evicted []string
	inactive := make([]Entry, 0)
	for _, e := range s.Entries {
		if !e.IsActive {
			inactive = append(inactive, e)
		}
	}
	sort.SliceStable(inactive, func(i, j int) bool {
		return inactive[i].UpdatedAt.Before(inactive[j].UpdatedAt)
	})
	for _, e := range inactive {
		if len(s.Entries) < max {
			return evicted
		}
		s.Remove(e.ID)
		evicted = append(evicted, e.ID)
	}

	for len(s.Entries) >= max {
		weakest := -1
		for i, e := range s.Entries {
			if weakest < 0 || weaker(e, s.Entries[weakest]) {
				weakest = i
			}
		}
		id := s.Entries[weakest].ID
		s.Remove(id)
		evicted = append(evicted, id)
	}
	return evicted
}

// weaker orders entries for eviction: lower confidence, then lower importance,
// then older.
func weaker(a, b Entry) bool {
	if a.Confidence != b.Confidence {
		return a.Confidence < b.Confidence
	}
	if a.Importance.Rank() != b.Importance.Rank() {
		return a.Importance.Rank() < b.Importance.Rank()
	}
	return a.CreatedAt.Before(b.CreatedAt)
}

// PurgeInactive removes inactive entries last updated more than retention ago.
func (s *UserStore) PurgeInactive(retention time.Duration, now time.Time) int {
	if retention <= 0 {
		return 0
	}
	cutoff := now.Add(-retention)
	var ids []string
	for _, e := range s.Entries {
		if !e.IsActive && e.UpdatedAt.Before(cutoff) {
			ids = append(ids, e.ID)
		}
	}
	for _, id := range ids {
		s.Remove(id)
	}
	return len(ids)
}

// AddInsights appends non-empty insights, keeping the newest MaxInsights.
func (s *UserStore) AddInsights(texts []string, source string, now time.Time) {
	for _, t := range texts {
		if t == "" {
			continue
		}
		s.Analytics.Insights = append(s.Analytics.Insights, Insight{Text: t, Source: source, CreatedAt: now})
	}
	if n := len(s.Analytics.Insights); n > MaxInsights {
		s.Analytics.Insights = append([]Insight(nil), s.Analytics.Insights[n-MaxInsights:]...)
	}
}

// MergeProfileHints records profile updates suggested by extraction.
func (s *UserStore) MergeProfileHints(hints map[string]any) {
	if len(hints) == 0 {
		return
	}
	if s.ProfileHints == nil {
		s.ProfileHints = make(map[string]any, len(hints))
	}
	for k, v := range hints {
		s.ProfileHints[k] = v
	}
}

// RefreshAnalytics recomputes counts and average confidence over active
// entries. Insights are preserved.
func (s *UserStore) RefreshAnalytics(now time.Time) {
	byType := make(map[Type]int)
	byCategory := make(map[Category]int)
	total := 0
	sum := 0.0
	for _, e := range s.Entries {
		if !e.IsActive {
			continue
		}
		total++
		sum += e.Confidence
		byType[e.Type]++
		byCategory[e.Category]++
	}
	avg := 0.0
	if total > 0 {
		avg = sum / float64(total)
	}
	s.Analytics.TotalMemories = total
	s.Analytics.ByType = byType
	s.Analytics.ByCategory = byCategory
	s.Analytics.AverageConfidence = avg
	s.Analytics.LastAnalyzedAt = now
	s.UpdatedAt = now
}
