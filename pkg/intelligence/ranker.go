package intelligence

import (
	"math"
	"sort"
	"time"

	"github.com/hireflow/careermem-go/pkg/memory"
)

// DefaultRelevantLimit is the number of memories returned when no limit is given.
const DefaultRelevantLimit = 10

// RelevanceContext describes what the caller is about to talk about.
type RelevanceContext struct {
	// Tags select memories carrying any of these tags and boost matches.
	Tags []string `json:"tags,omitempty"`

	// Types select memories of any of these types.
	Types []memory.Type `json:"types,omitempty"`
}

// ImportanceBoost returns the score bonus for an importance level.
func ImportanceBoost(i memory.Importance) float64 {
	switch i {
	case memory.ImportanceCritical:
		return 0.4
	case memory.ImportanceHigh:
		return 0.3
	case memory.ImportanceMedium:
		return 0.1
	default:
		return 0
	}
}

// RecencyBoost returns max(0, 0.2 - days since lastReinforced × 0.01).
func RecencyBoost(lastReinforced, now time.Time) float64 {
	days := now.Sub(lastReinforced).Hours() / 24
	if days < 0 {
		days = 0
	}
	return math.Max(0, 0.2-days*0.01)
}

// Score ranks e against ctx: confidence plus importance, recency and tag-match
// boosts, clamped to [0, 1].
func Score(e memory.Entry, ctx RelevanceContext, now time.Time) float64 {
	matches := 0
	for _, tag := range memory.NormalizeTags(ctx.Tags) {
		if e.HasTag(tag) {
			matches++
		}
	}
	score := e.Confidence +
		ImportanceBoost(e.Importance) +
		RecencyBoost(e.Decay.LastReinforced, now) +
		0.1*float64(matches)
	return memory.Clamp(score)
}

// ScoredEntry pairs an entry with its relevance score.
type ScoredEntry struct {
	Entry memory.Entry `json:"memory"`
	Score float64      `json:"score"`
}

// Ranker selects the memories most relevant to a context.
type Ranker struct{}

// NewRanker creates a relevance ranker.
func NewRanker() *Ranker {
	return &Ranker{}
}

// Rank gathers active entries that match any context tag, any context type,
// or have high or critical importance, then orders them by descending score.
// Ties are broken by id so results are stable. At most limit entries are
// returned; limit <= 0 means DefaultRelevantLimit.
func (r *Ranker) Rank(entries []memory.Entry, ctx RelevanceContext, limit int, now time.Time) []ScoredEntry {
	if limit <= 0 {
		limit = DefaultRelevantLimit
	}
	tags := memory.NormalizeTags(ctx.Tags)
	types := make(map[memory.Type]struct{}, len(ctx.Types))
	for _, t := range ctx.Types {
		types[t] = struct{}{}
	}

	seen := make(map[string]struct{}, len(entries))
	candidates := make([]ScoredEntry, 0, len(entries))
	for _, e := range entries {
		if !e.IsActive {
			continue
		}
		if _, dup := seen[e.ID]; dup {
			continue
		}
		if !r.selected(e, tags, types) {
			continue
		}
		seen[e.ID] = struct{}{}
		candidates = append(candidates, ScoredEntry{Entry: e, Score: Score(e, ctx, now)})
	}

	sortScored(candidates)
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates
}

// Top orders all active entries by score without the selection filter. It is
// used to pick negative examples for extraction.
func (r *Ranker) Top(entries []memory.Entry, ctx RelevanceContext, limit int, now time.Time) []ScoredEntry {
	out := make([]ScoredEntry, 0, len(entries))
	for _, e := range entries {
		if e.IsActive {
			out = append(out, ScoredEntry{Entry: e, Score: Score(e, ctx, now)})
		}
	}
	sortScored(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (r *Ranker) selected(e memory.Entry, tags []string, types map[memory.Type]struct{}) bool {
	if e.Importance == memory.ImportanceHigh || e.Importance == memory.ImportanceCritical {
		return true
	}
	if _, ok := types[e.Type]; ok {
		return true
	}
	for _, tag := range tags {
		if e.HasTag(tag) {
			return true
		}
	}
	return false
}

func sortScored(s []ScoredEntry) {
	sort.SliceStable(s, func(i, j int) bool {
		if s[i].Score != s[j].Score {
			return s[i].Score > s[j].Score
		}
		return s[i].Entry.ID < s[j].Entry.ID
	})
}
