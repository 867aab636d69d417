package intelligence

import (
	"sort"
	"time"

	"github.com/hireflow/careermem-go/pkg/memory"
)

const (
	// DefaultDuplicateThreshold is the similarity above which a candidate
	// reinforces an existing memory instead of creating a new one.
	DefaultDuplicateThreshold = 0.8

	// DefaultMergeThreshold is the stricter similarity used by maintenance
	// to merge already stored near-duplicates.
	DefaultMergeThreshold = 0.85
)

// DedupManager detects duplicate memories by word overlap and folds them
// together.
//
// Two memories are duplicates when they share type and category and their
// similarity exceeds the threshold.
//
// Example usage:
//
//	manager := NewDedupManager(0.8, 0.85)
//	if idx, ok := manager.FindDuplicate(store.Entries, candidate); ok {
//	    store.Entries[idx] = store.Entries[idx].Reinforce(candidate, now, false)
//	}
type DedupManager struct {
	// threshold is the similarity a candidate must exceed to count as a duplicate.
	threshold float64

	// mergeThreshold is the similarity two stored memories must exceed to be merged.
	mergeThreshold float64
}

// NewDedupManager creates a new deduplication manager.
//
// Parameters:
//   - threshold: Duplicate threshold (0.0-1.0). If 0, defaults to 0.8.
//   - mergeThreshold: Maintenance merge threshold. If 0, defaults to 0.85.
func NewDedupManager(threshold, mergeThreshold float64) *DedupManager {
	if threshold <= 0 {
		threshold = DefaultDuplicateThreshold
	}
	if mergeThreshold <= 0 {
		mergeThreshold = DefaultMergeThreshold
	}
	return &DedupManager{threshold: threshold, mergeThreshold: mergeThreshold}
}

// FindDuplicate returns the index of the active entry that candidate
// duplicates. When several entries qualify the most similar one wins, then
// the higher confidence.
func (m *DedupManager) FindDuplicate(entries []memory.Entry, c memory.Candidate) (int, bool) {
	best := -1
	bestSim := 0.0
	for i, e := range entries {
		if !e.IsActive || e.Type != c.Type || e.Category != c.Category {
			continue
		}
		sim := Similarity(e.Content, c.Content)
		if sim <= m.threshold {
			continue
		}
		if best < 0 || sim > bestSim || (sim == bestSim && e.Confidence > entries[best].Confidence) {
			best, bestSim = i, sim
		}
	}
	return best, best >= 0
}

// MergeRecord describes one merge performed by MergeDuplicates.
type MergeRecord struct {
	KeptID     string  `json:"kept_id"`
	RemovedID  string  `json:"removed_id"`
	Similarity float64 `json:"similarity"`
}

// MergeDuplicates compares active entries pairwise and folds every
// near-duplicate into the stronger entry of the pair.
//
// The stronger entry has the higher confidence; ties go to the higher
// reinforcement count and then to the older entry. Absorbed entries are
// removed and relationships pointing at them are moved to the keeper.
//
// The scan is O(n²). At most limit active entries (strongest first) take part;
// limit <= 0 means no bound. Inactive entries are kept as they are.
//
// Returns the new entry list and the merges performed.
func (m *DedupManager) MergeDuplicates(entries []memory.Entry, limit int, now time.Time) ([]memory.Entry, []MergeRecord) {
	active := make([]int, 0, len(entries))
	for i, e := range entries {
		if e.IsActive {
			active = append(active, i)
		}
	}
	sort.SliceStable(active, func(a, b int) bool {
		return stronger(entries[active[a]], entries[active[b]])
	})
	if limit > 0 && len(active) > limit {
		active = active[:limit]
	}

	merged := make(map[int]bool)
	mergedInto := make(map[string]string)
	updated := make(map[int]memory.Entry)
	var records []MergeRecord

	for x := 0; x < len(active); x++ {
		i := active[x]
		if merged[i] {
			continue
		}
		keeper, ok := updated[i]
		if !ok {
			keeper = entries[i]
		}
		for y := x + 1; y < len(active); y++ {
			j := active[y]
			if merged[j] {
				continue
			}
			other := entries[j]
			if other.Type != keeper.Type || other.Category != keeper.Category {
				continue
			}
			sim := Similarity(keeper.Content, other.Content)
			if sim <= m.mergeThreshold {
				continue
			}
			keeper = keeper.Absorb(other, now)
			merged[j] = true
			mergedInto[other.ID] = keeper.ID
			records = append(records, MergeRecord{KeptID: keeper.ID, RemovedID: other.ID, Similarity: sim})
		}
		updated[i] = keeper
	}

	if len(records) == 0 {
		return entries, nil
	}

	out := make([]memory.Entry, 0, len(entries)-len(records))
	for i, e := range entries {
		if merged[i] {
			continue
		}
		if u, ok := updated[i]; ok {
			e = u
		}
		out = append(out, e.RepointRelationships(mergedInto))
	}
	return out, records
}

// stronger orders entries for merging: higher confidence, then more
// reinforcements, then older.
func stronger(a, b memory.Entry) bool {
	if a.Confidence != b.Confidence {
		return a.Confidence > b.Confidence
	}
	if a.Decay.ReinforcementCount != b.Decay.ReinforcementCount {
		return a.Decay.ReinforcementCount > b.Decay.ReinforcementCount
	}
	return a.CreatedAt.Before(b.CreatedAt)
}
