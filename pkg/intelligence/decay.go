package intelligence

import (
	"time"

	"github.com/hireflow/careermem-go/pkg/memory"
)

// DecayManager applies time-based confidence erosion to a memory set.
//
// Each active entry loses days-since-reinforced × decayRate confidence, never
// dropping below min(0.1, current confidence). Entries that end below 0.2 are
// deactivated. Deactivation is permanent: inactive entries are skipped.
//
// Example usage:
//
//	manager := NewDecayManager(0.1)
//	entries, report := manager.Apply(store.Entries, time.Now())
//	if report.Deactivated > 0 {
//	    // recompute the profile
//	}
type DecayManager struct {
	// defaultRate is used for entries stored without a decay rate.
	defaultRate float64
}

// DecayReport summarizes one decay pass.
type DecayReport struct {
	// Decayed counts entries whose confidence dropped.
	Decayed int `json:"decayed"`

	// Deactivated counts entries that crossed the deactivation threshold.
	Deactivated int `json:"deactivated"`

	// DeactivatedIDs lists the entries deactivated by this pass.
	DeactivatedIDs []string `json:"deactivated_ids,omitempty"`
}

// NewDecayManager creates a decay manager. A non-positive defaultRate falls
// back to 0.1 per day.
func NewDecayManager(defaultRate float64) *DecayManager {
	if defaultRate <= 0 {
		defaultRate = memory.DefaultDecayRate
	}
	return &DecayManager{defaultRate: defaultRate}
}

// Apply runs one decay pass as of now and returns the updated entries.
func (m *DecayManager) Apply(entries []memory.Entry, now time.Time) ([]memory.Entry, DecayReport) {
	var report DecayReport
	out := make([]memory.Entry, len(entries))
	for i, e := range entries {
		if e.IsActive && e.Decay.DecayRate <= 0 {
			e = e.Clone()
			e.Decay.DecayRate = m.defaultRate
		}
		decayed, deactivated := e.ApplyDecay(now)
		if decayed.Confidence < e.Confidence {
			report.Decayed++
		}
		if deactivated {
			report.Deactivated++
			report.DeactivatedIDs = append(report.DeactivatedIDs, e.ID)
		}
		out[i] = decayed
	}
	return out, report
}
