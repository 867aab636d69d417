package intelligence

import (
	"strings"

	"github.com/hireflow/careermem-go/pkg/memory"
)

// ImportanceEvaluator assigns an importance level to candidates that arrive
// without one, using keyword matching and per-type baselines.
//
// The evaluator considers:
//   - Type baseline: goals and weaknesses matter more than tool preferences
//   - Hard constraints: deal breakers, visa, relocation, salary floors
//   - Emphasis: "must", "always", "never", "really"
//
// Example usage:
//
//	evaluator := NewImportanceEvaluator()
//	level := evaluator.Evaluate(candidate) // memory.ImportanceHigh
type ImportanceEvaluator struct {
	// typeBaseline is the starting score for each memory type.
	typeBaseline map[memory.Type]float64

	// constraintKeywords mark facts that rule jobs in or out.
	constraintKeywords []string

	// emphasisKeywords mark strongly stated facts.
	emphasisKeywords []string
}

// NewImportanceEvaluator creates an evaluator with the default weights.
func NewImportanceEvaluator() *ImportanceEvaluator {
	return &ImportanceEvaluator{
		typeBaseline: map[memory.Type]float64{
			memory.TypeCareerGoal:         0.5,
			memory.TypeWeakness:           0.4,
			memory.TypeChallenge:          0.4,
			memory.TypeSkill:              0.35,
			memory.TypeExperience:         0.35,
			memory.TypeAchievement:        0.35,
			memory.TypeLearningGoal:       0.35,
			memory.TypeEducation:          0.3,
			memory.TypePreference:         0.3,
			memory.TypeWorkStyle:          0.25,
			memory.TypeCommunicationStyle: 0.25,
			memory.TypeIndustryKnowledge:  0.25,
			memory.TypeFeedbackPattern:    0.25,
			memory.TypePersonalityTrait:   0.2,
			memory.TypeToolPreference:     0.15,
		},
		constraintKeywords: []string{
			"deal breaker", "dealbreaker", "visa", "sponsorship", "relocat",
			"salary", "compensation", "remote only", "cannot", "can't",
			"won't", "require", "deadline", "laid off", "urgent",
		},
		emphasisKeywords: []string{
			"must", "always", "never", "really", "strongly", "definitely",
			"important", "priority", "top goal",
		},
	}
}

// Score returns a 0-1 importance score for c.
func (e *ImportanceEvaluator) Score(c memory.Candidate) float64 {
	score := e.typeBaseline[c.Type]
	content := strings.ToLower(c.Content)

	for _, kw := range e.constraintKeywords {
		if strings.Contains(content, kw) {
			score += 0.3
			break
		}
	}
	emphasis := 0.0
	for _, kw := range e.emphasisKeywords {
		if strings.Contains(content, kw) {
			emphasis += 0.1
		}
	}
	if emphasis > 0.2 {
		emphasis = 0.2
	}
	score += emphasis

	if c.Confidence != nil && *c.Confidence >= 0.9 {
		score += 0.05
	}
	return memory.Clamp(score)
}

// Evaluate maps Score onto an importance level.
func (e *ImportanceEvaluator) Evaluate(c memory.Candidate) memory.Importance {
	score := e.Score(c)
	switch {
	case score >= 0.8:
		return memory.ImportanceCritical
	case score >= 0.6:
		return memory.ImportanceHigh
	case score >= 0.3:
		return memory.ImportanceMedium
	default:
		return memory.ImportanceLow
	}
}
