package intelligence_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hireflow/careermem-go/pkg/intelligence"
	"github.com/hireflow/careermem-go/pkg/memory"
)

func TestImportanceEvaluator(t *testing.T) {
	e := intelligence.NewImportanceEvaluator()

	tests := []struct {
		name string
		c    memory.Candidate
		want memory.Importance
	}{
		{
			name: "tool preference",
			c:    memory.Candidate{Type: memory.TypeToolPreference, Content: "Uses VS Code"},
			want: memory.ImportanceLow,
		},
		{
			name: "career goal",
			c:    memory.Candidate{Type: memory.TypeCareerGoal, Content: "Wants to become a staff engineer"},
			want: memory.ImportanceMedium,
		},
		{
			name: "hard constraint",
			c:    memory.Candidate{Type: memory.TypePreference, Content: "Visa sponsorship is a must"},
			want: memory.ImportanceHigh,
		},
		{
			name: "emphatic deal breaker goal",
			c: memory.Candidate{
				Type:       memory.TypeCareerGoal,
				Content:    "Remote only is a deal breaker, this is really important",
				Confidence: memory.Float(0.95),
			},
			want: memory.ImportanceCritical,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, e.Evaluate(tt.c))
		})
	}
}

func TestImportanceScoreBounded(t *testing.T) {
	e := intelligence.NewImportanceEvaluator()
	score := e.Score(memory.Candidate{
		Type:       memory.TypeCareerGoal,
		Content:    "I must always never really strongly definitely need visa sponsorship, top priority",
		Confidence: memory.Float(1),
	})
	assert.LessOrEqual(t, score, 1.0)
	assert.GreaterOrEqual(t, score, 0.8)
}
