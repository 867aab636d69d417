package conversation_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hireflow/careermem-go/pkg/conversation"
)

func messages(users, ais int) []conversation.Message {
	var out []conversation.Message
	for i := 0; i < users; i++ {
		out = append(out, conversation.Message{Type: conversation.MessageUser, Content: "q"})
	}
	for i := 0; i < ais; i++ {
		out = append(out, conversation.Message{Type: conversation.MessageAI, Content: "a"})
	}
	return out
}

func TestEngagementScore(t *testing.T) {
	five := 5
	three := 3

	withActions := messages(1, 1)
	withActions[1].Metadata.Actions = []conversation.Action{{Type: "apply"}, {Type: "save_job"}}

	manyActions := messages(1, 1)
	for i := 0; i < 6; i++ {
		manyActions[1].Metadata.Actions = append(manyActions[1].Metadata.Actions, conversation.Action{Type: "open"})
	}

	tests := []struct {
		name     string
		messages []conversation.Message
		rating   *int
		expected float64
	}{
		{name: "empty", expected: 0},
		{name: "one sided", messages: messages(3, 0), expected: 6},
		{name: "unbalanced", messages: messages(2, 1), expected: 6 + 10},
		{name: "balanced", messages: messages(10, 10), expected: 40 + 20},
		{name: "actions", messages: withActions, expected: 4 + 20 + 10},
		{name: "actions capped", messages: manyActions, expected: 4 + 20 + 20},
		{name: "rated", messages: messages(1, 1), rating: &three, expected: 4 + 20 + 12},
		{name: "everything maxed", messages: append(messages(15, 15), manyActions...), rating: &five, expected: 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score := conversation.EngagementScore(tt.messages, tt.rating)
			assert.InDelta(t, tt.expected, score, 1e-9)
			assert.GreaterOrEqual(t, score, 0.0)
			assert.LessOrEqual(t, score, 100.0)
		})
	}
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, conversation.EstimateTokens(""))
	assert.Equal(t, 1, conversation.EstimateTokens("hi"))
	assert.Equal(t, 5, conversation.EstimateTokens("Update the resume"))
}
