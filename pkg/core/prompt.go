package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/hireflow/careermem-go/pkg/intelligence"
	"github.com/hireflow/careermem-go/pkg/memory"
)

// BuildPromptContext renders the memories most relevant to rctx, plus the
// user's profile, as text for an LLM system prompt.
//
// Retrieval goes through GetRelevant, so usage counters are bumped. A user
// without memories yields an empty string. Callers on the chat path should
// treat an error as "no personalization" and carry on.
//
// Example output:
//
//	What you know about this user:
//	- [skill] Proficient in Go and Kubernetes (confidence 0.90)
//	- [career_goal] Wants a staff engineer role within two years (confidence 0.80)
//	Career stage: senior
//	Communication style: Prefers short, direct answers
func (c *Client) BuildPromptContext(ctx context.Context, userID string, rctx intelligence.RelevanceContext, limit int) (string, error) {
	ranked, err := c.GetRelevant(ctx, userID, rctx, limit)
	if err != nil {
		return "", err
	}
	s, err := c.load(ctx, userID)
	var profile memory.Profile
	if err == nil {
		profile = s.Profile
	}
	return renderPromptContext(ranked, profile), nil
}

func renderPromptContext(ranked []intelligence.ScoredEntry, p memory.Profile) string {
	var sb strings.Builder
	if len(ranked) > 0 {
		sb.WriteString("What you know about this user:\n")
		for _, r := range ranked {
			fmt.Fprintf(&sb, "- [%s] %s (confidence %.2f)\n", r.Entry.Type, r.Entry.Content, r.Entry.Confidence)
		}
	}
	if p.CareerStage != "" {
		fmt.Fprintf(&sb, "Career stage: %s\n", p.CareerStage)
	}
	if len(p.Industries) > 0 {
		fmt.Fprintf(&sb, "Industries: %s\n", strings.Join(p.Industries, "; "))
	}
	if len(p.Goals) > 0 {
		fmt.Fprintf(&sb, "Goals: %s\n", strings.Join(p.Goals, "; "))
	}
	if p.CommunicationStyle != "" {
		fmt.Fprintf(&sb, "Communication style: %s\n", p.CommunicationStyle)
	}
	return strings.TrimRight(sb.String(), "\n")
}
