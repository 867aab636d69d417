package conversation

import (
	"fmt"
	"strings"
)

// SummaryPrompt is the system prompt of the summarizer.
const SummaryPrompt = `You summarize career coaching conversations between a job seeker and an AI coach.

# Requirements
1. The summary is 2-4 sentences about what was discussed and decided.
2. Key topics are short noun phrases.
3. Action items are concrete next steps for the job seeker.
4. Outcomes are decisions or results reached in the conversation.
5. Memories are durable facts about the job seeker (skills, goals, preferences, experience, constraints).
   Memory types: %s
   Categories: %s
6. Insights are short coaching observations that are not facts.

# Output
Return JSON only:
{"summary": "...", "keyTopics": ["..."], "actionItems": ["..."], "outcomes": ["..."],
 "memories": [{"type": "...", "category": "...", "content": "...", "confidence": 0.0, "importance": "...", "tags": ["..."]}],
 "insights": ["..."]}`

// ReplyPrompt is the system prompt of Reply. The memory context, when any,
// is appended below it.
const ReplyPrompt = `You are a career coach helping a job seeker with their search: resumes, applications, interviews and career decisions.
Be concrete and encouraging. Use what you know about the user when it is relevant, and never invent facts about them.`

// buildTranscript renders messages for the summarizer.
func buildTranscript(messages []Message) string {
	var sb strings.Builder
	for _, m := range messages {
		fmt.Fprintf(&sb, "%s: %s\n", speaker(m.Type), m.Content)
	}
	return sb.String()
}

func speaker(t MessageType) string {
	switch t {
	case MessageUser:
		return "User"
	case MessageAI:
		return "Coach"
	default:
		return "System"
	}
}
