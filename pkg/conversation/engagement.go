package conversation

import "math"

// EngagementScore rates how engaged a conversation is, from 0 to 100.
//
// The score adds up:
//   - volume: 2 points per message, up to 40
//   - balance: min(user, ai) / max(user, ai) × 20, or 0 if either side is silent
//   - actions: 5 points per suggested action, up to 20
//   - satisfaction: rating / 5 × 20 when the user rated the conversation
func EngagementScore(messages []Message, rating *int) float64 {
	volume := math.Min(float64(len(messages))*2, 40)

	var users, ais, actions int
	for _, m := range messages {
		switch m.Type {
		case MessageUser:
			users++
		case MessageAI:
			ais++
		}
		actions += len(m.Metadata.Actions)
	}

	balance := 0.0
	if users > 0 && ais > 0 {
		balance = float64(min(users, ais)) / float64(max(users, ais)) * 20
	}

	score := volume + balance + math.Min(float64(actions)*5, 20)
	if rating != nil {
		score += float64(*rating) / 5 * 20
	}
	return math.Max(0, math.Min(100, score))
}
