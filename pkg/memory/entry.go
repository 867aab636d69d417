package memory

import (
	"math"
	"sort"
	"strings"
	"time"
)

const (
	// DefaultConfidence is assigned to candidates that carry no confidence.
	DefaultConfidence = 0.8

	// DefaultDecayRate is the per-day confidence loss of an unreinforced memory.
	DefaultDecayRate = 0.1

	// ReinforcementStep is added to confidence each time a duplicate is observed.
	ReinforcementStep = 0.1

	// DeactivationThreshold deactivates a memory whose confidence falls below it.
	DeactivationThreshold = 0.2

	// DecayFloor is the lowest confidence decay can push an entry to.
	DecayFloor = 0.1
)

// Source identifies where a memory came from.
type Source struct {
	ConversationID   string           `json:"conversation_id,omitempty"`
	MessageID        string           `json:"message_id,omitempty"`
	ExtractionMethod ExtractionMethod `json:"extraction_method"`
	Timestamp        time.Time        `json:"timestamp"`
}

// TimeRange bounds the period a memory applies to.
type TimeRange struct {
	Start *time.Time `json:"start,omitempty"`
	End   *time.Time `json:"end,omitempty"`
}

// Context links a memory to resumes, jobs and the situation it was observed in.
// Resume and job identifiers are opaque.
type Context struct {
	ResumeID  string     `json:"resume_id,omitempty"`
	JobIDs    []string   `json:"job_ids,omitempty"`
	TimeRange *TimeRange `json:"time_range,omitempty"`
	Situation string     `json:"situation,omitempty"`
}

// Verification records user confirmation of a memory.
type Verification struct {
	Verified   bool       `json:"verified"`
	Method     string     `json:"method,omitempty"`
	Count      int        `json:"count"`
	VerifiedAt *time.Time `json:"verified_at,omitempty"`
}

// Usage tracks how often a memory is retrieved for prompts.
type Usage struct {
	AccessCount         int        `json:"access_count"`
	LastAccessedAt      *time.Time `json:"last_accessed_at,omitempty"`
	EffectivenessRating *int       `json:"effectiveness_rating,omitempty"`
}

// Relationship links a memory to another memory of the same user.
type Relationship struct {
	MemoryID string       `json:"memory_id"`
	Type     RelationType `json:"type"`
	Strength float64      `json:"strength"`
}

// DecayState carries the inputs of time-based confidence erosion.
type DecayState struct {
	LastReinforced     time.Time `json:"last_reinforced"`
	ReinforcementCount int       `json:"reinforcement_count"`
	DecayRate          float64   `json:"decay_rate"`
}

// Entry is a single inferred fact about a user.
type Entry struct {
	ID            string         `json:"id"`
	Type          Type           `json:"type"`
	Category      Category       `json:"category"`
	Content       string         `json:"content"`
	Confidence    float64        `json:"confidence"`
	Importance    Importance     `json:"importance"`
	Source        Source         `json:"source"`
	Context       Context        `json:"context"`
	Verification  Verification   `json:"verification"`
	Usage         Usage          `json:"usage"`
	Relationships []Relationship `json:"relationships,omitempty"`
	Decay         DecayState     `json:"decay"`
	Tags          []string       `json:"tags"`
	IsActive      bool           `json:"is_active"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// NewEntry builds an active entry from a validated candidate.
//
// Missing confidence defaults to DefaultConfidence, missing importance to
// medium, a zero decayRate to DefaultDecayRate and a missing extraction
// method to user_added.
func NewEntry(id string, c Candidate, now time.Time, decayRate float64) Entry {
	confidence := DefaultConfidence
	if c.Confidence != nil {
		confidence = *c.Confidence
	}
	importance := c.Importance
	if !importance.Valid() {
		importance = ImportanceMedium
	}
	if decayRate <= 0 {
		decayRate = DefaultDecayRate
	}
	source := c.Source
	if source.ExtractionMethod == "" {
		source.ExtractionMethod = MethodUserAdded
	}
	if source.Timestamp.IsZero() {
		source.Timestamp = now
	}
	var ctx Context
	if c.Context != nil {
		ctx = *c.Context
		ctx.JobIDs = append([]string(nil), c.Context.JobIDs...)
	}
	return Entry{
		ID:         id,
		Type:       c.Type,
		Category:   c.Category,
		Content:    strings.TrimSpace(c.Content),
		Confidence: Clamp(confidence),
		Importance: importance,
		Source:     source,
		Context:    ctx,
		Decay: DecayState{
			LastReinforced:     now,
			ReinforcementCount: 1,
			DecayRate:          decayRate,
		},
		Tags:      NormalizeTags(c.Tags),
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Clamp limits v to [0, 1]. NaN maps to 0.
func Clamp(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Clone returns a deep copy of e.
func (e Entry) Clone() Entry {
	out := e
	out.Tags = append([]string(nil), e.Tags...)
	out.Relationships = append([]Relationship(nil), e.Relationships...)
	out.Context.JobIDs = append([]string(nil), e.Context.JobIDs...)
	if e.Context.TimeRange != nil {
		tr := *e.Context.TimeRange
		out.Context.TimeRange = &tr
	}
	if e.Usage.LastAccessedAt != nil {
		t := *e.Usage.LastAccessedAt
		out.Usage.LastAccessedAt = &t
	}
	if e.Usage.EffectivenessRating != nil {
		r := *e.Usage.EffectivenessRating
		out.Usage.EffectivenessRating = &r
	}
	if e.Verification.VerifiedAt != nil {
		t := *e.Verification.VerifiedAt
		out.Verification.VerifiedAt = &t
	}
	return out
}

// WithConfidence returns a copy with confidence set to c, clamped to [0, 1].
func (e Entry) WithConfidence(c float64) Entry {
	out := e.Clone()
	out.Confidence = Clamp(c)
	return out
}

// Reinforce returns e strengthened by a repeated observation.
//
// Confidence rises by ReinforcementStep (capped at 1), the reinforcement count
// grows by one, lastReinforced moves to now and the candidate's tags are
// merged in. The candidate's phrasing replaces the content only when
// replaceContent is set.
func (e Entry) Reinforce(c Candidate, now time.Time, replaceContent bool) Entry {
	out := e.Clone()
	out.Confidence = Clamp(e.Confidence + ReinforcementStep)
	out.Decay.ReinforcementCount++
	out.Decay.LastReinforced = now
	out.Tags = UnionTags(e.Tags, c.Tags)
	if replaceContent && strings.TrimSpace(c.Content) != "" {
		out.Content = strings.TrimSpace(c.Content)
	}
	out.UpdatedAt = now
	return out
}

// ApplyDecay returns e with time-based confidence erosion applied as of now.
//
// The loss is days since lastReinforced times the decay rate. The result never
// drops below min(DecayFloor, current confidence), so repeated passes never
// raise confidence. An entry that ends below DeactivationThreshold is
// deactivated. Inactive entries are returned unchanged. The second result
// reports whether this call deactivated the entry.
func (e Entry) ApplyDecay(now time.Time) (Entry, bool) {
	if !e.IsActive {
		return e, false
	}
	days := now.Sub(e.Decay.LastReinforced).Hours() / 24
	if days < 0 {
		days = 0
	}
	floor := math.Min(DecayFloor, e.Confidence)
	decayed := math.Max(floor, e.Confidence-days*e.Decay.DecayRate)

	out := e.Clone()
	out.Confidence = Clamp(decayed)
	if out.Confidence < DeactivationThreshold {
		out.IsActive = false
		out.UpdatedAt = now
		return out, true
	}
	if out.Confidence != e.Confidence {
		out.UpdatedAt = now
	}
	return out, false
}

// Absorb returns e after merging a near-duplicate into it: reinforcement
// counts are summed and tags unioned. Relationships of other are carried over
// except those pointing at e itself.
func (e Entry) Absorb(other Entry, now time.Time) Entry {
	out := e.Clone()
	out.Decay.ReinforcementCount += other.Decay.ReinforcementCount
	if other.Decay.LastReinforced.After(out.Decay.LastReinforced) {
		out.Decay.LastReinforced = other.Decay.LastReinforced
	}
	out.Tags = UnionTags(e.Tags, other.Tags)
	if other.Importance.Rank() > out.Importance.Rank() {
		out.Importance = other.Importance
	}
	out.Usage.AccessCount += other.Usage.AccessCount
	for _, rel := range other.Relationships {
		if rel.MemoryID != e.ID {
			out.Relationships = append(out.Relationships, rel)
		}
	}
	out.Relationships = dedupeRelationships(out.ID, out.Relationships)
	out.UpdatedAt = now
	return out
}

// Touch returns e with its usage counters bumped for a retrieval at now.
func (e Entry) Touch(now time.Time) Entry {
	out := e.Clone()
	out.Usage.AccessCount++
	t := now
	out.Usage.LastAccessedAt = &t
	return out
}

// Verify returns e marked as confirmed by the user. Verification also counts
// as a reinforcement of the fact.
func (e Entry) Verify(method string, now time.Time) Entry {
	out := e.Clone()
	out.Verification.Verified = true
	out.Verification.Method = method
	out.Verification.Count++
	t := now
	out.Verification.VerifiedAt = &t
	out.Source.ExtractionMethod = MethodUserConfirmed
	out.Confidence = Clamp(e.Confidence + ReinforcementStep)
	out.Decay.LastReinforced = now
	out.UpdatedAt = now
	return out
}

// Rate returns e with a 1-5 effectiveness rating. Out-of-range ratings are clamped.
func (e Entry) Rate(rating int, now time.Time) Entry {
	if rating < 1 {
		rating = 1
	}
	if rating > 5 {
		rating = 5
	}
	out := e.Clone()
	out.Usage.EffectivenessRating = &rating
	out.UpdatedAt = now
	return out
}

// Deactivate returns an inactive copy of e.
func (e Entry) Deactivate(now time.Time) Entry {
	out := e.Clone()
	out.IsActive = false
	out.UpdatedAt = now
	return out
}

// Link returns e with a relationship to another memory. An existing link to
// the same memory and type is replaced.
func (e Entry) Link(rel Relationship, now time.Time) Entry {
	out := e.Clone()
	rel.Strength = Clamp(rel.Strength)
	kept := out.Relationships[:0]
	for _, r := range out.Relationships {
		if r.MemoryID == rel.MemoryID && r.Type == rel.Type {
			continue
		}
		kept = append(kept, r)
	}
	out.Relationships = append(kept, rel)
	out.UpdatedAt = now
	return out
}

// HasTag reports whether e carries tag (case-insensitive).
func (e Entry) HasTag(tag string) bool {
	tag = strings.ToLower(strings.TrimSpace(tag))
	for _, t := range e.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// NormalizeTags lowercases, trims, deduplicates and sorts tags.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// UnionTags returns the normalized union of a and b.
func UnionTags(a, b []string) []string {
	all := make([]string, 0, len(a)+len(b))
	all = append(all, a...)
	all = append(all, b...)
	return NormalizeTags(all)
}

// RepointRelationships rewrites links to merged-away memories so they point at
// the keeper. Links that end up pointing at the entry itself are dropped.
func (e Entry) RepointRelationships(mergedInto map[string]string) Entry {
	if len(e.Relationships) == 0 {
		return e
	}
	out := e.Clone()
	for i, rel := range out.Relationships {
		if keeper, ok := mergedInto[rel.MemoryID]; ok {
			out.Relationships[i].MemoryID = keeper
		}
	}
	out.Relationships = dedupeRelationships(out.ID, out.Relationships)
	return out
}

func dedupeRelationships(selfID string, rels []Relationship) []Relationship {
	if len(rels) == 0 {
		return nil
	}
	type key struct {
		id  string
		typ RelationType
	}
	seen := make(map[key]int, len(rels))
	out := make([]Relationship, 0, len(rels))
	for _, r := range rels {
		if r.MemoryID == selfID {
			continue
		}
		k := key{r.MemoryID, r.Type}
		if i, ok := seen[k]; ok {
			if r.Strength > out[i].Strength {
				out[i].Strength = r.Strength
			}
			continue
		}
		seen[k] = len(out)
		out = append(out, r)
	}
	return out
}
