package intelligence

import (
	"sort"
	"strings"

	"github.com/hireflow/careermem-go/pkg/memory"
)

// maxProfileItems bounds each list in a derived profile.
const maxProfileItems = 20

// careerStages maps a stage to keywords that suggest it, most senior first.
var careerStages = []struct {
	stage    string
	keywords []string
}{
	{"executive", []string{"vp ", "vice president", "director", "head of", "chief", "cto", "ceo", "executive"}},
	{"senior", []string{"senior", "lead ", "tech lead", "principal", "staff engineer", "architect", "manager", "10 years", "15 years"}},
	{"mid", []string{"mid-level", "mid level", "3 years", "4 years", "5 years", "6 years", "several years"}},
	{"entry", []string{"junior", "entry level", "entry-level", "first job", "1 year", "2 years"}},
	{"student", []string{"student", "intern", "graduat", "bootcamp", "university", "college"}},
}

// ProfileBuilder derives a Profile from a user's active memories.
type ProfileBuilder struct {
	// minConfidence drops weak memories from the profile.
	minConfidence float64
}

// NewProfileBuilder creates a builder that ignores memories below minConfidence.
func NewProfileBuilder(minConfidence float64) *ProfileBuilder {
	return &ProfileBuilder{minConfidence: minConfidence}
}

// Build recomputes the profile from scratch. It is a pure function of entries
// and hints: hints fill fields the memories leave empty.
func (b *ProfileBuilder) Build(entries []memory.Entry, hints map[string]any) memory.Profile {
	byType := make(map[memory.Type][]memory.Entry)
	for _, e := range entries {
		if !e.IsActive || e.Confidence < b.minConfidence {
			continue
		}
		byType[e.Type] = append(byType[e.Type], e)
	}
	for t := range byType {
		list := byType[t]
		sort.SliceStable(list, func(i, j int) bool {
			if list[i].Confidence != list[j].Confidence {
				return list[i].Confidence > list[j].Confidence
			}
			return list[i].ID < list[j].ID
		})
	}

	p := memory.Profile{
		Skills:            contents(byType[memory.TypeSkill]),
		Industries:        contents(byType[memory.TypeIndustryKnowledge]),
		PersonalityTraits: contents(byType[memory.TypePersonalityTrait]),
		Goals:             contents(byType[memory.TypeCareerGoal], byType[memory.TypeLearningGoal]),
		Preferences:       contents(byType[memory.TypePreference], byType[memory.TypeToolPreference], byType[memory.TypeWorkStyle]),
	}
	if styles := byType[memory.TypeCommunicationStyle]; len(styles) > 0 {
		p.CommunicationStyle = styles[0].Content
	}
	p.CareerStage, p.CareerStageConfidence = careerStage(
		byType[memory.TypeExperience], byType[memory.TypeCareerGoal],
		byType[memory.TypeEducation], byType[memory.TypeAchievement],
	)

	applyHints(&p, hints)
	return p
}

func contents(groups ...[]memory.Entry) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, g := range groups {
		for _, e := range g {
			key := strings.ToLower(e.Content)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, e.Content)
			if len(out) == maxProfileItems {
				return out
			}
		}
	}
	return out
}

// careerStage picks the stage whose keywords are backed by the most total
// confidence. The returned confidence is the mean confidence of the
// supporting memories.
func careerStage(groups ...[]memory.Entry) (string, float64) {
	type tally struct {
		sum   float64
		count int
	}
	tallies := make(map[string]*tally)
	for _, g := range groups {
		for _, e := range g {
			content := strings.ToLower(e.Content) + " "
			for _, cs := range careerStages {
				if containsAny(content, cs.keywords) {
					t := tallies[cs.stage]
					if t == nil {
						t = &tally{}
						tallies[cs.stage] = t
					}
					t.sum += e.Confidence
					t.count++
					break
				}
			}
		}
	}
	best, bestSum := "", 0.0
	for _, cs := range careerStages {
		if t := tallies[cs.stage]; t != nil && t.sum > bestSum {
			best, bestSum = cs.stage, t.sum
		}
	}
	if best == "" {
		return "", 0
	}
	t := tallies[best]
	return best, memory.Clamp(t.sum / float64(t.count))
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

func applyHints(p *memory.Profile, hints map[string]any) {
	if len(hints) == 0 {
		return
	}
	if p.CareerStage == "" {
		if stage, ok := hintString(hints, "careerStage", "career_stage"); ok {
			p.CareerStage = strings.ToLower(stage)
			p.CareerStageConfidence = 0.5
		}
	}
	if p.CommunicationStyle == "" {
		if style, ok := hintString(hints, "communicationStyle", "communication_style"); ok {
			p.CommunicationStyle = style
		}
	}
	p.Industries = appendHintList(p.Industries, hints, "industries")
	p.Skills = appendHintList(p.Skills, hints, "skills")
	p.Goals = appendHintList(p.Goals, hints, "goals")
	p.PersonalityTraits = appendHintList(p.PersonalityTraits, hints, "personalityTraits", "personality_traits")
	p.Preferences = appendHintList(p.Preferences, hints, "preferences")
}

func hintString(hints map[string]any, keys ...string) (string, bool) {
	for _, k := range keys {
		if s, ok := hints[k].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s), true
		}
	}
	return "", false
}

func appendHintList(list []string, hints map[string]any, keys ...string) []string {
	seen := make(map[string]struct{}, len(list))
	for _, s := range list {
		seen[strings.ToLower(s)] = struct{}{}
	}
	for _, k := range keys {
		var values []string
		switch v := hints[k].(type) {
		case []any:
			for _, item := range v {
				if s, ok := item.(string); ok {
					values = append(values, s)
				}
			}
		case []string:
			values = v
		}
		for _, s := range values {
			s = strings.TrimSpace(s)
			if s == "" || len(list) >= maxProfileItems {
				continue
			}
			if _, ok := seen[strings.ToLower(s)]; ok {
				continue
			}
			seen[strings.ToLower(s)] = struct{}{}
			list = append(list, s)
		}
	}
	return list
}
