// Package memory defines the per-user memory model: the Entry fact record,
// its enumerations, and the UserStore aggregate that carries a derived
// Profile and Analytics snapshot.
//
// Entry values are treated as immutable. Mutators such as Reinforce, Decay
// and Absorb return an updated copy instead of editing the receiver.
package memory

import "strings"

// Type classifies what kind of fact a memory records.
type Type string

// Memory types.
const (
	TypePreference         Type = "preference"
	TypeSkill              Type = "skill"
	TypeCareerGoal         Type = "career_goal"
	TypeExperience         Type = "experience"
	TypeAchievement        Type = "achievement"
	TypeChallenge          Type = "challenge"
	TypePersonalityTrait   Type = "personality_trait"
	TypeCommunicationStyle Type = "communication_style"
	TypeWorkStyle          Type = "work_style"
	TypeIndustryKnowledge  Type = "industry_knowledge"
	TypeToolPreference     Type = "tool_preference"
	TypeFeedbackPattern    Type = "feedback_pattern"
	TypeEducation          Type = "education"
	TypeLearningGoal       Type = "learning_goal"
	TypeWeakness           Type = "weakness"
)

// AllTypes lists every known memory type.
var AllTypes = []Type{
	TypePreference, TypeSkill, TypeCareerGoal, TypeExperience, TypeAchievement,
	TypeChallenge, TypePersonalityTrait, TypeCommunicationStyle, TypeWorkStyle,
	TypeIndustryKnowledge, TypeToolPreference, TypeFeedbackPattern, TypeEducation,
	TypeLearningGoal, TypeWeakness,
}

// Valid reports whether t is a known memory type.
func (t Type) Valid() bool {
	for _, known := range AllTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Category groups memory types into broad areas.
type Category string

// Memory categories.
const (
	CategoryPersonal     Category = "personal"
	CategoryProfessional Category = "professional"
	CategoryTechnical    Category = "technical"
	CategoryBehavioral   Category = "behavioral"
	CategoryContextual   Category = "contextual"
)

// AllCategories lists every known category.
var AllCategories = []Category{
	CategoryPersonal, CategoryProfessional, CategoryTechnical, CategoryBehavioral, CategoryContextual,
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	for _, known := range AllCategories {
		if c == known {
			return true
		}
	}
	return false
}

// Importance is the coarse priority of a memory.
type Importance string

// Importance levels, lowest first.
const (
	ImportanceLow      Importance = "low"
	ImportanceMedium   Importance = "medium"
	ImportanceHigh     Importance = "high"
	ImportanceCritical Importance = "critical"
)

// Valid reports whether i is a known importance level.
func (i Importance) Valid() bool {
	return i.Rank() > 0
}

// Rank orders importance levels: low=1 .. critical=4, unknown=0.
func (i Importance) Rank() int {
	switch i {
	case ImportanceLow:
		return 1
	case ImportanceMedium:
		return 2
	case ImportanceHigh:
		return 3
	case ImportanceCritical:
		return 4
	default:
		return 0
	}
}

// AtLeast reports whether i ranks at or above min.
func (i Importance) AtLeast(min Importance) bool {
	return i.Rank() >= min.Rank()
}

// ExtractionMethod records how a memory was obtained.
type ExtractionMethod string

// Extraction methods.
const (
	MethodExplicit         ExtractionMethod = "explicit"
	MethodInferred         ExtractionMethod = "inferred"
	MethodPatternDetected  ExtractionMethod = "pattern_detected"
	MethodUserConfirmed    ExtractionMethod = "user_confirmed"
	MethodAIExtracted      ExtractionMethod = "ai_extracted"
	MethodSummaryExtracted ExtractionMethod = "summary_extracted"
	MethodUserAdded        ExtractionMethod = "user_added"
)

// RelationType describes how two memories relate.
type RelationType string

// Relationship types.
const (
	RelationReinforces  RelationType = "reinforces"
	RelationContradicts RelationType = "contradicts"
	RelationBuildsOn    RelationType = "builds_on"
	RelationSpecifies   RelationType = "specifies"
	RelationGeneralizes RelationType = "generalizes"
)

// Valid reports whether r is a known relationship type.
func (r RelationType) Valid() bool {
	switch r {
	case RelationReinforces, RelationContradicts, RelationBuildsOn, RelationSpecifies, RelationGeneralizes:
		return true
	}
	return false
}

// ParseType normalizes s ("Career Goal", "career-goal") to a Type.
func ParseType(s string) (Type, bool) {
	t := Type(normalizeEnum(s))
	return t, t.Valid()
}

// ParseCategory normalizes s to a Category.
func ParseCategory(s string) (Category, bool) {
	c := Category(normalizeEnum(s))
	return c, c.Valid()
}

// ParseImportance normalizes s to an Importance.
func ParseImportance(s string) (Importance, bool) {
	i := Importance(normalizeEnum(s))
	return i, i.Valid()
}

func normalizeEnum(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "-", "_")
	return strings.ReplaceAll(s, " ", "_")
}
