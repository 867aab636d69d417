package intelligence

import (
	"github.com/hireflow/careermem-go/pkg/llm"
)

// Manager bundles the memory algorithms used by the client.
//
// It integrates:
//   - DedupManager: duplicate detection, reinforcement targets and merging
//   - DecayManager: time-based confidence erosion
//   - Ranker: relevance scoring for prompt context
//   - ProfileBuilder: profile derivation from active memories
//   - ImportanceEvaluator: default importance for new candidates
//   - FactExtractor and SemanticSelector: LLM-backed steps (nil without an LLM)
//
// Example usage:
//
//	manager := NewManager(llmProvider, DefaultConfig())
//	idx, dup := manager.Dedup.FindDuplicate(store.Entries, candidate)
type Manager struct {
	Dedup      *DedupManager
	Decay      *DecayManager
	Ranker     *Ranker
	Profile    *ProfileBuilder
	Importance *ImportanceEvaluator
	Extractor  *FactExtractor
	Selector   *SemanticSelector

	config *Config
}

// Config contains configuration for the memory algorithms.
type Config struct {
	// DuplicateThreshold is the similarity a candidate must exceed to reinforce
	// an existing memory. Default: 0.8
	DuplicateThreshold float64

	// MergeThreshold is the similarity two stored memories must exceed to be
	// merged by maintenance. Default: 0.85
	MergeThreshold float64

	// DecayRate is the per-day confidence loss for new memories. Default: 0.1
	DecayRate float64

	// NegativeExamples is how many known memories are shown to the extractor.
	// Default: 5
	NegativeExamples int

	// ProfileMinConfidence drops weaker memories from the derived profile.
	// Default: 0.3
	ProfileMinConfidence float64

	// ExtractionPrompt replaces the default extraction system prompt when set.
	ExtractionPrompt string
}

// DefaultConfig returns the default algorithm configuration.
func DefaultConfig() *Config {
	return &Config{
		DuplicateThreshold:   DefaultDuplicateThreshold,
		MergeThreshold:       DefaultMergeThreshold,
		DecayRate:            0.1,
		NegativeExamples:     5,
		ProfileMinConfidence: 0.3,
	}
}

// NewManager creates a manager. provider may be nil, in which case the
// LLM-backed components are nil and callers skip those steps.
//
// Parameters:
//   - provider: LLM provider for extraction and semantic selection (optional)
//   - config: Algorithm configuration (nil uses defaults)
func NewManager(provider llm.Provider, config *Config) *Manager {
	if config == nil {
		config = DefaultConfig()
	}
	if config.NegativeExamples <= 0 {
		config.NegativeExamples = 5
	}

	m := &Manager{
		Dedup:      NewDedupManager(config.DuplicateThreshold, config.MergeThreshold),
		Decay:      NewDecayManager(config.DecayRate),
		Ranker:     NewRanker(),
		Profile:    NewProfileBuilder(config.ProfileMinConfidence),
		Importance: NewImportanceEvaluator(),
		config:     config,
	}
	if provider != nil {
		if config.ExtractionPrompt != "" {
			m.Extractor = NewFactExtractorWithPrompt(provider, config.ExtractionPrompt)
		} else {
			m.Extractor = NewFactExtractor(provider)
		}
		m.Selector = NewSemanticSelector(provider)
	}
	return m
}

// Config returns the manager's configuration.
func (m *Manager) Config() *Config {
	return m.config
}
