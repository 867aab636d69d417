package core

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/dgraph-io/ristretto"

	"github.com/hireflow/careermem-go/pkg/intelligence"
	"github.com/hireflow/careermem-go/pkg/llm"
	"github.com/hireflow/careermem-go/pkg/logging"
	"github.com/hireflow/careermem-go/pkg/memory"
	"github.com/hireflow/careermem-go/pkg/storage"
)

// MemoryStoreKind is the document kind of per-user memory stores.
const MemoryStoreKind = "memory_store"

// Client is the careermem client for per-user memory management.
//
// It provides:
//   - Adding memories with similarity-based reinforcement instead of duplication
//   - Typed, text and LLM-assisted search
//   - Relevance-ranked retrieval for prompt construction
//   - Best-effort LLM extraction of memories from messages
//   - Decay, merge and retention maintenance
//
// Every mutation of one user's store runs through a single serialized
// compare-and-swap path, so concurrent messages from the same user never
// create duplicate memories. The client is safe for concurrent use.
//
// Example usage:
//
//	config, _ := core.LoadConfigFromEnv()
//	client, _ := core.NewClient(config)
//	defer client.Close()
//
//	result, _ := client.AddMemory(ctx, "user_001", memory.Candidate{
//	    Type:     memory.TypeSkill,
//	    Category: memory.CategoryTechnical,
//	    Content:  "Proficient in Python programming",
//	})
type Client struct {
	// config contains the client configuration.
	config *Config

	// docs is the underlying document store.
	docs storage.DocumentStore

	// stores gives typed, serialized access to memory store documents.
	stores *storage.Repository[memory.UserStore]

	// cache is the document read cache (nil if disabled).
	cache *ristretto.Cache

	// llm is the LLM provider (nil if not configured).
	llm llm.Provider

	// intelligence bundles the memory algorithms.
	intelligence *intelligence.Manager

	// tasks runs background extraction.
	tasks *TaskRunner

	logger logging.Logger
	clock  func() time.Time

	// snowflakeNode generates unique IDs for memories.
	snowflakeNode *snowflake.Node

	closeOnce sync.Once
}

// AddResult is the outcome of adding one memory.
type AddResult struct {
	// Memory is the new entry, or the existing entry after reinforcement.
	Memory memory.Entry `json:"memory"`

	// Reinforced is true when an existing memory absorbed the candidate.
	Reinforced bool `json:"reinforced"`
}

// ExtractionResult is the outcome of the extraction pipeline.
type ExtractionResult struct {
	Memories       []memory.Entry `json:"memories"`
	Insights       []string       `json:"insights"`
	ProfileUpdates map[string]any `json:"profileUpdates"`
}

func emptyExtraction() *ExtractionResult {
	return &ExtractionResult{
		Memories:       []memory.Entry{},
		Insights:       []string{},
		ProfileUpdates: map[string]any{},
	}
}

// MaintenanceReport summarizes one maintenance pass over a user's store.
type MaintenanceReport struct {
	UserID      string   `json:"user_id"`
	Decayed     int      `json:"decayed"`
	Deactivated int      `json:"deactivated"`
	Merged      int      `json:"merged"`
	Purged      int      `json:"purged"`
	MergedIDs   []string `json:"merged_ids,omitempty"`
}

// NewClient creates a careermem client from configuration.
//
// The client is initialized with:
//   - Document store (memory, SQLite, PostgreSQL, MySQL or Badger)
//   - LLM provider (OpenAI, DeepSeek, Qwen, Anthropic, Gemini, Ollama; optional)
//   - Logger built from cfg.Logging
//
// Parameters:
//   - cfg: Configuration containing store, LLM and algorithm settings
//
// Returns a new Client instance, or an error if initialization fails.
func NewClient(cfg *Config) (*Client, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := logging.New(&logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})

	docs, err := OpenStore(cfg.Store, logger)
	if err != nil {
		return nil, err
	}

	provider, err := OpenLLM(context.Background(), cfg.LLM)
	if err != nil {
		_ = docs.Close()
		return nil, err
	}

	client, err := NewClientWithProviders(cfg, docs, provider, WithLogger(logger))
	if err != nil {
		_ = docs.Close()
		if provider != nil {
			_ = provider.Close()
		}
		return nil, err
	}
	return client, nil
}

// NewClientWithProviders creates a client over an existing document store
// and LLM provider. provider may be nil.
//
// The client takes ownership of docs and provider and closes them in Close.
//
// Example:
//
//	client, err := core.NewClientWithProviders(core.DefaultConfig(), memstore.New(), nil)
func NewClientWithProviders(cfg *Config, docs storage.DocumentStore, provider llm.Provider, opts ...ClientOption) (*Client, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if docs == nil {
		return nil, NewMemoryError("NewClient", fmt.Errorf("%w: document store is required", ErrInvalidConfig))
	}

	o := &clientOptions{logger: logging.NoOpLogger{}, clock: time.Now}
	for _, opt := range opts {
		opt(o)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return nil, NewMemoryError("NewClient", err)
	}

	repoOpts := []storage.RepositoryOption{storage.WithRepositoryLogger(o.logger)}
	var cache *ristretto.Cache
	if cfg.Cache.Enabled {
		cache, err = storage.NewCache(cfg.Cache.MaxBytes)
		if err != nil {
			return nil, NewMemoryError("NewClient", err)
		}
		repoOpts = append(repoOpts, storage.WithCache(cache, cfg.Cache.TTL.Std()))
	}

	manager := intelligence.NewManager(provider, &intelligence.Config{
		DuplicateThreshold:   cfg.Memory.DuplicateThreshold,
		MergeThreshold:       cfg.Memory.MergeThreshold,
		DecayRate:            cfg.Memory.DecayRate,
		NegativeExamples:     cfg.Memory.NegativeExamples,
		ProfileMinConfidence: 0.3,
		ExtractionPrompt:     cfg.Memory.ExtractionPrompt,
	})

	return &Client{
		config:        cfg,
		docs:          docs,
		stores:        storage.NewRepository[memory.UserStore](docs, MemoryStoreKind, repoOpts...),
		cache:         cache,
		llm:           provider,
		intelligence:  manager,
		tasks:         NewTaskRunner(cfg.Timeouts.Background.Std(), o.logger),
		logger:        o.logger,
		clock:         o.clock,
		snowflakeNode: node,
	}, nil
}

// Config returns the client configuration.
func (c *Client) Config() *Config { return c.config }

// DocumentStore returns the document store, for collaborators that keep
// their own documents next to memory stores (conversations).
func (c *Client) DocumentStore() storage.DocumentStore { return c.docs }

// Cache returns the document read cache, or nil when disabled.
func (c *Client) Cache() *ristretto.Cache { return c.cache }

// LLM returns the LLM provider, or nil when none is configured.
func (c *Client) LLM() llm.Provider { return c.llm }

// Logger returns the client logger.
func (c *Client) Logger() logging.Logger { return c.logger }

// Tasks returns the background task runner.
func (c *Client) Tasks() *TaskRunner { return c.tasks }

// Now returns the client's current time in UTC.
func (c *Client) Now() time.Time { return c.clock().UTC() }

// AddMemory adds a memory to a user's store.
//
// If an active memory of the same type and category is similar enough, it is
// reinforced and returned instead of adding a new entry. Otherwise a new entry
// is appended with confidence 0.8 when the candidate has none. When the store
// is at capacity, room is made first (see memory.UserStore.MakeRoom).
//
// Parameters:
//   - ctx: Context for cancellation
//   - userID: Owner of the memory store (created on first use)
//   - candidate: The proposed memory
//   - opts: Optional parameters (WithReplaceContent)
//
// Returns the stored or reinforced memory, or an error wrapping ErrValidation
// for a bad candidate.
func (c *Client) AddMemory(ctx context.Context, userID string, candidate memory.Candidate, opts ...AddOption) (*AddResult, error) {
	if err := validateUser(userID); err != nil {
		return nil, NewMemoryError("AddMemory", err)
	}
	if err := candidate.Validate(); err != nil {
		return nil, NewMemoryError("AddMemory", fmt.Errorf("%w: %w", ErrValidation, err))
	}
	o := applyAddOptions(opts)

	var result AddResult
	_, err := c.mutate(ctx, userID, true, func(s *memory.UserStore, now time.Time) error {
		result = c.addToStore(s, candidate, o.ReplaceContent, now)
		c.rebuildProfile(s)
		return nil
	})
	if err != nil {
		return nil, storageError("AddMemory", err)
	}
	return &result, nil
}

// AddCandidates adds several memories in one serialized write. Candidates
// deduplicate against the store and against each other; invalid ones are
// skipped and logged.
func (c *Client) AddCandidates(ctx context.Context, userID string, candidates []memory.Candidate, opts ...AddOption) ([]AddResult, error) {
	return c.ApplyExtraction(ctx, userID, &intelligence.Extraction{Candidates: candidates}, "", opts...)
}

// ApplyExtraction writes an extraction to a user's store in one serialized
// mutation: every candidate goes through the add path, insights are appended
// to the analytics (tagged with insightSource) and profile hints are merged.
// The profile is recomputed once at the end.
func (c *Client) ApplyExtraction(ctx context.Context, userID string, ext *intelligence.Extraction, insightSource string, opts ...AddOption) ([]AddResult, error) {
	if err := validateUser(userID); err != nil {
		return nil, NewMemoryError("ApplyExtraction", err)
	}
	if ext == nil {
		return []AddResult{}, nil
	}
	valid := make([]memory.Candidate, 0, len(ext.Candidates))
	for _, cand := range ext.Candidates {
		if err := cand.Validate(); err != nil {
			c.logger.Warn("skipping invalid memory candidate", "user_id", userID, "error", err)
			continue
		}
		valid = append(valid, cand)
	}
	if len(valid) == 0 && len(ext.Insights) == 0 && len(ext.ProfileUpdates) == 0 {
		return []AddResult{}, nil
	}
	o := applyAddOptions(opts)

	var results []AddResult
	_, err := c.mutate(ctx, userID, true, func(s *memory.UserStore, now time.Time) error {
		results = make([]AddResult, 0, len(valid))
		for _, cand := range valid {
			results = append(results, c.addToStore(s, cand, o.ReplaceContent, now))
		}
		if insightSource == "" {
			insightSource = "extraction"
		}
		s.AddInsights(ext.Insights, insightSource, now)
		s.MergeProfileHints(ext.ProfileUpdates)
		c.rebuildProfile(s)
		return nil
	})
	if err != nil {
		return nil, storageError("ApplyExtraction", err)
	}
	return results, nil
}

// addToStore reinforces a duplicate or appends a new entry. s is the
// mutation's private copy.
func (c *Client) addToStore(s *memory.UserStore, cand memory.Candidate, replace bool, now time.Time) AddResult {
	if idx, ok := c.intelligence.Dedup.FindDuplicate(s.Entries, cand); ok {
		s.Entries[idx] = s.Entries[idx].Reinforce(cand, now, replace)
		return AddResult{Memory: s.Entries[idx].Clone(), Reinforced: true}
	}

	if evicted := s.MakeRoom(c.maxMemories(s)); len(evicted) > 0 {
		c.logger.Info("memory store at capacity", "user_id", s.UserID, "evicted", evicted)
	}
	if cand.Importance == "" {
		cand.Importance = c.intelligence.Importance.Evaluate(cand)
	}
	entry := memory.NewEntry(c.nextID(), cand, now, c.config.Memory.DecayRate)
	s.Entries = append(s.Entries, entry)
	return AddResult{Memory: entry.Clone()}
}

// GetStore returns a user's full memory store.
//
// Returns an error wrapping ErrNotFound if the user has none.
func (c *Client) GetStore(ctx context.Context, userID string) (*memory.UserStore, error) {
	s, err := c.load(ctx, userID)
	if err != nil {
		return nil, storageError("GetStore", err)
	}
	return s, nil
}

// GetProfile returns a user's derived profile.
func (c *Client) GetProfile(ctx context.Context, userID string) (*memory.Profile, error) {
	s, err := c.load(ctx, userID)
	if err != nil {
		return nil, storageError("GetProfile", err)
	}
	p := s.Profile
	return &p, nil
}

// GetMemory returns one memory by id.
func (c *Client) GetMemory(ctx context.Context, userID, memoryID string) (*memory.Entry, error) {
	s, err := c.load(ctx, userID)
	if err != nil {
		return nil, storageError("GetMemory", err)
	}
	e, ok := s.Get(memoryID)
	if !ok {
		return nil, NewMemoryError("GetMemory", fmt.Errorf("%w: memory %s", ErrNotFound, memoryID))
	}
	return &e, nil
}

// GetByType returns active memories of type t.
//
// Parameters:
//   - ctx: Context for cancellation
//   - userID: Owner of the memory store
//   - t: Memory type to list
//   - opts: Optional parameters (WithMinConfidence, WithImportance, WithSortBy, WithTypeLimit)
//
// Returns the matching memories; a user without a store has none.
func (c *Client) GetByType(ctx context.Context, userID string, t memory.Type, opts ...GetByTypeOption) ([]memory.Entry, error) {
	if !t.Valid() {
		return nil, NewMemoryError("GetByType", fmt.Errorf("%w: unknown type %q", ErrValidation, t))
	}
	o := applyGetByTypeOptions(opts)

	active, err := c.activeSnapshot(ctx, userID)
	if err != nil {
		return nil, storageError("GetByType", err)
	}
	out := make([]memory.Entry, 0)
	for _, e := range active {
		if e.Type != t || e.Confidence < o.MinConfidence {
			continue
		}
		if o.Importance != "" && e.Importance != o.Importance {
			continue
		}
		out = append(out, e)
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch o.SortBy {
		case SortByRecency:
			if !a.Decay.LastReinforced.Equal(b.Decay.LastReinforced) {
				return a.Decay.LastReinforced.After(b.Decay.LastReinforced)
			}
		case SortByReinforcement:
			if a.Decay.ReinforcementCount != b.Decay.ReinforcementCount {
				return a.Decay.ReinforcementCount > b.Decay.ReinforcementCount
			}
		}
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		return a.ID < b.ID
	})
	if o.Limit > 0 && len(out) > o.Limit {
		out = out[:o.Limit]
	}
	return out, nil
}

// Search finds active memories whose content, tags, type or category contain
// query (case-insensitive), ordered by confidence.
func (c *Client) Search(ctx context.Context, userID, query string, opts ...SearchOption) ([]memory.Entry, error) {
	if strings.TrimSpace(query) == "" {
		return nil, NewMemoryError("Search", fmt.Errorf("%w: empty query", ErrValidation))
	}
	o := applySearchOptions(opts)

	active, err := c.activeSnapshot(ctx, userID)
	if err != nil {
		return nil, storageError("Search", err)
	}
	return limitEntries(textSearch(active, query, o.MinConfidence), o.Limit), nil
}

func textSearch(active []memory.Entry, query string, minConfidence float64) []memory.Entry {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]memory.Entry, 0)
	for _, e := range active {
		if e.Confidence < minConfidence {
			continue
		}
		if matchesQuery(e, q) {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence > out[j].Confidence
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func matchesQuery(e memory.Entry, q string) bool {
	if strings.Contains(strings.ToLower(e.Content), q) ||
		strings.Contains(string(e.Type), q) ||
		strings.Contains(string(e.Category), q) {
		return true
	}
	for _, tag := range e.Tags {
		if strings.Contains(tag, q) {
			return true
		}
	}
	return false
}

// SemanticSearch runs a text search and, when it finds fewer than
// Memory.SemanticFallbackBelow results and an LLM is configured, asks the LLM
// which other active memories relate to query. LLM failures and unusable
// answers are logged and leave the text results unchanged.
func (c *Client) SemanticSearch(ctx context.Context, userID, query string, opts ...SearchOption) ([]memory.Entry, error) {
	if strings.TrimSpace(query) == "" {
		return nil, NewMemoryError("SemanticSearch", fmt.Errorf("%w: empty query", ErrValidation))
	}
	o := applySearchOptions(opts)

	active, err := c.activeSnapshot(ctx, userID)
	if err != nil {
		return nil, storageError("SemanticSearch", err)
	}
	hits := textSearch(active, query, o.MinConfidence)
	if len(hits) >= c.config.Memory.SemanticFallbackBelow || c.intelligence.Selector == nil || len(active) == 0 {
		return limitEntries(hits, o.Limit), nil
	}

	llmCtx, cancel := c.withTimeout(ctx, c.config.Timeouts.LLM.Std())
	defer cancel()
	ids, err := c.intelligence.Selector.Select(llmCtx, query, active)
	if err != nil {
		c.logger.Warn("semantic search fallback failed", "user_id", userID, "error", llmError(err))
		return limitEntries(hits, o.Limit), nil
	}

	byID := make(map[string]memory.Entry, len(active))
	for _, e := range active {
		byID[e.ID] = e
	}
	seen := make(map[string]struct{}, len(hits))
	for _, e := range hits {
		seen[e.ID] = struct{}{}
	}
	for _, id := range ids {
		e, ok := byID[id]
		if !ok || e.Confidence < o.MinConfidence {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		hits = append(hits, e)
	}
	return limitEntries(hits, o.Limit), nil
}

// GetRelevant returns the memories most relevant to rctx, best first.
//
// Memories tagged with any context tag, of any context type, or of high or
// critical importance are scored (see intelligence.Score) and the top limit
// returned (limit <= 0 means 10). Each returned memory has its access count
// bumped through the serialized write path; a failed bump is logged and does
// not fail the read.
func (c *Client) GetRelevant(ctx context.Context, userID string, rctx intelligence.RelevanceContext, limit int) ([]intelligence.ScoredEntry, error) {
	active, err := c.activeSnapshot(ctx, userID)
	if err != nil {
		return nil, storageError("GetRelevant", err)
	}
	now := c.Now()
	ranked := c.intelligence.Ranker.Rank(active, rctx, limit, now)
	if len(ranked) == 0 {
		return ranked, nil
	}

	ids := make(map[string]struct{}, len(ranked))
	for _, r := range ranked {
		ids[r.Entry.ID] = struct{}{}
	}
	_, err = c.mutate(ctx, userID, false, func(s *memory.UserStore, _ time.Time) error {
		for i, e := range s.Entries {
			if _, ok := ids[e.ID]; ok && e.IsActive {
				s.Entries[i] = e.Touch(now)
			}
		}
		return nil
	})
	if err != nil {
		c.logger.Warn("failed to record memory usage", "user_id", userID, "error", err)
		return ranked, nil
	}
	for i := range ranked {
		ranked[i].Entry = ranked[i].Entry.Touch(now)
	}
	return ranked, nil
}

// UpdateProfile recomputes a user's profile and analytics from the active
// memories.
func (c *Client) UpdateProfile(ctx context.Context, userID string) (*memory.Profile, error) {
	s, err := c.mutate(ctx, userID, false, func(s *memory.UserStore, _ time.Time) error {
		c.rebuildProfile(s)
		return nil
	})
	if err != nil {
		return nil, storageError("UpdateProfile", err)
	}
	p := s.Profile
	return &p, nil
}

// RunMaintenance decays, merges and purges one user's memories.
//
// The pass:
//  1. Decays every active memory (unless Settings.AutoDecay is off); entries
//     that fall below 0.2 confidence are deactivated for good
//  2. Merges active near-duplicates pairwise, bounded by Settings.MaxMemories
//  3. Purges inactive entries older than Settings.RetentionDays
//  4. Recomputes the profile if membership changed
//
// Returns the report, or an error wrapping ErrNotFound for an unknown user.
func (c *Client) RunMaintenance(ctx context.Context, userID string) (*MaintenanceReport, error) {
	var report MaintenanceReport
	_, err := c.mutate(ctx, userID, false, func(s *memory.UserStore, now time.Time) error {
		report = MaintenanceReport{UserID: userID}

		if s.Settings.AutoDecay {
			entries, dr := c.intelligence.Decay.Apply(s.Entries, now)
			s.Entries = entries
			report.Decayed = dr.Decayed
			report.Deactivated = dr.Deactivated
		}

		entries, merges := c.intelligence.Dedup.MergeDuplicates(s.Entries, c.maxMemories(s), now)
		s.Entries = entries
		report.Merged = len(merges)
		for _, m := range merges {
			report.MergedIDs = append(report.MergedIDs, m.RemovedID)
		}

		if s.Settings.RetentionDays > 0 {
			report.Purged = s.PurgeInactive(time.Duration(s.Settings.RetentionDays)*24*time.Hour, now)
		}

		if report.Decayed == 0 && report.Deactivated == 0 && report.Merged == 0 && report.Purged == 0 {
			return storage.ErrSkipWrite
		}
		if report.Deactivated > 0 || report.Merged > 0 || report.Purged > 0 {
			c.rebuildProfile(s)
		}
		return nil
	})
	if err != nil {
		return nil, storageError("RunMaintenance", err)
	}
	return &report, nil
}

// VerifyMemory marks a memory as confirmed by the user, which also
// reinforces it.
func (c *Client) VerifyMemory(ctx context.Context, userID, memoryID, method string) (*memory.Entry, error) {
	if method == "" {
		method = "user"
	}
	e, err := c.updateEntry(ctx, userID, memoryID, func(e memory.Entry, now time.Time) (memory.Entry, error) {
		return e.Verify(method, now), nil
	})
	if err != nil {
		return nil, storageError("VerifyMemory", err)
	}
	return e, nil
}

// RateMemory records a 1-5 effectiveness rating for a memory.
func (c *Client) RateMemory(ctx context.Context, userID, memoryID string, rating int) (*memory.Entry, error) {
	if rating < 1 || rating > 5 {
		return nil, NewMemoryError("RateMemory", fmt.Errorf("%w: rating must be 1-5, got %d", ErrValidation, rating))
	}
	e, err := c.updateEntry(ctx, userID, memoryID, func(e memory.Entry, now time.Time) (memory.Entry, error) {
		return e.Rate(rating, now), nil
	})
	if err != nil {
		return nil, storageError("RateMemory", err)
	}
	return e, nil
}

// LinkMemories records that memoryID relates to targetID.
func (c *Client) LinkMemories(ctx context.Context, userID, memoryID, targetID string, rel memory.RelationType, strength float64) (*memory.Entry, error) {
	if !rel.Valid() {
		return nil, NewMemoryError("LinkMemories", fmt.Errorf("%w: unknown relation %q", ErrValidation, rel))
	}
	if memoryID == targetID {
		return nil, NewMemoryError("LinkMemories", fmt.Errorf("%w: a memory cannot link to itself", ErrValidation))
	}
	var linked memory.Entry
	_, err := c.mutate(ctx, userID, false, func(s *memory.UserStore, now time.Time) error {
		if s.Index(targetID) < 0 {
			return fmt.Errorf("%w: memory %s", ErrNotFound, targetID)
		}
		i := s.Index(memoryID)
		if i < 0 {
			return fmt.Errorf("%w: memory %s", ErrNotFound, memoryID)
		}
		s.Entries[i] = s.Entries[i].Link(memory.Relationship{MemoryID: targetID, Type: rel, Strength: strength}, now)
		linked = s.Entries[i].Clone()
		return nil
	})
	if err != nil {
		return nil, storageError("LinkMemories", err)
	}
	return &linked, nil
}

// DeleteMemory physically removes a memory at the user's request.
func (c *Client) DeleteMemory(ctx context.Context, userID, memoryID string) error {
	_, err := c.mutate(ctx, userID, false, func(s *memory.UserStore, _ time.Time) error {
		if !s.Remove(memoryID) {
			return fmt.Errorf("%w: memory %s", ErrNotFound, memoryID)
		}
		c.rebuildProfile(s)
		return nil
	})
	return storageError("DeleteMemory", err)
}

// UpdateSettings replaces a user's retention settings. A zero MaxMemories
// selects the configured default.
func (c *Client) UpdateSettings(ctx context.Context, userID string, settings memory.Settings) (*memory.Settings, error) {
	if settings.MaxMemories < 0 || settings.RetentionDays < 0 {
		return nil, NewMemoryError("UpdateSettings", fmt.Errorf("%w: settings must not be negative", ErrValidation))
	}
	if settings.MaxMemories == 0 {
		settings.MaxMemories = c.config.Memory.MaxMemories
	}
	s, err := c.mutate(ctx, userID, true, func(s *memory.UserStore, _ time.Time) error {
		s.Settings = settings
		return nil
	})
	if err != nil {
		return nil, storageError("UpdateSettings", err)
	}
	out := s.Settings
	return &out, nil
}

// DeleteUser removes a user's memory store.
func (c *Client) DeleteUser(ctx context.Context, userID string) error {
	if err := validateUser(userID); err != nil {
		return NewMemoryError("DeleteUser", err)
	}
	storeCtx, cancel := c.withTimeout(ctx, c.config.Timeouts.Store.Std())
	defer cancel()
	return storageError("DeleteUser", c.stores.Delete(storeCtx, userID))
}

// ListUsers returns the ids of users that have a memory store, in id order.
func (c *Client) ListUsers(ctx context.Context, limit, offset int) ([]string, error) {
	keys, err := c.stores.Keys(ctx, &storage.ListOptions{Limit: limit, Offset: offset})
	if err != nil {
		return nil, storageError("ListUsers", err)
	}
	return keys, nil
}

// Close waits for background tasks and closes the LLM provider, the
// document store and the cache.
func (c *Client) Close() error {
	var errs []error
	c.closeOnce.Do(func() {
		c.tasks.Close()
		if c.llm != nil {
			if err := c.llm.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		if c.docs != nil {
			if err := c.docs.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		if c.cache != nil {
			c.cache.Close()
		}
	})
	return errors.Join(errs...)
}

// mutate runs fn on a private copy of the user's store through the
// repository's serialized compare-and-swap path and refreshes analytics
// before the write. When create is false a missing store is ErrNotFound.
func (c *Client) mutate(ctx context.Context, userID string, create bool, fn func(s *memory.UserStore, now time.Time) error) (*memory.UserStore, error) {
	if err := validateUser(userID); err != nil {
		return nil, err
	}
	storeCtx, cancel := c.withTimeout(ctx, c.config.Timeouts.Store.Std())
	defer cancel()

	return c.stores.Mutate(storeCtx, userID, userID, func(s *memory.UserStore, exists bool) error {
		now := c.Now()
		if !exists {
			if !create {
				return fmt.Errorf("%w: memory store for user %s", ErrNotFound, userID)
			}
			*s = *memory.NewUserStore(userID, now)
			s.Settings.MaxMemories = c.config.Memory.MaxMemories
		}
		if err := fn(s, now); err != nil {
			return err
		}
		s.RefreshAnalytics(now)
		return nil
	})
}

// updateEntry applies fn to one entry inside a serialized mutation.
func (c *Client) updateEntry(ctx context.Context, userID, memoryID string, fn func(e memory.Entry, now time.Time) (memory.Entry, error)) (*memory.Entry, error) {
	var updated memory.Entry
	_, err := c.mutate(ctx, userID, false, func(s *memory.UserStore, now time.Time) error {
		i := s.Index(memoryID)
		if i < 0 {
			return fmt.Errorf("%w: memory %s", ErrNotFound, memoryID)
		}
		e, err := fn(s.Entries[i], now)
		if err != nil {
			return err
		}
		s.Entries[i] = e
		updated = e.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (c *Client) load(ctx context.Context, userID string) (*memory.UserStore, error) {
	if err := validateUser(userID); err != nil {
		return nil, err
	}
	storeCtx, cancel := c.withTimeout(ctx, c.config.Timeouts.Store.Std())
	defer cancel()
	return c.stores.Load(storeCtx, userID)
}

// activeSnapshot returns the active entries of a user's store. A user without
// a store has no memories.
func (c *Client) activeSnapshot(ctx context.Context, userID string) ([]memory.Entry, error) {
	s, err := c.load(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return []memory.Entry{}, nil
	}
	if err != nil {
		return nil, err
	}
	return s.Active(), nil
}

func (c *Client) rebuildProfile(s *memory.UserStore) {
	s.Profile = c.intelligence.Profile.Build(s.Entries, s.ProfileHints)
}

func (c *Client) maxMemories(s *memory.UserStore) int {
	if s.Settings.MaxMemories > 0 {
		return s.Settings.MaxMemories
	}
	return c.config.Memory.MaxMemories
}

func (c *Client) nextID() string {
	return c.snowflakeNode.Generate().String()
}

func (c *Client) withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

func validateUser(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("%w: user id is required", ErrValidation)
	}
	return nil
}

func limitEntries(entries []memory.Entry, limit int) []memory.Entry {
	if limit > 0 && len(entries) > limit {
		return entries[:limit]
	}
	return entries
}
