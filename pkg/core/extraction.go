package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hireflow/careermem-go/pkg/intelligence"
	"github.com/hireflow/careermem-go/pkg/memory"
)

// ExtractMemoriesFromMessage runs the extraction pipeline on one message.
//
// The flow:
//  1. Picks the user's top memories as negative examples
//  2. Asks the LLM for {memories, insights, profileUpdates} under the LLM timeout
//  3. Adds every valid candidate through the reinforcement path as ai_extracted
//  4. Appends insights and profile hints and recomputes the profile
//
// Extraction is best-effort: an LLM failure, a timeout, malformed JSON or an
// empty memories list yields an empty result and a nil error. Only store
// failures (including exhausted write conflicts) are returned, so background
// callers can report them.
//
// Parameters:
//   - ctx: Context for cancellation
//   - userID: Owner of the memory store
//   - text: The user message
//   - ectx: Where the message came from (conversation, message, page, tags)
//
// Returns the added or reinforced memories, insights and profile hints.
//
// Example:
//
//	result, err := client.ExtractMemoriesFromMessage(ctx, "user_001",
//	    "I've led a team of five backend engineers for two years",
//	    intelligence.ExtractionContext{ConversationID: convID, Tags: []string{"leadership"}},
//	)
func (c *Client) ExtractMemoriesFromMessage(ctx context.Context, userID, text string, ectx intelligence.ExtractionContext) (*ExtractionResult, error) {
	return c.extract(ctx, userID, text, ectx, memory.MethodAIExtracted, "message")
}

// ExtractMemoriesAsync runs ExtractMemoriesFromMessage as a background task.
// It returns immediately; failures are logged and published on
// Tasks().Errors(). It returns false if the client is closing.
func (c *Client) ExtractMemoriesAsync(ctx context.Context, userID, text string, ectx intelligence.ExtractionContext) bool {
	return c.tasks.Go(ctx, "extract_memories", func(ctx context.Context) error {
		_, err := c.ExtractMemoriesFromMessage(ctx, userID, text, ectx)
		return err
	})
}

func (c *Client) extract(ctx context.Context, userID, text string, ectx intelligence.ExtractionContext, method memory.ExtractionMethod, insightSource string) (*ExtractionResult, error) {
	if err := validateUser(userID); err != nil {
		return nil, NewMemoryError("ExtractMemories", err)
	}
	if c.intelligence.Extractor == nil {
		c.logger.Debug("memory extraction skipped, no llm configured", "user_id", userID)
		return emptyExtraction(), nil
	}
	if strings.TrimSpace(text) == "" {
		return emptyExtraction(), nil
	}

	active, err := c.activeSnapshot(ctx, userID)
	if err != nil {
		return emptyExtraction(), storageError("ExtractMemories", err)
	}
	known := make([]memory.Entry, 0, c.config.Memory.NegativeExamples)
	for _, s := range c.intelligence.Ranker.Top(active, intelligence.RelevanceContext{Tags: ectx.Tags}, c.config.Memory.NegativeExamples, c.Now()) {
		known = append(known, s.Entry)
	}

	llmCtx, cancel := c.withTimeout(ctx, c.config.Timeouts.LLM.Std())
	ext, err := c.intelligence.Extractor.Extract(llmCtx, text, ectx, known, method)
	cancel()
	if err != nil {
		c.logger.Warn("memory extraction failed",
			"user_id", userID,
			"conversation_id", ectx.ConversationID,
			"error", extractionError(err),
		)
		return emptyExtraction(), nil
	}
	if len(ext.Candidates) == 0 {
		c.logger.Debug("extraction produced no valid memories", "user_id", userID)
		return emptyExtraction(), nil
	}

	added, err := c.ApplyExtraction(ctx, userID, ext, insightSource)
	if err != nil {
		c.logger.Error("failed to store extracted memories", "user_id", userID, "error", err)
		return emptyExtraction(), err
	}

	result := emptyExtraction()
	for _, a := range added {
		result.Memories = append(result.Memories, a.Memory)
	}
	result.Insights = append(result.Insights, ext.Insights...)
	for k, v := range ext.ProfileUpdates {
		result.ProfileUpdates[k] = v
	}
	c.logger.Info("memories extracted",
		"user_id", userID,
		"memories", len(result.Memories),
		"insights", len(result.Insights),
	)
	return result, nil
}

// extractionError classifies a swallowed extraction failure for logging.
func extractionError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrUpstreamTimeout, err)
	}
	return fmt.Errorf("%w: %w", ErrExtractionFailed, err)
}
