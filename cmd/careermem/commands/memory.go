package commands

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hireflow/careermem-go/pkg/core"
	"github.com/hireflow/careermem-go/pkg/intelligence"
	"github.com/hireflow/careermem-go/pkg/memory"
)

var memoryCmd = &cobra.Command{
	Use:   "memory",
	Short: "Inspect and seed a user's memory store",
}

var memoryAddCmd = &cobra.Command{
	Use:   "add <user-id> <content>",
	Short: "Add a memory",
	Long: `Add a memory for a user. A near-duplicate of an existing memory
reinforces it instead of creating a new entry.

Example:
  careermem memory add user_001 "Six years of Go" --type skill --tag go --tag backend`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		candidate, err := candidateFromFlags(cmd, args[1])
		if err != nil {
			return err
		}
		replace, _ := cmd.Flags().GetBool("replace")

		client, err := openClient()
		if err != nil {
			return err
		}
		defer client.Close()

		result, err := client.AddMemory(cmd.Context(), args[0], candidate, core.WithReplaceContent(replace))
		if err != nil {
			return err
		}
		return printJSON(result)
	},
}

var memorySearchCmd = &cobra.Command{
	Use:   "search <user-id> <query>",
	Short: "Search memories by text",
	Long: `Search active memories by content and tags. With --semantic the LLM
picks extra matches when the text search finds too few.

Example:
  careermem memory search user_001 "remote" --limit 5`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		semantic, _ := cmd.Flags().GetBool("semantic")
		limit, _ := cmd.Flags().GetInt("limit")
		minConfidence, _ := cmd.Flags().GetFloat64("min-confidence")

		client, err := openClient()
		if err != nil {
			return err
		}
		defer client.Close()

		opts := []core.SearchOption{core.WithLimit(limit), core.WithSearchMinConfidence(minConfidence)}
		var entries []memory.Entry
		if semantic {
			entries, err = client.SemanticSearch(cmd.Context(), args[0], args[1], opts...)
		} else {
			entries, err = client.Search(cmd.Context(), args[0], args[1], opts...)
		}
		if err != nil {
			return err
		}
		return printEntries(entries)
	},
}

var memoryRelevantCmd = &cobra.Command{
	Use:   "relevant <user-id>",
	Short: "Rank memories for a context",
	Long: `Score the user's memories against a set of tags and types and print
the best ones. Returned memories count as accessed.

Example:
  careermem memory relevant user_001 --tag fintech --type career_goal --limit 5`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rctx, err := relevanceFromFlags(cmd)
		if err != nil {
			return err
		}
		limit, _ := cmd.Flags().GetInt("limit")

		client, err := openClient()
		if err != nil {
			return err
		}
		defer client.Close()

		scored, err := client.GetRelevant(cmd.Context(), args[0], rctx, limit)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "SCORE\tID\tTYPE\tCONTENT")
		for _, s := range scored {
			fmt.Fprintf(w, "%.3f\t%s\t%s\t%s\n", s.Score, s.Entry.ID, s.Entry.Type, s.Entry.Content)
		}
		return w.Flush()
	},
}

var memoryProfileCmd = &cobra.Command{
	Use:   "profile <user-id>",
	Short: "Show the derived user profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		refresh, _ := cmd.Flags().GetBool("refresh")

		client, err := openClient()
		if err != nil {
			return err
		}
		defer client.Close()

		var profile *memory.Profile
		if refresh {
			profile, err = client.UpdateProfile(cmd.Context(), args[0])
		} else {
			profile, err = client.GetProfile(cmd.Context(), args[0])
		}
		if err != nil {
			return err
		}
		return printJSON(profile)
	},
}

var memoryListCmd = &cobra.Command{
	Use:   "list <user-id>",
	Short: "List active memories",
	Long: `List a user's active memories, optionally of one type.

Example:
  careermem memory list user_001 --type skill --sort reinforcement`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		typeName, _ := cmd.Flags().GetString("type")
		sortBy, _ := cmd.Flags().GetString("sort")
		limit, _ := cmd.Flags().GetInt("limit")

		client, err := openClient()
		if err != nil {
			return err
		}
		defer client.Close()

		if typeName == "" {
			store, err := client.GetStore(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			active := store.Active()
			if limit > 0 && len(active) > limit {
				active = active[:limit]
			}
			return printEntries(active)
		}

		t, ok := memory.ParseType(typeName)
		if !ok {
			return fmt.Errorf("unknown memory type %q", typeName)
		}
		entries, err := client.GetByType(cmd.Context(), args[0], t,
			core.WithSortBy(core.SortBy(sortBy)),
			core.WithTypeLimit(limit),
		)
		if err != nil {
			return err
		}
		return printEntries(entries)
	},
}

func init() {
	memoryAddCmd.Flags().String("type", string(memory.TypeSkill), "memory type")
	memoryAddCmd.Flags().String("category", string(memory.CategoryProfessional), "memory category")
	memoryAddCmd.Flags().String("importance", string(memory.ImportanceMedium), "low, medium, high or critical")
	memoryAddCmd.Flags().Float64("confidence", 0, "initial confidence (default when zero)")
	memoryAddCmd.Flags().StringSlice("tag", nil, "tag (repeatable)")
	memoryAddCmd.Flags().Bool("replace", false, "replace the content of a matching memory")

	memorySearchCmd.Flags().Bool("semantic", false, "fall back to LLM matching")
	memorySearchCmd.Flags().Int("limit", 10, "maximum results")
	memorySearchCmd.Flags().Float64("min-confidence", 0, "drop memories below this confidence")

	memoryRelevantCmd.Flags().StringSlice("tag", nil, "context tag (repeatable)")
	memoryRelevantCmd.Flags().StringSlice("type", nil, "context memory type (repeatable)")
	memoryRelevantCmd.Flags().Int("limit", 10, "maximum results")

	memoryProfileCmd.Flags().Bool("refresh", false, "recompute the profile before printing")

	memoryListCmd.Flags().String("type", "", "only list this memory type")
	memoryListCmd.Flags().String("sort", string(core.SortByConfidence), "confidence, recency or reinforcement (with --type)")
	memoryListCmd.Flags().Int("limit", 0, "maximum results")

	memoryCmd.AddCommand(memoryAddCmd, memorySearchCmd, memoryRelevantCmd, memoryProfileCmd, memoryListCmd)
	rootCmd.AddCommand(memoryCmd)
}

// candidateFromFlags builds a user-added candidate from the add flags.
func candidateFromFlags(cmd *cobra.Command, content string) (memory.Candidate, error) {
	typeName, _ := cmd.Flags().GetString("type")
	categoryName, _ := cmd.Flags().GetString("category")
	importanceName, _ := cmd.Flags().GetString("importance")
	confidence, _ := cmd.Flags().GetFloat64("confidence")
	tags, _ := cmd.Flags().GetStringSlice("tag")

	t, ok := memory.ParseType(typeName)
	if !ok {
		return memory.Candidate{}, fmt.Errorf("unknown memory type %q", typeName)
	}
	category, ok := memory.ParseCategory(categoryName)
	if !ok {
		return memory.Candidate{}, fmt.Errorf("unknown memory category %q", categoryName)
	}
	importance, ok := memory.ParseImportance(importanceName)
	if !ok {
		return memory.Candidate{}, fmt.Errorf("unknown importance %q", importanceName)
	}

	candidate := memory.Candidate{
		Type:       t,
		Category:   category,
		Content:    content,
		Importance: importance,
		Tags:       tags,
		Source:     memory.Source{ExtractionMethod: memory.MethodUserAdded},
	}
	if confidence > 0 {
		candidate.Confidence = &confidence
	}
	return candidate, nil
}

// relevanceFromFlags reads --tag and --type into a relevance context.
func relevanceFromFlags(cmd *cobra.Command) (intelligence.RelevanceContext, error) {
	tags, _ := cmd.Flags().GetStringSlice("tag")
	typeNames, _ := cmd.Flags().GetStringSlice("type")

	rctx := intelligence.RelevanceContext{Tags: tags}
	for _, name := range typeNames {
		t, ok := memory.ParseType(name)
		if !ok {
			return rctx, fmt.Errorf("unknown memory type %q", name)
		}
		rctx.Types = append(rctx.Types, t)
	}
	return rctx, nil
}

func printEntries(entries []memory.Entry) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTYPE\tCONFIDENCE\tTAGS\tCONTENT")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%.2f\t%s\t%s\n", e.ID, e.Type, e.Confidence, strings.Join(e.Tags, ","), e.Content)
	}
	return w.Flush()
}
