package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/hireflow/careermem-go/pkg/core"
	"github.com/hireflow/careermem-go/pkg/intelligence"
	"github.com/hireflow/careermem-go/pkg/memory"
)

const mcpServerVersion = "0.3.0"

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve memory tools over stdio",
	Long: `Run a Model Context Protocol server on stdin/stdout so an assistant can
recall, search and record a user's career memories.

Tools: recall_memories, search_memories, remember, user_profile, run_maintenance.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := openClient()
		if err != nil {
			return err
		}
		defer client.Close()

		client.Logger().Info("mcp server starting on stdio", "version", mcpServerVersion)
		return server.ServeStdio(newMCPServer(client))
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

// memoryTools implements the MCP tool handlers over a client.
type memoryTools struct {
	client *core.Client
}

func newMCPServer(client *core.Client) *server.MCPServer {
	t := &memoryTools{client: client}
	s := server.NewMCPServer("careermem", mcpServerVersion)

	s.AddTool(mcp.NewTool("recall_memories",
		mcp.WithDescription("Returns the user's memories most relevant to a set of topics, best first."),
		mcp.WithString("user_id", mcp.Required(), mcp.Description("User whose memories to rank")),
		mcp.WithString("tags", mcp.Description("Comma separated topic tags, e.g. \"fintech,interview\"")),
		mcp.WithString("types", mcp.Description("Comma separated memory types, e.g. \"skill,career_goal\"")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of memories (default 10)")),
	), t.recallHandler)

	s.AddTool(mcp.NewTool("search_memories",
		mcp.WithDescription("Searches the user's memories by text, with LLM matching when few hits are found."),
		mcp.WithString("user_id", mcp.Required(), mcp.Description("User whose memories to search")),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search text")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of memories (default 10)")),
	), t.searchHandler)

	s.AddTool(mcp.NewTool("remember",
		mcp.WithDescription("Records a fact about the user. Near-duplicates reinforce the existing memory."),
		mcp.WithString("user_id", mcp.Required(), mcp.Description("User the fact is about")),
		mcp.WithString("content", mcp.Required(), mcp.Description("The fact, as one short sentence")),
		mcp.WithString("type", mcp.Required(), mcp.Description("Memory type, e.g. skill, career_goal, preference")),
		mcp.WithString("category", mcp.Description("personal, professional, technical, behavioral or contextual (default professional)")),
		mcp.WithString("importance", mcp.Description("low, medium, high or critical (default medium)")),
		mcp.WithString("tags", mcp.Description("Comma separated tags")),
	), t.rememberHandler)

	s.AddTool(mcp.NewTool("user_profile",
		mcp.WithDescription("Returns the profile derived from the user's memories."),
		mcp.WithString("user_id", mcp.Required(), mcp.Description("User whose profile to return")),
	), t.profileHandler)

	s.AddTool(mcp.NewTool("run_maintenance",
		mcp.WithDescription("Decays stale memories, merges duplicates and purges expired ones for a user."),
		mcp.WithString("user_id", mcp.Required(), mcp.Description("User whose store to maintain")),
	), t.maintenanceHandler)

	return s
}

func (t *memoryTools) recallHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]any)
	if !ok {
		return mcp.NewToolResultError("Invalid args"), nil
	}
	userID, _ := args["user_id"].(string)

	rctx := intelligence.RelevanceContext{Tags: splitList(args["tags"])}
	for _, name := range splitList(args["types"]) {
		typ, ok := memory.ParseType(name)
		if !ok {
			return mcp.NewToolResultError(fmt.Sprintf("Unknown memory type %q", name)), nil
		}
		rctx.Types = append(rctx.Types, typ)
	}

	scored, err := t.client.GetRelevant(ctx, userID, rctx, intArg(args, "limit", 10))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Recall failed: %v", err)), nil
	}
	if len(scored) == 0 {
		return mcp.NewToolResultText("No memories yet."), nil
	}
	var sb strings.Builder
	sb.WriteString("Relevant memories:\n\n")
	for _, s := range scored {
		fmt.Fprintf(&sb, "[%s] (%s, score %.2f) %s\n", s.Entry.ID, s.Entry.Type, s.Score, s.Entry.Content)
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func (t *memoryTools) searchHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]any)
	if !ok {
		return mcp.NewToolResultError("Invalid args"), nil
	}
	userID, _ := args["user_id"].(string)
	query, _ := args["query"].(string)

	entries, err := t.client.SemanticSearch(ctx, userID, query, core.WithLimit(intArg(args, "limit", 10)))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Search failed: %v", err)), nil
	}
	if len(entries) == 0 {
		return mcp.NewToolResultText("No matching memories."), nil
	}
	var sb strings.Builder
	sb.WriteString("Matching memories:\n\n")
	for _, e := range entries {
		fmt.Fprintf(&sb, "[%s] (%s, confidence %.2f) %s\n", e.ID, e.Type, e.Confidence, e.Content)
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func (t *memoryTools) rememberHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]any)
	if !ok {
		return mcp.NewToolResultError("Invalid args"), nil
	}
	userID, _ := args["user_id"].(string)
	content, _ := args["content"].(string)

	typeName, _ := args["type"].(string)
	typ, ok := memory.ParseType(typeName)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("Unknown memory type %q", typeName)), nil
	}
	category := memory.CategoryProfessional
	if name, _ := args["category"].(string); name != "" {
		if category, ok = memory.ParseCategory(name); !ok {
			return mcp.NewToolResultError(fmt.Sprintf("Unknown category %q", name)), nil
		}
	}
	importance := memory.ImportanceMedium
	if name, _ := args["importance"].(string); name != "" {
		if importance, ok = memory.ParseImportance(name); !ok {
			return mcp.NewToolResultError(fmt.Sprintf("Unknown importance %q", name)), nil
		}
	}

	result, err := t.client.AddMemory(ctx, userID, memory.Candidate{
		Type:       typ,
		Category:   category,
		Content:    content,
		Importance: importance,
		Tags:       splitList(args["tags"]),
		Source:     memory.Source{ExtractionMethod: memory.MethodAIExtracted},
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Remember failed: %v", err)), nil
	}
	if result.Reinforced {
		return mcp.NewToolResultText(fmt.Sprintf("Reinforced memory '%s' (confidence %.2f).", result.Memory.ID, result.Memory.Confidence)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Memory '%s' saved.", result.Memory.ID)), nil
}

func (t *memoryTools) profileHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]any)
	if !ok {
		return mcp.NewToolResultError("Invalid args"), nil
	}
	userID, _ := args["user_id"].(string)

	profile, err := t.client.GetProfile(ctx, userID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Profile failed: %v", err)), nil
	}
	return jsonResult(profile)
}

func (t *memoryTools) maintenanceHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]any)
	if !ok {
		return mcp.NewToolResultError("Invalid args"), nil
	}
	userID, _ := args["user_id"].(string)

	report, err := t.client.RunMaintenance(ctx, userID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Maintenance failed: %v", err)), nil
	}
	return jsonResult(report)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Encoding failed: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// splitList reads a comma separated string argument.
func splitList(v any) []string {
	s, _ := v.(string)
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// intArg reads a numeric argument. JSON numbers arrive as float64.
func intArg(args map[string]any, key string, def int) int {
	switch v := args[key].(type) {
	case float64:
		if v > 0 {
			return int(v)
		}
	case int:
		if v > 0 {
			return v
		}
	}
	return def
}
