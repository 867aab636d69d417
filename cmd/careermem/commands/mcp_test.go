package commands

import (
	"context"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hireflow/careermem-go/pkg/core"
	"github.com/hireflow/careermem-go/pkg/storage/memstore"
)

func setupTools(t *testing.T) *memoryTools {
	t.Helper()
	client, err := core.NewClientWithProviders(core.DefaultConfig(), memstore.New(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return &memoryTools{client: client}
}

func callTool(t *testing.T, handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), args map[string]any) (string, bool) {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	res, err := handler(context.Background(), req)
	require.NoError(t, err)
	require.NotEmpty(t, res.Content)
	return res.Content[0].(mcp.TextContent).Text, res.IsError
}

func TestMCPRememberAndRecall(t *testing.T) {
	tools := setupTools(t)

	remember := map[string]any{
		"user_id": "user_001",
		"content": "Six years of backend development in Go",
		"type":    "skill",
		"tags":    "go, backend",
	}
	text, isErr := callTool(t, tools.rememberHandler, remember)
	require.False(t, isErr, text)
	assert.Contains(t, text, "saved")

	text, isErr = callTool(t, tools.rememberHandler, remember)
	require.False(t, isErr, text)
	assert.Contains(t, text, "Reinforced memory")

	text, isErr = callTool(t, tools.recallHandler, map[string]any{"user_id": "user_001", "tags": "go", "limit": float64(3)})
	require.False(t, isErr, text)
	assert.Contains(t, text, "Six years of backend development in Go")

	text, isErr = callTool(t, tools.searchHandler, map[string]any{"user_id": "user_001", "query": "backend"})
	require.False(t, isErr, text)
	assert.Contains(t, text, "Six years of backend development in Go")

	text, isErr = callTool(t, tools.maintenanceHandler, map[string]any{"user_id": "user_001"})
	require.False(t, isErr, text)
	assert.Contains(t, text, `"user_id": "user_001"`)

	text, isErr = callTool(t, tools.profileHandler, map[string]any{"user_id": "user_001"})
	assert.False(t, isErr, text)
}

func TestMCPRejectsBadInput(t *testing.T) {
	tools := setupTools(t)

	tests := []struct {
		name    string
		handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)
		args    map[string]any
	}{
		{
			name:    "unknown memory type",
			handler: tools.rememberHandler,
			args:    map[string]any{"user_id": "user_001", "content": "Likes chess", "type": "hobby"},
		},
		{
			name:    "unknown importance",
			handler: tools.rememberHandler,
			args:    map[string]any{"user_id": "user_001", "content": "Knows Go", "type": "skill", "importance": "urgent"},
		},
		{
			name:    "unknown recall type",
			handler: tools.recallHandler,
			args:    map[string]any{"user_id": "user_001", "types": "skill,nope"},
		},
		{
			name:    "profile of unknown user",
			handler: tools.profileHandler,
			args:    map[string]any{"user_id": "nobody"},
		},
		{
			name:    "missing user",
			handler: tools.rememberHandler,
			args:    map[string]any{"content": "Knows Go", "type": "skill"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, isErr := callTool(t, tt.handler, tt.args)
			assert.True(t, isErr)
		})
	}

	req := mcp.CallToolRequest{}
	res, err := tools.searchHandler(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"go", "backend"}, splitList(" go, ,backend "))
	assert.Nil(t, splitList(nil))
	assert.Equal(t, 10, intArg(map[string]any{}, "limit", 10))
	assert.Equal(t, 3, intArg(map[string]any{"limit": float64(3)}, "limit", 10))
}
