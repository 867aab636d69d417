package core_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	careermem "github.com/hireflow/careermem-go/pkg/core"
	"github.com/hireflow/careermem-go/pkg/memory"
)

func TestVerifyAndRateMemory(t *testing.T) {
	client, _ := setupClientTest(t, nil, nil)
	ctx := context.Background()

	added, err := client.AddMemory(ctx, testUser, skill("Writes Terraform modules", 0.6))
	require.NoError(t, err)

	verified, err := client.VerifyMemory(ctx, testUser, added.Memory.ID, "")
	require.NoError(t, err)
	assert.True(t, verified.Verification.Verified)
	assert.Equal(t, "user", verified.Verification.Method)
	assert.Greater(t, verified.Confidence, added.Memory.Confidence)

	rated, err := client.RateMemory(ctx, testUser, added.Memory.ID, 4)
	require.NoError(t, err)
	require.NotNil(t, rated.Usage.EffectivenessRating)
	assert.Equal(t, 4, *rated.Usage.EffectivenessRating)

	_, err = client.RateMemory(ctx, testUser, added.Memory.ID, 6)
	assert.ErrorIs(t, err, careermem.ErrValidation)

	_, err = client.VerifyMemory(ctx, testUser, "missing", "")
	assert.ErrorIs(t, err, careermem.ErrNotFound)
}

func TestLinkMemories(t *testing.T) {
	client, _ := setupClientTest(t, nil, nil)
	ctx := context.Background()

	base, err := client.AddMemory(ctx, testUser, skill("Writes Terraform modules", 0.8))
	require.NoError(t, err)
	goal, err := client.AddMemory(ctx, testUser, memory.Candidate{
		Type: memory.TypeCareerGoal, Category: memory.CategoryProfessional, Content: "Wants a platform engineering role",
	})
	require.NoError(t, err)

	linked, err := client.LinkMemories(ctx, testUser, goal.Memory.ID, base.Memory.ID, memory.RelationBuildsOn, 0.7)
	require.NoError(t, err)
	require.Len(t, linked.Relationships, 1)
	assert.Equal(t, base.Memory.ID, linked.Relationships[0].MemoryID)

	tests := []struct {
		name    string
		from    string
		to      string
		rel     memory.RelationType
		wantErr error
	}{
		{name: "self link", from: goal.Memory.ID, to: goal.Memory.ID, rel: memory.RelationBuildsOn, wantErr: careermem.ErrValidation},
		{name: "unknown relation", from: goal.Memory.ID, to: base.Memory.ID, rel: "likes", wantErr: careermem.ErrValidation},
		{name: "unknown target", from: goal.Memory.ID, to: "missing", rel: memory.RelationBuildsOn, wantErr: careermem.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := client.LinkMemories(ctx, testUser, tt.from, tt.to, tt.rel, 0.5)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestDeleteMemory(t *testing.T) {
	client, _ := setupClientTest(t, nil, nil)
	ctx := context.Background()

	added, err := client.AddMemory(ctx, testUser, skill("Writes Terraform modules", 0.8))
	require.NoError(t, err)

	require.NoError(t, client.DeleteMemory(ctx, testUser, added.Memory.ID))

	_, err = client.GetMemory(ctx, testUser, added.Memory.ID)
	assert.ErrorIs(t, err, careermem.ErrNotFound)
	assert.ErrorIs(t, client.DeleteMemory(ctx, testUser, added.Memory.ID), careermem.ErrNotFound)

	profile, err := client.GetProfile(ctx, testUser)
	require.NoError(t, err)
	assert.Empty(t, profile.Skills)
}

func TestUsersLifecycle(t *testing.T) {
	client, _ := setupClientTest(t, nil, nil)
	ctx := context.Background()

	for _, user := range []string{"user_a", "user_b"} {
		_, err := client.AddMemory(ctx, user, skill("Writes Terraform modules", 0.8))
		require.NoError(t, err)
	}

	users, err := client.ListUsers(ctx, 10, 0)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"user_a", "user_b"}, users)

	require.NoError(t, client.DeleteUser(ctx, "user_a"))
	_, err = client.GetStore(ctx, "user_a")
	assert.ErrorIs(t, err, careermem.ErrNotFound)

	_, err = client.UpdateSettings(ctx, "user_b", memory.Settings{RetentionDays: -1})
	assert.ErrorIs(t, err, careermem.ErrValidation)
}
