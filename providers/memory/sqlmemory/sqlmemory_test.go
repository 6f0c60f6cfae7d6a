package sqlmemory

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leofalp/plantcare/providers/ai"
	"github.com/leofalp/plantcare/providers/memory"
)

func openTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "history.db"), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStore_AppendAndReadBack(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	conv, err := store.Conversation(ctx, "c1")
	require.NoError(t, err)
	require.NoError(t, memory.AppendTurn(ctx, conv,
		ai.NewUserMessage("How much light does a snake plant need?"),
		ai.NewAssistantMessage("Low to bright indirect light."),
	))

	n, err := conv.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	all, err := conv.AllMessages(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, ai.RoleUser, all[0].Role)
	assert.Equal(t, "Low to bright indirect light.", all[1].Content)
}

func TestStore_LastMessagesOldestFirst(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	conv, _ := store.Conversation(ctx, "c1")

	for i := 0; i < 5; i++ {
		require.NoError(t, conv.AppendMessage(ctx, &ai.Message{Role: ai.RoleUser, Content: fmt.Sprint(i)}))
	}

	last, err := conv.LastMessages(ctx, 2)
	require.NoError(t, err)
	require.Len(t, last, 2)
	assert.Equal(t, "3", last[0].Content)
	assert.Equal(t, "4", last[1].Content)

	none, err := conv.LastMessages(ctx, 0)
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestStore_ConversationsAreIsolated(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	a, _ := store.Conversation(ctx, "a")
	b, _ := store.Conversation(ctx, "b")
	require.NoError(t, a.AppendMessage(ctx, &ai.Message{Role: ai.RoleUser, Content: "x"}))

	n, err := b.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, a.ClearMessages(ctx))
	n, _ = a.Count(ctx)
	assert.Zero(t, n)

	_, err = store.Conversation(ctx, "")
	assert.ErrorIs(t, err, memory.ErrInvalidConversation)
}

func TestStore_MaxMessagesTrimsOldest(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t, WithMaxMessages(3))
	conv, _ := store.Conversation(ctx, "c1")
	other, _ := store.Conversation(ctx, "c2")
	require.NoError(t, other.AppendMessage(ctx, &ai.Message{Role: ai.RoleUser, Content: "keep"}))

	for i := 0; i < 5; i++ {
		require.NoError(t, conv.AppendMessage(ctx, &ai.Message{Role: ai.RoleUser, Content: fmt.Sprint(i)}))
	}

	all, err := conv.AllMessages(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "2", all[0].Content)

	n, _ := other.Count(ctx)
	assert.Equal(t, 1, n)
}

func TestStore_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "history.db")

	store, err := Open(path)
	require.NoError(t, err)
	conv, _ := store.Conversation(ctx, "c1")
	require.NoError(t, conv.AppendMessage(ctx, &ai.Message{Role: ai.RoleUser, Content: "persist me"}))
	require.NoError(t, store.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()
	conv, _ = reopened.Conversation(ctx, "c1")
	all, err := conv.AllMessages(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "persist me", all[0].Content)
}

func TestStore_StoresTextOnly(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	conv, _ := store.Conversation(ctx, "c1")

	require.NoError(t, conv.AppendMessage(ctx, &ai.Message{Role: ai.RoleUser, ContentParts: []ai.ContentPart{
		ai.NewImagePart("image/jpeg", "QUJD"),
		ai.NewTextPart("Why are the leaves yellow?"),
	}}))

	all, _ := conv.AllMessages(ctx)
	require.Len(t, all, 1)
	assert.Equal(t, "Why are the leaves yellow?", all[0].Content)
	assert.Empty(t, all[0].ContentParts)
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := Open("  ")
	assert.Error(t, err)
}
