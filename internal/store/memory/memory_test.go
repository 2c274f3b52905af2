package memory_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/relaylabs/chatrelay/internal/model"
	"github.com/relaylabs/chatrelay/internal/store"
	"github.com/relaylabs/chatrelay/internal/store/memory"
)

func newUser(id, name string) *model.User {
	return &model.User{
		ID:          id,
		DisplayName: name,
		CreatedAt:   time.Now().UTC(),
	}
}

func TestCreateAndFindUser(t *testing.T) {
	ctx := context.Background()
	st := memory.New()

	require.NoError(t, st.CreateUserWithHistory(ctx, newUser("u1", "alice")))

	byName, err := st.FindUserByName(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, "u1", byName.ID)

	byID, err := st.GetUser(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, "alice", byID.DisplayName)

	// The empty history exists from the moment the user does.
	history, err := st.LoadHistory(ctx, "u1")
	require.NoError(t, err)
	require.Empty(t, history)
}

func TestCreateDuplicateName(t *testing.T) {
	ctx := context.Background()
	st := memory.New()

	require.NoError(t, st.CreateUserWithHistory(ctx, newUser("u1", "alice")))
	err := st.CreateUserWithHistory(ctx, newUser("u2", "alice"))
	require.ErrorIs(t, err, store.ErrAlreadyExists)
}

func TestUnknownUser(t *testing.T) {
	ctx := context.Background()
	st := memory.New()

	_, err := st.GetUser(ctx, "nope")
	require.ErrorIs(t, err, store.ErrNotFound)

	err = st.AppendTurn(ctx, "nope", model.Turn{User: "hi", Assistant: "yo"})
	require.ErrorIs(t, err, store.ErrNotFound)

	// Load stays total: unknown users read as empty history.
	history, err := st.LoadHistory(ctx, "nope")
	require.NoError(t, err)
	require.Empty(t, history)
}

func TestAppendTruncatesOldestFirst(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	require.NoError(t, st.CreateUserWithHistory(ctx, newUser("u1", "alice")))

	total := store.MaxTurns + 5
	for i := 0; i < total; i++ {
		turn := model.Turn{
			User:      fmt.Sprintf("msg-%d", i),
			Assistant: fmt.Sprintf("reply-%d", i),
		}
		require.NoError(t, st.AppendTurn(ctx, "u1", turn))
	}

	history, err := st.LoadHistory(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, history, store.MaxTurns)

	// Oldest five evicted, most recent turn present, order preserved.
	require.Equal(t, "msg-5", history[0].User)
	require.Equal(t, fmt.Sprintf("msg-%d", total-1), history[len(history)-1].User)
	for i, turn := range history {
		require.Equal(t, fmt.Sprintf("msg-%d", i+5), turn.User)
	}
}

func TestConcurrentAppendsLoseNothing(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	require.NoError(t, st.CreateUserWithHistory(ctx, newUser("u1", "alice")))

	const workers = 20

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			turn := model.Turn{User: fmt.Sprintf("msg-%d", i), Assistant: "ok"}
			require.NoError(t, st.AppendTurn(ctx, "u1", turn))
		}(i)
	}
	wg.Wait()

	history, err := st.LoadHistory(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, history, workers)

	seen := make(map[string]int)
	for _, turn := range history {
		seen[turn.User]++
	}
	for i := 0; i < workers; i++ {
		require.Equal(t, 1, seen[fmt.Sprintf("msg-%d", i)])
	}
}
