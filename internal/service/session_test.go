package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/relaylabs/chatrelay/internal/service"
	"github.com/relaylabs/chatrelay/internal/store/memory"
	"github.com/relaylabs/chatrelay/pkg/logger"
)

func TestLoginIsIdempotent(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	svc := service.NewSessionService(st, logger.NewNop())

	first, err := svc.GetOrCreateUser(ctx, "alice")
	require.NoError(t, err)
	require.NotEmpty(t, first.ID)

	second, err := svc.GetOrCreateUser(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)

	history, err := st.LoadHistory(ctx, first.ID)
	require.NoError(t, err)
	require.Empty(t, history)
}

func TestLoginTrimsWhitespace(t *testing.T) {
	ctx := context.Background()
	svc := service.NewSessionService(memory.New(), logger.NewNop())

	first, err := svc.GetOrCreateUser(ctx, "  alice  ")
	require.NoError(t, err)

	second, err := svc.GetOrCreateUser(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, "alice", first.DisplayName)
}

func TestLoginRejectsEmptyName(t *testing.T) {
	ctx := context.Background()
	svc := service.NewSessionService(memory.New(), logger.NewNop())

	for _, name := range []string{"", "   ", "\t\n"} {
		_, err := svc.GetOrCreateUser(ctx, name)
		require.ErrorIs(t, err, service.ErrInvalidInput)
	}
}

func TestLoginDistinctNamesDistinctIDs(t *testing.T) {
	ctx := context.Background()
	svc := service.NewSessionService(memory.New(), logger.NewNop())

	alice, err := svc.GetOrCreateUser(ctx, "alice")
	require.NoError(t, err)
	bob, err := svc.GetOrCreateUser(ctx, "bob")
	require.NoError(t, err)
	require.NotEqual(t, alice.ID, bob.ID)
}
