package memory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xraph/tokenledger"
	"github.com/xraph/tokenledger/event"
	"github.com/xraph/tokenledger/store/memory"
	"github.com/xraph/tokenledger/store/storetest"
)

func TestStore(t *testing.T) {
	storetest.Run(t, memory.New())
}

func TestClosed(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	require.NoError(t, s.Close())

	_, err := s.Load(ctx)
	require.ErrorIs(t, err, tokenledger.ErrStoreClosed)
	_, err = s.ListEvents(ctx, event.ListOpts{})
	require.ErrorIs(t, err, tokenledger.ErrStoreClosed)
	require.ErrorIs(t, s.Ping(ctx), tokenledger.ErrStoreClosed)

	s.Reopen()
	require.NoError(t, s.Ping(ctx))
}
