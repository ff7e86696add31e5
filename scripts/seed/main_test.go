package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-books/internal/masterdata"
	"github.com/odyssey-erp/odyssey-books/internal/posting"
	"github.com/odyssey-erp/odyssey-books/internal/storage"
	"github.com/odyssey-erp/odyssey-books/internal/storage/memory"
)

func TestSeedLeavesConsistentBooks(t *testing.T) {
	ctx := context.Background()
	b := memory.New()
	md := masterdata.NewService(storage.ForMasterdata(b), nil, nil)
	engine := posting.NewEngine(b, posting.Deps{})

	summary, err := seed(ctx, md, engine, time.Date(2025, 3, 31, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Equal(t, 5, summary.documents)
	require.Equal(t, 3, summary.payments)

	report, err := engine.VerifyIntegrity(ctx)
	require.NoError(t, err)
	require.True(t, report.Clean())

	balance, err := engine.GetAccountBalance(ctx, summary.customer.ID)
	require.NoError(t, err)
	require.True(t, balance.IsPositive())

	level, err := engine.GetLevel(ctx, 1, 1)
	require.NoError(t, err)
	require.Equal(t, "55", level.String())
}
