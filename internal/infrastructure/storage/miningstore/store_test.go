package miningstore_test

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/tdex-network/chrysalis-migration/internal/core/domain"
	"github.com/tdex-network/chrysalis-migration/internal/infrastructure/storage/miningstore"
)

func TestMiningResultStore(t *testing.T) {
	t.Run("AddAndGetResult", testAddAndGetResult())
	t.Run("GetLatestResultForJob", testGetLatestResultForJob())
	t.Run("ListResults", testListResults())
	t.Run("Persistence", testPersistence())
}

func testAddAndGetResult() func(*testing.T) {
	return func(t *testing.T) {
		ctx := context.Background()
		store := newTestStore(t, "")

		result := newTestResult("JOB", 0, 1000, 1)
		require.NoError(t, store.AddResult(ctx, result))
		require.ErrorIs(t, store.AddResult(ctx, result), miningstore.ErrResultExists)

		fetched, err := store.GetResult(ctx, result.SessionID)
		require.NoError(t, err)
		require.Equal(t, result, *fetched)
		require.True(t, fetched.HasCandidate())

		fetched, err = store.GetResult(ctx, uuid.NewString())
		require.ErrorIs(t, err, miningstore.ErrResultNotFound)
		require.Nil(t, fetched)
	}
}

func testGetLatestResultForJob() func(*testing.T) {
	return func(t *testing.T) {
		ctx := context.Background()
		store := newTestStore(t, "")

		latest, err := store.GetLatestResultForJob(ctx, "JOB")
		require.NoError(t, err)
		require.Nil(t, latest)

		require.NoError(t, store.AddResult(ctx, newTestResult("JOB", 0, 1000, 1)))
		require.NoError(t, store.AddResult(ctx, newTestResult("JOB", 1000, 3000, 2)))
		require.NoError(t, store.AddResult(ctx, newTestResult("JOB", 0, 500, 3)))
		require.NoError(t, store.AddResult(ctx, newTestResult("OTHER", 0, 9000, 4)))

		latest, err = store.GetLatestResultForJob(ctx, "JOB")
		require.NoError(t, err)
		require.NotNil(t, latest)
		require.Equal(t, uint64(3000), latest.NextOffset)
	}
}

func testListResults() func(*testing.T) {
	return func(t *testing.T) {
		ctx := context.Background()
		store := newTestStore(t, "")

		results, err := store.ListResults(ctx)
		require.NoError(t, err)
		require.Empty(t, results)

		for i := 3; i > 0; i-- {
			require.NoError(t, store.AddResult(ctx, newTestResult("JOB", 0, 100, int64(i))))
		}

		results, err = store.ListResults(ctx)
		require.NoError(t, err)
		require.Len(t, results, 3)
		for i, r := range results {
			require.Equal(t, int64(i+1), r.Timestamp)
		}
	}
}

func testPersistence() func(*testing.T) {
	return func(t *testing.T) {
		ctx := context.Background()
		dir := t.TempDir()
		result := newTestResult("JOB", 0, 1000, 1)

		store, err := miningstore.NewMiningResultStore(dir, nil)
		require.NoError(t, err)
		require.NoError(t, store.AddResult(ctx, result))
		store.Close()

		store = newTestStore(t, dir)
		fetched, err := store.GetResult(ctx, result.SessionID)
		require.NoError(t, err)
		require.Equal(t, result, *fetched)
	}
}

func newTestStore(t *testing.T, dir string) domain.MiningResultRepository {
	t.Helper()

	store, err := miningstore.NewMiningResultStore(dir, nil)
	require.NoError(t, err)
	t.Cleanup(store.Close)
	return store
}

func newTestResult(jobKey string, offset, next uint64, ts int64) domain.MiningResult {
	return domain.MiningResult{
		SessionID:    uuid.NewString(),
		JobKey:       jobKey,
		Outcome:      "stopped",
		Offset:       offset,
		NextOffset:   next,
		Evaluated:    next - offset,
		BundleHash:   strings.Repeat("B", 81),
		Tail:         strings.Repeat("T", 81),
		Crackability: 0.5,
		Timestamp:    ts,
	}
}
