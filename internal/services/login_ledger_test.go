package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/lulusspp/lulus-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ledgerEpoch = time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestLedger() (*LoginLedger, *MemoryLoginAttemptStore, *clockwork.FakeClock) {
	store := NewMemoryLoginAttemptStore()
	clock := clockwork.NewFakeClockAt(ledgerEpoch)
	return NewLoginLedger(store, DefaultLedgerConfig(), clock, discardLogger()), store, clock
}

const ledgerKey = "1.2.3.4:admin"

func TestLoginLedger_CheckCreatesFreshRecord(t *testing.T) {
	ledger, store, _ := newTestLedger()

	blocked, err := ledger.Check(context.Background(), ledgerKey)
	require.NoError(t, err)
	assert.Zero(t, blocked)

	rec, ok := store.Get(ledgerKey)
	require.True(t, ok)
	assert.Equal(t, 0, rec.FailCount)
	assert.Equal(t, ledgerEpoch, rec.WindowStartedAt)
	assert.Nil(t, rec.BlockedUntil)
}

func TestLoginLedger_FifthFailureBlocks(t *testing.T) {
	ledger, store, _ := newTestLedger()
	ctx := context.Background()

	for i := 1; i <= 4; i++ {
		retry, err := ledger.RecordFailure(ctx, ledgerKey)
		require.NoError(t, err)
		assert.Zero(t, retry, "failure %d must not block", i)
	}

	retry, err := ledger.RecordFailure(ctx, ledgerKey)
	require.NoError(t, err)
	assert.Equal(t, 15*time.Minute, retry)

	rec, _ := store.Get(ledgerKey)
	assert.Equal(t, 5, rec.FailCount)
	require.NotNil(t, rec.BlockedUntil)
	assert.Equal(t, ledgerEpoch.Add(15*time.Minute), *rec.BlockedUntil)

	blocked, err := ledger.Check(ctx, ledgerKey)
	require.NoError(t, err)
	assert.Equal(t, 900, models.RetryAfterSeconds(blocked))
}

func TestLoginLedger_FailuresWhileBlockedAreNotCounted(t *testing.T) {
	ledger, store, clock := newTestLedger()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := ledger.RecordFailure(ctx, ledgerKey)
		require.NoError(t, err)
	}

	clock.Advance(5 * time.Minute)
	retry, err := ledger.RecordFailure(ctx, ledgerKey)
	require.NoError(t, err)
	assert.Equal(t, 10*time.Minute, retry)

	rec, _ := store.Get(ledgerKey)
	assert.Equal(t, 5, rec.FailCount)
	assert.Equal(t, ledgerEpoch.Add(15*time.Minute), *rec.BlockedUntil, "block must not be extended")
}

func TestLoginLedger_RemainingRoundsUp(t *testing.T) {
	ledger, _, clock := newTestLedger()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := ledger.RecordFailure(ctx, ledgerKey)
		require.NoError(t, err)
	}

	clock.Advance(15*time.Minute - 1500*time.Millisecond)
	blocked, err := ledger.Check(ctx, ledgerKey)
	require.NoError(t, err)
	assert.Equal(t, 2, models.RetryAfterSeconds(blocked))

	clock.Advance(time.Second + 400*time.Millisecond)
	blocked, err = ledger.Check(ctx, ledgerKey)
	require.NoError(t, err)
	assert.Equal(t, 1, models.RetryAfterSeconds(blocked))
}

func TestLoginLedger_WindowExpiryResetsCount(t *testing.T) {
	ledger, store, clock := newTestLedger()
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, err := ledger.RecordFailure(ctx, ledgerKey)
		require.NoError(t, err)
	}

	clock.Advance(15*time.Minute + time.Second)
	blocked, err := ledger.Check(ctx, ledgerKey)
	require.NoError(t, err)
	assert.Zero(t, blocked)

	rec, _ := store.Get(ledgerKey)
	assert.Equal(t, 0, rec.FailCount)
	assert.Equal(t, clock.Now(), rec.WindowStartedAt)

	retry, err := ledger.RecordFailure(ctx, ledgerKey)
	require.NoError(t, err)
	assert.Zero(t, retry)
	rec, _ = store.Get(ledgerKey)
	assert.Equal(t, 1, rec.FailCount)
}

func TestLoginLedger_WindowStillActiveAtBoundary(t *testing.T) {
	ledger, store, clock := newTestLedger()
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, err := ledger.RecordFailure(ctx, ledgerKey)
		require.NoError(t, err)
	}

	clock.Advance(15 * time.Minute)
	retry, err := ledger.RecordFailure(ctx, ledgerKey)
	require.NoError(t, err)
	assert.Equal(t, 15*time.Minute, retry, "fifth failure at exactly the window length still counts")

	rec, _ := store.Get(ledgerKey)
	assert.Equal(t, 5, rec.FailCount)
}

func TestLoginLedger_BlockLiftsWithFreshWindow(t *testing.T) {
	ledger, store, clock := newTestLedger()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := ledger.RecordFailure(ctx, ledgerKey)
		require.NoError(t, err)
	}

	clock.Advance(15*time.Minute + time.Second)
	blocked, err := ledger.Check(ctx, ledgerKey)
	require.NoError(t, err)
	assert.Zero(t, blocked)

	retry, err := ledger.RecordFailure(ctx, ledgerKey)
	require.NoError(t, err)
	assert.Zero(t, retry)

	rec, _ := store.Get(ledgerKey)
	assert.Equal(t, 1, rec.FailCount)
	assert.Nil(t, rec.BlockedUntil)
}

func TestLoginLedger_RecordSuccessClearsKeyAndPurgesStale(t *testing.T) {
	ledger, store, clock := newTestLedger()
	ctx := context.Background()

	store.Put(models.LoginAttemptRecord{
		Key:             "9.9.9.9:admin",
		FailCount:       2,
		WindowStartedAt: ledgerEpoch.Add(-48 * time.Hour),
		UpdatedAt:       ledgerEpoch.Add(-48 * time.Hour),
	})
	store.Put(models.LoginAttemptRecord{
		Key:             "8.8.8.8:admin",
		FailCount:       1,
		WindowStartedAt: ledgerEpoch.Add(-time.Hour),
		UpdatedAt:       ledgerEpoch.Add(-time.Hour),
	})

	for i := 0; i < 3; i++ {
		_, err := ledger.RecordFailure(ctx, ledgerKey)
		require.NoError(t, err)
	}
	clock.Advance(time.Minute)

	require.NoError(t, ledger.RecordSuccess(ctx, ledgerKey))

	_, ok := store.Get(ledgerKey)
	assert.False(t, ok, "successful key cleared")
	_, ok = store.Get("9.9.9.9:admin")
	assert.False(t, ok, "stale key purged")
	_, ok = store.Get("8.8.8.8:admin")
	assert.True(t, ok, "recent key kept")
}

func TestLoginLedger_StoreErrors(t *testing.T) {
	ledger, store, _ := newTestLedger()
	ctx := context.Background()
	dbErr := errors.New("connection refused")

	store.MutateErr = dbErr
	_, err := ledger.Check(ctx, ledgerKey)
	assert.ErrorIs(t, err, dbErr)
	_, err = ledger.RecordFailure(ctx, ledgerKey)
	assert.ErrorIs(t, err, dbErr)
	assert.ErrorIs(t, ledger.RecordSuccess(ctx, ledgerKey), dbErr)
}

func TestLoginLedger_ConcurrentFailuresAreNotLost(t *testing.T) {
	store := NewMemoryLoginAttemptStore()
	clock := clockwork.NewFakeClockAt(ledgerEpoch)
	cfg := DefaultLedgerConfig()
	cfg.MaxFailures = 100
	ledger := NewLoginLedger(store, cfg, clock, discardLogger())

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = ledger.RecordFailure(context.Background(), ledgerKey)
		}()
	}
	wg.Wait()

	rec, _ := store.Get(ledgerKey)
	assert.Equal(t, 40, rec.FailCount)
}
