package syncer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tama-audit/auditor/internal/common"
	"github.com/tama-audit/auditor/internal/logging"
)

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestConnectivityRegained_RunsPendingTask(t *testing.T) {
	c := NewCoordinator(testLogger())
	ctx := context.Background()

	var runs int
	c.Register(common.SyncTagAuditData, func(context.Context) error {
		runs++
		return nil
	})
	c.Schedule(common.SyncTagAuditData)

	require.NoError(t, c.ConnectivityRegained(ctx, common.SyncTagAuditData))
	assert.Equal(t, 1, runs)
	assert.False(t, c.Pending(common.SyncTagAuditData))

	// consumed: a second signal does nothing
	require.NoError(t, c.ConnectivityRegained(ctx, common.SyncTagAuditData))
	assert.Equal(t, 1, runs)
}

func TestConnectivityRegained_UnknownTagIgnored(t *testing.T) {
	c := NewCoordinator(testLogger())

	var runs int
	c.Register(common.SyncTagAuditData, func(context.Context) error {
		runs++
		return nil
	})
	c.Schedule(common.SyncTagAuditData)

	require.NoError(t, c.ConnectivityRegained(context.Background(), "some-other-tag"))
	assert.Equal(t, 0, runs)
	assert.True(t, c.Pending(common.SyncTagAuditData))
}

func TestConnectivityRegained_NotPending_NoRun(t *testing.T) {
	c := NewCoordinator(testLogger())

	var runs int
	c.Register(common.SyncTagAuditData, func(context.Context) error {
		runs++
		return nil
	})

	require.NoError(t, c.ConnectivityRegained(context.Background(), common.SyncTagAuditData))
	assert.Equal(t, 0, runs)
}

func TestFailedTask_StaysPending_RetriedOnNextSignal(t *testing.T) {
	c := NewCoordinator(testLogger())
	ctx := context.Background()
	boom := errors.New("flush failed")

	var runs int
	c.Register(common.SyncTagAuditData, func(context.Context) error {
		runs++
		if runs < 3 {
			return boom
		}
		return nil
	})
	c.Schedule(common.SyncTagAuditData)

	require.ErrorIs(t, c.ConnectivityRegained(ctx, common.SyncTagAuditData), boom)
	assert.True(t, c.Pending(common.SyncTagAuditData))
	assert.Equal(t, 1, c.Failures(common.SyncTagAuditData))

	require.ErrorIs(t, c.ConnectivityRegained(ctx, common.SyncTagAuditData), boom)
	assert.Equal(t, 2, c.Failures(common.SyncTagAuditData))

	require.NoError(t, c.ConnectivityRegained(ctx, common.SyncTagAuditData))
	assert.False(t, c.Pending(common.SyncTagAuditData))
	assert.Equal(t, 0, c.Failures(common.SyncTagAuditData), "failure count resets on success")
}

func TestAtMostOneInFlightPerTag(t *testing.T) {
	c := NewCoordinator(testLogger())
	ctx := context.Background()

	started := make(chan struct{})
	release := make(chan struct{})
	var runs int
	var mu sync.Mutex

	c.Register(common.SyncTagAuditData, func(context.Context) error {
		mu.Lock()
		runs++
		mu.Unlock()
		close(started)
		<-release
		return nil
	})
	c.Schedule(common.SyncTagAuditData)

	done := make(chan struct{})
	go func() {
		_ = c.ConnectivityRegained(ctx, common.SyncTagAuditData)
		close(done)
	}()

	<-started
	// while the first execution is in flight, further signals must be no-ops
	require.NoError(t, c.ConnectivityRegained(ctx, common.SyncTagAuditData))

	close(release)
	<-done

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, runs)
}

func TestSchedule_UnknownTagIgnored(t *testing.T) {
	c := NewCoordinator(testLogger())
	c.Schedule("never-registered")
	assert.False(t, c.Pending("never-registered"))
	assert.Empty(t, c.Tags())
}
