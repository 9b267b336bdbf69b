package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/driveroute/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/driveroute/internal/core/domain"
)

// blockingDrainer counts drains and can hold each one until released.
type blockingDrainer struct {
	calls   atomic.Int32
	started chan struct{}
	release chan struct{}
	err     error
}

func newBlockingDrainer() *blockingDrainer {
	return &blockingDrainer{
		started: make(chan struct{}, 16),
		release: make(chan struct{}),
	}
}

func (d *blockingDrainer) Drain(ctx context.Context) (domain.DrainReport, error) {
	d.calls.Add(1)
	d.started <- struct{}{}
	select {
	case <-d.release:
	case <-ctx.Done():
	}
	return domain.DrainReport{Pages: 1}, d.err
}

// failingChannels returns an error for every read.
type failingChannels struct{ *memory.StateStore }

func (failingChannels) GetChannel(context.Context) (*domain.WatchChannel, error) {
	return nil, errors.New("database is locked")
}

func activeStore(t *testing.T) *memory.StateStore {
	t.Helper()
	store := memory.NewStateStore()
	require.NoError(t, store.SaveChannel(context.Background(), domain.WatchChannel{ID: "ch", ResourceID: "res"}))
	return store
}

func TestDispatcher_ReceiveValidatesAndEnqueues(t *testing.T) {
	d := NewDispatcher(activeStore(t), newBlockingDrainer(), 1)
	ctx := context.Background()

	assert.Equal(t, domain.ChannelMismatch, d.Receive(ctx, domain.Notification{ChannelID: "old", ResourceID: "res"}))
	assert.Equal(t, 0, d.Pending())

	assert.Equal(t, domain.ChannelValid, d.Receive(ctx, domain.Notification{ChannelID: "ch", ResourceID: "res", ResourceState: "change"}))
	assert.Equal(t, 1, d.Pending())

	// Coalesced into the pending drain.
	assert.Equal(t, domain.ChannelValid, d.Receive(ctx, domain.Notification{ChannelID: "ch", ResourceID: "res"}))
	assert.Equal(t, 1, d.Pending())
}

func TestDispatcher_NoActiveChannel(t *testing.T) {
	d := NewDispatcher(memory.NewStateStore(), newBlockingDrainer(), 1)

	got := d.Receive(context.Background(), domain.Notification{ChannelID: "ch", ResourceID: "res"})

	assert.Equal(t, domain.ChannelNoActive, got)
	assert.Equal(t, 0, d.Pending())
}

func TestDispatcher_StateErrorIsAcknowledged(t *testing.T) {
	d := NewDispatcher(failingChannels{memory.NewStateStore()}, newBlockingDrainer(), 1)

	got := d.Receive(context.Background(), domain.Notification{ChannelID: "ch", ResourceID: "res"})

	assert.Equal(t, domain.ChannelNoActive, got)
	assert.Equal(t, 0, d.Pending())
}

func TestDispatcher_ReceiveDoesNotWaitForDrain(t *testing.T) {
	drainer := newBlockingDrainer()
	d := NewDispatcher(activeStore(t), drainer, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		_ = d.Start(ctx)
		close(done)
	}()

	n := domain.Notification{ChannelID: "ch", ResourceID: "res"}
	d.Receive(ctx, n)
	<-drainer.started

	// The worker is busy; further notifications return immediately and
	// collapse into one queued drain.
	start := time.Now()
	for i := 0; i < 10; i++ {
		assert.Equal(t, domain.ChannelValid, d.Receive(ctx, n))
	}
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, 1, d.Pending())

	close(drainer.release)
	<-drainer.started

	d.Stop()
	<-done
	assert.Equal(t, int32(2), drainer.calls.Load())
}

func TestDispatcher_StopAndContextCancel(t *testing.T) {
	drainer := newBlockingDrainer()
	drainer.err = errors.New("list changes: 500")
	close(drainer.release)
	d := NewDispatcher(activeStore(t), drainer, 4)

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	var startErr error
	go func() {
		defer wg.Done()
		startErr = d.Start(ctx)
	}()

	assert.True(t, d.Trigger())
	<-drainer.started

	cancel()
	wg.Wait()
	assert.ErrorIs(t, startErr, context.Canceled)

	// Stop after the loop exited is a no-op.
	d.Stop()
}
