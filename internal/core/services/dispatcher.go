package services

import (
	"context"
	"errors"
	"sync"

	"github.com/custodia-labs/driveroute/internal/core/domain"
	"github.com/custodia-labs/driveroute/internal/core/ports/driven"
	"github.com/custodia-labs/driveroute/internal/core/ports/driving"
	"github.com/custodia-labs/driveroute/internal/logger"
)

// Ensure Dispatcher implements the interface.
var _ driving.NotificationReceiver = (*Dispatcher)(nil)

// Drainer processes every pending change.
type Drainer interface {
	Drain(ctx context.Context) (domain.DrainReport, error)
}

// Dispatcher decouples notification acknowledgement from processing.
// Receive validates and enqueues a drain token without blocking; a single
// worker started by Start drains the feed one notification at a time.
//
// Because a drain always reads every pending change, tokens coalesce:
// when the queue is full the new notification is already covered by the
// drain waiting in it.
type Dispatcher struct {
	channels driven.ChannelStore
	drainer  Drainer
	queue    chan struct{}

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewDispatcher creates a dispatcher with queueSize pending-drain slots.
func NewDispatcher(channels driven.ChannelStore, drainer Drainer, queueSize int) *Dispatcher {
	if queueSize <= 0 {
		queueSize = 1
	}
	return &Dispatcher{
		channels: channels,
		drainer:  drainer,
		queue:    make(chan struct{}, queueSize),
	}
}

// Receive validates n against the persisted channel and, if it matches,
// schedules a drain. It returns immediately in every case.
func (d *Dispatcher) Receive(ctx context.Context, n domain.Notification) domain.ChannelCheck {
	active, err := d.channels.GetChannel(ctx)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		logger.Warn("[NOTIFY] channel state unavailable (%v); acknowledging without processing", err)
		return domain.ChannelNoActive
	}

	check := ValidateChannel(active, n)
	switch check {
	case domain.ChannelNoActive:
		logger.Info("[NOTIFY] no active channel; ignoring %s", n.ChannelID)
	case domain.ChannelMismatch:
		logger.Info("[NOTIFY] mismatched channel %s resource %s; ignoring", n.ChannelID, n.ResourceID)
	case domain.ChannelValid:
		logger.Debug("[NOTIFY] channel %s state=%s msg=%s", n.ChannelID, n.ResourceState, n.MessageNumber)
		d.Trigger()
	}
	return check
}

// Trigger enqueues a drain. It returns false when a drain is already pending.
func (d *Dispatcher) Trigger() bool {
	select {
	case d.queue <- struct{}{}:
		return true
	default:
		logger.Debug("[NOTIFY] drain already pending; coalesced")
		return false
	}
}

// Pending returns the number of queued drains.
func (d *Dispatcher) Pending() int {
	return len(d.queue)
}

// Start runs the worker loop. It blocks until ctx is cancelled or Stop is called.
func (d *Dispatcher) Start(ctx context.Context) error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return nil
	}
	d.running = true
	d.stopCh = make(chan struct{})
	stopCh := d.stopCh
	d.wg.Add(1)
	d.mu.Unlock()

	defer d.wg.Done()

	for {
		select {
		case <-ctx.Done():
			d.markStopped()
			return ctx.Err()
		case <-stopCh:
			return nil
		case <-d.queue:
			d.drain(ctx)
		}
	}
}

// Stop ends the worker loop after the current drain finishes.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	d.running = false
	close(d.stopCh)
	d.mu.Unlock()

	d.wg.Wait()
}

func (d *Dispatcher) markStopped() {
	d.mu.Lock()
	d.running = false
	d.mu.Unlock()
}

func (d *Dispatcher) drain(ctx context.Context) {
	report, err := d.drainer.Drain(ctx)
	if err != nil {
		logger.Error("[DRAIN] stopped after %d pages: %v", report.Pages, err)
		return
	}
	logger.Info("[DRAIN] pages=%d records=%d eligible=%d moved=%d noop=%d skipped=%d failed=%d cursor=%s",
		report.Pages, report.Records, report.Eligible, report.Moved, report.NoOps, report.Skipped, report.Failed, report.Cursor)
}
