package dispatch

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/agromesh/realtime-gateway/internal/room"
	"github.com/agromesh/realtime-gateway/internal/session"
)

// CloseCodeSlowConsumer is the application close code for sessions that
// keep dropping frames.
const CloseCodeSlowConsumer = 4009

// Stats contains runtime dispatch counters.
type Stats struct {
	EventsDispatched int64 `json:"events_dispatched"`
	FramesDelivered  int64 `json:"frames_delivered"`
	FramesDropped    int64 `json:"frames_dropped"`
	NoRecipients     int64 `json:"events_without_recipients"`
	SlowConsumers    int64 `json:"slow_consumer_closes"`
	EncodeErrors     int64 `json:"encode_errors"`
	Overflow         int64 `json:"ingest_overflow"`
}

// Dispatcher fans events out to subscribed sessions.
type Dispatcher struct {
	index    *room.Index
	registry *session.Registry
	logger   *slog.Logger

	events chan Event

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	dispatched    atomic.Int64
	delivered     atomic.Int64
	dropped       atomic.Int64
	noRecipients  atomic.Int64
	slowConsumers atomic.Int64
	encodeErrors  atomic.Int64
	overflow      atomic.Int64
}

// New creates a Dispatcher with the given ingest buffer.
func New(index *room.Index, registry *session.Registry, buffer int, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		index:    index,
		registry: registry,
		logger:   logger,
		events:   make(chan Event, buffer),
	}
}

// Start begins the dispatch loop.
func (d *Dispatcher) Start(ctx context.Context) error {
	d.ctx, d.cancel = context.WithCancel(ctx)

	d.wg.Add(1)
	go d.loop()

	d.logger.Info("dispatcher started", "buffer", cap(d.events))
	return nil
}

// Stop drains nothing further and waits for the loop to exit.
func (d *Dispatcher) Stop(ctx context.Context) error {
	if d.cancel != nil {
		d.cancel()
	}

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.logger.Info("dispatcher stopped")
	case <-ctx.Done():
		d.logger.Warn("dispatcher stop timed out")
	}
	return nil
}

// Publish hands an event to the dispatch loop. Non-blocking: if the
// ingest buffer is full the event is dropped and counted, the producers
// (bus receive, client frames) must never stall on a slow fan-out.
func (d *Dispatcher) Publish(ev Event) {
	select {
	case d.events <- ev:
	default:
		d.overflow.Add(1)
		d.logger.Warn("dispatch buffer full, dropping event", "topic", ev.Topic)
	}
}

// Dispatch resolves and enqueues one event synchronously, returning the
// recipient count. The admin surface calls this directly so it can
// report recipients; the loop uses it for everything published.
func (d *Dispatcher) Dispatch(ev Event) int {
	d.dispatched.Add(1)

	ids := d.index.SubscriberIDsFor(ev.Topic)
	if len(ids) == 0 {
		d.noRecipients.Add(1)
		return 0
	}

	// One encode, shared by every recipient.
	data, err := ev.Encode()
	if err != nil {
		d.encodeErrors.Add(1)
		d.logger.Error("event encode failed", "topic", ev.Topic, "error", err)
		return 0
	}

	frame := session.Frame{Data: data, Priority: ev.Priority, Topic: ev.Topic}

	recipients := 0
	for _, id := range ids {
		s, ok := d.registry.Lookup(id)
		if !ok || s.State() != session.StateAuthenticated {
			continue
		}

		switch s.Queue.Enqueue(frame) {
		case session.Enqueued:
			recipients++
			d.delivered.Add(1)
		case session.EvictedOlder:
			recipients++
			d.delivered.Add(1)
			d.recordDrop(s)
		case session.DroppedIncoming:
			d.recordDrop(s)
		case session.QueueClosed:
		}
	}
	return recipients
}

func (d *Dispatcher) recordDrop(s *session.Session) {
	d.dropped.Add(1)
	total, slow := s.RecordDrop()
	if !slow {
		return
	}
	if s.BeginClose(CloseCodeSlowConsumer, "slow consumer") {
		d.slowConsumers.Add(1)
		d.logger.Warn("closing slow consumer",
			"session_id", s.ID,
			"tenant", s.Identity.Tenant,
			"drops", total,
		)
	}
}

// Stats returns current counters.
func (d *Dispatcher) Stats() Stats {
	return Stats{
		EventsDispatched: d.dispatched.Load(),
		FramesDelivered:  d.delivered.Load(),
		FramesDropped:    d.dropped.Load(),
		NoRecipients:     d.noRecipients.Load(),
		SlowConsumers:    d.slowConsumers.Load(),
		EncodeErrors:     d.encodeErrors.Load(),
		Overflow:         d.overflow.Load(),
	}
}

func (d *Dispatcher) loop() {
	defer d.wg.Done()

	for {
		select {
		case <-d.ctx.Done():
			return
		case ev := <-d.events:
			d.Dispatch(ev)
		}
	}
}
