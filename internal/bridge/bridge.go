package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/agromesh/realtime-gateway/internal/dispatch"
	"github.com/agromesh/realtime-gateway/internal/topic"
)

// Config configures the bus bridge.
type Config struct {
	URL               string        // bus endpoint
	SubjectRoot       string        // root token of the subject hierarchy
	ReconnectBaseWait time.Duration // first reconnect delay
	ReconnectMaxWait  time.Duration // backoff cap
	ConnectWindow     time.Duration // initial retry window before startup fails
}

// Stats contains bridge counters for the admin surface.
type Stats struct {
	Connected      bool  `json:"connected"`
	Received       int64 `json:"messages_received"`
	DecodeFailures int64 `json:"decode_failures"`
	Reconnects     int64 `json:"reconnects"`
}

// Bridge is the single owner of the bus connection handle.
type Bridge struct {
	cfg        Config
	dispatcher *dispatch.Dispatcher
	logger     *slog.Logger

	nc   *nats.Conn
	subs []*nats.Subscription

	degraded       atomic.Bool
	received       atomic.Int64
	decodeFailures atomic.Int64
	reconnects     atomic.Int64
}

// New creates a Bridge feeding the given dispatcher.
func New(cfg Config, dispatcher *dispatch.Dispatcher, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{
		cfg:        cfg,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// Start connects to the bus, retrying inside the configured window, and
// installs the subject subscriptions. An unreachable bus after the
// window is a startup failure.
func (b *Bridge) Start(ctx context.Context) error {
	opts := []nats.Option{
		nats.Name("agromesh-gateway"),
		nats.MaxReconnects(-1),
		nats.CustomReconnectDelay(b.reconnectDelay),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			b.degraded.Store(true)
			b.logger.Warn("bus disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			// The client replays every subscription to the server before
			// delivering any inbound traffic, so clearing the degraded
			// flag here means the subject set is already re-installed.
			b.reconnects.Add(1)
			b.degraded.Store(false)
			b.logger.Info("bus reconnected", "url", nc.ConnectedUrl())
		}),
		nats.ErrorHandler(func(_ *nats.Conn, sub *nats.Subscription, err error) {
			subject := ""
			if sub != nil {
				subject = sub.Subject
			}
			b.logger.Warn("bus async error", "subject", subject, "error", err)
		}),
	}

	deadline := time.Now().Add(b.cfg.ConnectWindow)
	wait := b.cfg.ReconnectBaseWait
	for {
		nc, err := nats.Connect(b.cfg.URL, opts...)
		if err == nil {
			b.nc = nc
			break
		}
		if time.Now().Add(wait).After(deadline) {
			return fmt.Errorf("bus unreachable after initial retry window: %w", err)
		}
		b.logger.Warn("bus connect failed, retrying", "error", err, "wait", wait)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		wait = min(wait*2, b.cfg.ReconnectMaxWait)
	}

	if err := b.installSubscriptions(); err != nil {
		b.nc.Close()
		return err
	}

	b.logger.Info("bus bridge started",
		"url", b.cfg.URL,
		"subjects", len(b.subs),
	)
	return nil
}

// Stop drains the subscriptions and releases the connection.
func (b *Bridge) Stop(ctx context.Context) error {
	if b.nc == nil {
		return nil
	}
	for _, sub := range b.subs {
		sub.Unsubscribe()
	}
	b.nc.Close()
	b.logger.Info("bus bridge stopped")
	return nil
}

// Connected reports whether the bridge is healthy; readiness depends on
// it.
func (b *Bridge) Connected() bool {
	return b.nc != nil && b.nc.IsConnected() && !b.degraded.Load()
}

// Stats returns bridge counters.
func (b *Bridge) Stats() Stats {
	return Stats{
		Connected:      b.Connected(),
		Received:       b.received.Load(),
		DecodeFailures: b.decodeFailures.Load(),
		Reconnects:     b.reconnects.Load(),
	}
}

func (b *Bridge) installSubscriptions() error {
	for _, pattern := range topic.SubscriptionSubjects(b.cfg.SubjectRoot) {
		sub, err := b.nc.Subscribe(pattern, b.handleMessage)
		if err != nil {
			return fmt.Errorf("subscribe %s: %w", pattern, err)
		}
		b.subs = append(b.subs, sub)
	}
	return nil
}

func (b *Bridge) handleMessage(msg *nats.Msg) {
	b.received.Add(1)

	ev, err := translate(b.cfg.SubjectRoot, msg.Subject, msg.Data)
	if err != nil {
		b.decodeFailures.Add(1)
		b.logger.Debug("discarding bus message", "subject", msg.Subject, "error", err)
		return
	}

	b.dispatcher.Publish(ev)
}

// translate maps one bus message into a routed event. Split out from the
// handler so the mapping is testable without a bus.
func translate(root, subject string, payload []byte) (dispatch.Event, error) {
	if !json.Valid(payload) {
		return dispatch.Event{}, fmt.Errorf("payload is not valid JSON")
	}

	t, err := topic.SubjectToTopic(root, subject)
	if err != nil {
		return dispatch.Event{}, err
	}
	if err := topic.Validate(t, false); err != nil {
		return dispatch.Event{}, err
	}

	return dispatch.Event{
		Topic:         t,
		EventType:     topic.EventTypeOf(t),
		Payload:       json.RawMessage(payload),
		Priority:      topic.PriorityFor(t),
		SourceSubject: subject,
		IngestTime:    time.Now(),
	}, nil
}

// reconnectDelay implements exponential backoff with +/-20% jitter.
func (b *Bridge) reconnectDelay(attempts int) time.Duration {
	wait := b.cfg.ReconnectBaseWait
	for i := 1; i < attempts && wait < b.cfg.ReconnectMaxWait; i++ {
		wait *= 2
	}
	wait = min(wait, b.cfg.ReconnectMaxWait)

	jitter := 0.8 + rand.Float64()*0.4
	return time.Duration(float64(wait) * jitter)
}
