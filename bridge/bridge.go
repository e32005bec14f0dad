// Package bridge republishes firehose messages onto NATS.
package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/almightycouch/twittex/component"
	"github.com/almightycouch/twittex/errors"
	"github.com/almightycouch/twittex/metric"
	"github.com/almightycouch/twittex/stream"
)

// Publisher is the slice of the NATS client the bridge needs.
type Publisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// Envelope wraps a decoded firehose message for downstream consumers.
type Envelope struct {
	ID         string    `json:"id"`
	ReceivedAt time.Time `json:"received_at"`
	Payload    any       `json:"payload"`
}

// Config configures a Bridge.
type Config struct {
	// Subject is the NATS subject messages are published to.
	Subject string

	// Window is the demand kept open on the stream consumer. It bounds
	// the number of undelivered messages in flight.
	Window int

	// Name identifies the bridge in logs and metrics.
	Name string
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Subject == "" {
		return errors.WrapInvalid(errors.ErrInvalidConfig,
			"Bridge", "Validate", "subject is required")
	}
	if c.Window <= 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig,
			"Bridge", "Validate", fmt.Sprintf("window must be positive, got %d", c.Window))
	}
	return nil
}

// Bridge consumes a firehose stream and republishes each message to NATS.
// It implements component.LifecycleComponent. There is no reconnect policy:
// when the stream fails terminally the bridge reports unhealthy and stops.
type Bridge struct {
	cfg       Config
	transport stream.Transport
	publisher Publisher
	logger    *slog.Logger
	registry  *metric.MetricsRegistry

	consumer *stream.Consumer
	metrics  *bridgeMetrics

	mu         sync.RWMutex
	state      component.State
	startedAt  time.Time
	lastActive time.Time
	errCount   int
	lastErr    string
	termErr    error

	received  int64
	published int64

	done chan struct{}
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithLogger sets the bridge logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Bridge) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithMetrics registers bridge metrics with the given registry.
func WithMetrics(registry *metric.MetricsRegistry) Option {
	return func(b *Bridge) {
		b.registry = registry
	}
}

// New creates a bridge over the given transport and publisher.
func New(cfg Config, transport stream.Transport, publisher Publisher, opts ...Option) (*Bridge, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if transport == nil {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig,
			"Bridge", "New", "transport is required")
	}
	if publisher == nil {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig,
			"Bridge", "New", "publisher is required")
	}
	if cfg.Name == "" {
		cfg.Name = "firehose-bridge"
	}

	b := &Bridge{
		cfg:       cfg,
		transport: transport,
		publisher: publisher,
		logger:    slog.Default(),
		state:     component.StateCreated,
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Initialize creates the stream consumer.
func (b *Bridge) Initialize() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != component.StateCreated {
		return errors.WrapInvalid(errors.ErrAlreadyStarted,
			"Bridge", "Initialize", fmt.Sprintf("cannot initialize in state %s", b.state))
	}

	b.metrics = newBridgeMetrics(b.registry, b.cfg.Name)
	b.consumer = stream.New(b.transport,
		stream.WithLogger(b.logger),
		stream.WithMetrics(b.registry, b.cfg.Name))

	b.state = component.StateInitialized
	return nil
}

// Start begins consuming and republishing. It returns once the consumer is
// running; the pump runs until the stream terminates or ctx is cancelled.
func (b *Bridge) Start(ctx context.Context) error {
	b.mu.Lock()
	if b.state != component.StateInitialized {
		b.mu.Unlock()
		return errors.WrapInvalid(errors.ErrNotStarted,
			"Bridge", "Start", fmt.Sprintf("cannot start in state %s", b.state))
	}
	b.state = component.StateStarted
	b.startedAt = time.Now()
	b.mu.Unlock()

	if err := b.consumer.Start(ctx); err != nil {
		b.fail(err)
		return err
	}

	b.consumer.Request(b.cfg.Window)
	b.metrics.setDemand(b.cfg.Window)

	go b.pump(ctx)
	return nil
}

// pump moves messages from the consumer to the publisher, keeping the
// demand window open with one new request per published message.
func (b *Bridge) pump(ctx context.Context) {
	defer close(b.done)

	for msg := range b.consumer.Messages() {
		b.mu.Lock()
		b.received++
		b.lastActive = time.Now()
		b.mu.Unlock()
		b.metrics.incReceived()

		if err := b.publish(ctx, msg); err != nil {
			b.logger.Error("publish failed", "subject", b.cfg.Subject, "error", err)
			b.metrics.incErrors()
			b.mu.Lock()
			b.errCount++
			b.lastErr = err.Error()
			b.mu.Unlock()
		} else {
			b.mu.Lock()
			b.published++
			b.mu.Unlock()
			b.metrics.incPublished()
		}

		b.consumer.Request(1)
	}

	if err := b.consumer.Err(); err != nil && !errors.Is(err, errors.ErrStreamStopped) {
		b.logger.Error("stream terminated", "error", err)
		b.fail(err)
		return
	}

	b.mu.Lock()
	b.state = component.StateStopped
	b.mu.Unlock()
}

func (b *Bridge) publish(ctx context.Context, msg stream.Message) error {
	env := Envelope{
		ID:         uuid.NewString(),
		ReceivedAt: time.Now().UTC(),
		Payload:    msg,
	}
	data, err := json.Marshal(env)
	if err != nil {
		return errors.WrapInvalid(err, "Bridge", "publish", "encode envelope")
	}
	return b.publisher.Publish(ctx, b.cfg.Subject, data)
}

func (b *Bridge) fail(err error) {
	b.mu.Lock()
	b.state = component.StateFailed
	b.errCount++
	b.lastErr = err.Error()
	b.termErr = err
	b.mu.Unlock()
}

// Err returns the terminal error that stopped the bridge, if any.
func (b *Bridge) Err() error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.termErr
}

// Stop shuts the consumer down and waits for the pump to drain.
func (b *Bridge) Stop(timeout time.Duration) error {
	b.mu.RLock()
	state := b.state
	b.mu.RUnlock()

	if state != component.StateStarted && state != component.StateFailed {
		return nil
	}

	if err := b.consumer.Stop(timeout); err != nil {
		return err
	}

	select {
	case <-b.done:
	case <-time.After(timeout):
		return errors.WrapTransient(errors.ErrShuttingDown,
			"Bridge", "Stop", fmt.Sprintf("pump did not drain within %v", timeout))
	}

	b.mu.Lock()
	if b.state != component.StateFailed {
		b.state = component.StateStopped
	}
	b.mu.Unlock()
	return nil
}

// Done is closed once the pump has exited.
func (b *Bridge) Done() <-chan struct{} {
	return b.done
}

// State returns the current lifecycle state.
func (b *Bridge) State() component.State {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state
}

// Meta implements component.Discoverable.
func (b *Bridge) Meta() component.Metadata {
	return component.Metadata{
		Name:        b.cfg.Name,
		Type:        "bridge",
		Description: "republishes firehose messages to NATS subject " + b.cfg.Subject,
		Version:     "1.0.0",
	}
}

// Health implements component.Discoverable.
func (b *Bridge) Health() component.HealthStatus {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var uptime time.Duration
	if !b.startedAt.IsZero() {
		uptime = time.Since(b.startedAt)
	}

	return component.HealthStatus{
		Healthy:    b.state == component.StateStarted,
		LastCheck:  time.Now(),
		ErrorCount: b.errCount,
		LastError:  b.lastErr,
		Uptime:     uptime,
	}
}

// DataFlow implements component.Discoverable.
func (b *Bridge) DataFlow() component.FlowMetrics {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var rate, errRate float64
	if !b.startedAt.IsZero() {
		elapsed := time.Since(b.startedAt).Seconds()
		if elapsed > 0 {
			rate = float64(b.published) / elapsed
			errRate = float64(b.errCount) / elapsed
		}
	}

	return component.FlowMetrics{
		MessagesPerSecond: rate,
		ErrorRate:         errRate,
		LastActivity:      b.lastActive,
	}
}
