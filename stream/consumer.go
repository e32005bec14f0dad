package stream

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/almightycouch/twittex/errors"
)

// streamState is the mutable record exclusively owned by the consumer
// actor. It is only ever touched from the run goroutine.
type streamState struct {
	conn          Conn
	open          bool
	pendingDemand int
	pullPending   bool
	dec           decoder

	// queue holds messages whose frames have completed but whose demand
	// has not been declared yet. A chunk can complete several frames at
	// once, so completion and emission are decoupled: emission is
	// always paid for by one unit of demand.
	queue []Message

	closed bool
}

// Consumer turns a never-ending streaming connection into a sequence of
// discrete JSON messages while obeying a pull-based backpressure
// protocol: the transport is never asked for more payload bytes than
// the consumer has declared demand for.
//
// Every external stimulus (demand, transport event, stop) is processed
// one at a time by a single goroutine; there is no concurrent mutation
// of stream state and messages are emitted in exactly the order their
// frames complete on the wire.
type Consumer struct {
	transport Transport
	logger    *slog.Logger
	metrics   *Metrics

	demandCh chan int
	out      chan Message
	done     chan struct{}

	shutdown     chan struct{}
	shutdownOnce sync.Once
	started      atomic.Bool
	lifecycleMu  sync.Mutex

	errMu sync.Mutex
	err   error

	state streamState
}

// New creates a stream consumer over the given transport. The stream
// does not connect until Start and delivers no messages until demand is
// declared with Request.
func New(transport Transport, opts ...Option) *Consumer {
	c := &Consumer{
		transport: transport,
		logger:    slog.Default(),
		demandCh:  make(chan int, 16),
		out:       make(chan Message),
		done:      make(chan struct{}),
		shutdown:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start opens the streaming connection and begins processing events.
// The stream starts in the connecting state with zero demand.
func (c *Consumer) Start(ctx context.Context) error {
	c.lifecycleMu.Lock()
	defer c.lifecycleMu.Unlock()

	if c.started.Load() {
		return errors.WrapFatal(errors.ErrAlreadyStarted, "Consumer", "Start", "check started state")
	}

	c.started.Store(true)
	go c.run(ctx)
	return nil
}

// Request adds n to pending demand. Demand is consumed one unit per
// emitted message and is never returned. Calls with n <= 0 or after the
// stream has terminated are no-ops.
func (c *Consumer) Request(n int) {
	if n <= 0 {
		return
	}
	select {
	case c.demandCh <- n:
	case <-c.done:
	}
}

// Messages returns the channel on which decoded messages are delivered,
// in order, one at a time, each counted against demand. The channel is
// closed when the stream terminates; consult Err for the reason.
func (c *Consumer) Messages() <-chan Message {
	return c.out
}

// Done is closed when the stream has terminated and the connection has
// been released.
func (c *Consumer) Done() <-chan struct{} {
	return c.done
}

// Err returns the terminal error after Done is closed. It is
// ErrStreamStopped for an explicit stop and one of the terminal stream
// sentinels otherwise.
func (c *Consumer) Err() error {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return c.err
}

// Next requests one unit of demand and waits for the next message. It
// returns the terminal error if the stream ends first.
func (c *Consumer) Next(ctx context.Context) (Message, error) {
	c.Request(1)
	select {
	case msg, ok := <-c.out:
		if !ok {
			return nil, c.Err()
		}
		return msg, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// MustNext is like Next but panics on error, for callers that treat all
// stream failures as exceptional.
func (c *Consumer) MustNext(ctx context.Context) Message {
	msg, err := c.Next(ctx)
	if err != nil {
		panic(err)
	}
	return msg
}

// Stop cancels the stream and synchronously releases the connection.
// Stopping an already-terminated stream is a no-op.
func (c *Consumer) Stop(timeout time.Duration) error {
	if !c.started.Load() {
		return nil
	}

	c.shutdownOnce.Do(func() {
		close(c.shutdown)
	})

	select {
	case <-c.done:
		return nil
	case <-time.After(timeout):
		return errors.WrapTransient(
			fmt.Errorf("shutdown timeout after %v", timeout),
			"Consumer", "Stop", "wait for event loop")
	}
}

// run is the single-threaded event loop. All stream state mutation
// happens here.
func (c *Consumer) run(ctx context.Context) {
	conn, err := c.transport.Open(ctx)
	if err != nil {
		c.finish(errors.WrapFatal(
			fmt.Errorf("%v: %w", err, errors.ErrTransport),
			"Consumer", "run", "open stream"))
		return
	}
	c.state.conn = conn

	for {
		select {
		case <-ctx.Done():
			c.terminate(errors.ErrStreamStopped)
			return
		case <-c.shutdown:
			c.terminate(errors.ErrStreamStopped)
			return
		case n := <-c.demandCh:
			if c.handleDemand(ctx, n) {
				return
			}
		case ev, ok := <-conn.Events():
			if !ok {
				c.terminate(errors.WrapFatal(
					fmt.Errorf("event channel closed: %w", errors.ErrTransport),
					"Consumer", "run", "receive event"))
				return
			}
			if c.handleEvent(ctx, ev) {
				return
			}
		}
	}
}

// handleDemand processes one demand request from the consumer side. It
// returns true once the stream has reached its terminal state.
func (c *Consumer) handleDemand(ctx context.Context, n int) bool {
	c.state.pendingDemand += n
	c.metrics.setPendingDemand(c.state.pendingDemand)

	// New demand first pays for anything already decoded, then a
	// zero-to-positive transition resumes a paused stream; if a pull is
	// already outstanding there is nothing to do.
	if !c.drain(ctx) {
		return true
	}
	c.maybePull()
	return false
}

// handleEvent processes one transport event. It returns true once the
// stream has reached its terminal state.
func (c *Consumer) handleEvent(ctx context.Context, ev Event) bool {
	// Any delivered event acknowledges the outstanding pull.
	c.state.pullPending = false

	switch ev.Kind {
	case EventStatus:
		if ev.Status < 200 || ev.Status > 299 {
			c.terminate(errors.WrapFatal(
				fmt.Errorf("status %d: %w", ev.Status, errors.ErrConnectionRejected),
				"Consumer", "handleEvent", "connect"))
			return true
		}
		c.state.open = true
		c.logger.Debug("stream connected", "status", ev.Status)
		c.maybePull()

	case EventHeaders:
		// Non-payload events never stall the pipe.
		c.pull()

	case EventChunk:
		return c.handleChunk(ctx, ev.Data)

	case EventError:
		c.terminate(errors.WrapFatal(
			fmt.Errorf("%v: %w", ev.Err, errors.ErrTransport),
			"Consumer", "handleEvent", "transport"))
		return true

	case EventEnd:
		c.terminate(errors.ErrStreamEnded)
		return true
	}

	return c.state.closed
}

// handleChunk feeds one raw chunk to the frame decoder, queues whatever
// frames it completed, and applies the demand bookkeeping.
func (c *Consumer) handleChunk(ctx context.Context, data []byte) bool {
	c.metrics.incChunk(len(data))

	res, err := c.state.dec.feed(data)
	if err != nil {
		c.terminate(err)
		return true
	}
	c.metrics.addKeepAlives(res.keepAlives)

	c.state.queue = append(c.state.queue, res.msgs...)
	if !c.drain(ctx) {
		return true
	}

	if c.state.dec.inProgress() || (len(res.msgs) == 0 && res.keepAlives > 0) {
		// Mid-frame or keep-alive: keep the pipe moving so a partial
		// frame never stalls waiting on demand.
		c.pull()
		return false
	}

	c.maybePull()
	return false
}

// drain emits queued messages until the queue or the pending demand is
// exhausted, whichever comes first. It returns false if the stream was
// stopped while a subscriber was not ready.
func (c *Consumer) drain(ctx context.Context) bool {
	for len(c.state.queue) > 0 && c.state.pendingDemand > 0 {
		if !c.deliver(ctx, c.state.queue[0]) {
			return false
		}
		c.state.queue = c.state.queue[1:]
		c.state.pendingDemand--
		c.metrics.incEmitted()
		c.metrics.setPendingDemand(c.state.pendingDemand)
	}
	return true
}

// deliver hands one message to the subscriber. Delivery is only
// attempted against declared demand, so the wait here is for the
// subscriber to receive what it asked for; Stop and context
// cancellation both interrupt it. It returns false if the stream was
// stopped while the subscriber was not ready.
func (c *Consumer) deliver(ctx context.Context, msg Message) bool {
	select {
	case c.out <- msg:
		return true
	case <-c.shutdown:
		c.terminate(errors.ErrStreamStopped)
		return false
	case <-ctx.Done():
		c.terminate(errors.ErrStreamStopped)
		return false
	}
}

// maybePull issues a pull when demand and connection state allow one.
func (c *Consumer) maybePull() {
	if c.state.open && c.state.pendingDemand > 0 {
		c.pull()
	}
}

// pull issues at most one outstanding pull against the connection.
func (c *Consumer) pull() {
	if c.state.closed || c.state.conn == nil || c.state.pullPending {
		return
	}
	c.state.conn.Pull()
	c.state.pullPending = true
	c.metrics.incPull()
}

// terminate moves the stream to its terminal state: the connection is
// released exactly once, the reason recorded, and the message channel
// closed. No further events are processed.
func (c *Consumer) terminate(reason error) {
	if c.state.closed {
		return
	}
	c.state.closed = true
	c.state.open = false

	if c.state.conn != nil {
		if err := c.state.conn.Close(); err != nil {
			c.logger.Warn("stream connection close failed", "error", err)
		}
		c.state.conn = nil
	}

	c.finish(reason)
}

// finish records the terminal reason and signals completion.
func (c *Consumer) finish(reason error) {
	c.errMu.Lock()
	c.err = reason
	c.errMu.Unlock()

	c.metrics.incTermination(terminationReason(reason))
	if !errors.Is(reason, errors.ErrStreamStopped) {
		c.logger.Info("stream terminated", "reason", reason)
	}

	close(c.out)
	close(c.done)
}

// terminationReason maps a terminal error to a metric label.
func terminationReason(err error) string {
	switch {
	case errors.Is(err, errors.ErrConnectionRejected):
		return "rejected"
	case errors.Is(err, errors.ErrStreamEnded):
		return "ended"
	case errors.Is(err, errors.ErrFrameDecode):
		return "frame_decode"
	case errors.Is(err, errors.ErrPayloadDecode):
		return "payload_decode"
	case errors.Is(err, errors.ErrStreamStopped):
		return "stopped"
	case errors.Is(err, errors.ErrTransport):
		return "transport"
	default:
		return "unknown"
	}
}
