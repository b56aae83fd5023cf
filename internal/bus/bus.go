// Package bus implements the in-process message bus: a bounded inbound
// queue that fans out to per-session pipeline workers, and a bounded
// outbound queue that channel adapters drain to deliver responses.
package bus

import (
	"context"
	"errors"
	"sync"

	"github.com/clawft/clawft/internal/observability"
	"github.com/clawft/clawft/internal/sessions"
	"github.com/clawft/clawft/pkg/models"
)

// ErrBackpressure is returned by PublishInbound and DispatchOutbound when
// the corresponding queue is full. Callers should treat it as a transient,
// retryable condition rather than a fatal error.
var ErrBackpressure = errors.New("bus: backpressure, queue full")

// Handler processes one inbound message end to end (classify, route,
// assemble, transport, score, learn) and is invoked by the bus's per-session
// worker pool. It is expected to call DispatchOutbound itself for any
// response it produces.
type Handler func(ctx context.Context, msg *models.Message)

// Config controls the bus's queue depths and worker concurrency.
type Config struct {
	InboundBuffer         int
	OutboundBuffer        int
	MaxConcurrentSessions int
}

func (c Config) withDefaults() Config {
	if c.InboundBuffer <= 0 {
		c.InboundBuffer = 256
	}
	if c.OutboundBuffer <= 0 {
		c.OutboundBuffer = 256
	}
	if c.MaxConcurrentSessions <= 0 {
		c.MaxConcurrentSessions = 32
	}
	return c
}

// Bus owns the inbound/outbound queues and the per-session locking that
// guarantees at-most-one in-flight pipeline run per session key while
// distinct session keys run concurrently.
type Bus struct {
	cfg    Config
	logger *observability.Logger
	locker sessions.Locker

	inbound  chan *models.Message
	outbound chan *models.Message
	sem      chan struct{}

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// New creates a Bus. locker serializes concurrent pipeline runs for the
// same session key; logger may be nil, in which case logging is a no-op.
func New(cfg Config, locker sessions.Locker, logger *observability.Logger) *Bus {
	cfg = cfg.withDefaults()
	return &Bus{
		cfg:      cfg,
		logger:   logger,
		locker:   locker,
		inbound:  make(chan *models.Message, cfg.InboundBuffer),
		outbound: make(chan *models.Message, cfg.OutboundBuffer),
		sem:      make(chan struct{}, cfg.MaxConcurrentSessions),
	}
}

// PublishInbound enqueues an inbound message for pipeline processing. It
// never blocks: a full queue returns ErrBackpressure immediately so the
// calling channel adapter can decide whether to retry or drop.
func (b *Bus) PublishInbound(msg *models.Message) error {
	select {
	case b.inbound <- msg:
		return nil
	default:
		return ErrBackpressure
	}
}

// DispatchOutbound enqueues an outbound message for delivery by whichever
// channel adapter is draining ConsumeOutbound. Non-blocking, same
// backpressure contract as PublishInbound.
func (b *Bus) DispatchOutbound(msg *models.Message) error {
	select {
	case b.outbound <- msg:
		return nil
	default:
		return ErrBackpressure
	}
}

// ConsumeOutbound returns the channel adapters drain to deliver responses.
func (b *Bus) ConsumeOutbound() <-chan *models.Message {
	return b.outbound
}

// Start begins draining the inbound queue, dispatching each message to
// handler on its own goroutine gated by the session semaphore and the
// configured Locker. Start returns immediately; call Stop (or cancel ctx)
// to shut the bus down.
func (b *Bus) Start(ctx context.Context, handler Handler) {
	runCtx, cancel := context.WithCancel(ctx)
	b.cancel = cancel
	b.wg.Add(1)
	go b.run(runCtx, handler)
}

func (b *Bus) run(ctx context.Context, handler Handler) {
	defer b.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-b.inbound:
			if !ok {
				return
			}
			select {
			case b.sem <- struct{}{}:
				b.wg.Add(1)
				go func(message *models.Message) {
					defer func() {
						<-b.sem
						b.wg.Done()
					}()
					b.handle(ctx, message, handler)
				}(msg)
			case <-ctx.Done():
				return
			}
		}
	}
}

func (b *Bus) handle(ctx context.Context, msg *models.Message, handler Handler) {
	key := sessions.SessionKey(msg.Channel, msg.ChannelID)
	if b.locker != nil {
		if err := b.locker.Lock(ctx, key); err != nil {
			b.log(ctx, "session lock failed", "session_key", key, "error", err)
			return
		}
		defer b.locker.Unlock(key)
	}
	handler(ctx, msg)
}

// Stop cancels the bus's processing loop and waits for in-flight handlers
// to finish or ctx to expire, whichever comes first.
func (b *Bus) Stop(ctx context.Context) error {
	if b.cancel != nil {
		b.cancel()
	}
	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *Bus) log(ctx context.Context, msg string, args ...any) {
	if b.logger == nil {
		return
	}
	b.logger.Warn(ctx, msg, args...)
}
