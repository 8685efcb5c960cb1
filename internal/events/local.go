package events

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// LocalBus delivers events in-process through a buffered channel drained by a fixed
// worker pool. Publish never waits: a full buffer drops the event with ErrBusFull.
type LocalBus struct {
	queue   chan queued
	workers int

	mu       sync.RWMutex
	handlers []Handler
}

type queued struct {
	ctx   context.Context
	event Event
}

func NewLocalBus(buffer, workers int) *LocalBus {
	if buffer <= 0 {
		buffer = 256
	}
	if workers <= 0 {
		workers = 1
	}
	return &LocalBus{queue: make(chan queued, buffer), workers: workers}
}

// Subscribe registers h for every published event.
func (b *LocalBus) Subscribe(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
}

func (b *LocalBus) Publish(ctx context.Context, e Event) error {
	select {
	case b.queue <- queued{ctx: context.WithoutCancel(ctx), event: e}:
		return nil
	default:
		return fmt.Errorf("publish %s %s: %w", e.Type, e.ID, ErrBusFull)
	}
}

// Run drains the queue until ctx is cancelled, then delivers what is already queued.
func (b *LocalBus) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < b.workers; i++ {
		g.Go(func() error {
			for {
				select {
				case <-gctx.Done():
					b.drain()
					return nil
				case q := <-b.queue:
					b.dispatch(q)
				}
			}
		})
	}
	return g.Wait()
}

func (b *LocalBus) drain() {
	for {
		select {
		case q := <-b.queue:
			b.dispatch(q)
		default:
			return
		}
	}
}

func (b *LocalBus) dispatch(q queued) {
	b.mu.RLock()
	handlers := b.handlers
	b.mu.RUnlock()

	for _, h := range handlers {
		if err := h(q.ctx, q.event); err != nil {
			log.Ctx(q.ctx).Error().
				Err(err).
				Str("event_id", q.event.ID).
				Str("event_type", string(q.event.Type)).
				Msg("Event handler failed")
		}
	}
}
