// Package memory provides an in-process broker for tests and local runs.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/statlake/harvester/internal/queue"
	"github.com/statlake/harvester/internal/scrape"
)

// Broker is a bounded in-memory queue with manual-ack semantics: a handler
// that returns Nack puts the message back for redelivery, mirroring the
// at-least-once contract of a real broker.
type Broker struct {
	ch      chan scrape.Message
	closeMu sync.Mutex
	closed  bool
}

// NewBroker constructs a broker with the provided capacity.
func NewBroker(capacity int) *Broker {
	return &Broker{
		ch: make(chan scrape.Message, capacity),
	}
}

// Publish pushes a message or returns if the context ends.
func (b *Broker) Publish(ctx context.Context, msg scrape.Message) error {
	b.closeMu.Lock()
	closed := b.closed
	b.closeMu.Unlock()
	if closed {
		return fmt.Errorf("%w: broker closed", queue.ErrBrokerUnavailable)
	}
	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: publish canceled: %v", queue.ErrBrokerUnavailable, ctx.Err())
	case b.ch <- msg:
		return nil
	}
}

// Consume delivers messages to handler with at most prefetch handler
// invocations in flight. Nacked messages are requeued. Returns when the
// context ends and all in-flight handlers have finished.
func (b *Broker) Consume(ctx context.Context, handler queue.Handler, prefetch int) error {
	if prefetch <= 0 {
		prefetch = 1
	}
	sem := make(chan struct{}, prefetch)
	var wg sync.WaitGroup
	for {
		select {
		case <-ctx.Done():
			wg.Wait()
			return nil
		case sem <- struct{}{}:
		}

		select {
		case <-ctx.Done():
			<-sem
			wg.Wait()
			return nil
		case msg, ok := <-b.ch:
			if !ok {
				<-sem
				wg.Wait()
				return nil
			}
			wg.Add(1)
			go func(m scrape.Message) {
				defer wg.Done()
				defer func() { <-sem }()
				if handler(ctx, m) == queue.Nack {
					b.requeue(m)
				}
			}(msg)
		}
	}
}

// Close closes the underlying channel for shutdown.
func (b *Broker) Close() error {
	b.closeMu.Lock()
	defer b.closeMu.Unlock()
	if b.closed {
		return nil
	}
	close(b.ch)
	b.closed = true
	return nil
}

// Len reports the number of queued messages (not those in flight).
func (b *Broker) Len() int {
	return len(b.ch)
}

func (b *Broker) requeue(msg scrape.Message) {
	b.closeMu.Lock()
	defer b.closeMu.Unlock()
	if b.closed {
		return
	}
	select {
	case b.ch <- msg:
	default:
		// Capacity exhausted during shutdown; the message is lost, which a
		// dev broker tolerates.
	}
}
