// Package queue defines the interfaces for a message queue provider.
// The abstraction keeps the application independent of a specific broker
// (GCP Pub/Sub in production, an in-memory broker for tests and local runs).
package queue

import (
	"context"
	"errors"

	"github.com/statlake/harvester/internal/scrape"
)

// ErrBrokerUnavailable indicates the broker did not durably accept an
// operation. Publishes that fail this way must surface to the caller rather
// than be silently dropped.
var ErrBrokerUnavailable = errors.New("broker unavailable")

// Decision is a handler's verdict on a delivered message.
type Decision int

const (
	// Ack removes the message from the queue.
	Ack Decision = iota
	// Nack returns the message to the queue for redelivery.
	Nack
)

// Handler processes one delivered message and decides its fate.
// Acknowledgment is manual: the message stays on the queue until the
// returned Decision is applied.
type Handler func(ctx context.Context, msg scrape.Message) Decision

// Provider is the common interface for a message queue.
type Provider interface {
	// Publish sends a durable job message and blocks until the broker
	// acknowledges it or the context ends.
	Publish(ctx context.Context, msg scrape.Message) error

	// Consume runs an indefinite delivery loop, invoking handler for each
	// message with at most prefetch unacknowledged messages in flight.
	// It returns when ctx ends.
	Consume(ctx context.Context, handler Handler, prefetch int) error

	// Close cleans up client connections and resources.
	Close() error
}

// NoOpProvider is a queue provider that performs no operations. It is useful
// for running the API without a broker, e.g. in smoke tests.
type NoOpProvider struct{}

// Publish for NoOpProvider does nothing and returns nil.
func (NoOpProvider) Publish(context.Context, scrape.Message) error { return nil }

// Consume for NoOpProvider blocks until the context ends.
func (NoOpProvider) Consume(ctx context.Context, _ Handler, _ int) error {
	<-ctx.Done()
	return nil
}

// Close for NoOpProvider does nothing and returns nil.
func (NoOpProvider) Close() error { return nil }
