package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"

	"github.com/statlake/harvester/internal/scrape"
)

// PubSubProvider implements Provider on Google Cloud Pub/Sub. The client
// library owns reconnection and redelivery: a dropped stream is resumed
// transparently, acknowledged messages are not redelivered, and unacked
// messages return to the queue after the ack deadline.
type PubSubProvider struct {
	client *pubsub.Client
	topic  *pubsub.Topic
	sub    *pubsub.Subscription
	logger *zap.Logger
}

// PubSubConfig identifies the topic and subscription to bind.
type PubSubConfig struct {
	ProjectID      string
	TopicID        string
	SubscriptionID string
}

// NewPubSubProvider creates a Pub/Sub client and verifies the topic exists.
// It authenticates using Application Default Credentials.
func NewPubSubProvider(ctx context.Context, cfg PubSubConfig, logger *zap.Logger) (*PubSubProvider, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}

	topic := client.Topic(cfg.TopicID)
	exists, err := topic.Exists(ctx)
	if err != nil {
		closeClient(client, logger)
		return nil, fmt.Errorf("check pubsub topic %q: %w", cfg.TopicID, err)
	}
	if !exists {
		closeClient(client, logger)
		return nil, fmt.Errorf("pubsub topic %q does not exist in project %q", cfg.TopicID, cfg.ProjectID)
	}

	var sub *pubsub.Subscription
	if cfg.SubscriptionID != "" {
		sub = client.Subscription(cfg.SubscriptionID)
		exists, err = sub.Exists(ctx)
		if err != nil {
			closeClient(client, logger)
			return nil, fmt.Errorf("check pubsub subscription %q: %w", cfg.SubscriptionID, err)
		}
		if !exists {
			closeClient(client, logger)
			return nil, fmt.Errorf("pubsub subscription %q does not exist in project %q", cfg.SubscriptionID, cfg.ProjectID)
		}
	}

	return &PubSubProvider{
		client: client,
		topic:  topic,
		sub:    sub,
		logger: logger,
	}, nil
}

// Publish sends the job message and waits for the server ack. A job whose
// message is silently dropped would sit in pending forever, so publish
// failures must be loud.
func (p *PubSubProvider) Publish(ctx context.Context, msg scrape.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	result := p.topic.Publish(ctx, &pubsub.Message{Data: data})
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("%w: publish job %s: %v", ErrBrokerUnavailable, msg.JobID, err)
	}
	return nil
}

// Consume binds the subscription's receive loop to handler. Prefetch maps to
// MaxOutstandingMessages, which bounds concurrent handler invocations per
// process; additional worker processes compete on the same subscription.
func (p *PubSubProvider) Consume(ctx context.Context, handler Handler, prefetch int) error {
	if p.sub == nil {
		return fmt.Errorf("no subscription configured")
	}
	if prefetch > 0 {
		p.sub.ReceiveSettings.MaxOutstandingMessages = prefetch
	}

	err := p.sub.Receive(ctx, func(ctx context.Context, m *pubsub.Message) {
		var msg scrape.Message
		if err := json.Unmarshal(m.Data, &msg); err != nil {
			// Malformed payloads can never succeed; drop them.
			p.logger.Error("discarding undecodable message", zap.Error(err))
			m.Ack()
			return
		}
		switch handler(ctx, msg) {
		case Ack:
			m.Ack()
		default:
			m.Nack()
		}
	})
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("%w: receive: %v", ErrBrokerUnavailable, err)
	}
	return nil
}

// Close stops the topic's publish goroutines and closes the client.
func (p *PubSubProvider) Close() error {
	p.topic.Stop()
	if err := p.client.Close(); err != nil {
		return fmt.Errorf("close pubsub client: %w", err)
	}
	return nil
}

func closeClient(client *pubsub.Client, logger *zap.Logger) {
	if err := client.Close(); err != nil {
		logger.Warn("failed to close pubsub client", zap.Error(err))
	}
}
