package service

import (
	"context"
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"doc-domains-be/internal/dto"
	"doc-domains-be/internal/pkg/logger"
	"doc-domains-be/pkg/events"
	pktNats "doc-domains-be/pkg/nats"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// consumerService drains ingestion progress messages off the in-process
// bus, logs them and forwards lifecycle events to NATS. A missing or dead
// NATS connection downgrades to a warning; ingestion never blocks on the
// event bus.
type consumerService struct {
	pubSub         *gochannel.GoChannel
	topicName      string
	eventPublisher *pktNats.Publisher
	log            logger.ILogger
}

func NewConsumerService(
	pubSub *gochannel.GoChannel,
	topicName string,
	eventPublisher *pktNats.Publisher,
	log logger.ILogger,
) IConsumerService {
	return &consumerService{
		pubSub:         pubSub,
		topicName:      topicName,
		eventPublisher: eventPublisher,
		log:            log,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.IngestProgressMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		cs.log.Error("consumer", "failed to unmarshal progress message", map[string]interface{}{
			"error": err.Error(),
		})
		msg.Ack() // invalid messages would retry forever
		return
	}

	cs.log.Info("consumer", "ingestion progress", map[string]interface{}{
		"domain":      payload.Domain,
		"filename":    payload.Filename,
		"status":      payload.Status,
		"chunk_count": payload.ChunkCount,
		"error":       payload.Error,
	})

	if event := cs.toLifecycleEvent(payload); event != nil && cs.eventPublisher != nil {
		if err := cs.eventPublisher.Publish(ctx, event); err != nil {
			cs.log.Warn("consumer", "failed to publish lifecycle event", map[string]interface{}{
				"event": event.EventType(),
				"error": err.Error(),
			})
		}
	}

	msg.Ack()
}

func (cs *consumerService) toLifecycleEvent(p dto.IngestProgressMessage) events.Event {
	switch p.Status {
	case "indexed":
		return events.NewFileIndexedEvent(p.Domain, p.Filename, p.ChunkCount)
	case "deleted":
		return events.NewFileDeletedEvent(p.Domain, p.Filename, p.Error == "")
	default:
		return nil
	}
}
