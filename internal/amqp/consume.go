package amqp

import (
	"context"
	"errors"
	"fmt"

	"github.com/rabbitmq/amqp091-go"

	"salesboard/internal/log"
)

// ErrDeliveriesClosed is returned when the broker closes the delivery channel.
var ErrDeliveriesClosed = errors.New("message channel closed")

// DatasetLoadedHandler processes one decoded dataset.loaded message.
type DatasetLoadedHandler func(ctx context.Context, msg *DatasetLoadedMessage) error

// ConsumeDatasetLoaded consumes dataset.loaded messages until ctx is done.
// Malformed messages are dropped; handler failures are requeued.
func (c *Client) ConsumeDatasetLoaded(ctx context.Context, handler DatasetLoadedHandler) error {
	ch, err := c.ensureChannel()
	if err != nil {
		return err
	}
	msgs, err := ch.Consume(
		c.queueName, // queue
		"",          // consumer
		false,       // auto-ack
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	c.log().InfoContext(ctx, "Started consuming dataset loaded messages", log.FieldRoutingKey, c.queueName)

	for {
		select {
		case <-ctx.Done():
			c.log().InfoContext(ctx, "Stopping message consumption", "reason", ctx.Err().Error())
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return ErrDeliveriesClosed
			}
			c.handleDelivery(ctx, delivery, handler)
		}
	}
}

func (c *Client) handleDelivery(ctx context.Context, d amqp091.Delivery, handler DatasetLoadedHandler) {
	msg, err := DatasetLoadedMessageFromJSON(d.Body)
	if err != nil {
		c.log().ErrorContext(ctx, "Failed to unmarshal message", log.FieldError, err.Error())
		_ = d.Nack(false, false)
		return
	}

	if err := handler(ctx, msg); err != nil {
		c.log().ErrorContext(ctx, "Failed to handle message", log.FieldLoadID, msg.LoadID, log.FieldError, err.Error())
		_ = d.Nack(false, true)
		return
	}

	_ = d.Ack(false)
	c.log().DebugContext(ctx, "Processed dataset loaded message", log.FieldLoadID, msg.LoadID)
}
