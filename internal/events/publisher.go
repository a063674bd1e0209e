package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"storefront/internal/entity"
)

// MessageWriter is the subset of *kafka.Writer used for publishing.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// OrderEvent is the payload written to the order topic.
type OrderEvent struct {
	ID         string               `json:"id"`
	Type       string               `json:"type"`
	OccurredAt time.Time            `json:"occurred_at"`
	Order      *entity.OrderDetails `json:"order"`
}

type KafkaPublisher struct {
	writer MessageWriter
	now    func() time.Time
}

func NewKafkaPublisher(writer MessageWriter) *KafkaPublisher {
	return &KafkaPublisher{writer: writer, now: time.Now}
}

// PublishOrder writes an "order.<event>" message keyed by order id, so all
// events for one order land on the same partition.
func (p *KafkaPublisher) PublishOrder(ctx context.Context, event string, details *entity.OrderDetails) error {
	payload, err := json.Marshal(OrderEvent{
		ID:         uuid.NewString(),
		Type:       "order." + event,
		OccurredAt: p.now().UTC(),
		Order:      details,
	})
	if err != nil {
		return err
	}

	// order-created-1
	msg := kafka.Message{
		Key:   []byte(fmt.Sprintf("order-%s-%d", event, details.Order.ID)),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte("order." + event)},
		},
	}
	return p.writer.WriteMessages(ctx, msg)
}
