package kafka

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/bchikara/la-carte-backend/logger"
	"github.com/bchikara/la-carte-backend/models"
)

type Producer struct {
	writer *kafka.Writer
	topic  string
}

func NewProducer(brokers []string, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}

	return &Producer{
		writer: writer,
		topic:  topic,
	}
}

func (p *Producer) SendOrderPlaced(event models.OrderPlacedEvent) error {
	return p.send(event.OrderID, event)
}

// SendOrderReconciled reports an outbox replay that restored the missing
// projections of an order.
func (p *Producer) SendOrderReconciled(event models.OrderPlacedEvent) error {
	return p.send(event.OrderID, event)
}

func (p *Producer) send(key string, event models.OrderPlacedEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		// Keyed by order id so one order's events stay ordered.
		Key:   []byte(key),
		Value: data,
	}

	if err := p.writer.WriteMessages(context.Background(), msg); err != nil {
		logger.Log.Warn("Failed to send Kafka message",
			zap.String("topic", p.topic), zap.Error(err))
		return err
	}
	return nil
}

func (p *Producer) Close() {
	_ = p.writer.Close()
}
