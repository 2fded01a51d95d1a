package repository

import (
	"context"

	"LevRecon/internal/domain/models"
	"LevRecon/internal/domain/repository"
	pkgkafka "LevRecon/pkg/kafka"
)

// BatchPublisher is the part of the Kafka producer the sink needs.
type BatchPublisher interface {
	PublishBatch(ctx context.Context, topic string, messages []pkgkafka.Message) error
}

// KafkaSink publishes one message per symbol report, keyed by symbol so a
// symbol's reports stay ordered within a partition.
type KafkaSink struct {
	producer BatchPublisher
	topic    string
}

func NewKafkaSink(producer BatchPublisher, topic string) *KafkaSink {
	return &KafkaSink{producer: producer, topic: topic}
}

var _ repository.ResultSink = (*KafkaSink)(nil)

func (s *KafkaSink) Name() string { return "kafka" }

func (s *KafkaSink) Publish(ctx context.Context, _ models.RunSummary, reports []models.SymbolReport) error {
	if len(reports) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, 0, len(reports))
	for i := range reports {
		msgs = append(msgs, pkgkafka.Message{
			Key:   []byte(reports[i].Symbol),
			Value: reports[i],
		})
	}
	return s.producer.PublishBatch(ctx, s.topic, msgs)
}
