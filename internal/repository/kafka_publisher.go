package repository

import (
	"context"
	"fmt"

	"OilScope/internal/domain/models"
	"OilScope/internal/domain/repository"
	pkgkafka "OilScope/pkg/kafka"
	applogger "OilScope/pkg/logger"
)

// KafkaResultsPublisher emits completed analysis documents to a Kafka topic
// for downstream reporting consumers.
type KafkaResultsPublisher struct {
	producer *pkgkafka.Producer
	topic    string
	l        *applogger.Logger
}

func NewKafkaResultsPublisher(producer *pkgkafka.Producer, topic string) *KafkaResultsPublisher {
	return &KafkaResultsPublisher{producer: producer, topic: topic}
}

var _ repository.Publisher = (*KafkaResultsPublisher)(nil)

// SetLogger injects a structured logger.
func (p *KafkaResultsPublisher) SetLogger(l *applogger.Logger) { p.l = l }

func (p *KafkaResultsPublisher) PublishResults(ctx context.Context, doc *models.ResultsDocument) error {
	if doc == nil {
		return nil
	}
	key := []byte(doc.Model)
	if err := p.producer.Publish(ctx, p.topic, key, doc); err != nil {
		if p.l != nil {
			p.l.Error("kafka results publish error",
				applogger.String("topic", p.topic),
				applogger.String("model", doc.Model),
				applogger.Error(err),
			)
		}
		return fmt.Errorf("publish results: %w", err)
	}
	if p.l != nil {
		p.l.Info("analysis results published",
			applogger.String("topic", p.topic),
			applogger.String("model", doc.Model),
			applogger.Bool("converged", doc.Converged),
		)
	}
	return nil
}

// PublishMessage emits an arbitrary payload to a topic. It satisfies the
// logger's aggregated-log Publisher so batched error logs share the producer.
func (p *KafkaResultsPublisher) PublishMessage(ctx context.Context, topic string, payload interface{}) error {
	return p.producer.Publish(ctx, topic, nil, payload)
}

func (p *KafkaResultsPublisher) Close() error {
	return p.producer.Close()
}
