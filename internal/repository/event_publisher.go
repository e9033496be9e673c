package repository

import (
	"context"

	"StockCharts/internal/domain/models"
	domrepo "StockCharts/internal/domain/repository"
	pkgkafka "StockCharts/pkg/kafka"
)

// KafkaChartPublisher implements EventPublisher for Kafka.
type KafkaChartPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaChartPublisher creates Kafka publisher.
func NewKafkaChartPublisher(producer *pkgkafka.Producer, topic string) domrepo.EventPublisher {
	return &KafkaChartPublisher{producer: producer, topic: topic}
}

func (p *KafkaChartPublisher) PublishChartEvent(ctx context.Context, ev *models.ChartEvent) error {
	return p.producer.Publish(ctx, p.topic, []byte(ev.Symbol), ev)
}

func (p *KafkaChartPublisher) Close() error {
	return nil // producer is shared with the log collector
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) PublishChartEvent(context.Context, *models.ChartEvent) error { return nil }
func (NopPublisher) Close() error { return nil }
