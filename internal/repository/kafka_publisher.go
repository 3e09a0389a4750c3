package repository

import (
	"context"

	"GlucoPlot/internal/domain/models"
	domrepo "GlucoPlot/internal/domain/repository"
	pkgkafka "GlucoPlot/pkg/kafka"
)

// KafkaPublisher implements Publisher for Kafka.
type KafkaPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaPublisher creates Kafka publisher.
func NewKafkaPublisher(producer *pkgkafka.Producer, topic string) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

var _ domrepo.Publisher = (*KafkaPublisher)(nil)

// PublishPlotReady keys messages by plot kind so each kind stays ordered.
func (p *KafkaPublisher) PublishPlotReady(ctx context.Context, ev models.PlotReady) error {
	return p.producer.Publish(ctx, p.topic, []byte(ev.Kind), ev)
}

func (p *KafkaPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

// NopPublisher drops events. Used when Kafka is disabled.
type NopPublisher struct{}

func (NopPublisher) PublishPlotReady(context.Context, models.PlotReady) error { return nil }
func (NopPublisher) Close() error                                              { return nil }
