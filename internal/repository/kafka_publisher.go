package repository

import (
	"context"

	"ShareWise/internal/domain/models"
	domrepo "ShareWise/internal/domain/repository"
	pkgkafka "ShareWise/pkg/kafka"
)

// KafkaSignalPublisher emits signals and drift alerts onto the event bus.
// Messages are keyed by symbol (or model) so one subject's events stay on
// one partition, in order.
type KafkaSignalPublisher struct {
	producer    *pkgkafka.Producer
	signalTopic string
	alertTopic  string
}

// NewKafkaSignalPublisher creates the publisher over a shared producer.
func NewKafkaSignalPublisher(producer *pkgkafka.Producer, signalTopic, alertTopic string) *KafkaSignalPublisher {
	return &KafkaSignalPublisher{
		producer:    producer,
		signalTopic: signalTopic,
		alertTopic:  alertTopic,
	}
}

func (p *KafkaSignalPublisher) PublishSignal(ctx context.Context, sig *models.TradingSignalResult) error {
	return p.producer.Publish(ctx, p.signalTopic, []byte(sig.Symbol), sig)
}

func (p *KafkaSignalPublisher) PublishAlert(ctx context.Context, report *models.DriftReport) error {
	return p.producer.Publish(ctx, p.alertTopic, []byte(report.Model), report)
}

func (p *KafkaSignalPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

var _ domrepo.SignalPublisher = (*KafkaSignalPublisher)(nil)
