package notify

import (
	"context"
	"time"

	"scoring_engine/internal/models"

	"github.com/bytedance/sonic"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Kafka writes each signal as a JSON message keyed by symbol.
type Kafka struct {
	writer *kafka.Writer
	log    *zap.Logger
}

func NewKafka(brokers []string, topic string, log *zap.Logger) *Kafka {
	return &Kafka{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			BatchTimeout: 10 * time.Millisecond,
			RequiredAcks: kafka.RequireOne,
			Transport: &kafka.Transport{
				ClientID: "scoring_engine",
			},
		},
		log: log.With(zap.String("sink", "kafka"), zap.String("topic", topic)),
	}
}

func (k *Kafka) Name() string { return "kafka" }

func (k *Kafka) Publish(ctx context.Context, s models.Signal) error {
	value, err := sonic.Marshal(s)
	if err != nil {
		return err
	}
	msg := kafka.Message{
		Key:   []byte(s.Symbol),
		Value: value,
		Time:  s.CreatedAt,
	}
	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		return err
	}
	k.log.Debug("signal published", zap.String("symbol", s.Symbol))
	return nil
}

func (k *Kafka) Close() error { return k.writer.Close() }
