package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/bimakw/wallet-watcher/internal/config"
	"github.com/bimakw/wallet-watcher/internal/domain/entities"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaNotifier publishes notifications as JSON events keyed by wallet address
type KafkaNotifier struct {
	mq     messageWriter
	topic  string
	logger *zap.Logger
}

// NewKafkaNotifier creates a publisher for cfg.Topic
func NewKafkaNotifier(cfg config.KafkaConfig, logger *zap.Logger) *KafkaNotifier {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		WriteTimeout: cfg.WriteTimeout,
	}
	return &KafkaNotifier{mq: writer, topic: cfg.Topic, logger: logger}
}

// Notify publishes n. Events of one wallet share a partition.
func (k *KafkaNotifier) Notify(ctx context.Context, n entities.Notification) error {
	payload, err := sonic.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(n.WalletAddress),
		Value: payload,
		Time:  time.Unix(n.Timestamp, 0),
	}
	if err := k.mq.WriteMessages(ctx, msg); err != nil {
		k.logger.Warn("Kafka write failed",
			zap.String("topic", k.topic),
			zap.String("signature", n.Signature),
			zap.Error(err),
		)
		return err
	}
	return nil
}

// Close flushes pending writes and releases broker connections
func (k *KafkaNotifier) Close() error {
	return k.mq.Close()
}
