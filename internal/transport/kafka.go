package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/joshp123/containment/internal/monitor"
)

// MessageWriter is satisfied by *kafka.Writer.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSender writes telemetry keyed by device id so one device stays on one partition.
type KafkaSender struct {
	writer MessageWriter
}

func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		WriteTimeout: requestTimeout,
	}
}

func NewKafkaSender(writer MessageWriter) (*KafkaSender, error) {
	if writer == nil {
		return nil, fmt.Errorf("kafka writer is required")
	}
	return &KafkaSender{writer: writer}, nil
}

func (s *KafkaSender) Name() string {
	return "kafka"
}

func (s *KafkaSender) Send(ctx context.Context, record monitor.Telemetry) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode telemetry: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(record.DeviceID),
		Value: payload,
		Time:  time.Unix(0, int64(record.Timestamp*float64(time.Second))),
	}
	if err := s.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka write: %w", err)
	}
	return nil
}

func (s *KafkaSender) Close() error {
	return s.writer.Close()
}
