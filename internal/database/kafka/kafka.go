package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/vbhandari/MgmtSays/internal/config"
	"github.com/vbhandari/MgmtSays/pkg/logger"
)

// Client holds the writer and reader for the analysis job topic. The topic is
// created on connect when the broker does not already have it.
type Client struct {
	Writer *kafka.Writer
	Reader *kafka.Reader
	log    *logger.Logger
}

// Connect dials the first broker, ensures the job topic exists, and builds a
// writer/reader pair bound to it.
func Connect(cfg *config.KafkaConfig) (*Client, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("no Kafka brokers configured")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("no Kafka topic configured")
	}

	conn, err := kafka.Dial("tcp", cfg.Brokers[0])
	if err != nil {
		return nil, fmt.Errorf("failed to dial Kafka broker: %w", err)
	}
	defer conn.Close()

	partitions, err := conn.ReadPartitions()
	if err != nil {
		return nil, fmt.Errorf("failed to read Kafka partitions: %w", err)
	}
	exists := false
	for _, p := range partitions {
		if p.Topic == cfg.Topic {
			exists = true
			break
		}
	}
	if !exists {
		err = conn.CreateTopics(kafka.TopicConfig{
			Topic:             cfg.Topic,
			NumPartitions:     1,
			ReplicationFactor: 1,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create Kafka topic '%s': %w", cfg.Topic, err)
		}
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: 1,
		MaxBytes: 10e6,
		Dialer:   &kafka.Dialer{Timeout: 10 * time.Second},
	})

	log := logger.New("kafka")
	log.WithField("topic", cfg.Topic).Info("connected to Kafka")
	return &Client{Writer: writer, Reader: reader, log: log}, nil
}

// Publish writes one message to the job topic.
func (c *Client) Publish(ctx context.Context, key, value []byte) error {
	if err := c.Writer.WriteMessages(ctx, kafka.Message{Key: key, Value: value}); err != nil {
		return fmt.Errorf("failed to publish Kafka message: %w", err)
	}
	return nil
}

// Fetch blocks until the next message arrives or the context is canceled.
func (c *Client) Fetch(ctx context.Context) (kafka.Message, error) {
	return c.Reader.ReadMessage(ctx)
}

// Close shuts down the writer and reader.
func (c *Client) Close() error {
	var errs []error
	if c.Writer != nil {
		if err := c.Writer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close Kafka writer: %w", err))
		}
	}
	if c.Reader != nil {
		if err := c.Reader.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close Kafka reader: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors closing Kafka client: %v", errs)
	}
	return nil
}
