package jobs

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/vbhandari/MgmtSays/internal/database/kafka"
	"github.com/vbhandari/MgmtSays/pkg/logger"
)

// KafkaSource feeds externally submitted jobs into the pool. Messages are
// JSON-encoded Job values; malformed messages are logged and dropped so one
// bad submission cannot wedge the topic.
type KafkaSource struct {
	log    *logger.Logger
	client *kafka.Client
	pool   *Pool
}

// NewKafkaSource creates a job source reading from the configured topic.
func NewKafkaSource(client *kafka.Client, pool *Pool) *KafkaSource {
	return &KafkaSource{
		log:    logger.New("jobs.kafka"),
		client: client,
		pool:   pool,
	}
}

// Run consumes job submissions until ctx is cancelled.
func (s *KafkaSource) Run(ctx context.Context) error {
	s.log.Info("kafka job source started")
	for {
		msg, err := s.client.Fetch(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				s.log.Info("kafka job source stopping")
				return nil
			}
			return err
		}

		var job Job
		if err := json.Unmarshal(msg.Value, &job); err != nil {
			s.log.WithError(err).Warn("dropping malformed job message")
			continue
		}
		if job.ID == "" || job.Kind == "" {
			s.log.Warn("dropping job message without id or kind")
			continue
		}
		if err := s.pool.Enqueue(job); err != nil {
			s.log.WithError(err).WithField("job_id", job.ID).Error("failed to enqueue job")
		}
	}
}
