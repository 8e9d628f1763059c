// internal/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/givdo/givdo/internal/config"
)

const (
	// MaxAttempts is how many times a job runs before it moves to the dead letter list.
	MaxAttempts = 3

	// RetryBackoff is the pause after a failed job or a broken connection.
	RetryBackoff = 2 * time.Second

	// popTimeout bounds each BLPop so cancellation is noticed promptly.
	popTimeout = 3 * time.Second
)

// JobType names the work a job asks for.
type JobType string

const JobUpdateOrganization JobType = "update_organization"

// Job is the JSON envelope stored in the Redis list.
type Job struct {
	ID             string    `json:"id"`
	Type           JobType   `json:"type"`
	OrganizationID uuid.UUID `json:"organization_id"`
	Attempt        int       `json:"attempt"`
	CreatedAt      time.Time `json:"created_at"`
}

// NewUpdateOrganization builds a fresh job for caching orgID.
func NewUpdateOrganization(orgID uuid.UUID) Job {
	return Job{
		ID:             uuid.New().String(),
		Type:           JobUpdateOrganization,
		OrganizationID: orgID,
		CreatedAt:      time.Now().UTC(),
	}
}

// ConnectRedis opens a client and pings it.
func ConnectRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Addr, err)
	}
	return rdb, nil
}

// Queue is a FIFO job queue on a Redis list with a companion dead letter list.
type Queue struct {
	rdb    *redis.Client
	name   string
	dead   string
	logger *logrus.Logger
}

func NewQueue(rdb *redis.Client, name string, logger *logrus.Logger) *Queue {
	return &Queue{rdb: rdb, name: name, dead: name + ":dead", logger: logger}
}

// DeadLetterName is the list holding jobs that exhausted their attempts.
func (q *Queue) DeadLetterName() string {
	return q.dead
}

// Enqueue serializes job and appends it to the queue.
func (q *Queue) Enqueue(ctx context.Context, job Job) error {
	if err := q.push(ctx, q.name, job); err != nil {
		return err
	}
	q.logger.WithFields(logrus.Fields{
		"job":          job.ID,
		"type":         job.Type,
		"organization": job.OrganizationID,
	}).Debug("enqueued job")
	return nil
}

// Dequeue waits briefly for the next job. It returns nil, nil when the wait
// times out or the payload is not a valid job.
func (q *Queue) Dequeue(ctx context.Context) (*Job, error) {
	res, err := q.rdb.BLPop(ctx, popTimeout, q.name).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("BLPop %s: %w", q.name, err)
	}
	if len(res) < 2 {
		return nil, nil
	}

	var job Job
	if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
		q.logger.WithError(err).WithField("raw", res[1]).Warn("invalid job payload")
		return nil, nil
	}
	return &job, nil
}

// Retry requeues job with one more attempt, or parks it in the dead letter
// list once MaxAttempts is reached.
func (q *Queue) Retry(ctx context.Context, job *Job) error {
	job.Attempt++
	entry := q.logger.WithFields(logrus.Fields{"job": job.ID, "attempt": job.Attempt})
	if job.Attempt >= MaxAttempts {
		if err := q.push(ctx, q.dead, *job); err != nil {
			return err
		}
		entry.Warn("job moved to dead letter list")
		return nil
	}
	if err := q.push(ctx, q.name, *job); err != nil {
		return err
	}
	entry.Info("job retried")
	return nil
}

func (q *Queue) push(ctx context.Context, list string, job Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}
	if err := q.rdb.RPush(ctx, list, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", list, err)
	}
	return nil
}
