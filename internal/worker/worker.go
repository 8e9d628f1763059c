// Package worker drains the organization job queue.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/givdo/givdo/internal/cache"
	"github.com/givdo/givdo/internal/models"
)

type Queue interface {
	Dequeue(ctx context.Context) (*cache.Job, error)
	Retry(ctx context.Context, job *cache.Job) error
}

// OrganizationCacher runs a single organization caching job.
type OrganizationCacher interface {
	Perform(ctx context.Context, orgID uuid.UUID) error
}

// Processor pops jobs and dispatches them by type. Failed jobs are handed back
// to the queue for retry; jobs for records that no longer exist are dropped.
type Processor struct {
	queue   Queue
	orgs    OrganizationCacher
	logger  *logrus.Logger
	backoff time.Duration
}

func NewProcessor(queue Queue, orgs OrganizationCacher, logger *logrus.Logger) *Processor {
	return &Processor{queue: queue, orgs: orgs, logger: logger, backoff: cache.RetryBackoff}
}

// Process executes one job.
func (p *Processor) Process(ctx context.Context, job *cache.Job) error {
	switch job.Type {
	case cache.JobUpdateOrganization:
		return p.orgs.Perform(ctx, job.OrganizationID)
	default:
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
}

// Run loops until ctx is cancelled.
func (p *Processor) Run(ctx context.Context) {
	p.logger.Info("worker started")
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("worker stopping")
			return
		default:
		}

		job, err := p.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			p.logger.WithError(err).Warn("dequeue error")
			p.sleep(ctx)
			continue
		}
		if job == nil {
			continue
		}
		p.handle(ctx, job)
	}
}

func (p *Processor) handle(ctx context.Context, job *cache.Job) {
	log := p.logger.WithFields(logrus.Fields{
		"job":     job.ID,
		"type":    job.Type,
		"attempt": job.Attempt,
	})
	log.Debug("processing job")

	err := p.Process(ctx, job)
	switch {
	case err == nil:
		return
	case errors.Is(err, models.ErrNotFound):
		log.WithError(err).Warn("dropping job for missing record")
		return
	}

	log.WithError(err).Error("job failed")
	if err := p.queue.Retry(ctx, job); err != nil {
		log.WithError(err).Error("retry enqueue failed")
	}
	p.sleep(ctx)
}

func (p *Processor) sleep(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(p.backoff):
	}
}
