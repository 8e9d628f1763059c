// Package organizations keeps sponsor organizations in sync with their
// public social graph pages.
package organizations

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/givdo/givdo/internal/cache"
	"github.com/givdo/givdo/internal/facebook"
	"github.com/givdo/givdo/internal/models"
)

// ErrUpstreamUnavailable marks a caching attempt that failed on the graph or
// picture mirror. Such failures are retryable.
var ErrUpstreamUnavailable = errors.New("organization source unavailable")

type Store interface {
	CreateOrganization(ctx context.Context, o *models.Organization) error
	GetOrganization(ctx context.Context, id uuid.UUID) (*models.Organization, error)
	UncachedOrganizations(ctx context.Context) ([]*models.Organization, error)
	// CacheOrganization writes every field of o and flips cached in one
	// step. It reports false when the organization was already cached.
	CacheOrganization(ctx context.Context, o *models.Organization) (bool, error)
}

type Graph interface {
	AppAccessToken(ctx context.Context) (string, error)
	GetObject(ctx context.Context, token, id string) (*facebook.Object, error)
	GetPicture(ctx context.Context, token, id, size string) (string, error)
}

// PictureMirror copies a remote picture and returns the URL of the copy.
type PictureMirror interface {
	MirrorPicture(ctx context.Context, name, sourceURL string) (string, error)
}

type Enqueuer interface {
	Enqueue(ctx context.Context, job cache.Job) error
}

type Cacher struct {
	store   Store
	graph   Graph
	queue   Enqueuer
	mirror  PictureMirror
	timeout time.Duration
	logger  *logrus.Logger
}

// NewCacher wires the caching job. queue and mirror are optional: without a
// queue Enqueue runs the job inline, without a mirror the graph picture URL
// is stored as is.
func NewCacher(store Store, graph Graph, queue Enqueuer, mirror PictureMirror, timeout time.Duration, logger *logrus.Logger) *Cacher {
	return &Cacher{
		store:   store,
		graph:   graph,
		queue:   queue,
		mirror:  mirror,
		timeout: timeout,
		logger:  logger,
	}
}

// Get loads a single organization.
func (c *Cacher) Get(ctx context.Context, id uuid.UUID) (*models.Organization, error) {
	return c.store.GetOrganization(ctx, id)
}

// Register stores a new uncached organization for facebookID and schedules
// its first caching.
func (c *Cacher) Register(ctx context.Context, facebookID string) (*models.Organization, error) {
	facebookID = strings.TrimSpace(facebookID)
	if facebookID == "" {
		verr := &models.ValidationError{}
		verr.Add("facebook_id", "can't be blank")
		return nil, verr
	}
	o := &models.Organization{FacebookID: facebookID}
	if err := c.store.CreateOrganization(ctx, o); err != nil {
		return nil, err
	}
	if err := c.Enqueue(ctx, o.ID); err != nil {
		c.logger.WithError(err).WithField("organization", o.ID).Warn("failed to schedule organization caching")
	}
	return o, nil
}

// Enqueue schedules caching of orgID.
func (c *Cacher) Enqueue(ctx context.Context, orgID uuid.UUID) error {
	if c.queue == nil {
		return c.Perform(ctx, orgID)
	}
	if err := c.queue.Enqueue(ctx, cache.NewUpdateOrganization(orgID)); err != nil {
		return fmt.Errorf("enqueue organization %s: %w", orgID, err)
	}
	return nil
}

// CacheAll schedules every organization that is not cached yet and returns
// how many were scheduled.
func (c *Cacher) CacheAll(ctx context.Context) (int, error) {
	orgs, err := c.store.UncachedOrganizations(ctx)
	if err != nil {
		return 0, fmt.Errorf("list uncached organizations: %w", err)
	}
	n := 0
	for _, o := range orgs {
		if err := c.Enqueue(ctx, o.ID); err != nil {
			return n, err
		}
		n++
	}
	c.logger.WithField("count", n).Info("scheduled organization caching")
	return n, nil
}

// Perform caches one organization from the graph. Fields are gathered on a
// copy and written together with cached=true only when every fetch
// succeeded; an organization that is already cached is left untouched.
func (c *Cacher) Perform(ctx context.Context, orgID uuid.UUID) error {
	org, err := c.store.GetOrganization(ctx, orgID)
	if err != nil {
		return fmt.Errorf("load organization %s: %w", orgID, err)
	}
	log := c.logger.WithFields(logrus.Fields{"organization": org.ID, "facebook_id": org.FacebookID})
	if org.Cached {
		log.Debug("organization already cached")
		return nil
	}

	staged, err := c.fetch(ctx, *org)
	if err != nil {
		return err
	}

	updated, err := c.store.CacheOrganization(ctx, staged)
	if err != nil {
		return fmt.Errorf("save organization %s: %w", orgID, err)
	}
	if !updated {
		log.Debug("organization cached concurrently")
		return nil
	}
	log.WithField("name", staged.Name).Info("organization cached")
	return nil
}

func (c *Cacher) fetch(ctx context.Context, org models.Organization) (*models.Organization, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	token, err := c.graph.AppAccessToken(ctx)
	if err != nil {
		return nil, upstream("app access token", err)
	}
	obj, err := c.graph.GetObject(ctx, token, org.FacebookID)
	if err != nil {
		return nil, upstream("graph object "+org.FacebookID, err)
	}
	picture, err := c.graph.GetPicture(ctx, token, org.FacebookID, "large")
	if err != nil {
		return nil, upstream("graph picture "+org.FacebookID, err)
	}

	org.Name = obj.Name
	org.Mission = obj.Mission
	if loc := obj.Location; loc != nil {
		org.Street = loc.Street
		org.City = loc.City
		org.State = loc.State
		org.Zip = loc.Zip
	}
	org.Picture = picture

	if c.mirror != nil && picture != "" {
		mirrored, err := c.mirror.MirrorPicture(ctx, org.ID.String(), picture)
		if err != nil {
			return nil, upstream("mirror picture", err)
		}
		org.Picture = mirrored
	}
	return &org, nil
}

func upstream(what string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrUpstreamUnavailable, what, err)
}
