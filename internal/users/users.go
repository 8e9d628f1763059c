// Package users provisions accounts from social-provider identities and
// manages their badges, organization and activity feed.
package users

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/givdo/givdo/internal/models"
)

// DefaultActivityLimit is used when a caller asks for a non-positive number of activities.
const DefaultActivityLimit = 10

type Store interface {
	UpsertUser(ctx context.Context, provider, uid string, attrs models.UserAttributes) (*models.User, error)
	UpsertUsers(ctx context.Context, provider string, profiles []models.Profile) ([]*models.User, error)
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	SetUserOrganization(ctx context.Context, userID, orgID uuid.UUID) error
	InsertActivity(ctx context.Context, a *models.Activity) error
	RecentActivities(ctx context.Context, userID uuid.UUID, limit int) ([]models.Activity, error)
	CreateBadge(ctx context.Context, b *models.Badge) error
	AddBadges(ctx context.Context, userID uuid.UUID, badgeIDs []uuid.UUID) error
	UserBadges(ctx context.Context, userID uuid.UUID) ([]models.Badge, error)
}

type Service struct {
	store  Store
	logger *logrus.Logger
}

func NewService(store Store, logger *logrus.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// ForProvider finds or creates the user identified by (provider, uid) and
// applies attrs. Repeated calls never create a second user.
func (s *Service) ForProvider(ctx context.Context, provider, uid string, attrs models.UserAttributes) (*models.User, error) {
	if err := models.ValidateIdentity(provider, uid); err != nil {
		return nil, err
	}
	u, err := s.store.UpsertUser(ctx, provider, uid, attrs)
	if err != nil {
		return nil, fmt.Errorf("provision %s user %s: %w", provider, uid, err)
	}
	return u, nil
}

// ForProviderBatch returns one user per profile, in input order. Existing
// users are kept, missing ones created, and optional fields applied only when
// present. A profile with a blank id fails the whole batch.
func (s *Service) ForProviderBatch(ctx context.Context, provider string, profiles []models.Profile) ([]*models.User, error) {
	verr := &models.ValidationError{}
	for i, p := range profiles {
		if err := models.ValidateIdentity(provider, p.ID); err != nil {
			verr.Add(fmt.Sprintf("profiles[%d]", i), err.Error())
		}
	}
	if !verr.Empty() {
		return nil, verr
	}
	if len(profiles) == 0 {
		return []*models.User{}, nil
	}

	users, err := s.store.UpsertUsers(ctx, provider, profiles)
	if err != nil {
		return nil, fmt.Errorf("provision %d %s users: %w", len(profiles), provider, err)
	}
	s.logger.WithFields(logrus.Fields{
		"provider": provider,
		"profiles": len(profiles),
	}).Debug("provisioned user batch")
	return users, nil
}

// Friend resolves uid under the caller's provider.
func (s *Service) Friend(ctx context.Context, user *models.User, uid string) (*models.User, error) {
	return s.ForProvider(ctx, user.Provider, uid, models.UserAttributes{})
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return s.store.GetUser(ctx, id)
}

// SetOrganization makes orgID the organization new players of this user support.
func (s *Service) SetOrganization(ctx context.Context, userID, orgID uuid.UUID) error {
	if err := s.store.SetUserOrganization(ctx, userID, orgID); err != nil {
		return fmt.Errorf("set organization of user %s: %w", userID, err)
	}
	return nil
}

// RecentActivities returns the user's n newest activities.
func (s *Service) RecentActivities(ctx context.Context, userID uuid.UUID, n int) ([]models.Activity, error) {
	if n <= 0 {
		n = DefaultActivityLimit
	}
	acts, err := s.store.RecentActivities(ctx, userID, n)
	if err != nil {
		return nil, fmt.Errorf("recent activities of user %s: %w", userID, err)
	}
	return acts, nil
}

// AddBadges appends badges to the user's collection and logs an activity for each.
func (s *Service) AddBadges(ctx context.Context, userID uuid.UUID, badgeIDs []uuid.UUID) error {
	if len(badgeIDs) == 0 {
		return nil
	}
	if err := s.store.AddBadges(ctx, userID, badgeIDs); err != nil {
		return fmt.Errorf("add badges to user %s: %w", userID, err)
	}
	for _, id := range badgeIDs {
		act := &models.Activity{UserID: userID, Kind: models.ActivityBadgeEarned, SubjectID: id}
		if err := s.store.InsertActivity(ctx, act); err != nil {
			s.logger.WithError(err).WithField("user", userID).Warn("failed to record badge activity")
		}
	}
	return nil
}

// CreateBadge defines a new badge that can later be awarded.
func (s *Service) CreateBadge(ctx context.Context, b *models.Badge) error {
	if strings.TrimSpace(b.Name) == "" {
		verr := &models.ValidationError{}
		verr.Add("name", "can't be blank")
		return verr
	}
	if err := s.store.CreateBadge(ctx, b); err != nil {
		return fmt.Errorf("create badge: %w", err)
	}
	return nil
}

func (s *Service) Badges(ctx context.Context, userID uuid.UUID) ([]models.Badge, error) {
	return s.store.UserBadges(ctx, userID)
}
