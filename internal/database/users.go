package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/givdo/givdo/internal/models"
)

const userColumns = `id, provider, uid, name, image, provider_token, organization_id, created_at`

// upsertUserQ inserts the (provider, uid) identity or, on conflict, applies
// only the non-null attributes to the existing row.
const upsertUserQ = `
	INSERT INTO users (id, provider, uid, name, image, provider_token)
	VALUES ($1, $2, $3, COALESCE($4, ''), COALESCE($5, ''), COALESCE($6, ''))
	ON CONFLICT (provider, uid) DO UPDATE SET
		name           = COALESCE($4, users.name),
		image          = COALESCE($5, users.image),
		provider_token = COALESCE($6, users.provider_token)
	RETURNING ` + userColumns

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(
		&u.ID, &u.Provider, &u.UID, &u.Name, &u.Image,
		&u.ProviderToken, &u.OrganizationID, &u.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func upsertUser(ctx context.Context, q querier, provider, uid string, attrs models.UserAttributes) (*models.User, error) {
	row := q.QueryRow(ctx, upsertUserQ,
		uuid.New(), provider, uid, attrs.Name, attrs.Image, attrs.ProviderToken,
	)
	return scanUser(row)
}

// UpsertUser finds or creates the user for (provider, uid) and applies attrs.
func (s *Store) UpsertUser(ctx context.Context, provider, uid string, attrs models.UserAttributes) (*models.User, error) {
	if err := models.ValidateIdentity(provider, uid); err != nil {
		return nil, err
	}
	var u *models.User
	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		var err error
		u, err = upsertUser(ctx, tx, provider, uid, attrs)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("upsert user: %w", err)
	}
	return u, nil
}

// UpsertUsers upserts every profile in one transaction and returns the users
// in input order. Any invalid profile aborts the batch before it starts.
func (s *Store) UpsertUsers(ctx context.Context, provider string, profiles []models.Profile) ([]*models.User, error) {
	for _, p := range profiles {
		if err := models.ValidateIdentity(provider, p.ID); err != nil {
			return nil, err
		}
	}
	users := make([]*models.User, 0, len(profiles))
	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		for _, p := range profiles {
			u, err := upsertUser(ctx, tx, provider, p.ID, p.Attributes())
			if err != nil {
				return fmt.Errorf("profile %s: %w", p.ID, err)
			}
			users = append(users, u)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("upsert users: %w", err)
	}
	return users, nil
}

func (s *Store) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	u, err := scanUser(s.pool.QueryRow(ctx, q, id))
	if err != nil {
		return nil, translate(err)
	}
	return u, nil
}

func (s *Store) SetUserOrganization(ctx context.Context, userID, orgID uuid.UUID) error {
	q := `UPDATE users SET organization_id = $2 WHERE id = $1`
	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		ct, err := tx.Exec(ctx, q, userID, orgID)
		if err != nil {
			return err
		}
		if ct.RowsAffected() == 0 {
			return models.ErrNotFound
		}
		return nil
	})
	return translate(err)
}

func (s *Store) InsertActivity(ctx context.Context, a *models.Activity) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	q := `
		INSERT INTO activities (id, user_id, kind, subject_id)
		VALUES ($1, $2, $3, $4)
		RETURNING seq, created_at
	`
	err := s.pool.QueryRow(ctx, q, a.ID, a.UserID, a.Kind, a.SubjectID).Scan(&a.Seq, &a.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert activity: %w", translate(err))
	}
	return nil
}

// RecentActivities returns the newest activities first; equal timestamps keep
// the later insertion first.
func (s *Store) RecentActivities(ctx context.Context, userID uuid.UUID, limit int) ([]models.Activity, error) {
	q := `
		SELECT id, seq, user_id, kind, subject_id, created_at
		FROM activities
		WHERE user_id = $1
		ORDER BY created_at DESC, seq DESC
		LIMIT $2
	`
	rows, err := s.pool.Query(ctx, q, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Activity
	for rows.Next() {
		var a models.Activity
		if err := rows.Scan(&a.ID, &a.Seq, &a.UserID, &a.Kind, &a.SubjectID, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) CreateBadge(ctx context.Context, b *models.Badge) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	_, err := s.pool.Exec(ctx, `INSERT INTO badges (id, name, image) VALUES ($1, $2, $3)`, b.ID, b.Name, b.Image)
	return err
}

// AddBadges appends the badges to the user's collection. Duplicates are kept.
func (s *Store) AddBadges(ctx context.Context, userID uuid.UUID, badgeIDs []uuid.UUID) error {
	q := `INSERT INTO user_badges (user_id, badge_id) VALUES ($1, $2)`
	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		for _, id := range badgeIDs {
			if _, err := tx.Exec(ctx, q, userID, id); err != nil {
				return err
			}
		}
		return nil
	})
	return translate(err)
}

func (s *Store) UserBadges(ctx context.Context, userID uuid.UUID) ([]models.Badge, error) {
	q := `
		SELECT b.id, b.name, b.image
		FROM user_badges ub
		JOIN badges b ON b.id = ub.badge_id
		WHERE ub.user_id = $1
		ORDER BY ub.id
	`
	rows, err := s.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Badge
	for rows.Next() {
		var b models.Badge
		if err := rows.Scan(&b.ID, &b.Name, &b.Image); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
