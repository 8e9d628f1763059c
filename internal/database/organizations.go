package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/givdo/givdo/internal/models"
)

const orgColumns = `id, facebook_id, name, mission, street, city, state, zip, picture, cached`

func scanOrganization(row pgx.Row) (*models.Organization, error) {
	var o models.Organization
	err := row.Scan(
		&o.ID, &o.FacebookID, &o.Name, &o.Mission,
		&o.Street, &o.City, &o.State, &o.Zip, &o.Picture, &o.Cached,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (s *Store) CreateOrganization(ctx context.Context, o *models.Organization) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	q := `
		INSERT INTO organizations (` + orgColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := s.pool.Exec(ctx, q,
		o.ID, o.FacebookID, o.Name, o.Mission,
		o.Street, o.City, o.State, o.Zip, o.Picture, o.Cached,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		verr := &models.ValidationError{}
		verr.Add("facebook_id", "has already been taken")
		return verr
	}
	return err
}

func (s *Store) GetOrganization(ctx context.Context, id uuid.UUID) (*models.Organization, error) {
	o, err := scanOrganization(s.pool.QueryRow(ctx, `SELECT `+orgColumns+` FROM organizations WHERE id = $1`, id))
	if err != nil {
		return nil, translate(err)
	}
	return o, nil
}

func (s *Store) UncachedOrganizations(ctx context.Context) ([]*models.Organization, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+orgColumns+` FROM organizations WHERE NOT cached ORDER BY facebook_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Organization
	for rows.Next() {
		o, err := scanOrganization(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// CacheOrganization writes every fetched field and flips cached in a single
// statement. It reports false when the row was already cached.
func (s *Store) CacheOrganization(ctx context.Context, o *models.Organization) (bool, error) {
	q := `
		UPDATE organizations
		SET name = $2, mission = $3, street = $4, city = $5, state = $6, zip = $7,
		    picture = $8, cached = true
		WHERE id = $1 AND NOT cached
	`
	var updated bool
	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		ct, err := tx.Exec(ctx, q,
			o.ID, o.Name, o.Mission, o.Street, o.City, o.State, o.Zip, o.Picture,
		)
		if err != nil {
			return err
		}
		if ct.RowsAffected() == 1 {
			updated = true
			return nil
		}
		var cached bool
		return tx.QueryRow(ctx, `SELECT cached FROM organizations WHERE id = $1`, o.ID).Scan(&cached)
	})
	if err != nil {
		return false, fmt.Errorf("cache organization %s: %w", o.ID, translate(err))
	}
	return updated, nil
}
