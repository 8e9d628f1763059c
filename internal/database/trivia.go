package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/givdo/givdo/internal/models"
)

// FindOrCreateCategory returns the category with name, inserting it when missing.
func (s *Store) FindOrCreateCategory(ctx context.Context, name string) (*models.Category, error) {
	q := `
		INSERT INTO categories (id, name) VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id, name
	`
	var c models.Category
	if err := s.pool.QueryRow(ctx, q, uuid.New(), name).Scan(&c.ID, &c.Name); err != nil {
		return nil, fmt.Errorf("find or create category %q: %w", name, err)
	}
	return &c, nil
}

func (s *Store) CreateTrivia(ctx context.Context, t *models.Trivia) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `INSERT INTO trivias (id, title, category_id) VALUES ($1, $2, $3)`,
			t.ID, t.Title, t.CategoryID)
		if err != nil {
			return err
		}
		for i := range t.Options {
			o := &t.Options[i]
			if o.ID == uuid.Nil {
				o.ID = uuid.New()
			}
			o.TriviaID = t.ID
			_, err := tx.Exec(ctx, `
				INSERT INTO trivia_options (id, trivia_id, position, text, correct)
				VALUES ($1, $2, $3, $4, $5)
			`, o.ID, t.ID, i, o.Text, o.Correct)
			if err != nil {
				return err
			}
		}
		return nil
	})
	return translate(err)
}

func (s *Store) GetTrivia(ctx context.Context, id uuid.UUID) (*models.Trivia, error) {
	var t models.Trivia
	err := s.pool.QueryRow(ctx, `SELECT id, title, category_id FROM trivias WHERE id = $1`, id).
		Scan(&t.ID, &t.Title, &t.CategoryID)
	if err != nil {
		return nil, translate(err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, trivia_id, text, correct
		FROM trivia_options
		WHERE trivia_id = $1
		ORDER BY position
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var o models.TriviaOption
		if err := rows.Scan(&o.ID, &o.TriviaID, &o.Text, &o.Correct); err != nil {
			return nil, err
		}
		t.Options = append(t.Options, o)
	}
	return &t, rows.Err()
}

// RandomTrivia picks a trivia whose id is not in exclude.
func (s *Store) RandomTrivia(ctx context.Context, exclude []uuid.UUID) (*models.Trivia, error) {
	if exclude == nil {
		exclude = []uuid.UUID{}
	}
	var id uuid.UUID
	err := s.pool.QueryRow(ctx, `
		SELECT id FROM trivias
		WHERE NOT (id = ANY($1::uuid[]))
		ORDER BY random()
		LIMIT 1
	`, exclude).Scan(&id)
	if err != nil {
		return nil, translate(err)
	}
	return s.GetTrivia(ctx, id)
}
