package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/givdo/givdo/internal/models"
)

// CreateGame inserts the game and its seated players in one transaction.
func (s *Store) CreateGame(ctx context.Context, g *models.Game) error {
	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO games (id, creator_id, mode, rounds)
			VALUES ($1, $2, $3, $4)
			RETURNING created_at
		`, g.ID, g.CreatorID, g.Mode, g.Rounds).Scan(&g.CreatedAt)
		if err != nil {
			return err
		}
		for seat, p := range g.Players {
			_, err := tx.Exec(ctx, `
				INSERT INTO players (id, game_id, user_id, seat, organization_id)
				VALUES ($1, $2, $3, $4, $5)
			`, p.ID, g.ID, p.UserID, seat, p.OrganizationID)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("create game: %w", translate(err))
	}
	return nil
}

func (s *Store) GetGame(ctx context.Context, id uuid.UUID) (*models.Game, error) {
	var g models.Game
	err := s.pool.QueryRow(ctx, `
		SELECT id, creator_id, mode, rounds, created_at, finished_at FROM games WHERE id = $1
	`, id).Scan(&g.ID, &g.CreatorID, &g.Mode, &g.Rounds, &g.CreatedAt, &g.FinishedAt)
	if err != nil {
		return nil, translate(err)
	}
	if g.Players, err = s.loadPlayers(ctx, g.ID); err != nil {
		return nil, fmt.Errorf("load players of game %s: %w", g.ID, err)
	}
	return &g, nil
}

// loadPlayers reads the seats of a game with their user, organization and answers.
func (s *Store) loadPlayers(ctx context.Context, gameID uuid.UUID) ([]*models.Player, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT p.id, p.game_id, p.user_id, p.organization_id, p.finished_at,
		       u.provider, u.uid, u.name, u.image,
		       o.id, COALESCE(o.facebook_id, ''), COALESCE(o.name, ''), COALESCE(o.mission, ''),
		       COALESCE(o.street, ''), COALESCE(o.city, ''), COALESCE(o.state, ''), COALESCE(o.zip, ''),
		       COALESCE(o.picture, ''), COALESCE(o.cached, false)
		FROM players p
		JOIN users u ON u.id = p.user_id
		LEFT JOIN organizations o ON o.id = p.organization_id
		WHERE p.game_id = $1
		ORDER BY p.seat
	`, gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var players []*models.Player
	byID := make(map[uuid.UUID]*models.Player)
	for rows.Next() {
		p := &models.Player{User: &models.User{}}
		var (
			orgID *uuid.UUID
			org   models.Organization
		)
		err := rows.Scan(
			&p.ID, &p.GameID, &p.UserID, &p.OrganizationID, &p.FinishedAt,
			&p.User.Provider, &p.User.UID, &p.User.Name, &p.User.Image,
			&orgID, &org.FacebookID, &org.Name, &org.Mission,
			&org.Street, &org.City, &org.State, &org.Zip,
			&org.Picture, &org.Cached,
		)
		if err != nil {
			return nil, err
		}
		p.User.ID = p.UserID
		if orgID != nil {
			org.ID = *orgID
			p.Organization = &org
		}
		players = append(players, p)
		byID[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	ans, err := s.pool.Query(ctx, `
		SELECT a.id, a.player_id, a.trivia_id, a.trivia_option_id, a.correct, a.created_at
		FROM answers a
		JOIN players p ON p.id = a.player_id
		WHERE p.game_id = $1
		ORDER BY a.created_at
	`, gameID)
	if err != nil {
		return nil, err
	}
	defer ans.Close()
	for ans.Next() {
		var a models.Answer
		if err := ans.Scan(&a.ID, &a.PlayerID, &a.TriviaID, &a.TriviaOptionID, &a.Correct, &a.CreatedAt); err != nil {
			return nil, err
		}
		if p, ok := byID[a.PlayerID]; ok {
			p.Answers = append(p.Answers, a)
		}
	}
	return players, ans.Err()
}

// LatestGame returns the creator's most recent game of the given mode.
func (s *Store) LatestGame(ctx context.Context, creatorID uuid.UUID, mode models.GameMode) (*models.Game, error) {
	var id uuid.UUID
	err := s.pool.QueryRow(ctx, `
		SELECT id FROM games
		WHERE creator_id = $1 AND mode = $2
		ORDER BY created_at DESC
		LIMIT 1
	`, creatorID, mode).Scan(&id)
	if err != nil {
		return nil, translate(err)
	}
	return s.GetGame(ctx, id)
}

// UnfinishedVersusGame returns the newest versus game seating both users in
// which some player still has rounds to answer.
func (s *Store) UnfinishedVersusGame(ctx context.Context, a, b uuid.UUID) (*models.Game, error) {
	var id uuid.UUID
	err := s.pool.QueryRow(ctx, `
		SELECT g.id
		FROM games g
		JOIN players pa ON pa.game_id = g.id AND pa.user_id = $1
		JOIN players pb ON pb.game_id = g.id AND pb.user_id = $2
		WHERE g.mode = 'versus'
		  AND EXISTS (
			SELECT 1 FROM players p
			WHERE p.game_id = g.id
			  AND (SELECT COUNT(*) FROM answers x WHERE x.player_id = p.id) < g.rounds
		  )
		ORDER BY g.created_at DESC
		LIMIT 1
	`, a, b).Scan(&id)
	if err != nil {
		return nil, translate(err)
	}
	return s.GetGame(ctx, id)
}

// InsertAnswer stores a while the player's seat is locked, so concurrent
// answers cannot exceed the game's rounds. It returns models.ErrNoRoundsLeft
// when the player has already answered every round.
func (s *Store) InsertAnswer(ctx context.Context, a *models.Answer) error {
	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		var rounds int
		err := tx.QueryRow(ctx, `
			SELECT g.rounds
			FROM players p
			JOIN games g ON g.id = p.game_id
			WHERE p.id = $1
			FOR UPDATE OF p
		`, a.PlayerID).Scan(&rounds)
		if err != nil {
			return err
		}

		var answered int
		err = tx.QueryRow(ctx, `SELECT COUNT(*) FROM answers WHERE player_id = $1`, a.PlayerID).Scan(&answered)
		if err != nil {
			return err
		}
		if answered >= rounds {
			return models.ErrNoRoundsLeft
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO answers (id, player_id, trivia_id, trivia_option_id, correct, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, a.ID, a.PlayerID, a.TriviaID, a.TriviaOptionID, a.Correct, a.CreatedAt)
		return err
	})
	if err != nil {
		return fmt.Errorf("insert answer: %w", translate(err))
	}
	return nil
}

// FinishPlayer stamps finished_at unless it is already set. It reports
// whether this call did the stamping.
func (s *Store) FinishPlayer(ctx context.Context, playerID uuid.UUID, at time.Time) (bool, error) {
	ct, err := s.pool.Exec(ctx, `UPDATE players SET finished_at = $2 WHERE id = $1 AND finished_at IS NULL`, playerID, at)
	if err != nil {
		return false, fmt.Errorf("finish player: %w", err)
	}
	if ct.RowsAffected() == 1 {
		return true, nil
	}
	return false, s.exists(ctx, `SELECT EXISTS (SELECT 1 FROM players WHERE id = $1)`, playerID)
}

// FinishGame stamps the game as over once every player has finished. It
// reports whether this call did the stamping.
func (s *Store) FinishGame(ctx context.Context, gameID uuid.UUID, at time.Time) (bool, error) {
	ct, err := s.pool.Exec(ctx, `
		UPDATE games SET finished_at = $2
		WHERE id = $1 AND finished_at IS NULL
		  AND NOT EXISTS (SELECT 1 FROM players WHERE game_id = $1 AND finished_at IS NULL)
	`, gameID, at)
	if err != nil {
		return false, fmt.Errorf("finish game: %w", err)
	}
	if ct.RowsAffected() == 1 {
		return true, nil
	}
	return false, s.exists(ctx, `SELECT EXISTS (SELECT 1 FROM games WHERE id = $1)`, gameID)
}

func (s *Store) exists(ctx context.Context, query string, id uuid.UUID) error {
	var ok bool
	if err := s.pool.QueryRow(ctx, query, id).Scan(&ok); err != nil {
		return err
	}
	if !ok {
		return models.ErrNotFound
	}
	return nil
}
