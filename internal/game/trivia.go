package game

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/givdo/givdo/internal/models"
)

// CreateTrivia validates and stores a question. Trivia without a category
// land in the "Other" category.
func (s *Service) CreateTrivia(ctx context.Context, t *models.Trivia) error {
	if err := t.Validate(); err != nil {
		return err
	}
	if t.CategoryID == uuid.Nil {
		c, err := s.store.FindOrCreateCategory(ctx, models.OtherCategory)
		if err != nil {
			return err
		}
		t.CategoryID = c.ID
	}
	if err := s.store.CreateTrivia(ctx, t); err != nil {
		return fmt.Errorf("create trivia: %w", err)
	}
	return nil
}
