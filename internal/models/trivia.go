package models

import "github.com/google/uuid"

// OtherCategory is the name of the fallback category for uncategorized trivia.
const OtherCategory = "Other"

type Category struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// Trivia is a question with a set of options, exactly one of which is correct.
type Trivia struct {
	ID         uuid.UUID      `json:"id"`
	Title      string         `json:"title"`
	CategoryID uuid.UUID      `json:"category_id"`
	Options    []TriviaOption `json:"options"`
}

type TriviaOption struct {
	ID       uuid.UUID `json:"id"`
	TriviaID uuid.UUID `json:"-"`
	Text     string    `json:"text"`
	Correct  bool      `json:"-"`
}

// CorrectOption returns the option flagged correct, or nil when none is.
func (t *Trivia) CorrectOption() *TriviaOption {
	for i := range t.Options {
		if t.Options[i].Correct {
			return &t.Options[i]
		}
	}
	return nil
}

// Option looks up an option of this trivia by id.
func (t *Trivia) Option(id uuid.UUID) *TriviaOption {
	for i := range t.Options {
		if t.Options[i].ID == id {
			return &t.Options[i]
		}
	}
	return nil
}

// IsCorrect reports whether optionID is this trivia's correct option.
func (t *Trivia) IsCorrect(optionID uuid.UUID) bool {
	c := t.CorrectOption()
	return c != nil && c.ID == optionID
}

// Validate checks that the trivia has a title and exactly one correct option.
func (t *Trivia) Validate() error {
	verr := &ValidationError{}
	if t.Title == "" {
		verr.Add("title", blankMessage)
	}
	if len(t.Options) < 2 {
		verr.Add("options", "needs at least two options")
	}
	correct := 0
	for _, o := range t.Options {
		if o.Text == "" {
			verr.Add("options", "option text "+blankMessage)
		}
		if o.Correct {
			correct++
		}
	}
	if correct != 1 {
		verr.Add("options", "needs exactly one correct option")
	}
	return verr.errOrNil()
}
