package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserValidate(t *testing.T) {
	u := &User{Provider: "facebook", UID: "123"}
	require.NoError(t, u.Validate())

	u.UID = ""
	err := u.Validate()
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"can't be blank"}, verr.Fields["uid"])
	assert.NotContains(t, verr.Fields, "provider")

	u = &User{UID: "123"}
	require.ErrorAs(t, u.Validate(), &verr)
	assert.Equal(t, []string{"can't be blank"}, verr.Fields["provider"])
}

func TestUserAttributesApply(t *testing.T) {
	name := "John Doe"
	u := &User{Name: "old", Image: "old.jpg", ProviderToken: "old"}

	UserAttributes{Name: &name}.Apply(u)

	assert.Equal(t, "John Doe", u.Name)
	assert.Equal(t, "old.jpg", u.Image)
	assert.Equal(t, "old", u.ProviderToken)
}

func TestTriviaValidate(t *testing.T) {
	tr := &Trivia{Title: "q", Options: []TriviaOption{{Text: "a", Correct: true}, {Text: "b", Correct: true}}}
	var verr *ValidationError
	require.ErrorAs(t, tr.Validate(), &verr)
	assert.Contains(t, verr.Fields["options"], "needs exactly one correct option")
}
