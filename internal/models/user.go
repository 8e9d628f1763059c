package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

const blankMessage = "can't be blank"

// User is an account identified by a provider and the provider-scoped uid.
type User struct {
	ID             uuid.UUID  `json:"id"`
	Provider       string     `json:"provider"`
	UID            string     `json:"uid"`
	Name           string     `json:"name"`
	Image          string     `json:"image"`
	ProviderToken  string     `json:"-"`
	OrganizationID *uuid.UUID `json:"organization_id,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// Validate checks the identity fields required before a user can be stored.
func (u *User) Validate() error {
	return ValidateIdentity(u.Provider, u.UID)
}

// ValidateIdentity checks a (provider, uid) pair, reporting each blank field.
func ValidateIdentity(provider, uid string) error {
	verr := &ValidationError{}
	if strings.TrimSpace(uid) == "" {
		verr.Add("uid", blankMessage)
	}
	if strings.TrimSpace(provider) == "" {
		verr.Add("provider", blankMessage)
	}
	return verr.errOrNil()
}

// UserAttributes are the mutable fields applied on every provider login.
// Nil pointers leave the stored value untouched.
type UserAttributes struct {
	ProviderToken *string
	Name          *string
	Image         *string
}

// Apply copies every non-nil attribute onto u.
func (a UserAttributes) Apply(u *User) {
	if a.ProviderToken != nil {
		u.ProviderToken = *a.ProviderToken
	}
	if a.Name != nil {
		u.Name = *a.Name
	}
	if a.Image != nil {
		u.Image = *a.Image
	}
}

// Profile is an external profile record as returned by a provider's friend
// listing. Name and Image are optional.
type Profile struct {
	ID    string  `json:"id"`
	Name  *string `json:"name,omitempty"`
	Image *string `json:"image,omitempty"`
}

// Attributes converts the optional profile fields into UserAttributes.
func (p Profile) Attributes() UserAttributes {
	return UserAttributes{Name: p.Name, Image: p.Image}
}
