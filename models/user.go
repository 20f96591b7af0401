package models

import (
	"encoding/json"
	"time"
)

const (
	// DefaultUserID represents the single-profile install before any
	// profiles are created.
	DefaultUserID = "default"
	// DefaultUserName is used when creating the initial profile.
	DefaultUserName = "Primary Profile"
)

// User models an ISweep viewing profile. Each profile carries its own filter
// preferences keyed by User.ID.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	PinHash   string    `json:"-"` // bcrypt hash of the parental-lock PIN, never serialized
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// HasPin returns true if the profile has a parental-lock PIN set.
func (u User) HasPin() bool {
	return u.PinHash != ""
}

// MarshalJSON includes the computed hasPin field so clients can render the
// lock state without ever seeing the hash.
func (u User) MarshalJSON() ([]byte, error) {
	type UserAlias User // prevent recursion
	return json.Marshal(&struct {
		UserAlias
		HasPin bool `json:"hasPin"`
	}{
		UserAlias: UserAlias(u),
		HasPin:    u.HasPin(),
	})
}
