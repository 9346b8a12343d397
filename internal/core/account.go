package core

import "time"

// Account is a stored login. Email is trimmed and lower case; PasswordHash is
// a bcrypt hash.
type Account struct {
	ID           string
	Name         string
	Email        string
	PasswordHash []byte
	CreatedAt    time.Time
}
