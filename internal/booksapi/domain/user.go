package domain

import "time"

// User is the identity record owned by the credential store. The username is
// the natural key and is immutable after registration.
type User struct {
	ID           string
	Username     string
	PasswordHash string // argon2id PHC encoded, never the raw password
	CreatedAt    time.Time
}
