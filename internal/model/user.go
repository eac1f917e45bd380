// Package model defines the data structures used throughout the application.
package model

import "time"

// User represents a registered account.
//
// Identity is a plain username/password pair. The bcrypt hash of the password
// is stored in PasswordHash; the plaintext never leaves the auth service.
//
// WHY `json:"-"` ON PasswordHash?
// User is serialized in API responses (login, registration). The "-" tag makes
// encoding/json skip the field entirely, so a hash can never leak into a
// response body by accident.
type User struct {
	ID           string    `json:"id"        db:"id"`
	Username     string    `json:"username"  db:"username"` // unique
	PasswordHash string    `json:"-"         db:"password_hash"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
}
