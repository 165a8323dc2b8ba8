package models

import (
	"database/sql"
	"time"
)

// User is an identity record. PasswordHash is empty for accounts created
// through an OAuth provider. Provider and ProviderID are set together or
// not at all; the pair is unique when present.
type User struct {
	ID           int64
	Email        string
	Username     string
	PasswordHash string
	Provider     sql.NullString
	ProviderID   sql.NullString
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
	LastLogin    sql.NullTime
}
