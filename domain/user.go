package domain

import (
	"time"

	"github.com/google/uuid"
)

// ConnectionID is the opaque token the transport assigns to one live connection.
type ConnectionID string

// User is a registered chat identity. Immutable once created.
// The credential is stored as an Argon2id hash, never in clear text.
type User struct {
	ID             uuid.UUID
	Name           string
	CredentialHash string
	CreatedAt      time.Time
}
