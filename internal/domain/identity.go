package domain

import (
	"time"

	"github.com/google/uuid"
)

// Identity is an anonymous visitor. The device secret lets the same
// device resume the identity after its access token expires.
type Identity struct {
	ID         uuid.UUID `json:"id"`
	SecretHash string    `json:"-"`
	CreatedAt  time.Time `json:"created_at"`
}
