package domain

import "time"

// PersonalAccessToken is an opaque API token; only its sha256 hash is stored.
type PersonalAccessToken struct {
	ID        int64
	TokenHash string
	UserID    int64
	Abilities string
	ExpiresAt *time.Time
}
