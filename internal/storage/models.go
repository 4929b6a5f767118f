package storage

import "time"

// Session is a persisted dashboard login. The upstream bearer token is only
// stored sealed, TokenHash identifies it for invalidation.
type Session struct {
	ID          string    `db:"id"`
	TokenHash   string    `db:"token_hash"`
	SealedToken []byte    `db:"sealed_token"`
	UserID      int64     `db:"user_id"`
	Username    string    `db:"username"`
	Name        string    `db:"name"`
	Role        string    `db:"role"`
	MosqueID    int64     `db:"mosque_id"`
	CreatedAt   time.Time `db:"created_at"`
	ExpiresAt   time.Time `db:"expires_at"`
}
