package auth

import "time"

// TokenRecord is one row of the refresh-token ledger. The ledger stores
// a bcrypt hash of the signed refresh token, never the token itself, so
// a database leak does not yield usable credentials.
type TokenRecord struct {
	ID        int64      `json:"id"`
	UserID    int64      `json:"user_id"`
	TokenHash string     `json:"-"`
	Revoked   bool       `json:"revoked"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
	ExpiresAt time.Time  `json:"expires_at"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"-"`
}

// TokenPage is one page of a user's ledger rows, hashes excluded by
// the TokenRecord serialization.
type TokenPage struct {
	Items []*TokenRecord `json:"items"`
	Page  int            `json:"page"`
	Total int            `json:"total"`
	Pages int            `json:"pages"`
}

// TokenPair carries a freshly issued access token and the encoded
// refresh-token envelope along with their expirations. The HTTP layer
// decides how the pair travels (cookies, headers); the core only ever
// produces string values.
type TokenPair struct {
	AccessToken      string    `json:"accessToken"`
	RefreshToken     string    `json:"refreshToken"`
	AccessExpiresAt  time.Time `json:"accessExpiresAt"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt"`
}

// RegisterParams is the data required to create an account.
type RegisterParams struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}
