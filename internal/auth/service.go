package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"achievio.org/internal/users"
)

const (
	defaultAccessTTL  = time.Hour
	defaultRefreshTTL = 7 * 24 * time.Hour
)

// Service orchestrates the session lifecycle: login, registration,
// refresh-token rotation, revocation and logout. It never touches HTTP
// or user-persistence mechanics directly; both arrive as injected
// collaborators.
type Service struct {
	userDir UserDirectory
	ledger  TokenStore
	hasher  Hasher
	now     func() time.Time

	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration

	// revokeOnRotate hardens refresh by revoking the presented row
	// once a successor is issued. Off by default: historically both
	// rows stay valid until the old one is explicitly revoked or
	// replayed after revocation.
	revokeOnRotate bool
}

// Option configures Service behavior.
type Option func(*Service) error

// WithAccessTTL configures access token lifetime.
func WithAccessTTL(ttl time.Duration) Option {
	return func(s *Service) error {
		if ttl > 0 {
			s.accessTTL = ttl
		}
		return nil
	}
}

// WithRefreshTTL configures refresh token lifetime.
func WithRefreshTTL(ttl time.Duration) Option {
	return func(s *Service) error {
		if ttl > 0 {
			s.refreshTTL = ttl
		}
		return nil
	}
}

// WithHasherCost overrides the bcrypt work factor.
func WithHasherCost(cost int) Option {
	return func(s *Service) error {
		s.hasher = NewHasher(cost)
		return nil
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) Option {
	return func(s *Service) error {
		if fn != nil {
			s.now = fn
		}
		return nil
	}
}

// WithRevokeOnRotate revokes the presented ledger row after a
// successful refresh instead of leaving it valid alongside its
// successor.
func WithRevokeOnRotate(enabled bool) Option {
	return func(s *Service) error {
		s.revokeOnRotate = enabled
		return nil
	}
}

// NewService constructs the authentication service. The two signing
// secrets must be present and distinct: sharing one secret across both
// token families would let a leaked access secret forge refresh tokens.
func NewService(userDir UserDirectory, ledger TokenStore, accessSecret, refreshSecret string, opts ...Option) (*Service, error) {
	if userDir == nil {
		return nil, errors.New("auth: user directory is required")
	}
	if ledger == nil {
		return nil, errors.New("auth: token ledger is required")
	}
	accessSecret = strings.TrimSpace(accessSecret)
	refreshSecret = strings.TrimSpace(refreshSecret)
	if accessSecret == "" || refreshSecret == "" {
		return nil, errors.New("auth: both signing secrets are required")
	}
	if accessSecret == refreshSecret {
		return nil, errors.New("auth: access and refresh secrets must differ")
	}

	svc := &Service{
		userDir:       userDir,
		ledger:        ledger,
		hasher:        NewHasher(DefaultHashCost),
		now:           time.Now,
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     defaultAccessTTL,
		refreshTTL:    defaultRefreshTTL,
	}
	for _, opt := range opts {
		if err := opt(svc); err != nil {
			return nil, err
		}
	}
	return svc, nil
}

// Login validates credentials and issues a fresh token pair. Unknown
// email and wrong password produce the identical error.
func (s *Service) Login(ctx context.Context, email, password string) (*users.User, TokenPair, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return nil, TokenPair{}, ErrInvalidCredentials
	}
	user, err := s.userDir.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return nil, TokenPair{}, ErrInvalidCredentials
		}
		return nil, TokenPair{}, err
	}
	if !s.hasher.Verify(password, user.Password) {
		return nil, TokenPair{}, ErrInvalidCredentials
	}
	pair, err := s.mintTokens(ctx, user.ID)
	if err != nil {
		return nil, TokenPair{}, err
	}
	return user, pair, nil
}

// Register creates an account and issues a fresh token pair. The
// password is hashed before the user collaborator persists anything.
func (s *Service) Register(ctx context.Context, params RegisterParams) (*users.User, TokenPair, error) {
	email := strings.TrimSpace(strings.ToLower(params.Email))
	if email == "" || params.Password == "" {
		return nil, TokenPair{}, ErrInvalidCredentials
	}

	if _, err := s.userDir.FindByEmail(ctx, email); err == nil {
		return nil, TokenPair{}, ErrEmailInUse
	} else if !errors.Is(err, users.ErrNotFound) {
		return nil, TokenPair{}, err
	}

	hash, err := s.hasher.Hash(params.Password)
	if err != nil {
		return nil, TokenPair{}, err
	}
	user := &users.User{
		Email:    email,
		Username: strings.TrimSpace(params.Username),
		Phone:    strings.TrimSpace(params.Phone),
		Password: hash,
		Active:   true,
	}
	if err := s.userDir.Create(ctx, user); err != nil {
		// Lost the race against a concurrent registration.
		if errors.Is(err, users.ErrEmailConflict) {
			return nil, TokenPair{}, ErrEmailInUse
		}
		return nil, TokenPair{}, err
	}

	pair, err := s.mintTokens(ctx, user.ID)
	if err != nil {
		return nil, TokenPair{}, err
	}
	return user, pair, nil
}

// Profile returns the account behind userID.
func (s *Service) Profile(ctx context.Context, userID int64) (*users.User, error) {
	user, err := s.userDir.Find(ctx, userID)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return user, nil
}

// Logout revokes the ledger row named by the envelope. Revocation is
// keyed purely by row id, so logout succeeds even when the embedded
// tokens have long expired — the envelope only has to parse.
func (s *Service) Logout(ctx context.Context, encodedToken string) error {
	env := DecodeEnvelope(encodedToken)
	if env == nil || env.ID <= 0 {
		return ErrInvalidToken
	}
	return s.ledger.MarkRevoked(ctx, env.ID)
}

// Refresh exchanges a refresh-token envelope for a fresh pair. A
// revoked row being presented again is treated as a reuse signal:
// every outstanding session for the user is burned before the error
// is reported.
func (s *Service) Refresh(ctx context.Context, encodedToken string, userID int64) (TokenPair, error) {
	env := DecodeEnvelope(encodedToken)
	if env == nil || env.ID <= 0 {
		return TokenPair{}, ErrInvalidToken
	}

	rec, err := s.ledger.Find(ctx, env.ID)
	if err != nil {
		return TokenPair{}, err
	}
	if rec.Revoked {
		if err := s.ledger.MarkRevokedByUser(ctx, userID); err != nil {
			return TokenPair{}, err
		}
		return TokenPair{}, ErrTokenRevoked
	}
	if !s.hasher.Verify(tokenDigest(env.RefreshToken), rec.TokenHash) {
		return TokenPair{}, ErrInvalidToken
	}

	pair, err := s.mintTokens(ctx, userID)
	if err != nil {
		return TokenPair{}, err
	}
	if s.revokeOnRotate {
		if err := s.ledger.MarkRevoked(ctx, rec.ID); err != nil {
			return TokenPair{}, err
		}
	}
	return pair, nil
}

// Sessions pages through the caller's refresh-token ledger rows,
// revoked ones included, so a user can review outstanding sessions.
func (s *Service) Sessions(ctx context.Context, userID int64, page, limit int) (TokenPage, error) {
	return s.ledger.ListByUser(ctx, userID, page, limit)
}

// Session returns one ledger row. Rows owned by anyone else report
// ErrNotFound, never a permission error, so ids cannot be probed.
func (s *Service) Session(ctx context.Context, userID, id int64) (*TokenRecord, error) {
	rec, err := s.ledger.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.UserID != userID {
		return nil, ErrNotFound
	}
	return rec, nil
}

// VerifyAccess validates an access token and returns the user id it
// was issued for.
func (s *Service) VerifyAccess(token string) (int64, error) {
	claims, err := verifyToken(token, s.accessSecret, s.now)
	if err != nil {
		return 0, err
	}
	return claims.UserID, nil
}

// VerifyRefresh validates a signed refresh token (the JWT inside an
// envelope, not the envelope itself).
func (s *Service) VerifyRefresh(token string) (int64, error) {
	claims, err := verifyToken(token, s.refreshSecret, s.now)
	if err != nil {
		return 0, err
	}
	return claims.UserID, nil
}

// tokenDigest folds a signed token to a fixed 64-byte hex digest
// before the bcrypt step. Signed tokens run well past bcrypt's
// 72-byte input limit, which rejects longer secrets outright.
func tokenDigest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// mintTokens signs an access/refresh pair, persists the hashed refresh
// token as a new ledger row and wraps row id + token into the opaque
// envelope the client stores.
func (s *Service) mintTokens(ctx context.Context, userID int64) (TokenPair, error) {
	now := s.now()
	accessToken, accessExp, err := signToken(userID, s.accessSecret, s.accessTTL, now)
	if err != nil {
		return TokenPair{}, err
	}
	refreshToken, refreshExp, err := signToken(userID, s.refreshSecret, s.refreshTTL, now)
	if err != nil {
		return TokenPair{}, err
	}

	hash, err := s.hasher.Hash(tokenDigest(refreshToken))
	if err != nil {
		return TokenPair{}, err
	}
	rec := &TokenRecord{
		UserID:    userID,
		TokenHash: hash,
		ExpiresAt: refreshExp,
	}
	if err := s.ledger.Create(ctx, rec); err != nil {
		return TokenPair{}, err
	}

	return TokenPair{
		AccessToken:      accessToken,
		RefreshToken:     EncodeEnvelope(Envelope{ID: rec.ID, RefreshToken: refreshToken}),
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}
