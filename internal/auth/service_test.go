package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"achievio.org/internal/users"
)

func newTestService(t *testing.T, opts ...Option) (*Service, *users.MemoryStore, *MemoryStore) {
	t.Helper()
	userStore := users.NewMemoryStore()
	ledger := NewMemoryStore()
	base := []Option{WithHasherCost(4)}
	svc, err := NewService(userStore, ledger, "access-secret", "refresh-secret", append(base, opts...)...)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc, userStore, ledger
}

func registerTestUser(t *testing.T, svc *Service) (*users.User, TokenPair) {
	t.Helper()
	user, pair, err := svc.Register(context.Background(), RegisterParams{
		Email:    "ada@example.com",
		Username: "ada",
		Password: "hunter2!",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	return user, pair
}

func TestNewServiceRejectsBadSecrets(t *testing.T) {
	userStore := users.NewMemoryStore()
	ledger := NewMemoryStore()

	if _, err := NewService(userStore, ledger, "", "refresh"); err == nil {
		t.Fatal("expected error for empty access secret")
	}
	if _, err := NewService(userStore, ledger, "same", "same"); err == nil {
		t.Fatal("expected error for identical secrets")
	}
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _, _ := newTestService(t)
	user, pair := registerTestUser(t, svc)

	if user.ID == 0 {
		t.Fatal("expected assigned user id")
	}
	if user.Password == "hunter2!" {
		t.Fatal("password stored in plaintext")
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatal("expected both tokens to be issued")
	}

	got, loginPair, err := svc.Login(context.Background(), "ADA@example.com", "hunter2!")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if got.ID != user.ID {
		t.Fatalf("login returned user %d, want %d", got.ID, user.ID)
	}
	if loginPair.AccessToken == "" {
		t.Fatal("login issued no access token")
	}

	uid, err := svc.VerifyAccess(loginPair.AccessToken)
	if err != nil {
		t.Fatalf("VerifyAccess: %v", err)
	}
	if uid != user.ID {
		t.Fatalf("access token carries user %d, want %d", uid, user.ID)
	}
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	svc, _, _ := newTestService(t)
	registerTestUser(t, svc)

	_, _, unknownErr := svc.Login(context.Background(), "nobody@example.com", "hunter2!")
	_, _, wrongPassErr := svc.Login(context.Background(), "ada@example.com", "wrong")

	if !errors.Is(unknownErr, ErrInvalidCredentials) {
		t.Fatalf("unknown email: got %v, want ErrInvalidCredentials", unknownErr)
	}
	if !errors.Is(wrongPassErr, ErrInvalidCredentials) {
		t.Fatalf("wrong password: got %v, want ErrInvalidCredentials", wrongPassErr)
	}
	if unknownErr.Error() != wrongPassErr.Error() {
		t.Fatalf("failure modes leak: %q vs %q", unknownErr, wrongPassErr)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _, _ := newTestService(t)
	registerTestUser(t, svc)

	_, _, err := svc.Register(context.Background(), RegisterParams{
		Email:    "Ada@Example.com",
		Username: "ada2",
		Password: "another",
	})
	if !errors.Is(err, ErrEmailInUse) {
		t.Fatalf("got %v, want ErrEmailInUse", err)
	}
}

func TestRefreshRotatesAndKeepsOldRowValid(t *testing.T) {
	svc, _, ledger := newTestService(t)
	user, pair := registerTestUser(t, svc)

	next, err := svc.Refresh(context.Background(), pair.RefreshToken, user.ID)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if next.RefreshToken == pair.RefreshToken {
		t.Fatal("refresh returned the same envelope")
	}

	// Without revoke-on-rotate the presented row stays live.
	env := DecodeEnvelope(pair.RefreshToken)
	rec, err := ledger.Find(context.Background(), env.ID)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if rec.Revoked {
		t.Fatal("rotation revoked the presented row")
	}
}

func TestRefreshWithRevokeOnRotate(t *testing.T) {
	svc, _, ledger := newTestService(t, WithRevokeOnRotate(true))
	user, pair := registerTestUser(t, svc)

	if _, err := svc.Refresh(context.Background(), pair.RefreshToken, user.ID); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	env := DecodeEnvelope(pair.RefreshToken)
	rec, err := ledger.Find(context.Background(), env.ID)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if !rec.Revoked {
		t.Fatal("expected presented row to be revoked after rotation")
	}
}

func TestRefreshReuseBurnsAllSessions(t *testing.T) {
	svc, _, ledger := newTestService(t)
	user, stolen := registerTestUser(t, svc)

	// A second live session that should be collateral damage.
	_, second, err := svc.Login(context.Background(), "ada@example.com", "hunter2!")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	if err := svc.Logout(context.Background(), stolen.RefreshToken); err != nil {
		t.Fatalf("Logout: %v", err)
	}

	_, err = svc.Refresh(context.Background(), stolen.RefreshToken, user.ID)
	if !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("got %v, want ErrTokenRevoked", err)
	}

	secondEnv := DecodeEnvelope(second.RefreshToken)
	rec, err := ledger.Find(context.Background(), secondEnv.ID)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if !rec.Revoked {
		t.Fatal("reuse did not cascade to the user's other sessions")
	}
}

func TestRefreshMalformedEnvelope(t *testing.T) {
	svc, _, _ := newTestService(t)
	user, _ := registerTestUser(t, svc)

	for _, token := range []string{"", "not-base64!!", "eyJub3QiOiJqc29uIn0"} {
		if _, err := svc.Refresh(context.Background(), token, user.ID); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("token %q: got %v, want ErrInvalidToken", token, err)
		}
	}
}

func TestRefreshUnknownRow(t *testing.T) {
	svc, _, _ := newTestService(t)
	user, _ := registerTestUser(t, svc)

	forged := EncodeEnvelope(Envelope{ID: 9999, RefreshToken: "whatever"})
	if _, err := svc.Refresh(context.Background(), forged, user.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestLogoutRevokesRow(t *testing.T) {
	svc, _, ledger := newTestService(t)
	_, pair := registerTestUser(t, svc)

	if err := svc.Logout(context.Background(), pair.RefreshToken); err != nil {
		t.Fatalf("Logout: %v", err)
	}

	env := DecodeEnvelope(pair.RefreshToken)
	rec, err := ledger.Find(context.Background(), env.ID)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if !rec.Revoked || rec.RevokedAt == nil {
		t.Fatal("logout did not revoke the ledger row")
	}

	// Logout is idempotent on the same envelope.
	if err := svc.Logout(context.Background(), pair.RefreshToken); err != nil {
		t.Fatalf("second Logout: %v", err)
	}
}

func TestLogoutMalformedEnvelope(t *testing.T) {
	svc, _, _ := newTestService(t)

	if err := svc.Logout(context.Background(), "garbage"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("got %v, want ErrInvalidToken", err)
	}
}

func TestProfile(t *testing.T) {
	svc, _, _ := newTestService(t)
	user, _ := registerTestUser(t, svc)

	got, err := svc.Profile(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	if got.Email != "ada@example.com" {
		t.Fatalf("unexpected email %q", got.Email)
	}

	if _, err := svc.Profile(context.Background(), 4242); !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestAccessTokenExpiry(t *testing.T) {
	issued := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := issued
	svc, _, _ := newTestService(t,
		WithClock(func() time.Time { return clock }),
		WithAccessTTL(time.Minute),
	)
	_, pair := registerTestUser(t, svc)

	if _, err := svc.VerifyAccess(pair.AccessToken); err != nil {
		t.Fatalf("VerifyAccess before expiry: %v", err)
	}

	clock = issued.Add(2 * time.Minute)
	if _, err := svc.VerifyAccess(pair.AccessToken); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("got %v, want ErrTokenExpired", err)
	}
}

func TestAccessAndRefreshSecretsAreDisjoint(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, pair := registerTestUser(t, svc)

	env := DecodeEnvelope(pair.RefreshToken)
	if env == nil {
		t.Fatal("refresh envelope did not decode")
	}
	if _, err := svc.VerifyAccess(env.RefreshToken); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("refresh token accepted as access token: %v", err)
	}
	if _, err := svc.VerifyRefresh(pair.AccessToken); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("access token accepted as refresh token: %v", err)
	}
}

func TestLedgerStoresHashNotToken(t *testing.T) {
	svc, _, ledger := newTestService(t)
	_, pair := registerTestUser(t, svc)

	env := DecodeEnvelope(pair.RefreshToken)
	rec, err := ledger.Find(context.Background(), env.ID)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if rec.TokenHash == env.RefreshToken {
		t.Fatal("ledger stores the raw refresh token")
	}
	if !strings.HasPrefix(rec.TokenHash, "$2") {
		t.Fatalf("expected bcrypt hash, got %q", rec.TokenHash)
	}
	if !svc.hasher.Verify(tokenDigest(env.RefreshToken), rec.TokenHash) {
		t.Fatal("stored hash does not match the issued token")
	}
}

func TestSessionsListOwnRowsNewestFirst(t *testing.T) {
	svc, _, _ := newTestService(t)
	user, _ := registerTestUser(t, svc)
	if _, _, err := svc.Login(context.Background(), "ada@example.com", "hunter2!"); err != nil {
		t.Fatalf("Login: %v", err)
	}

	res, err := svc.Sessions(context.Background(), user.ID, 1, 10)
	if err != nil {
		t.Fatalf("Sessions: %v", err)
	}
	if res.Total != 2 || len(res.Items) != 2 {
		t.Fatalf("expected 2 rows, got total=%d items=%d", res.Total, len(res.Items))
	}
	if res.Items[0].ID < res.Items[1].ID {
		t.Fatal("rows not ordered newest first")
	}
	for _, rec := range res.Items {
		if rec.UserID != user.ID {
			t.Fatalf("row %d belongs to user %d", rec.ID, rec.UserID)
		}
	}

	paged, err := svc.Sessions(context.Background(), user.ID, 2, 1)
	if err != nil {
		t.Fatalf("Sessions page 2: %v", err)
	}
	if paged.Pages != 2 || len(paged.Items) != 1 {
		t.Fatalf("expected pages=2 items=1, got pages=%d items=%d", paged.Pages, len(paged.Items))
	}
}

func TestSessionHidesOtherUsersRows(t *testing.T) {
	svc, _, _ := newTestService(t)
	user, pair := registerTestUser(t, svc)
	env := DecodeEnvelope(pair.RefreshToken)

	rec, err := svc.Session(context.Background(), user.ID, env.ID)
	if err != nil {
		t.Fatalf("Session: %v", err)
	}
	if rec.ID != env.ID || rec.UserID != user.ID {
		t.Fatalf("unexpected row: %+v", rec)
	}

	other, _, err := svc.Register(context.Background(), RegisterParams{
		Email:    "grace@example.com",
		Username: "grace",
		Password: "hunter2!",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := svc.Session(context.Background(), other.ID, env.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign row, got %v", err)
	}
}

func TestMintSurvivesLongSignedTokens(t *testing.T) {
	// Signed tokens are far past bcrypt's 72-byte input limit; minting
	// must hash a digest, not the token itself.
	svc, _, _ := newTestService(t)
	user, pair := registerTestUser(t, svc)

	env := DecodeEnvelope(pair.RefreshToken)
	if env == nil {
		t.Fatal("refresh token is not a valid envelope")
	}
	if len(env.RefreshToken) <= 72 {
		t.Fatalf("signed refresh token unexpectedly short: %d bytes", len(env.RefreshToken))
	}
	if _, _, err := svc.Login(context.Background(), "ada@example.com", "hunter2!"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if _, err := svc.Refresh(context.Background(), pair.RefreshToken, user.ID); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
}

func TestRefreshRejectsTokenNotMatchingLedgerHash(t *testing.T) {
	svc, _, _ := newTestService(t)
	user, pair := registerTestUser(t, svc)

	// Second session for the same user, then splice its row id onto
	// the first session's signed token.
	_, pair2, err := svc.Login(context.Background(), "ada@example.com", "hunter2!")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	env1 := DecodeEnvelope(pair.RefreshToken)
	env2 := DecodeEnvelope(pair2.RefreshToken)
	spliced := EncodeEnvelope(Envelope{ID: env2.ID, RefreshToken: env1.RefreshToken})

	if _, err := svc.Refresh(context.Background(), spliced, user.ID); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}
