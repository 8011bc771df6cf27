package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/skolara/skolara/internal/identity"
	"github.com/skolara/skolara/internal/shared"
)

// Config holds the signing parameters for the token authority.
type Config struct {
	Issuer            string
	Secret            []byte
	Algorithm         string
	AccessTTL         time.Duration
	RefreshTTL        time.Duration
	Leeway            time.Duration
	RevocationEnabled bool
	RevocationGrace   time.Duration
}

// Pair is the token envelope returned by login and refresh.
type Pair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
}

// Authority issues, verifies, refreshes and revokes signed bearer tokens.
// Signing is stateless; the only shared state is the revocation set.
type Authority struct {
	cfg        Config
	identities identity.Repository
	revoked    RevocationSet
	method     jwt.SigningMethod
	clock      func() time.Time
}

// NewAuthority constructs an Authority.
func NewAuthority(cfg Config, identities identity.Repository, revoked RevocationSet) (*Authority, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("token: signing secret must be provided")
	}
	if cfg.Algorithm == "" {
		cfg.Algorithm = "HS256"
	}
	method := jwt.GetSigningMethod(cfg.Algorithm)
	if method == nil {
		return nil, fmt.Errorf("token: unknown signing algorithm %q", cfg.Algorithm)
	}
	if _, ok := method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("token: algorithm %q is not an HMAC method", cfg.Algorithm)
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = time.Hour
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 14 * 24 * time.Hour
	}
	return &Authority{
		cfg:        cfg,
		identities: identities,
		revoked:    revoked,
		method:     method,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}, nil
}

// Issue authenticates the credentials and mints an access/refresh pair. An
// unknown username, a non-active account and a wrong password all fail with
// the same shared.ErrInvalidCredentials so the caller cannot tell which
// check rejected the attempt.
func (a *Authority) Issue(ctx context.Context, username, password string) (*Pair, *identity.Identity, error) {
	ident, err := a.identities.FindByUsername(ctx, username)
	if err != nil {
		return nil, nil, shared.ErrInvalidCredentials
	}
	if !ident.IsActive() {
		return nil, nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(ident.PasswordHash), []byte(password)); err != nil {
		return nil, nil, shared.ErrInvalidCredentials
	}
	pair, err := a.mintPair(ident)
	if err != nil {
		return nil, nil, err
	}
	return pair, ident, nil
}

// Verify checks the token's signature and time claims, its absence from the
// revocation set, and that the subject account is still active. The active
// check runs on every call so a suspended account loses access before its
// tokens naturally expire.
func (a *Authority) Verify(ctx context.Context, raw string) (*Claims, error) {
	claims, err := a.parse(raw)
	if err != nil {
		return nil, err
	}
	if a.cfg.RevocationEnabled {
		revoked, err := a.revoked.Contains(ctx, claims.ID)
		if err != nil {
			return nil, err
		}
		if revoked {
			return nil, shared.ErrTokenInvalid
		}
	}
	ident, err := a.identities.FindByID(ctx, claims.Subject)
	if err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	if !ident.IsActive() {
		return nil, shared.ErrInvalidCredentials
	}
	return claims, nil
}

// Refresh exchanges a presented token for a fresh pair. A token past its
// expiry is still accepted while inside the refresh window measured from its
// issued-at. The old token is deliberately not revoked: overlapping validity
// keeps concurrent in-flight requests holding it from failing.
func (a *Authority) Refresh(ctx context.Context, raw string) (*Pair, *identity.Identity, error) {
	claims, err := a.parse(raw)
	if err != nil {
		if !errors.Is(err, shared.ErrTokenExpired) || claims == nil {
			return nil, nil, err
		}
		if claims.IssuedAt == nil || a.clock().After(claims.IssuedAt.Time.Add(a.cfg.RefreshTTL+a.cfg.Leeway)) {
			return nil, nil, shared.ErrTokenExpired
		}
	}
	if a.cfg.RevocationEnabled {
		revoked, err := a.revoked.Contains(ctx, claims.ID)
		if err != nil {
			return nil, nil, err
		}
		if revoked {
			return nil, nil, shared.ErrTokenInvalid
		}
	}
	ident, err := a.identities.FindByID(ctx, claims.Subject)
	if err != nil {
		return nil, nil, shared.ErrInvalidCredentials
	}
	if !ident.IsActive() {
		return nil, nil, shared.ErrInvalidCredentials
	}
	pair, err := a.mintPair(ident)
	if err != nil {
		return nil, nil, err
	}
	return pair, ident, nil
}

// Revoke inserts the token's jti into the revocation set for its remaining
// lifetime plus the configured grace. Revoking an already-expired or
// already-revoked token is not an error.
func (a *Authority) Revoke(ctx context.Context, raw string) error {
	claims, err := a.parse(raw)
	if err != nil {
		if errors.Is(err, shared.ErrTokenExpired) {
			return nil
		}
		return err
	}
	if !a.cfg.RevocationEnabled {
		return nil
	}
	if claims.ExpiresAt == nil {
		return shared.ErrTokenInvalid
	}
	ttl := claims.ExpiresAt.Time.Sub(a.clock()) + a.cfg.RevocationGrace
	return a.revoked.Add(ctx, claims.ID, ttl)
}

// AccessTTL exposes the configured access token lifetime.
func (a *Authority) AccessTTL() time.Duration {
	return a.cfg.AccessTTL
}

// parse verifies the signature and time claims. On an expired but otherwise
// well-formed token it returns the decoded claims alongside
// shared.ErrTokenExpired so the refresh flow can inspect them.
func (a *Authority) parse(raw string) (*Claims, error) {
	if raw == "" {
		return nil, shared.ErrTokenAbsent
	}
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, a.keyFunc,
		jwt.WithValidMethods([]string{a.method.Alg()}),
		jwt.WithIssuer(a.cfg.Issuer),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(a.cfg.Leeway),
		jwt.WithTimeFunc(a.clock),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return claims, shared.ErrTokenExpired
		}
		return nil, shared.ErrTokenInvalid
	}
	if claims.Subject == "" || claims.ID == "" {
		return nil, shared.ErrTokenInvalid
	}
	return claims, nil
}

func (a *Authority) keyFunc(t *jwt.Token) (any, error) {
	if t.Method.Alg() != a.method.Alg() {
		return nil, fmt.Errorf("token: unexpected signing method %q", t.Method.Alg())
	}
	return a.cfg.Secret, nil
}

func (a *Authority) mintPair(ident *identity.Identity) (*Pair, error) {
	now := a.clock()

	access, err := a.sign(a.newClaims(ident, now, a.cfg.AccessTTL, ""))
	if err != nil {
		return nil, fmt.Errorf("token: sign access token: %w", err)
	}
	refresh, err := a.sign(a.newClaims(ident, now, a.cfg.RefreshTTL, TypeRefresh))
	if err != nil {
		return nil, fmt.Errorf("token: sign refresh token: %w", err)
	}
	return &Pair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(a.cfg.AccessTTL.Seconds()),
	}, nil
}

// newClaims mints the claim set for one token. The refresh token carries the
// role and school denormalized so the refresh flow does not depend on claim
// staleness until the next full login.
func (a *Authority) newClaims(ident *identity.Identity, now time.Time, ttl time.Duration, tokenType string) *Claims {
	claims := &Claims{
		Role: ident.Role,
		Type: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    a.cfg.Issuer,
			Subject:   ident.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}
	if ident.SchoolID != nil {
		claims.SchoolID = *ident.SchoolID
	}
	return claims
}

func (a *Authority) sign(claims *Claims) (string, error) {
	return jwt.NewWithClaims(a.method, claims).SignedString(a.cfg.Secret)
}
