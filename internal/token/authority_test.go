package token

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/skolara/skolara/internal/identity"
	"github.com/skolara/skolara/internal/shared"
	_ "github.com/skolara/skolara/testing"
)

type stubIdentities struct {
	byUsername map[string]*identity.Identity
	byID       map[string]*identity.Identity
}

func newStubIdentities(idents ...*identity.Identity) *stubIdentities {
	s := &stubIdentities{
		byUsername: make(map[string]*identity.Identity),
		byID:       make(map[string]*identity.Identity),
	}
	for _, ident := range idents {
		s.byUsername[ident.Username] = ident
		s.byID[ident.ID] = ident
	}
	return s
}

func (s *stubIdentities) FindByUsername(ctx context.Context, username string) (*identity.Identity, error) {
	ident, ok := s.byUsername[username]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return ident, nil
}

func (s *stubIdentities) FindByID(ctx context.Context, id string) (*identity.Identity, error) {
	ident, ok := s.byID[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return ident, nil
}

func testIdentity(t *testing.T, username, password string, role identity.Role, status identity.Status) *identity.Identity {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	school := "school-1"
	return &identity.Identity{
		ID:           "id-" + username,
		Username:     username,
		Email:        username + "@test.local",
		PasswordHash: string(hash),
		Role:         role,
		Status:       status,
		SchoolID:     &school,
	}
}

func newTestAuthority(t *testing.T, idents *stubIdentities) (*Authority, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	authority, err := NewAuthority(Config{
		Issuer:            "skolara-test",
		Secret:            []byte("test-signing-secret"),
		AccessTTL:         time.Hour,
		RefreshTTL:        14 * 24 * time.Hour,
		Leeway:            5 * time.Second,
		RevocationEnabled: true,
	}, idents, NewRedisRevocationSet(client))
	require.NoError(t, err)
	return authority, mr
}

func TestIssueAndVerifyRoundTrip(t *testing.T) {
	student := testIdentity(t, "student", "correct-password", identity.RoleStudent, identity.StatusActive)
	authority, _ := newTestAuthority(t, newStubIdentities(student))
	ctx := context.Background()

	pair, ident, err := authority.Issue(ctx, "student", "correct-password")
	require.NoError(t, err)
	require.NotNil(t, pair)
	assert.Equal(t, student.ID, ident.ID)
	assert.Equal(t, int64(3600), pair.ExpiresIn)
	assert.NotEqual(t, pair.AccessToken, pair.RefreshToken)

	claims, err := authority.Verify(ctx, pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, student.ID, claims.Subject)
	assert.Equal(t, identity.RoleStudent, claims.Role)
	assert.Empty(t, claims.Type)
	assert.NotEmpty(t, claims.ID)

	refreshClaims, err := authority.Verify(ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.True(t, refreshClaims.IsRefresh())
	assert.Equal(t, "school-1", refreshClaims.SchoolID)
	assert.NotEqual(t, claims.ID, refreshClaims.ID)
}

func TestIssueCredentialOpacity(t *testing.T) {
	active := testIdentity(t, "active", "right-password", identity.RoleTeacher, identity.StatusActive)
	suspended := testIdentity(t, "suspended", "right-password", identity.RoleTeacher, identity.StatusSuspended)
	authority, _ := newTestAuthority(t, newStubIdentities(active, suspended))
	ctx := context.Background()

	cases := []struct {
		name     string
		username string
		password string
	}{
		{"unknown user", "nobody", "right-password"},
		{"suspended user", "suspended", "right-password"},
		{"wrong password", "active", "wrong-password"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			pair, ident, err := authority.Issue(ctx, tc.username, tc.password)
			assert.Nil(t, pair)
			assert.Nil(t, ident)
			assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
		})
	}
}

func TestRefreshMintsDistinctPair(t *testing.T) {
	teacher := testIdentity(t, "teacher", "pass-teacher", identity.RoleTeacher, identity.StatusActive)
	authority, _ := newTestAuthority(t, newStubIdentities(teacher))
	ctx := context.Background()

	pair, _, err := authority.Issue(ctx, "teacher", "pass-teacher")
	require.NoError(t, err)

	refreshed, ident, err := authority.Refresh(ctx, pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, teacher.ID, ident.ID)
	assert.NotEqual(t, pair.AccessToken, refreshed.AccessToken)
	assert.NotEqual(t, pair.RefreshToken, refreshed.RefreshToken)

	// The old token keeps working: refresh does not revoke it, concurrent
	// in-flight requests still holding it must not fail.
	_, err = authority.Verify(ctx, pair.AccessToken)
	assert.NoError(t, err)
	_, err = authority.Verify(ctx, refreshed.AccessToken)
	assert.NoError(t, err)
}

func TestRefreshExpiredTokenInsideWindow(t *testing.T) {
	parent := testIdentity(t, "parent", "pass-parent", identity.RoleParent, identity.StatusActive)
	authority, _ := newTestAuthority(t, newStubIdentities(parent))
	ctx := context.Background()

	pair, _, err := authority.Issue(ctx, "parent", "pass-parent")
	require.NoError(t, err)

	// Two hours later the access token is expired but well inside the
	// fourteen day refresh window.
	authority.clock = func() time.Time { return time.Now().UTC().Add(2 * time.Hour) }

	_, err = authority.Verify(ctx, pair.AccessToken)
	assert.ErrorIs(t, err, shared.ErrTokenExpired)

	refreshed, _, err := authority.Refresh(ctx, pair.AccessToken)
	require.NoError(t, err)
	_, err = authority.Verify(ctx, refreshed.AccessToken)
	assert.NoError(t, err)
}

func TestRefreshPastWindowFails(t *testing.T) {
	parent := testIdentity(t, "parent", "pass-parent", identity.RoleParent, identity.StatusActive)
	authority, _ := newTestAuthority(t, newStubIdentities(parent))
	ctx := context.Background()

	pair, _, err := authority.Issue(ctx, "parent", "pass-parent")
	require.NoError(t, err)

	authority.clock = func() time.Time { return time.Now().UTC().Add(15 * 24 * time.Hour) }

	_, _, err = authority.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, shared.ErrTokenExpired)
}

func TestRefreshReflectsCurrentRole(t *testing.T) {
	student := testIdentity(t, "student", "pass-student", identity.RoleStudent, identity.StatusActive)
	idents := newStubIdentities(student)
	authority, _ := newTestAuthority(t, idents)
	ctx := context.Background()

	pair, _, err := authority.Issue(ctx, "student", "pass-student")
	require.NoError(t, err)

	// Role changes between issuance and refresh; refresh re-reads the
	// identity so the new pair carries the current role.
	student.Role = identity.RoleTeacher

	refreshed, _, err := authority.Refresh(ctx, pair.AccessToken)
	require.NoError(t, err)
	claims, err := authority.Verify(ctx, refreshed.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, identity.RoleTeacher, claims.Role)
}

func TestRevokeThenVerifyFails(t *testing.T) {
	admin := testIdentity(t, "admin", "pass-admin", identity.RoleAdminSystem, identity.StatusActive)
	authority, _ := newTestAuthority(t, newStubIdentities(admin))
	ctx := context.Background()

	pair, _, err := authority.Issue(ctx, "admin", "pass-admin")
	require.NoError(t, err)

	_, err = authority.Verify(ctx, pair.AccessToken)
	require.NoError(t, err)

	require.NoError(t, authority.Revoke(ctx, pair.AccessToken))

	// Signature and expiry are still nominally valid; only the revocation
	// set rejects it.
	_, err = authority.Verify(ctx, pair.AccessToken)
	assert.ErrorIs(t, err, shared.ErrTokenInvalid)

	// The refresh token carries its own jti and stays usable.
	_, err = authority.Verify(ctx, pair.RefreshToken)
	assert.NoError(t, err)
}

func TestRevokeIsIdempotent(t *testing.T) {
	admin := testIdentity(t, "admin", "pass-admin", identity.RoleAdminSystem, identity.StatusActive)
	authority, _ := newTestAuthority(t, newStubIdentities(admin))
	ctx := context.Background()

	pair, _, err := authority.Issue(ctx, "admin", "pass-admin")
	require.NoError(t, err)

	require.NoError(t, authority.Revoke(ctx, pair.AccessToken))
	require.NoError(t, authority.Revoke(ctx, pair.AccessToken))
}

func TestRevokeExpiredTokenIsNotAnError(t *testing.T) {
	admin := testIdentity(t, "admin", "pass-admin", identity.RoleAdminSystem, identity.StatusActive)
	authority, _ := newTestAuthority(t, newStubIdentities(admin))
	ctx := context.Background()

	pair, _, err := authority.Issue(ctx, "admin", "pass-admin")
	require.NoError(t, err)

	authority.clock = func() time.Time { return time.Now().UTC().Add(2 * time.Hour) }
	assert.NoError(t, authority.Revoke(ctx, pair.AccessToken))
}

func TestVerifySuspendedSubject(t *testing.T) {
	student := testIdentity(t, "student", "pass-student", identity.RoleStudent, identity.StatusActive)
	authority, _ := newTestAuthority(t, newStubIdentities(student))
	ctx := context.Background()

	pair, _, err := authority.Issue(ctx, "student", "pass-student")
	require.NoError(t, err)

	// Suspension takes effect before the token naturally expires.
	student.Status = identity.StatusSuspended

	_, err = authority.Verify(ctx, pair.AccessToken)
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	authority, _ := newTestAuthority(t, newStubIdentities())
	ctx := context.Background()

	_, err := authority.Verify(ctx, "")
	assert.ErrorIs(t, err, shared.ErrTokenAbsent)

	_, err = authority.Verify(ctx, "not.a.token")
	assert.ErrorIs(t, err, shared.ErrTokenInvalid)
}

func TestVerifyRejectsForeignSignature(t *testing.T) {
	student := testIdentity(t, "student", "pass-student", identity.RoleStudent, identity.StatusActive)
	idents := newStubIdentities(student)
	authority, _ := newTestAuthority(t, idents)

	foreign, err := NewAuthority(Config{
		Issuer:    "skolara-test",
		Secret:    []byte("some-other-secret"),
		AccessTTL: time.Hour,
	}, idents, nil)
	require.NoError(t, err)

	ctx := context.Background()
	pair, _, err := foreign.Issue(ctx, "student", "pass-student")
	require.NoError(t, err)

	_, err = authority.Verify(ctx, pair.AccessToken)
	assert.ErrorIs(t, err, shared.ErrTokenInvalid)
}

func TestNewAuthorityRejectsBadConfig(t *testing.T) {
	_, err := NewAuthority(Config{}, nil, nil)
	assert.Error(t, err)

	_, err = NewAuthority(Config{Secret: []byte("s"), Algorithm: "RS256"}, nil, nil)
	assert.Error(t, err)

	_, err = NewAuthority(Config{Secret: []byte("s"), Algorithm: "nonsense"}, nil, nil)
	assert.Error(t, err)
}
