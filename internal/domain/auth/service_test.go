package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"photoshare/internal/domain"
	"photoshare/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestService_SignupThenLoginWithEitherIdentifier(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	s := env.signup(t, " A@X.com ", "Alice", "password1")
	assert.Equal(t, "a@x.com", s.User.Email)
	assert.Equal(t, "alice", s.User.Username)
	assert.Len(t, s.User.ID, 26)
	assert.NotEmpty(t, s.AccessToken)
	assert.NotEmpty(t, s.RefreshToken)

	subject, err := env.access.Verify(s.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, s.User.ID, subject)

	for _, id := range []string{"alice", "ALICE", "a@x.com", "A@x.COM"} {
		got, err := env.svc.Login(ctx, LoginRequest{EmailOrUsername: id, Password: "password1"}, RequestMeta{})
		require.NoError(t, err, id)
		assert.Equal(t, s.User.ID, got.User.ID)
		assert.Equal(t, "a@x.com", got.User.Email)
	}
}

func TestService_SignupConflicts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.signup(t, "a@x.com", "alice", "password1")

	_, err := env.svc.Signup(ctx, SignupRequest{Email: "A@x.com", Username: "bob", Password: "password1"}, RequestMeta{})
	assert.ErrorIs(t, err, ErrEmailTaken)
	assert.ErrorIs(t, err, ErrConflict)

	_, err = env.svc.Signup(ctx, SignupRequest{Email: "b@x.com", Username: "Alice", Password: "password1"}, RequestMeta{})
	assert.ErrorIs(t, err, ErrUsernameTaken)
	assert.ErrorIs(t, err, ErrConflict)

	var users, creds int64
	require.NoError(t, env.db.Model(&domain.User{}).Count(&users).Error)
	require.NoError(t, env.db.Model(&domain.LocalCredential{}).Count(&creds).Error)
	assert.EqualValues(t, 1, users)
	assert.EqualValues(t, 1, creds)
}

func TestService_SignupValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	cases := []struct {
		name  string
		req   SignupRequest
		field string
	}{
		{"missing email", SignupRequest{Username: "alice", Password: "password1"}, "email"},
		{"email without domain", SignupRequest{Email: "a@x", Username: "alice", Password: "password1"}, "email"},
		{"email without at", SignupRequest{Email: "ax.com", Username: "alice", Password: "password1"}, "email"},
		{"short username", SignupRequest{Email: "a@x.com", Username: "al", Password: "password1"}, "username"},
		{"username with at", SignupRequest{Email: "b@x.com", Username: "bob@home", Password: "password1"}, "username"},
		{"short password", SignupRequest{Email: "a@x.com", Username: "alice", Password: "pass"}, "password"},
		{"long password", SignupRequest{Email: "a@x.com", Username: "alice", Password: strings.Repeat("p", 73)}, "password"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.svc.Signup(ctx, tc.req, RequestMeta{})
			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "got %v", err)
			assert.Equal(t, tc.field, verr.Field)
		})
	}

	var users int64
	require.NoError(t, env.db.Model(&domain.User{}).Count(&users).Error)
	assert.Zero(t, users)
}

func TestService_UsernameWithAtIsRejected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.Signup(ctx, SignupRequest{Email: "b@x.com", Username: "bob@home", Password: "password1"}, RequestMeta{})
	var verr *ValidationError
	require.True(t, errors.As(err, &verr), "got %v", err)
	assert.Equal(t, "username", verr.Field)
	assert.Equal(t, "excludes", verr.Reason)

	// every accepted username is reachable through the username branch
	env.signup(t, "b@x.com", "bob.home", "password1")
	s, err := env.svc.Login(ctx, LoginRequest{EmailOrUsername: "bob.home", Password: "password1"}, RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, "bob.home", s.User.Username)
}

func TestService_LoginRejectsUniformly(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.signup(t, "a@x.com", "alice", "password1")

	for _, req := range []LoginRequest{
		{EmailOrUsername: "alice", Password: "password2"},
		{EmailOrUsername: "a@x.com", Password: "password2"},
		{EmailOrUsername: "mallory", Password: "password1"},
		{EmailOrUsername: "m@x.com", Password: "password1"},
		{EmailOrUsername: "alice", Password: strings.Repeat("p", 100)},
	} {
		_, err := env.svc.Login(ctx, req, RequestMeta{})
		assert.ErrorIs(t, err, ErrInvalidCredentials, req.EmailOrUsername)
	}

	_, err := env.svc.Login(ctx, LoginRequest{EmailOrUsername: "alice"}, RequestMeta{})
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "password", verr.Field)

	_, err = env.svc.Login(ctx, LoginRequest{Password: "x"}, RequestMeta{})
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "emailOrUsername", verr.Field)
}

func TestService_RefreshRotates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	s := env.signup(t, "a@x.com", "alice", "password1")

	_, err := env.svc.Refresh(ctx, "", RequestMeta{})
	assert.ErrorIs(t, err, ErrNoRefresh)

	env.clock.Advance(16 * time.Minute)
	_, err = env.access.Verify(s.AccessToken)
	assert.Error(t, err, "access token is past its TTL")

	res, err := env.svc.Refresh(ctx, s.RefreshToken, RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, s.User.ID, res.UserID)
	subject, err := env.access.Verify(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, s.User.ID, subject)

	_, err = env.svc.Refresh(ctx, s.RefreshToken, RequestMeta{})
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = env.svc.Refresh(ctx, "garbage", RequestMeta{})
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestService_LogoutIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	s := env.signup(t, "a@x.com", "alice", "password1")

	active, err := env.tokens.ListActive(ctx, env.clock.Now(), repository.ActiveFilter{UserID: s.User.ID})
	require.NoError(t, err)
	require.Len(t, active, 1)
	recordID := active[0].ID

	require.NoError(t, env.svc.Logout(ctx, s.RefreshToken))

	first, err := env.tokens.GetByID(ctx, recordID)
	require.NoError(t, err)
	require.NotNil(t, first.RevokedAt)

	env.clock.Advance(time.Minute)
	require.NoError(t, env.svc.Logout(ctx, s.RefreshToken))
	require.NoError(t, env.svc.Logout(ctx, ""))

	second, err := env.tokens.GetByID(ctx, recordID)
	require.NoError(t, err)
	require.NotNil(t, second.RevokedAt)
	assert.True(t, first.RevokedAt.Equal(*second.RevokedAt), "second logout must not touch the record")

	_, err = env.svc.Refresh(ctx, s.RefreshToken, RequestMeta{})
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestService_LogoutAllRevokesOnlyThatUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.signup(t, "a@x.com", "alice", "password1")
	bob := env.signup(t, "b@x.com", "bob", "password1")

	second, err := env.svc.Login(ctx, LoginRequest{EmailOrUsername: "alice", Password: "password1"}, RequestMeta{})
	require.NoError(t, err)

	n, err := env.svc.LogoutAll(ctx, alice.User.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	for _, tok := range []string{alice.RefreshToken, second.RefreshToken} {
		_, err = env.svc.Refresh(ctx, tok, RequestMeta{})
		assert.ErrorIs(t, err, ErrUnauthorized)
	}
	_, err = env.svc.Refresh(ctx, bob.RefreshToken, RequestMeta{})
	assert.NoError(t, err)

	n, err = env.svc.LogoutAll(ctx, alice.User.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestService_CurrentUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	s := env.signup(t, "a@x.com", "alice", "password1")

	u, err := env.svc.CurrentUser(ctx, s.User.ID)
	require.NoError(t, err)
	assert.Equal(t, UserView{ID: s.User.ID, Username: "alice", Email: "a@x.com"}, *u)

	_, err = env.svc.CurrentUser(ctx, "01UNKNOWNUSER0000000000000")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

type mockUserStore struct {
	mock.Mock
}

func (m *mockUserStore) CreateWithCredential(ctx context.Context, u *domain.User, cred *domain.LocalCredential) error {
	return m.Called(ctx, u, cred).Error(0)
}

func (m *mockUserStore) GetByID(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserStore) UsernameExists(ctx context.Context, username string) (bool, error) {
	args := m.Called(ctx, username)
	return args.Bool(0), args.Error(1)
}

func (m *mockUserStore) EmailExists(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

func (m *mockUserStore) credential(args mock.Arguments) (*domain.LocalCredential, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LocalCredential), args.Error(1)
}

func (m *mockUserStore) GetCredentialByEmail(ctx context.Context, email string) (*domain.LocalCredential, error) {
	return m.credential(m.Called(ctx, email))
}

func (m *mockUserStore) GetCredentialByUsername(ctx context.Context, username string) (*domain.LocalCredential, error) {
	return m.credential(m.Called(ctx, username))
}

func (m *mockUserStore) GetCredentialByUserID(ctx context.Context, userID string) (*domain.LocalCredential, error) {
	return m.credential(m.Called(ctx, userID))
}

func TestService_SignupMapsLateUniqueViolation(t *testing.T) {
	env := newTestEnv(t)

	cases := map[string]error{
		"email":    ErrEmailTaken,
		"username": ErrUsernameTaken,
	}
	for field, want := range cases {
		t.Run(field, func(t *testing.T) {
			users := new(mockUserStore)
			users.On("EmailExists", mock.Anything, "a@x.com").Return(false, nil)
			users.On("UsernameExists", mock.Anything, "alice").Return(false, nil)
			users.On("CreateWithCredential", mock.Anything, mock.Anything, mock.Anything).
				Return(&repository.UniqueViolationError{Field: field})

			svc := NewService(users, env.hasher, env.access, env.refresh, discardLogger())
			_, err := svc.Signup(context.Background(), SignupRequest{Email: "a@x.com", Username: "alice", Password: "password1"}, RequestMeta{})
			assert.ErrorIs(t, err, want)
			users.AssertExpectations(t)
		})
	}
}

func TestService_LoginUnknownIdentifierStillVerifies(t *testing.T) {
	env := newTestEnv(t)

	users := new(mockUserStore)
	users.On("GetCredentialByUsername", mock.Anything, "ghost").Return(nil, repository.ErrNotFound)

	calls := 0
	counting := &countingHasher{SecretHasher: env.hasher, verifies: &calls}
	svc := NewService(users, counting, env.access, env.refresh, discardLogger())

	_, err := svc.Login(context.Background(), LoginRequest{EmailOrUsername: "ghost", Password: "password1"}, RequestMeta{})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Equal(t, 1, calls)
}

type countingHasher struct {
	SecretHasher
	verifies *int
}

func (h *countingHasher) Verify(ctx context.Context, secret, encoded string) (bool, error) {
	*h.verifies++
	return h.SecretHasher.Verify(ctx, secret, encoded)
}
