package auth

import (
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"photoshare/internal/database"
	"photoshare/internal/pkg/hasher"
	"photoshare/internal/pkg/jwt"
	"photoshare/internal/pkg/workerpool"
	"photoshare/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type testEnv struct {
	db      *gorm.DB
	clock   *fakeClock
	users   *repository.UserRepository
	tokens  *repository.RefreshTokenRepository
	hasher  *hasher.Service
	access  *jwt.Issuer
	refresh *RefreshManager
	svc     *Service

	candidatesMu sync.Mutex
	candidates   []int
}

func (e *testEnv) lastCandidates() int {
	e.candidatesMu.Lock()
	defer e.candidatesMu.Unlock()
	if len(e.candidates) == 0 {
		return -1
	}
	return e.candidates[len(e.candidates)-1]
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEnv(t *testing.T, tweak ...func(*RefreshConfig)) *testEnv {
	t.Helper()

	db, err := database.Connect(":memory:")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	bc, err := hasher.NewBcrypt(bcrypt.MinCost)
	require.NoError(t, err)

	env := &testEnv{
		db:     db,
		clock:  newFakeClock(),
		users:  repository.NewUserRepository(db),
		tokens: repository.NewRefreshTokenRepository(db),
		hasher: hasher.New(bc, workerpool.New(4)),
	}
	env.access = jwt.New("access-secret", 15*time.Minute, jwt.WithClock(env.clock.Now))
	envelope := jwt.NewRefreshSigner("refresh-secret", 30*24*time.Hour, jwt.WithClock(env.clock.Now))

	cfg := RefreshConfig{
		Pepper:      "test-pepper",
		MaxSessions: 10,
		Now:         env.clock.Now,
		Logger:      discardLogger(),
		ObserveCandidates: func(n int) {
			env.candidatesMu.Lock()
			env.candidates = append(env.candidates, n)
			env.candidatesMu.Unlock()
		},
	}
	for _, fn := range tweak {
		fn(&cfg)
	}

	env.refresh = NewRefreshManager(env.tokens, env.hasher, envelope, cfg)
	env.svc = NewService(env.users, env.hasher, env.access, env.refresh, discardLogger())
	return env
}

func (e *testEnv) signup(t *testing.T, email, username, password string) *Session {
	t.Helper()
	s, err := e.svc.Signup(t.Context(), SignupRequest{Email: email, Username: username, Password: password}, RequestMeta{})
	require.NoError(t, err)
	return s
}
