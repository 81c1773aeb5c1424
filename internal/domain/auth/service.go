package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"photoshare/internal/domain"
	"photoshare/internal/pkg/ids"
	"photoshare/internal/pkg/validator"
	"photoshare/internal/repository"

	"golang.org/x/sync/errgroup"
)

// bcrypt reads at most 72 bytes; longer passwords would be silently cut.
const maxPasswordBytes = 72

// Service drives the session lifecycle: signup and login start a session,
// refresh rotates it, logout ends it.
type Service struct {
	users   UserStore
	hasher  SecretHasher
	access  AccessIssuer
	refresh *RefreshManager
	logger  *slog.Logger
	now     func() time.Time

	dummyHash func() (string, error)
}

func NewService(users UserStore, h SecretHasher, access AccessIssuer, refresh *RefreshManager, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		users:   users,
		hasher:  h,
		access:  access,
		refresh: refresh,
		logger:  logger,
		now:     time.Now,
	}
	s.dummyHash = sync.OnceValues(func() (string, error) {
		return h.Hash(context.Background(), "photoshare-timing-equalizer")
	})
	return s
}

func (s *Service) Signup(ctx context.Context, req SignupRequest, meta RequestMeta) (*Session, error) {
	req.Email = normalize(req.Email)
	req.Username = normalize(req.Username)
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if len(req.Password) > maxPasswordBytes {
		return nil, &ValidationError{Field: "password", Reason: "max"}
	}

	var emailTaken, usernameTaken bool
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		emailTaken, err = s.users.EmailExists(gctx, req.Email)
		return err
	})
	g.Go(func() error {
		var err error
		usernameTaken, err = s.users.UsernameExists(gctx, req.Username)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("signup uniqueness check: %w", err)
	}
	if emailTaken {
		return nil, ErrEmailTaken
	}
	if usernameTaken {
		return nil, ErrUsernameTaken
	}

	hash, err := s.hasher.Hash(ctx, req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	userID, err := ids.NewULID(s.now().UTC())
	if err != nil {
		return nil, err
	}

	user := &domain.User{ID: userID, Username: req.Username}
	cred := &domain.LocalCredential{Email: req.Email, PasswordHash: hash}
	if err := s.users.CreateWithCredential(ctx, user, cred); err != nil {
		var uv *repository.UniqueViolationError
		if errors.As(err, &uv) {
			switch uv.Field {
			case "email":
				return nil, ErrEmailTaken
			case "username":
				return nil, ErrUsernameTaken
			}
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	return s.startSession(ctx, user, cred.Email, meta)
}

// Login accepts an email (anything containing "@") or a username.
func (s *Service) Login(ctx context.Context, req LoginRequest, meta RequestMeta) (*Session, error) {
	req.EmailOrUsername = normalize(req.EmailOrUsername)
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	var (
		cred *domain.LocalCredential
		err  error
	)
	if strings.Contains(req.EmailOrUsername, "@") {
		cred, err = s.users.GetCredentialByEmail(ctx, req.EmailOrUsername)
	} else {
		cred, err = s.users.GetCredentialByUsername(ctx, req.EmailOrUsername)
	}
	if errors.Is(err, repository.ErrNotFound) {
		s.equalizeTiming(ctx, req.Password)
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("load credential: %w", err)
	}

	ok, err := s.hasher.Verify(ctx, req.Password, cred.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	user := cred.User
	if user == nil {
		if user, err = s.users.GetByID(ctx, cred.UserID); err != nil {
			return nil, fmt.Errorf("load user: %w", err)
		}
	}
	return s.startSession(ctx, user, cred.Email, meta)
}

// Refresh rotates the presented refresh token. Every rejection surfaces
// as ErrUnauthorized; unexpected failures are logged first.
func (s *Service) Refresh(ctx context.Context, presented string, meta RequestMeta) (*RefreshResult, error) {
	presented = strings.TrimSpace(presented)
	if presented == "" {
		return nil, ErrNoRefresh
	}

	redeemed, err := s.refresh.Redeem(ctx, presented, meta)
	if err != nil {
		if !errors.Is(err, ErrInvalidRefresh) && !errors.Is(err, ErrRefreshNotFound) {
			s.logger.Error("refresh redemption failed", slog.String("error", err.Error()))
		}
		return nil, ErrUnauthorized
	}

	access, err := s.access.Issue(redeemed.UserID)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}

	return &RefreshResult{
		UserID:           redeemed.UserID,
		AccessToken:      access,
		RefreshToken:     redeemed.Token,
		RefreshExpiresAt: redeemed.Record.ExpiresAt,
	}, nil
}

func (s *Service) Logout(ctx context.Context, presented string) error {
	presented = strings.TrimSpace(presented)
	if presented == "" {
		return nil
	}
	if err := s.refresh.Revoke(ctx, presented); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}

// LogoutAll revokes every refresh token of userID. Access tokens already
// issued stay valid until they expire.
func (s *Service) LogoutAll(ctx context.Context, userID string) (int64, error) {
	n, err := s.refresh.RevokeAll(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("revoke user sessions: %w", err)
	}
	return n, nil
}

func (s *Service) CurrentUser(ctx context.Context, userID string) (*UserView, error) {
	cred, err := s.users.GetCredentialByUserID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrUnauthorized
	}
	if err != nil {
		return nil, fmt.Errorf("load current user: %w", err)
	}
	view := toView(cred.User, cred.Email)
	view.ID = cred.UserID
	return &view, nil
}

func (s *Service) startSession(ctx context.Context, user *domain.User, email string, meta RequestMeta) (*Session, error) {
	access, err := s.access.Issue(user.ID)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}

	issued, err := s.refresh.Issue(ctx, user.ID, meta)
	if err != nil {
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}

	return &Session{
		User:             toView(user, email),
		AccessToken:      access,
		RefreshToken:     issued.Token,
		RefreshExpiresAt: issued.Record.ExpiresAt,
	}, nil
}

// equalizeTiming spends one verification on a throwaway hash so unknown
// identifiers cost as much as wrong passwords.
func (s *Service) equalizeTiming(ctx context.Context, password string) {
	hash, err := s.dummyHash()
	if err != nil {
		return
	}
	_, _ = s.hasher.Verify(ctx, password, hash)
}

func validateRequest(v any) error {
	if fields := validator.Validate(v); len(fields) > 0 {
		return &ValidationError{Field: fields[0].Field, Reason: fields[0].Tag}
	}
	return nil
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func toView(u *domain.User, email string) UserView {
	if u == nil {
		return UserView{Email: email}
	}
	return UserView{ID: u.ID, Username: u.Username, Email: email}
}
