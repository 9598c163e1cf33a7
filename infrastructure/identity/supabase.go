package identity

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"thoughtgraph/application/ports"

	"github.com/supabase-community/gotrue-go/types"
	"github.com/supabase-community/supabase-go"
	"go.uber.org/zap"
)

// sessionAuth is the part of the Supabase auth client a SupabaseSource needs
type sessionAuth interface {
	SignInWithEmailPassword(email, password string) (*types.TokenResponse, error)
	RefreshToken(refreshToken string) (*types.TokenResponse, error)
}

// SupabaseSource is a CredentialSource backed by a Supabase auth session.
// It holds at most one signed-in user.
type SupabaseSource struct {
	auth    sessionAuth
	mu      sync.Mutex
	session *types.Session
	now     func() time.Time
	logger  *zap.Logger
}

var _ ports.CredentialSource = (*SupabaseSource)(nil)

// NewSupabaseSource creates a source talking to the Supabase project at url
func NewSupabaseSource(url, anonKey string, logger *zap.Logger) (*SupabaseSource, error) {
	if url == "" || anonKey == "" {
		return nil, errors.New("supabase url and key are required")
	}
	client, err := supabase.NewClient(url, anonKey, nil)
	if err != nil {
		return nil, fmt.Errorf("unable to create Supabase client: %w", err)
	}
	return newSupabaseSource(client.Auth, logger), nil
}

func newSupabaseSource(auth sessionAuth, logger *zap.Logger) *SupabaseSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SupabaseSource{auth: auth, now: time.Now, logger: logger}
}

// SignIn starts a session with email and password
func (s *SupabaseSource) SignIn(ctx context.Context, email, password string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	resp, err := s.auth.SignInWithEmailPassword(email, password)
	if err != nil {
		return fmt.Errorf("sign in: %w", err)
	}

	s.mu.Lock()
	s.session = &resp.Session
	s.mu.Unlock()

	s.logger.Info("Signed in", zap.String("user_id", resp.User.ID.String()))
	return nil
}

// Restore resumes a session from a stored refresh token
func (s *SupabaseSource) Restore(ctx context.Context, refreshToken string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	resp, err := s.auth.RefreshToken(refreshToken)
	if err != nil {
		return fmt.Errorf("restore session: %w", err)
	}

	s.mu.Lock()
	s.session = &resp.Session
	s.mu.Unlock()
	return nil
}

// SignOut forgets the current session
func (s *SupabaseSource) SignOut() {
	s.mu.Lock()
	s.session = nil
	s.mu.Unlock()
}

// RefreshTokenValue returns the refresh token of the current session, so
// callers can persist it; "" when signed out.
func (s *SupabaseSource) RefreshTokenValue() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return ""
	}
	return s.session.RefreshToken
}

// Token returns the session's access token. With forceRefresh, or once the
// access token has expired, the session is refreshed first.
func (s *SupabaseSource) Token(ctx context.Context, forceRefresh bool) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session == nil {
		return "", ports.ErrNoCurrentUser
	}
	if !forceRefresh && !s.expired() {
		return s.session.AccessToken, nil
	}

	resp, err := s.auth.RefreshToken(s.session.RefreshToken)
	if err != nil {
		s.logger.Warn("Session refresh failed", zap.Error(err))
		return "", fmt.Errorf("refresh session: %w", err)
	}
	s.session = &resp.Session
	return s.session.AccessToken, nil
}

func (s *SupabaseSource) expired() bool {
	if s.session.ExpiresAt == 0 {
		return false
	}
	return !s.now().Before(time.Unix(s.session.ExpiresAt, 0))
}
