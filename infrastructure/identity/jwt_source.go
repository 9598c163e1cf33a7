package identity

import (
	"context"
	"fmt"
	"sync"

	"thoughtgraph/application/ports"
	"thoughtgraph/pkg/auth"
)

// JWTSource mints tokens locally for a fixed user. It pairs with the
// reference backend, which validates the same shared secret.
type JWTSource struct {
	generator *auth.JWTGenerator
	mu        sync.RWMutex
	userID    string
	email     string
}

var _ ports.CredentialSource = (*JWTSource)(nil)

// NewJWTSource creates a source signed in as userID. An empty userID
// means nobody is signed in.
func NewJWTSource(config auth.JWTConfig, userID, email string) (*JWTSource, error) {
	generator, err := auth.NewJWTGenerator(config)
	if err != nil {
		return nil, fmt.Errorf("create token generator: %w", err)
	}
	return &JWTSource{generator: generator, userID: userID, email: email}, nil
}

// SignIn switches the current user
func (s *JWTSource) SignIn(userID, email string) {
	s.mu.Lock()
	s.userID, s.email = userID, email
	s.mu.Unlock()
}

func (s *JWTSource) SignOut() {
	s.SignIn("", "")
}

// Token signs a new token on every call, so forceRefresh has no extra effect
func (s *JWTSource) Token(ctx context.Context, forceRefresh bool) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.RLock()
	userID, email := s.userID, s.email
	s.mu.RUnlock()

	if userID == "" {
		return "", ports.ErrNoCurrentUser
	}
	return s.generator.GenerateToken(userID, email)
}
