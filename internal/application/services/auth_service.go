package services

import (
	"context"
	"fmt"

	"github.com/tasktrail/core/internal/domain/entities"
	"github.com/tasktrail/core/internal/infrastructure/logger"
	"github.com/tasktrail/core/internal/ports"
	"github.com/tasktrail/core/internal/store"
)

// AuthService drives the login/signup/logout flows: it delegates the
// actual authentication to the identity service, keeps the user store in
// sync and binds the session token to the record client so task
// operations run as the authenticated user.
type AuthService struct {
	identity ports.IdentityClient
	records  ports.RecordClient
	users    *store.UserStore
	tasks    *store.TaskStore
	logger   *logger.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(identity ports.IdentityClient, records ports.RecordClient, users *store.UserStore, tasks *store.TaskStore, appLogger *logger.Logger) *AuthService {
	return &AuthService{
		identity: identity,
		records:  records,
		users:    users,
		tasks:    tasks,
		logger:   appLogger,
	}
}

// Restore rebuilds the session from persisted state at startup. Returns
// true when a session was restored and bound.
func (s *AuthService) Restore() bool {
	if !s.users.Restore() {
		return false
	}
	s.records.SetToken(s.users.Token())
	if u := s.users.User(); u != nil {
		s.logger.Infow("Session restored", "user_id", u.ID, "email", u.Email)
	}
	return true
}

// Login authenticates with the identity service. On success the session
// is stored and bound; on failure the error lands in the user store and
// propagates.
func (s *AuthService) Login(ctx context.Context, creds ports.Credentials) (*entities.User, error) {
	s.users.SetLoading(true)

	sess, err := s.identity.Login(ctx, creds)
	if err != nil {
		s.users.SetError(err.Error())
		return nil, fmt.Errorf("login: %w", err)
	}

	s.bindSession(*sess)
	return s.users.User(), nil
}

// Signup registers a new account and signs it in.
func (s *AuthService) Signup(ctx context.Context, input ports.SignupInput) (*entities.User, error) {
	s.users.SetLoading(true)

	sess, err := s.identity.Signup(ctx, input)
	if err != nil {
		s.users.SetError(err.Error())
		return nil, fmt.Errorf("signup: %w", err)
	}

	s.bindSession(*sess)
	return s.users.User(), nil
}

// Logout invalidates the session remotely, clears both stores and drops
// the bound token. A remote failure still clears local state; losing the
// local session just forces a re-login.
func (s *AuthService) Logout(ctx context.Context) error {
	token := s.users.Token()
	if token == "" {
		return entities.ErrNotAuthenticated
	}

	err := s.identity.Logout(ctx, token)
	if err != nil {
		s.logger.Warnw("Remote logout failed", "error", err)
	}

	s.users.ClearUser()
	s.tasks.Reset()
	s.records.SetToken("")

	if err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

func (s *AuthService) bindSession(sess ports.Session) {
	s.users.SetUser(sess)
	s.records.SetToken(sess.Token)
	s.logger.Infow("User signed in", "user_id", sess.User.ID, "email", sess.User.Email)
}
