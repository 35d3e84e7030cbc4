package store

import (
	"sync"
	"time"

	"github.com/tasktrail/core/internal/domain/entities"
	"github.com/tasktrail/core/internal/infrastructure/localstore"
	"github.com/tasktrail/core/internal/infrastructure/logger"
	"github.com/tasktrail/core/internal/ports"
)

// UserStore holds the authentication state: the current session (user
// profile plus token) and loading/error status. The in-memory copy is
// authoritative; a denormalized copy is persisted to local state so the
// session survives restarts.
type UserStore struct {
	mu      sync.RWMutex
	session *ports.Session
	loading bool
	errMsg  string

	state  *localstore.Store
	logger *logger.Logger
	now    func() time.Time
}

// NewUserStore creates a user store backed by the given local state.
func NewUserStore(state *localstore.Store, appLogger *logger.Logger) *UserStore {
	return &UserStore{
		state:  state,
		logger: appLogger,
		now:    time.Now,
	}
}

// SetUser stores the session, which makes the store authenticated, and
// persists a serialized copy for session restore. Persistence is
// best-effort: a write failure is logged, not surfaced.
func (s *UserStore) SetUser(sess ports.Session) {
	s.mu.Lock()
	copied := sess
	s.session = &copied
	s.loading = false
	s.errMsg = ""
	s.mu.Unlock()

	if err := s.state.Set(localstore.KeySession, sess); err != nil {
		s.logger.Warnw("Failed to persist session", "error", err)
	}
}

// ClearUser drops the session and removes the persisted copy.
func (s *UserStore) ClearUser() {
	s.mu.Lock()
	s.session = nil
	s.loading = false
	s.errMsg = ""
	s.mu.Unlock()

	if err := s.state.Delete(localstore.KeySession); err != nil {
		s.logger.Warnw("Failed to remove persisted session", "error", err)
	}
}

// Restore attempts to rebuild the session from the persisted copy at
// startup. A corrupt or expired blob is removed from storage and treated
// as "no session", never as a fatal error. Returns true when a session
// was restored.
func (s *UserStore) Restore() bool {
	var sess ports.Session
	found, err := s.state.Get(localstore.KeySession, &sess)
	if !found {
		return false
	}
	if err != nil {
		s.logger.Warnw("Discarding corrupt persisted session", "error", err)
		if delErr := s.state.Delete(localstore.KeySession); delErr != nil {
			s.logger.Warnw("Failed to remove corrupt session", "error", delErr)
		}
		return false
	}
	if sess.IsExpired(s.now()) {
		s.logger.Infow("Persisted session expired", "expired_at", sess.ExpiresAt)
		if delErr := s.state.Delete(localstore.KeySession); delErr != nil {
			s.logger.Warnw("Failed to remove expired session", "error", delErr)
		}
		return false
	}

	s.mu.Lock()
	s.session = &sess
	s.mu.Unlock()
	return true
}

// SetLoading sets the loading flag.
func (s *UserStore) SetLoading(loading bool) {
	s.mu.Lock()
	s.loading = loading
	s.mu.Unlock()
}

// SetError records an error message and implicitly clears loading.
func (s *UserStore) SetError(msg string) {
	s.mu.Lock()
	s.errMsg = msg
	s.loading = false
	s.mu.Unlock()
}

// User returns a copy of the authenticated profile, or nil.
func (s *UserStore) User() *entities.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.session == nil {
		return nil
	}
	copied := s.session.User
	return &copied
}

// Token returns the session token, empty when unauthenticated.
func (s *UserStore) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.session == nil {
		return ""
	}
	return s.session.Token
}

// IsAuthenticated is derived state: true iff a session is present.
func (s *UserStore) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session != nil
}

// IsLoading reports the loading flag.
func (s *UserStore) IsLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Error returns the current error message, empty when none.
func (s *UserStore) Error() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.errMsg
}
