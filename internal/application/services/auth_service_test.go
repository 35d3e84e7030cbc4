package services

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/tasktrail/core/internal/domain/entities"
	"github.com/tasktrail/core/internal/infrastructure/localstore"
	"github.com/tasktrail/core/internal/infrastructure/logger"
	"github.com/tasktrail/core/internal/ports"
	"github.com/tasktrail/core/internal/store"
)

type fakeIdentity struct {
	session    *ports.Session
	loginErr   error
	logoutErr  error
	logoutSeen string
}

func (f *fakeIdentity) Login(_ context.Context, creds ports.Credentials) (*ports.Session, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return f.session, nil
}

func (f *fakeIdentity) Signup(_ context.Context, input ports.SignupInput) (*ports.Session, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return f.session, nil
}

func (f *fakeIdentity) Logout(_ context.Context, token string) error {
	f.logoutSeen = token
	return f.logoutErr
}

type tokenRecorder struct {
	tokens []string
}

func (r *tokenRecorder) FetchRecords(context.Context, string, ports.RecordQuery) (*ports.RecordPage, error) {
	return &ports.RecordPage{}, nil
}
func (r *tokenRecorder) FetchRecord(context.Context, string, string) (json.RawMessage, error) {
	return nil, entities.ErrRecordNotFound
}
func (r *tokenRecorder) CreateRecord(context.Context, string, interface{}) (json.RawMessage, error) {
	return nil, nil
}
func (r *tokenRecorder) UpdateRecord(context.Context, string, string, interface{}) (json.RawMessage, error) {
	return nil, nil
}
func (r *tokenRecorder) DeleteRecord(context.Context, string, string) error { return nil }
func (r *tokenRecorder) SetToken(token string)                              { r.tokens = append(r.tokens, token) }

func newTestAuth(t *testing.T, identity *fakeIdentity) (*AuthService, *tokenRecorder, *store.UserStore, *store.TaskStore) {
	t.Helper()

	state, err := localstore.Open(filepath.Join(t.TempDir(), "state.json"))
	if err != nil {
		t.Fatalf("failed to open state: %v", err)
	}

	records := &tokenRecorder{}
	users := store.NewUserStore(state, logger.NewNop())
	tasks := store.NewTaskStore()
	svc := NewAuthService(identity, records, users, tasks, logger.NewNop())
	return svc, records, users, tasks
}

func validSession() *ports.Session {
	return &ports.Session{
		Token:     "session-token",
		ExpiresAt: time.Now().Add(time.Hour),
		User:      entities.User{ID: "u1", Email: "dev@example.com"},
	}
}

func TestLoginBindsSessionToRecordClient(t *testing.T) {
	svc, records, users, _ := newTestAuth(t, &fakeIdentity{session: validSession()})

	user, err := svc.Login(context.Background(), ports.Credentials{Email: "dev@example.com", Password: "secret"})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if user == nil || user.ID != "u1" {
		t.Errorf("unexpected user %+v", user)
	}

	if !users.IsAuthenticated() {
		t.Error("login should authenticate the user store")
	}
	if len(records.tokens) != 1 || records.tokens[0] != "session-token" {
		t.Errorf("login should bind the token to the record client, got %v", records.tokens)
	}
}

func TestLoginFailureLandsInUserStore(t *testing.T) {
	svc, records, users, _ := newTestAuth(t, &fakeIdentity{loginErr: errors.New("invalid credentials")})

	_, err := svc.Login(context.Background(), ports.Credentials{Email: "dev@example.com", Password: "wrong"})
	if err == nil {
		t.Fatal("expected the failure to propagate")
	}

	if users.IsAuthenticated() {
		t.Error("failed login must not authenticate")
	}
	if users.Error() == "" {
		t.Error("failure should be recorded in the user store")
	}
	if len(records.tokens) != 0 {
		t.Errorf("failed login must not bind a token, got %v", records.tokens)
	}
}

func TestSignupBindsSession(t *testing.T) {
	svc, records, users, _ := newTestAuth(t, &fakeIdentity{session: validSession()})

	user, err := svc.Signup(context.Background(), ports.SignupInput{Email: "dev@example.com", Password: "longenough"})
	if err != nil {
		t.Fatalf("signup failed: %v", err)
	}
	if user == nil || !users.IsAuthenticated() {
		t.Error("signup should sign the new account in")
	}
	if len(records.tokens) != 1 {
		t.Errorf("signup should bind the token, got %v", records.tokens)
	}
}

func TestLogoutClearsEverything(t *testing.T) {
	identity := &fakeIdentity{session: validSession()}
	svc, records, users, tasks := newTestAuth(t, identity)

	if _, err := svc.Login(context.Background(), ports.Credentials{Email: "dev@example.com", Password: "secret"}); err != nil {
		t.Fatalf("login failed: %v", err)
	}
	tasks.SetTasks([]entities.Task{{ID: "1", Title: "private"}})

	if err := svc.Logout(context.Background()); err != nil {
		t.Fatalf("logout failed: %v", err)
	}

	if identity.logoutSeen != "session-token" {
		t.Errorf("remote logout should carry the session token, got %q", identity.logoutSeen)
	}
	if users.IsAuthenticated() {
		t.Error("logout should clear the user store")
	}
	if got := len(tasks.Tasks()); got != 0 {
		t.Errorf("logout should reset the task store, got %d tasks", got)
	}
	if last := records.tokens[len(records.tokens)-1]; last != "" {
		t.Errorf("logout should clear the bound token, got %q", last)
	}
}

func TestLogoutWithoutSession(t *testing.T) {
	svc, _, _, _ := newTestAuth(t, &fakeIdentity{})

	if err := svc.Logout(context.Background()); !errors.Is(err, entities.ErrNotAuthenticated) {
		t.Errorf("expected ErrNotAuthenticated, got %v", err)
	}
}

func TestLogoutRemoteFailureStillClearsLocalState(t *testing.T) {
	identity := &fakeIdentity{session: validSession(), logoutErr: errors.New("service down")}
	svc, records, users, tasks := newTestAuth(t, identity)

	if _, err := svc.Login(context.Background(), ports.Credentials{Email: "dev@example.com", Password: "secret"}); err != nil {
		t.Fatalf("login failed: %v", err)
	}

	err := svc.Logout(context.Background())
	if err == nil {
		t.Fatal("remote failure should surface")
	}

	if users.IsAuthenticated() {
		t.Error("local session must clear even when the remote call fails")
	}
	if got := len(tasks.Tasks()); got != 0 {
		t.Errorf("task store must reset even when the remote call fails, got %d tasks", got)
	}
	if last := records.tokens[len(records.tokens)-1]; last != "" {
		t.Errorf("bound token must clear, got %q", last)
	}
}

func TestRestoreBindsPersistedToken(t *testing.T) {
	state, err := localstore.Open(filepath.Join(t.TempDir(), "state.json"))
	if err != nil {
		t.Fatalf("failed to open state: %v", err)
	}
	if err := state.Set(localstore.KeySession, validSession()); err != nil {
		t.Fatalf("failed to seed session: %v", err)
	}

	records := &tokenRecorder{}
	users := store.NewUserStore(state, logger.NewNop())
	svc := NewAuthService(&fakeIdentity{}, records, users, store.NewTaskStore(), logger.NewNop())

	if !svc.Restore() {
		t.Fatal("expected restore to succeed")
	}
	if len(records.tokens) != 1 || records.tokens[0] != "session-token" {
		t.Errorf("restore should bind the persisted token, got %v", records.tokens)
	}
}

func TestRestoreWithoutPersistedSessionDoesNotBind(t *testing.T) {
	svc, records, _, _ := newTestAuth(t, &fakeIdentity{})

	if svc.Restore() {
		t.Error("restore must fail with no persisted session")
	}
	if len(records.tokens) != 0 {
		t.Errorf("nothing should be bound, got %v", records.tokens)
	}
}
