package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/truenumber/truenumber-cli/internal/apiclient"
	"github.com/truenumber/truenumber-cli/internal/model"
)

// State is the session lifecycle state.
type State string

const (
	// StateUnauthenticated means no session exists.
	StateUnauthenticated State = "unauthenticated"
	// StateRestoring means a token-based restore is in flight. The access
	// guard treats this as pending rather than unauthenticated.
	StateRestoring State = "restoring"
	// StateAuthenticated means a token has been presented to the identity
	// endpoint and accepted.
	StateAuthenticated State = "authenticated"
)

// Snapshot is an immutable view of the session for guard decisions and
// display. User is a copy; mutating it does not affect the store.
type Snapshot struct {
	State State
	User  *model.User
}

// Credentials are the login payload.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Registration is the self-service account creation payload.
type Registration struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

// Store owns the authentication token and the current user snapshot. Every
// transition into or out of the authenticated state attaches or detaches the
// client credential under the store's lock, so the credential and the state
// flag never disagree.
type Store struct {
	client *apiclient.Client
	tokens *TokenFile
	logger *slog.Logger

	mu      sync.RWMutex
	state   State
	user    *model.User
	lastErr error
}

// NewStore creates a session store bound to the given client and token file.
// It installs the client's unauthorized hook: any 401 on an authenticated
// call forces the logout transition, whichever controller triggered it.
func NewStore(client *apiclient.Client, tokens *TokenFile, logger *slog.Logger) *Store {
	s := &Store{
		client: client,
		tokens: tokens,
		logger: logger,
		state:  StateUnauthenticated,
	}
	client.OnUnauthorized(s.expire)
	return s
}

// Snapshot returns the current session state and a copy of the user.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := Snapshot{State: s.state}
	if s.user != nil {
		u := *s.user
		snap.User = &u
	}
	return snap
}

// User returns a copy of the authenticated user, or nil.
func (s *Store) User() *model.User {
	return s.Snapshot().User
}

// State returns the current lifecycle state.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Err returns the most recent session error. Restore failures are recorded
// here rather than returned.
func (s *Store) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// Restore re-establishes a session from the persisted token, if any. With no
// persisted token it makes no network call. Failure is silent to the caller:
// the token is cleared, the session stays empty and the error is recorded
// internally.
func (s *Store) Restore(ctx context.Context) {
	token, err := s.tokens.Load()
	if err != nil {
		s.logger.Warn("could not read persisted token", slog.String("error", err.Error()))
		s.setErr(err)
		return
	}
	if token == "" {
		return
	}
	if !s.restoreToken(ctx, token) {
		_ = s.tokens.Clear()
	}
}

// RestoreToken authenticates with an explicitly supplied token (e.g. from a
// flag) instead of the persisted one. The persisted token is left alone.
func (s *Store) RestoreToken(ctx context.Context, token string) {
	s.restoreToken(ctx, token)
}

func (s *Store) restoreToken(ctx context.Context, token string) bool {
	s.mu.Lock()
	s.state = StateRestoring
	s.client.SetToken(token)
	s.mu.Unlock()

	var user model.User
	if err := s.client.Get(ctx, "/users/me", &user); err != nil {
		s.mu.Lock()
		s.client.ClearToken()
		s.state = StateUnauthenticated
		s.user = nil
		s.lastErr = err
		s.mu.Unlock()
		s.logger.Warn("session restore failed", slog.String("error", err.Error()))
		return false
	}

	s.mu.Lock()
	s.state = StateAuthenticated
	s.user = &user
	s.lastErr = nil
	s.mu.Unlock()
	return true
}

// loginResponse is the identity endpoint's success payload.
type loginResponse struct {
	Token string     `json:"token"`
	User  model.User `json:"user"`
}

// Login authenticates with credentials. On success the returned token is
// persisted and attached and the session becomes authenticated. On failure
// any prior session is left untouched and the error is returned for the
// caller to display.
func (s *Store) Login(ctx context.Context, creds Credentials) error {
	var resp loginResponse
	if err := s.client.PostPublic(ctx, "/auth/login", creds, &resp); err != nil {
		s.setErr(err)
		return err
	}
	if resp.Token == "" {
		err := fmt.Errorf("%w: login response missing token", model.ErrMalformedResponse)
		s.setErr(err)
		return err
	}

	s.adopt(resp.Token, resp.User)
	s.logger.Info("logged in",
		slog.String("user_id", string(resp.User.ID)),
		slog.String("role", string(resp.User.Role)),
	)
	return nil
}

// Register creates an account. When the server issues a token with the new
// account the session behaves as after a login; otherwise the created user is
// returned and the session stays unauthenticated.
func (s *Store) Register(ctx context.Context, reg Registration) (*model.User, error) {
	var resp loginResponse
	if err := s.client.PostPublic(ctx, "/auth/register", reg, &resp); err != nil {
		s.setErr(err)
		return nil, err
	}

	if resp.Token != "" {
		s.adopt(resp.Token, resp.User)
	}
	u := resp.User
	return &u, nil
}

// adopt persists the token, attaches it and installs the user snapshot in a
// single critical section.
func (s *Store) adopt(token string, user model.User) {
	if err := s.tokens.Save(token); err != nil {
		// The session still works for this run; it just won't survive a restart.
		s.logger.Warn("could not persist token", slog.String("error", err.Error()))
	}

	s.mu.Lock()
	s.client.SetToken(token)
	s.state = StateAuthenticated
	s.user = &user
	s.lastErr = nil
	s.mu.Unlock()
}

// Logout clears the persisted token, detaches the credential and empties the
// session. Safe to call when already logged out.
func (s *Store) Logout() {
	s.mu.Lock()
	s.client.ClearToken()
	s.state = StateUnauthenticated
	s.user = nil
	s.lastErr = nil
	s.mu.Unlock()

	if err := s.tokens.Clear(); err != nil {
		s.logger.Warn("could not clear persisted token", slog.String("error", err.Error()))
	}
}

// expire handles a 401 observed on any authenticated call: identical to an
// explicit logout, except the trigger is recorded.
func (s *Store) expire() {
	s.mu.Lock()
	s.client.ClearToken()
	s.state = StateUnauthenticated
	s.user = nil
	s.lastErr = model.ErrNotAuthenticated
	s.mu.Unlock()

	_ = s.tokens.Clear()
	s.logger.Info("session expired")
}

// UpdateUser shallow-merges fields into the current user snapshot without a
// network round trip. No-op when unauthenticated.
func (s *Store) UpdateUser(patch model.UserPatch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateAuthenticated || s.user == nil {
		return
	}
	patch.Apply(s.user)
}

// Refresh re-fetches the current user profile and replaces the snapshot
// wholesale.
func (s *Store) Refresh(ctx context.Context) error {
	if s.State() != StateAuthenticated {
		return model.ErrNotAuthenticated
	}

	var user model.User
	if err := s.client.Get(ctx, "/users/me", &user); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateAuthenticated {
		// Expired while the fetch was in flight.
		return model.ErrNotAuthenticated
	}
	s.user = &user
	return nil
}

func (s *Store) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErr = err
}
