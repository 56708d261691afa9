// Package session owns the bearer token and the identity derived from
// it. The manager is handed explicitly to every component that needs
// auth state; there is no package-level session.
package session

import (
	"context"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/easygomonitor/console/internal/apierr"
	"github.com/easygomonitor/console/internal/config"
	"github.com/easygomonitor/console/pkg/types"
)

// State is the session lifecycle position.
type State int

const (
	// StateUnauthenticated is the initial state and the terminal state
	// after logout or invalidation.
	StateUnauthenticated State = iota
	// StateDecoding means a token is present and identity is being resolved.
	StateDecoding
	// StateAuthenticated means a valid identity has been resolved.
	StateAuthenticated
	// StateInvalid means the token was malformed, expired, or rejected.
	StateInvalid
)

func (s State) String() string {
	switch s {
	case StateDecoding:
		return "decoding"
	case StateAuthenticated:
		return "authenticated"
	case StateInvalid:
		return "invalid"
	default:
		return "unauthenticated"
	}
}

// API is the slice of the service client the manager needs.
type API interface {
	Login(ctx context.Context, creds types.Credentials) (string, error)
	GetUser(ctx context.Context, id string) (types.User, error)
}

// Dependencies allow test overrides for the service client, storage
// location, clock, and logging. DataDir may be empty to disable token
// persistence.
type Dependencies struct {
	API     API
	DataDir string
	Server  string
	Now     func() time.Time
	Logger  *log.Logger
}

// Manager holds the current session and notifies subscribers on every
// state transition. The session is replaced wholesale, never mutated.
type Manager struct {
	api     API
	dataDir string
	server  string
	now     func() time.Time
	logger  *log.Logger

	mu     sync.Mutex
	state  State
	token  string
	claims Claims
	user   types.User
	subs   []func(State)
}

func NewManager(deps Dependencies) (*Manager, error) {
	if deps.API == nil {
		return nil, fmt.Errorf("API client is required")
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Manager{
		api:     deps.API,
		dataDir: deps.DataDir,
		server:  deps.Server,
		now:     now,
		logger:  logger,
	}, nil
}

// Subscribe registers a callback invoked on every state transition.
// Callbacks run synchronously and must not call back into the manager.
func (m *Manager) Subscribe(fn func(State)) {
	m.mu.Lock()
	m.subs = append(m.subs, fn)
	m.mu.Unlock()
}

// State returns the current lifecycle position.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Token returns the current bearer token, empty when there is none.
func (m *Manager) Token() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token
}

// UserID returns the subject id decoded from the token.
func (m *Manager) UserID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.claims.UserID
}

// CurrentUser returns the resolved identity, if any.
func (m *Manager) CurrentUser() (types.User, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.user, m.user.ID != ""
}

// Login exchanges credentials for a token, resolves the identity, and
// persists the session. On any failure the previous (empty) session is
// restored and the server's message is carried in the returned error.
func (m *Manager) Login(ctx context.Context, creds types.Credentials) (types.User, error) {
	token, err := m.api.Login(ctx, creds)
	if err != nil {
		return types.User{}, err
	}

	claims, err := decodeClaims(token)
	if err != nil {
		m.transition(StateInvalid)
		m.clear(ctx)
		return types.User{}, apierr.New(apierr.KindSessionInvalid, "login returned an unusable token: "+err.Error())
	}

	m.mu.Lock()
	m.token = token
	m.claims = claims
	m.mu.Unlock()
	m.transition(StateDecoding)

	user, err := m.api.GetUser(ctx, claims.UserID)
	if err != nil {
		m.Invalidate()
		return types.User{}, err
	}

	m.mu.Lock()
	m.user = user
	m.mu.Unlock()

	if err := m.persist(ctx, token, claims.UserID); err != nil {
		m.logger.Printf("session persist failed: %v", err)
	}

	m.transition(StateAuthenticated)
	return user, nil
}

// RestoreFromStorage rebuilds the session from the persisted token
// without network access. A missing state file leaves the manager
// unauthenticated with no error; a malformed or expired token passes
// through the invalid state, clears storage, and settles
// unauthenticated.
func (m *Manager) RestoreFromStorage(ctx context.Context) error {
	if m.dataDir == "" {
		return nil
	}

	state, err := config.LoadState(ctx, m.dataDir)
	if err != nil {
		return nil
	}

	claims, err := decodeClaims(state.Token)
	if err == nil {
		if exp := claims.ExpiresAt(); !exp.IsZero() && !m.now().Before(exp) {
			err = fmt.Errorf("token expired at %s", exp.Format(time.RFC3339))
		}
	}
	if err != nil {
		m.transition(StateInvalid)
		m.clear(ctx)
		m.transition(StateUnauthenticated)
		return apierr.New(apierr.KindSessionInvalid, "stored session is no longer usable: "+err.Error())
	}

	m.mu.Lock()
	m.token = state.Token
	m.claims = claims
	m.mu.Unlock()
	m.transition(StateDecoding)
	m.transition(StateAuthenticated)
	return nil
}

// ResolveUser fetches the profile for the decoded subject. Used after a
// restore, where the token carries only the user id.
func (m *Manager) ResolveUser(ctx context.Context) (types.User, error) {
	m.mu.Lock()
	id := m.claims.UserID
	m.mu.Unlock()
	if id == "" {
		return types.User{}, apierr.New(apierr.KindSessionInvalid, "no session to resolve")
	}

	user, err := m.api.GetUser(ctx, id)
	if err != nil {
		return types.User{}, err
	}

	m.mu.Lock()
	m.user = user
	m.mu.Unlock()
	return user, nil
}

// Invalidate drops the session in response to a rejected token. Wired
// as the API client's unauthorized hook.
func (m *Manager) Invalidate() {
	m.mu.Lock()
	hadSession := m.token != "" || m.state != StateUnauthenticated
	m.token = ""
	m.claims = Claims{}
	m.user = types.User{}
	m.mu.Unlock()

	if !hadSession {
		return
	}
	m.clear(context.Background())
	m.transition(StateInvalid)
}

// Logout clears the persisted token and returns to the initial state.
// Safe to call in any state, any number of times.
func (m *Manager) Logout(ctx context.Context) {
	m.mu.Lock()
	m.token = ""
	m.claims = Claims{}
	m.user = types.User{}
	m.mu.Unlock()

	m.clear(ctx)
	m.transition(StateUnauthenticated)
}

func (m *Manager) persist(ctx context.Context, token, userID string) error {
	if m.dataDir == "" {
		return nil
	}
	return config.UpdateState(ctx, m.dataDir, config.State{
		Token:   token,
		Server:  m.server,
		UserID:  userID,
		SavedAt: m.now().UTC(),
	})
}

func (m *Manager) clear(ctx context.Context) {
	if m.dataDir == "" {
		return
	}
	if err := config.ClearState(ctx, m.dataDir); err != nil {
		m.logger.Printf("session clear failed: %v", err)
	}
}

// transition moves to the given state and notifies subscribers outside
// the lock. A no-op when already there.
func (m *Manager) transition(next State) {
	m.mu.Lock()
	if m.state == next {
		m.mu.Unlock()
		return
	}
	m.state = next
	subs := append(([]func(State))(nil), m.subs...)
	m.mu.Unlock()

	for _, fn := range subs {
		fn(next)
	}
}
