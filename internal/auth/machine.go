// Package auth owns the client-side authentication state and its transitions.
package auth

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/alt-project/flixctl/internal/domain"
	"github.com/alt-project/flixctl/internal/gateway"
)

// DefaultExpiryMargin is how close to expiry a restored session may be before it is discarded.
const DefaultExpiryMargin = 300 * time.Second

// signupFallbackSubject marks a successful signup whose response carried no id.
const signupFallbackSubject = "1"

// State is the authentication state.
type State int

const (
	Unauthenticated State = iota
	Authenticating
	Authenticated
	SignupPending
)

func (s State) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case Authenticating:
		return "authenticating"
	case Authenticated:
		return "authenticated"
	case SignupPending:
		return "signup_pending"
	default:
		return "unknown"
	}
}

// Snapshot is a read-only copy of the machine's state.
type Snapshot struct {
	State          State
	Session        *domain.Session
	LoginError     string
	SignupError    string
	PendingSubject string
}

// Token returns the bearer token, or "" without a session.
func (s Snapshot) Token() string {
	if s.Session == nil {
		return ""
	}
	return s.Session.Token
}

// IsAdmin reports whether the current session belongs to an administrator.
func (s Snapshot) IsAdmin() bool {
	return s.Session.IsAdmin()
}

// clone returns s with its own copy of the session.
func (s Snapshot) clone() Snapshot {
	if s.Session != nil {
		cp := *s.Session
		s.Session = &cp
	}
	return s
}

// Option configures a Machine.
type Option func(*Machine)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Machine) { m.now = now }
}

// WithExpiryMargin overrides DefaultExpiryMargin.
func WithExpiryMargin(d time.Duration) Option {
	return func(m *Machine) { m.margin = d }
}

// WithDiscardStale makes each login or signup resolution apply only if no newer flow of the
// same kind started and no logout happened while it was in flight.
func WithDiscardStale(enabled bool) Option {
	return func(m *Machine) { m.discardStale = enabled }
}

// Machine drives RestoreSession, Login, Signup and Logout.
// Transitions never return errors: failures are recorded in the resulting Snapshot.
type Machine struct {
	store   domain.TokenStore
	gateway domain.AuthGateway
	decoder domain.TokenDecoder
	logger  *slog.Logger
	now     func() time.Time
	margin  time.Duration

	discardStale bool

	mu        sync.Mutex
	snap      Snapshot
	epoch     uint64
	loginSeq  uint64
	signupSeq uint64
}

// NewMachine creates a machine in the Unauthenticated state.
func NewMachine(store domain.TokenStore, gw domain.AuthGateway, decoder domain.TokenDecoder, logger *slog.Logger, opts ...Option) *Machine {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Machine{
		store:   store,
		gateway: gw,
		decoder: decoder,
		logger:  logger,
		now:     time.Now,
		margin:  DefaultExpiryMargin,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Snapshot returns the current state.
func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap.clone()
}

// Token returns the current bearer token, or "".
func (m *Machine) Token() string {
	return m.Snapshot().Token()
}

// IsAdmin reports whether the current session is an administrator's.
func (m *Machine) IsAdmin() bool {
	return m.Snapshot().IsAdmin()
}

// RestoreSession rebuilds the in-memory session from the token store.
// An absent session, or one expiring within the margin, leaves the machine Unauthenticated
// with the store cleared.
func (m *Machine) RestoreSession(ctx context.Context) Snapshot {
	m.begin()

	session, ok := m.store.Load(ctx)
	if !ok {
		return m.reset(ctx, "no stored session")
	}
	if session.ExpiresWithin(m.now(), m.margin) {
		m.logger.InfoContext(ctx, "stored session near expiry, discarding",
			"expires_at", session.ExpiryTime().UTC().Format(time.RFC3339))
		return m.reset(ctx, "stored session expired")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap = Snapshot{State: Authenticated, Session: session}
	m.logger.DebugContext(ctx, "session restored", "user", session.Name, "role", session.Role)
	return m.snap.clone()
}

// Login exchanges credentials for a session and persists it.
func (m *Machine) Login(ctx context.Context, email, password string) Snapshot {
	m.mu.Lock()
	m.loginSeq++
	seq, epoch := m.loginSeq, m.epoch
	m.snap.State = Authenticating
	m.mu.Unlock()

	session, msg := m.login(ctx, email, password)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stale(seq, m.loginSeq, epoch) {
		m.logger.DebugContext(ctx, "discarding superseded login resolution")
		return m.snap.clone()
	}

	// Persisting under the lock keeps a discarded resolution out of the store.
	if session != nil {
		if err := m.store.Save(ctx, session); err != nil {
			m.logger.ErrorContext(ctx, "failed to persist session", "error", err)
			session, msg = nil, domain.GenericFailureMessage
		}
	}

	if session == nil {
		m.snap = Snapshot{State: Unauthenticated, LoginError: msg}
		m.logger.InfoContext(ctx, "login failed", "message", msg)
		return m.snap.clone()
	}

	m.snap = Snapshot{State: Authenticated, Session: session}
	m.logger.InfoContext(ctx, "login succeeded", "user", session.Name, "role", session.Role)
	return m.snap.clone()
}

// login performs the network side of a login. It returns the decoded session, or nil and the
// user-facing failure message.
func (m *Machine) login(ctx context.Context, email, password string) (*domain.Session, string) {
	raw, err := m.gateway.Login(ctx, email, password)
	if err != nil {
		return nil, gateway.MessageOf(err)
	}

	session, err := m.decoder.Decode(raw)
	if err != nil {
		m.logger.WarnContext(ctx, "login token could not be decoded", "error", err)
		return nil, domain.GenericFailureMessage
	}
	return session, ""
}

// Signup registers a user. On success the machine waits in SignupPending for the caller to log in.
func (m *Machine) Signup(ctx context.Context, input domain.SignupInput) Snapshot {
	m.mu.Lock()
	m.signupSeq++
	seq, epoch := m.signupSeq, m.epoch
	m.snap.State = Authenticating
	m.mu.Unlock()

	subject, err := m.gateway.Signup(ctx, input)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stale(seq, m.signupSeq, epoch) {
		m.logger.DebugContext(ctx, "discarding superseded signup resolution")
		return m.snap.clone()
	}

	if err != nil {
		msg := gateway.MessageOf(err)
		m.snap = Snapshot{State: Unauthenticated, SignupError: msg}
		m.logger.InfoContext(ctx, "signup failed", "message", msg)
		return m.snap.clone()
	}

	if subject == "" || subject == "0" {
		subject = signupFallbackSubject
	}
	m.snap = Snapshot{State: SignupPending, Session: m.snap.Session, PendingSubject: subject}
	m.logger.InfoContext(ctx, "signup succeeded", "subject", subject)
	return m.snap.clone()
}

// Logout clears the token store and resets to Unauthenticated, whatever the current state.
func (m *Machine) Logout(ctx context.Context) Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.store.Clear(ctx); err != nil {
		m.logger.WarnContext(ctx, "failed to clear stored session", "error", err)
	}
	m.epoch++
	m.snap = Snapshot{}
	m.logger.DebugContext(ctx, "logged out")
	return m.snap.clone()
}

func (m *Machine) begin() {
	m.mu.Lock()
	m.snap.State = Authenticating
	m.mu.Unlock()
}

func (m *Machine) reset(ctx context.Context, reason string) Snapshot {
	if err := m.store.Clear(ctx); err != nil {
		m.logger.WarnContext(ctx, "failed to clear stored session", "error", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap = Snapshot{}
	m.logger.DebugContext(ctx, "session not restored", "reason", reason)
	return m.snap.clone()
}

// stale reports whether a resolution started at (seq, epoch) has been superseded.
// It always reports false unless discarding is enabled. Callers hold m.mu.
func (m *Machine) stale(seq, current, epoch uint64) bool {
	if !m.discardStale {
		return false
	}
	return seq != current || epoch != m.epoch
}
