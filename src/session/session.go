package session

import (
	"fmt"
	"sync"
	"time"

	"traffic-observer/src/helpers"
	"traffic-observer/src/interfaces"
	"traffic-observer/src/logger"
	"traffic-observer/src/models"
	"traffic-observer/src/network"
	"traffic-observer/src/registry"

	"github.com/golang-jwt/jwt/v5"
)

// -----------------------------------------------------------------------------
// Manager owns the authenticated session: it logs in, persists the bearer
// token through the injected credential store, opens the push channel, and
// tears everything down when the backend rejects the credential.
// -----------------------------------------------------------------------------

type Manager struct {
	Config      *models.MConfig
	Logger      *logger.Logger
	API         interfaces.ITrafficAPI
	Network     *network.AsyncNetworkManager
	Credentials interfaces.ICredentialStore
	Channel     interfaces.IPushChannel
	Registry    *registry.Registry

	mu         sync.Mutex
	token      string
	user       *models.MUser
	expiresAt  time.Time
	onTeardown []func()
}

// -----------------------------------------------------------------------------

func NewManager(cfg *models.MConfig, log *logger.Logger, api interfaces.ITrafficAPI,
	nm *network.AsyncNetworkManager, creds interfaces.ICredentialStore,
	ch interfaces.IPushChannel, reg *registry.Registry) *Manager {
	return &Manager{
		Config:      cfg,
		Logger:      log,
		API:         api,
		Network:     nm,
		Credentials: creds,
		Channel:     ch,
		Registry:    reg,
	}
}

// -----------------------------------------------------------------------------

// OnTeardown registers a hook invoked when the session is torn down, in
// registration order. Pollers and binders hang their shutdown here.
func (m *Manager) OnTeardown(fn func()) {
	m.mu.Lock()
	m.onTeardown = append(m.onTeardown, fn)
	m.mu.Unlock()
}

// -----------------------------------------------------------------------------

// Login establishes the session. A persisted, unexpired token is reused
// without a credential round trip; otherwise it authenticates with the
// configured account. On success the push channel is connected.
func (m *Manager) Login() error {
	email := m.Config.Backend.Email

	if stored, err := m.Credentials.LoadToken(email); err == nil && stored != "" {
		if exp, ok := tokenExpiry(stored); ok && time.Now().Before(exp) {
			m.Logger.Info("Reusing persisted session for %s", email)
			m.installToken(stored, exp, nil)
			return m.Channel.Connect(stored)
		}
		// Expired or unreadable; fall through to a fresh login.
		_ = m.Credentials.ClearToken(email)
	}

	token, err := m.API.Login(email, m.Config.Backend.Password)
	if err != nil {
		return err
	}

	exp, ok := tokenExpiry(token.AccessToken)
	if !ok {
		exp = time.Now().Add(12 * time.Hour)
	}

	m.installToken(token.AccessToken, exp, &token.User)

	if err := m.Credentials.SaveToken(email, token.AccessToken); err != nil {
		m.Logger.Warning("Could not persist session token: %v", err)
	}

	m.Logger.Info("Authenticated as %s (%s)", token.User.Email, token.User.Role)
	return m.Channel.Connect(token.AccessToken)
}

// -----------------------------------------------------------------------------

// Logout ends the session deterministically: channel closed, subscriptions
// cleared, persisted token removed.
func (m *Manager) Logout() {
	m.Logger.Info("Logging out")
	m.teardown(true)
	_ = m.API.Logout()
}

// -----------------------------------------------------------------------------

// HandleFailure inspects an operation error. Auth failures tear the session
// down so stale handlers never fire against a dead credential; everything
// else passes through untouched.
func (m *Manager) HandleFailure(err error) {
	if err == nil || !helpers.IsAuthError(err) {
		return
	}
	m.Logger.Error("Session rejected by backend: %v", err)
	m.teardown(true)
}

// -----------------------------------------------------------------------------

func (m *Manager) Token() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token
}

// -----------------------------------------------------------------------------

func (m *Manager) User() *models.MUser {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.user
}

// -----------------------------------------------------------------------------

// Active reports whether a non-expired session is installed.
func (m *Manager) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token != "" && time.Now().Before(m.expiresAt)
}

// -----------------------------------------------------------------------------

func (m *Manager) installToken(token string, expiresAt time.Time, user *models.MUser) {
	m.mu.Lock()
	m.token = token
	m.expiresAt = expiresAt
	if user != nil {
		m.user = user
	}
	m.mu.Unlock()

	m.Network.SetToken(token)
}

// -----------------------------------------------------------------------------

func (m *Manager) teardown(clearCredential bool) {
	m.mu.Lock()
	m.token = ""
	m.user = nil
	m.expiresAt = time.Time{}
	hooks := make([]func(), len(m.onTeardown))
	copy(hooks, m.onTeardown)
	m.mu.Unlock()

	m.Channel.Disconnect()
	m.Registry.Clear()
	m.Network.ClearToken()

	if clearCredential {
		_ = m.Credentials.ClearToken(m.Config.Backend.Email)
	}

	for _, fn := range hooks {
		fn()
	}
}

// -----------------------------------------------------------------------------

// tokenExpiry extracts the exp claim without verifying the signature; the
// backend is the verifier, we only need the deadline for local reuse.
func tokenExpiry(token string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// -----------------------------------------------------------------------------

// Describe reports the session in one line for the health endpoint.
func (m *Manager) Describe() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.token == "" {
		return "no session"
	}
	who := m.Config.Backend.Email
	if m.user != nil {
		who = m.user.Email
	}
	return fmt.Sprintf("%s, expires %s", who, m.expiresAt.Format(time.RFC3339))
}
