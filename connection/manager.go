// Package connection drives the connect / disconnect / auto-reconnect
// lifecycle: it probes credentials, persists them, and binds each session
// to a fresh Facade and to the registered collaborators.
package connection

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackfish212/remotefs"
	"github.com/jackfish212/remotefs/credstore"
	"github.com/jackfish212/remotefs/metrics"
	"github.com/jackfish212/remotefs/overlay"
	"github.com/jackfish212/remotefs/remote"
	"github.com/jackfish212/remotefs/types"
	"github.com/sirupsen/logrus"
)

// ProbeFunc validates credentials against the server.
type ProbeFunc func(ctx context.Context, c types.Credentials) (bool, error)

// RemoteFactory builds the remote client for a session.
type RemoteFactory func(c types.Credentials) types.Remote

// Manager owns at most one session at a time.
//
// The mutex guards field access only. Overlapping Connect calls each probe
// independently and the last one to finish owns the session; callers that
// care must serialize.
type Manager struct {
	secure   credstore.Store
	fallback credstore.Store

	probe      ProbeFunc
	newRemote  RemoteFactory
	httpClient *http.Client
	scope      string
	overlay    *overlay.Store
	facadeOpts []remotefs.Option
	collabs    []Collaborator

	mu        sync.Mutex
	state     State
	lastErr   error
	session   *Session
	listeners map[int]func(State)
	nextID    int
}

// Option configures a Manager.
type Option func(*Manager)

// WithProbe replaces the credential probe.
func WithProbe(p ProbeFunc) Option {
	return func(m *Manager) { m.probe = p }
}

// WithRemoteFactory replaces how a session's remote client is built.
func WithRemoteFactory(f RemoteFactory) Option {
	return func(m *Manager) { m.newRemote = f }
}

// WithHTTPClient sets the client used by the default probe and remote.
func WithHTTPClient(c *http.Client) Option {
	return func(m *Manager) { m.httpClient = c }
}

// WithScope overrides the URL scope segment derived from the protocol.
func WithScope(scope string) Option {
	return func(m *Manager) { m.scope = scope }
}

// WithOverlay shares an existing overlay store. By default the Manager
// creates its own, which outlives every session.
func WithOverlay(s *overlay.Store) Option {
	return func(m *Manager) { m.overlay = s }
}

// WithFacadeOptions adds options applied to every Facade the Manager builds.
func WithFacadeOptions(opts ...remotefs.Option) Option {
	return func(m *Manager) { m.facadeOpts = append(m.facadeOpts, opts...) }
}

// WithCollaborators binds collaborators notified on every session change.
func WithCollaborators(c ...Collaborator) Option {
	return func(m *Manager) { m.collabs = append(m.collabs, c...) }
}

// New creates a disconnected Manager persisting to secure and fallback.
func New(secure, fallback credstore.Store, opts ...Option) *Manager {
	m := &Manager{
		secure:    secure,
		fallback:  fallback,
		state:     State{Kind: Disconnected},
		listeners: make(map[int]func(State)),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.httpClient == nil {
		m.httpClient = http.DefaultClient
	}
	if m.overlay == nil {
		m.overlay = overlay.New()
	}
	if m.probe == nil {
		m.probe = func(ctx context.Context, c types.Credentials) (bool, error) {
			return remote.Probe(ctx, c, m.remoteOptions()...)
		}
	}
	if m.newRemote == nil {
		m.newRemote = func(c types.Credentials) types.Remote {
			return remote.New(c, m.remoteOptions()...)
		}
	}
	metrics.SetConnectionState(Disconnected.String())
	return m
}

func (m *Manager) remoteOptions() []remote.Option {
	opts := []remote.Option{remote.WithHTTPClient(m.httpClient)}
	if m.scope != "" {
		opts = append(opts, remote.WithScope(m.scope))
	}
	return opts
}

func (m *Manager) scopeFor(p types.Protocol) string {
	if m.scope != "" {
		return m.scope
	}
	return p.Scope()
}

// Overlay returns the store shared by every Facade this Manager builds.
func (m *Manager) Overlay() *overlay.Store { return m.overlay }

// Connect validates and activates a new session.
func (m *Manager) Connect(ctx context.Context, rawURL, user, pass string, protocol types.Protocol) error {
	return m.ConnectCredentials(ctx, types.Credentials{
		BaseURL:  rawURL,
		Username: user,
		Password: pass,
		Protocol: protocol,
	})
}

// ConnectCredentials validates c and, on success, persists it to both
// stores and replaces any current session. On failure nothing is persisted
// and the Manager ends Disconnected with LastError set; a previously active
// session is torn down.
func (m *Manager) ConnectCredentials(ctx context.Context, c types.Credentials) error {
	if c.Protocol == "" {
		c.Protocol = types.ProtocolHTTP
	}
	base, project, err := remote.NormalizeBaseURL(c.BaseURL, m.scopeFor(c.Protocol))
	if err != nil {
		m.fail(ctx, err)
		return err
	}
	c.BaseURL = base
	if c.Project == "" {
		c.Project = project
	}

	log := logrus.WithFields(logrus.Fields{"url": c.BaseURL, "user": c.Username, "project": c.Project})
	m.setState(State{Kind: Connecting})

	ok, err := m.probe(ctx, c)
	if err != nil {
		m.fail(ctx, err)
		return err
	}
	if !ok {
		err := fmt.Errorf("%w: server rejected credentials for %s", types.ErrAuthFailure, c.Username)
		m.fail(ctx, err)
		return err
	}

	if err := credstore.SaveAll(ctx, c, m.secure, m.fallback); err != nil {
		log.WithField("error", err).Warn("connection: failed to persist credentials")
	}
	m.activate(ctx, c)
	metrics.RecordConnectAttempt("success")
	log.Info("connection: connected")
	return nil
}

// Disconnect ends the session and forgets the stored credentials.
func (m *Manager) Disconnect(ctx context.Context) error {
	m.mu.Lock()
	s := m.session
	m.session = nil
	m.lastErr = nil
	m.mu.Unlock()

	if s != nil {
		m.teardown(ctx, s)
	}
	err := credstore.ClearAll(ctx, m.secure, m.fallback)
	if err != nil {
		logrus.WithField("error", err).Warn("connection: failed to clear stored credentials")
	}
	m.setState(State{Kind: Disconnected})
	return err
}

// AutoReconnect restores a session from stored credentials without probing.
// It is a no-op when already connected or when nothing is stored.
func (m *Manager) AutoReconnect(ctx context.Context) error {
	if m.State().Kind == Connected {
		return nil
	}
	c, ok, err := credstore.Reconcile(ctx, m.secure, m.fallback)
	if err != nil {
		m.mu.Lock()
		m.lastErr = err
		m.mu.Unlock()
		return err
	}
	if !ok {
		logrus.Debug("connection: no stored credentials")
		return nil
	}
	m.setState(State{Kind: Connecting})
	m.activate(ctx, c)
	logrus.WithFields(logrus.Fields{"url": c.BaseURL, "user": c.Username}).Info("connection: reconnected from stored credentials")
	return nil
}

// Close ends the session but keeps stored credentials for a later
// AutoReconnect.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	s := m.session
	m.session = nil
	m.mu.Unlock()
	if s != nil {
		m.teardown(ctx, s)
		m.setState(State{Kind: Disconnected})
	}
	return nil
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// LastError returns the error of the most recent failed attempt.
func (m *Manager) LastError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// Session returns a copy of the active session.
func (m *Manager) Session() (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return Session{}, false
	}
	return *m.session, true
}

// Facade returns the active Facade, or nil when disconnected.
func (m *Manager) Facade() *remotefs.Facade {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return nil
	}
	return m.session.Facade
}

// IsCurrent reports whether f belongs to the active session. Results
// computed on a replaced Facade should be discarded.
func (m *Manager) IsCurrent(f *remotefs.Facade) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return f != nil && m.session != nil && m.session.Facade == f
}

// OnStateChange registers fn for every state transition. The returned
// function removes it.
func (m *Manager) OnStateChange(fn func(State)) func() {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = fn
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		delete(m.listeners, id)
		m.mu.Unlock()
	}
}

func (m *Manager) activate(ctx context.Context, c types.Credentials) {
	opts := append([]remotefs.Option{remotefs.WithVirtualPrefixes(remotefs.InfoDir)}, m.facadeOpts...)
	f := remotefs.New(m.newRemote(c), m.overlay, opts...)
	if err := remotefs.Configure(ctx, f, c); err != nil {
		logrus.WithField("error", err).Warn("connection: failed to write session info")
	}
	s := &Session{
		ID:          uuid.NewString(),
		Credentials: c,
		Facade:      f,
		Started:     time.Now(),
	}

	m.mu.Lock()
	old := m.session
	m.session = s
	m.lastErr = nil
	m.mu.Unlock()

	if old != nil {
		m.teardown(ctx, old)
	}
	for _, col := range m.collabs {
		if err := col.attach(ctx, s); err != nil {
			logrus.WithFields(logrus.Fields{"collaborator": col.Name(), "error": err}).Warn("connection: register failed")
		}
	}
	m.setState(State{Kind: Connected})
}

func (m *Manager) teardown(ctx context.Context, s *Session) {
	for _, col := range m.collabs {
		if err := col.detach(ctx, s); err != nil {
			logrus.WithFields(logrus.Fields{"collaborator": col.Name(), "error": err}).Warn("connection: unregister failed")
		}
	}
	s.Facade.Close()
}

// fail records err, ends any surviving session and walks Error → Disconnected.
// Stored credentials are left alone so AutoReconnect can restore them.
func (m *Manager) fail(ctx context.Context, err error) {
	m.mu.Lock()
	m.lastErr = err
	old := m.session
	m.session = nil
	m.mu.Unlock()
	metrics.RecordConnectAttempt("failure")
	logrus.WithField("error", err).Warn("connection: connect failed")
	m.setState(State{Kind: Error, Message: err.Error()})
	if old != nil {
		m.teardown(ctx, old)
	}
	m.setState(State{Kind: Disconnected})
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	m.state = s
	fns := make([]func(State), 0, len(m.listeners))
	for _, fn := range m.listeners {
		fns = append(fns, fn)
	}
	m.mu.Unlock()

	metrics.SetConnectionState(s.Kind.String())
	for _, fn := range fns {
		fn(s)
	}
}
