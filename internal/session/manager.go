// Package session replicates the shared part of the competition state
// through a Remote record. One host device writes; every other device
// follows. Writes are whole-state and last-writer-wins.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"agility-scorer/internal/competition"
	"agility-scorer/internal/constants"
	"agility-scorer/internal/domain"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

type Status string

const (
	StatusOff        Status = "off"
	StatusConnecting Status = "connecting"
	StatusConnected  Status = "connected"
	StatusError      Status = "error"
)

type Role string

const (
	RoleHost   Role = "host"
	RoleViewer Role = "viewer"
)

func ParseRole(v string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(v))) {
	case RoleHost, "":
		return RoleHost, nil
	case RoleViewer:
		return RoleViewer, nil
	}
	return "", fmt.Errorf("unknown device role %q", v)
}

type StatusListener func(status Status, err error)

type Options struct {
	DeviceID string
	Role     Role
	Debounce time.Duration
	// NewCode overrides session code generation.
	NewCode func() (string, error)
}

type Manager struct {
	store    *competition.Store
	remote   Remote
	deviceID string
	role     Role
	newCode  func() (string, error)
	outbox   *Outbox
	logger   zerolog.Logger

	mu      sync.Mutex
	status  Status
	code    string
	lastErr error
	sub     Subscription
	// pending holds the newest record seen while a join is still fetching.
	pending *domain.SessionRecord

	// remoteMu orders remote applies against the end of a join.
	remoteMu sync.Mutex

	// applying is set while a remote payload is written into the store.
	applying atomic.Bool

	listenerMu sync.Mutex
	listeners  []StatusListener

	unsubscribe func()
}

// NewManager wires the manager into store's change feed. A nil remote leaves
// sync disabled; every session call then fails with domain.ErrSyncDisabled.
func NewManager(store *competition.Store, remote Remote, opts Options, logger zerolog.Logger) *Manager {
	if opts.Debounce <= 0 {
		opts.Debounce = constants.SyncDebounce
	}
	if opts.Role == "" {
		opts.Role = RoleHost
	}
	if opts.NewCode == nil {
		opts.NewCode = func() (string, error) {
			return gonanoid.Generate(constants.SessionCodeAlphabet, constants.SessionCodeLength)
		}
	}
	m := &Manager{
		store:    store,
		remote:   remote,
		deviceID: opts.DeviceID,
		role:     opts.Role,
		newCode:  opts.NewCode,
		logger:   logger,
		status:   StatusOff,
	}
	m.outbox = NewOutbox(opts.Debounce, m.push)
	m.unsubscribe = store.Subscribe(m.onChange)
	return m
}

func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

func (m *Manager) Code() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.code
}

// Err is the failure behind the last error status.
func (m *Manager) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

func (m *Manager) Role() Role { return m.role }

func (m *Manager) DeviceID() string { return m.deviceID }

func (m *Manager) OnStatus(l StatusListener) {
	m.listenerMu.Lock()
	defer m.listenerMu.Unlock()
	m.listeners = append(m.listeners, l)
}

// Create uploads the current shared state under a fresh code and follows it.
func (m *Manager) Create(ctx context.Context) (string, error) {
	if m.remote == nil {
		return "", domain.ErrSyncDisabled
	}
	if m.role != RoleHost {
		return "", domain.ErrNotHost
	}
	m.Leave()
	m.setStatus(StatusConnecting, "", nil)

	var (
		code string
		err  error
	)
	for attempt := 0; attempt < constants.SessionCodeAttempts; attempt++ {
		code, err = m.newCode()
		if err != nil {
			err = fmt.Errorf("failed to generate session code: %w", err)
			break
		}
		err = m.remote.Create(ctx, m.record(code))
		if !errors.Is(err, domain.ErrSessionExists) {
			break
		}
		m.logger.Debug().Str("code", code).Msg("session code taken, retrying")
	}
	if err != nil {
		m.logger.Error().Err(err).Msg("failed to create session")
		m.setStatus(StatusError, "", err)
		return "", err
	}

	if err := m.follow(ctx, code); err != nil {
		return "", err
	}
	m.logger.Info().Str("code", code).Msg("session created")
	return code, nil
}

// Join replaces the local shared state with the remote record and follows
// it. An unknown code leaves local state untouched.
//
// The subscription is opened before the fetch. Records that arrive while the
// fetch is in flight are held back and the newest one is applied on top of
// the fetched state.
func (m *Manager) Join(ctx context.Context, code string) error {
	if m.remote == nil {
		return domain.ErrSyncDisabled
	}
	code = strings.ToUpper(strings.TrimSpace(code))
	m.Leave()
	m.setStatus(StatusConnecting, code, nil)

	sub, err := m.remote.Subscribe(ctx, code, m.onRemote(code))
	if err != nil {
		m.logger.Error().Err(err).Str("code", code).Msg("failed to join session")
		m.setStatus(StatusError, "", err)
		return err
	}
	m.mu.Lock()
	m.sub = sub
	m.mu.Unlock()

	rec, err := m.remote.Fetch(ctx, code)
	if err != nil {
		m.logger.Error().Err(err).Str("code", code).Msg("failed to join session")
		m.dropSubscription()
		m.setStatus(StatusError, "", err)
		return err
	}

	m.remoteMu.Lock()
	if err := m.apply(rec.State); err != nil {
		m.remoteMu.Unlock()
		m.dropSubscription()
		m.setStatus(StatusError, "", err)
		return err
	}
	m.setStatus(StatusConnected, code, nil)
	m.mu.Lock()
	pending := m.pending
	m.pending = nil
	m.mu.Unlock()
	if pending != nil {
		if err := m.apply(pending.State); err != nil {
			m.logger.Error().Err(err).Str("code", code).Msg("failed to apply remote state")
		}
	}
	m.remoteMu.Unlock()

	m.logger.Info().Str("code", code).Str("role", string(m.role)).Msg("session joined")
	return nil
}

// Leave is safe with a push in flight; the pending push is dropped, not awaited.
func (m *Manager) Leave() {
	m.outbox.Cancel()

	m.mu.Lock()
	code := m.code
	was := m.status
	m.mu.Unlock()

	m.dropSubscription()
	if was != StatusOff {
		m.setStatus(StatusOff, "", nil)
		if code != "" {
			m.logger.Info().Str("code", code).Msg("session left")
		}
	}
}

// Flush pushes a pending change now instead of waiting out the debounce.
func (m *Manager) Flush() bool {
	return m.outbox.Flush()
}

// Close leaves any session and detaches from the store.
func (m *Manager) Close() {
	m.Leave()
	m.unsubscribe()
}

func (m *Manager) dropSubscription() {
	m.mu.Lock()
	sub := m.sub
	code := m.code
	m.sub = nil
	m.pending = nil
	m.mu.Unlock()

	if sub != nil {
		if err := sub.Close(); err != nil {
			m.logger.Warn().Err(err).Str("code", code).Msg("failed to close session subscription")
		}
	}
}

func (m *Manager) follow(ctx context.Context, code string) error {
	sub, err := m.remote.Subscribe(ctx, code, m.onRemote(code))
	if err != nil {
		err = fmt.Errorf("failed to subscribe to session: %w", err)
		m.logger.Error().Err(err).Str("code", code).Msg("failed to follow session")
		m.setStatus(StatusError, "", err)
		return err
	}
	m.mu.Lock()
	m.sub = sub
	m.mu.Unlock()
	m.setStatus(StatusConnected, code, nil)
	return nil
}

func (m *Manager) onRemote(code string) Handler {
	return func(rec domain.SessionRecord) {
		if rec.DeviceID == m.deviceID {
			return
		}
		m.remoteMu.Lock()
		defer m.remoteMu.Unlock()

		m.mu.Lock()
		if m.code != code {
			m.mu.Unlock()
			return
		}
		switch m.status {
		case StatusConnecting:
			held := rec
			m.pending = &held
			m.mu.Unlock()
			return
		case StatusConnected:
			m.mu.Unlock()
		default:
			m.mu.Unlock()
			return
		}

		if err := m.apply(rec.State); err != nil {
			m.logger.Error().Err(err).Str("code", code).Msg("failed to apply remote state")
			return
		}
		m.logger.Debug().Str("code", code).Str("from", rec.DeviceID).Msg("remote state applied")
	}
}

func (m *Manager) apply(shared domain.SharedState) error {
	m.applying.Store(true)
	defer m.applying.Store(false)
	return m.store.ReplaceShared(shared)
}

func (m *Manager) onChange(c competition.Change) {
	if !c.Shared || c.Origin != competition.OriginLocal || m.applying.Load() {
		return
	}
	if m.role != RoleHost || m.Status() != StatusConnected {
		return
	}
	m.outbox.Schedule()
}

func (m *Manager) push() {
	m.mu.Lock()
	code, status := m.code, m.status
	m.mu.Unlock()
	if status != StatusConnected {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), constants.RemoteTimeout)
	defer cancel()
	if err := m.remote.Push(ctx, m.record(code)); err != nil {
		m.logger.Error().Err(err).Str("code", code).Msg("failed to push state")
		if m.Code() == code {
			m.setStatus(StatusError, code, err)
		}
		return
	}
	m.logger.Debug().Str("code", code).Msg("state pushed")
}

func (m *Manager) record(code string) domain.SessionRecord {
	return domain.SessionRecord{
		Code:      code,
		DeviceID:  m.deviceID,
		State:     m.store.Shared(),
		UpdatedAt: time.Now().UTC(),
	}
}

func (m *Manager) setStatus(status Status, code string, err error) {
	m.mu.Lock()
	changed := m.status != status
	m.status = status
	m.code = code
	m.lastErr = err
	m.mu.Unlock()
	if !changed {
		return
	}

	m.listenerMu.Lock()
	ls := append([]StatusListener(nil), m.listeners...)
	m.listenerMu.Unlock()
	for _, l := range ls {
		l(status, err)
	}
}
