// Package session tracks admin sessions by allow-listed email.
//
// A session only unlocks the unfiltered view and the editing API of this
// service. It is not an authorisation boundary: the /db endpoint checks the
// allow-list again before accepting a write.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"studio_site/internal/storage"
	"studio_site/internal/storage/local"
)

const StorageKey = "admin_session"

var ErrNotAllowed = errors.New("email is not on the admin allow-list")

type Session struct {
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

type Manager struct {
	mu       sync.RWMutex
	allow    map[string]struct{}
	sessions map[string]Session
	kv       local.KV
	log      *slog.Logger
	now      func() time.Time
}

func NewManager(allowList []string, kv local.KV, log *slog.Logger) *Manager {
	allow := make(map[string]struct{}, len(allowList))
	for _, e := range allowList {
		if e = normalize(e); e != "" {
			allow[e] = struct{}{}
		}
	}

	return &Manager{
		allow:    allow,
		sessions: make(map[string]Session),
		kv:       kv,
		log:      log,
		now:      time.Now,
	}
}

func normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (m *Manager) Allowed(email string) bool {
	_, ok := m.allow[normalize(email)]
	return ok
}

// Restore loads persisted sessions and drops the ones no longer allow-listed.
func (m *Manager) Restore() error {
	const op = "session.Restore"

	data, err := m.kv.Get(StorageKey)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	dirty := false

	var persisted []Session
	if err := json.Unmarshal(data, &persisted); err != nil {
		m.log.Warn("dropping unreadable admin sessions", slog.String("error", err.Error()))
		persisted, dirty = nil, true
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	revoked := 0
	for _, s := range persisted {
		email := normalize(s.Email)
		if !m.Allowed(email) {
			revoked++
			continue
		}
		s.Email = email
		m.sessions[email] = s
	}

	if revoked > 0 {
		m.log.Info("admin sessions revoked", slog.Int("count", revoked))
		dirty = true
	}

	if dirty {
		if err := m.persistLocked(); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	return nil
}

func (m *Manager) Login(email string) (Session, error) {
	const op = "session.Login"

	email = normalize(email)
	if !m.Allowed(email) {
		return Session{}, fmt.Errorf("%s: %w", op, ErrNotAllowed)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[email]
	if !ok {
		s = Session{Email: email, CreatedAt: m.now().UTC()}
		m.sessions[email] = s
	}

	if err := m.persistLocked(); err != nil {
		if !ok {
			delete(m.sessions, email)
		}
		return Session{}, fmt.Errorf("%s: %w", op, err)
	}

	return s, nil
}

func (m *Manager) Logout(email string) error {
	const op = "session.Logout"

	email = normalize(email)

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[email]; !ok {
		return nil
	}
	delete(m.sessions, email)

	if err := m.persistLocked(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Lookup returns the live session for email, if any.
func (m *Manager) Lookup(email string) (Session, bool) {
	email = normalize(email)
	if email == "" {
		return Session{}, false
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[email]
	return s, ok
}

func (m *Manager) Active() []Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })

	return out
}

func (m *Manager) persistLocked() error {
	list := make([]Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		list = append(list, s)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Email < list[j].Email })

	data, err := json.Marshal(list)
	if err != nil {
		return err
	}
	return m.kv.Set(StorageKey, data)
}
