package diner

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/google/uuid"
)

// SessionTTL is how long a dining session stays valid after creation.
const SessionTTL = 4 * time.Hour

var ErrNoSession = errors.New("no dining session")

// Session is one dining visit at one table.
type Session struct {
	ID          string    `json:"id"`
	TableNumber int       `json:"table_number"`
	CreatedAt   time.Time `json:"created_at"`
}

func (s Session) ExpiresAt() time.Time {
	return s.CreatedAt.Add(SessionTTL)
}

// ValidAt reports whether the session is still open at now. A session is
// closed from the instant it reaches its TTL.
func (s Session) ValidAt(now time.Time) bool {
	return s.ID != "" && now.Before(s.ExpiresAt())
}

// Suffix is the random tail of the id, used for client side bill references.
func (s Session) Suffix() string {
	if i := strings.LastIndex(s.ID, "-"); i >= 0 && i < len(s.ID)-1 {
		return s.ID[i+1:]
	}
	return s.ID
}

// SessionManager owns the stored dining session.
type SessionManager struct {
	mu      sync.Mutex
	storage Storage
	now     func() time.Time
	token   func() string
	logger  apt.Logger
}

func NewSessionManager(storage Storage, now func() time.Time, logger apt.Logger) *SessionManager {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	if now == nil {
		now = time.Now
	}
	return &SessionManager{
		storage: storage,
		now:     now,
		token:   func() string { return strings.ReplaceAll(uuid.NewString(), "-", "")[:8] },
		logger:  logger.With("component", "SessionManager"),
	}
}

// GetOrCreate returns the current session id, minting one for tableNumber
// when no valid session is stored.
func (m *SessionManager) GetOrCreate(tableNumber int) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	prev, ok := m.load()
	if ok && prev.ValidAt(now) {
		return prev.ID, nil
	}
	if ok {
		// The expired visit never ended explicitly.
		m.clearVisitState()
	}

	if tableNumber <= 0 {
		return "", fmt.Errorf("%w: table number required", ErrNoSession)
	}

	s := Session{
		ID:          fmt.Sprintf("table%d-%d-%s", tableNumber, now.UnixMilli(), m.token()),
		TableNumber: tableNumber,
		CreatedAt:   now,
	}
	if err := m.storage.Save(KeySession, s); err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoSession, err)
	}
	m.logger.Info("new dining session", "session_id", s.ID, "table_number", tableNumber)
	return s.ID, nil
}

func (m *SessionManager) IsValid() bool {
	_, ok := m.Current()
	return ok
}

// Current returns the stored session while it is valid.
func (m *SessionManager) Current() (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.load()
	if !ok || !s.ValidAt(m.now()) {
		return Session{}, false
	}
	return s, true
}

// End clears the session and the orders cached for it.
func (m *SessionManager) End() {
	m.mu.Lock()
	defer m.mu.Unlock()

	deleteState(m.storage, KeySession, m.logger)
	m.clearVisitState()
	m.logger.Info("dining session ended")
}

// Discard forgets session id if it is still the stored one. It undoes a
// session minted for an order the server never accepted.
func (m *SessionManager) Discard(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.load(); ok && s.ID == id {
		deleteState(m.storage, KeySession, m.logger)
		m.logger.Info("discarded unused dining session", "session_id", id)
	}
}

// clearVisitState drops what only lives as long as one visit: the cached
// orders and the complimentary item opt-out.
func (m *SessionManager) clearVisitState() {
	deleteState(m.storage, KeyOrders, m.logger)
	deleteState(m.storage, KeyAutoAddRemoved, m.logger)
}

func (m *SessionManager) load() (Session, bool) {
	var s Session
	if !loadState(m.storage, KeySession, &s, m.logger) {
		return Session{}, false
	}
	if s.ID == "" || s.CreatedAt.IsZero() {
		m.logger.Info("discarding incomplete session state")
		deleteState(m.storage, KeySession, m.logger)
		return Session{}, false
	}
	return s, true
}
