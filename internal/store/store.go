// Package store holds live call sessions in memory: the ProspectState, the
// decision trace, the lifecycle status, and the final outcome once built.
// Single-process only; swap for Redis or Postgres behind the same surface
// for multi-process deployments.
package store

import (
	"errors"
	"sync"
	"time"

	"roister/agent/internal/call"
)

var (
	ErrSessionExists   = errors.New("session already exists")
	ErrSessionNotFound = errors.New("session not found")
)

// Status values for a session's lifecycle.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
)

// Prospect modes: a human typing/speaking, or an LLM role-playing one.
const (
	ModeHuman = "human"
	ModeAI    = "ai"
)

// Session is one live call: state and trace are mutated turn by turn until
// an outcome is set, after which the session is frozen.
type Session struct {
	ID           string
	State        *call.ProspectState
	Trace        *call.Trace
	Status       string
	Outcome      *call.Outcome
	ProspectMode string
	CreatedAt    time.Time
	LastUserAt   time.Time

	// turnMu serializes turn processing for this session: at most one
	// turn in flight at a time. Distinct sessions are independent.
	turnMu sync.Mutex
}

// Lock acquires the session's single-flight turn lock.
func (s *Session) Lock() { s.turnMu.Lock() }

// Unlock releases the turn lock.
func (s *Session) Unlock() { s.turnMu.Unlock() }

type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func New() *Store {
	return &Store{sessions: make(map[string]*Session)}
}

// Create registers a fresh running session.
func (st *Store) Create(id string, state *call.ProspectState, trace *call.Trace, mode string) (*Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if _, ok := st.sessions[id]; ok {
		return nil, ErrSessionExists
	}
	now := time.Now().UTC()
	sess := &Session{
		ID:           id,
		State:        state,
		Trace:        trace,
		Status:       StatusRunning,
		ProspectMode: mode,
		CreatedAt:    now,
		LastUserAt:   now,
	}
	st.sessions[id] = sess
	return sess, nil
}

// Get returns the session or ErrSessionNotFound.
func (st *Store) Get(id string) (*Session, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	sess, ok := st.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// Touch records user activity for the silence watchdog.
func (st *Store) Touch(id string) {
	st.mu.Lock()
	if sess, ok := st.sessions[id]; ok {
		sess.LastUserAt = time.Now().UTC()
	}
	st.mu.Unlock()
}

// SetOutcome marks the session completed and stores its final outcome.
// Idempotent: the first outcome wins, later calls are no-ops.
func (st *Store) SetOutcome(id string, outcome call.Outcome) {
	st.mu.Lock()
	defer st.mu.Unlock()
	sess, ok := st.sessions[id]
	if !ok || sess.Status == StatusCompleted {
		return
	}
	sess.Status = StatusCompleted
	sess.Outcome = &outcome
}

// ActiveIDs returns the IDs of sessions still running.
func (st *Store) ActiveIDs() []string {
	st.mu.RLock()
	defer st.mu.RUnlock()
	out := make([]string, 0, len(st.sessions))
	for id, sess := range st.sessions {
		if sess.Status == StatusRunning {
			out = append(out, id)
		}
	}
	return out
}

// IdleSince returns running session IDs whose last user activity is older
// than the cutoff.
func (st *Store) IdleSince(cutoff time.Time) []string {
	st.mu.RLock()
	defer st.mu.RUnlock()
	var out []string
	for id, sess := range st.sessions {
		if sess.Status == StatusRunning && sess.LastUserAt.Before(cutoff) {
			out = append(out, id)
		}
	}
	return out
}
