package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"docqa-be/pkg/rag/index"
	"docqa-be/pkg/rag/memory"
)

var (
	// ErrNotFound means no session exists for the given id.
	ErrNotFound = errors.New("session: not found")

	// ErrNotReady means the session is not in the Ready state; queries on
	// Idle, Indexing and Closed sessions all fail with this.
	ErrNotReady = errors.New("session: not ready")

	// ErrBusy means a query is already in flight on this session.
	ErrBusy = errors.New("session: query in progress")

	// ErrInvalidTransition means a lifecycle operation was attempted from
	// the wrong state (e.g. ingesting twice).
	ErrInvalidTransition = errors.New("session: invalid state transition")
)

// State is the session lifecycle: Idle -> Indexing -> Ready -> Closed.
type State string

const (
	StateIdle     State = "IDLE"
	StateIndexing State = "INDEXING"
	StateReady    State = "READY"
	StateClosed   State = "CLOSED"
)

// Session owns one uploaded document's vector index and conversation.
// All fields are guarded by mu; the index and conversation are exclusively
// owned and released when the session closes.
type Session struct {
	ID        uuid.UUID
	CreatedAt time.Time

	mu           sync.Mutex
	state        State
	index        *index.Index
	conversation *memory.Conversation
	summary      string
	busy         bool
}

func newSession() *Session {
	return &Session{
		ID:           uuid.New(),
		CreatedAt:    time.Now(),
		state:        StateIdle,
		conversation: memory.NewConversation(),
	}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// BeginIngestion transitions Idle -> Indexing.
func (s *Session) BeginIngestion() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateIdle {
		return ErrInvalidTransition
	}
	s.state = StateIndexing
	return nil
}

// CompleteIngestion attaches the sealed index and transitions
// Indexing -> Ready.
func (s *Session) CompleteIngestion(idx *index.Index) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateIndexing {
		return ErrInvalidTransition
	}
	s.index = idx
	s.state = StateReady
	return nil
}

// Close releases the session's resources. Idempotent, valid from any state.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed {
		return
	}
	s.state = StateClosed
	s.index = nil
	s.conversation = nil
	s.summary = ""
}

// BeginQuery reserves the session for one in-flight query. A concurrent
// second query is rejected with ErrBusy rather than queued.
func (s *Session) BeginQuery() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateReady {
		return ErrNotReady
	}
	if s.busy {
		return ErrBusy
	}
	s.busy = true
	return nil
}

// EndQuery releases the reservation taken by BeginQuery.
func (s *Session) EndQuery() {
	s.mu.Lock()
	s.busy = false
	s.mu.Unlock()
}

// Index returns the session's vector index, nil unless Ready.
func (s *Session) Index() *index.Index {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index
}

// Conversation returns the session's turn log, nil once Closed.
func (s *Session) Conversation() *memory.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conversation
}

func (s *Session) SetSummary(summary string) {
	s.mu.Lock()
	s.summary = summary
	s.mu.Unlock()
}

func (s *Session) Summary() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summary
}
