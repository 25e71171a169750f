package bot

import (
	"sync"
	"time"
)

// State names the current step of a dialogue session.
type State string

const (
	StateIdle         State = "idle"
	StateAskDate      State = "ask_date"
	StateAskSlot      State = "ask_slot"
	StateAskName      State = "ask_name"
	StateAskEmail     State = "ask_email"
	StateConfirm      State = "confirm"
	StateAskLookupID  State = "ask_lookup_id"
	StateAskCancelID  State = "ask_cancel_id"
	StateReschedDate  State = "resched_date"
	StateReschedSlot  State = "resched_slot"
)

// Draft holds the data collected during a booking dialogue.
type Draft struct {
	ServiceID     string
	Date          string // YYYY-MM-DD
	SlotStart     time.Time
	CustomerName  string
	CustomerEmail string
	AppointmentID string // reschedule target
}

// Session is one user's dialogue state.
type Session struct {
	State     State
	Draft     Draft
	UpdatedAt time.Time
}

type stateStore struct {
	sessions map[int64]*Session
	timeout  time.Duration
	mu       sync.Mutex
}

func newStateStore(timeout time.Duration) *stateStore {
	if timeout <= 0 {
		timeout = 30 * time.Minute
	}
	return &stateStore{sessions: make(map[int64]*Session), timeout: timeout}
}

// get returns the user's live session, or a fresh idle one.
func (s *stateStore) get(userID int64) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[userID]
	if ok && time.Since(session.UpdatedAt) <= s.timeout {
		return session
	}
	session = &Session{State: StateIdle, UpdatedAt: time.Now()}
	s.sessions[userID] = session
	return session
}

// set transitions the user's session to a new state.
func (s *stateStore) set(userID int64, state State, mutate func(*Draft)) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[userID]
	if !ok {
		session = &Session{}
		s.sessions[userID] = session
	}
	session.State = state
	session.UpdatedAt = time.Now()
	if mutate != nil {
		mutate(&session.Draft)
	}
	return session
}

// reset drops the user's session.
func (s *stateStore) reset(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
}

// cleanup removes expired sessions and reports how many were dropped.
func (s *stateStore) cleanup() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for userID, session := range s.sessions {
		if time.Since(session.UpdatedAt) > s.timeout {
			delete(s.sessions, userID)
			removed++
		}
	}
	return removed
}
