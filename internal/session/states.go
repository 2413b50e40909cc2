package session

import "sync"

// State is the pending input a user owes the bot.
type State int

const (
	StateNone State = iota
	AwaitingCustomPrompt
	AwaitingGrantTargets
	AwaitingRevokeTargets
	AwaitingBroadcastText
	// AwaitingBroadcastConfirm holds the draft as payload until the admin confirms.
	AwaitingBroadcastConfirm
)

func (s State) String() string {
	switch s {
	case AwaitingCustomPrompt:
		return "awaiting_custom_prompt"
	case AwaitingGrantTargets:
		return "awaiting_grant_targets"
	case AwaitingRevokeTargets:
		return "awaiting_revoke_targets"
	case AwaitingBroadcastText:
		return "awaiting_broadcast_text"
	case AwaitingBroadcastConfirm:
		return "awaiting_broadcast_confirm"
	default:
		return "none"
	}
}

// States is a concurrency-safe map of user id to pending state, plus an
// optional payload (the broadcast draft, for example).
type States struct {
	mu      sync.Mutex
	entries map[int64]entry
}

type entry struct {
	state   State
	payload string
}

// NewStates creates an empty state table.
func NewStates() *States {
	return &States{entries: make(map[int64]entry)}
}

func (s *States) Set(userID int64, state State, payload string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if state == StateNone {
		delete(s.entries, userID)
		return
	}
	s.entries[userID] = entry{state: state, payload: payload}
}

func (s *States) Get(userID int64) (State, string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[userID]
	if !ok {
		return StateNone, ""
	}
	return e.state, e.payload
}

func (s *States) Clear(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, userID)
}

// Take returns and clears the user's state in one step.
func (s *States) Take(userID int64) (State, string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[userID]
	if !ok {
		return StateNone, ""
	}
	delete(s.entries, userID)
	return e.state, e.payload
}
