package env

import (
	"fmt"
	"sync"

	"github.com/fyrsmithlabs/convene/internal/message"
)

// Status is the environment lifecycle state.
type Status string

const (
	StatusInitialized Status = "initialized"
	StatusProcessing  Status = "processing"
	StatusCompleted   Status = "completed"
	StatusError       Status = "error"
)

// Terminal reports whether the status allows no further transitions.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusError
}

var validTransitions = map[Status][]Status{
	StatusInitialized: {StatusProcessing},
	StatusProcessing:  {StatusCompleted, StatusError},
}

// ActorState is the per-actor sub-state tracked by the environment.
type ActorState struct {
	Busy      bool `json:"busy"`
	Turns     int  `json:"turns"`
	Failures  int  `json:"failures"`
	LastActed int  `json:"last_acted"` // turn of last completed turn, -1 if never
}

// Snapshot is an immutable copy of the observable simulation state.
type Snapshot struct {
	Turn       int                `json:"turn"`
	Status     Status             `json:"status"`
	Roster     []string           `json:"roster"`
	Active     string             `json:"active,omitempty"`
	HistoryLen int                `json:"history_len"`
	Metrics    map[string]float64 `json:"metrics,omitempty"`
}

// State holds the mutable simulation state. All access is mutex-guarded;
// the environment mutates it only between the concurrent dispatch phases of
// a step, never from actor tasks.
type State struct {
	mu           sync.RWMutex
	turn         int
	maxTurns     int
	status       Status
	roster       []string
	active       string
	sub          map[string]*ActorState
	history      []*message.Message
	metrics      map[string]float64
	meta         map[string]any
	lastSelected map[string]struct{}
}

// NewState creates a state in status initialized at turn 0.
func NewState(roster []string, maxTurns int) *State {
	s := &State{maxTurns: maxTurns}
	s.init(roster)
	return s
}

func (s *State) init(roster []string) {
	s.turn = 0
	s.status = StatusInitialized
	s.active = ""
	s.roster = append([]string(nil), roster...)
	s.sub = make(map[string]*ActorState, len(roster))
	for _, id := range roster {
		s.sub[id] = &ActorState{LastActed: -1}
	}
	s.history = nil
	s.metrics = make(map[string]float64)
	s.meta = make(map[string]any)
	s.lastSelected = make(map[string]struct{})
}

// Reset restores a fresh state over the same roster.
func (s *State) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.init(s.roster)
}

// Turn returns the current turn counter.
func (s *State) Turn() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.turn
}

// MaxTurns returns the configured bound, 0 meaning unbounded.
func (s *State) MaxTurns() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.maxTurns
}

// AdvanceTurn increments the turn counter by one and returns the new value.
func (s *State) AdvanceTurn() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turn++
	return s.turn
}

// Status returns the current lifecycle status.
func (s *State) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Transition moves the state machine to the given status, rejecting
// transitions outside initialized→processing→{completed,error}.
func (s *State) Transition(to Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, allowed := range validTransitions[s.status] {
		if to == allowed {
			s.status = to
			return nil
		}
	}
	return fmt.Errorf("cannot transition from %s to %s: %w", s.status, to, ErrInvalidState)
}

// Roster returns a copy of the ordered actor roster.
func (s *State) Roster() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.roster...)
}

// InRoster reports whether id participates in this simulation.
func (s *State) InRoster(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.sub[id]
	return ok
}

// Active returns the active actor marker.
func (s *State) Active() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// SetActive sets the active actor marker.
func (s *State) SetActive(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = id
}

// Actor returns a copy of the per-actor sub-state, zero-valued for unknown
// ids.
func (s *State) Actor(id string) ActorState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if st, ok := s.sub[id]; ok {
		return *st
	}
	return ActorState{LastActed: -1}
}

// SetBusy marks an actor as mid-turn.
func (s *State) SetBusy(id string, busy bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.sub[id]; ok {
		st.Busy = busy
	}
}

// RecordTurn updates an actor's counters after its turn completed.
func (s *State) RecordTurn(id string, turn int, failed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.sub[id]
	if !ok {
		return
	}
	st.Turns++
	st.LastActed = turn
	if failed {
		st.Failures++
	}
}

// AppendHistory appends messages to the append-only history.
func (s *State) AppendHistory(msgs ...*message.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, msgs...)
}

// HistoryLen returns the history length.
func (s *State) HistoryLen() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.history)
}

// History returns a copy of the full message history.
func (s *State) History() []*message.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*message.Message(nil), s.history...)
}

// HistoryTail returns the most recent n messages, oldest first.
func (s *State) HistoryTail(n int) []*message.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if n <= 0 || n > len(s.history) {
		n = len(s.history)
	}
	return append([]*message.Message(nil), s.history[len(s.history)-n:]...)
}

// SetMetric sets a named metric.
func (s *State) SetMetric(name string, value float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics[name] = value
}

// AddMetric adds delta to a named metric.
func (s *State) AddMetric(name string, delta float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics[name] += delta
}

// Metrics returns a copy of the metrics map.
func (s *State) Metrics() map[string]float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]float64, len(s.metrics))
	for k, v := range s.metrics {
		out[k] = v
	}
	return out
}

// SetMeta stores free-form metadata.
func (s *State) SetMeta(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.meta[key] = value
}

// Meta returns stored metadata.
func (s *State) Meta(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.meta[key]
	return v, ok
}

// SetLastSelected records which actors acted in the turn that just
// completed.
func (s *State) SetLastSelected(ids []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSelected = make(map[string]struct{}, len(ids))
	for _, id := range ids {
		s.lastSelected[id] = struct{}{}
	}
}

// SelectedLastTurn reports whether id acted in the previous turn.
func (s *State) SelectedLastTurn(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.lastSelected[id]
	return ok
}

// Snapshot returns an immutable copy of the observable state.
func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	metrics := make(map[string]float64, len(s.metrics))
	for k, v := range s.metrics {
		metrics[k] = v
	}
	return Snapshot{
		Turn:       s.turn,
		Status:     s.status,
		Roster:     append([]string(nil), s.roster...),
		Active:     s.active,
		HistoryLen: len(s.history),
		Metrics:    metrics,
	}
}
