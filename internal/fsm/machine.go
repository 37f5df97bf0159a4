// Package fsm implements the guarded state machine driving the
// deliberation protocol. States are named, transitions are event-driven
// with guard predicates and side-effect actions, and every successful
// transition is recorded in an immutable history.
package fsm

import (
	"sort"
	"time"

	"github.com/Iron-Ham/tribunal/internal/errors"
)

// ForceEvent is the synthetic event recorded in history when ForceState
// bypasses the transition table.
const ForceEvent = "_force"

// Context carries the session facts guards and actions may consult.
type Context struct {
	AutoEscalate bool
	Round        int
	Values       map[string]any
}

// Guard decides whether a transition is allowed for the given context.
type Guard func(Context) bool

// Action is a side effect executed while a transition runs, after the
// old state's exit callback and before the new state's entry callback.
type Action func(Context)

// Transition is one edge in the machine. When several transitions share
// a (source, event) pair they are tried in descending Priority order and
// the first whose guard passes wins.
type Transition struct {
	Source      string
	Target      string
	Event       string
	Guard       Guard
	Action      Action
	Description string
	Priority    int
}

// allowed reports whether the transition's guard passes. A nil guard
// always passes; a panicking guard counts as a refusal.
func (t Transition) allowed(ctx Context) (ok bool) {
	if t.Guard == nil {
		return true
	}
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	return t.Guard(ctx)
}

// Record is one immutable history entry.
type Record struct {
	From      string    `json:"from"`
	To        string    `json:"to"`
	Event     string    `json:"event"`
	Timestamp time.Time `json:"timestamp"`
}

type stateInfo struct {
	onEnter  Action
	onExit   Action
	terminal bool
}

// Machine is a general-purpose finite state machine. It is not safe for
// concurrent use; the protocol is strictly one action per invocation.
type Machine struct {
	current     string
	states      map[string]*stateInfo
	transitions []Transition
	history     []Record
	onAny       func(from, to, event string, ctx Context)
}

// New creates a machine sitting in the given initial state. The initial
// state is registered automatically.
func New(initial string) *Machine {
	m := &Machine{
		current: initial,
		states:  make(map[string]*stateInfo),
	}
	m.AddState(initial)
	return m
}

// AddState registers a state if it is not already known.
func (m *Machine) AddState(name string) {
	if _, ok := m.states[name]; !ok {
		m.states[name] = &stateInfo{}
	}
}

// AddTerminalState registers a state out of which no transition is
// permitted.
func (m *Machine) AddTerminalState(name string) {
	m.AddState(name)
	m.states[name].terminal = true
}

// OnEnter sets the callback invoked when the machine enters state.
func (m *Machine) OnEnter(state string, fn Action) {
	m.AddState(state)
	m.states[state].onEnter = fn
}

// OnExit sets the callback invoked when the machine leaves state.
func (m *Machine) OnExit(state string, fn Action) {
	m.AddState(state)
	m.states[state].onExit = fn
}

// OnAnyTransition registers a callback fired after every successful
// transition, including forced ones.
func (m *Machine) OnAnyTransition(fn func(from, to, event string, ctx Context)) {
	m.onAny = fn
}

// AddTransition registers a transition edge, auto-registering its
// states.
func (m *Machine) AddTransition(t Transition) {
	m.AddState(t.Source)
	m.AddState(t.Target)
	m.transitions = append(m.transitions, t)
}

// Current returns the current state name.
func (m *Machine) Current() string {
	return m.current
}

// IsTerminal reports whether the machine sits in a terminal state.
func (m *Machine) IsTerminal() bool {
	info, ok := m.states[m.current]
	return ok && info.terminal
}

// History returns a copy of the transition log.
func (m *Machine) History() []Record {
	out := make([]Record, len(m.history))
	copy(out, m.history)
	return out
}

// RestoreHistory replaces the transition log, used when rehydrating a
// persisted machine.
func (m *Machine) RestoreHistory(records []Record) {
	m.history = make([]Record, len(records))
	copy(m.history, records)
}

// SetCurrent moves the machine to state without guards, callbacks, or
// history. Used only to rehydrate persisted state; use ForceState for
// administrative recovery.
func (m *Machine) SetCurrent(state string) {
	m.AddState(state)
	m.current = state
}

// Trigger fires an event, executing the first guard-passing transition
// for it. On success it runs, in order: the old state's exit callback,
// the transition action, the new state's entry callback; then records
// history and returns the new state.
//
// Failure modes are distinguishable via errors.Is: ErrTerminalState
// when the current state is terminal, ErrNoTransition when no edge is
// wired for the event, ErrGuardsBlocked when edges exist but every
// guard refused.
func (m *Machine) Trigger(event string, ctx Context) (string, error) {
	if m.IsTerminal() {
		return "", errors.NewProtocolError(event, m.current, errors.ErrTerminalState)
	}

	candidates := m.candidates(event)
	if len(candidates) == 0 {
		return "", errors.NewProtocolError(event, m.current, errors.ErrNoTransition)
	}

	for _, t := range candidates {
		if t.allowed(ctx) {
			return m.execute(t, ctx), nil
		}
	}
	return "", errors.NewProtocolError(event, m.current, errors.ErrGuardsBlocked)
}

// CanTrigger reports whether the event would cause a transition from
// the current state.
func (m *Machine) CanTrigger(event string, ctx Context) bool {
	if m.IsTerminal() {
		return false
	}
	for _, t := range m.candidates(event) {
		if t.allowed(ctx) {
			return true
		}
	}
	return false
}

// TryTrigger is Trigger that reports failure with ok=false instead of
// an error.
func (m *Machine) TryTrigger(event string, ctx Context) (string, bool) {
	next, err := m.Trigger(event, ctx)
	if err != nil {
		return m.current, false
	}
	return next, true
}

// ForceState moves the machine to a state bypassing guards and
// callbacks, for administrative recovery. The jump is still logged.
func (m *Machine) ForceState(state string) {
	m.AddState(state)
	from := m.current
	m.current = state
	m.history = append(m.history, Record{
		From:      from,
		To:        state,
		Event:     ForceEvent,
		Timestamp: time.Now().UTC(),
	})
	if m.onAny != nil {
		m.onAny(from, state, ForceEvent, Context{})
	}
}

// AvailableEvents lists the distinct events wired out of the current
// state, ignoring guards.
func (m *Machine) AvailableEvents() []string {
	seen := make(map[string]bool)
	var events []string
	for _, t := range m.transitions {
		if t.Source == m.current && !seen[t.Event] {
			seen[t.Event] = true
			events = append(events, t.Event)
		}
	}
	sort.Strings(events)
	return events
}

// AvailableTransitions lists transitions out of the current state whose
// guards pass for ctx.
func (m *Machine) AvailableTransitions(ctx Context) []Transition {
	var out []Transition
	for _, t := range m.transitions {
		if t.Source == m.current && t.allowed(ctx) {
			out = append(out, t)
		}
	}
	return out
}

// ReachableStates returns every state reachable from the current one by
// following transition edges, guards ignored.
func (m *Machine) ReachableStates() map[string]bool {
	visited := make(map[string]bool)
	queue := []string{m.current}
	for len(queue) > 0 {
		state := queue[0]
		queue = queue[1:]
		if visited[state] {
			continue
		}
		visited[state] = true
		for _, t := range m.transitions {
			if t.Source == state && !visited[t.Target] {
				queue = append(queue, t.Target)
			}
		}
	}
	return visited
}

// TransitionMap groups every wired transition by source state, guards
// ignored. Useful for rendering the protocol graph.
func (m *Machine) TransitionMap() map[string][]Transition {
	out := make(map[string][]Transition)
	for _, t := range m.transitions {
		out[t.Source] = append(out[t.Source], t)
	}
	return out
}

// candidates returns transitions for (current, event) ordered by
// descending priority, preserving wiring order between equals.
func (m *Machine) candidates(event string) []Transition {
	var out []Transition
	for _, t := range m.transitions {
		if t.Source == m.current && t.Event == event {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Priority > out[j].Priority
	})
	return out
}

func (m *Machine) execute(t Transition, ctx Context) string {
	from := m.current

	if info := m.states[from]; info.onExit != nil {
		info.onExit(ctx)
	}
	if t.Action != nil {
		t.Action(ctx)
	}
	m.current = t.Target
	if info := m.states[m.current]; info.onEnter != nil {
		info.onEnter(ctx)
	}

	m.history = append(m.history, Record{
		From:      from,
		To:        m.current,
		Event:     t.Event,
		Timestamp: time.Now().UTC(),
	})

	if m.onAny != nil {
		m.onAny(from, m.current, t.Event, ctx)
	}
	return m.current
}
