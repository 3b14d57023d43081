package engine

import (
	"context"
	"errors"
	"fmt"
)

// State is the name of one state-machine state, persisted verbatim in the
// session's state column.
type State string

// StateIdle is the implicit initial state of every workflow. An empty
// persisted state reads as Idle.
const StateIdle State = "Idle"

// Trigger names a state-machine input.
type Trigger string

// ErrNoTransition is returned when a trigger is fired in a state that
// does not permit it.
var ErrNoTransition = errors.New("engine: no transition")

// StateAccessor reads and writes the persisted machine state. The machine
// never touches the session directly, which keeps it testable with an
// in-memory holder.
type StateAccessor interface {
	State() State
	SetState(ctx context.Context, s State) error
}

type transitionKey struct {
	from State
	trig Trigger
}

// Machine is an explicit state-transition table with side-effecting entry
// and exit hooks. Within one Fire the exit hook of the state being left
// runs to completion before the new state is persisted and its entry hook
// begins; an exit hook failure aborts the transition without advancing
// the state.
type Machine struct {
	accessor StateAccessor
	table    map[transitionKey]State
	onEntry  map[State]func(context.Context) error
	onExit   map[State]func(context.Context) error
}

// NewMachine creates a machine reading and writing state through accessor.
func NewMachine(accessor StateAccessor) *Machine {
	return &Machine{
		accessor: accessor,
		table:    make(map[transitionKey]State),
		onEntry:  make(map[State]func(context.Context) error),
		onExit:   make(map[State]func(context.Context) error),
	}
}

// Permit registers a transition from → to on trig. Registering from == to
// permits reentry: exit and entry hooks both run.
func (m *Machine) Permit(from State, trig Trigger, to State) *Machine {
	m.table[transitionKey{from: from, trig: trig}] = to
	return m
}

// OnEntry registers a hook running after the machine has entered s.
func (m *Machine) OnEntry(s State, fn func(context.Context) error) *Machine {
	m.onEntry[s] = fn
	return m
}

// OnExit registers a hook running before the machine leaves s.
func (m *Machine) OnExit(s State, fn func(context.Context) error) *Machine {
	m.onExit[s] = fn
	return m
}

// State returns the current state, defaulting to Idle.
func (m *Machine) State() State {
	s := m.accessor.State()
	if s == "" {
		return StateIdle
	}
	return s
}

// Fire drives one transition. The destination state is persisted between
// the exit and entry hooks, so an entry hook observes the new state.
func (m *Machine) Fire(ctx context.Context, trig Trigger) error {
	cur := m.State()
	dst, ok := m.table[transitionKey{from: cur, trig: trig}]
	if !ok {
		return fmt.Errorf("%w: %s on %s", ErrNoTransition, trig, cur)
	}

	if exit := m.onExit[cur]; exit != nil {
		if err := exit(ctx); err != nil {
			return err
		}
	}
	if err := m.accessor.SetState(ctx, dst); err != nil {
		return err
	}
	if entry := m.onEntry[dst]; entry != nil {
		return entry(ctx)
	}
	return nil
}
