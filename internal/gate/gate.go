// Package gate decides whether ambient navigation cues are meaningful right now.
package gate

import (
	"fmt"
	"log/slog"

	"github.com/udisondev/wayfinder/internal/model"
)

// Signals are the raw game-state flags sampled once per tick.
type Signals struct {
	Battle        bool // battle panel active
	Event         bool // cutscene / scripted event
	Menu          bool // any menu panel open
	DeathRecovery bool // death or restart step
	Paused        bool // global pause
}

// SignalProvider samples game-state flags. The gate never inspects host types directly.
type SignalProvider interface {
	Signals() Signals
}

// SignalFunc adapts a function to SignalProvider.
type SignalFunc func() Signals

// Signals implements SignalProvider.
func (f SignalFunc) Signals() Signals { return f() }

// Transition describes a state change observed by Update.
type Transition struct {
	From model.ControlState
	To   model.ControlState
}

// Changed reports whether the state actually changed.
func (t Transition) Changed() bool {
	return t.From != t.To
}

// Entered reports whether the transition enters s.
func (t Transition) Entered(s model.ControlState) bool {
	return t.Changed() && t.To == s
}

// Left reports whether the transition leaves s.
func (t Transition) Left(s model.ControlState) bool {
	return t.Changed() && t.From == s
}

// Evaluate maps signals to a control state.
// Priority (highest first): Battle > Event > DeathRecovery > Menu > Paused > Field.
func Evaluate(s Signals) model.ControlState {
	switch {
	case s.Battle:
		return model.ControlBattle
	case s.Event:
		return model.ControlEvent
	case s.DeathRecovery:
		return model.ControlDeathRecovery
	case s.Menu:
		return model.ControlMenu
	case s.Paused:
		return model.ControlPaused
	default:
		return model.ControlField
	}
}

// Gate is the player-control state machine. Initial state is Field; no terminal state.
type Gate struct {
	state model.ControlState
}

// New creates a gate in the Field state.
func New() *Gate {
	return &Gate{state: model.ControlField}
}

// Update samples provider, re-evaluates the state and returns the transition.
// A panicking provider counts as Paused for this tick.
func (g *Gate) Update(provider SignalProvider) Transition {
	next, err := sample(provider)
	if err != nil {
		slog.Warn("signal provider failed, pausing cues", "err", err)
		next = model.ControlPaused
	}
	return g.Set(next)
}

// Set forces the state (used when the caller already evaluated signals).
func (g *Gate) Set(next model.ControlState) Transition {
	tr := Transition{From: g.state, To: next}
	g.state = next
	if tr.Changed() {
		slog.Debug("control state changed", "from", tr.From, "to", tr.To)
	}
	return tr
}

// State returns the current control state.
func (g *Gate) State() model.ControlState {
	return g.state
}

// Active reports whether ambient cues may run.
func (g *Gate) Active() bool {
	return g.state == model.ControlField
}

func sample(provider SignalProvider) (state model.ControlState, err error) {
	if provider == nil {
		return model.ControlField, nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("signal provider panic: %v", r)
		}
	}()
	return Evaluate(provider.Signals()), nil
}
