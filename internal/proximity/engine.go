// Package proximity turns categorized snapshots into continuous directional
// audio cues (one loop per category) and one-shot wall-collision cues.
package proximity

import (
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"golang.org/x/time/rate"

	"github.com/udisondev/wayfinder/internal/audio"
	"github.com/udisondev/wayfinder/internal/config"
	"github.com/udisondev/wayfinder/internal/model"
	"github.com/udisondev/wayfinder/internal/world"
)

// Validator re-checks snapshot entities against the live registry.
// world.Registry implements it.
type Validator interface {
	Lookup(c model.Category, id model.EntityID) (world.RegistryEntry, bool)
}

// Prober answers obstacle probes. *geo.Grid implements it.
type Prober interface {
	Probe(origin, direction mgl64.Vec3, maxDistance float64) bool
}

// Deps are the collaborators of the engine. Backend is required;
// Validator and Prober are optional.
type Deps struct {
	Backend   audio.Backend
	Validator Validator
	Prober    Prober
}

// Cue is the current directional cue of one category.
type Cue struct {
	Target    model.EntityID
	HasTarget bool
	Distance  float64
	Pan       float64 // -1 left .. +1 right
	Volume    float64 // 0..1, falloff × category volume
	Active    bool    // loop is playing on the backend
}

type categoryState struct {
	cfg     config.CategoryConfig
	falloff audio.Falloff
	tone    audio.Tone
	errLog  *rate.Sometimes
}

type candidate struct {
	category model.Category
	id       model.EntityID
	position mgl64.Vec3
	distance float64
}

// Engine is the proximity audio engine. Driven from the tick goroutine only.
type Engine struct {
	categories [model.NumCategories]categoryState
	audioCfg   config.AudioConfig

	backend   audio.Backend
	validator Validator
	prober    Prober

	cues    [model.NumCategories]Cue
	playing [model.NumCategories]bool

	walls       [numWallDirections]bool // last probe result per direction
	wallsPrimed bool
	wallEvents  []WallCueEvent

	active       bool // previous tick was in Field
	audioEnabled bool
	shutdown     bool
}

// New builds an engine from the category table and audio settings in cfg.
func New(cfg config.Config, deps Deps) (*Engine, error) {
	if deps.Backend == nil {
		return nil, fmt.Errorf("proximity engine: backend is required")
	}

	e := &Engine{
		audioCfg:     cfg.Audio,
		backend:      deps.Backend,
		validator:    deps.Validator,
		prober:       deps.Prober,
		audioEnabled: true,
	}

	table := cfg.Categories.Table()
	for _, c := range model.AllCategories() {
		cc := table[c]
		f, err := audio.NewFalloff(cc)
		if err != nil {
			e.closeFalloffs()
			return nil, fmt.Errorf("category %s: %w", c, err)
		}
		e.categories[c] = categoryState{
			cfg:     cc,
			falloff: f,
			tone:    audio.ToneFromConfig(cc.Tone),
			errLog:  &rate.Sometimes{First: 1, Interval: 30 * time.Second},
		}
	}
	return e, nil
}

// Tick updates every category's cue and probes for walls.
// Outside Field it does nothing except silencing cues on the first such tick.
func (e *Engine) Tick(snapshots model.Snapshots, state model.ControlState, pose model.Pose) {
	e.wallEvents = e.wallEvents[:0]
	if e.shutdown {
		return
	}

	if state != model.ControlField {
		if e.active {
			slog.Debug("cues suspended", "state", state)
			e.stopAll()
			e.resetWalls()
			e.active = false
		}
		return
	}
	e.active = true

	var candidates [model.NumCategories]*candidate
	for _, c := range model.AllCategories() {
		candidates[c] = e.selectSafe(c, snapshots.Get(c), pose)
	}
	e.arbitrate(&candidates)

	for _, c := range model.AllCategories() {
		e.publishSafe(c, candidates[c], pose)
	}

	e.probeWalls(pose)
}

// Reset silences every cue and forgets wall state (area change).
func (e *Engine) Reset() {
	if e.shutdown {
		return
	}
	e.stopAll()
	e.resetWalls()
}

// Shutdown stops every loop and releases the backend. Idempotent.
func (e *Engine) Shutdown() {
	if e.shutdown {
		return
	}
	e.stopAll()
	if err := e.backend.Close(); err != nil {
		slog.Warn("closing audio backend", "err", err)
	}
	e.closeFalloffs()
	e.shutdown = true
	e.audioEnabled = false
}

// Cue returns the current cue of category c.
func (e *Engine) Cue(c model.Category) Cue {
	if !c.Valid() {
		return Cue{}
	}
	return e.cues[c]
}

// WallEvents returns the wall cues fired by the last Tick.
// The slice is reused by the next Tick.
func (e *Engine) WallEvents() []WallCueEvent {
	return e.wallEvents
}

// AudioEnabled reports whether cue output is still running.
// A backend error disables output for the rest of the session.
func (e *Engine) AudioEnabled() bool {
	return e.audioEnabled
}

// selectSafe picks the nearest candidate, isolating panics to category c.
func (e *Engine) selectSafe(c model.Category, snap model.CategorySnapshot, pose model.Pose) (best *candidate) {
	defer func() {
		if r := recover(); r != nil {
			e.categories[c].errLog.Do(func() {
				slog.Error("candidate selection panic", "category", c, "panic", r)
			})
			best = nil
		}
	}()
	return e.nearest(c, snap, pose)
}

// nearest returns the closest live entity within max range; ties go to the lowest id.
func (e *Engine) nearest(c model.Category, snap model.CategorySnapshot, pose model.Pose) *candidate {
	cfg := e.categories[c].cfg
	if !cfg.Enabled {
		return nil
	}

	var best *candidate
	for _, ent := range snap.Entities {
		if !ent.Alive {
			continue
		}
		pos := ent.Position
		if e.validator != nil {
			live, ok := e.validator.Lookup(c, ent.ID)
			if !ok || !live.Active {
				continue
			}
			pos = live.Position
		}

		d := pos.Sub(pose.Position).Len()
		if d > cfg.MaxRange {
			continue
		}
		if best == nil || d < best.distance || (d == best.distance && ent.ID < best.id) {
			best = &candidate{category: c, id: ent.ID, position: pos, distance: d}
		}
	}
	return best
}

// arbitrate drops the lowest-priority candidates when there are more than max voices.
// Lower configured priority wins, then shorter distance, then category order.
func (e *Engine) arbitrate(candidates *[model.NumCategories]*candidate) {
	limit := e.audioCfg.MaxVoices
	if limit <= 0 {
		return
	}

	present := make([]*candidate, 0, model.NumCategories)
	for _, cand := range candidates {
		if cand != nil {
			present = append(present, cand)
		}
	}
	if len(present) <= limit {
		return
	}

	sort.SliceStable(present, func(i, j int) bool {
		pi := e.categories[present[i].category].cfg.Priority
		pj := e.categories[present[j].category].cfg.Priority
		if pi != pj {
			return pi < pj
		}
		if present[i].distance != present[j].distance {
			return present[i].distance < present[j].distance
		}
		return present[i].category < present[j].category
	})
	for _, lost := range present[limit:] {
		candidates[lost.category] = nil
	}
}

// publishSafe updates category c's cue and loop, isolating panics.
func (e *Engine) publishSafe(c model.Category, cand *candidate, pose model.Pose) {
	defer func() {
		if r := recover(); r != nil {
			e.categories[c].errLog.Do(func() {
				slog.Error("cue update panic", "category", c, "panic", r)
			})
			e.stop(c)
		}
	}()
	e.publish(c, cand, pose)
}

func (e *Engine) publish(c model.Category, cand *candidate, pose model.Pose) {
	if cand == nil {
		e.stop(c)
		return
	}

	st := &e.categories[c]
	bearing := model.Bearing(pose.Facing, cand.position.Sub(pose.Position))
	cue := Cue{
		Target:    cand.id,
		HasTarget: true,
		Distance:  cand.distance,
		Pan:       model.Pan(bearing),
		Volume:    st.falloff.Gain(cand.distance) * st.cfg.Volume,
	}

	if e.audioEnabled {
		var err error
		if e.playing[c] {
			err = e.backend.UpdateLoop(c, cue.Pan, cue.Volume)
		} else {
			err = e.backend.StartLoop(c, st.tone, cue.Pan, cue.Volume)
		}
		if err != nil {
			e.disableAudio(err)
		} else {
			e.playing[c] = true
		}
	}
	cue.Active = e.playing[c]
	e.cues[c] = cue
}

// stop silences category c. Idempotent.
func (e *Engine) stop(c model.Category) {
	e.cues[c] = Cue{}
	if !e.playing[c] {
		return
	}
	e.playing[c] = false
	if !e.audioEnabled {
		return
	}
	if err := e.backend.StopLoop(c); err != nil {
		e.disableAudio(err)
	}
}

func (e *Engine) stopAll() {
	for _, c := range model.AllCategories() {
		e.stop(c)
	}
}

// disableAudio turns cue output off for the session after a backend failure.
func (e *Engine) disableAudio(err error) {
	if !e.audioEnabled {
		return
	}
	e.audioEnabled = false
	for _, c := range model.AllCategories() {
		if e.playing[c] {
			_ = e.backend.StopLoop(c)
			e.playing[c] = false
		}
		e.cues[c].Active = false
	}
	slog.Error("audio backend failed, cues disabled for this session", "err", err)
}

func (e *Engine) closeFalloffs() {
	for i := range e.categories {
		if cl, ok := e.categories[i].falloff.(io.Closer); ok {
			_ = cl.Close()
		}
	}
}
