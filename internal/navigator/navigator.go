// Package navigator wires the scanner, control gate, proximity audio and POI
// list into one engine driven by the host's fixed-rate tick.
package navigator

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"golang.org/x/time/rate"

	"github.com/udisondev/wayfinder/internal/audio"
	"github.com/udisondev/wayfinder/internal/config"
	"github.com/udisondev/wayfinder/internal/gate"
	"github.com/udisondev/wayfinder/internal/geo"
	"github.com/udisondev/wayfinder/internal/model"
	"github.com/udisondev/wayfinder/internal/poi"
	"github.com/udisondev/wayfinder/internal/proximity"
	"github.com/udisondev/wayfinder/internal/speech"
	"github.com/udisondev/wayfinder/internal/world"
)

// PoseProvider reports the player's position and facing.
type PoseProvider interface {
	CurrentPosition() mgl64.Vec3
	CurrentFacing() mgl64.Vec3
}

// Deps are the host collaborators. Registry and Pose are required.
type Deps struct {
	Registry world.Registry
	Signals  gate.SignalProvider // nil = always Field
	Pose     PoseProvider

	Mesh    geo.PathQuerier   // nil = straight-line list only
	Prober  proximity.Prober  // nil = no wall cues
	Backend audio.Backend     // nil = audio.Nop
	Speaker speech.Speaker    // nil = speech.LogSpeaker
	Names   *poi.Names
	Labels  *poi.Labels

	Now func() time.Time
}

// Engine is the single owned instance of the spatial-awareness engine.
// All methods belong to the tick goroutine.
type Engine struct {
	gate      *gate.Gate
	scanner   *world.Scanner
	proximity *proximity.Engine
	list      *poi.Builder

	signals gate.SignalProvider
	pose    PoseProvider
	speaker speech.Speaker

	battleEnded bool // post-battle rescan waits for the return to Field

	lastPose model.Pose
	poseLog  rate.Sometimes
	ticks    uint64
	shutdown bool
}

// New validates cfg and builds the engine.
func New(cfg config.Config, deps Deps) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if deps.Registry == nil {
		return nil, errors.New("navigator: registry is required")
	}
	if deps.Pose == nil {
		return nil, errors.New("navigator: pose provider is required")
	}

	backend := deps.Backend
	if backend == nil || !cfg.Audio.Enabled {
		backend = audio.Nop{}
	}
	prober := deps.Prober
	if !cfg.Audio.Wall.Enabled {
		prober = nil
	}

	prox, err := proximity.New(cfg, proximity.Deps{
		Backend:   backend,
		Validator: deps.Registry,
		Prober:    prober,
	})
	if err != nil {
		return nil, fmt.Errorf("creating proximity engine: %w", err)
	}

	var estimator poi.Estimator
	if cfg.Navigation.PathDistance && deps.Mesh != nil {
		estimator = geo.NewEstimator(deps.Mesh, cfg.Navigation.PathEpsilon)
	}

	speaker := deps.Speaker
	if speaker == nil {
		speaker = speech.LogSpeaker{}
	}

	list := poi.NewBuilder(deps.Names, deps.Labels, estimator)
	list.SetValidator(deps.Registry)

	e := &Engine{
		gate:      gate.New(),
		scanner:   world.NewScanner(deps.Registry, cfg.Scanner, deps.Now),
		proximity: prox,
		list:      list,
		signals:   deps.Signals,
		pose:      deps.Pose,
		speaker:   speaker,
		lastPose:  model.Pose{Facing: mgl64.Vec3{0, 0, 1}},
		poseLog:   rate.Sometimes{First: 1, Interval: 30 * time.Second},
	}

	slog.Info("navigator started",
		"audio", cfg.Audio.Enabled,
		"walls", prober != nil,
		"pathDistance", estimator != nil,
		"maxVoices", cfg.Audio.MaxVoices)
	return e, nil
}

// Tick runs one frame: gate update, scanner step, proximity cues.
// After Shutdown it does nothing.
func (e *Engine) Tick() {
	if e.shutdown {
		return
	}
	e.ticks++

	tr := e.gate.Update(e.signals)
	if tr.Left(model.ControlBattle) {
		e.battleEnded = true
	}
	if e.battleEnded && tr.Entered(model.ControlField) {
		e.battleEnded = false
		e.scanner.ScheduleRescan(world.ReasonRequested)
	}

	e.scanner.Tick()
	e.proximity.Tick(e.scanner.Snapshots(), e.gate.State(), e.samplePose())
}

// AreaChanged invalidates snapshots and cues after a map or zone transition.
func (e *Engine) AreaChanged() {
	if e.shutdown {
		return
	}
	slog.Debug("area changed")
	e.scanner.ScheduleRescan(world.ReasonAreaChanged)
	e.proximity.Reset()
}

// RefreshList rebuilds the POI list from the latest snapshots and pose.
func (e *Engine) RefreshList() poi.Cursor {
	e.list.Refresh(e.scanner.Snapshots(), e.samplePose())
	return e.list.Cursor()
}

// CycleCategory refreshes the list and moves to the next (+1) or previous (-1) category.
func (e *Engine) CycleCategory(direction int) poi.Cursor {
	e.RefreshList()
	return e.list.CycleCategory(direction)
}

// CycleItem refreshes the list and moves within the active category.
func (e *Engine) CycleItem(direction int) poi.Cursor {
	e.RefreshList()
	return e.list.CycleItem(direction)
}

// CurrentEntry returns the selected POI.
func (e *Engine) CurrentEntry() (poi.Entry, bool) {
	return e.list.CurrentEntry()
}

// AnnounceCurrent refreshes the list, speaks the selected POI and returns the text.
func (e *Engine) AnnounceCurrent() string {
	e.RefreshList()
	text := e.list.AnnounceCurrent()
	e.speaker.Say(text)
	return text
}

// AnnounceCategory speaks the active category and its size.
func (e *Engine) AnnounceCategory() string {
	e.RefreshList()
	text := e.list.AnnounceCategory()
	e.speaker.Say(text)
	return text
}

// Shutdown stops every cue and releases audio resources. Idempotent.
func (e *Engine) Shutdown() {
	if e.shutdown {
		return
	}
	e.shutdown = true
	e.proximity.Shutdown()
	slog.Info("navigator stopped", "ticks", e.ticks)
}

// State returns the current control state.
func (e *Engine) State() model.ControlState {
	return e.gate.State()
}

// Cue returns the current proximity cue of category c.
func (e *Engine) Cue(c model.Category) proximity.Cue {
	return e.proximity.Cue(c)
}

// WallEvents returns the wall cues fired during the last Tick.
func (e *Engine) WallEvents() []proximity.WallCueEvent {
	return e.proximity.WallEvents()
}

// Snapshot returns the latest snapshot of category c.
func (e *Engine) Snapshot(c model.Category) model.CategorySnapshot {
	return e.scanner.Snapshot(c)
}

// AudioEnabled reports whether cue output is still running.
func (e *Engine) AudioEnabled() bool {
	return e.proximity.AudioEnabled()
}

// samplePose reads the pose provider. A panicking provider keeps the last pose.
func (e *Engine) samplePose() model.Pose {
	pose, err := readPose(e.pose)
	if err != nil {
		e.poseLog.Do(func() {
			slog.Warn("pose provider failed, keeping last pose", "err", err)
		})
		return e.lastPose
	}
	e.lastPose = pose
	return pose
}

func readPose(p PoseProvider) (pose model.Pose, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pose provider panic: %v", r)
		}
	}()
	return model.Pose{Position: p.CurrentPosition(), Facing: p.CurrentFacing()}, nil
}
