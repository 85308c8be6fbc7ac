package proximity

import (
	"log/slog"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/udisondev/wayfinder/internal/audio"
	"github.com/udisondev/wayfinder/internal/model"
)

// WallDirection is a probe direction relative to the player's facing.
type WallDirection int

const (
	WallForward WallDirection = iota
	WallBack
	WallLeft
	WallRight

	numWallDirections = 4
)

// String returns human-readable direction
func (d WallDirection) String() string {
	switch d {
	case WallForward:
		return "FORWARD"
	case WallBack:
		return "BACK"
	case WallLeft:
		return "LEFT"
	case WallRight:
		return "RIGHT"
	default:
		return "UNKNOWN"
	}
}

// Pan returns the stereo position of a wall cue in this direction.
func (d WallDirection) Pan() float64 {
	switch d {
	case WallLeft:
		return -1
	case WallRight:
		return 1
	default:
		return 0
	}
}

// WallCueEvent is a wall-collision cue fired when a direction turns blocked.
type WallCueEvent struct {
	Direction WallDirection
	Pan       float64
}

// probeWalls runs the four probes and fires a one-shot on each clear→blocked edge.
// The first probe after (re)activation only records state.
func (e *Engine) probeWalls(pose model.Pose) {
	wall := e.audioCfg.Wall
	if !wall.Enabled || e.prober == nil {
		return
	}
	forward := pose.Forward()
	if forward.Len() == 0 {
		return
	}
	right := pose.Right()
	dirs := [numWallDirections]mgl64.Vec3{
		WallForward: forward,
		WallBack:    forward.Mul(-1),
		WallLeft:    right.Mul(-1),
		WallRight:   right,
	}

	var blocked [numWallDirections]bool
	if !e.probeAll(pose.Position, dirs, wall.ProbeDistance, &blocked) {
		return
	}

	for i := range numWallDirections {
		was := e.walls[i]
		e.walls[i] = blocked[i]
		if !e.wallsPrimed || was || !blocked[i] {
			continue
		}

		d := WallDirection(i)
		ev := WallCueEvent{Direction: d, Pan: d.Pan()}
		e.wallEvents = append(e.wallEvents, ev)
		slog.Debug("wall cue", "direction", d)

		if !e.audioEnabled {
			continue
		}
		err := e.backend.PlayOneShot(audio.OneShot{
			Tone:     audio.Tone{Waveform: audio.WaveSquare, Frequency: wall.Frequency},
			Pan:      ev.Pan,
			Volume:   wall.Volume,
			Duration: wall.Duration,
		})
		if err != nil {
			e.disableAudio(err)
		}
	}
	e.wallsPrimed = true
}

// probeAll fills blocked; returns false if the prober panicked.
func (e *Engine) probeAll(origin mgl64.Vec3, dirs [numWallDirections]mgl64.Vec3, dist float64, blocked *[numWallDirections]bool) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("wall probe panic", "panic", r)
			ok = false
		}
	}()
	for i, d := range dirs {
		blocked[i] = e.prober.Probe(origin, d, dist)
	}
	return true
}

// resetWalls forgets probe state; the next probe primes without firing.
func (e *Engine) resetWalls() {
	e.walls = [numWallDirections]bool{}
	e.wallsPrimed = false
}
