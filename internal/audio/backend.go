// Package audio renders proximity cues: playback backend contract,
// distance falloff curves, pan law and a software mixer.
package audio

import (
	"errors"
	"time"

	"github.com/udisondev/wayfinder/internal/config"
	"github.com/udisondev/wayfinder/internal/model"
)

var (
	// ErrDeviceUnavailable is returned when the output device is gone or closed.
	ErrDeviceUnavailable = errors.New("audio device unavailable")

	// ErrNotPlaying is returned when updating or stopping a loop that was never started.
	ErrNotPlaying = errors.New("loop not playing")
)

// Waveform names accepted in tone configuration.
const (
	WaveSine     = "sine"
	WaveSquare   = "square"
	WaveTriangle = "triangle"
)

// Tone describes a synthesized sound.
type Tone struct {
	Waveform      string
	Frequency     float64       // Hz
	PulseInterval time.Duration // 0 = continuous
	PulseWidth    time.Duration // audible part of each pulse; 0 = half the interval
}

// ToneFromConfig converts a configured tone.
func ToneFromConfig(tc config.ToneConfig) Tone {
	return Tone{
		Waveform:      tc.Waveform,
		Frequency:     tc.Frequency,
		PulseInterval: tc.PulseInterval,
		PulseWidth:    tc.PulseWidth,
	}
}

// OneShot is a short non-looping cue (wall bump).
type OneShot struct {
	Tone     Tone
	Pan      float64 // -1 left .. +1 right
	Volume   float64 // 0..1
	Duration time.Duration
}

// Backend is the audio playback contract. One loop per category.
// Implementations must tolerate being driven from the tick goroutine while
// rendering happens elsewhere.
type Backend interface {
	StartLoop(c model.Category, tone Tone, pan, volume float64) error
	UpdateLoop(c model.Category, pan, volume float64) error
	StopLoop(c model.Category) error
	PlayOneShot(s OneShot) error
	Close() error
}

// Nop is a Backend that discards everything (audio disabled).
type Nop struct{}

func (Nop) StartLoop(model.Category, Tone, float64, float64) error { return nil }
func (Nop) UpdateLoop(model.Category, float64, float64) error      { return nil }
func (Nop) StopLoop(model.Category) error                          { return nil }
func (Nop) PlayOneShot(OneShot) error                              { return nil }
func (Nop) Close() error                                           { return nil }
