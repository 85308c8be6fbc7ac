package audio

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sync"
	"time"

	"github.com/udisondev/wayfinder/internal/model"
)

// BytesPerFrame is the size of one interleaved stereo int16 frame.
const BytesPerFrame = 4

// Mixer is a software Backend rendering loops and one-shots into
// 16-bit little-endian stereo PCM.
//
// Cue parameters are written from the tick goroutine and read by Read on the
// rendering goroutine. Each voice has its own mutex so a reader never sees a
// torn (pan, volume) pair; one-shots are guarded by the queue mutex.
type Mixer struct {
	sampleRate int
	master     float64

	voices [model.NumCategories]voice

	mu       sync.Mutex // guards oneShots, closed
	oneShots []*oneShotVoice
	closed   bool

	renderMu sync.Mutex // serializes Read
	buf      []float64
}

type voice struct {
	mu      sync.Mutex
	playing bool
	tone    Tone
	pan     float64
	volume  float64
	phase   float64 // current waveform phase in cycles [0, 1)
	elapsed int64   // frames since start, drives pulsing
}

type oneShotVoice struct {
	tone      Tone
	left      float64
	right     float64
	phase     float64
	remaining int64 // frames
}

// VoiceState is a point-in-time copy of a loop's parameters.
type VoiceState struct {
	Playing bool
	Pan     float64
	Volume  float64
}

// NewMixer creates a mixer for the given sample rate and master gain.
func NewMixer(sampleRate int, master float64) (*Mixer, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate %d: %w", sampleRate, ErrDeviceUnavailable)
	}
	return &Mixer{
		sampleRate: sampleRate,
		master:     clamp01(master),
	}, nil
}

// SampleRate returns frames per second.
func (m *Mixer) SampleRate() int {
	return m.sampleRate
}

// StartLoop implements Backend. Starting a playing loop restarts it with the new tone.
func (m *Mixer) StartLoop(c model.Category, tone Tone, pan, volume float64) error {
	v, err := m.voice(c)
	if err != nil {
		return fmt.Errorf("start loop %s: %w", c, err)
	}
	v.mu.Lock()
	v.playing = true
	v.tone = tone
	v.pan = pan
	v.volume = clamp01(volume)
	v.phase = 0
	v.elapsed = 0
	v.mu.Unlock()
	return nil
}

// UpdateLoop implements Backend.
func (m *Mixer) UpdateLoop(c model.Category, pan, volume float64) error {
	v, err := m.voice(c)
	if err != nil {
		return fmt.Errorf("update loop %s: %w", c, err)
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.playing {
		return fmt.Errorf("update loop %s: %w", c, ErrNotPlaying)
	}
	v.pan = pan
	v.volume = clamp01(volume)
	return nil
}

// StopLoop implements Backend. Stopping a silent loop is a no-op.
func (m *Mixer) StopLoop(c model.Category) error {
	v, err := m.voice(c)
	if err != nil {
		return fmt.Errorf("stop loop %s: %w", c, err)
	}
	v.mu.Lock()
	v.playing = false
	v.mu.Unlock()
	return nil
}

// PlayOneShot implements Backend.
func (m *Mixer) PlayOneShot(s OneShot) error {
	left, right := EqualPower(s.Pan)
	vol := clamp01(s.Volume)
	frames := int64(s.Duration.Seconds() * float64(m.sampleRate))
	if frames <= 0 {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return fmt.Errorf("play one-shot: %w", ErrDeviceUnavailable)
	}
	m.oneShots = append(m.oneShots, &oneShotVoice{
		tone:      s.Tone,
		left:      left * vol,
		right:     right * vol,
		remaining: frames,
	})
	return nil
}

// Close implements Backend. Further calls fail with ErrDeviceUnavailable
// and Read returns io.EOF.
func (m *Mixer) Close() error {
	m.mu.Lock()
	m.closed = true
	m.oneShots = nil
	m.mu.Unlock()

	for i := range m.voices {
		v := &m.voices[i]
		v.mu.Lock()
		v.playing = false
		v.mu.Unlock()
	}
	return nil
}

// Voice returns the current parameters of category c's loop.
func (m *Mixer) Voice(c model.Category) VoiceState {
	if !c.Valid() {
		return VoiceState{}
	}
	v := &m.voices[c]
	v.mu.Lock()
	defer v.mu.Unlock()
	return VoiceState{Playing: v.playing, Pan: v.pan, Volume: v.volume}
}

// ActiveVoices returns the number of playing loops.
func (m *Mixer) ActiveVoices() int {
	n := 0
	for _, c := range model.AllCategories() {
		if m.Voice(c).Playing {
			n++
		}
	}
	return n
}

// PendingOneShots returns the number of one-shots still sounding.
func (m *Mixer) PendingOneShots() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.oneShots)
}

// Read renders len(p)/BytesPerFrame frames of interleaved stereo int16 PCM.
// Implements io.Reader; returns io.EOF after Close.
func (m *Mixer) Read(p []byte) (int, error) {
	m.mu.Lock()
	closed := m.closed
	m.mu.Unlock()
	if closed {
		return 0, io.EOF
	}

	frames := len(p) / BytesPerFrame
	if frames == 0 {
		return 0, nil
	}

	m.renderMu.Lock()
	defer m.renderMu.Unlock()

	if cap(m.buf) < frames*2 {
		m.buf = make([]float64, frames*2)
	}
	buf := m.buf[:frames*2]
	clear(buf)

	for i := range m.voices {
		m.renderVoice(&m.voices[i], buf)
	}
	m.renderOneShots(buf)

	for i, s := range buf {
		s = math.Max(-1, math.Min(1, s*m.master))
		binary.LittleEndian.PutUint16(p[i*2:], uint16(int16(s*math.MaxInt16)))
	}
	return frames * BytesPerFrame, nil
}

func (m *Mixer) renderVoice(v *voice, buf []float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.playing {
		return
	}

	left, right := EqualPower(v.pan)
	left *= v.volume
	right *= v.volume
	step := v.tone.Frequency / float64(m.sampleRate)

	period, width := m.pulseFrames(v.tone)
	for f := 0; f < len(buf)/2; f++ {
		audible := period == 0 || v.elapsed%period < width
		if audible {
			s := sample(v.tone.Waveform, v.phase)
			buf[f*2] += s * left
			buf[f*2+1] += s * right
		}
		v.phase = math.Mod(v.phase+step, 1)
		v.elapsed++
	}
}

func (m *Mixer) renderOneShots(buf []float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	live := m.oneShots[:0]
	for _, o := range m.oneShots {
		step := o.tone.Frequency / float64(m.sampleRate)
		for f := 0; f < len(buf)/2 && o.remaining > 0; f++ {
			s := sample(o.tone.Waveform, o.phase)
			buf[f*2] += s * o.left
			buf[f*2+1] += s * o.right
			o.phase = math.Mod(o.phase+step, 1)
			o.remaining--
		}
		if o.remaining > 0 {
			live = append(live, o)
		}
	}
	clear(m.oneShots[len(live):])
	m.oneShots = live
}

// pulseFrames converts pulse timing to frames. period 0 means continuous.
func (m *Mixer) pulseFrames(t Tone) (period, width int64) {
	if t.PulseInterval <= 0 {
		return 0, 0
	}
	period = m.frames(t.PulseInterval)
	if period <= 0 {
		return 0, 0
	}
	width = m.frames(t.PulseWidth)
	if width <= 0 || width > period {
		width = period / 2
	}
	return period, width
}

func (m *Mixer) frames(d time.Duration) int64 {
	return int64(d.Seconds() * float64(m.sampleRate))
}

func (m *Mixer) voice(c model.Category) (*voice, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("invalid category %d", c)
	}
	m.mu.Lock()
	closed := m.closed
	m.mu.Unlock()
	if closed {
		return nil, ErrDeviceUnavailable
	}
	return &m.voices[c], nil
}

// sample evaluates a waveform at phase in [0, 1).
func sample(waveform string, phase float64) float64 {
	switch waveform {
	case WaveSquare:
		if phase < 0.5 {
			return 1
		}
		return -1
	case WaveTriangle:
		return 4*math.Abs(phase-0.5) - 1
	default:
		return math.Sin(2 * math.Pi * phase)
	}
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
