// Package synthtest provides a deterministic, in-memory synth.Synth
// implementation for exercising internal/scheduler and decoder without a
// real soundfont, analogous to the standard library's httptest package.
package synthtest

import (
	"encoding/binary"

	"github.com/komh/go-kmididec/synth"
)

// Event records one call made to Recording.
type Event struct {
	Kind          string
	Channel, A, B int
}

// Recording is a synth.Synth that records every event it receives and
// renders a deterministic 16-bit frame counter (wrapping at 65536) so that
// tests can assert exact byte equality across seeks and resets.
type Recording struct {
	Cfg    synth.Config
	Events []Event
	SFPath string
	loaded int
	reset  int
	sample uint16
}

func New() *Recording {
	return &Recording{Cfg: synth.Config{Format: synth.Format16, Channels: 2, SampleRate: 44100}, loaded: -1}
}

func (r *Recording) record(kind string, ch, a, b int) {
	r.Events = append(r.Events, Event{Kind: kind, Channel: ch, A: a, B: b})
}

func (r *Recording) NoteOff(channel, key int)                     { r.record("note_off", channel, key, 0) }
func (r *Recording) NoteOn(channel, key, velocity int)            { r.record("note_on", channel, key, velocity) }
func (r *Recording) ControlChange(channel, controller, value int) { r.record("cc", channel, controller, value) }
func (r *Recording) ProgramChange(channel, program int)           { r.record("program", channel, program, 0) }
func (r *Recording) ChannelPressure(channel, value int)           { r.record("pressure", channel, value, 0) }
func (r *Recording) PitchBend(channel, value14 int)               { r.record("pitch_bend", channel, value14, 0) }

func (r *Recording) SystemReset() {
	r.reset++
	r.record("system_reset", 0, 0, 0)
	r.sample = 0
}

func (r *Recording) LoadSoundFont(path string) (int, error) {
	r.SFPath = path
	r.loaded++
	return r.loaded, nil
}

func (r *Recording) UnloadSoundFont(id int) error {
	if id == r.loaded {
		r.loaded = -1
	}
	return nil
}

func (r *Recording) Configure(cfg synth.Config) error {
	r.Cfg = cfg
	return nil
}

func (r *Recording) ClockUnitMillis() int { return 10 }

// Render fills out with a deterministic 16-bit frame counter (wrapping at
// 65536), repeated on every channel, independent of any MIDI state, so that two
// drains of the same event stream produce byte-identical PCM as long as the
// caller also resets via SystemReset.
func (r *Recording) Render(frames int, out []byte) error {
	frameSize := r.Cfg.FrameSize()
	for i := 0; i < frames; i++ {
		for c := 0; c < r.Cfg.Channels; c++ {
			off := i*frameSize + c*2
			binary.LittleEndian.PutUint16(out[off:], r.sample)
		}
		r.sample++
	}
	return nil
}
