package synth

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"sync"

	"github.com/sinshu/go-meltysynth/meltysynth"
)

// noSoundFont is the sentinel "no soundfont loaded" handle; Close on a
// partially-constructed decoder checks it before unloading.
const noSoundFont = -1

// MeltySynth is the production Synth implementation, wrapping
// github.com/sinshu/go-meltysynth/meltysynth.Synthesizer. It deliberately
// bypasses meltysynth's own MidiFileSequencer: the decoder's scheduler owns
// all timing decisions and drives MeltySynth event-by-event.
type MeltySynth struct {
	mu sync.Mutex

	cfg      Config
	soundFnt *meltysynth.SoundFont
	fontID   int
	synth    *meltysynth.Synthesizer

	clockUnitMillis int

	left, right []float32
}

// NewMeltySynth returns a MeltySynth with no soundfont loaded and a default
// 44100 Hz stereo 16-bit configuration.
func NewMeltySynth() *MeltySynth {
	return &MeltySynth{
		fontID:          noSoundFont,
		cfg:             Config{Format: Format16, Channels: 2, SampleRate: 44100},
		clockUnitMillis: 10,
	}
}

func (s *MeltySynth) LoadSoundFont(path string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("synth: read soundfont: %w", err)
	}
	sf, err := meltysynth.NewSoundFont(bytes.NewReader(data))
	if err != nil {
		return 0, fmt.Errorf("synth: parse soundfont: %w", err)
	}

	s.soundFnt = sf
	s.fontID++
	if s.fontID < 0 {
		s.fontID = 0
	}
	if err := s.rebuildLocked(); err != nil {
		return 0, err
	}
	return s.fontID, nil
}

func (s *MeltySynth) UnloadSoundFont(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id != s.fontID || s.fontID == noSoundFont {
		return nil
	}
	s.soundFnt = nil
	s.synth = nil
	s.fontID = noSoundFont
	return nil
}

func (s *MeltySynth) Configure(cfg Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = cfg
	return s.rebuildLocked()
}

// rebuildLocked (re)creates the underlying meltysynth.Synthesizer against
// the currently loaded soundfont and configured sample rate. Must be
// called with s.mu held.
func (s *MeltySynth) rebuildLocked() error {
	if s.soundFnt == nil {
		return nil
	}
	settings := meltysynth.NewSynthesizerSettings(int32(s.cfg.SampleRate))
	synth, err := meltysynth.NewSynthesizer(s.soundFnt, settings)
	if err != nil {
		return fmt.Errorf("synth: create synthesizer: %w", err)
	}
	s.synth = synth
	return nil
}

func (s *MeltySynth) NoteOff(channel, key int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.synth != nil {
		s.synth.NoteOff(int32(channel), int32(key))
	}
}

func (s *MeltySynth) NoteOn(channel, key, velocity int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.synth != nil {
		s.synth.NoteOn(int32(channel), int32(key), int32(velocity))
	}
}

func (s *MeltySynth) ControlChange(channel, controller, value int) {
	s.processMessage(channel, 0xB0, controller, value)
}

func (s *MeltySynth) ProgramChange(channel, program int) {
	s.processMessage(channel, 0xC0, program, 0)
}

func (s *MeltySynth) ChannelPressure(channel, value int) {
	s.processMessage(channel, 0xD0, value, 0)
}

func (s *MeltySynth) PitchBend(channel, value14 int) {
	s.processMessage(channel, 0xE0, value14&0x7F, (value14>>7)&0x7F)
}

func (s *MeltySynth) processMessage(channel, command, data1, data2 int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.synth != nil {
		s.synth.ProcessMidiMessage(int32(channel), int32(command), int32(data1), int32(data2))
	}
}

func (s *MeltySynth) SystemReset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.synth != nil {
		s.synth.Reset()
	}
}

func (s *MeltySynth) ClockUnitMillis() int { return s.clockUnitMillis }

// Render fills out with frames interleaved audio frames in the configured
// format, rendering silence if no soundfont is loaded.
func (s *MeltySynth) Render(frames int, out []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	want := frames * s.cfg.FrameSize()
	if len(out) != want {
		return fmt.Errorf("synth: render buffer has %d bytes, want %d", len(out), want)
	}

	if cap(s.left) < frames {
		s.left = make([]float32, frames)
		s.right = make([]float32, frames)
	}
	left := s.left[:frames]
	right := s.right[:frames]
	for i := range left {
		left[i], right[i] = 0, 0
	}

	if s.synth != nil {
		s.synth.Render(left, right)
	}

	switch s.cfg.Format {
	case Format32Float:
		renderFloat(out, left, right, s.cfg.Channels)
	default:
		render16(out, left, right, s.cfg.Channels)
	}
	return nil
}

func render16(out []byte, left, right []float32, channels int) {
	for i := range left {
		l := clampToInt16(left[i])
		if channels == 1 {
			m := clampToInt16((left[i] + right[i]) / 2)
			binary.LittleEndian.PutUint16(out[i*2:], uint16(m))
			continue
		}
		r := clampToInt16(right[i])
		off := i * channels * 2
		binary.LittleEndian.PutUint16(out[off:], uint16(l))
		binary.LittleEndian.PutUint16(out[off+2:], uint16(r))
	}
}

func renderFloat(out []byte, left, right []float32, channels int) {
	for i := range left {
		if channels == 1 {
			m := (left[i] + right[i]) / 2
			binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(m))
			continue
		}
		off := i * channels * 4
		binary.LittleEndian.PutUint32(out[off:], math.Float32bits(left[i]))
		binary.LittleEndian.PutUint32(out[off+4:], math.Float32bits(right[i]))
	}
}

func clampToInt16(v float32) int16 {
	if v < -1 {
		v = -1
	}
	if v > 1 {
		v = 1
	}
	return int16(v * 32767)
}
