// Package synth defines the synthesizer interface the decoder drives and a
// production implementation backed by go-meltysynth.
package synth

// SampleFormat selects the PCM sample representation.
type SampleFormat int

const (
	// Format16 is signed 16-bit little-endian PCM.
	Format16 SampleFormat = iota
	// Format32Float is 32-bit IEEE-754 float PCM.
	Format32Float
)

// BytesPerSample returns the byte width of one sample in this format.
func (f SampleFormat) BytesPerSample() int {
	switch f {
	case Format32Float:
		return 4
	default:
		return 2
	}
}

// Config is the synthesizer output configuration: sample format, channel
// count, and sample rate.
type Config struct {
	Format     SampleFormat
	Channels   int
	SampleRate int
}

// FrameSize is the byte size of one interleaved audio frame under this
// configuration (channels * bytes per sample).
func (c Config) FrameSize() int {
	return c.Channels * c.Format.BytesPerSample()
}

// Synth is a MIDI event sink that also renders interleaved PCM. It
// satisfies internal/smf.EventSink plus the rendering/configuration/
// soundfont surface the decoder façade needs.
type Synth interface {
	NoteOff(channel, key int)
	NoteOn(channel, key, velocity int)
	ControlChange(channel, controller, value int)
	ProgramChange(channel, program int)
	ChannelPressure(channel, value int)
	PitchBend(channel, value14 int)
	SystemReset()

	// LoadSoundFont loads the soundfont at path and returns an opaque
	// handle. UnloadSoundFont releases it.
	LoadSoundFont(path string) (int, error)
	UnloadSoundFont(id int) error

	// Configure sets the output format, channel count, and sample rate.
	Configure(cfg Config) error

	// Render fills out with frames interleaved audio frames in the
	// configured format, writing exactly frames*Config.FrameSize() bytes.
	Render(frames int, out []byte) error

	// ClockUnitMillis is the synthesizer's minimum meaningful note-length
	// ("clock unit"), in milliseconds.
	ClockUnitMillis() int
}
