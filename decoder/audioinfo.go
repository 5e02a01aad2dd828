package decoder

import (
	"fmt"

	"github.com/komh/go-kmididec/synth"
)

// BitsPerSample selects the emitted PCM sample representation.
type BitsPerSample int

const (
	// BPS16 selects signed 16-bit little-endian PCM.
	BPS16 BitsPerSample = 16
	// BPS32Float selects 32-bit IEEE-754 float PCM.
	BPS32Float BitsPerSample = 32
)

func (b BitsPerSample) sampleFormat() (synth.SampleFormat, error) {
	switch b {
	case BPS16:
		return synth.Format16, nil
	case BPS32Float:
		return synth.Format32Float, nil
	default:
		return 0, fmt.Errorf("decoder: unsupported bits-per-sample %d", int(b))
	}
}

// AudioInfo is the output PCM configuration a caller passes to Open:
// sample format, channel count, and sample rate.
type AudioInfo struct {
	BPS        BitsPerSample
	Channels   int
	SampleRate int
}

func (a AudioInfo) toSynthConfig() (synth.Config, error) {
	if a.Channels <= 0 {
		return synth.Config{}, fmt.Errorf("decoder: channels must be positive, got %d", a.Channels)
	}
	if a.SampleRate <= 0 {
		return synth.Config{}, fmt.Errorf("decoder: sample rate must be positive, got %d", a.SampleRate)
	}
	format, err := a.BPS.sampleFormat()
	if err != nil {
		return synth.Config{}, err
	}
	return synth.Config{Format: format, Channels: a.Channels, SampleRate: a.SampleRate}, nil
}

// Whence selects the origin Seek resolves its millisecond offset against.
type Whence int

const (
	SeekBegin Whence = iota
	SeekCurrent
	SeekEnd
)
