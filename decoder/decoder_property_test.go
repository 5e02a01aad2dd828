package decoder

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/komh/go-kmididec/internal/smf/smftest"
)

// buildSilentTrack assembles an SMF 0 file whose single track is a sequence
// of inert control-change events separated by the given tick deltas,
// terminated by end-of-track.
func buildSilentTrack(division uint16, deltas []int) []byte {
	var track []byte
	for _, d := range deltas {
		track = append(track, silenceEvent(uint32(d))...)
	}
	track = append(track, smftest.EndOfTrack()...)
	return smftest.File(smftest.Header(0, 1, division), smftest.Track(track))
}

// For every generated file, Duration() >= Position() holds at every point
// throughout a full drain.
func TestDurationNeverLessThanPositionProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("duration >= position throughout decode", prop.ForAll(
		func(deltas []int) bool {
			withFakeSynth(t)
			data := buildSilentTrack(96, deltas)
			midiPath := writeFixture(t, "prop.mid", data)
			sfPath := writeFixture(t, "prop.sf2", nil)
			dec, err := Open(midiPath, sfPath, AudioInfo{BPS: BPS16, Channels: 2, SampleRate: 44100})
			if err != nil {
				return false
			}
			defer dec.Close()

			buf := make([]byte, 128)
			for {
				if dec.Duration() < dec.Position() {
					return false
				}
				n, decErr := dec.Decode(buf)
				if decErr != nil || n == 0 {
					break
				}
			}
			return dec.Duration() >= dec.Position()
		},
		gen.SliceOfN(5, gen.IntRange(1, 2000)),
	))

	properties.TestingRun(t)
}

// Seeking to any target in [0, Duration()] lands within one clock unit of
// the target.
func TestSeekClampsWithinDurationProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("seek(t, BEGIN) lands within one clock unit of t", prop.ForAll(
		func(deltas []int, frac int) bool {
			withFakeSynth(t)
			data := buildSilentTrack(96, deltas)
			midiPath := writeFixture(t, "prop.mid", data)
			sfPath := writeFixture(t, "prop.sf2", nil)
			dec, err := Open(midiPath, sfPath, AudioInfo{BPS: BPS16, Channels: 2, SampleRate: 44100})
			if err != nil {
				return false
			}
			defer dec.Close()

			target := dec.Duration() * int64(frac) / 100
			if err := dec.Seek(target, SeekBegin); err != nil {
				return false
			}
			diff := dec.Position() - target
			if diff < 0 {
				diff = -diff
			}
			return diff <= 10 // clock_unit_ms default
		},
		gen.SliceOfN(5, gen.IntRange(1, 2000)),
		gen.IntRange(0, 100),
	))

	properties.TestingRun(t)
}
