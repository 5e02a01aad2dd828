// Package scheduler implements the tick-keyed multi-track merge and tempo
// engine: each Step call advances every active track by at most one event,
// advances the shared tick/clock by at most one clock unit (or by a single
// tick when one tick lasts longer than a clock unit), and (in Play mode)
// renders the corresponding PCM slice.
package scheduler

import (
	"fmt"

	"github.com/komh/go-kmididec/internal/ioadapter"
	"github.com/komh/go-kmididec/internal/smf"
	"github.com/komh/go-kmididec/synth"
)

// clockBase is the number of microseconds per second.
const clockBase = 1_000_000

// Mode selects whether Step should render audio (Play) or merely advance
// the timeline to keep the synth's running state correct (Seek).
type Mode int

const (
	Play Mode = iota
	Seek
)

// Scheduler owns the tick/clock accounting and the set of tracks being
// merged. It holds no reference to the decoder façade; the façade drives it
// by calling Step.
type Scheduler struct {
	buf    *ioadapter.Buffer
	tracks []*smf.Track
	sink   synth.Synth
	tempo  *smf.TempoState

	division   uint16
	sampleRate int
	frameSize  int

	Tick  uint64
	Clock uint64 // microseconds
}

// New builds a Scheduler over tracks read from buf, driving sink as events
// fire. division is the header's PPQN; sampleRate/frameSize configure the
// PCM produced in Play mode.
func New(buf *ioadapter.Buffer, tracks []*smf.Track, sink synth.Synth, tempo *smf.TempoState, division uint16, sampleRate, frameSize int) *Scheduler {
	return &Scheduler{
		buf:        buf,
		tracks:     tracks,
		sink:       sink,
		tempo:      tempo,
		division:   division,
		sampleRate: sampleRate,
		frameSize:  frameSize,
	}
}

// StepResult reports what Step produced.
type StepResult struct {
	EndOfStream bool
	PCM         []byte
}

// Step pumps every track whose NextTick has come due, finds the minimum
// next tick across tracks, computes the tick advance for one clock unit
// (clamped so it never crosses the next event), then (in Play mode) renders
// the corresponding frame count and advances Tick and Clock.
func (s *Scheduler) Step(mode Mode) (StepResult, error) {
	for _, t := range s.tracks {
		if t.Ended() {
			continue
		}
		if t.NextTick <= s.Tick {
			if err := t.Decode(s.buf, s.sink, s.tempo); err != nil {
				return StepResult{}, err
			}
		}
	}

	minNext := smf.EndOfTrack
	for _, t := range s.tracks {
		if t.NextTick < minNext {
			minNext = t.NextTick
		}
	}
	if minNext == smf.EndOfTrack {
		return StepResult{EndOfStream: true}, nil
	}

	ticksPerSec := uint64(s.division) * clockBase / uint64(s.tempo.TempoMicros)
	if ticksPerSec == 0 {
		return StepResult{}, fmt.Errorf("scheduler: tempo/division yields zero ticks per second")
	}

	clockUnitMicros := uint64(s.sink.ClockUnitMillis()) * 1000
	delta := ticksPerSec * clockUnitMicros / clockBase
	if delta == 0 {
		// Prevents stalls at extreme tempo/division ratios; this slightly
		// accelerates time relative to ideal SMF timing.
		delta = 1
	}
	if s.Tick+delta > minNext {
		delta = minNext - s.Tick
	}

	var pcm []byte
	if mode == Play {
		frames := int(delta * uint64(s.sampleRate) / ticksPerSec)
		pcm = make([]byte, frames*s.frameSize)
		if frames > 0 {
			if err := s.sink.Render(frames, pcm); err != nil {
				return StepResult{}, err
			}
		}
	}

	s.Tick += delta
	s.Clock += clockBase * delta / ticksPerSec

	return StepResult{PCM: pcm}, nil
}

// Reset rewinds every track to its start, re-reads its initial delta, and
// zeroes Tick/Clock and the tempo state. It does not touch the synth;
// callers invoke sink.SystemReset() themselves so the call order matches
// the façade's documented lifecycle.
func (s *Scheduler) Reset() error {
	s.Tick = 0
	s.Clock = 0
	*s.tempo = *smf.NewTempoState()
	for _, t := range s.tracks {
		t.Offset = 0
		t.Status = 0
		if err := t.ResetInitialTick(s.buf); err != nil {
			return err
		}
	}
	return nil
}
