// Package smf implements a byte-exact parser for Standard MIDI Files
// (formats 0 and 1, PPQN division only) and for the real-time capture
// variant produced by an early-1990s multimedia OS.
//
// The parser never buffers an entire track's events: Track.Decode consumes
// exactly one event per call, which is what the scheduler (internal/
// scheduler) needs to interleave multiple tracks on a common tick axis.
// Tracks hold no reference to anything outside themselves; the shared
// buffer, event sink, and tempo state are passed in by the caller, keeping
// the object graph free of cycles.
package smf

import "github.com/komh/go-kmididec/internal/ioadapter"

// Format distinguishes the two dialects this package parses.
type Format int

const (
	Format0 Format = 0
	Format1 Format = 1
	// FormatDialect marks the real-time capture variant. It is not a value
	// ever found in an SMF header's format field.
	FormatDialect Format = -1
)

// EndOfTrack is the sentinel NextTick value meaning a track has no more
// events to deliver.
const EndOfTrack uint64 = ^uint64(0)

// EventSink receives decoded MIDI channel events. It is the narrow part of
// the synthesizer that the parser needs; rendering and configuration live
// in the synth package.
type EventSink interface {
	NoteOff(channel, key int)
	NoteOn(channel, key, velocity int)
	ControlChange(channel, controller, value int)
	ProgramChange(channel, program int)
	ChannelPressure(channel, value int)
	PitchBend(channel, value14 int)
}

// TempoState is the shared tempo/time-signature accounting the scheduler
// owns; tempo meta events and dialect Device Driver Control messages mutate
// it in place as tracks are decoded.
type TempoState struct {
	// TempoMicros is microseconds per quarter note (default 500000).
	TempoMicros uint32
	// Numerator is the time signature numerator (default 4).
	Numerator uint8
	// Denominator is the real time-signature divisor, not the SMF log2
	// form (default 4).
	Denominator uint16
}

// NewTempoState returns the SMF defaults: 120 BPM, 4/4.
func NewTempoState() *TempoState {
	return &TempoState{TempoMicros: 500000, Numerator: 4, Denominator: 4}
}

// Header is the parsed SMF (or dialect) header.
type Header struct {
	Format   Format
	Tracks   uint16
	Division uint16 // PPQN; the SMPTE high bit is never set here.
}

// Track is one track's parse cursor. Offset is always <= Length. NextTick
// is EndOfTrack once the track has no more events.
type Track struct {
	Dialect bool

	Start    int64
	Length   int64
	Offset   int64
	NextTick uint64
	Status   byte // last seen running-status byte, 0 if none yet.

	scratch []byte // reused payload scratch buffer, grown on demand.
}

// scratchCap bounds a single event payload. A declared length can claim up
// to 2^28-1 bytes; no well-formed SMF event comes anywhere near 64 KiB.
const scratchCap = 64 * 1024

func (t *Track) growScratch(n int) []byte {
	if cap(t.scratch) < n {
		t.scratch = make([]byte, n)
	}
	return t.scratch[:n]
}

// Ended reports whether the track has no more events to decode.
func (t *Track) Ended() bool { return t.NextTick == EndOfTrack }

// readByte reads one byte at Start+Offset and advances Offset.
func (t *Track) readByte(buf *ioadapter.Buffer) (byte, error) {
	if t.Offset >= t.Length {
		return 0, formatErrorf("read past end of track")
	}
	var b [1]byte
	n := buf.ReadAt(t.Start+t.Offset, b[:])
	if n != 1 {
		return 0, formatErrorf("short read in track")
	}
	t.Offset++
	return b[0], nil
}

// readBytes reads n bytes at Start+Offset into a reused scratch buffer and
// advances Offset. A zero-length payload skips the buffer access entirely.
func (t *Track) readBytes(buf *ioadapter.Buffer, n int) ([]byte, error) {
	if n == 0 {
		return nil, nil
	}
	if n > scratchCap {
		return nil, formatErrorf("event payload of %d bytes exceeds sanity cap", n)
	}
	if t.Offset+int64(n) > t.Length {
		return nil, formatErrorf("event payload runs past end of track")
	}
	dst := t.growScratch(n)
	got := buf.ReadAt(t.Start+t.Offset, dst)
	if got != n {
		return nil, formatErrorf("short read in track")
	}
	t.Offset += int64(n)
	return dst, nil
}

// readVLQAt reads a variable-length quantity at Start+Offset and advances
// Offset by the number of bytes consumed.
func (t *Track) readVLQAt(buf *ioadapter.Buffer) (uint32, error) {
	var window [4]byte
	n := buf.ReadAt(t.Start+t.Offset, window[:])
	if t.Offset+int64(n) > t.Length {
		n = int(t.Length - t.Offset)
	}
	v, used, err := readVLQ(window[:n])
	if err != nil {
		return 0, err
	}
	t.Offset += int64(used)
	return v, nil
}
