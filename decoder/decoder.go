// Package decoder implements the pull-mode MIDI-to-PCM façade: it owns the
// synthesizer, the parser, and the scheduler, and exposes open/close/
// decode/duration/position/seek to the outside world.
package decoder

import (
	"errors"
	"fmt"
	"io"

	"github.com/komh/go-kmididec/internal/fileutil"
	"github.com/komh/go-kmididec/internal/ioadapter"
	"github.com/komh/go-kmididec/internal/logger"
	"github.com/komh/go-kmididec/internal/scheduler"
	"github.com/komh/go-kmididec/internal/smf"
	"github.com/komh/go-kmididec/synth"
)

// clockBase is the number of microseconds per second, duplicated from the
// scheduler because Duration/Position/Seek convert between milliseconds and
// the scheduler's microsecond clock independently of the scheduler's own
// internal use of the same constant.
const clockBase = 1_000_000

var log = logger.For("decoder")

// newSynthBackend constructs the production Synthesizer collaborator.
// Overridable in tests (package decoder) to substitute a deterministic fake
// without touching the exported Open/OpenEx/OpenFD signatures.
var newSynthBackend = func() synth.Synth { return synth.NewMeltySynth() }

// Decoder is a single open MIDI-to-PCM pipeline. It is not safe for
// concurrent use; independent Decoders on independent synthesizer
// backends may run on separate goroutines freely.
type Decoder struct {
	header smf.Header
	tracks []*smf.Track
	buf    *ioadapter.Buffer
	sched  *scheduler.Scheduler
	synth  synth.Synth
	tempo  *smf.TempoState

	frameSize     int
	durationMicro uint64

	staging []byte
	bufPos  int
	bufLen  int

	adapter    ioadapter.Adapter
	handle     ioadapter.Handle
	ownsHandle bool

	soundFontID int
}

// Open resolves path and soundFontPath case-insensitively, slurps path via
// the default byte-source adapter, and builds a ready-to-decode pipeline.
func Open(path, soundFontPath string, info AudioInfo) (*Decoder, error) {
	return OpenEx(path, soundFontPath, info, ioadapter.Default())
}

// OpenEx is Open with a caller-supplied byte-source adapter.
func OpenEx(path, soundFontPath string, info AudioInfo, adapter ioadapter.Adapter) (*Decoder, error) {
	resolved, err := fileutil.FindInsensitive(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMIDIFileNotFound, err)
	}
	handle, err := adapter.Open(resolved)
	if err != nil {
		return nil, &ioadapter.IoError{Op: "open", Err: err}
	}
	return openFromHandle(handle, true, soundFontPath, info, adapter)
}

// OpenFD builds a decoder over an already-opened handle. The caller retains
// ownership of h; Close will not call adapter.Close on it.
func OpenFD(h ioadapter.Handle, soundFontPath string, info AudioInfo, adapter ioadapter.Adapter) (*Decoder, error) {
	return openFromHandle(h, false, soundFontPath, info, adapter)
}

func openFromHandle(h ioadapter.Handle, ownsHandle bool, soundFontPath string, info AudioInfo, adapter ioadapter.Adapter) (*Decoder, error) {
	if soundFontPath == "" {
		if ownsHandle {
			_ = adapter.Close(h)
		}
		return nil, ErrNoSoundFont
	}
	resolvedSF, err := fileutil.FindInsensitive(soundFontPath)
	if err != nil {
		if ownsHandle {
			_ = adapter.Close(h)
		}
		return nil, fmt.Errorf("%w: %v", ErrSoundFontNotFound, err)
	}

	buf, err := ioadapter.Slurp(adapter, h)
	if err != nil {
		if ownsHandle {
			_ = adapter.Close(h)
		}
		return nil, err
	}

	header, tracks, err := smf.Parse(buf)
	if err != nil {
		if ownsHandle {
			_ = adapter.Close(h)
		}
		return nil, fmt.Errorf("%w: %v", ErrMIDIInvalidFormat, err)
	}

	cfg, err := info.toSynthConfig()
	if err != nil {
		if ownsHandle {
			_ = adapter.Close(h)
		}
		return nil, err
	}

	backend := newSynthBackend()
	fontID, err := backend.LoadSoundFont(resolvedSF)
	if err != nil {
		if ownsHandle {
			_ = adapter.Close(h)
		}
		return nil, fmt.Errorf("%w: %v", ErrSoundFontNotFound, err)
	}
	if err := backend.Configure(cfg); err != nil {
		_ = backend.UnloadSoundFont(fontID)
		if ownsHandle {
			_ = adapter.Close(h)
		}
		return nil, err
	}

	tempo := smf.NewTempoState()
	sched := scheduler.New(buf, tracks, backend, tempo, header.Division, cfg.SampleRate, cfg.FrameSize())

	d := &Decoder{
		header:      header,
		tracks:      tracks,
		buf:         buf,
		sched:       sched,
		synth:       backend,
		tempo:       tempo,
		frameSize:   cfg.FrameSize(),
		adapter:     adapter,
		handle:      h,
		ownsHandle:  ownsHandle,
		soundFontID: fontID,
	}

	if err := d.preScan(); err != nil {
		_ = d.synth.UnloadSoundFont(d.soundFontID)
		if d.ownsHandle {
			_ = d.adapter.Close(d.handle)
		}
		return nil, err
	}

	log.Debug("decoder opened", "tracks", len(tracks), "division", header.Division, "duration_ms", d.Duration())
	return d, nil
}

// preScan drives the scheduler in Seek mode to end-of-stream to compute
// duration, then rewinds to tick 0.
func (d *Decoder) preScan() error {
	for {
		res, err := d.sched.Step(scheduler.Seek)
		if err != nil {
			return err
		}
		if res.EndOfStream {
			break
		}
	}
	d.durationMicro = d.sched.Clock
	return d.rewind()
}

// rewind moves every track back to its start, zeroes tick/clock/status and
// the staging buffer, and resets the synthesizer.
func (d *Decoder) rewind() error {
	if err := d.sched.Reset(); err != nil {
		return err
	}
	d.synth.SystemReset()
	d.staging = nil
	d.bufPos = 0
	d.bufLen = 0
	return nil
}

// Close releases the soundfont, the synthesizer, and (if Open/OpenEx opened
// it) the underlying handle, in that order.
func (d *Decoder) Close() error {
	_ = d.synth.UnloadSoundFont(d.soundFontID)
	if d.ownsHandle {
		return d.adapter.Close(d.handle)
	}
	return nil
}

// Decode fills out with up to len(out) bytes of PCM, returning the number
// of bytes written. It returns io.EOF only once no further bytes are
// available and none were written this call; a short, non-zero write is not
// an error.
func (d *Decoder) Decode(out []byte) (int, error) {
	written := 0
	for written < len(out) {
		if d.bufPos >= d.bufLen {
			res, err := d.sched.Step(scheduler.Play)
			if err != nil {
				log.Warn("decode stopped on parse failure", "err", err)
				if written > 0 {
					return written, nil
				}
				return 0, io.EOF
			}
			if res.EndOfStream {
				if written > 0 {
					return written, nil
				}
				return 0, io.EOF
			}
			d.staging = res.PCM
			d.bufPos = 0
			d.bufLen = len(res.PCM)
			continue
		}
		n := copy(out[written:], d.staging[d.bufPos:d.bufLen])
		d.bufPos += n
		written += n
	}
	return written, nil
}

// Duration returns the total playback length in milliseconds, computed
// once during Open and never mutated thereafter.
func (d *Decoder) Duration() int64 {
	return int64(1000 * d.durationMicro / clockBase)
}

// Position returns the current playback clock in milliseconds.
func (d *Decoder) Position() int64 {
	return int64(1000 * d.sched.Clock / clockBase)
}

// Seek resolves offsetMs relative to whence, clamps it to [0, Duration()],
// and advances or rewinds the timeline to match: running state (program,
// controllers, pitch bend) stays correct because the synthesizer still
// receives every event along the way, just without rendering.
func (d *Decoder) Seek(offsetMs int64, whence Whence) error {
	var targetMs int64
	switch whence {
	case SeekBegin:
		targetMs = offsetMs
	case SeekCurrent:
		targetMs = d.Position() + offsetMs
	case SeekEnd:
		targetMs = d.Duration() + offsetMs
	default:
		return stateErrorf("unknown seek whence %d", int(whence))
	}
	if targetMs < 0 {
		targetMs = 0
	}
	duration := d.Duration()
	if targetMs > duration {
		targetMs = duration
	}
	targetMicro := uint64(targetMs) * 1000

	if targetMicro < d.sched.Clock {
		if err := d.rewind(); err != nil {
			return err
		}
	}

	for d.sched.Clock < targetMicro {
		res, err := d.sched.Step(scheduler.Seek)
		if err != nil {
			return err
		}
		if res.EndOfStream {
			break
		}
	}
	d.staging = nil
	d.bufPos = 0
	d.bufLen = 0

	if d.sched.Clock >= targetMicro || targetMicro == d.durationMicro {
		return nil
	}
	return errors.New("decoder: seek target unreachable")
}
