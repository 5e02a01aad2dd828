package decoder

import (
	"errors"
	"fmt"
)

// Sentinel failure modes of Open, so callers can tell a missing file from
// a malformed one.
var (
	// ErrNoSoundFont is returned when Open is called with an empty
	// soundfont path.
	ErrNoSoundFont = errors.New("kmididec: soundfont path is required")
	// ErrSoundFontNotFound is returned when the soundfont file cannot be
	// located, or when the synthesizer fails to load it.
	ErrSoundFontNotFound = errors.New("kmididec: soundfont file not found")
	// ErrMIDIFileNotFound is returned when the MIDI file cannot be located.
	ErrMIDIFileNotFound = errors.New("kmididec: MIDI file not found")
	// ErrMIDIInvalidFormat is returned when the MIDI file fails to parse.
	ErrMIDIInvalidFormat = errors.New("kmididec: invalid MIDI file format")
)

// StateError is a caller-side usage error, distinct from IoError and
// FormatError, raised only by Seek with an unrecognized whence value.
type StateError struct {
	Reason string
}

func (e *StateError) Error() string { return fmt.Sprintf("decoder: %s", e.Reason) }

func stateErrorf(format string, args ...any) error {
	return &StateError{Reason: fmt.Sprintf(format, args...)}
}
