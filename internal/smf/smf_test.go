package smf

import (
	"fmt"
	"testing"

	"github.com/komh/go-kmididec/internal/ioadapter"
	"github.com/komh/go-kmididec/internal/smf/smftest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder is a minimal EventSink that records calls for assertions.
type recorder struct {
	calls []string
}

func (r *recorder) NoteOff(ch, key int) {
	r.calls = append(r.calls, fmtCall("note_off", ch, key, 0))
}
func (r *recorder) NoteOn(ch, key, vel int) {
	r.calls = append(r.calls, fmtCall("note_on", ch, key, vel))
}
func (r *recorder) ControlChange(ch, cc, val int) {
	r.calls = append(r.calls, fmtCall("cc", ch, cc, val))
}
func (r *recorder) ProgramChange(ch, prog int) {
	r.calls = append(r.calls, fmtCall("program", ch, prog, 0))
}
func (r *recorder) ChannelPressure(ch, val int) {
	r.calls = append(r.calls, fmtCall("pressure", ch, val, 0))
}
func (r *recorder) PitchBend(ch, v14 int) {
	r.calls = append(r.calls, fmtCall("pitch_bend", ch, v14, 0))
}

func fmtCall(kind string, a, b, c int) string {
	return fmt.Sprintf("%s:%d:%d:%d", kind, a, b, c)
}

// Minimal SMF 0: a single track that ends immediately.
func TestMinimalSMF0(t *testing.T) {
	data := smftest.File(
		smftest.Header(0, 1, 0x60),
		smftest.Track(smftest.EndOfTrack()),
	)
	buf := ioadapter.FromBytes(data)

	hdr, tracks, err := Parse(buf)
	require.NoError(t, err)
	assert.Equal(t, Format0, hdr.Format)
	assert.EqualValues(t, 0x60, hdr.Division)
	require.Len(t, tracks, 1)

	tempo := NewTempoState()
	rec := &recorder{}
	require.NoError(t, tracks[0].Decode(buf, rec, tempo))
	assert.True(t, tracks[0].Ended())
	assert.Empty(t, rec.calls)
}

// Running status produces three note-on calls; the second carries velocity
// 0, which acts as a note-off.
func TestRunningStatus(t *testing.T) {
	events := []byte{
		0x00, 0x90, 0x3C, 0x40, // note on, ch0, key 0x3C, vel 0x40
		0x60, 0x3C, 0x00, // running status note-on: key 0x3C vel 0 (note off semantics)
		0x60, 0x40, 0x40, // running status note-on: key 0x40 vel 0x40
	}
	data := smftest.File(
		smftest.Header(0, 1, 96),
		smftest.Track(append(events, smftest.EndOfTrack()...)),
	)
	buf := ioadapter.FromBytes(data)

	_, tracks, err := Parse(buf)
	require.NoError(t, err)
	tr := tracks[0]
	tempo := NewTempoState()
	rec := &recorder{}

	for !tr.Ended() {
		require.NoError(t, tr.Decode(buf, rec, tempo))
	}

	require.Len(t, rec.calls, 3)
	assert.Equal(t, "note_on:0:60:64", rec.calls[0])
	assert.Equal(t, "note_on:0:60:0", rec.calls[1])
	assert.Equal(t, "note_on:0:64:64", rec.calls[2])
}

func TestRunningStatusWithoutPriorStatusFails(t *testing.T) {
	events := []byte{0x00, 0x3C, 0x40} // data byte with no preceding status
	data := smftest.File(
		smftest.Header(0, 1, 96),
		smftest.Track(append(events, smftest.EndOfTrack()...)),
	)
	buf := ioadapter.FromBytes(data)
	_, tracks, err := Parse(buf)
	require.NoError(t, err)

	tempo := NewTempoState()
	rec := &recorder{}
	err = tracks[0].Decode(buf, rec, tempo)
	assert.Error(t, err)
}

func TestTempoMetaUpdatesState(t *testing.T) {
	events := append(smftest.TempoEvent(0, 1000000), smftest.EndOfTrack()...)
	data := smftest.File(smftest.Header(0, 1, 480), smftest.Track(events))
	buf := ioadapter.FromBytes(data)

	_, tracks, err := Parse(buf)
	require.NoError(t, err)
	tempo := NewTempoState()
	rec := &recorder{}
	require.NoError(t, tracks[0].Decode(buf, rec, tempo))
	assert.EqualValues(t, 1000000, tempo.TempoMicros)
}

func TestMetaWrongLengthErrors(t *testing.T) {
	// FF 51 02 ... — tempo event must carry 3 data bytes.
	events := []byte{0x00, 0xFF, 0x51, 0x02, 0x01, 0x02}
	data := smftest.File(smftest.Header(0, 1, 96), smftest.Track(events))
	buf := ioadapter.FromBytes(data)

	_, tracks, err := Parse(buf)
	require.NoError(t, err)
	tempo := NewTempoState()
	rec := &recorder{}
	err = tracks[0].Decode(buf, rec, tempo)
	assert.Error(t, err)
}

func TestSMPTEDivisionRejected(t *testing.T) {
	data := smftest.File(smftest.Header(0, 1, 0x8000))
	buf := ioadapter.FromBytes(data)
	_, _, err := Parse(buf)
	assert.Error(t, err)
	var fe *FormatError
	assert.ErrorAs(t, err, &fe)
}

func TestFormat2Rejected(t *testing.T) {
	data := smftest.File(smftest.Header(2, 1, 96))
	buf := ioadapter.FromBytes(data)
	_, _, err := Parse(buf)
	assert.Error(t, err)
}

// A VLQ-prefixed 0xF0 payload that does not end in 0xF7 is a format error.
func TestSysExF0RequiresTerminatingF7(t *testing.T) {
	events := []byte{0x00, 0xF0, 0x02, 0x7E, 0x00} // length 2, no trailing F7
	data := smftest.File(smftest.Header(0, 1, 96), smftest.Track(events))
	buf := ioadapter.FromBytes(data)

	_, tracks, err := Parse(buf)
	require.NoError(t, err)
	tempo := NewTempoState()
	rec := &recorder{}
	err = tracks[0].Decode(buf, rec, tempo)
	assert.Error(t, err)
}

// Unlike 0xF0, an 0xF7 escape payload is merely skipped, so a zero-length
// or non-F7-terminated escape event is legal.
func TestSysExF7EscapeIgnoresPayload(t *testing.T) {
	events := []byte{0x00, 0xF7, 0x00} // zero-length escape
	data := smftest.File(smftest.Header(0, 1, 96), smftest.Track(append(events, smftest.EndOfTrack()...)))
	buf := ioadapter.FromBytes(data)

	_, tracks, err := Parse(buf)
	require.NoError(t, err)
	tempo := NewTempoState()
	rec := &recorder{}
	require.NoError(t, tracks[0].Decode(buf, rec, tempo))
	require.NoError(t, tracks[0].Decode(buf, rec, tempo))
	assert.True(t, tracks[0].Ended())
}

func TestDialectHeaderParsed(t *testing.T) {
	// pp with bit6 clear: division = 24 * (pp+1); choose pp=19 => division=480.
	// qq (b[8]) must equal the fixed prefix's trailing 0xF7 (b[9]) for this
	// to be recognized as the real-time capture dialect.
	preamble := []byte{0xF0, 0x00, 0x00, 0x3A, 0x03, 0x01, 0x18, 19, 0xF7, 0xF7}
	body := []byte{0x90, 0x3C, 0x40, 0xF8, 0x80, 0x3C, 0x00}
	data := append(append([]byte{}, preamble...), body...)
	buf := ioadapter.FromBytes(data)

	hdr, tracks, err := Parse(buf)
	require.NoError(t, err)
	assert.Equal(t, FormatDialect, hdr.Format)
	assert.EqualValues(t, 480, hdr.Division)
	require.Len(t, tracks, 1)
	assert.True(t, tracks[0].Dialect)

	tempo := NewTempoState()
	rec := &recorder{}
	require.NoError(t, tracks[0].Decode(buf, rec, tempo))
	assert.EqualValues(t, 0, tracks[0].NextTick)
	require.NoError(t, tracks[0].Decode(buf, rec, tempo)) // F8 clock pulse
	assert.EqualValues(t, 1, tracks[0].NextTick)
	require.NoError(t, tracks[0].Decode(buf, rec, tempo))
	assert.True(t, tracks[0].Ended())

	require.Len(t, rec.calls, 2)
	assert.Equal(t, "note_on:0:60:64", rec.calls[0])
	assert.Equal(t, "note_off:0:60:0", rec.calls[1])
}
