package smf

import "github.com/komh/go-kmididec/internal/ioadapter"

// channelDataLen gives the number of data bytes for each channel-event
// status, indexed by the high nibble (0x80-0xE0).
var channelDataLen = [8]int{
	0x0: 2, // note off
	0x1: 2, // note on
	0x2: 2, // poly aftertouch
	0x3: 2, // control change
	0x4: 1, // program change
	0x5: 1, // channel pressure
	0x6: 2, // pitch bend
	0x7: 0, // unused (0xF0 and above are handled separately)
}

// Decode consumes exactly one event from t and dispatches it to sink,
// updating t.NextTick to the tick of the following event (or EndOfTrack).
// tempo receives any tempo/time-signature meta event or dialect Device
// Driver Control tempo change encountered along the way.
func (t *Track) Decode(buf *ioadapter.Buffer, sink EventSink, tempo *TempoState) error {
	if t.Offset == t.Length {
		t.NextTick = EndOfTrack
		return nil
	}
	if t.Dialect {
		return t.decodeDialectEvent(buf, sink, tempo)
	}
	return t.decodeSMFEvent(buf, sink, tempo)
}

// decodeSMFEvent handles running status, channel event dispatch, and
// meta/sysex events, then reads the next delta time into NextTick.
func (t *Track) decodeSMFEvent(buf *ioadapter.Buffer, sink EventSink, tempo *TempoState) error {
	status, err := t.readByte(buf)
	if err != nil {
		return err
	}

	if status&0x80 == 0 {
		// Running status: the byte we just read is in fact the first data
		// byte, so put it back and reuse the last seen status.
		t.Offset--
		if t.Status < 0x80 {
			return formatErrorf("running status with no prior status byte")
		}
		status = t.Status
	} else if status < 0xF0 {
		t.Status = status
	}

	switch {
	case status == 0xFF:
		if err := t.decodeMeta(buf, tempo); err != nil {
			return err
		}
	case status == 0xF0:
		if err := t.skipSysEx(buf); err != nil {
			return err
		}
	case status == 0xF7:
		if err := t.skipSysExEscape(buf); err != nil {
			return err
		}
	case status >= 0x80 && status < 0xF0:
		if err := t.decodeChannelEvent(buf, sink, status); err != nil {
			return err
		}
	default:
		if err := t.skipSystemCommon(buf, status); err != nil {
			return err
		}
	}

	if t.Offset == t.Length {
		t.NextTick = EndOfTrack
		return nil
	}
	delta, err := t.readVLQAt(buf)
	if err != nil {
		return err
	}
	t.NextTick += uint64(delta)
	return nil
}

func (t *Track) decodeChannelEvent(buf *ioadapter.Buffer, sink EventSink, status byte) error {
	channel := int(status & 0x0F)
	n := channelDataLen[(status>>4)&0x07]

	data, err := t.readBytes(buf, n)
	if err != nil {
		return err
	}
	for i := range data {
		data[i] &= 0x7F
	}

	switch status & 0xF0 {
	case 0x80:
		sink.NoteOff(channel, int(data[0]))
	case 0x90:
		sink.NoteOn(channel, int(data[0]), int(data[1]))
	case 0xA0:
		// Polyphonic aftertouch: not supported.
	case 0xB0:
		sink.ControlChange(channel, int(data[0]), int(data[1]))
	case 0xC0:
		sink.ProgramChange(channel, int(data[0]))
	case 0xD0:
		sink.ChannelPressure(channel, int(data[0]))
	case 0xE0:
		sink.PitchBend(channel, int(data[1])<<7|int(data[0]))
	}
	return nil
}

// skipSystemCommon consumes the fixed-length system-common events that
// carry no useful payload for this decoder.
func (t *Track) skipSystemCommon(buf *ioadapter.Buffer, status byte) error {
	var n int
	switch status {
	case 0xF2:
		n = 2
	case 0xF3:
		n = 1
	default:
		n = 0 // 0xF1, 0xF4-0xF6, 0xF8-0xFE
	}
	_, err := t.readBytes(buf, n)
	return err
}

// skipSysEx consumes a VLQ-prefixed 0xF0 SysEx payload, which must
// terminate in the 0xF7 EOX byte.
func (t *Track) skipSysEx(buf *ioadapter.Buffer) error {
	length, err := t.readVLQAt(buf)
	if err != nil {
		return err
	}
	data, err := t.readBytes(buf, int(length))
	if err != nil {
		return err
	}
	if length == 0 || data[len(data)-1] != 0xF7 {
		return formatErrorf("sysex event missing terminating F7")
	}
	return nil
}

// skipSysExEscape consumes a VLQ-prefixed 0xF7 escape payload. Unlike 0xF0,
// an escape carries arbitrary bytes: a zero-length or non-F7-terminated
// payload is legal here.
func (t *Track) skipSysExEscape(buf *ioadapter.Buffer) error {
	length, err := t.readVLQAt(buf)
	if err != nil {
		return err
	}
	_, err = t.readBytes(buf, int(length))
	return err
}

// metaLengths enforces the fixed payload length of the structural meta-event
// types. Types 0x01-0x07 (text) accept any length and are absent from this
// map, as is sequencer-specific 0x7F: some real-world files (JSBLUES.MID
// among them) declare nonstandard 0x7F lengths, so its check stays off. All
// other types are accepted with their declared length and ignored.
var metaLengths = map[byte]int{
	0x00: 2,
	0x20: 1,
	0x2F: 0,
	0x51: 3,
	0x54: 5,
	0x58: 4,
	0x59: 2,
}

func (t *Track) decodeMeta(buf *ioadapter.Buffer, tempo *TempoState) error {
	metaType, err := t.readByte(buf)
	if err != nil {
		return err
	}
	length, err := t.readVLQAt(buf)
	if err != nil {
		return err
	}
	if want, ok := metaLengths[metaType]; ok && int(length) != want {
		return formatErrorf("meta type 0x%02X expects length %d, got %d", metaType, want, length)
	}

	data, err := t.readBytes(buf, int(length))
	if err != nil {
		return err
	}

	switch metaType {
	case 0x2F: // end of track: must land exactly at the track boundary.
		if t.Offset != t.Length {
			return formatErrorf("end-of-track meta event not at end of track")
		}
	case 0x51: // set tempo
		tempo.TempoMicros = uint32(data[0])<<16 | uint32(data[1])<<8 | uint32(data[2])
	case 0x58: // time signature
		tempo.Numerator = data[0]
		tempo.Denominator = 1 << data[1]
	}
	return nil
}
