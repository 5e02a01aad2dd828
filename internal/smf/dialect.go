package smf

import "github.com/komh/go-kmididec/internal/ioadapter"

// dialectSysExBound is the number of additional bytes (beyond the leading
// F0) searched for a terminating F7 before the packet is dropped.
const dialectSysExBound = 9

// decodeDialectEvent decodes one real-time capture event: no delta times,
// running status as usual, the standard channel-event table, plus the
// dialect-specific system-common subcases (F8 clock pulses and control
// SysEx packets).
func (t *Track) decodeDialectEvent(buf *ioadapter.Buffer, sink EventSink, tempo *TempoState) error {
	status, err := t.readByte(buf)
	if err != nil {
		return err
	}

	if status&0x80 == 0 {
		t.Offset--
		if t.Status < 0x80 {
			return formatErrorf("running status with no prior status byte")
		}
		status = t.Status
	} else if status < 0xF0 {
		t.Status = status
	}

	switch {
	case status >= 0x80 && status < 0xF0:
		if err := t.decodeChannelEvent(buf, sink, status); err != nil {
			return err
		}
	case status == 0xF8:
		t.NextTick++
	default:
		if err := t.decodeDialectSysEx(buf, tempo); err != nil {
			return err
		}
	}

	if t.Offset == t.Length {
		t.NextTick = EndOfTrack
	}
	return nil
}

// decodeDialectSysEx reads a dialect SysEx packet and applies any timing
// compression or tempo control it carries. The leading status byte (F0, or
// any other system-common status the dialect routes here) has already been
// consumed by the caller; the body starts at the next byte.
func (t *Track) decodeDialectSysEx(buf *ioadapter.Buffer, tempo *TempoState) error {
	body := make([]byte, 0, dialectSysExBound)
	terminated := false

	for i := 0; i < dialectSysExBound; i++ {
		if t.Offset >= t.Length {
			break
		}
		b, err := t.readByte(buf)
		if err != nil {
			return err
		}
		if b == 0xF7 {
			terminated = true
			break
		}
		body = append(body, b)
	}

	if !terminated {
		// Drain until F7 is found (or the track ends) and drop the packet.
		for t.Offset < t.Length {
			b, err := t.readByte(buf)
			if err != nil {
				return err
			}
			if b == 0xF7 {
				break
			}
		}
		return nil
	}

	if len(body) < 4 || body[0] != 0x00 || body[1] != 0x00 || body[2] != 0x3A {
		return nil // not a dialect control message: ignored.
	}

	msgType := body[3] & 0x7F
	switch {
	case msgType == 1 && len(body) >= 6: // Timing Compression, long
		t.NextTick += uint64(body[5]&0x7F)<<7 | uint64(body[4]&0x7F)
	case msgType >= 7:
		t.NextTick += uint64(msgType)
	case msgType == 3 && len(body) >= 7 && body[4] == 2: // Device Driver Control / Tempo
		raw := uint32(body[6]&0x7F)<<7 | uint32(body[5]&0x7F)
		if perTen := raw / 10; perTen != 0 {
			tempo.TempoMicros = 60000000 / perTen
		}
	}
	return nil
}
