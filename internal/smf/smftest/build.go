// Package smftest builds minimal, byte-exact SMF and dialect fixtures for
// tests across internal/smf, internal/scheduler, and decoder.
package smftest

import "bytes"

// EncodeVLQ is the canonical big-endian variable-length quantity encoding,
// duplicated here (rather than exported from internal/smf) so fixtures
// never depend on the code under test.
func EncodeVLQ(v uint32) []byte {
	buf := []byte{byte(v & 0x7F)}
	v >>= 7
	for v > 0 {
		buf = append([]byte{byte(v&0x7F) | 0x80}, buf...)
		v >>= 7
	}
	return buf
}

// Header returns a standard MThd chunk.
func Header(format, tracks, division uint16) []byte {
	var buf bytes.Buffer
	buf.WriteString("MThd")
	buf.Write(be32(6))
	buf.Write(be16(format))
	buf.Write(be16(tracks))
	buf.Write(be16(division))
	return buf.Bytes()
}

// Track wraps raw track event bytes in an MTrk chunk header.
func Track(events []byte) []byte {
	var buf bytes.Buffer
	buf.WriteString("MTrk")
	buf.Write(be32(uint32(len(events))))
	buf.Write(events)
	return buf.Bytes()
}

// File assembles a complete SMF byte stream from a header and one or more
// track chunks (each already wrapped by Track).
func File(header []byte, tracks ...[]byte) []byte {
	var buf bytes.Buffer
	buf.Write(header)
	for _, t := range tracks {
		buf.Write(t)
	}
	return buf.Bytes()
}

// EndOfTrack is the canonical zero-length FF 2F 00 meta event, with a
// preceding zero delta time.
func EndOfTrack() []byte {
	return []byte{0x00, 0xFF, 0x2F, 0x00}
}

// TempoEvent returns a delta-prefixed FF 51 03 tempo meta event.
func TempoEvent(delta uint32, microsPerQuarter uint32) []byte {
	var buf bytes.Buffer
	buf.Write(EncodeVLQ(delta))
	buf.Write([]byte{0xFF, 0x51, 0x03})
	buf.Write([]byte{byte(microsPerQuarter >> 16), byte(microsPerQuarter >> 8), byte(microsPerQuarter)})
	return buf.Bytes()
}

func be16(v uint16) []byte { return []byte{byte(v >> 8), byte(v)} }
func be32(v uint32) []byte {
	return []byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
}
