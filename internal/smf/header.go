package smf

import "github.com/komh/go-kmididec/internal/ioadapter"

// dialectPreambleLen is the length of the fixed real-time capture preamble:
// F0 00 00 3A 03 01 18 pp qq F7.
const dialectPreambleLen = 10

// Parse reads the first bytes of buf and decides between the real-time
// capture dialect and a standard MThd/MTrk file, then builds the Header and
// one Track per MTrk chunk (or the single open-ended dialect track).
func Parse(buf *ioadapter.Buffer) (Header, []*Track, error) {
	var probe [dialectPreambleLen]byte
	n := buf.ReadAt(0, probe[:])

	if n == dialectPreambleLen && isDialectPreamble(probe[:]) {
		return parseDialect(buf, probe[:])
	}

	return parseStandard(buf)
}

func isDialectPreamble(b []byte) bool {
	if b[0] != 0xF0 || b[1] != 0x00 || b[2] != 0x00 || b[3] != 0x3A ||
		b[4] != 0x03 || b[5] != 0x01 || b[6] != 0x18 {
		return false
	}
	// b[7] is pp (the time-base parameter); b[8] is qq, which must equal the
	// fixed prefix's literal trailing 0xF7 at b[9] for this to be recognized
	// as the real-time capture dialect.
	return b[8] == 0xF7 && b[9] == 0xF7
}

func parseDialect(buf *ioadapter.Buffer, preamble []byte) (Header, []*Track, error) {
	pp := preamble[7] & 0x7F

	var division uint16
	if pp&0x40 != 0 {
		division = uint16(24 / ((uint32(pp&0x3F) + 1) * 3))
	} else {
		division = uint16(24 * (uint32(pp) + 1))
	}
	if division == 0 {
		return Header{}, nil, formatErrorf("dialect division is zero")
	}

	hdr := Header{Format: FormatDialect, Tracks: 1, Division: division}

	length := buf.Len() - dialectPreambleLen
	track := &Track{
		Dialect: true,
		Start:   dialectPreambleLen,
		Length:  length,
	}
	if err := track.ResetInitialTick(buf); err != nil {
		return Header{}, nil, err
	}

	return hdr, []*Track{track}, nil
}

func parseStandard(buf *ioadapter.Buffer) (Header, []*Track, error) {
	var head [14]byte
	if n := buf.ReadAt(0, head[:]); n != 14 {
		return Header{}, nil, formatErrorf("file too short for MThd header")
	}
	if string(head[0:4]) != "MThd" {
		return Header{}, nil, formatErrorf("missing MThd magic")
	}
	if be32(head[4:8]) != 6 {
		return Header{}, nil, formatErrorf("unexpected MThd chunk length")
	}

	format := be16(head[8:10])
	if format == 2 {
		return Header{}, nil, formatErrorf("SMF format 2 is not supported")
	}
	if format != 0 && format != 1 {
		return Header{}, nil, formatErrorf("unrecognized SMF format %d", format)
	}

	numTracks := be16(head[10:12])
	if numTracks < 1 {
		return Header{}, nil, formatErrorf("header declares zero tracks")
	}

	division := be16(head[12:14])
	if division&0x8000 != 0 {
		return Header{}, nil, formatErrorf("SMPTE division is not supported")
	}
	if division == 0 {
		return Header{}, nil, formatErrorf("division is zero")
	}

	hdr := Header{Format: Format(format), Tracks: numTracks, Division: division}

	tracks := make([]*Track, 0, numTracks)
	offset := int64(14)
	for i := uint16(0); i < numTracks; i++ {
		var chunkHead [8]byte
		if n := buf.ReadAt(offset, chunkHead[:]); n != 8 {
			return Header{}, nil, formatErrorf("truncated MTrk chunk header")
		}
		if string(chunkHead[0:4]) != "MTrk" {
			return Header{}, nil, formatErrorf("missing MTrk magic for track %d", i)
		}
		length := int64(be32(chunkHead[4:8]))
		start := offset + 8
		if start+length > buf.Len() {
			return Header{}, nil, formatErrorf("track %d chunk length runs past end of file", i)
		}

		track := &Track{Start: start, Length: length}
		if err := track.ResetInitialTick(buf); err != nil {
			return Header{}, nil, err
		}
		tracks = append(tracks, track)

		offset = start + length
	}

	return hdr, tracks, nil
}

// ResetInitialTick (re)establishes NextTick for a track positioned at
// Offset 0: for an SMF track this decodes the first delta time; for a
// dialect track, which has no delta times at all, the first event simply
// fires at tick 0. It is used both when a track is first parsed and when
// the scheduler rewinds on reset/seek.
func (t *Track) ResetInitialTick(buf *ioadapter.Buffer) error {
	if t.Offset == t.Length {
		t.NextTick = EndOfTrack
		return nil
	}
	if t.Dialect {
		t.NextTick = 0
		return nil
	}
	delta, err := t.readVLQAt(buf)
	if err != nil {
		return err
	}
	t.NextTick = uint64(delta)
	return nil
}

func be16(b []byte) uint16 { return uint16(b[0])<<8 | uint16(b[1]) }
func be32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}
