// Package ioadapter implements the pluggable byte-source abstraction and
// the in-memory buffer the SMF parser reads from.
package ioadapter

import (
	"io"
	"os"
)

// Whence selects the seek origin, matching the three standard origins.
type Whence int

const (
	SeekBegin   Whence = 0
	SeekCurrent Whence = 1
	SeekEnd     Whence = 2
)

// Handle is an opaque byte-source handle returned by Adapter.Open.
type Handle any

// Adapter is a struct-of-funcs byte-source backend, configured with the
// recognized options {Open, Read, Seek, Tell, Close}. It is used exactly
// once per decoder, during Open, to fill the in-memory buffer.
type Adapter struct {
	Open  func(name string) (Handle, error)
	Read  func(h Handle, buf []byte) (int, error)
	Seek  func(h Handle, offset int64, whence Whence) (int64, error)
	Tell  func(h Handle) (int64, error)
	Close func(h Handle) error
}

// Default returns the adapter backed by the host's file primitives, used
// when the caller supplies no adapter of its own.
func Default() Adapter {
	return Adapter{
		Open: func(name string) (Handle, error) {
			return os.Open(name)
		},
		Read: func(h Handle, buf []byte) (int, error) {
			f := h.(*os.File)
			n, err := f.Read(buf)
			if err != nil {
				if err == io.EOF {
					return n, nil
				}
				return n, err
			}
			return n, nil
		},
		Seek: func(h Handle, offset int64, whence Whence) (int64, error) {
			return h.(*os.File).Seek(offset, int(whence))
		},
		Tell: func(h Handle) (int64, error) {
			return h.(*os.File).Seek(0, int(SeekCurrent))
		},
		Close: func(h Handle) error {
			return h.(*os.File).Close()
		},
	}
}
