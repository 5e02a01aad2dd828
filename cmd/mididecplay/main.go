// Command mididecplay is a thin CLI wrapper around the decoder package: it
// wires the façade's pull-mode Decode into an audio output sink so the
// pipeline can be exercised end-to-end from a terminal.
package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/hajimehoshi/ebiten/v2/audio"
	"github.com/spf13/pflag"

	"github.com/komh/go-kmididec/decoder"
	"github.com/komh/go-kmididec/internal/logger"
)

const sampleRate = 44100

// decoderStream adapts decoder.Decoder's pull-mode Decode to io.Reader, the
// shape ebiten/v2/audio.Context.NewPlayer expects.
type decoderStream struct {
	dec *decoder.Decoder
}

func (s *decoderStream) Read(p []byte) (int, error) {
	n, err := s.dec.Decode(p)
	if n == 0 && err == nil {
		return 0, io.EOF
	}
	return n, err
}

func main() {
	soundFontPath := pflag.StringP("soundfont", "s", "", "Path to SoundFont file (.sf2)")
	bps := pflag.IntP("bps", "b", 16, "Output sample format: 16 (int16) or 32 (float32)")
	channels := pflag.IntP("channels", "c", 2, "Output channel count")
	logLevel := pflag.StringP("log-level", "l", "warn", "Log level: debug, info, warn, error")
	help := pflag.BoolP("help", "h", false, "Display help text")
	pflag.Parse()

	if err := logger.SetLevel(*logLevel); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if *help || pflag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: mididecplay [options] <midi_file>")
		fmt.Fprintln(os.Stderr)
		pflag.PrintDefaults()
		os.Exit(1)
	}
	if *soundFontPath == "" {
		fmt.Fprintln(os.Stderr, "mididecplay: --soundfont is required")
		os.Exit(1)
	}

	var format decoder.BitsPerSample
	switch *bps {
	case 16:
		format = decoder.BPS16
	case 32:
		format = decoder.BPS32Float
	default:
		fmt.Fprintf(os.Stderr, "mididecplay: unsupported --bps %d\n", *bps)
		os.Exit(1)
	}

	midiPath := pflag.Arg(0)
	info := decoder.AudioInfo{BPS: format, Channels: *channels, SampleRate: sampleRate}

	dec, err := decoder.Open(midiPath, *soundFontPath, info)
	if err != nil {
		fmt.Fprintf(os.Stderr, "mididecplay: open: %v\n", err)
		os.Exit(1)
	}
	defer dec.Close()

	fmt.Fprintf(os.Stderr, "duration: %.2fs\n", float64(dec.Duration())/1000)

	audioCtx := audio.NewContext(sampleRate)
	player, err := audioCtx.NewPlayer(&decoderStream{dec: dec})
	if err != nil {
		fmt.Fprintf(os.Stderr, "mididecplay: audio player: %v\n", err)
		os.Exit(1)
	}
	player.Play()

	for player.IsPlaying() {
		time.Sleep(50 * time.Millisecond)
	}
}
