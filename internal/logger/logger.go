// Package logger hands out component-tagged slog loggers for the decoder
// pipeline. All components share one level, adjustable at any time, so a
// player can turn on debug tracing for an already-open decoder.
package logger

import (
	"fmt"
	"log/slog"
	"os"
)

// level is shared by every logger handed out by For, so SetLevel takes
// effect on loggers created before the call.
var level slog.LevelVar

var base = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
	Level: &level,
}))

// SetLevel sets the shared log level from its name ("debug", "info",
// "warn", "error"; case-insensitive, "warn+2"-style offsets accepted).
func SetLevel(name string) error {
	var l slog.Level
	if err := l.UnmarshalText([]byte(name)); err != nil {
		return fmt.Errorf("logger: unknown level %q", name)
	}
	level.Set(l)
	return nil
}

// For returns a logger tagged with the pipeline component it serves
// ("decoder", "scheduler", ...).
func For(component string) *slog.Logger {
	return base.With("component", component)
}
