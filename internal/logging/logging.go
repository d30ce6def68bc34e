package logging

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	defaultLogger zerolog.Logger
	defaultOnce   sync.Once
	mu            sync.Mutex
)

// GetDefaultLogger returns the process-wide logger. Until Configure is
// called it writes human-readable output to stderr at info level.
func GetDefaultLogger() *zerolog.Logger {
	defaultOnce.Do(func() {
		defaultLogger = newLogger(os.Stderr, zerolog.InfoLevel)
	})
	mu.Lock()
	defer mu.Unlock()
	l := defaultLogger
	return &l
}

// Configure replaces the default logger. An empty or unknown level falls
// back to info.
func Configure(w io.Writer, level string) {
	defaultOnce.Do(func() {})
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	mu.Lock()
	defaultLogger = newLogger(w, lvl)
	mu.Unlock()
}

// Component returns the default logger tagged with a component name.
func Component(name string) zerolog.Logger {
	return GetDefaultLogger().With().Str("component", name).Logger()
}

func newLogger(w io.Writer, level zerolog.Level) zerolog.Logger {
	out := w
	if f, ok := w.(*os.File); ok && (f == os.Stderr || f == os.Stdout) {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}
