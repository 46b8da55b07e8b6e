package logger

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ZeroLogger implements Logger on top of zerolog.
type ZeroLogger struct {
	zlog   *zerolog.Logger
	filter *SensitiveDataFilter
	hook   func(zerolog.Level)
}

var _ Logger = (*ZeroLogger)(nil)

var callerMarshalOnce sync.Once

// New creates a logger writing to stdout. Unknown levels fall back to info.
func New(level string, pretty bool) *ZeroLogger {
	return NewWithWriter(level, pretty, os.Stdout)
}

// NewWithWriter creates a logger writing to out. Pretty output uses zerolog's
// console writer; otherwise one JSON object is written per line.
func NewWithWriter(level string, pretty bool, out io.Writer) *ZeroLogger {
	callerMarshalOnce.Do(func() {
		zerolog.CallerMarshalFunc = func(_ uintptr, file string, line int) string {
			base := filepath.Base(file)
			parent := filepath.Base(filepath.Dir(file))
			if parent != "." && parent != "" {
				return parent + "/" + base + ":" + strconv.Itoa(line)
			}
			return base + ":" + strconv.Itoa(line)
		}
	})

	if pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	l := zerolog.New(out).With().Timestamp().CallerWithSkipFrameCount(3).Logger()

	zLevel, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		zLevel = zerolog.InfoLevel
	}
	l = l.Level(zLevel)

	return &ZeroLogger{zlog: &l, filter: NewSensitiveDataFilter(DefaultFilterConfig())}
}

// Nop returns a logger that discards everything.
func Nop() *ZeroLogger {
	l := zerolog.Nop()
	return &ZeroLogger{zlog: &l, filter: NewSensitiveDataFilter(nil)}
}

// WithContext attaches the severity hook stored in ctx (see WithSeverityHook)
// so WARN+ events escalate the surrounding request's log summary.
func (l *ZeroLogger) WithContext(ctx any) Logger {
	c, ok := ctx.(context.Context)
	if !ok {
		return l
	}
	hook := severityHookFromContext(c)
	if hook == nil {
		return l
	}
	return &ZeroLogger{zlog: l.zlog, filter: l.filter, hook: hook}
}

// WithFields returns a logger that adds fields to every event. Sensitive keys
// are masked before they are attached.
func (l *ZeroLogger) WithFields(fields map[string]any) Logger {
	if l.filter != nil {
		fields = l.filter.FilterFields(fields)
	}
	log := l.zlog.With().Fields(fields).Logger()
	return &ZeroLogger{zlog: &log, filter: l.filter, hook: l.hook}
}

// Level reports the configured minimum level.
func (l *ZeroLogger) Level() zerolog.Level {
	return l.zlog.GetLevel()
}
