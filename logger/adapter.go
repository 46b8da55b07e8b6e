package logger

import (
	"time"

	"github.com/rs/zerolog"
)

// LogEventAdapter adapts a zerolog event to LogEvent, applying the sensitive
// data filter to string and interface fields.
type LogEventAdapter struct {
	event  *zerolog.Event
	filter *SensitiveDataFilter
	level  zerolog.Level
	hook   func(zerolog.Level)
}

func (lea *LogEventAdapter) next(e *zerolog.Event) LogEvent {
	return &LogEventAdapter{event: e, filter: lea.filter, level: lea.level, hook: lea.hook}
}

// Msg sends the event.
func (lea *LogEventAdapter) Msg(msg string) {
	lea.trackSeverity()
	lea.event.Msg(msg)
}

// Msgf sends the event with a formatted message.
func (lea *LogEventAdapter) Msgf(format string, args ...any) {
	lea.trackSeverity()
	lea.event.Msgf(format, args...)
}

func (lea *LogEventAdapter) Err(err error) LogEvent {
	return lea.next(lea.event.Err(err))
}

func (lea *LogEventAdapter) Str(key, value string) LogEvent {
	if lea.filter != nil {
		value = lea.filter.FilterString(key, value)
	}
	return lea.next(lea.event.Str(key, value))
}

func (lea *LogEventAdapter) Int(key string, value int) LogEvent {
	return lea.next(lea.event.Int(key, value))
}

func (lea *LogEventAdapter) Int64(key string, value int64) LogEvent {
	return lea.next(lea.event.Int64(key, value))
}

func (lea *LogEventAdapter) Bool(key string, value bool) LogEvent {
	return lea.next(lea.event.Bool(key, value))
}

func (lea *LogEventAdapter) Dur(key string, d time.Duration) LogEvent {
	return lea.next(lea.event.Dur(key, d))
}

func (lea *LogEventAdapter) Interface(key string, i any) LogEvent {
	if lea.filter != nil {
		i = lea.filter.FilterValue(key, i)
	}
	return lea.next(lea.event.Interface(key, i))
}

func (lea *LogEventAdapter) Strs(key string, values []string) LogEvent {
	return lea.next(lea.event.Strs(key, values))
}

func (lea *LogEventAdapter) trackSeverity() {
	if lea.hook != nil && lea.level >= zerolog.WarnLevel {
		lea.hook(lea.level)
	}
}

func (l *ZeroLogger) newEvent(e *zerolog.Event, level zerolog.Level) LogEvent {
	return &LogEventAdapter{event: e, filter: l.filter, level: level, hook: l.hook}
}

// Info creates an info-level event.
func (l *ZeroLogger) Info() LogEvent { return l.newEvent(l.zlog.Info(), zerolog.InfoLevel) }

// Error creates an error-level event.
func (l *ZeroLogger) Error() LogEvent { return l.newEvent(l.zlog.Error(), zerolog.ErrorLevel) }

// Debug creates a debug-level event.
func (l *ZeroLogger) Debug() LogEvent { return l.newEvent(l.zlog.Debug(), zerolog.DebugLevel) }

// Warn creates a warn-level event.
func (l *ZeroLogger) Warn() LogEvent { return l.newEvent(l.zlog.Warn(), zerolog.WarnLevel) }

// Fatal creates a fatal-level event. Sending it exits the process.
func (l *ZeroLogger) Fatal() LogEvent { return l.newEvent(l.zlog.Fatal(), zerolog.FatalLevel) }
