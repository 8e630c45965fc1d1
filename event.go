package reqlog

import (
	"time"

	"github.com/rs/zerolog"
)

// LogEvent provides a fluent interface for structured logging with type-safe field methods.
// It wraps zerolog.Event. Events are prefilled with the correlation fields of
// the context they were created from and must be finished with Msg, Msgf or Send.
type LogEvent interface {
	Str(key, val string) LogEvent
	Strs(key string, vals []string) LogEvent
	Int(key string, val int) LogEvent
	Int64(key string, val int64) LogEvent
	Float64(key string, val float64) LogEvent
	Bool(key string, val bool) LogEvent
	Time(key string, val time.Time) LogEvent
	Dur(key string, val time.Duration) LogEvent
	Err(err error) LogEvent
	AnErr(key string, err error) LogEvent
	Interface(key string, val any) LogEvent
	// Payload adds val sanitized the way request bodies are.
	Payload(key string, val any) LogEvent
	Msg(msg string)
	Msgf(format string, v ...any)
	Send()
}

// logEvent implements LogEvent by wrapping zerolog.Event. A nil event is a no-op.
type logEvent struct {
	event *zerolog.Event
	opts  SanitizerOptions
	// done releases the in-flight slot taken when the event was created.
	done func()
}

func newLogEvent(e *zerolog.Event, opts SanitizerOptions, done func()) LogEvent {
	return &logEvent{event: e, opts: opts, done: done}
}

func (e *logEvent) Str(key, val string) LogEvent {
	if e.event != nil {
		e.event.Str(key, val)
	}
	return e
}

func (e *logEvent) Strs(key string, vals []string) LogEvent {
	if e.event != nil {
		e.event.Strs(key, vals)
	}
	return e
}

func (e *logEvent) Int(key string, val int) LogEvent {
	if e.event != nil {
		e.event.Int(key, val)
	}
	return e
}

func (e *logEvent) Int64(key string, val int64) LogEvent {
	if e.event != nil {
		e.event.Int64(key, val)
	}
	return e
}

func (e *logEvent) Float64(key string, val float64) LogEvent {
	if e.event != nil {
		e.event.Float64(key, val)
	}
	return e
}

func (e *logEvent) Bool(key string, val bool) LogEvent {
	if e.event != nil {
		e.event.Bool(key, val)
	}
	return e
}

func (e *logEvent) Time(key string, val time.Time) LogEvent {
	if e.event != nil {
		e.event.Time(key, val)
	}
	return e
}

func (e *logEvent) Dur(key string, val time.Duration) LogEvent {
	if e.event != nil {
		e.event.Dur(key, val)
	}
	return e
}

func (e *logEvent) Err(err error) LogEvent {
	if e.event != nil {
		withErrorChain(e.event, zerolog.ErrorFieldName, err)
	}
	return e
}

func (e *logEvent) AnErr(key string, err error) LogEvent {
	if e.event != nil {
		withErrorChain(e.event, key, err)
	}
	return e
}

func (e *logEvent) Interface(key string, val any) LogEvent {
	if e.event != nil {
		e.event.Interface(key, val)
	}
	return e
}

func (e *logEvent) Payload(key string, val any) LogEvent {
	if e.event != nil {
		e.event.Str(key, SanitizePayload(val, e.opts))
	}
	return e
}

func (e *logEvent) Msg(msg string) {
	defer e.finish()
	if e.event != nil {
		e.event.Msg(msg)
	}
}

func (e *logEvent) Msgf(format string, v ...any) {
	defer e.finish()
	if e.event != nil {
		e.event.Msgf(format, v...)
	}
}

func (e *logEvent) Send() {
	defer e.finish()
	if e.event != nil {
		e.event.Send()
	}
}

func (e *logEvent) finish() {
	if e.done != nil {
		e.done()
		e.done = nil
	}
}
