// Package logger implements a small structured logger: a LogWrapper that
// accumulates fields (WithField, WithError) and a pluggable LogFunc that
// decides how a level/fields/message triple is actually rendered. The
// server and client engines log exclusively through a *LogWrapper so a
// host can swap NewSimpleLogFunc for one that forwards to whatever
// logging stack their own process already uses.
package logger

import (
	"fmt"
	"sort"
	"strings"
)

// Level type
type Level uint32

const (
	// ErrorLevel level. Logs. Used for errors that should definitely be noted.
	// Commonly used for hooks to send errors to an error tracking service.
	ErrorLevel Level = iota
	// WarnLevel level. Non-critical entries that deserve eyes.
	WarnLevel
	// InfoLevel level. General operational entries about what's going on inside the
	// application.
	InfoLevel
	// DebugLevel level. Usually only enabled when debugging. Very verbose logging.
	DebugLevel
	// TraceLevel level. Designates finer-grained informational events than the Debug.
	TraceLevel
)

var LevelMap = map[Level]string{
	ErrorLevel: "error",
	WarnLevel:  "warn",
	InfoLevel:  "info",
	DebugLevel: "debug",
	TraceLevel: "trace",
}

type LogPayload struct {
	Level   Level
	Fields  map[string]interface{}
	Error   error
	Message string
}

type LogFunc func(payload LogPayload)

func NoopLogFunc(payload LogPayload) {}

func NewNoopLogger() *LogWrapper {
	return NewLogWrapper(NoopLogFunc, map[string]interface{}{})
}

// NewSimpleLogFunc returns a simple logging func
func NewSimpleLogFunc(level Level) LogFunc {
	return func(payload LogPayload) {
		if level < payload.Level {
			return
		}

		fields := []string{}
		m := map[string]interface{}{}
		keys := []string{"msg", "level", "error"}

		for k, v := range payload.Fields {
			if k != "msg" && k != "level" {
				keys = append(keys, k)
				m[k] = v
			}
		}

		m["msg"] = payload.Message
		m["level"] = LevelMap[level]

		if payload.Error != nil {
			m["error"] = payload.Error
		}

		sort.Strings(keys)

		for _, k := range keys {
			v := m[k]
			fields = append(fields, fmt.Sprintf("%s=%q", k, v))
		}

		fmt.Println(strings.Join(fields, " "))
	}
}

type LogWrapper struct {
	LogFunc LogFunc
	Fields  map[string]interface{}
	Error   error
}

// NewLogWrapper returns a new log wrapper
func NewLogWrapper(logFunc LogFunc, fields map[string]interface{}) *LogWrapper {
	if fields == nil {
		fields = map[string]interface{}{}
	}

	return &LogWrapper{
		LogFunc: logFunc,
		Fields:  fields,
	}
}

// clone clones a log wrapper to iteratively build the log
func (l *LogWrapper) clone() *LogWrapper {
	newWrapper := &LogWrapper{
		LogFunc: l.LogFunc,
		Error:   l.Error,
		Fields:  map[string]interface{}{},
	}

	for k, v := range l.Fields {
		newWrapper.Fields[k] = v
	}

	return newWrapper
}

func (l *LogWrapper) WithError(err error) *LogWrapper {
	newWrapper := l.clone()
	newWrapper.Error = err
	return newWrapper
}

func (l *LogWrapper) WithField(key string, value interface{}) *LogWrapper {
	newWrapper := l.clone()
	newWrapper.Fields[key] = value
	return newWrapper
}

// WithOperation tags every subsequent log line with the operation id a
// frame-handling call is acting on, so a log stream with many concurrent
// subscriptions can be filtered down to one operation's lifecycle.
func (l *LogWrapper) WithOperation(id string) *LogWrapper {
	return l.WithField("operation_id", id)
}

// WithSession tags every subsequent log line with a session identifier
// (whatever a host's AuthHook resolved one to be), so a log stream
// spanning many connections can be filtered down to one session.
func (l *LogWrapper) WithSession(id string) *LogWrapper {
	return l.WithField("session_id", id)
}

func (l *LogWrapper) Tracef(format string, v ...interface{}) {
	l.LogFunc(LogPayload{
		Level:   TraceLevel,
		Fields:  l.Fields,
		Error:   l.Error,
		Message: fmt.Sprintf(format, v...),
	})
}

func (l *LogWrapper) Debugf(format string, v ...interface{}) {
	l.LogFunc(LogPayload{
		Level:   DebugLevel,
		Fields:  l.Fields,
		Error:   l.Error,
		Message: fmt.Sprintf(format, v...),
	})
}

func (l *LogWrapper) Errorf(format string, v ...interface{}) {
	l.LogFunc(LogPayload{
		Level:   ErrorLevel,
		Fields:  l.Fields,
		Error:   l.Error,
		Message: fmt.Sprintf(format, v...),
	})
}

func (l *LogWrapper) Warnf(format string, v ...interface{}) {
	l.LogFunc(LogPayload{
		Level:   WarnLevel,
		Fields:  l.Fields,
		Error:   l.Error,
		Message: fmt.Sprintf(format, v...),
	})
}

func (l *LogWrapper) Infof(format string, v ...interface{}) {
	l.LogFunc(LogPayload{
		Level:   InfoLevel,
		Fields:  l.Fields,
		Error:   l.Error,
		Message: fmt.Sprintf(format, v...),
	})
}

// SimpleLogger is a *LogWrapper whose level can be changed after
// construction, convenient for a standalone process that wants a quick
// console logger without wiring its own LogFunc.
type SimpleLogger struct {
	*LogWrapper
	level *Level
}

// NewSimpleLogger returns a SimpleLogger printing to stdout at InfoLevel.
func NewSimpleLogger() *SimpleLogger {
	level := InfoLevel
	l := &SimpleLogger{level: &level}
	l.LogWrapper = NewLogWrapper(func(payload LogPayload) {
		NewSimpleLogFunc(*l.level)(payload)
	}, nil)
	return l
}

// SetLevel changes the minimum level this logger prints.
func (l *SimpleLogger) SetLevel(level Level) {
	*l.level = level
}
