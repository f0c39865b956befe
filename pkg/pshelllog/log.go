// Package pshelllog provides the leveled logging used throughout the
// pshell packages. Log levels supported: NONE, ERROR, WARNING, INFO (spec
// §7) -- absence of a user callback routes messages to a logrus-backed
// default sink instead of bare stdlib log, matching the corpus convention
// of reaching for logrus once a project has more than a trivial amount of
// logging (github.com/nabbar/golib, gitlab.com/xerra/common/go-tcpinfo).
package pshelllog

import (
	"container/ring"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

// Level gates which messages reach the active sink.
type Level int

const (
	// None disables all logging.
	None Level = iota
	Error
	Warning
	Info
)

func (l Level) String() string {
	switch l {
	case None:
		return "none"
	case Error:
		return "error"
	case Warning:
		return "warning"
	case Info:
		return "info"
	}
	return fmt.Sprintf("Level(%d)", int(l))
}

// Func is a user-supplied log sink. It receives the level and a fully
// formatted message (no trailing newline).
type Func func(level Level, msg string)

var (
	mu       sync.Mutex
	level    = Warning
	logFunc  Func
	fallback = logrus.New()
	history  = ring.New(500)
)

func init() {
	fallback.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
}

// SetLevel sets the package-wide log level gate.
func SetLevel(l Level) {
	mu.Lock()
	defer mu.Unlock()
	level = l
}

// GetLevel returns the current log level gate.
func GetLevel() Level {
	mu.Lock()
	defer mu.Unlock()
	return level
}

// SetLogFunction registers fn as the sink for all future log messages. Pass
// nil to revert to the default logrus-backed sink, matching
// PshellControl.py's setLogFunction(None) behavior of restoring the
// default print-based logger.
func SetLogFunction(fn Func) {
	mu.Lock()
	defer mu.Unlock()
	logFunc = fn
}

func record(l Level, msg string) {
	mu.Lock()
	fn := logFunc
	history = history.Next()
	history.Value = fmt.Sprintf("%s: %s", l, msg)
	mu.Unlock()

	if fn != nil {
		fn(l, msg)
		return
	}

	switch l {
	case Error:
		fallback.Error(msg)
	case Warning:
		fallback.Warn(msg)
	case Info:
		fallback.Info(msg)
	}
}

func emit(l Level, format string, args ...interface{}) {
	mu.Lock()
	gate := level
	mu.Unlock()

	if gate < l {
		return
	}

	record(l, fmt.Sprintf(format, args...))
}

// Errorf logs a message at Error level.
func Errorf(format string, args ...interface{}) { emit(Error, format, args...) }

// Warningf logs a message at Warning level.
func Warningf(format string, args ...interface{}) { emit(Warning, format, args...) }

// Infof logs a message at Info level.
func Infof(format string, args ...interface{}) { emit(Info, format, args...) }

// History returns the most recent log lines, oldest first, up to the ring
// buffer's capacity. Grounded on pkg/minilog/ring.go's container/ring
// approach, adapted to this package's leveled Func sink.
func History() []string {
	mu.Lock()
	defer mu.Unlock()

	var res []string
	history.Next().Do(func(v interface{}) {
		if v == nil {
			return
		}
		res = append(res, v.(string))
	})
	return res
}
