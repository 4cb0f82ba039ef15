package trust

import (
	"fmt"
	"io"
	"sync"

	"hallway/src/console"
	"hallway/src/lib/shared"
)

type MaskLevel int

const (
	Nothing   MaskLevel = 0x0
	ErrorMask MaskLevel = 0x1
	WarnMask  MaskLevel = 0x2
	InfoMask  MaskLevel = 0x4
	DebugMask MaskLevel = 0x8
	TraceMask MaskLevel = 0x10
	fatalMask MaskLevel = 0x80
)

var (
	mu     sync.Mutex
	level  = defaultLevel()
	output io.Writer = console.Default
)

func defaultLevel() MaskLevel {
	l := fatalMask | ErrorMask | WarnMask | InfoMask
	if shared.Debug {
		l |= DebugMask
	}
	if shared.Trace {
		l |= TraceMask
	}
	return l
}

// SetLevel lets you set an error mask directly. You can pass in something like
// ErrorMask | DebugMask to control exactly what gets printed.  It returns the
// previous mask.
func SetLevel(mask MaskLevel) MaskLevel {
	mu.Lock()
	defer mu.Unlock()
	r := level &^ fatalMask
	level = (mask & 0x1f) | fatalMask
	return r
}

func Level() MaskLevel {
	mu.Lock()
	defer mu.Unlock()
	return level
}

// SetOutput points the log somewhere other than the console. It returns the
// previous writer.
func SetOutput(w io.Writer) io.Writer {
	mu.Lock()
	defer mu.Unlock()
	prev := output
	output = w
	return prev
}

func LevelToString() string {
	l := Level()
	result := ""
	for _, m := range []struct {
		mask MaskLevel
		name string
	}{{ErrorMask, "error"}, {WarnMask, "warn"}, {InfoMask, "info"}, {DebugMask, "debug"}, {TraceMask, "trace"}} {
		if l&m.mask == 0 {
			continue
		}
		if result != "" {
			result += " "
		}
		result += m.name
	}
	return result
}

func prefix(l MaskLevel) string {
	switch {
	case l&fatalMask > 0:
		return "[fatal] "
	case l&ErrorMask > 0:
		return "[error] "
	case l&WarnMask > 0:
		return "[warn] "
	case l&InfoMask > 0:
		return "[info] "
	case l&DebugMask > 0:
		return "[debug] "
	case l&TraceMask > 0:
		return "[trace] "
	}
	return ""
}

func logf(l MaskLevel, format string, params ...interface{}) {
	mu.Lock()
	lv, w := level, output
	mu.Unlock()
	if lv&l == 0 || w == nil {
		return
	}
	if len(format) == 0 || format[len(format)-1] != '\n' {
		format += "\n"
	}
	//one write so the line can't be split by someone else's
	_, _ = io.WriteString(w, prefix(l)+fmt.Sprintf(format, params...))
}

// FatalError is what Fatalf panics with. The fatal package turns it into
// a panic report like any other.
type FatalError struct {
	Message string
}

func (f *FatalError) Error() string {
	return f.Message
}

//Fatalf prints the given log message (format + params) and then panics,
//handing control to the panic handler.  Fatalf is not maskable.
func Fatalf(format string, params ...interface{}) {
	logf(fatalMask, format, params...)
	panic(&FatalError{Message: fmt.Sprintf(format, params...)})
}

//Errorf prints the given log message (format + params) using the ErrorMask level.
func Errorf(format string, params ...interface{}) {
	logf(ErrorMask, format, params...)
}

//Warnf prints the given log message (format + params) using the WarnMask level.
func Warnf(format string, params ...interface{}) {
	logf(WarnMask, format, params...)
}

//Infof prints the given log message (format + params) using the InfoMask level.
func Infof(format string, params ...interface{}) {
	logf(InfoMask, format, params...)
}

//Debugf prints the given log message (format + params) using the DebugMask level.
func Debugf(format string, params ...interface{}) {
	logf(DebugMask, format, params...)
}

//Tracef prints the given log message (format + params) using the TraceMask level.
func Tracef(format string, params ...interface{}) {
	logf(TraceMask, format, params...)
}
