// Package debug holds the leveled-by-context debug loggers shared by the
// server, the adapters and the transports.
package debug

import (
	"fmt"
	"io"
	"os"

	"github.com/karagenc/sio-core/internal/sync"
	"github.com/rs/zerolog"
	"github.com/xiegeo/coloredgoroutine"
)

type (
	Debugger interface {
		Log(main string, v ...any)
		WithContext(context string) Debugger
		WithDynamicContext(context string, dynamicContext func() string) Debugger
	}

	noopDebugger struct{}

	printDebugger struct {
		out            io.Writer
		context        string
		dynamicContext func() string
	}

	zerologDebugger struct {
		logger         zerolog.Logger
		context        string
		dynamicContext func() string
	}
)

func NewNoop() Debugger {
	return noopDebugger{}
}

func (d noopDebugger) Log(main string, _v ...any) {}

func (d noopDebugger) WithContext(context string) Debugger { return d }

func (d noopDebugger) WithDynamicContext(context string, _ func() string) Debugger { return d }

// NewPrint writes to stdout, coloring each line by goroutine.
func NewPrint() Debugger {
	return NewPrintTo(coloredgoroutine.Colors(os.Stdout))
}

func NewPrintTo(w io.Writer) Debugger {
	return &printDebugger{out: w}
}

var printMu sync.Mutex

// Log each field, adding colon if there's a subsequent field.
func (d *printDebugger) Log(main string, _v ...any) {
	printMu.Lock()
	defer printMu.Unlock()

	fields := make([]any, 0, 3+len(_v))
	if d.context != "" {
		fields = append(fields, d.context)
	}
	if d.dynamicContext != nil {
		if dc := d.dynamicContext(); dc != "" {
			fields = append(fields, dc)
		}
	}
	if main != "" {
		fields = append(fields, main)
	}
	fields = append(fields, _v...)

	for i, f := range fields {
		if i != 0 {
			fmt.Fprint(d.out, ": ")
		}
		fmt.Fprint(d.out, f)
	}
	fmt.Fprint(d.out, "\n")
}

func (d printDebugger) WithContext(context string) Debugger {
	d.context = context
	return &d
}

func (d printDebugger) WithDynamicContext(context string, dynamicContext func() string) Debugger {
	d.context = context
	d.dynamicContext = dynamicContext
	return &d
}

// NewZerolog logs at debug level through the given logger.
// Context strings become the "component" field.
func NewZerolog(logger zerolog.Logger) Debugger {
	return &zerologDebugger{logger: logger}
}

func (d *zerologDebugger) Log(main string, v ...any) {
	e := d.logger.Debug()
	if !e.Enabled() {
		return
	}
	if d.context != "" {
		e = e.Str("component", d.context)
	}
	if d.dynamicContext != nil {
		if dc := d.dynamicContext(); dc != "" {
			e = e.Str("state", dc)
		}
	}
	if len(v) > 0 {
		e = e.Interface("args", v)
	}
	e.Msg(main)
}

func (d zerologDebugger) WithContext(context string) Debugger {
	d.context = context
	return &d
}

func (d zerologDebugger) WithDynamicContext(context string, dynamicContext func() string) Debugger {
	d.context = context
	d.dynamicContext = dynamicContext
	return &d
}
