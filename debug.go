package sio

import (
	"github.com/karagenc/sio-core/debug"
	"github.com/rs/zerolog"
)

type Debugger = debug.Debugger

func NewNoopDebugger() Debugger { return debug.NewNoop() }

// NewPrintDebugger prints to stdout. Lines are colored by goroutine.
func NewPrintDebugger() Debugger { return debug.NewPrint() }

func NewZerologDebugger(logger zerolog.Logger) Debugger { return debug.NewZerolog(logger) }
