//go:build !sio_deadlock

// Package sync aliases the mutex types used across the module so that
// building with the sio_deadlock tag swaps them for go-deadlock's
// instrumented versions.
package sync

import "sync"

type (
	Mutex     = sync.Mutex
	RWMutex   = sync.RWMutex
	Once      = sync.Once
	WaitGroup = sync.WaitGroup
)

const DeadlockDetection = false
