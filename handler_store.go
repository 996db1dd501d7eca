package sio

import (
	"reflect"

	"github.com/karagenc/sio-core/internal/sync"
)

// Handlers are told apart by their code pointer,
// so closures created by the same function literal are removed together.
type handlerStore[T any] struct {
	mu        sync.Mutex
	funcs     []T
	funcsOnce []T
}

func newHandlerStore[T any]() *handlerStore[T] {
	return new(handlerStore[T])
}

func (e *handlerStore[T]) on(handler T) {
	e.mu.Lock()
	e.funcs = append(e.funcs, handler)
	e.mu.Unlock()
}

func (e *handlerStore[T]) once(handler T) {
	e.mu.Lock()
	e.funcsOnce = append(e.funcsOnce, handler)
	e.mu.Unlock()
}

func (e *handlerStore[T]) off(handlers ...T) {
	e.mu.Lock()
	defer e.mu.Unlock()

	remove := func(slice []T) []T {
		kept := slice[:0]
		for _, h := range slice {
			if !containsHandler(handlers, h) {
				kept = append(kept, h)
			}
		}
		clear(slice[len(kept):])
		return kept
	}

	e.funcs = remove(e.funcs)
	e.funcsOnce = remove(e.funcsOnce)
}

func containsHandler[T any](handlers []T, h T) bool {
	p := reflect.ValueOf(h).Pointer()
	for _, _h := range handlers {
		if reflect.ValueOf(_h).Pointer() == p {
			return true
		}
	}
	return false
}

func (e *handlerStore[T]) offAll() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.funcs = nil
	e.funcsOnce = nil
}

func (e *handlerStore[T]) getAll() (handlers []T) {
	e.mu.Lock()
	defer e.mu.Unlock()

	handlers = make([]T, 0, len(e.funcs)+len(e.funcsOnce))
	handlers = append(handlers, e.funcs...)
	handlers = append(handlers, e.funcsOnce...)
	e.funcsOnce = nil
	return
}
