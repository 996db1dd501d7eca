package sio

import (
	"github.com/karagenc/sio-core/internal/sync"
	"github.com/karagenc/sio-core/transport"
)

// packetQueue is the ordered outbound queue of a connection.
// Buffers are sent in the order they were added, by a single writer.
type packetQueue struct {
	mu       sync.Mutex
	buffers  [][]byte
	draining bool

	ready     chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

func newPacketQueue() *packetQueue {
	return &packetQueue{
		ready: make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
}

// add returns false if the queue no longer accepts buffers.
func (pq *packetQueue) add(buffers ...[]byte) bool {
	pq.mu.Lock()
	if pq.draining {
		pq.mu.Unlock()
		return false
	}
	pq.buffers = append(pq.buffers, buffers...)
	pq.mu.Unlock()

	pq.signal()
	return true
}

func (pq *packetQueue) signal() {
	select {
	case pq.ready <- struct{}{}:
	default:
	}
}

func (pq *packetQueue) get() (buffers [][]byte, draining bool) {
	pq.mu.Lock()
	defer pq.mu.Unlock()
	buffers = pq.buffers
	pq.buffers = nil
	return buffers, pq.draining
}

// poll blocks until buffers are available.
// ok is false once the queue is closed, or drained after closeGracefully.
func (pq *packetQueue) poll() (buffers [][]byte, ok bool) {
	for {
		select {
		case <-pq.done:
			return nil, false
		default:
		}

		buffers, draining := pq.get()
		if len(buffers) != 0 {
			return buffers, true
		}
		if draining {
			return nil, false
		}

		select {
		case <-pq.ready:
		case <-pq.done:
			return nil, false
		}
	}
}

// closeGracefully stops accepting buffers.
// Buffers already queued are still handed out by poll.
func (pq *packetQueue) closeGracefully() {
	pq.mu.Lock()
	pq.draining = true
	pq.mu.Unlock()
	pq.signal()
}

// close drops every queued buffer and wakes up the writer.
func (pq *packetQueue) close() {
	pq.mu.Lock()
	pq.draining = true
	pq.buffers = nil
	pq.mu.Unlock()
	pq.closeOnce.Do(func() { close(pq.done) })
}

// pollAndSend runs until the queue is closed or a send fails.
func (pq *packetQueue) pollAndSend(conn transport.Conn) error {
	for {
		buffers, ok := pq.poll()
		if !ok {
			return nil
		}
		for _, buf := range buffers {
			err := conn.Send(buf)
			if err != nil {
				return err
			}
		}
	}
}
