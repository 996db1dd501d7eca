// Package metrics instruments adapters with Prometheus counters.
package metrics

import (
	"context"

	"github.com/karagenc/sio-core/adapter"
	"github.com/karagenc/sio-core/internal/sync"
	"github.com/karagenc/sio-core/parser"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "sio"

type Collector struct {
	broadcasts *prometheus.CounterVec
	operations *prometheus.CounterVec
	errors     *prometheus.CounterVec
	sockets    *prometheus.GaugeVec
}

// NewCollector registers the adapter metrics with reg.
// A nil reg falls back to prometheus.DefaultRegisterer.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := &Collector{
		broadcasts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "adapter",
			Name:      "broadcasts_total",
			Help:      "Broadcasts handed to the adapter.",
		}, []string{"namespace"}),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "adapter",
			Name:      "operations_total",
			Help:      "Membership operations handed to the adapter.",
		}, []string{"namespace", "op"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "adapter",
			Name:      "errors_total",
			Help:      "Adapter operations that returned an error.",
		}, []string{"namespace", "op"}),
		sockets: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "adapter",
			Name:      "sockets",
			Help:      "Sockets registered with the adapter of this node.",
		}, []string{"namespace"}),
	}
	reg.MustRegister(c.broadcasts, c.operations, c.errors, c.sockets)
	return c
}

// Instrument wraps every adapter produced by creator.
func (c *Collector) Instrument(creator adapter.Creator) adapter.Creator {
	return func(nsp adapter.Namespace) adapter.Adapter {
		return &instrumentedAdapter{
			Adapter:    creator(nsp),
			c:          c,
			nsp:        nsp.Name(),
			registered: make(map[adapter.SocketID]struct{}),
		}
	}
}

type instrumentedAdapter struct {
	adapter.Adapter
	c   *Collector
	nsp string

	// The sockets gauge moves only when a socket enters or leaves this set.
	mu         sync.Mutex
	registered map[adapter.SocketID]struct{}
}

func (a *instrumentedAdapter) observe(op string, err error) error {
	a.c.operations.WithLabelValues(a.nsp, op).Inc()
	if err != nil {
		a.c.errors.WithLabelValues(a.nsp, op).Inc()
	}
	return err
}

func (a *instrumentedAdapter) AddSocket(ctx context.Context, sid adapter.SocketID) error {
	err := a.Adapter.AddSocket(ctx, sid)
	if err == nil {
		a.mu.Lock()
		if _, ok := a.registered[sid]; !ok {
			a.registered[sid] = struct{}{}
			a.c.sockets.WithLabelValues(a.nsp).Inc()
		}
		a.mu.Unlock()
	}
	return a.observe("add_socket", err)
}

func (a *instrumentedAdapter) Join(ctx context.Context, sid adapter.SocketID, rooms ...adapter.Room) error {
	return a.observe("join", a.Adapter.Join(ctx, sid, rooms...))
}

func (a *instrumentedAdapter) Leave(ctx context.Context, sid adapter.SocketID, room adapter.Room) error {
	return a.observe("leave", a.Adapter.Leave(ctx, sid, room))
}

// Local state is cleared even when RemoveSocket fails.
func (a *instrumentedAdapter) RemoveSocket(ctx context.Context, sid adapter.SocketID) error {
	err := a.Adapter.RemoveSocket(ctx, sid)
	a.mu.Lock()
	if _, ok := a.registered[sid]; ok {
		delete(a.registered, sid)
		a.c.sockets.WithLabelValues(a.nsp).Dec()
	}
	a.mu.Unlock()
	return a.observe("remove_socket", err)
}

func (a *instrumentedAdapter) Broadcast(ctx context.Context, packet *parser.Packet, opts *adapter.BroadcastOptions) error {
	a.c.broadcasts.WithLabelValues(a.nsp).Inc()
	return a.observe("broadcast", a.Adapter.Broadcast(ctx, packet, opts))
}
