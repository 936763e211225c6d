// Package metrics provides minimal byte-accounting primitives used by
// ClientConn to track network traffic.
package metrics

import "sync/atomic"

// Metric is a single named measurement a connection tracks.
type Metric interface {
	Adjust(delta int64)
	Value() int64
}

// Gauge is an atomically-updated counter, used for the connection's
// bytes-received / bytes-sent tallies.
type Gauge struct {
	v int64
}

// Adjust adds delta to the gauge, which may be negative.
func (g *Gauge) Adjust(delta int64) { atomic.AddInt64(&g.v, delta) }

// Value returns the current gauge reading.
func (g *Gauge) Value() int64 { return atomic.LoadInt64(&g.v) }
