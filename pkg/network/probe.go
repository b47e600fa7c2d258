package network

import (
	"context"
	"net"
	"time"

	"github.com/rs/zerolog/log"
)

// Checker reports whether the network is currently reachable.
type Checker interface {
	Check(ctx context.Context) bool
}

// CheckerFunc adapts a function to the Checker interface.
type CheckerFunc func(ctx context.Context) bool

// Check calls f(ctx).
func (f CheckerFunc) Check(ctx context.Context) bool { return f(ctx) }

// DialChecker considers the network reachable when a TCP connection to
// Address can be opened within Timeout.
type DialChecker struct {
	Address string
	Timeout time.Duration
}

// Check dials Address and closes the connection immediately.
func (d DialChecker) Check(ctx context.Context) bool {
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	dialer := net.Dialer{Timeout: timeout}

	conn, err := dialer.DialContext(ctx, "tcp", d.Address)
	if err != nil {
		log.Debug().Err(err).Str("address", d.Address).Msg("Connectivity probe failed")
		return false
	}
	_ = conn.Close()
	return true
}

// InitialStatus runs checker once to seed a Monitor at construction.
func InitialStatus(ctx context.Context, checker Checker) bool {
	return checker.Check(ctx)
}

// Prober feeds periodic checker results into a Monitor. It plays the role of
// the platform's online/offline event source.
type Prober struct {
	monitor  *Monitor
	checker  Checker
	interval time.Duration
}

// NewProber creates a prober. Interval defaults to 15 seconds.
func NewProber(monitor *Monitor, checker Checker, interval time.Duration) *Prober {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &Prober{monitor: monitor, checker: checker, interval: interval}
}

// Run probes every interval until ctx is cancelled. Each probe produces
// exactly one signal on the monitor.
func (p *Prober) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.ProbeOnce(ctx)
		}
	}
}

// ProbeOnce runs a single check and signals the monitor with the result.
func (p *Prober) ProbeOnce(ctx context.Context) bool {
	online := p.checker.Check(ctx)
	if ctx.Err() != nil {
		return p.monitor.Status()
	}
	p.monitor.HandleSignal(online)
	return online
}
