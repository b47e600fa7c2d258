// Package network tracks process-wide connectivity and fans out changes to
// registered listeners.
//
// A Monitor is created once at startup and handed to whatever needs to query
// or subscribe to it. State only changes through HandleSignal, which a Prober
// (or a test) calls with each observed connectivity result.
package network

import (
	"reflect"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/cryptomark/pkg/logging"
)

var (
	networkOnline = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "cryptomark_network_online",
		Help: "1 when the network monitor reports online, 0 otherwise",
	})

	networkSignalsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cryptomark_network_signals_total",
		Help: "Connectivity signals received by state",
	}, []string{"state"})
)

// Listener receives connectivity changes.
//
// Listener identity is interface equality, so implementations must be
// comparable (typically a pointer). AddListener ignores listeners whose
// dynamic type is not comparable, such as func types; register plain
// functions with Subscribe instead.
type Listener interface {
	OnNetworkChange(online bool)
}

// funcListener gives a function a comparable identity.
type funcListener struct {
	fn func(online bool)
}

func (l *funcListener) OnNetworkChange(online bool) { l.fn(online) }

// Monitor holds the current connectivity state.
type Monitor struct {
	mu        sync.Mutex
	online    bool
	listeners []Listener
	logger    zerolog.Logger
}

// NewMonitor creates a monitor seeded with the initial connectivity state.
func NewMonitor(initial bool) *Monitor {
	networkOnline.Set(boolToFloat(initial))
	return &Monitor{
		online: initial,
		logger: logging.NewLogger("network"),
	}
}

// Status returns the last known connectivity state.
func (m *Monitor) Status() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// AddListener registers l. Registering the same listener twice is a no-op.
func (m *Monitor) AddListener(l Listener) {
	if l == nil {
		return
	}
	if !hasIdentity(l) {
		m.logger.Warn().Str("type", reflect.TypeOf(l).String()).Msg("Ignoring listener without comparable identity")
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.listeners {
		if existing == l {
			return
		}
	}
	m.listeners = append(m.listeners, l)
}

// RemoveListener unregisters l. Removing an unknown listener is a no-op.
func (m *Monitor) RemoveListener(l Listener) {
	if l == nil || !hasIdentity(l) {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, existing := range m.listeners {
		if existing == l {
			m.listeners = append(m.listeners[:i:i], m.listeners[i+1:]...)
			return
		}
	}
}

// Subscribe registers fn and returns a function that unregisters it.
func (m *Monitor) Subscribe(fn func(online bool)) (unsubscribe func()) {
	l := &funcListener{fn: fn}
	m.AddListener(l)
	return func() { m.RemoveListener(l) }
}

// ListenerCount returns the number of registered listeners.
func (m *Monitor) ListenerCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.listeners)
}

// HandleSignal records a connectivity signal and notifies every registered
// listener once, in registration order, on the caller's goroutine. Signals
// that repeat the current state are still broadcast.
func (m *Monitor) HandleSignal(online bool) {
	m.mu.Lock()
	changed := m.online != online
	m.online = online
	listeners := make([]Listener, len(m.listeners))
	copy(listeners, m.listeners)
	m.mu.Unlock()

	networkOnline.Set(boolToFloat(online))
	networkSignalsTotal.WithLabelValues(stateLabel(online)).Inc()

	if changed {
		m.logger.Info().Bool("online", online).Int("listeners", len(listeners)).Msg("Network state changed")
	} else {
		m.logger.Debug().Bool("online", online).Msg("Network state unchanged")
	}

	for _, l := range listeners {
		l.OnNetworkChange(online)
	}
}

func hasIdentity(l Listener) bool {
	return reflect.TypeOf(l).Comparable()
}

func stateLabel(online bool) string {
	if online {
		return "online"
	}
	return "offline"
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
