package pagination

import (
	"slices"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// DefaultMemoCapacity bounds the number of cached calculations.
const DefaultMemoCapacity = 1000

var (
	memoLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cryptomark_pagination_memo_lookups_total",
		Help: "Pagination memo lookups by result (hit, miss)",
	}, []string{"result"})

	memoEvictions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cryptomark_pagination_memo_evictions_total",
		Help: "Pagination memo entries evicted on overflow",
	})
)

type memoKey struct {
	currentPage  int
	totalItems   int
	itemsPerPage int
	cfg          Config
}

// Memo is a bounded cache in front of Compute. The oldest entry is evicted
// when capacity is exceeded. Results are copies, so callers may mutate them.
type Memo struct {
	mu       sync.Mutex
	capacity int
	entries  map[memoKey]Calculation
	order    []memoKey
}

// NewMemo creates a memo holding at most capacity results.
// A capacity below 1 falls back to DefaultMemoCapacity.
func NewMemo(capacity int) *Memo {
	if capacity < 1 {
		capacity = DefaultMemoCapacity
	}
	return &Memo{
		capacity: capacity,
		entries:  make(map[memoKey]Calculation, capacity),
		order:    make([]memoKey, 0, capacity),
	}
}

// Compute returns the cached calculation for the arguments, computing and
// storing it on a miss.
func (m *Memo) Compute(currentPage, totalItems, itemsPerPage int, cfg Config) Calculation {
	key := memoKey{currentPage, totalItems, itemsPerPage, cfg}

	m.mu.Lock()
	defer m.mu.Unlock()

	if calc, ok := m.entries[key]; ok {
		memoLookups.WithLabelValues("hit").Inc()
		return clone(calc)
	}
	memoLookups.WithLabelValues("miss").Inc()

	calc := Compute(currentPage, totalItems, itemsPerPage, cfg)
	m.entries[key] = calc
	m.order = append(m.order, key)

	if len(m.order) > m.capacity {
		oldest := m.order[0]
		m.order = m.order[1:]
		delete(m.entries, oldest)
		memoEvictions.Inc()
	}

	return clone(calc)
}

// Len returns the number of cached results.
func (m *Memo) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Clear drops all cached results.
func (m *Memo) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	clear(m.entries)
	m.order = m.order[:0]
}

func clone(c Calculation) Calculation {
	c.Navigation.VisiblePages = slices.Clone(c.Navigation.VisiblePages)
	return c
}
