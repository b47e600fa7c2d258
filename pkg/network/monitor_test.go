package network

import (
	"context"
	"net"
	"reflect"
	"sync/atomic"
	"testing"
	"time"
)

type recordingListener struct {
	name  string
	calls *[]string
	seen  []bool
}

func (r *recordingListener) OnNetworkChange(online bool) {
	r.seen = append(r.seen, online)
	*r.calls = append(*r.calls, r.name)
}

func TestNewMonitor(t *testing.T) {
	if !NewMonitor(true).Status() {
		t.Error("Status should be true")
	}
	if NewMonitor(false).Status() {
		t.Error("Status should be false")
	}
}

func TestHandleSignal_FanOutInOrder(t *testing.T) {
	m := NewMonitor(true)
	var order []string
	a := &recordingListener{name: "a", calls: &order}
	b := &recordingListener{name: "b", calls: &order}

	m.AddListener(a)
	m.AddListener(b)
	m.HandleSignal(false)

	if m.Status() {
		t.Error("Status should be false after offline signal")
	}
	if !reflect.DeepEqual(order, []string{"a", "b"}) {
		t.Errorf("call order = %v, want [a b]", order)
	}
	if !reflect.DeepEqual(a.seen, []bool{false}) || !reflect.DeepEqual(b.seen, []bool{false}) {
		t.Errorf("a=%v b=%v, want one false each", a.seen, b.seen)
	}
}

func TestHandleSignal_RepeatsUnchangedValue(t *testing.T) {
	m := NewMonitor(true)
	var order []string
	l := &recordingListener{name: "l", calls: &order}
	m.AddListener(l)

	m.HandleSignal(true)
	m.HandleSignal(true)

	if len(l.seen) != 2 {
		t.Errorf("listener called %d times, want 2", len(l.seen))
	}
}

func TestAddListener_Idempotent(t *testing.T) {
	m := NewMonitor(true)
	var order []string
	l := &recordingListener{name: "l", calls: &order}

	m.AddListener(l)
	m.AddListener(l)
	m.AddListener(nil)

	if m.ListenerCount() != 1 {
		t.Fatalf("ListenerCount = %d, want 1", m.ListenerCount())
	}

	m.HandleSignal(false)
	if len(l.seen) != 1 {
		t.Errorf("listener called %d times, want 1", len(l.seen))
	}
}

func TestRemoveListener(t *testing.T) {
	m := NewMonitor(true)
	var order []string
	a := &recordingListener{name: "a", calls: &order}
	b := &recordingListener{name: "b", calls: &order}
	c := &recordingListener{name: "c", calls: &order}

	m.RemoveListener(a) // not registered: no-op
	m.AddListener(a)
	m.AddListener(b)
	m.AddListener(c)
	m.RemoveListener(b)

	m.HandleSignal(false)
	if !reflect.DeepEqual(order, []string{"a", "c"}) {
		t.Errorf("call order = %v, want [a c]", order)
	}
}

func TestSubscribe(t *testing.T) {
	m := NewMonitor(false)
	var got []bool

	unsubscribe := m.Subscribe(func(online bool) { got = append(got, online) })
	m.HandleSignal(true)
	unsubscribe()
	m.HandleSignal(false)

	if !reflect.DeepEqual(got, []bool{true}) {
		t.Errorf("got %v, want [true]", got)
	}
	if m.ListenerCount() != 0 {
		t.Errorf("ListenerCount = %d after unsubscribe", m.ListenerCount())
	}
}

func TestHandleSignal_ListenerMayDetachItself(t *testing.T) {
	m := NewMonitor(true)
	calls := 0

	var unsubscribe func()
	unsubscribe = m.Subscribe(func(bool) {
		calls++
		unsubscribe()
	})
	other := 0
	m.Subscribe(func(bool) { other++ })

	m.HandleSignal(false)
	m.HandleSignal(true)

	if calls != 1 {
		t.Errorf("self-detaching listener called %d times, want 1", calls)
	}
	if other != 2 {
		t.Errorf("other listener called %d times, want 2", other)
	}
}

// funcTypeListener is a Listener whose dynamic type cannot be compared.
type funcTypeListener func(online bool)

func (f funcTypeListener) OnNetworkChange(online bool) { f(online) }

func TestAddListener_IgnoresUncomparableListeners(t *testing.T) {
	m := NewMonitor(true)
	calls := 0
	f := funcTypeListener(func(bool) { calls++ })
	g := funcTypeListener(func(bool) { calls++ })

	m.AddListener(f)
	m.AddListener(g)
	m.AddListener(f)
	if m.ListenerCount() != 0 {
		t.Errorf("ListenerCount = %d, want 0", m.ListenerCount())
	}

	m.RemoveListener(f)
	m.RemoveListener(nil)
	m.HandleSignal(false)
	if calls != 0 {
		t.Errorf("uncomparable listener called %d times", calls)
	}
}

func TestSubscribe_SameFunctionTwice(t *testing.T) {
	m := NewMonitor(true)
	calls := 0
	fn := func(bool) { calls++ }

	first := m.Subscribe(fn)
	second := m.Subscribe(fn)
	if m.ListenerCount() != 2 {
		t.Fatalf("ListenerCount = %d, want 2", m.ListenerCount())
	}

	m.HandleSignal(false)
	first()
	m.HandleSignal(true)
	second()
	second()

	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	if m.ListenerCount() != 0 {
		t.Errorf("ListenerCount = %d after both unsubscribed", m.ListenerCount())
	}
}

func TestProber_ProbeOnce(t *testing.T) {
	m := NewMonitor(true)
	var signals []bool
	m.Subscribe(func(online bool) { signals = append(signals, online) })

	p := NewProber(m, CheckerFunc(func(context.Context) bool { return false }), time.Minute)
	if p.ProbeOnce(context.Background()) {
		t.Error("ProbeOnce should report offline")
	}
	if m.Status() {
		t.Error("monitor should be offline")
	}
	if !reflect.DeepEqual(signals, []bool{false}) {
		t.Errorf("signals = %v", signals)
	}
}

func TestProber_Run(t *testing.T) {
	m := NewMonitor(false)
	var probes atomic.Int32
	checker := CheckerFunc(func(context.Context) bool {
		probes.Add(1)
		return true
	})

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Millisecond)
	defer cancel()

	err := NewProber(m, checker, 20*time.Millisecond).Run(ctx)
	if err == nil {
		t.Error("Run should return the context error")
	}
	if probes.Load() < 2 {
		t.Errorf("expected several probes, got %d", probes.Load())
	}
	if !m.Status() {
		t.Error("monitor should be online after successful probes")
	}
}

func TestDialChecker(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()

	ctx := context.Background()
	if !(DialChecker{Address: addr, Timeout: time.Second}).Check(ctx) {
		t.Error("expected reachable listener")
	}
	if !InitialStatus(ctx, DialChecker{Address: addr}) {
		t.Error("InitialStatus should report online")
	}

	ln.Close()
	if (DialChecker{Address: addr, Timeout: 200 * time.Millisecond}).Check(ctx) {
		t.Error("expected closed listener to be unreachable")
	}
}
