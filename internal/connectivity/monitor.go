package connectivity

import (
	"context"
	"log"
	"sync"
	"time"
)

// Listener is called with the new connectivity state whenever it changes.
type Listener func(online bool)

// ProbeFunc checks reachability of the backend; nil means online.
type ProbeFunc func(ctx context.Context) error

// IMonitor exposes the device's connectivity as a boolean plus a
// subscribe/unsubscribe mechanism. The sync processor subscribes to trigger a
// queue drain when connectivity returns; the UI/network layer can also report
// state directly via SetOnline.
type IMonitor interface {
	IsOnline() bool
	SetOnline(online bool)
	Subscribe(l Listener) (unsubscribe func())
	StartProbe(ctx context.Context)
}

// monitor implements IMonitor. The device starts out assumed online; the
// first failed probe or explicit SetOnline(false) flips it.
type monitor struct {
	mu        sync.Mutex
	online    bool
	listeners map[int]Listener
	nextID    int

	probe    ProbeFunc
	interval time.Duration
}

// NewMonitor creates a connectivity monitor. probe may be nil if only
// explicit SetOnline reporting is used.
func NewMonitor(probe ProbeFunc, interval time.Duration) IMonitor {
	return &monitor{
		online:    true,
		listeners: make(map[int]Listener),
		probe:     probe,
		interval:  interval,
	}
}

func (m *monitor) IsOnline() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// SetOnline records the new state and notifies subscribers on a change.
// Listeners run outside the lock so they may call back into the monitor.
func (m *monitor) SetOnline(online bool) {
	m.mu.Lock()
	if m.online == online {
		m.mu.Unlock()
		return
	}
	m.online = online
	notify := make([]Listener, 0, len(m.listeners))
	for _, l := range m.listeners {
		notify = append(notify, l)
	}
	m.mu.Unlock()

	log.Printf("Connectivity changed: online=%v", online)
	for _, l := range notify {
		l(online)
	}
}

func (m *monitor) Subscribe(l Listener) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = l
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.listeners, id)
	}
}

// StartProbe runs the reachability probe on a fixed interval until ctx is
// canceled. Probe outcomes feed SetOnline, which de-duplicates transitions.
func (m *monitor) StartProbe(ctx context.Context) {
	if m.probe == nil {
		return
	}
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := m.probe(ctx)
			if ctx.Err() != nil {
				return
			}
			m.SetOnline(err == nil)
		}
	}
}
