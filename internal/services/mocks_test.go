package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ChiefClarity/clarity-tech-app-sub000/internal/models"
)

// --- Test doubles shared by the service tests ---

// fakeClock gives tests direct control over the engine's notion of now.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(start time.Time) *fakeClock {
	return &fakeClock{now: start}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fakeRemoteClient records remote calls in order and fails on demand. A call
// can also be gated via Block so tests can hold it in flight.
type fakeRemoteClient struct {
	mu       sync.Mutex
	calls    []string       // e.g. "accept:O1"
	failures map[string]int // remaining failures per "kind:id" key
	gates    map[string]chan struct{}
	failAll  bool
}

func newFakeRemoteClient() *fakeRemoteClient {
	return &fakeRemoteClient{
		failures: make(map[string]int),
		gates:    make(map[string]chan struct{}),
	}
}

func (f *fakeRemoteClient) Accept(_ context.Context, offerID string) error {
	return f.call("accept", offerID)
}

func (f *fakeRemoteClient) Decline(_ context.Context, offerID string) error {
	return f.call("decline", offerID)
}

func (f *fakeRemoteClient) Undo(_ context.Context, offerID string) error {
	return f.call("undo", offerID)
}

func (f *fakeRemoteClient) Health(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return fmt.Errorf("%w: unreachable", models.ErrRemoteCallFailed)
	}
	return nil
}

func (f *fakeRemoteClient) call(kind, offerID string) error {
	key := kind + ":" + offerID

	f.mu.Lock()
	f.calls = append(f.calls, key)
	gate := f.gates[key]
	var err error
	switch {
	case f.failAll:
		err = fmt.Errorf("%w: unreachable", models.ErrRemoteCallFailed)
	case f.failures[key] > 0:
		f.failures[key]--
		err = fmt.Errorf("%w: simulated failure", models.ErrRemoteCallFailed)
	}
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	return err
}

func (f *fakeRemoteClient) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

func (f *fakeRemoteClient) FailNext(kind, offerID string, times int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[kind+":"+offerID] = times
}

func (f *fakeRemoteClient) SetFailAll(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failAll = fail
}

// Block holds every matching call in flight until the returned release func
// is invoked.
func (f *fakeRemoteClient) Block(kind, offerID string) (release func()) {
	key := kind + ":" + offerID
	ch := make(chan struct{})
	f.mu.Lock()
	f.gates[key] = ch
	f.mu.Unlock()
	return func() {
		f.mu.Lock()
		delete(f.gates, key)
		f.mu.Unlock()
		close(ch)
	}
}
