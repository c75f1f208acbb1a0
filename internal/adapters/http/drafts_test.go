package web

import (
	"context"
	"sync"
	"testing"
	"time"

	"campreg/internal/domain/wizard"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestRegistry(ttl time.Duration) (*DraftRegistry, *fakeClock) {
	clock := &fakeClock{now: testNow}
	r := NewDraftRegistry(ttl, func() *wizard.Controller { return wizard.New(wizard.WithClock(clock.Now)) })
	r.now = clock.Now
	return r, clock
}

func TestDraftRegistry_AcquireCreatesAndReuses(t *testing.T) {
	r, _ := newTestRegistry(time.Hour)

	d, created := r.Acquire("")
	if !created || d.Token() == "" {
		t.Fatalf("created=%v token=%q", created, d.Token())
	}
	token := d.Token()
	d.Release()

	again, created := r.Acquire(token)
	defer again.Release()
	if created || again != d {
		t.Fatal("existing token should return the same draft")
	}
	if r.Len() != 1 {
		t.Errorf("Len = %d", r.Len())
	}
}

func TestDraftRegistry_UnknownTokenStartsFresh(t *testing.T) {
	r, _ := newTestRegistry(time.Hour)
	d, created := r.Acquire("forged-token")
	defer d.Release()
	if !created || d.Token() == "forged-token" {
		t.Fatal("client-chosen tokens must not be adopted")
	}
}

func TestDraftRegistry_Expiry(t *testing.T) {
	r, clock := newTestRegistry(time.Hour)
	d, _ := r.Acquire("")
	token := d.Token()
	d.Release()

	clock.Advance(59 * time.Minute)
	d, created := r.Acquire(token)
	d.Release()
	if created {
		t.Fatal("draft expired early")
	}

	// Touching the draft extends it, so an hour from the last use it is gone.
	clock.Advance(61 * time.Minute)
	if _, ok := r.Lookup(token); ok {
		t.Fatal("Lookup returned an expired draft")
	}
	d, created = r.Acquire(token)
	defer d.Release()
	if !created || d.Token() == token {
		t.Fatal("expired draft should be replaced")
	}
}

func TestDraftRegistry_SweepAndDiscard(t *testing.T) {
	r, clock := newTestRegistry(time.Hour)
	var tokens []string
	for range 3 {
		d, _ := r.Acquire("")
		tokens = append(tokens, d.Token())
		d.Release()
	}
	clock.Advance(30 * time.Minute)
	d, _ := r.Acquire(tokens[0])
	d.Release()

	clock.Advance(45 * time.Minute)
	if n := r.Sweep(); n != 2 {
		t.Fatalf("Sweep evicted %d, want 2", n)
	}
	if r.Len() != 1 {
		t.Fatalf("Len = %d, want 1", r.Len())
	}

	r.Discard(tokens[0])
	if r.Len() != 0 {
		t.Fatalf("Len after Discard = %d", r.Len())
	}
}

func TestDraftRegistry_SerializesAccess(t *testing.T) {
	r, _ := newTestRegistry(time.Hour)
	d, _ := r.Acquire("")
	token := d.Token()
	d.Release()

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		inside int
		peak   int
	)
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, _ := r.Acquire(token)
			defer d.Release()
			mu.Lock()
			inside++
			peak = max(peak, inside)
			mu.Unlock()
			time.Sleep(time.Millisecond)
			mu.Lock()
			inside--
			mu.Unlock()
		}()
	}
	wg.Wait()
	if peak != 1 {
		t.Fatalf("peak concurrent holders = %d, want 1", peak)
	}
}

func TestDraftRegistry_RunStopsOnCancel(t *testing.T) {
	r, _ := newTestRegistry(time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx, time.Millisecond)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestNewDraftRegistry_DefaultTTL(t *testing.T) {
	r := NewDraftRegistry(0, func() *wizard.Controller { return wizard.New() })
	if r.ttl != DefaultDraftTTL {
		t.Errorf("ttl = %v", r.ttl)
	}
}
