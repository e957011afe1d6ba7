package analysis

import (
	"sync"
	"time"
)

// Progress is the cosmetic per-request indicator: a fixed-interval
// ticker advances it by 5 up to a cap of 95, then it snaps to 100 on
// success. The underlying vision API reports no real progress, so
// callers must treat this as UI feedback only.
type Progress struct {
	mu    sync.Mutex
	value int
	done  bool
	stop  chan struct{}
}

const (
	progressStep = 5
	progressCap  = 95
)

func (p *Progress) run(interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			p.mu.Lock()
			if !p.done && p.value < progressCap {
				p.value += progressStep
			}
			p.mu.Unlock()
		case <-p.stop:
			return
		}
	}
}

// Value returns the current percentage and whether the request has
// resolved.
func (p *Progress) Value() (int, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.value, p.done
}

func (p *Progress) finish(success bool) {
	p.mu.Lock()
	if !p.done {
		p.done = true
		if success {
			p.value = 100
		}
		close(p.stop)
	}
	p.mu.Unlock()
}

// Tracker keeps per-request Progress entries so concurrent analyses
// report independently.
type Tracker struct {
	mu       sync.Mutex
	entries  map[string]*Progress
	interval time.Duration
	retain   time.Duration
}

func NewTracker() *Tracker {
	return &Tracker{
		entries:  make(map[string]*Progress),
		interval: 400 * time.Millisecond,
		retain:   5 * time.Minute,
	}
}

func (t *Tracker) Start(id string) *Progress {
	p := &Progress{stop: make(chan struct{})}
	t.mu.Lock()
	t.entries[id] = p
	t.mu.Unlock()
	go p.run(t.interval)
	return p
}

// Get returns the Progress for a request id, or nil if unknown.
func (t *Tracker) Get(id string) *Progress {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.entries[id]
}

// Finish resolves the entry and schedules its removal so finished
// requests stay pollable for a short window.
func (t *Tracker) Finish(id string, success bool) {
	t.mu.Lock()
	p := t.entries[id]
	t.mu.Unlock()
	if p == nil {
		return
	}
	p.finish(success)
	time.AfterFunc(t.retain, func() {
		t.mu.Lock()
		delete(t.entries, id)
		t.mu.Unlock()
	})
}
