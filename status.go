package nest

import (
	"sync"
	"sync/atomic"
)

type Status int32

const (
	StatusUnknown Status = iota
	StatusStarting
	StatusUp
	StatusDown
)

func (s Status) String() string {
	switch s {
	case StatusStarting:
		return "starting"
	case StatusUp:
		return "up"
	case StatusDown:
		return "down"
	default:
		return "unknown"
	}
}

// Operational reports whether the application accepts work.
func (s Status) Operational() bool {
	return s == StatusUp
}

// StatusReporter receives the operational status of the whole application.
// The hierarchy registers one at platform scope so that any component can
// read it.
type StatusReporter interface {
	SetStatus(Status)
	Status() Status
}

// StatusFlag is the default StatusReporter.
type StatusFlag struct {
	status atomic.Int32

	mu     sync.Mutex
	nextID int
	subs   map[int]func(old, new Status)
}

func NewStatusFlag() *StatusFlag {
	return &StatusFlag{subs: make(map[int]func(old, new Status))}
}

func (f *StatusFlag) Status() Status {
	return Status(f.status.Load())
}

func (f *StatusFlag) SetStatus(s Status) {
	old := Status(f.status.Swap(int32(s)))
	if old == s {
		return
	}

	f.mu.Lock()
	subs := make([]func(old, new Status), 0, len(f.subs))
	for _, fn := range f.subs {
		subs = append(subs, fn)
	}
	f.mu.Unlock()

	for _, fn := range subs {
		fn(old, s)
	}
}

// Subscribe calls fn on every change of status until cancel is called.
func (f *StatusFlag) Subscribe(fn func(old, new Status)) (cancel func()) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.subs == nil {
		f.subs = make(map[int]func(old, new Status))
	}
	id := f.nextID
	f.nextID++
	f.subs[id] = fn

	return func() {
		f.mu.Lock()
		delete(f.subs, id)
		f.mu.Unlock()
	}
}
