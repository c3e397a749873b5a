package backend

import (
	"sync/atomic"
)

// Mode records which backend is active.
type Mode int32

const (
	// ModeLive routes calls to the real identity backend
	ModeLive Mode = iota
	// ModeFallbackLatched routes every call to the credential store
	// for the remainder of the process lifetime
	ModeFallbackLatched
)

func (m Mode) String() string {
	if m == ModeFallbackLatched {
		return "fallback"
	}
	return "live"
}

// Latch is the one-way switch from the live backend to the fallback
// credential store. Once tripped it never reverts.
type Latch struct {
	tripped atomic.Bool
}

func NewLatch() *Latch {
	return &Latch{}
}

// reports whether the fallback is active
func (l *Latch) Latched() bool {
	return l.tripped.Load()
}

// switches permanently to the fallback store. Returns true the first
// time, false if already latched.
func (l *Latch) Trip() bool {
	return l.tripped.CompareAndSwap(false, true)
}

// returns the current backend mode
func (l *Latch) Mode() Mode {
	if l.Latched() {
		return ModeFallbackLatched
	}
	return ModeLive
}
