package utils

import (
	"sync"
	"time"
)

type Entry[T any] struct {
	At      time.Time
	Payload T
}

// ActivityWindow keeps a time-pruned, append-only buffer of entries per key.
// Entries for one key must arrive in timestamp order; out-of-order entries
// are rejected rather than re-sorted.
type ActivityWindow[T any] struct {
	mu        sync.Mutex
	clock     Clock
	retention time.Duration
	entries   map[string][]Entry[T]
}

func NewActivityWindow[T any](retention time.Duration) *ActivityWindow[T] {
	return &ActivityWindow[T]{
		clock:     realClock{},
		retention: retention,
		entries:   make(map[string][]Entry[T]),
	}
}

func (w *ActivityWindow[T]) WithClock(clock Clock) {
	w.clock = clock
}

func (w *ActivityWindow[T]) Retention() time.Duration {
	return w.retention
}

// Record appends an entry stamped with the current clock time. It returns
// false when the entry would land before the newest entry for the key.
func (w *ActivityWindow[T]) Record(key string, payload T) bool {
	return w.RecordAt(key, w.clock.Now(), payload)
}

func (w *ActivityWindow[T]) RecordAt(key string, at time.Time, payload T) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	buf := w.entries[key]
	if n := len(buf); n > 0 && at.Before(buf[n-1].At) {
		return false
	}
	w.entries[key] = append(buf, Entry[T]{At: at, Payload: payload})
	return true
}

// Recent prunes entries older than maxAge and returns a copy of the rest.
func (w *ActivityWindow[T]) Recent(key string, maxAge time.Duration) []Entry[T] {
	w.mu.Lock()
	defer w.mu.Unlock()

	buf := w.pruneLocked(key, maxAge)
	if len(buf) == 0 {
		return nil
	}
	out := make([]Entry[T], len(buf))
	copy(out, buf)
	return out
}

func (w *ActivityWindow[T]) Count(key string, maxAge time.Duration) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pruneLocked(key, maxAge))
}

// Sweep drops expired entries for every key and removes keys left empty.
func (w *ActivityWindow[T]) Sweep(maxAge time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for key := range w.entries {
		if len(w.pruneLocked(key, maxAge)) == 0 {
			delete(w.entries, key)
		}
	}
}

func (w *ActivityWindow[T]) pruneLocked(key string, maxAge time.Duration) []Entry[T] {
	buf := w.entries[key]
	cutoff := w.clock.Now().Add(-maxAge)
	idx := 0
	for _, entry := range buf {
		if !entry.At.Before(cutoff) {
			break
		}
		idx++
	}
	if idx > 0 {
		buf = buf[idx:]
		w.entries[key] = buf
	}
	return buf
}
