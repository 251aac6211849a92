package router

import (
	"sync"
	"time"
)

// DefaultJournalSize is used when NewJournal is given a non-positive size.
const DefaultJournalSize = 500

// Entry records one handled command.
type Entry struct {
	Time     time.Time     `json:"time"`
	Method   string        `json:"method"`
	Code     string        `json:"code"`
	Message  string        `json:"message,omitempty"`
	Duration time.Duration `json:"duration_ns"`
	Source   string        `json:"source,omitempty"`
}

// Journal keeps the most recent entries in a fixed-size ring.
type Journal struct {
	mu      sync.RWMutex
	entries []Entry
	next    int
	full    bool
}

// NewJournal creates a journal holding at most size entries.
func NewJournal(size int) *Journal {
	if size <= 0 {
		size = DefaultJournalSize
	}
	return &Journal{entries: make([]Entry, size)}
}

// Add appends e, dropping the oldest entry when the ring is full.
func (j *Journal) Add(e Entry) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.entries[j.next] = e
	j.next = (j.next + 1) % len(j.entries)
	if j.next == 0 {
		j.full = true
	}
}

// Len returns the number of stored entries.
func (j *Journal) Len() int {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.len()
}

func (j *Journal) len() int {
	if j.full {
		return len(j.entries)
	}
	return j.next
}

// Recent returns up to limit entries, newest first. A non-positive limit
// returns everything.
func (j *Journal) Recent(limit int) []Entry {
	j.mu.RLock()
	defer j.mu.RUnlock()

	n := j.len()
	if limit <= 0 || limit > n {
		limit = n
	}

	out := make([]Entry, limit)
	for i := 0; i < limit; i++ {
		idx := (j.next - 1 - i + len(j.entries)) % len(j.entries)
		out[i] = j.entries[idx]
	}
	return out
}

// Clear removes every entry.
func (j *Journal) Clear() {
	j.mu.Lock()
	defer j.mu.Unlock()

	clear(j.entries)
	j.next = 0
	j.full = false
}
