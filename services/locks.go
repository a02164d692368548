package services

import (
	"sync"
	"time"
)

// sessionLocks hands out one mutex per upload id so that all mutating
// operations on a session are mutually exclusive without serializing
// unrelated sessions. Entries are evicted after sitting idle to keep the
// map from growing with abandoned uploads.
type sessionLocks struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
}

type lockEntry struct {
	mu       sync.Mutex
	lastUsed time.Time
}

const lockIdleEviction = 30 * time.Minute

func newSessionLocks() *sessionLocks {
	return &sessionLocks{entries: map[string]*lockEntry{}}
}

// acquire locks the mutex for the given upload id, creating it on first use.
// The caller must invoke the returned release function.
func (l *sessionLocks) acquire(id string) (release func()) {
	l.mu.Lock()
	l.evictIdleLocked()
	entry, ok := l.entries[id]
	if !ok {
		entry = &lockEntry{}
		l.entries[id] = entry
	}
	entry.lastUsed = time.Now()
	l.mu.Unlock()

	entry.mu.Lock()
	return entry.mu.Unlock
}

func (l *sessionLocks) evictIdleLocked() {
	cutoff := time.Now().Add(-lockIdleEviction)
	for id, entry := range l.entries {
		if entry.lastUsed.Before(cutoff) && entry.mu.TryLock() {
			entry.mu.Unlock()
			delete(l.entries, id)
		}
	}
}
