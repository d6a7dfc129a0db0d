package services

import (
	"sync"

	"github.com/google/uuid"
)

// ConversationLocks serializes writers of a single conversation (message
// appends and ingestion completion) without blocking other conversations.
// Entries are reference counted so the map does not grow unbounded.
type ConversationLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func NewConversationLocks() *ConversationLocks {
	return &ConversationLocks{locks: make(map[uuid.UUID]*lockEntry)}
}

// Lock acquires the conversation's mutex and returns its release func.
func (l *ConversationLocks) Lock(id uuid.UUID) func() {
	l.mu.Lock()
	entry, ok := l.locks[id]
	if !ok {
		entry = &lockEntry{}
		l.locks[id] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}
