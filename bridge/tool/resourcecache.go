package tool

import (
	"context"
	"sync"
	"time"
)

// resourceStore is the storage backend for the resource cache. The in-memory
// store is the default; a Redis-backed store can be plugged in for
// deployments sharing cached content across instances.
type resourceStore interface {
	Get(ctx context.Context, uri string) (content string, fetchedAt time.Time, ok bool, err error)
	Set(ctx context.Context, uri, content string, fetchedAt time.Time, ttl time.Duration) error
	Len(ctx context.Context) (int, error)
	Close() error
}

// memoryStore is the in-memory resource store. Entries are invalidated by
// TTL only, never by explicit push invalidation; when the store is full the
// oldest entry is evicted first.
type memoryStore struct {
	mu         sync.Mutex
	maxEntries int
	entries    map[string]memoryEntry
}

type memoryEntry struct {
	content   string
	fetchedAt time.Time
	expiresAt time.Time
}

func newMemoryStore(maxEntries int) *memoryStore {
	if maxEntries <= 0 {
		maxEntries = 1000
	}
	return &memoryStore{
		maxEntries: maxEntries,
		entries:    make(map[string]memoryEntry),
	}
}

func (s *memoryStore) Get(_ context.Context, uri string) (string, time.Time, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[uri]
	if !ok {
		return "", time.Time{}, false, nil
	}
	if time.Now().After(entry.expiresAt) {
		delete(s.entries, uri)
		return "", time.Time{}, false, nil
	}
	return entry.content, entry.fetchedAt, true, nil
}

func (s *memoryStore) Set(_ context.Context, uri, content string, fetchedAt time.Time, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.entries) >= s.maxEntries {
		s.evictOldest()
	}
	s.entries[uri] = memoryEntry{
		content:   content,
		fetchedAt: fetchedAt,
		expiresAt: fetchedAt.Add(ttl),
	}
	return nil
}

func (s *memoryStore) Len(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries), nil
}

func (s *memoryStore) Close() error { return nil }

func (s *memoryStore) evictOldest() {
	var oldestURI string
	var oldestTime time.Time
	for uri, entry := range s.entries {
		if oldestURI == "" || entry.fetchedAt.Before(oldestTime) {
			oldestURI = uri
			oldestTime = entry.fetchedAt
		}
	}
	if oldestURI != "" {
		delete(s.entries, oldestURI)
	}
}
