package offline

import (
	"context"
	"net/http"
	"slices"
	"sync"
	"time"
)

// Entry is one cached response.
type Entry struct {
	Key      string
	Status   int
	Header   http.Header
	Body     []byte
	StoredAt time.Time
}

// Store persists cache entries grouped into named buckets.
type Store interface {
	GetEntry(ctx context.Context, bucket, key string) (Entry, bool, error)
	PutEntry(ctx context.Context, bucket string, entry Entry) error
	ListBuckets(ctx context.Context) ([]string, error)
	DeleteBucket(ctx context.Context, bucket string) error
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu      sync.RWMutex
	buckets map[string]map[string]Entry
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{buckets: map[string]map[string]Entry{}}
}

// GetEntry implements Store.
func (s *MemoryStore) GetEntry(_ context.Context, bucket, key string) (Entry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.buckets[bucket][key]
	if !ok {
		return Entry{}, false, nil
	}
	entry.Header = entry.Header.Clone()
	entry.Body = slices.Clone(entry.Body)
	return entry, true, nil
}

// PutEntry implements Store.
func (s *MemoryStore) PutEntry(_ context.Context, bucket string, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.buckets[bucket] == nil {
		s.buckets[bucket] = map[string]Entry{}
	}
	entry.Header = entry.Header.Clone()
	entry.Body = slices.Clone(entry.Body)
	s.buckets[bucket][entry.Key] = entry
	return nil
}

// ListBuckets implements Store.
func (s *MemoryStore) ListBuckets(context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.buckets))
	for name := range s.buckets {
		out = append(out, name)
	}
	slices.Sort(out)
	return out, nil
}

// DeleteBucket implements Store.
func (s *MemoryStore) DeleteBucket(_ context.Context, bucket string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.buckets, bucket)
	return nil
}
