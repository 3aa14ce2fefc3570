package diagnostic

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Buffer keeps recent records in memory and drops them once they are older
// than the configured TTL.
type Buffer struct {
	mu      sync.RWMutex
	records map[string]Record
	ttl     time.Duration
	now     func() time.Time

	done      chan struct{}
	closeOnce sync.Once
}

// NewBuffer creates a buffer and starts its cleanup loop. Call Close to stop it.
// A non-positive ttl falls back to one hour.
func NewBuffer(ttl time.Duration) *Buffer {
	if ttl <= 0 {
		ttl = time.Hour
	}
	b := &Buffer{
		records: make(map[string]Record),
		ttl:     ttl,
		now:     time.Now,
		done:    make(chan struct{}),
	}
	go b.cleanupLoop()
	return b
}

// Emit stores the record.
func (b *Buffer) Emit(_ context.Context, rec Record) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.records[rec.ID] = rec
}

// Get retrieves a record by ID.
func (b *Buffer) Get(id string) (Record, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	rec, ok := b.records[id]
	return rec, ok
}

// List returns up to limit records, newest first. A limit <= 0 returns all.
// When kind is non-empty only records of that kind are returned.
func (b *Buffer) List(kind Kind, limit int) []Record {
	b.mu.RLock()
	out := make([]Record, 0, len(b.records))
	for _, rec := range b.records {
		if kind == "" || rec.Kind == kind {
			out = append(out, rec)
		}
	}
	b.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Len returns the number of buffered records.
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.records)
}

// Close stops the cleanup loop.
func (b *Buffer) Close() {
	b.closeOnce.Do(func() { close(b.done) })
}

func (b *Buffer) cleanupLoop() {
	ticker := time.NewTicker(b.ttl / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			b.cleanup()
		case <-b.done:
			return
		}
	}
}

// cleanup removes records older than the TTL.
func (b *Buffer) cleanup() {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	for id, rec := range b.records {
		if now.Sub(rec.CreatedAt) > b.ttl {
			delete(b.records, id)
		}
	}
}
