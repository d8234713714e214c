package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/efreitasn/exchangecore/internal/domain"
	"github.com/efreitasn/exchangecore/internal/exchange"
)

// Record is an event as stored: its position in the exchange's history
// and the time it was appended.
type Record struct {
	Event      exchange.Event
	Version    int
	RecordedAt time.Time
}

// EventStore persists exchange histories. Append is optimistic: it fails
// with domain.ErrConcurrencyConflict unless the stored history has exactly
// expectedVersion events.
type EventStore interface {
	Load(ctx context.Context, id domain.ExchangeID) ([]exchange.Event, error)
	Append(ctx context.Context, id domain.ExchangeID, expectedVersion int, events []exchange.Event) ([]Record, error)
	ExchangeIDs(ctx context.Context) ([]domain.ExchangeID, error)
	Close() error
}

// MemoryEventStore is a thread-safe in-memory EventStore.
type MemoryEventStore struct {
	mu      sync.RWMutex
	streams map[domain.ExchangeID][]Record
	now     func() time.Time
}

// NewMemoryEventStore creates an empty MemoryEventStore.
func NewMemoryEventStore() *MemoryEventStore {
	return &MemoryEventStore{
		streams: make(map[domain.ExchangeID][]Record),
		now:     time.Now,
	}
}

// Load returns the history of id in order. Unknown ids have an empty
// history.
func (s *MemoryEventStore) Load(_ context.Context, id domain.ExchangeID) ([]exchange.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stream := s.streams[id]
	events := make([]exchange.Event, len(stream))
	for i, r := range stream {
		events[i] = r.Event
	}
	return events, nil
}

// Append adds events to the end of id's history.
func (s *MemoryEventStore) Append(_ context.Context, id domain.ExchangeID, expectedVersion int, events []exchange.Event) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stream := s.streams[id]
	if len(stream) != expectedVersion {
		return nil, conflict(id, expectedVersion, len(stream))
	}
	at := s.now().UTC()
	records := make([]Record, len(events))
	for i, e := range events {
		records[i] = Record{Event: e, Version: expectedVersion + i + 1, RecordedAt: at}
	}
	s.streams[id] = append(stream, records...)
	return records, nil
}

// ExchangeIDs returns every id with a stored history, sorted.
func (s *MemoryEventStore) ExchangeIDs(_ context.Context) ([]domain.ExchangeID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]domain.ExchangeID, 0, len(s.streams))
	for id := range s.streams {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (s *MemoryEventStore) Close() error { return nil }
