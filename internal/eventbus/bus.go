// Package eventbus delivers stored exchange events to subscribers inside
// the process and to external consumers over NATS.
package eventbus

import (
	"context"
	"errors"
	"sync"

	"github.com/efreitasn/exchangecore/internal/store"
)

// Publisher delivers records that have already been stored. A failed
// publication never undoes the append.
type Publisher interface {
	Publish(ctx context.Context, records []store.Record) error
}

// Handler consumes one record.
type Handler func(ctx context.Context, rec store.Record) error

// LocalBus fans records out to in-process handlers, synchronously and in
// subscription order.
type LocalBus struct {
	mu       sync.RWMutex
	handlers []Handler
}

// NewLocalBus creates a bus with no subscribers.
func NewLocalBus() *LocalBus {
	return &LocalBus{}
}

// Subscribe registers h for every record published from now on.
func (b *LocalBus) Subscribe(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
}

// Publish hands every record to every handler. All handlers see all
// records even when one fails; the errors are joined.
func (b *LocalBus) Publish(ctx context.Context, records []store.Record) error {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers))
	copy(handlers, b.handlers)
	b.mu.RUnlock()

	var errs []error
	for _, rec := range records {
		for _, h := range handlers {
			if err := h(ctx, rec); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// Multi publishes to each publisher in turn.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, records []store.Record) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, records); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
