package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/efreitasn/exchangecore/internal/domain"
	"github.com/efreitasn/exchangecore/internal/exchange"
)

// eventRow is one row of the exchange_events table.
type eventRow struct {
	ID         uint   `gorm:"primaryKey"`
	ExchangeID string `gorm:"not null;uniqueIndex:idx_exchange_version"`
	Version    int    `gorm:"not null;uniqueIndex:idx_exchange_version"`
	Type       string `gorm:"not null"`
	Data       string `gorm:"not null"`
	RecordedAt time.Time
}

func (eventRow) TableName() string { return "exchange_events" }

// SQLEventStore is an EventStore backed by SQLite through gorm.
type SQLEventStore struct {
	db  *gorm.DB
	now func() time.Time
}

// OpenSQLEventStore opens (creating if needed) the SQLite database at path
// and migrates the events table.
func OpenSQLEventStore(path string) (*SQLEventStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create DB directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database handle: %w", err)
	}
	// SQLite has a single writer, and ":memory:" databases are per connection.
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&eventRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return &SQLEventStore{db: db, now: time.Now}, nil
}

// Load returns the history of id ordered by version.
func (s *SQLEventStore) Load(ctx context.Context, id domain.ExchangeID) ([]exchange.Event, error) {
	var rows []eventRow
	err := s.db.WithContext(ctx).
		Where("exchange_id = ?", string(id)).
		Order("version").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("loading events for %s: %w", id, err)
	}

	events := make([]exchange.Event, len(rows))
	for i, row := range rows {
		e, err := exchange.Decode(row.Type, []byte(row.Data))
		if err != nil {
			return nil, fmt.Errorf("event %d of %s: %w", row.Version, id, err)
		}
		events[i] = e
	}
	return events, nil
}

// Append inserts events after checking the stored version in the same
// transaction.
func (s *SQLEventStore) Append(ctx context.Context, id domain.ExchangeID, expectedVersion int, events []exchange.Event) ([]Record, error) {
	at := s.now().UTC()
	records := make([]Record, len(events))
	rows := make([]eventRow, len(events))
	for i, e := range events {
		payload, err := exchange.Encode(e)
		if err != nil {
			return nil, err
		}
		version := expectedVersion + i + 1
		rows[i] = eventRow{
			ExchangeID: string(id),
			Version:    version,
			Type:       e.EventType(),
			Data:       string(payload),
			RecordedAt: at,
		}
		records[i] = Record{Event: e, Version: version, RecordedAt: at}
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current int64
		if err := tx.Model(&eventRow{}).Where("exchange_id = ?", string(id)).Count(&current).Error; err != nil {
			return err
		}
		if int(current) != expectedVersion {
			return conflict(id, expectedVersion, int(current))
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.Create(&rows).Error
	})
	switch {
	case err == nil:
		return records, nil
	case errors.Is(err, domain.ErrConcurrencyConflict):
		return nil, err
	case strings.Contains(err.Error(), "UNIQUE constraint failed"):
		return nil, fmt.Errorf("%w: exchange %s: %v", domain.ErrConcurrencyConflict, id, err)
	default:
		return nil, fmt.Errorf("appending events for %s: %w", id, err)
	}
}

// ExchangeIDs returns every id with a stored history, sorted.
func (s *SQLEventStore) ExchangeIDs(ctx context.Context) ([]domain.ExchangeID, error) {
	var raw []string
	err := s.db.WithContext(ctx).
		Model(&eventRow{}).
		Distinct("exchange_id").
		Order("exchange_id").
		Pluck("exchange_id", &raw).Error
	if err != nil {
		return nil, fmt.Errorf("listing exchanges: %w", err)
	}
	ids := make([]domain.ExchangeID, len(raw))
	for i, id := range raw {
		ids[i] = domain.ExchangeID(id)
	}
	return ids, nil
}

// Close releases the underlying database connection.
func (s *SQLEventStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
