package eventbus

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/nats-io/nats.go"

	"github.com/efreitasn/exchangecore/internal/domain"
	"github.com/efreitasn/exchangecore/internal/exchange"
	"github.com/efreitasn/exchangecore/internal/store"
)

// Conn is the part of *nats.Conn the publisher needs.
type Conn interface {
	Publish(subject string, data []byte) error
}

// NATSPublisher publishes each record's JSON envelope on
// "<subject>.<exchange id>".
type NATSPublisher struct {
	conn    Conn
	subject string
}

// NewNATSPublisher creates a publisher rooted at subject.
func NewNATSPublisher(conn Conn, subject string) *NATSPublisher {
	return &NATSPublisher{conn: conn, subject: subject}
}

// SubjectFor returns the subject events of id are published on.
func (p *NATSPublisher) SubjectFor(id domain.ExchangeID) string {
	return p.subject + "." + subjectToken(string(id))
}

// subjectToken makes s usable as a single NATS subject token.
func subjectToken(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\r', '\n':
			return '_'
		}
		return r
	}, s)
}

func (p *NATSPublisher) Publish(ctx context.Context, records []store.Record) error {
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return err
		}
		data, err := exchange.Marshal(rec.Event, rec.Version, rec.RecordedAt)
		if err != nil {
			return err
		}
		if err := p.conn.Publish(p.SubjectFor(rec.Event.AggregateID()), data); err != nil {
			return fmt.Errorf("failed to publish %s: %w", rec.Event.EventType(), err)
		}
	}
	return nil
}

// ConnectNATS dials url, retrying with exponential backoff for up to
// maxWait before giving up.
func ConnectNATS(ctx context.Context, url string, maxWait time.Duration, logger *slog.Logger) (*nats.Conn, error) {
	opts := []nats.Option{
		nats.Name("exchanged"),
		nats.ReconnectWait(time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", "url", nc.ConnectedUrl())
		}),
	}

	boff := backoff.NewExponentialBackOff()
	boff.MaxElapsedTime = maxWait

	var conn *nats.Conn
	err := backoff.Retry(func() error {
		var err error
		conn, err = nats.Connect(url, opts...)
		if err != nil {
			logger.Warn("connect nats failed", "url", url, "error", err)
		}
		return err
	}, backoff.WithContext(boff, ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return conn, nil
}
