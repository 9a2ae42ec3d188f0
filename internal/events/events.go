package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"ledger_backend/pkg/utils"
)

const (
	CustomerCreated = "customer.created"
	PaymentRecorded = "payment.recorded"
)

// Event is the envelope published for every ledger change.
type Event struct {
	Type       string      `json:"type"`
	OccurredAt time.Time   `json:"occurred_at"`
	Data       interface{} `json:"data"`
}

// Publisher sends ledger events to interested consumers.
type Publisher interface {
	Publish(ctx context.Context, eventType string, data interface{}) error
	Close()
}

// NopPublisher drops every event. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, interface{}) error { return nil }
func (NopPublisher) Close()                                             {}

// NATSPublisher publishes JSON events on "<prefix>.<event type>" subjects.
type NATSPublisher struct {
	conn   *nats.Conn
	prefix string
}

// ConnectNATS dials url and returns a publisher for subjects under prefix.
func ConnectNATS(url, prefix string) (*NATSPublisher, error) {
	conn, err := nats.Connect(url,
		nats.Name("ledger-backend"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				utils.LogWarn(err, "NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			utils.LogInfo("NATS reconnected", map[string]interface{}{"url": nc.ConnectedUrl()})
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", url, err)
	}
	utils.LogInfo("Connected to NATS", map[string]interface{}{"url": url})
	return &NATSPublisher{conn: conn, prefix: prefix}, nil
}

// Subject returns the subject an event type is published on.
func (p *NATSPublisher) Subject(eventType string) string {
	if p.prefix == "" {
		return eventType
	}
	return p.prefix + "." + eventType
}

func (p *NATSPublisher) Publish(ctx context.Context, eventType string, data interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.conn == nil || p.conn.IsClosed() {
		return nats.ErrConnectionClosed
	}

	payload, err := json.Marshal(Event{Type: eventType, OccurredAt: time.Now().UTC(), Data: data})
	if err != nil {
		return fmt.Errorf("encoding %s event: %w", eventType, err)
	}
	if err := p.conn.Publish(p.Subject(eventType), payload); err != nil {
		return fmt.Errorf("publishing %s event: %w", eventType, err)
	}
	return nil
}

// Close flushes pending messages and closes the connection.
func (p *NATSPublisher) Close() {
	if p.conn == nil || p.conn.IsClosed() {
		return
	}
	if err := p.conn.Drain(); err != nil {
		utils.LogWarn(err, "Draining NATS connection failed")
		p.conn.Close()
	}
}
