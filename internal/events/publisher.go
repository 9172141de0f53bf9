package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

const (
	streamName    = "SHELF_LIFE_EVENTS"
	subjectPrefix = "shelflife"
)

// Publisher emits domain events. Implementations must be safe for concurrent
// use.
type Publisher interface {
	PublishPriceApplied(shop, variantID string, oldPrice, newPrice float64, reason string)
	PublishPriceReverted(shop, variantID string, restoredPrice float64)
	PublishSyncCompleted(shop string, matched, unmatched int)
	Close()
}

// PriceEvent is the payload for price change events
type PriceEvent struct {
	Shop       string    `json:"shop"`
	VariantID  string    `json:"variantId"`
	OldPrice   float64   `json:"oldPrice,omitempty"`
	NewPrice   float64   `json:"newPrice"`
	Reason     string    `json:"reason,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

// SyncEvent is the payload for sync completion events
type SyncEvent struct {
	Shop       string    `json:"shop"`
	Matched    int       `json:"matched"`
	Unmatched  int       `json:"unmatched"`
	OccurredAt time.Time `json:"occurredAt"`
}

// natsPublisher publishes events to a NATS JetStream stream
type natsPublisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
	log  *logrus.Logger
}

// NewNATSPublisher connects to NATS and ensures the event stream exists
func NewNATSPublisher(url string, log *logrus.Logger) (Publisher, error) {
	conn, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to get JetStream context: %w", err)
	}

	_, err = js.AddStream(&nats.StreamConfig{
		Name:     streamName,
		Subjects: []string{subjectPrefix + ".>"},
		Storage:  nats.FileStorage,
		MaxAge:   7 * 24 * time.Hour,
	})
	if err != nil && err != nats.ErrStreamNameAlreadyInUse {
		conn.Close()
		return nil, fmt.Errorf("failed to create stream: %w", err)
	}

	return &natsPublisher{conn: conn, js: js, log: log}, nil
}

func (p *natsPublisher) publish(subject string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		p.log.WithError(err).WithField("subject", subject).Warn("Failed to encode event")
		return
	}
	if _, err := p.js.Publish(subject, data); err != nil {
		p.log.WithError(err).WithField("subject", subject).Warn("Failed to publish event")
	}
}

func (p *natsPublisher) PublishPriceApplied(shop, variantID string, oldPrice, newPrice float64, reason string) {
	p.publish(subjectPrefix+".price.applied", PriceEvent{
		Shop:       shop,
		VariantID:  variantID,
		OldPrice:   oldPrice,
		NewPrice:   newPrice,
		Reason:     reason,
		OccurredAt: time.Now().UTC(),
	})
}

func (p *natsPublisher) PublishPriceReverted(shop, variantID string, restoredPrice float64) {
	p.publish(subjectPrefix+".price.reverted", PriceEvent{
		Shop:       shop,
		VariantID:  variantID,
		NewPrice:   restoredPrice,
		OccurredAt: time.Now().UTC(),
	})
}

func (p *natsPublisher) PublishSyncCompleted(shop string, matched, unmatched int) {
	p.publish(subjectPrefix+".sync.completed", SyncEvent{
		Shop:       shop,
		Matched:    matched,
		Unmatched:  unmatched,
		OccurredAt: time.Now().UTC(),
	})
}

func (p *natsPublisher) Close() {
	p.conn.Close()
}

// noopPublisher drops all events. Used when NATS is not configured.
type noopPublisher struct{}

// NewNoopPublisher returns a publisher that discards events
func NewNoopPublisher() Publisher {
	return noopPublisher{}
}

func (noopPublisher) PublishPriceApplied(string, string, float64, float64, string) {}
func (noopPublisher) PublishPriceReverted(string, string, float64)                 {}
func (noopPublisher) PublishSyncCompleted(string, int, int)                        {}
func (noopPublisher) Close()                                                       {}
