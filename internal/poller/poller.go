package poller

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/fjod/cosmic-backend/internal/domain"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

const (
	Topic   = "checkout-outbox"
	GroupID = "cart-service-consumer"

	readRetryDelay = time.Second
)

// CartClearer empties a user's cart and drops any cached copy of it.
type CartClearer interface {
	ClearCart(ctx context.Context, userID string) error
}

// MessageReader is the subset of *kafka.Reader the poller needs. Offsets
// are committed explicitly, so a message is only acknowledged once handled.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// checkoutEvent is the part of an outbox record the poller cares about.
type checkoutEvent struct {
	UserID string `json:"user_id"`
}

type Poller struct {
	carts  CartClearer
	reader MessageReader
	log    logrus.FieldLogger
}

// NewPoller joins the checkout consumer group on the given brokers.
func NewPoller(carts CartClearer, log logrus.FieldLogger, brokers ...string) *Poller {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    Topic,
		GroupID:  GroupID,
		MaxBytes: 10e6, // 10MB
	})
	return NewPollerWithReader(carts, reader, log)
}

func NewPollerWithReader(carts CartClearer, reader MessageReader, log logrus.FieldLogger) *Poller {
	return &Poller{
		carts:  carts,
		reader: reader,
		log:    log.WithField("topic", Topic),
	}
}

// Run consumes checkout events until ctx is cancelled. A message whose cart
// could not be cleared is retried and stays uncommitted until it is.
func (p *Poller) Run(ctx context.Context) {
	p.log.Info("checkout poller started")
	defer p.log.Info("checkout poller stopped")

	for ctx.Err() == nil {
		m, err := p.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			p.log.WithError(err).Error("error reading message")
			if !p.wait(ctx) {
				return
			}
			continue
		}

		for !p.handle(ctx, m) {
			if !p.wait(ctx) {
				return
			}
		}

		if err := p.reader.CommitMessages(ctx, m); err != nil && ctx.Err() == nil {
			p.log.WithError(err).WithField("offset", m.Offset).Error("failed to commit message")
		}
	}
}

func (p *Poller) wait(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(readRetryDelay):
		return true
	}
}

func (p *Poller) Close() {
	if err := p.reader.Close(); err != nil {
		p.log.WithError(err).Error("error closing reader")
	}
}

// handle reports whether m is done with: cleared, or not worth retrying.
func (p *Poller) handle(ctx context.Context, m kafka.Message) bool {
	log := p.log.WithFields(logrus.Fields{
		"partition": m.Partition,
		"offset":    m.Offset,
	})

	var event checkoutEvent
	if err := json.Unmarshal(m.Value, &event); err != nil {
		log.WithError(err).Warn("skipping malformed checkout event")
		return true
	}
	if event.UserID == "" {
		log.Warn("skipping checkout event without user_id")
		return true
	}

	log = log.WithField("user_id", event.UserID)
	err := p.carts.ClearCart(ctx, event.UserID)
	switch {
	case errors.Is(err, domain.ErrInvalidRef):
		log.WithError(err).Warn("skipping checkout event with invalid user_id")
		return true
	case err != nil:
		log.WithError(err).Error("failed to clear cart")
		return false
	}
	log.Debug("cart cleared after checkout")
	return true
}
