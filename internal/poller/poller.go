package poller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fjod/go_cart/cart-api/internal/domain"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

const (
	DefaultTopic   = "checkout-outbox"
	DefaultGroupID = "cart-service-consumer"
)

// CartClearer empties a user's cart once their checkout completes.
type CartClearer interface {
	ClearCart(ctx context.Context, userID string) error
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Poller consumes checkout-completed events and clears the matching carts.
type Poller struct {
	carts  CartClearer
	reader messageReader
	log    *logrus.Entry
	wg     sync.WaitGroup

	maxAttempts int
	backoff     time.Duration
}

type checkoutEvent struct {
	UserID string `json:"user_id"`
}

func NewPoller(carts CartClearer, topic, groupID string, log *logrus.Entry, brokers ...string) *Poller {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MaxBytes: 10e6, // 10MB
	})
	return &Poller{
		carts:       carts,
		reader:      reader,
		log:         log.WithFields(logrus.Fields{"component": "checkout_poller", "topic": topic}),
		maxAttempts: 3,
		backoff:     200 * time.Millisecond,
	}
}

// Start runs the poller in the background until ctx is cancelled.
func (p *Poller) Start(ctx context.Context) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.Run(ctx)
	}()
}

// Run blocks until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	p.log.WithContext(ctx).Info("poller started")
	for {
		if ctx.Err() != nil {
			p.log.Info("poller stopped")
			return
		}
		p.poll(ctx)
	}
}

// Close waits for a poller started with Start to finish its current message,
// then closes the reader. Cancel the context passed to Start first.
func (p *Poller) Close() {
	p.wg.Wait()
	if err := p.reader.Close(); err != nil {
		p.log.WithError(err).Error("error closing reader")
	}
}

func (p *Poller) poll(ctx context.Context) {
	m, err := p.reader.FetchMessage(ctx)
	if err != nil {
		if ctx.Err() == nil {
			p.log.WithContext(ctx).WithError(err).Error("error reading message")
		}
		return
	}

	for attempt := 1; ; attempt++ {
		err = p.handleMessage(ctx, m)
		if err == nil {
			break
		}
		if attempt == p.maxAttempts {
			p.log.WithContext(ctx).WithFields(logrus.Fields{
				"offset":   m.Offset,
				"attempts": attempt,
			}).WithError(err).Error("failed to clear cart, skipping message")
			break
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Duration(attempt) * p.backoff):
		}
	}

	if err := p.reader.CommitMessages(ctx, m); err != nil && ctx.Err() == nil {
		p.log.WithContext(ctx).WithField("offset", m.Offset).WithError(err).Error("error committing message")
	}
}

// handleMessage returns an error only for failures worth retrying, such as a
// version conflict with a concurrent cart write. Malformed
// events and carts that no longer exist are logged and skipped.
func (p *Poller) handleMessage(ctx context.Context, m kafka.Message) error {
	var event checkoutEvent
	if err := json.Unmarshal(m.Value, &event); err != nil {
		p.log.WithContext(ctx).WithField("offset", m.Offset).WithError(err).Warn("error parsing message")
		return nil
	}
	if event.UserID == "" {
		p.log.WithContext(ctx).WithField("offset", m.Offset).Warn("missing or invalid user_id")
		return nil
	}

	err := p.carts.ClearCart(ctx, event.UserID)
	switch {
	case err == nil:
		p.log.WithContext(ctx).WithField("user_id", event.UserID).Info("cart cleared after checkout")
		return nil
	case errors.Is(err, domain.ErrCartNotFound):
		p.log.WithContext(ctx).WithField("user_id", event.UserID).Debug("no cart to clear")
		return nil
	default:
		return fmt.Errorf("clear cart %s: %w", event.UserID, err)
	}
}
