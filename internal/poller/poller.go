// Package poller empties carts once their checkout completes.
package poller

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"time"

	"github.com/fjod/go_cart/variant-cart/internal/domain"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const (
	DefaultTopic   = "checkout-outbox"
	DefaultGroupID = "cart-service-consumer"

	// ReadMessage commits the offset, so a clear that keeps failing is
	// retried here before the event is given up.
	clearAttempts = 3
)

// MessageReader is the part of *kafka.Reader the poller uses.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// CartClearer empties an owner's cart.
type CartClearer interface {
	ClearCart(ctx context.Context, ownerID string) (*domain.CartView, error)
}

type Config struct {
	Brokers []string
	Topic   string
	GroupID string
}

type checkoutEvent struct {
	CheckoutID string `json:"checkout_id"`
	UserID     string `json:"user_id"`
}

type Poller struct {
	carts        CartClearer
	reader       MessageReader
	logger       *zap.Logger
	backoff      time.Duration
	clearBackoff time.Duration
}

func NewPoller(carts CartClearer, cfg Config, logger *zap.Logger) *Poller {
	if cfg.Topic == "" {
		cfg.Topic = DefaultTopic
	}
	if cfg.GroupID == "" {
		cfg.GroupID = DefaultGroupID
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MaxBytes: 10e6, // 10MB
	})
	return NewPollerWithReader(carts, reader, logger)
}

func NewPollerWithReader(carts CartClearer, reader MessageReader, logger *zap.Logger) *Poller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Poller{
		carts:        carts,
		reader:       reader,
		logger:       logger,
		backoff:      time.Second,
		clearBackoff: 200 * time.Millisecond,
	}
}

// Run consumes until ctx is done or the reader is closed.
func (p *Poller) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		if err := p.getMessageAndEmptyCart(ctx); err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				return
			}
			p.logger.Warn("error reading message", zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(p.backoff):
			}
		}
	}
}

func (p *Poller) Close() {
	if err := p.reader.Close(); err != nil {
		p.logger.Warn("error closing reader", zap.Error(err))
	}
}

// getMessageAndEmptyCart returns an error only when reading fails. Bad
// payloads and failed clears are logged and skipped.
func (p *Poller) getMessageAndEmptyCart(ctx context.Context) error {
	m, err := p.reader.ReadMessage(ctx)
	if err != nil {
		return err
	}

	var event checkoutEvent
	if err := json.Unmarshal(m.Value, &event); err != nil {
		p.logger.Warn("error parsing message",
			zap.Int64("offset", m.Offset),
			zap.Error(err))
		return nil
	}
	if event.UserID == "" {
		p.logger.Warn("missing or invalid user_id", zap.Int64("offset", m.Offset))
		return nil
	}

	if err := p.clearCart(ctx, event.UserID); err != nil {
		p.logger.Error("failed to clear cart",
			zap.String("owner_id", event.UserID),
			zap.String("checkout_id", event.CheckoutID),
			zap.Error(err))
		return nil
	}

	p.logger.Info("cart cleared after checkout",
		zap.String("owner_id", event.UserID),
		zap.String("checkout_id", event.CheckoutID))
	return nil
}

// clearCart retries failures that may pass on a second try. Anything else,
// or running out of attempts, returns the last error.
func (p *Poller) clearCart(ctx context.Context, ownerID string) error {
	var err error
	for attempt := 1; attempt <= clearAttempts; attempt++ {
		_, err = p.carts.ClearCart(ctx, ownerID)
		if err == nil || !transient(err) || attempt == clearAttempts {
			return err
		}

		p.logger.Warn("clear cart failed, retrying",
			zap.String("owner_id", ownerID),
			zap.Int("attempt", attempt),
			zap.Error(err))
		select {
		case <-ctx.Done():
			return err
		case <-time.After(time.Duration(attempt) * p.clearBackoff):
		}
	}
	return err
}

func transient(err error) bool {
	return errors.Is(err, domain.ErrUpstreamTimeout) || errors.Is(err, domain.ErrConcurrentModification)
}
