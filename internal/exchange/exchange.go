package exchange

import (
	"context"
	"errors"
	"fmt"

	"indodax_bot/internal/models"
)

// Client is the exchange capability consumed by the collector and the
// trading engine. All calls are request/response with a bounded timeout.
type Client interface {
	GetTicker(ctx context.Context, pair string) (*models.Ticker, error)
	GetTrades(ctx context.Context, pair string) ([]models.Tick, error)
	GetBalance(ctx context.Context, asset string) (float64, error)
	// Trade places a market order. For buys amount is the quote (IDR) spend,
	// for sells it is the crypto quantity.
	Trade(ctx context.Context, pair, side string, amount float64) (*models.OrderResult, error)
	GetOrder(ctx context.Context, pair, orderID string) (*models.OrderResult, error)
	CancelOrder(ctx context.Context, pair, orderID, side string) error
}

// ErrRejected marks orders the exchange refused (insufficient balance,
// invalid parameters). Distinguished from transient failures: the caller logs
// the reason and must not retry blindly.
var ErrRejected = errors.New("order rejected")

// RejectedError carries the exchange's rejection reason.
type RejectedError struct {
	Reason string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("order rejected by exchange: %s", e.Reason)
}

func (e *RejectedError) Unwrap() error { return ErrRejected }
