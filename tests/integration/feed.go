package integration

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/tropicaldog17/networth/internal/pricefeed"
)

// offlineFeed answers like a feed with no network: no quotes, unit fx.
type offlineFeed struct{}

func (offlineFeed) Quote(_ context.Context, _ string) (*pricefeed.Quote, error) {
	return nil, pricefeed.ErrNoQuote
}

func (offlineFeed) FXRate(_ context.Context, _, _ string) (decimal.Decimal, error) {
	return decimal.NewFromInt(1), nil
}
