package ledger

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	apperrors "github.com/tropicaldog17/networth/internal/errors"
	"github.com/tropicaldog17/networth/internal/models"
)

// position is the running average-cost state of one (account, ticker) stream.
type position struct {
	quantity  decimal.Decimal
	totalCost decimal.Decimal
	realized  decimal.Decimal
	dividends decimal.Decimal
}

func (p *position) averageCost() decimal.Decimal {
	if !p.quantity.IsPositive() {
		return decimal.Zero
	}
	return p.totalCost.Div(p.quantity)
}

// tradeHandler applies one trade to a position.
type tradeHandler func(p *position, t *models.Trade) error

// handlers has exactly one entry per models.TradeType; TestHandlersCoverEveryTradeType
// keeps it exhaustive.
var handlers = map[models.TradeType]tradeHandler{
	models.TradeTypeBuy:      applyBuy,
	models.TradeTypeSell:     applySell,
	models.TradeTypeDividend: applyDividend,
	models.TradeTypeDRIP:     applyDRIP,
}

func fxOf(t *models.Trade) decimal.Decimal {
	if t.ExchangeRate.IsPositive() {
		return t.ExchangeRate
	}
	return decimal.NewFromInt(1)
}

func applyBuy(p *position, t *models.Trade) error {
	fx := fxOf(t)
	p.quantity = p.quantity.Add(t.Quantity)
	p.totalCost = p.totalCost.Add(t.Quantity.Mul(t.Price).Mul(fx)).Add(t.Fees.Mul(fx))
	return nil
}

func applySell(p *position, t *models.Trade) error {
	if t.Quantity.GreaterThan(p.quantity) {
		return &apperrors.ErrInsufficientHoldings{
			AccountID: t.AccountID,
			Ticker:    t.Ticker,
			TradeID:   t.ID,
			TradeDate: t.TradeDate,
			Requested: t.Quantity,
			Available: p.quantity,
		}
	}
	fx := fxOf(t)
	// cost leaves in proportion to units sold so a full exit zeroes it exactly
	costOut := p.totalCost.Mul(t.Quantity).Div(p.quantity)
	if t.Quantity.Equal(p.quantity) {
		costOut = p.totalCost
	}
	proceeds := t.Quantity.Mul(t.Price).Mul(fx).Sub(t.Fees.Mul(fx))
	p.realized = p.realized.Add(proceeds.Sub(costOut))
	p.totalCost = p.totalCost.Sub(costOut)
	p.quantity = p.quantity.Sub(t.Quantity)
	return nil
}

func applyDividend(p *position, t *models.Trade) error {
	fx := fxOf(t)
	amount := t.Price.Mul(fx)
	if t.Quantity.IsPositive() {
		amount = amount.Mul(t.Quantity)
	}
	p.dividends = p.dividends.Add(amount.Sub(t.Fees.Mul(fx)))
	return nil
}

func applyDRIP(p *position, t *models.Trade) error {
	p.quantity = p.quantity.Add(t.Quantity)
	p.totalCost = p.totalCost.Add(t.Quantity.Mul(t.Price).Mul(fxOf(t)))
	return nil
}

func (p *position) apply(t *models.Trade) error {
	h, ok := handlers[t.TradeType]
	if !ok {
		return fmt.Errorf("trade %d: unsupported trade type %q", t.ID, t.TradeType)
	}
	return h(p, t)
}

// SortTrades orders trades for replay: trade date, then id.
func SortTrades(trades []models.Trade) {
	sort.SliceStable(trades, func(i, j int) bool {
		if !trades[i].TradeDate.Equal(trades[j].TradeDate) {
			return trades[i].TradeDate.Before(trades[j].TradeDate)
		}
		return trades[i].ID < trades[j].ID
	})
}

func sortedCopy(trades []models.Trade) []models.Trade {
	out := make([]models.Trade, len(trades))
	copy(out, trades)
	SortTrades(out)
	return out
}

// Project replays every trade of one (account, ticker) pair into a Holding.
// The input order does not matter. The returned holding carries no price.
func Project(trades []models.Trade) (models.Holding, error) {
	var h models.Holding
	if len(trades) == 0 {
		return h, nil
	}
	ordered := sortedCopy(trades)
	h.AccountID = ordered[0].AccountID
	h.Ticker = ordered[0].Ticker

	var p position
	for i := range ordered {
		t := &ordered[i]
		if t.AccountID != h.AccountID || t.Ticker != h.Ticker {
			return models.Holding{}, fmt.Errorf("trade %d belongs to %d/%s, not %d/%s",
				t.ID, t.AccountID, t.Ticker, h.AccountID, h.Ticker)
		}
		if err := p.apply(t); err != nil {
			return models.Holding{}, err
		}
		if t.Name != "" {
			h.Name = t.Name
		}
		if t.ID > h.LastTradeID {
			h.LastTradeID = t.ID
		}
	}

	first := ordered[0].TradeDate
	h.FirstTradeDate = &first
	h.TradeCount = len(ordered)
	h.Quantity = p.quantity
	h.TotalCost = p.totalCost
	h.AverageCostBasis = p.averageCost()
	h.RealizedGain = p.realized
	h.Dividends = p.dividends
	h.Value = decimal.Zero
	h.UnrealizedGain = decimal.Zero
	return h, nil
}

// GroupByPair splits trades into their (account, ticker) streams.
func GroupByPair(trades []models.Trade) map[models.PairKey][]models.Trade {
	out := make(map[models.PairKey][]models.Trade)
	for _, t := range trades {
		k := t.Pair()
		out[k] = append(out[k], t)
	}
	return out
}

// ProjectAll projects each pair and returns the holdings ordered by account
// then ticker.
func ProjectAll(trades []models.Trade) ([]models.Holding, error) {
	groups := GroupByPair(trades)
	keys := make([]models.PairKey, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	SortPairs(keys)

	out := make([]models.Holding, 0, len(keys))
	for _, k := range keys {
		h, err := Project(groups[k])
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, nil
}

// SortPairs orders pair keys by account id then ticker.
func SortPairs(keys []models.PairKey) {
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].AccountID != keys[j].AccountID {
			return keys[i].AccountID < keys[j].AccountID
		}
		return keys[i].Ticker < keys[j].Ticker
	})
}
