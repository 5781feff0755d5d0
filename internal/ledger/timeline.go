package ledger

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tropicaldog17/networth/internal/models"
)

// cursor replays one pair's trades forward in time.
type cursor struct {
	ticker string
	trades []models.Trade // sorted for replay
	next   int
	pos    position
}

func newCursor(ticker string, trades []models.Trade) *cursor {
	return &cursor{ticker: ticker, trades: sortedCopy(trades)}
}

// advanceTo applies every trade dated on or before cutoff.
func (c *cursor) advanceTo(cutoff time.Time) error {
	for c.next < len(c.trades) {
		t := &c.trades[c.next]
		if t.TradeDate.After(cutoff) {
			break
		}
		if err := c.pos.apply(t); err != nil {
			return err
		}
		c.next++
	}
	return nil
}

// pricePoint is a unit value in system currency known from a given date.
type pricePoint struct {
	date  time.Time
	value decimal.Decimal
	quote models.Quote
}

// PriceBook answers "what was one unit worth on date d" for each ticker from
// stored quotes and the prices of the trades themselves.
type PriceBook struct {
	points map[string][]pricePoint
}

// NewPriceBook indexes quotes and trade prices. DIVIDEND trades carry a
// per-unit payout rather than a market price and are skipped. A stored quote
// wins over a trade price on the same day.
func NewPriceBook(quotes []models.AssetPrice, trades []models.Trade) *PriceBook {
	type key struct {
		ticker string
		date   time.Time
	}
	byKey := make(map[key]pricePoint)

	for _, t := range sortedCopy(trades) {
		if t.TradeType == models.TradeTypeDividend {
			continue
		}
		k := key{t.Ticker, models.DateOnly(t.TradeDate)}
		// last trade of the day wins
		byKey[k] = pricePoint{
			date:  k.date,
			value: t.Price.Mul(fxOf(&t)),
			quote: models.Quote{
				Ticker:   t.Ticker,
				Price:    t.Price,
				Currency: t.Currency,
				FXRate:   fxOf(&t),
				AsOf:     k.date,
				Stale:    true,
			},
		}
	}
	for _, q := range quotes {
		k := key{q.Ticker, models.DateOnly(q.Date)}
		quote := models.QuoteFromAssetPrice(q)
		byKey[k] = pricePoint{date: k.date, value: quote.SystemValue(), quote: quote}
	}

	b := &PriceBook{points: make(map[string][]pricePoint)}
	for k, p := range byKey {
		b.points[k.ticker] = append(b.points[k.ticker], p)
	}
	for ticker := range b.points {
		pts := b.points[ticker]
		sort.Slice(pts, func(i, j int) bool { return pts[i].date.Before(pts[j].date) })
	}
	return b
}

func (b *PriceBook) at(ticker string, d time.Time) (pricePoint, bool) {
	pts := b.points[ticker]
	i := sort.Search(len(pts), func(i int) bool { return pts[i].date.After(d) })
	if i == 0 {
		return pricePoint{}, false
	}
	return pts[i-1], true
}

// UnitValue returns the most recent known unit value of ticker on or before d.
func (b *PriceBook) UnitValue(ticker string, d time.Time) (decimal.Decimal, bool) {
	p, ok := b.at(ticker, d)
	return p.value, ok
}

// QuoteAt returns the quote behind UnitValue. Quotes taken from a trade
// rather than the feed are marked stale.
func (b *PriceBook) QuoteAt(ticker string, d time.Time) (models.Quote, bool) {
	p, ok := b.at(ticker, d)
	return p.quote, ok
}

// Point is a balance on one date.
type Point struct {
	Date    time.Time
	Balance decimal.Decimal
}

// ValueAccount values one investment account's trades on each of dates
// (ascending). Units without any known price on a date fall back to their
// average cost so the account never drops to zero for lack of a quote.
func ValueAccount(trades []models.Trade, book *PriceBook, dates []time.Time) ([]Point, error) {
	groups := make(map[string][]models.Trade)
	for _, t := range trades {
		groups[t.Ticker] = append(groups[t.Ticker], t)
	}
	tickers := make([]string, 0, len(groups))
	for tk := range groups {
		tickers = append(tickers, tk)
	}
	sort.Strings(tickers)

	cursors := make([]*cursor, 0, len(tickers))
	for _, tk := range tickers {
		cursors = append(cursors, newCursor(tk, groups[tk]))
	}

	out := make([]Point, 0, len(dates))
	for _, d := range dates {
		total := decimal.Zero
		for _, c := range cursors {
			if err := c.advanceTo(d); err != nil {
				return nil, err
			}
			if !c.pos.quantity.IsPositive() {
				continue
			}
			unit, ok := book.UnitValue(c.ticker, d)
			if !ok {
				unit = c.pos.averageCost()
			}
			total = total.Add(c.pos.quantity.Mul(unit))
		}
		out = append(out, Point{Date: d, Balance: total})
	}
	return out, nil
}
