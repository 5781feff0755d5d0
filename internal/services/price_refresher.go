package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tropicaldog17/networth/internal/db"
	apperrors "github.com/tropicaldog17/networth/internal/errors"
	"github.com/tropicaldog17/networth/internal/logger"
	"github.com/tropicaldog17/networth/internal/models"
	"github.com/tropicaldog17/networth/internal/repositories"
)

const priceSourceFeed = "feed"

// PriceRefresherOptions tunes a price refresh.
type PriceRefresherOptions struct {
	SystemCurrency string
	Concurrency    int
	Timeout        time.Duration // per ticker, covering quote and fx
}

type priceRefresher struct {
	feed     QuoteFeed
	prices   repositories.PriceRepository
	holdings HoldingService
	listener PriceListener
	opts     PriceRefresherOptions
	logger   *zap.Logger
}

// NewPriceRefresher creates the price service. listener may be nil.
func NewPriceRefresher(database *db.DB, feed QuoteFeed, holdings HoldingService, listener PriceListener, opts PriceRefresherOptions, log *zap.Logger) PriceService {
	if opts.SystemCurrency == "" {
		opts.SystemCurrency = "AUD"
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	return &priceRefresher{
		feed:     feed,
		prices:   repositories.NewPriceRepository(database),
		holdings: holdings,
		listener: listener,
		opts:     opts,
		logger:   logger.OrNop(log),
	}
}

func (s *priceRefresher) RefreshHeld(ctx context.Context) (*models.RefreshReport, error) {
	tickers, err := s.holdings.HeldTickers(ctx)
	if err != nil {
		return nil, err
	}
	return s.RefreshPrices(ctx, tickers)
}

// RefreshPrices looks every ticker up concurrently. A failed lookup falls back
// to the last stored quote, flagged stale, and adds a warning; it never fails
// the whole refresh.
func (s *priceRefresher) RefreshPrices(ctx context.Context, tickers []string) (*models.RefreshReport, error) {
	tickers = normalizeTickers(tickers)
	report := &models.RefreshReport{
		Quotes:   make(map[string]models.Quote, len(tickers)),
		Stale:    []string{},
		Warnings: []models.PriceWarning{},
	}
	if len(tickers) == 0 {
		return report, nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Concurrency)
	for _, ticker := range tickers {
		g.Go(func() error {
			q, err := s.fetch(gctx, ticker)
			if err == nil {
				row := q.ToAssetPrice(priceSourceFeed)
				err = s.prices.Upsert(gctx, &row)
			}
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return s.fallback(gctx, ticker, err, report, &mu)
			}

			mu.Lock()
			report.Quotes[ticker] = *q
			report.Refreshed++
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	sort.Strings(report.Stale)
	sort.Slice(report.Warnings, func(i, j int) bool { return report.Warnings[i].Ticker < report.Warnings[j].Ticker })

	s.logger.Info("prices refreshed",
		zap.Int("requested", len(tickers)),
		zap.Int("refreshed", report.Refreshed),
		zap.Int("stale", len(report.Stale)))

	if report.Refreshed > 0 && s.listener != nil {
		if err := s.listener.OnPricesChanged(context.WithoutCancel(ctx)); err != nil {
			s.logger.Warn("recompute after price refresh failed", zap.Error(err))
		}
	}
	return report, nil
}

// fetch gets one quote converted to the system currency.
func (s *priceRefresher) fetch(ctx context.Context, ticker string) (*models.Quote, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	raw, err := s.feed.Quote(ctx, ticker)
	if err != nil {
		return nil, err
	}
	if raw == nil || !raw.Price.IsPositive() {
		return nil, fmt.Errorf("no usable price for %s", ticker)
	}
	currency := strings.ToUpper(raw.Currency)
	if currency == "" {
		currency = s.opts.SystemCurrency
	}
	fx := decimal.NewFromInt(1)
	if currency != s.opts.SystemCurrency {
		fx, err = s.feed.FXRate(ctx, currency, s.opts.SystemCurrency)
		if err != nil {
			return nil, fmt.Errorf("fx %s/%s: %w", currency, s.opts.SystemCurrency, err)
		}
		if !fx.IsPositive() {
			return nil, fmt.Errorf("fx %s/%s is not positive", currency, s.opts.SystemCurrency)
		}
	}
	asOf := raw.AsOf
	if asOf.IsZero() {
		asOf = time.Now()
	}
	return &models.Quote{
		Ticker:   ticker,
		Price:    raw.Price,
		Currency: currency,
		FXRate:   fx,
		AsOf:     asOf.UTC(),
	}, nil
}

func (s *priceRefresher) fallback(ctx context.Context, ticker string, cause error, report *models.RefreshReport, mu *sync.Mutex) error {
	feedErr := &apperrors.ErrPriceFeedUnavailable{Ticker: ticker, Cause: cause}
	s.logger.Warn("price lookup failed", zap.String("ticker", ticker), zap.Error(feedErr))

	cached, err := s.prices.Latest(ctx, ticker)
	var notFound *apperrors.ErrNotFound
	if err != nil && !errors.As(err, &notFound) {
		return err
	}

	mu.Lock()
	defer mu.Unlock()
	report.Stale = append(report.Stale, ticker)
	if cached == nil {
		report.Warnings = append(report.Warnings, models.PriceWarning{
			Ticker:  ticker,
			Message: feedErr.Error() + "; no cached price",
		})
		return nil
	}
	q := models.QuoteFromAssetPrice(*cached)
	q.Stale = true
	report.Quotes[ticker] = q
	report.Warnings = append(report.Warnings, models.PriceWarning{
		Ticker:  ticker,
		Message: fmt.Sprintf("%s; using cached price from %s", feedErr.Error(), cached.Date.Format(models.DateLayout)),
	})
	return nil
}

func normalizeTickers(tickers []string) []string {
	seen := make(map[string]struct{}, len(tickers))
	out := make([]string, 0, len(tickers))
	for _, t := range tickers {
		t = strings.ToUpper(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
