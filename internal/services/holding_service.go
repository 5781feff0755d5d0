package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/tropicaldog17/networth/internal/db"
	"github.com/tropicaldog17/networth/internal/ledger"
	"github.com/tropicaldog17/networth/internal/logger"
	"github.com/tropicaldog17/networth/internal/models"
	"github.com/tropicaldog17/networth/internal/repositories"
)

// cachedHolding is a projection tagged with the ledger version it was built
// from. A cached entry whose version no longer matches is ignored.
type cachedHolding struct {
	version int64
	holding models.Holding
}

type holdingService struct {
	db       *db.DB
	accounts repositories.AccountRepository
	trades   repositories.TradeRepository
	versions repositories.LedgerVersionRepository
	prices   repositories.PriceRepository
	locks    *AccountLocks
	cache    *gocache.Cache
	clock    func() time.Time
	logger   *zap.Logger
}

// NewHoldingService creates the holding projector service with a
// version-keyed projection cache.
func NewHoldingService(database *db.DB, locks *AccountLocks, ttl time.Duration, log *zap.Logger) HoldingService {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &holdingService{
		db:       database,
		accounts: repositories.NewAccountRepository(database),
		trades:   repositories.NewTradeRepository(database),
		versions: repositories.NewLedgerVersionRepository(database),
		prices:   repositories.NewPriceRepository(database),
		locks:    locks,
		cache:    gocache.New(ttl, 2*ttl),
		clock:    time.Now,
		logger:   logger.OrNop(log),
	}
}

func cacheKey(key models.PairKey) string {
	return fmt.Sprintf("%d/%s", key.AccountID, key.Ticker)
}

// project returns the pair's holding, from cache when its version still
// matches, otherwise replayed from trades.
func (s *holdingService) project(ctx context.Context, tx *gorm.DB, key models.PairKey, trades []models.Trade) (models.Holding, error) {
	v, err := s.versions.WithTx(tx).Get(ctx, key)
	if err != nil {
		return models.Holding{}, err
	}
	if hit, ok := s.cache.Get(cacheKey(key)); ok {
		if entry := hit.(cachedHolding); entry.version == v.Version {
			return entry.holding, nil
		}
	}

	h, err := ledger.Project(trades)
	if err != nil {
		return models.Holding{}, err
	}
	h.AccountID = key.AccountID
	h.Ticker = key.Ticker
	h.Version = v.Version
	s.cache.SetDefault(cacheKey(key), cachedHolding{version: v.Version, holding: h})
	s.logger.Debug("holding projected",
		zap.Uint("account_id", key.AccountID),
		zap.String("ticker", key.Ticker),
		zap.Int64("version", v.Version))
	return h, nil
}

// value stamps the latest known price on each holding: the newer of the
// stored feed quote and the pair's own last trade price.
func (s *holdingService) value(ctx context.Context, tx *gorm.DB, holdings []models.Holding, byPair map[models.PairKey][]models.Trade) error {
	if len(holdings) == 0 {
		return nil
	}
	seen := make(map[string]struct{})
	var tickers []string
	for _, h := range holdings {
		if _, ok := seen[h.Ticker]; !ok {
			seen[h.Ticker] = struct{}{}
			tickers = append(tickers, h.Ticker)
		}
	}
	latest, err := s.prices.WithTx(tx).LatestForTickers(ctx, tickers)
	if err != nil {
		return err
	}
	quotes := make([]models.AssetPrice, 0, len(latest))
	for _, q := range latest {
		quotes = append(quotes, q)
	}

	today := models.DateOnly(s.clock())
	for i := range holdings {
		h := &holdings[i]
		book := ledger.NewPriceBook(quotes, byPair[models.PairKey{AccountID: h.AccountID, Ticker: h.Ticker}])
		if q, ok := book.QuoteAt(h.Ticker, today); ok {
			h.ApplyPrice(q)
		}
	}
	return nil
}

func (s *holdingService) GetHolding(ctx context.Context, accountID uint, ticker string) (*models.Holding, error) {
	key := models.PairKey{AccountID: accountID, Ticker: strings.ToUpper(strings.TrimSpace(ticker))}
	if _, err := s.accounts.GetByID(ctx, accountID); err != nil {
		return nil, err
	}
	unlock := s.locks.RLock(accountID)
	defer unlock()

	var out []models.Holding
	err := s.db.ReadTx(ctx, func(tx *gorm.DB) error {
		trades, err := s.trades.WithTx(tx).ListByAccount(ctx, key.AccountID, key.Ticker)
		if err != nil {
			return err
		}
		h, err := s.project(ctx, tx, key, trades)
		if err != nil {
			return err
		}
		out = []models.Holding{h}
		return s.value(ctx, tx, out, map[models.PairKey][]models.Trade{key: trades})
	})
	if err != nil {
		return nil, err
	}
	return &out[0], nil
}

func (s *holdingService) ListHoldings(ctx context.Context, accountID uint) ([]models.Holding, error) {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if !account.IsInvestment() {
		return []models.Holding{}, nil
	}
	return s.holdingsFor(ctx, []uint{accountID}, false)
}

// AllHoldings returns every active holding across active investment accounts.
func (s *holdingService) AllHoldings(ctx context.Context) ([]models.Holding, error) {
	ids, err := s.investmentAccountIDs(ctx)
	if err != nil {
		return nil, err
	}
	return s.holdingsFor(ctx, ids, false)
}

// Positions is AllHoldings plus fully sold pairs, whose realized gain and
// dividends still count.
func (s *holdingService) Positions(ctx context.Context) ([]models.Holding, error) {
	ids, err := s.investmentAccountIDs(ctx)
	if err != nil {
		return nil, err
	}
	return s.holdingsFor(ctx, ids, true)
}

func (s *holdingService) investmentAccountIDs(ctx context.Context) ([]uint, error) {
	accounts, err := s.accounts.List(ctx, false)
	if err != nil {
		return nil, err
	}
	var ids []uint
	for _, a := range accounts {
		if a.IsInvestment() {
			ids = append(ids, a.ID)
		}
	}
	return ids, nil
}

func (s *holdingService) holdingsFor(ctx context.Context, accountIDs []uint, includeClosed bool) ([]models.Holding, error) {
	out := []models.Holding{}
	if len(accountIDs) == 0 {
		return out, nil
	}
	unlock := s.locks.RLockMany(accountIDs)
	defer unlock()

	err := s.db.ReadTx(ctx, func(tx *gorm.DB) error {
		trades, err := s.trades.WithTx(tx).ListByAccounts(ctx, accountIDs)
		if err != nil {
			return err
		}
		byPair := ledger.GroupByPair(trades)
		keys := make([]models.PairKey, 0, len(byPair))
		for key := range byPair {
			keys = append(keys, key)
		}
		ledger.SortPairs(keys)
		for _, key := range keys {
			h, err := s.project(ctx, tx, key, byPair[key])
			if err != nil {
				return err
			}
			if includeClosed || h.IsActive() {
				out = append(out, h)
			}
		}
		return s.value(ctx, tx, out, byPair)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *holdingService) HeldTickers(ctx context.Context) ([]string, error) {
	holdings, err := s.AllHoldings(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	var tickers []string
	for _, h := range holdings {
		if _, ok := seen[h.Ticker]; ok {
			continue
		}
		seen[h.Ticker] = struct{}{}
		tickers = append(tickers, h.Ticker)
	}
	return tickers, nil
}
