package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tropicaldog17/networth/internal/db"
	apperrors "github.com/tropicaldog17/networth/internal/errors"
	"github.com/tropicaldog17/networth/internal/models"
)

type priceRepository struct {
	db *gorm.DB
}

// NewPriceRepository creates a new asset price repository
func NewPriceRepository(database *db.DB) PriceRepository {
	return &priceRepository{db: database.DB}
}

func (r *priceRepository) WithTx(tx *gorm.DB) PriceRepository {
	return &priceRepository{db: tx}
}

// Upsert stores the quote for its (ticker, date); a later quote on the same
// day replaces the earlier one.
func (r *priceRepository) Upsert(ctx context.Context, price *models.AssetPrice) error {
	if err := price.Validate(); err != nil {
		return fmt.Errorf("invalid asset price: %w", err)
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "ticker"}, {Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{"price", "currency", "fx_rate", "source", "as_of", "updated_at"}),
	}).Create(price).Error
	if err != nil {
		return fmt.Errorf("failed to upsert asset price: %w", err)
	}
	return nil
}

func (r *priceRepository) Latest(ctx context.Context, ticker string) (*models.AssetPrice, error) {
	var p models.AssetPrice
	err := r.db.WithContext(ctx).Where("ticker = ?", ticker).Order("date DESC").First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &apperrors.ErrNotFound{Resource: "asset price", ID: ticker}
		}
		return nil, fmt.Errorf("failed to get asset price: %w", err)
	}
	return &p, nil
}

// LatestForTickers returns the most recent stored quote of each ticker that
// has one.
func (r *priceRepository) LatestForTickers(ctx context.Context, tickers []string) (map[string]models.AssetPrice, error) {
	out := make(map[string]models.AssetPrice, len(tickers))
	if len(tickers) == 0 {
		return out, nil
	}
	latest := r.db.WithContext(ctx).Model(&models.AssetPrice{}).
		Select("ticker, MAX(date) AS date").
		Where("ticker IN ?", tickers).
		Group("ticker")
	var rows []models.AssetPrice
	err := r.db.WithContext(ctx).
		Joins("JOIN (?) AS latest ON latest.ticker = asset_prices.ticker AND latest.date = asset_prices.date", latest).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list latest asset prices: %w", err)
	}
	for _, p := range rows {
		out[p.Ticker] = p
	}
	return out, nil
}

func (r *priceRepository) ListForTickers(ctx context.Context, tickers []string, upTo time.Time) ([]models.AssetPrice, error) {
	if len(tickers) == 0 {
		return nil, nil
	}
	query := r.db.WithContext(ctx).Where("ticker IN ?", tickers)
	if !upTo.IsZero() {
		query = query.Where("date <= ?", models.DateOnly(upTo))
	}
	var rows []models.AssetPrice
	if err := query.Order("ticker ASC, date ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list asset prices: %w", err)
	}
	return rows, nil
}
