package repositories

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"gorm.io/gorm"

	"github.com/tropicaldog17/networth/internal/db"
	apperrors "github.com/tropicaldog17/networth/internal/errors"
	"github.com/tropicaldog17/networth/internal/models"
)

const replayOrder = "trade_date ASC, id ASC"

type tradeRepository struct {
	db *gorm.DB
}

// NewTradeRepository creates a new trade repository
func NewTradeRepository(database *db.DB) TradeRepository {
	return &tradeRepository{db: database.DB}
}

func (r *tradeRepository) WithTx(tx *gorm.DB) TradeRepository {
	return &tradeRepository{db: tx}
}

func (r *tradeRepository) Create(ctx context.Context, trade *models.Trade) error {
	if err := r.db.WithContext(ctx).Create(trade).Error; err != nil {
		return fmt.Errorf("failed to create trade: %w", err)
	}
	return nil
}

func (r *tradeRepository) GetByID(ctx context.Context, id uint) (*models.Trade, error) {
	var trade models.Trade
	if err := r.db.WithContext(ctx).First(&trade, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &apperrors.ErrNotFound{Resource: "trade", ID: strconv.FormatUint(uint64(id), 10)}
		}
		return nil, fmt.Errorf("failed to get trade: %w", err)
	}
	return &trade, nil
}

func (r *tradeRepository) Update(ctx context.Context, trade *models.Trade) error {
	if err := r.db.WithContext(ctx).Save(trade).Error; err != nil {
		return fmt.Errorf("failed to update trade: %w", err)
	}
	return nil
}

func (r *tradeRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.Trade{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete trade: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return &apperrors.ErrNotFound{Resource: "trade", ID: strconv.FormatUint(uint64(id), 10)}
	}
	return nil
}

func (r *tradeRepository) ListByAccount(ctx context.Context, accountID uint, ticker string) ([]models.Trade, error) {
	query := r.db.WithContext(ctx).Where("account_id = ?", accountID)
	if ticker != "" {
		query = query.Where("ticker = ?", ticker)
	}
	var trades []models.Trade
	if err := query.Order(replayOrder).Find(&trades).Error; err != nil {
		return nil, fmt.Errorf("failed to list trades: %w", err)
	}
	return trades, nil
}

func (r *tradeRepository) ListByAccounts(ctx context.Context, accountIDs []uint) ([]models.Trade, error) {
	if len(accountIDs) == 0 {
		return nil, nil
	}
	var trades []models.Trade
	if err := r.db.WithContext(ctx).Where("account_id IN ?", accountIDs).Order(replayOrder).Find(&trades).Error; err != nil {
		return nil, fmt.Errorf("failed to list trades: %w", err)
	}
	return trades, nil
}

func (r *tradeRepository) ListAll(ctx context.Context) ([]models.Trade, error) {
	var trades []models.Trade
	if err := r.db.WithContext(ctx).Order(replayOrder).Find(&trades).Error; err != nil {
		return nil, fmt.Errorf("failed to list trades: %w", err)
	}
	return trades, nil
}

func (r *tradeRepository) CountByAccount(ctx context.Context, accountID uint) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Trade{}).Where("account_id = ?", accountID).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count trades: %w", err)
	}
	return count, nil
}

func (r *tradeRepository) DistinctTickers(ctx context.Context) ([]string, error) {
	var tickers []string
	if err := r.db.WithContext(ctx).Model(&models.Trade{}).Distinct("ticker").Order("ticker ASC").Pluck("ticker", &tickers).Error; err != nil {
		return nil, fmt.Errorf("failed to list tickers: %w", err)
	}
	return tickers, nil
}

// AccountIDs lists every account that owns at least one trade.
func (r *tradeRepository) AccountIDs(ctx context.Context) ([]uint, error) {
	var ids []uint
	if err := r.db.WithContext(ctx).Model(&models.Trade{}).Distinct("account_id").Order("account_id ASC").Pluck("account_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to list trading accounts: %w", err)
	}
	return ids, nil
}

func (r *tradeRepository) DeleteByAccount(ctx context.Context, accountID uint) error {
	if err := r.db.WithContext(ctx).Where("account_id = ?", accountID).Delete(&models.Trade{}).Error; err != nil {
		return fmt.Errorf("failed to delete trades: %w", err)
	}
	return nil
}
