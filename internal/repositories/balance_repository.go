package repositories

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tropicaldog17/networth/internal/db"
	"github.com/tropicaldog17/networth/internal/models"
)

type balanceRepository struct {
	db *gorm.DB
}

// NewBalanceRepository creates a new balance snapshot repository
func NewBalanceRepository(database *db.DB) BalanceRepository {
	return &balanceRepository{db: database.DB}
}

func (r *balanceRepository) WithTx(tx *gorm.DB) BalanceRepository {
	return &balanceRepository{db: tx}
}

// Upsert writes the snapshot for (account, date), replacing any existing row.
func (r *balanceRepository) Upsert(ctx context.Context, snap *models.BalanceSnapshot) error {
	snap.Date = models.DateOnly(snap.Date)
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "account_id"}, {Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{"balance", "source", "updated_at"}),
	}).Create(snap).Error
	if err != nil {
		return fmt.Errorf("failed to upsert balance snapshot: %w", err)
	}
	return nil
}

func (r *balanceRepository) ListByAccount(ctx context.Context, accountID uint) ([]models.BalanceSnapshot, error) {
	var snaps []models.BalanceSnapshot
	if err := r.db.WithContext(ctx).Where("account_id = ?", accountID).Order("date ASC").Find(&snaps).Error; err != nil {
		return nil, fmt.Errorf("failed to list balance snapshots: %w", err)
	}
	return snaps, nil
}

func (r *balanceRepository) ListAll(ctx context.Context) ([]models.BalanceSnapshot, error) {
	var snaps []models.BalanceSnapshot
	if err := r.db.WithContext(ctx).Order("account_id ASC, date ASC").Find(&snaps).Error; err != nil {
		return nil, fmt.Errorf("failed to list balance snapshots: %w", err)
	}
	return snaps, nil
}

// AccountIDsOn lists the accounts holding a snapshot of either source on date.
func (r *balanceRepository) AccountIDsOn(ctx context.Context, date time.Time) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.BalanceSnapshot{}).
		Where("date = ?", models.DateOnly(date)).
		Distinct("account_id").Order("account_id ASC").
		Pluck("account_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts with snapshots: %w", err)
	}
	return ids, nil
}

func (r *balanceRepository) DeleteByAccountDate(ctx context.Context, accountID uint, date time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("account_id = ? AND date = ?", accountID, models.DateOnly(date)).
		Delete(&models.BalanceSnapshot{})
	if result.Error != nil {
		return false, fmt.Errorf("failed to delete balance snapshot: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// ReplaceComputed swaps the account's computed snapshots for snaps. Dates
// already holding a manual entry keep it; the count of rows written is returned.
func (r *balanceRepository) ReplaceComputed(ctx context.Context, accountID uint, snaps []models.BalanceSnapshot) (int, error) {
	q := r.db.WithContext(ctx)
	if err := q.Where("account_id = ? AND source = ?", accountID, models.SnapshotSourceComputed).
		Delete(&models.BalanceSnapshot{}).Error; err != nil {
		return 0, fmt.Errorf("failed to clear computed snapshots: %w", err)
	}

	var manual []models.BalanceSnapshot
	if err := q.Where("account_id = ? AND source = ?", accountID, models.SnapshotSourceManual).Find(&manual).Error; err != nil {
		return 0, fmt.Errorf("failed to list manual snapshots: %w", err)
	}
	taken := make(map[time.Time]struct{}, len(manual))
	for _, m := range manual {
		taken[models.DateOnly(m.Date)] = struct{}{}
	}

	rows := make([]models.BalanceSnapshot, 0, len(snaps))
	for _, s := range snaps {
		s.ID = 0
		s.AccountID = accountID
		s.Date = models.DateOnly(s.Date)
		s.Source = models.SnapshotSourceComputed
		if _, ok := taken[s.Date]; ok {
			continue
		}
		rows = append(rows, s)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	if err := q.CreateInBatches(&rows, 200).Error; err != nil {
		return 0, fmt.Errorf("failed to insert computed snapshots: %w", err)
	}
	return len(rows), nil
}

func (r *balanceRepository) DeleteByAccount(ctx context.Context, accountID uint) error {
	if err := r.db.WithContext(ctx).Where("account_id = ?", accountID).Delete(&models.BalanceSnapshot{}).Error; err != nil {
		return fmt.Errorf("failed to delete balance snapshots: %w", err)
	}
	return nil
}
