package repositories

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/tropicaldog17/networth/internal/db"
	"github.com/tropicaldog17/networth/internal/models"
)

type netWorthRepository struct {
	db *gorm.DB
}

// NewNetWorthRepository creates a new net-worth point repository
func NewNetWorthRepository(database *db.DB) NetWorthRepository {
	return &netWorthRepository{db: database.DB}
}

func (r *netWorthRepository) WithTx(tx *gorm.DB) NetWorthRepository {
	return &netWorthRepository{db: tx}
}

// ReplaceAll drops every stored point and writes points in their place.
// Run it inside a transaction so readers never see a partial series.
func (r *netWorthRepository) ReplaceAll(ctx context.Context, points []models.NetWorthPoint) error {
	q := r.db.WithContext(ctx)
	if err := q.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.NetWorthPoint{}).Error; err != nil {
		return fmt.Errorf("failed to clear net worth points: %w", err)
	}
	if len(points) == 0 {
		return nil
	}
	rows := make([]models.NetWorthPoint, len(points))
	for i, p := range points {
		p.ID = 0
		p.Date = models.DateOnly(p.Date)
		rows[i] = p
	}
	if err := q.CreateInBatches(&rows, 200).Error; err != nil {
		return fmt.Errorf("failed to insert net worth points: %w", err)
	}
	return nil
}

func (r *netWorthRepository) List(ctx context.Context, period models.Period) ([]models.NetWorthPoint, error) {
	query := r.db.WithContext(ctx).Order("date ASC")
	if !period.StartDate.IsZero() {
		query = query.Where("date >= ?", period.StartDate)
	}
	if !period.EndDate.IsZero() {
		query = query.Where("date <= ?", period.EndDate)
	}
	var points []models.NetWorthPoint
	if err := query.Find(&points).Error; err != nil {
		return nil, fmt.Errorf("failed to list net worth points: %w", err)
	}
	return points, nil
}
