package repository

import (
	"context"
	"errors"

	"github.com/bitfantasy/vms/internal/vms/entity"
	"gorm.io/gorm"
)

// HistoryRepository 绩效历史仓库，只追加不修改
type HistoryRepository struct {
	db *gorm.DB
}

func NewHistoryRepository(db *gorm.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// FindByVendor 查询供应商的历史快照（新→旧）
func (r *HistoryRepository) FindByVendor(ctx context.Context, vendorID string, page, pageSize int) ([]entity.HistoricalPerformance, int64, error) {
	var items []entity.HistoricalPerformance
	var total int64

	query := r.db.WithContext(ctx).
		Model(&entity.HistoricalPerformance{}).
		Where("vendor_id = ?", vendorID)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.
		Order("recorded_at DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&items).Error

	return items, total, err
}

// FindAllByVendor 查询供应商的全部历史快照（旧→新，导出用）
func (r *HistoryRepository) FindAllByVendor(ctx context.Context, vendorID string) ([]entity.HistoricalPerformance, error) {
	var items []entity.HistoricalPerformance
	err := r.db.WithContext(ctx).
		Where("vendor_id = ?", vendorID).
		Order("recorded_at ASC").
		Find(&items).Error
	return items, err
}

// FindLatest 查询供应商最近一次快照，无则返回nil
func (r *HistoryRepository) FindLatest(ctx context.Context, vendorID string) (*entity.HistoricalPerformance, error) {
	var snap entity.HistoricalPerformance
	err := r.db.WithContext(ctx).
		Where("vendor_id = ?", vendorID).
		Order("recorded_at DESC").
		First(&snap).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &snap, nil
}

// Append 追加快照
func (r *HistoryRepository) Append(ctx context.Context, snap *entity.HistoricalPerformance) error {
	return r.db.WithContext(ctx).Create(snap).Error
}
