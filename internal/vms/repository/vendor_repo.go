package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bitfantasy/vms/internal/vms/entity"
	"gorm.io/gorm"
)

// VendorRepository 供应商仓库
type VendorRepository struct {
	db *gorm.DB
}

func NewVendorRepository(db *gorm.DB) *VendorRepository {
	return &VendorRepository{db: db}
}

// FindAll 查询供应商列表
func (r *VendorRepository) FindAll(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.Vendor, int64, error) {
	var items []entity.Vendor
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.Vendor{})

	if search := filters["search"]; search != "" {
		query = query.Where("name ILIKE ? OR code ILIKE ?",
			"%"+search+"%", "%"+search+"%")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.
		Order("created_at DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&items).Error

	return items, total, err
}

// FindByID 根据ID查找供应商
func (r *VendorRepository) FindByID(ctx context.Context, id string) (*entity.Vendor, error) {
	var vendor entity.Vendor
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&vendor).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &vendor, nil
}

// Create 创建供应商
func (r *VendorRepository) Create(ctx context.Context, vendor *entity.Vendor) error {
	return r.db.WithContext(ctx).Create(vendor).Error
}

// Update 更新供应商
func (r *VendorRepository) Update(ctx context.Context, vendor *entity.Vendor) error {
	return r.db.WithContext(ctx).Save(vendor).Error
}

// Delete 删除供应商及其订单与历史
func (r *VendorRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("vendor_id = ?", id).Delete(&entity.PurchaseOrder{}).Error; err != nil {
			return err
		}
		if err := tx.Where("vendor_id = ?", id).Delete(&entity.HistoricalPerformance{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&entity.Vendor{}).Error
	})
}

// GenerateCode 生成供应商编码 V-{year}-{4位}
func (r *VendorRepository) GenerateCode(ctx context.Context) (string, error) {
	year := time.Now().Format("2006")
	prefix := fmt.Sprintf("V-%s-", year)

	var maxCode string
	err := r.db.WithContext(ctx).
		Model(&entity.Vendor{}).
		Select("COALESCE(MAX(code), '')").
		Where("code LIKE ?", prefix+"%").
		Scan(&maxCode).Error
	if err != nil {
		return "", err
	}

	var seq int
	if maxCode != "" {
		fmt.Sscanf(maxCode, "V-"+year+"-%04d", &seq)
	}
	seq++
	return fmt.Sprintf("V-%s-%04d", year, seq), nil
}
