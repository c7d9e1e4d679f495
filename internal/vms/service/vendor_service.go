package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bitfantasy/vms/internal/vms/entity"
	"github.com/bitfantasy/vms/internal/vms/repository"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/xuri/excelize/v2"
)

const (
	vendorListCacheKey = "vendors:all"
	vendorListCacheTTL = time.Minute
)

// VendorService 供应商服务。绩效指标字段只读，客户端更新不可触碰，
// 写入只发生在指标引擎内。
type VendorService struct {
	repo        *repository.VendorRepository
	historyRepo *repository.HistoryRepository
	rdb         *redis.Client
}

func NewVendorService(repo *repository.VendorRepository, historyRepo *repository.HistoryRepository, rdb *redis.Client) *VendorService {
	return &VendorService{repo: repo, historyRepo: historyRepo, rdb: rdb}
}

// CreateVendorRequest 创建供应商请求
type CreateVendorRequest struct {
	Name           string `json:"name" binding:"required"`
	ContactDetails string `json:"contact_details"`
	Address        string `json:"address"`
}

// UpdateVendorRequest 更新供应商请求
type UpdateVendorRequest struct {
	Name           *string `json:"name"`
	ContactDetails *string `json:"contact_details"`
	Address        *string `json:"address"`
}

// VendorPerformance 当前绩效指标
type VendorPerformance struct {
	VendorID            string  `json:"vendor_id"`
	Code                string  `json:"code"`
	Name                string  `json:"name"`
	OnTimeDeliveryRate  float64 `json:"on_time_delivery_rate"`
	QualityRatingAvg    float64 `json:"quality_rating_avg"`
	AverageResponseTime float64 `json:"average_response_time"`
	FulfillmentRate     float64 `json:"fulfillment_rate"`
}

// List 供应商列表。无过滤条件的首页走redis缓存
func (s *VendorService) List(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.Vendor, int64, error) {
	cacheable := s.rdb != nil && page == 1 && filters["search"] == ""

	if cacheable {
		if cached, err := s.rdb.Get(ctx, vendorListCacheKey).Result(); err == nil {
			var result struct {
				Items []entity.Vendor `json:"items"`
				Total int64           `json:"total"`
			}
			if json.Unmarshal([]byte(cached), &result) == nil && len(result.Items) <= pageSize {
				return result.Items, result.Total, nil
			}
		}
	}

	items, total, err := s.repo.FindAll(ctx, page, pageSize, filters)
	if err != nil {
		return nil, 0, err
	}

	if cacheable {
		payload := struct {
			Items []entity.Vendor `json:"items"`
			Total int64           `json:"total"`
		}{Items: items, Total: total}
		if data, err := json.Marshal(payload); err == nil {
			s.rdb.Set(ctx, vendorListCacheKey, data, vendorListCacheTTL)
		}
	}
	return items, total, nil
}

// Get 供应商详情
func (s *VendorService) Get(ctx context.Context, id string) (*entity.Vendor, error) {
	return s.repo.FindByID(ctx, id)
}

// Create 创建供应商，编码自动生成且不可修改
func (s *VendorService) Create(ctx context.Context, req *CreateVendorRequest) (*entity.Vendor, error) {
	code, err := s.repo.GenerateCode(ctx)
	if err != nil {
		return nil, fmt.Errorf("生成供应商编码失败: %w", err)
	}

	vendor := &entity.Vendor{
		ID:             uuid.New().String()[:32],
		Code:           code,
		Name:           req.Name,
		ContactDetails: req.ContactDetails,
		Address:        req.Address,
	}

	if err := s.repo.Create(ctx, vendor); err != nil {
		return nil, err
	}

	s.invalidateList(ctx)
	return vendor, nil
}

// Update 更新供应商档案字段，不含绩效指标
func (s *VendorService) Update(ctx context.Context, id string, req *UpdateVendorRequest) (*entity.Vendor, error) {
	vendor, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		vendor.Name = *req.Name
	}
	if req.ContactDetails != nil {
		vendor.ContactDetails = *req.ContactDetails
	}
	if req.Address != nil {
		vendor.Address = *req.Address
	}

	if err := s.repo.Update(ctx, vendor); err != nil {
		return nil, err
	}

	s.invalidateList(ctx)
	return vendor, nil
}

// Delete 删除供应商
func (s *VendorService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidateList(ctx)
	return nil
}

// GetPerformance 供应商当前四项绩效指标
func (s *VendorService) GetPerformance(ctx context.Context, id string) (*VendorPerformance, error) {
	vendor, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &VendorPerformance{
		VendorID:            vendor.ID,
		Code:                vendor.Code,
		Name:                vendor.Name,
		OnTimeDeliveryRate:  vendor.OnTimeDeliveryRate,
		QualityRatingAvg:    vendor.QualityRatingAvg,
		AverageResponseTime: vendor.AverageResponseTime,
		FulfillmentRate:     vendor.FulfillmentRate,
	}, nil
}

// GetHistory 供应商绩效历史快照
func (s *VendorService) GetHistory(ctx context.Context, id string, page, pageSize int) ([]entity.HistoricalPerformance, int64, error) {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return nil, 0, err
	}
	return s.historyRepo.FindByVendor(ctx, id, page, pageSize)
}

var historyExportHeaders = []string{
	"记录时间", "准时交付率", "质量评分均值", "平均响应时间(秒)", "履约率",
}

// ExportHistory 导出供应商绩效历史为xlsx
func (s *VendorService) ExportHistory(ctx context.Context, id string) (*excelize.File, string, error) {
	vendor, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, "", fmt.Errorf("vendor not found: %w", err)
	}

	snaps, err := s.historyRepo.FindAllByVendor(ctx, id)
	if err != nil {
		return nil, "", fmt.Errorf("list snapshots: %w", err)
	}

	f := excelize.NewFile()
	sheet := "Performance"
	f.SetSheetName("Sheet1", sheet)

	// 表头样式: 加粗
	boldStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})

	for i, h := range historyExportHeaders {
		col, _ := excelize.ColumnNumberToName(i + 1)
		cell := col + "1"
		f.SetCellValue(sheet, cell, h)
		f.SetCellStyle(sheet, cell, cell, boldStyle)
	}

	for rowIdx, snap := range snaps {
		row := rowIdx + 2
		f.SetCellValue(sheet, fmt.Sprintf("A%d", row), snap.RecordedAt.Format("2006-01-02 15:04:05"))
		f.SetCellValue(sheet, fmt.Sprintf("B%d", row), snap.OnTimeDeliveryRate)
		f.SetCellValue(sheet, fmt.Sprintf("C%d", row), snap.QualityRatingAvg)
		f.SetCellValue(sheet, fmt.Sprintf("D%d", row), snap.AverageResponseTime)
		f.SetCellValue(sheet, fmt.Sprintf("E%d", row), snap.FulfillmentRate)
	}

	colWidths := []float64{20, 14, 14, 18, 12}
	for i, w := range colWidths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheet, col, col, w)
	}

	filename := fmt.Sprintf("Performance_%s.xlsx", vendor.Code)
	return f, filename, nil
}

func (s *VendorService) invalidateList(ctx context.Context) {
	if s.rdb == nil {
		return
	}
	s.rdb.Del(ctx, vendorListCacheKey)
}
