package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bitfantasy/vms/internal/vms/entity"
	"github.com/bitfantasy/vms/internal/vms/repository"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const orderCacheTTL = 10 * time.Minute

// OrderService 采购订单服务。每次订单落库后同步调用指标服务重算，
// 恰好一次，这是指标引擎唯一的触发入口。
type OrderService struct {
	poRepo     *repository.PORepository
	vendorRepo *repository.VendorRepository
	metricsSvc *MetricsService
	rdb        *redis.Client
	strictFlow bool
}

func NewOrderService(poRepo *repository.PORepository, vendorRepo *repository.VendorRepository, metricsSvc *MetricsService, rdb *redis.Client, strictFlow bool) *OrderService {
	return &OrderService{
		poRepo:     poRepo,
		vendorRepo: vendorRepo,
		metricsSvc: metricsSvc,
		rdb:        rdb,
		strictFlow: strictFlow,
	}
}

// CreateOrderRequest 创建订单请求
type CreateOrderRequest struct {
	VendorID     string       `json:"vendor_id" binding:"required"`
	OrderDate    *time.Time   `json:"order_date"`
	DeliveryDate time.Time    `json:"delivery_date" binding:"required"`
	Items        entity.JSONB `json:"items"`
	Quantity     int          `json:"quantity" binding:"required"`
	Status       string       `json:"status"`
}

// UpdateOrderRequest 更新订单请求，指针字段缺省表示不修改
type UpdateOrderRequest struct {
	OrderDate          *time.Time   `json:"order_date"`
	DeliveryDate       *time.Time   `json:"delivery_date"`
	Items              entity.JSONB `json:"items"`
	Quantity           *int         `json:"quantity"`
	Status             *string      `json:"status"`
	QualityRating      *float64     `json:"quality_rating"`
	AcknowledgmentDate *time.Time   `json:"acknowledgment_date"`
	// ClearAcknowledgment 显式清空确认时间（仅限未进入终态的订单）
	ClearAcknowledgment bool `json:"clear_acknowledgment"`
}

// UpdateStatusRequest 状态流转请求
type UpdateStatusRequest struct {
	Status        string   `json:"status" binding:"required"`
	QualityRating *float64 `json:"quality_rating"`
}

// List 订单列表
func (s *OrderService) List(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.PurchaseOrder, int64, error) {
	return s.poRepo.FindAll(ctx, page, pageSize, filters)
}

// Get 订单详情，带redis缓存
func (s *OrderService) Get(ctx context.Context, id string) (*entity.PurchaseOrder, error) {
	if s.rdb != nil {
		if cached, err := s.rdb.Get(ctx, orderCacheKey(id)).Result(); err == nil {
			var po entity.PurchaseOrder
			if json.Unmarshal([]byte(cached), &po) == nil {
				return &po, nil
			}
		}
	}

	po, err := s.poRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.rdb != nil {
		if data, err := json.Marshal(po); err == nil {
			s.rdb.Set(ctx, orderCacheKey(id), data, orderCacheTTL)
		}
	}
	return po, nil
}

// Create 创建订单并触发指标重算
func (s *OrderService) Create(ctx context.Context, req *CreateOrderRequest) (*entity.PurchaseOrder, error) {
	if _, err := s.vendorRepo.FindByID(ctx, req.VendorID); err != nil {
		return nil, fmt.Errorf("vendor %s: %w", req.VendorID, err)
	}

	status := entity.POStatusPending
	if req.Status != "" {
		if !entity.IsValidStatus(req.Status) {
			return nil, fmt.Errorf("非法订单状态: %s", req.Status)
		}
		status = req.Status
	}

	poNumber, err := s.poRepo.GenerateCode(ctx)
	if err != nil {
		return nil, fmt.Errorf("生成PO编号失败: %w", err)
	}

	now := time.Now()
	orderDate := now
	if req.OrderDate != nil {
		orderDate = *req.OrderDate
	}

	po := &entity.PurchaseOrder{
		ID:           uuid.New().String()[:32],
		PONumber:     poNumber,
		VendorID:     req.VendorID,
		OrderDate:    orderDate,
		DeliveryDate: req.DeliveryDate,
		Items:        req.Items,
		Quantity:     req.Quantity,
		Status:       status,
		IssueDate:    now,
	}
	if entity.IsTerminalStatus(status) {
		po.AcknowledgmentDate = &now
	}

	if err := s.poRepo.Create(ctx, po); err != nil {
		return nil, err
	}

	if err := s.metricsSvc.RecomputeOnSave(ctx, po); err != nil {
		return nil, err
	}

	s.invalidate(ctx, po.ID)
	return po, nil
}

// Update 部分更新订单并触发指标重算
func (s *OrderService) Update(ctx context.Context, id string, req *UpdateOrderRequest) (*entity.PurchaseOrder, error) {
	po, err := s.poRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Status != nil {
		if err := s.applyStatus(po, *req.Status); err != nil {
			return nil, err
		}
	}
	if req.OrderDate != nil {
		po.OrderDate = *req.OrderDate
	}
	if req.DeliveryDate != nil {
		po.DeliveryDate = *req.DeliveryDate
	}
	if req.Items != nil {
		po.Items = req.Items
	}
	if req.Quantity != nil {
		po.Quantity = *req.Quantity
	}
	if req.QualityRating != nil {
		if err := validateRating(*req.QualityRating); err != nil {
			return nil, err
		}
		if po.Status != entity.POStatusCompleted {
			return nil, errors.New("只有已完成的订单可以评分")
		}
		po.QualityRating = req.QualityRating
	}
	if req.AcknowledgmentDate != nil {
		po.AcknowledgmentDate = req.AcknowledgmentDate
	}
	if req.ClearAcknowledgment {
		if entity.IsTerminalStatus(po.Status) {
			return nil, errors.New("终态订单的确认时间不可清空")
		}
		po.AcknowledgmentDate = nil
	}

	if err := s.poRepo.Update(ctx, po); err != nil {
		return nil, err
	}

	if err := s.metricsSvc.RecomputeOnSave(ctx, po); err != nil {
		return nil, err
	}

	s.invalidate(ctx, po.ID)
	return po, nil
}

// UpdateStatus 状态流转（供应商确认接口），可随状态附带质量评分
func (s *OrderService) UpdateStatus(ctx context.Context, id string, req *UpdateStatusRequest) (*entity.PurchaseOrder, error) {
	po, err := s.poRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.applyStatus(po, req.Status); err != nil {
		return nil, err
	}
	if req.QualityRating != nil {
		if err := validateRating(*req.QualityRating); err != nil {
			return nil, err
		}
		if po.Status != entity.POStatusCompleted {
			return nil, errors.New("只有已完成的订单可以评分")
		}
		po.QualityRating = req.QualityRating
	}

	if err := s.poRepo.Update(ctx, po); err != nil {
		return nil, err
	}

	if err := s.metricsSvc.RecomputeOnSave(ctx, po); err != nil {
		return nil, err
	}

	s.invalidate(ctx, po.ID)
	return po, nil
}

// Delete 删除订单。删除不触发重算，与指标引擎的保存语义保持一致。
func (s *OrderService) Delete(ctx context.Context, id string) error {
	if _, err := s.poRepo.FindByID(ctx, id); err != nil {
		return err
	}
	if err := s.poRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, id)
	return nil
}

// applyStatus 应用状态流转。宽松模式下允许任意流转（与上游数据层一致）；
// 严格模式下终态不可再流出。确认时间仅在首次进入终态时写入。
func (s *OrderService) applyStatus(po *entity.PurchaseOrder, status string) error {
	if !entity.IsValidStatus(status) {
		return fmt.Errorf("非法订单状态: %s", status)
	}
	if s.strictFlow && entity.IsTerminalStatus(po.Status) && status != po.Status {
		return fmt.Errorf("订单已进入终态 %s，不可流转为 %s", po.Status, status)
	}

	po.Status = status
	if entity.IsTerminalStatus(status) && po.AcknowledgmentDate == nil {
		now := time.Now()
		po.AcknowledgmentDate = &now
	}
	return nil
}

func (s *OrderService) invalidate(ctx context.Context, id string) {
	if s.rdb == nil {
		return
	}
	s.rdb.Del(ctx, orderCacheKey(id), vendorListCacheKey)
}

func orderCacheKey(id string) string {
	return "po:" + id
}

func validateRating(v float64) error {
	if v < 0 || v > 10 {
		return errors.New("质量评分必须在0到10之间")
	}
	return nil
}
