package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/bitfantasy/vms/internal/vms/entity"
	"github.com/bitfantasy/vms/internal/vms/monitoring"
	"github.com/bitfantasy/vms/internal/vms/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// VendorMetrics 单轮重算结果。nil槽位表示本轮未重算该指标，
// 与"计算结果恰好为0"严格区分，由历史记录器负责向前结转。
type VendorMetrics struct {
	OnTimeDeliveryRate  *float64
	QualityRatingAvg    *float64
	AverageResponseTime *float64
	FulfillmentRate     *float64
}

// IsEmpty 本轮是否没有任何指标被重算
func (m VendorMetrics) IsEmpty() bool {
	return m.OnTimeDeliveryRate == nil &&
		m.QualityRatingAvg == nil &&
		m.AverageResponseTime == nil &&
		m.FulfillmentRate == nil
}

// MetricsService 指标服务：订单保存后同步重算供应商四项绩效指标，
// 回写供应商行并追加一条历史快照。
type MetricsService struct {
	vendorRepo *repository.VendorRepository
	poRepo     *repository.PORepository
	db         *gorm.DB
}

func NewMetricsService(vendorRepo *repository.VendorRepository, poRepo *repository.PORepository, db *gorm.DB) *MetricsService {
	return &MetricsService{vendorRepo: vendorRepo, poRepo: poRepo, db: db}
}

// ComputeVendorMetrics 指标引擎：给定触发重算的订单与该供应商的全量订单，
// 独立计算四项指标。每项指标有各自的触发条件，不满足则对应槽位为nil。
func ComputeVendorMetrics(trigger *entity.PurchaseOrder, orders []entity.PurchaseOrder) VendorMetrics {
	return VendorMetrics{
		OnTimeDeliveryRate:  computeOnTimeDeliveryRate(trigger, orders),
		QualityRatingAvg:    computeQualityRatingAvg(trigger, orders),
		AverageResponseTime: computeAverageResponseTime(trigger, orders),
		FulfillmentRate:     computeFulfillmentRate(trigger, orders),
	}
}

// computeOnTimeDeliveryRate 准时交付率：触发订单完成时才重算。
// 已完成订单中确认日期不晚于交付日期的占比，保留2位小数。
// 无已完成订单时返回0.0（显式计算结果，不是"未计算"）。
func computeOnTimeDeliveryRate(trigger *entity.PurchaseOrder, orders []entity.PurchaseOrder) *float64 {
	if trigger.Status != entity.POStatusCompleted {
		return nil
	}

	var completed, onTime int
	for _, po := range orders {
		if po.Status != entity.POStatusCompleted {
			continue
		}
		completed++
		if po.AcknowledgmentDate != nil && !po.AcknowledgmentDate.After(po.DeliveryDate) {
			onTime++
		}
	}

	rate := 0.0
	if completed > 0 {
		rate = round2(float64(onTime) / float64(completed))
	}
	return &rate
}

// computeQualityRatingAvg 质量评分均值：触发订单已完成且带评分时才重算。
// 对该供应商所有带评分订单（不限状态）取算术平均，保留1位小数。
func computeQualityRatingAvg(trigger *entity.PurchaseOrder, orders []entity.PurchaseOrder) *float64 {
	if trigger.QualityRating == nil || trigger.Status != entity.POStatusCompleted {
		return nil
	}

	var sum float64
	var count int
	for _, po := range orders {
		if po.QualityRating == nil {
			continue
		}
		sum += *po.QualityRating
		count++
	}
	if count == 0 {
		return nil
	}

	avg := round1(sum / float64(count))
	return &avg
}

// computeAverageResponseTime 平均响应时间：触发订单已确认时才重算。
// 对所有已确认订单取(确认时间-下发时间)的均值，单位秒，不舍入。
func computeAverageResponseTime(trigger *entity.PurchaseOrder, orders []entity.PurchaseOrder) *float64 {
	if trigger.AcknowledgmentDate == nil {
		return nil
	}

	var totalSeconds float64
	var count int
	for _, po := range orders {
		if po.AcknowledgmentDate == nil {
			continue
		}
		totalSeconds += po.AcknowledgmentDate.Sub(po.IssueDate).Seconds()
		count++
	}
	if count == 0 {
		return nil
	}

	avg := totalSeconds / float64(count)
	return &avg
}

// computeFulfillmentRate 履约率：触发订单进入终态（完成/取消）时才重算。
// 已完成订单数占全部订单数的比例，保留2位小数。
func computeFulfillmentRate(trigger *entity.PurchaseOrder, orders []entity.PurchaseOrder) *float64 {
	if !entity.IsTerminalStatus(trigger.Status) {
		return nil
	}
	if len(orders) == 0 {
		return nil
	}

	var completed int
	for _, po := range orders {
		if po.Status == entity.POStatusCompleted {
			completed++
		}
	}

	rate := round2(float64(completed) / float64(len(orders)))
	return &rate
}

// mergeSnapshot 历史记录器：生成一条新快照。本轮未重算的槽位从上一条
// 快照结转；没有上一条快照时填0.0。
func mergeSnapshot(vendorID string, m VendorMetrics, prior *entity.HistoricalPerformance, now time.Time) *entity.HistoricalPerformance {
	snap := &entity.HistoricalPerformance{
		ID:         uuid.New().String()[:32],
		VendorID:   vendorID,
		RecordedAt: now,
	}

	if prior != nil {
		snap.OnTimeDeliveryRate = prior.OnTimeDeliveryRate
		snap.QualityRatingAvg = prior.QualityRatingAvg
		snap.AverageResponseTime = prior.AverageResponseTime
		snap.FulfillmentRate = prior.FulfillmentRate
	}

	if m.OnTimeDeliveryRate != nil {
		snap.OnTimeDeliveryRate = *m.OnTimeDeliveryRate
	}
	if m.QualityRatingAvg != nil {
		snap.QualityRatingAvg = *m.QualityRatingAvg
	}
	if m.AverageResponseTime != nil {
		snap.AverageResponseTime = *m.AverageResponseTime
	}
	if m.FulfillmentRate != nil {
		snap.FulfillmentRate = *m.FulfillmentRate
	}

	return snap
}

// applyMetrics 把本轮重算出的指标写入供应商字段，nil槽位保持原值
func applyMetrics(vendor *entity.Vendor, m VendorMetrics) {
	if m.OnTimeDeliveryRate != nil {
		vendor.OnTimeDeliveryRate = *m.OnTimeDeliveryRate
	}
	if m.QualityRatingAvg != nil {
		vendor.QualityRatingAvg = *m.QualityRatingAvg
	}
	if m.AverageResponseTime != nil {
		vendor.AverageResponseTime = *m.AverageResponseTime
	}
	if m.FulfillmentRate != nil {
		vendor.FulfillmentRate = *m.FulfillmentRate
	}
}

// RecomputeOnSave 订单持久化后由订单服务同步调用，每次逻辑保存恰好一次。
// 供应商回写与快照追加在同一事务内完成，任一失败则整体回滚并使触发
// 保存失败。重复调用对指标值幂等，但每次都会追加一条新快照。
func (s *MetricsService) RecomputeOnSave(ctx context.Context, order *entity.PurchaseOrder) error {
	vendor, err := s.vendorRepo.FindByID(ctx, order.VendorID)
	if err != nil {
		return fmt.Errorf("load vendor %s: %w", order.VendorID, err)
	}

	orders, err := s.poRepo.FindByVendor(ctx, order.VendorID)
	if err != nil {
		return fmt.Errorf("list orders for vendor %s: %w", order.VendorID, err)
	}

	metrics := ComputeVendorMetrics(order, orders)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		applyMetrics(vendor, metrics)
		if err := tx.Save(vendor).Error; err != nil {
			return fmt.Errorf("update vendor metrics: %w", err)
		}

		var prior *entity.HistoricalPerformance
		var last entity.HistoricalPerformance
		res := tx.Where("vendor_id = ?", vendor.ID).
			Order("recorded_at DESC").
			First(&last)
		if res.Error == nil {
			prior = &last
		} else if !errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return fmt.Errorf("load prior snapshot: %w", res.Error)
		}

		snap := mergeSnapshot(vendor.ID, metrics, prior, time.Now())
		if err := tx.Create(snap).Error; err != nil {
			return fmt.Errorf("append snapshot: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	monitoring.RecordRecompute(metrics.IsEmpty())
	return nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
