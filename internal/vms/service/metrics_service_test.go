package service

import (
	"testing"
	"time"

	"github.com/bitfantasy/vms/internal/vms/entity"
)

var testBase = time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

type orderFixture struct {
	status   string
	issue    time.Time
	delivery time.Time
	ack      *time.Time
	rating   *float64
}

func makeOrder(fx orderFixture) entity.PurchaseOrder {
	return entity.PurchaseOrder{
		ID:                 "po-" + fx.issue.Format("150405"),
		Status:             fx.status,
		IssueDate:          fx.issue,
		DeliveryDate:       fx.delivery,
		AcknowledgmentDate: fx.ack,
		QualityRating:      fx.rating,
	}
}

func timePtr(t time.Time) *time.Time { return &t }

func floatPtr(v float64) *float64 { return &v }

func completedAt(ack time.Time, delivery time.Time) entity.PurchaseOrder {
	return makeOrder(orderFixture{
		status:   entity.POStatusCompleted,
		issue:    testBase,
		delivery: delivery,
		ack:      timePtr(ack),
	})
}

func TestOnTimeDeliveryRateNotRecomputedForPendingTrigger(t *testing.T) {
	trigger := makeOrder(orderFixture{status: entity.POStatusPending, issue: testBase, delivery: testBase.Add(72 * time.Hour)})
	m := ComputeVendorMetrics(&trigger, []entity.PurchaseOrder{trigger})

	if m.OnTimeDeliveryRate != nil {
		t.Fatalf("expected on-time rate to be skipped for pending trigger, got %v", *m.OnTimeDeliveryRate)
	}
}

func TestOnTimeDeliveryRateZeroCompletedIsExplicitZero(t *testing.T) {
	// 触发订单已完成，但历史集合里没有已完成订单：
	// 结果必须是显式的0.0，而不是"本轮未计算"。
	trigger := makeOrder(orderFixture{status: entity.POStatusCompleted, issue: testBase, delivery: testBase.Add(24 * time.Hour)})
	orders := []entity.PurchaseOrder{
		makeOrder(orderFixture{status: entity.POStatusPending, issue: testBase, delivery: testBase.Add(24 * time.Hour)}),
	}

	m := ComputeVendorMetrics(&trigger, orders)
	if m.OnTimeDeliveryRate == nil {
		t.Fatal("expected on-time rate to be present")
	}
	if *m.OnTimeDeliveryRate != 0.0 {
		t.Fatalf("expected 0.0, got %v", *m.OnTimeDeliveryRate)
	}
}

func TestOnTimeDeliveryRateTwoOfThree(t *testing.T) {
	delivery := testBase.Add(72 * time.Hour)
	orders := []entity.PurchaseOrder{
		completedAt(delivery.Add(-time.Hour), delivery), // 准时
		completedAt(delivery, delivery),                 // 恰好准时
		completedAt(delivery.Add(time.Hour), delivery),  // 迟到
	}
	trigger := orders[2]

	m := ComputeVendorMetrics(&trigger, orders)
	if m.OnTimeDeliveryRate == nil {
		t.Fatal("expected on-time rate to be present")
	}
	if *m.OnTimeDeliveryRate != 0.67 {
		t.Fatalf("expected 0.67, got %v", *m.OnTimeDeliveryRate)
	}
}

func TestQualityRatingAvgProgression(t *testing.T) {
	delivery := testBase.Add(48 * time.Hour)

	first := completedAt(delivery, delivery)
	first.QualityRating = floatPtr(4.5)

	m := ComputeVendorMetrics(&first, []entity.PurchaseOrder{first})
	if m.QualityRatingAvg == nil || *m.QualityRatingAvg != 4.5 {
		t.Fatalf("expected 4.5, got %v", m.QualityRatingAvg)
	}

	second := completedAt(delivery, delivery)
	second.QualityRating = floatPtr(6.5)

	m = ComputeVendorMetrics(&second, []entity.PurchaseOrder{first, second})
	if m.QualityRatingAvg == nil || *m.QualityRatingAvg != 5.5 {
		t.Fatalf("expected 5.5, got %v", m.QualityRatingAvg)
	}

	// 无评分的取消订单不触发质量均值重算
	canceled := makeOrder(orderFixture{
		status:   entity.POStatusCanceled,
		issue:    testBase,
		delivery: delivery,
		ack:      timePtr(delivery),
	})
	m = ComputeVendorMetrics(&canceled, []entity.PurchaseOrder{first, second, canceled})
	if m.QualityRatingAvg != nil {
		t.Fatalf("expected quality avg to be skipped, got %v", *m.QualityRatingAvg)
	}
}

func TestQualityRatingAvgCountsRatedOrdersOfAnyStatus(t *testing.T) {
	delivery := testBase.Add(48 * time.Hour)

	trigger := completedAt(delivery, delivery)
	trigger.QualityRating = floatPtr(8)

	// 已取消但带评分的订单也计入均值
	rated := makeOrder(orderFixture{
		status:   entity.POStatusCanceled,
		issue:    testBase,
		delivery: delivery,
		rating:   floatPtr(4),
	})

	m := ComputeVendorMetrics(&trigger, []entity.PurchaseOrder{trigger, rated})
	if m.QualityRatingAvg == nil || *m.QualityRatingAvg != 6.0 {
		t.Fatalf("expected 6.0, got %v", m.QualityRatingAvg)
	}
}

func TestAverageResponseTime(t *testing.T) {
	delivery := testBase.Add(24 * time.Hour)
	a := makeOrder(orderFixture{
		status:   entity.POStatusCompleted,
		issue:    testBase,
		delivery: delivery,
		ack:      timePtr(testBase.Add(100 * time.Second)),
	})
	b := makeOrder(orderFixture{
		status:   entity.POStatusPending,
		issue:    testBase,
		delivery: delivery,
		ack:      timePtr(testBase.Add(200 * time.Second)),
	})

	m := ComputeVendorMetrics(&a, []entity.PurchaseOrder{a, b})
	if m.AverageResponseTime == nil || *m.AverageResponseTime != 150 {
		t.Fatalf("expected 150s, got %v", m.AverageResponseTime)
	}

	// 无确认时间的触发订单不重算响应时间
	noAck := makeOrder(orderFixture{status: entity.POStatusPending, issue: testBase, delivery: delivery})
	m = ComputeVendorMetrics(&noAck, []entity.PurchaseOrder{a, b, noAck})
	if m.AverageResponseTime != nil {
		t.Fatalf("expected response time to be skipped, got %v", *m.AverageResponseTime)
	}
}

func TestFulfillmentRate(t *testing.T) {
	delivery := testBase.Add(24 * time.Hour)
	orders := []entity.PurchaseOrder{
		completedAt(delivery, delivery),
		completedAt(delivery, delivery),
		makeOrder(orderFixture{status: entity.POStatusPending, issue: testBase, delivery: delivery}),
		makeOrder(orderFixture{status: entity.POStatusCanceled, issue: testBase, delivery: delivery, ack: timePtr(delivery)}),
	}

	// 终态触发：2完成/4总 = 0.5
	trigger := orders[3]
	m := ComputeVendorMetrics(&trigger, orders)
	if m.FulfillmentRate == nil || *m.FulfillmentRate != 0.5 {
		t.Fatalf("expected 0.5, got %v", m.FulfillmentRate)
	}

	// 非终态触发不重算
	pending := orders[2]
	m = ComputeVendorMetrics(&pending, orders)
	if m.FulfillmentRate != nil {
		t.Fatalf("expected fulfillment rate to be skipped, got %v", *m.FulfillmentRate)
	}
}

func TestComputeVendorMetricsDeterministic(t *testing.T) {
	delivery := testBase.Add(24 * time.Hour)
	trigger := completedAt(delivery, delivery)
	trigger.QualityRating = floatPtr(7)
	orders := []entity.PurchaseOrder{trigger, completedAt(delivery.Add(time.Hour), delivery)}

	first := ComputeVendorMetrics(&trigger, orders)
	second := ComputeVendorMetrics(&trigger, orders)

	if *first.OnTimeDeliveryRate != *second.OnTimeDeliveryRate ||
		*first.QualityRatingAvg != *second.QualityRatingAvg ||
		*first.AverageResponseTime != *second.AverageResponseTime ||
		*first.FulfillmentRate != *second.FulfillmentRate {
		t.Fatal("expected identical results for identical inputs")
	}
}

func TestMergeSnapshotFirstEverDefaultsToZero(t *testing.T) {
	now := time.Now()
	snap := mergeSnapshot("v1", VendorMetrics{}, nil, now)

	if snap.OnTimeDeliveryRate != 0 || snap.QualityRatingAvg != 0 ||
		snap.AverageResponseTime != 0 || snap.FulfillmentRate != 0 {
		t.Fatalf("expected all-zero first snapshot, got %+v", snap)
	}
	if snap.VendorID != "v1" || !snap.RecordedAt.Equal(now) {
		t.Fatalf("unexpected snapshot identity fields: %+v", snap)
	}
}

func TestMergeSnapshotCarriesForwardAbsentSlots(t *testing.T) {
	prior := &entity.HistoricalPerformance{
		OnTimeDeliveryRate:  0.8,
		QualityRatingAvg:    5.5,
		AverageResponseTime: 120,
		FulfillmentRate:     0.75,
	}

	m := VendorMetrics{FulfillmentRate: floatPtr(0.9)}
	snap := mergeSnapshot("v1", m, prior, time.Now())

	if snap.FulfillmentRate != 0.9 {
		t.Fatalf("expected fresh fulfillment 0.9, got %v", snap.FulfillmentRate)
	}
	if snap.OnTimeDeliveryRate != 0.8 || snap.QualityRatingAvg != 5.5 || snap.AverageResponseTime != 120 {
		t.Fatalf("expected absent slots carried forward, got %+v", snap)
	}
}

func TestMergeSnapshotComputedZeroIsNotTreatedAsAbsent(t *testing.T) {
	// 上一条快照非零，本轮计算结果恰好为0.0：必须记录0.0，
	// 不能被误判为"未计算"而结转旧值。
	prior := &entity.HistoricalPerformance{OnTimeDeliveryRate: 0.8}

	m := VendorMetrics{OnTimeDeliveryRate: floatPtr(0.0)}
	snap := mergeSnapshot("v1", m, prior, time.Now())

	if snap.OnTimeDeliveryRate != 0.0 {
		t.Fatalf("expected computed zero to be recorded, got %v", snap.OnTimeDeliveryRate)
	}
}

func TestApplyMetricsLeavesAbsentFieldsUntouched(t *testing.T) {
	vendor := &entity.Vendor{
		OnTimeDeliveryRate:  0.8,
		QualityRatingAvg:    5.5,
		AverageResponseTime: 120,
		FulfillmentRate:     0.75,
	}

	applyMetrics(vendor, VendorMetrics{QualityRatingAvg: floatPtr(6.0)})

	if vendor.QualityRatingAvg != 6.0 {
		t.Fatalf("expected quality avg updated, got %v", vendor.QualityRatingAvg)
	}
	if vendor.OnTimeDeliveryRate != 0.8 || vendor.AverageResponseTime != 120 || vendor.FulfillmentRate != 0.75 {
		t.Fatalf("expected other fields untouched, got %+v", vendor)
	}
}

func TestRounding(t *testing.T) {
	if got := round2(2.0 / 3.0); got != 0.67 {
		t.Fatalf("round2(2/3) = %v, want 0.67", got)
	}
	if got := round1(16.0 / 3.0); got != 5.3 {
		t.Fatalf("round1(16/3) = %v, want 5.3", got)
	}
}
