package entity

import "time"

// Vendor 供应商
type Vendor struct {
	ID   string `json:"id" gorm:"primaryKey;size:32"`
	Code string `json:"code" gorm:"size:32;uniqueIndex;not null"`
	Name string `json:"name" gorm:"size:200;not null"`

	// 基本信息
	ContactDetails string `json:"contact_details" gorm:"type:text"`
	Address        string `json:"address" gorm:"type:text"`

	// 绩效指标（仅由指标引擎写入）
	OnTimeDeliveryRate  float64 `json:"on_time_delivery_rate" gorm:"default:0"`
	QualityRatingAvg    float64 `json:"quality_rating_avg" gorm:"default:0"`
	AverageResponseTime float64 `json:"average_response_time" gorm:"default:0"`
	FulfillmentRate     float64 `json:"fulfillment_rate" gorm:"default:0"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// 关联
	Orders  []PurchaseOrder         `json:"orders,omitempty" gorm:"foreignKey:VendorID"`
	History []HistoricalPerformance `json:"history,omitempty" gorm:"foreignKey:VendorID"`
}

func (Vendor) TableName() string {
	return "vendors"
}

// HistoricalPerformance 供应商绩效历史快照，创建后不可变
type HistoricalPerformance struct {
	ID         string    `json:"id" gorm:"primaryKey;size:32"`
	VendorID   string    `json:"vendor_id" gorm:"size:32;not null;index"`
	RecordedAt time.Time `json:"recorded_at" gorm:"not null;index"`

	OnTimeDeliveryRate  float64 `json:"on_time_delivery_rate" gorm:"default:0"`
	QualityRatingAvg    float64 `json:"quality_rating_avg" gorm:"default:0"`
	AverageResponseTime float64 `json:"average_response_time" gorm:"default:0"`
	FulfillmentRate     float64 `json:"fulfillment_rate" gorm:"default:0"`

	CreatedAt time.Time `json:"created_at"`

	Vendor *Vendor `json:"vendor,omitempty" gorm:"foreignKey:VendorID"`
}

func (HistoricalPerformance) TableName() string {
	return "vendor_performance_history"
}
