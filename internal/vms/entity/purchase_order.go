package entity

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// JSONB JSONB类型
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("failed to scan JSONB: %v", value)
	}
	return json.Unmarshal(bytes, j)
}

// PurchaseOrder 采购订单
type PurchaseOrder struct {
	ID       string `json:"id" gorm:"primaryKey;size:32"`
	PONumber string `json:"po_number" gorm:"size:32;uniqueIndex;not null"`
	VendorID string `json:"vendor_id" gorm:"size:32;not null;index"`

	OrderDate    time.Time `json:"order_date"`
	DeliveryDate time.Time `json:"delivery_date"` // 预计/实际交付日期
	Items        JSONB     `json:"items" gorm:"type:jsonb"`
	Quantity     int       `json:"quantity" gorm:"not null"`
	Status       string    `json:"status" gorm:"size:20;default:pending"` // pending/completed/canceled

	// 评分与响应
	QualityRating      *float64   `json:"quality_rating" gorm:"type:decimal(4,2)"` // 0-10，仅完成订单可评分
	IssueDate          time.Time  `json:"issue_date" gorm:"not null"`
	AcknowledgmentDate *time.Time `json:"acknowledgment_date"` // 首次进入终态时自动写入，之后不再覆盖

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// 关联
	Vendor *Vendor `json:"vendor,omitempty" gorm:"foreignKey:VendorID"`
}

func (PurchaseOrder) TableName() string {
	return "purchase_orders"
}

// 订单状态
const (
	POStatusPending   = "pending"
	POStatusCompleted = "completed"
	POStatusCanceled  = "canceled"
)

// IsTerminalStatus 是否终态
func IsTerminalStatus(status string) bool {
	return status == POStatusCompleted || status == POStatusCanceled
}

// IsValidStatus 是否合法状态值
func IsValidStatus(status string) bool {
	return status == POStatusPending || IsTerminalStatus(status)
}
