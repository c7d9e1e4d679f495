package service

import (
	"github.com/bitfantasy/vms/internal/config"
	"github.com/bitfantasy/vms/internal/vms/repository"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Services 服务集合
type Services struct {
	Auth    *AuthService
	Vendor  *VendorService
	Order   *OrderService
	Metrics *MetricsService
}

// NewServices 创建服务集合
func NewServices(repos *repository.Repositories, db *gorm.DB, rdb *redis.Client, cfg *config.Config) *Services {
	metricsSvc := NewMetricsService(repos.Vendor, repos.PO, db)
	return &Services{
		Auth:    NewAuthService(repos.User, rdb, cfg),
		Vendor:  NewVendorService(repos.Vendor, repos.History, rdb),
		Order:   NewOrderService(repos.PO, repos.Vendor, metricsSvc, rdb, cfg.Orders.StrictStatusFlow),
		Metrics: metricsSvc,
	}
}
