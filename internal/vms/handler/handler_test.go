package handler

import (
	"testing"
	"time"

	"github.com/bitfantasy/vms/internal/config"
	"github.com/bitfantasy/vms/internal/vms/repository"
	"github.com/bitfantasy/vms/internal/vms/service"
	"github.com/bitfantasy/vms/internal/vms/testutil"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// setupAPI builds the full API stack against an isolated test schema.
// Redis is nil so services fall back to DB-only paths.
func setupAPI(t *testing.T) (*gorm.DB, *gin.Engine, string) {
	t.Helper()

	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db)
	cfg := &config.Config{
		JWT: config.JWTConfig{
			Secret:             testutil.JWTSecret,
			AccessTokenExpire:  time.Hour,
			RefreshTokenExpire: 24 * time.Hour,
			Issuer:             "vms",
		},
	}
	svcs := service.NewServices(repos, db, nil, cfg)
	h := NewHandlers(svcs)

	r := testutil.SetupRouter()

	auth := r.Group("/api/v1/auth")
	{
		auth.POST("/register", h.Auth.Register)
		auth.POST("/login", h.Auth.Login)
		auth.POST("/refresh", h.Auth.Refresh)
		auth.POST("/logout", h.Auth.Logout)
	}

	v1 := testutil.AuthGroup(r, "/api/v1")
	vendors := v1.Group("/vendors")
	{
		vendors.GET("", h.Vendor.ListVendors)
		vendors.POST("", h.Vendor.CreateVendor)
		vendors.GET("/:id", h.Vendor.GetVendor)
		vendors.PUT("/:id", h.Vendor.UpdateVendor)
		vendors.DELETE("/:id", h.Vendor.DeleteVendor)
		vendors.GET("/:id/performance", h.Vendor.GetPerformance)
		vendors.GET("/:id/history", h.Vendor.GetHistory)
		vendors.GET("/:id/history/export", h.Vendor.ExportHistory)
	}
	orders := v1.Group("/purchase-orders")
	{
		orders.GET("", h.Order.ListOrders)
		orders.POST("", h.Order.CreateOrder)
		orders.GET("/:id", h.Order.GetOrder)
		orders.PUT("/:id", h.Order.UpdateOrder)
		orders.POST("/:id/status", h.Order.UpdateOrderStatus)
		orders.DELETE("/:id", h.Order.DeleteOrder)
	}

	return db, r, testutil.DefaultTestToken()
}

// dataOf extracts the data object from a standard API response
func dataOf(t *testing.T, resp map[string]interface{}) map[string]interface{} {
	t.Helper()
	data, ok := resp["data"].(map[string]interface{})
	if !ok {
		t.Fatalf("response has no data object: %v", resp)
	}
	return data
}
