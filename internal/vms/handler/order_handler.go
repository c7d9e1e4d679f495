package handler

import (
	"errors"
	"strings"

	"github.com/bitfantasy/vms/internal/vms/repository"
	"github.com/bitfantasy/vms/internal/vms/service"
	"github.com/gin-gonic/gin"
)

// OrderHandler 采购订单处理器
type OrderHandler struct {
	svc *service.OrderService
}

func NewOrderHandler(svc *service.OrderService) *OrderHandler {
	return &OrderHandler{svc: svc}
}

// ListOrders 订单列表
// GET /api/v1/purchase-orders?vendor_id=xxx&status=xxx&page=1&page_size=20
func (h *OrderHandler) ListOrders(c *gin.Context) {
	page, pageSize := GetPagination(c)
	filters := map[string]string{
		"vendor_id": c.Query("vendor_id"),
		"status":    c.Query("status"),
	}

	items, total, err := h.svc.List(c.Request.Context(), page, pageSize, filters)
	if err != nil {
		InternalError(c, "获取订单列表失败: "+err.Error())
		return
	}

	Success(c, ListResponse{
		Items: items,
		Pagination: &Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      int(total),
			TotalPages: TotalPages(total, pageSize),
		},
	})
}

// GetOrder 订单详情
// GET /api/v1/purchase-orders/:id
func (h *OrderHandler) GetOrder(c *gin.Context) {
	id := c.Param("id")
	po, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		NotFound(c, "订单不存在")
		return
	}
	Success(c, po)
}

// CreateOrder 创建订单，保存后同步重算供应商绩效
// POST /api/v1/purchase-orders
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req service.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	po, err := h.svc.Create(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "供应商不存在")
			return
		}
		if isValidationError(err) {
			BadRequest(c, err.Error())
			return
		}
		InternalError(c, "创建订单失败: "+err.Error())
		return
	}

	Created(c, po)
}

// UpdateOrder 更新订单，保存后同步重算供应商绩效
// PUT /api/v1/purchase-orders/:id
func (h *OrderHandler) UpdateOrder(c *gin.Context) {
	id := c.Param("id")
	var req service.UpdateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	po, err := h.svc.Update(c.Request.Context(), id, &req)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "订单不存在")
			return
		}
		if isValidationError(err) {
			BadRequest(c, err.Error())
			return
		}
		InternalError(c, "更新订单失败: "+err.Error())
		return
	}

	Success(c, po)
}

// UpdateOrderStatus 订单状态流转（确认/完成/取消）
// POST /api/v1/purchase-orders/:id/status
func (h *OrderHandler) UpdateOrderStatus(c *gin.Context) {
	id := c.Param("id")
	var req service.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	po, err := h.svc.UpdateStatus(c.Request.Context(), id, &req)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "订单不存在")
			return
		}
		if isValidationError(err) {
			BadRequest(c, err.Error())
			return
		}
		InternalError(c, "订单状态更新失败: "+err.Error())
		return
	}

	Success(c, po)
}

// DeleteOrder 删除订单
// DELETE /api/v1/purchase-orders/:id
func (h *OrderHandler) DeleteOrder(c *gin.Context) {
	id := c.Param("id")
	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "订单不存在")
			return
		}
		InternalError(c, "删除订单失败: "+err.Error())
		return
	}
	Success(c, nil)
}

// isValidationError 业务校验错误返回400而非500
func isValidationError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "非法订单状态") ||
		strings.Contains(msg, "评分") ||
		strings.Contains(msg, "终态") ||
		strings.Contains(msg, "确认时间")
}
