package handler

import (
	"errors"

	"github.com/bitfantasy/vms/internal/vms/repository"
	"github.com/bitfantasy/vms/internal/vms/service"
	"github.com/gin-gonic/gin"
)

// VendorHandler 供应商处理器
type VendorHandler struct {
	svc *service.VendorService
}

func NewVendorHandler(svc *service.VendorService) *VendorHandler {
	return &VendorHandler{svc: svc}
}

// ListVendors 供应商列表
// GET /api/v1/vendors?search=xxx&page=1&page_size=20
func (h *VendorHandler) ListVendors(c *gin.Context) {
	page, pageSize := GetPagination(c)
	filters := map[string]string{
		"search": c.Query("search"),
	}

	items, total, err := h.svc.List(c.Request.Context(), page, pageSize, filters)
	if err != nil {
		InternalError(c, "获取供应商列表失败: "+err.Error())
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

// GetVendor 供应商详情
// GET /api/v1/vendors/:id
func (h *VendorHandler) GetVendor(c *gin.Context) {
	id := c.Param("id")
	vendor, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		NotFound(c, "供应商不存在")
		return
	}
	Success(c, vendor)
}

// CreateVendor 创建供应商
// POST /api/v1/vendors
func (h *VendorHandler) CreateVendor(c *gin.Context) {
	var req service.CreateVendorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	vendor, err := h.svc.Create(c.Request.Context(), &req)
	if err != nil {
		InternalError(c, "创建供应商失败: "+err.Error())
		return
	}

	Created(c, vendor)
}

// UpdateVendor 更新供应商
// PUT /api/v1/vendors/:id
func (h *VendorHandler) UpdateVendor(c *gin.Context) {
	id := c.Param("id")
	var req service.UpdateVendorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	vendor, err := h.svc.Update(c.Request.Context(), id, &req)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "供应商不存在")
			return
		}
		InternalError(c, "更新供应商失败: "+err.Error())
		return
	}

	Success(c, vendor)
}

// DeleteVendor 删除供应商
// DELETE /api/v1/vendors/:id
func (h *VendorHandler) DeleteVendor(c *gin.Context) {
	id := c.Param("id")
	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "供应商不存在")
			return
		}
		InternalError(c, "删除供应商失败: "+err.Error())
		return
	}
	Success(c, nil)
}

// GetPerformance 供应商当前绩效指标
// GET /api/v1/vendors/:id/performance
func (h *VendorHandler) GetPerformance(c *gin.Context) {
	id := c.Param("id")
	perf, err := h.svc.GetPerformance(c.Request.Context(), id)
	if err != nil {
		NotFound(c, "供应商不存在")
		return
	}
	Success(c, perf)
}

// GetHistory 供应商绩效历史
// GET /api/v1/vendors/:id/history?page=1&page_size=20
func (h *VendorHandler) GetHistory(c *gin.Context) {
	id := c.Param("id")
	page, pageSize := GetPagination(c)

	items, total, err := h.svc.GetHistory(c.Request.Context(), id, page, pageSize)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "供应商不存在")
			return
		}
		InternalError(c, "获取绩效历史失败: "+err.Error())
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

// ExportHistory 导出绩效历史xlsx
// GET /api/v1/vendors/:id/history/export
func (h *VendorHandler) ExportHistory(c *gin.Context) {
	id := c.Param("id")

	f, filename, err := h.svc.ExportHistory(c.Request.Context(), id)
	if err != nil {
		BadRequest(c, err.Error())
		return
	}
	defer f.Close()

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment; filename=\""+filename+"\"")
	c.Header("Content-Transfer-Encoding", "binary")

	if err := f.Write(c.Writer); err != nil {
		InternalError(c, "write excel: "+err.Error())
	}
}
