package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/hqops/stocktrack/internal/entity"
	"github.com/hqops/stocktrack/internal/repository"
	"github.com/hqops/stocktrack/internal/service"
)

// InventoryHandler 库存接口
type InventoryHandler struct {
	svc *service.InventoryService
}

func NewInventoryHandler(svc *service.InventoryService) *InventoryHandler {
	return &InventoryHandler{svc: svc}
}

// Create 入库
// POST /api/v1/inventory
func (h *InventoryHandler) Create(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var req service.CreatePartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	part, err := h.svc.CreatePart(c.Request.Context(), actor, &req)
	if err != nil {
		HandleError(c, err)
		return
	}
	Created(c, part)
}

// List 分页查询零件
// GET /api/v1/inventory?status=&type=&location=&page=&page_size=
func (h *InventoryHandler) List(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	page, pageSize := GetPagination(c)
	filter := repository.PartFilter{
		Status:   c.Query("status"),
		Type:     c.Query("type"),
		Location: c.Query("location"),
	}
	if filter.Status != "" && !entity.ValidPartStatus(filter.Status) {
		BadRequest(c, "unknown status filter: "+filter.Status)
		return
	}

	items, total, err := h.svc.ListParts(c.Request.Context(), actor, page, pageSize, filter)
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, gin.H{
		"items":      items,
		"pagination": newPagination(page, pageSize, total),
	})
}

// Search 模糊搜索零件
// GET /api/v1/inventory/search?q=xxx
func (h *InventoryHandler) Search(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	items, err := h.svc.SearchParts(c.Request.Context(), actor, c.Query("q"))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, gin.H{"items": items})
}

// Get 零件详情
// GET /api/v1/inventory/:id
func (h *InventoryHandler) Get(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	part, err := h.svc.GetPart(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, part)
}

// Update 更新零件非状态字段
// PUT /api/v1/inventory/:id
func (h *InventoryHandler) Update(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var req service.UpdatePartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	part, err := h.svc.UpdatePart(c.Request.Context(), actor, c.Param("id"), &req)
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, part)
}

// Delete 删除零件（管理员）
// DELETE /api/v1/inventory/:id
func (h *InventoryHandler) Delete(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	if err := h.svc.DeletePart(c.Request.Context(), actor, c.Param("id")); err != nil {
		HandleError(c, err)
		return
	}
	Success(c, gin.H{"message": "part deleted"})
}

// SendForTest 送工程测试
// POST /api/v1/inventory/:id/engineer-test
func (h *InventoryHandler) SendForTest(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	part, err := h.svc.SendForEngineerTest(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, part)
}

// RecordTestResult 工程师记录测试结果
// PUT /api/v1/inventory/:id/status
func (h *InventoryHandler) RecordTestResult(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var req service.RecordTestResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	part, err := h.svc.RecordTestResult(c.Request.Context(), actor, c.Param("id"), &req)
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, part)
}

// StatusLogs 零件流转历史
// GET /api/v1/inventory/:id/status-logs
func (h *InventoryHandler) StatusLogs(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	logs, err := h.svc.ListStatusLogs(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, gin.H{"items": logs})
}

// AddWarranty 添加保修记录
// POST /api/v1/inventory/:id/warranties
func (h *InventoryHandler) AddWarranty(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var req service.AddWarrantyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	warranty, err := h.svc.AddWarranty(c.Request.Context(), actor, c.Param("id"), &req)
	if err != nil {
		HandleError(c, err)
		return
	}
	Created(c, warranty)
}

// ListWarranties 查询保修记录
// GET /api/v1/inventory/:id/warranties
func (h *InventoryHandler) ListWarranties(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	items, err := h.svc.ListWarranties(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, gin.H{"items": items})
}
