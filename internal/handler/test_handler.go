package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/hqops/stocktrack/internal/repository"
	"github.com/hqops/stocktrack/internal/service"
)

// TestHandler 测试接口
type TestHandler struct {
	svc *service.TestService
}

func NewTestHandler(svc *service.TestService) *TestHandler {
	return &TestHandler{svc: svc}
}

// Create 创建测试
// POST /api/v1/tests
func (h *TestHandler) Create(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var req service.CreateTestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	test, err := h.svc.CreateTest(c.Request.Context(), actor, &req)
	if err != nil {
		HandleError(c, err)
		return
	}
	Created(c, test)
}

// List 分页查询测试
// GET /api/v1/tests?status=&test_type=&part_id=&page=&page_size=
func (h *TestHandler) List(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	page, pageSize := GetPagination(c)
	filter := repository.TestFilter{
		Status:   c.Query("status"),
		TestType: c.Query("test_type"),
		PartID:   c.Query("part_id"),
	}

	items, total, err := h.svc.ListTests(c.Request.Context(), actor, page, pageSize, filter)
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, gin.H{
		"items":      items,
		"pagination": newPagination(page, pageSize, total),
	})
}

// Get 测试详情
// GET /api/v1/tests/:id
func (h *TestHandler) Get(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	test, err := h.svc.GetTest(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, test)
}

// Update 更新测试
// PUT /api/v1/tests/:id
func (h *TestHandler) Update(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var req service.UpdateTestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	test, err := h.svc.UpdateTest(c.Request.Context(), actor, c.Param("id"), &req)
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, test)
}

// Delete 删除测试
// DELETE /api/v1/tests/:id
func (h *TestHandler) Delete(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	if err := h.svc.DeleteTest(c.Request.Context(), actor, c.Param("id")); err != nil {
		HandleError(c, err)
		return
	}
	Success(c, gin.H{"message": "test deleted"})
}

// AddResult 添加测试结果
// POST /api/v1/tests/:id/results
func (h *TestHandler) AddResult(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var req service.AddResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	result, err := h.svc.AddResult(c.Request.Context(), actor, c.Param("id"), &req)
	if err != nil {
		HandleError(c, err)
		return
	}
	Created(c, result)
}

// ListResults 查询测试结果
// GET /api/v1/tests/:id/results
func (h *TestHandler) ListResults(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	items, err := h.svc.ListResults(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, gin.H{"items": items})
}
