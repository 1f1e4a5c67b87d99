package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/hqops/stocktrack/internal/service"
)

// UserHandler 用户管理接口
type UserHandler struct {
	svc *service.UserService
}

func NewUserHandler(svc *service.UserService) *UserHandler {
	return &UserHandler{svc: svc}
}

// List 用户列表（管理员）
// GET /api/v1/users?page=&page_size=
func (h *UserHandler) List(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	page, pageSize := GetPagination(c)
	items, total, err := h.svc.ListUsers(c.Request.Context(), actor, page, pageSize)
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, gin.H{
		"items":      items,
		"pagination": newPagination(page, pageSize, total),
	})
}

// Get 用户资料
// GET /api/v1/users/:id
func (h *UserHandler) Get(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	user, err := h.svc.GetUser(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, user)
}

// Update 更新资料
// PUT /api/v1/users/:id
func (h *UserHandler) Update(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var req service.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	user, err := h.svc.UpdateProfile(c.Request.Context(), actor, c.Param("id"), &req)
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, user)
}

// changeRoleRequest 改角色请求
type changeRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

// ChangeRole 变更用户角色（管理员）
// PUT /api/v1/users/:id/role
func (h *UserHandler) ChangeRole(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var req changeRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	user, err := h.svc.ChangeRole(c.Request.Context(), actor, c.Param("id"), req.Role)
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, user)
}

// Delete 删除用户（管理员）
// DELETE /api/v1/users/:id
func (h *UserHandler) Delete(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	if err := h.svc.DeleteUser(c.Request.Context(), actor, c.Param("id")); err != nil {
		HandleError(c, err)
		return
	}
	Success(c, gin.H{"message": "user deleted"})
}

// ActivityLogs 审计日志（管理员）
// GET /api/v1/activity-logs?page=&page_size=
func (h *UserHandler) ActivityLogs(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	page, pageSize := GetPagination(c)
	items, total, err := h.svc.ListActivityLogs(c.Request.Context(), actor, page, pageSize)
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, gin.H{
		"items":      items,
		"pagination": newPagination(page, pageSize, total),
	})
}
