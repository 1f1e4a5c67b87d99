package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/hqops/stocktrack/internal/apperr"
	"github.com/hqops/stocktrack/internal/service"
)

// AuthHandler 认证接口
type AuthHandler struct {
	svc *service.AuthService
}

func NewAuthHandler(svc *service.AuthService) *AuthHandler {
	return &AuthHandler{svc: svc}
}

// Register 注册
// POST /api/v1/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req service.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	user, err := h.svc.Register(c.Request.Context(), &req)
	if err != nil {
		HandleError(c, err)
		return
	}
	Created(c, user)
}

// Login 登录
// POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req service.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	result, err := h.svc.Login(c.Request.Context(), &req)
	if err != nil {
		// 凭证错误按401返回而不是403
		if apperr.KindOf(err) == apperr.KindPermissionDenied {
			Unauthorized(c, err.Error())
			return
		}
		HandleError(c, err)
		return
	}
	Success(c, result)
}

// Me 当前用户
// GET /api/v1/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	user, err := h.svc.Me(c.Request.Context(), GetUserID(c))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, user)
}
