package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/hqops/stocktrack/internal/apperr"
	"github.com/hqops/stocktrack/internal/rbac"
	"github.com/hqops/stocktrack/internal/service"
)

// Handlers 处理器集合
type Handlers struct {
	Auth         *AuthHandler
	User         *UserHandler
	Inventory    *InventoryHandler
	Ticket       *TicketHandler
	Test         *TestHandler
	Notification *NotificationHandler
}

// NewHandlers 创建处理器集合
func NewHandlers(svc *service.Services) *Handlers {
	return &Handlers{
		Auth:         NewAuthHandler(svc.Auth),
		User:         NewUserHandler(svc.User),
		Inventory:    NewInventoryHandler(svc.Inventory),
		Ticket:       NewTicketHandler(svc.Ticket),
		Test:         NewTestHandler(svc.Test),
		Notification: NewNotificationHandler(svc.Notification),
	}
}

// Response 通用响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Pagination 分页信息
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

func newPagination(page, pageSize int, total int64) *Pagination {
	totalPages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		totalPages++
	}
	return &Pagination{
		Page:       page,
		PageSize:   pageSize,
		Total:      int(total),
		TotalPages: totalPages,
	}
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(200, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// Created 创建成功响应
func Created(c *gin.Context, data interface{}) {
	c.JSON(201, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// Error 错误响应
func Error(c *gin.Context, code int, message string) {
	statusCode := code / 100
	if statusCode < 100 || statusCode > 599 {
		statusCode = 500
	}
	c.JSON(statusCode, Response{
		Code:    code,
		Message: message,
	})
}

// BadRequest 参数错误响应
func BadRequest(c *gin.Context, message string) {
	Error(c, 40000, message)
}

// Unauthorized 未授权响应
func Unauthorized(c *gin.Context, message string) {
	Error(c, 40100, message)
}

// Forbidden 禁止访问响应
func Forbidden(c *gin.Context, message string) {
	Error(c, 40300, message)
}

// NotFound 资源不存在响应
func NotFound(c *gin.Context, message string) {
	Error(c, 40400, message)
}

// Conflict 资源冲突响应
func Conflict(c *gin.Context, message string) {
	Error(c, 40900, message)
}

// InternalError 服务器错误响应
func InternalError(c *gin.Context, message string) {
	Error(c, 50000, message)
}

// HandleError service层错误到HTTP响应的统一映射
func HandleError(c *gin.Context, err error) {
	switch apperr.KindOf(err) {
	case apperr.KindNotFound:
		NotFound(c, err.Error())
	case apperr.KindPermissionDenied:
		Forbidden(c, err.Error())
	case apperr.KindConflict:
		Conflict(c, err.Error())
	case apperr.KindInvalidTransition:
		Conflict(c, err.Error())
	case apperr.KindValidation:
		BadRequest(c, err.Error())
	default:
		InternalError(c, err.Error())
	}
}

// GetUserID 从上下文获取用户ID
func GetUserID(c *gin.Context) string {
	userID, _ := c.Get("user_id")
	if id, ok := userID.(string); ok {
		return id
	}
	return ""
}

// GetActor 从上下文组装操作者。角色解析失败时返回false，
// 调用方应以403结束请求（未知角色fail closed）。
func GetActor(c *gin.Context) (service.Actor, bool) {
	role, err := rbac.ParseRole(c.GetString("role"))
	if err != nil {
		return service.Actor{}, false
	}
	return service.Actor{
		ID:   GetUserID(c),
		Name: c.GetString("user_name"),
		Role: role,
	}, true
}

// requireActor 组装操作者，失败直接写403
func requireActor(c *gin.Context) (service.Actor, bool) {
	actor, ok := GetActor(c)
	if !ok {
		Forbidden(c, "unknown role")
		c.Abort()
	}
	return actor, ok
}

// GetPagination 从请求获取分页参数
func GetPagination(c *gin.Context) (page, pageSize int) {
	page = 1
	pageSize = 20

	if p := c.Query("page"); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			page = v
		}
	}

	if ps := c.Query("page_size"); ps != "" {
		if v, err := strconv.Atoi(ps); err == nil && v > 0 && v <= 100 {
			pageSize = v
		}
	}

	return page, pageSize
}
