package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/hqops/stocktrack/internal/service"
)

// NotificationHandler 通知接口。全部是接收者视角，不接受user_id参数。
type NotificationHandler struct {
	svc *service.NotificationService
}

func NewNotificationHandler(svc *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{svc: svc}
}

// List 当前用户的通知
// GET /api/v1/notifications?page=&page_size=
func (h *NotificationHandler) List(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	page, pageSize := GetPagination(c)
	items, total, err := h.svc.ListNotifications(c.Request.Context(), actor, page, pageSize)
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, gin.H{
		"items":      items,
		"pagination": newPagination(page, pageSize, total),
	})
}

// UnreadCount 未读数
// GET /api/v1/notifications/unread-count
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	count, err := h.svc.UnreadCount(c.Request.Context(), actor)
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, gin.H{"unread": count})
}

// MarkRead 标记单条已读
// PUT /api/v1/notifications/:id/read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	if err := h.svc.MarkRead(c.Request.Context(), actor, c.Param("id")); err != nil {
		HandleError(c, err)
		return
	}
	Success(c, gin.H{"message": "marked as read"})
}

// MarkAllRead 全部标记已读
// PUT /api/v1/notifications/read-all
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	if err := h.svc.MarkAllRead(c.Request.Context(), actor); err != nil {
		HandleError(c, err)
		return
	}
	Success(c, gin.H{"message": "all marked as read"})
}

// Delete 删除自己的通知
// DELETE /api/v1/notifications/:id
func (h *NotificationHandler) Delete(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	if err := h.svc.DeleteNotification(c.Request.Context(), actor, c.Param("id")); err != nil {
		HandleError(c, err)
		return
	}
	Success(c, gin.H{"message": "notification deleted"})
}
