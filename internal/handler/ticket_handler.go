package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/hqops/stocktrack/internal/repository"
	"github.com/hqops/stocktrack/internal/service"
)

// TicketHandler 工单接口
type TicketHandler struct {
	svc *service.TicketService
}

func NewTicketHandler(svc *service.TicketService) *TicketHandler {
	return &TicketHandler{svc: svc}
}

// Create 创建工单
// POST /api/v1/tickets
func (h *TicketHandler) Create(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var req service.CreateTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	ticket, err := h.svc.CreateTicket(c.Request.Context(), actor, &req)
	if err != nil {
		HandleError(c, err)
		return
	}
	Created(c, ticket)
}

// List 分页查询工单
// GET /api/v1/tickets?status=&priority=&category=&page=&page_size=
func (h *TicketHandler) List(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	page, pageSize := GetPagination(c)
	filter := repository.TicketFilter{
		Status:   c.Query("status"),
		Priority: c.Query("priority"),
		Category: c.Query("category"),
	}

	items, total, err := h.svc.ListTickets(c.Request.Context(), actor, page, pageSize, filter)
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, gin.H{
		"items":      items,
		"pagination": newPagination(page, pageSize, total),
	})
}

// Get 工单详情
// GET /api/v1/tickets/:id
func (h *TicketHandler) Get(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	ticket, err := h.svc.GetTicket(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, ticket)
}

// Update 更新工单
// PUT /api/v1/tickets/:id
func (h *TicketHandler) Update(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var req service.UpdateTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	ticket, err := h.svc.UpdateTicket(c.Request.Context(), actor, c.Param("id"), &req)
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, ticket)
}

// Delete 删除工单
// DELETE /api/v1/tickets/:id
func (h *TicketHandler) Delete(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	if err := h.svc.DeleteTicket(c.Request.Context(), actor, c.Param("id")); err != nil {
		HandleError(c, err)
		return
	}
	Success(c, gin.H{"message": "ticket deleted"})
}

// AddComment 评论工单
// POST /api/v1/tickets/:id/comments
func (h *TicketHandler) AddComment(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var req service.AddCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	comment, err := h.svc.AddComment(c.Request.Context(), actor, c.Param("id"), &req)
	if err != nil {
		HandleError(c, err)
		return
	}
	Created(c, comment)
}

// ListComments 查询工单评论
// GET /api/v1/tickets/:id/comments
func (h *TicketHandler) ListComments(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	items, err := h.svc.ListComments(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, gin.H{"items": items})
}

// AddAttachment 登记工单附件元数据
// POST /api/v1/tickets/:id/attachments
func (h *TicketHandler) AddAttachment(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var req service.AddAttachmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	attachment, err := h.svc.AddAttachment(c.Request.Context(), actor, c.Param("id"), &req)
	if err != nil {
		HandleError(c, err)
		return
	}
	Created(c, attachment)
}

// ListAttachments 查询工单附件
// GET /api/v1/tickets/:id/attachments
func (h *TicketHandler) ListAttachments(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	items, err := h.svc.ListAttachments(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, gin.H{"items": items})
}
