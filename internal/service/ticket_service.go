package service

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/hqops/stocktrack/internal/apperr"
	"github.com/hqops/stocktrack/internal/entity"
	"github.com/hqops/stocktrack/internal/rbac"
	"github.com/hqops/stocktrack/internal/repository"
)

// TicketService 工单工作流。与库存同一套守卫-副作用模式，
// 但守卫是所有权规则：user角色只能动自己创建的工单。
type TicketService struct {
	db    *gorm.DB
	repos *repository.Repositories
}

func NewTicketService(db *gorm.DB, repos *repository.Repositories) *TicketService {
	return &TicketService{db: db, repos: repos}
}

// ownershipGuard 所有权守卫：所有者或越权角色放行
func ownershipGuard(actor Actor, ownerID string) error {
	if actor.ID == ownerID || rbac.Elevated(actor.Role) {
		return nil
	}
	return apperr.PermissionDenied("not enough permissions")
}

// CreateTicketRequest 创建工单请求
type CreateTicketRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	Category    string `json:"category" binding:"required"`
	Priority    string `json:"priority" binding:"required"`
}

// CreateTicket 创建工单，初始状态open
func (s *TicketService) CreateTicket(ctx context.Context, actor Actor, req *CreateTicketRequest) (*entity.Ticket, error) {
	if err := authorize(actor, rbac.ActionTicketCreate); err != nil {
		return nil, err
	}
	if !entity.ValidTicketCategory(req.Category) {
		return nil, apperr.Newf(apperr.KindValidation, "unknown ticket category: %q", req.Category)
	}
	if !entity.ValidTicketPriority(req.Priority) {
		return nil, apperr.Newf(apperr.KindValidation, "unknown ticket priority: %q", req.Priority)
	}

	ticket := &entity.Ticket{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Priority:    req.Priority,
		Status:      entity.TicketStatusOpen,
		CreatedBy:   actor.ID,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txRepos := s.repos.WithTx(tx)

		if err := txRepos.Ticket.Create(ctx, ticket); err != nil {
			return err
		}
		details := fmt.Sprintf("Created new ticket: %s", req.Title)
		return txRepos.ActivityLog.Record(ctx, actor.ID, entity.ActionCreateTicket, details)
	})
	if err != nil {
		return nil, err
	}
	return ticket, nil
}

// GetTicket 查询工单，user角色只能看自己的
func (s *TicketService) GetTicket(ctx context.Context, actor Actor, id string) (*entity.Ticket, error) {
	if err := authorize(actor, rbac.ActionTicketRead); err != nil {
		return nil, err
	}
	ticket, err := s.repos.Ticket.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("ticket not found")
		}
		return nil, err
	}
	if err := ownershipGuard(actor, ticket.CreatedBy); err != nil {
		return nil, err
	}
	return ticket, nil
}

// ListTickets 分页查询，user角色自动收窄到自己创建的
func (s *TicketService) ListTickets(ctx context.Context, actor Actor, page, pageSize int, filter repository.TicketFilter) ([]entity.Ticket, int64, error) {
	if err := authorize(actor, rbac.ActionTicketRead); err != nil {
		return nil, 0, err
	}
	if !rbac.Elevated(actor.Role) {
		filter.CreatedBy = actor.ID
	}
	return s.repos.Ticket.List(ctx, page, pageSize, filter)
}

// UpdateTicketRequest 更新工单请求
type UpdateTicketRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Category    *string `json:"category"`
	Priority    *string `json:"priority"`
	Status      *string `json:"status"`
}

// UpdateTicket 更新工单。状态变化时通知所有者（操作者非所有者时恰好一条）。
func (s *TicketService) UpdateTicket(ctx context.Context, actor Actor, id string, req *UpdateTicketRequest) (*entity.Ticket, error) {
	if err := authorize(actor, rbac.ActionTicketUpdate); err != nil {
		return nil, err
	}
	if req.Status != nil && !entity.ValidTicketStatus(*req.Status) {
		return nil, apperr.Newf(apperr.KindValidation, "unknown ticket status: %q", *req.Status)
	}
	if req.Category != nil && !entity.ValidTicketCategory(*req.Category) {
		return nil, apperr.Newf(apperr.KindValidation, "unknown ticket category: %q", *req.Category)
	}
	if req.Priority != nil && !entity.ValidTicketPriority(*req.Priority) {
		return nil, apperr.Newf(apperr.KindValidation, "unknown ticket priority: %q", *req.Priority)
	}

	var ticket *entity.Ticket
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txRepos := s.repos.WithTx(tx)

		var err error
		ticket, err = txRepos.Ticket.FindByIDForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return apperr.NotFound("ticket not found")
			}
			return err
		}
		if err := ownershipGuard(actor, ticket.CreatedBy); err != nil {
			return err
		}

		statusChanged := false
		if req.Title != nil {
			ticket.Title = *req.Title
		}
		if req.Description != nil {
			ticket.Description = *req.Description
		}
		if req.Category != nil {
			ticket.Category = *req.Category
		}
		if req.Priority != nil {
			ticket.Priority = *req.Priority
		}
		if req.Status != nil && *req.Status != ticket.Status {
			ticket.Status = *req.Status
			statusChanged = true
		}
		ticket.LastModifiedBy = actor.ID

		if err := txRepos.Ticket.Update(ctx, ticket); err != nil {
			return err
		}

		if statusChanged {
			drafts, err := Fanout(ctx, txRepos, Event{
				Kind:    EventStatusChanged,
				Subject: ticket.Title,
				OwnerID: ticket.CreatedBy,
				ActorID: actor.ID,
			})
			if err != nil {
				return err
			}
			if err := txRepos.Notification.CreateBatch(ctx, drafts); err != nil {
				return err
			}
		}

		details := fmt.Sprintf("Updated ticket: %s", ticket.Title)
		return txRepos.ActivityLog.Record(ctx, actor.ID, entity.ActionUpdateTicket, details)
	})
	if err != nil {
		return nil, err
	}
	return ticket, nil
}

// DeleteTicket 软删除工单（评论级联软删除）
func (s *TicketService) DeleteTicket(ctx context.Context, actor Actor, id string) error {
	if err := authorize(actor, rbac.ActionTicketDelete); err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txRepos := s.repos.WithTx(tx)

		ticket, err := txRepos.Ticket.FindByIDForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return apperr.NotFound("ticket not found")
			}
			return err
		}
		if err := ownershipGuard(actor, ticket.CreatedBy); err != nil {
			return err
		}

		details := fmt.Sprintf("Deleted ticket: %s", ticket.Title)
		if err := txRepos.ActivityLog.Record(ctx, actor.ID, entity.ActionDeleteTicket, details); err != nil {
			return err
		}
		return txRepos.Ticket.SoftDelete(ctx, ticket.ID)
	})
}

// AddCommentRequest 评论请求
type AddCommentRequest struct {
	Content string `json:"content" binding:"required"`
}

// AddComment 评论工单。非所有者评论时给所有者发恰好一条通知。
func (s *TicketService) AddComment(ctx context.Context, actor Actor, ticketID string, req *AddCommentRequest) (*entity.Comment, error) {
	if err := authorize(actor, rbac.ActionTicketComment); err != nil {
		return nil, err
	}

	var comment *entity.Comment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txRepos := s.repos.WithTx(tx)

		ticket, err := txRepos.Ticket.FindByID(ctx, ticketID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return apperr.NotFound("ticket not found")
			}
			return err
		}
		if err := ownershipGuard(actor, ticket.CreatedBy); err != nil {
			return err
		}

		comment = &entity.Comment{
			TicketID:  ticket.ID,
			Content:   req.Content,
			CreatedBy: actor.ID,
		}
		if err := txRepos.Ticket.CreateComment(ctx, comment); err != nil {
			return err
		}

		drafts, err := Fanout(ctx, txRepos, Event{
			Kind:    EventNewComment,
			Subject: ticket.Title,
			OwnerID: ticket.CreatedBy,
			ActorID: actor.ID,
		})
		if err != nil {
			return err
		}
		if err := txRepos.Notification.CreateBatch(ctx, drafts); err != nil {
			return err
		}

		details := fmt.Sprintf("Commented on ticket: %s", ticket.Title)
		return txRepos.ActivityLog.Record(ctx, actor.ID, entity.ActionAddComment, details)
	})
	if err != nil {
		return nil, err
	}
	return comment, nil
}

// ListComments 查询工单评论
func (s *TicketService) ListComments(ctx context.Context, actor Actor, ticketID string) ([]entity.Comment, error) {
	if _, err := s.GetTicket(ctx, actor, ticketID); err != nil {
		return nil, err
	}
	return s.repos.Ticket.ListComments(ctx, ticketID)
}

// AddAttachmentRequest 附件登记请求。文件本体走外部存储，这里只登记元数据。
type AddAttachmentRequest struct {
	FileName string `json:"file_name" binding:"required"`
	FilePath string `json:"file_path" binding:"required"`
}

// AddAttachment 给工单登记附件元数据
func (s *TicketService) AddAttachment(ctx context.Context, actor Actor, ticketID string, req *AddAttachmentRequest) (*entity.Attachment, error) {
	if err := authorize(actor, rbac.ActionTicketAttach); err != nil {
		return nil, err
	}

	var attachment *entity.Attachment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txRepos := s.repos.WithTx(tx)

		ticket, err := txRepos.Ticket.FindByID(ctx, ticketID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return apperr.NotFound("ticket not found")
			}
			return err
		}
		if err := ownershipGuard(actor, ticket.CreatedBy); err != nil {
			return err
		}

		attachment = &entity.Attachment{
			TicketID:  ticket.ID,
			FileName:  req.FileName,
			FilePath:  req.FilePath,
			CreatedBy: actor.ID,
		}
		if err := txRepos.Ticket.CreateAttachment(ctx, attachment); err != nil {
			return err
		}

		details := fmt.Sprintf("Uploaded attachment %s to ticket: %s", req.FileName, ticket.Title)
		return txRepos.ActivityLog.Record(ctx, actor.ID, entity.ActionUploadAttachment, details)
	})
	if err != nil {
		return nil, err
	}
	return attachment, nil
}

// ListAttachments 查询工单附件
func (s *TicketService) ListAttachments(ctx context.Context, actor Actor, ticketID string) ([]entity.Attachment, error) {
	if _, err := s.GetTicket(ctx, actor, ticketID); err != nil {
		return nil, err
	}
	return s.repos.Ticket.ListAttachments(ctx, ticketID)
}
