package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/hqops/stocktrack/internal/entity"
)

// TicketRepository 工单仓库
type TicketRepository struct {
	db *gorm.DB
}

func NewTicketRepository(db *gorm.DB) *TicketRepository {
	return &TicketRepository{db: db}
}

// Create 创建工单
func (r *TicketRepository) Create(ctx context.Context, t *entity.Ticket) error {
	if t.ID == "" {
		t.ID = uuid.New().String()[:32]
	}
	return r.db.WithContext(ctx).Create(t).Error
}

// FindByID 按ID查询
func (r *TicketRepository) FindByID(ctx context.Context, id string) (*entity.Ticket, error) {
	var t entity.Ticket
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&t).Error; err != nil {
		return nil, translateErr(err)
	}
	return &t, nil
}

// FindByIDForUpdate 按ID查询并加行锁（状态流转用）
func (r *TicketRepository) FindByIDForUpdate(ctx context.Context, id string) (*entity.Ticket, error) {
	var t entity.Ticket
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&t).Error
	if err != nil {
		return nil, translateErr(err)
	}
	return &t, nil
}

// TicketFilter 工单过滤条件。CreatedBy非空时只返回该用户创建的。
type TicketFilter struct {
	Status    string
	Priority  string
	Category  string
	CreatedBy string
}

// List 分页查询工单
func (r *TicketRepository) List(ctx context.Context, page, pageSize int, filter TicketFilter) ([]entity.Ticket, int64, error) {
	var items []entity.Ticket
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.Ticket{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Priority != "" {
		query = query.Where("priority = ?", filter.Priority)
	}
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.CreatedBy != "" {
		query = query.Where("created_by = ?", filter.CreatedBy)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.Order("created_at DESC").Offset(offset).Limit(pageSize).Find(&items).Error
	return items, total, err
}

// Update 保存工单
func (r *TicketRepository) Update(ctx context.Context, t *entity.Ticket) error {
	return r.db.WithContext(ctx).Save(t).Error
}

// SoftDelete 软删除工单并级联软删除评论和附件
func (r *TicketRepository) SoftDelete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("ticket_id = ?", id).Delete(&entity.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("ticket_id = ?", id).Delete(&entity.Attachment{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&entity.Ticket{}).Error
	})
}

// CreateComment 创建评论
func (r *TicketRepository) CreateComment(ctx context.Context, c *entity.Comment) error {
	if c.ID == "" {
		c.ID = uuid.New().String()[:32]
	}
	return r.db.WithContext(ctx).Create(c).Error
}

// ListComments 查询工单评论
func (r *TicketRepository) ListComments(ctx context.Context, ticketID string) ([]entity.Comment, error) {
	var items []entity.Comment
	err := r.db.WithContext(ctx).
		Where("ticket_id = ?", ticketID).
		Order("created_at ASC").
		Find(&items).Error
	return items, err
}

// CreateAttachment 登记附件元数据
func (r *TicketRepository) CreateAttachment(ctx context.Context, a *entity.Attachment) error {
	if a.ID == "" {
		a.ID = uuid.New().String()[:32]
	}
	return r.db.WithContext(ctx).Create(a).Error
}

// ListAttachments 查询工单附件
func (r *TicketRepository) ListAttachments(ctx context.Context, ticketID string) ([]entity.Attachment, error) {
	var items []entity.Attachment
	err := r.db.WithContext(ctx).
		Where("ticket_id = ?", ticketID).
		Order("created_at ASC").
		Find(&items).Error
	return items, err
}
