package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hqops/stocktrack/internal/entity"
)

// NotificationRepository 通知仓库
type NotificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create 落库一条通知（在触发动作的事务内调用）
func (r *NotificationRepository) Create(ctx context.Context, n *entity.Notification) error {
	if n.ID == "" {
		n.ID = uuid.New().String()[:32]
	}
	return r.db.WithContext(ctx).Create(n).Error
}

// CreateBatch 批量落库通知
func (r *NotificationRepository) CreateBatch(ctx context.Context, ns []entity.Notification) error {
	if len(ns) == 0 {
		return nil
	}
	for i := range ns {
		if ns[i].ID == "" {
			ns[i].ID = uuid.New().String()[:32]
		}
	}
	return r.db.WithContext(ctx).Create(&ns).Error
}

// FindByID 按ID查询
func (r *NotificationRepository) FindByID(ctx context.Context, id string) (*entity.Notification, error) {
	var n entity.Notification
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&n).Error; err != nil {
		return nil, translateErr(err)
	}
	return &n, nil
}

// ListByUser 查询某用户的通知（软删除的不返回）
func (r *NotificationRepository) ListByUser(ctx context.Context, userID string, page, pageSize int) ([]entity.Notification, int64, error) {
	var items []entity.Notification
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.Notification{}).Where("user_id = ?", userID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.Order("created_at DESC").Offset(offset).Limit(pageSize).Find(&items).Error
	return items, total, err
}

// CountUnread 未读数
func (r *NotificationRepository) CountUnread(ctx context.Context, userID string) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&entity.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&total).Error
	return total, err
}

// MarkRead 标记已读
func (r *NotificationRepository) MarkRead(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Model(&entity.Notification{}).
		Where("id = ?", id).
		Update("is_read", true).Error
}

// MarkAllRead 某用户全部标记已读
func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID string) error {
	return r.db.WithContext(ctx).Model(&entity.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true).Error
}

// SoftDelete 接收者软删除自己的通知
func (r *NotificationRepository) SoftDelete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&entity.Notification{}).Error
}

// CountByUser 某用户的通知总数（测试断言用）
func (r *NotificationRepository) CountByUser(ctx context.Context, userID string) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&entity.Notification{}).
		Where("user_id = ?", userID).Count(&total).Error
	return total, err
}
