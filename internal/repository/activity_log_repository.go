package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/hqops/stocktrack/internal/entity"
)

// ActivityLogRepository 操作审计日志仓库。
// 与状态变更同事务写入：写失败则整个动作失败，不允许吞掉错误。
type ActivityLogRepository struct {
	db *gorm.DB
}

func NewActivityLogRepository(db *gorm.DB) *ActivityLogRepository {
	return &ActivityLogRepository{db: db}
}

// Record 追加一条审计记录
func (r *ActivityLogRepository) Record(ctx context.Context, userID, action, details string) error {
	log := &entity.ActivityLog{
		UserID:  userID,
		Action:  action,
		Details: details,
	}
	return r.db.WithContext(ctx).Create(log).Error
}

// List 分页查询审计日志，同一时间戳用自增ID保证稳定次序
func (r *ActivityLogRepository) List(ctx context.Context, page, pageSize int) ([]entity.ActivityLog, int64, error) {
	var items []entity.ActivityLog
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.ActivityLog{})
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.Order("created_at DESC, id DESC").Offset(offset).Limit(pageSize).Find(&items).Error
	return items, total, err
}

// ListByUser 查询某用户的操作记录
func (r *ActivityLogRepository) ListByUser(ctx context.Context, userID string, page, pageSize int) ([]entity.ActivityLog, int64, error) {
	var items []entity.ActivityLog
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.ActivityLog{}).Where("user_id = ?", userID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.Order("created_at DESC, id DESC").Offset(offset).Limit(pageSize).Find(&items).Error
	return items, total, err
}

// CountByAction 按动作统计（测试断言用）
func (r *ActivityLogRepository) CountByAction(ctx context.Context, action string) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&entity.ActivityLog{}).
		Where("action = ?", action).Count(&total).Error
	return total, err
}
