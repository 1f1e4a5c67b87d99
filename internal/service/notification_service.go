package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/hqops/stocktrack/internal/apperr"
	"github.com/hqops/stocktrack/internal/entity"
	"github.com/hqops/stocktrack/internal/rbac"
	"github.com/hqops/stocktrack/internal/repository"
)

// 未读数缓存TTL。写操作（已读/删除）直接失效缓存而不是更新它。
const unreadCacheTTL = 5 * time.Minute

// NotificationService 站内通知读取面。
// 写入由各工作流在自己的事务里完成，这里只有接收者视角的查询与已读管理。
type NotificationService struct {
	repos  *repository.Repositories
	rdb    *redis.Client
	logger *zap.Logger
}

func NewNotificationService(repos *repository.Repositories, rdb *redis.Client, logger *zap.Logger) *NotificationService {
	return &NotificationService{repos: repos, rdb: rdb, logger: logger}
}

func unreadCacheKey(userID string) string {
	return "notif:unread:" + userID
}

// ListNotifications 查询当前用户的通知
func (s *NotificationService) ListNotifications(ctx context.Context, actor Actor, page, pageSize int) ([]entity.Notification, int64, error) {
	if err := authorize(actor, rbac.ActionNotificationRead); err != nil {
		return nil, 0, err
	}
	return s.repos.Notification.ListByUser(ctx, actor.ID, page, pageSize)
}

// UnreadCount 当前用户未读数，redis短TTL缓存
func (s *NotificationService) UnreadCount(ctx context.Context, actor Actor) (int64, error) {
	if err := authorize(actor, rbac.ActionNotificationRead); err != nil {
		return 0, err
	}

	key := unreadCacheKey(actor.ID)
	if s.rdb != nil {
		if cached, err := s.rdb.Get(ctx, key).Result(); err == nil {
			if n, err := strconv.ParseInt(cached, 10, 64); err == nil {
				return n, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			s.logger.Warn("read unread cache failed", zap.Error(err))
		}
	}

	count, err := s.repos.Notification.CountUnread(ctx, actor.ID)
	if err != nil {
		return 0, err
	}

	if s.rdb != nil {
		if err := s.rdb.Set(ctx, key, fmt.Sprintf("%d", count), unreadCacheTTL).Err(); err != nil {
			s.logger.Warn("write unread cache failed", zap.Error(err))
		}
	}
	return count, nil
}

// invalidateUnread 未读数缓存失效，尽力而为
func (s *NotificationService) invalidateUnread(ctx context.Context, userID string) {
	if s.rdb == nil {
		return
	}
	if err := s.rdb.Del(ctx, unreadCacheKey(userID)).Err(); err != nil {
		s.logger.Warn("invalidate unread cache failed", zap.Error(err))
	}
}

// findOwned 查询通知并校验接收者身份。通知没有越权角色：admin也只能动自己的。
func (s *NotificationService) findOwned(ctx context.Context, actor Actor, id string) (*entity.Notification, error) {
	n, err := s.repos.Notification.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("notification not found")
		}
		return nil, err
	}
	if n.UserID != actor.ID {
		return nil, apperr.PermissionDenied("not your notification")
	}
	return n, nil
}

// MarkRead 标记单条已读
func (s *NotificationService) MarkRead(ctx context.Context, actor Actor, id string) error {
	if err := authorize(actor, rbac.ActionNotificationRead); err != nil {
		return err
	}
	n, err := s.findOwned(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := s.repos.Notification.MarkRead(ctx, n.ID); err != nil {
		return err
	}
	s.invalidateUnread(ctx, actor.ID)
	return nil
}

// MarkAllRead 全部标记已读
func (s *NotificationService) MarkAllRead(ctx context.Context, actor Actor) error {
	if err := authorize(actor, rbac.ActionNotificationRead); err != nil {
		return err
	}
	if err := s.repos.Notification.MarkAllRead(ctx, actor.ID); err != nil {
		return err
	}
	s.invalidateUnread(ctx, actor.ID)
	return nil
}

// DeleteNotification 接收者软删除自己的通知
func (s *NotificationService) DeleteNotification(ctx context.Context, actor Actor, id string) error {
	if err := authorize(actor, rbac.ActionNotificationRead); err != nil {
		return err
	}
	n, err := s.findOwned(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := s.repos.Notification.SoftDelete(ctx, n.ID); err != nil {
		return err
	}
	s.invalidateUnread(ctx, actor.ID)
	return nil
}
