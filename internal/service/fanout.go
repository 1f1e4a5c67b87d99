package service

import (
	"context"
	"fmt"

	"github.com/hqops/stocktrack/internal/entity"
	"github.com/hqops/stocktrack/internal/rbac"
	"github.com/hqops/stocktrack/internal/repository"
)

// EventKind 通知事件类型
type EventKind string

const (
	EventSentForTest   EventKind = "sent_for_test"  // 零件送测 → 全体在职工程师
	EventTestCompleted EventKind = "test_completed" // 测试完成 → 全体在职后勤
	EventStatusChanged EventKind = "status_changed" // 工单/测试状态变化 → 所有者
	EventNewComment    EventKind = "new_comment"    // 新评论 → 所有者
	EventNewResult     EventKind = "new_result"     // 新测试结果 → 所有者
)

// Event fan-out输入：事件类型、主体描述、所有者（所有者类事件用）、触发者
type Event struct {
	Kind    EventKind
	Subject string // 主体描述，如 "Hdd - WD Blue 4TB" 或工单标题
	OwnerID string // status_changed/new_comment/new_result时的所有者
	ActorID string // 触发动作的用户
}

// Fanout 计算某事件的收件人集合并生成通知草稿。
// 只做计算与落库准备，不做任何外部投递；调用方在自己的事务内持久化。
// sent_for_test要求收件人非空，空集由调用方以流转守卫失败处理。
func Fanout(ctx context.Context, repos *repository.Repositories, ev Event) ([]entity.Notification, error) {
	switch ev.Kind {
	case EventSentForTest:
		engineers, err := repos.User.ListByRole(ctx, string(rbac.RoleEngineer))
		if err != nil {
			return nil, fmt.Errorf("list engineers: %w", err)
		}
		drafts := make([]entity.Notification, 0, len(engineers))
		for _, u := range engineers {
			drafts = append(drafts, entity.Notification{
				UserID:    u.ID,
				Title:     "Part sent for test",
				Message:   fmt.Sprintf("You have a %s to test", ev.Subject),
				Type:      entity.NotificationTypeInfo,
				CreatedBy: ev.ActorID,
			})
		}
		return drafts, nil

	case EventTestCompleted:
		logistics, err := repos.User.ListByRole(ctx, string(rbac.RoleLogistic))
		if err != nil {
			return nil, fmt.Errorf("list logistic users: %w", err)
		}
		drafts := make([]entity.Notification, 0, len(logistics))
		for _, u := range logistics {
			drafts = append(drafts, entity.Notification{
				UserID:    u.ID,
				Title:     "Test completed",
				Message:   fmt.Sprintf("%s test completed", ev.Subject),
				Type:      entity.NotificationTypeSuccess,
				CreatedBy: ev.ActorID,
			})
		}
		return drafts, nil

	case EventStatusChanged, EventNewComment, EventNewResult:
		// 所有者本人触发的变更不通知自己
		if ev.OwnerID == "" || ev.OwnerID == ev.ActorID {
			return nil, nil
		}
		title := "Status changed"
		msg := fmt.Sprintf("Status of %q has changed", ev.Subject)
		switch ev.Kind {
		case EventNewComment:
			title = "New comment"
			msg = fmt.Sprintf("New comment on %q", ev.Subject)
		case EventNewResult:
			title = "New test result"
			msg = fmt.Sprintf("New result added to %q", ev.Subject)
		}
		return []entity.Notification{{
			UserID:    ev.OwnerID,
			Title:     title,
			Message:   msg,
			Type:      entity.NotificationTypeInfo,
			CreatedBy: ev.ActorID,
		}}, nil
	}

	return nil, fmt.Errorf("unknown event kind: %q", ev.Kind)
}
