package service

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/hqops/stocktrack/internal/apperr"
	"github.com/hqops/stocktrack/internal/entity"
	"github.com/hqops/stocktrack/internal/rbac"
	"github.com/hqops/stocktrack/internal/repository"
	"github.com/hqops/stocktrack/internal/testutil"
)

func adminActor(id string) Actor {
	return Actor{ID: id, Name: "Admin " + id, Role: rbac.RoleAdmin}
}

func TestChangeRole(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db)
	svc := NewUserService(db, repos)
	ctx := context.Background()

	testutil.SeedTestUser(t, db, "adm-1", "Admin One", "admin")
	testutil.SeedTestUser(t, db, "usr-1", "User One", "user")

	// 非admin不能改角色
	_, err := svc.ChangeRole(ctx, logisticActor("log-1"), "usr-1", "engineer")
	if !apperr.IsPermissionDenied(err) {
		t.Fatalf("logistic change-role should be PermissionDenied, got %v", err)
	}

	// admin晋升user为engineer
	user, err := svc.ChangeRole(ctx, adminActor("adm-1"), "usr-1", "engineer")
	if err != nil {
		t.Fatalf("ChangeRole failed: %v", err)
	}
	if user.Role != "engineer" {
		t.Errorf("role = %q", user.Role)
	}

	count, err := repos.ActivityLog.CountByAction(ctx, entity.ActionChangeRole)
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("audit count = %d, want 1", count)
	}

	// 未知角色拒绝
	if _, err := svc.ChangeRole(ctx, adminActor("adm-1"), "usr-1", "superuser"); !apperr.IsValidation(err) {
		t.Errorf("unknown role should be Validation, got %v", err)
	}

	// 不能改自己的角色
	if _, err := svc.ChangeRole(ctx, adminActor("adm-1"), "adm-1", "user"); !apperr.IsValidation(err) {
		t.Errorf("self role change should be Validation, got %v", err)
	}
}

func TestDeleteUserExcludesFromFanout(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db)
	svc := NewUserService(db, repos)
	ctx := context.Background()

	testutil.SeedTestUser(t, db, "adm-1", "Admin One", "admin")
	testutil.SeedTestUser(t, db, "eng-1", "Eng One", "engineer")
	testutil.SeedTestUser(t, db, "eng-2", "Eng Two", "engineer")

	if err := svc.DeleteUser(ctx, adminActor("adm-1"), "eng-2"); err != nil {
		t.Fatalf("DeleteUser failed: %v", err)
	}

	// 软删除的工程师不再是fan-out收件人
	engineers, err := repos.User.ListByRole(ctx, "engineer")
	if err != nil {
		t.Fatal(err)
	}
	if len(engineers) != 1 || engineers[0].ID != "eng-1" {
		t.Errorf("expected only eng-1 as recipient, got %v", engineers)
	}

	// 不能删除自己
	if err := svc.DeleteUser(ctx, adminActor("adm-1"), "adm-1"); !apperr.IsValidation(err) {
		t.Errorf("self delete should be Validation, got %v", err)
	}
}

func TestNotificationRecipientOnly(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db)
	svc := NewNotificationService(repos, nil, zap.NewNop())
	ctx := context.Background()

	n := &entity.Notification{UserID: "usr-1", Message: "hello", Type: entity.NotificationTypeInfo}
	if err := repos.Notification.Create(ctx, n); err != nil {
		t.Fatal(err)
	}

	// 非接收者不能标记已读，admin也不行
	if err := svc.MarkRead(ctx, adminActor("adm-1"), n.ID); !apperr.IsPermissionDenied(err) {
		t.Fatalf("non-recipient mark-read should be PermissionDenied, got %v", err)
	}

	owner := Actor{ID: "usr-1", Role: rbac.RoleUser}
	if err := svc.MarkRead(ctx, owner, n.ID); err != nil {
		t.Fatalf("MarkRead failed: %v", err)
	}

	count, err := svc.UnreadCount(ctx, owner)
	if err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Errorf("unread = %d, want 0", count)
	}

	if err := svc.DeleteNotification(ctx, owner, n.ID); err != nil {
		t.Fatalf("DeleteNotification failed: %v", err)
	}
	items, total, err := svc.ListNotifications(ctx, owner, 1, 10)
	if err != nil {
		t.Fatal(err)
	}
	if total != 0 || len(items) != 0 {
		t.Errorf("deleted notification still listed: %d", total)
	}
}
