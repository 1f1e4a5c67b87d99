package service

import (
	"context"
	"errors"
	"testing"

	"github.com/hqops/stocktrack/internal/apperr"
	"github.com/hqops/stocktrack/internal/entity"
	"github.com/hqops/stocktrack/internal/rbac"
	"github.com/hqops/stocktrack/internal/repository"
	"github.com/hqops/stocktrack/internal/testutil"
)

func setupInventoryTest(t *testing.T) (*InventoryService, *repository.Repositories) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db)
	return NewInventoryService(db, repos), repos
}

func logisticActor(id string) Actor {
	return Actor{ID: id, Name: "Logistic " + id, Role: rbac.RoleLogistic}
}

func engineerActor(id string) Actor {
	return Actor{ID: id, Name: "Engineer " + id, Role: rbac.RoleEngineer}
}

func TestPartLifecycleFlow(t *testing.T) {
	svc, repos := setupInventoryTest(t)
	ctx := context.Background()

	logistic := testutil.SeedTestUser(t, repos.DB(), "log-1", "Log One", "logistic")
	eng1 := testutil.SeedTestUser(t, repos.DB(), "eng-1", "Eng One", "engineer")
	eng2 := testutil.SeedTestUser(t, repos.DB(), "eng-2", "Eng Two", "engineer")

	actor := logisticActor(logistic.ID)

	// 入库
	part, err := svc.CreatePart(ctx, actor, &CreatePartRequest{
		Type:         entity.PartTypeHDD,
		NameProduct:  "WD Blue 4TB",
		SerialNumber: "SN-FLOW-001",
		Location:     "Warehouse A",
	})
	if err != nil {
		t.Fatalf("CreatePart failed: %v", err)
	}
	if part.Status != entity.PartStatusPendingTest {
		t.Fatalf("new part status = %q, want %q", part.Status, entity.PartStatusPendingTest)
	}

	// 送测：两名工程师各收到一条通知
	part, err = svc.SendForEngineerTest(ctx, actor, part.ID)
	if err != nil {
		t.Fatalf("SendForEngineerTest failed: %v", err)
	}
	if part.Status != entity.PartStatusSentForTest {
		t.Fatalf("status = %q, want %q", part.Status, entity.PartStatusSentForTest)
	}
	for _, eng := range []string{eng1.ID, eng2.ID} {
		n, err := repos.Notification.CountByUser(ctx, eng)
		if err != nil {
			t.Fatal(err)
		}
		if n != 1 {
			t.Errorf("engineer %s has %d notifications, want 1", eng, n)
		}
	}
	logs, err := repos.StatusLog.ListByPart(ctx, part.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(logs) != 1 {
		t.Fatalf("expected 1 status log after send-for-test, got %d", len(logs))
	}
	if logs[0].StatusBefore != entity.PartStatusPendingTest || logs[0].StatusAfter != entity.PartStatusSentForTest {
		t.Errorf("status log %q->%q", logs[0].StatusBefore, logs[0].StatusAfter)
	}

	// 工程师记录结果：状态Good，后勤收到通知，第二条流转记录
	part, err = svc.RecordTestResult(ctx, engineerActor(eng1.ID), part.ID, &RecordTestResultRequest{
		Health: "100% healthy",
		Status: entity.PartStatusGood,
	})
	if err != nil {
		t.Fatalf("RecordTestResult failed: %v", err)
	}
	if part.Status != entity.PartStatusGood {
		t.Fatalf("status = %q, want %q", part.Status, entity.PartStatusGood)
	}
	if part.Health != "100% healthy" {
		t.Errorf("health = %q", part.Health)
	}

	n, err := repos.Notification.CountByUser(ctx, logistic.ID)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("logistic has %d notifications, want 1", n)
	}

	logs, err = repos.StatusLog.ListByPart(ctx, part.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(logs) != 2 {
		t.Fatalf("expected 2 status logs, got %d", len(logs))
	}
	if logs[1].StatusBefore != entity.PartStatusSentForTest || logs[1].StatusAfter != entity.PartStatusGood {
		t.Errorf("second status log %q->%q", logs[1].StatusBefore, logs[1].StatusAfter)
	}

	// 测试记录留档
	tests, _, err := repos.Test.List(ctx, 1, 10, repository.TestFilter{PartID: part.ID})
	if err != nil {
		t.Fatal(err)
	}
	if len(tests) != 1 {
		t.Fatalf("expected 1 test record, got %d", len(tests))
	}
	if tests[0].Status != entity.TestStatusCompleted {
		t.Errorf("test status = %q", tests[0].Status)
	}

	// 审计留痕：入库、送测、更新状态各一条
	for _, action := range []string{entity.ActionAddInventory, entity.ActionSendForTest, entity.ActionUpdateStatus} {
		count, err := repos.ActivityLog.CountByAction(ctx, action)
		if err != nil {
			t.Fatal(err)
		}
		if count != 1 {
			t.Errorf("activity log %q count = %d, want 1", action, count)
		}
	}
}

func TestCreatePartDuplicateSerial(t *testing.T) {
	svc, repos := setupInventoryTest(t)
	ctx := context.Background()
	testutil.SeedTestUser(t, repos.DB(), "log-1", "Log One", "logistic")
	actor := logisticActor("log-1")

	req := &CreatePartRequest{
		Type:         entity.PartTypeRAM,
		NameProduct:  "Kingston 32GB",
		SerialNumber: "SN-DUP-001",
	}
	if _, err := svc.CreatePart(ctx, actor, req); err != nil {
		t.Fatalf("first create failed: %v", err)
	}

	_, err := svc.CreatePart(ctx, actor, req)
	if !apperr.IsConflict(err) {
		t.Fatalf("duplicate serial should be Conflict, got %v", err)
	}

	// 失败的操作不留审计
	count, err := repos.ActivityLog.CountByAction(ctx, entity.ActionAddInventory)
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("activity log count = %d, want 1", count)
	}
}

// 绕过入库的事务内预检查直接写仓库，验证唯一索引冲突被归一为
// ErrDuplicate哨兵（并发入库时预检查双双通过后的兜底路径）。
func TestCreatePartSerialIndexFallback(t *testing.T) {
	_, repos := setupInventoryTest(t)
	ctx := context.Background()
	testutil.SeedTestPart(t, repos.DB(), "SN-RACE-001", entity.PartStatusPendingTest)

	err := repos.Part.Create(ctx, &entity.Part{
		Type:         entity.PartTypeHDD,
		NameProduct:  "WD Blue 4TB",
		SerialNumber: "SN-RACE-001",
	})
	if !errors.Is(err, repository.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate from unique index, got %v", err)
	}
}

func TestSendForTestRoleGate(t *testing.T) {
	svc, repos := setupInventoryTest(t)
	ctx := context.Background()
	testutil.SeedTestUser(t, repos.DB(), "eng-1", "Eng One", "engineer")
	part := testutil.SeedTestPart(t, repos.DB(), "SN-GATE-001", entity.PartStatusPendingTest)

	// user角色不能送测
	_, err := svc.SendForEngineerTest(ctx, Actor{ID: "u-1", Role: rbac.RoleUser}, part.ID)
	if !apperr.IsPermissionDenied(err) {
		t.Fatalf("user send-for-test should be PermissionDenied, got %v", err)
	}

	// engineer角色也不能送测
	_, err = svc.SendForEngineerTest(ctx, engineerActor("eng-1"), part.ID)
	if !apperr.IsPermissionDenied(err) {
		t.Fatalf("engineer send-for-test should be PermissionDenied, got %v", err)
	}

	// 被拒绝的操作没有任何副作用
	got, err := repos.Part.FindByID(ctx, part.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != entity.PartStatusPendingTest {
		t.Errorf("part status changed to %q after denied request", got.Status)
	}
}

func TestSendForTestWithoutEngineers(t *testing.T) {
	svc, repos := setupInventoryTest(t)
	ctx := context.Background()
	testutil.SeedTestUser(t, repos.DB(), "log-1", "Log One", "logistic")
	part := testutil.SeedTestPart(t, repos.DB(), "SN-NOENG-001", entity.PartStatusPendingTest)

	_, err := svc.SendForEngineerTest(ctx, logisticActor("log-1"), part.ID)
	if !apperr.IsInvalidTransition(err) {
		t.Fatalf("expected InvalidTransition with zero engineers, got %v", err)
	}

	// 整个事务回滚：状态、流转记录、审计都没有变化
	got, err := repos.Part.FindByID(ctx, part.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != entity.PartStatusPendingTest {
		t.Errorf("part status = %q, want unchanged", got.Status)
	}
	logs, err := repos.StatusLog.ListByPart(ctx, part.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(logs) != 0 {
		t.Errorf("expected 0 status logs, got %d", len(logs))
	}
	count, err := repos.ActivityLog.CountByAction(ctx, entity.ActionSendForTest)
	if err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Errorf("expected 0 audit entries, got %d", count)
	}
}

func TestSendForTestInactiveEngineersIgnored(t *testing.T) {
	svc, repos := setupInventoryTest(t)
	ctx := context.Background()
	testutil.SeedTestUser(t, repos.DB(), "log-1", "Log One", "logistic")
	inactive := testutil.SeedTestUser(t, repos.DB(), "eng-off", "Eng Off", "engineer")
	repos.DB().Model(inactive).Update("is_active", false)

	part := testutil.SeedTestPart(t, repos.DB(), "SN-INACT-001", entity.PartStatusPendingTest)

	_, err := svc.SendForEngineerTest(ctx, logisticActor("log-1"), part.ID)
	if !apperr.IsInvalidTransition(err) {
		t.Fatalf("inactive engineers should not count as recipients, got %v", err)
	}
}

func TestRecordTestResultGuards(t *testing.T) {
	svc, repos := setupInventoryTest(t)
	ctx := context.Background()
	testutil.SeedTestUser(t, repos.DB(), "eng-1", "Eng One", "engineer")
	actor := engineerActor("eng-1")

	// 不在送测状态的零件不能记录结果
	pending := testutil.SeedTestPart(t, repos.DB(), "SN-GUARD-001", entity.PartStatusPendingTest)
	_, err := svc.RecordTestResult(ctx, actor, pending.ID, &RecordTestResultRequest{
		Health: "ok", Status: entity.PartStatusGood,
	})
	if !apperr.IsInvalidTransition(err) {
		t.Fatalf("expected InvalidTransition, got %v", err)
	}

	// 结果只接受Good/Not good
	sent := testutil.SeedTestPart(t, repos.DB(), "SN-GUARD-002", entity.PartStatusSentForTest)
	_, err = svc.RecordTestResult(ctx, actor, sent.ID, &RecordTestResultRequest{
		Health: "ok", Status: "Excellent",
	})
	if !apperr.IsValidation(err) {
		t.Fatalf("expected Validation, got %v", err)
	}

	got, err := repos.Part.FindByID(ctx, sent.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != entity.PartStatusSentForTest {
		t.Errorf("rejected result changed status to %q", got.Status)
	}
}

func TestDeletePartAdminOnly(t *testing.T) {
	svc, repos := setupInventoryTest(t)
	ctx := context.Background()
	part := testutil.SeedTestPart(t, repos.DB(), "SN-DEL-001", entity.PartStatusGood)

	if err := svc.DeletePart(ctx, logisticActor("log-1"), part.ID); !apperr.IsPermissionDenied(err) {
		t.Fatalf("logistic delete should be PermissionDenied, got %v", err)
	}

	admin := Actor{ID: "adm-1", Name: "Admin", Role: rbac.RoleAdmin}
	if err := svc.DeletePart(ctx, admin, part.ID); err != nil {
		t.Fatalf("admin delete failed: %v", err)
	}
	if _, err := repos.Part.FindByID(ctx, part.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("part should be gone, got %v", err)
	}

	// 删除动作审计留痕
	count, err := repos.ActivityLog.CountByAction(ctx, entity.ActionDeleteInventory)
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("delete audit count = %d, want 1", count)
	}
}

func TestUpdatePartDoesNotTouchStatus(t *testing.T) {
	svc, repos := setupInventoryTest(t)
	ctx := context.Background()
	testutil.SeedTestUser(t, repos.DB(), "log-1", "Log One", "logistic")
	part := testutil.SeedTestPart(t, repos.DB(), "SN-UPD-001", entity.PartStatusGood)

	newLoc := "Warehouse B"
	updated, err := svc.UpdatePart(ctx, logisticActor("log-1"), part.ID, &UpdatePartRequest{
		Location: &newLoc,
	})
	if err != nil {
		t.Fatalf("UpdatePart failed: %v", err)
	}
	if updated.Location != newLoc {
		t.Errorf("location = %q", updated.Location)
	}
	if updated.Status != entity.PartStatusGood {
		t.Errorf("non-status update changed status to %q", updated.Status)
	}
	logs, err := repos.StatusLog.ListByPart(ctx, part.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(logs) != 0 {
		t.Errorf("non-status update wrote %d status logs", len(logs))
	}
}

func TestAddWarranty(t *testing.T) {
	svc, repos := setupInventoryTest(t)
	ctx := context.Background()
	testutil.SeedTestUser(t, repos.DB(), "log-1", "Log One", "logistic")
	part := testutil.SeedTestPart(t, repos.DB(), "SN-WAR-001", entity.PartStatusGood)

	w, err := svc.AddWarranty(ctx, logisticActor("log-1"), part.ID, &AddWarrantyRequest{
		Provider: "Western Digital",
		Status:   "active",
	})
	if err != nil {
		t.Fatalf("AddWarranty failed: %v", err)
	}
	if w.PartID != part.ID {
		t.Errorf("warranty part id = %q", w.PartID)
	}

	items, err := svc.ListWarranties(ctx, logisticActor("log-1"), part.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 {
		t.Errorf("expected 1 warranty, got %d", len(items))
	}
}
