package service

import (
	"context"
	"testing"

	"github.com/hqops/stocktrack/internal/apperr"
	"github.com/hqops/stocktrack/internal/entity"
	"github.com/hqops/stocktrack/internal/rbac"
	"github.com/hqops/stocktrack/internal/repository"
	"github.com/hqops/stocktrack/internal/testutil"
)

func setupTicketTest(t *testing.T) (*TicketService, *repository.Repositories) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db)
	return NewTicketService(db, repos), repos
}

func userActor(id string) Actor {
	return Actor{ID: id, Name: "User " + id, Role: rbac.RoleUser}
}

func TestTicketOwnershipScoping(t *testing.T) {
	svc, repos := setupTicketTest(t)
	ctx := context.Background()
	testutil.SeedTestUser(t, repos.DB(), "usr-1", "User One", "user")
	testutil.SeedTestUser(t, repos.DB(), "usr-2", "User Two", "user")
	testutil.SeedTestUser(t, repos.DB(), "eng-1", "Eng One", "engineer")

	ticket, err := svc.CreateTicket(ctx, userActor("usr-1"), &CreateTicketRequest{
		Title:    "Broken fan",
		Category: entity.TicketCategoryHardware,
		Priority: entity.TicketPriorityHigh,
	})
	if err != nil {
		t.Fatalf("CreateTicket failed: %v", err)
	}
	if ticket.Status != entity.TicketStatusOpen {
		t.Errorf("new ticket status = %q", ticket.Status)
	}

	// 别的user看不到
	if _, err := svc.GetTicket(ctx, userActor("usr-2"), ticket.ID); !apperr.IsPermissionDenied(err) {
		t.Fatalf("other user should be denied, got %v", err)
	}

	// 越权角色能看到
	if _, err := svc.GetTicket(ctx, engineerActor("eng-1"), ticket.ID); err != nil {
		t.Fatalf("engineer should see any ticket: %v", err)
	}

	// user列表只含自己的
	items, total, err := svc.ListTickets(ctx, userActor("usr-2"), 1, 10, repository.TicketFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if total != 0 || len(items) != 0 {
		t.Errorf("usr-2 sees %d tickets, want 0", total)
	}
	_, total, err = svc.ListTickets(ctx, engineerActor("eng-1"), 1, 10, repository.TicketFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if total != 1 {
		t.Errorf("engineer sees %d tickets, want 1", total)
	}
}

func TestTicketStatusChangeNotifiesOwner(t *testing.T) {
	svc, repos := setupTicketTest(t)
	ctx := context.Background()
	testutil.SeedTestUser(t, repos.DB(), "usr-1", "User One", "user")
	testutil.SeedTestUser(t, repos.DB(), "eng-1", "Eng One", "engineer")

	ticket, err := svc.CreateTicket(ctx, userActor("usr-1"), &CreateTicketRequest{
		Title:    "VPN down",
		Category: entity.TicketCategoryNetwork,
		Priority: entity.TicketPriorityMedium,
	})
	if err != nil {
		t.Fatal(err)
	}

	// 工程师改状态：所有者恰好收到一条通知
	newStatus := entity.TicketStatusInProgress
	if _, err := svc.UpdateTicket(ctx, engineerActor("eng-1"), ticket.ID, &UpdateTicketRequest{
		Status: &newStatus,
	}); err != nil {
		t.Fatalf("UpdateTicket failed: %v", err)
	}
	n, err := repos.Notification.CountByUser(ctx, "usr-1")
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("owner has %d notifications, want 1", n)
	}

	// 所有者自己改状态：不通知自己
	doneStatus := entity.TicketStatusResolved
	if _, err := svc.UpdateTicket(ctx, userActor("usr-1"), ticket.ID, &UpdateTicketRequest{
		Status: &doneStatus,
	}); err != nil {
		t.Fatal(err)
	}
	n, err = repos.Notification.CountByUser(ctx, "usr-1")
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("self-update should not notify, count = %d", n)
	}
}

func TestTicketCommentFlow(t *testing.T) {
	svc, repos := setupTicketTest(t)
	ctx := context.Background()
	testutil.SeedTestUser(t, repos.DB(), "usr-1", "User One", "user")
	testutil.SeedTestUser(t, repos.DB(), "eng-1", "Eng One", "engineer")

	ticket, err := svc.CreateTicket(ctx, userActor("usr-1"), &CreateTicketRequest{
		Title:    "Disk full",
		Category: entity.TicketCategoryHardware,
		Priority: entity.TicketPriorityLow,
	})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := svc.AddComment(ctx, engineerActor("eng-1"), ticket.ID, &AddCommentRequest{
		Content: "Looking into it",
	}); err != nil {
		t.Fatalf("AddComment failed: %v", err)
	}

	comments, err := svc.ListComments(ctx, userActor("usr-1"), ticket.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(comments) != 1 {
		t.Fatalf("expected 1 comment, got %d", len(comments))
	}

	n, err := repos.Notification.CountByUser(ctx, "usr-1")
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("owner notification count = %d, want 1", n)
	}
}

func TestTicketValidation(t *testing.T) {
	svc, repos := setupTicketTest(t)
	ctx := context.Background()
	testutil.SeedTestUser(t, repos.DB(), "usr-1", "User One", "user")

	_, err := svc.CreateTicket(ctx, userActor("usr-1"), &CreateTicketRequest{
		Title:    "Bad",
		Category: "time-travel",
		Priority: entity.TicketPriorityLow,
	})
	if !apperr.IsValidation(err) {
		t.Fatalf("unknown category should be Validation, got %v", err)
	}
}

func TestTicketAttachmentFlow(t *testing.T) {
	svc, repos := setupTicketTest(t)
	ctx := context.Background()
	testutil.SeedTestUser(t, repos.DB(), "usr-1", "User One", "user")
	testutil.SeedTestUser(t, repos.DB(), "usr-2", "User Two", "user")
	testutil.SeedTestUser(t, repos.DB(), "eng-1", "Eng One", "engineer")

	ticket, err := svc.CreateTicket(ctx, userActor("usr-1"), &CreateTicketRequest{
		Title:    "Dead PSU",
		Category: entity.TicketCategoryHardware,
		Priority: entity.TicketPriorityHigh,
	})
	if err != nil {
		t.Fatal(err)
	}

	// 别的user不能挂附件
	if _, err := svc.AddAttachment(ctx, userActor("usr-2"), ticket.ID, &AddAttachmentRequest{
		FileName: "psu.jpg",
		FilePath: "/uploads/psu.jpg",
	}); !apperr.IsPermissionDenied(err) {
		t.Fatalf("other user should be denied, got %v", err)
	}

	// 越权角色可以
	attachment, err := svc.AddAttachment(ctx, engineerActor("eng-1"), ticket.ID, &AddAttachmentRequest{
		FileName: "diagnostics.log",
		FilePath: "/uploads/diagnostics.log",
	})
	if err != nil {
		t.Fatalf("AddAttachment failed: %v", err)
	}
	if attachment.TicketID != ticket.ID || attachment.CreatedBy != "eng-1" {
		t.Errorf("attachment = %+v", attachment)
	}

	items, err := svc.ListAttachments(ctx, userActor("usr-1"), ticket.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 attachment, got %d", len(items))
	}

	n, err := repos.ActivityLog.CountByAction(ctx, entity.ActionUploadAttachment)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("UPLOAD_ATTACHMENT audit count = %d, want 1", n)
	}

	// 删工单附件跟着软删除
	if err := svc.DeleteTicket(ctx, userActor("usr-1"), ticket.ID); err != nil {
		t.Fatal(err)
	}
	items, err = repos.Ticket.ListAttachments(ctx, ticket.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 0 {
		t.Errorf("attachments should be soft-deleted with ticket, got %d", len(items))
	}
}

func TestTicketSoftDeleteCascadesComments(t *testing.T) {
	svc, repos := setupTicketTest(t)
	ctx := context.Background()
	testutil.SeedTestUser(t, repos.DB(), "usr-1", "User One", "user")

	ticket, err := svc.CreateTicket(ctx, userActor("usr-1"), &CreateTicketRequest{
		Title:    "Remove me",
		Category: entity.TicketCategoryOther,
		Priority: entity.TicketPriorityLow,
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.AddComment(ctx, userActor("usr-1"), ticket.ID, &AddCommentRequest{Content: "note"}); err != nil {
		t.Fatal(err)
	}

	if err := svc.DeleteTicket(ctx, userActor("usr-1"), ticket.ID); err != nil {
		t.Fatalf("DeleteTicket failed: %v", err)
	}

	if _, err := svc.GetTicket(ctx, userActor("usr-1"), ticket.ID); !apperr.IsNotFound(err) {
		t.Fatalf("deleted ticket should be NotFound, got %v", err)
	}
	comments, err := repos.Ticket.ListComments(ctx, ticket.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(comments) != 0 {
		t.Errorf("comments should be soft-deleted with ticket, got %d", len(comments))
	}
}
