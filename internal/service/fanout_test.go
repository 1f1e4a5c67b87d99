package service

import (
	"context"
	"testing"

	"github.com/hqops/stocktrack/internal/repository"
	"github.com/hqops/stocktrack/internal/testutil"
)

func TestFanoutSentForTest(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db)
	ctx := context.Background()

	testutil.SeedTestUser(t, db, "eng-1", "Eng One", "engineer")
	testutil.SeedTestUser(t, db, "eng-2", "Eng Two", "engineer")
	testutil.SeedTestUser(t, db, "log-1", "Log One", "logistic")
	testutil.SeedTestUser(t, db, "usr-1", "User One", "user")

	drafts, err := Fanout(ctx, repos, Event{
		Kind:    EventSentForTest,
		Subject: "Hdd",
		ActorID: "log-1",
	})
	if err != nil {
		t.Fatalf("Fanout failed: %v", err)
	}
	if len(drafts) != 2 {
		t.Fatalf("expected 2 engineer drafts, got %d", len(drafts))
	}
	seen := map[string]bool{}
	for _, d := range drafts {
		seen[d.UserID] = true
		if d.Message != "You have a Hdd to test" {
			t.Errorf("unexpected message: %q", d.Message)
		}
	}
	if !seen["eng-1"] || !seen["eng-2"] {
		t.Errorf("drafts missing engineers: %v", seen)
	}
}

func TestFanoutTestCompleted(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db)
	ctx := context.Background()

	testutil.SeedTestUser(t, db, "log-1", "Log One", "logistic")
	testutil.SeedTestUser(t, db, "eng-1", "Eng One", "engineer")

	drafts, err := Fanout(ctx, repos, Event{
		Kind:    EventTestCompleted,
		Subject: "Ram",
		ActorID: "eng-1",
	})
	if err != nil {
		t.Fatalf("Fanout failed: %v", err)
	}
	if len(drafts) != 1 {
		t.Fatalf("expected 1 logistic draft, got %d", len(drafts))
	}
	if drafts[0].UserID != "log-1" {
		t.Errorf("recipient = %q", drafts[0].UserID)
	}
}

func TestFanoutOwnerEvents(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db)
	ctx := context.Background()

	// 所有者本人触发不通知
	drafts, err := Fanout(ctx, repos, Event{
		Kind:    EventNewComment,
		Subject: "Broken fan",
		OwnerID: "usr-1",
		ActorID: "usr-1",
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(drafts) != 0 {
		t.Errorf("self-triggered event should produce no drafts, got %d", len(drafts))
	}

	// 他人触发恰好一条
	drafts, err = Fanout(ctx, repos, Event{
		Kind:    EventNewComment,
		Subject: "Broken fan",
		OwnerID: "usr-1",
		ActorID: "eng-1",
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(drafts) != 1 || drafts[0].UserID != "usr-1" {
		t.Errorf("expected exactly one draft for owner, got %v", drafts)
	}
}

func TestFanoutUnknownKind(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db)

	if _, err := Fanout(context.Background(), repos, Event{Kind: "mystery"}); err == nil {
		t.Error("unknown event kind should fail")
	}
}
