package store

import (
	"context"
	"path/filepath"
	"testing"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, _, err := OpenMigrated(path)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestMigrateIdempotent(t *testing.T) {
	db := testDB(t)

	result, err := db.Migrate()
	if err != nil {
		t.Fatal(err)
	}
	if result.Changed {
		t.Error("second Migrate() should report Changed=false")
	}
	if result.Version != 2 {
		t.Errorf("version = %d, want 2 (init + fts)", result.Version)
	}
}

func TestCredentialsRoundTrip(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	c, err := db.LoadCredentials(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if c != nil {
		t.Fatalf("LoadCredentials on fresh db = %+v, want nil", c)
	}

	if err := db.SaveCredentials(ctx, Credentials{AccessToken: "t1", TokenType: "bearer", UserID: 7, Username: "ann"}); err != nil {
		t.Fatal(err)
	}
	if err := db.SaveCredentials(ctx, Credentials{AccessToken: "t2", TokenType: "bearer", Username: "ann"}); err != nil {
		t.Fatal(err)
	}
	c, err = db.LoadCredentials(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if c == nil || c.AccessToken != "t2" {
		t.Fatalf("got %+v, want token t2", c)
	}
	if c.UserID != 0 {
		t.Errorf("UserID = %d, want 0 (unknown)", c.UserID)
	}

	if err := db.ClearCredentials(ctx); err != nil {
		t.Fatal(err)
	}
	if c, _ := db.LoadCredentials(ctx); c != nil {
		t.Errorf("credentials survived ClearCredentials: %+v", c)
	}
}

func TestReplaceDialogsIsFullReplace(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	first := []Dialog{
		{PeerID: 1, Name: "Ann", LastMessage: "hi", Unread: 2},
		{PeerID: 2, Name: "Bob"},
	}
	if err := db.ReplaceDialogs(ctx, first); err != nil {
		t.Fatal(err)
	}

	second := []Dialog{
		{PeerID: 3, Name: "Cid", LastMessage: "yo"},
		{PeerID: 1, Name: "Ann", LastMessage: "bye"},
	}
	if err := db.ReplaceDialogs(ctx, second); err != nil {
		t.Fatal(err)
	}

	got, err := db.ListDialogs(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d dialogs, want 2", len(got))
	}
	if got[0].PeerID != 3 || got[1].PeerID != 1 {
		t.Errorf("order = [%d %d], want [3 1]", got[0].PeerID, got[1].PeerID)
	}
	if got[1].LastMessage != "bye" || got[1].Unread != 0 {
		t.Errorf("dialog 1 = %+v", got[1])
	}
}

func TestReplaceDialogsEmpty(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	if err := db.ReplaceDialogs(ctx, []Dialog{{PeerID: 1}}); err != nil {
		t.Fatal(err)
	}
	if err := db.ReplaceDialogs(ctx, nil); err != nil {
		t.Fatal(err)
	}
	got, err := db.ListDialogs(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("got %d dialogs after empty replace, want 0", len(got))
	}
}

func TestUpsertMessagesIdempotent(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	snapshot := []Message{
		{Key: "c:a#0", SenderID: 1, ReceiverID: 2, Content: "hello"},
		{Key: "c:b#0", SenderID: 2, ReceiverID: 1, Content: "hey there"},
	}
	if err := db.UpsertMessages(ctx, 2, snapshot); err != nil {
		t.Fatal(err)
	}
	snapshot = append(snapshot, Message{Key: "id:9", ServerID: 9, SenderID: 1, ReceiverID: 2, Content: "third"})
	if err := db.UpsertMessages(ctx, 2, snapshot); err != nil {
		t.Fatal(err)
	}

	msgs, err := db.ListMessages(ctx, 2, 100)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 3 {
		t.Fatalf("got %d messages, want 3 (idempotent upsert failed)", len(msgs))
	}
	if msgs[2].Content != "third" || msgs[2].ServerID != 9 {
		t.Errorf("last = %+v", msgs[2])
	}

	limited, err := db.ListMessages(ctx, 2, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 2 || limited[0].Content != "hey there" {
		t.Errorf("limited = %+v, want the two most recent oldest first", limited)
	}
}

func TestUpsertMessagesRequiresKey(t *testing.T) {
	db := testDB(t)
	if err := db.UpsertMessages(context.Background(), 1, []Message{{Content: "x"}}); err == nil {
		t.Error("expected error for message without key")
	}
}

func TestSearchMessages(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	if err := db.UpsertMessages(ctx, 2, []Message{
		{Key: "k1", SenderID: 1, ReceiverID: 2, Content: "hello world"},
		{Key: "k2", SenderID: 2, ReceiverID: 1, Content: "goodbye world"},
	}); err != nil {
		t.Fatal(err)
	}
	if err := db.UpsertMessages(ctx, 3, []Message{
		{Key: "k1", SenderID: 1, ReceiverID: 3, Content: "hello again"},
	}); err != nil {
		t.Fatal(err)
	}

	results, err := db.SearchMessages(ctx, "hello", 0, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}

	results, err = db.SearchMessages(ctx, "hello", 2, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].Message.Key != "k1" || results[0].Message.PeerID != 2 {
		t.Fatalf("peer-scoped results = %+v", results)
	}
	if results[0].Snippet == "" {
		t.Error("empty snippet")
	}
}

func TestSearchSeesUpdatedContent(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	if err := db.UpsertMessages(ctx, 2, []Message{{Key: "k", Content: "draft words"}}); err != nil {
		t.Fatal(err)
	}
	if err := db.UpsertMessages(ctx, 2, []Message{{Key: "k", Content: "final words"}}); err != nil {
		t.Fatal(err)
	}
	old, err := db.SearchMessages(ctx, "draft", 0, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(old) != 0 {
		t.Errorf("stale index entry still matches: %+v", old)
	}
	fresh, err := db.SearchMessages(ctx, "final", 0, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(fresh) != 1 {
		t.Errorf("got %d results for updated content, want 1", len(fresh))
	}
}

func TestState(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	if _, ok, err := db.GetState(ctx, StateDialogsSyncedAt); err != nil || ok {
		t.Fatalf("GetState on fresh db = ok %v err %v", ok, err)
	}
	if err := db.SetState(ctx, StateDialogsSyncedAt, "4"); err != nil {
		t.Fatal(err)
	}
	if err := db.SetState(ctx, StateDialogsSyncedAt, "5"); err != nil {
		t.Fatal(err)
	}
	v, ok, err := db.GetState(ctx, StateDialogsSyncedAt)
	if err != nil || !ok || v != "5" {
		t.Errorf("GetState = %q %v %v, want 5 true nil", v, ok, err)
	}
}

func TestClearSession(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	if err := db.SaveCredentials(ctx, Credentials{AccessToken: "tok", TokenType: "bearer"}); err != nil {
		t.Fatal(err)
	}
	if err := db.ReplaceDialogs(ctx, []Dialog{{PeerID: 2, Name: "Ann"}}); err != nil {
		t.Fatal(err)
	}
	if err := db.UpsertMessages(ctx, 2, []Message{{Key: "id:1", ServerID: 1, SenderID: 2, ReceiverID: 1, Content: "secret plans"}}); err != nil {
		t.Fatal(err)
	}
	if err := db.SetState(ctx, StateDialogsSyncedAt, "1"); err != nil {
		t.Fatal(err)
	}

	if err := db.ClearSession(ctx); err != nil {
		t.Fatal(err)
	}

	if ds, err := db.ListDialogs(ctx); err != nil || len(ds) != 0 {
		t.Errorf("dialogs after clear = %v, %v", ds, err)
	}
	if msgs, err := db.ListMessages(ctx, 2, 10); err != nil || len(msgs) != 0 {
		t.Errorf("messages after clear = %v, %v", msgs, err)
	}
	if hits, err := db.SearchMessages(ctx, "secret", 0, 10); err != nil || len(hits) != 0 {
		t.Errorf("search after clear = %v, %v", hits, err)
	}
	if _, ok, err := db.GetState(ctx, StateDialogsSyncedAt); err != nil || ok {
		t.Errorf("state after clear: ok %v err %v", ok, err)
	}
	if c, err := db.LoadCredentials(ctx); err != nil || c == nil {
		t.Errorf("credentials touched by ClearSession: %v, %v", c, err)
	}
}

func TestOpenReadOnly(t *testing.T) {
	dir := t.TempDir()
	if _, err := OpenReadOnly(filepath.Join(dir, "missing.db")); err == nil {
		t.Error("OpenReadOnly created a missing database")
	}

	path := filepath.Join(dir, "soc.db")
	rw, _, err := OpenMigrated(path)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = rw.Close() }()
	ctx := context.Background()
	if err := rw.ReplaceDialogs(ctx, []Dialog{{PeerID: 5, Name: "Eve"}}); err != nil {
		t.Fatal(err)
	}

	ro, err := OpenReadOnly(path)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = ro.Close() }()
	ds, err := ro.ListDialogs(ctx)
	if err != nil || len(ds) != 1 || ds[0].Name != "Eve" {
		t.Errorf("ListDialogs = %+v, %v", ds, err)
	}
	if err := ro.SetState(ctx, StateDialogsSyncedAt, "1"); err == nil {
		t.Error("write through read-only handle succeeded")
	}
}
