package sync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/matheus3301/soc/internal/backend"
	"github.com/matheus3301/soc/internal/bus"
	"github.com/matheus3301/soc/internal/store"
)

func TestDialogsRefreshReplacesList(t *testing.T) {
	api := &fakeDialogAPI{}
	d := NewDialogs(api, nil, nil, nil, time.Hour)
	ctx := context.Background()

	api.set([]backend.Dialog{{PeerID: 1, Name: "Ann"}, {PeerID: 2, Name: "Bob"}}, nil)
	if err := d.Refresh(ctx); err != nil {
		t.Fatal(err)
	}
	api.set([]backend.Dialog{{PeerID: 3, Name: "Cid"}}, nil)
	if err := d.Refresh(ctx); err != nil {
		t.Fatal(err)
	}

	got := d.List()
	if len(got) != 1 || got[0].PeerID != 3 {
		t.Errorf("List() = %+v, want only peer 3", got)
	}
}

func TestDialogsRefreshIdempotent(t *testing.T) {
	api := &fakeDialogAPI{}
	api.set([]backend.Dialog{{PeerID: 1, Name: "Ann", Unread: 2}}, nil)
	d := NewDialogs(api, nil, nil, nil, time.Hour)

	for i := 0; i < 3; i++ {
		if err := d.Refresh(context.Background()); err != nil {
			t.Fatal(err)
		}
	}
	got := d.List()
	if len(got) != 1 || got[0] != (backend.Dialog{PeerID: 1, Name: "Ann", Unread: 2}) {
		t.Errorf("List() = %+v", got)
	}
}

func TestDialogsFailureKeepsList(t *testing.T) {
	api := &fakeDialogAPI{}
	b := bus.New()
	ch, unsub := b.Subscribe("dialogs.", 4)
	defer unsub()
	d := NewDialogs(api, nil, b, nil, time.Hour)
	ctx := context.Background()

	api.set([]backend.Dialog{{PeerID: 1}}, nil)
	if err := d.Refresh(ctx); err != nil {
		t.Fatal(err)
	}
	api.set(nil, errBackend)
	if err := d.Refresh(ctx); err == nil {
		t.Fatal("Refresh() expected error")
	}

	if got := d.List(); len(got) != 1 || got[0].PeerID != 1 {
		t.Errorf("List() after failure = %+v, want previous list", got)
	}
	if _, lastErr := d.SyncedAt(); lastErr == nil {
		t.Error("SyncedAt() lost the fetch error")
	}

	kinds := []string{(<-ch).Kind, (<-ch).Kind}
	if kinds[0] != bus.DialogsUpdated || kinds[1] != bus.DialogsFailed {
		t.Errorf("events = %v", kinds)
	}
}

func TestDialogsStartPollsUntilStop(t *testing.T) {
	api := &fakeDialogAPI{}
	api.set([]backend.Dialog{{PeerID: 1}}, nil)
	d := NewDialogs(api, nil, nil, nil, 10*time.Millisecond)

	d.Start(context.Background())
	d.Start(context.Background())
	if !d.Running() {
		t.Fatal("Running() = false after Start")
	}
	waitFor(t, "three polls", func() bool { return api.callCount() >= 3 })

	d.Stop()
	if d.Running() {
		t.Error("Running() = true after Stop")
	}
	stopped := api.callCount()
	time.Sleep(50 * time.Millisecond)
	if api.callCount() != stopped {
		t.Errorf("polls continued after Stop: %d -> %d", stopped, api.callCount())
	}
}

func TestDialogsPersistAndRestore(t *testing.T) {
	db := testDB(t)
	api := &fakeDialogAPI{}
	api.set([]backend.Dialog{{PeerID: 7, Name: "Ann", LastMessage: "hi"}, {PeerID: 3, Name: "Bob"}}, nil)
	ctx := context.Background()

	if err := NewDialogs(api, db, nil, nil, time.Hour).Refresh(ctx); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := db.GetState(ctx, store.StateDialogsSyncedAt); !ok {
		t.Error("sync time not recorded")
	}

	fresh := NewDialogs(api, db, nil, nil, time.Hour)
	if err := fresh.Restore(ctx); err != nil {
		t.Fatal(err)
	}
	got := fresh.List()
	if len(got) != 2 || got[0].PeerID != 7 || got[0].LastMessage != "hi" {
		t.Errorf("restored = %+v", got)
	}
	syncedAt, lastErr := fresh.SyncedAt()
	if syncedAt.IsZero() {
		t.Error("restored list has no sync time")
	}
	if !errors.Is(lastErr, ErrSnapshot) {
		t.Errorf("restored list error = %v, want ErrSnapshot", lastErr)
	}

	if err := fresh.Refresh(ctx); err != nil {
		t.Fatal(err)
	}
	if _, lastErr := fresh.SyncedAt(); lastErr != nil {
		t.Errorf("error after fetch = %v, want nil", lastErr)
	}
}

func TestDialogsRestoreWithoutSnapshot(t *testing.T) {
	d := NewDialogs(&fakeDialogAPI{}, testDB(t), nil, nil, time.Hour)
	if err := d.Restore(context.Background()); err != nil {
		t.Fatal(err)
	}
	syncedAt, lastErr := d.SyncedAt()
	if len(d.List()) != 0 || !syncedAt.IsZero() || lastErr != nil {
		t.Errorf("restore on empty store: list %v synced %v err %v", d.List(), syncedAt, lastErr)
	}
}

func TestDialogsReset(t *testing.T) {
	api := &fakeDialogAPI{}
	api.set([]backend.Dialog{{PeerID: 1, Name: "Ann"}}, nil)
	d := NewDialogs(api, nil, nil, nil, time.Hour)
	if err := d.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}

	d.Reset()
	syncedAt, lastErr := d.SyncedAt()
	if len(d.List()) != 0 || !syncedAt.IsZero() || lastErr != nil {
		t.Errorf("after Reset: list %v synced %v err %v", d.List(), syncedAt, lastErr)
	}
}

func TestDialogsInsertIsTransient(t *testing.T) {
	api := &fakeDialogAPI{}
	api.set([]backend.Dialog{{PeerID: 1, Name: "Ann"}}, nil)
	b := bus.New()
	d := NewDialogs(api, nil, b, nil, time.Hour)
	ctx := context.Background()
	if err := d.Refresh(ctx); err != nil {
		t.Fatal(err)
	}
	ch, unsub := b.Subscribe(bus.DialogsChanged, 4)
	defer unsub()

	d.Insert(backend.Dialog{PeerID: 9, Name: "New"})
	select {
	case evt := <-ch:
		if evt.Payload != 2 {
			t.Errorf("update payload = %v, want 2", evt.Payload)
		}
	case <-time.After(time.Second):
		t.Fatal("no update event for inserted dialog")
	}
	d.Insert(backend.Dialog{PeerID: 1, Name: "Duplicate"})
	select {
	case evt := <-ch:
		t.Errorf("duplicate insert emitted %+v", evt)
	default:
	}
	got := d.List()
	if len(got) != 2 || got[0].PeerID != 9 || got[1].Name != "Ann" {
		t.Fatalf("after Insert = %+v", got)
	}

	if err := d.Refresh(ctx); err != nil {
		t.Fatal(err)
	}
	if _, ok := d.Find(9); ok {
		t.Error("local dialog survived a full refresh")
	}
}
