package journal

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/matheus3301/botchat/internal/bus"
	"github.com/matheus3301/botchat/internal/status"
	"go.uber.org/zap"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "journal.db")
	db, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := testDB(t)

	result, err := db.Migrate()
	if err != nil {
		t.Fatal(err)
	}
	if result.Changed {
		t.Error("second Migrate() should report Changed=false")
	}
	if result.Version != 2 {
		t.Errorf("version = %d, want 2", result.Version)
	}
	if result.Dirty {
		t.Error("schema left dirty")
	}
}

func TestAppendAndListDeliveries(t *testing.T) {
	db := testDB(t)

	for i, kind := range []string{"queued", "send_failed", "sent"} {
		if err := db.AppendDelivery(DeliveryEvent{MsgID: "m1", ChatID: "1", Kind: kind, OccurredAt: int64(100 + i)}); err != nil {
			t.Fatal(err)
		}
	}
	if err := db.AppendDelivery(DeliveryEvent{MsgID: "m2", ChatID: "2", Kind: "queued"}); err != nil {
		t.Fatal(err)
	}

	events, err := db.ListDeliveries("m1", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 3 {
		t.Fatalf("got %d events, want 3", len(events))
	}
	if events[0].Kind != "queued" || events[2].Kind != "sent" {
		t.Errorf("got kinds %s..%s, want queued..sent", events[0].Kind, events[2].Kind)
	}

	latest, err := db.ListDeliveries("", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(latest) != 2 || latest[1].MsgID != "m2" {
		t.Errorf("got %+v, want the two newest ending with m2", latest)
	}

	counts, err := db.CountByKind()
	if err != nil {
		t.Fatal(err)
	}
	if counts["queued"] != 2 || counts["sent"] != 1 {
		t.Errorf("got counts %v", counts)
	}
}

func TestRecorderWritesBusEvents(t *testing.T) {
	db := testDB(t)
	b := bus.New()
	r := NewRecorder(db, b, zap.NewNop())
	r.Start(context.Background())
	defer r.Stop()

	b.Emit(bus.MessageQueued, bus.Delivery{MessageID: "m1", ChatID: "1"})
	b.Emit(bus.MessageSendFailed, bus.Delivery{MessageID: "m1", ChatID: "1", Detail: "broken pipe"})
	b.Emit(bus.TransportStateChanged, status.StatusChange{From: status.Disconnected, To: status.Connecting})
	b.Emit(bus.NetworkOnline, true)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		deliveries, _ := db.ListDeliveries("m1", 10)
		links, _ := db.ListLinks(10)
		if len(deliveries) == 2 && len(links) == 2 {
			if deliveries[1].Detail != "broken pipe" {
				t.Errorf("got detail %q, want broken pipe", deliveries[1].Detail)
			}
			if links[0].Detail != "DISCONNECTED -> CONNECTING" {
				t.Errorf("got link detail %q", links[0].Detail)
			}
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("timeout waiting for journal rows")
}
