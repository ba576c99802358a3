package api_test

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/matheus3301/botchat/internal/api"
	"github.com/matheus3301/botchat/internal/bus"
	"github.com/matheus3301/botchat/internal/chat"
	"github.com/matheus3301/botchat/internal/client"
	"github.com/matheus3301/botchat/internal/journal"
	"github.com/matheus3301/botchat/internal/netmon"
	"github.com/matheus3301/botchat/internal/reconcile"
	"github.com/matheus3301/botchat/internal/status"
	"github.com/matheus3301/botchat/internal/transport/transporttest"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
)

type fixture struct {
	client *client.Client
	fake   *transporttest.Fake
	net    *netmon.Switch
	repo   *reconcile.Repository
	events *bus.Bus
}

func newFixture(t *testing.T, withSwitch, withJournal bool) *fixture {
	t.Helper()

	// Short path: Unix socket paths are limited to ~104 bytes on macOS.
	tmpDir, err := os.MkdirTemp("/tmp", "botchat-api-*")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(tmpDir) })
	socketPath := filepath.Join(tmpDir, "d.sock")

	f := &fixture{
		fake:   transporttest.New(),
		net:    netmon.NewSwitch(true, nil, nil),
		events: bus.New(),
	}
	opts := reconcile.DefaultOptions()
	opts.Redial = false
	f.repo = reconcile.New(reconcile.Deps{
		Monitor: f.net,
		Client:  f.fake,
		Bus:     f.events,
		Logger:  zap.NewNop(),
	}, opts)
	f.repo.Start(context.Background())

	deps := api.Deps{
		Profile:    "test",
		Repository: f.repo,
		Machine:    status.NewMachine(f.events),
		Logger:     zap.NewNop(),
	}
	if withSwitch {
		deps.Switch = f.net
	}
	if withJournal {
		db, err := journal.Open(filepath.Join(tmpDir, "journal.db"))
		if err != nil {
			t.Fatal(err)
		}
		if _, err := db.Migrate(); err != nil {
			t.Fatal(err)
		}
		rec := journal.NewRecorder(db, f.events, zap.NewNop())
		rec.Start(context.Background())
		t.Cleanup(func() {
			rec.Stop()
			_ = db.Close()
		})
		deps.Journal = db
	}

	srv := grpc.NewServer()
	api.Register(srv, api.NewChatService(deps))
	lis, err := net.Listen("unix", socketPath)
	if err != nil {
		t.Fatal(err)
	}
	go func() { _ = srv.Serve(lis) }()

	c, err := client.New(socketPath)
	if err != nil {
		t.Fatal(err)
	}
	f.client = c

	t.Cleanup(func() {
		_ = c.Close()
		srv.Stop()
		f.repo.Stop()
		_ = f.fake.Close()
		f.events.Close()
	})
	return f
}

func ctxT(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestGetStatus(t *testing.T) {
	f := newFixture(t, true, false)

	st, err := f.client.Status(ctxT(t))
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if st.Profile != "test" {
		t.Errorf("profile = %q, want test", st.Profile)
	}
	if !st.Online {
		t.Error("expected online = true")
	}
	if st.Connected {
		t.Error("expected connected = false before Connect")
	}
	if st.TransportState != string(status.Disconnected) {
		t.Errorf("transport state = %q, want %q", st.TransportState, status.Disconnected)
	}
	if st.Journal {
		t.Error("expected journal = false")
	}
}

func TestSendAndListRoundTrip(t *testing.T) {
	f := newFixture(t, true, false)
	ctx := ctxT(t)

	msg, err := f.client.Send(ctx, "hello", "2")
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if msg.ID == "" || msg.ChatID != "2" || msg.Content != "hello" {
		t.Errorf("unexpected message %+v", msg)
	}
	if msg.Status != chat.StatusPending || !msg.FromMe {
		t.Errorf("status/from_me = %s/%v, want pending/true", msg.Status, msg.FromMe)
	}

	thread, err := f.client.Messages(ctx, "2")
	if err != nil {
		t.Fatal(err)
	}
	if len(thread) != 1 || thread[0].ID != msg.ID {
		t.Fatalf("thread = %+v, want the sent message", thread)
	}
	if thread[0].Timestamp != msg.Timestamp {
		t.Errorf("timestamp = %d, want %d", thread[0].Timestamp, msg.Timestamp)
	}

	convs, err := f.client.Conversations(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(convs) != 3 {
		t.Fatalf("got %d conversations, want 3", len(convs))
	}
	if convs[0].ID != "2" || convs[0].LastMessage != "hello" || convs[0].Pending != 1 {
		t.Errorf("first conversation = %+v", convs[0])
	}
}

func TestSendValidation(t *testing.T) {
	f := newFixture(t, true, false)

	_, err := f.client.Send(ctxT(t), "   ", "1")
	if got := grpcstatus.Code(err); got != codes.InvalidArgument {
		t.Errorf("code = %v, want InvalidArgument", got)
	}
	_, err = f.client.Send(ctxT(t), "hi", "")
	if got := grpcstatus.Code(err); got != codes.InvalidArgument {
		t.Errorf("code = %v, want InvalidArgument", got)
	}
}

func TestConnectFlushesAndDisconnect(t *testing.T) {
	f := newFixture(t, true, false)
	f.fake.SetEcho(true)
	ctx := ctxT(t)

	msg, err := f.client.Send(ctx, "queued", "1")
	if err != nil {
		t.Fatal(err)
	}
	if err := f.client.Connect(ctx); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	eventually(t, "message confirmed", func() bool {
		msgs, err := f.client.Messages(ctx, "")
		return err == nil && len(msgs) == 1 && msgs[0].ID == msg.ID && msgs[0].Status == chat.StatusSent
	})

	if err := f.client.Disconnect(ctx); err != nil {
		t.Fatalf("Disconnect() error = %v", err)
	}
	eventually(t, "disconnected", func() bool { return !f.repo.Connected() })
	if got := f.fake.Disconnects(); got != 1 {
		t.Errorf("disconnects = %d, want 1", got)
	}
}

func TestWatchStreamsChanges(t *testing.T) {
	f := newFixture(t, true, false)
	ctx := ctxT(t)

	w, err := f.client.Watch(ctx)
	if err != nil {
		t.Fatal(err)
	}
	first, err := w.Recv()
	if err != nil {
		t.Fatalf("Recv() error = %v", err)
	}
	if !first.Online || first.Connected || len(first.Messages) != 0 {
		t.Errorf("initial snapshot = %+v", first)
	}

	if _, err := f.client.Send(ctx, "watch me", "1"); err != nil {
		t.Fatal(err)
	}
	for {
		snap, err := w.Recv()
		if err != nil {
			t.Fatalf("Recv() error = %v", err)
		}
		if len(snap.Messages) == 1 && snap.Messages[0].Content == "watch me" {
			break
		}
	}

	if err := f.client.SetNetwork(ctx, false); err != nil {
		t.Fatal(err)
	}
	for {
		snap, err := w.Recv()
		if err != nil {
			t.Fatalf("Recv() error = %v", err)
		}
		if !snap.Online {
			break
		}
	}
}

func TestSetNetworkWithoutSwitch(t *testing.T) {
	f := newFixture(t, false, false)

	err := f.client.SetNetwork(ctxT(t), false)
	if got := grpcstatus.Code(err); got != codes.FailedPrecondition {
		t.Errorf("code = %v, want FailedPrecondition", got)
	}
	if !f.net.Online() {
		t.Error("network should be untouched")
	}
}

func TestDeliveryEvents(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		f := newFixture(t, true, false)
		_, err := f.client.DeliveryEvents(ctxT(t), "", 10)
		if got := grpcstatus.Code(err); got != codes.Unavailable {
			t.Errorf("code = %v, want Unavailable", got)
		}
	})

	t.Run("recorded", func(t *testing.T) {
		f := newFixture(t, true, true)
		ctx := ctxT(t)

		msg, err := f.client.Send(ctx, "journal me", "3")
		if err != nil {
			t.Fatal(err)
		}
		eventually(t, "queued event recorded", func() bool {
			events, err := f.client.DeliveryEvents(ctx, msg.ID, 10)
			return err == nil && len(events) == 1 && events[0].Kind == "queued" && events[0].ChatID == "3"
		})
	})
}

func TestJournalCountsAndLinks(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		f := newFixture(t, true, false)
		ctx := ctxT(t)
		if _, err := f.client.LinkEvents(ctx, 10); grpcstatus.Code(err) != codes.Unavailable {
			t.Errorf("code = %v, want Unavailable", grpcstatus.Code(err))
		}
		st, err := f.client.Status(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if st.Deliveries != nil {
			t.Errorf("deliveries = %v, want nil", st.Deliveries)
		}
	})

	t.Run("recorded", func(t *testing.T) {
		f := newFixture(t, true, true)
		ctx := ctxT(t)

		if _, err := f.client.Send(ctx, "count me", "1"); err != nil {
			t.Fatal(err)
		}
		f.events.Emit(bus.TransportStateChanged, status.StatusChange{From: status.Disconnected, To: status.Connecting})

		eventually(t, "queued count in status", func() bool {
			st, err := f.client.Status(ctx)
			return err == nil && st.Deliveries["queued"] == 1
		})
		eventually(t, "link event listed", func() bool {
			links, err := f.client.LinkEvents(ctx, 10)
			if err != nil || len(links) != 1 {
				return false
			}
			return links[0].Kind == bus.TransportStateChanged && links[0].Detail == "DISCONNECTED -> CONNECTING"
		})
	})
}
