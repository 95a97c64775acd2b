package notify

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/sokohub/soko/internal/domain"
)

type recordingSink struct {
	mu   sync.Mutex
	got  []domain.Notification
	fail bool
}

func (s *recordingSink) Name() string { return "recording" }

func (s *recordingSink) Deliver(_ context.Context, n domain.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("sink down")
	}
	s.got = append(s.got, n)
	return nil
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.got)
}

func TestDispatcher_DeliversToEverySink(t *testing.T) {
	a, b := &recordingSink{}, &recordingSink{}
	d := NewDispatcher(DefaultConfig(), nil, a, b)

	user := uuid.New()
	d.Notify(context.Background(), domain.Notification{UserID: user, Title: "Order shipped"})
	d.Notify(context.Background(), domain.Notification{UserID: user, Title: "Order completed"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := d.Run(ctx); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if a.count() != 2 || b.count() != 2 {
		t.Errorf("deliveries = %d, %d; want 2, 2", a.count(), b.count())
	}
	if a.got[0].ID == uuid.Nil || a.got[0].CreatedAt.IsZero() {
		t.Errorf("notification not stamped: %+v", a.got[0])
	}
}

func TestDispatcher_NotifyNeverBlocks(t *testing.T) {
	d := NewDispatcher(Config{Buffer: 2}, nil)
	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			d.Notify(context.Background(), domain.Notification{UserID: uuid.New()})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Notify blocked on a full queue")
	}
	if d.Pending() != 2 {
		t.Errorf("Pending() = %d, want 2", d.Pending())
	}
}

func TestDispatcher_FailingSinkDoesNotStopOthers(t *testing.T) {
	bad, good := &recordingSink{fail: true}, &recordingSink{}
	d := NewDispatcher(DefaultConfig(), nil, bad, good)
	d.Notify(context.Background(), domain.Notification{UserID: uuid.New(), Title: "x"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d.Run(ctx)
	if good.count() != 1 {
		t.Errorf("good sink deliveries = %d, want 1", good.count())
	}
}

func TestDispatcher_RunDeliversWhileRunning(t *testing.T) {
	s := &recordingSink{}
	d := NewDispatcher(DefaultConfig(), nil, s)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- d.Run(ctx) }()

	d.Notify(context.Background(), domain.Notification{UserID: uuid.New()})
	deadline := time.Now().Add(2 * time.Second)
	for s.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done
	if s.count() != 1 {
		t.Errorf("deliveries = %d, want 1", s.count())
	}
}

type fakeWriter struct {
	msgs []kafka.Message
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func TestKafkaSink_Deliver(t *testing.T) {
	w := &fakeWriter{}
	k := &KafkaSink{writer: w}
	n := domain.Notification{ID: uuid.New(), UserID: uuid.New(), Title: "Refund issued", Message: "KES 10.00", CreatedAt: time.Now().UTC()}

	if err := k.Deliver(context.Background(), n); err != nil {
		t.Fatalf("Deliver() error: %v", err)
	}
	if len(w.msgs) != 1 {
		t.Fatalf("messages = %d, want 1", len(w.msgs))
	}
	if string(w.msgs[0].Key) != n.UserID.String() {
		t.Errorf("Key = %q, want user id", w.msgs[0].Key)
	}
	var got domain.Notification
	if err := json.Unmarshal(w.msgs[0].Value, &got); err != nil {
		t.Fatalf("Value is not JSON: %v", err)
	}
	if got.Title != n.Title || got.ID != n.ID {
		t.Errorf("decoded = %+v, want %+v", got, n)
	}
}

func TestNewKafkaSink_Config(t *testing.T) {
	k := NewKafkaSink([]string{"localhost:9092"}, "soko.notifications")
	w, ok := k.writer.(*kafka.Writer)
	if !ok {
		t.Fatalf("writer is %T, want *kafka.Writer", k.writer)
	}
	if w.Topic != "soko.notifications" || w.RequiredAcks != kafka.RequireAll {
		t.Errorf("writer = topic %q acks %v", w.Topic, w.RequiredAcks)
	}
	k.Close()
}
