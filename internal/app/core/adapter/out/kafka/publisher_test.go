package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"

	"github.com/JoeShih716/go-accountant/internal/app/core/domain"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestPublisher_Publish(t *testing.T) {
	w := &fakeWriter{}
	p := NewPublisherWithWriter(w)

	ev := domain.BalanceChanged{
		TransactionID: uuid.New(),
		AccountID:     42,
		Type:          "deposit",
		Amount:        decimal.NewFromInt(10),
		Applied:       true,
		Balance:       decimal.NewFromInt(10),
		OccurredAt:    time.Now().UTC(),
	}
	if err := p.Publish(context.Background(), ev); err != nil {
		t.Fatal(err)
	}

	if len(w.msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(w.msgs))
	}
	msg := w.msgs[0]
	if string(msg.Key) != "42" {
		t.Errorf("key: got %q, want %q", msg.Key, "42")
	}

	var got map[string]any
	if err := json.Unmarshal(msg.Value, &got); err != nil {
		t.Fatal(err)
	}
	if got["amount"] != "10" || got["type"] != "deposit" || got["applied"] != true {
		t.Errorf("payload: %v", got)
	}
}

func TestPublisher_PublishError(t *testing.T) {
	boom := errors.New("no brokers")
	p := NewPublisherWithWriter(&fakeWriter{err: boom})
	if err := p.Publish(context.Background(), domain.BalanceChanged{}); !errors.Is(err, boom) {
		t.Errorf("expected wrapped writer error, got %v", err)
	}
}

func TestPublisher_Close(t *testing.T) {
	w := &fakeWriter{}
	if err := NewPublisherWithWriter(w).Close(); err != nil {
		t.Fatal(err)
	}
	if !w.closed {
		t.Error("expected writer to be closed")
	}
}

func TestNewPublisher_defaultTopic(t *testing.T) {
	p := NewPublisher([]string{"localhost:9092"}, "")
	kw, ok := p.writer.(*kafka.Writer)
	if !ok {
		t.Fatalf("unexpected writer type %T", p.writer)
	}
	if kw.Topic != DefaultTopic {
		t.Errorf("topic: got %q", kw.Topic)
	}
}
