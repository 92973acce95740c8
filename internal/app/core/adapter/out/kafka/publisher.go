package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/JoeShih716/go-accountant/internal/app/core/domain"
	"github.com/JoeShih716/go-accountant/internal/app/core/usecase"
)

// DefaultTopic BalanceChanged 事件的預設 topic
const DefaultTopic = "accountant.balance_changed"

// MessageWriter 是 kafka.Writer 用到的部分，方便測試替換
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher 將 BalanceChanged 事件以 JSON 寫入 Kafka
// 以 account_id 為 key，同一帳戶的事件會進同一個 partition，保持順序
type Publisher struct {
	writer MessageWriter
}

// NewPublisher 建立連到 brokers 的 Publisher，topic 為空時使用 DefaultTopic
func NewPublisher(brokers []string, topic string) *Publisher {
	if topic == "" {
		topic = DefaultTopic
	}
	return NewPublisherWithWriter(&kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: 10 * time.Millisecond,
	})
}

// NewPublisherWithWriter 使用自訂的 writer
func NewPublisherWithWriter(w MessageWriter) *Publisher {
	return &Publisher{writer: w}
}

// Publish implements usecase.EventPublisher.
func (p *Publisher) Publish(ctx context.Context, event domain.BalanceChanged) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(strconv.FormatInt(event.AccountID, 10)),
		Value: data,
		Time:  event.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte("balance_changed")},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write kafka message: %w", err)
	}
	return nil
}

// Close 關閉底層 writer，送出尚未送出的訊息
func (p *Publisher) Close() error {
	return p.writer.Close()
}

var _ usecase.EventPublisher = (*Publisher)(nil)
