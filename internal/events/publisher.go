// Package events publishes a best-effort audit event for every completed
// Transaction, modeled on honeynil-MerchServiceTochka-main's Kafka
// producer: fire-and-forget with a short retry loop, run after the ledger
// write is already durable so a publish failure can never roll back a
// commit.
package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/coreledger/wallet-ledger/internal/model"
)

// Publisher emits transaction.completed events.
type Publisher struct {
	writer *kafka.Writer
	topic  string
	logger *slog.Logger
}

// NewPublisher builds a Publisher over the given brokers and topic. If
// brokers is empty the returned Publisher's Publish calls are no-ops, the
// way the service runs with KAFKA_BROKERS unset.
func NewPublisher(brokers []string, topic string, logger *slog.Logger) *Publisher {
	if len(brokers) == 0 {
		return &Publisher{logger: logger}
	}
	return &Publisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Balancer:     &kafka.LeastBytes{},
			Async:        false,
			RequiredAcks: kafka.RequireOne,
		},
		topic:  topic,
		logger: logger,
	}
}

type completedEvent struct {
	TransactionID  string    `json:"transactionId"`
	Kind           string    `json:"kind"`
	UserWalletID   string    `json:"userWalletId"`
	SystemWalletID string    `json:"systemWalletId"`
	Amount         string    `json:"amount"`
	CompletedAt    time.Time `json:"completedAt"`
}

// PublishCompleted emits one event for view. It never blocks the caller
// longer than a few retries and never returns an error the flow engine
// would act on — publish failures are logged and dropped.
func (p *Publisher) PublishCompleted(ctx context.Context, view model.TransactionView) {
	if p.writer == nil {
		return
	}
	evt := completedEvent{
		TransactionID:  view.Transaction.ID.String(),
		Kind:           string(view.Transaction.Kind),
		UserWalletID:   view.Transaction.UserWalletID.String(),
		SystemWalletID: view.Transaction.SystemWalletID.String(),
		Amount:         view.Transaction.Amount.String(),
		CompletedAt:    view.Transaction.UpdatedAt,
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		p.logger.Error("failed to marshal ledger event", "transaction_id", evt.TransactionID, "error", err)
		return
	}

	go func() {
		const retries = 3
		for i := 0; i < retries; i++ {
			err := p.writer.WriteMessages(context.Background(), kafka.Message{
				Topic: p.topic,
				Key:   []byte(evt.TransactionID),
				Value: payload,
			})
			if err == nil {
				return
			}
			time.Sleep(time.Duration(i+1) * time.Second)
		}
		p.logger.Error("failed to publish ledger event after retries", "transaction_id", evt.TransactionID)
	}()
}

// Close closes the underlying writer, if any.
func (p *Publisher) Close() error {
	if p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
