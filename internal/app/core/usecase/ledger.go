package usecase

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/JoeShih716/go-accountant/internal/app/core/domain"
)

// Ledger 是帳務系統的介面
type Ledger interface {
	// PostTransaction 不分開戶/存款/提款，直接看 tran.Type 決定
	// 同一個 TransactionID 只會處理一次，之後回傳 Replayed 的結果
	PostTransaction(ctx context.Context, tran *domain.Transaction) (*domain.Receipt, error)
	// GetAccountBalance 取得帳戶餘額
	GetAccountBalance(ctx context.Context, accountID int64) (decimal.Decimal, error)
	// LoadAllAccounts 載入所有帳戶
	LoadAllAccounts(ctx context.Context) (map[int64]*domain.Account, error)
}

// EventPublisher 交易完成後發布事件
type EventPublisher interface {
	Publish(ctx context.Context, event domain.BalanceChanged) error
}

// NopPublisher 不做任何事的 EventPublisher
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, domain.BalanceChanged) error { return nil }

var _ EventPublisher = NopPublisher{}
