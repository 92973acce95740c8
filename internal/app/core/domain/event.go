package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BalanceChanged 交易處理完成後對外發布的事件
type BalanceChanged struct {
	TransactionID uuid.UUID       `json:"transaction_id"`
	Sequence      uint64          `json:"sequence"`
	AccountID     int64           `json:"account_id"`
	Type          string          `json:"type"`
	Amount        decimal.Decimal `json:"amount"`
	Applied       bool            `json:"applied"`
	Balance       decimal.Decimal `json:"balance"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

// NewBalanceChanged 由交易與結果組出事件
func NewBalanceChanged(tran *Transaction, receipt *Receipt) BalanceChanged {
	return BalanceChanged{
		TransactionID: receipt.TransactionID,
		Sequence:      receipt.Sequence,
		AccountID:     receipt.AccountID,
		Type:          receipt.Type.String(),
		Amount:        tran.Amount,
		Applied:       receipt.Applied,
		Balance:       receipt.Balance,
		OccurredAt:    time.Unix(0, tran.CreatedAt).UTC(),
	}
}
