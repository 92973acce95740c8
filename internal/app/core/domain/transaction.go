package domain

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType 交易類型
type TransactionType uint8

const (
	// 開戶
	TransactionTypeOpen TransactionType = 1
	// 存款
	TransactionTypeDeposit TransactionType = 2
	// 提款
	TransactionTypeWithdraw TransactionType = 3
)

func (t TransactionType) String() string {
	switch t {
	case TransactionTypeOpen:
		return "open"
	case TransactionTypeDeposit:
		return "deposit"
	case TransactionTypeWithdraw:
		return "withdraw"
	default:
		return "unknown"
	}
}

// Valid 是否為已知的交易類型
func (t TransactionType) Valid() bool {
	return t >= TransactionTypeOpen && t <= TransactionTypeWithdraw
}

// Transaction 交易
type Transaction struct {
	// Sequence: 全局唯一的順序號 (由核心引擎分配，1, 2, 3...)
	// 用於 WAL 重放確保順序一致
	Sequence uint64
	// AccountID: 帳戶 ID
	AccountID int64
	// Amount: 金額 (開戶時為初始餘額)
	Amount decimal.Decimal
	// CreatedAt: 交易時間 (UnixNano)
	CreatedAt int64
	// TransactionID: 外部追蹤號 (UUID)，用於冪等
	TransactionID uuid.UUID
	Type          TransactionType
}

// Receipt 交易處理結果
type Receipt struct {
	TransactionID uuid.UUID
	Sequence      uint64
	AccountID     int64
	Type          TransactionType
	// Applied: 提款餘額不足時為 false，其餘為 true
	Applied bool
	// Balance: 交易後餘額
	Balance decimal.Decimal
	// Replayed: 這筆 TransactionID 之前已處理過，回傳的是當時的結果
	Replayed bool
}

// AsReplay 回傳標記為重複請求的副本
func (r Receipt) AsReplay() *Receipt {
	r.Replayed = true
	return &r
}

// Apply 將交易套用到帳戶上，回傳結果
// 開戶交易不經過這裡，由 Ledger 建立帳戶
func (t *Transaction) Apply(account *Account) *Receipt {
	applied := true
	switch t.Type {
	case TransactionTypeDeposit:
		account.Deposit(t.Amount)
	case TransactionTypeWithdraw:
		applied = account.Withdraw(t.Amount)
	}
	return t.receipt(applied, account.Balance)
}

// Open 依開戶交易建立帳戶
func (t *Transaction) Open() (*Account, *Receipt) {
	account := NewAccount(t.AccountID, t.Amount)
	return account, t.receipt(true, account.Balance)
}

// NewReceipt 從已存在的交易資料組出結果 (SQL adapter 重放時使用)
func (t *Transaction) NewReceipt(applied bool, balance decimal.Decimal) *Receipt {
	return t.receipt(applied, balance)
}

func (t *Transaction) receipt(applied bool, balance decimal.Decimal) *Receipt {
	return &Receipt{
		TransactionID: t.TransactionID,
		Sequence:      t.Sequence,
		AccountID:     t.AccountID,
		Type:          t.Type,
		Applied:       applied,
		Balance:       balance,
	}
}
