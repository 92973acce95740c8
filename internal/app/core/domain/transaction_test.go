package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func TestTransaction_Apply(t *testing.T) {
	acc := NewAccount(7, decimal.NewFromInt(30))

	tran := &Transaction{
		Sequence:      4,
		AccountID:     7,
		Amount:        decimal.NewFromInt(50),
		TransactionID: uuid.New(),
		Type:          TransactionTypeWithdraw,
	}
	receipt := tran.Apply(acc)
	if receipt.Applied {
		t.Error("expected rejected withdraw")
	}
	if !receipt.Balance.Equal(decimal.NewFromInt(30)) {
		t.Errorf("balance: got %s, want 30", receipt.Balance)
	}
	if receipt.Sequence != 4 || receipt.TransactionID != tran.TransactionID {
		t.Errorf("receipt does not carry transaction identity: %+v", receipt)
	}

	tran.Type = TransactionTypeDeposit
	receipt = tran.Apply(acc)
	if !receipt.Applied || !receipt.Balance.Equal(decimal.NewFromInt(80)) {
		t.Errorf("deposit receipt: %+v", receipt)
	}
}

func TestTransaction_Open(t *testing.T) {
	tran := &Transaction{AccountID: 9, Amount: decimal.NewFromInt(12), Type: TransactionTypeOpen}
	acc, receipt := tran.Open()
	if acc.ID != 9 || !acc.Balance.Equal(decimal.NewFromInt(12)) {
		t.Errorf("account: %+v", acc)
	}
	if !receipt.Applied {
		t.Error("open receipt should be applied")
	}
}

func TestReceipt_AsReplay(t *testing.T) {
	r := Receipt{AccountID: 1}
	replay := r.AsReplay()
	if !replay.Replayed {
		t.Error("expected Replayed=true")
	}
	if r.Replayed {
		t.Error("AsReplay must not modify the original")
	}
}

func TestNewBalanceChanged(t *testing.T) {
	now := time.Now()
	tran := &Transaction{
		AccountID:     3,
		Amount:        decimal.NewFromInt(5),
		CreatedAt:     now.UnixNano(),
		TransactionID: uuid.New(),
		Type:          TransactionTypeDeposit,
	}
	ev := NewBalanceChanged(tran, tran.NewReceipt(true, decimal.NewFromInt(5)))
	if ev.Type != "deposit" {
		t.Errorf("type: got %q", ev.Type)
	}
	if !ev.OccurredAt.Equal(now) {
		t.Errorf("occurred_at: got %v, want %v", ev.OccurredAt, now)
	}
}

func TestTransactionType_String(t *testing.T) {
	if TransactionType(99).String() != "unknown" || TransactionType(99).Valid() {
		t.Error("type 99 should be unknown and invalid")
	}
	if TransactionTypeWithdraw.String() != "withdraw" {
		t.Error("withdraw string")
	}
}
