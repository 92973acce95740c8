package mysql

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/JoeShih716/go-accountant/internal/app/core/domain"
)

func TestSQLTransaction_receipt(t *testing.T) {
	ref := uuid.New()
	row := &sqlTransaction{
		ID:           7,
		RefID:        ref[:],
		AccountID:    1,
		Type:         uint8(domain.TransactionTypeWithdraw),
		Applied:      false,
		BalanceAfter: decimal.NewFromInt(10),
	}

	r, err := row.receipt()
	if err != nil {
		t.Fatal(err)
	}
	if r.TransactionID != ref || r.Sequence != 7 || r.Applied || !r.Balance.Equal(decimal.NewFromInt(10)) {
		t.Errorf("unexpected receipt: %+v", r)
	}
}

func TestSQLTransaction_receiptBadRefID(t *testing.T) {
	row := &sqlTransaction{ID: 3, RefID: []byte{1, 2, 3}}
	if _, err := row.receipt(); err == nil {
		t.Error("expected error for a ref_id that is not 16 bytes")
	}
}
