package memory

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/JoeShih716/go-accountant/internal/app/core/domain"
	"github.com/JoeShih716/go-accountant/pkg/wal"
)

// book 是記憶體帳本的狀態機，本身不做同步
// MutexLedger 用鎖保護，LMAXLedger 只在單一 goroutine 中操作
type book struct {
	accounts map[int64]*domain.Account
	// 已處理過的交易與當時的結果
	processed map[uuid.UUID]*domain.Receipt
	// 最後分配的順序號
	sequence uint64
	// Write-Ahead Logging (nil 表示不落地)
	wal *wal.WAL
}

func newBook(accounts map[int64]*domain.Account, w *wal.WAL) *book {
	if accounts == nil {
		accounts = make(map[int64]*domain.Account)
	}
	return &book{
		accounts:  accounts,
		processed: make(map[uuid.UUID]*domain.Receipt),
		wal:       w,
	}
}

// recoverFromWAL 從 WAL 檔案恢復帳本狀態 (不寫 WAL)
// 只在建構時呼叫，無需同步
func (b *book) recoverFromWAL() error {
	if b.wal == nil {
		return nil
	}
	return b.wal.ReadAll(func(jsonRaw []byte) error {
		var tran domain.Transaction
		if err := json.Unmarshal(jsonRaw, &tran); err != nil {
			return fmt.Errorf("decode wal record: %w", err)
		}
		// 同一筆交易可能被寫入兩次 (flush 成功但 sync 失敗後重試)
		if _, ok := b.processed[tran.TransactionID]; ok {
			return nil
		}
		if err := b.validate(&tran); err != nil {
			return fmt.Errorf("replay transaction %s (seq %d): %w", tran.TransactionID, tran.Sequence, err)
		}
		if tran.Sequence > b.sequence {
			b.sequence = tran.Sequence
		}
		b.apply(&tran)
		return nil
	})
}

// post 處理單筆交易
// 1. 冪等檢查 2. 驗證 3. 分配順序號 4. 寫入 WAL 5. 更新帳戶
func (b *book) post(tran *domain.Transaction) (*domain.Receipt, error) {
	if receipt, ok := b.processed[tran.TransactionID]; ok {
		return receipt.AsReplay(), nil
	}
	if err := b.validate(tran); err != nil {
		return nil, err
	}

	tran.Sequence = b.sequence + 1

	// WAL (Critical Path)
	if b.wal != nil {
		if err := b.wal.Write(tran); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrWALWriteFailed, err)
		}
		if err := b.wal.Flush(); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrWALWriteFailed, err)
		}
	}

	b.sequence = tran.Sequence
	receipt := b.apply(tran)
	out := *receipt
	return &out, nil
}

// validate 檢查交易能否套用，不修改狀態
// 餘額不足不算錯誤 (提款會被靜默拒絕)
func (b *book) validate(tran *domain.Transaction) error {
	if err := domain.ValidateAmount(tran.Amount); err != nil {
		return err
	}
	_, exists := b.accounts[tran.AccountID]
	switch tran.Type {
	case domain.TransactionTypeOpen:
		if exists {
			return domain.ErrAccountAlreadyExists
		}
	case domain.TransactionTypeDeposit, domain.TransactionTypeWithdraw:
		if !exists {
			return domain.ErrAccountNotFound
		}
	default:
		return domain.ErrUnknownTransactionType
	}
	return nil
}

// apply 套用已驗證過的交易並記錄結果
func (b *book) apply(tran *domain.Transaction) *domain.Receipt {
	var receipt *domain.Receipt
	if tran.Type == domain.TransactionTypeOpen {
		var account *domain.Account
		account, receipt = tran.Open()
		b.accounts[account.ID] = account
	} else {
		receipt = tran.Apply(b.accounts[tran.AccountID])
	}
	b.processed[tran.TransactionID] = receipt
	return receipt
}

func (b *book) balance(accountID int64) (*domain.Account, error) {
	account, ok := b.accounts[accountID]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return account, nil
}

// snapshot 複製一份帳戶資料，避免呼叫端直接改到帳本
func (b *book) snapshot() map[int64]*domain.Account {
	out := make(map[int64]*domain.Account, len(b.accounts))
	for id, account := range b.accounts {
		out[id] = domain.NewAccount(account.ID, account.Balance)
	}
	return out
}
