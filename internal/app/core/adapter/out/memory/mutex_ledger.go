package memory

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/JoeShih716/go-accountant/internal/app/core/domain"
	"github.com/JoeShih716/go-accountant/internal/app/core/usecase"
	"github.com/JoeShih716/go-accountant/pkg/wal"
)

// MutexLedger 是一個使用 Mutex 實現的帳本
//
// 結構:
//
//	book: 帳戶、已處理交易、WAL
//	mu: RWMutex 保護 book
type MutexLedger struct {
	mu   sync.RWMutex
	book *book
}

// NewMutexLedger 建立一個新的 MutexLedger 實例
//
// 參數:
//
//	accounts: 初始帳戶資料 Map (可為 nil)，之後由帳本持有
//	wal: Write-Ahead Log 實例 (可為 nil，表示不落地)
//
// 回傳:
//
//	*MutexLedger: MutexLedger 實例
//	error: 初始化錯誤 (如 WAL 恢復失敗)
func NewMutexLedger(accounts map[int64]*domain.Account, wal *wal.WAL) (*MutexLedger, error) {
	ledger := &MutexLedger{
		book: newBook(accounts, wal),
	}
	if err := ledger.book.recoverFromWAL(); err != nil {
		return nil, err
	}
	return ledger, nil
}

// GetAccountBalance 取得指定帳戶的當前餘額
func (m *MutexLedger) GetAccountBalance(ctx context.Context, accountID int64) (decimal.Decimal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	account, err := m.book.balance(accountID)
	if err != nil {
		return decimal.Zero, err
	}
	return account.Balance, nil
}

// LoadAllAccounts 回傳當前帳戶資料的副本
func (m *MutexLedger) LoadAllAccounts(ctx context.Context) (map[int64]*domain.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.book.snapshot(), nil
}

// PostTransaction 處理交易請求 (Level 1: Mutex Lock)
//
// 參數:
//
//	ctx: 上下文
//	tran: 交易請求物件，Sequence 由帳本填入
//
// 回傳:
//
//	*domain.Receipt: 交易結果
//	error: 處理錯誤
func (m *MutexLedger) PostTransaction(ctx context.Context, tran *domain.Transaction) (*domain.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.book.post(tran)
}

var _ usecase.Ledger = (*MutexLedger)(nil)
