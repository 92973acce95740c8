package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/JoeShih716/go-accountant/internal/app/core/domain"
	"github.com/JoeShih716/go-accountant/internal/app/core/usecase"
	"github.com/JoeShih716/go-accountant/pkg/wal"
)

// ErrLedgerStopped 核心引擎已停止
var ErrLedgerStopped = errors.New("ledger stopped")

// DefaultQueueSize 輸送帶預設容量
const DefaultQueueSize = 1000

type requestKind uint8

const (
	requestPost requestKind = iota
	requestBalance
	requestSnapshot
)

// request 請求包裝，讓呼叫端可以等待結果
type request struct {
	kind      requestKind
	tran      *domain.Transaction
	accountID int64

	result chan response
}

type response struct {
	receipt  *domain.Receipt
	balance  decimal.Decimal
	accounts map[int64]*domain.Account
	err      error
}

// LMAXLedger 單一 goroutine 處理所有請求的帳本，不需要鎖
// 讀取也走輸送帶，確保看到的是一致的狀態
type LMAXLedger struct {
	book *book
	// 輸送帶 負責接收請求
	requests chan *request
	// Pool 減少 GC 壓力
	requestPool sync.Pool
	// done 在 run loop 結束後關閉
	done    chan struct{}
	started sync.Once
}

// NewLMAXLedger 建立一個新的 LMAXLedger 實例，需呼叫 Start 後才會處理請求
//
// 參數:
//
//	accounts: 初始帳戶資料 Map (可為 nil)
//	wal: Write-Ahead Log 實例 (可為 nil)
//	queueSize: 輸送帶容量，<= 0 時使用 DefaultQueueSize
func NewLMAXLedger(accounts map[int64]*domain.Account, wal *wal.WAL, queueSize int) (*LMAXLedger, error) {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	ledger := &LMAXLedger{
		book:     newBook(accounts, wal),
		requests: make(chan *request, queueSize),
		done:     make(chan struct{}),
		requestPool: sync.Pool{
			New: func() any {
				return &request{result: make(chan response, 1)}
			},
		},
	}

	// 在啟動前先恢復資料
	if err := ledger.book.recoverFromWAL(); err != nil {
		return nil, err
	}
	return ledger, nil
}

// Start 啟動核心引擎 (非同步)，ctx 結束時處理完剩下的請求後停止
func (l *LMAXLedger) Start(ctx context.Context) {
	l.started.Do(func() {
		go l.run(ctx)
	})
}

// Done 引擎停止後關閉
func (l *LMAXLedger) Done() <-chan struct{} {
	return l.done
}

// PostTransaction 接收交易請求
//
// PostTransaction(等待) -> Channel -> Run Loop (核心) -> WAL -> Map Update -> Result Channel -> PostTransaction(收到結果)
func (l *LMAXLedger) PostTransaction(ctx context.Context, tran *domain.Transaction) (*domain.Receipt, error) {
	resp, err := l.submit(ctx, request{kind: requestPost, tran: tran})
	if err != nil {
		return nil, err
	}
	return resp.receipt, resp.err
}

// GetAccountBalance 取得指定帳戶的當前餘額
func (l *LMAXLedger) GetAccountBalance(ctx context.Context, accountID int64) (decimal.Decimal, error) {
	resp, err := l.submit(ctx, request{kind: requestBalance, accountID: accountID})
	if err != nil {
		return decimal.Zero, err
	}
	return resp.balance, resp.err
}

// LoadAllAccounts 回傳當前帳戶資料的副本
func (l *LMAXLedger) LoadAllAccounts(ctx context.Context) (map[int64]*domain.Account, error) {
	resp, err := l.submit(ctx, request{kind: requestSnapshot})
	if err != nil {
		return nil, err
	}
	return resp.accounts, resp.err
}

func (l *LMAXLedger) submit(ctx context.Context, in request) (response, error) {
	req := l.requestPool.Get().(*request)
	req.kind, req.tran, req.accountID = in.kind, in.tran, in.accountID

	select {
	case l.requests <- req:
	case <-l.done:
		l.requestPool.Put(req)
		return response{}, ErrLedgerStopped
	case <-ctx.Done():
		l.requestPool.Put(req)
		return response{}, ctx.Err()
	}

	select {
	case resp := <-req.result:
		req.tran = nil
		l.requestPool.Put(req)
		return resp, nil
	case <-l.done:
		// drain 結束後才送進去的請求不會被處理，req 不放回 Pool
		select {
		case resp := <-req.result:
			return resp, nil
		default:
			return response{}, ErrLedgerStopped
		}
	}
}

func (l *LMAXLedger) run(ctx context.Context) {
	defer close(l.done)
	for {
		select {
		case <-ctx.Done():
			// 收到關閉信號，把剩下的請求處理完
			l.drain()
			return
		case req := <-l.requests:
			l.process(req)
		}
	}
}

func (l *LMAXLedger) drain() {
	for {
		select {
		case req := <-l.requests:
			l.process(req)
		default:
			return
		}
	}
}

// process 處理單筆請求並回傳結果
func (l *LMAXLedger) process(req *request) {
	var resp response
	switch req.kind {
	case requestPost:
		resp.receipt, resp.err = l.book.post(req.tran)
	case requestBalance:
		account, err := l.book.balance(req.accountID)
		if err != nil {
			resp.err = err
		} else {
			resp.balance = account.Balance
		}
	case requestSnapshot:
		resp.accounts = l.book.snapshot()
	}
	req.result <- resp
}

var _ usecase.Ledger = (*LMAXLedger)(nil)
