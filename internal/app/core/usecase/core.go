package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/JoeShih716/go-accountant/internal/app/core/domain"
)

// CoreUseCase 是核心業務邏輯層
type CoreUseCase struct {
	ledger    Ledger
	publisher EventPublisher
	logger    *zap.Logger
	// strictWithdraw 餘額不足時回傳 ErrInsufficientBalance，而不是靜默忽略
	strictWithdraw bool
	now            func() time.Time
}

// Option 設定 CoreUseCase
type Option func(*CoreUseCase)

// WithPublisher 設定事件發布者 (預設 NopPublisher)
func WithPublisher(p EventPublisher) Option {
	return func(c *CoreUseCase) {
		c.publisher = p
	}
}

// WithLogger 設定 logger (預設 zap.NewNop)
func WithLogger(logger *zap.Logger) Option {
	return func(c *CoreUseCase) {
		c.logger = logger
	}
}

// WithStrictWithdraw 提款餘額不足時回傳 domain.ErrInsufficientBalance
func WithStrictWithdraw(strict bool) Option {
	return func(c *CoreUseCase) {
		c.strictWithdraw = strict
	}
}

func NewCoreUseCase(ledger Ledger, opts ...Option) *CoreUseCase {
	c := &CoreUseCase{
		ledger:    ledger,
		publisher: NopPublisher{},
		logger:    zap.NewNop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// OpenAccount 開戶，refID 為 uuid.Nil 時自動產生
func (c *CoreUseCase) OpenAccount(ctx context.Context, refID uuid.UUID, accountID int64, initialBalance decimal.Decimal) (*domain.Receipt, error) {
	return c.post(ctx, refID, domain.TransactionTypeOpen, accountID, initialBalance)
}

// Deposit 存款
func (c *CoreUseCase) Deposit(ctx context.Context, refID uuid.UUID, accountID int64, amount decimal.Decimal) (*domain.Receipt, error) {
	return c.post(ctx, refID, domain.TransactionTypeDeposit, accountID, amount)
}

// Withdraw 提款
// 餘額不足時 Receipt.Applied 為 false；strict 模式下會同時回傳 ErrInsufficientBalance
func (c *CoreUseCase) Withdraw(ctx context.Context, refID uuid.UUID, accountID int64, amount decimal.Decimal) (*domain.Receipt, error) {
	receipt, err := c.post(ctx, refID, domain.TransactionTypeWithdraw, accountID, amount)
	if err != nil {
		return nil, err
	}
	if c.strictWithdraw && !receipt.Applied {
		return receipt, domain.ErrInsufficientBalance
	}
	return receipt, nil
}

// PostTransaction 直接處理組好的交易
func (c *CoreUseCase) PostTransaction(ctx context.Context, tran *domain.Transaction) (*domain.Receipt, error) {
	if !tran.Type.Valid() {
		return nil, domain.ErrUnknownTransactionType
	}
	if err := domain.ValidateAmount(tran.Amount); err != nil {
		return nil, err
	}
	if tran.TransactionID == uuid.Nil {
		tran.TransactionID = uuid.New()
	}
	if tran.CreatedAt == 0 {
		tran.CreatedAt = c.now().UnixNano()
	}

	receipt, err := c.ledger.PostTransaction(ctx, tran)
	recordTransaction(tran.Type, outcomeOf(receipt, err))
	if err != nil {
		c.logger.Warn("post transaction failed",
			zap.Stringer("ref_id", tran.TransactionID),
			zap.Stringer("type", tran.Type),
			zap.Int64("account_id", tran.AccountID),
			zap.Error(err),
		)
		return nil, err
	}

	c.logger.Debug("transaction posted",
		zap.Stringer("ref_id", receipt.TransactionID),
		zap.Uint64("sequence", receipt.Sequence),
		zap.Stringer("type", receipt.Type),
		zap.Int64("account_id", receipt.AccountID),
		zap.Bool("applied", receipt.Applied),
		zap.Bool("replayed", receipt.Replayed),
	)

	if !receipt.Replayed {
		c.publish(ctx, domain.NewBalanceChanged(tran, receipt))
	}
	return receipt, nil
}

// GetAccountBalance 取得帳戶餘額
func (c *CoreUseCase) GetAccountBalance(ctx context.Context, accountID int64) (decimal.Decimal, error) {
	return c.ledger.GetAccountBalance(ctx, accountID)
}

func (c *CoreUseCase) post(ctx context.Context, refID uuid.UUID, t domain.TransactionType, accountID int64, amount decimal.Decimal) (*domain.Receipt, error) {
	return c.PostTransaction(ctx, &domain.Transaction{
		TransactionID: refID,
		AccountID:     accountID,
		Amount:        amount,
		Type:          t,
	})
}

// publish 盡力而為，失敗只記 log 不影響交易結果
func (c *CoreUseCase) publish(ctx context.Context, event domain.BalanceChanged) {
	if err := c.publisher.Publish(ctx, event); err != nil {
		publishFailuresTotal.Inc()
		c.logger.Error("publish balance changed",
			zap.Stringer("ref_id", event.TransactionID),
			zap.Error(err),
		)
	}
}
