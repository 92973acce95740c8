package mysql

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/JoeShih716/go-accountant/internal/app/core/domain"
	"github.com/JoeShih716/go-accountant/internal/app/core/usecase"
	"github.com/JoeShih716/go-accountant/pkg/mysql"
)

// sqlAccount 對應資料庫的 accounts 表
type sqlAccount struct {
	ID        int64           `gorm:"primaryKey;autoIncrement:false"`
	Balance   decimal.Decimal `gorm:"type:decimal(24,4);not null"`
	UpdatedAt int64           `gorm:"autoUpdateTime:milli"` // 自動更新時間
}

func (*sqlAccount) TableName() string {
	return "accounts"
}

// sqlTransaction 對應資料庫的 transactions 表
// 自增 ID 即為交易的 Sequence
type sqlTransaction struct {
	ID           int64           `gorm:"primaryKey;autoIncrement"`
	RefID        []byte          `gorm:"column:ref_id;type:binary(16);uniqueIndex"` // 對應 domain.TransactionID
	AccountID    int64           `gorm:"index"`
	Amount       decimal.Decimal `gorm:"type:decimal(24,4);not null"`
	Type         uint8
	Applied      bool
	BalanceAfter decimal.Decimal `gorm:"type:decimal(24,4);not null"`
	CreatedAt    int64           `gorm:"autoCreateTime:false"`
}

func (*sqlTransaction) TableName() string {
	return "transactions"
}

func (t *sqlTransaction) receipt() (*domain.Receipt, error) {
	id, err := uuid.FromBytes(t.RefID)
	if err != nil {
		return nil, fmt.Errorf("decode ref_id of transaction %d: %w", t.ID, err)
	}
	return &domain.Receipt{
		TransactionID: id,
		Sequence:      uint64(t.ID),
		AccountID:     t.AccountID,
		Type:          domain.TransactionType(t.Type),
		Applied:       t.Applied,
		Balance:       t.BalanceAfter,
	}, nil
}

// MySQLLedger Level 0: 每筆交易都是一個 DB Transaction，用悲觀鎖保護帳戶列
type MySQLLedger struct {
	client *mysql.Client
}

func NewMySQLLedger(client *mysql.Client) *MySQLLedger {
	return &MySQLLedger{
		client: client,
	}
}

// Migrate 建立或更新資料表
func (ledger *MySQLLedger) Migrate(ctx context.Context) error {
	return ledger.client.DB().WithContext(ctx).AutoMigrate(&sqlAccount{}, &sqlTransaction{})
}

func (ledger *MySQLLedger) PostTransaction(ctx context.Context, tran *domain.Transaction) (*domain.Receipt, error) {
	if !tran.Type.Valid() {
		return nil, domain.ErrUnknownTransactionType
	}
	if err := domain.ValidateAmount(tran.Amount); err != nil {
		return nil, err
	}

	var receipt *domain.Receipt
	err := ledger.client.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 先檢查是否有這筆交易記錄
		var existing sqlTransaction
		err := tx.Where("ref_id = ?", tran.TransactionID[:]).Take(&existing).Error
		if err == nil {
			stored, err := existing.receipt()
			if err != nil {
				return err
			}
			receipt = stored.AsReplay()
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: %v", domain.ErrSelectTransactionFailed, err)
		}

		// 鎖定帳戶列 (悲觀鎖)
		var row sqlAccount
		err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", tran.AccountID).
			Take(&row).Error
		found := err == nil
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("lock account %d: %w", tran.AccountID, err)
		}

		switch tran.Type {
		case domain.TransactionTypeOpen:
			if found {
				return domain.ErrAccountAlreadyExists
			}
			account, r := tran.Open()
			if err := tx.Create(&sqlAccount{ID: account.ID, Balance: account.Balance}).Error; err != nil {
				return fmt.Errorf("create account %d: %w", account.ID, err)
			}
			receipt = r
		default:
			if !found {
				return domain.ErrAccountNotFound
			}
			account := domain.NewAccount(row.ID, row.Balance)
			receipt = tran.Apply(account)
			if receipt.Applied {
				if err := tx.Model(&sqlAccount{}).
					Where("id = ?", account.ID).
					Update("balance", account.Balance).Error; err != nil {
					return fmt.Errorf("update balance %d: %w", account.ID, err)
				}
			}
		}

		// 建立交易紀錄 (被拒絕的提款也會記錄)
		record := sqlTransaction{
			RefID:        tran.TransactionID[:],
			AccountID:    tran.AccountID,
			Amount:       tran.Amount,
			Type:         uint8(tran.Type),
			Applied:      receipt.Applied,
			BalanceAfter: receipt.Balance,
			CreatedAt:    tran.CreatedAt,
		}
		if err := tx.Create(&record).Error; err != nil {
			return fmt.Errorf("insert transaction: %w", err)
		}
		tran.Sequence = uint64(record.ID)
		receipt.Sequence = tran.Sequence
		return nil
	})
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

// GetAccountBalance 取得帳戶餘額
func (ledger *MySQLLedger) GetAccountBalance(ctx context.Context, accountID int64) (decimal.Decimal, error) {
	var row sqlAccount
	err := ledger.client.DB().WithContext(ctx).Where("id = ?", accountID).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return decimal.Zero, domain.ErrAccountNotFound
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("get account %d: %w", accountID, err)
	}
	return row.Balance, nil
}

// LoadAllAccounts 載入所有帳戶 (啟動記憶體帳本時使用)
func (ledger *MySQLLedger) LoadAllAccounts(ctx context.Context) (map[int64]*domain.Account, error) {
	var rows []sqlAccount
	if err := ledger.client.DB().WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load accounts: %w", err)
	}
	accounts := make(map[int64]*domain.Account, len(rows))
	for _, row := range rows {
		accounts[row.ID] = domain.NewAccount(row.ID, row.Balance)
	}
	return accounts, nil
}

var _ usecase.Ledger = (*MySQLLedger)(nil)
