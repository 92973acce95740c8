package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/JoeShih716/go-accountant/internal/app/core/domain"
	"github.com/JoeShih716/go-accountant/internal/app/core/usecase"
)

const schema = `
CREATE TABLE IF NOT EXISTS accounts (
	id         BIGINT PRIMARY KEY,
	balance    NUMERIC(24,4) NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS transactions (
	seq           BIGSERIAL PRIMARY KEY,
	ref_id        UUID NOT NULL UNIQUE,
	account_id    BIGINT NOT NULL,
	amount        NUMERIC(24,4) NOT NULL,
	type          SMALLINT NOT NULL,
	applied       BOOLEAN NOT NULL,
	balance_after NUMERIC(24,4) NOT NULL,
	created_at    BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS transactions_account_id_idx ON transactions (account_id);`

// PostgresLedger 以 PostgreSQL 保存帳戶與交易紀錄，實作 usecase.Ledger
// 每筆交易在一個 DB transaction 內完成，帳戶列用 SELECT ... FOR UPDATE 鎖定
type PostgresLedger struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgresLedger creates a PostgresLedger backed by the given connection pool.
func NewPostgresLedger(pool *pgxpool.Pool, logger *zap.Logger) *PostgresLedger {
	return &PostgresLedger{pool: pool, logger: logger}
}

// Migrate 建立資料表 (已存在則略過)
func (l *PostgresLedger) Migrate(ctx context.Context) error {
	if _, err := l.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// PostTransaction implements usecase.Ledger.
func (l *PostgresLedger) PostTransaction(ctx context.Context, tran *domain.Transaction) (*domain.Receipt, error) {
	if !tran.Type.Valid() {
		return nil, domain.ErrUnknownTransactionType
	}
	if err := domain.ValidateAmount(tran.Amount); err != nil {
		return nil, err
	}

	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	// 冪等：同一個 ref_id 直接回傳當時的結果
	existing, err := l.findTransaction(ctx, tx, tran.TransactionID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing.AsReplay(), nil
	}

	var balanceText string
	err = tx.QueryRow(ctx,
		"SELECT balance::text FROM accounts WHERE id = $1 FOR UPDATE", tran.AccountID,
	).Scan(&balanceText)
	found := err == nil
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("lock account %d: %w", tran.AccountID, err)
	}

	var receipt *domain.Receipt
	switch tran.Type {
	case domain.TransactionTypeOpen:
		if found {
			return nil, domain.ErrAccountAlreadyExists
		}
		account, r := tran.Open()
		if _, err := tx.Exec(ctx,
			"INSERT INTO accounts (id, balance) VALUES ($1, $2::numeric)",
			account.ID, account.Balance.String(),
		); err != nil {
			return nil, fmt.Errorf("insert account %d: %w", account.ID, err)
		}
		receipt = r
	default:
		if !found {
			return nil, domain.ErrAccountNotFound
		}
		balance, err := decimal.NewFromString(balanceText)
		if err != nil {
			return nil, fmt.Errorf("parse balance of %d: %w", tran.AccountID, err)
		}
		account := domain.NewAccount(tran.AccountID, balance)
		receipt = tran.Apply(account)
		if receipt.Applied {
			if _, err := tx.Exec(ctx,
				"UPDATE accounts SET balance = $2::numeric, updated_at = now() WHERE id = $1",
				account.ID, account.Balance.String(),
			); err != nil {
				return nil, fmt.Errorf("update balance %d: %w", account.ID, err)
			}
		}
	}

	var seq int64
	if err := tx.QueryRow(ctx,
		`INSERT INTO transactions (ref_id, account_id, amount, type, applied, balance_after, created_at)
		 VALUES ($1, $2, $3::numeric, $4, $5, $6::numeric, $7)
		 RETURNING seq`,
		tran.TransactionID, tran.AccountID, tran.Amount.String(), int16(tran.Type),
		receipt.Applied, receipt.Balance.String(), tran.CreatedAt,
	).Scan(&seq); err != nil {
		return nil, fmt.Errorf("insert transaction: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	tran.Sequence = uint64(seq)
	receipt.Sequence = tran.Sequence
	l.logger.Debug("transaction stored",
		zap.Int64("seq", seq),
		zap.Stringer("type", tran.Type),
		zap.Int64("account_id", tran.AccountID),
	)
	return receipt, nil
}

func (l *PostgresLedger) findTransaction(ctx context.Context, tx pgx.Tx, refID uuid.UUID) (*domain.Receipt, error) {
	var (
		seq          int64
		accountID    int64
		typ          int16
		applied      bool
		balanceAfter string
	)
	err := tx.QueryRow(ctx,
		`SELECT seq, account_id, type, applied, balance_after::text
		 FROM transactions WHERE ref_id = $1`, refID,
	).Scan(&seq, &accountID, &typ, &applied, &balanceAfter)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSelectTransactionFailed, err)
	}
	balance, err := decimal.NewFromString(balanceAfter)
	if err != nil {
		return nil, fmt.Errorf("parse balance_after: %w", err)
	}
	return &domain.Receipt{
		TransactionID: refID,
		Sequence:      uint64(seq),
		AccountID:     accountID,
		Type:          domain.TransactionType(typ),
		Applied:       applied,
		Balance:       balance,
	}, nil
}

// GetAccountBalance implements usecase.Ledger.
func (l *PostgresLedger) GetAccountBalance(ctx context.Context, accountID int64) (decimal.Decimal, error) {
	var balanceText string
	err := l.pool.QueryRow(ctx, "SELECT balance::text FROM accounts WHERE id = $1", accountID).Scan(&balanceText)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, domain.ErrAccountNotFound
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("get account %d: %w", accountID, err)
	}
	return decimal.NewFromString(balanceText)
}

// LoadAllAccounts implements usecase.Ledger.
func (l *PostgresLedger) LoadAllAccounts(ctx context.Context) (map[int64]*domain.Account, error) {
	rows, err := l.pool.Query(ctx, "SELECT id, balance::text FROM accounts")
	if err != nil {
		return nil, fmt.Errorf("query accounts: %w", err)
	}
	defer rows.Close()

	accounts := make(map[int64]*domain.Account)
	for rows.Next() {
		var (
			id          int64
			balanceText string
		)
		if err := rows.Scan(&id, &balanceText); err != nil {
			return nil, fmt.Errorf("scan account row: %w", err)
		}
		balance, err := decimal.NewFromString(balanceText)
		if err != nil {
			return nil, fmt.Errorf("parse balance of %d: %w", id, err)
		}
		accounts[id] = domain.NewAccount(id, balance)
	}
	return accounts, rows.Err()
}

var _ usecase.Ledger = (*PostgresLedger)(nil)
