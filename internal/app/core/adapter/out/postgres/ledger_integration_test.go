//go:build integration

package postgres_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/JoeShih716/go-accountant/internal/app/core/adapter/out/postgres"
	"github.com/JoeShih716/go-accountant/internal/app/core/domain"
)

var ctx = context.Background()

func setupPostgres(t *testing.T) *postgres.PostgresLedger {
	t.Helper()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("connect to postgres: %v", err)
	}
	t.Cleanup(pool.Close)

	l := postgres.NewPostgresLedger(pool, zap.NewNop())
	if err := l.Migrate(ctx); err != nil {
		t.Fatal(err)
	}
	pool.Exec(ctx, "DELETE FROM transactions")
	pool.Exec(ctx, "DELETE FROM accounts")
	return l
}

func post(t *testing.T, l *postgres.PostgresLedger, tran *domain.Transaction) *domain.Receipt {
	t.Helper()
	r, err := l.PostTransaction(ctx, tran)
	if err != nil {
		t.Fatalf("post %s: %v", tran.Type, err)
	}
	return r
}

func newTx(typ domain.TransactionType, id int64, amount string) *domain.Transaction {
	return &domain.Transaction{
		TransactionID: uuid.New(),
		AccountID:     id,
		Amount:        decimal.RequireFromString(amount),
		Type:          typ,
	}
}

func TestPostgresLedger_flow(t *testing.T) {
	l := setupPostgres(t)

	post(t, l, newTx(domain.TransactionTypeOpen, 1, "0"))
	post(t, l, newTx(domain.TransactionTypeDeposit, 1, "100.25"))
	if r := post(t, l, newTx(domain.TransactionTypeWithdraw, 1, "200")); r.Applied {
		t.Error("expected rejected withdraw")
	}
	post(t, l, newTx(domain.TransactionTypeWithdraw, 1, "0.25"))

	got, err := l.GetAccountBalance(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equal(decimal.NewFromInt(100)) {
		t.Errorf("balance: got %s, want 100", got)
	}

	if _, err := l.PostTransaction(ctx, newTx(domain.TransactionTypeOpen, 1, "0")); !errors.Is(err, domain.ErrAccountAlreadyExists) {
		t.Errorf("open twice: got %v", err)
	}

	accounts, err := l.LoadAllAccounts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(accounts) != 1 {
		t.Errorf("expected 1 account, got %d", len(accounts))
	}
}

func TestPostgresLedger_idempotent(t *testing.T) {
	l := setupPostgres(t)
	post(t, l, newTx(domain.TransactionTypeOpen, 1, "0"))

	dep := newTx(domain.TransactionTypeDeposit, 1, "5")
	first := post(t, l, dep)
	again := *dep
	second := post(t, l, &again)
	if !second.Replayed || second.Sequence != first.Sequence {
		t.Errorf("replay: %+v vs %+v", second, first)
	}
}
