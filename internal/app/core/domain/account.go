package domain

import "github.com/shopspring/decimal"

// Account 單一帳戶的餘額
// 本身不做任何同步，併發控制交給外層的 Ledger 實作
type Account struct {
	ID      int64
	Balance decimal.Decimal
}

// NewAccount 建立帳戶，初始餘額不檢查正負
func NewAccount(id int64, initialBalance decimal.Decimal) *Account {
	return &Account{
		ID:      id,
		Balance: initialBalance,
	}
}

// Deposit 存款，金額直接加到餘額上 (負數會讓餘額減少)
func (a *Account) Deposit(amount decimal.Decimal) {
	a.Balance = a.Balance.Add(amount)
}

// CanWithdraw 提款後餘額是否仍 >= 0
func (a *Account) CanWithdraw(amount decimal.Decimal) bool {
	return !a.Balance.Sub(amount).IsNegative()
}

// Withdraw 提款
// 餘額不足時不做任何事，回傳 false (不回傳錯誤)
func (a *Account) Withdraw(amount decimal.Decimal) bool {
	if !a.CanWithdraw(amount) {
		return false
	}
	a.Balance = a.Balance.Sub(amount)
	return true
}
