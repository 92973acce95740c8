package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// CurrencyPlaces 金額精度：小數點後 4 位
const CurrencyPlaces int32 = 4

// MaxIntegerDigits 整數部分最多 20 位，對應 SQL 的 decimal(24,4)
const MaxIntegerDigits = 20

// maxScale 小數部分 (含尾端的 0) 最多的位數，超過就不做 Round
const maxScale = 64

// ValidateAmount 檢查金額是否在範圍與精度內，不檢查正負
// 先用 exponent 擋掉極端值，Round 的成本才有上限
func ValidateAmount(amount decimal.Decimal) error {
	if amount.IsZero() {
		return nil
	}
	exp := int64(amount.Exponent())
	if exp < -maxScale || int64(amount.NumDigits())+exp > MaxIntegerDigits {
		return ErrAmountOutOfRange
	}
	if !amount.Round(CurrencyPlaces).Equal(amount) {
		return ErrAmountPrecision
	}
	return nil
}

// ParseAmount 將字串解析為金額，空字串視為 0
func ParseAmount(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	amount, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if err := ValidateAmount(amount); err != nil {
		return decimal.Zero, err
	}
	return amount, nil
}
