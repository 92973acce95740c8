package domain

import "errors"

var (
	// ErrAmountPrecision 金額小數位數超過 CurrencyPlaces
	ErrAmountPrecision = errors.New("amount exceeds currency precision")

	// ErrAmountOutOfRange 金額超出可表示的範圍
	ErrAmountOutOfRange = errors.New("amount out of range")

	// ErrInvalidAmount 金額格式錯誤
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInsufficientBalance 餘額不足 (只有 strict 模式才會回傳)
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrAccountNotFound 找不到帳戶
	ErrAccountNotFound = errors.New("account not found")

	// ErrAccountAlreadyExists 帳戶已存在
	ErrAccountAlreadyExists = errors.New("account already exists")

	// ErrUnknownTransactionType 未知的交易類型
	ErrUnknownTransactionType = errors.New("unknown transaction type")

	// ErrSelectTransactionFailed 查詢交易失敗
	ErrSelectTransactionFailed = errors.New("select transaction failed")

	// ErrWALWriteFailed 寫入 WAL 失敗
	ErrWALWriteFailed = errors.New("wal write failed")
)
