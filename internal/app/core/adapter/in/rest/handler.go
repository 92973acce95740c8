package rest

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/JoeShih716/go-accountant/internal/app/core/domain"
	"github.com/JoeShih716/go-accountant/internal/app/core/usecase"
)

// IdempotencyHeader 帶入交易的 ref_id (UUID)
const IdempotencyHeader = "Idempotency-Key"

// AccountHandler exposes the account endpoints over HTTP.
type AccountHandler struct {
	core   *usecase.CoreUseCase
	logger *zap.Logger
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(core *usecase.CoreUseCase, logger *zap.Logger) *AccountHandler {
	return &AccountHandler{core: core, logger: logger}
}

// Register mounts the account routes on the given router group.
func (h *AccountHandler) Register(rg *gin.RouterGroup) {
	a := rg.Group("/accounts")
	{
		a.POST("", h.Open)
		a.POST("/:id/deposit", h.Deposit)
		a.POST("/:id/withdraw", h.Withdraw)
		a.GET("/:id/balance", h.Balance)
	}
}

type openRequest struct {
	AccountID      int64           `json:"account_id"`
	InitialBalance decimal.Decimal `json:"initial_balance"`
}

type amountRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type receiptResponse struct {
	RefID     string          `json:"ref_id"`
	Sequence  uint64          `json:"sequence"`
	AccountID int64           `json:"account_id"`
	Type      string          `json:"type"`
	Applied   bool            `json:"applied"`
	Replayed  bool            `json:"replayed"`
	Balance   decimal.Decimal `json:"balance"`
}

func newReceiptResponse(r *domain.Receipt) receiptResponse {
	return receiptResponse{
		RefID:     r.TransactionID.String(),
		Sequence:  r.Sequence,
		AccountID: r.AccountID,
		Type:      r.Type.String(),
		Applied:   r.Applied,
		Replayed:  r.Replayed,
		Balance:   r.Balance,
	}
}

// Open handles POST /accounts.
func (h *AccountHandler) Open(c *gin.Context) {
	refID, ok := refIDFrom(c)
	if !ok {
		return
	}
	var req openRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	receipt, err := h.core.OpenAccount(c.Request.Context(), refID, req.AccountID, req.InitialBalance)
	if err != nil {
		h.writeError(c, err)
		return
	}
	code := http.StatusCreated
	if receipt.Replayed {
		code = http.StatusOK
	}
	c.JSON(code, newReceiptResponse(receipt))
}

// Deposit handles POST /accounts/:id/deposit.
func (h *AccountHandler) Deposit(c *gin.Context) {
	h.postAmount(c, h.core.Deposit)
}

// Withdraw handles POST /accounts/:id/withdraw.
// 餘額不足時仍回 200，applied=false；strict 模式則回 409。
func (h *AccountHandler) Withdraw(c *gin.Context) {
	h.postAmount(c, h.core.Withdraw)
}

type postFunc func(ctx context.Context, refID uuid.UUID, accountID int64, amount decimal.Decimal) (*domain.Receipt, error)

func (h *AccountHandler) postAmount(c *gin.Context, post postFunc) {
	accountID, ok := accountIDFrom(c)
	if !ok {
		return
	}
	refID, ok := refIDFrom(c)
	if !ok {
		return
	}
	var req amountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	receipt, err := post(c.Request.Context(), refID, accountID, req.Amount)
	if err != nil {
		if receipt != nil && errors.Is(err, domain.ErrInsufficientBalance) {
			c.JSON(http.StatusConflict, gin.H{
				"error":   err.Error(),
				"receipt": newReceiptResponse(receipt),
			})
			return
		}
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newReceiptResponse(receipt))
}

// Balance handles GET /accounts/:id/balance.
func (h *AccountHandler) Balance(c *gin.Context) {
	accountID, ok := accountIDFrom(c)
	if !ok {
		return
	}
	balance, err := h.core.GetAccountBalance(c.Request.Context(), accountID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"account_id": accountID,
		"balance":    balance,
	})
}

func accountIDFrom(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id must be an integer"})
		return 0, false
	}
	return id, true
}

func refIDFrom(c *gin.Context) (uuid.UUID, bool) {
	key := c.GetHeader(IdempotencyHeader)
	if key == "" {
		return uuid.Nil, true
	}
	refID, err := uuid.Parse(key)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": IdempotencyHeader + " must be a UUID"})
		return uuid.Nil, false
	}
	return refID, true
}

// writeError maps domain errors to HTTP status codes.
func (h *AccountHandler) writeError(c *gin.Context, err error) {
	var code int
	switch {
	case errors.Is(err, domain.ErrAccountNotFound):
		code = http.StatusNotFound
	case errors.Is(err, domain.ErrAccountAlreadyExists):
		code = http.StatusConflict
	case errors.Is(err, domain.ErrAmountPrecision),
		errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrAmountOutOfRange),
		errors.Is(err, domain.ErrUnknownTransactionType):
		code = http.StatusBadRequest
	default:
		h.logger.Error("account request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(code, gin.H{"error": err.Error()})
}
