package grpc

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/JoeShih716/go-accountant/internal/app/core/domain"
	"github.com/JoeShih716/go-accountant/internal/app/core/usecase"
)

type GrpcServer struct {
	core *usecase.CoreUseCase
}

func NewGrpcServer(core *usecase.CoreUseCase) *GrpcServer {
	return &GrpcServer{
		core: core,
	}
}

func (s *GrpcServer) OpenAccount(ctx context.Context, req *OpenAccountRequest) (*TransactionResponse, error) {
	refID, err := parseRefID(req.RefID)
	if err != nil {
		return softFailure(err), nil
	}
	receipt, err := s.core.OpenAccount(ctx, refID, req.AccountID, req.InitialBalance)
	return transactionResponse(receipt, err)
}

func (s *GrpcServer) Deposit(ctx context.Context, req *AmountRequest) (*TransactionResponse, error) {
	refID, err := parseRefID(req.RefID)
	if err != nil {
		return softFailure(err), nil
	}
	receipt, err := s.core.Deposit(ctx, refID, req.AccountID, req.Amount)
	return transactionResponse(receipt, err)
}

func (s *GrpcServer) Withdraw(ctx context.Context, req *AmountRequest) (*TransactionResponse, error) {
	refID, err := parseRefID(req.RefID)
	if err != nil {
		return softFailure(err), nil
	}
	receipt, err := s.core.Withdraw(ctx, refID, req.AccountID, req.Amount)
	return transactionResponse(receipt, err)
}

func (s *GrpcServer) GetBalance(ctx context.Context, req *GetBalanceRequest) (*GetBalanceResponse, error) {
	balance, err := s.core.GetAccountBalance(ctx, req.AccountID)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return nil, status.Error(codes.NotFound, err.Error())
		}
		return nil, status.Error(codes.Internal, err.Error())
	}
	return &GetBalanceResponse{
		AccountID: req.AccountID,
		Balance:   balance,
	}, nil
}

// parseRefID 空字串表示由 server 產生
func parseRefID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, nil
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, errors.New("invalid ref_id: " + err.Error())
	}
	return u, nil
}

// transactionResponse 業務邏輯錯誤回傳 Success=false，ctx 取消等則回傳 gRPC status
func transactionResponse(receipt *domain.Receipt, err error) (*TransactionResponse, error) {
	switch {
	case errors.Is(err, context.Canceled):
		return nil, status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return nil, status.Error(codes.DeadlineExceeded, err.Error())
	}
	if receipt == nil {
		return softFailure(err), nil
	}
	resp := &TransactionResponse{
		Success:        err == nil,
		RefID:          receipt.TransactionID.String(),
		Sequence:       receipt.Sequence,
		Applied:        receipt.Applied,
		Replayed:       receipt.Replayed,
		CurrentBalance: receipt.Balance,
	}
	if err != nil {
		resp.Message = err.Error()
	}
	return resp, nil
}

func softFailure(err error) *TransactionResponse {
	return &TransactionResponse{
		Success:        false,
		Message:        err.Error(),
		CurrentBalance: decimal.Zero,
	}
}

var _ LedgerServiceServer = (*GrpcServer)(nil)
