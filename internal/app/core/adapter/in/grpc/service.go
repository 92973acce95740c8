package grpc

import (
	"context"

	"github.com/shopspring/decimal"
	"google.golang.org/grpc"
)

// ServiceName gRPC 服務全名
const ServiceName = "accountant.v1.LedgerService"

const (
	methodOpenAccount = "/" + ServiceName + "/OpenAccount"
	methodDeposit     = "/" + ServiceName + "/Deposit"
	methodWithdraw    = "/" + ServiceName + "/Withdraw"
	methodGetBalance  = "/" + ServiceName + "/GetBalance"
)

// OpenAccountRequest 開戶請求
type OpenAccountRequest struct {
	RefID          string          `json:"ref_id,omitempty"`
	AccountID      int64           `json:"account_id"`
	InitialBalance decimal.Decimal `json:"initial_balance"`
}

// AmountRequest 存款/提款請求
type AmountRequest struct {
	RefID     string          `json:"ref_id,omitempty"`
	AccountID int64           `json:"account_id"`
	Amount    decimal.Decimal `json:"amount"`
}

// TransactionResponse 交易結果
// Success=false 表示業務邏輯錯誤 (Soft Failure)，原因在 Message
// Applied=false 表示提款因餘額不足被拒絕
type TransactionResponse struct {
	Success        bool            `json:"success"`
	Message        string          `json:"message,omitempty"`
	RefID          string          `json:"ref_id,omitempty"`
	Sequence       uint64          `json:"sequence,omitempty"`
	Applied        bool            `json:"applied"`
	Replayed       bool            `json:"replayed,omitempty"`
	CurrentBalance decimal.Decimal `json:"current_balance"`
}

type GetBalanceRequest struct {
	AccountID int64 `json:"account_id"`
}

type GetBalanceResponse struct {
	AccountID int64           `json:"account_id"`
	Balance   decimal.Decimal `json:"balance"`
}

// LedgerServiceServer 服務端需實作的介面
type LedgerServiceServer interface {
	OpenAccount(context.Context, *OpenAccountRequest) (*TransactionResponse, error)
	Deposit(context.Context, *AmountRequest) (*TransactionResponse, error)
	Withdraw(context.Context, *AmountRequest) (*TransactionResponse, error)
	GetBalance(context.Context, *GetBalanceRequest) (*GetBalanceResponse, error)
}

// RegisterLedgerServiceServer 註冊服務到 grpc.Server
func RegisterLedgerServiceServer(s grpc.ServiceRegistrar, srv LedgerServiceServer) {
	s.RegisterService(&LedgerServiceDesc, srv)
}

// unaryHandler 產生 MethodDesc 使用的 handler，decode 請求後交給 call
func unaryHandler[Req any, Resp any](fullMethod string, call func(LedgerServiceServer, context.Context, *Req) (*Resp, error)) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(LedgerServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod,
		}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(LedgerServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// LedgerServiceDesc 服務描述
var LedgerServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*LedgerServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "OpenAccount",
			Handler:    unaryHandler(methodOpenAccount, LedgerServiceServer.OpenAccount),
		},
		{
			MethodName: "Deposit",
			Handler:    unaryHandler(methodDeposit, LedgerServiceServer.Deposit),
		},
		{
			MethodName: "Withdraw",
			Handler:    unaryHandler(methodWithdraw, LedgerServiceServer.Withdraw),
		},
		{
			MethodName: "GetBalance",
			Handler:    unaryHandler(methodGetBalance, LedgerServiceServer.GetBalance),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "accountant/v1/ledger.json",
}
