package grpc

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"
)

// ErrPoolClosed Pool 已關閉
var ErrPoolClosed = errors.New("grpc pool closed")

// Pool 依目標地址快取 gRPC 連線，同一個 target 只會有一條連線
type Pool struct {
	mu       sync.RWMutex
	conns    map[string]*grpc.ClientConn
	closed   bool
	keep     keepalive.ClientParameters
	chain    []grpc.UnaryClientInterceptor
	callOpts []grpc.CallOption
	dialOpts []grpc.DialOption
}

// PoolOption Pool 設定
type PoolOption func(*Pool)

// WithInterceptors 附加 UnaryClientInterceptor，依傳入順序串接
func WithInterceptors(interceptors ...grpc.UnaryClientInterceptor) PoolOption {
	return func(p *Pool) {
		p.chain = append(p.chain, interceptors...)
	}
}

// WithCallOptions 每次呼叫預設帶上的 CallOption (例如 content-subtype)
func WithCallOptions(opts ...grpc.CallOption) PoolOption {
	return func(p *Pool) {
		p.callOpts = append(p.callOpts, opts...)
	}
}

// WithDialOptions 額外的連線選項，會覆蓋預設值
func WithDialOptions(opts ...grpc.DialOption) PoolOption {
	return func(p *Pool) {
		p.dialOpts = append(p.dialOpts, opts...)
	}
}

// WithKeepalive 覆寫預設的 keepalive 參數
func WithKeepalive(params keepalive.ClientParameters) PoolOption {
	return func(p *Pool) {
		p.keep = params
	}
}

// NewPool 建立連線池
func NewPool(opts ...PoolOption) *Pool {
	p := &Pool{
		conns: make(map[string]*grpc.ClientConn),
		keep: keepalive.ClientParameters{
			Time:                10 * time.Second,
			Timeout:             time.Second,
			PermitWithoutStream: true,
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Get 取得 target 的連線，不存在或已關閉時建立新連線
// 連線是 lazy 的，第一次呼叫時才真正建立 TCP 連線
//
// 參數:
//
//	target: 伺服器地址 (e.g. "localhost:50051")
//
// 回傳:
//
//	*grpc.ClientConn: 連線
//	error: Pool 已關閉或 grpc.NewClient 失敗
func (p *Pool) Get(target string) (*grpc.ClientConn, error) {
	p.mu.RLock()
	conn, ok := p.conns[target]
	closed := p.closed
	p.mu.RUnlock()
	if closed {
		return nil, ErrPoolClosed
	}
	if ok && conn.GetState() != connectivity.Shutdown {
		return conn, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, ErrPoolClosed
	}
	if conn, ok := p.conns[target]; ok && conn.GetState() != connectivity.Shutdown {
		return conn, nil
	}

	dialOpts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithKeepaliveParams(p.keep),
	}
	if len(p.chain) > 0 {
		dialOpts = append(dialOpts, grpc.WithChainUnaryInterceptor(p.chain...))
	}
	if len(p.callOpts) > 0 {
		dialOpts = append(dialOpts, grpc.WithDefaultCallOptions(p.callOpts...))
	}
	dialOpts = append(dialOpts, p.dialOpts...)

	conn, err := grpc.NewClient(target, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("create grpc client for %s: %w", target, err)
	}
	p.conns[target] = conn
	return conn, nil
}

// Len 目前快取的連線數
func (p *Pool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.conns)
}

// Close 關閉所有連線，之後 Get 會回傳 ErrPoolClosed
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs []error
	for target, conn := range p.conns {
		if err := conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", target, err))
		}
		delete(p.conns, target)
	}
	p.closed = true
	return errors.Join(errs...)
}

// TimeoutInterceptor 沒有 deadline 的呼叫一律套上 timeout
func TimeoutInterceptor(timeout time.Duration) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		if _, ok := ctx.Deadline(); !ok {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		return invoker(ctx, method, req, reply, cc, opts...)
	}
}
