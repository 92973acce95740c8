package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	grpc_adapter "github.com/JoeShih716/go-accountant/internal/app/core/adapter/in/grpc"
	"github.com/JoeShih716/go-accountant/internal/app/core/adapter/in/rest"
	kafka_adapter "github.com/JoeShih716/go-accountant/internal/app/core/adapter/out/kafka"
	memory_adapter "github.com/JoeShih716/go-accountant/internal/app/core/adapter/out/memory"
	mysql_adapter "github.com/JoeShih716/go-accountant/internal/app/core/adapter/out/mysql"
	postgres_adapter "github.com/JoeShih716/go-accountant/internal/app/core/adapter/out/postgres"
	"github.com/JoeShih716/go-accountant/internal/app/core/domain"
	"github.com/JoeShih716/go-accountant/internal/app/core/usecase"
	"github.com/JoeShih716/go-accountant/internal/config"
	"github.com/JoeShih716/go-accountant/pkg/mysql"
	"github.com/JoeShih716/go-accountant/pkg/wal"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	flag.Parse()

	// 1. 載入設定
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server exited with error", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 2. 初始化 Ledger
	closers := &closerStack{}
	defer closers.closeAll(logger)

	ledger, err := buildLedger(ctx, cfg, logger, closers)
	if err != nil {
		return err
	}

	// 3. 初始化事件發佈
	var publisher usecase.EventPublisher = usecase.NopPublisher{}
	if cfg.Kafka.Enabled() {
		p := kafka_adapter.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		closers.push("kafka", p.Close)
		publisher = p
		logger.Info("publishing balance events to kafka",
			zap.Strings("brokers", cfg.Kafka.Brokers),
			zap.String("topic", cfg.Kafka.Topic))
	}

	// 4. 初始化 UseCase
	core := usecase.NewCoreUseCase(ledger,
		usecase.WithPublisher(publisher),
		usecase.WithLogger(logger.Named("core")),
		usecase.WithStrictWithdraw(cfg.Ledger.StrictWithdraw),
	)

	// 5. 啟動 gRPC Server
	lis, err := net.Listen("tcp", cfg.GRPC.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.GRPC.Addr, err)
	}
	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(grpc_adapter.LoggingInterceptor(logger.Named("grpc"))),
	)
	grpc_adapter.RegisterLedgerServiceServer(grpcServer, grpc_adapter.NewGrpcServer(core))
	healthServer := health.NewServer()
	healthServer.SetServingStatus(grpc_adapter.ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	reflection.Register(grpcServer)

	// 6. 啟動 HTTP Server
	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	httpServer := &http.Server{
		Addr: cfg.HTTP.Addr,
		Handler: rest.NewRouter(core, rest.RouterConfig{
			CORSOrigins:  cfg.HTTP.CORSOrigins,
			RateLimitRPS: cfg.HTTP.RateLimitRPS,
		}, logger.Named("http")),
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info("starting gRPC server", zap.String("addr", cfg.GRPC.Addr))
		if err := grpcServer.Serve(lis); err != nil {
			errCh <- fmt.Errorf("grpc serve: %w", err)
		}
	}()
	go func() {
		logger.Info("starting HTTP server", zap.String("addr", cfg.HTTP.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http serve: %w", err)
		}
	}()

	// Graceful Shutdown
	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("shutting down server")
	case serveErr = <-errCh:
		logger.Error("server failed, shutting down", zap.Error(serveErr))
	}

	healthServer.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	grpcServer.GracefulStop()
	logger.Info("server exited")
	return serveErr
}

// buildLedger 依設定建立 Ledger，需要釋放的資源放進 closers
func buildLedger(ctx context.Context, cfg config.Config, logger *zap.Logger, closers *closerStack) (usecase.Ledger, error) {
	var (
		mysqlLedger    *mysql_adapter.MySQLLedger
		postgresLedger *postgres_adapter.PostgresLedger
	)

	needMySQL := cfg.Ledger.Type == config.LedgerMySQL || cfg.Ledger.Seed == string(config.LedgerMySQL)
	if needMySQL {
		dbClient, err := mysql.NewClient(cfg.MySQL, logger.Named("mysql"))
		if err != nil {
			return nil, fmt.Errorf("connect mysql: %w", err)
		}
		closers.push("mysql", dbClient.Close)
		mysqlLedger = mysql_adapter.NewMySQLLedger(dbClient)
		if err := mysqlLedger.Migrate(ctx); err != nil {
			return nil, fmt.Errorf("migrate mysql: %w", err)
		}
		logger.Info("connected to MySQL", zap.String("host", cfg.MySQL.Host))
	}

	needPostgres := cfg.Ledger.Type == config.LedgerPostgres || cfg.Ledger.Seed == string(config.LedgerPostgres)
	if needPostgres {
		pool, err := pgxpool.New(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		closers.push("postgres", func() error { pool.Close(); return nil })
		if err := pool.Ping(ctx); err != nil {
			return nil, fmt.Errorf("ping postgres: %w", err)
		}
		postgresLedger = postgres_adapter.NewPostgresLedger(pool, logger.Named("postgres"))
		if err := postgresLedger.Migrate(ctx); err != nil {
			return nil, fmt.Errorf("migrate postgres: %w", err)
		}
		logger.Info("connected to PostgreSQL")
	}

	switch cfg.Ledger.Type {
	case config.LedgerMySQL:
		return mysqlLedger, nil
	case config.LedgerPostgres:
		return postgresLedger, nil
	}

	// 記憶體 Ledger: 可選擇先從 SQL 載入帳戶
	var accounts map[int64]*domain.Account
	var seed usecase.Ledger
	switch config.LedgerType(cfg.Ledger.Seed) {
	case config.LedgerMySQL:
		seed = mysqlLedger
	case config.LedgerPostgres:
		seed = postgresLedger
	}
	if seed != nil {
		var err error
		accounts, err = seed.LoadAllAccounts(ctx)
		if err != nil {
			return nil, fmt.Errorf("load accounts: %w", err)
		}
		logger.Info("loaded accounts", zap.Int("count", len(accounts)), zap.String("from", cfg.Ledger.Seed))
	}

	walFile, err := wal.NewWAL(cfg.Ledger.WALPath)
	if err != nil {
		return nil, fmt.Errorf("init WAL: %w", err)
	}
	closers.push("wal", walFile.Close)

	switch cfg.Ledger.Type {
	case config.LedgerLMAX:
		lmax, err := memory_adapter.NewLMAXLedger(accounts, walFile, cfg.Ledger.QueueSize)
		if err != nil {
			return nil, fmt.Errorf("init LMAXLedger: %w", err)
		}
		lmaxCtx, cancel := context.WithCancel(context.Background())
		lmax.Start(lmaxCtx)
		// 先停 writer goroutine 再關 WAL
		closers.push("lmax", func() error {
			cancel()
			<-lmax.Done()
			return nil
		})
		logger.Info("using LMAX ledger", zap.String("wal", cfg.Ledger.WALPath), zap.Int("queue_size", cfg.Ledger.QueueSize))
		return lmax, nil
	default:
		mutexLedger, err := memory_adapter.NewMutexLedger(accounts, walFile)
		if err != nil {
			return nil, fmt.Errorf("init MutexLedger: %w", err)
		}
		logger.Info("using mutex ledger", zap.String("wal", cfg.Ledger.WALPath))
		return mutexLedger, nil
	}
}

type namedCloser struct {
	name  string
	close func() error
}

// closerStack 以建立的反向順序關閉資源
type closerStack struct {
	items []namedCloser
}

func (s *closerStack) push(name string, fn func() error) {
	s.items = append(s.items, namedCloser{name: name, close: fn})
}

func (s *closerStack) closeAll(logger *zap.Logger) {
	for i := len(s.items) - 1; i >= 0; i-- {
		if err := s.items[i].close(); err != nil {
			logger.Warn("close resource", zap.String("name", s.items[i].name), zap.Error(err))
		}
	}
	s.items = nil
}

func newLogger(cfg config.LogConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	zcfg := zap.NewProductionConfig()
	if cfg.Development {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	return zcfg.Build()
}
