package main

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"google.golang.org/grpc"

	grpc_adapter "github.com/JoeShih716/go-accountant/internal/app/core/adapter/in/grpc"
	"github.com/JoeShih716/go-accountant/internal/app/core/domain"
)

var (
	benchAccount     int64
	benchCount       int
	benchConcurrency int
	benchAmount      string
	benchDuration    time.Duration
)

// ── bench ────────────────────────────────────────────────────────────────────

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Fire concurrent deposits at one account and report throughput",
	Long: `bench sends --count deposits of --amount to --account using
--concurrency workers, then prints the elapsed time and TPS.

The account must already exist:

  accountant open 1
  accountant bench --account 1 --count 100000 --concurrency 500`,
	Args: cobra.NoArgs,
	RunE: runBench,
}

func init() {
	benchCmd.Flags().Int64Var(&benchAccount, "account", 1, "target account id")
	benchCmd.Flags().IntVar(&benchCount, "count", 10000, "total number of deposits")
	benchCmd.Flags().IntVar(&benchConcurrency, "concurrency", 100, "number of concurrent workers")
	benchCmd.Flags().StringVar(&benchAmount, "amount", "1", "amount of each deposit")
	benchCmd.Flags().DurationVar(&benchDuration, "max-duration", 2*time.Minute, "abort the run after this long")
}

type benchResult struct {
	Requests  int           `json:"requests" yaml:"requests"`
	Succeeded int64         `json:"succeeded" yaml:"succeeded"`
	Failed    int64         `json:"failed" yaml:"failed"`
	Elapsed   time.Duration `json:"elapsed" yaml:"elapsed"`
	TPS       float64       `json:"tps" yaml:"tps"`
}

func runBench(cmd *cobra.Command, _ []string) error {
	if benchCount <= 0 || benchConcurrency <= 0 {
		return fmt.Errorf("--count and --concurrency must be positive")
	}
	amount, err := domain.ParseAmount(benchAmount)
	if err != nil {
		return err
	}
	c, err := newClient()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), benchDuration)
	defer cancel()

	result := runDeposits(ctx, c, benchAccount, amount, benchCount, benchConcurrency)
	return printBench(cmd.OutOrStdout(), viper.GetString("output"), result)
}

type depositor interface {
	Deposit(ctx context.Context, in *grpc_adapter.AmountRequest, opts ...grpc.CallOption) (*grpc_adapter.TransactionResponse, error)
}

func runDeposits(ctx context.Context, c depositor, accountID int64, amount decimal.Decimal, total, concurrency int) benchResult {
	var (
		wg        sync.WaitGroup
		succeeded atomic.Int64
		failed    atomic.Int64
	)
	jobs := make(chan struct{})
	start := time.Now()

	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range jobs {
				resp, err := c.Deposit(ctx, &grpc_adapter.AmountRequest{
					RefID:     uuid.NewString(),
					AccountID: accountID,
					Amount:    amount,
				})
				if err != nil || !resp.Success {
					failed.Add(1)
					continue
				}
				succeeded.Add(1)
			}
		}()
	}

feed:
	for i := 0; i < total; i++ {
		select {
		case jobs <- struct{}{}:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	elapsed := time.Since(start)
	done := int(succeeded.Load() + failed.Load())
	return benchResult{
		Requests:  done,
		Succeeded: succeeded.Load(),
		Failed:    failed.Load(),
		Elapsed:   elapsed,
		TPS:       float64(done) / elapsed.Seconds(),
	}
}
