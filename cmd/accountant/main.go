package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	grpc_adapter "github.com/JoeShih716/go-accountant/internal/app/core/adapter/in/grpc"
	"github.com/JoeShih716/go-accountant/internal/app/core/domain"
	grpcpool "github.com/JoeShih716/go-accountant/pkg/grpc"
)

var (
	cfgFile string
	pool    *grpcpool.Pool
)

func main() {
	defer func() {
		if pool != nil {
			pool.Close() //nolint:errcheck
		}
	}()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "accountant",
	Short: "Command-line client for the accountant ledger service",
	Long: `accountant talks to the ledger server over gRPC.

  accountant open 1
  accountant deposit 1 100
  accountant withdraw 1 30
  accountant balance 1 --output json`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cfgFile != "" {
			viper.SetConfigFile(cfgFile)
		} else {
			home, _ := os.UserHomeDir()
			viper.AddConfigPath(home + "/.accountant")
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
		viper.SetEnvPrefix("ACCOUNTANT")
		viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
		viper.AutomaticEnv()
		_ = viper.ReadInConfig()

		switch format := viper.GetString("output"); format {
		case formatText, formatJSON, formatYAML:
		default:
			return fmt.Errorf("unknown output format %q", format)
		}
		return nil
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default ~/.accountant/config.yaml)")
	pf.String("server", "localhost:50051", "ledger gRPC server address")
	pf.StringP("output", "o", formatText, "Output format: text, json or yaml")
	pf.Duration("timeout", 5*time.Second, "per-request timeout")
	_ = viper.BindPFlag("server", pf.Lookup("server"))
	_ = viper.BindPFlag("output", pf.Lookup("output"))
	_ = viper.BindPFlag("timeout", pf.Lookup("timeout"))

	for _, cmd := range []*cobra.Command{openCmd, depositCmd, withdrawCmd} {
		cmd.Flags().String("ref-id", "", "idempotency key (UUID); generated when empty")
	}

	rootCmd.AddCommand(openCmd)
	rootCmd.AddCommand(depositCmd)
	rootCmd.AddCommand(withdrawCmd)
	rootCmd.AddCommand(balanceCmd)
	rootCmd.AddCommand(benchCmd)
}

// newClient 從 Pool 取得連線並包成 LedgerService Client
func newClient() (*grpc_adapter.Client, error) {
	if pool == nil {
		pool = grpcpool.NewPool(
			grpcpool.WithInterceptors(grpcpool.TimeoutInterceptor(viper.GetDuration("timeout"))),
		)
	}
	conn, err := pool.Get(viper.GetString("server"))
	if err != nil {
		return nil, err
	}
	return grpc_adapter.NewClient(conn), nil
}

func parseAccountID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid account id %q", s)
	}
	return id, nil
}

func refIDFlag(cmd *cobra.Command) (string, error) {
	refID, _ := cmd.Flags().GetString("ref-id")
	if refID == "" {
		return uuid.NewString(), nil
	}
	if _, err := uuid.Parse(refID); err != nil {
		return "", fmt.Errorf("invalid --ref-id %q: %w", refID, err)
	}
	return refID, nil
}

// ── open ─────────────────────────────────────────────────────────────────────

var openCmd = &cobra.Command{
	Use:   "open <account-id> [initial-balance]",
	Short: "Open an account, optionally with an initial balance",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		accountID, err := parseAccountID(args[0])
		if err != nil {
			return err
		}
		var initial string
		if len(args) == 2 {
			initial = args[1]
		}
		amount, err := domain.ParseAmount(initial)
		if err != nil {
			return err
		}
		refID, err := refIDFlag(cmd)
		if err != nil {
			return err
		}
		c, err := newClient()
		if err != nil {
			return err
		}
		resp, err := c.OpenAccount(context.Background(), &grpc_adapter.OpenAccountRequest{
			RefID:          refID,
			AccountID:      accountID,
			InitialBalance: amount,
		})
		if err != nil {
			return err
		}
		return printReceipt(cmd.OutOrStdout(), viper.GetString("output"), "open", accountID, resp)
	},
}

// ── deposit / withdraw ───────────────────────────────────────────────────────

var depositCmd = &cobra.Command{
	Use:   "deposit <account-id> <amount>",
	Short: "Deposit an amount (negative amounts decrease the balance)",
	Args:  cobra.ExactArgs(2),
	RunE:  runAmount("deposit"),
}

var withdrawCmd = &cobra.Command{
	Use:   "withdraw <account-id> <amount>",
	Short: "Withdraw an amount; rejected without change when funds are insufficient",
	Args:  cobra.ExactArgs(2),
	RunE:  runAmount("withdraw"),
}

func runAmount(op string) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		accountID, err := parseAccountID(args[0])
		if err != nil {
			return err
		}
		amount, err := domain.ParseAmount(args[1])
		if err != nil {
			return err
		}
		refID, err := refIDFlag(cmd)
		if err != nil {
			return err
		}
		c, err := newClient()
		if err != nil {
			return err
		}

		req := &grpc_adapter.AmountRequest{RefID: refID, AccountID: accountID, Amount: amount}
		var resp *grpc_adapter.TransactionResponse
		if op == "deposit" {
			resp, err = c.Deposit(context.Background(), req)
		} else {
			resp, err = c.Withdraw(context.Background(), req)
		}
		if err != nil {
			return err
		}
		return printReceipt(cmd.OutOrStdout(), viper.GetString("output"), op, accountID, resp)
	}
}

// ── balance ──────────────────────────────────────────────────────────────────

var balanceCmd = &cobra.Command{
	Use:   "balance <account-id>",
	Short: "Show the current balance of an account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		accountID, err := parseAccountID(args[0])
		if err != nil {
			return err
		}
		c, err := newClient()
		if err != nil {
			return err
		}
		resp, err := c.GetBalance(context.Background(), &grpc_adapter.GetBalanceRequest{AccountID: accountID})
		if err != nil {
			return err
		}
		return printBalance(cmd.OutOrStdout(), viper.GetString("output"), resp)
	},
}
