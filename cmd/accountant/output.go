package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	grpc_adapter "github.com/JoeShih716/go-accountant/internal/app/core/adapter/in/grpc"
	"github.com/JoeShih716/go-accountant/internal/app/core/domain"
)

const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

type receiptView struct {
	Operation string          `json:"operation" yaml:"operation"`
	AccountID int64           `json:"account_id" yaml:"account_id"`
	Success   bool            `json:"success" yaml:"success"`
	Message   string          `json:"message,omitempty" yaml:"message,omitempty"`
	RefID     string          `json:"ref_id,omitempty" yaml:"ref_id,omitempty"`
	Sequence  uint64          `json:"sequence,omitempty" yaml:"sequence,omitempty"`
	Applied   bool            `json:"applied" yaml:"applied"`
	Replayed  bool            `json:"replayed,omitempty" yaml:"replayed,omitempty"`
	Balance   decimal.Decimal `json:"balance" yaml:"balance"`
}

type balanceView struct {
	AccountID int64           `json:"account_id" yaml:"account_id"`
	Balance   decimal.Decimal `json:"balance" yaml:"balance"`
}

func printReceipt(w io.Writer, format, op string, accountID int64, resp *grpc_adapter.TransactionResponse) error {
	v := receiptView{
		Operation: op,
		AccountID: accountID,
		Success:   resp.Success,
		Message:   resp.Message,
		RefID:     resp.RefID,
		Sequence:  resp.Sequence,
		Applied:   resp.Applied,
		Replayed:  resp.Replayed,
		Balance:   resp.CurrentBalance,
	}
	err := render(w, format, v, func(w io.Writer) error {
		if !v.Success {
			return nil
		}
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintf(tw, "Operation:\t%s\n", v.Operation)
		fmt.Fprintf(tw, "Account:\t%d\n", v.AccountID)
		fmt.Fprintf(tw, "Ref ID:\t%s\n", v.RefID)
		fmt.Fprintf(tw, "Sequence:\t%d\n", v.Sequence)
		fmt.Fprintf(tw, "Applied:\t%t\n", v.Applied)
		if v.Replayed {
			fmt.Fprintf(tw, "Replayed:\t%t\n", v.Replayed)
		}
		fmt.Fprintf(tw, "Balance:\t%s\n", v.Balance.StringFixed(domain.CurrencyPlaces))
		return tw.Flush()
	})
	if err != nil {
		return err
	}
	// 業務失敗在任何輸出格式下都要讓 exit code 非 0
	if !v.Success {
		return fmt.Errorf("%s failed: %s", op, v.Message)
	}
	return nil
}

func printBalance(w io.Writer, format string, resp *grpc_adapter.GetBalanceResponse) error {
	v := balanceView{AccountID: resp.AccountID, Balance: resp.Balance}
	return render(w, format, v, func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "Account %d balance: %s\n", v.AccountID, v.Balance.StringFixed(domain.CurrencyPlaces))
		return err
	})
}

func printBench(w io.Writer, format string, r benchResult) error {
	return render(w, format, r, func(w io.Writer) error {
		fmt.Fprintf(w, "Completed %d requests in %v (%d failed)\n", r.Requests, r.Elapsed, r.Failed)
		_, err := fmt.Fprintf(w, "TPS: %.2f\n", r.TPS)
		return err
	})
}

func render(w io.Writer, format string, v any, text func(io.Writer) error) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return text(w)
	}
}
