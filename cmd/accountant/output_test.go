package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	grpc_adapter "github.com/JoeShih716/go-accountant/internal/app/core/adapter/in/grpc"
)

func TestPrintReceipt(t *testing.T) {
	resp := &grpc_adapter.TransactionResponse{
		Success:        true,
		RefID:          "ref-1",
		Sequence:       3,
		Applied:        false,
		CurrentBalance: decimal.NewFromInt(300),
	}

	t.Run("text", func(t *testing.T) {
		var buf bytes.Buffer
		if err := printReceipt(&buf, formatText, "withdraw", 1, resp); err != nil {
			t.Fatal(err)
		}
		out := buf.String()
		for _, want := range []string{"withdraw", "ref-1", "Applied:", "false", "300.0000"} {
			if !strings.Contains(out, want) {
				t.Errorf("expected %q in output:\n%s", want, out)
			}
		}
	})

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		if err := printReceipt(&buf, formatJSON, "withdraw", 1, resp); err != nil {
			t.Fatal(err)
		}
		var got receiptView
		if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
			t.Fatal(err)
		}
		if got.AccountID != 1 || got.Applied || !got.Balance.Equal(decimal.NewFromInt(300)) {
			t.Errorf("unexpected view: %+v", got)
		}
	})

	t.Run("yaml", func(t *testing.T) {
		var buf bytes.Buffer
		if err := printReceipt(&buf, formatYAML, "withdraw", 1, resp); err != nil {
			t.Fatal(err)
		}
		var got map[string]any
		if err := yaml.Unmarshal(buf.Bytes(), &got); err != nil {
			t.Fatal(err)
		}
		if got["operation"] != "withdraw" || got["balance"] != "300" {
			t.Errorf("unexpected yaml: %s", buf.String())
		}
	})

	t.Run("four places", func(t *testing.T) {
		var buf bytes.Buffer
		r := *resp
		r.CurrentBalance = decimal.RequireFromString("12.3456")
		if err := printReceipt(&buf, formatText, "deposit", 1, &r); err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(buf.String(), "12.3456") {
			t.Errorf("expected unrounded balance in output:\n%s", buf.String())
		}
	})

	for _, format := range []string{formatText, formatJSON, formatYAML} {
		t.Run("soft failure "+format, func(t *testing.T) {
			var buf bytes.Buffer
			failed := &grpc_adapter.TransactionResponse{Success: false, Message: "account not found"}
			err := printReceipt(&buf, format, "deposit", 9, failed)
			if err == nil || !strings.Contains(err.Error(), "account not found") {
				t.Errorf("expected soft failure error, got %v", err)
			}
		})
	}
}

func TestPrintBalance(t *testing.T) {
	tests := []struct {
		balance string
		want    string
	}{
		{"12.5", "Account 1 balance: 12.5000\n"},
		{"0.0049", "Account 1 balance: 0.0049\n"},
		{"12.3456", "Account 1 balance: 12.3456\n"},
	}
	for _, tt := range tests {
		t.Run(tt.balance, func(t *testing.T) {
			var buf bytes.Buffer
			resp := &grpc_adapter.GetBalanceResponse{AccountID: 1, Balance: decimal.RequireFromString(tt.balance)}
			if err := printBalance(&buf, formatText, resp); err != nil {
				t.Fatal(err)
			}
			if got := buf.String(); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
