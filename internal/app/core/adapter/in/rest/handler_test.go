package rest

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/JoeShih716/go-accountant/internal/app/core/adapter/out/memory"
	"github.com/JoeShih716/go-accountant/internal/app/core/usecase"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func setupRouter(t *testing.T, cfg RouterConfig, opts ...usecase.Option) *gin.Engine {
	t.Helper()
	ledger, err := memory.NewMutexLedger(nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	return NewRouter(usecase.NewCoreUseCase(ledger, opts...), cfg, zap.NewNop())
}

func do(t *testing.T, r *gin.Engine, method, path, body string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeReceipt(t *testing.T, w *httptest.ResponseRecorder) receiptResponse {
	t.Helper()
	var resp receiptResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return resp
}

func TestHandler_scenario(t *testing.T) {
	r := setupRouter(t, RouterConfig{})

	w := do(t, r, http.MethodPost, "/api/v1/accounts", `{"account_id":1}`, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("open: expected 201, got %d: %s", w.Code, w.Body.String())
	}

	for i := 0; i < 3; i++ {
		w = do(t, r, http.MethodPost, "/api/v1/accounts/1/deposit", `{"amount":"100"}`, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("deposit: expected 200, got %d", w.Code)
		}
	}
	if got := decodeReceipt(t, w).Balance; !got.Equal(decimal.NewFromInt(300)) {
		t.Errorf("expected 300, got %s", got)
	}

	w = do(t, r, http.MethodPost, "/api/v1/accounts/1/withdraw", `{"amount":"500"}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("withdraw: expected 200, got %d", w.Code)
	}
	resp := decodeReceipt(t, w)
	if resp.Applied {
		t.Error("overdraft must not be applied")
	}
	if !resp.Balance.Equal(decimal.NewFromInt(300)) {
		t.Errorf("expected 300 after rejected withdraw, got %s", resp.Balance)
	}

	w = do(t, r, http.MethodGet, "/api/v1/accounts/1/balance", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("balance: expected 200, got %d", w.Code)
	}
	var bal struct {
		AccountID int64           `json:"account_id"`
		Balance   decimal.Decimal `json:"balance"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &bal); err != nil {
		t.Fatal(err)
	}
	if bal.AccountID != 1 || !bal.Balance.Equal(decimal.NewFromInt(300)) {
		t.Errorf("unexpected balance body: %s", w.Body.String())
	}
}

func TestHandler_idempotencyKey(t *testing.T) {
	r := setupRouter(t, RouterConfig{})
	key := uuid.NewString()
	hdr := map[string]string{IdempotencyHeader: key}

	w := do(t, r, http.MethodPost, "/api/v1/accounts", `{"account_id":7,"initial_balance":"10"}`, hdr)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}
	if got := decodeReceipt(t, w).RefID; got != key {
		t.Errorf("expected ref_id %s, got %s", key, got)
	}

	w = do(t, r, http.MethodPost, "/api/v1/accounts", `{"account_id":7,"initial_balance":"10"}`, hdr)
	if w.Code != http.StatusOK {
		t.Fatalf("replayed open: expected 200, got %d", w.Code)
	}
	if !decodeReceipt(t, w).Replayed {
		t.Error("expected replayed receipt")
	}

	depKey := map[string]string{IdempotencyHeader: uuid.NewString()}
	do(t, r, http.MethodPost, "/api/v1/accounts/7/deposit", `{"amount":"5"}`, depKey)
	w = do(t, r, http.MethodPost, "/api/v1/accounts/7/deposit", `{"amount":"5"}`, depKey)
	if got := decodeReceipt(t, w).Balance; !got.Equal(decimal.NewFromInt(15)) {
		t.Errorf("duplicate deposit must not apply twice, got %s", got)
	}
}

func TestHandler_strictWithdraw(t *testing.T) {
	r := setupRouter(t, RouterConfig{}, usecase.WithStrictWithdraw(true))
	do(t, r, http.MethodPost, "/api/v1/accounts", `{"account_id":1}`, nil)

	w := do(t, r, http.MethodPost, "/api/v1/accounts/1/withdraw", `{"amount":"50"}`, nil)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", w.Code, w.Body.String())
	}
}

func TestHandler_errors(t *testing.T) {
	r := setupRouter(t, RouterConfig{})
	do(t, r, http.MethodPost, "/api/v1/accounts", `{"account_id":1}`, nil)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		header map[string]string
		want   int
	}{
		{"duplicate open", http.MethodPost, "/api/v1/accounts", `{"account_id":1}`, nil, http.StatusConflict},
		{"missing account", http.MethodPost, "/api/v1/accounts/9/deposit", `{"amount":"1"}`, nil, http.StatusNotFound},
		{"missing balance", http.MethodGet, "/api/v1/accounts/9/balance", "", nil, http.StatusNotFound},
		{"bad id", http.MethodGet, "/api/v1/accounts/abc/balance", "", nil, http.StatusBadRequest},
		{"bad body", http.MethodPost, "/api/v1/accounts/1/deposit", `{"amount":`, nil, http.StatusBadRequest},
		{"too large", http.MethodPost, "/api/v1/accounts/1/deposit", `{"amount":"1e2000000000"}`, nil, http.StatusBadRequest},
		{"too precise", http.MethodPost, "/api/v1/accounts/1/deposit", `{"amount":"0.00001"}`, nil, http.StatusBadRequest},
		{"bad key", http.MethodPost, "/api/v1/accounts/1/deposit", `{"amount":"1"}`, map[string]string{IdempotencyHeader: "nope"}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, r, tt.method, tt.path, tt.body, tt.header)
			if w.Code != tt.want {
				t.Errorf("expected %d, got %d: %s", tt.want, w.Code, w.Body.String())
			}
		})
	}
}

func TestRouter_healthAndMetrics(t *testing.T) {
	r := setupRouter(t, RouterConfig{})

	if w := do(t, r, http.MethodGet, "/healthz", "", nil); w.Code != http.StatusOK {
		t.Errorf("healthz: expected 200, got %d", w.Code)
	}
	do(t, r, http.MethodGet, "/api/v1/accounts/1/balance", "", nil)
	w := do(t, r, http.MethodGet, "/metrics", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("metrics: expected 200, got %d", w.Code)
	}
	if !bytes.Contains(w.Body.Bytes(), []byte("accountant_http_requests_total")) {
		t.Error("expected accountant_http_requests_total in metrics output")
	}
}

func TestRouter_rateLimit(t *testing.T) {
	r := setupRouter(t, RouterConfig{RateLimitRPS: 1})

	var limited bool
	for i := 0; i < 10; i++ {
		if w := do(t, r, http.MethodGet, "/healthz", "", nil); w.Code == http.StatusTooManyRequests {
			limited = true
			break
		}
	}
	if !limited {
		t.Error("expected 429 after exceeding burst")
	}
}

func TestRouter_cors(t *testing.T) {
	r := setupRouter(t, RouterConfig{CORSOrigins: []string{"http://example.com"}})

	w := do(t, r, http.MethodGet, "/healthz", "", map[string]string{"Origin": "http://example.com"})
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://example.com" {
		t.Errorf("expected allow-origin header, got %q", got)
	}
}
