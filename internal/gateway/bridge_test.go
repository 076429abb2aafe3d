package gateway

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/ameentrust/donorgate/internal/model"
)

func testOrder() model.PaymentOrder {
	return model.PaymentOrder{
		OrderID:    "order_1",
		Amount:     "500",
		Currency:   "INR",
		GatewayKey: "rzp_test_key",
	}
}

func newTestBridge(probe func(ctx context.Context) error) *Bridge {
	return NewBridge(Config{
		CheckoutURL: "https://checkout.example/v1/checkout",
		ReturnURL:   "http://localhost:8488/pay/return",
		Probe:       probe,
	}, slog.New(slog.DiscardHandler))
}

func TestBootstrapRunsOnce(t *testing.T) {
	var loads atomic.Int32
	b := newTestBridge(func(ctx context.Context) error {
		loads.Add(1)
		return nil
	})

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := b.Open(context.Background(), testOrder(), Prefill{}, Callbacks{}); err != nil {
				t.Errorf("open: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := loads.Load(); got != 1 {
		t.Errorf("bootstrap loads = %d, want 1", got)
	}

	// Later opens reuse the loaded state.
	if _, err := b.Open(context.Background(), testOrder(), Prefill{}, Callbacks{}); err != nil {
		t.Fatalf("open after load: %v", err)
	}
	if got := loads.Load(); got != 1 {
		t.Errorf("bootstrap loads after reuse = %d, want 1", got)
	}
}

func TestFailedBootstrapIsRetryable(t *testing.T) {
	calls := 0
	b := newTestBridge(func(ctx context.Context) error {
		calls++
		if calls == 1 {
			return errors.New("gateway unreachable")
		}
		return nil
	})

	if _, err := b.Open(context.Background(), testOrder(), Prefill{}, Callbacks{}); err == nil {
		t.Fatal("expected first open to fail")
	}
	if _, err := b.Open(context.Background(), testOrder(), Prefill{}, Callbacks{}); err != nil {
		t.Fatalf("second open: %v", err)
	}
	if calls != 2 {
		t.Errorf("probe calls = %d, want 2", calls)
	}
}

func TestOpenBuildsCheckoutURL(t *testing.T) {
	b := newTestBridge(func(ctx context.Context) error { return nil })

	checkoutURL, err := b.Open(context.Background(), testOrder(), Prefill{
		Name:  "Fatima Khan",
		Email: "fatima@example.com",
		Phone: "+911234567890",
	}, Callbacks{})
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	u, err := url.Parse(checkoutURL)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	q := u.Query()
	want := map[string]string{
		"key":      "rzp_test_key",
		"order_id": "order_1",
		"amount":   "500",
		"currency": "INR",
		"name":     "Fatima Khan",
		"email":    "fatima@example.com",
		"contact":  "+911234567890",
	}
	for k, v := range want {
		if q.Get(k) != v {
			t.Errorf("query[%q] = %q, want %q", k, q.Get(k), v)
		}
	}
	if q.Get("callback_url") != "http://localhost:8488/pay/return" {
		t.Errorf("callback_url = %q", q.Get("callback_url"))
	}
}

func TestReturnDispatchesCompletionOnce(t *testing.T) {
	b := newTestBridge(func(ctx context.Context) error { return nil })

	var completions, dismissals int
	var gotOutcome model.PaymentOutcome
	cb := Callbacks{
		OnComplete: func(ctx context.Context, outcome model.PaymentOutcome) string {
			completions++
			gotOutcome = outcome
			return "/done"
		},
		OnDismiss: func() string {
			dismissals++
			return "/cancelled"
		},
	}
	if _, err := b.Open(context.Background(), testOrder(), Prefill{}, cb); err != nil {
		t.Fatalf("open: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/pay/return?razorpay_order_id=order_1&razorpay_payment_id=pay_2&razorpay_signature=sig_3", nil)
	rec := httptest.NewRecorder()
	b.HandleReturn(rec, req)

	if completions != 1 || dismissals != 0 {
		t.Errorf("completions = %d, dismissals = %d", completions, dismissals)
	}
	if gotOutcome.GatewayPaymentID != "pay_2" || gotOutcome.GatewaySignature != "sig_3" {
		t.Errorf("outcome = %+v, want verbatim gateway fields", gotOutcome)
	}
	if loc := rec.Header().Get("Location"); loc != "/done" {
		t.Errorf("redirect = %q", loc)
	}

	// A replay of the same return finds no armed callbacks.
	rec = httptest.NewRecorder()
	b.HandleReturn(rec, req)
	if completions != 1 {
		t.Errorf("completions after replay = %d, want 1", completions)
	}
	if loc := rec.Header().Get("Location"); loc != "/donation/confirmation" {
		t.Errorf("stale return redirect = %q", loc)
	}
}

func TestReturnDispatchesDismissal(t *testing.T) {
	b := newTestBridge(func(ctx context.Context) error { return nil })

	var completions, dismissals int
	cb := Callbacks{
		OnComplete: func(ctx context.Context, outcome model.PaymentOutcome) string {
			completions++
			return "/done"
		},
		OnDismiss: func() string {
			dismissals++
			return "/cancelled"
		},
	}
	b.Open(context.Background(), testOrder(), Prefill{}, cb)

	req := httptest.NewRequest(http.MethodGet, "/pay/return?cancelled=1", nil)
	rec := httptest.NewRecorder()
	b.HandleReturn(rec, req)

	if dismissals != 1 || completions != 0 {
		t.Errorf("dismissals = %d, completions = %d", dismissals, completions)
	}
	if loc := rec.Header().Get("Location"); loc != "/cancelled" {
		t.Errorf("redirect = %q", loc)
	}
}

func TestReturnMissingFieldsTreatedAsDismissal(t *testing.T) {
	b := newTestBridge(func(ctx context.Context) error { return nil })

	var completions, dismissals int
	b.Open(context.Background(), testOrder(), Prefill{}, Callbacks{
		OnComplete: func(ctx context.Context, outcome model.PaymentOutcome) string {
			completions++
			return "/done"
		},
		OnDismiss: func() string {
			dismissals++
			return "/cancelled"
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/pay/return?razorpay_order_id=order_1", nil)
	rec := httptest.NewRecorder()
	b.HandleReturn(rec, req)

	if completions != 0 || dismissals != 1 {
		t.Errorf("completions = %d, dismissals = %d; a partial payload must not verify", completions, dismissals)
	}
}
