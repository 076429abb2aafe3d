package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/ameentrust/donorgate/internal/model"
)

// Prefill is the contact block handed to the checkout overlay. It is
// blanked entirely for anonymous donations.
type Prefill struct {
	Name  string
	Email string
	Phone string
}

// Callbacks receives the checkout's terminal event. Exactly one of the
// two fires per opened checkout; each returns the path the donor's
// browser is redirected to.
type Callbacks struct {
	OnComplete func(ctx context.Context, outcome model.PaymentOutcome) string
	OnDismiss  func() string
}

// Config holds gateway bridge configuration.
type Config struct {
	// CheckoutURL is the gateway's hosted checkout page.
	CheckoutURL string
	// ReturnURL is where the gateway sends the donor back, with either
	// the completion payload or a cancelled flag.
	ReturnURL string
	// Probe overrides the default bootstrap check. Tests use it; so can
	// a deployment that fronts the gateway with something unprobeable.
	Probe func(ctx context.Context) error
}

// Bridge hands orders to the gateway's hosted checkout and routes the
// donor's return back into the attempt that opened it.
type Bridge struct {
	cfg    Config
	logger *slog.Logger

	// bootstrap runs at most once per process; concurrent opens share
	// one in-flight load and a failed load stays retryable.
	loadGroup singleflight.Group
	loadOnce  sync.Mutex
	loaded    bool
	fetch     func(ctx context.Context) error

	mu        sync.Mutex
	callbacks *Callbacks
	orderID   string
}

// NewBridge creates a gateway bridge. The default bootstrap probes the
// hosted checkout endpoint so a kiosk with no route to the gateway
// fails at submit time instead of mid-payment.
func NewBridge(cfg Config, logger *slog.Logger) *Bridge {
	b := &Bridge{cfg: cfg, logger: logger}
	b.fetch = cfg.Probe
	if b.fetch == nil {
		b.fetch = b.probeCheckout
	}
	return b
}

func (b *Bridge) probeCheckout(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, b.cfg.CheckoutURL, nil)
	if err != nil {
		return fmt.Errorf("create probe request: %w", err)
	}
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("probe checkout: %w", err)
	}
	resp.Body.Close()
	if resp.StatusCode >= 500 {
		return fmt.Errorf("probe checkout: status %d", resp.StatusCode)
	}
	return nil
}

// ensureLoaded performs the one-time checkout bootstrap. Concurrent
// callers wait on the same load rather than starting their own.
func (b *Bridge) ensureLoaded(ctx context.Context) error {
	b.loadOnce.Lock()
	loaded := b.loaded
	b.loadOnce.Unlock()
	if loaded {
		return nil
	}

	_, err, _ := b.loadGroup.Do("checkout", func() (any, error) {
		// Re-check under the flight: a caller that raced past the
		// fast path must not start a second load.
		b.loadOnce.Lock()
		loaded := b.loaded
		b.loadOnce.Unlock()
		if loaded {
			return nil, nil
		}
		if err := b.fetch(ctx); err != nil {
			return nil, err
		}
		b.loadOnce.Lock()
		b.loaded = true
		b.loadOnce.Unlock()
		return nil, nil
	})
	return err
}

// Open readies the checkout for one order and returns the URL the donor
// is sent to. The callbacks stay armed until the donor returns, one way
// or the other.
func (b *Bridge) Open(ctx context.Context, order model.PaymentOrder, prefill Prefill, cb Callbacks) (string, error) {
	if err := b.ensureLoaded(ctx); err != nil {
		return "", fmt.Errorf("load checkout: %w", err)
	}

	b.mu.Lock()
	b.callbacks = &cb
	b.orderID = order.OrderID
	b.mu.Unlock()

	q := url.Values{}
	q.Set("key", order.GatewayKey)
	q.Set("order_id", order.OrderID)
	q.Set("amount", order.Amount)
	q.Set("currency", order.Currency)
	q.Set("name", prefill.Name)
	q.Set("email", prefill.Email)
	q.Set("contact", prefill.Phone)
	q.Set("callback_url", b.cfg.ReturnURL)
	q.Set("cancel_url", b.cfg.ReturnURL+"?cancelled=1")

	return b.cfg.CheckoutURL + "?" + q.Encode(), nil
}

// HandleReturn is the gateway return route. It fires exactly one of the
// armed callbacks: dismissal when the donor cancelled, completion when
// the gateway sent back its identifiers and signature.
func (b *Bridge) HandleReturn(w http.ResponseWriter, r *http.Request) {
	cb, expectedOrder := b.disarm()
	if cb == nil {
		// A stale return (reload of the return URL, or no checkout in
		// flight). The confirmation view degrades gracefully.
		http.Redirect(w, r, "/donation/confirmation", http.StatusSeeOther)
		return
	}

	q := r.URL.Query()
	if q.Get("cancelled") != "" {
		b.logger.Info("checkout dismissed", "order", expectedOrder)
		http.Redirect(w, r, cb.OnDismiss(), http.StatusSeeOther)
		return
	}

	outcome := model.PaymentOutcome{
		GatewayOrderID:   q.Get("razorpay_order_id"),
		GatewayPaymentID: q.Get("razorpay_payment_id"),
		GatewaySignature: q.Get("razorpay_signature"),
	}
	if outcome.GatewayOrderID == "" || outcome.GatewayPaymentID == "" || outcome.GatewaySignature == "" {
		b.logger.Warn("checkout return missing fields", "order", expectedOrder)
		http.Redirect(w, r, cb.OnDismiss(), http.StatusSeeOther)
		return
	}

	http.Redirect(w, r, cb.OnComplete(r.Context(), outcome), http.StatusSeeOther)
}

// disarm removes and returns the armed callbacks so each checkout gets
// at most one terminal event.
func (b *Bridge) disarm() (*Callbacks, string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	cb, orderID := b.callbacks, b.orderID
	b.callbacks = nil
	b.orderID = ""
	return cb, orderID
}
