package settlement

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ameentrust/donorgate/internal/api"
	"github.com/ameentrust/donorgate/internal/database"
	"github.com/ameentrust/donorgate/internal/event"
	"github.com/ameentrust/donorgate/internal/model"
)

func testOutcome() model.PaymentOutcome {
	return model.PaymentOutcome{
		GatewayOrderID:   "order_1",
		GatewayPaymentID: "pay_9",
		GatewaySignature: "sig_7",
	}
}

func testOrder() model.PaymentOrder {
	return model.PaymentOrder{OrderID: "order_1", Amount: "500", Currency: "INR"}
}

func setupService(t *testing.T, backendURL string, deadline time.Duration) (*Service, *MarkerStore, *event.Bus) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.DiscardHandler)
	markers := NewMarkerStore(db)
	bus := event.NewBus(logger)
	backend := api.NewClient(api.Config{BaseURL: backendURL, Timeout: deadline}, nil)
	svc := NewService(backend, markers, bus, Config{VerifyDeadline: deadline}, logger)
	return svc, markers, bus
}

func TestSettleSuccessWritesMarkerAndPublishes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"donation": model.DonationRecord{ID: "don_1"}})
	}))
	defer server.Close()

	svc, markers, bus := setupService(t, server.URL, 5*time.Second)
	events, cancel := bus.Subscribe()
	defer cancel()

	result := svc.Settle(context.Background(), testOrder(), testOutcome())

	if result.Status != StatusSettled {
		t.Fatalf("status = %v, want settled", result.Status)
	}
	if result.Donation.ID != "don_1" {
		t.Errorf("donation id = %q", result.Donation.ID)
	}

	marker, err := markers.Latest()
	if err != nil || marker == nil {
		t.Fatalf("marker = %v, err = %v", marker, err)
	}
	if marker.DonationID != "don_1" || marker.PaymentID != "pay_9" || marker.OrderID != "order_1" {
		t.Errorf("marker = %+v", marker)
	}
	if marker.CreatedAt.IsZero() {
		t.Error("marker has no timestamp")
	}

	select {
	case ev := <-events:
		if ev.DonationID != "don_1" || ev.Currency != "INR" {
			t.Errorf("event = %+v", ev)
		}
	default:
		t.Error("no event published")
	}
}

func TestSettleRejectionWritesNothing(t *testing.T) {
	verifyCalls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		verifyCalls++
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"message": "Signature mismatch"})
	}))
	defer server.Close()

	svc, markers, bus := setupService(t, server.URL, 5*time.Second)
	events, cancel := bus.Subscribe()
	defer cancel()

	result := svc.Settle(context.Background(), testOrder(), testOutcome())

	if result.Status != StatusRejected {
		t.Fatalf("status = %v, want rejected", result.Status)
	}
	if result.Message != "Signature mismatch" {
		t.Errorf("message = %q, want backend message", result.Message)
	}
	if verifyCalls != 1 {
		t.Errorf("verify calls = %d; a backend verdict must not be retried", verifyCalls)
	}
	if marker, _ := markers.Latest(); marker != nil {
		t.Errorf("marker written on rejection: %+v", marker)
	}
	select {
	case ev := <-events:
		t.Errorf("event published on rejection: %+v", ev)
	default:
	}
}

func TestSettleUnreachableBackendEndsUnknown(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // refused from here on

	svc, markers, _ := setupService(t, server.URL, 700*time.Millisecond)

	result := svc.Settle(context.Background(), testOrder(), testOutcome())

	if result.Status != StatusUnknown {
		t.Fatalf("status = %v, want unknown", result.Status)
	}
	if result.Reference != "order_1/pay_9" {
		t.Errorf("reference = %q, want gateway identifiers", result.Reference)
	}
	if marker, _ := markers.Latest(); marker != nil {
		t.Error("marker written despite unknown outcome")
	}
}

func TestSettleRetriesTransportFailures(t *testing.T) {
	verifyCalls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		verifyCalls++
		if verifyCalls == 1 {
			// Drop the connection without a response.
			hj, ok := w.(http.Hijacker)
			if !ok {
				t.Fatal("recorder does not support hijack")
			}
			conn, _, err := hj.Hijack()
			if err != nil {
				t.Fatalf("hijack: %v", err)
			}
			conn.Close()
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"donation": model.DonationRecord{ID: "don_1"}})
	}))
	defer server.Close()

	svc, _, _ := setupService(t, server.URL, 10*time.Second)

	result := svc.Settle(context.Background(), testOrder(), testOutcome())

	if result.Status != StatusSettled {
		t.Fatalf("status = %v, want settled after retry", result.Status)
	}
	if verifyCalls < 2 {
		t.Errorf("verify calls = %d, want a retry after the dropped connection", verifyCalls)
	}
}

func TestMarkerFreshness(t *testing.T) {
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	markers := NewMarkerStore(db)

	stale := model.SuccessMarker{DonationID: "don_old", CreatedAt: time.Now().Add(-time.Hour)}
	if err := markers.Write(stale); err != nil {
		t.Fatalf("write stale: %v", err)
	}

	if m, _ := markers.LatestFresh(15 * time.Minute); m != nil {
		t.Errorf("stale marker reported fresh: %+v", m)
	}

	fresh := model.SuccessMarker{DonationID: "don_new", CreatedAt: time.Now()}
	if err := markers.Write(fresh); err != nil {
		t.Fatalf("write fresh: %v", err)
	}

	m, err := markers.LatestFresh(15 * time.Minute)
	if err != nil || m == nil {
		t.Fatalf("fresh marker missing: %v, %v", m, err)
	}
	if m.DonationID != "don_new" {
		t.Errorf("latest fresh = %q, want don_new", m.DonationID)
	}
}

func TestConfirmationPath(t *testing.T) {
	path := ConfirmationPath("don_1", testOutcome())
	want := "/donation/confirmation?donation_id=don_1&order_id=order_1&payment_id=pay_9"
	if path != want {
		t.Errorf("path = %q, want %q", path, want)
	}

	if got := ConfirmationPath("", model.PaymentOutcome{}); got != "/donation/confirmation" {
		t.Errorf("empty path = %q", got)
	}
}
