package event

import (
	"log/slog"
	"testing"
	"time"
)

func testEvent(id string) DonationCompleted {
	return DonationCompleted{
		DonationID:  id,
		PaymentID:   "pay_1",
		OrderID:     "order_1",
		Amount:      "500",
		Currency:    "INR",
		CompletedAt: time.Now(),
	}
}

func TestPublishReachesAllSubscribers(t *testing.T) {
	bus := NewBus(slog.New(slog.DiscardHandler))

	a, cancelA := bus.Subscribe()
	defer cancelA()
	b, cancelB := bus.Subscribe()
	defer cancelB()

	bus.Publish(testEvent("don_1"))

	for name, ch := range map[string]<-chan DonationCompleted{"a": a, "b": b} {
		select {
		case ev := <-ch:
			if ev.DonationID != "don_1" {
				t.Errorf("subscriber %s got %+v", name, ev)
			}
		default:
			t.Errorf("subscriber %s received nothing", name)
		}
	}
}

func TestCancelStopsDelivery(t *testing.T) {
	bus := NewBus(slog.New(slog.DiscardHandler))

	ch, cancel := bus.Subscribe()
	cancel()

	if _, ok := <-ch; ok {
		t.Error("channel open after cancel")
	}

	// Publishing after cancel must not panic on the closed channel.
	bus.Publish(testEvent("don_2"))

	// Cancelling twice is fine.
	cancel()
}

func TestSlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	bus := NewBus(slog.New(slog.DiscardHandler))

	ch, cancel := bus.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < subscriberBuffer+5; i++ {
			bus.Publish(testEvent("don_n"))
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}

	if got := len(ch); got != subscriberBuffer {
		t.Errorf("buffered events = %d, want %d", got, subscriberBuffer)
	}
}
