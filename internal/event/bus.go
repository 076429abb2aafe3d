package event

import (
	"log/slog"
	"sync"
	"time"
)

// DonationCompleted announces a verified donation to whatever views are
// mounted. Carrying the identifiers spares listeners a blind re-fetch.
type DonationCompleted struct {
	DonationID  string    `json:"donation_id"`
	PaymentID   string    `json:"payment_id"`
	OrderID     string    `json:"order_id"`
	Amount      string    `json:"amount"`
	Currency    string    `json:"currency"`
	CompletedAt time.Time `json:"completed_at"`
}

const subscriberBuffer = 8

// Bus fans DonationCompleted events out to subscribers. A slow
// subscriber drops events rather than blocking the settlement path.
type Bus struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan DonationCompleted
	logger *slog.Logger
}

// NewBus creates an event bus.
func NewBus(logger *slog.Logger) *Bus {
	return &Bus{
		subs:   make(map[int]chan DonationCompleted),
		logger: logger,
	}
}

// Subscribe returns a channel of completed donations and a cancel
// function. Cancel closes the channel and releases the subscription.
func (b *Bus) Subscribe() (<-chan DonationCompleted, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan DonationCompleted, subscriberBuffer)
	b.subs[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Publish delivers the event to every subscriber.
func (b *Bus) Publish(ev DonationCompleted) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			b.logger.Warn("dropping event for slow subscriber", "subscriber", id, "donation", ev.DonationID)
		}
	}
}
