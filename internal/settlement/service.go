package settlement

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/ameentrust/donorgate/internal/api"
	"github.com/ameentrust/donorgate/internal/event"
	"github.com/ameentrust/donorgate/internal/model"
)

// Status is the terminal result of a settlement attempt.
type Status int

const (
	// StatusSettled: the backend verified the signature and recorded
	// the donation.
	StatusSettled Status = iota
	// StatusRejected: the backend answered and said no. The gateway
	// identifiers are single-use; a retry needs a fresh order.
	StatusRejected
	// StatusUnknown: the verification deadline passed without a
	// definitive answer. Neither success nor failure may be assumed.
	StatusUnknown
)

// Result is what one settlement attempt resolved to. Reference is only
// set for StatusUnknown and identifies the payment for support followup.
type Result struct {
	Status    Status
	Donation  model.DonationRecord
	Message   string
	Reference string
}

// Config holds settlement configuration.
type Config struct {
	// VerifyDeadline bounds the whole verification phase, including
	// retries of unreachable-backend failures.
	VerifyDeadline time.Duration
}

// Service submits gateway outcomes for verification and records the
// result. The backend is the sole source of truth on authenticity; this
// service never concludes success on its own.
type Service struct {
	backend *api.Client
	markers *MarkerStore
	bus     *event.Bus
	cfg     Config
	logger  *slog.Logger
	now     func() time.Time
}

// NewService creates a settlement service.
func NewService(backend *api.Client, markers *MarkerStore, bus *event.Bus, cfg Config, logger *slog.Logger) *Service {
	if cfg.VerifyDeadline == 0 {
		cfg.VerifyDeadline = 45 * time.Second
	}
	return &Service{
		backend: backend,
		markers: markers,
		bus:     bus,
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
	}
}

// Settle verifies one gateway outcome. Transport failures are retried
// with backoff under the verify deadline; a backend verdict (accept or
// reject) is never retried. Past the deadline the result is Unknown and
// the donor gets a support reference instead of a guess.
func (s *Service) Settle(ctx context.Context, order model.PaymentOrder, outcome model.PaymentOutcome) Result {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.VerifyDeadline)
	defer cancel()

	var donation model.DonationRecord
	backoff := retry.WithMaxDuration(s.cfg.VerifyDeadline, retry.NewExponential(500*time.Millisecond))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		record, err := s.backend.VerifyPayment(ctx, outcome)
		if err != nil {
			if api.IsNetwork(err) {
				return retry.RetryableError(err)
			}
			return err
		}
		donation = record
		return nil
	})

	switch {
	case err == nil:
		return s.settled(order, outcome, donation)
	case ctx.Err() != nil || api.IsNetwork(err):
		ref := fmt.Sprintf("%s/%s", outcome.GatewayOrderID, outcome.GatewayPaymentID)
		s.logger.Error("verification outcome unknown", "reference", ref, "error", err)
		return Result{
			Status:    StatusUnknown,
			Message:   "We could not confirm your payment. Please contact support with this reference.",
			Reference: ref,
		}
	default:
		s.logger.Warn("verification rejected", "order", outcome.GatewayOrderID, "error", err)
		return Result{Status: StatusRejected, Message: api.UserMessage(err)}
	}
}

func (s *Service) settled(order model.PaymentOrder, outcome model.PaymentOutcome, donation model.DonationRecord) Result {
	completedAt := s.now()

	marker := model.SuccessMarker{
		DonationID: donation.ID,
		PaymentID:  outcome.GatewayPaymentID,
		OrderID:    outcome.GatewayOrderID,
		CreatedAt:  completedAt,
	}
	if err := s.markers.Write(marker); err != nil {
		// The donation is verified; a marker write failure only costs
		// reload resilience, not the donation itself.
		s.logger.Error("write success marker", "donation", donation.ID, "error", err)
	}

	s.bus.Publish(event.DonationCompleted{
		DonationID:  donation.ID,
		PaymentID:   outcome.GatewayPaymentID,
		OrderID:     outcome.GatewayOrderID,
		Amount:      order.Amount,
		Currency:    order.Currency,
		CompletedAt: completedAt,
	})

	s.logger.Info("donation settled", "donation", donation.ID, "payment", outcome.GatewayPaymentID)
	return Result{Status: StatusSettled, Donation: donation}
}

// ConfirmationPath builds the confirmation navigation target from URL
// query parameters. In-memory state is useless here: the browser may
// fully reload crossing this boundary.
func ConfirmationPath(donationID string, outcome model.PaymentOutcome) string {
	q := url.Values{}
	if outcome.GatewayPaymentID != "" {
		q.Set("payment_id", outcome.GatewayPaymentID)
	}
	if outcome.GatewayOrderID != "" {
		q.Set("order_id", outcome.GatewayOrderID)
	}
	if donationID != "" {
		q.Set("donation_id", donationID)
	}
	if len(q) == 0 {
		return "/donation/confirmation"
	}
	return "/donation/confirmation?" + q.Encode()
}
