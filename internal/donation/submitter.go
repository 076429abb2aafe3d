package donation

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"sync"

	"github.com/google/uuid"

	"github.com/ameentrust/donorgate/internal/api"
	"github.com/ameentrust/donorgate/internal/gateway"
	"github.com/ameentrust/donorgate/internal/model"
	"github.com/ameentrust/donorgate/internal/settlement"
)

// State tracks where one donation attempt stands.
type State string

const (
	StateIdle         State = "idle"
	StateValidating   State = "validating"
	StateOrderCreated State = "order_created"
	StateGatewayOpen  State = "gateway_open"
	StateVerifying    State = "verifying"
	StateCancelled    State = "cancelled"
	StateSettled      State = "settled"
	StateFailed       State = "failed"
	StateUnknown      State = "unknown"
)

// ErrSubmissionInFlight is returned when a submit arrives while an
// earlier attempt is still running. The caller treats it as a no-op.
var ErrSubmissionInFlight = errors.New("a donation submission is already in progress")

// Submitter drives a donation attempt from form state to a terminal
// outcome. One Submitter serves one donation form; its in-flight flag
// serializes attempts, and every exit path clears it — no outcome may
// leave the form permanently locked.
type Submitter struct {
	backend *api.Client
	bridge  *gateway.Bridge
	settler *settlement.Service
	logger  *slog.Logger

	mu       sync.Mutex
	inFlight bool
	state    State
	order    model.PaymentOrder
}

// NewSubmitter creates a submitter for one donation form.
func NewSubmitter(backend *api.Client, bridge *gateway.Bridge, settler *settlement.Service, logger *slog.Logger) *Submitter {
	return &Submitter{
		backend: backend,
		bridge:  bridge,
		settler: settler,
		logger:  logger,
		state:   StateIdle,
	}
}

// State returns the current attempt state.
func (s *Submitter) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Submit validates the form, creates a payment order, and opens the
// gateway checkout. It returns the checkout URL the donor is sent to.
// A second submit while an attempt is in flight is rejected before any
// network call.
func (s *Submitter) Submit(ctx context.Context, intent model.DonationIntent, contact model.DonorContact) (string, error) {
	if !s.begin() {
		return "", ErrSubmissionInFlight
	}

	req, err := BuildOrder(intent, contact)
	if err != nil {
		s.finish(StateIdle)
		return "", err
	}

	attemptID := uuid.NewString()
	order, err := s.backend.CreateOrder(ctx, req, attemptID)
	if err != nil {
		s.logger.Warn("create order", "attempt", attemptID, "error", err)
		s.finish(StateIdle)
		return "", err
	}
	s.setState(StateOrderCreated)
	s.setOrder(order)

	prefill := gateway.Prefill{}
	if !intent.Anonymous && req.DonorInfo != nil {
		prefill = gateway.Prefill{
			Name:  req.DonorInfo.Name,
			Email: req.DonorInfo.Email,
			Phone: req.DonorInfo.Phone,
		}
	}

	checkoutURL, err := s.bridge.Open(ctx, order, prefill, gateway.Callbacks{
		OnComplete: s.complete,
		OnDismiss:  s.dismiss,
	})
	if err != nil {
		s.logger.Warn("open checkout", "attempt", attemptID, "error", err)
		s.finish(StateIdle)
		return "", err
	}

	s.setState(StateGatewayOpen)
	s.logger.Info("checkout opened", "attempt", attemptID, "order", order.OrderID)
	return checkoutURL, nil
}

// complete runs when the gateway reports a finished checkout. It hands
// the outcome to settlement and returns where to send the donor next.
func (s *Submitter) complete(ctx context.Context, outcome model.PaymentOutcome) string {
	s.setState(StateVerifying)

	s.mu.Lock()
	order := s.order
	s.mu.Unlock()

	result := s.settler.Settle(ctx, order, outcome)
	switch result.Status {
	case settlement.StatusSettled:
		s.finish(StateSettled)
		return settlement.ConfirmationPath(result.Donation.ID, outcome)
	case settlement.StatusUnknown:
		s.finish(StateUnknown)
		q := url.Values{"status": {"unknown"}, "reference": {result.Reference}}
		return "/donation/confirmation?" + q.Encode()
	default:
		s.finish(StateFailed)
		q := url.Values{"error": {result.Message}}
		return "/donate?" + q.Encode()
	}
}

// dismiss runs when the donor cancels at the gateway. Not an error; the
// form becomes resubmittable immediately.
func (s *Submitter) dismiss() string {
	s.finish(StateCancelled)
	return "/donate?cancelled=1"
}

func (s *Submitter) begin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight {
		return false
	}
	s.inFlight = true
	s.state = StateValidating
	s.order = model.PaymentOrder{}
	return true
}

// finish records the terminal state and releases the in-flight lock.
func (s *Submitter) finish(state State) {
	s.mu.Lock()
	s.state = state
	s.inFlight = false
	s.mu.Unlock()
}

func (s *Submitter) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

func (s *Submitter) setOrder(order model.PaymentOrder) {
	s.mu.Lock()
	s.order = order
	s.mu.Unlock()
}
