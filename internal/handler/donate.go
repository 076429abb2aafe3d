package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/ameentrust/donorgate/internal/donation"
	"github.com/ameentrust/donorgate/internal/model"
	"github.com/ameentrust/donorgate/internal/session"
)

// DonateHandler accepts donation submissions from the local UI and
// drives the submitter.
type DonateHandler struct {
	submitter *donation.Submitter
	sessions  *session.Manager
	logger    *slog.Logger
}

func NewDonateHandler(submitter *donation.Submitter, sessions *session.Manager, logger *slog.Logger) *DonateHandler {
	return &DonateHandler{submitter: submitter, sessions: sessions, logger: logger}
}

type donateRequest struct {
	Intent  model.DonationIntent `json:"intent"`
	Contact model.DonorContact   `json:"contact"`
}

// Submit validates and submits one donation attempt, answering with the
// checkout URL the UI navigates to. Guest donations are welcome: no
// session is required, and the contact block always comes from the form,
// never from the session behind the caller's back.
func (h *DonateHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req donateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	// An expiring token is refreshed before the order call so the
	// donation is attributed to a live session when one exists.
	if err := h.sessions.EnsureFresh(r.Context()); err != nil {
		h.logger.Debug("identity refresh before donate", "error", err)
	}

	checkoutURL, err := h.submitter.Submit(r.Context(), req.Intent, req.Contact)
	if err != nil {
		var vErr *donation.ValidationError
		switch {
		case errors.Is(err, donation.ErrSubmissionInFlight):
			writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		case errors.As(err, &vErr):
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": vErr.Message,
				"field": vErr.Field,
			})
		default:
			writeBackendError(w, err)
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"checkoutUrl": checkoutURL})
}

// State reports the current attempt state so the UI can reflect
// processing progress.
func (h *DonateHandler) State(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"state": string(h.submitter.State())})
}
