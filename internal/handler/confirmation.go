package handler

import (
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/ameentrust/donorgate/internal/settlement"
)

// confirmationTmpl is deliberately tiny: the real presentation lives in
// the UI in front of this client. This page only has to stand on its
// own after a full reload, built from nothing but URL parameters.
var confirmationTmpl = template.Must(template.New("confirmation").Parse(`<!doctype html>
<title>Donation confirmation</title>
{{if .Unknown}}
<h1>Payment status unknown</h1>
<p>We could not confirm your payment. Please contact support and quote reference <strong>{{.Reference}}</strong>.</p>
{{else}}
<h1>Thank you for your donation</h1>
{{if .DonationID}}<p>Donation reference: <strong>{{.DonationID}}</strong></p>{{end}}
{{if .PaymentID}}<p>Payment ID: {{.PaymentID}}</p>{{end}}
{{if .OrderID}}<p>Order ID: {{.OrderID}}</p>{{end}}
{{end}}
`))

// ConfirmationHandler serves the post-payment confirmation view and the
// reload-safe latest-success lookup.
type ConfirmationHandler struct {
	markers   *settlement.MarkerStore
	freshness time.Duration
	logger    *slog.Logger
}

func NewConfirmationHandler(markers *settlement.MarkerStore, freshness time.Duration, logger *slog.Logger) *ConfirmationHandler {
	return &ConfirmationHandler{markers: markers, freshness: freshness, logger: logger}
}

// Show renders the confirmation view from URL query parameters alone.
// Missing parameters degrade to a generic thanks rather than an error:
// the donor may have reloaded, and in-memory state is gone.
func (h *ConfirmationHandler) Show(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	data := struct {
		Unknown    bool
		Reference  string
		DonationID string
		PaymentID  string
		OrderID    string
	}{
		Unknown:    q.Get("status") == "unknown",
		Reference:  q.Get("reference"),
		DonationID: q.Get("donation_id"),
		PaymentID:  q.Get("payment_id"),
		OrderID:    q.Get("order_id"),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := confirmationTmpl.Execute(w, data); err != nil {
		h.logger.Error("render confirmation", "error", err)
	}
}

// Latest answers with the most recent fresh success marker, letting a
// reloaded dashboard notice a donation it would otherwise have missed.
func (h *ConfirmationHandler) Latest(w http.ResponseWriter, r *http.Request) {
	marker, err := h.markers.LatestFresh(h.freshness)
	if err != nil {
		h.logger.Error("latest success marker", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to read markers"})
		return
	}
	if marker == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no recent donation"})
		return
	}
	writeJSON(w, http.StatusOK, marker)
}
