package model

import "time"

// PaymentOrder is the gateway-ready order produced by the backend.
// The client hands it to the checkout overlay and otherwise treats it
// as opaque.
type PaymentOrder struct {
	OrderID    string `json:"orderId"`
	Amount     string `json:"amount"`
	Currency   string `json:"currency"`
	GatewayKey string `json:"key"`
}

// PaymentOutcome is the gateway's completion callback payload. It is
// forwarded to the backend verbatim, exactly once per checkout.
type PaymentOutcome struct {
	GatewayOrderID   string `json:"orderId"`
	GatewayPaymentID string `json:"paymentId"`
	GatewaySignature string `json:"signature"`
}

// DonationRecord is the backend's record of a verified donation.
type DonationRecord struct {
	ID string `json:"id"`
}

// SuccessMarker is the persisted proof of a verified payment. It lets the
// confirmation view survive a full reload; CreatedAt bounds how long a
// marker is considered fresh.
type SuccessMarker struct {
	DonationID string    `json:"donation_id"`
	PaymentID  string    `json:"payment_id"`
	OrderID    string    `json:"order_id"`
	CreatedAt  time.Time `json:"created_at"`
}
