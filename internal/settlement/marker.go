package settlement

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/ameentrust/donorgate/internal/model"
)

// MarkerStore persists success markers so the confirmation step survives
// a full reload of whatever UI sits in front of this client.
type MarkerStore struct {
	db *sql.DB
}

func NewMarkerStore(db *sql.DB) *MarkerStore {
	return &MarkerStore{db: db}
}

// Write records a success marker with a fresh timestamp.
func (s *MarkerStore) Write(marker model.SuccessMarker) error {
	_, err := s.db.Exec(
		`INSERT INTO success_markers (donation_id, payment_id, order_id, created_at) VALUES (?, ?, ?, ?)`,
		marker.DonationID, marker.PaymentID, marker.OrderID, marker.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert success marker: %w", err)
	}
	return nil
}

// Latest returns the most recent marker, or nil if none exists.
func (s *MarkerStore) Latest() (*model.SuccessMarker, error) {
	row := s.db.QueryRow(
		`SELECT donation_id, payment_id, order_id, created_at FROM success_markers ORDER BY created_at DESC, id DESC LIMIT 1`,
	)
	var m model.SuccessMarker
	err := row.Scan(&m.DonationID, &m.PaymentID, &m.OrderID, &m.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest success marker: %w", err)
	}
	return &m, nil
}

// LatestFresh returns the most recent marker only when it is younger
// than the freshness window. A marker from last week's donation must not
// be mistaken for today's.
func (s *MarkerStore) LatestFresh(window time.Duration) (*model.SuccessMarker, error) {
	m, err := s.Latest()
	if err != nil || m == nil {
		return nil, err
	}
	if time.Since(m.CreatedAt) > window {
		return nil, nil
	}
	return m, nil
}
