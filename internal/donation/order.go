package donation

import (
	"strings"

	"github.com/ameentrust/donorgate/internal/api"
	"github.com/ameentrust/donorgate/internal/model"
)

const (
	// stateOther is the catch-all option in the state dropdown; the
	// free-text district field supplies the real name.
	stateOther = "Other"

	// AnonymousName and AnonymousEmail are the fixed identity used for
	// anonymous donations. No caller- or session-supplied contact field
	// ever replaces them.
	AnonymousName  = "Anonymous"
	AnonymousEmail = "anonymous@donor.invalid"

	defaultCurrency = "INR"
)

// BuildOrder validates form state and assembles the order-creation
// request. It is pure: no network, no session reads. For anonymous
// donations the donor block is the fixed anonymous identity regardless
// of who is logged in; for named donations it is the caller-supplied
// contact verbatim.
func BuildOrder(intent model.DonationIntent, contact model.DonorContact) (api.OrderRequest, error) {
	amount, err := normalizeAmount(intent.Amount)
	if err != nil {
		return api.OrderRequest{}, err
	}

	classification := intent.Classification
	if classification == "" {
		classification = model.ClassificationGeneral
	}
	if !classification.Valid() {
		return api.OrderRequest{}, &ValidationError{Field: "classification", Message: "Please choose a donation type"}
	}

	currency := strings.ToUpper(strings.TrimSpace(intent.Currency))
	if currency == "" {
		currency = defaultCurrency
	}

	req := api.OrderRequest{
		Amount:       amount,
		Currency:     currency,
		DonationType: classification,
		Project:      strings.TrimSpace(intent.ProjectRef),
		Faculty:      strings.TrimSpace(intent.CategoryRef),
		Notes:        strings.TrimSpace(intent.Notes),
		IsAnonymous:  intent.Anonymous,
	}

	if intent.Anonymous {
		req.DonorInfo = &api.DonorInfo{Name: AnonymousName, Email: AnonymousEmail}
		return req, nil
	}

	if err := validateContact(contact); err != nil {
		return api.OrderRequest{}, err
	}

	address := contact.Address
	if address.State == stateOther {
		address.State = strings.TrimSpace(address.District)
		address.District = ""
	}
	req.DonorInfo = &api.DonorInfo{
		Name:    strings.TrimSpace(contact.Name),
		Email:   strings.TrimSpace(contact.Email),
		Phone:   strings.TrimSpace(contact.Phone),
		Address: address,
	}
	return req, nil
}
