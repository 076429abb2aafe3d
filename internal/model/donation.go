package model

// Classification is the donor-declared purpose of a donation.
type Classification string

const (
	ClassificationGeneral     Classification = "general"
	ClassificationZakat       Classification = "zakat"
	ClassificationSadaqa      Classification = "sadaqa"
	ClassificationSadaqaJaria Classification = "sadaqa_jaria"
	ClassificationProject     Classification = "project"
	ClassificationFaculty     Classification = "faculty"
)

// Valid reports whether c is one of the recognized classifications.
func (c Classification) Valid() bool {
	switch c {
	case ClassificationGeneral, ClassificationZakat, ClassificationSadaqa,
		ClassificationSadaqaJaria, ClassificationProject, ClassificationFaculty:
		return true
	}
	return false
}

// DonationIntent is the raw form state for one donation attempt.
// Amount is kept as the submitted string; normalization happens during
// validation. ProjectRef/CategoryRef are informational even for the
// project and faculty classifications.
type DonationIntent struct {
	Amount         string         `json:"amount"`
	Currency       string         `json:"currency"`
	Classification Classification `json:"classification"`
	ProjectRef     string         `json:"project,omitempty"`
	CategoryRef    string         `json:"faculty,omitempty"`
	Notes          string         `json:"notes,omitempty"`
	Anonymous      bool           `json:"isAnonymous"`
}

// DonorContact is the caller-supplied contact block. It is validated and
// forwarded only when the donation is not anonymous.
type DonorContact struct {
	Name    string  `json:"name"`
	Email   string  `json:"email"`
	Phone   string  `json:"phone,omitempty"`
	Address Address `json:"address"`
}
