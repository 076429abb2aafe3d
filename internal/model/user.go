package model

// Address is the postal block attached to users and donor contacts.
// District carries the free-text state name when State is "Other".
type Address struct {
	City     string `json:"city,omitempty"`
	State    string `json:"state,omitempty"`
	District string `json:"district,omitempty"`
	Pincode  string `json:"pincode,omitempty"`
}

// User is the backend's view of an authenticated account.
type User struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Email      string  `json:"email"`
	Phone      string  `json:"phone,omitempty"`
	Profession string  `json:"profession,omitempty"`
	Role       string  `json:"role"`
	Address    Address `json:"address"`
}

// TokenPair is the credential material issued by the backend on
// login and registration.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Empty reports whether the pair carries no usable credential.
func (p TokenPair) Empty() bool {
	return p.AccessToken == "" && p.RefreshToken == ""
}
