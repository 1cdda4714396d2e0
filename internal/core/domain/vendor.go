package domain

import "time"

// Vendor is a supplier that production orders are placed with.
type Vendor struct {
	ID            string    `json:"id"             yaml:"id"`
	Name          string    `json:"name"           yaml:"name"`
	ContactPerson string    `json:"contact_person" yaml:"contact_person"`
	Email         string    `json:"email"          yaml:"email"`
	Phone         string    `json:"phone"          yaml:"phone"`
	Address       string    `json:"address"        yaml:"address"`
	CreatedAt     time.Time `json:"created_at"     yaml:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"     yaml:"updated_at"`
}

// VendorInput carries the writable vendor fields. On update, nil fields are
// left unchanged by the backend.
type VendorInput struct {
	Name          *string `json:"name,omitempty"           validate:"omitempty,min=1"`
	ContactPerson *string `json:"contact_person,omitempty"`
	Email         *string `json:"email,omitempty"          validate:"omitempty,email"`
	Phone         *string `json:"phone,omitempty"`
	Address       *string `json:"address,omitempty"`
}
