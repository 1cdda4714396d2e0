package domain

import (
	"fmt"
	"time"
)

// OrderStatus is the production state of an order.
type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderInProgress OrderStatus = "in_progress"
	OrderCompleted  OrderStatus = "completed"
)

// OrderStatuses lists every status in display order.
var OrderStatuses = []OrderStatus{OrderPending, OrderInProgress, OrderCompleted}

// ParseOrderStatus validates s against the known statuses.
func ParseOrderStatus(s string) (OrderStatus, error) {
	for _, st := range OrderStatuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: unknown order status %q", ErrValidation, s)
}

// Order is a production order placed with a vendor.
type Order struct {
	ID           string      `json:"id"                  yaml:"id"`
	VendorID     string      `json:"vendor_id"           yaml:"vendor_id"`
	Vendor       *Vendor     `json:"vendor,omitempty"    yaml:"vendor,omitempty"`
	DueDate      time.Time   `json:"due_date"            yaml:"due_date"`
	Status       OrderStatus `json:"status"              yaml:"status"`
	Instructions string      `json:"instructions"        yaml:"instructions"`
	CreatedAt    time.Time   `json:"created_at"          yaml:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"          yaml:"updated_at"`
	UserID       string      `json:"user_id,omitempty"   yaml:"user_id,omitempty"`
	UserName     string      `json:"user_name,omitempty" yaml:"user_name,omitempty"`
}

// OrderInput carries the writable order fields; nil fields are omitted.
type OrderInput struct {
	VendorID     *string      `json:"vendor_id,omitempty"    validate:"omitempty,min=1"`
	DueDate      *time.Time   `json:"due_date,omitempty"`
	Status       *OrderStatus `json:"status,omitempty"       validate:"omitempty,oneof=pending in_progress completed"`
	Instructions *string      `json:"instructions,omitempty"`
}

// OrderFilter narrows an order listing. Zero values are not sent.
type OrderFilter struct {
	VendorID string
	Status   OrderStatus
	DateFrom time.Time
	DateTo   time.Time
	Search   string
}

// CalendarRange bounds a calendar query, inclusive.
type CalendarRange struct {
	Start time.Time
	End   time.Time
}
