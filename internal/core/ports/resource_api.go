package ports

import (
	"context"
	"time"

	"github.com/optiflow/optiflow/internal/core/domain"
)

// VendorAPI manages vendors.
type VendorAPI interface {
	List(ctx context.Context, search string) ([]domain.Vendor, error)
	Get(ctx context.Context, id string) (*domain.Vendor, error)
	Create(ctx context.Context, in domain.VendorInput) (*domain.Vendor, error)
	Update(ctx context.Context, id string, in domain.VendorInput) (*domain.Vendor, error)
	Delete(ctx context.Context, id string) error
}

// OrderAPI manages production orders.
type OrderAPI interface {
	List(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error)
	Get(ctx context.Context, id string) (*domain.Order, error)
	Create(ctx context.Context, in domain.OrderInput) (*domain.Order, error)
	Update(ctx context.Context, id string, in domain.OrderInput) (*domain.Order, error)
	Delete(ctx context.Context, id string) error
}

// CalendarAPI reads and reschedules orders by due date.
type CalendarAPI interface {
	Range(ctx context.Context, r domain.CalendarRange) ([]domain.Order, error)
	Reschedule(ctx context.Context, orderID string, dueAt time.Time) error
}

// UserAPI is the admin-only user management surface.
type UserAPI interface {
	List(ctx context.Context) ([]domain.User, error)
	Update(ctx context.Context, id string, in domain.UserUpdate) (*domain.User, error)
}
