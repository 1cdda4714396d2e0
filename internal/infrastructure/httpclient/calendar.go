package httpclient

import (
	"context"
	"net/url"
	"time"

	"github.com/optiflow/optiflow/internal/core/domain"
)

// CalendarAPI implements ports.CalendarAPI.
type CalendarAPI struct {
	c *Client
}

func NewCalendarAPI(c *Client) *CalendarAPI {
	return &CalendarAPI{c: c}
}

// calendarEntry is the calendar endpoint's own order shape.
type calendarEntry struct {
	ID                  string             `json:"id"`
	VendorID            string             `json:"vendor_id"`
	OrderDate           time.Time          `json:"order_date"`
	Status              domain.OrderStatus `json:"status"`
	TotalAmount         float64            `json:"total_amount"`
	SpecialInstructions *string            `json:"special_instructions"`
	DueAt               *time.Time         `json:"due_at"`
}

// toOrder falls back to the order date when no due date is set.
func (e calendarEntry) toOrder() domain.Order {
	o := domain.Order{
		ID:        e.ID,
		VendorID:  e.VendorID,
		DueDate:   e.OrderDate,
		Status:    e.Status,
		CreatedAt: e.OrderDate,
		UpdatedAt: e.OrderDate,
	}
	if e.DueAt != nil {
		o.DueDate = *e.DueAt
	}
	if e.SpecialInstructions != nil {
		o.Instructions = *e.SpecialInstructions
	}
	return o
}

func (a *CalendarAPI) Range(ctx context.Context, r domain.CalendarRange) ([]domain.Order, error) {
	q := url.Values{}
	q.Set("start", r.Start.Format(time.RFC3339))
	q.Set("end", r.End.Format(time.RFC3339))

	resp, err := a.c.doRequest(ctx, "GET", "/calendar", nil, withQuery(q))
	if err != nil {
		return nil, err
	}

	var entries []calendarEntry
	if err := parseResponse(resp, &entries); err != nil {
		return nil, err
	}

	orders := make([]domain.Order, 0, len(entries))
	for _, e := range entries {
		orders = append(orders, e.toOrder())
	}
	return orders, nil
}

type rescheduleRequest struct {
	NewDueAt time.Time `json:"new_due_at"`
}

// Reschedule moves an order to a new due date.
func (a *CalendarAPI) Reschedule(ctx context.Context, orderID string, dueAt time.Time) error {
	resp, err := a.c.doRequest(ctx, "PUT", "/calendar/"+url.PathEscape(orderID), rescheduleRequest{NewDueAt: dueAt})
	if err != nil {
		return err
	}
	return parseResponse(resp, nil)
}
