package httpclient

import (
	"context"
	"net/url"

	"github.com/optiflow/optiflow/internal/core/domain"
)

// dateLayout is the wire format of order filter dates.
const dateLayout = "2006-01-02"

// OrdersAPI implements ports.OrderAPI.
type OrdersAPI struct {
	c *Client
}

func NewOrdersAPI(c *Client) *OrdersAPI {
	return &OrdersAPI{c: c}
}

func orderQuery(f domain.OrderFilter) url.Values {
	q := url.Values{}
	if f.VendorID != "" {
		q.Set("vendor_id", f.VendorID)
	}
	if f.Status != "" {
		q.Set("status", string(f.Status))
	}
	if !f.DateFrom.IsZero() {
		q.Set("date_from", f.DateFrom.Format(dateLayout))
	}
	if !f.DateTo.IsZero() {
		q.Set("date_to", f.DateTo.Format(dateLayout))
	}
	if f.Search != "" {
		q.Set("search", f.Search)
	}
	return q
}

func (a *OrdersAPI) List(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error) {
	resp, err := a.c.doRequest(ctx, "GET", "/orders", nil, withQuery(orderQuery(filter)))
	if err != nil {
		return nil, err
	}

	orders := []domain.Order{}
	if err := parseResponse(resp, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (a *OrdersAPI) Get(ctx context.Context, id string) (*domain.Order, error) {
	resp, err := a.c.doRequest(ctx, "GET", "/orders/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}

	var order domain.Order
	if err := parseResponse(resp, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (a *OrdersAPI) Create(ctx context.Context, in domain.OrderInput) (*domain.Order, error) {
	resp, err := a.c.doRequest(ctx, "POST", "/orders", in)
	if err != nil {
		return nil, err
	}

	var order domain.Order
	if err := parseResponse(resp, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (a *OrdersAPI) Update(ctx context.Context, id string, in domain.OrderInput) (*domain.Order, error) {
	resp, err := a.c.doRequest(ctx, "PUT", "/orders/"+url.PathEscape(id), in)
	if err != nil {
		return nil, err
	}

	var order domain.Order
	if err := parseResponse(resp, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (a *OrdersAPI) Delete(ctx context.Context, id string) error {
	resp, err := a.c.doRequest(ctx, "DELETE", "/orders/"+url.PathEscape(id), nil)
	if err != nil {
		return err
	}
	return parseResponse(resp, nil)
}
