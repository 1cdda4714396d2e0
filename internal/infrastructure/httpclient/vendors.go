package httpclient

import (
	"context"
	"net/url"

	"github.com/optiflow/optiflow/internal/core/domain"
)

// VendorsAPI implements ports.VendorAPI.
type VendorsAPI struct {
	c *Client
}

func NewVendorsAPI(c *Client) *VendorsAPI {
	return &VendorsAPI{c: c}
}

func (a *VendorsAPI) List(ctx context.Context, search string) ([]domain.Vendor, error) {
	q := url.Values{}
	if search != "" {
		q.Set("search", search)
	}
	resp, err := a.c.doRequest(ctx, "GET", "/vendors", nil, withQuery(q))
	if err != nil {
		return nil, err
	}

	vendors := []domain.Vendor{}
	if err := parseResponse(resp, &vendors); err != nil {
		return nil, err
	}
	return vendors, nil
}

func (a *VendorsAPI) Get(ctx context.Context, id string) (*domain.Vendor, error) {
	resp, err := a.c.doRequest(ctx, "GET", "/vendors/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}

	var vendor domain.Vendor
	if err := parseResponse(resp, &vendor); err != nil {
		return nil, err
	}
	return &vendor, nil
}

func (a *VendorsAPI) Create(ctx context.Context, in domain.VendorInput) (*domain.Vendor, error) {
	resp, err := a.c.doRequest(ctx, "POST", "/vendors", in)
	if err != nil {
		return nil, err
	}

	var vendor domain.Vendor
	if err := parseResponse(resp, &vendor); err != nil {
		return nil, err
	}
	return &vendor, nil
}

// Update sends only the non-nil fields of in.
func (a *VendorsAPI) Update(ctx context.Context, id string, in domain.VendorInput) (*domain.Vendor, error) {
	resp, err := a.c.doRequest(ctx, "PUT", "/vendors/"+url.PathEscape(id), in)
	if err != nil {
		return nil, err
	}

	var vendor domain.Vendor
	if err := parseResponse(resp, &vendor); err != nil {
		return nil, err
	}
	return &vendor, nil
}

func (a *VendorsAPI) Delete(ctx context.Context, id string) error {
	resp, err := a.c.doRequest(ctx, "DELETE", "/vendors/"+url.PathEscape(id), nil)
	if err != nil {
		return err
	}
	return parseResponse(resp, nil)
}
