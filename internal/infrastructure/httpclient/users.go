package httpclient

import (
	"context"
	"net/url"

	"github.com/optiflow/optiflow/internal/core/domain"
)

// UsersAPI implements ports.UserAPI. The backend restricts it to admins.
type UsersAPI struct {
	c *Client
}

func NewUsersAPI(c *Client) *UsersAPI {
	return &UsersAPI{c: c}
}

func (a *UsersAPI) List(ctx context.Context) ([]domain.User, error) {
	resp, err := a.c.doRequest(ctx, "GET", "/users", nil)
	if err != nil {
		return nil, err
	}

	users := []domain.User{}
	if err := parseResponse(resp, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (a *UsersAPI) Update(ctx context.Context, id string, in domain.UserUpdate) (*domain.User, error) {
	resp, err := a.c.doRequest(ctx, "PUT", "/users/"+url.PathEscape(id), in)
	if err != nil {
		return nil, err
	}

	var user domain.User
	if err := parseResponse(resp, &user); err != nil {
		return nil, err
	}
	return &user, nil
}
