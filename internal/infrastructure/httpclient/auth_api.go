package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/optiflow/optiflow/internal/core/domain"
)

// AuthAPI implements ports.AuthAPI. Its requests are anonymous to the
// gateway: the session store decides what a rejected token means here.
type AuthAPI struct {
	c *Client
}

func NewAuthAPI(c *Client) *AuthAPI {
	return &AuthAPI{c: c}
}

type createUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// IssueToken exchanges credentials for a bearer token (OAuth2 password form).
func (a *AuthAPI) IssueToken(ctx context.Context, username, password string) (*domain.TokenResponse, error) {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	resp, err := a.c.doForm(WithoutAuth(ctx), "/auth/token", form)
	if err != nil {
		return nil, err
	}

	var token domain.TokenResponse
	if err := parseResponse(resp, &token); err != nil {
		return nil, err
	}
	return &token, nil
}

func (a *AuthAPI) CreateUser(ctx context.Context, username, password string) (*domain.User, error) {
	resp, err := a.c.doRequest(WithoutAuth(ctx), "POST", "/users/", createUserRequest{
		Username: username,
		Password: password,
	})
	if err != nil {
		return nil, err
	}

	var user domain.User
	if err := parseResponse(resp, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// CurrentUser resolves the user behind token. It never falls back to the
// stored token, and a response without a username is an error.
func (a *AuthAPI) CurrentUser(ctx context.Context, token string) (*domain.User, error) {
	if token == "" {
		return nil, fmt.Errorf("resolve user: %w", domain.ErrNotAuthenticated)
	}
	resp, err := a.c.doRequest(WithoutAuth(ctx), "GET", "/users/me", nil, withBearer(token))
	if err != nil {
		return nil, err
	}

	var user domain.User
	if err := parseResponse(resp, &user); err != nil {
		return nil, err
	}
	if user.Username == "" {
		return nil, errors.New("resolve user: response has no username")
	}
	return &user, nil
}

func (a *AuthAPI) RevokeToken(ctx context.Context, token string) error {
	resp, err := a.c.doRequest(WithoutAuth(ctx), "POST", "/auth/logout", nil, withBearer(token))
	if err != nil {
		return err
	}
	return parseResponse(resp, nil)
}
