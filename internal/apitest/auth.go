package apitest

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/optiflow/optiflow/internal/core/domain"
)

type registerRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// issueToken is the OAuth2 password flow: form fields in, bearer out.
func (s *Server) issueToken(c echo.Context) error {
	username := c.FormValue("username")
	password := c.FormValue("password")
	if username == "" || password == "" {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "username and password are required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[username]
	if !ok || bcrypt.CompareHashAndPassword(user.passwordHash, []byte(password)) != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "Incorrect username or password")
	}
	if user.disabled {
		return echo.NewHTTPError(http.StatusBadRequest, "Inactive user")
	}

	token, err := s.signToken(username)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, domain.TokenResponse{AccessToken: token, TokenType: "bearer"})
}

func (s *Server) register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[req.Username]; exists {
		return echo.NewHTTPError(http.StatusBadRequest, "Username already registered")
	}
	user := s.addUser(req.Username, req.Password, "")
	return c.JSON(http.StatusOK, user.view(!s.omitRoles))
}

func (s *Server) me(c echo.Context) error {
	user := c.Get("user").(*userRecord)

	s.mu.Lock()
	defer s.mu.Unlock()
	if user.disabled {
		return echo.NewHTTPError(http.StatusBadRequest, "Inactive user")
	}
	return c.JSON(http.StatusOK, user.view(!s.omitRoles))
}

func (s *Server) logout(c echo.Context) error {
	token := c.Get("token").(string)

	s.mu.Lock()
	s.revoked[token] = struct{}{}
	s.mu.Unlock()
	return c.NoContent(http.StatusNoContent)
}
