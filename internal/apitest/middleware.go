package apitest

import (
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type tokenClaims struct {
	Generation int `json:"gen"`
	jwt.RegisteredClaims
}

func (s *Server) signToken(username string) (string, error) {
	now := s.now()
	claims := tokenClaims{
		Generation: s.generation,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(24 * time.Hour)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(jwtSecret))
}

// authenticate validates the bearer token and injects the user record.
func (s *Server) authenticate() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				return echo.NewHTTPError(http.StatusUnauthorized, "Not authenticated")
			}

			var claims tokenClaims
			tkn, err := jwt.ParseWithClaims(parts[1], &claims, func(token *jwt.Token) (interface{}, error) {
				if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
					return nil, jwt.ErrTokenSignatureInvalid
				}
				return []byte(jwtSecret), nil
			})
			if err != nil || !tkn.Valid {
				return echo.NewHTTPError(http.StatusUnauthorized, "Could not validate credentials")
			}

			s.mu.Lock()
			_, revoked := s.revoked[parts[1]]
			stale := claims.Generation != s.generation
			user, ok := s.users[claims.Subject]
			s.mu.Unlock()
			if revoked || stale || !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "Could not validate credentials")
			}

			c.Set("user", user)
			c.Set("token", parts[1])
			return next(c)
		}
	}
}

// requireRole rejects users whose stored role is not one of allowed.
func requireRole(allowedRoles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]struct{}, len(allowedRoles))
	for _, r := range allowedRoles {
		allowed[r] = struct{}{}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user, _ := c.Get("user").(*userRecord)
			if user == nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "Not authenticated")
			}
			if _, ok := allowed[string(user.role)]; !ok {
				return echo.NewHTTPError(http.StatusForbidden, "Not enough permissions")
			}
			return next(c)
		}
	}
}
