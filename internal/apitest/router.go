package apitest

import (
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
)

func newRouter(s *Server) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = newHTTPErrorHandler(s.log)
	e.Validator = newValidator()

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(s.countHits)

	auth := s.authenticate()
	admin := requireRole("admin")

	// --- Auth routes ---
	e.POST("/auth/token", s.issueToken)
	e.POST("/users/", s.register)
	e.GET("/users/me", s.me, auth)
	e.POST("/auth/logout", s.logout, auth)

	// --- Resources ---
	e.GET("/vendors", s.listVendors, auth)
	e.POST("/vendors", s.createVendor, auth)
	e.GET("/vendors/:id", s.getVendor, auth)
	e.PUT("/vendors/:id", s.updateVendor, auth)
	e.DELETE("/vendors/:id", s.deleteVendor, auth)

	e.GET("/orders", s.listOrders, auth)
	e.POST("/orders", s.createOrder, auth)
	e.GET("/orders/:id", s.getOrder, auth)
	e.PUT("/orders/:id", s.updateOrder, auth)
	e.DELETE("/orders/:id", s.deleteOrder, auth)

	e.GET("/calendar", s.calendarRange, auth)
	e.PUT("/calendar/:id", s.reschedule, auth)

	e.GET("/users", s.listUsers, auth, admin)
	e.PUT("/users/:id", s.updateUser, auth, admin)

	return e
}

func (s *Server) countHits(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		err := next(c)
		s.mu.Lock()
		s.hits[c.Request().Method+" "+c.Path()]++
		s.mu.Unlock()
		return err
	}
}
