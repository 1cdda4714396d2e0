package apitest

import (
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/optiflow/optiflow/internal/core/domain"
)

const dateLayout = "2006-01-02"

// --- Vendors ---

type vendorRequest struct {
	Name          *string `json:"name"           validate:"omitempty,min=1"`
	ContactPerson *string `json:"contact_person"`
	Email         *string `json:"email"          validate:"omitempty,email"`
	Phone         *string `json:"phone"`
	Address       *string `json:"address"`
}

func (r vendorRequest) apply(v *domain.Vendor) {
	if r.Name != nil {
		v.Name = *r.Name
	}
	if r.ContactPerson != nil {
		v.ContactPerson = *r.ContactPerson
	}
	if r.Email != nil {
		v.Email = *r.Email
	}
	if r.Phone != nil {
		v.Phone = *r.Phone
	}
	if r.Address != nil {
		v.Address = *r.Address
	}
}

func (s *Server) listVendors(c echo.Context) error {
	search := strings.ToLower(c.QueryParam("search"))

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Vendor, 0, len(s.vendors))
	for _, v := range s.vendors {
		if search != "" && !strings.Contains(strings.ToLower(v.Name), search) {
			continue
		}
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return c.JSON(http.StatusOK, out)
}

func (s *Server) getVendor(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.vendors[c.Param("id")]
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "Vendor not found")
	}
	return c.JSON(http.StatusOK, v)
}

func (s *Server) createVendor(c echo.Context) error {
	var req vendorRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	if req.Name == nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "name is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	v := domain.Vendor{ID: s.newID("v"), CreatedAt: now, UpdatedAt: now}
	req.apply(&v)
	s.vendors[v.ID] = v
	return c.JSON(http.StatusCreated, v)
}

func (s *Server) updateVendor(c echo.Context) error {
	var req vendorRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.vendors[c.Param("id")]
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "Vendor not found")
	}
	req.apply(&v)
	v.UpdatedAt = s.now()
	s.vendors[v.ID] = v
	return c.JSON(http.StatusOK, v)
}

func (s *Server) deleteVendor(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := c.Param("id")
	if _, ok := s.vendors[id]; !ok {
		return echo.NewHTTPError(http.StatusNotFound, "Vendor not found")
	}
	delete(s.vendors, id)
	return c.NoContent(http.StatusNoContent)
}

// --- Orders ---

type orderRequest struct {
	VendorID     *string             `json:"vendor_id"`
	DueDate      *time.Time          `json:"due_date"`
	Status       *domain.OrderStatus `json:"status"       validate:"omitempty,oneof=pending in_progress completed"`
	Instructions *string             `json:"instructions"`
}

func (r orderRequest) apply(o *domain.Order) {
	if r.VendorID != nil {
		o.VendorID = *r.VendorID
	}
	if r.DueDate != nil {
		o.DueDate = *r.DueDate
	}
	if r.Status != nil {
		o.Status = *r.Status
	}
	if r.Instructions != nil {
		o.Instructions = *r.Instructions
	}
}

func parseDate(c echo.Context, name string) (time.Time, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(dateLayout, raw); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, echo.NewHTTPError(http.StatusUnprocessableEntity, name+" must be a date")
	}
	return t, nil
}

func (s *Server) listOrders(c echo.Context) error {
	from, err := parseDate(c, "date_from")
	if err != nil {
		return err
	}
	to, err := parseDate(c, "date_to")
	if err != nil {
		return err
	}
	vendorID := c.QueryParam("vendor_id")
	status := domain.OrderStatus(c.QueryParam("status"))
	search := strings.ToLower(c.QueryParam("search"))

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Order, 0, len(s.orders))
	for _, o := range s.orders {
		switch {
		case vendorID != "" && o.VendorID != vendorID:
			continue
		case status != "" && o.Status != status:
			continue
		case !from.IsZero() && o.DueDate.Before(from):
			continue
		case !to.IsZero() && !o.DueDate.Before(to.AddDate(0, 0, 1)):
			continue
		case search != "" && !strings.Contains(strings.ToLower(o.Instructions), search) &&
			!strings.Contains(strings.ToLower(o.ID), search):
			continue
		}
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return c.JSON(http.StatusOK, out)
}

func (s *Server) getOrder(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[c.Param("id")]
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "Order not found")
	}
	return c.JSON(http.StatusOK, o)
}

func (s *Server) createOrder(c echo.Context) error {
	var req orderRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	if req.VendorID == nil || req.DueDate == nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "vendor_id and due_date are required")
	}
	user := c.Get("user").(*userRecord)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.vendors[*req.VendorID]; !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "Vendor not found")
	}
	now := s.now()
	o := domain.Order{
		ID:        s.newID("o"),
		Status:    domain.OrderPending,
		CreatedAt: now,
		UpdatedAt: now,
		UserID:    string(user.view(false).ID),
		UserName:  user.username,
	}
	req.apply(&o)
	s.orders[o.ID] = o
	return c.JSON(http.StatusCreated, o)
}

func (s *Server) updateOrder(c echo.Context) error {
	var req orderRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[c.Param("id")]
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "Order not found")
	}
	req.apply(&o)
	o.UpdatedAt = s.now()
	s.orders[o.ID] = o
	return c.JSON(http.StatusOK, o)
}

func (s *Server) deleteOrder(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := c.Param("id")
	if _, ok := s.orders[id]; !ok {
		return echo.NewHTTPError(http.StatusNotFound, "Order not found")
	}
	delete(s.orders, id)
	return c.NoContent(http.StatusNoContent)
}

// --- Calendar ---

type calendarEntry struct {
	ID                  string             `json:"id"`
	VendorID            string             `json:"vendor_id"`
	OrderDate           time.Time          `json:"order_date"`
	Status              domain.OrderStatus `json:"status"`
	TotalAmount         float64            `json:"total_amount"`
	SpecialInstructions *string            `json:"special_instructions"`
	DueAt               *time.Time         `json:"due_at"`
}

type rescheduleRequest struct {
	NewDueAt *time.Time `json:"new_due_at"`
}

func (s *Server) calendarRange(c echo.Context) error {
	start, err := time.Parse(time.RFC3339, c.QueryParam("start"))
	if err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "start must be an RFC 3339 timestamp")
	}
	end, err := time.Parse(time.RFC3339, c.QueryParam("end"))
	if err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "end must be an RFC 3339 timestamp")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]calendarEntry, 0)
	for _, o := range s.orders {
		if o.DueDate.Before(start) || o.DueDate.After(end) {
			continue
		}
		entry := calendarEntry{
			ID:        o.ID,
			VendorID:  o.VendorID,
			OrderDate: o.CreatedAt,
			Status:    o.Status,
		}
		if !o.DueDate.IsZero() {
			due := o.DueDate
			entry.DueAt = &due
		}
		if o.Instructions != "" {
			instr := o.Instructions
			entry.SpecialInstructions = &instr
		}
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return c.JSON(http.StatusOK, out)
}

func (s *Server) reschedule(c echo.Context) error {
	var req rescheduleRequest
	if err := c.Bind(&req); err != nil || req.NewDueAt == nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "new_due_at is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[c.Param("id")]
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "Order not found")
	}
	o.DueDate = *req.NewDueAt
	o.UpdatedAt = s.now()
	s.orders[o.ID] = o
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// --- Users (admin) ---

type userUpdateRequest struct {
	Role     *domain.Role `json:"role"`
	Disabled *bool        `json:"disabled"`
}

func (s *Server) listUsers(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u.view(!s.omitRoles))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return c.JSON(http.StatusOK, out)
}

func (s *Server) updateUser(c echo.Context) error {
	var req userUpdateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "invalid payload")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if string(u.view(false).ID) != c.Param("id") {
			continue
		}
		if req.Role != nil {
			u.role = *req.Role
		}
		if req.Disabled != nil {
			u.disabled = *req.Disabled
		}
		return c.JSON(http.StatusOK, u.view(!s.omitRoles))
	}
	return echo.NewHTTPError(http.StatusNotFound, "User not found")
}
