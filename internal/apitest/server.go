// Package apitest runs an in-process stand-in for the OptiFlow REST backend.
// It speaks the same wire formats (OAuth2 password form, FastAPI-style
// {"detail"} errors, snake_case JSON) and keeps its data in memory. It exists
// for tests of the client and the CLI; it is not a backend.
package apitest

import (
	"net/http/httptest"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/optiflow/optiflow/internal/core/domain"
)

const jwtSecret = "apitest-secret"

type userRecord struct {
	id           int
	username     string
	passwordHash []byte
	role         domain.Role
	disabled     bool
}

func (u *userRecord) view(withRole bool) domain.User {
	out := domain.User{
		ID:       domain.UserID(strconv.Itoa(u.id)),
		Username: u.username,
		Disabled: u.disabled,
	}
	if withRole {
		out.Role = u.role
	}
	return out
}

// Server is a running backend double. All methods are safe for concurrent use.
type Server struct {
	srv *httptest.Server
	log zerolog.Logger
	now func() time.Time

	omitRoles bool

	mu         sync.Mutex
	users      map[string]*userRecord
	nextUserID int
	vendors    map[string]domain.Vendor
	orders     map[string]domain.Order
	nextID     int
	generation int
	revoked    map[string]struct{}
	hits       map[string]int
}

// Option configures a Server.
type Option func(*Server)

// WithUser seeds an account. An empty role makes /users/me omit it.
func WithUser(username, password string, role domain.Role) Option {
	return func(s *Server) { s.addUser(username, password, role) }
}

// WithoutRoles makes /users/me and /users never report roles.
func WithoutRoles() Option {
	return func(s *Server) { s.omitRoles = true }
}

func WithLogger(log zerolog.Logger) Option {
	return func(s *Server) { s.log = log }
}

// WithVendor seeds a vendor.
func WithVendor(v domain.Vendor) Option {
	return func(s *Server) {
		if v.ID == "" {
			v.ID = s.newID("v")
		}
		s.vendors[v.ID] = v
	}
}

// WithOrder seeds an order.
func WithOrder(o domain.Order) Option {
	return func(s *Server) {
		if o.ID == "" {
			o.ID = s.newID("o")
		}
		s.orders[o.ID] = o
	}
}

// New starts a server; call Close when done.
func New(opts ...Option) *Server {
	s := &Server{
		log:        zerolog.Nop(),
		now:        func() time.Time { return time.Now().UTC() },
		users:      make(map[string]*userRecord),
		nextUserID: 1,
		vendors:    make(map[string]domain.Vendor),
		orders:     make(map[string]domain.Order),
		revoked:    make(map[string]struct{}),
		hits:       make(map[string]int),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.srv = httptest.NewServer(newRouter(s))
	return s
}

// URL is the base URL of the backend.
func (s *Server) URL() string { return s.srv.URL }

func (s *Server) Close() { s.srv.Close() }

// ExpireSessions invalidates every token issued so far.
func (s *Server) ExpireSessions() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
}

// SetDisabled toggles an account.
func (s *Server) SetDisabled(username string, disabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[username]; ok {
		u.disabled = disabled
	}
}

// Hits returns how many requests reached "METHOD /route".
func (s *Server) Hits(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[route]
}

// Revoked reports whether token was invalidated through POST /auth/logout.
func (s *Server) Revoked(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.revoked[token]
	return ok
}

// Order returns a stored order.
func (s *Server) Order(id string) (domain.Order, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	return o, ok
}

func (s *Server) addUser(username, password string, role domain.Role) *userRecord {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	u := &userRecord{
		id:           s.nextUserID,
		username:     username,
		passwordHash: hash,
		role:         role,
	}
	s.nextUserID++
	s.users[username] = u
	return u
}

func (s *Server) newID(prefix string) string {
	s.nextID++
	return prefix + strconv.Itoa(s.nextID)
}
