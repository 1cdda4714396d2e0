package domain

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Role is the permission class of the signed-in user.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleCustomer Role = "customer"
)

// User is the identity record returned by GET /users/me.
type User struct {
	ID       UserID `json:"id,omitempty"       yaml:"id,omitempty"`
	Username string `json:"username"           yaml:"username"`
	Disabled bool   `json:"disabled,omitempty" yaml:"disabled,omitempty"`
	Role     Role   `json:"role,omitempty"     yaml:"role,omitempty"`
}

// UserID accepts both string and numeric ids from the backend.
type UserID string

func (id *UserID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*id = ""
		return nil
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = UserID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*id = UserID(n.String())
	return nil
}

// UserUpdate is the admin-editable part of a user. Nil fields are left
// unchanged.
type UserUpdate struct {
	Role     *Role `json:"role,omitempty"     validate:"omitempty,min=1"`
	Disabled *bool `json:"disabled,omitempty"`
}

// AdminSet is the configured allow-list of admin usernames, lower-cased.
type AdminSet map[string]struct{}

// ParseAdminSet splits a comma-separated list of usernames. Entries are
// trimmed and lower-cased; blanks are dropped.
func ParseAdminSet(raw string) AdminSet {
	set := make(AdminSet)
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.ToLower(strings.TrimSpace(entry))
		if entry == "" {
			continue
		}
		set[entry] = struct{}{}
	}
	return set
}

// Contains reports whether username is an admin, ignoring case.
func (s AdminSet) Contains(username string) bool {
	if username == "" {
		return false
	}
	_, ok := s[strings.ToLower(username)]
	return ok
}

// ResolveRole returns the server-declared role verbatim when present and
// otherwise infers it from the admin allow-list. It returns "" for a nil user.
func ResolveRole(u *User, admins AdminSet) Role {
	if u == nil {
		return ""
	}
	if u.Role != "" {
		return u.Role
	}
	if admins.Contains(u.Username) {
		return RoleAdmin
	}
	return RoleCustomer
}
