package domain

import "time"

// SessionState is the coarse lifecycle position of a Session.
type SessionState string

const (
	StateAnonymous      SessionState = "anonymous"
	StateAuthenticating SessionState = "authenticating"
	StateAuthenticated  SessionState = "authenticated"
)

// Session is a point-in-time view of who is signed in. The token is the only
// part that outlives the process; user and role are always re-derived from it.
type Session struct {
	User    *User
	Token   string
	Role    Role
	Loading bool
	Error   string
}

// IsAuthenticated is true only when both a token and a resolved user exist.
func (s Session) IsAuthenticated() bool {
	return s.Token != "" && s.User != nil
}

// State maps the session onto the anonymous/authenticating/authenticated machine.
func (s Session) State() SessionState {
	switch {
	case s.Loading:
		return StateAuthenticating
	case s.IsAuthenticated():
		return StateAuthenticated
	default:
		return StateAnonymous
	}
}

// Clone returns a copy that does not share the User pointer.
func (s Session) Clone() Session {
	if s.User != nil {
		u := *s.User
		s.User = &u
	}
	return s
}

// TokenResponse is the body of a successful POST /auth/token.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// AuthLostEvent is emitted when an authenticated request was rejected with
// 401 and the stored token has been erased. Token is the rejected token.
type AuthLostEvent struct {
	Token  string
	Method string
	URL    string
	At     time.Time
}
