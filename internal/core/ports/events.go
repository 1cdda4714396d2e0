package ports

import "github.com/optiflow/optiflow/internal/core/domain"

// AuthLostPublisher is what the transport needs to announce a rejected token.
type AuthLostPublisher interface {
	PublishAuthLost(ev domain.AuthLostEvent)
}

// SessionEvents connects the session store to the rest of the application.
type SessionEvents interface {
	AuthLostPublisher
	OnAuthLost(fn func(domain.AuthLostEvent)) error
	// OnAuthLostSync runs fn on the publisher's goroutine, before
	// PublishAuthLost returns.
	OnAuthLostSync(fn func(domain.AuthLostEvent)) error
	PublishSessionChanged(s domain.Session)
	OnSessionChanged(fn func(domain.Session)) error
}
