package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/optiflow/optiflow/internal/core/domain"
	"github.com/optiflow/optiflow/internal/core/ports"
	"github.com/optiflow/optiflow/internal/metrics"
)

// SessionStore is the single source of truth for who is signed in. It is
// owned by the application root; nothing else talks to the auth endpoints.
type SessionStore struct {
	api    ports.AuthAPI
	tokens ports.TokenRepository
	events ports.SessionEvents
	admins domain.AdminSet
	log    zerolog.Logger

	// revokeOnLogout enables the best-effort POST /auth/logout.
	revokeOnLogout bool

	mu    sync.RWMutex
	state domain.Session
	busy  bool

	bootstrap singleflight.Group
}

// SessionOption tweaks a SessionStore at construction.
type SessionOption func(*SessionStore)

// WithServerRevocation makes Logout ask the backend to invalidate the token.
func WithServerRevocation() SessionOption {
	return func(s *SessionStore) { s.revokeOnLogout = true }
}

// NewSessionStore returns an empty store and subscribes it to auth-lost
// events so a token rejected by the transport signs the user out before the
// rejected request returns.
func NewSessionStore(
	api ports.AuthAPI,
	tokens ports.TokenRepository,
	events ports.SessionEvents,
	admins domain.AdminSet,
	log zerolog.Logger,
	opts ...SessionOption,
) (*SessionStore, error) {
	s := &SessionStore{
		api:    api,
		tokens: tokens,
		events: events,
		admins: admins,
		log:    log.With().Str("component", "session").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := events.OnAuthLostSync(s.handleAuthLost); err != nil {
		return nil, fmt.Errorf("subscribe auth-lost: %w", err)
	}
	return s, nil
}

// Snapshot returns a copy of the current session.
func (s *SessionStore) Snapshot() domain.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// Bootstrap restores the session from the stored token. Without a token it is
// a no-op. A token the backend no longer accepts is erased silently. Calls
// that overlap share a single request.
func (s *SessionStore) Bootstrap(ctx context.Context) error {
	_, err, _ := s.bootstrap.Do("bootstrap", func() (any, error) {
		return nil, s.doBootstrap(ctx)
	})
	return err
}

func (s *SessionStore) doBootstrap(ctx context.Context) error {
	token, err := s.tokens.Get(ctx)
	if err != nil {
		return fmt.Errorf("bootstrap: read token: %w", err)
	}
	if token == "" {
		metrics.SessionOperationsTotal.WithLabelValues("bootstrap", "skipped").Inc()
		return nil
	}

	s.update(func(st *domain.Session) {
		st.Token = token
		st.Loading = true
	})

	user, err := s.api.CurrentUser(ctx, token)
	if err != nil {
		s.log.Debug().Err(err).Msg("stored token rejected, starting anonymous")
		if clearErr := s.tokens.Clear(ctx); clearErr != nil {
			s.log.Warn().Err(clearErr).Msg("failed to erase rejected token")
		}
		s.update(func(st *domain.Session) {
			*st = domain.Session{}
		})
		metrics.SessionOperationsTotal.WithLabelValues("bootstrap", "expired").Inc()
		return nil
	}

	s.update(func(st *domain.Session) {
		st.Token = token
		st.User = user
		st.Role = domain.ResolveRole(user, s.admins)
		st.Loading = false
	})
	metrics.SessionOperationsTotal.WithLabelValues("bootstrap", "ok").Inc()
	return nil
}

// Login exchanges credentials for a token and resolves the user behind it.
// The token is persisted only once the user is known, so a failure at either
// step leaves nothing behind. The returned error wraps
// domain.ErrInvalidCredentials; Session.Error carries the display message.
func (s *SessionStore) Login(ctx context.Context, username, password string) error {
	if !s.begin() {
		metrics.SessionOperationsTotal.WithLabelValues("login", "busy").Inc()
		return domain.ErrAuthInProgress
	}
	defer s.end()

	err := s.login(ctx, username, password)
	s.recordResult("login", err)
	return err
}

func (s *SessionStore) login(ctx context.Context, username, password string) error {
	s.update(func(st *domain.Session) {
		st.Loading = true
		st.Error = ""
	})

	token, err := s.api.IssueToken(ctx, username, password)
	if err == nil && token.AccessToken == "" {
		err = errors.New("empty access token")
	}
	if err != nil {
		return s.failLogin(ctx, fmt.Errorf("login: issue token: %w", err))
	}

	user, err := s.api.CurrentUser(ctx, token.AccessToken)
	if err != nil {
		return s.failLogin(ctx, fmt.Errorf("login: resolve user: %w", err))
	}

	if err := s.tokens.Set(ctx, token.AccessToken); err != nil {
		s.update(func(st *domain.Session) {
			*st = domain.Session{Error: domain.MsgSessionNotSaved}
		})
		return fmt.Errorf("login: persist token: %w", err)
	}

	s.update(func(st *domain.Session) {
		*st = domain.Session{
			Token: token.AccessToken,
			User:  user,
			Role:  domain.ResolveRole(user, s.admins),
		}
	})
	s.log.Info().Str("username", user.Username).Str("role", string(s.Snapshot().Role)).Msg("signed in")
	return nil
}

// failLogin leaves the client anonymous: a token from an earlier session is
// erased too, so the durable slot never disagrees with IsAuthenticated.
func (s *SessionStore) failLogin(ctx context.Context, cause error) error {
	s.log.Debug().Err(cause).Msg("sign-in failed")
	if err := s.tokens.Clear(ctx); err != nil {
		s.log.Warn().Err(err).Msg("failed to erase stored token")
	}
	s.update(func(st *domain.Session) {
		*st = domain.Session{Error: domain.MsgInvalidCredentials}
	})
	return fmt.Errorf("%w: %w", domain.ErrInvalidCredentials, cause)
}

// Register creates the account and then signs in with the same credentials.
// A creation failure records the backend's message and skips the sign-in.
func (s *SessionStore) Register(ctx context.Context, username, password string) error {
	if !s.begin() {
		metrics.SessionOperationsTotal.WithLabelValues("register", "busy").Inc()
		return domain.ErrAuthInProgress
	}
	defer s.end()

	err := s.register(ctx, username, password)
	s.recordResult("register", err)
	return err
}

func (s *SessionStore) register(ctx context.Context, username, password string) error {
	s.update(func(st *domain.Session) {
		st.Loading = true
		st.Error = ""
	})

	if _, err := s.api.CreateUser(ctx, username, password); err != nil {
		msg := domain.MsgRegistrationFailed
		var described interface{ UserMessage() string }
		if errors.As(err, &described) && described.UserMessage() != "" {
			msg = described.UserMessage()
		}
		s.update(func(st *domain.Session) {
			st.Loading = false
			st.Error = msg
		})
		return fmt.Errorf("%w: %w", domain.ErrRegistrationFailed, err)
	}

	s.log.Info().Str("username", username).Msg("account created")
	return s.login(ctx, username, password)
}

// Logout erases the stored token and resets the session. It never fails and
// the local reset never depends on the network. When server revocation is
// enabled the old token is sent to the backend afterwards, best effort.
func (s *SessionStore) Logout(ctx context.Context) {
	token, err := s.tokens.Get(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("failed to read stored token")
	}
	if token == "" {
		token = s.Snapshot().Token
	}

	if err := s.tokens.Clear(ctx); err != nil {
		s.log.Warn().Err(err).Msg("failed to erase stored token")
	}
	s.update(func(st *domain.Session) {
		*st = domain.Session{Loading: st.Loading}
	})
	metrics.SessionOperationsTotal.WithLabelValues("logout", "ok").Inc()

	if s.revokeOnLogout && token != "" {
		if err := s.api.RevokeToken(ctx, token); err != nil {
			s.log.Warn().Err(err).Msg("server-side logout failed")
		}
	}
}

// handleAuthLost runs when the transport erased a rejected token. A session
// that already moved on to another token is left alone.
func (s *SessionStore) handleAuthLost(ev domain.AuthLostEvent) {
	reset := s.updateIf(func(st *domain.Session) bool {
		if st.Token == "" || st.Token != ev.Token {
			return false
		}
		*st = domain.Session{Loading: st.Loading}
		return true
	})
	if !reset {
		s.log.Debug().Str("method", ev.Method).Str("url", ev.URL).Msg("ignoring auth-lost for a token no longer in use")
		return
	}
	s.log.Info().Str("method", ev.Method).Str("url", ev.URL).Msg("token rejected, signed out")
}

func (s *SessionStore) begin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return false
	}
	s.busy = true
	return true
}

func (s *SessionStore) end() {
	s.mu.Lock()
	s.busy = false
	s.mu.Unlock()
}

// update applies fn under the lock and announces the new state.
func (s *SessionStore) update(fn func(*domain.Session)) {
	s.updateIf(func(st *domain.Session) bool {
		fn(st)
		return true
	})
}

// updateIf is update for changes decided under the lock; nothing is
// announced when fn reports no change.
func (s *SessionStore) updateIf(fn func(*domain.Session) bool) bool {
	s.mu.Lock()
	changed := fn(&s.state)
	snapshot := s.state.Clone()
	s.mu.Unlock()

	if changed {
		s.events.PublishSessionChanged(snapshot)
	}
	return changed
}

func (s *SessionStore) recordResult(op string, err error) {
	result := "ok"
	if err != nil {
		result = "failed"
	}
	metrics.SessionOperationsTotal.WithLabelValues(op, result).Inc()
}
