package httpclient

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/optiflow/optiflow/internal/core/domain"
	"github.com/optiflow/optiflow/internal/core/ports"
	"github.com/optiflow/optiflow/internal/metrics"
)

const requestIDHeader = "X-Request-ID"

type anonymousKey struct{}

// WithoutAuth marks requests made with ctx as anonymous: the gateway neither
// attaches the stored token nor reacts to their 401s.
func WithoutAuth(ctx context.Context) context.Context {
	return context.WithValue(ctx, anonymousKey{}, true)
}

func isAnonymous(ctx context.Context) bool {
	v, _ := ctx.Value(anonymousKey{}).(bool)
	return v
}

// Gateway is the http.RoundTripper every backend request passes through.
//
// Outbound, it attaches the stored token unless the request already has an
// Authorization header. Inbound, a 401 on a request that presented the stored
// token erases that token and publishes an auth-lost event. Every other
// response and every transport error is returned untouched. The gateway never
// retries and never refreshes.
type Gateway struct {
	next   http.RoundTripper
	tokens ports.TokenRepository
	events ports.AuthLostPublisher
	log    zerolog.Logger

	// mu serialises compare-and-clear so concurrent 401s for one token
	// produce a single clear and a single event.
	mu sync.Mutex
}

// NewGateway wraps next; a nil next means http.DefaultTransport.
func NewGateway(next http.RoundTripper, tokens ports.TokenRepository, events ports.AuthLostPublisher, log zerolog.Logger) *Gateway {
	if next == nil {
		next = http.DefaultTransport
	}
	return &Gateway{
		next:   next,
		tokens: tokens,
		events: events,
		log:    log.With().Str("component", "gateway").Logger(),
	}
}

func (g *Gateway) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	out := req.Clone(ctx)

	var presented string
	switch {
	case isAnonymous(ctx):
	case out.Header.Get("Authorization") != "":
		presented = bearerToken(out.Header.Get("Authorization"))
	default:
		token, err := g.tokens.Get(ctx)
		if err != nil {
			g.log.Warn().Err(err).Msg("failed to read stored token, sending request without it")
		}
		if token != "" {
			out.Header.Set("Authorization", "Bearer "+token)
			presented = token
		}
	}
	if out.Header.Get(requestIDHeader) == "" {
		out.Header.Set(requestIDHeader, uuid.NewString())
	}

	start := time.Now()
	resp, err := g.next.RoundTrip(out)
	metrics.RequestDuration.WithLabelValues(out.Method).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.GatewayTransportErrorsTotal.Inc()
		return nil, err
	}
	metrics.GatewayRequestsTotal.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()

	g.log.Debug().
		Str("method", out.Method).
		Str("url", out.URL.Redacted()).
		Int("status", resp.StatusCode).
		Str("request_id", out.Header.Get(requestIDHeader)).
		Msg("backend response")

	if resp.StatusCode == http.StatusUnauthorized && presented != "" {
		g.revoke(ctx, out, presented)
	}
	return resp, nil
}

// revoke erases the stored token only if it is still the one the request
// presented, so a newer token from a concurrent sign-in survives.
func (g *Gateway) revoke(ctx context.Context, req *http.Request, presented string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	stored, err := g.tokens.Get(ctx)
	if err != nil {
		g.log.Warn().Err(err).Msg("failed to read stored token after 401")
		return
	}
	if stored != presented {
		return
	}
	if err := g.tokens.Clear(ctx); err != nil {
		g.log.Error().Err(err).Msg("failed to erase rejected token")
		return
	}

	metrics.GatewayAuthLostTotal.Inc()
	g.log.Info().Str("method", req.Method).Str("url", req.URL.Redacted()).Msg("token rejected by backend")
	g.events.PublishAuthLost(domain.AuthLostEvent{
		Token:  presented,
		Method: req.Method,
		URL:    req.URL.Redacted(),
		At:     time.Now(),
	})
}

func bearerToken(header string) string {
	const prefix = "bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}
