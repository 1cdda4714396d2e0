// Package health reports whether the client's dependencies are usable.
package health

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/optiflow/optiflow/internal/core/ports"
)

const defaultTimeout = 3 * time.Second

const (
	StatusOK        = "ok"
	StatusUnhealthy = "unhealthy"
	StatusDegraded  = "degraded"
)

type DependencyStatus struct {
	Status string `json:"status"          yaml:"status"`
	Error  string `json:"error,omitempty" yaml:"error,omitempty"`
}

type Report struct {
	Status       string                      `json:"status"       yaml:"status"`
	Dependencies map[string]DependencyStatus `json:"dependencies" yaml:"dependencies"`
}

// Healthy reports whether every dependency answered.
func (r Report) Healthy() bool { return r.Status == StatusOK }

// Names returns the dependency names in a stable order.
func (r Report) Names() []string {
	names := make([]string, 0, len(r.Dependencies))
	for name := range r.Dependencies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Checker probes the backend and any registered dependencies concurrently.
type Checker struct {
	apiURL  string
	client  *http.Client
	pingers map[string]ports.Pinger
	timeout time.Duration
}

// NewChecker probes apiURL with client. client should be a plain client:
// the probe is anonymous and must not trip the authorization gateway.
func NewChecker(apiURL string, client *http.Client) *Checker {
	if client == nil {
		client = http.DefaultClient
	}
	return &Checker{
		apiURL:  apiURL,
		client:  client,
		pingers: make(map[string]ports.Pinger),
		timeout: defaultTimeout,
	}
}

// Register adds a named dependency.
func (c *Checker) Register(name string, p ports.Pinger) {
	c.pingers[name] = p
}

func (c *Checker) Check(ctx context.Context) Report {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var (
		mu   sync.Mutex
		wg   sync.WaitGroup
		deps = make(map[string]DependencyStatus, len(c.pingers)+1)
	)
	record := func(name string, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			deps[name] = DependencyStatus{Status: StatusUnhealthy, Error: err.Error()}
			return
		}
		deps[name] = DependencyStatus{Status: StatusOK}
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		record("api", c.probeAPI(ctx))
	}()
	for name, p := range c.pingers {
		wg.Add(1)
		go func(name string, p ports.Pinger) {
			defer wg.Done()
			record(name, p.Ping(ctx))
		}(name, p)
	}
	wg.Wait()

	status := StatusOK
	for _, d := range deps {
		if d.Status != StatusOK {
			status = StatusDegraded
			break
		}
	}
	return Report{Status: status, Dependencies: deps}
}

// probeAPI treats any response below 500 as reachable.
func (c *Checker) probeAPI(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL, nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode >= 500 {
		return fmt.Errorf("backend answered %d", resp.StatusCode)
	}
	return nil
}
