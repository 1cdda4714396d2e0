package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/optiflow/optiflow/internal/core/domain"
)

func newTestClient(t *testing.T, h http.HandlerFunc, tokens *memTokens) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	gw := NewGateway(nil, tokens, &recordingPublisher{}, zerolog.Nop())
	return NewClient(srv.URL+"/", NewHTTPClient(gw, 5*time.Second))
}

func respond(status int, body string) *http.Response {
	return &http.Response{StatusCode: status, Body: io.NopCloser(strings.NewReader(body))}
}

func TestParseResponse_ErrorBodies(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		msg    string
		is     error
	}{
		{"fastapi detail", 400, `{"detail":"Username already registered"}`, "Username already registered", domain.ErrValidation},
		{"fastapi validation list", 422, `{"detail":[{"loc":["body","password"],"msg":"field required"}]}`, "password: field required", domain.ErrValidation},
		{"error field", 409, `{"error":"duplicate vendor"}`, "duplicate vendor", domain.ErrConflict},
		{"message field", 403, `{"message":"admins only"}`, "admins only", domain.ErrForbidden},
		{"plain text", 404, "not here\n", "not here", domain.ErrNotFound},
		{"unauthorized", 401, `{"detail":"Not authenticated"}`, "Not authenticated", domain.ErrUnauthorized},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := parseResponse(respond(tc.status, tc.body), nil)

			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected *APIError, got %T %v", err, err)
			}
			if apiErr.StatusCode != tc.status || apiErr.UserMessage() != tc.msg {
				t.Fatalf("unexpected error %+v", apiErr)
			}
			if !errors.Is(err, tc.is) {
				t.Fatalf("expected errors.Is(%v)", tc.is)
			}
		})
	}
}

func TestParseResponse_ServerErrorHasNoSentinel(t *testing.T) {
	err := parseResponse(respond(500, ""), nil)
	if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("5xx must not map to a client sentinel")
	}
	if err.Error() != "request failed with status 500" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestParseResponse_EmptySuccessBody(t *testing.T) {
	var out map[string]any
	if err := parseResponse(respond(200, ""), &out); err != nil {
		t.Fatalf("empty body should decode to nothing, got %v", err)
	}
}

func TestAuthAPI_IssueTokenSendsForm(t *testing.T) {
	tokens := &memTokens{token: "old"}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/token" || r.Method != http.MethodPost {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Authorization") != "" {
			t.Errorf("token endpoint must not receive a bearer")
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if r.PostForm.Get("username") != "alice" || r.PostForm.Get("password") != "s3cret" {
			t.Errorf("unexpected form %v", r.PostForm)
		}
		_, _ = w.Write([]byte(`{"access_token":"tok","token_type":"bearer"}`))
	}, tokens)

	tok, err := NewAuthAPI(c).IssueToken(context.Background(), "alice", "s3cret")
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	if tok.AccessToken != "tok" || tok.TokenType != "bearer" {
		t.Fatalf("unexpected token %+v", tok)
	}
}

func TestAuthAPI_CurrentUserUsesGivenToken(t *testing.T) {
	tokens := &memTokens{token: "stored"}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer candidate" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"id":7,"username":"alice","role":"admin"}`))
	}, tokens)

	u, err := NewAuthAPI(c).CurrentUser(context.Background(), "candidate")
	if err != nil {
		t.Fatalf("CurrentUser: %v", err)
	}
	if u.ID != "7" || u.Username != "alice" || u.Role != domain.RoleAdmin {
		t.Fatalf("unexpected user %+v", u)
	}
}

func TestAuthAPI_CurrentUserRejectionLeavesStoreAlone(t *testing.T) {
	tokens := &memTokens{token: "stored"}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}, tokens)

	_, err := NewAuthAPI(c).CurrentUser(context.Background(), "stored")
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if tokens.token != "stored" {
		t.Fatalf("the session store, not the gateway, owns /users/me rejections")
	}
}

func TestAuthAPI_CurrentUserEmptyTokenSendsNothing(t *testing.T) {
	var hits int
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits++
		_, _ = w.Write([]byte(`{"id":1,"username":"stored-user"}`))
	}, &memTokens{token: "stored"})

	_, err := NewAuthAPI(c).CurrentUser(context.Background(), "")
	if !errors.Is(err, domain.ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}
	if hits != 0 {
		t.Fatalf("expected no request, got %d", hits)
	}
}

func TestAuthAPI_CurrentUserRejectsAnonymousBody(t *testing.T) {
	for _, body := range []string{"", "{}", `{"id":3,"username":""}`} {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(body))
		}, &memTokens{})

		if u, err := NewAuthAPI(c).CurrentUser(context.Background(), "tok"); err == nil {
			t.Fatalf("body %q: expected error, got user %+v", body, u)
		}
	}
}

func TestAuthAPI_CreateUserPropagatesDetail(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body createUserRequest
		_ = json.NewDecoder(r.Body).Decode(&body)
		if r.URL.Path != "/users/" || body.Username != "taken" {
			t.Errorf("unexpected request %s %+v", r.URL.Path, body)
		}
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"detail":"Username already registered"}`))
	}, &memTokens{})

	_, err := NewAuthAPI(c).CreateUser(context.Background(), "taken", "pw")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.UserMessage() != "Username already registered" {
		t.Fatalf("expected backend message, got %v", err)
	}
}

func TestVendorsAPI_ListSendsSearch(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			t.Errorf("expected gateway to attach the stored token")
		}
		if got := r.URL.Query().Get("search"); got != "acme" {
			t.Errorf("unexpected search %q", got)
		}
		_, _ = w.Write([]byte(`[{"id":"v1","name":"Acme","contact_person":"Ann"}]`))
	}, &memTokens{token: "tok"})

	vendors, err := NewVendorsAPI(c).List(context.Background(), "acme")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(vendors) != 1 || vendors[0].ContactPerson != "Ann" {
		t.Fatalf("unexpected vendors %+v", vendors)
	}
}

func TestVendorsAPI_UpdateSendsOnlySetFields(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		if string(raw) != `{"phone":"555"}` {
			t.Errorf("unexpected body %s", raw)
		}
		_, _ = w.Write([]byte(`{"id":"v1","phone":"555"}`))
	}, &memTokens{})

	phone := "555"
	v, err := NewVendorsAPI(c).Update(context.Background(), "v1", domain.VendorInput{Phone: &phone})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if v.Phone != "555" {
		t.Fatalf("unexpected vendor %+v", v)
	}
}

func TestOrdersAPI_ListEncodesFilter(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("vendor_id") != "v1" || q.Get("status") != "pending" ||
			q.Get("date_from") != "2024-01-01" || q.Get("date_to") != "2024-01-31" {
			t.Errorf("unexpected query %v", q)
		}
		if q.Has("search") {
			t.Errorf("empty search must not be sent")
		}
		_, _ = w.Write([]byte(`[]`))
	}, &memTokens{})

	orders, err := NewOrdersAPI(c).List(context.Background(), domain.OrderFilter{
		VendorID: "v1",
		Status:   domain.OrderPending,
		DateFrom: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		DateTo:   time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if orders == nil || len(orders) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", orders)
	}
}

func TestOrdersAPI_DeleteNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"detail":"Order not found"}`))
	}, &memTokens{})

	if err := NewOrdersAPI(c).Delete(context.Background(), "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCalendarAPI_RangeMapsEntries(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("start") == "" || r.URL.Query().Get("end") == "" {
			t.Errorf("range bounds missing: %v", r.URL.Query())
		}
		_, _ = w.Write([]byte(`[
			{"id":"o1","vendor_id":"v1","order_date":"2024-03-01T00:00:00Z","status":"pending","total_amount":10,
			 "special_instructions":"rush","due_at":"2024-03-10T00:00:00Z"},
			{"id":"o2","vendor_id":"v2","order_date":"2024-03-05T00:00:00Z","status":"completed","total_amount":5,
			 "special_instructions":null,"due_at":null}
		]`))
	}, &memTokens{})

	orders, err := NewCalendarAPI(c).Range(context.Background(), domain.CalendarRange{
		Start: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("Range: %v", err)
	}
	if len(orders) != 2 {
		t.Fatalf("expected 2 orders, got %d", len(orders))
	}

	first, second := orders[0], orders[1]
	if first.DueDate.Day() != 10 || first.Instructions != "rush" {
		t.Fatalf("unexpected first order %+v", first)
	}
	if second.DueDate.Day() != 5 || second.Instructions != "" {
		t.Fatalf("due date must fall back to order date: %+v", second)
	}
	if !second.CreatedAt.Equal(second.UpdatedAt) || second.Vendor != nil {
		t.Fatalf("unexpected second order %+v", second)
	}
}

func TestCalendarAPI_RescheduleBody(t *testing.T) {
	due := time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if r.Method != http.MethodPut || r.URL.Path != "/calendar/o1" || body["new_due_at"] != "2024-04-02T00:00:00Z" {
			t.Errorf("unexpected request %s %s %v", r.Method, r.URL.Path, body)
		}
		w.WriteHeader(http.StatusNoContent)
	}, &memTokens{})

	if err := NewCalendarAPI(c).Reschedule(context.Background(), "o1", due); err != nil {
		t.Fatalf("Reschedule: %v", err)
	}
}

func TestUsersAPI_UpdateBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		if string(raw) != `{"disabled":true}` {
			t.Errorf("unexpected body %s", raw)
		}
		_, _ = w.Write([]byte(`{"id":"3","username":"bob","disabled":true}`))
	}, &memTokens{})

	disabled := true
	u, err := NewUsersAPI(c).Update(context.Background(), "3", domain.UserUpdate{Disabled: &disabled})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if !u.Disabled {
		t.Fatalf("unexpected user %+v", u)
	}
}
