package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"sync"
	"testing"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(Config{BaseURL: srv.URL}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c, srv
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestNewRejectsEmptyBaseURL(t *testing.T) {
	if _, err := New(Config{BaseURL: "  "}, nil); err == nil {
		t.Fatalf("expected error for empty base url")
	}
}

func TestGetDecodesJSONPayload(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		if r.URL.Path != "/users/1" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"1","username":"alice"}`)
	})

	got, err := Get[map[string]any](context.Background(), c, "/users/1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	want := map[string]any{"id": "1", "username": "alice"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("payload = %#v, want %#v", got, want)
	}
}

func TestNoContentResolvesToEmptyObject(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	ctx := context.Background()

	m, err := Put[map[string]any](ctx, c, "/users/1", map[string]string{"username": "x"})
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if m == nil || len(m) != 0 {
		t.Fatalf("expected empty map, got %#v", m)
	}

	type user struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	}
	u, err := Get[user](ctx, c, "/users/1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if u != (user{}) {
		t.Fatalf("expected zero struct, got %#v", u)
	}

	list, err := Delete[[]user](ctx, c, "/users/1")
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("expected empty list, got %#v", list)
	}
}

func TestErrorUsesMessageField(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "bad request"})
	})

	_, err := Post[map[string]any](context.Background(), c, "/users", map[string]string{"username": "bob"})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %T %v", err, err)
	}
	if apiErr.Status != http.StatusBadRequest {
		t.Fatalf("status = %d", apiErr.Status)
	}
	if !strings.Contains(apiErr.Message, "bad request") {
		t.Fatalf("message missing detail: %q", apiErr.Message)
	}
	if !strings.HasPrefix(apiErr.Message, ContextPost) {
		t.Fatalf("message missing context prefix: %q", apiErr.Message)
	}
	if !strings.Contains(apiErr.Message, "(400: bad request)") {
		t.Fatalf("message has wrong shape: %q", apiErr.Message)
	}

	var info map[string]any
	if err := json.Unmarshal([]byte(apiErr.Info), &info); err != nil {
		t.Fatalf("info not JSON: %v", err)
	}
	if info["status"] != float64(400) || info["statusText"] != "Bad Request" {
		t.Fatalf("unexpected info %#v", info)
	}
}

func TestErrorWithoutMessageStringifiesBody(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "taken"})
	})

	_, err := Get[map[string]any](context.Background(), c, "/users")
	if StatusOf(err) != http.StatusConflict {
		t.Fatalf("status = %d, err = %v", StatusOf(err), err)
	}
	if !strings.Contains(err.Error(), `{"error":"taken"}`) {
		t.Fatalf("expected stringified body, got %q", err.Error())
	}
}

func TestErrorWithChunkedBodyUsesMessageField(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.(http.Flusher).Flush()
		_, _ = io.WriteString(w, `{"message":"username is taken"}`)
	})

	_, err := Post[map[string]any](context.Background(), c, "/users", map[string]string{"username": "bob"})
	if StatusOf(err) != http.StatusBadRequest {
		t.Fatalf("status = %d, err = %v", StatusOf(err), err)
	}
	if !strings.Contains(err.Error(), "(400: username is taken)") {
		t.Fatalf("expected message from chunked body, got %q", err.Error())
	}
}

func TestErrorWithZeroMessageStringifiesBody(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": 0, "code": "E1"})
	})

	_, err := Get[map[string]any](context.Background(), c, "/users")
	if !strings.Contains(err.Error(), `{"code":"E1","message":0}`) {
		t.Fatalf("expected stringified body, got %q", err.Error())
	}
}

func TestErrorWithFalseMessageStringifiesBody(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": false})
	})

	_, err := Get[map[string]any](context.Background(), c, "/users")
	if !strings.Contains(err.Error(), `(400: {"message":false})`) {
		t.Fatalf("expected stringified body, got %q", err.Error())
	}
}

func TestErrorWithEmptyBodyFallsBackToStatusText(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := Get[map[string]any](context.Background(), c, "/users")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Status != http.StatusInternalServerError {
		t.Fatalf("status = %d", apiErr.Status)
	}
	if !strings.Contains(apiErr.Message, "(500: Internal Server Error)") {
		t.Fatalf("expected status text fallback, got %q", apiErr.Message)
	}
}

func TestErrorWithNonJSONBodyFallsBackToStatusText(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusUnauthorized)
	})

	_, err := Get[map[string]any](context.Background(), c, "/users")
	if !IsUnauthorized(err) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if !strings.Contains(err.Error(), "(401: Unauthorized)") {
		t.Fatalf("expected status text fallback, got %q", err.Error())
	}
}

func TestIdentityHeaderFollowsSetAndClear(t *testing.T) {
	var (
		mu   sync.Mutex
		seen []string
	)
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		if vals := r.Header.Values(DefaultIdentityHeader); len(vals) > 0 {
			seen = append(seen, vals[0])
		} else {
			seen = append(seen, "<absent>")
		}
		mu.Unlock()
		if got := r.Header.Get("Content-Type"); got != "application/json" {
			t.Errorf("content type = %q", got)
		}
		w.WriteHeader(http.StatusNoContent)
	})
	ctx := context.Background()

	if _, err := Get[struct{}](ctx, c, "/users"); err != nil {
		t.Fatalf("Get: %v", err)
	}
	c.SetCurrentIdentity("42")
	if _, err := Get[struct{}](ctx, c, "/users"); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if _, err := Post[struct{}](ctx, c, "/users", map[string]string{}); err != nil {
		t.Fatalf("Post: %v", err)
	}
	c.SetCurrentIdentity("")
	if _, err := Get[struct{}](ctx, c, "/users"); err != nil {
		t.Fatalf("Get: %v", err)
	}

	want := []string{"<absent>", "42", "42", "<absent>"}
	if !reflect.DeepEqual(seen, want) {
		t.Fatalf("identity headers = %v, want %v", seen, want)
	}
}

func TestSharedIdentityAppliesAcrossClients(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("X-User")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	identity := NewIdentity()
	c, err := New(Config{BaseURL: srv.URL, IdentityHeader: "X-User"}, identity)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	identity.Set("7")

	if _, err := Get[struct{}](context.Background(), c, "/"); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != "7" {
		t.Fatalf("identity header = %q", got)
	}
}

func TestDefaultHeadersAreSent(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("X-Client")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c, err := New(Config{BaseURL: srv.URL, DefaultHeaders: map[string]string{"x-client": "userdesk"}}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := Get[struct{}](context.Background(), c, "/"); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != "userdesk" {
		t.Fatalf("X-Client = %q", got)
	}
}

func TestPostEncodesBodyAsJSON(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var in map[string]string
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			t.Errorf("decode body: %v", err)
		}
		writeJSON(w, http.StatusCreated, map[string]string{"id": "9", "username": in["username"]})
	})

	got, err := Post[map[string]string](context.Background(), c, "/users", map[string]string{"username": "bob"})
	if err != nil {
		t.Fatalf("Post: %v", err)
	}
	if got["username"] != "bob" || got["id"] != "9" {
		t.Fatalf("unexpected payload %#v", got)
	}
}

func TestMalformedJSONSuccessIsParseError(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":`)
	})

	_, err := Get[map[string]any](context.Background(), c, "/users/1")
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected ParseError, got %T %v", err, err)
	}
	if !strings.HasPrefix(err.Error(), "failed to parse response:") {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestNonJSONSuccessReturnsRawHandle(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = io.WriteString(w, "pong")
	})
	ctx := context.Background()

	raw, err := Get[*Response](ctx, c, "/ping")
	if err != nil {
		t.Fatalf("Get raw: %v", err)
	}
	if raw.StatusCode != http.StatusOK || string(raw.Body) != "pong" {
		t.Fatalf("unexpected raw response %#v", raw)
	}

	text, err := Get[string](ctx, c, "/ping")
	if err != nil || text != "pong" {
		t.Fatalf("Get string = %q, %v", text, err)
	}

	if _, err := Get[map[string]any](ctx, c, "/ping"); err == nil {
		t.Fatalf("expected error decoding text into a map")
	}
}

func TestNonJSONSuccessIntoAnyYieldsRawHandle(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = io.WriteString(w, "pong")
	})

	got, err := Get[any](context.Background(), c, "/ping")
	if err != nil {
		t.Fatalf("Get any: %v", err)
	}
	raw, ok := got.(*Response)
	if !ok {
		t.Fatalf("expected *Response, got %T", got)
	}
	if string(raw.Body) != "pong" {
		t.Fatalf("body = %q", raw.Body)
	}
}

func TestTransportFailureIsReturned(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	base := srv.URL
	srv.Close()

	c, err := New(Config{BaseURL: base}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = Get[map[string]any](context.Background(), c, "/users")
	if err == nil {
		t.Fatalf("expected transport error")
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		t.Fatalf("transport failure must not be normalized: %v", err)
	}
}

func TestDoReturnsTaggedResult(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/empty":
			w.WriteHeader(http.StatusNoContent)
		case "/json":
			writeJSON(w, http.StatusOK, map[string]int{"n": 1})
		default:
			writeJSON(w, http.StatusNotFound, map[string]string{"message": "missing"})
		}
	})
	ctx := context.Background()

	cases := map[string]ResultKind{
		"/empty": KindEmpty,
		"/json":  KindJSON,
		"/other": KindError,
	}
	for path, want := range cases {
		res, err := c.Do(ctx, http.MethodGet, path, nil, ContextGet)
		if err != nil {
			t.Fatalf("Do %s: %v", path, err)
		}
		if res.Kind != want {
			t.Fatalf("Do %s kind = %s, want %s", path, res.Kind, want)
		}
	}
}
