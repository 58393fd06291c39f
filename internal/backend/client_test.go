package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
)

func newTestClient(t *testing.T, srv *httptest.Server, csrfPath string) *Client {
	t.Helper()
	c, err := New(srv.URL+"/", csrfPath, zerolog.Nop())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return c
}

func TestNew_InvalidURL(t *testing.T) {
	tests := []string{"", "localhost:8000", "/api"}
	for _, u := range tests {
		if _, err := New(u, "", zerolog.Nop()); err == nil {
			t.Errorf("expected error for %q", u)
		}
	}
}

func TestClient_URL(t *testing.T) {
	c, err := New("http://backend:8000/", "", zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if got := c.URL("/api/chat/chat/"); got != "http://backend:8000/api/chat/chat/" {
		t.Errorf("unexpected URL %s", got)
	}
	if got := c.URL("api/chat/chat/"); got != "http://backend:8000/api/chat/chat/" {
		t.Errorf("unexpected URL %s", got)
	}
}

func TestClient_PostJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/chat/chat/" {
			http.NotFound(w, r)
			return
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			http.Error(w, "bad content type "+ct, http.StatusUnsupportedMediaType)
			return
		}
		var in map[string]any
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"echo": in["message"]})
	}))
	defer srv.Close()

	c := newTestClient(t, srv, "")

	var out struct {
		Echo string `json:"echo"`
	}
	if err := c.PostJSON(context.Background(), "/api/chat/chat/", map[string]string{"message": "hi"}, &out); err != nil {
		t.Fatalf("PostJSON failed: %v", err)
	}
	if out.Echo != "hi" {
		t.Errorf("expected echo 'hi', got %q", out.Echo)
	}
}

func TestClient_PostJSON_ErrorBody(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		message string
	}{
		{"json error", http.StatusBadRequest, `{"error":"job_id is required"}`, "job_id is required"},
		{"plain text", http.StatusInternalServerError, "boom\n", "boom"},
		{"empty", http.StatusBadGateway, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := newTestClient(t, srv, "")
			err := c.PostJSON(context.Background(), "/x", struct{}{}, nil)

			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected APIError, got %v", err)
			}
			if apiErr.StatusCode != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, apiErr.StatusCode)
			}
			if apiErr.Message != tt.message {
				t.Errorf("expected message %q, got %q", tt.message, apiErr.Message)
			}
		})
	}
}

func TestClient_PostJSON_InvalidResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not json</html>"))
	}))
	defer srv.Close()

	c := newTestClient(t, srv, "")
	var out map[string]any
	if err := c.PostJSON(context.Background(), "/x", nil, &out); err == nil {
		t.Error("expected decode error")
	}
}

func TestClient_EnsureCSRF_FetchesOnceFromCookie(t *testing.T) {
	fetches := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/chat/get-csrf-token/" {
			fetches++
			http.SetCookie(w, &http.Cookie{Name: "csrftoken", Value: "cookie-token", Path: "/"})
			w.Write([]byte(`{"detail":"CSRF cookie set"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := newTestClient(t, srv, "/api/chat/get-csrf-token/")

	for i := 0; i < 3; i++ {
		token, err := c.EnsureCSRF(context.Background())
		if err != nil {
			t.Fatalf("EnsureCSRF failed: %v", err)
		}
		if token != "cookie-token" {
			t.Errorf("expected cookie token, got %q", token)
		}
	}
	if fetches != 1 {
		t.Errorf("expected a single CSRF fetch, got %d", fetches)
	}
}

func TestClient_EnsureCSRF_BodyFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"csrfToken":"body-token"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv, "/csrf")
	token, err := c.EnsureCSRF(context.Background())
	if err != nil {
		t.Fatalf("EnsureCSRF failed: %v", err)
	}
	if token != "body-token" {
		t.Errorf("expected body token, got %q", token)
	}
}

func TestClient_PostJSON_SendsCachedCSRF(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			w.Write([]byte(`{"csrfToken":"abc"}`))
			return
		}
		got = r.Header.Get("X-CSRFToken")
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv, "/csrf")
	if err := c.PostJSON(context.Background(), "/x", struct{}{}, nil); err != nil {
		t.Fatal(err)
	}
	if got != "" {
		t.Errorf("no token should be sent before one is fetched, got %q", got)
	}

	if _, err := c.EnsureCSRF(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := c.PostJSON(context.Background(), "/x", struct{}{}, nil); err != nil {
		t.Fatal(err)
	}
	if got != "abc" {
		t.Errorf("expected cached token on later posts, got %q", got)
	}
}

func TestClient_PostMultipart_CSRFFailureStillPosts(t *testing.T) {
	posted := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		posted = true
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if r.FormValue("job_id") != "job-1" {
			http.Error(w, "missing job_id", http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := newTestClient(t, srv, "/csrf")
	err := c.PostMultipart(context.Background(), "/upload", map[string]string{"job_id": "job-1"}, nil)
	if err != nil {
		t.Fatalf("PostMultipart failed: %v", err)
	}
	if !posted {
		t.Error("expected the upload to be posted")
	}
}
