package anilist

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*HTTPClient, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewHTTPClient(srv.URL, 2*time.Second, 0, zerolog.Nop())
	if err != nil {
		t.Fatalf("create client: %v", err)
	}
	return client, srv
}

func TestHTTPClientFetchDecodesPayloadAndDate(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		var req graphqlRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request body: %v", err)
		}
		if req.Query == "" {
			t.Error("query text missing from request body")
		}
		if req.Variables["name"] != "keid" {
			t.Errorf("variables not forwarded, got %v", req.Variables)
		}

		w.Header().Set("Date", "Mon, 02 Jan 2006 15:04:05 GMT")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"User":{"id":777}}}`))
	})

	resp, meta, err := client.Fetch(context.Background(), "query { User }", map[string]any{"name": "keid"})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if resp.Data.User == nil || resp.Data.User.ID != 777 {
		t.Fatalf("unexpected payload: %+v", resp.Data)
	}
	if meta.Date != "Mon, 02 Jan 2006 15:04:05 GMT" {
		t.Fatalf("Date header not threaded through, got %q", meta.Date)
	}
}

func TestHTTPClientFetchClassifiesStatuses(t *testing.T) {
	cases := []struct {
		name   string
		status int
		want   error
	}{
		{"not found", http.StatusNotFound, ErrNotFound},
		{"rate limited", http.StatusTooManyRequests, ErrRateLimited},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
			})
			_, _, err := client.Fetch(context.Background(), "query", nil)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestHTTPClientFetchTimesOut(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	t.Cleanup(srv.Close)

	client, err := NewHTTPClient(srv.URL, 50*time.Millisecond, 0, zerolog.Nop())
	if err != nil {
		t.Fatalf("create client: %v", err)
	}

	_, _, err = client.Fetch(context.Background(), "query", nil)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

func TestLoadQueryResolvesTemplates(t *testing.T) {
	for _, name := range []string{QueryGetID, QueryMedia, QueryImage, "anime_user.gql", "manga_user.gql"} {
		text, err := LoadQuery(name)
		if err != nil {
			t.Fatalf("load %s: %v", name, err)
		}
		if text == "" {
			t.Fatalf("empty template %s", name)
		}
	}

	if _, err := LoadQuery("missing.gql"); err == nil {
		t.Fatal("expected error for unknown template")
	}
}
