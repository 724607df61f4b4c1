package threads

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ymzk/threadpilot/pkg/httpretry"
)

type recordedCall struct {
	Path     string
	Caption  string
	Image    string
	Creation string
}

func newFakePlatform(t *testing.T) (*httptest.Server, *[]recordedCall) {
	t.Helper()

	var calls []recordedCall
	containerSeq := 0

	mux := http.NewServeMux()
	mux.HandleFunc("/me/threads", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch q.Get("media_type") {
		case "TEXT":
			calls = append(calls, recordedCall{Path: "/me/threads", Caption: q.Get("text")})
			_ = json.NewEncoder(w).Encode(map[string]string{"id": "post-text-1"})
		case "IMAGE":
			containerSeq++
			calls = append(calls, recordedCall{
				Path:    "/me/threads",
				Caption: q.Get("text"),
				Image:   q.Get("image_url"),
			})
			_ = json.NewEncoder(w).Encode(map[string]string{"id": fmt.Sprintf("container-%d", containerSeq)})
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	})
	mux.HandleFunc("/me/threads_publish", func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, recordedCall{
			Path:     "/me/threads_publish",
			Creation: r.URL.Query().Get("creation_id"),
		})
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "post-42"})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &calls
}

func newTestClient(srv *httptest.Server) *Client {
	return NewClient(srv.URL, srv.URL,
		WithHTTPClient(srv.Client()),
		WithRetryPolicy(httpretry.Policy{MaxAttempts: 1, BaseDelay: time.Millisecond}),
		WithPause(func() {}),
	)
}

func TestPublishTextOnly(t *testing.T) {
	srv, calls := newFakePlatform(t)
	client := newTestClient(srv)

	res, err := client.Publish(context.Background(), "token", "hello text", nil)
	if err != nil {
		t.Fatalf("Publish() unexpected error: %v", err)
	}
	if res.PostID != "post-text-1" {
		t.Fatalf("expected post-text-1, got %q", res.PostID)
	}
	if len(*calls) != 1 {
		t.Fatalf("expected a single platform call, got %d", len(*calls))
	}
}

func TestPublishMultiImageSequence(t *testing.T) {
	srv, calls := newFakePlatform(t)
	client := newTestClient(srv)

	urls := []string{"https://img/u1.jpg", "https://img/u2.jpg", "https://img/u3.jpg"}
	res, err := client.Publish(context.Background(), "token", "hello", urls)
	if err != nil {
		t.Fatalf("Publish() unexpected error: %v", err)
	}

	got := *calls
	if len(got) != 4 {
		t.Fatalf("expected 3 container calls + 1 publish, got %d", len(got))
	}

	// The first container carries the caption; the rest stay empty.
	if got[0].Caption != "hello" {
		t.Fatalf("first container caption = %q, want %q", got[0].Caption, "hello")
	}
	for i := 1; i < 3; i++ {
		if got[i].Caption != "" {
			t.Fatalf("container %d caption = %q, want empty", i+1, got[i].Caption)
		}
	}
	for i, u := range urls {
		if got[i].Image != u {
			t.Fatalf("container %d image = %q, want %q", i+1, got[i].Image, u)
		}
	}

	// Publish targets the last created container, exactly once.
	if got[3].Path != "/me/threads_publish" || got[3].Creation != "container-3" {
		t.Fatalf("publish call = %+v, want creation_id container-3", got[3])
	}
	if res.PostID != "post-42" {
		t.Fatalf("expected post-42, got %q", res.PostID)
	}
	if len(res.ContainerIDs) != 3 || res.ContainerIDs[2] != "container-3" {
		t.Fatalf("unexpected container ids: %v", res.ContainerIDs)
	}
}

func TestPublishContainerFailureAbortsAttempt(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 2 {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"bad media url"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "container-1"})
	}))
	defer srv.Close()

	client := newTestClient(srv)
	_, err := client.Publish(context.Background(), "token", "x", []string{"u1", "u2", "u3"})
	if err == nil {
		t.Fatal("expected publish failure when a container creation fails")
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T: %v", err, err)
	}
	if apiErr.Status != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", apiErr.Status)
	}
	// Third container and the publish step must never run.
	if calls != 2 {
		t.Fatalf("expected exactly 2 calls, got %d", calls)
	}
}

func TestAuthorizeURL(t *testing.T) {
	t.Parallel()

	client := NewClient("https://graph.example", "https://auth.example")
	got := client.AuthorizeURL("app-1", "https://cb.example/callback", []string{"threads_basic", "threads_content_publish"})

	for _, want := range []string{
		"https://auth.example/oauth/authorize",
		"client_id=app-1",
		"response_type=code",
		"threads_basic%2Cthreads_content_publish",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("AuthorizeURL() = %q, missing %q", got, want)
		}
	}
}
