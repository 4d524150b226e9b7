package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/equibase/jobdash/pkg/schema"
)

type fakeTokens struct {
	mu       sync.Mutex
	token    string
	refresh  string
	refErr   error
	refCalls int
}

func (f *fakeTokens) Token(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token, nil
}

func (f *fakeTokens) Refresh(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refCalls++
	if f.refErr != nil {
		return "", f.refErr
	}
	return f.refresh, nil
}

type fakeSink struct {
	mu          sync.Mutex
	activity    int
	success     int
	unavailable int
}

func (f *fakeSink) RecordActivity() {
	f.mu.Lock()
	f.activity++
	f.mu.Unlock()
}

func (f *fakeSink) RecordSuccess() {
	f.mu.Lock()
	f.success++
	f.mu.Unlock()
}

func (f *fakeSink) ReportUnavailable() {
	f.mu.Lock()
	f.unavailable++
	f.mu.Unlock()
}

func TestListJobsSendsPageAndLimit(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.RequestURI()
		json.NewEncoder(w).Encode(schema.JobsPage{Page: 2, Limit: 10})
	}))
	defer srv.Close()

	client := New(srv.URL, Options{})
	page, err := client.ListJobs(context.Background(), 2, 10)
	if err != nil {
		t.Fatalf("ListJobs returned error: %v", err)
	}
	if gotPath != "/jobs?page=2&limit=10" {
		t.Fatalf("unexpected request path: %s", gotPath)
	}
	if page.Page != 2 || page.HasNextPage {
		t.Fatalf("unexpected page envelope: %+v", page)
	}
}

func TestBearerHeaderAttachedWhenSessionExists(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(schema.Job{ID: "1"})
	}))
	defer srv.Close()

	client := New(srv.URL, Options{Tokens: &fakeTokens{token: "tok-1"}})
	if _, err := client.GetJob(context.Background(), "1"); err != nil {
		t.Fatalf("GetJob returned error: %v", err)
	}
	if gotAuth != "Bearer tok-1" {
		t.Fatalf("unexpected Authorization header: %q", gotAuth)
	}
}

func TestErrorBodyMessagePreferred(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"message": "title is required"})
	}))
	defer srv.Close()

	client := New(srv.URL, Options{})
	_, err := client.CreateJob(context.Background(), schema.CreateJobRequest{})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Message != "title is required" || apiErr.Status != http.StatusBadRequest {
		t.Fatalf("unexpected APIError: %+v", apiErr)
	}
}

func TestErrorFallsBackToStatusText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not json", http.StatusNotFound)
	}))
	defer srv.Close()

	client := New(srv.URL, Options{})
	_, err := client.GetJob(context.Background(), "missing")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Error() != "API Error: Not Found" {
		t.Fatalf("unexpected fallback message: %q", apiErr.Error())
	}
}

func TestDeleteJobAccepts204(t *testing.T) {
	var gotMethod, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	client := New(srv.URL, Options{})
	if err := client.DeleteJob(context.Background(), "42"); err != nil {
		t.Fatalf("DeleteJob returned error: %v", err)
	}
	if gotMethod != http.MethodDelete || gotPath != "/jobs/42" {
		t.Fatalf("unexpected request: %s %s", gotMethod, gotPath)
	}
}

func TestTimeoutSurfacesAsTimeoutError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	client := New(srv.URL, Options{Timeout: 20 * time.Millisecond})
	_, err := client.ListJobs(context.Background(), 1, 10)
	var te *TimeoutError
	if !errors.As(err, &te) {
		t.Fatalf("expected TimeoutError, got %v", err)
	}
	if !IsTransient(err) {
		t.Fatal("timeout not classified as transient")
	}
}

func TestRefreshAndRetryOnceOn401(t *testing.T) {
	var calls int
	var seen []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		seen = append(seen, r.Header.Get("Authorization"))
		if calls == 1 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(schema.Job{ID: "1"})
	}))
	defer srv.Close()

	tokens := &fakeTokens{token: "stale", refresh: "fresh"}
	client := New(srv.URL, Options{Tokens: tokens})
	if _, err := client.GetJob(context.Background(), "1"); err != nil {
		t.Fatalf("GetJob returned error after refresh: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected exactly one retry, server saw %d calls", calls)
	}
	if tokens.refCalls != 1 {
		t.Fatalf("expected exactly one refresh, got %d", tokens.refCalls)
	}
	if seen[0] != "Bearer stale" || seen[1] != "Bearer fresh" {
		t.Fatalf("unexpected credential sequence: %v", seen)
	}
}

func TestPersistent401BecomesAuthError(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := New(srv.URL, Options{Tokens: &fakeTokens{token: "stale", refresh: "still-stale"}})
	_, err := client.GetJob(context.Background(), "1")
	var ae *AuthError
	if !errors.As(err, &ae) {
		t.Fatalf("expected AuthError, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected exactly two attempts, got %d", calls)
	}
}

func TestRefreshFailureBecomesAuthError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	tokens := &fakeTokens{token: "stale", refErr: errors.New("refresh rejected")}
	client := New(srv.URL, Options{Tokens: tokens})
	_, err := client.GetJob(context.Background(), "1")
	var ae *AuthError
	if !errors.As(err, &ae) {
		t.Fatalf("expected AuthError, got %v", err)
	}
}

func TestServerErrorFlipsAvailability(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	sink := &fakeSink{}
	var notice string
	client := New(srv.URL, Options{Status: sink, Notify: func(msg string) { notice = msg }})
	_, err := client.ListJobs(context.Background(), 1, 10)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if sink.unavailable != 1 {
		t.Fatalf("expected one unavailability report, got %d", sink.unavailable)
	}
	if sink.activity != 1 || sink.success != 0 {
		t.Fatalf("unexpected sink counts: %+v", sink)
	}
	if notice == "" {
		t.Fatal("expected a user-visible wake-up notice")
	}
}

func TestHealthCheckUsesShortTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		json.NewEncoder(w).Encode(schema.Health{Status: "ok"})
	}))
	defer srv.Close()

	client := New(srv.URL, Options{Timeout: time.Second, HealthTimeout: 20 * time.Millisecond})
	_, err := client.CheckHealth(context.Background())
	var te *TimeoutError
	if !errors.As(err, &te) {
		t.Fatalf("expected health timeout, got %v", err)
	}
}
