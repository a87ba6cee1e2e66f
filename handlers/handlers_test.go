package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	queue "github.com/corequeue/corequeue"
	"github.com/corequeue/corequeue/handlers"
)

func TestEcho(t *testing.T) {
	payload := json.RawMessage(`{"job_type":"echo","n":1}`)
	result := handlers.Echo(context.Background(), queue.JobContext{Payload: payload})
	if !result.Success {
		t.Fatalf("expected success, got error %q", result.Error)
	}
	if string(result.Output) != string(payload) {
		t.Fatalf("expected output to equal payload, got %s", result.Output)
	}
}

func TestSleepCompletesAfterDuration(t *testing.T) {
	start := time.Now()
	result := handlers.Sleep(context.Background(), queue.JobContext{Payload: []byte(`{"duration_ms":20}`)})
	if !result.Success {
		t.Fatalf("expected success, got error %q", result.Error)
	}
	if time.Since(start) < 20*time.Millisecond {
		t.Fatal("expected handler to block for at least duration_ms")
	}
}

func TestSleepRespectsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(5 * time.Millisecond)
		cancel()
	}()
	result := handlers.Sleep(ctx, queue.JobContext{Payload: []byte(`{"duration_ms":1000}`)})
	if result.Success {
		t.Fatal("expected failure from cancellation")
	}
}

func TestHTTPRequestSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	handler := handlers.HTTPRequest(nil)
	payload, _ := json.Marshal(map[string]string{"method": "GET", "url": srv.URL})
	result := handler(context.Background(), queue.JobContext{Payload: payload})
	if !result.Success {
		t.Fatalf("expected success, got error %q", result.Error)
	}
}

func TestHTTPRequestNon2xxFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	handler := handlers.HTTPRequest(nil)
	payload, _ := json.Marshal(map[string]string{"method": "GET", "url": srv.URL})
	result := handler(context.Background(), queue.JobContext{Payload: payload})
	if result.Success {
		t.Fatal("expected failure for 500 response")
	}
}
