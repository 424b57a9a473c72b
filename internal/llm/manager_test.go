package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestClient_Call_ReturnsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("bad payload: %v", err)
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	m := NewManager(DefaultConfig(), nil)
	defer m.Stop()

	c := NewClient(m, PriorityCritical, 5*time.Second)
	body, err := c.Call(context.Background(), srv.URL, map[string]interface{}{"model": "m"})
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if string(body) != `{"ok":true}` {
		t.Errorf("unexpected body: %s", body)
	}
}

func TestClient_Call_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	m := NewManager(DefaultConfig(), nil)
	defer m.Stop()

	c := NewClient(m, PriorityCritical, 5*time.Second)
	if _, err := c.Call(context.Background(), srv.URL, map[string]interface{}{}); err == nil {
		t.Errorf("expected error on 500 response")
	}
}

func TestManager_Submit_QueueFull(t *testing.T) {
	cfg := &Config{
		MaxConcurrent:       1,
		CriticalQueueSize:   1,
		BackgroundQueueSize: 1,
		CriticalTimeout:     time.Second,
		BackgroundTimeout:   time.Second,
	}
	m := &Manager{
		criticalQueue:   make(chan *Request, cfg.CriticalQueueSize),
		backgroundQueue: make(chan *Request, cfg.BackgroundQueueSize),
		semaphore:       make(chan struct{}, cfg.MaxConcurrent),
		metrics:         Metrics{CurrentQueueDepth: map[Priority]int{}},
		stopCh:          make(chan struct{}),
		config:          cfg,
	}
	// No dispatcher running: the queue fills up immediately.
	req := func() *Request {
		return &Request{ID: "r", Priority: PriorityCritical, Context: context.Background(),
			ResponseCh: make(chan *Response, 1), ErrorCh: make(chan error, 1)}
	}
	if err := m.Submit(req()); err != nil {
		t.Fatalf("first submit should fit: %v", err)
	}
	if err := m.Submit(req()); err == nil {
		t.Errorf("expected queue full error")
	}
}

func TestCircuitBreaker_OpensAfterFailures(t *testing.T) {
	cb := NewCircuitBreaker(2, time.Minute)
	fail := func() error { return context.DeadlineExceeded }

	cb.Call(fail)
	cb.Call(fail)

	if !cb.IsOpen() {
		t.Errorf("expected breaker open after %d failures", 2)
	}
	if err := cb.Call(func() error { return nil }); err != ErrCircuitOpen {
		t.Errorf("expected ErrCircuitOpen, got %v", err)
	}
}

func TestCircuitBreaker_ClosedOnSuccess(t *testing.T) {
	cb := NewCircuitBreaker(3, time.Minute)
	if err := cb.Call(func() error { return nil }); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if cb.IsOpen() {
		t.Errorf("breaker should stay closed on success")
	}
}
