package feed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/deiragold/spotfeed/internal/quote"
)

func testSupervisorConfig() SupervisorConfig {
	return SupervisorConfig{
		BaseDelay: 10 * time.Millisecond,
		MaxDelay:  50 * time.Millisecond,
	}
}

func TestSupervisorReconnectsAfterDrop(t *testing.T) {
	// Every accepted connection is dropped right after the subscribe, so
	// the supervisor has to keep reconnecting.
	var upgrades atomic.Int32
	var subscribes atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		upgrades.Add(1)

		if _, data, err := conn.ReadMessage(); err == nil {
			var env Envelope
			if json.Unmarshal(data, &env) == nil && env.Event == EventRequestData {
				subscribes.Add(1)
			}
		}
		conn.Close()
	}))
	defer server.Close()

	store := quote.NewStore(testLogger())
	m := NewManager(testManagerConfig(), store, testLogger())
	s := NewSupervisor(testSupervisorConfig(), m, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	runDone := make(chan error, 1)
	endpoints := make(chan string, 1)
	go func() { runDone <- s.Run(ctx, endpoints) }()

	endpoints <- wsURL(server)

	waitFor(t, 5*time.Second, func() bool { return upgrades.Load() >= 3 },
		"supervisor did not keep reconnecting")

	// Every reconnect re-sent the full subscribe request.
	if got, want := subscribes.Load(), upgrades.Load(); got < want-1 {
		t.Errorf("subscribes = %d for %d connections", got, want)
	}

	cancel()
	select {
	case err := <-runDone:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	if got := m.State(); got != StateTerminated {
		t.Errorf("state = %q, want terminated after supervisor exit", got)
	}
}

func TestSupervisorIgnoresEmptyAndDuplicateEndpoints(t *testing.T) {
	fs := newFeedServer(t)

	store := quote.NewStore(testLogger())
	m := NewManager(testManagerConfig(), store, testLogger())
	s := NewSupervisor(testSupervisorConfig(), m, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runDone := make(chan error, 1)
	endpoints := make(chan string, 4)
	go func() { runDone <- s.Run(ctx, endpoints) }()

	endpoints <- ""
	endpoints <- fs.url()
	endpoints <- fs.url() // duplicate announcement

	waitFor(t, 2*time.Second, func() bool { return m.State() == StateStreaming },
		"manager never started streaming")

	time.Sleep(50 * time.Millisecond)
	if got := fs.upgrades.Load(); got != 1 {
		t.Errorf("upgrades = %d, want 1", got)
	}

	cancel()
	select {
	case <-runDone:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestSupervisorBackoffIsCapped(t *testing.T) {
	s := NewSupervisor(SupervisorConfig{BaseDelay: time.Second, MaxDelay: 5 * time.Second}, nil, testLogger())

	wait := time.Second
	for i := 0; i < 10; i++ {
		wait = s.backoff(wait)
		if wait > 5*time.Second {
			t.Fatalf("backoff exceeded cap: %v", wait)
		}
	}
	if wait != 5*time.Second {
		t.Errorf("wait = %v, want capped at 5s", wait)
	}
}
