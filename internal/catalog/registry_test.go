package catalog

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/deiragold/spotfeed/internal/api"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// adminServer is a scripted admin API with swappable responses.
type adminServer struct {
	server *httptest.Server

	mu          sync.Mutex
	spotRates   string
	spotStatus  int
	screenCode  int
	newsPayload string
}

func newAdminServer(t *testing.T) *adminServer {
	t.Helper()

	as := &adminServer{
		spotRates: `{"info": {
			"commodities": [{"metal": "gold", "unit": "1", "weight": "GM", "purity": "916"}],
			"goldBidSpread": "0.5", "goldAskSpread": "0.7"
		}}`,
		spotStatus:  http.StatusOK,
		screenCode:  http.StatusOK,
		newsPayload: `{"news": {"news": [{"_id": "n1", "news": "headline"}]}}`,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/spot-rates/", func(w http.ResponseWriter, r *http.Request) {
		as.mu.Lock()
		defer as.mu.Unlock()
		if as.spotStatus != http.StatusOK {
			w.WriteHeader(as.spotStatus)
			return
		}
		w.Write([]byte(as.spotRates))
	})
	mux.HandleFunc("/api/screens/", func(w http.ResponseWriter, r *http.Request) {
		as.mu.Lock()
		defer as.mu.Unlock()
		w.WriteHeader(as.screenCode)
		w.Write([]byte(`{}`))
	})
	mux.HandleFunc("/api/news/", func(w http.ResponseWriter, r *http.Request) {
		as.mu.Lock()
		defer as.mu.Unlock()
		w.Write([]byte(as.newsPayload))
	})

	as.server = httptest.NewServer(mux)
	t.Cleanup(as.server.Close)
	return as
}

func (as *adminServer) set(f func(*adminServer)) {
	as.mu.Lock()
	defer as.mu.Unlock()
	f(as)
}

func newTestRegistry(t *testing.T, as *adminServer) *Registry {
	t.Helper()
	client := api.NewClient(as.server.URL, "shop-1", api.WithRetries(0, time.Millisecond))
	return NewRegistry(Config{RefreshInterval: time.Hour}, client, testLogger())
}

func TestRegistryRefresh(t *testing.T) {
	as := newAdminServer(t)
	r := newTestRegistry(t, as)

	if !r.Snapshot().Empty() {
		t.Fatal("fresh registry should be empty")
	}

	if err := r.refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	snap := r.Snapshot()
	if snap.Empty() {
		t.Fatal("snapshot still empty after refresh")
	}
	if len(snap.Commodities) != 1 || snap.Commodities[0].Metal != "gold" {
		t.Errorf("commodities = %+v", snap.Commodities)
	}
	if snap.Spreads.GoldBid != "0.5" {
		t.Errorf("spreads = %+v", snap.Spreads)
	}
	if len(snap.News) != 1 || snap.News[0].Text != "headline" {
		t.Errorf("news = %+v", snap.News)
	}
	if snap.LimitExceeded {
		t.Error("LimitExceeded = true with a 200 entitlement check")
	}
	if snap.Version != 1 {
		t.Errorf("version = %d, want 1", snap.Version)
	}
}

func TestRegistryKeepsStaleSnapshotOnFailure(t *testing.T) {
	as := newAdminServer(t)
	r := newTestRegistry(t, as)

	if err := r.refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	before := r.Snapshot()

	as.set(func(a *adminServer) { a.spotStatus = http.StatusInternalServerError })

	if err := r.refresh(context.Background()); err == nil {
		t.Fatal("expected refresh error")
	}

	after := r.Snapshot()
	if after.Version != before.Version {
		t.Errorf("version moved on failed refresh: %d -> %d", before.Version, after.Version)
	}
	if len(after.Commodities) != len(before.Commodities) {
		t.Error("stale snapshot not retained")
	}
}

func TestRegistryLimitExceeded(t *testing.T) {
	as := newAdminServer(t)
	as.set(func(a *adminServer) { a.screenCode = http.StatusForbidden })
	r := newTestRegistry(t, as)

	if err := r.refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if !r.Snapshot().LimitExceeded {
		t.Error("LimitExceeded = false after a 403 entitlement check")
	}

	// Back under the limit on the next refresh.
	as.set(func(a *adminServer) { a.screenCode = http.StatusOK })
	if err := r.refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if r.Snapshot().LimitExceeded {
		t.Error("LimitExceeded stuck after entitlement recovered")
	}
}

func TestRegistryNewsFailureIsNotFatal(t *testing.T) {
	as := newAdminServer(t)
	as.set(func(a *adminServer) { a.newsPayload = `not json` })
	r := newTestRegistry(t, as)

	if err := r.refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	snap := r.Snapshot()
	if snap.Empty() || len(snap.Commodities) != 1 {
		t.Errorf("rates lost over a news failure: %+v", snap)
	}
	if snap.News != nil {
		t.Errorf("news = %+v, want nil", snap.News)
	}
}

func TestRegistryStartStop(t *testing.T) {
	as := newAdminServer(t)
	r := newTestRegistry(t, as)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := r.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if r.Snapshot().Empty() {
		t.Error("initial fetch did not populate the snapshot")
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer stopCancel()
	r.Stop(stopCtx)
}

func TestRegistryStartToleratesInitialFailure(t *testing.T) {
	as := newAdminServer(t)
	as.set(func(a *adminServer) { a.spotStatus = http.StatusInternalServerError })
	r := newTestRegistry(t, as)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Starts empty, doesn't error: the refresh loop keeps trying.
	if err := r.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !r.Snapshot().Empty() {
		t.Error("snapshot populated despite failing API")
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer stopCancel()
	r.Stop(stopCtx)
}
