package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestGetSpotRates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/spot-rates/shop-1" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		// Mixed string/number fields, spreads flat beside the commodity list.
		w.Write([]byte(`{
			"info": {
				"commodities": [
					{"metal": "gold", "unit": 1, "weight": "GM", "purity": "916", "buyCharge": "10"},
					{"metal": "silver", "unit": "1", "weight": "KG", "purity": 999}
				],
				"goldBidSpread": "0.5",
				"goldAskSpread": 0.7,
				"silverBidSpread": "0.01",
				"silverAskSpread": "0.02"
			}
		}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "shop-1")

	rates, err := client.GetSpotRates(context.Background())
	if err != nil {
		t.Fatalf("GetSpotRates: %v", err)
	}

	if len(rates.Commodities) != 2 {
		t.Fatalf("got %d commodities, want 2", len(rates.Commodities))
	}
	if rates.Commodities[0].Unit != "1" || rates.Commodities[0].Purity != "916" {
		t.Errorf("commodity 0 = %+v", rates.Commodities[0])
	}
	if rates.Commodities[1].Purity != "999" {
		t.Errorf("numeric purity not normalized: %+v", rates.Commodities[1])
	}
	if rates.Spreads.GoldBid != "0.5" || rates.Spreads.GoldAsk != "0.7" {
		t.Errorf("spreads = %+v", rates.Spreads)
	}
}

func TestGetServerURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/server-url" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Write([]byte(`{"info": {"serverURL": "wss://feed.example.com"}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "shop-1")

	url, err := client.GetServerURL(context.Background())
	if err != nil {
		t.Fatalf("GetServerURL: %v", err)
	}
	if url != "wss://feed.example.com" {
		t.Errorf("url = %q", url)
	}
}

func TestGetNews(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"news": {"news": [
			{"_id": "n1", "news": "Gold steady ahead of Fed decision"},
			{"_id": "n2", "news": "Silver imports up"}
		]}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "shop-1")

	items, err := client.GetNews(context.Background())
	if err != nil {
		t.Fatalf("GetNews: %v", err)
	}
	if len(items) != 2 || items[0].ID != "n1" || items[1].Text != "Silver imports up" {
		t.Errorf("items = %+v", items)
	}
}

func TestCheckEntitlement(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		allowed bool
		wantErr bool
	}{
		{"allowed", http.StatusOK, true, false},
		{"limit exceeded", http.StatusForbidden, false, false},
		{"not found", http.StatusNotFound, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(`{}`))
			}))
			defer server.Close()

			client := NewClient(server.URL, "shop-1")

			allowed, err := client.CheckEntitlement(context.Background())
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr = %v", err, tt.wantErr)
			}
			if allowed != tt.allowed {
				t.Errorf("allowed = %v, want %v", allowed, tt.allowed)
			}
		})
	}
}

func TestRetryOnServerError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"info": {"serverURL": "wss://feed.example.com"}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "shop-1", WithRetries(2, time.Millisecond))

	if _, err := client.GetServerURL(context.Background()); err != nil {
		t.Fatalf("GetServerURL: %v", err)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("calls = %d, want 2", got)
	}
}

func TestNoRetryOnClientError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	client := NewClient(server.URL, "shop-1", WithRetries(3, time.Millisecond))

	if _, err := client.GetServerURL(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("calls = %d, want 1 (4xx must not retry)", got)
	}
}

func TestRetriesExhausted(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(server.URL, "shop-1", WithRetries(2, time.Millisecond))

	if _, err := client.GetSpotRates(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("calls = %d, want 3 (initial + 2 retries)", got)
	}
}
