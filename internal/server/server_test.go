package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"hodlflow/config"
	"hodlflow/internal/cache"
	"hodlflow/internal/dataset"
	"hodlflow/internal/merge"
	"hodlflow/models"
)

// stubFetcher serves one snapshot per day so handlers always have data.
type stubFetcher struct{}

func (stubFetcher) FetchDay(_ context.Context, day string) (*models.DayBundle, error) {
	t, _ := time.Parse("2006-01-02", day)
	price := 2.0
	return &models.DayBundle{
		Day:       day,
		Snapshots: []models.Snapshot{{Price: &price, Holders: &price, CreatedAt: models.NewTime(t)}},
		Ranking:   []models.AddressRanking{{ID: 1, OwnerAddress: "a", HoldRank: 1}},
	}, nil
}

func (stubFetcher) FetchLPMetadata(context.Context) (models.LPMetadata, error) {
	return models.LPMetadata{"addr": {Name: "pool"}}, nil
}

func testServer(t *testing.T) *Server {
	t.Helper()

	cfg := &config.Config{}
	cfg.Fetch.MaxConsecutiveMissing = 3
	cfg.Fetch.DefaultPresetDays = 3
	cfg.Cache.Backend = "memory"
	cfg.Cache.TTL = 15 * time.Minute
	cfg.Chart.MaxPoints = 150
	cfg.Server.Enabled = true
	cfg.Server.Address = ":0"

	mgr, err := cache.NewManager(cfg)
	if err != nil {
		t.Fatalf("cache manager: %v", err)
	}
	svc := dataset.NewService(cfg, mgr, merge.New(stubFetcher{}, 3), stubFetcher{}, nil)

	srv := NewServer(cfg.Server, svc)
	if srv == nil {
		t.Fatal("expected a server when enabled")
	}
	return srv
}

func doRequest(t *testing.T, srv *Server, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	srv.buildRouter().ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	w := doRequest(t, testServer(t), http.MethodGet, "/healthz")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestSummaryEndpoint(t *testing.T) {
	w := doRequest(t, testServer(t), http.MethodGet, "/api/v1/summary?days=3")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var sum struct {
		RangeKey  string   `json:"range_key"`
		MarketCap *float64 `json:"market_cap"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &sum); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if sum.RangeKey != "preset_3" {
		t.Errorf("unexpected range key %q", sum.RangeKey)
	}
	if sum.MarketCap == nil || *sum.MarketCap != 2*100_000_000 {
		t.Errorf("unexpected market cap %v", sum.MarketCap)
	}
}

func TestIndicatorsEndpoint(t *testing.T) {
	w := doRequest(t, testServer(t), http.MethodGet, "/api/v1/indicators/price?days=3")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var set struct {
		Field  string     `json:"field"`
		Period int        `json:"period"`
		SMA    []*float64 `json:"sma"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &set); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if set.Field != "price" || set.Period != 3 {
		t.Errorf("unexpected indicator set: %+v", set)
	}
	if len(set.SMA) != 3 {
		t.Errorf("expected 3 aligned SMA slots, got %d", len(set.SMA))
	}
}

func TestUnknownFieldRejected(t *testing.T) {
	w := doRequest(t, testServer(t), http.MethodGet, "/api/v1/indicators/bogus?days=3")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestBadRangeParams(t *testing.T) {
	srv := testServer(t)
	cases := []string{
		"/api/v1/dataset?days=abc",
		"/api/v1/dataset?days=-1",
		"/api/v1/dataset?from=not-a-date",
		"/api/v1/dataset?from=2025-08-20&to=2025-08-10",
	}
	for _, path := range cases {
		if w := doRequest(t, srv, http.MethodGet, path); w.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", path, w.Code)
		}
	}
}

func TestHolderAndRankingEndpoints(t *testing.T) {
	srv := testServer(t)

	w := doRequest(t, srv, http.MethodGet, "/api/v1/holders/ranking?days=3")
	if w.Code != http.StatusOK {
		t.Fatalf("ranking: expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "\"ranking\"") {
		t.Errorf("unexpected ranking body: %s", w.Body.String())
	}

	w = doRequest(t, srv, http.MethodGet, "/api/v1/metrics/holders/delta?days=3")
	if w.Code != http.StatusOK {
		t.Fatalf("delta: expected 200, got %d", w.Code)
	}

	w = doRequest(t, srv, http.MethodGet, "/api/v1/metrics/holders/compare?days=3")
	if w.Code != http.StatusOK {
		t.Fatalf("compare: expected 200, got %d", w.Code)
	}
}

func TestRefreshEndpoint(t *testing.T) {
	w := doRequest(t, testServer(t), http.MethodPost, "/api/v1/refresh?days=3")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestNormalizeAddress(t *testing.T) {
	cases := map[string]string{
		"":               "0.0.0.0:8080",
		":9000":          "0.0.0.0:9000",
		"localhost":      "localhost:8080",
		"127.0.0.1:8081": "127.0.0.1:8081",
	}
	for in, want := range cases {
		if got := normalizeAddress(in); got != want {
			t.Errorf("normalizeAddress(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestWebsocketReceivesBroadcast(t *testing.T) {
	srv := testServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	srv.hub.Start(ctx)
	defer srv.hub.Stop()

	ts := httptest.NewServer(srv.buildRouter())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	// Give the hub a moment to register the client before broadcasting.
	time.Sleep(50 * time.Millisecond)
	srv.hub.BroadcastDataset(&models.CachedDataset{
		RangeKey:  "preset_3",
		FetchedAt: time.Now(),
		Snapshots: make([]models.Snapshot, 2),
	})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var update wsUpdate
	if err := conn.ReadJSON(&update); err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if update.Type != "dataset_refreshed" || update.RangeKey != "preset_3" || update.Snapshots != 2 {
		t.Fatalf("unexpected update: %+v", update)
	}
}
