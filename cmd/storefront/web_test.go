package main

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/net/html"

	"storefront/internal/config"
	"storefront/internal/static"
)

const gvizPrefix = "/*O_o*/\ngoogle.visualization.Query.setResponse("

var sheetBodies = map[string]string{
	"Products": gvizPrefix + `{"table":{"rows":[` +
		`{"c":[{"v":"Model"},{"v":"Category"}]},` +
		`{"c":[{"v":"Dell 5420"},{"v":"Laptop"},{"v":"i5"},{"v":"16GB"},{"v":"512GB"},{"v":45000,"f":"45,000"}]}` +
		`]}});`,
	"Amazon": gvizPrefix + `{"table":{"rows":[{"c":[{"v":"Mi Monitor"},{"v":"Monitor"},null,null,null,{"v":"9999"},null,{"v":"https://www.amazon.in/dp/B0TEST"}]}]}});`,
}

func newTestServer(t *testing.T) (*httptest.Server, *app) {
	t.Helper()

	sheetsSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := sheetBodies[r.URL.Query().Get("sheet")]
		if !ok {
			http.Error(w, "no such sheet", http.StatusNotFound)
			return
		}
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(sheetsSrv.Close)

	cfg := &config.Config{
		StoreName: "Test Laptops",
		Sheet: config.SheetConfig{
			ID:          "sheet-123",
			BaseURL:     sheetsSrv.URL,
			Primary:     "Products",
			Marketplace: "Amazon",
			Promotional: "FacebookAds",
			Timeout:     5 * time.Second,
			HTTPClient:  sheetsSrv.Client(),
		},
		Inquiry: config.InquiryConfig{Domain: "wa.me", Recipient: "916351541231"},
		Cache:   config.CacheConfig{Backend: "memory", Key: "storefront_products"},
	}

	a, err := newApp(context.Background(), cfg)
	if err != nil {
		t.Fatalf("failed to build app: %v", err)
	}
	t.Cleanup(a.Close)

	srv := httptest.NewServer(a.handler)
	t.Cleanup(srv.Close)
	return srv, a
}

func mustGet(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s failed: %v", url, err)
	}
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed reading %s: %v", url, err)
	}
	return resp, string(body)
}

func TestWebEndToEnd(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, _ := mustGet(t, srv.URL+"/ready")
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected /ready to be 503 before the first load, got %d", resp.StatusCode)
	}

	resp, body := mustGet(t, srv.URL+"/")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for /, got %d", resp.StatusCode)
	}
	if resp.Header.Get(requestIDHeader) == "" {
		t.Fatalf("expected a request id header")
	}
	if _, err := html.Parse(strings.NewReader(body)); err != nil {
		t.Fatalf("page is not valid HTML: %v", err)
	}
	for _, want := range []string{"Test Laptops", "Dell 5420", "45,000", "Mi Monitor", "View listing", static.StylesheetPath} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected page to contain %q", want)
		}
	}
	if strings.Contains(body, `data-state="error"`) {
		t.Fatalf("page should not show the load error")
	}

	resp, _ = mustGet(t, srv.URL+"/ready")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected /ready to be 200 after the first load, got %d", resp.StatusCode)
	}

	_, grid := mustGet(t, srv.URL+"/products?category=monitor")
	if strings.Contains(grid, "Dell 5420") || !strings.Contains(grid, "Mi Monitor") {
		t.Fatalf("category filter not applied to grid fragment:\n%s", grid)
	}

	resp, css := mustGet(t, srv.URL+static.StylesheetPath)
	if resp.StatusCode != http.StatusOK || !strings.Contains(css, ".grid") {
		t.Fatalf("expected stylesheet, got %d", resp.StatusCode)
	}

	resp, metrics := mustGet(t, srv.URL+"/metrics")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected /metrics 200, got %d", resp.StatusCode)
	}
	if !strings.Contains(metrics, "http_request_duration_seconds") {
		t.Fatalf("expected http metrics to be exported")
	}
}

func TestInquireRedirectThroughMiddleware(t *testing.T) {
	srv, _ := newTestServer(t)

	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}
	resp, err := client.Get(srv.URL + "/inquire?model=Dell%205420&price=45000")
	if err != nil {
		t.Fatalf("GET /inquire failed: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("expected 302, got %d", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); !strings.HasPrefix(loc, "https://wa.me/916351541231?text=") {
		t.Fatalf("unexpected redirect %q", loc)
	}
}

func TestRecovererTurnsPanicInto500(t *testing.T) {
	h := WithMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/explode", nil))
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
}

func TestLoggerKeepsIncomingRequestID(t *testing.T) {
	var seen string
	h := WithMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = requestID(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if seen != "abc-123" || rr.Header().Get(requestIDHeader) != "abc-123" {
		t.Fatalf("request id not propagated: handler saw %q, header %q", seen, rr.Header().Get(requestIDHeader))
	}
}

type flakyCheck struct{ err error }

func (f *flakyCheck) Ready(context.Context) error { return f.err }

func TestReadyOnceStaysReady(t *testing.T) {
	check := &flakyCheck{err: io.ErrUnexpectedEOF}
	ro := &readyOnce{}
	ro.Add(check)

	if err := ro.Ready(context.Background()); err == nil {
		t.Fatalf("expected not ready")
	}
	check.err = nil
	if err := ro.Ready(context.Background()); err != nil {
		t.Fatalf("expected ready, got %v", err)
	}
	check.err = io.ErrUnexpectedEOF
	if err := ro.Ready(context.Background()); err != nil {
		t.Fatalf("expected to stay ready, got %v", err)
	}
}

func TestSourceFor(t *testing.T) {
	cfg := config.SheetConfig{Primary: "Products", Marketplace: "Amazon", Promotional: "FacebookAds"}
	if got := sourceFor(cfg, "Amazon"); got.String() != "marketplace" {
		t.Fatalf("Amazon maps to %s", got)
	}
	if got := sourceFor(cfg, "Anything"); got.String() != "primary" {
		t.Fatalf("unknown tabs map to %s", got)
	}
}
