package main

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"storefront/internal/catalog"
	"storefront/internal/config"
	"storefront/internal/sheets"
)

func TestDumpReadsTab(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("sheet") != "Products" {
			http.NotFound(w, r)
			return
		}
		_, _ = io.WriteString(w, "/*O_o*/\ngoogle.visualization.Query.setResponse("+
			`{"table":{"rows":[{"c":[{"v":"Dell 5420"},{"v":"Laptop"}]},{"c":[{"v":"HP 840"},{"v":"Laptop"}]}]}}`+");")
	}))
	defer srv.Close()

	client, err := sheets.NewClient(config.SheetConfig{ID: "sheet-123", BaseURL: srv.URL, HTTPClient: srv.Client()})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if err := dump(client, "Products", catalog.Primary, time.Second, true); err != nil {
		t.Fatalf("dump: %v", err)
	}
	if err := dump(client, "Missing", catalog.Marketplace, time.Second, false); err == nil {
		t.Fatalf("expected an error for a missing tab")
	}
}
