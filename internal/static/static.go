package static

import (
	"crypto/sha256"
	_ "embed"
	"fmt"
	"log/slog"
	"net/http"
)

//go:embed storefront.css
var storefrontCSS []byte

//go:embed favicon.svg
var favicon []byte

// StylesheetPath is content hashed so the stylesheet can be cached forever.
var StylesheetPath = hashedPath("storefront", "css", storefrontCSS)

func hashedPath(name, ext string, content []byte) string {
	sum := fmt.Sprintf("%x", sha256.Sum256(content))
	return fmt.Sprintf("/static/%s.%s.%s", name, sum[:12], ext)
}

// Register serves the embedded assets.
func Register(mux *http.ServeMux) {
	mux.HandleFunc("GET "+StylesheetPath, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/css; charset=utf-8")
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		if _, err := w.Write(storefrontCSS); err != nil {
			slog.ErrorContext(r.Context(), "failed to write stylesheet", "error", err)
		}
	})

	mux.HandleFunc("GET /favicon.ico", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/svg+xml")
		w.Header().Set("Cache-Control", "public, max-age=86400")
		if _, err := w.Write(favicon); err != nil {
			slog.ErrorContext(r.Context(), "failed to write favicon", "error", err)
		}
	})
}
