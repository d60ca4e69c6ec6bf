// Package inquiry turns purchase intent into a prefilled messaging deep link.
package inquiry

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"storefront/internal/config"
)

type Dispatcher struct {
	domain    string
	recipient string
}

func New(cfg config.InquiryConfig) *Dispatcher {
	return &Dispatcher{
		domain:    strings.Trim(cfg.Domain, "/"),
		recipient: strings.Trim(cfg.Recipient, "/"),
	}
}

// Message is the prefilled text sent to the store.
func Message(model, price string) string {
	msg := "I'm interested in the " + model
	if strings.TrimSpace(price) != "" {
		msg += " priced at " + price
	}
	return msg
}

// BuildInquiryLink returns https://<domain>/<recipient>?text=<message>. Inputs are only encoded.
func (d *Dispatcher) BuildInquiryLink(model, price string) string {
	return "https://" + d.domain + "/" + d.recipient + "?text=" + escape(Message(model, price))
}

// escape percent-encodes s for a query value with spaces as %20.
func escape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// ServeHTTP handles GET /inquire?model=..&price=.. by redirecting to the deep link.
func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	model := r.URL.Query().Get("model")
	price := r.URL.Query().Get("price")
	if strings.TrimSpace(model) == "" {
		http.Error(w, "missing model", http.StatusBadRequest)
		return
	}
	link := d.BuildInquiryLink(model, price)
	slog.InfoContext(r.Context(), "inquiry", "model", model, "price", price)
	http.Redirect(w, r, link, http.StatusFound)
}
