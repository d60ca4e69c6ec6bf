package catalog

import "strings"

// Source identifies one of the independent product lists composed into the storefront.
type Source int

const (
	Primary Source = iota
	Marketplace
	Promotional

	numSources
)

// Sources lists every source in union order.
var Sources = []Source{Primary, Marketplace, Promotional}

func (s Source) String() string {
	switch s {
	case Primary:
		return "primary"
	case Marketplace:
		return "marketplace"
	case Promotional:
		return "promotional"
	}
	return "unknown"
}

// Tag is the provenance marker stored on products. Primary products carry none.
func (s Source) Tag() string {
	if s == Primary {
		return ""
	}
	return s.String()
}

// Product is a normalized catalog row. Products are values; nothing identifies one across refreshes.
type Product struct {
	Model       string `json:"model"`
	Category    string `json:"category"`
	Processor   string `json:"processor"`
	RAM         string `json:"ram"`
	Storage     string `json:"storage"`
	Price       string `json:"price"`
	ImageURL    string `json:"imageUrl"`
	Description string `json:"description,omitempty"`
	Source      string `json:"source,omitempty"`
	Link        string `json:"link,omitempty"`
}

// SearchText is the composed field the search box matches against.
func (p Product) SearchText() string {
	return strings.Join([]string{p.Model, p.Processor, p.RAM, p.Storage, p.Category}, " ")
}
