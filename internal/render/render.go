// Package render turns catalog products into storefront HTML. Output depends only on
// its input: no timestamps, no generated ids.
package render

import (
	"errors"
	"html/template"
	"io"
	"net/url"

	"github.com/samber/lo"

	"storefront/internal/catalog"
	"storefront/internal/templates"
)

// PlaceholderImage is shown for products without an image.
const PlaceholderImage = "https://via.placeholder.com/300x200?text=No+Image"

var errNotInitialized = errors.New("templates not initialized")

// LinkBuilder produces the purchase inquiry link for a card.
type LinkBuilder interface {
	BuildInquiryLink(model, price string) string
}

type Renderer struct {
	storeName string
	links     LinkBuilder
}

func New(storeName string, links LinkBuilder) *Renderer {
	return &Renderer{storeName: storeName, links: links}
}

// Card is the template view of one product.
type Card struct {
	catalog.Product
	Image      string
	InquiryURL string
}

type tab struct {
	Label  string
	Href   string
	Active bool
}

// PageData is everything a full page needs.
type PageData struct {
	Categories []string
	Category   string
	Search     string
	Products   []catalog.Product
	// LoadFailed shows the retry placeholder instead of the grid.
	LoadFailed bool
	// Stale marks products served from the saved snapshot.
	Stale bool
}

type pageView struct {
	StoreName     string
	ClarityScript template.HTML
	Category      string
	Search        string
	Tabs          []tab
	Stale         bool
	LoadFailed    bool
	Cards         []Card
}

func (r *Renderer) cards(products []catalog.Product) []Card {
	return lo.Map(products, func(p catalog.Product, _ int) Card {
		img := p.ImageURL
		if img == "" {
			img = PlaceholderImage
		}
		return Card{
			Product:    p,
			Image:      img,
			InquiryURL: r.links.BuildInquiryLink(p.Model, p.Price),
		}
	})
}

// Grid writes the card grid. An empty list renders the "no results" placeholder.
func (r *Renderer) Grid(w io.Writer, products []catalog.Product) error {
	if templates.Grid == nil {
		return errNotInitialized
	}
	return templates.Grid.Execute(w, r.cards(products))
}

// LoadError writes the load failure placeholder with a retry form.
func (r *Renderer) LoadError(w io.Writer) error {
	if templates.LoadError == nil {
		return errNotInitialized
	}
	return templates.LoadError.Execute(w, nil)
}

// Page writes the whole storefront page.
func (r *Renderer) Page(w io.Writer, data PageData) error {
	if templates.Page == nil {
		return errNotInitialized
	}
	category := data.Category
	if catalog.IsAllCategories(category) {
		category = ""
	}
	view := pageView{
		StoreName:     r.storeName,
		ClarityScript: templates.ClarityScript(),
		Category:      category,
		Search:        data.Search,
		Tabs:          tabs(data.Categories, category, data.Search),
		Stale:         data.Stale,
		LoadFailed:    data.LoadFailed,
	}
	if !data.LoadFailed {
		view.Cards = r.cards(data.Products)
	}
	return templates.Page.Execute(w, view)
}

func tabs(categories []string, active, search string) []tab {
	out := make([]tab, 0, len(categories)+1)
	out = append(out, tab{Label: "All", Href: pageHref("", search), Active: active == ""})
	for _, c := range categories {
		out = append(out, tab{
			Label:  c,
			Href:   pageHref(c, search),
			Active: active != "" && catalog.SameCategory(c, active),
		})
	}
	return out
}

func pageHref(category, search string) string {
	q := url.Values{}
	if category != "" {
		q.Set("category", category)
	}
	if search != "" {
		q.Set("q", search)
	}
	if len(q) == 0 {
		return "/"
	}
	return "/?" + q.Encode()
}
