package catalog

import (
	"strings"

	"github.com/samber/lo"
	"golang.org/x/text/cases"
)

// AllCategories disables the category filter.
const AllCategories = "all"

// State is the union of the three source lists plus the active filter criteria.
// It is not safe for concurrent use; the storefront controller guards its copy and
// hands clones to request handlers.
type State struct {
	sources  [numSources][]Product
	category string
	search   string

	dirty   bool
	visible []Product
}

func NewState() *State {
	return &State{category: AllCategories, dirty: true}
}

// SetSource replaces one source list wholesale. The state keeps the slice; callers
// must not modify it afterwards.
func (s *State) SetSource(src Source, products []Product) {
	if src < 0 || int(src) >= len(s.sources) {
		return
	}
	s.sources[src] = products
	s.dirty = true
}

// Products returns the current list of one source.
func (s *State) Products(src Source) []Product {
	if src < 0 || int(src) >= len(s.sources) {
		return nil
	}
	return s.sources[src]
}

func (s *State) SetFilter(category string) {
	category = strings.TrimSpace(category)
	if category == "" {
		category = AllCategories
	}
	if category != s.category {
		s.category = category
		s.dirty = true
	}
}

func (s *State) SetSearch(text string) {
	if text != s.search {
		s.search = text
		s.dirty = true
	}
}

func (s *State) Filter() string { return s.category }
func (s *State) Search() string { return s.search }

// Len is the size of the union of all sources.
func (s *State) Len() int {
	n := 0
	for _, list := range s.sources {
		n += len(list)
	}
	return n
}

// ComputeVisible unions the sources in fixed order, then applies the category filter and
// the search filter. Filters only remove; order is preserved.
func (s *State) ComputeVisible() []Product {
	if !s.dirty && s.visible != nil {
		return s.visible
	}

	fold := cases.Fold()
	visible := s.union()

	if !IsAllCategories(s.category) {
		want := fold.String(s.category)
		visible = lo.Filter(visible, func(p Product, _ int) bool {
			return fold.String(p.Category) == want
		})
	}

	if q := fold.String(strings.TrimSpace(s.search)); q != "" {
		visible = lo.Filter(visible, func(p Product, _ int) bool {
			return strings.Contains(fold.String(p.SearchText()), q)
		})
	}

	s.visible = visible
	s.dirty = false
	return visible
}

// Categories lists the distinct categories of the union in first-seen order.
func (s *State) Categories() []string {
	fold := cases.Fold()
	uniq := lo.UniqBy(s.union(), func(p Product) string {
		return fold.String(p.Category)
	})
	return lo.Map(uniq, func(p Product, _ int) string { return p.Category })
}

// Clone copies the criteria and shares the source lists, which are never mutated in place.
func (s *State) Clone() *State {
	return &State{
		sources:  s.sources,
		category: s.category,
		search:   s.search,
		dirty:    true,
	}
}

func (s *State) union() []Product {
	out := make([]Product, 0, s.Len())
	for _, src := range Sources {
		out = append(out, s.sources[src]...)
	}
	return out
}

// IsAllCategories reports whether category disables the filter.
func IsAllCategories(category string) bool {
	return strings.TrimSpace(category) == "" || strings.EqualFold(strings.TrimSpace(category), AllCategories)
}

// SameCategory compares two categories the way the filter does.
func SameCategory(a, b string) bool {
	fold := cases.Fold()
	return fold.String(strings.TrimSpace(a)) == fold.String(strings.TrimSpace(b))
}
