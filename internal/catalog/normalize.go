package catalog

import (
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"net/url"
	"strings"

	"storefront/internal/sheets"
)

const (
	DefaultCategory = "Other"
	DefaultSpec     = "N/A"

	headerLabel = "Model"
)

// column positions in every product sheet
const (
	colModel = iota
	colCategory
	colProcessor
	colRAM
	colStorage
	colPrice
	colImage
	colExtra
)

var ErrMissingModel = errors.New("row has no model")

// RowError ties a rejected row to its position in the sheet.
type RowError struct {
	Index int
	Err   error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Index, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

// ParseRow maps one sheet row to a product, applying defaults for empty cells.
func ParseRow(row sheets.Row, source Source) (Product, error) {
	model := cellText(row, colModel)
	if model == "" {
		return Product{}, ErrMissingModel
	}

	p := Product{
		Model:     model,
		Category:  orDefault(cellText(row, colCategory), DefaultCategory),
		Processor: orDefault(cellText(row, colProcessor), DefaultSpec),
		RAM:       orDefault(cellText(row, colRAM), DefaultSpec),
		Storage:   orDefault(cellText(row, colStorage), DefaultSpec),
		Price:     cellText(row, colPrice),
		ImageURL:  cellText(row, colImage),
		Source:    source.Tag(),
	}

	extra := cellText(row, colExtra)
	if source != Primary && isLink(extra) {
		p.Link = extra
	} else {
		p.Description = extra
	}
	return p, nil
}

// Normalize lazily converts rows into products. A leading header row is skipped and
// rows without a model are dropped. The input is consumed once.
func Normalize(rows iter.Seq[sheets.Row], source Source) iter.Seq[Product] {
	return func(yield func(Product) bool) {
		index := 0
		for row := range rows {
			index++
			if index == 1 && row.Cell(colModel).Text() == headerLabel {
				continue
			}
			p, err := ParseRow(row, source)
			if err != nil {
				slog.Debug("skipping sheet row", "source", source.String(), "error", &RowError{Index: index, Err: err})
				continue
			}
			if !yield(p) {
				return
			}
		}
	}
}

func cellText(row sheets.Row, i int) string {
	return strings.TrimSpace(row.Cell(i).Text())
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func isLink(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
