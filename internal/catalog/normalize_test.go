package catalog

import (
	"errors"
	"slices"
	"testing"

	"storefront/internal/sheets"
)

func TestNormalize_SkipsHeaderRow(t *testing.T) {
	t.Parallel()

	rows := []sheets.Row{
		sheets.NewRow("Model", "Category", "Processor", "RAM", "Storage", "Price", "Image", "Description"),
		sheets.NewRow("Dell 5420", "Laptop", "i5", "16GB", "512GB", "45000", "", ""),
	}

	got := slices.Collect(Normalize(slices.Values(rows), Primary))
	if len(got) != 1 {
		t.Fatalf("expected exactly one product, got %d: %#v", len(got), got)
	}
	if got[0].Model != "Dell 5420" || got[0].Category != "Laptop" {
		t.Fatalf("unexpected product: %#v", got[0])
	}
	if got[0].ImageURL != "" || got[0].Description != "" {
		t.Fatalf("expected empty image and description, got %#v", got[0])
	}
}

func TestNormalize_DropsRowsWithoutModel(t *testing.T) {
	t.Parallel()

	rows := []sheets.Row{
		sheets.NewRow("", "Laptop", "i5"),
		sheets.NewRow("   ", "Laptop"),
		{Cells: nil},
		{Cells: []*sheets.Cell{nil, {V: "Desktop"}}},
		{Cells: []*sheets.Cell{{V: "\t\n"}}},
		sheets.NewRow("ThinkPad T14"),
	}

	got := slices.Collect(Normalize(slices.Values(rows), Primary))
	if len(got) != 1 || got[0].Model != "ThinkPad T14" {
		t.Fatalf("expected only ThinkPad T14, got %#v", got)
	}
}

func TestNormalize_HeaderOnlyChecksFirstRow(t *testing.T) {
	t.Parallel()

	rows := []sheets.Row{
		sheets.NewRow("Dell 5420", "Laptop"),
		sheets.NewRow("Model", "Category"),
	}
	got := slices.Collect(Normalize(slices.Values(rows), Primary))
	if len(got) != 2 {
		t.Fatalf("expected 2 products, got %d", len(got))
	}
}

func TestNormalize_StopsWhenConsumerStops(t *testing.T) {
	t.Parallel()

	var pulled int
	rows := func(yield func(sheets.Row) bool) {
		for _, name := range []string{"A", "B", "C"} {
			pulled++
			if !yield(sheets.NewRow(name)) {
				return
			}
		}
	}

	for p := range Normalize(rows, Primary) {
		if p.Model == "A" {
			break
		}
	}
	if pulled != 1 {
		t.Fatalf("expected lazy consumption of one row, pulled %d", pulled)
	}
}

func TestParseRow_Defaults(t *testing.T) {
	t.Parallel()

	p, err := ParseRow(sheets.NewRow(" HP 840 "), Primary)
	if err != nil {
		t.Fatalf("parse row: %v", err)
	}
	want := Product{
		Model:     "HP 840",
		Category:  DefaultCategory,
		Processor: DefaultSpec,
		RAM:       DefaultSpec,
		Storage:   DefaultSpec,
	}
	if p != want {
		t.Fatalf("got %#v, want %#v", p, want)
	}
}

func TestParseRow_MissingModel(t *testing.T) {
	t.Parallel()

	_, err := ParseRow(sheets.NewRow("", "Laptop"), Primary)
	if !errors.Is(err, ErrMissingModel) {
		t.Fatalf("expected ErrMissingModel, got %v", err)
	}
}

func TestParseRow_ExtraColumnBySource(t *testing.T) {
	t.Parallel()

	link := "https://www.amazon.in/dp/B0TEST"
	tests := []struct {
		name     string
		source   Source
		extra    string
		wantLink string
		wantDesc string
		wantTag  string
	}{
		{name: "primary keeps description", source: Primary, extra: link, wantDesc: link},
		{name: "marketplace link", source: Marketplace, extra: link, wantLink: link, wantTag: "marketplace"},
		{name: "promotional text", source: Promotional, extra: "Festive offer", wantDesc: "Festive offer", wantTag: "promotional"},
		{name: "marketplace relative path is text", source: Marketplace, extra: "/dp/B0TEST", wantDesc: "/dp/B0TEST", wantTag: "marketplace"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ParseRow(sheets.NewRow("Model X", "Laptop", "", "", "", "", "", tt.extra), tt.source)
			if err != nil {
				t.Fatalf("parse row: %v", err)
			}
			if p.Link != tt.wantLink || p.Description != tt.wantDesc || p.Source != tt.wantTag {
				t.Fatalf("got link=%q desc=%q source=%q", p.Link, p.Description, p.Source)
			}
		})
	}
}
