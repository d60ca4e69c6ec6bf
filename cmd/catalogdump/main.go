package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/samber/lo"

	"storefront/internal/catalog"
	"storefront/internal/config"
	"storefront/internal/sheets"
)

func main() {
	var (
		sheetID  = flag.String("sheet-id", envOrDefault("SHEET_ID", ""), "published spreadsheet id")
		tabs     = flag.String("tabs", "Products,Amazon,FacebookAds", "comma separated tabs to dump")
		envelope = flag.String("envelope", envOrDefault("SHEET_ENVELOPE", "fixed"), "response envelope: fixed or marker")
		rows     = flag.Bool("rows", false, "print every normalized row")
		timeout  = flag.Duration("timeout", 30*time.Second, "timeout per tab")
	)
	flag.Parse()

	client, err := sheets.NewClient(config.SheetConfig{
		ID:       *sheetID,
		BaseURL:  envOrDefault("SHEET_BASE_URL", sheets.DefaultBaseURL),
		Envelope: *envelope,
	})
	if err != nil {
		exitErr(fmt.Errorf("create sheet client: %w", err))
	}

	names := lo.Compact(lo.Map(strings.Split(*tabs, ","), func(s string, _ int) string {
		return strings.TrimSpace(s)
	}))
	for i, name := range names {
		source := catalog.Primary
		if i < len(catalog.Sources) {
			source = catalog.Sources[i]
		}
		if err := dump(client, name, source, *timeout, *rows); err != nil {
			slog.Error("failed to dump tab", "tab", name, "error", err)
		}
	}
}

func dump(client *sheets.Client, tab string, source catalog.Source, timeout time.Duration, printRows bool) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	start := time.Now()
	table, err := client.FetchTable(ctx, tab)
	if err != nil {
		return err
	}
	fetched := time.Since(start)
	products := slices.Collect(catalog.Normalize(table.All(), source))

	fmt.Printf("== %s (%s): %d rows, %d products, fetched in %s\n", tab, source, len(table.Rows), len(products), fetched.Round(time.Millisecond))

	byCategory := lo.GroupBy(products, func(p catalog.Product) string { return p.Category })
	categories := lo.Keys(byCategory)
	sort.Strings(categories)
	for _, c := range categories {
		fmt.Printf("  %-20s %d\n", c, len(byCategory[c]))
	}

	if printRows {
		for _, p := range products {
			fmt.Printf("  - %s | %s | %s | %s | %s | %s\n", p.Model, p.Processor, p.RAM, p.Storage, p.Price, lo.CoalesceOrEmpty(p.Link, p.Description))
		}
	}
	return nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func exitErr(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
