package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"slices"
	"time"

	"storefront/internal/catalog"
	"storefront/internal/config"
	"storefront/internal/logsink"
	"storefront/internal/sheets"
)

func main() {
	var serve bool
	var addr string
	var sheet string
	var asJSON bool
	var logsSince time.Duration
	var help bool

	flag.BoolVar(&serve, "serve", false, "Run HTTP server mode")
	flag.StringVar(&addr, "addr", ":8080", "Address to bind in server mode")
	flag.StringVar(&sheet, "sheet", "", "Sheet tab to print (defaults to SHEET_PRIMARY)")
	flag.BoolVar(&asJSON, "json", false, "Print products as JSON")
	flag.DurationVar(&logsSince, "logs", 0, "Print log sink entries from this far back (e.g. 6h) and exit")
	flag.BoolVar(&help, "help", false, "Show help message")
	flag.BoolVar(&help, "h", false, "Show help message")
	flag.Parse()

	if help {
		showHelp()
		return
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	closeLogs, err := setupLogging(context.Background(), cfg)
	if err != nil {
		log.Fatalf("failed to set up logging: %v", err)
	}
	defer closeLogs()

	if serve {
		if err := runServer(cfg, addr); err != nil {
			log.Printf("server error: %v", err)
			closeLogs()
			os.Exit(1)
		}
		return
	}

	if logsSince > 0 {
		if err := printLogs(cfg, logsSince); err != nil {
			log.Printf("Error: %v", err)
			closeLogs()
			os.Exit(1)
		}
		return
	}

	if sheet == "" {
		sheet = cfg.Sheet.Primary
	}
	if err := run(cfg, sheet, asJSON); err != nil {
		log.Printf("Error: %v", err)
		closeLogs()
		os.Exit(1)
	}
}

// run fetches one tab and prints its normalized products.
func run(cfg *config.Config, sheet string, asJSON bool) error {
	client, err := sheets.NewClient(cfg.Sheet)
	if err != nil {
		return fmt.Errorf("failed to create sheet client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Sheet.Timeout)
	defer cancel()

	table, err := client.FetchTable(ctx, sheet)
	if err != nil {
		return fmt.Errorf("failed to fetch %s: %w", sheet, err)
	}
	products := slices.Collect(catalog.Normalize(table.All(), sourceFor(cfg.Sheet, sheet)))

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(products)
	}
	for _, p := range products {
		fmt.Printf("%-30s %-12s %-14s %-8s %-10s %s\n", p.Model, p.Category, p.Processor, p.RAM, p.Storage, p.Price)
	}
	fmt.Printf("%d products from %s at %s\n", len(products), sheet, time.Now().Format(time.RFC3339))
	return nil
}

// printLogs reads back what the append blob sink wrote.
func printLogs(cfg *config.Config, since time.Duration) error {
	reader, err := logsink.NewReader(logsink.FromConfig(cfg))
	if err != nil {
		return fmt.Errorf("failed to create log reader: %w", err)
	}
	entries, err := reader.Since(context.Background(), time.Now().Add(-since))
	if err != nil {
		return err
	}
	for _, e := range entries {
		attrs, _ := json.Marshal(e.Attrs)
		fmt.Printf("%s %-5s %s %s\n", e.Time.Format(time.RFC3339), e.Level, e.Msg, attrs)
	}
	return nil
}

func sourceFor(cfg config.SheetConfig, sheet string) catalog.Source {
	switch sheet {
	case cfg.Marketplace:
		return catalog.Marketplace
	case cfg.Promotional:
		return catalog.Promotional
	}
	return catalog.Primary
}

func showHelp() {
	fmt.Println("storefront - product catalog storefront backed by a published Google Sheet")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  storefront -serve [-addr :8080]")
	fmt.Println("  storefront [-sheet <tab>] [-json]")
	fmt.Println("  storefront -logs 6h")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  -serve          Run the HTTP storefront")
	fmt.Println("  -addr           Address to bind in server mode")
	fmt.Println("  -sheet          Tab to print in one-shot mode")
	fmt.Println("  -json           Print products as JSON")
	fmt.Println("  -logs           Print log sink entries newer than the given duration")
	fmt.Println("  -help, -h       Show this help message")
	fmt.Println()
	fmt.Println("Configuration is read from the environment and .env (SHEET_ID is required).")
}
