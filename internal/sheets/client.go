package sheets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/hashicorp/go-retryablehttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"storefront/internal/config"
)

const (
	// DefaultBaseURL serves published Google Sheets.
	DefaultBaseURL = "https://docs.google.com/spreadsheets/d"

	maxResponseBytes = 8 << 20
)

var tracer = otel.Tracer("storefront/internal/sheets")

// Client reads tabs of a published spreadsheet through the gviz JSON export.
type Client struct {
	sheetID    string
	baseURL    string
	envelope   Envelope
	httpClient *retryablehttp.Client
}

// NewClient creates a sheet client. Retries are off unless cfg.RetryMax is set.
func NewClient(cfg config.SheetConfig) (*Client, error) {
	if strings.TrimSpace(cfg.ID) == "" {
		return nil, errors.New("sheet ID is required")
	}
	env, err := EnvelopeByName(cfg.Envelope)
	if err != nil {
		return nil, err
	}

	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = max(cfg.RetryMax, 0)
	rc.Logger = slog.Default()
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	if cfg.HTTPClient != nil {
		rc.HTTPClient = cfg.HTTPClient
	}

	return &Client{
		sheetID:    cfg.ID,
		baseURL:    strings.TrimRight(baseURL, "/"),
		envelope:   env,
		httpClient: rc,
	}, nil
}

// SheetURL returns the gviz export URL for one tab.
func (c *Client) SheetURL(sheet string) string {
	params := url.Values{}
	params.Set("tqx", "out:json")
	params.Set("sheet", sheet)
	return c.baseURL + "/" + url.PathEscape(c.sheetID) + "/gviz/tq?" + params.Encode()
}

// Fetch returns the raw response text for a tab. The caller bounds the request through ctx.
func (c *Client) Fetch(ctx context.Context, sheet string) (string, error) {
	ctx, span := tracer.Start(ctx, "sheets.Fetch", trace.WithAttributes(attribute.String("sheet", sheet)))
	defer span.End()

	body, err := c.fetch(ctx, sheet)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	span.SetAttributes(attribute.Int("bytes", len(body)))
	return body, nil
}

func (c *Client) fetch(ctx context.Context, sheet string) (string, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, c.SheetURL(sheet), nil)
	if err != nil {
		return "", fmt.Errorf("build sheet request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &FetchError{Sheet: sheet, Aborted: deadlineExpired(ctx, err), Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		slog.ErrorContext(ctx, "sheet request failed", "sheet", sheet, "status", resp.StatusCode)
		return "", &FetchError{Sheet: sheet, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", &FetchError{Sheet: sheet, Aborted: deadlineExpired(ctx, err), Err: fmt.Errorf("read body: %w", err)}
	}
	return string(body), nil
}

// deadlineExpired separates a timeout from a caller that simply went away.
func deadlineExpired(ctx context.Context, err error) bool {
	return errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded)
}

// FetchTable fetches a tab and decodes it with the configured envelope.
func (c *Client) FetchTable(ctx context.Context, sheet string) (*Table, error) {
	raw, err := c.Fetch(ctx, sheet)
	if err != nil {
		return nil, err
	}
	table, err := Decode(raw, c.envelope)
	if err != nil {
		return nil, fmt.Errorf("sheet %q: %w", sheet, err)
	}
	return table, nil
}
