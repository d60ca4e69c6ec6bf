package logsink

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
)

// Entry is one line written by Handler.
type Entry struct {
	Time  time.Time      `json:"-"`
	Level string         `json:"level"`
	Msg   string         `json:"msg"`
	Attrs map[string]any `json:"-"`
}

func (e *Entry) UnmarshalJSON(data []byte) error {
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	e.Level, _ = fields["level"].(string)
	e.Msg, _ = fields["msg"].(string)
	if ts, ok := fields["ts"].(string); ok {
		t, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return fmt.Errorf("bad ts %q: %w", ts, err)
		}
		e.Time = t
	}
	delete(fields, "ts")
	delete(fields, "level")
	delete(fields, "msg")
	e.Attrs = fields
	return nil
}

// Reader reads back the blobs written by the sink.
type Reader struct {
	container string
	client    *azblob.Client
}

func NewReader(cfg Config) (*Reader, error) {
	if !cfg.Enabled() {
		return nil, errors.New("AccountName, AccountKey and Container are required")
	}
	cred, err := azblob.NewSharedKeyCredential(cfg.AccountName, cfg.AccountKey)
	if err != nil {
		return nil, err
	}
	client, err := azblob.NewClientWithSharedKeyCredential("https://"+cfg.AccountName+".blob.core.windows.net/", cred, nil)
	if err != nil {
		return nil, err
	}
	return &Reader{container: cfg.Container, client: client}, nil
}

// Since returns entries newer than since, oldest first.
func (r *Reader) Since(ctx context.Context, since time.Time) ([]Entry, error) {
	var all []Entry
	for _, prefix := range datePrefixes(since, time.Now()) {
		pager := r.client.NewListBlobsFlatPager(r.container, &azblob.ListBlobsFlatOptions{Prefix: &prefix})
		for pager.More() {
			resp, err := pager.NextPage(ctx)
			if err != nil {
				return nil, fmt.Errorf("failed to list blobs: %w", err)
			}
			for _, item := range resp.Segment.BlobItems {
				if item.Properties != nil && item.Properties.LastModified != nil && item.Properties.LastModified.Before(since) {
					continue
				}
				entries, err := r.readBlob(ctx, *item.Name, since)
				if err != nil {
					slog.WarnContext(ctx, "failed to read log blob", "blob", *item.Name, "error", err)
					continue
				}
				all = append(all, entries...)
			}
		}
	}
	slices.SortStableFunc(all, func(a, b Entry) int { return a.Time.Compare(b.Time) })
	return all, nil
}

func (r *Reader) readBlob(ctx context.Context, name string, since time.Time) ([]Entry, error) {
	resp, err := r.client.DownloadStream(ctx, r.container, name, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to download blob: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	return parseEntries(resp.Body, since)
}

// datePrefixes lists the day folders covering [since, until].
func datePrefixes(since, until time.Time) []string {
	var prefixes []string
	current := since.UTC().Truncate(24 * time.Hour)
	end := until.UTC().Truncate(24 * time.Hour)
	for !current.After(end) {
		prefixes = append(prefixes, FormatDateFolder(current.Year(), int(current.Month()), current.Day())+"/")
		current = current.Add(24 * time.Hour)
	}
	return prefixes
}

// parseEntries skips malformed lines and entries older than since.
func parseEntries(reader io.Reader, since time.Time) ([]Entry, error) {
	var entries []Entry
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var e Entry
		if err := json.Unmarshal(line, &e); err != nil {
			continue
		}
		if !e.Time.IsZero() && e.Time.Before(since) {
			continue
		}
		entries = append(entries, e)
	}
	return entries, scanner.Err()
}
