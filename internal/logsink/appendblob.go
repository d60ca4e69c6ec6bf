package logsink

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/url"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/streaming"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/appendblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"

	"storefront/internal/config"
)

type Config struct {
	AccountName string
	AccountKey  string
	Container   string
	BlobName    string        // may include slashes, e.g. "2026/03/01/web-1.jsonl"
	FlushEvery  time.Duration // default 2s
	Level       slog.Level
}

// FromConfig picks the log sink settings out of the app config.
func FromConfig(cfg *config.Config) Config {
	return Config{
		AccountName: cfg.Azure.AccountName,
		AccountKey:  cfg.Azure.AccountKey,
		Container:   cfg.Logsink.Container,
		BlobName:    cfg.Logsink.BlobName,
		FlushEvery:  cfg.Logsink.FlushEvery,
		Level:       slog.LevelInfo,
	}
}

func (c Config) Enabled() bool {
	return c.AccountName != "" && c.AccountKey != "" && c.Container != ""
}

var errClosed = errors.New("logsink closed")

// maxBlock is the largest body a single AppendBlock call accepts.
const maxBlock = 4 << 20

type blockAppender interface {
	AppendBlock(ctx context.Context, body io.ReadSeekCloser, o *appendblob.AppendBlockOptions) (appendblob.AppendBlockResponse, error)
}

// Handler is a slog.Handler that batches JSON lines into an Azure append blob.
type Handler struct {
	ab     blockAppender
	level  slog.Level
	ch     chan []byte
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	ticker *time.Ticker

	mu     sync.RWMutex
	closed bool
}

func New(ctx context.Context, cfg Config) (*Handler, error) {
	if !cfg.Enabled() {
		return nil, errors.New("AccountName, AccountKey and Container are required")
	}
	if cfg.BlobName == "" {
		host, _ := os.Hostname()
		cfg.BlobName = DefaultBlobName(time.Now(), host)
	}

	cred, err := azblob.NewSharedKeyCredential(cfg.AccountName, cfg.AccountKey)
	if err != nil {
		return nil, err
	}
	blobURL := "https://" + cfg.AccountName + ".blob.core.windows.net/" +
		url.PathEscape(cfg.Container) + "/" + cfg.BlobName

	ab, err := appendblob.NewClientWithSharedKeyCredential(blobURL, cred, nil)
	if err != nil {
		return nil, err
	}
	if _, err := ab.Create(ctx, nil); err != nil && !bloberror.HasCode(err, bloberror.BlobAlreadyExists) {
		return nil, err
	}
	return newHandler(ctx, ab, cfg.FlushEvery, cfg.Level), nil
}

func newHandler(ctx context.Context, ab blockAppender, flushEvery time.Duration, level slog.Level) *Handler {
	if flushEvery <= 0 {
		flushEvery = 2 * time.Second
	}
	ctx, cancel := context.WithCancel(ctx)
	h := &Handler{
		ab:     ab,
		level:  level,
		ch:     make(chan []byte, 1024),
		ctx:    ctx,
		cancel: cancel,
		ticker: time.NewTicker(flushEvery),
	}
	h.wg.Add(1)
	go h.loop()
	return h
}

// Close flushes buffered lines and stops the background writer.
func (h *Handler) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	close(h.ch)
	h.mu.Unlock()

	h.wg.Wait()
	h.cancel()
	h.ticker.Stop()
	return nil
}

func (h *Handler) Enabled(_ context.Context, level slog.Level) bool { return level >= h.level }

func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	return h.send(r, nil)
}

func (h *Handler) send(r slog.Record, extra []slog.Attr) error {
	line, err := encode(r, extra)
	if err != nil {
		return err
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return errClosed
	}
	select {
	case h.ch <- line:
		return nil
	case <-h.ctx.Done():
		return h.ctx.Err()
	}
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &withAttrs{h: h, attrs: attrs}
}

// WithGroup is a no-op; group attributes are flattened.
func (h *Handler) WithGroup(string) slog.Handler { return h }

// encode renders one record as a JSON line. Group values nest one level.
func encode(r slog.Record, extra []slog.Attr) ([]byte, error) {
	ev := make(map[string]any, r.NumAttrs()+len(extra)+3)
	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	ev["ts"] = ts.UTC().Format(time.RFC3339Nano)
	ev["level"] = r.Level.String()
	ev["msg"] = r.Message

	add := func(a slog.Attr) {
		a.Value = a.Value.Resolve()
		if a.Value.Kind() == slog.KindGroup {
			m := map[string]any{}
			for _, aa := range a.Value.Group() {
				m[aa.Key] = value(aa.Value.Resolve())
			}
			ev[a.Key] = m
			return
		}
		ev[a.Key] = value(a.Value)
	}
	for _, a := range extra {
		add(a)
	}
	r.Attrs(func(a slog.Attr) bool {
		add(a)
		return true
	})

	var b bytes.Buffer
	enc := json.NewEncoder(&b)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(ev); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

func value(v slog.Value) any {
	if err, ok := v.Any().(error); ok {
		return err.Error()
	}
	return v.Any()
}

func (h *Handler) loop() {
	defer h.wg.Done()
	var pending []byte
	for {
		select {
		case <-h.ctx.Done():
			h.flush(pending)
			return
		case line, ok := <-h.ch:
			if !ok {
				h.flush(pending)
				return
			}
			if len(pending)+len(line) > maxBlock {
				h.flush(pending)
				pending = pending[:0]
			}
			pending = append(pending, line...)
		case <-h.ticker.C:
			h.flush(pending)
			pending = pending[:0]
		}
	}
}

// flush appends pending lines, one block per maxBlock bytes. A single line
// longer than maxBlock is split mid-line.
func (h *Handler) flush(pending []byte) {
	for chunk := range slices.Chunk(pending, maxBlock) {
		body := streaming.NopCloser(bytes.NewReader(chunk))
		if _, err := h.ab.AppendBlock(h.ctx, body, nil); err != nil {
			// slog would loop back into this handler
			_, _ = os.Stderr.WriteString("logsink: append failed: " + err.Error() + "\n")
		}
	}
}

type withAttrs struct {
	h     *Handler
	attrs []slog.Attr
}

func (w *withAttrs) Enabled(ctx context.Context, level slog.Level) bool { return w.h.Enabled(ctx, level) }

func (w *withAttrs) Handle(_ context.Context, r slog.Record) error { return w.h.send(r, w.attrs) }

func (w *withAttrs) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &withAttrs{h: w.h, attrs: append(slices.Clip(w.attrs), attrs...)}
}

func (w *withAttrs) WithGroup(string) slog.Handler { return w }
