package logsink

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/appendblob"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/config"
)

type fakeAppender struct {
	mu     sync.Mutex
	blocks []string
}

func (f *fakeAppender) AppendBlock(_ context.Context, body io.ReadSeekCloser, _ *appendblob.AppendBlockOptions) (appendblob.AppendBlockResponse, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return appendblob.AppendBlockResponse{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blocks = append(f.blocks, string(data))
	return appendblob.AppendBlockResponse{}, nil
}

func (f *fakeAppender) lines() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return strings.Split(strings.TrimSpace(strings.Join(f.blocks, "")), "\n")
}

func TestHandlerBatchesJSONLines(t *testing.T) {
	ab := &fakeAppender{}
	h := newHandler(context.Background(), ab, time.Hour, slog.LevelInfo)
	logger := slog.New(h).With("service", "storefront")

	logger.Info("catalog refreshed", "products", 3, "error", errors.New("partial"))
	logger.Debug("dropped")
	logger.Warn("stale", slog.Group("cache", "key", "storefront_products"))
	require.NoError(t, h.Close())

	lines := ab.lines()
	require.Len(t, lines, 2)

	var first map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "catalog refreshed", first["msg"])
	assert.Equal(t, "INFO", first["level"])
	assert.Equal(t, "storefront", first["service"])
	assert.Equal(t, float64(3), first["products"])
	assert.Equal(t, "partial", first["error"])

	var second map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))
	assert.Equal(t, map[string]any{"key": "storefront_products"}, second["cache"])
}

func TestHandlerRejectsAfterClose(t *testing.T) {
	h := newHandler(context.Background(), &fakeAppender{}, time.Hour, slog.LevelInfo)
	require.NoError(t, h.Close())
	require.NoError(t, h.Close())

	err := h.Handle(context.Background(), slog.NewRecord(time.Now(), slog.LevelInfo, "late", 0))
	assert.ErrorIs(t, err, errClosed)
}

func TestFlushSplitsOversizedBatches(t *testing.T) {
	ab := &fakeAppender{}
	h := &Handler{ab: ab, ctx: context.Background()}

	h.flush(bytes.Repeat([]byte("x"), maxBlock+10))
	h.flush(nil)

	require.Len(t, ab.blocks, 2)
	assert.Len(t, ab.blocks[0], maxBlock)
	assert.Len(t, ab.blocks[1], 10)
}

func TestFanoutDeliversToEveryHandler(t *testing.T) {
	var a, b bytes.Buffer
	h := Fanout(
		slog.NewJSONHandler(&a, &slog.HandlerOptions{Level: slog.LevelDebug}),
		slog.NewJSONHandler(&b, &slog.HandlerOptions{Level: slog.LevelWarn}),
		nil,
	)
	logger := slog.New(h).With("request_id", "r1")

	logger.Debug("debug only")
	logger.Warn("everyone")

	assert.Equal(t, 2, strings.Count(a.String(), "\n"))
	assert.Equal(t, 1, strings.Count(b.String(), "\n"))
	assert.Contains(t, b.String(), `"request_id":"r1"`)
	assert.False(t, h.Enabled(context.Background(), slog.LevelDebug-1))
}

func TestFanoutSingleHandlerIsUnwrapped(t *testing.T) {
	inner := slog.NewTextHandler(io.Discard, nil)
	assert.Same(t, inner, Fanout(inner, nil))
}

func TestFromConfig(t *testing.T) {
	cfg := &config.Config{
		Azure:   config.AzureConfig{AccountName: "acct", AccountKey: "key"},
		Logsink: config.LogsinkConfig{Container: "logs", FlushEvery: time.Second},
	}
	sink := FromConfig(cfg)
	assert.True(t, sink.Enabled())
	assert.Equal(t, "logs", sink.Container)

	sink.AccountKey = ""
	assert.False(t, sink.Enabled())
}

func TestDefaultBlobName(t *testing.T) {
	got := DefaultBlobName(time.Date(2026, 3, 7, 23, 0, 0, 0, time.UTC), "web-1")
	assert.Equal(t, "2026/03/07/web-1.jsonl", got)
}
