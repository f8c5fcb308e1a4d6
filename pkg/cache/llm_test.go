package cache

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ojasjagtap/prompt-ide/internal/testutil"
	"github.com/ojasjagtap/prompt-ide/pkg/core"
)

func newTestCache(t *testing.T) *SQLiteCache {
	t.Helper()
	c, err := NewSQLiteCache(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestSQLiteCacheRoundTrip(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	_, ok, err := c.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "key", []byte("value"), 0))

	data, ok, err := c.Get(ctx, "key")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("value"), data)

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
}

func TestSQLiteCacheExpiry(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "key", []byte("value"), time.Nanosecond))
	time.Sleep(10 * time.Millisecond)

	_, ok, err := c.Get(ctx, "key")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSQLiteCacheClear(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "key", []byte("value"), 0))
	require.NoError(t, c.Clear(ctx))

	_, ok, err := c.Get(ctx, "key")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCachedLLMHitSkipsModel(t *testing.T) {
	c := newTestCache(t)

	mockLLM := new(testutil.MockLLM)
	mockLLM.On("Generate", mock.Anything, mock.Anything, mock.Anything).
		Return(&core.LLMResponse{Content: "cached answer"}, nil).
		Once()

	lm := WrapLLM(mockLLM, c)
	ctx := context.Background()

	first, err := lm.Generate(ctx, "what is 2+2?")
	require.NoError(t, err)
	assert.Equal(t, "cached answer", first.Content)

	// Same prompt and options: served from the cache, no second model call.
	second, err := lm.Generate(ctx, "what is 2+2?")
	require.NoError(t, err)
	assert.Equal(t, "cached answer", second.Content)

	mockLLM.AssertExpectations(t)
}

func TestCachedLLMKeyVariesWithOptions(t *testing.T) {
	c := newTestCache(t)

	mockLLM := new(testutil.MockLLM)
	mockLLM.On("Generate", mock.Anything, mock.Anything, mock.Anything).
		Return(&core.LLMResponse{Content: "answer"}, nil).
		Twice()

	lm := WrapLLM(mockLLM, c)
	ctx := context.Background()

	_, err := lm.Generate(ctx, "prompt")
	require.NoError(t, err)
	_, err = lm.Generate(ctx, "prompt", core.WithTemperature(0.9))
	require.NoError(t, err)

	mockLLM.AssertExpectations(t)
}
