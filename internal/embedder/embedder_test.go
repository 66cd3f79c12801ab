package embedder

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalProvider_Deterministic(t *testing.T) {
	ctx := context.Background()
	l := NewLocalProvider(nil)

	a, err := l.Embed(ctx, "func Foo() {}")
	require.NoError(t, err)
	b, err := l.Embed(ctx, "func Foo() {}")
	require.NoError(t, err)
	assert.Equal(t, a, b, "identical text embeds identically")

	c, err := l.Embed(ctx, "func Bar() {}")
	require.NoError(t, err)
	assert.NotEqual(t, a, c)

	assert.Len(t, a, l.Dimension())
}

func TestLocalProvider_UnitLength(t *testing.T) {
	l := NewLocalProvider(nil)
	v, err := l.Embed(context.Background(), "some chunk")
	require.NoError(t, err)

	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	assert.InDelta(t, 1.0, sum, 1e-5)
}

func TestLocalProvider_EmptyText(t *testing.T) {
	l := NewLocalProvider(nil)
	_, err := l.Embed(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptyText)
}

func TestCache_CopyOnGet(t *testing.T) {
	cache := NewCache(10)
	cache.Set("k", []float32{1, 2, 3})

	v, ok := cache.Get("k")
	require.True(t, ok)
	v[0] = 99

	again, ok := cache.Get("k")
	require.True(t, ok)
	assert.Equal(t, float32(1), again[0], "mutating a returned vector must not pollute the cache")
}

func TestOllamaProvider_Batch(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		var req ollamaEmbedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		resp := ollamaEmbedResponse{Embeddings: make([][]float32, len(req.Input))}
		for i := range req.Input {
			resp.Embeddings[i] = []float32{float32(i), 1}
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	o := NewOllamaProvider(srv.URL, "test-model", NewCache(10))

	vectors, err := o.EmbedBatch(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, vectors, 2)
	assert.Equal(t, []float32{0, 1}, vectors[0])
	assert.Equal(t, []float32{1, 1}, vectors[1])

	// Second call is fully served from cache.
	_, err = o.EmbedBatch(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestOllamaProvider_RetriesThenFails(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "overloaded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	o := NewOllamaProvider(srv.URL, "test-model", nil)
	o.retry = RetryConfig{MaxRetries: 3, BaseDelay: 1, MaxDelay: 2, Multiplier: 2}

	_, err := o.Embed(context.Background(), "text")
	assert.ErrorIs(t, err, ErrProviderFailed)
	assert.Equal(t, int32(3), calls.Load())
}

func TestNew_Defaults(t *testing.T) {
	t.Setenv(EnvProvider, "")

	e, err := New(Config{})
	require.NoError(t, err)
	assert.Equal(t, ProviderLocal, e.Provider())
}

func TestNew_UnknownProvider(t *testing.T) {
	t.Setenv(EnvProvider, "")

	_, err := New(Config{Provider: "quantum"})
	assert.ErrorIs(t, err, ErrUnknownProvider)
}

func TestNew_EnvOverride(t *testing.T) {
	t.Setenv(EnvProvider, "local")

	e, err := New(Config{Provider: "quantum"})
	require.NoError(t, err)
	assert.Equal(t, ProviderLocal, e.Provider())
}
