package chunkcache

import (
	"context"
	"errors"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/rounds/internal/store"
)

// fakeRedis is an in-memory Client.
type fakeRedis struct {
	data    map[string]string
	ttls    map[string]time.Duration
	failGet error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeRedis) Get(ctx context.Context, key string) *goredis.StringCmd {
	if f.failGet != nil {
		return goredis.NewStringResult("", f.failGet)
	}
	v, ok := f.data[key]
	if !ok {
		return goredis.NewStringResult("", goredis.Nil)
	}
	return goredis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(ctx context.Context, key string, value any, exp time.Duration) *goredis.StatusCmd {
	switch v := value.(type) {
	case []byte:
		f.data[key] = string(v)
	case string:
		f.data[key] = v
	}
	f.ttls[key] = exp
	return goredis.NewStatusResult("OK", nil)
}

type countingSource struct {
	calls    int
	searches int
	chunks   []store.Chunk
}

func (s *countingSource) QueryChunks(context.Context, string, []store.ChunkKind, int) ([]store.Chunk, error) {
	s.calls++
	return s.chunks, nil
}

func (s *countingSource) SearchChunks(context.Context, string, []store.ChunkKind, []string, int) ([]store.Chunk, error) {
	s.searches++
	return s.chunks, nil
}

func TestCache_ReadThrough(t *testing.T) {
	rdb := newFakeRedis()
	src := &countingSource{chunks: []store.Chunk{{ID: "c1", DocumentID: "d", Text: "Give aspirin.", Page: 2, Kind: store.KindStandard}}}
	c := New(rdb, src, 0, nil)
	ctx := context.Background()

	first, err := c.QueryChunks(ctx, "d", []store.ChunkKind{store.KindStandard}, 9)
	require.NoError(t, err)
	second, err := c.QueryChunks(ctx, "d", []store.ChunkKind{store.KindStandard}, 9)
	require.NoError(t, err)

	assert.Equal(t, 1, src.calls, "second lookup should be served from cache")
	assert.Equal(t, first, second)
	assert.Equal(t, time.Hour, rdb.ttls[cacheKey("d", []store.ChunkKind{store.KindStandard}, 9)])
}

func TestCache_SearchKeyedByTerms(t *testing.T) {
	rdb := newFakeRedis()
	src := &countingSource{chunks: []store.Chunk{{ID: "c7", DocumentID: "d", Text: "Hold heparin before surgery.", Kind: store.KindStandard}}}
	c := New(rdb, src, 0, nil)
	ctx := context.Background()
	kinds := []store.ChunkKind{store.KindStandard}

	_, err := c.SearchChunks(ctx, "d", kinds, []string{"surgery", "heparin"}, 9)
	require.NoError(t, err)
	_, err = c.SearchChunks(ctx, "d", kinds, []string{"heparin", "surgery"}, 9)
	require.NoError(t, err)
	assert.Equal(t, 1, src.searches, "term order does not change the key")

	_, err = c.SearchChunks(ctx, "d", kinds, []string{"warfarin"}, 9)
	require.NoError(t, err)
	assert.Equal(t, 2, src.searches)

	_, err = c.QueryChunks(ctx, "d", kinds, 9)
	require.NoError(t, err)
	assert.Equal(t, 1, src.calls, "searches and plain queries use separate keys")
}

func TestCache_EmptyResultNotCached(t *testing.T) {
	rdb := newFakeRedis()
	src := &countingSource{}
	c := New(rdb, src, time.Minute, nil)

	for range 2 {
		chunks, err := c.QueryChunks(context.Background(), "d", nil, 3)
		require.NoError(t, err)
		assert.Empty(t, chunks)
	}
	assert.Equal(t, 2, src.calls)
	assert.Empty(t, rdb.data)
}

func TestCache_RedisFailureFallsThrough(t *testing.T) {
	rdb := newFakeRedis()
	rdb.failGet = errors.New("connection refused")
	src := &countingSource{chunks: []store.Chunk{{ID: "c1"}}}
	c := New(rdb, src, time.Minute, nil)

	chunks, err := c.QueryChunks(context.Background(), "d", nil, 3)
	require.NoError(t, err)
	assert.Len(t, chunks, 1)
}

func TestCache_CorruptEntryRefetched(t *testing.T) {
	rdb := newFakeRedis()
	key := cacheKey("d", nil, 3)
	rdb.data[key] = "not json"
	src := &countingSource{chunks: []store.Chunk{{ID: "c1"}}}
	c := New(rdb, src, time.Minute, nil)

	chunks, err := c.QueryChunks(context.Background(), "d", nil, 3)
	require.NoError(t, err)
	assert.Len(t, chunks, 1)
	assert.Equal(t, 1, src.calls)
	assert.NotEqual(t, "not json", rdb.data[key])
}

func TestCacheKey(t *testing.T) {
	a := cacheKey("d", []store.ChunkKind{store.KindException, store.KindContraindication}, 9)
	b := cacheKey("d", []store.ChunkKind{store.KindContraindication, store.KindException}, 9)
	assert.Equal(t, a, b)
	assert.Equal(t, "rounds:chunks:d:*:3", cacheKey("d", nil, 3))
	assert.NotEqual(t, cacheKey("d", nil, 3), cacheKey("d", nil, 9))
}
