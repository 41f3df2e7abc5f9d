package querycache

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/alt-project/flixctl/internal/metrics"
)

const (
	tagSingle Tag = "Single-Movie"
	tagAll    Tag = "All-Movies"
	tagGenres Tag = "Genres"
)

func newTestCache(t *testing.T, cfg Config) *Cache {
	t.Helper()
	c, err := New(cfg, nil)
	require.NoError(t, err)
	return c
}

func countingFetch(calls *atomic.Int32, payload string) FetchFunc {
	return func(context.Context) ([]byte, error) {
		calls.Add(1)
		return []byte(payload), nil
	}
}

func TestNewKey_SortsParams(t *testing.T) {
	a := NewKey("/movies", url.Values{"page": {"1"}, "limit": {"10"}})
	b := NewKey("/movies", url.Values{"limit": {"10"}, "page": {"1"}})

	assert.Equal(t, a, b)
	assert.Equal(t, "/movies?limit=10&page=1", a.String())
	assert.Equal(t, "/genres", NewKey("/genres", nil).String())
}

func TestQuery_HitAfterMiss(t *testing.T) {
	c := newTestCache(t, Config{})
	ctx := context.Background()
	var calls atomic.Int32
	key := Key{Endpoint: "/movie/7"}

	hitsBefore := testutil.ToFloat64(metrics.CacheLookups.WithLabelValues("hit"))

	first, err := c.Query(ctx, key, []Tag{tagSingle}, countingFetch(&calls, `{"id":7}`))
	require.NoError(t, err)
	second, err := c.Query(ctx, key, []Tag{tagSingle}, countingFetch(&calls, `{"id":8}`))
	require.NoError(t, err)

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, first, second)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.CacheLookups.WithLabelValues("hit"))-hitsBefore)
}

func TestQuery_DistinctParamsAreDistinctEntries(t *testing.T) {
	c := newTestCache(t, Config{})
	ctx := context.Background()
	var calls atomic.Int32

	_, err := c.Query(ctx, NewKey("/movies", url.Values{"page": {"1"}}), []Tag{tagAll}, countingFetch(&calls, "p1"))
	require.NoError(t, err)
	_, err = c.Query(ctx, NewKey("/movies", url.Values{"page": {"2"}}), []Tag{tagAll}, countingFetch(&calls, "p2"))
	require.NoError(t, err)

	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, []string{"/movies?page=1", "/movies?page=2"}, c.KeysFor(tagAll))
}

func TestQuery_ConcurrentCallersShareOneFetch(t *testing.T) {
	c := newTestCache(t, Config{})
	key := Key{Endpoint: "/movie/7"}

	var joins sync.WaitGroup
	joins.Add(2)
	c.joined = func(string) { joins.Done() }

	release := make(chan struct{})
	var calls atomic.Int32
	fetch := func(context.Context) ([]byte, error) {
		calls.Add(1)
		<-release
		return []byte(`{"id":7}`), nil
	}

	coalescedBefore := testutil.ToFloat64(metrics.CacheCoalesced)

	results := make([][]byte, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			data, err := c.Query(context.Background(), key, []Tag{tagSingle}, fetch)
			assert.NoError(t, err)
			results[i] = data
		}(i)
	}

	joins.Wait()
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, results[0], results[1])
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.CacheCoalesced)-coalescedBefore)
}

func TestQuery_ErrorsAreNotCached(t *testing.T) {
	c := newTestCache(t, Config{})
	ctx := context.Background()
	key := Key{Endpoint: "/genres"}
	boom := errors.New("boom")

	var calls atomic.Int32
	failing := func(context.Context) ([]byte, error) {
		calls.Add(1)
		return nil, boom
	}

	_, err := c.Query(ctx, key, []Tag{tagGenres}, failing)
	require.ErrorIs(t, err, boom)
	_, err = c.Query(ctx, key, []Tag{tagGenres}, failing)
	require.ErrorIs(t, err, boom)

	assert.Equal(t, int32(2), calls.Load())
	assert.Zero(t, c.Len())
}

func TestQuery_CallerCancellationDoesNotAbortFetch(t *testing.T) {
	c := newTestCache(t, Config{})
	key := Key{Endpoint: "/movie/3"}

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})
	fetch := func(ctx context.Context) ([]byte, error) {
		defer close(done)
		close(started)
		<-release
		assert.NoError(t, ctx.Err())
		return []byte("movie"), nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		_, err := c.Query(ctx, key, []Tag{tagSingle}, fetch)
		errc <- err
	}()

	<-started
	cancel()
	assert.ErrorIs(t, <-errc, context.Canceled)

	close(release)
	<-done

	require.Eventually(t, func() bool { return c.Len() == 1 }, time.Second, 5*time.Millisecond)
}

func TestMutate_SuccessInvalidatesTags(t *testing.T) {
	c := newTestCache(t, Config{})
	ctx := context.Background()
	var movieCalls, genreCalls atomic.Int32

	movieKey := Key{Endpoint: "/movie/7"}
	genreKey := Key{Endpoint: "/genres"}

	_, err := c.Query(ctx, movieKey, []Tag{tagSingle}, countingFetch(&movieCalls, "before"))
	require.NoError(t, err)
	_, err = c.Query(ctx, genreKey, []Tag{tagGenres}, countingFetch(&genreCalls, "genres"))
	require.NoError(t, err)

	before := testutil.ToFloat64(metrics.CacheInvalidations.WithLabelValues(string(tagSingle)))

	_, err = c.Mutate(ctx, []Tag{tagSingle, tagAll}, func(context.Context) ([]byte, error) {
		return []byte(`{"message":"ok"}`), nil
	})
	require.NoError(t, err)

	after, err := c.Query(ctx, movieKey, []Tag{tagSingle}, countingFetch(&movieCalls, "after"))
	require.NoError(t, err)
	_, err = c.Query(ctx, genreKey, []Tag{tagGenres}, countingFetch(&genreCalls, "genres"))
	require.NoError(t, err)

	assert.Equal(t, "after", string(after))
	assert.Equal(t, int32(2), movieCalls.Load())
	assert.Equal(t, int32(1), genreCalls.Load(), "untagged entries survive")
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.CacheInvalidations.WithLabelValues(string(tagSingle)))-before)
}

func TestMutate_FailureKeepsEntries(t *testing.T) {
	c := newTestCache(t, Config{})
	ctx := context.Background()
	var calls atomic.Int32
	key := Key{Endpoint: "/movie/7"}

	_, err := c.Query(ctx, key, []Tag{tagSingle}, countingFetch(&calls, "movie"))
	require.NoError(t, err)

	boom := errors.New("rejected")
	_, err = c.Mutate(ctx, []Tag{tagSingle}, func(context.Context) ([]byte, error) {
		return nil, boom
	})
	require.ErrorIs(t, err, boom)

	_, err = c.Query(ctx, key, []Tag{tagSingle}, countingFetch(&calls, "movie"))
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestInvalidate_OverlappingFetchIsNotStored(t *testing.T) {
	c := newTestCache(t, Config{})
	key := Key{Endpoint: "/movie/7"}

	started := make(chan struct{})
	release := make(chan struct{})
	fetch := func(context.Context) ([]byte, error) {
		close(started)
		<-release
		return []byte("stale"), nil
	}

	type result struct {
		data []byte
		err  error
	}
	resc := make(chan result, 1)
	go func() {
		data, err := c.Query(context.Background(), key, []Tag{tagSingle}, fetch)
		resc <- result{data, err}
	}()

	<-started
	c.Invalidate(context.Background(), tagSingle)
	close(release)

	res := <-resc
	require.NoError(t, res.err)
	assert.Equal(t, "stale", string(res.data), "the caller still gets its answer")
	assert.Zero(t, c.Len())
	assert.Empty(t, c.KeysFor(tagSingle))
}

func TestPurge_OverlappingFetchIsNotStored(t *testing.T) {
	c := newTestCache(t, Config{})
	key := Key{Endpoint: "/movie/7"}

	started := make(chan struct{})
	release := make(chan struct{})
	fetch := func(context.Context) ([]byte, error) {
		close(started)
		<-release
		return []byte("previous viewer"), nil
	}

	done := make(chan error, 1)
	go func() {
		_, err := c.Query(context.Background(), key, []Tag{tagSingle}, fetch)
		done <- err
	}()

	<-started
	c.Purge()
	close(release)

	require.NoError(t, <-done)
	assert.Zero(t, c.Len())
}

func TestQuery_AfterMutationDoesNotJoinStaleFetch(t *testing.T) {
	c := newTestCache(t, Config{})
	key := Key{Endpoint: "/movie/1"}
	joins := make(chan string, 2)
	c.joined = func(k string) { joins <- k }

	var calls atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})
	stale := func(context.Context) ([]byte, error) {
		calls.Add(1)
		close(started)
		<-release
		return []byte("before-mutation"), nil
	}

	first := make(chan string, 1)
	go func() {
		data, _ := c.Query(context.Background(), key, []Tag{tagSingle}, stale)
		first <- string(data)
	}()
	<-started
	<-joins

	_, err := c.Mutate(context.Background(), []Tag{tagSingle}, func(context.Context) ([]byte, error) {
		return []byte("rated"), nil
	})
	require.NoError(t, err)

	second := make(chan string, 1)
	go func() {
		data, _ := c.Query(context.Background(), key, []Tag{tagSingle}, countingFetch(&calls, "after-mutation"))
		second <- string(data)
	}()
	<-joins
	close(release)

	assert.Equal(t, "after-mutation", <-second)
	assert.Equal(t, "before-mutation", <-first)
	assert.Equal(t, int32(2), calls.Load())

	data, err := c.Query(context.Background(), key, []Tag{tagSingle}, countingFetch(&calls, "unused"))
	require.NoError(t, err)
	assert.Equal(t, "after-mutation", string(data))
	assert.Equal(t, int32(2), calls.Load())
}

func TestQuery_AfterPurgeDoesNotJoinStaleFetch(t *testing.T) {
	c := newTestCache(t, Config{})
	key := Key{Endpoint: "/movies/latest"}
	joins := make(chan string, 2)
	c.joined = func(k string) { joins <- k }

	var calls atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})
	stale := func(context.Context) ([]byte, error) {
		calls.Add(1)
		close(started)
		<-release
		return []byte("previous viewer"), nil
	}

	go func() { _, _ = c.Query(context.Background(), key, []Tag{tagAll}, stale) }()
	<-started
	<-joins

	c.Purge()

	second := make(chan string, 1)
	go func() {
		data, _ := c.Query(context.Background(), key, []Tag{tagAll}, countingFetch(&calls, "current viewer"))
		second <- string(data)
	}()
	<-joins
	close(release)

	assert.Equal(t, "current viewer", <-second)
	assert.Equal(t, int32(2), calls.Load())
}

func TestQuery_TTLExpiry(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	advance := func(d time.Duration) {
		mu.Lock()
		now = now.Add(d)
		mu.Unlock()
	}

	c := newTestCache(t, Config{TTL: time.Minute, Clock: clock})
	ctx := context.Background()
	var calls atomic.Int32
	key := Key{Endpoint: "/genres"}

	_, err := c.Query(ctx, key, []Tag{tagGenres}, countingFetch(&calls, "g"))
	require.NoError(t, err)

	advance(59 * time.Second)
	_, err = c.Query(ctx, key, []Tag{tagGenres}, countingFetch(&calls, "g"))
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())

	advance(2 * time.Second)
	_, err = c.Query(ctx, key, []Tag{tagGenres}, countingFetch(&calls, "g"))
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestLRUEvictionUnindexesKey(t *testing.T) {
	c := newTestCache(t, Config{MaxEntries: 2})
	ctx := context.Background()
	var calls atomic.Int32

	for _, id := range []string{"1", "2", "3"} {
		_, err := c.Query(ctx, Key{Endpoint: "/movie/" + id}, []Tag{tagSingle}, countingFetch(&calls, id))
		require.NoError(t, err)
	}

	assert.Equal(t, 2, c.Len())
	assert.Equal(t, []string{"/movie/2", "/movie/3"}, c.KeysFor(tagSingle))
}

func TestPurge(t *testing.T) {
	c := newTestCache(t, Config{})
	ctx := context.Background()
	var calls atomic.Int32

	_, err := c.Query(ctx, Key{Endpoint: "/genres"}, []Tag{tagGenres}, countingFetch(&calls, "g"))
	require.NoError(t, err)

	c.Purge()

	assert.Zero(t, c.Len())
	assert.Empty(t, c.KeysFor(tagGenres))
}

func TestQuery_RecordsSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	original := otel.GetTracerProvider()
	otel.SetTracerProvider(provider)
	t.Cleanup(func() { otel.SetTracerProvider(original) })

	c := newTestCache(t, Config{})
	ctx := context.Background()
	var calls atomic.Int32

	_, err := c.Query(ctx, Key{Endpoint: "/genres"}, []Tag{tagGenres}, countingFetch(&calls, "g"))
	require.NoError(t, err)
	_, err = c.Mutate(ctx, []Tag{tagGenres}, countingFetch(&calls, "ok"))
	require.NoError(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "querycache.query", spans[0].Name())
	assert.Equal(t, "querycache.mutate", spans[1].Name())
}
