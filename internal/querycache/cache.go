// Package querycache memoizes service queries by key and evicts them by tag when mutations succeed.
package querycache

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/alt-project/flixctl/internal/metrics"
)

// Tag is a cache-coherence label connecting mutations to the queries they affect.
type Tag string

// Key identifies one cached request: an endpoint plus its serialized parameters.
type Key struct {
	Endpoint string
	Params   string
}

// NewKey builds a key with params serialized in sorted order.
func NewKey(endpoint string, params url.Values) Key {
	return Key{Endpoint: endpoint, Params: params.Encode()}
}

func (k Key) String() string {
	if k.Params == "" {
		return k.Endpoint
	}
	return k.Endpoint + "?" + k.Params
}

// FetchFunc performs the upstream request for a query or mutation.
type FetchFunc func(ctx context.Context) ([]byte, error)

// Config controls freshness and capacity.
type Config struct {
	// TTL is how long an entry stays fresh. Zero keeps entries until invalidated or evicted.
	TTL time.Duration
	// MaxEntries bounds the number of cached keys.
	MaxEntries int
	// Clock overrides time.Now.
	Clock func() time.Time
}

type entry struct {
	payload  []byte
	tags     []Tag
	storedAt time.Time
}

// Cache is a tag-invalidated query cache with in-flight coalescing.
type Cache struct {
	mu       sync.Mutex
	entries  *lru.Cache[string, *entry]
	tagIndex map[Tag]map[string]struct{}
	tagGen   map[Tag]uint64
	purges   uint64

	group  singleflight.Group
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger
	tracer trace.Tracer

	// joined is a test hook fired once a caller is attached to a flight.
	joined func(key string)
}

// New creates a cache.
func New(cfg Config, logger *slog.Logger) (*Cache, error) {
	if logger == nil {
		logger = slog.Default()
	}
	size := cfg.MaxEntries
	if size <= 0 {
		size = 256
	}
	now := cfg.Clock
	if now == nil {
		now = time.Now
	}

	c := &Cache{
		tagIndex: make(map[Tag]map[string]struct{}),
		tagGen:   make(map[Tag]uint64),
		ttl:      cfg.TTL,
		now:      now,
		logger:   logger,
		tracer:   otel.Tracer("flixctl/querycache"),
	}

	entries, err := lru.NewWithEvict[string, *entry](size, c.onEvict)
	if err != nil {
		return nil, fmt.Errorf("creating lru: %w", err)
	}
	c.entries = entries
	return c, nil
}

// onEvict keeps the tag index in step with the entry set. It runs with c.mu held.
func (c *Cache) onEvict(key string, e *entry) {
	c.unindex(key, e.tags)
}

// Query returns the cached payload for key when fresh. Otherwise it fetches once, shares the
// outcome with every concurrent caller of the same key, and stores a successful payload
// under tags. Errors are returned to the callers and never cached.
func (c *Cache) Query(ctx context.Context, key Key, tags []Tag, fetch FetchFunc) ([]byte, error) {
	k := key.String()
	ctx, span := c.tracer.Start(ctx, "querycache.query", trace.WithAttributes(
		attribute.String("cache.key", k),
	))
	defer span.End()

	c.mu.Lock()
	if e, ok := c.entries.Get(k); ok {
		if c.fresh(e) {
			c.mu.Unlock()
			metrics.RecordLookup(true)
			span.SetAttributes(attribute.Bool("cache.hit", true))
			return e.payload, nil
		}
		c.entries.Remove(k)
		metrics.RecordEviction()
	}
	gens := c.generations(tags)
	c.mu.Unlock()

	metrics.RecordLookup(false)
	span.SetAttributes(attribute.Bool("cache.hit", false))

	// Flights are keyed by generation so a query issued after an invalidation never joins
	// a fetch that started before it.
	ch := c.group.DoChan(gens.flightKey(k, tags), func() (any, error) {
		// The flight outlives any single caller's cancellation.
		fetchCtx := context.WithoutCancel(ctx)
		start := c.now()
		data, err := fetch(fetchCtx)
		metrics.RecordFetch(key.Endpoint, c.now().Sub(start).Seconds())
		if err != nil {
			return nil, err
		}
		c.store(fetchCtx, k, tags, data, gens)
		return data, nil
	})
	if c.joined != nil {
		c.joined(k)
	}

	select {
	case res := <-ch:
		if res.Shared {
			metrics.RecordCoalesced()
			span.SetAttributes(attribute.Bool("cache.shared", true))
		}
		if res.Err != nil {
			span.RecordError(res.Err)
			span.SetStatus(codes.Error, "fetch failed")
			return nil, res.Err
		}
		return res.Val.([]byte), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Mutate always runs do. On success every entry providing one of tags is evicted so the next
// Query refetches. On failure nothing is invalidated.
func (c *Cache) Mutate(ctx context.Context, tags []Tag, do FetchFunc) ([]byte, error) {
	ctx, span := c.tracer.Start(ctx, "querycache.mutate", trace.WithAttributes(
		attribute.StringSlice("cache.tags", tagStrings(tags)),
	))
	defer span.End()

	data, err := do(ctx)
	if err != nil {
		metrics.RecordMutation(false)
		span.RecordError(err)
		span.SetStatus(codes.Error, "mutation failed")
		return nil, err
	}
	metrics.RecordMutation(true)

	evicted := c.Invalidate(ctx, tags...)
	span.SetAttributes(attribute.Int("cache.evicted", evicted))
	return data, nil
}

// Invalidate evicts every entry providing one of tags and returns how many were evicted.
// Fetches already in flight for those tags still answer their existing callers but are not
// stored, and later queries start a fresh fetch instead of joining them.
func (c *Cache) Invalidate(ctx context.Context, tags ...Tag) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := 0
	for _, t := range tags {
		c.tagGen[t]++

		keys := make([]string, 0, len(c.tagIndex[t]))
		for k := range c.tagIndex[t] {
			keys = append(keys, k)
		}
		for _, k := range keys {
			if c.entries.Remove(k) {
				total++
			}
		}
		metrics.RecordInvalidation(string(t), len(keys))
	}

	c.logger.DebugContext(ctx, "cache invalidated", "tags", tagStrings(tags), "evicted", total)
	return total
}

// Purge drops every entry. Fetches in flight are not stored or joined by later queries.
func (c *Cache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.purges++
	c.entries.Purge()
}

// Len returns the number of cached entries, fresh or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Len()
}

// KeysFor returns the cached keys currently providing tag, sorted.
func (c *Cache) KeysFor(tag Tag) []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]string, 0, len(c.tagIndex[tag]))
	for k := range c.tagIndex[tag] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (c *Cache) store(ctx context.Context, k string, tags []Tag, data []byte, gens generation) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.purges != gens.purges {
		c.logger.DebugContext(ctx, "discarding fetch overlapped by purge", "key", k)
		return
	}
	for _, t := range tags {
		if c.tagGen[t] != gens.tags[t] {
			c.logger.DebugContext(ctx, "discarding fetch overlapped by invalidation", "key", k, "tag", string(t))
			return
		}
	}

	if old, ok := c.entries.Peek(k); ok {
		c.unindex(k, old.tags)
	}
	if c.entries.Add(k, &entry{payload: data, tags: tags, storedAt: c.now()}) {
		metrics.RecordEviction()
	}
	for _, t := range tags {
		set, ok := c.tagIndex[t]
		if !ok {
			set = make(map[string]struct{})
			c.tagIndex[t] = set
		}
		set[k] = struct{}{}
	}
}

func (c *Cache) unindex(k string, tags []Tag) {
	for _, t := range tags {
		if set, ok := c.tagIndex[t]; ok {
			delete(set, k)
			if len(set) == 0 {
				delete(c.tagIndex, t)
			}
		}
	}
}

func (c *Cache) fresh(e *entry) bool {
	return c.ttl <= 0 || c.now().Sub(e.storedAt) < c.ttl
}

// generation records the invalidation counters a fetch started under.
type generation struct {
	tags   map[Tag]uint64
	purges uint64
}

func (c *Cache) generations(tags []Tag) generation {
	g := generation{tags: make(map[Tag]uint64, len(tags)), purges: c.purges}
	for _, t := range tags {
		g.tags[t] = c.tagGen[t]
	}
	return g
}

func (g generation) flightKey(k string, tags []Tag) string {
	var b strings.Builder
	b.WriteString(k)
	b.WriteString("#")
	b.WriteString(strconv.FormatUint(g.purges, 10))
	for _, t := range tags {
		b.WriteString(":")
		b.WriteString(strconv.FormatUint(g.tags[t], 10))
	}
	return b.String()
}

func tagStrings(tags []Tag) []string {
	out := make([]string, len(tags))
	for i, t := range tags {
		out[i] = string(t)
	}
	return out
}
