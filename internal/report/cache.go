package report

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/singleflight"

	"dormcore/pkg/domain"
)

// DefaultTTL is how long a computed report is served before recomputation.
const DefaultTTL = 30 * time.Minute

// Source provides the data reports are computed from.
type Source interface {
	Snapshot() domain.Snapshot
}

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// Cache serves reports, recomputing one only when it is missing or older
// than the ttl. Repository writes do not invalidate entries.
type Cache struct {
	source   Source
	store    Store
	ttl      time.Duration
	clock    Clock
	logger   domain.Logger
	group    singleflight.Group
	requests *prometheus.CounterVec
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithStore selects where entries live. Defaults to a MemoryStore.
func WithStore(s Store) CacheOption {
	return func(c *Cache) {
		if s != nil {
			c.store = s
		}
	}
}

// WithTTL overrides DefaultTTL.
func WithTTL(ttl time.Duration) CacheOption {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithClock overrides the wall clock.
func WithClock(clock Clock) CacheOption {
	return func(c *Cache) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithLogger sets the cache logger.
func WithLogger(l domain.Logger) CacheOption {
	return func(c *Cache) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithRegisterer exports hit and miss counters to reg.
func WithRegisterer(reg prometheus.Registerer) CacheOption {
	return func(c *Cache) {
		if reg == nil {
			return
		}
		counter := prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dormcore_report_cache_requests_total",
			Help: "Report requests by report kind and cache result.",
		}, []string{"report", "result"})
		if err := reg.Register(counter); err != nil {
			var already prometheus.AlreadyRegisteredError
			if !errors.As(err, &already) {
				return
			}
			existing, ok := already.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				return
			}
			counter = existing
		}
		c.requests = counter
	}
}

// NewCache builds a cache over source.
func NewCache(source Source, opts ...CacheOption) *Cache {
	c := &Cache{
		source: source,
		store:  NewMemoryStore(),
		ttl:    DefaultTTL,
		clock:  systemClock{},
		logger: domain.NopLogger{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TTL returns the configured validity window.
func (c *Cache) TTL() time.Duration { return c.ttl }

func (c *Cache) fresh(e Entry, now time.Time) bool {
	return now.Before(e.ComputedAt.Add(c.ttl))
}

func (c *Cache) count(kind Kind, result string) {
	if c.requests != nil {
		c.requests.WithLabelValues(string(kind), result).Inc()
	}
}

// Get returns the report of the given kind, computing it if the cached
// entry is missing or expired. Store read failures are treated as misses.
func (c *Cache) Get(ctx context.Context, kind Kind) (Document, error) {
	if _, ok := generators[kind]; !ok {
		return Document{}, fmt.Errorf("%w: unknown report %q", domain.ErrInvalid, kind)
	}
	now := c.clock.Now()
	entry, ok, err := c.store.Get(ctx, kind)
	if err != nil {
		c.logger.Warn("report cache read failed", "report", kind, "error", err)
	}
	if err == nil && ok && c.fresh(entry, now) {
		c.count(kind, "hit")
		c.logger.Debug("report cache hit", "report", kind)
		return entry.Document, nil
	}
	c.count(kind, "miss")
	c.logger.Debug("report cache miss", "report", kind)

	v, err, _ := c.group.Do(string(kind), func() (any, error) {
		// A caller that missed while another computation was finishing finds
		// its result here.
		if entry, ok, err := c.store.Get(ctx, kind); err == nil && ok && c.fresh(entry, c.clock.Now()) {
			return entry.Document, nil
		}
		computedAt := c.clock.Now()
		doc, err := Generate(kind, c.source.Snapshot(), computedAt)
		if err != nil {
			return Document{}, err
		}
		if err := c.store.Put(ctx, kind, Entry{Document: doc, ComputedAt: computedAt}); err != nil {
			c.logger.Warn("report cache write failed", "report", kind, "error", err)
		}
		return doc, nil
	})
	if err != nil {
		return Document{}, err
	}
	return v.(Document), nil
}

// Text returns the rendered report of the given kind.
func (c *Cache) Text(ctx context.Context, kind Kind) (string, error) {
	doc, err := c.Get(ctx, kind)
	if err != nil {
		return "", err
	}
	return doc.Text(), nil
}

// Occupancy returns the room occupancy report.
func (c *Cache) Occupancy(ctx context.Context) (string, error) { return c.Text(ctx, KindOccupancy) }

// Financial returns the financial report.
func (c *Cache) Financial(ctx context.Context) (string, error) { return c.Text(ctx, KindFinancial) }

// Students returns the student statistics report.
func (c *Cache) Students(ctx context.Context) (string, error) { return c.Text(ctx, KindStudents) }

// Contracts returns the contract report.
func (c *Cache) Contracts(ctx context.Context) (string, error) { return c.Text(ctx, KindContracts) }

// Summary returns the summary report.
func (c *Cache) Summary(ctx context.Context) (string, error) { return c.Text(ctx, KindSummary) }
