// Package benchmarks caches built sector benchmarks so repeated
// evaluations of entities in the same sector do not re-run percentile and
// bootstrap computation. Entries carry a TTL and the whole cache is
// disposable.
package benchmarks

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/aristath/insight/internal/scoring/benchmark"
)

// DefaultTTL is how long a cached benchmark stays valid.
const DefaultTTL = 24 * time.Hour

// Cache stores sector benchmarks in cache.db.
type Cache struct {
	db  *sql.DB // cache.db - benchmark_cache table
	log zerolog.Logger
	now func() time.Time
}

// NewCache creates a benchmark cache.
func NewCache(db *sql.DB, log zerolog.Logger) *Cache {
	return &Cache{
		db:  db,
		log: log.With().Str("repo", "benchmark_cache").Logger(),
		now: time.Now,
	}
}

func cacheKey(sector, metric string) string {
	return sector + ":" + metric
}

// Put stores a benchmark for a sector/metric pair. A non-positive TTL
// falls back to DefaultTTL. Existing entries are replaced.
func (c *Cache) Put(sector, metric string, b *benchmark.SectorBenchmark, ttl time.Duration) error {
	if b == nil {
		return fmt.Errorf("cannot cache nil benchmark")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	payload, err := msgpack.Marshal(b)
	if err != nil {
		return fmt.Errorf("failed to encode benchmark %s/%s: %w", sector, metric, err)
	}

	query := `
		INSERT INTO benchmark_cache (cache_key, payload, expires_at)
		VALUES (?, ?, ?)
		ON CONFLICT(cache_key) DO UPDATE SET
			payload = excluded.payload,
			expires_at = excluded.expires_at
	`
	_, err = c.db.Exec(query, cacheKey(sector, metric), payload, c.now().Add(ttl).Unix())
	if err != nil {
		return fmt.Errorf("failed to cache benchmark %s/%s: %w", sector, metric, err)
	}

	return nil
}

// Get retrieves a cached benchmark. Returns false on miss or when the
// entry has expired; expired entries are left for PurgeExpired.
func (c *Cache) Get(sector, metric string) (*benchmark.SectorBenchmark, bool, error) {
	var (
		payload   []byte
		expiresAt int64
	)
	err := c.db.QueryRow(
		"SELECT payload, expires_at FROM benchmark_cache WHERE cache_key = ?",
		cacheKey(sector, metric),
	).Scan(&payload, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read benchmark cache %s/%s: %w", sector, metric, err)
	}

	if c.now().Unix() >= expiresAt {
		return nil, false, nil
	}

	var b benchmark.SectorBenchmark
	if err := msgpack.Unmarshal(payload, &b); err != nil {
		return nil, false, fmt.Errorf("failed to decode cached benchmark %s/%s: %w", sector, metric, err)
	}
	return &b, true, nil
}

// PurgeExpired deletes all expired entries and returns how many were
// removed. Called by the maintenance job.
func (c *Cache) PurgeExpired() (int64, error) {
	result, err := c.db.Exec("DELETE FROM benchmark_cache WHERE expires_at <= ?", c.now().Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to purge benchmark cache: %w", err)
	}

	purged, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count purged cache entries: %w", err)
	}

	if purged > 0 {
		c.log.Debug().Int64("purged", purged).Msg("Expired benchmarks purged")
	}

	return purged, nil
}
