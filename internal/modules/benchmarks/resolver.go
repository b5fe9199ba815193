package benchmarks

import (
	"github.com/rs/zerolog"

	"github.com/aristath/insight/internal/evaluation"
	"github.com/aristath/insight/internal/events"
	"github.com/aristath/insight/internal/scoring/benchmark"
)

// Resolver turns raw sector samples into benchmarks, reusing cached ones
// where they are still fresh. Misses are built, cached, and announced with
// a BenchmarksRefreshed event covering every freshly built metric.
type Resolver struct {
	cache *Cache
	bus   *events.Bus
	log   zerolog.Logger
}

// NewResolver creates a benchmark resolver.
func NewResolver(cache *Cache, bus *events.Bus, log zerolog.Logger) *Resolver {
	return &Resolver{
		cache: cache,
		bus:   bus,
		log:   log.With().Str("service", "benchmark_resolver").Logger(),
	}
}

// Resolve returns a benchmark per metric for a sector's raw samples.
// Seeded requests bypass the cache: the cache key carries no seed, so a
// cached entry built under a different seed would break reproducibility.
// Cache read failures fall back to building; the evaluation must not fail
// because the cache is unavailable.
func (r *Resolver) Resolve(sector string, samples map[evaluation.Metric][]float64, seed *int64) map[evaluation.Metric]*benchmark.SectorBenchmark {
	if sector == "" || len(samples) == 0 {
		return nil
	}

	if seed != nil {
		resolved := make(map[evaluation.Metric]*benchmark.SectorBenchmark, len(samples))
		for metric, sample := range samples {
			if b := benchmark.Build(sample, benchmark.WithSeed(*seed)); b != nil {
				resolved[metric] = b
			}
		}
		return resolved
	}

	resolved := make(map[evaluation.Metric]*benchmark.SectorBenchmark, len(samples))
	built := 0
	for metric, sample := range samples {
		cached, hit, err := r.cache.Get(sector, string(metric))
		if err != nil {
			r.log.Warn().Err(err).
				Str("sector", sector).
				Str("metric", string(metric)).
				Msg("Benchmark cache read failed, rebuilding")
		}
		if hit {
			resolved[metric] = cached
			continue
		}

		b := benchmark.Build(sample)
		if b == nil {
			continue
		}
		resolved[metric] = b
		built++

		if err := r.cache.Put(sector, string(metric), b, DefaultTTL); err != nil {
			r.log.Warn().Err(err).
				Str("sector", sector).
				Str("metric", string(metric)).
				Msg("Failed to cache benchmark")
		}
	}

	if built > 0 {
		r.bus.Publish(events.BenchmarksRefreshed, "benchmarks", events.ToMap(&events.BenchmarksRefreshedData{
			Sector:  sector,
			Metrics: built,
		}))
	}

	if len(resolved) == 0 {
		return nil
	}
	return resolved
}
