// Package evaluation is the pure orchestration facade over the scoring
// engines. One call to Evaluate turns already-fetched, already-typed inputs
// for one entity at one as-of date into a complete serializable report. No
// network, file, or database access happens here.
package evaluation

import (
	"time"

	"github.com/aristath/insight/internal/domain"
	"github.com/aristath/insight/internal/scoring/benchmark"
	"github.com/aristath/insight/internal/scoring/composite"
	"github.com/aristath/insight/internal/scoring/contrast"
	"github.com/aristath/insight/internal/scoring/moat"
	"github.com/aristath/insight/internal/scoring/narrative"
	"github.com/aristath/insight/internal/scoring/sentiment"
	"github.com/aristath/insight/internal/scoring/structural"
)

// Metric names the benchmarkable metrics an evaluation request may carry
// samples or pre-built benchmarks for.
type Metric string

const (
	MetricROIC             Metric = "roic"
	MetricNetMargin        Metric = "net_margin"
	MetricOperatingMargin  Metric = "operating_margin"
	MetricRevenueGrowth    Metric = "revenue_growth"
	MetricAssetTurnover    Metric = "asset_turnover"
	MetricInterestCoverage Metric = "interest_coverage"
)

// Request carries everything one evaluation needs. Rows may arrive in any
// order. For each metric a pre-built benchmark wins over a raw sample; a
// metric with neither is simply not benchmark-scored.
type Request struct {
	EntityID string
	Sector   string
	AsOf     time.Time

	Rows      []domain.FiscalRow
	Multiples domain.MultiplesHistory
	Meta      domain.EntityMeta

	Samples    map[Metric][]float64
	Benchmarks map[Metric]*benchmark.SectorBenchmark

	// SectorDefaults backs the moat analysis when no benchmark provides a
	// sector median. Nil means no fallback exists.
	SectorDefaults *domain.SectorDefaults

	// Seed, when set, makes bootstrap resampling reproducible. Leave nil
	// for production use.
	Seed *int64
}

// Report is the full evaluation output for one (entity, as-of) pair.
// Engines that could not compute are nil, never zeroed, so consumers can
// tell "not computed" from "computed as zero".
type Report struct {
	ID          string    `json:"id"`
	EntityID    string    `json:"entity_id"`
	Sector      string    `json:"sector"`
	AsOf        time.Time `json:"as_of"`
	GeneratedAt time.Time `json:"generated_at"`

	Composite  composite.Result          `json:"composite"`
	Moat       *moat.Result              `json:"moat"`
	Sentiment  *sentiment.Result         `json:"sentiment"`
	Structural []structural.Signal       `json:"structural_signals"`
	Narratives []narrative.Anchor        `json:"narratives"`
	Decisions  []contrast.DecisionAnchor `json:"decisions"`
}

// NarrativeIDs returns the active narrative anchor ids in resolved order.
func (r *Report) NarrativeIDs() []string {
	ids := make([]string, len(r.Narratives))
	for i, anchor := range r.Narratives {
		ids[i] = anchor.ID
	}
	return ids
}

// profile adapts a report for the peer contrast engine.
func (r *Report) profile() contrast.Profile {
	return contrast.Profile{
		NarrativeIDs: r.NarrativeIDs(),
		Decisions:    r.Decisions,
	}
}

// Contrast compares two finished reports and returns peer-relative
// contrast statements, subject first.
func Contrast(subject, peer *Report) []contrast.PeerContrast {
	if subject == nil || peer == nil {
		return nil
	}
	return contrast.ComparePeers(subject.profile(), peer.profile())
}
