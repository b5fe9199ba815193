package evaluation

import (
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/insight/internal/domain"
	"github.com/aristath/insight/internal/scoring/benchmark"
	"github.com/aristath/insight/internal/scoring/composite"
	"github.com/aristath/insight/internal/scoring/contrast"
	"github.com/aristath/insight/internal/scoring/moat"
	"github.com/aristath/insight/internal/scoring/narrative"
	"github.com/aristath/insight/internal/scoring/sentiment"
	"github.com/aristath/insight/internal/scoring/structural"
)

// Distress thresholds read off the latest fiscal year.
const (
	HighLeverageDebtToEquity = 2.0
	WeakInterestCoverage     = 2.0
)

// Evaluator runs the full scoring pipeline for one entity at a time.
// Evaluations are independent of each other and safe to run concurrently.
type Evaluator struct {
	log    zerolog.Logger
	engine *composite.Engine
	now    func() time.Time
	newID  func() string
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithClock overrides the report timestamp source.
func WithClock(now func() time.Time) Option {
	return func(e *Evaluator) {
		e.now = now
	}
}

// WithIDFunc overrides report id generation.
func WithIDFunc(newID func() string) Option {
	return func(e *Evaluator) {
		e.newID = newID
	}
}

// WithCompositeEngine swaps the default composite engine (custom weights
// or brake).
func WithCompositeEngine(engine *composite.Engine) Option {
	return func(e *Evaluator) {
		e.engine = engine
	}
}

// New creates an Evaluator.
func New(log zerolog.Logger, opts ...Option) *Evaluator {
	e := &Evaluator{
		log:    log.With().Str("component", "evaluation").Logger(),
		engine: composite.NewEngine(composite.WithBrake(composite.DistressBrake{})),
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate runs every scoring engine over one request and assembles the
// report. Engines with insufficient data contribute nil sections; the
// report itself is always produced.
func (e *Evaluator) Evaluate(req Request) *Report {
	e.log.Debug().
		Str("entity", req.EntityID).
		Str("sector", req.Sector).
		Time("as_of", req.AsOf).
		Msg("Evaluating entity")

	fiscalYears := domain.FiscalYearRows(req.Rows)
	latest := latestFiscalYear(fiscalYears)

	var moatResult *moat.Result
	if input, ok := e.moatInput(req, fiscalYears); ok {
		moatResult = moat.Analyze(input)
	} else {
		e.log.Debug().
			Str("entity", req.EntityID).
			Str("sector", req.Sector).
			Msg("No sector median ROIC available, skipping moat analysis")
	}
	sentimentResult := sentiment.Analyze(req.Multiples)
	structuralSignals := structural.Evaluate(req.Rows)

	compositeResult := e.engine.Compute(composite.Input{
		Growth:        e.readings(req, latest, growthMetrics),
		Profitability: e.readings(req, latest, profitabilityMetrics),
		Efficiency:    e.readings(req, latest, efficiencyMetrics),
		Solvency:      e.readings(req, latest, solvencyMetrics),
		Moat:          moatScore(moatResult),
		Sentiment:     sentimentScore(sentimentResult),
		Meta:          req.Meta,
		Distress:      distressIndicators(latest),
	})

	signals := deriveSignals(compositeResult, moatResult, sentimentResult, structuralSignals, latest)
	narratives := narrative.Resolve(narrative.MapSignals(signals))
	decisions := contrast.EvaluateDecisions(anchorIDs(narratives))

	report := &Report{
		ID:          e.newID(),
		EntityID:    req.EntityID,
		Sector:      req.Sector,
		AsOf:        req.AsOf,
		GeneratedAt: e.now().UTC(),
		Composite:   compositeResult,
		Moat:        moatResult,
		Sentiment:   sentimentResult,
		Structural:  structuralSignals,
		Narratives:  narratives,
		Decisions:   decisions,
	}

	event := e.log.Debug().
		Str("entity", req.EntityID).
		Str("report_id", report.ID).
		Str("category", string(compositeResult.Category)).
		Int("narratives", len(narratives))
	if compositeResult.Score != nil {
		event = event.Float64("score", *compositeResult.Score)
	}
	event.Msg("Evaluation complete")

	return report
}

// Dimension-to-metric wiring for the benchmark-scored composite readings.
var (
	growthMetrics        = []metricField{{MetricRevenueGrowth, func(m domain.FiscalMetrics) *float64 { return m.RevenueGrowth }}}
	profitabilityMetrics = []metricField{
		{MetricROIC, func(m domain.FiscalMetrics) *float64 { return m.ROIC }},
		{MetricNetMargin, func(m domain.FiscalMetrics) *float64 { return m.NetMargin }},
	}
	efficiencyMetrics = []metricField{{MetricAssetTurnover, func(m domain.FiscalMetrics) *float64 { return m.AssetTurnover }}}
	solvencyMetrics   = []metricField{{MetricInterestCoverage, func(m domain.FiscalMetrics) *float64 { return m.InterestCoverage }}}
)

type metricField struct {
	metric Metric
	access func(domain.FiscalMetrics) *float64
}

// readings pairs the latest fiscal year's values with their sector
// benchmarks. Metrics with no value or no benchmark are skipped, which the
// composite engine treats as excluded, not zero.
func (e *Evaluator) readings(req Request, latest *domain.FiscalRow, fields []metricField) []composite.MetricReading {
	if latest == nil {
		return nil
	}
	out := make([]composite.MetricReading, 0, len(fields))
	for _, f := range fields {
		value := f.access(latest.Metrics)
		if value == nil {
			continue
		}
		bench := e.benchmarkFor(req, f.metric)
		if bench == nil {
			continue
		}
		out = append(out, composite.MetricReading{
			Metric:    string(f.metric),
			Value:     *value,
			Benchmark: bench,
		})
	}
	return out
}

// benchmarkFor resolves a metric's benchmark: pre-built wins, otherwise one
// is built from the raw sample. The optional request seed keeps bootstrap
// resampling reproducible.
func (e *Evaluator) benchmarkFor(req Request, m Metric) *benchmark.SectorBenchmark {
	if b, ok := req.Benchmarks[m]; ok && b != nil {
		return b
	}
	sample, ok := req.Samples[m]
	if !ok || len(sample) == 0 {
		return nil
	}
	if req.Seed != nil {
		return benchmark.Build(sample, benchmark.WithSeed(*req.Seed))
	}
	return benchmark.Build(sample)
}

// moatInput assembles the durability analysis input. Sector medians come
// from the ROIC and operating margin benchmarks' p50, with sector defaults
// as fallback. When neither source supplies a ROIC median the analysis has
// nothing to compare against and ok is false: a zero median would score any
// positive ROIC as above-sector.
func (e *Evaluator) moatInput(req Request, fiscalYears []domain.FiscalRow) (moat.Input, bool) {
	history := make([]moat.YearRecord, 0, len(fiscalYears))
	for _, row := range fiscalYears {
		m := row.Metrics
		if m.ROIC == nil || m.OperatingMargin == nil {
			continue
		}
		history = append(history, moat.YearRecord{
			Year:            row.PeriodEnd.Year(),
			ROIC:            *m.ROIC,
			OperatingMargin: *m.OperatingMargin,
			Revenue:         m.Revenue,
			InvestedCapital: m.InvestedCapital,
		})
	}

	input := moat.Input{History: history}
	haveMedian := false
	if b := e.benchmarkFor(req, MetricROIC); b != nil {
		input.SectorMedianROIC = b.P50
		haveMedian = true
	} else if req.SectorDefaults != nil {
		input.SectorMedianROIC = req.SectorDefaults.MedianROIC
		haveMedian = true
	}
	if b := e.benchmarkFor(req, MetricOperatingMargin); b != nil {
		input.SectorMedianMargin = b.P50
	} else if req.SectorDefaults != nil {
		input.SectorMedianMargin = req.SectorDefaults.MedianOperatingMargin
	}
	return input, haveMedian
}

func latestFiscalYear(fiscalYears []domain.FiscalRow) *domain.FiscalRow {
	if len(fiscalYears) == 0 {
		return nil
	}
	return &fiscalYears[len(fiscalYears)-1]
}

func distressIndicators(latest *domain.FiscalRow) composite.DistressIndicators {
	var indicators composite.DistressIndicators
	if latest == nil {
		return indicators
	}
	m := latest.Metrics
	if m.DebtToEquity != nil && *m.DebtToEquity > HighLeverageDebtToEquity {
		indicators.HighLeverage = true
	}
	if m.FreeCashFlow != nil && *m.FreeCashFlow < 0 {
		indicators.NegativeFreeCashFlow = true
	}
	if m.InterestCoverage != nil && *m.InterestCoverage < WeakInterestCoverage {
		indicators.WeakInterestCover = true
	}
	return indicators
}

func moatScore(result *moat.Result) *float64 {
	if result == nil {
		return nil
	}
	score := result.Score
	return &score
}

func sentimentScore(result *sentiment.Result) *float64 {
	if result == nil {
		return nil
	}
	score := result.Score
	return &score
}

func anchorIDs(anchors []narrative.Anchor) []string {
	ids := make([]string, len(anchors))
	for i, anchor := range anchors {
		ids[i] = anchor.ID
	}
	return ids
}
