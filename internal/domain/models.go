// Package domain provides the core domain models shared by the scoring
// engines: fiscal history rows, valuation multiples, entity metadata and
// sector defaults. All types are plain immutable values; absence of a
// metric is represented by a nil pointer, never by a zero value.
package domain

import (
	"sort"
	"time"
)

// PeriodType identifies the reporting period of a fiscal row.
type PeriodType string

const (
	PeriodFY  PeriodType = "FY"
	PeriodQ   PeriodType = "Q"
	PeriodTTM PeriodType = "TTM"
)

// VolatilityClass buckets the historical volatility of an entity's metrics.
type VolatilityClass string

const (
	VolatilityLow    VolatilityClass = "LOW"
	VolatilityMedium VolatilityClass = "MEDIUM"
	VolatilityHigh   VolatilityClass = "HIGH"
)

// Tone classifies the qualitative direction of a narrative or decision
// statement.
type Tone string

const (
	TonePositive Tone = "positive"
	ToneWarning  Tone = "warning"
	ToneNeutral  Tone = "neutral"
	ToneNegative Tone = "negative"
)

// FiscalMetrics holds one period's fundamental metrics. Every field is
// optional; the ingestion boundary validates shapes once and deeper layers
// never re-validate (they only check for nil).
type FiscalMetrics struct {
	Revenue          *float64 `json:"revenue"`
	OperatingMargin  *float64 `json:"operating_margin"`
	NetMargin        *float64 `json:"net_margin"`
	ROIC             *float64 `json:"roic"`
	ROE              *float64 `json:"roe"`
	FreeCashFlow     *float64 `json:"free_cash_flow"`
	InvestedCapital  *float64 `json:"invested_capital"`
	RevenueGrowth    *float64 `json:"revenue_growth"`
	DebtToEquity     *float64 `json:"debt_to_equity"`
	InterestCoverage *float64 `json:"interest_coverage"`
	AssetTurnover    *float64 `json:"asset_turnover"`
	DividendYield    *float64 `json:"dividend_yield"`
	PayoutRatio      *float64 `json:"payout_ratio"`
}

// FiscalRow is one period's record for an entity.
type FiscalRow struct {
	PeriodEnd  time.Time     `json:"period_end"`
	PeriodType PeriodType    `json:"period_type"`
	Metrics    FiscalMetrics `json:"metrics"`
}

// SortRowsByPeriodEnd returns a chronologically ascending copy of rows.
// Input order is never trusted and the caller's slice is never mutated.
func SortRowsByPeriodEnd(rows []FiscalRow) []FiscalRow {
	out := make([]FiscalRow, len(rows))
	copy(out, rows)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PeriodEnd.Before(out[j].PeriodEnd)
	})
	return out
}

// FiscalYearRows returns the fiscal-year rows of the input, chronologically
// ascending.
func FiscalYearRows(rows []FiscalRow) []FiscalRow {
	sorted := SortRowsByPeriodEnd(rows)
	out := make([]FiscalRow, 0, len(sorted))
	for _, row := range sorted {
		if row.PeriodType == PeriodFY {
			out = append(out, row)
		}
	}
	return out
}

// ValuationMultiples holds point-in-time valuation multiples. Missing
// multiples are nil.
type ValuationMultiples struct {
	PE       *float64 `json:"pe"`
	EVEBITDA *float64 `json:"ev_ebitda"`
	PFCF     *float64 `json:"p_fcf"`
	PS       *float64 `json:"p_s"`
}

// MultiplesHistory holds valuation multiples at the engine's four named
// horizons. A nil horizon means no data exists for it.
type MultiplesHistory struct {
	Current       *ValuationMultiples `json:"current"`
	OneYearAgo    *ValuationMultiples `json:"one_year_ago"`
	ThreeYearsAgo *ValuationMultiples `json:"three_years_ago"`
	FiveYearsAgo  *ValuationMultiples `json:"five_years_ago"`
}

// EntityMeta carries the metadata the confidence classifier needs.
type EntityMeta struct {
	HistoryYears       int             `json:"history_years"`
	YearsSinceListing  int             `json:"years_since_listing"`
	Volatility         VolatilityClass `json:"volatility"`
	MissingCoreMetrics int             `json:"missing_core_metrics"`
}

// SectorDefaults provides fallback sector medians used when no benchmark
// could be built for a sector/metric pair.
type SectorDefaults struct {
	MedianROIC            float64 `json:"median_roic"`
	MedianOperatingMargin float64 `json:"median_operating_margin"`
}

// Float returns a pointer to v. Convenience for building optional fields.
func Float(v float64) *float64 {
	return &v
}
