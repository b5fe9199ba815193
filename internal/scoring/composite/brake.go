package composite

// DistressIndicators are the inputs the quality brake keys on. They are
// resolved at the ingestion boundary; the composite engine treats the
// brake itself as a black box.
type DistressIndicators struct {
	HighLeverage         bool `json:"high_leverage"`
	NegativeFreeCashFlow bool `json:"negative_free_cash_flow"`
	WeakInterestCover    bool `json:"weak_interest_cover"`
}

// Brake is a deterministic final adjuster applied to the raw composite
// before clamping and rounding. Implementations may only lower the score;
// the engine enforces this.
type Brake interface {
	Adjust(raw float64, indicators DistressIndicators) float64
}

// NopBrake leaves the raw composite untouched.
type NopBrake struct{}

// Adjust returns the raw score unchanged.
func (NopBrake) Adjust(raw float64, _ DistressIndicators) float64 {
	return raw
}

const (
	// DistressPenalty is the deduction applied per active distress
	// indicator by the default brake.
	DistressPenalty = 8.0
)

// DistressBrake is the default quality brake: a fixed deduction per active
// distress indicator.
type DistressBrake struct{}

// Adjust lowers the raw composite by DistressPenalty for each active
// indicator.
func (DistressBrake) Adjust(raw float64, indicators DistressIndicators) float64 {
	penalty := 0.0
	if indicators.HighLeverage {
		penalty += DistressPenalty
	}
	if indicators.NegativeFreeCashFlow {
		penalty += DistressPenalty
	}
	if indicators.WeakInterestCover {
		penalty += DistressPenalty
	}
	return raw - penalty
}
