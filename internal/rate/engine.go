package rate

import (
	"math"
	"strings"
)

// MilkType selects which formula variant applies for the TS based methods.
type MilkType string

// Supported milk types.
const (
	MilkCow     MilkType = "Cow"
	MilkBuffalo MilkType = "Buffalo"
)

// IsBuffalo reports whether the milk type should be treated as buffalo milk.
// Matching is case-insensitive and tolerant of local labels such as
// "buffalo milk"; anything else falls back to the cow formulas.
func (m MilkType) IsBuffalo() bool {
	return strings.Contains(strings.ToLower(string(m)), "buffalo")
}

// Method identifies one of the pricing schemes a branch can activate.
type Method string

// Supported pricing methods.
const (
	MethodChart Method = "CHART"
	MethodFat   Method = "FAT"
	MethodTS    Method = "TS"
	MethodTSNew Method = "TS_NEW"
)

// ParseMethod normalises a stored method string. Unknown values are returned
// as-is; Compute treats them as unpriceable rather than rejecting them.
func ParseMethod(s string) Method {
	return Method(strings.ToUpper(strings.TrimSpace(s)))
}

// Measurement is a single milk quality reading taken at the collection desk.
// Callers parse form fields leniently: missing or unparsable values arrive
// here as zero.
type Measurement struct {
	Fat      float64
	SNF      float64
	Quantity float64
}

// ChartRow prices an exact (fat, snf) pair. Values must be pre-rounded to the
// chart's precision because matching uses exact equality.
type ChartRow struct {
	Fat  float64 `json:"fat"`
	SNF  float64 `json:"snf"`
	Rate float64 `json:"rate"`
}

// FatRow prices an exact fat reading regardless of SNF.
type FatRow struct {
	Code string  `json:"code,omitempty"`
	Fat  float64 `json:"fat"`
	Rate float64 `json:"rate"`
}

// TSRow holds a fat (and, for cow milk, SNF) band with its multiplier.
type TSRow struct {
	Code    string  `json:"code,omitempty"`
	MinFat  float64 `json:"minFat"`
	MaxFat  float64 `json:"maxFat"`
	FatRate float64 `json:"fatRate"`
	MinSNF  float64 `json:"minSnf,omitempty"`
	MaxSNF  float64 `json:"maxSnf,omitempty"`
}

// TSNewRow holds a total-solids band with a base rate and flat incentive.
type TSNewRow struct {
	Code      string  `json:"code,omitempty"`
	TSFrom    float64 `json:"tsFrom"`
	TSTo      float64 `json:"tsTo"`
	Rate      float64 `json:"rate"`
	Incentive float64 `json:"incentive"`
}

// Config is the tagged union of per-method rate tables. Only the table for
// the method being computed is consulted; the others may be empty. Row order
// is significant: lookups take the first matching row and perform no overlap
// resolution or interpolation.
type Config struct {
	Chart      []ChartRow `json:"chart,omitempty"`
	FatTable   []FatRow   `json:"fatTable,omitempty"`
	TSTable    []TSRow    `json:"tsTable,omitempty"`
	TSNewTable []TSNewRow `json:"tsNewTable,omitempty"`
}

// Result carries the computed price for one measurement. Matched is false
// when no table row applied; the rate and amount are then zero. A zero rate
// with Matched=true is a legitimately configured free collection, so callers
// must consult Matched rather than compare the rate against zero.
type Result struct {
	RatePerLitre float64 `json:"rate"`
	Amount       float64 `json:"amount"`
	Matched      bool    `json:"matched"`
}

// Compute prices a measurement under the given method and config. It is a
// pure function and never fails: unknown methods, empty tables and readings
// outside every band all degrade to a zero result with Matched=false so the
// entry can still be saved and repriced by staff later.
//
// The rate is rounded to two decimals first and the amount is computed from
// the rounded rate, then rounded independently. Downstream billing totals
// encode this two-stage rounding; do not collapse it into a single step.
func Compute(method Method, m Measurement, cfg Config, milk MilkType) Result {
	price, matched := pricePerLitre(method, m, cfg, milk)
	if !matched {
		return Result{}
	}
	rate := round2(price)
	return Result{
		RatePerLitre: rate,
		Amount:       round2(rate * m.Quantity),
		Matched:      true,
	}
}

func pricePerLitre(method Method, m Measurement, cfg Config, milk MilkType) (float64, bool) {
	buffalo := milk.IsBuffalo()

	switch method {
	case MethodChart:
		for _, row := range cfg.Chart {
			if row.Fat == m.Fat && row.SNF == m.SNF {
				return row.Rate, true
			}
		}

	case MethodFat:
		for _, row := range cfg.FatTable {
			if row.Fat == m.Fat {
				return row.Rate, true
			}
		}

	case MethodTS:
		for _, row := range cfg.TSTable {
			if m.Fat < row.MinFat || m.Fat > row.MaxFat {
				continue
			}
			if !buffalo && (m.SNF < row.MinSNF || m.SNF > row.MaxSNF) {
				continue
			}
			if buffalo {
				return m.Fat * row.FatRate / 100, true
			}
			return (m.Fat + m.SNF) * row.FatRate / 100, true
		}

	case MethodTSNew:
		ts := m.Fat
		if !buffalo {
			ts = m.Fat + m.SNF
		}
		for _, row := range cfg.TSNewTable {
			if ts >= row.TSFrom && ts <= row.TSTo {
				return ts*row.Rate/100 + row.Incentive, true
			}
		}
	}

	return 0, false
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
