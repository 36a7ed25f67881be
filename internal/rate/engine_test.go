package rate

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestComputeEmptyConfig(t *testing.T) {
	for _, method := range []Method{MethodChart, MethodFat, MethodTS, MethodTSNew} {
		res := Compute(method, Measurement{Fat: 4, SNF: 8.5, Quantity: 10}, Config{}, MilkCow)
		if res.Matched {
			t.Fatalf("%s: expected no match on empty config", method)
		}
		if res.RatePerLitre != 0 || res.Amount != 0 {
			t.Fatalf("%s: expected zero result, got %+v", method, res)
		}
	}
}

func TestComputeUnknownMethod(t *testing.T) {
	cfg := Config{Chart: []ChartRow{{Fat: 4, SNF: 8.5, Rate: 30}}}
	res := Compute(ParseMethod("percentage"), Measurement{Fat: 4, SNF: 8.5, Quantity: 1}, cfg, MilkCow)
	if res.Matched || res.RatePerLitre != 0 {
		t.Fatalf("unknown method should not price, got %+v", res)
	}
}

func TestChartExactMatch(t *testing.T) {
	cfg := Config{Chart: []ChartRow{
		{Fat: 3.5, SNF: 8.0, Rate: 28.5},
		{Fat: 4.0, SNF: 8.5, Rate: 31.0},
		{Fat: 4.0, SNF: 8.5, Rate: 99.0}, // duplicate key, first row must win
	}}
	for _, row := range cfg.Chart[:2] {
		res := Compute(MethodChart, Measurement{Fat: row.Fat, SNF: row.SNF, Quantity: 2}, cfg, MilkCow)
		if !res.Matched {
			t.Fatalf("expected match for fat=%v snf=%v", row.Fat, row.SNF)
		}
		if res.RatePerLitre != row.Rate {
			t.Fatalf("expected rate %v, got %v", row.Rate, res.RatePerLitre)
		}
	}
	miss := Compute(MethodChart, Measurement{Fat: 5.0, SNF: 8.0, Quantity: 2}, cfg, MilkCow)
	if miss.Matched {
		t.Fatalf("expected no match for absent key, got %+v", miss)
	}
}

func TestFatExactMatchFirstWins(t *testing.T) {
	cfg := Config{FatTable: []FatRow{
		{Code: "A", Fat: 6.0, Rate: 45},
		{Code: "B", Fat: 6.0, Rate: 50},
	}}
	res := Compute(MethodFat, Measurement{Fat: 6.0, Quantity: 1}, cfg, MilkBuffalo)
	if !res.Matched || res.RatePerLitre != 45 {
		t.Fatalf("expected first row rate 45, got %+v", res)
	}
	if miss := Compute(MethodFat, Measurement{Fat: 6.1, Quantity: 1}, cfg, MilkBuffalo); miss.Matched {
		t.Fatalf("expected no match, got %+v", miss)
	}
}

func TestTSCow(t *testing.T) {
	cfg := Config{TSTable: []TSRow{
		{MinFat: 3.5, MaxFat: 4.5, MinSNF: 8.0, MaxSNF: 9.0, FatRate: 10},
	}}
	res := Compute(MethodTS, Measurement{Fat: 4.0, SNF: 8.5, Quantity: 10}, cfg, MilkCow)
	if !res.Matched {
		t.Fatalf("expected match, got %+v", res)
	}
	// (4.0 + 8.5) * 10 / 100 = 1.25
	if !almostEqual(res.RatePerLitre, 1.25) {
		t.Fatalf("expected rate 1.25, got %v", res.RatePerLitre)
	}
	if !almostEqual(res.Amount, 12.50) {
		t.Fatalf("expected amount 12.50, got %v", res.Amount)
	}
}

func TestTSCowSNFOutOfRange(t *testing.T) {
	cfg := Config{TSTable: []TSRow{
		{MinFat: 3.5, MaxFat: 4.5, MinSNF: 8.0, MaxSNF: 9.0, FatRate: 10},
	}}
	res := Compute(MethodTS, Measurement{Fat: 4.0, SNF: 9.5, Quantity: 10}, cfg, MilkCow)
	if res.Matched {
		t.Fatalf("cow SNF outside band must not match, got %+v", res)
	}
}

func TestTSBuffaloIgnoresSNF(t *testing.T) {
	cfg := Config{TSTable: []TSRow{
		{MinFat: 5.5, MaxFat: 6.5, MinSNF: 8.0, MaxSNF: 9.0, FatRate: 8},
	}}
	// SNF far outside the configured band; buffalo rows ignore it entirely.
	res := Compute(MethodTS, Measurement{Fat: 6.0, SNF: 2.0, Quantity: 5}, cfg, MilkBuffalo)
	if !res.Matched {
		t.Fatalf("expected match, got %+v", res)
	}
	// 6.0 * 8 / 100 = 0.48
	if !almostEqual(res.RatePerLitre, 0.48) {
		t.Fatalf("expected rate 0.48, got %v", res.RatePerLitre)
	}
	if !almostEqual(res.Amount, 2.40) {
		t.Fatalf("expected amount 2.40, got %v", res.Amount)
	}
}

func TestTSInclusiveBounds(t *testing.T) {
	cfg := Config{TSTable: []TSRow{
		{MinFat: 3.5, MaxFat: 4.5, MinSNF: 8.0, MaxSNF: 9.0, FatRate: 10},
	}}
	for _, m := range []Measurement{
		{Fat: 3.5, SNF: 8.0, Quantity: 1},
		{Fat: 4.5, SNF: 9.0, Quantity: 1},
	} {
		if res := Compute(MethodTS, m, cfg, MilkCow); !res.Matched {
			t.Fatalf("boundary reading %+v must match", m)
		}
	}
}

func TestTSNewCow(t *testing.T) {
	cfg := Config{TSNewTable: []TSNewRow{
		{TSFrom: 10, TSTo: 13, Rate: 7, Incentive: 0.5},
	}}
	res := Compute(MethodTSNew, Measurement{Fat: 4, SNF: 8, Quantity: 20}, cfg, MilkCow)
	if !res.Matched {
		t.Fatalf("expected match, got %+v", res)
	}
	// ts = 12, rate = 12*7/100 + 0.5 = 1.34
	if !almostEqual(res.RatePerLitre, 1.34) {
		t.Fatalf("expected rate 1.34, got %v", res.RatePerLitre)
	}
	if !almostEqual(res.Amount, 26.80) {
		t.Fatalf("expected amount 26.80, got %v", res.Amount)
	}
}

func TestTSNewBuffaloUsesFatOnly(t *testing.T) {
	cfg := Config{TSNewTable: []TSNewRow{
		{TSFrom: 5, TSTo: 7, Rate: 40, Incentive: 1},
	}}
	// buffalo ts = fat alone; fat+snf = 14 would miss the band
	res := Compute(MethodTSNew, Measurement{Fat: 6, SNF: 8, Quantity: 2}, cfg, MilkBuffalo)
	if !res.Matched {
		t.Fatalf("expected match on fat-only ts, got %+v", res)
	}
	// 6*40/100 + 1 = 3.4
	if !almostEqual(res.RatePerLitre, 3.4) {
		t.Fatalf("expected rate 3.4, got %v", res.RatePerLitre)
	}
}

func TestTwoStageRounding(t *testing.T) {
	// Raw price 1.2345 rounds to 1.23 before multiplying. Quantity 7 then
	// gives 8.61; a single-stage computation would give round2(8.6415)=8.64.
	cfg := Config{TSNewTable: []TSNewRow{
		{TSFrom: 0, TSTo: 100, Rate: 10.2875, Incentive: 0},
	}}
	res := Compute(MethodTSNew, Measurement{Fat: 4, SNF: 8, Quantity: 7}, cfg, MilkCow)
	if !almostEqual(res.RatePerLitre, 1.23) {
		t.Fatalf("expected pre-rounded rate 1.23, got %v", res.RatePerLitre)
	}
	if !almostEqual(res.Amount, 8.61) {
		t.Fatalf("expected amount from rounded rate 8.61, got %v", res.Amount)
	}
}

func TestZeroQuantity(t *testing.T) {
	cfg := Config{FatTable: []FatRow{{Fat: 4.0, Rate: 32}}}
	res := Compute(MethodFat, Measurement{Fat: 4.0, Quantity: 0}, cfg, MilkCow)
	if !res.Matched {
		t.Fatalf("zero quantity still matches the table, got %+v", res)
	}
	if res.Amount != 0 {
		t.Fatalf("expected zero amount, got %v", res.Amount)
	}
}

func TestConfiguredZeroRateStillMatches(t *testing.T) {
	cfg := Config{FatTable: []FatRow{{Fat: 4.0, Rate: 0}}}
	res := Compute(MethodFat, Measurement{Fat: 4.0, Quantity: 5}, cfg, MilkCow)
	if !res.Matched {
		t.Fatalf("a configured zero rate must still report a match")
	}
	if res.RatePerLitre != 0 || res.Amount != 0 {
		t.Fatalf("expected zero price, got %+v", res)
	}
}

func TestComputeIdempotent(t *testing.T) {
	cfg := Config{TSTable: []TSRow{
		{MinFat: 3.0, MaxFat: 5.0, MinSNF: 7.5, MaxSNF: 9.5, FatRate: 9.37},
	}}
	m := Measurement{Fat: 4.2, SNF: 8.7, Quantity: 13.5}
	first := Compute(MethodTS, m, cfg, MilkCow)
	second := Compute(MethodTS, m, cfg, MilkCow)
	if first != second {
		t.Fatalf("expected identical results, got %+v then %+v", first, second)
	}
}

func TestMilkTypeParsing(t *testing.T) {
	if !MilkType("Buffalo Milk").IsBuffalo() {
		t.Fatalf("expected buffalo label to parse")
	}
	if MilkType("cow").IsBuffalo() {
		t.Fatalf("cow must not be buffalo")
	}
	if got := ParseMethod(" ts_new "); got != MethodTSNew {
		t.Fatalf("expected TS_NEW, got %q", got)
	}
}
