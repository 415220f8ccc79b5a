// Package pricing maps model identifiers and token counts to USD costs.
package pricing

import "strings"

// Rates holds per-million-token prices for one model.
type Rates struct {
	InputPerMTok      float64
	OutputPerMTok     float64
	CacheWritePerMTok float64
	CacheReadPerMTok  float64
}

// Usage holds the four token classes priced independently.
type Usage struct {
	InputTokens      int64
	OutputTokens     int64
	CacheWriteTokens int64
	CacheReadTokens  int64
}

type modelRates struct {
	Name  string
	Rates Rates
}

// defaultTable is ordered: Lookup takes the first substring match, so more
// specific names must precede the families they contain.
var defaultTable = []modelRates{
	{"claude-opus-4-1", Rates{15.00, 75.00, 18.75, 1.50}},
	{"claude-opus-4", Rates{15.00, 75.00, 18.75, 1.50}},
	{"claude-sonnet-4-5", Rates{3.00, 15.00, 3.75, 0.30}},
	{"claude-sonnet-4", Rates{3.00, 15.00, 3.75, 0.30}},
	{"claude-3-7-sonnet", Rates{3.00, 15.00, 3.75, 0.30}},
	{"claude-3-5-sonnet", Rates{3.00, 15.00, 3.75, 0.30}},
	{"claude-haiku-4-5", Rates{1.00, 5.00, 1.25, 0.10}},
	{"claude-3-5-haiku", Rates{0.80, 4.00, 1.00, 0.08}},
	{"claude-3-haiku", Rates{0.25, 1.25, 0.30, 0.03}},
	{"claude-3-opus", Rates{15.00, 75.00, 18.75, 1.50}},
}

// Lookup returns the rates for a model. Exact name match wins; otherwise the
// first table entry (in table order) where either name contains the other is
// taken, which tolerates dated suffixes like "-20250514" in both directions.
// Unknown or empty models return false.
func Lookup(model string) (Rates, bool) {
	if model == "" {
		return Rates{}, false
	}
	for _, m := range defaultTable {
		if m.Name == model {
			return m.Rates, true
		}
	}
	for _, m := range defaultTable {
		if strings.Contains(model, m.Name) || strings.Contains(m.Name, model) {
			return m.Rates, true
		}
	}
	return Rates{}, false
}

// Cost computes the USD cost of the given usage under the model's rates.
// Unknown models cost exactly 0.
func Cost(model string, u Usage) float64 {
	rates, ok := Lookup(model)
	if !ok {
		return 0
	}

	cost := float64(u.InputTokens) * rates.InputPerMTok / 1_000_000
	cost += float64(u.OutputTokens) * rates.OutputPerMTok / 1_000_000
	cost += float64(u.CacheWriteTokens) * rates.CacheWritePerMTok / 1_000_000
	cost += float64(u.CacheReadTokens) * rates.CacheReadPerMTok / 1_000_000

	return cost
}
