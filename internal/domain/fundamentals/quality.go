// Package fundamentals grades an instrument's fundamental snapshot with a
// CANSLIM-leaning 0-100 quality score.
package fundamentals

// Snapshot is the validated fundamental record for one instrument.
// Growth, margin and return fields are fractions (0.25 means 25%);
// DebtToEquity follows the provider convention of a percentage.
// Zero values mean "not reported" and simply earn no points.
type Snapshot struct {
	Symbol           string  `json:"symbol"`
	MarketCap        float64 `json:"market_cap"`
	PERatio          float64 `json:"pe_ratio,omitempty"`
	PBRatio          float64 `json:"pb_ratio,omitempty"`
	EPS              float64 `json:"eps,omitempty"`
	RevenueGrowth    float64 `json:"revenue_growth,omitempty"`
	EarningsGrowth   float64 `json:"earnings_growth,omitempty"`
	DebtToEquity     float64 `json:"debt_to_equity,omitempty"`
	ReturnOnEquity   float64 `json:"return_on_equity,omitempty"`
	ReturnOnAssets   float64 `json:"return_on_assets,omitempty"`
	ProfitMargin     float64 `json:"profit_margin,omitempty"`
	CurrentRatio     float64 `json:"current_ratio,omitempty"`
	DividendYield    float64 `json:"dividend_yield,omitempty"`
	Beta             float64 `json:"beta,omitempty"`
	Sector           string  `json:"sector,omitempty"`
	Industry         string  `json:"industry,omitempty"`
}

// Market cap classification bands.
const (
	largeCapFloor = 200_000_000_000
	midCapFloor   = 50_000_000_000
)

// ClassifyMarketCap buckets a market capitalization into Large/Mid/Small.
func ClassifyMarketCap(marketCap float64) string {
	switch {
	case marketCap >= largeCapFloor:
		return "Large Cap"
	case marketCap >= midCapFloor:
		return "Mid Cap"
	default:
		return "Small Cap"
	}
}

// QualityScore grades the snapshot 0-100: growth, returns, leverage,
// margins and liquidity, each banded and capped.
func QualityScore(s Snapshot) float64 {
	score := 0.0

	switch {
	case s.EarningsGrowth > 0.25:
		score += 20
	case s.EarningsGrowth > 0.15:
		score += 15
	case s.EarningsGrowth > 0.10:
		score += 10
	case s.EarningsGrowth > 0:
		score += 5
	}

	switch {
	case s.RevenueGrowth > 0.20:
		score += 15
	case s.RevenueGrowth > 0.10:
		score += 10
	case s.RevenueGrowth > 0:
		score += 5
	}

	switch {
	case s.ReturnOnEquity > 0.20:
		score += 20
	case s.ReturnOnEquity > 0.15:
		score += 15
	case s.ReturnOnEquity > 0.10:
		score += 10
	case s.ReturnOnEquity > 0:
		score += 5
	}

	// Unreported leverage is treated as heavy; only a disclosed low
	// ratio earns points.
	debtToEquity := s.DebtToEquity
	if debtToEquity == 0 {
		debtToEquity = 100
	}
	switch {
	case debtToEquity < 30:
		score += 15
	case debtToEquity < 50:
		score += 10
	case debtToEquity < 100:
		score += 5
	}

	switch {
	case s.ProfitMargin > 0.15:
		score += 15
	case s.ProfitMargin > 0.10:
		score += 10
	case s.ProfitMargin > 0.05:
		score += 5
	}

	switch {
	case s.CurrentRatio > 2:
		score += 15
	case s.CurrentRatio > 1.5:
		score += 10
	case s.CurrentRatio > 1:
		score += 5
	}

	if score > 100 {
		score = 100
	}
	return score
}
