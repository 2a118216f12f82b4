// Package composite blends the per-discipline scores (pattern,
// fundamentals, sentiment) into one 0-100 conviction score. The blend is
// a weighted average over the components actually present; missing
// components redistribute their weight instead of dragging the scale.
package composite

// Component weights. They sum to 1 when every component is present.
const (
	WeightPattern      = 0.5
	WeightFundamentals = 0.3
	WeightSentiment    = 0.2
)

// Inputs carries the optional component scores. Pattern and fundamentals
// are 0-100; sentiment is the aggregate polarity in [-1, 1].
type Inputs struct {
	PatternScore     *float64
	FundamentalScore *float64
	SentimentScore   *float64
}

// Score computes the weighted average over present components, rescaling
// sentiment from [-1, 1] onto [0, 100] first. No components yields 0.
func Score(in Inputs) float64 {
	sum := 0.0
	weight := 0.0

	if in.PatternScore != nil {
		sum += *in.PatternScore * WeightPattern
		weight += WeightPattern
	}
	if in.FundamentalScore != nil {
		sum += *in.FundamentalScore * WeightFundamentals
		weight += WeightFundamentals
	}
	if in.SentimentScore != nil {
		sum += (*in.SentimentScore + 1) * 50 * WeightSentiment
		weight += WeightSentiment
	}

	if weight == 0 {
		return 0
	}
	return sum / weight
}

// Recommendation bands the combined score; a confirmed breakout upgrades
// the top band.
func Recommendation(score float64, brokeOut bool) string {
	switch {
	case score >= 80 && brokeOut:
		return "STRONG BUY"
	case score >= 65:
		return "BUY"
	case score >= 50:
		return "WATCH"
	default:
		return "NEUTRAL"
	}
}
