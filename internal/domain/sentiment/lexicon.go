package sentiment

import "strings"

// Financial-news polarity lexicon. Weights are coarse on purpose; the
// aggregate over many headlines is what matters, not any single score.
var lexicon = map[string]float64{
	"beat":         0.6,
	"beats":        0.6,
	"record":       0.5,
	"strong":       0.5,
	"growth":       0.4,
	"surge":        0.6,
	"surges":       0.6,
	"soars":        0.7,
	"rally":        0.5,
	"upgrade":      0.6,
	"upgraded":     0.6,
	"outperform":   0.5,
	"buy":          0.3,
	"profit":       0.4,
	"gains":        0.4,
	"raises":       0.4,
	"breakout":     0.4,
	"bullish":      0.6,
	"wins":         0.5,
	"approval":     0.5,
	"expands":      0.3,

	"miss":       -0.6,
	"misses":     -0.6,
	"weak":       -0.5,
	"decline":    -0.4,
	"declines":   -0.4,
	"falls":      -0.5,
	"plunge":     -0.7,
	"plunges":    -0.7,
	"drops":      -0.5,
	"downgrade":  -0.6,
	"downgraded": -0.6,
	"sell":       -0.3,
	"loss":       -0.5,
	"losses":     -0.5,
	"cuts":       -0.4,
	"lawsuit":    -0.5,
	"probe":      -0.4,
	"bearish":    -0.6,
	"warns":      -0.5,
	"recall":     -0.5,
	"bankruptcy": -0.9,
}

// ScoreHeadline assigns a polarity in [-1, 1] by averaging the lexicon
// weights of the words it recognizes. Unknown-only text scores 0.
func ScoreHeadline(headline string) float64 {
	words := strings.FieldsFunc(strings.ToLower(headline), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	})

	sum := 0.0
	matched := 0
	for _, word := range words {
		if weight, ok := lexicon[word]; ok {
			sum += weight
			matched++
		}
	}
	if matched == 0 {
		return 0
	}

	score := sum / float64(matched)
	if score > 1 {
		score = 1
	}
	if score < -1 {
		score = -1
	}
	return score
}
