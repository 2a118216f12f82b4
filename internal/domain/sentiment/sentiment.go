// Package sentiment aggregates per-headline polarity scores into one
// instrument-level sentiment summary. Fetching and scoring individual
// headlines is the collaborator's job; this package only folds the
// results.
package sentiment

import "time"

// Label classifies aggregate sentiment.
type Label string

const (
	Positive Label = "positive"
	Negative Label = "negative"
	Neutral  Label = "neutral"
)

// polarityFloor is the neutral band: scores within ±0.1 are noise.
const polarityFloor = 0.1

// HeadlineScore is one scored news headline with polarity in [-1, 1].
type HeadlineScore struct {
	Headline string  `json:"headline"`
	Polarity float64 `json:"polarity"`
}

// Summary is the aggregate sentiment for one instrument.
type Summary struct {
	Symbol       string    `json:"symbol"`
	Score        float64   `json:"news_sentiment_score"` // mean polarity, -1..1
	Label        Label     `json:"sentiment_label"`
	NewsCount    int       `json:"news_count"`
	Positive     int       `json:"positive_news"`
	Negative     int       `json:"negative_news"`
	Neutral      int       `json:"neutral_news"`
	TopHeadlines []string  `json:"top_headlines"`
	AnalyzedAt   time.Time `json:"analyzed_at"`
}

// maxTopHeadlines caps the headlines carried in the summary.
const maxTopHeadlines = 5

// Aggregate folds scored headlines into a Summary. No headlines yields a
// neutral zero-score summary rather than an error.
func Aggregate(symbol string, headlines []HeadlineScore) Summary {
	summary := Summary{
		Symbol:     symbol,
		Label:      Neutral,
		NewsCount:  len(headlines),
		AnalyzedAt: time.Now().UTC(),
	}
	if len(headlines) == 0 {
		return summary
	}

	sum := 0.0
	for _, h := range headlines {
		sum += h.Polarity
		switch {
		case h.Polarity > polarityFloor:
			summary.Positive++
		case h.Polarity < -polarityFloor:
			summary.Negative++
		default:
			summary.Neutral++
		}
		if len(summary.TopHeadlines) < maxTopHeadlines {
			summary.TopHeadlines = append(summary.TopHeadlines, h.Headline)
		}
	}

	summary.Score = sum / float64(len(headlines))
	switch {
	case summary.Score > polarityFloor:
		summary.Label = Positive
	case summary.Score < -polarityFloor:
		summary.Label = Negative
	}
	return summary
}
