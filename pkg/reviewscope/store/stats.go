package store

import "math"

// NewStats derives counts and rounded percentages from raw aggregates.
// sum is the sum of sentiment scores over total reviews.
func NewStats(total, positive, negative int, sum float64) Stats {
	st := Stats{
		Total:    total,
		Positive: positive,
		Negative: negative,
		Neutral:  max(total-positive-negative, 0),
	}
	if total == 0 {
		return st
	}
	st.AvgSentiment = round(sum/float64(total), 4)
	st.PositivePercentage = round(float64(st.Positive)/float64(total)*100, 1)
	st.NegativePercentage = round(float64(st.Negative)/float64(total)*100, 1)
	st.NeutralPercentage = round(float64(st.Neutral)/float64(total)*100, 1)
	return st
}

// MatchesPolarity applies the store-level polarity predicate to a review.
// Unscored reviews never match positive or negative.
func MatchesPolarity(r Review, p Polarity) bool {
	score, ok := r.Score()
	switch p {
	case PolarityPositive:
		return ok && score > PositiveThreshold
	case PolarityNegative:
		return ok && score < NegativeThreshold
	}
	return true
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
