package topics

import (
	"github.com/cognicore/reviewscope/pkg/reviewscope/store"
)

// FilterReviews selects the reviews a discovery run looks at.
//
// positive keeps scores above 0.1. negative keeps scores below -0.1,
// unscored reviews of three stars or fewer and every review of two stars or
// fewer regardless of score; those low-star reviews come first. A zero
// rating means unknown. Anything else keeps all reviews. Input order is
// otherwise preserved.
func FilterReviews(reviews []store.Review, p store.Polarity) []store.Review {
	switch p {
	case store.PolarityPositive:
		var out []store.Review
		for _, r := range reviews {
			if s, ok := r.Score(); ok && s > store.PositiveThreshold {
				out = append(out, r)
			}
		}
		return out

	case store.PolarityNegative:
		var low, rest []store.Review
		for _, r := range reviews {
			s, scored := r.Score()
			switch {
			case r.Rating >= 1 && r.Rating <= 2:
				low = append(low, r)
			case scored && s < store.NegativeThreshold:
				rest = append(rest, r)
			case !scored && r.Rating >= 1 && r.Rating <= 3:
				rest = append(rest, r)
			}
		}
		return append(low, rest...)
	}
	return append([]store.Review(nil), reviews...)
}
