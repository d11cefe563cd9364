package topics

import "math"

// mentionStats assigns each document to its most probable topic and fills
// Mentions, MentionPercentage (1 dp, of usable docs) and AverageProbability
// (4 dp). topics is indexed by topic id.
func mentionStats(topics []Topic, docTopics [][]float64, usable int) {
	mentions := make([]int, len(topics))
	sums := make([]float64, len(topics))
	for _, row := range docTopics {
		if len(row) == 0 {
			continue
		}
		best := argmax(row)
		if best < len(topics) {
			mentions[best]++
			sums[best] += row[best]
		}
	}

	for i := range topics {
		topics[i].Mentions = mentions[i]
		if mentions[i] > 0 {
			topics[i].AverageProbability = round(sums[i]/float64(mentions[i]), 4)
		}
		if usable > 0 {
			topics[i].MentionPercentage = round(float64(mentions[i])/float64(usable)*100, 1)
		}
	}
}

// argmax returns the first index of the largest value.
func argmax(row []float64) int {
	best := 0
	for i := 1; i < len(row); i++ {
		if row[i] > row[best] {
			best = i
		}
	}
	return best
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
