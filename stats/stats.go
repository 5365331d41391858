// Package stats computes per-fuel price summaries over the live dataset.
package stats

import (
	"math"
	"sort"
)

// Summary describes the price distribution of one fuel type. Percentiles use
// the nearest-rank method (1-based ceil(p*n) index, no interpolation).
type Summary struct {
	Min           float64 `json:"min"`
	Max           float64 `json:"max"`
	Media         float64 `json:"media"`
	Mediana       float64 `json:"mediana"`
	P25           float64 `json:"p25"`
	P75           float64 `json:"p75"`
	TotalMuestras int     `json:"total_muestras"`
}

// Summarize computes a Summary over the given samples. The second return is
// false when there are no samples; such fuel types are omitted from output
// rather than reported as null.
func Summarize(samples []float64) (Summary, bool) {
	if len(samples) == 0 {
		return Summary{}, false
	}

	sorted := make([]float64, len(samples))
	copy(sorted, samples)
	sort.Float64s(sorted)

	var sum float64
	for _, v := range sorted {
		sum += v
	}

	return Summary{
		Min:           sorted[0],
		Max:           sorted[len(sorted)-1],
		Media:         sum / float64(len(sorted)),
		Mediana:       nearestRank(sorted, 0.50),
		P25:           nearestRank(sorted, 0.25),
		P75:           nearestRank(sorted, 0.75),
		TotalMuestras: len(sorted),
	}, true
}

func nearestRank(sorted []float64, p float64) float64 {
	idx := int(math.Ceil(p * float64(len(sorted))))
	if idx < 1 {
		idx = 1
	}
	if idx > len(sorted) {
		idx = len(sorted)
	}
	return sorted[idx-1]
}
