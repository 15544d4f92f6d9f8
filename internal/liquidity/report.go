// Package liquidity derives traded-volume statistics from a published
// bond table and ranks every instrument on a 0-100 percentile rating, so
// dashboard users can tell liquid issues from paper that never trades.
package liquidity

import (
	"sort"

	"motcli/pkg/contracts/domain"
)

// Metrics is the liquidity profile of a single bond over its trailing
// volume window. Volumes are in millions of euro nominal.
type Metrics struct {
	ISIN         string              `json:"isin"`
	Issuer       string              `json:"issuer"`
	Category     domain.BondCategory `json:"category"`
	Months       int                 `json:"months"`
	MedianVolume float64             `json:"median_volume"`
	MinVolume    float64             `json:"min_volume"`
	MaxVolume    float64             `json:"max_volume"`
	Rating       int                 `json:"rating"`
}

// BuildReport computes per-bond volume statistics and percentile ratings.
// The report is sorted by descending median volume, ties broken by ISIN.
func BuildReport(records []domain.BondRecord) []Metrics {
	report := make([]Metrics, 0, len(records))
	for i := range records {
		rec := &records[i]
		m := Metrics{
			ISIN:     rec.ISIN,
			Issuer:   rec.Issuer,
			Category: rec.Category,
		}
		if median := rec.MedianMonthlyVolume(); median != nil {
			m.MedianVolume = *median
		}
		if minV, maxV := rec.MinMaxMonthlyVolume(); minV != nil {
			m.MinVolume = *minV
			m.MaxVolume = *maxV
		}
		for _, mv := range rec.Volumes {
			if mv.Volume != nil {
				m.Months++
			}
		}
		report = append(report, m)
	}

	rate(report)

	sort.Slice(report, func(i, j int) bool {
		if report[i].MedianVolume != report[j].MedianVolume {
			return report[i].MedianVolume > report[j].MedianVolume
		}
		return report[i].ISIN < report[j].ISIN
	})
	return report
}

// rate assigns each bond a percentile rating from its median volume.
// Bonds with a zero or absent median rate 0; the rest are ranked 1-100
// against the percentile cut points of the non-zero medians.
func rate(report []Metrics) {
	var medians []float64
	for _, m := range report {
		if m.MedianVolume > 0 {
			medians = append(medians, m.MedianVolume)
		}
	}
	if len(medians) == 0 {
		return
	}
	cuts := percentileCuts(medians)

	for i := range report {
		if report[i].MedianVolume <= 0 {
			continue
		}
		// Smallest cut point not below the median; values above every
		// cut land in the top bucket.
		x := report[i].MedianVolume
		idx := sort.Search(len(cuts), func(j int) bool { return x <= cuts[j] })
		report[i].Rating = idx + 1
	}
}

// percentileCuts returns the 1st through 99th percentiles of values,
// linearly interpolated between order statistics.
func percentileCuts(values []float64) []float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	cuts := make([]float64, 0, 99)
	for q := 1; q <= 99; q++ {
		cuts = append(cuts, percentile(sorted, float64(q)))
	}
	return cuts
}

func percentile(sorted []float64, q float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := q / 100 * float64(len(sorted)-1)
	lo := int(pos)
	if lo >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}
	frac := pos - float64(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}
