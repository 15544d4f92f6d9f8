package domain

import (
	"sort"
	"time"
)

// VolumeMonths is the fixed length of the trailing monthly volume window
// carried by every bond record.
const VolumeMonths = 12

// BondCategory distinguishes sovereign paper from corporate issues.
type BondCategory string

const (
	CategoryGovernment BondCategory = "government"
	CategoryCorporate  BondCategory = "corporate"
)

// MonthlyVolume is one month of traded volume for a bond, expressed in
// millions of euro nominal. Volume is nil when the exchange reported no
// figure for that month.
type MonthlyVolume struct {
	Month  time.Time `json:"month"`
	Volume *float64  `json:"volume"`
}

// BondRecord represents the reference data scraped for a single MOT
// instrument. ISIN, Issuer and Price are mandatory; every pointer field is
// optional and stays nil when the exchange page does not expose it.
// Volumes holds at most VolumeMonths entries, chronologically ordered with
// the newest month last.
type BondRecord struct {
	ISIN             string          `json:"isin" validate:"required,isin"`
	Issuer           string          `json:"issuer" validate:"required"`
	Category         BondCategory    `json:"category" validate:"required,oneof=government corporate"`
	Coupon           *float64        `json:"coupon,omitempty"`
	Maturity         *time.Time      `json:"maturity,omitempty"`
	Price            float64         `json:"price" validate:"min=0"`
	YieldGross       *float64        `json:"yield_gross,omitempty"`
	YieldNet         *float64        `json:"yield_net,omitempty"`
	Contracts        *float64        `json:"contracts,omitempty"`
	LastVolume       *float64        `json:"last_volume,omitempty"`
	TotalVolume      *float64        `json:"total_volume,omitempty"`
	ModifiedDuration *float64        `json:"modified_duration,omitempty"`
	YearsToMaturity  *float64        `json:"years_to_maturity,omitempty"`
	Volumes          []MonthlyVolume `json:"volumes" validate:"max=12"`
}

// MedianMonthlyVolume returns the median of the populated monthly volumes,
// or nil when no month carries a figure.
func (r *BondRecord) MedianMonthlyVolume() *float64 {
	values := r.populatedVolumes()
	if len(values) == 0 {
		return nil
	}
	median := medianOf(values)
	return &median
}

// MinMaxMonthlyVolume returns the smallest and largest populated monthly
// volumes, or nils when no month carries a figure.
func (r *BondRecord) MinMaxMonthlyVolume() (*float64, *float64) {
	values := r.populatedVolumes()
	if len(values) == 0 {
		return nil, nil
	}
	minV, maxV := values[0], values[0]
	for _, v := range values[1:] {
		if v < minV {
			minV = v
		}
		if v > maxV {
			maxV = v
		}
	}
	return &minV, &maxV
}

func (r *BondRecord) populatedVolumes() []float64 {
	values := make([]float64, 0, len(r.Volumes))
	for _, mv := range r.Volumes {
		if mv.Volume != nil {
			values = append(values, *mv.Volume)
		}
	}
	return values
}

func medianOf(values []float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
