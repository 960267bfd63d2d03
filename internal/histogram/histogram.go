// Package histogram buckets wait-time samples the way ristretto's
// z.HistogramData buckets key/value sizes: power-of-two bounds, a count per
// bucket, and a running min/max/sum for a cheap mean.
package histogram

import (
	"fmt"
	"strings"
)

// Bounds returns power-of-two bucket edges [2^minExp, ..., 2^maxExp],
// matching ristretto's z.HistogramBounds.
func Bounds(minExp, maxExp uint32) []float64 {
	bounds := make([]float64, 0, maxExp-minExp+1)
	for i := minExp; i <= maxExp; i++ {
		bounds = append(bounds, float64(int64(1)<<i))
	}
	return bounds
}

// Data holds bucketed wait-time-in-nanoseconds samples.
type Data struct {
	Bounds         []float64
	CountPerBucket []int64
	Count          int64
	Min            int64
	Max            int64
	Sum            int64
}

// New returns a Data with properly initialized bucket counters.
func New(bounds []float64) *Data {
	return &Data{
		Bounds:         bounds,
		CountPerBucket: make([]int64, len(bounds)+1),
		Min:            1<<63 - 1,
	}
}

// Copy returns a deep copy, for taking a stable snapshot under a lock held
// only long enough to clone the struct.
func (d *Data) Copy() *Data {
	if d == nil {
		return nil
	}
	return &Data{
		Bounds:         append([]float64{}, d.Bounds...),
		CountPerBucket: append([]int64{}, d.CountPerBucket...),
		Count:          d.Count,
		Min:            d.Min,
		Max:            d.Max,
		Sum:            d.Sum,
	}
}

// Update records a sample, adjusting Min/Max/Sum and the owning bucket.
func (d *Data) Update(value int64) {
	if d == nil {
		return
	}
	if value > d.Max {
		d.Max = value
	}
	if value < d.Min {
		d.Min = value
	}
	d.Sum += value
	d.Count++

	for i := 0; i <= len(d.Bounds); i++ {
		if i == len(d.Bounds) || value < int64(d.Bounds[i]) {
			d.CountPerBucket[i]++
			break
		}
	}
}

// Mean returns the arithmetic mean of every recorded sample, or 0 if none
// have been recorded yet.
func (d *Data) Mean() float64 {
	if d == nil || d.Count == 0 {
		return 0
	}
	return float64(d.Sum) / float64(d.Count)
}

// Percentile returns the upper bound of the bucket containing the p-th
// fraction of samples (0 <= p <= 1). With no samples it returns 0.
func (d *Data) Percentile(p float64) float64 {
	if d == nil || d.Count == 0 {
		return 0
	}
	target := int64(p * float64(d.Count))
	var cum int64
	for i, c := range d.CountPerBucket {
		cum += c
		if cum >= target {
			if i < len(d.Bounds) {
				return d.Bounds[i]
			}
			return float64(d.Max)
		}
	}
	return float64(d.Max)
}

// String renders a human-readable bucket breakdown.
func (d *Data) String() string {
	if d == nil || d.Count == 0 {
		return "histogram: (no samples)"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "histogram: min=%d max=%d mean=%.2f count=%d ", d.Min, d.Max, d.Mean(), d.Count)

	numBounds := len(d.Bounds)
	for i, count := range d.CountPerBucket {
		if count == 0 {
			continue
		}
		if i == len(d.CountPerBucket)-1 {
			fmt.Fprintf(&b, "[%d, inf) %d (%.2f%%) ", int64(d.Bounds[numBounds-1]), count,
				float64(count*100)/float64(d.Count))
			continue
		}
		lower := int64(0)
		if i > 0 {
			lower = int64(d.Bounds[i-1])
		}
		fmt.Fprintf(&b, "[%d, %d) %d (%.2f%%) ", lower, int64(d.Bounds[i]), count,
			float64(count*100)/float64(d.Count))
	}
	return strings.TrimSpace(b.String())
}
