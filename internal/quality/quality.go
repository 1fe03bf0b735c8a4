// Package quality scores the data quality of a run per source.
package quality

import (
	"math"
	"time"

	"github.com/alfredjeanlab/contentflow/internal/model"
	"github.com/alfredjeanlab/contentflow/internal/process"
)

// Check derives the quality metrics of one source for the run date ds from
// the statistics of the cleaning step. The score is
// 100 × valid/total × (1 − null ratio), rounded to two decimals, and 0 for
// a source without records.
func Check(source model.Source, ds string, stats process.Stats, now time.Time) model.QualityMetrics {
	return model.QualityMetrics{
		DataSource:       source,
		MetricDate:       ds,
		TotalRecords:     stats.Total,
		ValidRecords:     stats.Valid,
		DuplicateRecords: stats.Duplicates,
		NullValues:       stats.NullValues,
		QualityScore:     Score(stats),
		CreatedAt:        now,
	}
}

// Score computes the quality score of a cleaning result.
func Score(stats process.Stats) float64 {
	if stats.Total == 0 {
		return 0
	}
	score := 100 * float64(stats.Valid) / float64(stats.Total) * (1 - stats.NullRatio())
	return math.Round(score*100) / 100
}
