// Package process cleans and validates collected records before they are
// loaded into the warehouse.
package process

import (
	"log/slog"

	"github.com/alfredjeanlab/contentflow/internal/model"
)

// Stats describes what Clean did to one source's records.
type Stats struct {
	Total          int `json:"total"`
	Valid          int `json:"valid"`
	Invalid        int `json:"invalid"`
	Duplicates     int `json:"duplicates"`
	NullValues     int `json:"null_values"`
	NullableFields int `json:"nullable_fields"`
}

// NullRatio is the share of optional fields of the kept records that carry
// no value.
func (s Stats) NullRatio() float64 {
	if s.NullableFields == 0 {
		return 0
	}
	return float64(s.NullValues) / float64(s.NullableFields)
}

// Clean drops records that fail validation, normalizes the rest in place
// and removes duplicates by record ID, keeping the first occurrence. Nil
// entries are counted as invalid.
func Clean[R model.Record](log *slog.Logger, records []R) ([]R, Stats) {
	if log == nil {
		log = slog.Default()
	}
	stats := Stats{Total: len(records)}
	seen := make(map[string]bool, len(records))
	out := make([]R, 0, len(records))

	for _, r := range records {
		if model.IsNil(r) {
			stats.Invalid++
			continue
		}
		if err := r.Validate(); err != nil {
			stats.Invalid++
			log.Debug("dropping invalid record", "id", r.RecordID(), "err", err)
			continue
		}
		r.Normalize()
		if seen[r.RecordID()] {
			stats.Duplicates++
			continue
		}
		seen[r.RecordID()] = true
		stats.NullValues += r.NullCount()
		stats.NullableFields += r.NullableFields()
		out = append(out, r)
	}
	stats.Valid = len(out)
	return out, stats
}
