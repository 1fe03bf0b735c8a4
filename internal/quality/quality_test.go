package quality

import (
	"testing"
	"time"

	"github.com/alfredjeanlab/contentflow/internal/model"
	"github.com/alfredjeanlab/contentflow/internal/process"
)

func TestScore(t *testing.T) {
	tests := []struct {
		name  string
		stats process.Stats
		want  float64
	}{
		{"empty", process.Stats{}, 0},
		{"perfect", process.Stats{Total: 10, Valid: 10, NullableFields: 40}, 100},
		{"half invalid", process.Stats{Total: 10, Valid: 5, NullableFields: 20}, 50},
		{"quarter nulls", process.Stats{Total: 4, Valid: 4, NullValues: 4, NullableFields: 16}, 75},
		{"rounded", process.Stats{Total: 3, Valid: 2, NullableFields: 8}, 66.67},
		{"all invalid", process.Stats{Total: 3, Invalid: 3}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Score(tt.stats); got != tt.want {
				t.Errorf("Score(%+v) = %v, want %v", tt.stats, got, tt.want)
			}
		})
	}
}

func TestCheck(t *testing.T) {
	now := time.Date(2024, 3, 1, 13, 0, 0, 0, time.UTC)
	stats := process.Stats{Total: 10, Valid: 8, Invalid: 1, Duplicates: 1, NullValues: 8, NullableFields: 32}

	m := Check(model.SourceSpotify, "2024-03-01", stats, now)

	if m.DataSource != model.SourceSpotify || m.MetricDate != "2024-03-01" || !m.CreatedAt.Equal(now) {
		t.Errorf("identity = %+v", m)
	}
	if m.TotalRecords != 10 || m.ValidRecords != 8 || m.DuplicateRecords != 1 || m.NullValues != 8 {
		t.Errorf("counts = %+v", m)
	}
	// 100 * 0.8 * 0.75
	if m.QualityScore != 60 {
		t.Errorf("score = %v, want 60", m.QualityScore)
	}
}
