package model

import (
	"fmt"
	"strings"
	"time"
)

// StreamingAnalytics is the flat record for trending streaming titles and
// per-genre aggregates.
type StreamingAnalytics struct {
	ID              string    `json:"id"`
	Platform        string    `json:"platform"`
	ContentID       string    `json:"content_id"`
	Title           string    `json:"title"`
	Genre           string    `json:"genre"`
	ReleaseDate     string    `json:"release_date"`
	Rating          *float64  `json:"rating"`
	PopularityScore int64     `json:"popularity_score"`
	Country         string    `json:"country"`
	ContentType     string    `json:"content_type"`
	CollectedAt     time.Time `json:"collected_at"`
	DataType        DataType  `json:"data_type"`
}

var _ Row = (*StreamingAnalytics)(nil)

func (s *StreamingAnalytics) RecordID() string { return s.ID }

func (s *StreamingAnalytics) Source() Source { return SourceStreaming }

func (s *StreamingAnalytics) Validate() error {
	var ve ValidationError
	ve.required("id", s.ID)
	ve.required("content_id", s.ContentID)
	ve.required("title", s.Title)
	switch s.DataType {
	case DataTypeTitle, DataTypeGenre:
	default:
		ve.add("data_type", fmt.Sprintf("invalid value %q", s.DataType))
	}
	ve.date("release_date", s.ReleaseDate)
	if s.Rating != nil && (*s.Rating < 0 || *s.Rating > 10) {
		ve.add("rating", "must be between 0 and 10")
	}
	ve.nonNegative("popularity_score", s.PopularityScore)
	return ve.err()
}

func (s *StreamingAnalytics) Normalize() {
	s.Title = strings.TrimSpace(s.Title)
	s.Genre = strings.TrimSpace(s.Genre)
	s.Country = strings.ToUpper(strings.TrimSpace(s.Country))
	s.ContentType = strings.ToLower(s.ContentType)
}

func (s *StreamingAnalytics) NullCount() int {
	return countNil(s.Genre, s.ReleaseDate, s.Rating, s.Country)
}

func (s *StreamingAnalytics) NullableFields() int { return 4 }

func (s *StreamingAnalytics) Columns() []string {
	return []string{
		"id", "platform", "content_id", "title", "genre", "release_date", "rating",
		"popularity_score", "country", "content_type", "collected_at", "data_type",
	}
}

func (s *StreamingAnalytics) Values() []any {
	return []any{
		s.ID, s.Platform, s.ContentID, s.Title, StringPtr(s.Genre), releaseDate(s.ReleaseDate), s.Rating,
		s.PopularityScore, StringPtr(s.Country), s.ContentType, s.CollectedAt, string(s.DataType),
	}
}
