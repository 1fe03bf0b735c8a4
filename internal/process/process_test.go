package process

import (
	"testing"
	"time"

	"github.com/alfredjeanlab/contentflow/internal/model"
)

func video(id string) *model.VideoAnalytics {
	return &model.VideoAnalytics{
		ID:          id,
		ChannelID:   "UC1",
		VideoID:     model.StringPtr("v"),
		Title:       "  Title  ",
		Description: "d",
		PublishedAt: "2024-02-01T10:00:00Z",
		LikeCount:   model.Int64Ptr(1),
		Duration:    model.Int64Ptr(60),
		CategoryID:  model.Int64Ptr(22),
		Language:    "EN",
		Tags:        []string{"a", " a ", ""},
		CollectedAt: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		DataType:    model.DataTypeVideo,
	}
}

func TestClean(t *testing.T) {
	negative := video("video_neg_20240301")
	negative.ViewCount = -1
	badTime := video("video_time_20240301")
	badTime.PublishedAt = "yesterday"
	noID := video("")

	records := []*model.VideoAnalytics{
		video("video_a_20240301"),
		negative,
		video("video_b_20240301"),
		video("video_a_20240301"),
		badTime,
		noID,
		nil,
	}

	out, stats := Clean(nil, records)

	if len(out) != 2 || out[0].ID != "video_a_20240301" || out[1].ID != "video_b_20240301" {
		t.Fatalf("out = %v", out)
	}
	want := Stats{Total: 7, Valid: 2, Invalid: 4, Duplicates: 1, NullValues: 2, NullableFields: 14}
	if stats != want {
		t.Errorf("stats = %+v, want %+v", stats, want)
	}

	v := out[0]
	if v.Title != "Title" || v.Language != "en" || len(v.Tags) != 1 {
		t.Errorf("not normalized: %q %q %v", v.Title, v.Language, v.Tags)
	}
}

func TestClean_KeepsFirstDuplicate(t *testing.T) {
	first := video("video_a_20240301")
	first.Title = "first"
	second := video("video_a_20240301")
	second.Title = "second"

	out, stats := Clean(nil, []*model.VideoAnalytics{first, second})
	if len(out) != 1 || out[0].Title != "first" || stats.Duplicates != 1 {
		t.Errorf("out = %v stats = %+v", out, stats)
	}
}

func TestClean_Rows(t *testing.T) {
	rows := []model.Row{
		&model.StreamingAnalytics{ID: "title_movie-1_20240301", ContentID: "movie-1", Title: "Dune", DataType: model.DataTypeTitle},
		&model.StreamingAnalytics{ID: "title_movie-2_20240301", ContentID: "movie-2", DataType: model.DataTypeTitle},
	}
	out, stats := Clean(nil, rows)
	if len(out) != 1 || stats.Invalid != 1 {
		t.Errorf("out = %d stats = %+v", len(out), stats)
	}
	// genre, release_date, rating and country are all unset
	if stats.NullRatio() != 1 {
		t.Errorf("null ratio = %v", stats.NullRatio())
	}
}

func TestClean_Empty(t *testing.T) {
	out, stats := Clean[model.Row](nil, nil)
	if out == nil || len(out) != 0 || stats != (Stats{}) {
		t.Errorf("out = %#v stats = %+v", out, stats)
	}
	if stats.NullRatio() != 0 {
		t.Error("empty stats should have a zero null ratio")
	}
}
