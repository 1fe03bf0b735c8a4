package model

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func validVideo() *VideoAnalytics {
	return &VideoAnalytics{
		ID:          "video_v1_20240101",
		ChannelID:   "UC1",
		VideoID:     StringPtr("v1"),
		Title:       "Title",
		PublishedAt: "2024-01-01T10:00:00Z",
		ViewCount:   100,
		LikeCount:   Int64Ptr(5),
		Language:    "en",
		DataType:    DataTypeVideo,
		CollectedAt: time.Now(),
	}
}

func hasFieldError(err error, field string) bool {
	var ve *ValidationError
	if !errors.As(err, &ve) {
		return false
	}
	for _, fe := range ve.Errors {
		if fe.Field == field {
			return true
		}
	}
	return false
}

func TestValidationError_Error(t *testing.T) {
	ve := &ValidationError{Errors: []FieldError{
		{Field: "id", Message: "is required"},
		{Field: "view_count", Message: "must not be negative, got -1"},
	}}
	want := "validation failed: id: is required; view_count: must not be negative, got -1"
	if got := ve.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestVideoAnalytics_Validate(t *testing.T) {
	if err := validVideo().Validate(); err != nil {
		t.Fatalf("expected valid video, got %v", err)
	}

	for _, tc := range []struct {
		name  string
		mut   func(v *VideoAnalytics)
		field string
	}{
		{"MissingID", func(v *VideoAnalytics) { v.ID = "" }, "id"},
		{"MissingChannel", func(v *VideoAnalytics) { v.ChannelID = " " }, "channel_id"},
		{"MissingVideoID", func(v *VideoAnalytics) { v.VideoID = nil }, "video_id"},
		{"BadDataType", func(v *VideoAnalytics) { v.DataType = "short" }, "data_type"},
		{"BadTimestamp", func(v *VideoAnalytics) { v.PublishedAt = "yesterday" }, "published_at"},
		{"NegativeViews", func(v *VideoAnalytics) { v.ViewCount = -1 }, "view_count"},
		{"NegativeLikes", func(v *VideoAnalytics) { v.LikeCount = Int64Ptr(-3) }, "like_count"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			v := validVideo()
			tc.mut(v)
			if err := v.Validate(); !hasFieldError(err, tc.field) {
				t.Errorf("expected error on %q, got %v", tc.field, err)
			}
		})
	}
}

func TestVideoAnalytics_ChannelNeedsNoVideoID(t *testing.T) {
	v := validVideo()
	v.DataType = DataTypeChannel
	v.VideoID = nil
	if err := v.Validate(); err != nil {
		t.Fatalf("channel record should not require video_id: %v", err)
	}
}

func TestVideoAnalytics_Normalize(t *testing.T) {
	v := validVideo()
	v.Title = "  Padded  "
	v.Language = " EN "
	v.Tags = []string{"go", " go ", "", "rust"}
	v.Normalize()
	if v.Title != "Padded" {
		t.Errorf("Title = %q", v.Title)
	}
	if v.Language != "en" {
		t.Errorf("Language = %q", v.Language)
	}
	if strings.Join(v.Tags, ",") != "go,rust" {
		t.Errorf("Tags = %v", v.Tags)
	}

	v.Language = ""
	v.Tags = nil
	v.Normalize()
	if v.Language != UnknownLanguage {
		t.Errorf("empty language should become %q, got %q", UnknownLanguage, v.Language)
	}
	if v.Tags == nil {
		t.Error("nil tags should normalize to an empty slice")
	}
}

func TestVideoAnalytics_NullCount(t *testing.T) {
	v := &VideoAnalytics{}
	// video_id, like_count, subscriber_count, duration, category_id, published_at, description
	if got := v.NullCount(); got != 7 {
		t.Errorf("NullCount() = %d, want 7", got)
	}
	full := validVideo()
	full.SubscriberCount = Int64Ptr(1)
	full.Duration = Int64Ptr(60)
	full.CategoryID = Int64Ptr(22)
	full.Description = "d"
	if got := full.NullCount(); got != 0 {
		t.Errorf("NullCount() = %d, want 0", got)
	}
}

func TestMusicAnalytics_Validate(t *testing.T) {
	m := &MusicAnalytics{
		ID:          "album_a1_20240101",
		AlbumID:     StringPtr("a1"),
		Name:        "Album",
		Popularity:  Int64Ptr(50),
		ReleaseDate: "2019",
		Energy:      Float64Ptr(0.5),
		DataType:    DataTypeAlbum,
	}
	if err := m.Validate(); err != nil {
		t.Fatalf("expected valid album, got %v", err)
	}

	m.Popularity = Int64Ptr(101)
	m.Energy = Float64Ptr(1.5)
	m.ReleaseDate = "19-01"
	err := m.Validate()
	for _, field := range []string{"popularity", "energy", "release_date"} {
		if !hasFieldError(err, field) {
			t.Errorf("expected error on %q, got %v", field, err)
		}
	}
}

func TestMusicAnalytics_ReleaseDateWidening(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want any
	}{
		{"", nil},
		{"2019", "2019-01-01"},
		{"2019-05", "2019-05-01"},
		{"2019-05-17", "2019-05-17"},
	} {
		if got := releaseDate(tc.in); got != tc.want {
			t.Errorf("releaseDate(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestSocialAnalytics_Validate(t *testing.T) {
	s := &SocialAnalytics{
		ID:        "twitter_post_1_20240101",
		Platform:  PlatformTwitter,
		AccountID: "42",
		PostID:    StringPtr("1"),
		PostedAt:  "2024-01-01T00:00:00Z",
		DataType:  DataTypePost,
	}
	if err := s.Validate(); err != nil {
		t.Fatalf("expected valid post, got %v", err)
	}
	s.Platform = "myspace"
	s.PostID = nil
	s.Likes = -1
	err := s.Validate()
	for _, field := range []string{"platform", "post_id", "likes"} {
		if !hasFieldError(err, field) {
			t.Errorf("expected error on %q, got %v", field, err)
		}
	}
}

func TestSocialAnalytics_Normalize(t *testing.T) {
	s := &SocialAnalytics{Platform: "Twitter", Hashtags: []string{"Go", "go", "GoLang"}, Mentions: []string{"@A", "@a"}}
	s.Normalize()
	if s.Platform != "twitter" {
		t.Errorf("Platform = %q", s.Platform)
	}
	if strings.Join(s.Hashtags, ",") != "go,golang" {
		t.Errorf("Hashtags = %v", s.Hashtags)
	}
	if strings.Join(s.Mentions, ",") != "@a" {
		t.Errorf("Mentions = %v", s.Mentions)
	}
}

func TestStreamingAnalytics_Validate(t *testing.T) {
	s := &StreamingAnalytics{
		ID:          "tmdb_movie_1_20240101",
		Platform:    "tmdb",
		ContentID:   "movie_1",
		Title:       "Film",
		ReleaseDate: "2024-02-01",
		Rating:      Float64Ptr(7.5),
		DataType:    DataTypeTitle,
	}
	if err := s.Validate(); err != nil {
		t.Fatalf("expected valid title, got %v", err)
	}
	s.Rating = Float64Ptr(11)
	if err := s.Validate(); !hasFieldError(err, "rating") {
		t.Errorf("expected rating error, got %v", err)
	}
}

func TestNullableFieldsCoverNullCount(t *testing.T) {
	for _, r := range []Record{&VideoAnalytics{}, &MusicAnalytics{}, &SocialAnalytics{}, &StreamingAnalytics{}} {
		if r.NullCount() != r.NullableFields() {
			t.Errorf("%T: NullCount() of an empty record = %d, NullableFields() = %d", r, r.NullCount(), r.NullableFields())
		}
	}
}
