package streaming

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alfredjeanlab/contentflow/internal/collector"
	"github.com/alfredjeanlab/contentflow/internal/model"
)

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

const trendingJSON = `{"results": [
	{"id": 1, "media_type": "movie", "title": "Dune", "release_date": "2024-02-28", "vote_average": 8.4, "popularity": 512.6, "genre_ids": [878, 12]},
	{"id": 2, "media_type": "tv", "name": "Shogun", "first_air_date": "2024-02-27", "vote_average": 8.8, "popularity": 300.2, "genre_ids": [18], "origin_country": ["US"]},
	{"id": 3, "media_type": "person", "name": "Someone"},
	{"id": 4, "media_type": "movie", "title": "Madame Web", "vote_average": 5.6, "popularity": 90, "genre_ids": [878]}
]}`

type fakeTMDB struct {
	trendingCalls atomic.Int32
	genreCalls    atomic.Int32
	failTrending  bool
	failGenres    bool
}

func (f *fakeTMDB) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("api_key") != "tmdb-key" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	switch r.URL.Path {
	case "/trending/all/week":
		f.trendingCalls.Add(1)
		if f.failTrending {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Write([]byte(trendingJSON))
	case "/genre/movie/list":
		f.genreCalls.Add(1)
		if f.failGenres {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Write([]byte(`{"genres": [{"id": 878, "name": "Science Fiction"}, {"id": 12, "name": "Adventure"}]}`))
	case "/genre/tv/list":
		w.Write([]byte(`{"genres": [{"id": 18, "name": "Drama"}]}`))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func newTestCollector(t *testing.T, f *fakeTMDB) *Collector {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	c, err := New(collector.Config{APIKey: "tmdb-key", Endpoint: srv.URL})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	c.now = func() time.Time { return fixedNow }
	return c
}

func TestTrendingContent(t *testing.T) {
	c := newTestCollector(t, &fakeTMDB{})

	records, err := c.TrendingContent(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("records = %d, want 3 (people skipped)", len(records))
	}

	dune := records[0]
	if dune.ID != "title_movie-1_20240301" || dune.ContentID != "movie-1" || dune.Platform != Source {
		t.Errorf("dune ids = %q %q %q", dune.ID, dune.ContentID, dune.Platform)
	}
	if dune.Genre != "Science Fiction" || dune.PopularityScore != 513 || *dune.Rating != 8.4 {
		t.Errorf("dune = %+v", dune)
	}

	shogun := records[1]
	if shogun.Title != "Shogun" || shogun.ReleaseDate != "2024-02-27" || shogun.Country != "US" || shogun.ContentType != "tv" {
		t.Errorf("shogun = %+v", shogun)
	}
	for _, r := range records {
		if err := r.Validate(); err != nil {
			t.Errorf("%s should validate: %v", r.ID, err)
		}
	}
}

func TestTrendingContent_GenresUnavailable(t *testing.T) {
	c := newTestCollector(t, &fakeTMDB{failGenres: true})
	records, err := c.TrendingContent(context.Background())
	if err != nil {
		t.Fatalf("genre failure must not fail trending: %v", err)
	}
	if len(records) != 3 || records[0].Genre != "" {
		t.Errorf("records = %+v", records)
	}
}

func TestGenreAnalytics(t *testing.T) {
	c := newTestCollector(t, &fakeTMDB{})

	records, err := c.GenreAnalytics(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Sorted by genre id: Adventure (12), Drama (18), Science Fiction (878).
	if len(records) != 3 {
		t.Fatalf("records = %d", len(records))
	}
	scifi := records[2]
	if scifi.ID != "genre_science-fiction_20240301" || scifi.PopularityScore != 2 || *scifi.Rating != 7 {
		t.Errorf("scifi = %+v (rating %v)", scifi, *scifi.Rating)
	}
	if records[0].Title != "Adventure" || records[0].DataType != model.DataTypeGenre {
		t.Errorf("first = %+v", records[0])
	}
}

func TestCollect_CachesLookups(t *testing.T) {
	f := &fakeTMDB{}
	c := newTestCollector(t, f)

	batch, err := c.Collect(context.Background(), collector.Targets{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(batch.Records) != 6 || len(batch.Failures) != 0 {
		t.Errorf("records = %d failures = %v", len(batch.Records), batch.Failures)
	}
	if f.trendingCalls.Load() != 1 || f.genreCalls.Load() != 1 {
		t.Errorf("trending calls %d genre calls %d, want 1 each", f.trendingCalls.Load(), f.genreCalls.Load())
	}
}

func TestCollect_TrendingFailure(t *testing.T) {
	c := newTestCollector(t, &fakeTMDB{failTrending: true})

	batch, err := c.Collect(context.Background(), collector.Targets{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(batch.Records) != 0 || len(batch.Failures) != 2 {
		t.Errorf("records = %d failures = %d", len(batch.Records), len(batch.Failures))
	}
}
