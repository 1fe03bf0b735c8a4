// Package collector defines the platform collector interface and the
// registry platform packages add themselves to.
package collector

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/alfredjeanlab/contentflow/internal/collector/httpclient"
	"github.com/alfredjeanlab/contentflow/internal/model"
)

// Collector fetches analytics records from one platform family.
type Collector interface {
	// Platform returns the registry name of the collector.
	Platform() string

	// Collect gathers records for every target. Failures of single entities
	// are reported in Batch.Failures; a non-nil error means nothing usable
	// was collected.
	Collect(ctx context.Context, targets Targets) (*Batch, error)
}

// Config holds platform-specific connection settings.
type Config struct {
	APIKey         string
	Secret         string
	Endpoint       string
	Extra          map[string]string
	RequestsPerDay int
	Timeout        time.Duration
	Observer       httpclient.Observer
	Logger         *slog.Logger
	// Quota is shared by every collector of the platform in this process.
	// Nil gives the collector a counter of its own.
	Quota *httpclient.Quota
}

// Log returns the configured logger or the default one.
func (c Config) Log() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

// QuotaOrNew returns the shared quota counter, or a new one limited to
// RequestsPerDay.
func (c Config) QuotaOrNew() *httpclient.Quota {
	if c.Quota != nil {
		return c.Quota
	}
	return httpclient.NewQuota(c.RequestsPerDay)
}

// ClientOptions returns the httpclient options shared by every platform.
func (c Config) ClientOptions() []httpclient.Option {
	var opts []httpclient.Option
	if c.Timeout > 0 {
		opts = append(opts, httpclient.WithTimeout(c.Timeout))
	}
	if c.Observer != nil {
		opts = append(opts, httpclient.WithObserver(c.Observer))
	}
	return opts
}

// Targets lists the entities collected on every run.
type Targets struct {
	YouTubeChannels   []string `toml:"youtube_channels"`
	YouTubeRegion     string   `toml:"youtube_region,omitempty"`
	SpotifyArtists    []string `toml:"spotify_artists"`
	SpotifyPlaylists  []string `toml:"spotify_playlists"`
	TwitterHandles    []string `toml:"twitter_handles"`
	InstagramAccounts []string `toml:"instagram_accounts"`
}

// ItemError is the failure of a single entity that did not stop collection.
type ItemError struct {
	Kind string
	ID   string
	Err  error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Kind, e.ID, e.Err)
}

func (e *ItemError) Unwrap() error {
	return e.Err
}

// Batch is the result of one Collect call.
type Batch struct {
	Platform string
	Records  []model.Record
	Failures []*ItemError
}

// Add appends r unless it is nil. Collectors return nil records for entities
// that no longer exist.
func (b *Batch) Add(r model.Record) {
	if model.IsNil(r) {
		return
	}
	b.Records = append(b.Records, r)
}

// Fail records a per-item failure and logs it. log is the collector's
// logger, which already carries the platform.
func (b *Batch) Fail(log *slog.Logger, kind, id string, err error) {
	log.Error("collect item failed", "kind", kind, "id", id, "err", err)
	b.Failures = append(b.Failures, &ItemError{Kind: kind, ID: id, Err: err})
}

// Constructor creates a Collector from its platform configuration.
type Constructor func(cfg Config) (Collector, error)

var registry = map[string]Constructor{}

// Register adds a collector constructor under the given platform name.
func Register(name string, ctor Constructor) {
	registry[name] = ctor
}

// Get returns the collector constructor for the given platform name.
func Get(name string) (Constructor, error) {
	ctor, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown collector platform: %s", name)
	}
	return ctor, nil
}

// Platforms returns the names of all registered collector platforms, sorted.
func Platforms() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
