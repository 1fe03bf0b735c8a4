package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/alfredjeanlab/contentflow/internal/backup"
	"github.com/alfredjeanlab/contentflow/internal/collector"
	"github.com/alfredjeanlab/contentflow/internal/collector/httpclient"
	"github.com/alfredjeanlab/contentflow/internal/config"
	"github.com/alfredjeanlab/contentflow/internal/ledger"
	"github.com/alfredjeanlab/contentflow/internal/metrics"
	"github.com/alfredjeanlab/contentflow/internal/model"
	"github.com/alfredjeanlab/contentflow/internal/process"
	"github.com/alfredjeanlab/contentflow/internal/quality"
	"github.com/alfredjeanlab/contentflow/internal/warehouse"
)

var errNoWarehouse = errors.New("warehouse not configured")

// quotaReporter is implemented by collectors that count requests against a
// daily quota.
type quotaReporter interface {
	Quota() *httpclient.Quota
}

// RawFile returns the path of the collected data of platform for ds.
func (r *Runner) RawFile(platform, ds string) string {
	return filepath.Join(r.cfg.DataDir, fmt.Sprintf("%s_data_%s.json", platform, ds))
}

// ProcessedFile returns the path of the processed data for ds.
func (r *Runner) ProcessedFile(ds string) string {
	return filepath.Join(r.cfg.DataDir, fmt.Sprintf("processed_content_data_%s.json", ds))
}

func (r *Runner) migrate(ctx context.Context, _ string) (outcome, error) {
	if r.wh == nil {
		return outcome{}, errNoWarehouse
	}
	if err := r.wh.Migrate(ctx); err != nil {
		return outcome{}, err
	}
	return outcome{}, nil
}

func (r *Runner) collectorConfig(platform string) collector.Config {
	cc := CollectorConfig(r.cfg, platform, r.metrics, r.log)
	cc.Quota = r.quota(platform, cc.RequestsPerDay)
	return cc
}

// CollectorConfig maps the settings of platform onto a collector config.
func CollectorConfig(c *config.Config, platform string, m *metrics.Manager, log *slog.Logger) collector.Config {
	cc := collector.Config{
		Timeout:  c.HTTPTimeout,
		Observer: m.Observer(platform),
		Logger:   log,
	}
	switch model.Source(platform) {
	case model.SourceYouTube:
		cc.APIKey = c.YouTubeAPIKey
		cc.Endpoint = c.YouTubeEndpoint
		cc.RequestsPerDay = c.YouTubeRequestsPerDay
	case model.SourceSpotify:
		cc.APIKey = c.SpotifyClientID
		cc.Secret = c.SpotifyClientSecret
		cc.Endpoint = c.SpotifyEndpoint
		cc.Extra = map[string]string{"auth_endpoint": c.SpotifyAuthEndpoint}
	case model.SourceSocialMedia:
		cc.Extra = map[string]string{
			"twitter_bearer_token":   c.TwitterBearerToken,
			"twitter_endpoint":       c.TwitterEndpoint,
			"instagram_access_token": c.InstagramAccessToken,
			"instagram_endpoint":     c.InstagramEndpoint,
		}
	case model.SourceStreaming:
		cc.APIKey = c.TMDBAPIKey
		cc.Endpoint = c.TMDBEndpoint
	}
	return cc
}

// unconfigured explains why platform cannot be collected, or returns "".
func (r *Runner) unconfigured(platform string) string {
	c, t := r.cfg, r.targets
	switch model.Source(platform) {
	case model.SourceYouTube:
		if c.YouTubeAPIKey == "" {
			return "no YouTube API key configured"
		}
		if len(t.YouTubeChannels) == 0 {
			return "no YouTube channels targeted"
		}
	case model.SourceSpotify:
		if c.SpotifyClientID == "" || c.SpotifyClientSecret == "" {
			return "no Spotify client credentials configured"
		}
		if len(t.SpotifyArtists) == 0 && len(t.SpotifyPlaylists) == 0 {
			return "no Spotify artists or playlists targeted"
		}
	case model.SourceSocialMedia:
		if c.TwitterBearerToken == "" && c.InstagramAccessToken == "" {
			return "no social media tokens configured"
		}
		if len(t.TwitterHandles) == 0 && len(t.InstagramAccounts) == 0 {
			return "no social media accounts targeted"
		}
	case model.SourceStreaming:
		if c.TMDBAPIKey == "" {
			return "no TMDB API key configured"
		}
	}
	return ""
}

// collect gathers platform's records and writes them to its raw file. The
// file is written even when some entities failed.
func (r *Runner) collect(platform string) func(context.Context, string) (outcome, error) {
	return func(ctx context.Context, ds string) (outcome, error) {
		if reason := r.unconfigured(platform); reason != "" {
			return outcome{skip: reason}, nil
		}
		c, err := r.newCollector(platform, r.collectorConfig(platform))
		if err != nil {
			return outcome{}, fmt.Errorf("create %s collector: %w", platform, err)
		}
		batch, collectErr := c.Collect(ctx, r.targets)
		if q, ok := c.(quotaReporter); ok {
			r.metrics.SetQuotaUsed(platform, q.Quota().Used())
		}
		if batch == nil {
			if collectErr == nil {
				collectErr = errors.New("no batch returned")
			}
			return outcome{}, fmt.Errorf("collect %s: %w", platform, collectErr)
		}
		for _, f := range batch.Failures {
			r.metrics.RecordItemFailure(platform, f.Kind)
		}
		r.metrics.RecordCollected(platform, len(batch.Records))

		records := batch.Records
		if records == nil {
			records = []model.Record{}
		}
		// Whatever was collected is kept, also when collection was cut short.
		path := r.RawFile(platform, ds)
		if err := writeJSON(path, records); err != nil {
			return outcome{}, err
		}
		if collectErr != nil {
			r.log.Warn("collection interrupted, partial data written", "platform", platform, "records", len(records), "path", path)
			return outcome{output: path, records: len(records)}, fmt.Errorf("collect %s: %w", platform, collectErr)
		}
		if len(batch.Failures) > 0 {
			r.log.Warn("collection finished with failures", "platform", platform, "records", len(records), "failures", len(batch.Failures))
		}
		return outcome{output: path, records: len(records)}, nil
	}
}

// cleanSource reads a raw file of source and cleans its records.
func (r *Runner) cleanSource(source model.Source, path string) ([]model.Row, process.Stats, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, process.Stats{}, fmt.Errorf("read %s: %w", path, err)
	}
	rows, err := model.DecodeRows(source, data)
	if err != nil {
		return nil, process.Stats{}, fmt.Errorf("decode %s: %w", path, err)
	}
	cleaned, stats := process.Clean(r.log, rows)
	return cleaned, stats, nil
}

// rawOutputs returns the collected file of every source that has one.
func (r *Runner) rawOutputs(ds string) map[model.Source]string {
	out := map[model.Source]string{}
	run, err := r.ledger.Get(ds)
	if err != nil {
		if !errors.Is(err, ledger.ErrNotFound) {
			r.log.Error("read run failed", "ds", ds, "err", err)
		}
		return out
	}
	for _, source := range model.Sources {
		if path, ok := run.Output(collectStages[source]); ok {
			out[source] = path
		}
	}
	return out
}

// process cleans every collected source and writes the processed file. A
// source that was not collected or cannot be read is logged and left empty.
func (r *Runner) process(_ context.Context, ds string) (outcome, error) {
	raw := r.rawOutputs(ds)
	processed := make(map[model.Source][]model.Row, len(model.Sources))
	total := 0
	for _, source := range model.Sources {
		processed[source] = []model.Row{}
		path, ok := raw[source]
		if !ok {
			r.log.Warn("no collected data", "ds", ds, "source", source)
			continue
		}
		rows, stats, err := r.cleanSource(source, path)
		if err != nil {
			r.log.Error("process source failed", "ds", ds, "source", source, "err", err)
			continue
		}
		processed[source] = rows
		total += len(rows)
		r.log.Info("processed source", "source", source, "valid", stats.Valid, "invalid", stats.Invalid, "duplicates", stats.Duplicates)
	}

	path := r.ProcessedFile(ds)
	if err := writeJSON(path, processed); err != nil {
		return outcome{}, err
	}
	return outcome{output: path, records: total}, nil
}

func (r *Runner) processedOutput(ds string) (string, error) {
	run, err := r.ledger.Get(ds)
	if err == nil {
		if path, ok := run.Output(StageProcess); ok {
			return path, nil
		}
	} else if !errors.Is(err, ledger.ErrNotFound) {
		return "", err
	}
	return "", fmt.Errorf("no processed data file for %s", ds)
}

func (r *Runner) backup(ctx context.Context, ds string) (outcome, error) {
	if len(r.backups) == 0 {
		return outcome{skip: "no backup destinations configured"}, nil
	}
	path, err := r.processedOutput(ds)
	if err != nil {
		return outcome{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return outcome{}, fmt.Errorf("read processed file: %w", err)
	}
	key := backup.ProcessedKey(ds)
	if err := backup.Upload(ctx, r.log, r.backups, key, data); err != nil {
		return outcome{}, err
	}
	return outcome{output: key}, nil
}

// readProcessed decodes the processed file into rows per source.
func readProcessed(path string) (map[model.Source][]model.Row, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read processed file: %w", err)
	}
	var raw map[model.Source]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode processed file: %w", err)
	}
	out := make(map[model.Source][]model.Row, len(raw))
	for source, msg := range raw {
		if !source.IsValid() {
			continue
		}
		rows, err := model.DecodeRows(source, msg)
		if err != nil {
			return nil, fmt.Errorf("decode %s records: %w", source, err)
		}
		out[source] = rows
	}
	return out, nil
}

// load inserts every non-empty source of the processed file into its raw
// table in one transaction.
func (r *Runner) load(ctx context.Context, ds string) (outcome, error) {
	if r.wh == nil {
		return outcome{}, errNoWarehouse
	}
	path, err := r.processedOutput(ds)
	if err != nil {
		return outcome{}, err
	}
	processed, err := readProcessed(path)
	if err != nil {
		return outcome{}, err
	}

	loaded := map[string]int64{}
	err = r.wh.RunInTransaction(ctx, func(tx warehouse.Warehouse) error {
		for _, source := range model.Sources {
			rows := processed[source]
			if len(rows) == 0 {
				continue
			}
			n, err := tx.BulkInsert(ctx, source.Table(), rows)
			if err != nil {
				return err
			}
			loaded[source.Table()] = n
		}
		return nil
	})
	if err != nil {
		return outcome{}, err
	}

	var total int64
	for table, n := range loaded {
		r.metrics.RecordRowsLoaded(table, n)
		r.log.Info("loaded records", "table", table, "inserted", n)
		total += n
	}
	return outcome{records: int(total)}, nil
}

// quality scores every collected source and stores the metrics. Sources
// that were not collected score 0.
func (r *Runner) quality(ctx context.Context, ds string) (outcome, error) {
	if r.wh == nil {
		return outcome{}, errNoWarehouse
	}
	raw := r.rawOutputs(ds)
	now := r.now().UTC()
	var all []model.QualityMetrics
	for _, source := range model.Sources {
		var stats process.Stats
		if path, ok := raw[source]; ok {
			var err error
			if _, stats, err = r.cleanSource(source, path); err != nil {
				r.log.Error("quality check failed", "ds", ds, "source", source, "err", err)
				continue
			}
		}
		m := quality.Check(source, ds, stats, now)
		r.metrics.SetQualityScore(string(source), m.QualityScore)
		r.log.Info("data quality", "source", source, "score", m.QualityScore, "total", m.TotalRecords, "valid", m.ValidRecords)
		all = append(all, m)
	}
	if err := r.wh.StoreQualityMetrics(ctx, all); err != nil {
		return outcome{}, err
	}
	return outcome{records: len(all)}, nil
}

func (r *Runner) transform(ctx context.Context, _ string) (outcome, error) {
	if r.transformer == nil {
		return outcome{skip: "no transformation configured"}, nil
	}
	if err := r.transformer.Run(ctx); err != nil {
		return outcome{}, err
	}
	return outcome{}, nil
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
