// Package pipeline runs the ingestion stages of one run date in order:
// migrate, the four collections, process, backup, load, quality and
// transform. Stages hand their outputs to each other through the run ledger.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/alfredjeanlab/contentflow/internal/backup"
	"github.com/alfredjeanlab/contentflow/internal/collector"
	"github.com/alfredjeanlab/contentflow/internal/collector/httpclient"
	"github.com/alfredjeanlab/contentflow/internal/config"
	"github.com/alfredjeanlab/contentflow/internal/events"
	"github.com/alfredjeanlab/contentflow/internal/ledger"
	"github.com/alfredjeanlab/contentflow/internal/metrics"
	"github.com/alfredjeanlab/contentflow/internal/model"
	"github.com/alfredjeanlab/contentflow/internal/warehouse"
)

// Stage names, as recorded in the ledger.
const (
	StageMigrate          = "migrate"
	StageCollectYouTube   = "collect_youtube"
	StageCollectSpotify   = "collect_spotify"
	StageCollectSocial    = "collect_social"
	StageCollectStreaming = "collect_streaming"
	StageProcess          = "process"
	StageBackup           = "backup"
	StageLoad             = "load"
	StageQuality          = "quality"
	StageTransform        = "transform"
)

// collectStages maps each source to the stage collecting it.
var collectStages = map[model.Source]string{
	model.SourceYouTube:     StageCollectYouTube,
	model.SourceSpotify:     StageCollectSpotify,
	model.SourceSocialMedia: StageCollectSocial,
	model.SourceStreaming:   StageCollectStreaming,
}

// CollectStage returns the stage name collecting platform.
func CollectStage(platform string) (string, error) {
	stage, ok := collectStages[model.Source(platform)]
	if !ok {
		return "", fmt.Errorf("unknown platform %q", platform)
	}
	return stage, nil
}

// Transformer runs the post-load SQL transformations.
type Transformer interface {
	Run(ctx context.Context) error
}

// NewCollectorFunc builds the collector of a platform.
type NewCollectorFunc func(platform string, cfg collector.Config) (collector.Collector, error)

// Options holds the collaborators of a Runner. Config and Ledger are
// required; a nil Warehouse fails the stages that need it and a nil
// Transformer skips the transform stage.
type Options struct {
	Config       *config.Config
	Targets      collector.Targets
	Ledger       *ledger.Ledger
	Warehouse    warehouse.Warehouse
	Backups      []backup.Destination
	Transformer  Transformer
	Publisher    events.Publisher
	Metrics      *metrics.Manager
	Logger       *slog.Logger
	NewCollector NewCollectorFunc
	Now          func() time.Time
}

// Runner executes pipeline stages.
type Runner struct {
	cfg          *config.Config
	targets      collector.Targets
	ledger       *ledger.Ledger
	wh           warehouse.Warehouse
	backups      []backup.Destination
	transformer  Transformer
	publisher    events.Publisher
	metrics      *metrics.Manager
	log          *slog.Logger
	newCollector NewCollectorFunc
	now          func() time.Time

	// quotas outlive single runs so the daily counters span every run of
	// a long-lived process.
	quotaMu sync.Mutex
	quotas  map[string]*httpclient.Quota

	stages []stage
}

// New creates a runner.
func New(opts Options) (*Runner, error) {
	if opts.Config == nil {
		return nil, errors.New("pipeline: config is required")
	}
	if opts.Ledger == nil {
		return nil, errors.New("pipeline: ledger is required")
	}
	r := &Runner{
		cfg:          opts.Config,
		targets:      opts.Targets,
		ledger:       opts.Ledger,
		wh:           opts.Warehouse,
		backups:      opts.Backups,
		transformer:  opts.Transformer,
		publisher:    opts.Publisher,
		metrics:      opts.Metrics,
		log:          opts.Logger,
		newCollector: opts.NewCollector,
		now:          opts.Now,
		quotas:       map[string]*httpclient.Quota{},
	}
	if r.publisher == nil {
		r.publisher = &events.NoopPublisher{}
	}
	if r.log == nil {
		r.log = slog.Default()
	}
	if r.newCollector == nil {
		r.newCollector = registryCollector
	}
	if r.now == nil {
		r.now = time.Now
	}
	if r.targets.YouTubeRegion == "" {
		r.targets.YouTubeRegion = r.cfg.YouTubeRegion
	}
	r.stages = r.plan()
	return r, nil
}

// quota returns the request counter of platform, creating it on first use.
func (r *Runner) quota(platform string, perDay int) *httpclient.Quota {
	r.quotaMu.Lock()
	defer r.quotaMu.Unlock()
	q, ok := r.quotas[platform]
	if !ok {
		q = httpclient.NewQuota(perDay)
		r.quotas[platform] = q
	}
	return q
}

func registryCollector(platform string, cfg collector.Config) (collector.Collector, error) {
	ctor, err := collector.Get(platform)
	if err != nil {
		return nil, err
	}
	return ctor(cfg)
}

// outcome is what a stage function reports besides an error.
type outcome struct {
	output  string
	records int
	skip    string // non-empty: the stage had nothing to do
}

type stage struct {
	name string
	// needs lists stages that must have succeeded. With needsAny, one of
	// them is enough.
	needs    []string
	needsAny bool
	run      func(ctx context.Context, ds string) (outcome, error)
}

func (r *Runner) plan() []stage {
	return []stage{
		{name: StageMigrate, run: r.migrate},
		{name: StageCollectYouTube, run: r.collect(string(model.SourceYouTube))},
		{name: StageCollectSpotify, run: r.collect(string(model.SourceSpotify))},
		{name: StageCollectSocial, run: r.collect(string(model.SourceSocialMedia))},
		{name: StageCollectStreaming, run: r.collect(string(model.SourceStreaming))},
		{
			name:     StageProcess,
			needs:    []string{StageCollectYouTube, StageCollectSpotify, StageCollectSocial, StageCollectStreaming},
			needsAny: true,
			run:      r.process,
		},
		{name: StageBackup, needs: []string{StageProcess}, run: r.backup},
		{name: StageLoad, needs: []string{StageMigrate, StageProcess}, run: r.load},
		{name: StageQuality, needs: []string{StageLoad}, run: r.quality},
		{name: StageTransform, needs: []string{StageQuality}, run: r.transform},
	}
}

// Stages returns the stage names in execution order.
func (r *Runner) Stages() []string {
	names := make([]string, len(r.stages))
	for i, st := range r.stages {
		names[i] = st.name
	}
	return names
}

// ValidateDS checks that ds is a run date in YYYY-MM-DD form.
func ValidateDS(ds string) error {
	if _, err := time.Parse(time.DateOnly, ds); err != nil {
		return fmt.Errorf("invalid run date %q: want YYYY-MM-DD", ds)
	}
	return nil
}

// Today returns the run date of the current day in UTC.
func (r *Runner) Today() string {
	return r.now().UTC().Format(time.DateOnly)
}

// Run executes every stage for ds. A failed stage does not stop the run;
// stages depending on it are skipped. The returned error joins the errors
// of every failed stage.
func (r *Runner) Run(ctx context.Context, ds string) (*ledger.Run, error) {
	if err := ValidateDS(ds); err != nil {
		return nil, err
	}
	run, err := r.ledger.Begin(ds)
	if err != nil {
		return nil, err
	}
	r.log.Info("run started", "ds", ds, "run_id", run.ID)
	r.publish(ctx, events.New(events.TopicRunStarted, ds, run.ID))

	status := make(map[string]ledger.Status, len(r.stages))
	var errs []error
	for _, st := range r.stages {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if reason := unmet(st, status); reason != "" {
			r.skip(ctx, ds, run.ID, st.name, reason)
			status[st.name] = ledger.StatusSkipped
			continue
		}
		res, err := r.execute(ctx, ds, run.ID, st)
		status[st.name] = res.Status
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", st.name, err))
		}
	}

	if err := r.ledger.Finish(ds); err != nil {
		r.log.Error("finish run failed", "ds", ds, "err", err)
	}
	done := events.New(events.TopicRunCompleted, ds, run.ID)
	runErr := errors.Join(errs...)
	if runErr != nil {
		done.Error = runErr.Error()
	}
	r.publish(ctx, done)
	r.log.Info("run completed", "ds", ds, "run_id", run.ID, "failed", len(errs))

	final, err := r.ledger.Get(ds)
	if err != nil {
		return nil, errors.Join(runErr, err)
	}
	return final, runErr
}

// RunStage executes a single stage for ds without checking the stages it
// depends on, recording its result on the run of that date.
func (r *Runner) RunStage(ctx context.Context, ds, name string) (ledger.StageResult, error) {
	if err := ValidateDS(ds); err != nil {
		return ledger.StageResult{}, err
	}
	for _, st := range r.stages {
		if st.name != name {
			continue
		}
		var runID string
		if run, err := r.ledger.Get(ds); err == nil {
			runID = run.ID
		}
		return r.execute(ctx, ds, runID, st)
	}
	return ledger.StageResult{}, fmt.Errorf("unknown stage %q (valid: %s)", name, strings.Join(r.Stages(), ", "))
}

func unmet(st stage, status map[string]ledger.Status) string {
	if len(st.needs) == 0 {
		return ""
	}
	if st.needsAny {
		for _, n := range st.needs {
			if status[n] == ledger.StatusSucceeded {
				return ""
			}
		}
		return "none of " + strings.Join(st.needs, ", ") + " succeeded"
	}
	for _, n := range st.needs {
		if status[n] != ledger.StatusSucceeded {
			return n + " did not succeed"
		}
	}
	return ""
}

// execute runs st and records its result in the ledger, metrics and events.
func (r *Runner) execute(ctx context.Context, ds, runID string, st stage) (ledger.StageResult, error) {
	log := r.log.With("ds", ds, "stage", st.name)
	start := r.now()
	r.record(ds, st.name, ledger.StageResult{Status: ledger.StatusRunning, StartedAt: start})
	log.Info("stage started")

	out, err := st.run(ctx, ds)
	res := ledger.StageResult{
		Output:     out.output,
		Records:    out.records,
		StartedAt:  start,
		FinishedAt: r.now(),
	}
	e := events.New(events.TopicStageCompleted, ds, runID)
	switch {
	case err != nil:
		res.Status = ledger.StatusFailed
		res.Error = err.Error()
		e.Topic = events.TopicStageFailed
		e.Error = res.Error
		log.Error("stage failed", "err", err)
	case out.skip != "":
		res.Status = ledger.StatusSkipped
		res.Reason = out.skip
		e.Topic = events.TopicStageSkipped
		log.Warn("stage skipped", "reason", out.skip)
	default:
		res.Status = ledger.StatusSucceeded
		log.Info("stage succeeded", "records", out.records, "output", out.output, "elapsed", res.FinishedAt.Sub(start))
	}
	r.record(ds, st.name, res)
	r.metrics.RecordStage(st.name, string(res.Status), res.FinishedAt.Sub(start))
	e.Stage = st.name
	e.Records = out.records
	r.publish(ctx, e)
	return res, err
}

func (r *Runner) skip(ctx context.Context, ds, runID, name, reason string) {
	at := r.now()
	r.record(ds, name, ledger.StageResult{Status: ledger.StatusSkipped, Reason: reason, StartedAt: at, FinishedAt: at})
	r.metrics.RecordStage(name, string(ledger.StatusSkipped), 0)
	e := events.New(events.TopicStageSkipped, ds, runID)
	e.Stage = name
	r.publish(ctx, e)
	r.log.Warn("stage skipped", "ds", ds, "stage", name, "reason", reason)
}

func (r *Runner) record(ds, name string, res ledger.StageResult) {
	if err := r.ledger.Record(ds, name, res); err != nil {
		r.log.Error("record stage failed", "ds", ds, "stage", name, "err", err)
	}
}

func (r *Runner) publish(ctx context.Context, e events.Event) {
	if err := r.publisher.Publish(ctx, e); err != nil {
		r.log.Warn("publish event failed", "topic", e.Topic, "err", err)
	}
}
