package migration

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tphakala/gallery-migrate/internal/checkpoint"
	"github.com/tphakala/gallery-migrate/internal/conf"
	"github.com/tphakala/gallery-migrate/internal/errors"
	"github.com/tphakala/gallery-migrate/internal/logger"
	"golang.org/x/time/rate"
)

// Outcome tells the caller what to do after a slice.
type Outcome int

const (
	// OutcomeContinue means work remains; invoke again.
	OutcomeContinue Outcome = iota
	// OutcomeDone means every stage is complete.
	OutcomeDone
	// OutcomeFatal means an operator must intervene before invoking again.
	OutcomeFatal
)

// String implements fmt.Stringer.
func (o Outcome) String() string {
	switch o {
	case OutcomeContinue:
		return "continue"
	case OutcomeDone:
		return "done"
	case OutcomeFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// StageCounts counts the rows handled by one stage during a slice.
type StageCounts struct {
	Migrated int
	Skipped  int
}

// Result describes one slice.
type Result struct {
	Outcome Outcome
	// Err is set for fatal outcomes and for slices that ended early on a
	// retryable error.
	Err     error
	RunID   string
	Stage   Stage
	Counts  map[Stage]*StageCounts
	Elapsed time.Duration
}

// Migrated returns the number of rows migrated during the slice.
func (r *Result) Migrated() int {
	total := 0
	for _, c := range r.Counts {
		total += c.Migrated
	}
	return total
}

// Skipped returns the number of rows skipped during the slice.
func (r *Result) Skipped() int {
	total := 0
	for _, c := range r.Counts {
		total += c.Skipped
	}
	return total
}

func (r *Result) counts(stage Stage) *StageCounts {
	c, ok := r.Counts[stage]
	if !ok {
		c = &StageCounts{}
		r.Counts[stage] = c
	}
	return c
}

// Config holds the per-migration settings of a Runner.
type Config struct {
	Name            string
	Budget          time.Duration // 0 = unlimited
	IntegrityPolicy string        // conf.IntegrityPolicySkip or conf.IntegrityPolicyAbort
	RowsPerSecond   float64       // 0 = unlimited
	BatchSize       int
}

// Dependencies are the collaborators of a Runner.
type Dependencies struct {
	Source  Source
	Target  Target
	Store   CheckpointStore
	Assets  AssetPlacer
	Clock   Clock               // defaults to SystemClock
	Metrics Recorder            // optional
	Decode  func(string) string // legacy text decoder, optional
	Logger  logger.Logger
}

// Runner executes time-boxed slices of one migration.
type Runner struct {
	cfg       Config
	deps      Dependencies
	relocator Relocator
	limiter   *rate.Limiter
	log       logger.Logger
}

// NewRunner validates cfg and deps and returns a Runner.
func NewRunner(cfg Config, deps Dependencies) (*Runner, error) {
	var problems []string
	if cfg.Name == "" {
		problems = append(problems, "migration name is empty")
	}
	if cfg.IntegrityPolicy != conf.IntegrityPolicySkip && cfg.IntegrityPolicy != conf.IntegrityPolicyAbort {
		problems = append(problems, fmt.Sprintf("unknown integrity policy %q", cfg.IntegrityPolicy))
	}
	if deps.Source == nil || deps.Target == nil || deps.Store == nil || deps.Assets == nil {
		problems = append(problems, "source, target, checkpoint store and asset placer are required")
	}
	if len(problems) > 0 {
		return nil, errors.Newf("invalid runner configuration: %v", problems).
			Component("migration").
			Category(errors.CategoryConfiguration).
			Build()
	}

	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if deps.Clock == nil {
		deps.Clock = SystemClock{}
	}
	if deps.Metrics == nil {
		deps.Metrics = noopRecorder{}
	}
	if deps.Logger == nil {
		deps.Logger = logger.NewSlogLogger(nil, logger.LogLevelInfo, nil)
	}

	r := &Runner{
		cfg:  cfg,
		deps: deps,
		relocator: Relocator{
			OriginalsDir:  deps.Source.OriginalsDir(),
			ThumbnailsDir: deps.Source.ThumbnailsDir(),
		},
		log: deps.Logger.Module("migration"),
	}
	if cfg.RowsPerSecond > 0 {
		r.limiter = rate.NewLimiter(rate.Limit(cfg.RowsPerSecond), 1)
	}
	return r, nil
}

// RunSlice runs one time-boxed invocation: it resumes at the persisted stage,
// migrates rows until the budget is spent or all stages are complete, and
// saves the task state. Running a slice of a completed task writes nothing.
func (r *Runner) RunSlice(ctx context.Context) Result {
	runID := uuid.NewString()
	ctx = logger.WithTraceID(ctx, runID)
	log := r.log.WithContext(ctx).With(logger.String("task", r.cfg.Name))

	guard := NewTimeGuard(r.deps.Clock, r.cfg.Budget)
	result := Result{RunID: runID, Counts: make(map[Stage]*StageCounts)}

	finish := func(outcome Outcome, err error) Result {
		result.Outcome = outcome
		result.Err = err
		result.Elapsed = guard.Elapsed()
		r.deps.Metrics.RecordSlice(outcome.String(), result.Elapsed)

		fields := []logger.Field{
			logger.String("outcome", outcome.String()),
			logger.String("stage", result.Stage.String()),
			logger.Int("migrated", result.Migrated()),
			logger.Int("skipped", result.Skipped()),
			logger.Duration("elapsed", result.Elapsed),
		}
		switch {
		case outcome == OutcomeFatal:
			log.Error("migration slice failed", append(fields, logger.Error(err))...)
		case err != nil:
			log.Warn("migration slice ended early", append(fields, logger.Error(err))...)
		default:
			log.Info("migration slice finished", fields...)
		}
		return result
	}

	state, err := r.deps.Store.LoadTask(ctx, r.cfg.Name, StageNames())
	if err != nil {
		return finish(OutcomeFatal, err)
	}
	if state.Completed() {
		result.Stage = StageDone
		return finish(OutcomeDone, nil)
	}

	stage, err := ParseStage(state.Stage)
	if err != nil {
		return finish(OutcomeFatal, err)
	}
	result.Stage = stage

	if err := r.preflight(ctx); err != nil {
		return finish(OutcomeFatal, err)
	}

	if !state.Persisted() {
		log.Info("migration started",
			logger.Any("stages", StageNames()),
			logger.String("integrity_policy", r.cfg.IntegrityPolicy))
	}
	state.RunID = runID
	state.Invocations++
	log.Debug("migration slice started",
		logger.String("stage", stage.String()),
		logger.Int("invocation", state.Invocations),
		logger.Duration("budget", r.cfg.Budget))

	s := &slice{
		runner: r,
		state:  state,
		guard:  guard,
		result: &result,
		log:    log,
	}
	pipeline := NewPipeline(guard)
	pipeline.Handle(StageCategories, s.migrateCategories)
	pipeline.Handle(StageRebuild, s.rebuild)
	pipeline.Handle(StageImages, s.migrateImages)
	pipeline.Handle(StageComments, s.migrateComments)
	pipeline.OnEnter(func(next Stage) {
		state.Stage = next.String()
		result.Stage = next
		log.Debug("entering stage", logger.String("stage", next.String()))
	})

	last, done, runErr := pipeline.Run(ctx, stage)
	state.Stage = last.String()
	result.Stage = last

	kind := Classify(runErr)
	outcome := OutcomeContinue
	switch {
	case runErr == nil && done:
		outcome = OutcomeDone
		completedAt := r.deps.Clock.Now().UTC()
		state.CompletedAt = &completedAt
		log.Info("migration completed",
			logger.Time("completed_at", completedAt),
			logger.Int("invocations", state.Invocations))
	case kind.Fatal():
		outcome = OutcomeFatal
	}

	state.LastError = ""
	if runErr != nil {
		state.LastError = runErr.Error()
	}

	// Progress is saved even when the caller's context is done.
	if err := r.deps.Store.SaveTask(context.WithoutCancel(ctx), state); err != nil {
		if runErr != nil {
			err = errors.Join(runErr, err)
		}
		return finish(OutcomeFatal, err)
	}

	return finish(outcome, runErr)
}

// preflight verifies the source and the asset root before any row.
func (r *Runner) preflight(ctx context.Context) error {
	if err := r.deps.Source.Check(ctx); err != nil {
		return err
	}
	if err := r.deps.Assets.Check(ctx); err != nil {
		if Classify(err) != KindConfiguration {
			return errors.New(err).
				Component("migration").
				Category(errors.CategoryConfiguration).
				Build()
		}
		return err
	}
	return nil
}

// slice is the state of one RunSlice call.
type slice struct {
	runner *Runner
	state  *checkpoint.TaskState
	guard  *TimeGuard
	result *Result
	log    logger.Logger
}
