package runner

import (
	"context"
	"time"

	"github.com/browserwing/actionrunner/executor"
	"github.com/browserwing/actionrunner/models"
	"github.com/browserwing/actionrunner/pkg/logger"
	"github.com/browserwing/actionrunner/templates"
	"github.com/google/uuid"
)

// Launcher provides the session a run executes in.
type Launcher interface {
	Launch(ctx context.Context, opts models.LaunchOptions) (executor.Session, error)
}

// Sink receives every result as soon as it is produced, in order.
type Sink interface {
	Emit(ctx context.Context, index int, result models.ActionResult) error
}

// ArtifactSink is a Sink that writes files. After a run the runner takes the
// files written for it into the summary.
type ArtifactSink interface {
	Sink
	TakeArtifacts(runID string) []string
}

// Option tweaks a Runner.
type Option func(*Runner)

func WithSinks(sinks ...Sink) Option {
	return func(r *Runner) { r.sinks = append(r.sinks, sinks...) }
}

func WithExecutorOptions(opts executor.Options) Option {
	return func(r *Runner) { r.execOpts = opts }
}

// WithDefaultActions sets the actions used when the input names neither a
// template nor any actions.
func WithDefaultActions(actions []models.Action) Option {
	return func(r *Runner) { r.defaults = actions }
}

// Runner executes whole runs: template expansion, session launch, ordered
// execution and teardown.
type Runner struct {
	launcher Launcher
	log      logger.Logger
	sinks    []Sink
	execOpts executor.Options
	defaults []models.Action
	now      func() time.Time
}

func New(launcher Launcher, log logger.Logger, opts ...Option) *Runner {
	r := &Runner{
		launcher: launcher,
		log:      log,
		execOpts: executor.DefaultOptions(),
		defaults: templates.DefaultActions(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run always returns a summary. The error is set only for fatal failures,
// which are also recorded on the summary; failed actions never stop a run.
func (r *Runner) Run(ctx context.Context, in models.RunInput) (*models.RunSummary, error) {
	runID := RunID(ctx)
	if runID == "" {
		runID = uuid.New().String()
		ctx = WithRunID(ctx, runID)
	}
	summary := &models.RunSummary{
		RunID:   runID,
		Actions: []models.ActionRecord{},
		Results: []models.ActionResult{},
	}

	actions, err := r.plan(in)
	if err != nil {
		return r.fail(ctx, summary, err), err
	}

	r.log.Info(ctx, "Starting run with %d actions", len(actions))
	session, err := r.launcher.Launch(ctx, in.LaunchOptions)
	if err != nil {
		err = asLaunchFailure(err)
		if session != nil {
			r.closeSession(ctx, session)
		}
		return r.fail(ctx, summary, err), err
	}
	defer r.closeSession(ctx, session)

	page := session.Page()
	if page == nil {
		err := models.NewError(models.KindLaunchFailure, "session has no page")
		return r.fail(ctx, summary, err), err
	}

	exec := executor.New(page, r.log, r.execOpts)
	for i, action := range actions {
		result := exec.Execute(ctx, action)
		summary.Stats.Record(result)
		summary.Results = append(summary.Results, result)
		summary.Actions = append(summary.Actions, result.Record())
		r.emit(ctx, i, result)

		if !result.Success {
			r.log.Warn(ctx, "Action %d (%s) failed: %s", i+1, action.Type, result.Error)
		}
	}

	summary.Screenshots = r.takeArtifacts(runID)
	summary.Success = summary.Stats.FailedActions == 0
	summary.Timestamp = r.now()
	r.log.Info(ctx, "Run finished: %d/%d actions succeeded in %.1fms",
		summary.Stats.SuccessfulActions, summary.Stats.TotalActions, summary.Stats.TotalExecutionTimeMS)
	return summary, nil
}

// plan resolves the action list before any browser is started.
func (r *Runner) plan(in models.RunInput) ([]models.Action, error) {
	if in.Template != "" {
		return templates.Build(in.Template, in.TemplateParams)
	}
	if len(in.Actions) == 0 {
		return r.defaults, nil
	}
	return in.Actions, nil
}

func (r *Runner) fail(ctx context.Context, summary *models.RunSummary, err error) *models.RunSummary {
	r.log.Error(ctx, "Run failed: %v", err)
	summary.Success = false
	summary.Error = err.Error()
	summary.ErrorKind = models.KindOf(err)
	summary.Timestamp = r.now()
	return summary
}

func (r *Runner) emit(ctx context.Context, index int, result models.ActionResult) {
	for _, sink := range r.sinks {
		if err := sink.Emit(ctx, index, result); err != nil {
			r.log.Warn(ctx, "Result sink failed for action %d: %v", index+1, err)
		}
	}
}

func (r *Runner) takeArtifacts(runID string) []string {
	var files []string
	for _, sink := range r.sinks {
		if a, ok := sink.(ArtifactSink); ok {
			files = append(files, a.TakeArtifacts(runID)...)
		}
	}
	return files
}

func (r *Runner) closeSession(ctx context.Context, s executor.Session) {
	// teardown must run even when the run was cancelled
	closeCtx := context.WithoutCancel(ctx)
	if err := s.Close(closeCtx); err != nil {
		r.log.Warn(ctx, "Failed to close session: %v", err)
	}
}

func asLaunchFailure(err error) error {
	if models.KindOf(err) == models.KindLaunchFailure {
		return err
	}
	return models.WrapError(models.KindLaunchFailure, err, "launch failed")
}
