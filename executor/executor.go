package executor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/browserwing/actionrunner/models"
	"github.com/browserwing/actionrunner/pkg/logger"
	"github.com/pkg/errors"
)

// DefaultTypeDelay is the pause between runes of a type action.
const DefaultTypeDelay = 50 * time.Millisecond

type Options struct {
	TypeDelay time.Duration
}

func DefaultOptions() Options {
	return Options{TypeDelay: DefaultTypeDelay}
}

// Executor runs single actions against one page. Every outcome, including
// driver panics, is returned as an ActionResult.
type Executor struct {
	page    Page
	locator *Locator
	log     logger.Logger
	opts    Options
}

func New(page Page, log logger.Logger, opts Options) *Executor {
	if opts.TypeDelay < 0 {
		opts.TypeDelay = 0
	}
	return &Executor{
		page:    page,
		locator: NewLocator(log),
		log:     log,
		opts:    opts,
	}
}

// call carries the state of one action through the Executing step.
type call struct {
	action     models.Action
	element    Element
	screenshot []byte
}

type outcome struct {
	output     any
	err        error
	screenshot []byte
	resolution Resolution
}

// Execute validates, resolves and performs a, timing all three steps.
func (e *Executor) Execute(ctx context.Context, a models.Action) models.ActionResult {
	started := time.Now()
	out := e.safeRun(ctx, a)
	return finish(a, started, out)
}

func (e *Executor) safeRun(ctx context.Context, a models.Action) (out outcome) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error(ctx, "[Execute] Recovered panic in %s: %v", a.Type, r)
			out.err = models.NewError(models.KindOperationFailure, "%s panicked: %v", a.Type, r)
		}
	}()
	return e.run(ctx, a)
}

func (e *Executor) run(ctx context.Context, a models.Action) outcome {
	// Validating
	op, ok := operations[a.Type]
	if !ok {
		return outcome{err: models.NewError(models.KindInvalidInput, "unknown action type %q", a.Type)}
	}
	if err := op.validate(a); err != nil {
		return outcome{err: err}
	}

	// ResolvingSelector
	c := &call{action: a}
	var res Resolution
	if op.usesSelector(a) {
		res = e.locator.Resolve(ctx, e.page, a.Selector, a.EffectiveSelectorType(), a.TimeoutDuration())
		if !res.Found() {
			return outcome{
				resolution: res,
				err:        models.NewError(models.KindElementNotFound, "element not found: %s (tried %s)", a.Selector, attemptNames(res)),
			}
		}
		c.element = res.Element
	}

	// Executing
	opCtx := ctx
	if !op.untimed {
		var cancel context.CancelFunc
		opCtx, cancel = context.WithTimeout(ctx, a.TimeoutDuration())
		defer cancel()
	}
	e.log.Debug(ctx, "[Execute] Running %s", a.Type)
	output, err := op.run(e, opCtx, c)
	if err != nil {
		return outcome{resolution: res, err: classify(opCtx, a, err)}
	}
	return outcome{output: output, screenshot: c.screenshot, resolution: res}
}

func finish(a models.Action, started time.Time, out outcome) models.ActionResult {
	result := models.ActionResult{
		Success:         out.err == nil,
		Action:          a,
		Output:          out.output,
		ExecutionTimeMS: float64(time.Since(started)) / float64(time.Millisecond),
		Strategy:        out.resolution.Strategy,
		Attempts:        len(out.resolution.Attempts),
		Timestamp:       started,
	}
	if out.err != nil {
		result.Output = nil
		result.Error = out.err.Error()
		result.ErrorKind = models.KindOf(out.err)
		if result.ErrorKind == "" {
			result.ErrorKind = models.KindOperationFailure
		}
		if result.Error == "" {
			result.Error = string(result.ErrorKind)
		}
		return result
	}
	result.Screenshot = out.screenshot
	return result
}

// classify maps a driver error onto the timeout or failure kind.
func classify(ctx context.Context, a models.Action, err error) error {
	if models.KindOf(err) != "" {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return models.WrapError(models.KindOperationTimeout, err, "%s timed out after %dms", a.Type, a.Normalized().Timeout)
	}
	return models.WrapError(models.KindOperationFailure, err, "%s failed", a.Type)
}

func attemptNames(res Resolution) string {
	names := make([]string, 0, len(res.Attempts))
	for _, at := range res.Attempts {
		names = append(names, string(at.Strategy))
	}
	return strings.Join(names, ", ")
}

type requirement int

const (
	notUsed requirement = iota
	optional
	present  // must be given, may be empty
	nonEmpty // must be given and non-empty
)

type handler func(e *Executor, ctx context.Context, c *call) (any, error)

// operation describes one action kind: what it needs and what it does.
type operation struct {
	selector  requirement
	value     requirement
	valueHint string
	untimed   bool
	check     func(a models.Action) error
	run       handler
}

func (op operation) usesSelector(a models.Action) bool {
	switch op.selector {
	case nonEmpty, present:
		return true
	case optional:
		return a.Selector != ""
	}
	return false
}

func (op operation) validate(a models.Action) error {
	if (op.selector == nonEmpty || op.selector == present) && strings.TrimSpace(a.Selector) == "" {
		return models.NewError(models.KindInvalidInput, "%s action requires 'selector'", a.Type)
	}
	if op.usesSelector(a) && !a.EffectiveSelectorType().IsValid() {
		return models.NewError(models.KindInvalidInput, "unknown selector_type %q", a.SelectorType)
	}
	switch op.value {
	case present:
		if !a.Value.IsSet() {
			return models.NewError(models.KindInvalidInput, "%s action requires 'value'%s", a.Type, hint(op.valueHint))
		}
	case nonEmpty:
		if a.Value.IsEmpty() {
			return models.NewError(models.KindInvalidInput, "%s action requires 'value'%s", a.Type, hint(op.valueHint))
		}
	}
	if op.check != nil {
		return op.check(a)
	}
	return nil
}

func hint(h string) string {
	if h == "" {
		return ""
	}
	return fmt.Sprintf(" (%s)", h)
}
