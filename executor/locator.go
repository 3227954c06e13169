package executor

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/browserwing/actionrunner/models"
	"github.com/browserwing/actionrunner/pkg/logger"
)

// autoOrder is the priority order of the auto selector type. The first
// strategy yielding a visible element wins.
var autoOrder = []models.SelectorType{
	models.SelectorCSS,
	models.SelectorXPath,
	models.SelectorText,
	models.SelectorRole,
}

type resolver func(ctx context.Context, page Page, selector string) (Element, error)

var resolvers = map[models.SelectorType]resolver{
	models.SelectorCSS: func(ctx context.Context, page Page, selector string) (Element, error) {
		return page.ElementByCSS(ctx, selector)
	},
	models.SelectorXPath: func(ctx context.Context, page Page, selector string) (Element, error) {
		return page.ElementByXPath(ctx, selector)
	},
	models.SelectorText: func(ctx context.Context, page Page, selector string) (Element, error) {
		return page.ElementByText(ctx, selector)
	},
	models.SelectorRole: func(ctx context.Context, page Page, selector string) (Element, error) {
		role, name, err := ParseRoleSelector(selector)
		if err != nil {
			return nil, err
		}
		return page.ElementByRole(ctx, role, name)
	},
	models.SelectorLabel: func(ctx context.Context, page Page, selector string) (Element, error) {
		return page.ElementByLabel(ctx, selector)
	},
}

// Attempt is one strategy tried while resolving a selector.
type Attempt struct {
	Strategy models.SelectorType
	Err      error
	Elapsed  time.Duration
}

// Resolution is the outcome of Locator.Resolve. Element is nil when no
// strategy produced a visible element.
type Resolution struct {
	Element  Element
	Strategy models.SelectorType
	Attempts []Attempt
}

func (r Resolution) Found() bool { return r.Element != nil }

// Locator turns a selector string into a visible element.
type Locator struct {
	log logger.Logger
}

func NewLocator(log logger.Logger) *Locator {
	return &Locator{log: log}
}

// Strategies returns the strategies tried for selectorType, in order.
func Strategies(selectorType models.SelectorType) []models.SelectorType {
	if selectorType == models.SelectorAuto || selectorType == "" {
		return autoOrder
	}
	return []models.SelectorType{selectorType}
}

// Resolve tries each strategy with its own timeout and stops at the first
// visible match. Not finding anything is a normal outcome, not an error.
func (l *Locator) Resolve(ctx context.Context, page Page, selector string, selectorType models.SelectorType, timeout time.Duration) Resolution {
	var res Resolution
	for _, strategy := range Strategies(selectorType) {
		started := time.Now()
		el, err := l.attempt(ctx, page, strategy, selector, timeout)
		res.Attempts = append(res.Attempts, Attempt{Strategy: strategy, Err: err, Elapsed: time.Since(started)})
		if err == nil {
			l.log.Debug(ctx, "[Locator] Found %q using %s", selector, strategy)
			res.Element = el
			res.Strategy = strategy
			return res
		}
		l.log.Debug(ctx, "[Locator] %s strategy failed for %q: %v", strategy, selector, err)
	}
	return res
}

func (l *Locator) attempt(ctx context.Context, page Page, strategy models.SelectorType, selector string, timeout time.Duration) (el Element, err error) {
	defer func() {
		if r := recover(); r != nil {
			el, err = nil, fmt.Errorf("panic during %s lookup: %v", strategy, r)
		}
	}()

	find, ok := resolvers[strategy]
	if !ok {
		return nil, fmt.Errorf("unknown selector type %q", strategy)
	}

	actx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	el, err = find(actx, page, selector)
	if err != nil {
		return nil, err
	}
	if el == nil {
		return nil, fmt.Errorf("no %s match", strategy)
	}
	if err := el.WaitVisible(actx); err != nil {
		return nil, err
	}
	return el, nil
}

var roleSelectorRe = regexp.MustCompile(`^\s*([A-Za-z][\w-]*)\s*(?:\[\s*name\s*=\s*(?:"([^"]*)"|'([^']*)'|([^\]\s]*))\s*[is]?\s*\])?\s*$`)

// ParseRoleSelector splits `button[name="Submit"]` into role and name. The
// name is optional.
func ParseRoleSelector(selector string) (role, name string, err error) {
	m := roleSelectorRe.FindStringSubmatch(selector)
	if m == nil {
		return "", "", fmt.Errorf("invalid role selector %q", selector)
	}
	role = strings.ToLower(m[1])
	for _, candidate := range m[2:] {
		if candidate != "" {
			name = candidate
			break
		}
	}
	return role, name, nil
}
