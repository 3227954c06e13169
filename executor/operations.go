package executor

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/browserwing/actionrunner/models"
)

var operations = map[models.ActionType]operation{
	models.ActionNavigate:          {value: nonEmpty, valueHint: "URL", run: (*Executor).navigate},
	models.ActionClick:             {selector: nonEmpty, run: (*Executor).click},
	models.ActionTypeText:          {selector: nonEmpty, value: present, valueHint: "text to type", run: (*Executor).typeText},
	models.ActionFill:              {selector: nonEmpty, value: present, run: (*Executor).fill},
	models.ActionSelect:            {selector: nonEmpty, value: present, valueHint: "option value", run: (*Executor).selectOption},
	models.ActionCheck:             {selector: nonEmpty, run: (*Executor).check},
	models.ActionUncheck:           {selector: nonEmpty, run: (*Executor).uncheck},
	models.ActionScreenshot:        {run: (*Executor).screenshot},
	models.ActionExtractText:       {selector: optional, run: (*Executor).extractText},
	models.ActionExtractAttributes: {selector: nonEmpty, run: (*Executor).extractAttributes},
	models.ActionWait:              {value: present, valueHint: "milliseconds", untimed: true, check: checkWait, run: (*Executor).wait},
	models.ActionScroll:            {value: optional, check: checkScroll, run: (*Executor).scroll},
	models.ActionHover:             {selector: nonEmpty, run: (*Executor).hover},
	models.ActionFocus:             {selector: nonEmpty, run: (*Executor).focus},
	models.ActionPressKey:          {selector: nonEmpty, value: nonEmpty, valueHint: "key name", run: (*Executor).pressKey},
	models.ActionGetHTML:           {selector: optional, run: (*Executor).getHTML},
	models.ActionEvaluate:          {value: nonEmpty, valueHint: "JavaScript code", run: (*Executor).evaluate},
	models.ActionWaitForElement:    {selector: nonEmpty, run: (*Executor).waitForElement},
	models.ActionGetTitle:          {run: (*Executor).getTitle},
	models.ActionGetURL:            {run: (*Executor).getURL},
	models.ActionGoBack:            {run: (*Executor).goBack},
	models.ActionGoForward:         {run: (*Executor).goForward},
	models.ActionReload:            {run: (*Executor).reload},
}

// extractedAttributes is the fixed attribute set of extract_attributes.
var extractedAttributes = []string{"class", "id", "href", "src", "value", "placeholder"}

// maxWaitMS keeps time.Duration(ms)*time.Millisecond from overflowing.
const maxWaitMS int64 = math.MaxInt64 / int64(time.Millisecond)

func checkWait(a models.Action) error {
	ms, err := a.Value.Int()
	if err != nil {
		return models.WrapError(models.KindInvalidInput, err, "wait action requires 'value' in milliseconds")
	}
	if ms < 0 {
		return models.NewError(models.KindInvalidInput, "wait duration must not be negative, got %d", ms)
	}
	if int64(ms) > maxWaitMS {
		return models.NewError(models.KindInvalidInput, "wait duration must not exceed %d ms, got %d", maxWaitMS, ms)
	}
	return nil
}

func checkScroll(a models.Action) error {
	if a.Value.IsEmpty() {
		return nil
	}
	if _, err := a.Value.Int(); err != nil {
		return models.WrapError(models.KindInvalidInput, err, "scroll 'value' must be a pixel offset")
	}
	return nil
}

func (e *Executor) navigate(ctx context.Context, c *call) (any, error) {
	url := strings.TrimSpace(c.action.Value.String())
	e.log.Info(ctx, "[Navigate] Navigating to %s", url)
	if err := e.page.Navigate(ctx, url); err != nil {
		return nil, err
	}
	return e.page.URL(ctx)
}

func (e *Executor) click(ctx context.Context, c *call) (any, error) {
	return nil, c.element.Click(ctx)
}

func (e *Executor) typeText(ctx context.Context, c *call) (any, error) {
	return nil, c.element.Type(ctx, c.action.Value.String(), e.opts.TypeDelay)
}

func (e *Executor) fill(ctx context.Context, c *call) (any, error) {
	return nil, c.element.Fill(ctx, c.action.Value.String())
}

func (e *Executor) selectOption(ctx context.Context, c *call) (any, error) {
	return nil, c.element.SelectOption(ctx, c.action.Value.String())
}

func (e *Executor) check(ctx context.Context, c *call) (any, error) {
	return nil, c.element.SetChecked(ctx, true)
}

func (e *Executor) uncheck(ctx context.Context, c *call) (any, error) {
	return nil, c.element.SetChecked(ctx, false)
}

func (e *Executor) hover(ctx context.Context, c *call) (any, error) {
	return nil, c.element.Hover(ctx)
}

func (e *Executor) focus(ctx context.Context, c *call) (any, error) {
	return nil, c.element.Focus(ctx)
}

func (e *Executor) pressKey(ctx context.Context, c *call) (any, error) {
	return nil, c.element.Press(ctx, c.action.Value.String())
}

func (e *Executor) screenshot(ctx context.Context, c *call) (any, error) {
	data, err := e.page.Screenshot(ctx, true)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("screenshot returned no data")
	}
	e.log.Info(ctx, "[Screenshot] Captured %d bytes", len(data))
	c.screenshot = data
	return len(data), nil
}

func (e *Executor) extractText(ctx context.Context, c *call) (any, error) {
	if c.element == nil {
		html, err := e.page.HTML(ctx)
		if err != nil {
			return nil, err
		}
		return formatMarkup(c.action, html)
	}
	return c.element.Text(ctx)
}

func (e *Executor) getHTML(ctx context.Context, c *call) (any, error) {
	var html string
	var err error
	if c.element == nil {
		html, err = e.page.HTML(ctx)
	} else {
		html, err = c.element.InnerHTML(ctx)
	}
	if err != nil {
		return nil, err
	}
	return formatMarkup(c.action, html)
}

func (e *Executor) extractAttributes(ctx context.Context, c *call) (any, error) {
	text, err := c.element.Text(ctx)
	if err != nil {
		return nil, err
	}
	out := map[string]any{"text": text}
	for _, name := range extractedAttributes {
		v, err := c.element.Attribute(ctx, name)
		if err != nil {
			return nil, err
		}
		if v == nil {
			out[name] = nil
		} else {
			out[name] = *v
		}
	}
	return out, nil
}

func (e *Executor) evaluate(ctx context.Context, c *call) (any, error) {
	return e.page.Eval(ctx, wrapScriptIfNeeded(c.action.Value.String()))
}

// wait sleeps for the requested duration; it is not bound by the action
// timeout.
func (e *Executor) wait(ctx context.Context, c *call) (any, error) {
	ms, _ := c.action.Value.Int()
	timer := time.NewTimer(time.Duration(ms) * time.Millisecond)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
	return nil, nil
}

func (e *Executor) scroll(ctx context.Context, c *call) (any, error) {
	if c.action.Value.IsEmpty() {
		_, err := e.page.Eval(ctx, `() => window.scrollTo(0, document.body.scrollHeight)`)
		return nil, err
	}
	pixels, _ := c.action.Value.Int()
	_, err := e.page.Eval(ctx, `(y) => window.scrollBy(0, y)`, pixels)
	return nil, err
}

func (e *Executor) waitForElement(ctx context.Context, c *call) (any, error) {
	return nil, nil
}

func (e *Executor) getTitle(ctx context.Context, c *call) (any, error) {
	return e.page.Title(ctx)
}

func (e *Executor) getURL(ctx context.Context, c *call) (any, error) {
	return e.page.URL(ctx)
}

func (e *Executor) goBack(ctx context.Context, c *call) (any, error) {
	return nil, e.page.GoBack(ctx)
}

func (e *Executor) goForward(ctx context.Context, c *call) (any, error) {
	return nil, e.page.GoForward(ctx)
}

func (e *Executor) reload(ctx context.Context, c *call) (any, error) {
	return nil, e.page.Reload(ctx)
}

// formatMarkup converts markup to Markdown when metadata.format asks for it.
func formatMarkup(a models.Action, html string) (any, error) {
	if !strings.EqualFold(a.MetadataString("format"), "markdown") {
		return html, nil
	}
	converter := md.NewConverter("", true, nil)
	out, err := converter.ConvertString(html)
	if err != nil {
		return nil, fmt.Errorf("markdown conversion failed: %w", err)
	}
	return out, nil
}

var functionSourceRe = regexp.MustCompile(`^(async\s+)?(function\b|\([^)]*\)\s*=>|[A-Za-z_$][\w$]*\s*=>)`)

// wrapScriptIfNeeded turns page scripts into a function source. Function
// sources pass through, bare expressions keep their value, statement lists
// become a function body.
func wrapScriptIfNeeded(script string) string {
	script = strings.TrimSpace(script)
	if functionSourceRe.MatchString(script) {
		return script
	}
	body := strings.TrimSpace(strings.TrimSuffix(script, ";"))
	if strings.Contains(body, "return ") || strings.Contains(body, ";") {
		return fmt.Sprintf("() => {\n%s\n}", script)
	}
	return fmt.Sprintf("() => (\n%s\n)", body)
}
