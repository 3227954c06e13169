package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/browserwing/actionrunner/executor"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/pkg/errors"
)

// Page adapts a rod page to executor.Page.
type Page struct {
	page *rod.Page
	idle time.Duration
}

func newPage(page *rod.Page, idle time.Duration) *Page {
	return &Page{page: page, idle: idle}
}

func (p *Page) Navigate(ctx context.Context, url string) error {
	pg := p.page.Context(ctx)
	wait := pg.WaitRequestIdle(p.idle, nil, nil, nil)
	if err := pg.Navigate(url); err != nil {
		return errors.Wrapf(err, "navigate to %s", url)
	}
	if err := pg.WaitLoad(); err != nil {
		return errors.Wrap(err, "wait for load")
	}
	wait()
	// wait() gives up silently once ctx is done
	return ctx.Err()
}

func (p *Page) URL(ctx context.Context) (string, error) {
	info, err := p.page.Context(ctx).Info()
	if err != nil {
		return "", err
	}
	return info.URL, nil
}

func (p *Page) Title(ctx context.Context) (string, error) {
	info, err := p.page.Context(ctx).Info()
	if err != nil {
		return "", err
	}
	return info.Title, nil
}

func (p *Page) HTML(ctx context.Context) (string, error) {
	return p.page.Context(ctx).HTML()
}

func (p *Page) Screenshot(ctx context.Context, fullPage bool) ([]byte, error) {
	return p.page.Context(ctx).Screenshot(fullPage, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
}

func (p *Page) Eval(ctx context.Context, js string, args ...any) (any, error) {
	res, err := p.page.Context(ctx).Eval(js, args...)
	if err != nil {
		return nil, err
	}
	return res.Value.Val(), nil
}

func (p *Page) GoBack(ctx context.Context) error {
	pg := p.page.Context(ctx)
	if err := pg.NavigateBack(); err != nil {
		return err
	}
	return pg.WaitLoad()
}

func (p *Page) GoForward(ctx context.Context) error {
	pg := p.page.Context(ctx)
	if err := pg.NavigateForward(); err != nil {
		return err
	}
	return pg.WaitLoad()
}

func (p *Page) Reload(ctx context.Context) error {
	pg := p.page.Context(ctx)
	if err := pg.Reload(); err != nil {
		return err
	}
	return pg.WaitLoad()
}

func (p *Page) ElementByCSS(ctx context.Context, selector string) (executor.Element, error) {
	return wrap(p.page.Context(ctx).Element(selector))
}

func (p *Page) ElementByXPath(ctx context.Context, xpath string) (executor.Element, error) {
	return wrap(p.page.Context(ctx).ElementX(xpath))
}

func (p *Page) ElementByText(ctx context.Context, text string) (executor.Element, error) {
	return wrap(p.page.Context(ctx).ElementByJS(rod.Eval(textLookupJS, text)))
}

func (p *Page) ElementByRole(ctx context.Context, role, name string) (executor.Element, error) {
	return wrap(p.page.Context(ctx).ElementByJS(rod.Eval(roleLookupJS, role, name)))
}

func (p *Page) ElementByLabel(ctx context.Context, label string) (executor.Element, error) {
	return wrap(p.page.Context(ctx).ElementByJS(rod.Eval(labelLookupJS, label)))
}

func wrap(el *rod.Element, err error) (executor.Element, error) {
	if err != nil {
		return nil, err
	}
	return &Element{el: el}, nil
}

// Element adapts a rod element to executor.Element.
type Element struct {
	el *rod.Element
}

func (e *Element) WaitVisible(ctx context.Context) error {
	return e.el.Context(ctx).WaitVisible()
}

func (e *Element) Click(ctx context.Context) error {
	return e.el.Context(ctx).Click(proto.InputMouseButtonLeft, 1)
}

func (e *Element) Hover(ctx context.Context) error {
	return e.el.Context(ctx).Hover()
}

func (e *Element) Focus(ctx context.Context) error {
	return e.el.Context(ctx).Focus()
}

func (e *Element) Type(ctx context.Context, text string, delay time.Duration) error {
	el := e.el.Context(ctx)
	if err := el.Focus(); err != nil {
		return errors.Wrap(err, "focus")
	}
	if _, err := el.Eval(caretToEndJS); err != nil {
		return errors.Wrap(err, "move caret")
	}

	page := el.Page().Context(ctx)
	first := true
	for _, r := range text {
		if !first && delay > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
		first = false
		if err := page.InsertText(string(r)); err != nil {
			return errors.Wrapf(err, "type %q", r)
		}
	}
	return nil
}

func (e *Element) Fill(ctx context.Context, text string) error {
	el := e.el.Context(ctx)
	if err := el.SelectAllText(); err != nil {
		return errors.Wrap(err, "select existing text")
	}
	return el.Input(text)
}

func (e *Element) SelectOption(ctx context.Context, value string) error {
	el := e.el.Context(ctx)
	err := el.Select([]string{fmt.Sprintf(`[value=%q]`, value)}, true, rod.SelectorTypeCSSSector)
	if err == nil {
		return nil
	}
	if err := el.Select([]string{value}, true, rod.SelectorTypeText); err != nil {
		return errors.Wrapf(err, "no option matches %q", value)
	}
	return nil
}

func (e *Element) SetChecked(ctx context.Context, checked bool) error {
	el := e.el.Context(ctx)
	prop, err := el.Property("checked")
	if err != nil {
		return errors.Wrap(err, "read checked state")
	}
	if prop.Bool() == checked {
		return nil
	}
	return el.Click(proto.InputMouseButtonLeft, 1)
}

func (e *Element) Press(ctx context.Context, key string) error {
	c, err := parseChord(key)
	if err != nil {
		return err
	}
	el := e.el.Context(ctx)
	if err := el.Focus(); err != nil {
		return errors.Wrap(err, "focus")
	}

	keyboard := el.Page().Context(ctx).Keyboard
	for i, mod := range c.modifiers {
		if err := keyboard.Press(mod); err != nil {
			for j := i - 1; j >= 0; j-- {
				_ = keyboard.Release(c.modifiers[j])
			}
			return errors.Wrap(err, "press modifier")
		}
	}
	typeErr := keyboard.Type(c.key)
	for i := len(c.modifiers) - 1; i >= 0; i-- {
		_ = keyboard.Release(c.modifiers[i])
	}
	if typeErr != nil {
		return errors.Wrapf(typeErr, "press %s", key)
	}
	return nil
}

func (e *Element) Text(ctx context.Context) (string, error) {
	res, err := e.el.Context(ctx).Eval(textContentJS)
	if err != nil {
		return "", err
	}
	return res.Value.Str(), nil
}

func (e *Element) InnerHTML(ctx context.Context) (string, error) {
	res, err := e.el.Context(ctx).Eval(innerHTMLJS)
	if err != nil {
		return "", err
	}
	return res.Value.Str(), nil
}

func (e *Element) Attribute(ctx context.Context, name string) (*string, error) {
	return e.el.Context(ctx).Attribute(name)
}
