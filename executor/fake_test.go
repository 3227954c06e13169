package executor

import (
	"context"
	"sync"
	"time"
)

// fakePage resolves lookups from fixed tables. A missing entry blocks until
// ctx is done, like a driver that keeps retrying.
type fakePage struct {
	mu      sync.Mutex
	url     string
	title   string
	html    string
	shot    []byte
	css     map[string]*fakeElement
	xpath   map[string]*fakeElement
	text    map[string]*fakeElement
	role    map[string]*fakeElement // "role|name"
	label   map[string]*fakeElement
	lookups []string
	evals   []string
	evalOut any
	err     error // returned by page-level operations
	panic   bool
	calls   []string
}

func newFakePage() *fakePage {
	return &fakePage{
		url:   "about:blank",
		css:   map[string]*fakeElement{},
		xpath: map[string]*fakeElement{},
		text:  map[string]*fakeElement{},
		role:  map[string]*fakeElement{},
		label: map[string]*fakeElement{},
	}
}

func (p *fakePage) record(call string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, call)
}

func (p *fakePage) Navigate(ctx context.Context, url string) error {
	p.record("navigate")
	if p.panic {
		panic("driver exploded")
	}
	if p.err != nil {
		return p.err
	}
	p.url = url
	return nil
}

func (p *fakePage) URL(ctx context.Context) (string, error) {
	p.record("url")
	return p.url, p.err
}

func (p *fakePage) Title(ctx context.Context) (string, error) {
	p.record("title")
	return p.title, p.err
}

func (p *fakePage) HTML(ctx context.Context) (string, error) {
	p.record("html")
	return p.html, p.err
}

func (p *fakePage) Screenshot(ctx context.Context, fullPage bool) ([]byte, error) {
	p.record("screenshot")
	if p.err != nil {
		return nil, p.err
	}
	return p.shot, nil
}

func (p *fakePage) Eval(ctx context.Context, js string, args ...any) (any, error) {
	p.mu.Lock()
	p.evals = append(p.evals, js)
	p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	return p.evalOut, nil
}

func (p *fakePage) GoBack(ctx context.Context) error {
	p.record("back")
	return p.err
}

func (p *fakePage) GoForward(ctx context.Context) error {
	p.record("forward")
	return p.err
}

func (p *fakePage) Reload(ctx context.Context) error {
	p.record("reload")
	return p.err
}

func (p *fakePage) lookup(ctx context.Context, strategy string, table map[string]*fakeElement, key string) (Element, error) {
	p.mu.Lock()
	p.lookups = append(p.lookups, strategy)
	el, ok := table[key]
	p.mu.Unlock()
	if ok {
		return el, nil
	}
	<-ctx.Done()
	return nil, ctx.Err()
}

func (p *fakePage) ElementByCSS(ctx context.Context, selector string) (Element, error) {
	return p.lookup(ctx, "css", p.css, selector)
}

func (p *fakePage) ElementByXPath(ctx context.Context, xpath string) (Element, error) {
	return p.lookup(ctx, "xpath", p.xpath, xpath)
}

func (p *fakePage) ElementByText(ctx context.Context, text string) (Element, error) {
	return p.lookup(ctx, "text", p.text, text)
}

func (p *fakePage) ElementByRole(ctx context.Context, role, name string) (Element, error) {
	return p.lookup(ctx, "role", p.role, role+"|"+name)
}

func (p *fakePage) ElementByLabel(ctx context.Context, label string) (Element, error) {
	return p.lookup(ctx, "label", p.label, label)
}

func (p *fakePage) lookupCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.lookups)
}

type fakeElement struct {
	mu        sync.Mutex
	hidden    bool
	text      string
	inner     string
	attrs     map[string]string
	checked   bool
	err       error
	typed     string
	typeDelay time.Duration
	filled    string
	selected  string
	pressed   string
	calls     []string
}

func visibleElement() *fakeElement {
	return &fakeElement{attrs: map[string]string{}}
}

func (el *fakeElement) record(call string) {
	el.mu.Lock()
	defer el.mu.Unlock()
	el.calls = append(el.calls, call)
}

func (el *fakeElement) WaitVisible(ctx context.Context) error {
	if el.hidden {
		<-ctx.Done()
		return ctx.Err()
	}
	return nil
}

func (el *fakeElement) Click(ctx context.Context) error {
	el.record("click")
	return el.err
}

func (el *fakeElement) Hover(ctx context.Context) error {
	el.record("hover")
	return el.err
}

func (el *fakeElement) Focus(ctx context.Context) error {
	el.record("focus")
	return el.err
}

func (el *fakeElement) Type(ctx context.Context, text string, delay time.Duration) error {
	el.record("type")
	el.typed += text
	el.typeDelay = delay
	return el.err
}

func (el *fakeElement) Fill(ctx context.Context, text string) error {
	el.record("fill")
	el.filled = text
	return el.err
}

func (el *fakeElement) SelectOption(ctx context.Context, value string) error {
	el.record("select")
	el.selected = value
	return el.err
}

func (el *fakeElement) SetChecked(ctx context.Context, checked bool) error {
	el.record("set_checked")
	if el.err != nil {
		return el.err
	}
	el.checked = checked
	return nil
}

func (el *fakeElement) Press(ctx context.Context, key string) error {
	el.record("press")
	el.pressed = key
	return el.err
}

func (el *fakeElement) Text(ctx context.Context) (string, error) {
	return el.text, el.err
}

func (el *fakeElement) InnerHTML(ctx context.Context) (string, error) {
	return el.inner, el.err
}

func (el *fakeElement) Attribute(ctx context.Context, name string) (*string, error) {
	if el.err != nil {
		return nil, el.err
	}
	v, ok := el.attrs[name]
	if !ok {
		return nil, nil
	}
	return &v, nil
}
