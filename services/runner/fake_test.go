package runner

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/browserwing/actionrunner/executor"
	"github.com/browserwing/actionrunner/models"
)

// stubPage serves a fixed set of CSS matches; any other lookup waits for ctx.
type stubPage struct {
	mu          sync.Mutex
	url         string
	navigations int
	css         map[string]*stubElement
	screenshot  []byte
}

func newStubPage() *stubPage {
	return &stubPage{
		url:        "about:blank",
		css:        map[string]*stubElement{},
		screenshot: []byte("\x89PNG\r\n\x1a\n0000"),
	}
}

func (p *stubPage) Navigations() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.navigations
}

func (p *stubPage) Navigate(_ context.Context, url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.navigations++
	p.url = url
	return nil
}

func (p *stubPage) URL(context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url, nil
}

func (p *stubPage) Title(context.Context) (string, error) { return "Example Domain", nil }
func (p *stubPage) HTML(context.Context) (string, error)  { return "<html></html>", nil }

func (p *stubPage) Screenshot(context.Context, bool) ([]byte, error) {
	return p.screenshot, nil
}

func (p *stubPage) Eval(context.Context, string, ...any) (any, error) { return nil, nil }
func (p *stubPage) GoBack(context.Context) error                      { return nil }
func (p *stubPage) GoForward(context.Context) error                   { return nil }
func (p *stubPage) Reload(context.Context) error                      { return nil }

func (p *stubPage) ElementByCSS(ctx context.Context, selector string) (executor.Element, error) {
	p.mu.Lock()
	el, ok := p.css[selector]
	p.mu.Unlock()
	if ok {
		return el, nil
	}
	<-ctx.Done()
	return nil, ctx.Err()
}

func (p *stubPage) wait(ctx context.Context) (executor.Element, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (p *stubPage) ElementByXPath(ctx context.Context, _ string) (executor.Element, error) {
	return p.wait(ctx)
}

func (p *stubPage) ElementByText(ctx context.Context, _ string) (executor.Element, error) {
	return p.wait(ctx)
}

func (p *stubPage) ElementByRole(ctx context.Context, _, _ string) (executor.Element, error) {
	return p.wait(ctx)
}

func (p *stubPage) ElementByLabel(ctx context.Context, _ string) (executor.Element, error) {
	return p.wait(ctx)
}

type stubElement struct {
	text string
}

func (e *stubElement) WaitVisible(context.Context) error                  { return nil }
func (e *stubElement) Click(context.Context) error                        { return nil }
func (e *stubElement) Hover(context.Context) error                        { return nil }
func (e *stubElement) Focus(context.Context) error                        { return nil }
func (e *stubElement) Type(context.Context, string, time.Duration) error  { return nil }
func (e *stubElement) Fill(context.Context, string) error                 { return nil }
func (e *stubElement) SelectOption(context.Context, string) error         { return nil }
func (e *stubElement) SetChecked(context.Context, bool) error             { return nil }
func (e *stubElement) Press(context.Context, string) error                { return nil }
func (e *stubElement) Text(context.Context) (string, error)               { return e.text, nil }
func (e *stubElement) InnerHTML(context.Context) (string, error)          { return e.text, nil }
func (e *stubElement) Attribute(context.Context, string) (*string, error) { return nil, nil }

type stubSession struct {
	mu     sync.Mutex
	page   executor.Page
	closes int
}

func (s *stubSession) Page() executor.Page {
	return s.page
}

func (s *stubSession) Close(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closes++
	return nil
}

func (s *stubSession) Closes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closes
}

type stubLauncher struct {
	session *stubSession
	err     error
	calls   int
	opts    models.LaunchOptions
}

func newStubLauncher(page executor.Page) *stubLauncher {
	return &stubLauncher{session: &stubSession{page: page}}
}

func (l *stubLauncher) Launch(_ context.Context, opts models.LaunchOptions) (executor.Session, error) {
	l.calls++
	l.opts = opts
	if l.err != nil {
		if l.session == nil {
			return nil, l.err
		}
		return l.session, l.err
	}
	return l.session, nil
}

var errSink = errors.New("sink is full")
