package executor

import (
	"context"
	"time"
)

// Page is the page-scoped view of a session the executor drives. Every call
// is bounded by ctx.
type Page interface {
	// Navigate loads url and returns once the load event fired and the
	// network went idle.
	Navigate(ctx context.Context, url string) error
	URL(ctx context.Context) (string, error)
	Title(ctx context.Context) (string, error)
	HTML(ctx context.Context) (string, error)
	Screenshot(ctx context.Context, fullPage bool) ([]byte, error)
	// Eval runs a function source in the page and returns its JSON value.
	Eval(ctx context.Context, js string, args ...any) (any, error)
	GoBack(ctx context.Context) error
	GoForward(ctx context.Context) error
	Reload(ctx context.Context) error

	// Lookups retry until a candidate exists or ctx is done.
	ElementByCSS(ctx context.Context, selector string) (Element, error)
	ElementByXPath(ctx context.Context, xpath string) (Element, error)
	ElementByText(ctx context.Context, text string) (Element, error)
	ElementByRole(ctx context.Context, role, name string) (Element, error)
	ElementByLabel(ctx context.Context, label string) (Element, error)
}

// Element is a resolved node of a Page.
type Element interface {
	WaitVisible(ctx context.Context) error
	Click(ctx context.Context) error
	Hover(ctx context.Context) error
	Focus(ctx context.Context) error
	// Type appends text at the end of the field, pausing delay between runes.
	Type(ctx context.Context, text string, delay time.Duration) error
	// Fill replaces the field contents.
	Fill(ctx context.Context, text string) error
	// SelectOption picks the option matching value, then label.
	SelectOption(ctx context.Context, value string) error
	SetChecked(ctx context.Context, checked bool) error
	// Press sends a key or chord such as "Enter" or "Control+A".
	Press(ctx context.Context, key string) error
	Text(ctx context.Context) (string, error)
	InnerHTML(ctx context.Context) (string, error)
	// Attribute returns nil when the attribute is absent.
	Attribute(ctx context.Context, name string) (*string, error)
}

// Session is one live browser context bound to one page.
type Session interface {
	Page() Page
	// Close releases every acquired resource. It is safe after a partial
	// launch and a no-op once it has run.
	Close(ctx context.Context) error
}
