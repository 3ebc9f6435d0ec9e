package interact

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/proto"

	"github.com/hazyhaar/pagelens/internal/browser"
	"github.com/hazyhaar/pagelens/internal/resolve"
)

// Executor binds a session and a resolver and runs one action at a
// time. It inherits the session's single-flight contract: callers must
// not run two actions concurrently.
type Executor struct {
	session  *browser.Session
	resolver *resolve.Resolver
	log      *slog.Logger

	// actionTimeout bounds click/type/select/hover/getValue/
	// getAttribute element lookups. waitTimeout is the distinct
	// default for waitFor. settleTimeout bounds the post-click
	// best-effort settle.
	actionTimeout time.Duration
	waitTimeout   time.Duration
	settleTimeout time.Duration
}

// Option customises an Executor.
type Option func(*Executor)

// WithActionTimeout overrides the shared per-action timeout.
func WithActionTimeout(d time.Duration) Option {
	return func(e *Executor) { e.actionTimeout = d }
}

// WithWaitTimeout overrides the waitFor default timeout.
func WithWaitTimeout(d time.Duration) Option {
	return func(e *Executor) { e.waitTimeout = d }
}

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(e *Executor) { e.log = log }
}

// New creates an Executor over an established session.
func New(sess *browser.Session, res *resolve.Resolver, opts ...Option) *Executor {
	e := &Executor{
		session:       sess,
		resolver:      res,
		actionTimeout: 3 * time.Second,
		waitTimeout:   5 * time.Second,
		settleTimeout: 1500 * time.Millisecond,
	}
	for _, o := range opts {
		o(e)
	}
	if e.log == nil {
		e.log = slog.Default()
	}
	return e
}

// prepare acquires a ready page, navigating when url differs from the
// session's tracked URL.
func (e *Executor) prepare(ctx context.Context, url string, kind Kind, start time.Time) (*rod.Page, *Result) {
	page, err := e.session.EnsurePage(ctx, url)
	if err != nil {
		return nil, failure(kind, "", fmt.Sprintf("could not prepare page: %v", err), start)
	}
	return page, nil
}

// find resolves the target and locates the element within timeout.
// Rod's Element returns the first match when a query is ambiguous;
// that first-match behaviour is this executor's documented contract.
func (e *Executor) find(page *rod.Page, q resolve.Query, timeout time.Duration) (*rod.Element, error) {
	p := page.Timeout(timeout)
	if q.Text != "" {
		return p.ElementR(q.CSS, "/"+regexp.QuoteMeta(q.Text)+"/i")
	}
	return p.Element(q.CSS)
}

func notFound(kind Kind, target string, q resolve.Query, err error, start time.Time) *Result {
	return failure(kind, q.String(),
		fmt.Sprintf("could not find %q (resolved to %s): %v", target, q, err), start)
}

// Click resolves, clicks, then waits briefly and best-effort for the
// page to settle (navigation or DOM mutation after the click).
func (e *Executor) Click(ctx context.Context, url, target string) *Result {
	start := time.Now()
	page, fail := e.prepare(ctx, url, KindClick, start)
	if fail != nil {
		return fail
	}
	q := e.resolver.Resolve(target, e.session.LastSnapshot())

	el, err := e.find(page, q, e.actionTimeout)
	if err != nil {
		return notFound(KindClick, target, q, err, start)
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return failure(KindClick, q.String(), fmt.Sprintf("click on %q failed: %v", target, err), start)
	}

	e.attempt("post-click settle", func() error {
		return page.Timeout(e.settleTimeout).WaitDOMStable(300*time.Millisecond, 0)
	})

	return success(KindClick, q.String(), fmt.Sprintf("clicked %q", target), start)
}

// Type resolves and clear-and-fills the element with text.
func (e *Executor) Type(ctx context.Context, url, target, text string) *Result {
	start := time.Now()
	page, fail := e.prepare(ctx, url, KindType, start)
	if fail != nil {
		return fail
	}
	q := e.resolver.Resolve(target, e.session.LastSnapshot())

	el, err := e.find(page, q, e.actionTimeout)
	if err != nil {
		return notFound(KindType, target, q, err, start)
	}
	if err := await(func() error {
		if err := el.SelectAllText(); err != nil {
			return err
		}
		return el.Input(text)
	}); err != nil {
		return failure(KindType, q.String(), fmt.Sprintf("typing into %q failed: %v", target, err), start)
	}
	return success(KindType, q.String(), fmt.Sprintf("typed %q into %q", text, target), start)
}

// Select resolves and chooses the option with the given underlying
// value (not its displayed label). A value no option carries is a
// failure from the element itself, not from resolution.
func (e *Executor) Select(ctx context.Context, url, target, value string) *Result {
	start := time.Now()
	page, fail := e.prepare(ctx, url, KindSelect, start)
	if fail != nil {
		return fail
	}
	q := e.resolver.Resolve(target, e.session.LastSnapshot())

	el, err := e.find(page, q, e.actionTimeout)
	if err != nil {
		return notFound(KindSelect, target, q, err, start)
	}
	sel := fmt.Sprintf("[value=%q]", value)
	if err := el.Timeout(e.actionTimeout).Select([]string{sel}, true, rod.SelectorTypeCSSSector); err != nil {
		return failure(KindSelect, q.String(),
			fmt.Sprintf("selecting value %q in %q failed: %v", value, target, err), start)
	}
	e.attempt("post-select settle", func() error {
		return page.Timeout(e.settleTimeout).WaitDOMStable(300*time.Millisecond, 0)
	})
	return success(KindSelect, q.String(), fmt.Sprintf("selected %q in %q", value, target), start)
}

// Hover resolves and moves the pointer over the element.
func (e *Executor) Hover(ctx context.Context, url, target string) *Result {
	start := time.Now()
	page, fail := e.prepare(ctx, url, KindHover, start)
	if fail != nil {
		return fail
	}
	q := e.resolver.Resolve(target, e.session.LastSnapshot())

	el, err := e.find(page, q, e.actionTimeout)
	if err != nil {
		return notFound(KindHover, target, q, err, start)
	}
	if err := el.Hover(); err != nil {
		return failure(KindHover, q.String(), fmt.Sprintf("hover over %q failed: %v", target, err), start)
	}
	return success(KindHover, q.String(), fmt.Sprintf("hovering over %q", target), start)
}

// Press sends a key to the page-level keyboard focus. No resolution.
func (e *Executor) Press(ctx context.Context, url, key string) *Result {
	start := time.Now()
	page, fail := e.prepare(ctx, url, KindPress, start)
	if fail != nil {
		return fail
	}
	k, ok := lookupKey(key)
	if !ok {
		return failure(KindPress, "", fmt.Sprintf("unknown key %q", key), start)
	}
	if err := page.Keyboard.Press(k); err != nil {
		return failure(KindPress, "", fmt.Sprintf("pressing %q failed: %v", key, err), start)
	}
	return success(KindPress, "", fmt.Sprintf("pressed %q", key), start)
}

// Scroll moves the viewport. up/down nudge one page via key
// simulation; top/bottom jump to the extremes by direct scroll
// assignment. It reports success unless the page itself faults.
func (e *Executor) Scroll(ctx context.Context, url, direction string) *Result {
	start := time.Now()
	page, fail := e.prepare(ctx, url, KindScroll, start)
	if fail != nil {
		return fail
	}

	var err error
	switch direction {
	case "down":
		err = page.Keyboard.Press(input.PageDown)
	case "up":
		err = page.Keyboard.Press(input.PageUp)
	case "top":
		_, err = page.Eval(`() => window.scrollTo(0, 0)`)
	case "bottom":
		_, err = page.Eval(`() => window.scrollTo(0, document.documentElement.scrollHeight)`)
	default:
		return failure(KindScroll, "", fmt.Sprintf("unknown scroll direction %q (use up, down, top, bottom)", direction), start)
	}
	if err != nil {
		return failure(KindScroll, "", fmt.Sprintf("scroll %s failed: %v", direction, err), start)
	}
	return success(KindScroll, "", "scrolled "+direction, start)
}

// WaitFor resolves and polls for appearance up to timeout; zero means
// the waitFor default, which is distinct from the shared action timeout.
func (e *Executor) WaitFor(ctx context.Context, url, target string, timeout time.Duration) *Result {
	start := time.Now()
	page, fail := e.prepare(ctx, url, KindWaitFor, start)
	if fail != nil {
		return fail
	}
	if timeout <= 0 {
		timeout = e.waitTimeout
	}
	q := e.resolver.Resolve(target, e.session.LastSnapshot())

	if _, err := e.find(page, q, timeout); err != nil {
		return failure(KindWaitFor, q.String(),
			fmt.Sprintf("%q (resolved to %s) did not appear within %s", target, q, timeout), start)
	}
	return success(KindWaitFor, q.String(), fmt.Sprintf("%q appeared", target), start)
}

// GetValue resolves and reads the element's form-control value,
// falling back to its text content. Both paths fill Result.Value.
func (e *Executor) GetValue(ctx context.Context, url, target string) *Result {
	start := time.Now()
	page, fail := e.prepare(ctx, url, KindGetValue, start)
	if fail != nil {
		return fail
	}
	q := e.resolver.Resolve(target, e.session.LastSnapshot())

	el, err := e.find(page, q, e.actionTimeout)
	if err != nil {
		return notFound(KindGetValue, target, q, err, start)
	}

	var value string
	prop, perr := el.Property("value")
	if perr == nil && !prop.Nil() {
		value = prop.Str()
	} else {
		text, terr := el.Text()
		if terr != nil {
			return failure(KindGetValue, q.String(),
				fmt.Sprintf("reading value of %q failed: %v", target, terr), start)
		}
		value = text
	}

	res := success(KindGetValue, q.String(), fmt.Sprintf("value of %q", target), start)
	res.Value = strPtr(value)
	return res
}

// IsVisible resolves and checks visibility; the enabled state is
// checked only for visible elements. A lookup timeout means "not
// visible", never an error.
func (e *Executor) IsVisible(ctx context.Context, url, target string) *Result {
	start := time.Now()
	page, fail := e.prepare(ctx, url, KindIsVisible, start)
	if fail != nil {
		return fail
	}
	q := e.resolver.Resolve(target, e.session.LastSnapshot())

	el, err := e.find(page, q, e.actionTimeout)
	if err != nil {
		res := success(KindIsVisible, q.String(), fmt.Sprintf("%q is not visible", target), start)
		res.Visible = boolPtr(false)
		return res
	}

	visible, err := el.Visible()
	if err != nil {
		visible = false
	}
	res := success(KindIsVisible, q.String(), "", start)
	res.Visible = boolPtr(visible)
	if !visible {
		res.Message = fmt.Sprintf("%q is not visible", target)
		return res
	}

	enabled := true
	if ev, err := el.Eval(`() => !this.disabled`); err == nil {
		enabled = ev.Value.Bool()
	}
	res.Enabled = boolPtr(enabled)
	if enabled {
		res.Message = fmt.Sprintf("%q is visible and enabled", target)
	} else {
		res.Message = fmt.Sprintf("%q is visible but disabled", target)
	}
	return res
}

// GetAttribute resolves and reads a named attribute. An absent
// attribute is a successful "no such attribute" outcome.
func (e *Executor) GetAttribute(ctx context.Context, url, target, attr string) *Result {
	start := time.Now()
	page, fail := e.prepare(ctx, url, KindGetAttribute, start)
	if fail != nil {
		return fail
	}
	q := e.resolver.Resolve(target, e.session.LastSnapshot())

	el, err := e.find(page, q, e.actionTimeout)
	if err != nil {
		return notFound(KindGetAttribute, target, q, err, start)
	}

	v, err := el.Attribute(attr)
	if err != nil {
		return failure(KindGetAttribute, q.String(),
			fmt.Sprintf("reading attribute %q of %q failed: %v", attr, target, err), start)
	}
	if v == nil {
		return success(KindGetAttribute, q.String(),
			fmt.Sprintf("%q has no attribute %q", target, attr), start)
	}
	res := success(KindGetAttribute, q.String(), fmt.Sprintf("attribute %q of %q", attr, target), start)
	res.Value = v
	return res
}

// Screenshot captures the viewport to path. Fast mode is selected by
// the caller after checking the session's capability flag; an
// unsupported fast request degrades to the standard path.
func (e *Executor) Screenshot(ctx context.Context, url, path string, fast bool) *Result {
	start := time.Now()
	if _, fail := e.prepare(ctx, url, KindScreenshot, start); fail != nil {
		return fail
	}
	if fast && !e.session.Capabilities().FastScreenshot {
		e.log.Debug("interact: fast screenshot unavailable, using standard path")
		fast = false
	}
	if err := e.session.Screenshot(ctx, path, fast); err != nil {
		return failure(KindScreenshot, "", fmt.Sprintf("screenshot failed: %v", err), start)
	}
	mode := "standard"
	if fast {
		mode = "fast"
	}
	res := success(KindScreenshot, "", fmt.Sprintf("saved screenshot to %s (%s)", path, mode), start)
	res.Value = strPtr(path)
	return res
}
