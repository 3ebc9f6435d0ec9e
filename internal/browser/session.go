// Package browser owns the Chrome browser/context/page triple for the
// process: connect-to-existing versus launch-new, navigation policy,
// load-time resource blocking, screenshots, and teardown.
//
// A Session is a single-flight handle: callers must not issue two
// operations against it concurrently. Reads of an already-stable page
// (the analysis producers) are safe to run in parallel.
package browser

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/hazyhaar/pagelens/internal/snapshot"
)

// Config configures session establishment.
type Config struct {
	// PreferAttach probes DebugPorts for an already-running,
	// debugging-enabled Chrome before launching a new one.
	PreferAttach bool `json:"prefer_attach" yaml:"prefer_attach"`

	// DebugPorts is the ordered list of CDP ports to probe.
	DebugPorts []int `json:"debug_ports" yaml:"debug_ports"`

	// Headful launches a visible browser for diagnostics. SlowMotion
	// inserts a delay between actions so a human observer can follow.
	Headful    bool          `json:"headful" yaml:"headful"`
	SlowMotion time.Duration `json:"slow_motion" yaml:"slow_motion"`

	// NavTimeout bounds primary page loads. IdleTimeout bounds the
	// opportunistic post-load network-idle wait, which never fails.
	NavTimeout  time.Duration `json:"nav_timeout" yaml:"nav_timeout"`
	IdleTimeout time.Duration `json:"idle_timeout" yaml:"idle_timeout"`

	// BlockedHosts extends the built-in analytics blocklist.
	BlockedHosts []string `json:"blocked_hosts" yaml:"blocked_hosts"`

	Logger *slog.Logger `json:"-" yaml:"-"`
}

func (c *Config) defaults() {
	if len(c.DebugPorts) == 0 {
		c.DebugPorts = []int{9222, 9223}
	}
	if c.NavTimeout <= 0 {
		c.NavTimeout = 15 * time.Second
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = 3 * time.Second
	}
	if c.Headful && c.SlowMotion <= 0 {
		c.SlowMotion = 500 * time.Millisecond
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Capabilities reports what the established session supports. Callers
// select strategies (e.g. the fast screenshot path) by checking these
// flags rather than poking at session internals.
type Capabilities struct {
	// FastScreenshot is true only for locally launched sessions. The
	// low-level capture path is unsafe against user-owned browsers.
	FastScreenshot bool
	// Remote is true when attached to a browser this process does not own.
	Remote bool
}

// Session is the exclusive handle on one browser, one context, one page.
// At most one live page per session.
type Session struct {
	cfg    Config
	log    *slog.Logger
	cancel context.CancelFunc

	browser *rod.Browser
	lnch    *launcher.Launcher
	page    *rod.Page
	router  *rod.HijackRouter

	url    string
	remote bool
	snap   *snapshot.Snapshot
}

// Open establishes a session: attach to a reachable debug-enabled
// Chrome when configured and possible, otherwise launch a local
// headless instance. desiredURL guides remote page selection and may be
// empty. Falling back from attach to launch is silent, by contract.
func Open(ctx context.Context, cfg Config, desiredURL string) (*Session, error) {
	cfg.defaults()

	// The CDP link must outlive any single request context.
	linkCtx, cancel := context.WithCancel(context.Background())

	s := &Session{cfg: cfg, log: cfg.Logger, cancel: cancel}

	if cfg.PreferAttach {
		if err := s.attach(ctx, linkCtx, desiredURL); err == nil {
			return s, nil
		} else {
			s.log.Debug("browser: no debug instance reachable, launching", "error", err)
		}
	}

	if err := s.launch(ctx, linkCtx, desiredURL); err != nil {
		cancel()
		return nil, err
	}
	return s, nil
}

// attach probes the configured debug ports in order and adopts a page
// from the first reachable instance. Each candidate connects on its own
// cancelable context so a rejected candidate's CDP link is dropped
// immediately; the user-owned browser itself is never closed.
func (s *Session) attach(ctx context.Context, linkCtx context.Context, desiredURL string) error {
	var lastErr error
	for _, port := range s.cfg.DebugPorts {
		wsURL, err := launcher.ResolveURL(fmt.Sprintf("127.0.0.1:%d", port))
		if err != nil {
			lastErr = err
			continue
		}

		candCtx, candCancel := context.WithCancel(linkCtx)
		b := rod.New().Context(candCtx).ControlURL(wsURL)
		if err := b.Connect(); err != nil {
			candCancel()
			lastErr = fmt.Errorf("browser: connect port %d: %w", port, err)
			continue
		}

		page, pageURL, err := pickPage(ctx, b, desiredURL, s.cfg.NavTimeout)
		if err != nil {
			candCancel()
			lastErr = err
			continue
		}

		parentCancel := s.cancel
		s.cancel = func() { candCancel(); parentCancel() }
		s.browser = b
		s.page = page
		s.url = pageURL
		s.remote = true
		s.installBlocking()
		s.log.Info("browser: attached to running instance", "port", port, "url", pageURL)
		return nil
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("browser: no debug ports configured")
	}
	return lastErr
}

// launch starts a local Chrome and opens its single page.
func (s *Session) launch(ctx context.Context, linkCtx context.Context, desiredURL string) error {
	l := launcher.New().Headless(!s.cfg.Headful)

	wsURL, err := l.Launch()
	if err != nil {
		return fmt.Errorf("browser: launch: %w", err)
	}
	s.lnch = l

	b := rod.New().Context(linkCtx).ControlURL(wsURL)
	if s.cfg.Headful {
		b = b.SlowMotion(s.cfg.SlowMotion)
	}
	if err := b.Connect(); err != nil {
		return fmt.Errorf("browser: connect: %w", err)
	}
	s.browser = b

	page, err := stealth.Page(b)
	if err != nil {
		return fmt.Errorf("browser: create page: %w", err)
	}
	s.page = page
	s.installBlocking()
	s.log.Info("browser: launched local chrome", "headful", s.cfg.Headful)

	if desiredURL != "" {
		if err := s.navigate(ctx, desiredURL); err != nil {
			return err
		}
	}
	return nil
}

// pickPage chooses among an attached browser's open pages, excluding
// internal and blank ones. Preference: exact URL match, then same host,
// then the first eligible page (navigated to desiredURL when one was
// requested). A browser with no eligible pages gets a fresh one.
func pickPage(ctx context.Context, b *rod.Browser, desiredURL string, navTimeout time.Duration) (*rod.Page, string, error) {
	pages, err := b.Pages()
	if err != nil {
		return nil, "", fmt.Errorf("browser: list pages: %w", err)
	}

	type candidate struct {
		page *rod.Page
		url  string
	}
	var eligible []candidate
	for _, p := range pages {
		info, err := p.Info()
		if err != nil {
			continue
		}
		if isInternalURL(info.URL) {
			continue
		}
		eligible = append(eligible, candidate{page: p, url: info.URL})
	}

	if len(eligible) == 0 {
		p, err := b.Page(proto.TargetCreateTarget{URL: ""})
		if err != nil {
			return nil, "", fmt.Errorf("browser: create page: %w", err)
		}
		if desiredURL != "" {
			if err := navigatePage(ctx, p, desiredURL, navTimeout); err != nil {
				return nil, "", err
			}
			return p, desiredURL, nil
		}
		return p, "", nil
	}

	if desiredURL != "" {
		for _, c := range eligible {
			if c.url == desiredURL {
				return c.page, c.url, nil
			}
		}
		if host := hostOf(desiredURL); host != "" {
			for _, c := range eligible {
				if hostOf(c.url) == host {
					return c.page, c.url, nil
				}
			}
		}
		first := eligible[0]
		if err := navigatePage(ctx, first.page, desiredURL, navTimeout); err != nil {
			return nil, "", err
		}
		return first.page, desiredURL, nil
	}

	return eligible[0].page, eligible[0].url, nil
}

func isInternalURL(u string) bool {
	return u == "" || u == "about:blank" ||
		strings.HasPrefix(u, "chrome://") ||
		strings.HasPrefix(u, "chrome-extension://") ||
		strings.HasPrefix(u, "devtools://")
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Host
}

// Page returns the session's live page.
func (s *Session) Page() *rod.Page { return s.page }

// URL returns the session's tracked page URL.
func (s *Session) URL() string { return s.url }

// Capabilities reports strategy flags for this session.
func (s *Session) Capabilities() Capabilities {
	return Capabilities{FastScreenshot: !s.remote, Remote: s.remote}
}

// SetSnapshot caches the most recent full snapshot. The cache is
// advisory: it assists target resolution and is never authoritative.
func (s *Session) SetSnapshot(snap *snapshot.Snapshot) { s.snap = snap }

// LastSnapshot returns the cached snapshot, or nil.
func (s *Session) LastSnapshot() *snapshot.Snapshot { return s.snap }

// EnsurePage guarantees a ready, navigated page. Navigation happens
// only when the requested URL differs from the tracked one and the
// session is not remote-attached: driving someone else's tab to a new
// URL without cause is destructive.
func (s *Session) EnsurePage(ctx context.Context, requestURL string) (*rod.Page, error) {
	if s.page == nil {
		return nil, fmt.Errorf("browser: session closed")
	}
	if requestURL == "" || requestURL == s.url {
		return s.page, nil
	}
	if s.remote {
		s.log.Debug("browser: skipping navigation on remote session", "requested", requestURL)
		return s.page, nil
	}
	if err := s.navigate(ctx, requestURL); err != nil {
		return nil, err
	}
	return s.page, nil
}

// navigate loads the URL, waits for DOM readiness (propagating), then
// opportunistically waits for network idleness (bounded, swallowed).
func (s *Session) navigate(ctx context.Context, pageURL string) error {
	if err := navigatePage(ctx, s.page, pageURL, s.cfg.NavTimeout); err != nil {
		return err
	}
	s.url = pageURL

	// Idle wait stabilises dynamic content. It is an optimisation, not
	// a correctness requirement: expiry is discarded.
	if err := s.page.Context(ctx).WaitIdle(s.cfg.IdleTimeout); err != nil {
		s.log.Debug("browser: idle wait expired", "url", pageURL)
	}
	return nil
}

func navigatePage(ctx context.Context, p *rod.Page, pageURL string, timeout time.Duration) error {
	navCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := p.Context(navCtx).Navigate(pageURL); err != nil {
		return fmt.Errorf("browser: navigate %s: %w", pageURL, err)
	}
	if err := p.Context(navCtx).WaitLoad(); err != nil {
		return fmt.Errorf("browser: load %s: %w", pageURL, err)
	}
	return nil
}

// Close tears the session down. Remote sessions are only disconnected,
// since closing them would destroy a user-owned browser window. Local
// sessions release page, browser, and the launched process. Tracked URL
// and the cached snapshot are reset either way.
func (s *Session) Close() error {
	if s.router != nil {
		if err := s.router.Stop(); err != nil {
			s.log.Debug("browser: hijack stop", "error", err)
		}
		s.router = nil
	}

	if s.remote {
		s.cancel()
		s.log.Info("browser: disconnected from remote instance")
	} else {
		if s.page != nil {
			if err := s.page.Close(); err != nil {
				s.log.Debug("browser: page close", "error", err)
			}
		}
		if s.browser != nil {
			if err := s.browser.Close(); err != nil {
				s.log.Debug("browser: browser close", "error", err)
			}
		}
		if s.lnch != nil {
			s.lnch.Cleanup()
		}
		s.cancel()
		s.log.Info("browser: local instance released")
	}

	s.page = nil
	s.browser = nil
	s.url = ""
	s.snap = nil
	return nil
}

// writeFile is a small indirection for screenshot persistence.
func writeFile(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("browser: write %s: %w", path, err)
	}
	return nil
}
