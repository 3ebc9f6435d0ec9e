package browser

import (
	"context"
	"fmt"

	"github.com/go-rod/rod/lib/proto"
)

// disableAnimations freezes CSS animations and transitions so the
// standard capture is deterministic between runs.
const disableAnimations = `() => {
	const style = document.createElement('style');
	style.textContent = '*, *::before, *::after { animation: none !important; transition: none !important; caret-color: transparent !important; }';
	document.head.appendChild(style);
}`

// Screenshot captures the current viewport as lossless PNG to path.
//
// Two strategies exist. The fast path issues a raw capture call with no
// preparation; it is valid only for locally launched sessions and the
// caller must have checked Capabilities().FastScreenshot before asking
// for it. The standard path disables animations first and is the
// default.
func (s *Session) Screenshot(ctx context.Context, path string, fast bool) error {
	if s.page == nil {
		return fmt.Errorf("browser: session closed")
	}
	page := s.page.Context(ctx)

	if fast {
		if s.remote {
			return fmt.Errorf("browser: fast screenshot unavailable on remote sessions")
		}
		res, err := proto.PageCaptureScreenshot{
			Format: proto.PageCaptureScreenshotFormatPng,
		}.Call(page)
		if err != nil {
			return fmt.Errorf("browser: fast capture: %w", err)
		}
		return writeFile(path, res.Data)
	}

	// Animation freeze is best-effort: a page rejecting script
	// injection still gets captured.
	if _, err := page.Eval(disableAnimations); err != nil {
		s.log.Debug("browser: disable animations", "error", err)
	}

	data, err := page.Screenshot(false, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		return fmt.Errorf("browser: capture: %w", err)
	}
	return writeFile(path, data)
}
