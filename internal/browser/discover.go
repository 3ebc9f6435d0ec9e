package browser

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// DefaultStartURL is used when no probe responds and the caller gave no URL.
const DefaultStartURL = "http://localhost:3000"

// Discovery probes the local environment for something worth pointing
// the browser at: debug-protocol ports first, then common
// development-server ports. First responder wins, in that fixed order.
type Discovery struct {
	// DebugPorts are CDP endpoints (answering /json/version).
	DebugPorts []int
	// DevPorts are plain HTTP development servers.
	DevPorts []int
	// Timeout bounds each individual probe.
	Timeout time.Duration

	// Client overrides the HTTP client, for tests.
	Client *http.Client
}

func (d *Discovery) defaults() {
	if len(d.DebugPorts) == 0 {
		d.DebugPorts = []int{9222, 9223}
	}
	if len(d.DevPorts) == 0 {
		d.DevPorts = []int{3000, 5173, 8080, 4321, 4200, 8000}
	}
	if d.Timeout <= 0 {
		d.Timeout = 500 * time.Millisecond
	}
	if d.Client == nil {
		d.Client = &http.Client{}
	}
}

// Endpoint is a responding local service.
type Endpoint struct {
	Kind string // "debug" or "devserver"
	Port int
	URL  string
}

// FirstResponder returns the first reachable endpoint in priority
// order, or false when nothing local answers.
func (d *Discovery) FirstResponder(ctx context.Context) (Endpoint, bool) {
	d.defaults()
	for _, port := range d.DebugPorts {
		if d.reachable(ctx, fmt.Sprintf("http://127.0.0.1:%d/json/version", port)) {
			return Endpoint{Kind: "debug", Port: port, URL: fmt.Sprintf("http://127.0.0.1:%d", port)}, true
		}
	}
	for _, port := range d.DevPorts {
		u := fmt.Sprintf("http://localhost:%d", port)
		if d.reachable(ctx, u) {
			return Endpoint{Kind: "devserver", Port: port, URL: u}, true
		}
	}
	return Endpoint{}, false
}

// StartURL picks the initial page URL: the first responding dev server,
// else the hardcoded default. Debug endpoints carry no page URL of
// their own; attachment handles those separately.
func (d *Discovery) StartURL(ctx context.Context) string {
	ep, ok := d.FirstResponder(ctx)
	if ok && ep.Kind == "devserver" {
		return ep.URL
	}
	return DefaultStartURL
}

func (d *Discovery) reachable(ctx context.Context, url string) bool {
	probeCtx, cancel := context.WithTimeout(ctx, d.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}
	resp, err := d.Client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode < 500
}
