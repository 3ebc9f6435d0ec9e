package browser

import (
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// trackerHosts are blocked unconditionally: they never affect
// structural or pixel analysis and only slow down loads.
var trackerHosts = []string{
	"google-analytics.com",
	"googletagmanager.com",
	"doubleclick.net",
	"connect.facebook.net",
	"hotjar.com",
	"segment.io",
	"segment.com",
	"clarity.ms",
	"mixpanel.com",
	"amplitude.com",
}

// installBlocking sets up the load-time request filter, exactly once
// per page. Fonts and media are dropped outright alongside the tracker
// hosts.
func (s *Session) installBlocking() {
	if s.router != nil || s.page == nil {
		return
	}
	blocked := append([]string(nil), trackerHosts...)
	blocked = append(blocked, s.cfg.BlockedHosts...)

	router := s.page.HijackRequests()
	router.MustAdd("*", func(h *rod.Hijack) {
		if shouldBlockType(h.Request.Type()) || shouldBlockHost(h.Request.URL().Host, blocked) {
			h.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		h.ContinueRequest(&proto.FetchContinueRequest{})
	})
	go router.Run()
	s.router = router
}

func shouldBlockType(t proto.NetworkResourceType) bool {
	switch t {
	case proto.NetworkResourceTypeFont, proto.NetworkResourceTypeMedia:
		return true
	}
	return false
}

func shouldBlockHost(host string, blocked []string) bool {
	host = strings.ToLower(host)
	for _, b := range blocked {
		if host == b || strings.HasSuffix(host, "."+b) {
			return true
		}
	}
	return false
}
