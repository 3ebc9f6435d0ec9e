// CLAUDE:SUMMARY Snapshot producers: probe a loaded page for theme, structure, actions and text.
//
// Package analyze turns a loaded page into an immutable snapshot. Each
// producer is stateless; a Capture runs them all and assembles the
// result. Producers never mutate the page beyond read-only evaluation.
package analyze

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"

	"github.com/hazyhaar/pagelens/internal/snapshot"
)

type Analyzer struct {
	log *slog.Logger
}

func New(log *slog.Logger) *Analyzer {
	if log == nil {
		log = slog.Default()
	}
	return &Analyzer{log: log}
}

// Capture runs every producer against the page and assembles a new
// snapshot. Theme and structure probes are required; the class-usage
// histogram and text sample degrade to empty on parse failure.
func (a *Analyzer) Capture(ctx context.Context, page *rod.Page) (*snapshot.Snapshot, error) {
	p := page.Context(ctx)

	info, err := p.Info()
	if err != nil {
		return nil, fmt.Errorf("analyze: page info: %w", err)
	}

	theme, viewport, err := captureTheme(p)
	if err != nil {
		return nil, fmt.Errorf("analyze: theme probe: %w", err)
	}

	structure, err := captureStructure(p)
	if err != nil {
		return nil, fmt.Errorf("analyze: structure probe: %w", err)
	}

	snap := &snapshot.Snapshot{
		URL:        info.URL,
		Title:      info.Title,
		Viewport:   viewport,
		Theme:      theme,
		Landmarks:  structure.Landmarks,
		Sections:   structure.Sections,
		Overlays:   structure.Overlays,
		Actions:    structure.Actions,
		CapturedAt: time.Now().UTC(),
	}

	if raw, err := p.HTML(); err == nil {
		usage, sample := scanHTML(raw)
		snap.ClassUsage = usage
		snap.TextSample = sample
	} else {
		a.log.Debug("analyze: html scan skipped", "error", err)
	}

	return snap, nil
}
