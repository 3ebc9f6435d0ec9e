// CLAUDE:SUMMARY Service orchestrator: wires session, producers, executor, store, differ and audit.
//
// Package pagelens drives and inspects a web page through one
// long-lived browser session: loose element references resolve to
// concrete queries, interactions return structured results, and two
// captured page states can be compared structurally and pixel-by-pixel.
package pagelens

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"os"

	"github.com/hazyhaar/pagelens/audit"
	"github.com/hazyhaar/pagelens/dbopen"
	"github.com/hazyhaar/pagelens/internal/analyze"
	"github.com/hazyhaar/pagelens/internal/browser"
	"github.com/hazyhaar/pagelens/internal/interact"
	"github.com/hazyhaar/pagelens/internal/resolve"
	"github.com/hazyhaar/pagelens/internal/snapshot"
	"github.com/hazyhaar/pagelens/internal/visdiff"
	"github.com/hazyhaar/pagelens/statusweb"
)

// ErrNoBaseline mirrors the store sentinel at the service boundary.
var ErrNoBaseline = snapshot.ErrNoBaseline

// Service owns the process-wide automation state. It is single-flight:
// callers must serialize interactions, which the MCP dispatcher does by
// construction.
type Service struct {
	cfg      *Config
	log      *slog.Logger
	session  *browser.Session
	store    *snapshot.Store
	analyzer *analyze.Analyzer
	exec     *interact.Executor
	auditDB  *sql.DB
	auditLog *audit.SQLiteLogger
}

// NewService establishes the browser session and opens the supporting
// stores. The caller must Close the service to release the browser.
func NewService(ctx context.Context, cfg *Config, log *slog.Logger) (*Service, error) {
	if log == nil {
		log = slog.Default()
	}
	cfg.applyDefaults()
	cfg.Browser.Logger = log

	store, err := snapshot.NewStore(cfg.ArtifactDir)
	if err != nil {
		return nil, err
	}

	startURL := cfg.StartURL
	if startURL == "" {
		d := &browser.Discovery{DebugPorts: cfg.Browser.DebugPorts}
		startURL = d.StartURL(ctx)
		log.Info("pagelens: discovered start url", "url", startURL)
	}

	sess, err := browser.Open(ctx, cfg.Browser, startURL)
	if err != nil {
		return nil, err
	}

	svc := &Service{
		cfg:      cfg,
		log:      log,
		session:  sess,
		store:    store,
		analyzer: analyze.New(log),
		exec: interact.New(sess, resolve.New(),
			interact.WithActionTimeout(cfg.Timeouts.Action),
			interact.WithWaitTimeout(cfg.Timeouts.Wait),
			interact.WithLogger(log)),
	}

	if !cfg.Audit.Disabled {
		db, err := dbopen.Open(cfg.Audit.Path, dbopen.WithMkdirAll())
		if err != nil {
			sess.Close()
			return nil, err
		}
		svc.auditDB = db
		svc.auditLog = audit.NewSQLiteLogger(db)
		if err := svc.auditLog.Init(); err != nil {
			svc.Close()
			return nil, err
		}
		if n, err := svc.auditLog.Cleanup(ctx, cfg.Audit.RetentionDays); err != nil {
			log.Warn("pagelens: audit cleanup failed", "error", err)
		} else if n > 0 {
			log.Debug("pagelens: audit retention applied", "deleted", n)
		}
	}

	return svc, nil
}

// Analyze captures a fresh snapshot and screenshot of the (possibly
// navigated-to) page, persists both as the current pair, and caches the
// snapshot for target resolution. The screenshot is best-effort: a
// capture fault degrades to a structural-only snapshot.
func (s *Service) Analyze(ctx context.Context, url string) (*snapshot.Snapshot, error) {
	page, err := s.session.EnsurePage(ctx, url)
	if err != nil {
		return nil, err
	}

	snap, err := s.analyzer.Capture(ctx, page)
	if err != nil {
		return nil, err
	}

	imgPath := s.store.CurrentImagePath()
	if err := s.session.Screenshot(ctx, imgPath, false); err != nil {
		s.log.Warn("pagelens: screenshot failed, structural snapshot only", "error", err)
	} else {
		snap.ScreenshotFile = snapshot.CurrentImage
	}

	if err := s.store.SaveCurrent(snap); err != nil {
		return nil, err
	}
	s.session.SetSnapshot(snap)
	return snap, nil
}

// SaveBaseline promotes the current snapshot/screenshot pair to the
// baseline pair, overwriting any previous baseline wholesale. When no
// current capture exists yet, one is taken first.
func (s *Service) SaveBaseline(ctx context.Context, url string) error {
	cur, err := s.store.LoadCurrent()
	if err != nil {
		return err
	}
	if cur == nil {
		if _, err := s.Analyze(ctx, url); err != nil {
			return err
		}
	}
	return s.store.SaveBaseline()
}

// Diff captures the live page and compares it against the saved
// baseline. Absent a baseline it returns ErrNoBaseline; the dispatch
// layer renders that as an explicit response, never a fault.
func (s *Service) Diff(ctx context.Context, url string) (*visdiff.Result, error) {
	baseline, err := s.store.LoadBaseline()
	if err != nil {
		return nil, err
	}

	current, err := s.Analyze(ctx, url)
	if err != nil {
		return nil, err
	}

	result := visdiff.Structural(baseline, current)

	if s.hasImagePair() {
		stats, err := visdiff.Pixels(
			s.store.BaselineImagePath(),
			s.store.CurrentImagePath(),
			s.store.DiffImagePath(),
			s.cfg.Diff.SignificantPercent,
		)
		if err != nil {
			s.log.Warn("pagelens: pixel diff failed, structural result only", "error", err)
		} else {
			result.Pixels = stats
		}
	}

	visdiff.Summarize(result)
	return result, nil
}

func (s *Service) hasImagePair() bool {
	if _, err := os.Stat(s.store.BaselineImagePath()); err != nil {
		return false
	}
	_, err := os.Stat(s.store.CurrentImagePath())
	return err == nil
}

// Executor exposes the interaction executor for the dispatch layer.
func (s *Service) Executor() *interact.Executor { return s.exec }

// AuditLog returns the action trail, or nil when auditing is disabled.
func (s *Service) AuditLog() *audit.SQLiteLogger { return s.auditLog }

// Status summarizes live session state for the status surface.
func (s *Service) Status() statusweb.Status {
	st := statusweb.Status{
		Connected:   s.session.Page() != nil,
		Remote:      s.session.Capabilities().Remote,
		URL:         s.session.URL(),
		HasBaseline: s.store.HasBaseline(),
	}
	if snap := s.session.LastSnapshot(); snap != nil {
		st.CapturedAt = snap.CapturedAt
	}
	return st
}

// Close tears everything down: audit trail first (flushes buffered
// entries), then the browser session. Remote sessions are disconnected,
// local ones fully released.
func (s *Service) Close() error {
	var errs []error
	if s.auditLog != nil {
		if err := s.auditLog.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if s.auditDB != nil {
		if err := s.auditDB.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := s.session.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
