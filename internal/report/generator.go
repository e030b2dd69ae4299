package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/star/skywindow/internal/catalog"
	"github.com/star/skywindow/internal/lightpollution"
	"github.com/star/skywindow/internal/metrics"
	"github.com/star/skywindow/internal/transform"
	"github.com/star/skywindow/internal/weather"
)

// Config tunes a Generator.
type Config struct {
	// Workers bounds how many users are processed concurrently.
	Workers int
	// SiteTimeout bounds the external calls made for one site.
	SiteTimeout time.Duration
}

// Deps are the collaborators of a Generator. Maps and Charts are optional.
type Deps struct {
	Source    Source
	Forecasts weather.Provider
	Maps      MapProvider
	Charts    Charter
	Sender    Sender
	Store     Store
}

// Generator runs report generation.
type Generator struct {
	cfg    Config
	deps   Deps
	logger *slog.Logger

	running atomic.Bool
	lastRun atomic.Pointer[Summary]
}

// NewGenerator creates a Generator. Zero config values select
// runtime.NumCPU() workers and a 30 second site timeout.
func NewGenerator(cfg Config, deps Deps, logger *slog.Logger) *Generator {
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.SiteTimeout <= 0 {
		cfg.SiteTimeout = 30 * time.Second
	}
	return &Generator{
		cfg:    cfg,
		deps:   deps,
		logger: logger.With("component", "report"),
	}
}

// LastRun returns the summary of the most recent finished run, or nil.
func (g *Generator) LastRun() *Summary {
	return g.lastRun.Load()
}

// Running reports whether a run is in progress.
func (g *Generator) Running() bool {
	return g.running.Load()
}

// Run generates reports as of now, which must be a UTC instant.
//
// With forceUserID set only that user is processed; a user that does not
// exist or has no observations is an error. Otherwise every user is
// processed and only structural failures (such as an unavailable catalogue)
// are returned as errors; per-user and per-site problems are recorded in the
// summary.
//
// Cancelling ctx stops dispatching new users. Users already started finish
// their sites, still bounded by the site timeout, and users never started
// are listed in Summary.Undispatched alongside a context error.
func (g *Generator) Run(ctx context.Context, now time.Time, forceUserID string) (Summary, error) {
	if now.Location() != time.UTC {
		return Summary{}, fmt.Errorf("%w: run instant %s is not UTC", transform.ErrInvalidInput, now)
	}
	if !g.running.CompareAndSwap(false, true) {
		return Summary{}, ErrRunInProgress
	}
	defer g.running.Store(false)

	start := time.Now()
	summary, err := g.run(ctx, now, forceUserID)
	summary.RunAt = now
	summary.ForcedUser = forceUserID
	summary.Duration = time.Since(start)

	metrics.ObserveRun(summary.Duration, err)
	if err == nil || len(summary.Undispatched) > 0 {
		g.lastRun.Store(&summary)
	}

	g.logger.Info("report run finished",
		"succeeded", len(summary.Succeeded),
		"failed", len(summary.Failed),
		"skipped", len(summary.Skipped),
		"notify_failures", len(summary.NotifyFailures),
		"undispatched", len(summary.Undispatched),
		"duration_ms", summary.Duration.Milliseconds(),
		"forced_user", forceUserID,
	)
	return summary, err
}

func (g *Generator) run(ctx context.Context, now time.Time, forceUserID string) (Summary, error) {
	users, err := g.deps.Source.Users(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("loading users: %w", err)
	}

	if forceUserID != "" {
		u, ok := findUser(users, forceUserID)
		if !ok {
			return Summary{}, fmt.Errorf("%w: %s", ErrUnknownUser, forceUserID)
		}
		obs, err := g.deps.Source.Observations(ctx, u.ID)
		if err != nil {
			return Summary{}, fmt.Errorf("loading observations for %s: %w", u.ID, err)
		}
		if len(obs) == 0 {
			return Summary{Skipped: []string{u.ID}}, fmt.Errorf("%w: %s", ErrNoObservations, u.ID)
		}
		users = []catalog.User{u}
	}

	results := g.processUsers(ctx, users, now)

	var s Summary
	for _, r := range results {
		switch {
		case r.undispatched:
			s.Undispatched = append(s.Undispatched, r.user.ID)
		case r.skipped:
			s.Skipped = append(s.Skipped, r.user.ID)
		}
		s.Succeeded = append(s.Succeeded, r.succeeded...)
		s.Failed = append(s.Failed, r.failed...)
		if r.notifyFailure != nil {
			s.NotifyFailures = append(s.NotifyFailures, *r.notifyFailure)
		}
	}
	sortSummary(&s)

	if len(s.Undispatched) > 0 {
		return s, fmt.Errorf("run stopped with %d users left: %w", len(s.Undispatched), ctx.Err())
	}
	return s, nil
}

func findUser(users []catalog.User, id string) (catalog.User, bool) {
	for _, u := range users {
		if u.ID == id {
			return u, true
		}
	}
	return catalog.User{}, false
}

func sortSummary(s *Summary) {
	sort.Strings(s.Skipped)
	sort.Strings(s.Undispatched)
	sort.Slice(s.Succeeded, func(i, j int) bool {
		a, b := s.Succeeded[i], s.Succeeded[j]
		if a.UserID != b.UserID {
			return a.UserID < b.UserID
		}
		return a.SiteID < b.SiteID
	})
	sort.Slice(s.Failed, func(i, j int) bool {
		a, b := s.Failed[i], s.Failed[j]
		if a.UserID != b.UserID {
			return a.UserID < b.UserID
		}
		return a.SiteID < b.SiteID
	})
	sort.Slice(s.NotifyFailures, func(i, j int) bool {
		return s.NotifyFailures[i].UserID < s.NotifyFailures[j].UserID
	})
}

// userResult is the outcome of processing one user.
type userResult struct {
	user          catalog.User
	undispatched  bool
	skipped       bool
	succeeded     []SiteOutcome
	failed        []SiteFailure
	notifyFailure *NotifyFailure
}

// processUsers fans users out to a fixed number of workers. Workers run
// users on a context detached from ctx so a started user always finishes;
// once ctx is done, queued users are returned as undispatched.
func (g *Generator) processUsers(ctx context.Context, users []catalog.User, now time.Time) []userResult {
	if len(users) == 0 {
		return nil
	}

	jobs := make(chan catalog.User, g.cfg.Workers*2)
	results := make(chan userResult, g.cfg.Workers*2)
	work := context.WithoutCancel(ctx)

	// Start workers.
	var wg sync.WaitGroup
	for i := 0; i < g.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for u := range jobs {
				if ctx.Err() != nil {
					results <- userResult{user: u, undispatched: true}
					continue
				}
				results <- g.processUser(work, u, now)
			}
		}()
	}

	// Feed jobs; users never handed to a worker are reported here.
	go func() {
		defer close(jobs)
		for i, u := range users {
			if ctx.Err() == nil {
				select {
				case jobs <- u:
					continue
				case <-ctx.Done():
				}
			}
			for _, rest := range users[i:] {
				results <- userResult{user: rest, undispatched: true}
			}
			return
		}
	}()

	// Close results when all workers are done and the feeder has finished.
	go func() {
		wg.Wait()
		close(results)
	}()

	out := make([]userResult, 0, len(users))
	for r := range results {
		out = append(out, r)
	}
	return out
}

// processUser walks one user through the report state machine.
func (g *Generator) processUser(ctx context.Context, u catalog.User, now time.Time) userResult {
	logger := g.logger.With("user_id", u.ID)
	res := userResult{user: u}

	logger.Debug("state", "state", StateLoadingObservations)
	obs, err := g.deps.Source.Observations(ctx, u.ID)
	if err != nil {
		logger.Warn("loading observations failed", "error", err)
		res.failed = []SiteFailure{{UserID: u.ID, State: StateLoadingObservations, Reason: err.Error(), Err: err}}
		return res
	}
	if len(obs) == 0 {
		logger.Debug("state", "state", StateSkipped)
		metrics.UserSkipped()
		res.skipped = true
		return res
	}

	groups := GroupBySite(obs)
	outcomes := make([]siteResult, len(groups))
	var wg sync.WaitGroup
	for i, grp := range groups {
		wg.Add(1)
		go func(idx int, grp SiteGroup) {
			defer wg.Done()
			outcomes[idx] = g.processSite(ctx, u, grp, now)
		}(i, grp)
	}
	wg.Wait()

	var reports []LocationReport
	attachments := make(map[string][]byte)
	for _, o := range outcomes {
		if o.failure != nil {
			metrics.SiteFailed()
			logger.Warn("site report failed",
				"site_id", o.failure.SiteID,
				"state", o.failure.State,
				"error", o.failure.Err,
			)
			res.failed = append(res.failed, *o.failure)
			continue
		}
		metrics.SiteSucceeded()
		reports = append(reports, o.report)
		for name, data := range o.attachments {
			attachments[name] = data
		}
		res.succeeded = append(res.succeeded, SiteOutcome{
			UserID: u.ID,
			SiteID: o.report.Site.ID,
			Window: o.report.Window,
		})
	}

	if len(reports) > 0 && u.Notify && g.deps.Sender != nil {
		start := time.Now()
		err := g.deps.Sender.Send(ctx, u, reports, attachments)
		metrics.ObserveExternal("notify", time.Since(start), err)
		if err != nil {
			err = &ExternalError{Provider: "notify", Err: err}
			metrics.NotifyFailed()
			logger.Warn("sending reports failed", "reports", len(reports), "error", err)
			res.notifyFailure = &NotifyFailure{UserID: u.ID, Reason: err.Error()}
		} else {
			logger.Debug("state", "state", StateEmailed)
		}
	}

	logger.Debug("state", "state", StateDone, "sites", len(groups), "reports", len(reports))
	return res
}

// siteResult carries either an assembled report or the failure that
// prevented it.
type siteResult struct {
	report      LocationReport
	attachments map[string][]byte
	failure     *SiteFailure
}

func (g *Generator) processSite(ctx context.Context, u catalog.User, grp SiteGroup, now time.Time) siteResult {
	ctx, cancel := context.WithTimeout(ctx, g.cfg.SiteTimeout)
	defer cancel()

	site := grp.Site
	fail := func(state State, err error) siteResult {
		return siteResult{failure: &SiteFailure{
			UserID: u.ID,
			SiteID: site.ID,
			State:  state,
			Reason: err.Error(),
			Err:    err,
		}}
	}

	bundle, err := g.forecast(ctx, site, now)
	if err != nil {
		return fail(StateFetchingForecast, err)
	}

	window, hourly, err := weather.SelectBestWindow(bundle, now)
	if err != nil {
		return fail(StateScoring, err)
	}

	attachments := make(map[string][]byte)
	if g.deps.Maps != nil {
		start := time.Now()
		png, err := g.deps.Maps.StaticMap(ctx, site.LonDeg, site.LatDeg)
		metrics.ObserveExternal("staticmap", time.Since(start), err)
		if err != nil {
			return fail(StateFetchingMap, &ExternalError{Provider: "static map", Err: err})
		}
		attachments[MapAttachment(site.ID)] = png
	}

	objects := make([]ObjectReport, 0, len(grp.Objects))
	for _, obj := range grp.Objects {
		or, err := evaluateObject(obj, site, window, now)
		if err != nil {
			return fail(StateTransformingObjects, fmt.Errorf("object %s: %w", obj.ID, err))
		}
		objects = append(objects, or)
	}

	r := LocationReport{
		UserID:         u.ID,
		Site:           site,
		Window:         window,
		Forecast:       hourly,
		ObservingIndex: weather.ObservingIndex(hourly),
		Objects:        objects,
		Warnings:       Warnings(hourly),
		CalendarURL:    CalendarURL(site, window, hourly),
		GeneratedAt:    now,
	}

	if g.deps.Charts != nil {
		png, err := g.deps.Charts.AltitudeChart(r)
		if err != nil {
			g.logger.Warn("altitude chart failed", "user_id", u.ID, "site_id", site.ID, "error", err)
		} else {
			attachments[ChartAttachment(site.ID)] = png
		}
	}
	for name := range attachments {
		r.Attachments = append(r.Attachments, name)
	}
	sort.Strings(r.Attachments)

	if g.deps.Store != nil {
		start := time.Now()
		err := g.deps.Store.Save(ctx, r)
		metrics.ObserveExternal("store", time.Since(start), err)
		if err != nil {
			return fail(StateAssembled, &ExternalError{Provider: "report store", Err: err})
		}
	}

	return siteResult{report: r, attachments: attachments}
}

// forecast fetches the site's forecast and fills in missing sun times.
func (g *Generator) forecast(ctx context.Context, site lightpollution.Site, now time.Time) (weather.Bundle, error) {
	start := time.Now()
	b, err := g.deps.Forecasts.Forecast(ctx, site.LonDeg, site.LatDeg)
	metrics.ObserveExternal("forecast", time.Since(start), err)
	if err != nil {
		return weather.Bundle{}, &ExternalError{Provider: "forecast", Err: err}
	}
	if b.Sunrise.IsZero() || b.Sunset.IsZero() {
		b = weather.WithSunTimes(b, site.LonDeg, site.LatDeg, now)
	}
	if b.Sunrise.IsZero() || b.Sunset.IsZero() {
		return weather.Bundle{}, errors.New("forecast has no sunrise or sunset and none could be computed")
	}
	return b, nil
}

// evaluateObject places one object at the chosen window and runs the
// visibility checks.
func evaluateObject(obj catalog.Object, site lightpollution.Site, window, now time.Time) (ObjectReport, error) {
	h, err := transform.EquatorialToHorizontal(obj.Coord, window, site.LonDeg, site.LatDeg)
	if err != nil {
		return ObjectReport{}, err
	}
	target := obj.Target()
	verdict, err := lightpollution.EvaluateVisibility(target, site, now)
	if err != nil {
		return ObjectReport{}, err
	}
	rs, err := lightpollution.RiseTransitSet(target, site, window)
	if err != nil {
		return ObjectReport{}, err
	}
	return ObjectReport{Object: obj, Horizontal: h, Verdict: verdict, RiseSet: rs}, nil
}
