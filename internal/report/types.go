// Package report turns each user's observations into per-site observing
// reports: the best night hour from the forecast, where every tracked object
// stands at that hour, and what might spoil the session.
package report

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/star/skywindow/internal/catalog"
	"github.com/star/skywindow/internal/lightpollution"
	"github.com/star/skywindow/internal/transform"
	"github.com/star/skywindow/internal/weather"
)

var (
	// ErrExternal marks failures of forecast, map, store or notification
	// collaborators.
	ErrExternal = errors.New("external collaborator failed")
	// ErrNoObservations is returned by a forced run for a user without
	// observations.
	ErrNoObservations = errors.New("user has no observations")
	// ErrUnknownUser is returned by a forced run for a user id that is not in
	// the catalogue.
	ErrUnknownUser = errors.New("unknown user")
	// ErrRunInProgress is returned when Run is called while another run is
	// still going.
	ErrRunInProgress = errors.New("report run already in progress")
)

// ExternalError wraps a collaborator failure. It matches ErrExternal and
// unwraps to the underlying cause.
type ExternalError struct {
	Provider string
	Err      error
}

func (e *ExternalError) Error() string {
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *ExternalError) Unwrap() error { return e.Err }

func (e *ExternalError) Is(target error) bool { return target == ErrExternal }

// Source provides read-only snapshots of users and their observations.
type Source interface {
	Users(ctx context.Context) ([]catalog.User, error)
	Observations(ctx context.Context, userID string) ([]catalog.Observation, error)
}

// MapProvider renders a static map image (PNG) centred on a coordinate.
type MapProvider interface {
	StaticMap(ctx context.Context, lonDeg, latDeg float64) ([]byte, error)
}

// Charter renders a PNG attachment for an assembled report.
type Charter interface {
	AltitudeChart(r LocationReport) ([]byte, error)
}

// Sender delivers a user's reports. Attachments are keyed by file name.
type Sender interface {
	Send(ctx context.Context, user catalog.User, reports []LocationReport, attachments map[string][]byte) error
}

// Store persists assembled reports.
type Store interface {
	Save(ctx context.Context, r LocationReport) error
}

// State is a step of a user's report generation.
type State int

const (
	StateIdle State = iota
	StateLoadingObservations
	StateSkipped
	StateFetchingForecast
	StateScoring
	StateFetchingMap
	StateTransformingObjects
	StateAssembled
	StateEmailed
	StateDone
	StateFailed
)

var stateNames = [...]string{
	StateIdle:                "idle",
	StateLoadingObservations: "loading_observations",
	StateSkipped:             "skipped",
	StateFetchingForecast:    "fetching_forecast",
	StateScoring:             "scoring",
	StateFetchingMap:         "fetching_map",
	StateTransformingObjects: "transforming_objects",
	StateAssembled:           "assembled",
	StateEmailed:             "emailed",
	StateDone:                "done",
	StateFailed:              "failed",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ObjectReport is one tracked object at the chosen instant.
type ObjectReport struct {
	Object     catalog.Object         `json:"object"`
	Horizontal transform.Horizontal   `json:"horizontal"`
	Verdict    lightpollution.Verdict `json:"verdict"`
	RiseSet    lightpollution.RiseSet `json:"rise_set"`
}

// LocationReport is the recommendation for one user at one site. It is
// created once per run and never modified afterwards.
type LocationReport struct {
	UserID         string                 `json:"user_id"`
	Site           lightpollution.Site    `json:"site"`
	Window         time.Time              `json:"window"`
	Forecast       weather.HourlyForecast `json:"forecast"`
	ObservingIndex float32                `json:"observing_index"`
	Objects        []ObjectReport         `json:"objects"`
	Warnings       []string               `json:"warnings,omitempty"`
	CalendarURL    string                 `json:"calendar_url"`
	Attachments    []string               `json:"attachments,omitempty"`
	GeneratedAt    time.Time              `json:"generated_at"`
}

// SiteOutcome records a persisted report.
type SiteOutcome struct {
	UserID string    `json:"user_id"`
	SiteID string    `json:"site_id"`
	Window time.Time `json:"window"`
}

// SiteFailure records a site (or, with an empty SiteID, a whole user) that
// produced no report, and the step it failed in.
type SiteFailure struct {
	UserID string `json:"user_id"`
	SiteID string `json:"site_id,omitempty"`
	State  State  `json:"state"`
	Reason string `json:"reason"`
	Err    error  `json:"-"`
}

// NotifyFailure records reports that were assembled but not delivered.
type NotifyFailure struct {
	UserID string `json:"user_id"`
	Reason string `json:"reason"`
}

// Summary enumerates what a run did for every user it was asked about.
type Summary struct {
	RunAt          time.Time       `json:"run_at"`
	Duration       time.Duration   `json:"duration_ns"`
	ForcedUser     string          `json:"forced_user,omitempty"`
	Succeeded      []SiteOutcome   `json:"succeeded"`
	Failed         []SiteFailure   `json:"failed"`
	Skipped        []string        `json:"skipped,omitempty"`
	NotifyFailures []NotifyFailure `json:"notify_failures,omitempty"`
	// Undispatched users were not started because the run was canceled.
	Undispatched []string `json:"undispatched,omitempty"`
}
