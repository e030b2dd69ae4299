package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/star/skywindow/internal/catalog"
	"github.com/star/skywindow/internal/report"
	"github.com/star/skywindow/internal/reportstore"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func indexHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service": "skywindow",
		"endpoints": []string{
			"POST /api/v1/reports/run",
			"GET /api/v1/reports/last-run",
			"GET /api/v1/reports/{user_id}/{site_id}",
			"POST /api/v1/catalog/reload",
			"GET /api/v1/catalog/stats",
		},
	})
}

// runStatus maps a run error onto an HTTP status code.
func runStatus(err error) int {
	switch {
	case errors.Is(err, report.ErrRunInProgress):
		return http.StatusConflict
	case errors.Is(err, report.ErrUnknownUser):
		return http.StatusNotFound
	case errors.Is(err, report.ErrNoObservations):
		return http.StatusUnprocessableEntity
	case errors.Is(err, catalog.ErrNotLoaded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// runHandler triggers a report run. ?user= restricts the run to one user.
// By default the run continues in the background and 202 is returned;
// ?wait=true runs it within the request and returns the summary.
func runHandler(logger *slog.Logger, deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := r.URL.Query().Get("user")

		wait := false
		if v := r.URL.Query().Get("wait"); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "wait must be a boolean")
				return
			}
			wait = b
		}

		if deps.Runner.Running() {
			writeError(w, http.StatusConflict, report.ErrRunInProgress.Error())
			return
		}

		// Validate a forced user up front so background runs fail loudly too.
		if userID != "" {
			c := deps.Catalogs.Get()
			if c == nil {
				writeError(w, http.StatusServiceUnavailable, catalog.ErrNotLoaded.Error())
				return
			}
			if _, ok := c.User(userID); !ok {
				writeError(w, http.StatusNotFound, report.ErrUnknownUser.Error()+": "+userID)
				return
			}
			if len(c.Observations(userID)) == 0 {
				writeError(w, http.StatusUnprocessableEntity, report.ErrNoObservations.Error()+": "+userID)
				return
			}
		}

		now := deps.Now()
		if wait {
			summary, err := deps.Runner.Run(r.Context(), now, userID)
			if err != nil {
				writeError(w, runStatus(err), err.Error())
				return
			}
			writeJSON(w, http.StatusOK, summary)
			return
		}

		ctx := deps.BaseContext
		go func() {
			if _, err := deps.Runner.Run(ctx, now, userID); err != nil {
				logger.Warn("triggered run failed", "user_id", userID, "error", err)
			}
		}()
		writeJSON(w, http.StatusAccepted, map[string]any{
			"status": "started",
			"run_at": now.Format(time.RFC3339),
			"user":   userID,
		})
	}
}

func lastRunHandler(runner Runner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := runner.LastRun()
		if s == nil {
			writeError(w, http.StatusNotFound, "no run has finished yet")
			return
		}
		writeJSON(w, http.StatusOK, s)
	}
}

func latestReportHandler(logger *slog.Logger, reports Reports) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := r.PathValue("user_id")
		siteID := r.PathValue("site_id")

		rep, err := reports.Latest(userID, siteID)
		switch {
		case errors.Is(err, reportstore.ErrInvalidID):
			writeError(w, http.StatusBadRequest, err.Error())
			return
		case errors.Is(err, reportstore.ErrNotFound):
			writeError(w, http.StatusNotFound, "no report for "+userID+"/"+siteID)
			return
		case err != nil:
			logger.Error("reading stored report", "user_id", userID, "site_id", siteID, "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, rep)
	}
}

type catalogStats struct {
	Source       string    `json:"source"`
	LoadedAt     time.Time `json:"loaded_at"`
	AgeSeconds   float64   `json:"age_seconds"`
	Users        int       `json:"users"`
	Sites        int       `json:"sites"`
	Objects      int       `json:"objects"`
	Observations int       `json:"observations"`
}

func statsOf(catalogs Catalogs) (catalogStats, bool) {
	c := catalogs.Get()
	if c == nil {
		return catalogStats{}, false
	}
	users, sites, objects, observations := c.Counts()
	return catalogStats{
		Source:       c.Source,
		LoadedAt:     c.LoadedAt,
		AgeSeconds:   catalogs.AgeSeconds(),
		Users:        users,
		Sites:        sites,
		Objects:      objects,
		Observations: observations,
	}, true
}

func statsHandler(catalogs Catalogs) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, ok := statsOf(catalogs)
		if !ok {
			writeError(w, http.StatusServiceUnavailable, catalog.ErrNotLoaded.Error())
			return
		}
		writeJSON(w, http.StatusOK, stats)
	}
}

// reloadHandler rereads the catalogue. A failed reload keeps serving the
// previous snapshot.
func reloadHandler(logger *slog.Logger, catalogs Catalogs) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := catalogs.Reload(r.Context()); err != nil {
			logger.Warn("catalogue reload failed", "error", err)
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		stats, _ := statsOf(catalogs)
		logger.Info("catalogue reloaded", "users", stats.Users, "sites", stats.Sites, "objects", stats.Objects)
		writeJSON(w, http.StatusOK, stats)
	}
}
