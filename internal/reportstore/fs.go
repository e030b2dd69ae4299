// Package reportstore keeps assembled reports on disk, one directory per
// user and site, newest files winning.
package reportstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/star/skywindow/internal/report"
)

// ErrNotFound is returned by Latest when no report exists.
var ErrNotFound = errors.New("no stored report")

// ErrInvalidID is returned for user or site ids that are unsafe as path
// components.
var ErrInvalidID = errors.New("invalid id")

// validID restricts path components to a safe character set.
var validID = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// FS stores reports as <dir>/<user>/<site>/report_<unix>.json.
type FS struct {
	dir      string
	maxFiles int
}

// NewFS creates a store rooted at dir that keeps at most maxFiles reports
// per user and site.
func NewFS(dir string, maxFiles int) *FS {
	if maxFiles <= 0 {
		maxFiles = 5
	}
	return &FS{
		dir:      dir,
		maxFiles: maxFiles,
	}
}

// Save writes r to a file named after its generation time and prunes old
// files beyond maxFiles.
func (s *FS) Save(_ context.Context, r report.LocationReport) error {
	dir, err := s.siteDir(r.UserID, r.Site.ID)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating report dir: %w", err)
	}

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}

	name := fmt.Sprintf("report_%d.json", r.GeneratedAt.Unix())
	tmp := filepath.Join(dir, "."+name+".tmp")
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("writing report file: %w", err)
	}
	if err := os.Rename(tmp, filepath.Join(dir, name)); err != nil {
		return fmt.Errorf("renaming report file: %w", err)
	}

	return s.prune(dir)
}

// Latest reads the newest report for a user and site.
func (s *FS) Latest(userID, siteID string) (report.LocationReport, error) {
	dir, err := s.siteDir(userID, siteID)
	if err != nil {
		return report.LocationReport{}, err
	}
	files, err := listFiles(dir)
	if err != nil {
		return report.LocationReport{}, err
	}
	if len(files) == 0 {
		return report.LocationReport{}, fmt.Errorf("%w for %s/%s", ErrNotFound, userID, siteID)
	}

	// Files are sorted oldest first; take the last one.
	latest := files[len(files)-1]
	data, err := os.ReadFile(filepath.Join(dir, latest.name))
	if err != nil {
		return report.LocationReport{}, fmt.Errorf("reading report file: %w", err)
	}

	var r report.LocationReport
	if err := json.Unmarshal(data, &r); err != nil {
		return report.LocationReport{}, fmt.Errorf("decoding report %s: %w", latest.name, err)
	}
	return r, nil
}

func (s *FS) siteDir(userID, siteID string) (string, error) {
	if !validID.MatchString(userID) || userID == "." || userID == ".." {
		return "", fmt.Errorf("%w: user %q", ErrInvalidID, userID)
	}
	if !validID.MatchString(siteID) || siteID == "." || siteID == ".." {
		return "", fmt.Errorf("%w: site %q", ErrInvalidID, siteID)
	}
	return filepath.Join(s.dir, userID, siteID), nil
}

type reportFile struct {
	name string
	ts   time.Time
}

func listFiles(dir string) ([]reportFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing report dir: %w", err)
	}

	var files []reportFile
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasPrefix(name, "report_") || !strings.HasSuffix(name, ".json") {
			continue
		}
		// Extract unix timestamp from filename.
		tsStr := strings.TrimSuffix(strings.TrimPrefix(name, "report_"), ".json")
		unix, err := strconv.ParseInt(tsStr, 10, 64)
		if err != nil {
			continue
		}
		files = append(files, reportFile{name: name, ts: time.Unix(unix, 0)})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].ts.Before(files[j].ts)
	})

	return files, nil
}

func (s *FS) prune(dir string) error {
	files, err := listFiles(dir)
	if err != nil {
		return err
	}

	if len(files) <= s.maxFiles {
		return nil
	}

	// Remove oldest files.
	for _, f := range files[:len(files)-s.maxFiles] {
		if err := os.Remove(filepath.Join(dir, f.name)); err != nil {
			return fmt.Errorf("pruning report file %s: %w", f.name, err)
		}
	}

	return nil
}

var _ report.Store = (*FS)(nil)
