package reportstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/star/skywindow/internal/lightpollution"
	"github.com/star/skywindow/internal/report"
)

func sample(user, site string, generated time.Time) report.LocationReport {
	return report.LocationReport{
		UserID:      user,
		Site:        lightpollution.Site{ID: site, Name: site, Bortle: 4, NELM: 6.3},
		Window:      generated.Add(9 * time.Hour).Truncate(time.Hour),
		Warnings:    []string{"Partly cloudy: 60% cloud cover expected."},
		GeneratedAt: generated,
	}
}

func TestSaveAndLatest(t *testing.T) {
	s := NewFS(t.TempDir(), 3)
	ctx := context.Background()
	base := time.Date(2024, 10, 5, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		if err := s.Save(ctx, sample("ada", "berlin", base.Add(time.Duration(i)*time.Hour))); err != nil {
			t.Fatal(err)
		}
	}

	got, err := s.Latest("ada", "berlin")
	if err != nil {
		t.Fatal(err)
	}
	if !got.GeneratedAt.Equal(base.Add(2 * time.Hour)) {
		t.Errorf("latest generated at %v, want %v", got.GeneratedAt, base.Add(2*time.Hour))
	}
	if got.Site.NELM != 6.3 || len(got.Warnings) != 1 {
		t.Errorf("round trip lost fields: %+v", got)
	}
}

func TestPruneKeepsNewest(t *testing.T) {
	dir := t.TempDir()
	s := NewFS(dir, 2)
	ctx := context.Background()
	base := time.Date(2024, 10, 5, 12, 0, 0, 0, time.UTC)

	// Saved out of order; pruning goes by the timestamp in the name.
	for _, h := range []int{3, 1, 4, 2} {
		if err := s.Save(ctx, sample("ada", "berlin", base.Add(time.Duration(h)*time.Hour))); err != nil {
			t.Fatal(err)
		}
	}

	files, err := listFiles(filepath.Join(dir, "ada", "berlin"))
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 2 {
		t.Fatalf("kept %d files, want 2", len(files))
	}
	if !files[0].ts.Equal(base.Add(3*time.Hour)) || !files[1].ts.Equal(base.Add(4*time.Hour)) {
		t.Errorf("kept %v and %v, want the two newest", files[0].ts, files[1].ts)
	}
}

func TestSitesAreIndependent(t *testing.T) {
	s := NewFS(t.TempDir(), 1)
	ctx := context.Background()
	now := time.Date(2024, 10, 5, 12, 0, 0, 0, time.UTC)

	if err := s.Save(ctx, sample("ada", "berlin", now)); err != nil {
		t.Fatal(err)
	}
	if err := s.Save(ctx, sample("ada", "usno", now.Add(time.Hour))); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Latest("ada", "berlin"); err != nil {
		t.Errorf("berlin report pruned by another site: %v", err)
	}
}

func TestLatestNotFound(t *testing.T) {
	s := NewFS(t.TempDir(), 3)
	if _, err := s.Latest("ada", "berlin"); !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestRejectsUnsafeIDs(t *testing.T) {
	dir := t.TempDir()
	s := NewFS(dir, 3)
	for _, id := range []string{"..", "../etc", "a/b", ""} {
		if _, err := s.Latest(id, "site"); !errors.Is(err, ErrInvalidID) {
			t.Errorf("Latest(%q) error = %v, want invalid id", id, err)
		}
	}
	err := s.Save(context.Background(), sample("ada", "../../x", time.Now()))
	if !errors.Is(err, ErrInvalidID) {
		t.Fatal("expected error for unsafe site id")
	}
	if _, statErr := os.Stat(filepath.Join(filepath.Dir(dir), "x")); statErr == nil {
		t.Error("report written outside the store")
	}
}

func TestIgnoresForeignFiles(t *testing.T) {
	dir := t.TempDir()
	siteDir := filepath.Join(dir, "ada", "berlin")
	if err := os.MkdirAll(siteDir, 0755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"notes.txt", "report_abc.json", ".report_1.json.tmp"} {
		if err := os.WriteFile(filepath.Join(siteDir, name), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	files, err := listFiles(siteDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 0 {
		t.Errorf("listFiles = %v, want none", files)
	}
}
