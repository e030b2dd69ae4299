package notify

import (
	"context"
	"log/slog"

	"github.com/star/skywindow/internal/catalog"
	"github.com/star/skywindow/internal/report"
)

// Log is a dry-run sender that only logs what would have been sent.
type Log struct {
	logger *slog.Logger
}

// NewLog creates a dry-run sender.
func NewLog(logger *slog.Logger) *Log {
	return &Log{logger: logger.With("component", "notify")}
}

// Send implements report.Sender.
func (l *Log) Send(ctx context.Context, user catalog.User, reports []report.LocationReport, attachments map[string][]byte) error {
	for _, r := range reports {
		l.logger.InfoContext(ctx, "report ready",
			"user_id", user.ID,
			"email", user.Email,
			"site_id", r.Site.ID,
			"window", r.Window,
			"observing_index", r.ObservingIndex,
			"objects", len(r.Objects),
			"warnings", len(r.Warnings),
		)
	}
	l.logger.DebugContext(ctx, "attachments", "user_id", user.ID, "count", len(attachments))
	return nil
}

var _ report.Sender = (*Log)(nil)
