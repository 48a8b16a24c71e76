package notify

import (
	"context"
	"log/slog"

	"github.com/garnizeh/bidboard/pkg/models"
)

// LogNotifier writes hire notifications to a structured logger. It is the
// development default and always succeeds.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

func (l *LogNotifier) Notify(ctx context.Context, n models.HireNotification) error {
	l.logger.InfoContext(ctx, "hire notification",
		slog.Int64("job_id", n.JobID),
		slog.String("job_title", n.JobTitle),
		slog.Int64("application_id", n.ApplicationID),
		slog.Int64("freelancer_id", n.FreelancerID),
		slog.String("bid_price", n.BidPrice.StringFixed(2)),
		slog.Time("hired_at", n.HiredAt),
	)
	return nil
}
