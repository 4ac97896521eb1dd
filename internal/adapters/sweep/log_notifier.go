package sweep

import (
	"context"

	"github.com/hsdfat8/assettrack/internal/logger"
)

// LogNotifier writes notices to the structured log
type LogNotifier struct {
	logger logger.Logger
}

// NewLogNotifier creates a notifier that only logs
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{logger: logger.New("overdue-notice", "")}
}

func (n *LogNotifier) Name() string { return "log" }

func (n *LogNotifier) Notify(ctx context.Context, notice Notice) error {
	n.logger.Warnw("Maintenance plan overdue",
		"plan_id", notice.PlanID,
		"plan_name", notice.PlanName,
		"transformer_id", notice.TransformerID,
		"assigned_to", notice.AssignedTo,
		"next_due", notice.NextDue.Format("2006-01-02"),
		"days_overdue", notice.DaysOverdue,
	)
	return ctx.Err()
}
