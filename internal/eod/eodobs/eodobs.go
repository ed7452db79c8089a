package eodobs

import (
	"context"
	"time"

	"agent-team-trader/internal/interfaces"
	"agent-team-trader/internal/logger"
	"agent-team-trader/internal/trace"
)

type observableEodSummarizer struct {
	summarizer interfaces.EodSummarizer
}

var _ interfaces.EodSummarizer = (*observableEodSummarizer)(nil)

func Wrap(summarizer interfaces.EodSummarizer) interfaces.EodSummarizer {
	return &observableEodSummarizer{
		summarizer: summarizer,
	}
}

func (oes *observableEodSummarizer) SummarizeDay(ctx context.Context, day time.Time) (string, error) {
	ctx, span := trace.StartSpan(ctx, "eod.SummarizeDay")
	defer span.End()

	date := day.UTC().Format("2006-01-02")
	logger.InfoSkip(ctx, 1, "Starting daily summary",
		"date", date,
	)

	csvPath, err := oes.summarizer.SummarizeDay(ctx, day)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Daily summary failed", err,
			"date", date,
		)
		return "", err
	}

	if csvPath == "" {
		logger.InfoSkip(ctx, 1, "No cycles found for daily summary",
			"date", date,
		)
		return "", nil
	}

	logger.InfoSkip(ctx, 1, "Daily summary written",
		"date", date,
		"csv_path", csvPath,
	)

	return csvPath, nil
}
