package interfaces

import (
	"context"
	"time"
)

// EodSummarizer condenses one UTC day of the decision journal into a CSV report.
type EodSummarizer interface {
	SummarizeDay(ctx context.Context, day time.Time) (csvPath string, err error)
}
