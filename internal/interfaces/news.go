package interfaces

import (
	"context"

	"agent-team-trader/internal/types"
)

// HeadlineSource supplies recent headlines for a symbol. It reports no errors:
// an empty slice means nothing could be fetched.
type HeadlineSource interface {
	Headlines(ctx context.Context, symbol string) []types.NewsHeadline
}
