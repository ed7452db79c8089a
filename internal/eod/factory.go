package eod

import (
	"agent-team-trader/internal/interfaces"
)

func NewSummarizer() interfaces.EodSummarizer {
	return &eodSummarizer{}
}
