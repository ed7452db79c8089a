package types

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAgentDecisionClampsConfidence(t *testing.T) {
	assert.Equal(t, 1.0, NewAgentDecision(SourceMarket, StageTechnical, SignalBuy, 1.7, "").Confidence())
	assert.Equal(t, 0.0, NewAgentDecision(SourceMarket, StageTechnical, SignalBuy, -0.2, "").Confidence())
}

func TestWithCreatedAtOverridesClock(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	d := NewAgentDecision(SourceExecutor, StageExecution, SignalBuy, 1, "filled", WithCreatedAt(at))
	assert.True(t, d.CreatedAt().Equal(at))
}

func TestAgentDecisionContextIsCopied(t *testing.T) {
	in := map[string]any{"symbol": "cmt_btcusdt"}
	d := NewAgentDecision(SourceMarket, StageTechnical, SignalBuy, 0.8, "up", WithContext(in, nil))

	in["symbol"] = "changed"
	assert.Equal(t, "cmt_btcusdt", d.Input()["symbol"])

	got := d.Input()
	got["symbol"] = "mutated"
	assert.Equal(t, "cmt_btcusdt", d.Input()["symbol"])
}

func TestAILogTruncatesExplanation(t *testing.T) {
	long := strings.Repeat("x", 1500)
	d := NewAgentDecision(SourceRisk, StageRisk, SignalApprove, 0.9, long,
		WithContext(map[string]any{"symbol": "cmt_btcusdt"}, map[string]any{"risk_status": "APPROVE"}),
		WithRecommendedSize(decimal.RequireFromString("0.0002")))

	log := d.AILog("gpt-5.2", "")
	assert.Len(t, log.Explanation, MaxExplanationLen)
	assert.Equal(t, StageRisk, log.Stage)
	assert.Equal(t, "gpt-5.2", log.Model)
	assert.Equal(t, "approve", log.Output["signal"])
	assert.Equal(t, SourceRisk, log.Output["agent"])
	assert.Equal(t, "APPROVE", log.Output["risk_status"])
	assert.Equal(t, "0.0002", log.Output["recommended_size"])
	assert.Empty(t, log.OrderID)
}

func TestTruncateKeepsRunesWhole(t *testing.T) {
	assert.Equal(t, "héé", Truncate("héééé", 3))
	assert.Equal(t, "abc", Truncate("abc", 10))
	assert.Equal(t, "", Truncate("abc", 0))
}

func TestAgentDecisionMarshalJSON(t *testing.T) {
	d := NewAgentDecision(SourceSentiment, StageSentiment, SignalBullish, 0.6, "funding negative")
	b, err := json.Marshal(d)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(b, &m))
	assert.Equal(t, "SentimentAgent", m["source"])
	assert.Equal(t, "bullish", m["signal"])
	assert.NotContains(t, m, "recommended_size")
}

func TestDepthBestLevels(t *testing.T) {
	var empty Depth
	_, ok := empty.BestBid()
	assert.False(t, ok)

	d := Depth{Bids: []Level{{Price: 100, Size: 1}}, Asks: []Level{{Price: 101, Size: 2}}}
	bid, ok := d.BestBid()
	require.True(t, ok)
	assert.Equal(t, 100.0, bid)
	ask, ok := d.BestAsk()
	require.True(t, ok)
	assert.Equal(t, 101.0, ask)
}
