package tradelog

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"agent-team-trader/internal/types"
)

var mu sync.Mutex

const timeLayout = "2006-01-02 15:04:05"

// TradeEntry is one order the bot placed, written to logs/YYYY-MM-DD.txt.
type TradeEntry struct {
	Time, CycleID, Symbol, Side, Size, OrderID, Reason string
	Confidence                                         float64
	Extra                                              map[string]any `json:"extra,omitempty"`
}

// DecisionEntry is one line of logs/decisions/YYYY-MM-DD.txt: either a stage
// decision (Kind "stage") or the cycle summary (Kind "cycle").
type DecisionEntry struct {
	Time       string
	Kind       string
	CycleID    string
	Symbol     string
	Source     string `json:",omitempty"`
	Stage      string `json:",omitempty"`
	Signal     string `json:",omitempty"`
	Action     string `json:",omitempty"`
	Direction  string `json:",omitempty"`
	Outcome    string `json:",omitempty"`
	Size       string `json:",omitempty"`
	OrderID    string `json:",omitempty"`
	Confidence float64
	Reason     string
	Extra      map[string]any `json:",omitempty"`
}

func logDir() string {
	if v := os.Getenv("TRADER_LOG_DIR"); v != "" {
		return v
	}
	return "logs"
}

func dailyFilepath(t time.Time) string {
	return filepath.Join(logDir(), t.UTC().Format("2006-01-02")+".txt")
}

func decisionsFilepath(t time.Time) string {
	return filepath.Join(logDir(), "decisions", t.UTC().Format("2006-01-02")+".txt")
}

// Dir is the root of the local logs, TRADER_LOG_DIR or "logs".
func Dir() string { return logDir() }

// DecisionsFile is the decision journal for the UTC day containing t.
func DecisionsFile(t time.Time) string { return decisionsFilepath(t) }

func appendLine(p string, v any) error {
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(p, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(f, string(b))
	return err
}

func AppendTrade(e TradeEntry) error {
	mu.Lock()
	defer mu.Unlock()
	now := time.Now().UTC()
	e.Time = now.Format(timeLayout)
	return appendLine(dailyFilepath(now), e)
}

func AppendDecision(e DecisionEntry) error {
	mu.Lock()
	defer mu.Unlock()
	now := time.Now().UTC()
	e.Time = now.Format(timeLayout)
	return appendLine(decisionsFilepath(now), e)
}

// RecordCycle journals a whole cycle: each stage decision, the gate's hold
// record if any, the summary, and a trade line when an order went through.
func RecordCycle(td *types.TeamDecision) error {
	for _, d := range td.Decisions {
		if err := AppendDecision(stageEntry(td, d)); err != nil {
			return err
		}
	}
	if td.HoldRecord != nil {
		if err := AppendDecision(stageEntry(td, *td.HoldRecord)); err != nil {
			return err
		}
	}
	if err := AppendDecision(DecisionEntry{
		Kind:       "cycle",
		CycleID:    td.CycleID,
		Symbol:     td.Symbol,
		Action:     string(td.Action),
		Direction:  string(td.Direction),
		Outcome:    string(td.Outcome),
		Size:       td.ApprovedSize.String(),
		OrderID:    td.OrderID,
		Confidence: td.Confidence,
		Reason:     td.Reasoning,
	}); err != nil {
		return err
	}
	if td.Outcome != types.OutcomeExecuted {
		return nil
	}
	return AppendTrade(TradeEntry{
		CycleID:    td.CycleID,
		Symbol:     td.Symbol,
		Side:       string(td.Direction),
		Size:       td.ApprovedSize.String(),
		OrderID:    td.OrderID,
		Reason:     td.Reasoning,
		Confidence: td.Confidence,
	})
}

func stageEntry(td *types.TeamDecision, d types.AgentDecision) DecisionEntry {
	e := DecisionEntry{
		Kind:       "stage",
		CycleID:    td.CycleID,
		Symbol:     td.Symbol,
		Source:     d.Source(),
		Stage:      d.Stage(),
		Signal:     string(d.Signal()),
		Confidence: d.Confidence(),
		Reason:     d.Rationale(),
		Extra:      d.Output(),
	}
	if size, ok := d.RecommendedSize(); ok {
		e.Size = size.String()
	}
	return e
}

func CompressOlder(retentionDays int) error {
	if retentionDays <= 0 {
		return nil
	}
	root := logDir()
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	return filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() || filepath.Ext(p) != ".txt" {
			return nil
		}
		info, err := d.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			return nil
		}
		gz := p + ".gz"
		// an earlier run already compressed it
		if _, err := os.Stat(gz); err == nil {
			_ = os.Remove(p)
			return nil
		}
		if err := gzipFile(p, gz); err == nil {
			_ = os.Remove(p)
		}
		return nil
	})
}

func gzipFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	gw := gzip.NewWriter(out)
	_, copyErr := io.Copy(gw, in)
	closeErr := gw.Close()
	if err := out.Close(); err != nil && closeErr == nil {
		closeErr = err
	}
	if copyErr != nil {
		_ = os.Remove(dst)
		return copyErr
	}
	return closeErr
}
