// Package eod writes a per-day CSV of what the bot decided, read back from the
// decision journal.
package eod

import (
	"bufio"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"agent-team-trader/internal/tradelog"
	"agent-team-trader/internal/types"
)

type eodSummarizer struct{}

// aggRow is one symbol's cycles for the day.
type aggRow struct {
	Symbol     string
	Cycles     int
	Executed   int
	Alerted    int
	Blocked    int
	Failed     int
	BuySize    decimal.Decimal
	SellSize   decimal.Decimal
	confidence float64
}

func (r *aggRow) add(e tradelog.DecisionEntry) {
	r.Cycles++
	r.confidence += e.Confidence
	switch types.Outcome(e.Outcome) {
	case types.OutcomeExecuted:
		r.Executed++
		size, err := decimal.NewFromString(e.Size)
		if err != nil {
			break
		}
		if types.Direction(e.Direction) == types.DirectionSell {
			r.SellSize = r.SellSize.Add(size)
		} else {
			r.BuySize = r.BuySize.Add(size)
		}
	case types.OutcomeAlerted:
		r.Alerted++
	case types.OutcomeBlocked:
		r.Blocked++
	case types.OutcomeFailed:
		r.Failed++
	}
}

func (r *aggRow) avgConfidence() float64 {
	if r.Cycles == 0 {
		return 0
	}
	return r.confidence / float64(r.Cycles)
}

func (r *aggRow) record() []string {
	return []string{
		r.Symbol,
		strconv.Itoa(r.Cycles),
		strconv.Itoa(r.Executed),
		strconv.Itoa(r.Alerted),
		strconv.Itoa(r.Blocked),
		strconv.Itoa(r.Failed),
		r.BuySize.String(),
		r.SellSize.String(),
		fmt.Sprintf("%.4f", r.avgConfidence()),
	}
}

func eodCSVPath(t time.Time) string {
	return filepath.Join(tradelog.Dir(), "eod", t.UTC().Format("2006-01-02")+".csv")
}

// SummarizeDay returns "" without error when the day has no cycles.
func (s *eodSummarizer) SummarizeDay(ctx context.Context, day time.Time) (string, error) {
	aggs, err := readCycles(ctx, tradelog.DecisionsFile(day))
	if err != nil || len(aggs) == 0 {
		return "", err
	}

	outPath := eodCSVPath(day)
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return "", err
	}
	out, err := os.Create(outPath)
	if err != nil {
		return "", err
	}
	if err := writeReport(out, aggs); err != nil {
		return "", err
	}
	return outPath, nil
}

// writeReport writes one row per symbol, sorted, then the TOTAL row, and
// closes out. A failed close is reported like a failed write.
func writeReport(out io.WriteCloser, aggs map[string]*aggRow) (err error) {
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
	}()

	keys := make([]string, 0, len(aggs))
	for k := range aggs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	w := csv.NewWriter(out)
	headers := []string{"symbol", "cycles", "executed", "alerted", "blocked", "failed", "buy_size", "sell_size", "avg_confidence"}
	if err := w.Write(headers); err != nil {
		return err
	}
	total := &aggRow{Symbol: "TOTAL"}
	for _, k := range keys {
		r := aggs[k]
		if err := w.Write(r.record()); err != nil {
			return err
		}
		total.Cycles += r.Cycles
		total.Executed += r.Executed
		total.Alerted += r.Alerted
		total.Blocked += r.Blocked
		total.Failed += r.Failed
		total.BuySize = total.BuySize.Add(r.BuySize)
		total.SellSize = total.SellSize.Add(r.SellSize)
		total.confidence += r.confidence
	}
	if err := w.Write(total.record()); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

// readCycles aggregates the cycle summaries of a journal file. Stage lines and
// unparsable lines are skipped.
func readCycles(ctx context.Context, path string) (map[string]*aggRow, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	aggs := map[string]*aggRow{}
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var e tradelog.DecisionEntry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil || e.Kind != "cycle" {
			continue
		}
		row := aggs[e.Symbol]
		if row == nil {
			row = &aggRow{Symbol: e.Symbol}
			aggs[e.Symbol] = row
		}
		row.add(e)
	}
	return aggs, sc.Err()
}
