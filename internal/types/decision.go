package types

import (
	"encoding/json"
	"maps"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// MaxExplanationLen caps the rationale carried in a compliance record.
const MaxExplanationLen = 1000

// AgentDecision is one stage's output. It is built once through
// NewAgentDecision and never mutated afterwards.
type AgentDecision struct {
	source          string
	stage           string
	signal          SignalKind
	confidence      float64
	rationale       string
	input           map[string]any
	output          map[string]any
	recommendedSize decimal.NullDecimal
	createdAt       time.Time
}

type DecisionOption func(*AgentDecision)

// WithContext attaches the input the stage saw and the structured output it derived.
func WithContext(input, output map[string]any) DecisionOption {
	return func(d *AgentDecision) {
		d.input = maps.Clone(input)
		d.output = maps.Clone(output)
	}
}

// WithRecommendedSize sets the position size a risk stage allows.
func WithRecommendedSize(size decimal.Decimal) DecisionOption {
	return func(d *AgentDecision) {
		d.recommendedSize = decimal.NewNullDecimal(size)
	}
}

func WithCreatedAt(t time.Time) DecisionOption {
	return func(d *AgentDecision) {
		d.createdAt = t
	}
}

// NewAgentDecision builds a decision. Confidence is clamped to [0,1].
func NewAgentDecision(source, stage string, signal SignalKind, confidence float64, rationale string, opts ...DecisionOption) AgentDecision {
	d := AgentDecision{
		source:     source,
		stage:      stage,
		signal:     signal,
		confidence: ClampUnit(confidence),
		rationale:  rationale,
		createdAt:  time.Now().UTC(),
	}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

func (d AgentDecision) Source() string       { return d.source }
func (d AgentDecision) Stage() string        { return d.stage }
func (d AgentDecision) Signal() SignalKind   { return d.signal }
func (d AgentDecision) Confidence() float64  { return d.confidence }
func (d AgentDecision) Rationale() string    { return d.rationale }
func (d AgentDecision) CreatedAt() time.Time { return d.createdAt }

// Input returns a copy of the context the stage was given.
func (d AgentDecision) Input() map[string]any { return maps.Clone(d.input) }

// Output returns a copy of the structured stage output.
func (d AgentDecision) Output() map[string]any { return maps.Clone(d.output) }

// RecommendedSize is only set on risk decisions.
func (d AgentDecision) RecommendedSize() (decimal.Decimal, bool) {
	return d.recommendedSize.Decimal, d.recommendedSize.Valid
}

// AILog converts the decision to a compliance record for the given model label.
func (d AgentDecision) AILog(model, orderID string) AILog {
	out := map[string]any{
		"signal":     string(d.signal),
		"confidence": d.confidence,
		"agent":      d.source,
	}
	for k, v := range d.output {
		out[k] = v
	}
	if size, ok := d.RecommendedSize(); ok {
		out["recommended_size"] = size.String()
	}
	in := d.Input()
	if in == nil {
		in = map[string]any{}
	}
	return AILog{
		Stage:       d.stage,
		Model:       model,
		Input:       in,
		Output:      out,
		Explanation: Truncate(d.rationale, MaxExplanationLen),
		OrderID:     orderID,
	}
}

type decisionJSON struct {
	Source          string         `json:"source"`
	Stage           string         `json:"stage"`
	Signal          SignalKind     `json:"signal"`
	Confidence      float64        `json:"confidence"`
	Rationale       string         `json:"rationale"`
	Input           map[string]any `json:"input,omitempty"`
	Output          map[string]any `json:"output,omitempty"`
	RecommendedSize *string        `json:"recommended_size,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
}

func (d AgentDecision) MarshalJSON() ([]byte, error) {
	v := decisionJSON{
		Source:     d.source,
		Stage:      d.stage,
		Signal:     d.signal,
		Confidence: d.confidence,
		Rationale:  d.rationale,
		Input:      d.input,
		Output:     d.output,
		CreatedAt:  d.createdAt,
	}
	if size, ok := d.RecommendedSize(); ok {
		s := size.String()
		v.RecommendedSize = &s
	}
	return json.Marshal(v)
}

// ClampUnit bounds v to [0,1]. NaN maps to 0.
func ClampUnit(v float64) float64 {
	switch {
	case v != v:
		return 0
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
