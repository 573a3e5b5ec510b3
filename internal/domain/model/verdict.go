package model

import "fmt"

type Tool string

const (
	ToolOutreach  Tool = "outreach"
	ToolSalesloft Tool = "salesloft"
	ToolBoth      Tool = "both"
	ToolNone      Tool = "none"
)

type SignalType string

const (
	SignalRequired  SignalType = "required"
	SignalPreferred SignalType = "preferred"
	SignalMention   SignalType = "mention"
	SignalNone      SignalType = "none"
)

type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// AnalysisVerdict is the classifier's structured answer for one posting.
// It is ephemeral: consumed by the dedup/merge step, never persisted as-is.
type AnalysisVerdict struct {
	UsesTool     bool       `json:"uses_tool"`
	ToolDetected Tool       `json:"tool_detected"`
	SignalType   SignalType `json:"signal_type"`
	Confidence   Confidence `json:"confidence"`
	Context      string     `json:"context"`
}

// Validate rejects verdicts whose enum fields fall outside the schema.
// The classifier adapters call this at the response boundary so malformed
// model output surfaces as an analysis failure, not as undefined fields.
func (v *AnalysisVerdict) Validate() error {
	switch v.ToolDetected {
	case ToolOutreach, ToolSalesloft, ToolBoth, ToolNone:
	default:
		return fmt.Errorf("unknown tool %q", v.ToolDetected)
	}
	switch v.SignalType {
	case SignalRequired, SignalPreferred, SignalMention, SignalNone:
	default:
		return fmt.Errorf("unknown signal type %q", v.SignalType)
	}
	switch v.Confidence {
	case ConfidenceHigh, ConfidenceMedium, ConfidenceLow:
	default:
		return fmt.Errorf("unknown confidence %q", v.Confidence)
	}
	if v.UsesTool && v.ToolDetected == ToolNone {
		return fmt.Errorf("uses_tool set but no tool detected")
	}
	return nil
}
