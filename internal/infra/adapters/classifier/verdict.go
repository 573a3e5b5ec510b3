package classifier

import (
	"encoding/json"
	"fmt"
	"strings"

	"salestool-radar/internal/domain"
	"salestool-radar/internal/domain/model"
	"salestool-radar/internal/domain/ports/adapter"
)

const systemPrompt = `You are a sales-intelligence classifier. You read one job posting and decide whether it signals that the hiring company uses Outreach (outreach.io) or Salesloft as a sales engagement platform.

Respond with a single JSON object, no prose, with exactly these fields:
{
  "uses_tool": boolean,
  "tool_detected": "outreach" | "salesloft" | "both" | "none",
  "signal_type": "required" | "preferred" | "mention" | "none",
  "confidence": "high" | "medium" | "low",
  "context": "short quote or phrase from the posting supporting the verdict"
}

Rules:
- "required" means the posting lists the tool as a requirement, "preferred" a nice-to-have, "mention" any other reference.
- Generic words like "outreach efforts" or "sales outreach" are NOT the product Outreach; only count references to the actual software.
- If no tool is signaled: uses_tool=false, tool_detected="none", signal_type="none".`

func userPrompt(p adapter.PostingText) string {
	var b strings.Builder
	b.WriteString("Company: ")
	b.WriteString(p.Company)
	b.WriteString("\nTitle: ")
	b.WriteString(p.Title)
	b.WriteString("\n\nJob description:\n")
	b.WriteString(p.Description)
	return b.String()
}

// wireVerdict mirrors the JSON contract with the model. Fields are kept
// as strings so enum validation happens in one place, on our side.
type wireVerdict struct {
	UsesTool     bool   `json:"uses_tool"`
	ToolDetected string `json:"tool_detected"`
	SignalType   string `json:"signal_type"`
	Confidence   string `json:"confidence"`
	Context      string `json:"context"`
}

// parseVerdict validates raw model output against the verdict schema.
// Anything malformed becomes an analysis failure at this boundary instead
// of leaking partial fields downstream.
func parseVerdict(raw string) (*model.AnalysisVerdict, error) {
	// Models occasionally wrap the object in markdown fences or prose;
	// take the outermost braces.
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("%w: no JSON object in classifier response", domain.ErrAnalysisFailed)
	}

	var w wireVerdict
	if err := json.Unmarshal([]byte(raw[start:end+1]), &w); err != nil {
		return nil, fmt.Errorf("%w: decode verdict: %v", domain.ErrAnalysisFailed, err)
	}

	v := &model.AnalysisVerdict{
		UsesTool:     w.UsesTool,
		ToolDetected: model.Tool(strings.ToLower(strings.TrimSpace(w.ToolDetected))),
		SignalType:   model.SignalType(strings.ToLower(strings.TrimSpace(w.SignalType))),
		Confidence:   model.Confidence(strings.ToLower(strings.TrimSpace(w.Confidence))),
		Context:      strings.TrimSpace(w.Context),
	}
	if err := v.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrAnalysisFailed, err)
	}
	return v, nil
}
