//go:build !integration

package classifier

import (
	"errors"
	"testing"

	"salestool-radar/internal/domain"
	"salestool-radar/internal/domain/model"
)

func TestParseVerdict(t *testing.T) {
	t.Run("plain object", func(t *testing.T) {
		v, err := parseVerdict(`{"uses_tool":true,"tool_detected":"outreach","signal_type":"required","confidence":"high","context":"Outreach.io experience required"}`)
		if err != nil {
			t.Fatalf("parseVerdict: %v", err)
		}
		if !v.UsesTool || v.ToolDetected != model.ToolOutreach || v.SignalType != model.SignalRequired {
			t.Errorf("verdict: %+v", v)
		}
	})

	t.Run("markdown fences stripped", func(t *testing.T) {
		raw := "```json\n{\"uses_tool\":false,\"tool_detected\":\"none\",\"signal_type\":\"none\",\"confidence\":\"medium\",\"context\":\"\"}\n```"
		v, err := parseVerdict(raw)
		if err != nil {
			t.Fatalf("parseVerdict: %v", err)
		}
		if v.UsesTool || v.ToolDetected != model.ToolNone {
			t.Errorf("verdict: %+v", v)
		}
	})

	t.Run("enum values normalized", func(t *testing.T) {
		v, err := parseVerdict(`{"uses_tool":true,"tool_detected":" Salesloft ","signal_type":"PREFERRED","confidence":"Low","context":"x"}`)
		if err != nil {
			t.Fatalf("parseVerdict: %v", err)
		}
		if v.ToolDetected != model.ToolSalesloft || v.SignalType != model.SignalPreferred || v.Confidence != model.ConfidenceLow {
			t.Errorf("verdict: %+v", v)
		}
	})

	t.Run("malformed responses", func(t *testing.T) {
		cases := map[string]string{
			"no json":               "the posting does not mention any tool",
			"truncated":             `{"uses_tool":true,"tool_detected"`,
			"unknown tool":          `{"uses_tool":true,"tool_detected":"hubspot","signal_type":"mention","confidence":"low","context":""}`,
			"unknown signal":        `{"uses_tool":true,"tool_detected":"outreach","signal_type":"maybe","confidence":"low","context":""}`,
			"unknown confidence":    `{"uses_tool":false,"tool_detected":"none","signal_type":"none","confidence":"sure","context":""}`,
			"positive without tool": `{"uses_tool":true,"tool_detected":"none","signal_type":"mention","confidence":"low","context":""}`,
		}
		for name, raw := range cases {
			if _, err := parseVerdict(raw); !errors.Is(err, domain.ErrAnalysisFailed) {
				t.Errorf("%s: expected ErrAnalysisFailed, got %v", name, err)
			}
		}
	})
}
