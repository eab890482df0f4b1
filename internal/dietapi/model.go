package dietapi

import (
	"bytes"
	"encoding/json"

	"github.com/syedazmehaider/maxlife-diet-planner/internal/patient"
)

// ExtractResponse is the body returned by POST /api/extract.
// Findings is kept verbatim ({labs, meds, diagnosis} by contract).
type ExtractResponse struct {
	RawText  string          `json:"raw_text"`
	Findings json.RawMessage `json:"findings,omitempty"`
}

// DisplayText is what the form shows after extraction: the raw OCR text
// when present, otherwise the findings pretty-printed with two spaces.
func (r *ExtractResponse) DisplayText() string {
	if r.RawText != "" {
		return r.RawText
	}
	if len(r.Findings) == 0 || string(r.Findings) == "null" {
		return ""
	}
	var out bytes.Buffer
	if err := json.Indent(&out, r.Findings, "", "  "); err != nil {
		return string(r.Findings)
	}
	return out.String()
}

// GenerateRequest is the body of POST /api/generate-diet.
type GenerateRequest struct {
	Patient       patient.Patient     `json:"patient"`
	ExtractedText string              `json:"extracted_text"`
	Constraints   patient.Constraints `json:"constraints"`
}

// DietPlan is the opaque plan returned by the generation endpoint. Raw holds
// the full response so fields beyond the contract are not lost.
type DietPlan struct {
	Markdown   string          `json:"diet_chart_markdown"`
	HTML       string          `json:"diet_chart_html"`
	Structured json.RawMessage `json:"structured,omitempty"`
	Raw        json.RawMessage `json:"-"`
}

// StructuredText pretty-prints the structured part of the plan, if any.
func (d *DietPlan) StructuredText() string {
	if len(d.Structured) == 0 || string(d.Structured) == "null" {
		return ""
	}
	var out bytes.Buffer
	if err := json.Indent(&out, d.Structured, "", "  "); err != nil {
		return string(d.Structured)
	}
	return out.String()
}
