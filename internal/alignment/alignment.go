// Package alignment carries the field mappings shown in the results panel
// and the report built from them. Confidence values are display literals.
package alignment

import (
	"fmt"
	"math"
	"strings"
)

// Rule labels how a source field reaches its target field.
type Rule string

const (
	DirectMap    Rule = "DIRECT_MAP"
	Transform    Rule = "TRANSFORM"
	ManualReview Rule = "MANUAL_REVIEW"
)

// DefaultThreshold is the confidence a mapping needs to be applied without review.
const DefaultThreshold = 0.8

// Entry pairs one ANPR field with one German registry field.
type Entry struct {
	SourceField string  `json:"source_field" yaml:"source_field"`
	TargetField string  `json:"target_field" yaml:"target_field"`
	Confidence  float64 `json:"confidence" yaml:"confidence"`
	Rule        Rule    `json:"rule" yaml:"rule"`
}

// Percent renders the confidence as a whole percentage.
func (e Entry) Percent() string {
	return fmt.Sprintf("%d%%", int(math.Round(e.Confidence*100)))
}

func (e Entry) String() string {
	return fmt.Sprintf("%s → %s (%s, %s)", e.SourceField, e.TargetField, e.Percent(), e.Rule)
}

// Results returns the six mappings of the Italy to Germany negotiation.
func Results() []Entry {
	return []Entry{
		{SourceField: "cognome", TargetField: "familienname", Confidence: 0.95, Rule: DirectMap},
		{SourceField: "nome", TargetField: "vorname", Confidence: 0.93, Rule: DirectMap},
		{SourceField: "data_nascita", TargetField: "geburtsdatum", Confidence: 0.87, Rule: Transform},
		{SourceField: "luogo_nascita", TargetField: "geburtsort", Confidence: 0.91, Rule: DirectMap},
		{SourceField: "sesso", TargetField: "geschlecht", Confidence: 0.89, Rule: Transform},
		{SourceField: "codice_fiscale", TargetField: "staatsangehoerigkeit", Confidence: 0.65, Rule: ManualReview},
	}
}

// RuleFor classifies a confidence score.
func RuleFor(confidence float64) Rule {
	switch {
	case confidence >= 0.9:
		return DirectMap
	case confidence >= 0.7:
		return Transform
	default:
		return ManualReview
	}
}

// Band is a confidence bucket used by the report.
type Band string

const (
	BandHigh   Band = "high"
	BandMedium Band = "medium"
	BandLow    Band = "low"
)

// BandFor buckets a confidence score: high >= 0.8, medium >= 0.6, low below.
func BandFor(confidence float64) Band {
	switch {
	case confidence >= 0.8:
		return BandHigh
	case confidence >= 0.6:
		return BandMedium
	default:
		return BandLow
	}
}

// Report summarises a negotiation run.
type Report struct {
	RunID              string            `json:"run_id" yaml:"run_id"`
	Route              string            `json:"route" yaml:"route"`
	OverallConfidence  float64           `json:"overall_confidence" yaml:"overall_confidence"`
	Threshold          float64           `json:"threshold" yaml:"threshold"`
	Bands              map[Band]int      `json:"bands" yaml:"bands"`
	TransformationMap  map[string]string `json:"transformation_map" yaml:"transformation_map"`
	Interoperable      bool              `json:"interoperable" yaml:"interoperable"`
	Alignments         []Entry           `json:"alignments" yaml:"alignments"`
	RequiresReviewList []string          `json:"requires_review" yaml:"requires_review"`
}

// NewReport builds a report over entries. A non-positive threshold falls
// back to DefaultThreshold.
func NewReport(runID, route string, entries []Entry, threshold float64) Report {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	r := Report{
		RunID:              runID,
		Route:              route,
		Threshold:          threshold,
		Bands:              map[Band]int{BandHigh: 0, BandMedium: 0, BandLow: 0},
		TransformationMap:  map[string]string{},
		Alignments:         append([]Entry(nil), entries...),
		RequiresReviewList: []string{},
	}
	if len(entries) == 0 {
		return r
	}
	sum := 0.0
	for _, e := range entries {
		sum += e.Confidence
		r.Bands[BandFor(e.Confidence)]++
		if e.Confidence >= threshold {
			r.TransformationMap[e.SourceField] = e.TargetField
		} else {
			r.RequiresReviewList = append(r.RequiresReviewList, e.SourceField)
		}
	}
	r.OverallConfidence = sum / float64(len(entries))
	r.Interoperable = r.OverallConfidence >= DefaultThreshold
	return r
}

// Coverage is the number of mappings applied without review.
func (r Report) Coverage() int {
	return len(r.TransformationMap)
}

// Markdown renders the report for terminal display.
func (r Report) Markdown() string {
	var b strings.Builder
	b.WriteString("# Negotiation report\n\n")
	if r.RunID != "" {
		fmt.Fprintf(&b, "- **Run:** `%s`\n", r.RunID)
	}
	if r.Route != "" {
		fmt.Fprintf(&b, "- **Route:** %s\n", r.Route)
	}
	fmt.Fprintf(&b, "- **Overall confidence:** %.1f%%\n", r.OverallConfidence*100)
	fmt.Fprintf(&b, "- **Bands:** high %d · medium %d · low %d\n", r.Bands[BandHigh], r.Bands[BandMedium], r.Bands[BandLow])
	fmt.Fprintf(&b, "- **Coverage:** %d of %d mappings at ≥ %.0f%%\n", r.Coverage(), len(r.Alignments), r.Threshold*100)
	interop := "no"
	if r.Interoperable {
		interop = "yes"
	}
	fmt.Fprintf(&b, "- **Cross-border interoperable:** %s\n\n", interop)

	b.WriteString("| Source | Target | Confidence | Rule |\n")
	b.WriteString("|---|---|---|---|\n")
	for _, e := range r.Alignments {
		fmt.Fprintf(&b, "| `%s` | `%s` | %s | %s |\n", e.SourceField, e.TargetField, e.Percent(), e.Rule)
	}
	if len(r.RequiresReviewList) > 0 {
		b.WriteString("\n**Manual review:** ")
		b.WriteString(strings.Join(r.RequiresReviewList, ", "))
		b.WriteString("\n")
	}
	return b.String()
}
