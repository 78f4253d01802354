package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/google/go-cmp/cmp"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"crossborder/internal/alignment"
	"crossborder/internal/records"
	"crossborder/internal/sequencer"
	"crossborder/internal/transform"
)

var (
	reportFormat    string
	reportRaw       bool
	reportThreshold float64
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print the alignment report for the IT → DE negotiation",
	Long: `Summarises the six field alignments: overall confidence, confidence bands,
the mappings applied without review, and a check that converting the ANPR
record field by field reproduces the German record.`,
	Args: cobra.NoArgs,
	RunE: runReport,
}

func init() {
	reportCmd.Flags().StringVarP(&reportFormat, "format", "f", "markdown", "Output format: markdown, json or yaml")
	reportCmd.Flags().BoolVar(&reportRaw, "raw", false, "Print markdown without terminal rendering")
	reportCmd.Flags().Float64Var(&reportThreshold, "threshold", 0, "Confidence needed to skip review (default from config)")
}

// reportDocument is the machine-readable report.
type reportDocument struct {
	alignment.Report `yaml:",inline"`
	Conversion       conversionCheck `json:"conversion" yaml:"conversion"`
}

type conversionCheck struct {
	Matches  bool     `json:"matches" yaml:"matches"`
	Diff     string   `json:"diff,omitempty" yaml:"diff,omitempty"`
	Warnings []string `json:"warnings" yaml:"warnings"`
}

func runReport(cmd *cobra.Command, args []string) error {
	threshold := currentConfig().Report.Threshold
	if reportThreshold > 0 {
		threshold = reportThreshold
	}
	route := string(records.Italy) + " → " + string(records.Germany)
	doc := reportDocument{
		Report:     alignment.NewReport(sequencer.NewRunID(time.Now()), route, alignment.Results(), threshold),
		Conversion: checkConversion(),
	}
	return writeReport(cmd.OutOrStdout(), doc, strings.ToLower(strings.TrimSpace(reportFormat)), reportRaw)
}

// checkConversion runs the field converters over the ANPR record and
// compares the outcome with the German record.
func checkConversion() conversionCheck {
	res := transform.Apply(records.Source(), records.Italy)
	check := conversionCheck{Warnings: []string{}}
	for _, w := range res.Warnings {
		check.Warnings = append(check.Warnings, w.String())
	}
	check.Diff = cmp.Diff(records.Target(), res.Record)
	check.Matches = check.Diff == ""
	return check
}

func writeReport(w io.Writer, doc reportDocument, format string, raw bool) error {
	switch format {
	case "json":
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode report: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case "yaml", "yml":
		data, err := yaml.Marshal(doc)
		if err != nil {
			return fmt.Errorf("failed to encode report: %w", err)
		}
		_, err = w.Write(data)
		return err
	case "markdown", "md", "":
		md := reportMarkdown(doc)
		if raw {
			_, err := io.WriteString(w, md)
			return err
		}
		renderer, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(80),
		)
		if err != nil {
			return fmt.Errorf("failed to create markdown renderer: %w", err)
		}
		rendered, err := renderer.Render(md)
		if err != nil {
			return fmt.Errorf("failed to render report: %w", err)
		}
		_, err = io.WriteString(w, rendered)
		return err
	default:
		return fmt.Errorf("unknown report format %q (want markdown, json or yaml)", format)
	}
}

func reportMarkdown(doc reportDocument) string {
	var b strings.Builder
	b.WriteString(doc.Report.Markdown())
	b.WriteString("\n## Conversion check\n\n")
	if doc.Conversion.Matches {
		b.WriteString("Converting the ANPR record field by field reproduces the German record.\n")
	} else {
		b.WriteString("Converted record differs from the German record:\n\n```\n")
		b.WriteString(doc.Conversion.Diff)
		b.WriteString("```\n")
	}
	for _, warning := range doc.Conversion.Warnings {
		fmt.Fprintf(&b, "- warning: %s\n", warning)
	}
	return b.String()
}
