package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newTestCommand(out *bytes.Buffer) *cobra.Command {
	cmd := &cobra.Command{}
	cmd.SetOut(out)
	return cmd
}

func TestPlayInstantPrintsWholeScenario(t *testing.T) {
	logger = zap.NewNop()
	cfg = nil
	playSpeed = 0
	defer func() { playSpeed = -1 }()

	var out bytes.Buffer
	if err := runPlay(newTestCommand(&out), nil); err != nil {
		t.Fatalf("runPlay returned error: %v", err)
	}
	output := out.String()
	for _, want := range []string{
		"[1/6] ",
		"[6/6] ",
		"[5/5] ",
		"data_nascita → geburtsdatum (87%, TRANSFORM)",
		`familienname: "Rossi"`,
		`vorname: "Marco"`,
		`geburtsdatum: "1985-03-15T00:00:00Z"`,
		`geschlecht: "MALE"`,
		"finished in phase transformed",
	} {
		if !strings.Contains(output, want) {
			t.Fatalf("expected %q in play output, got:\n%s", want, output)
		}
	}
	if strings.Index(output, "Alignment results") > strings.Index(output, "Before (Italian ANPR)") {
		t.Fatalf("expected results before records")
	}
}

func TestReportJSONIncludesConversionCheck(t *testing.T) {
	cfg = nil
	reportFormat = "json"
	defer func() { reportFormat = "markdown" }()

	var out bytes.Buffer
	if err := runReport(newTestCommand(&out), nil); err != nil {
		t.Fatalf("runReport returned error: %v", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(out.Bytes(), &doc); err != nil {
		t.Fatalf("expected JSON report, got %v:\n%s", err, out.String())
	}
	if doc["route"] != "IT → DE" {
		t.Fatalf("unexpected route: %v", doc["route"])
	}
	if alignments, ok := doc["alignments"].([]any); !ok || len(alignments) != 6 {
		t.Fatalf("expected six alignments, got %v", doc["alignments"])
	}
	conversion, ok := doc["conversion"].(map[string]any)
	if !ok || conversion["matches"] != true {
		t.Fatalf("expected matching conversion, got %v", doc["conversion"])
	}
	if !strings.HasPrefix(doc["run_id"].(string), "CBR_") {
		t.Fatalf("unexpected run id: %v", doc["run_id"])
	}
}

func TestReportRawMarkdown(t *testing.T) {
	cfg = nil
	reportFormat = "markdown"
	reportRaw = true
	defer func() { reportRaw = false }()

	var out bytes.Buffer
	if err := runReport(newTestCommand(&out), nil); err != nil {
		t.Fatalf("runReport returned error: %v", err)
	}
	output := out.String()
	for _, want := range []string{"# Negotiation report", "86.7%", "## Conversion check", "reproduces the German record"} {
		if !strings.Contains(output, want) {
			t.Fatalf("expected %q in markdown report, got:\n%s", want, output)
		}
	}
}

func TestReportYAMLAndUnknownFormat(t *testing.T) {
	cfg = nil
	reportFormat = "yaml"
	defer func() { reportFormat = "markdown" }()

	var out bytes.Buffer
	if err := runReport(newTestCommand(&out), nil); err != nil {
		t.Fatalf("runReport returned error: %v", err)
	}
	if !strings.Contains(out.String(), "requires_review:") || !strings.Contains(out.String(), "matches: true") {
		t.Fatalf("unexpected yaml report:\n%s", out.String())
	}

	reportFormat = "xml"
	if err := runReport(newTestCommand(&out), nil); err == nil {
		t.Fatalf("expected unknown format to fail")
	}
}

func TestConfigInitRefusesToOverwrite(t *testing.T) {
	configPath = filepath.Join(t.TempDir(), "conf", "negotiation-demo.yaml")
	defer func() { configPath = "negotiation-demo.yaml" }()

	var out bytes.Buffer
	if err := runConfigInit(newTestCommand(&out), nil); err != nil {
		t.Fatalf("config init failed: %v", err)
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatalf("expected config file: %v", err)
	}
	if !strings.Contains(string(data), "ticker_interval: 3s") {
		t.Fatalf("unexpected config contents:\n%s", data)
	}
	if err := runConfigInit(newTestCommand(&out), nil); err == nil {
		t.Fatalf("expected second init to refuse overwrite")
	}
	configForce = true
	defer func() { configForce = false }()
	if err := runConfigInit(newTestCommand(&out), nil); err != nil {
		t.Fatalf("expected forced init to succeed: %v", err)
	}
}
