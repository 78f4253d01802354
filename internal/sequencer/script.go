package sequencer

import (
	"math/rand"
	"time"
)

// Step is one narrated status line and the pause that follows it.
type Step struct {
	Text  string
	Delay time.Duration
}

var negotiationScript = []Step{
	{Text: "🔍 Analyzing ANPR birth-certificate schema (7 fields)...", Delay: 1500 * time.Millisecond},
	{Text: "🇩🇪 Loading German civil-registry schema (Personenstandsregister)...", Delay: 2000 * time.Millisecond},
	{Text: "🧠 Claude analyzing semantic relationships via RAG retrieval...", Delay: 2500 * time.Millisecond},
	{Text: "⚡ Mistral refining alignment decisions...", Delay: 2000 * time.Millisecond},
	{Text: "📋 Validating GDPR and eIDAS compliance constraints...", Delay: 1500 * time.Millisecond},
	{Text: "✅ Negotiation complete: 6 field alignments proposed", Delay: 2000 * time.Millisecond},
}

var transformationScript = []Step{
	{Text: "⚙️ Compiling transformation rules from alignments...", Delay: 1500 * time.Millisecond},
	{Text: "📅 Converting data_nascita to ISO 8601 geburtsdatum...", Delay: 1500 * time.Millisecond},
	{Text: "👪 Restructuring genitori into eltern list...", Delay: 2000 * time.Millisecond},
	{Text: "🔤 Mapping sesso codes onto geschlecht enumeration...", Delay: 1500 * time.Millisecond},
	{Text: "🇪🇺 Deriving staatsangehoerigkeit and assembling eIDAS response...", Delay: 2000 * time.Millisecond},
}

var tickerMessages = []string{
	"📡 ANPR endpoint heartbeat OK",
	"🔄 Semantic cache warm (hit ratio 94%)",
	"🛡️ GDPR data-minimisation check passed",
	"🌐 eIDAS node latency 42ms",
	"🤖 LLM context window 38% utilised",
}

const (
	resultsUnlockDelay    = time.Second
	defaultTickerInterval = 3 * time.Second
)

// NegotiationScript returns a copy of the start narration.
func NegotiationScript() []Step {
	return append([]Step(nil), negotiationScript...)
}

// TransformationScript returns a copy of the apply narration.
func TransformationScript() []Step {
	return append([]Step(nil), transformationScript...)
}

// TickerMessages returns a copy of the decorative ticker lines.
func TickerMessages() []string {
	return append([]string(nil), tickerMessages...)
}

// pickTickerMessage chooses a ticker line for phase. Nothing is shown until
// negotiation has started.
func pickTickerMessage(phase Phase, rng *rand.Rand) (string, bool) {
	if !phase.Started() {
		return "", false
	}
	return tickerMessages[rng.Intn(len(tickerMessages))], true
}
