package core

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"medfast/internal/llm"
	"medfast/pkg"
)

// Summarizer condenses a finished triage transcript into the structured
// summary the reviewing doctor sees. Like the chat path, it never propagates
// a gateway failure: the caller always receives both fields populated.
type Summarizer struct {
	LLM llm.Client
}

// NewSummarizer constructs a Summarizer.
func NewSummarizer(client llm.Client) *Summarizer {
	return &Summarizer{LLM: client}
}

// Summarize serializes the transcript into a role-prefixed text block and
// requests the two-field JSON completion. On failure (call error, empty or
// unparseable content, missing summary text) it returns the deterministic
// fallback summary with the single sentinel red flag. An empty red-flag list
// on success is the expected healthy signal and is preserved as such.
func (s *Summarizer) Summarize(ctx context.Context, transcript []pkg.Message, certType pkg.CertificateType) pkg.CaseSummary {
	var b strings.Builder
	for _, m := range transcript {
		b.WriteString(strings.ToUpper(string(m.Role)))
		b.WriteString(": ")
		b.WriteString(m.Text)
		b.WriteString("\n")
	}
	prompt := fmt.Sprintf(summaryPromptFormat, certType, b.String())

	raw, err := s.LLM.Summarize(ctx, summarySystem, prompt)
	if err != nil {
		log.Printf("case summary error: %v", err)
		return fallbackCaseSummary()
	}

	var out pkg.CaseSummary
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		log.Printf("case summary decode error: %v", err)
		return fallbackCaseSummary()
	}
	if strings.TrimSpace(out.Summary) == "" {
		return fallbackCaseSummary()
	}
	if out.RedFlags == nil {
		out.RedFlags = []string{}
	}
	return out
}

func fallbackCaseSummary() pkg.CaseSummary {
	return pkg.CaseSummary{
		Summary:  FallbackSummary,
		RedFlags: []string{SummaryFailedFlag},
	}
}
