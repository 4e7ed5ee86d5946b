package core

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"medfast/pkg"
)

func TestSummarizeParsesStructuredResult(t *testing.T) {
	fake := &fakeClient{summaryRaw: `{"summary":"Fever and cough for three days.","redFlags":["chest pain on exertion"]}`}
	s := NewSummarizer(fake)

	got := s.Summarize(context.Background(), sampleTranscript(), pkg.CertSickLeave)
	want := pkg.CaseSummary{
		Summary:  "Fever and cough for three days.",
		RedFlags: []string{"chest pain on exertion"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("summary = %+v, want %+v", got, want)
	}

	if !strings.Contains(fake.gotSummaryPrompt, "USER: fever and cough") {
		t.Errorf("prompt missing role-prefixed transcript line:\n%s", fake.gotSummaryPrompt)
	}
	if !strings.Contains(fake.gotSummaryPrompt, string(pkg.CertSickLeave)) {
		t.Errorf("prompt does not name the certificate type:\n%s", fake.gotSummaryPrompt)
	}
	if !strings.Contains(fake.gotSummarySystem, "redFlags") {
		t.Errorf("system instruction does not describe the schema:\n%s", fake.gotSummarySystem)
	}
}

func TestSummarizeEmptyRedFlagsIsHealthy(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"explicit empty list", `{"summary":"No concerning findings.","redFlags":[]}`},
		{"field omitted", `{"summary":"No concerning findings."}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSummarizer(&fakeClient{summaryRaw: tt.raw})
			got := s.Summarize(context.Background(), sampleTranscript(), pkg.CertGymClearance)
			if got.Summary != "No concerning findings." {
				t.Errorf("summary = %q", got.Summary)
			}
			if got.RedFlags == nil || len(got.RedFlags) != 0 {
				t.Errorf("redFlags = %#v, want empty non-nil list", got.RedFlags)
			}
		})
	}
}

func TestSummarizeFailureYieldsSentinel(t *testing.T) {
	tests := []struct {
		name string
		fake *fakeClient
	}{
		{"gateway error", &fakeClient{summaryErr: errors.New("boom")}},
		{"empty response", &fakeClient{summaryRaw: ""}},
		{"malformed json", &fakeClient{summaryRaw: `summary: fine`}},
		{"blank summary", &fakeClient{summaryRaw: `{"summary":"  ","redFlags":[]}`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSummarizer(tt.fake)
			got := s.Summarize(context.Background(), sampleTranscript(), pkg.CertWorkFitness)
			if got.Summary != FallbackSummary {
				t.Errorf("summary = %q, want fallback", got.Summary)
			}
			if len(got.RedFlags) != 1 || got.RedFlags[0] != SummaryFailedFlag {
				t.Errorf("redFlags = %#v, want exactly the failure sentinel", got.RedFlags)
			}
		})
	}
}
