package core

import (
	"context"
	"log"
	"strings"

	"medfast/internal/llm"
	"medfast/pkg"
)

// TriageService generates the assistant's reply for each patient turn. It
// owns the failure policy of the chat gateway: callers always receive a
// non-empty reply string and never see an error.
type TriageService struct {
	LLM llm.Client
}

// NewTriageService constructs a TriageService with the given LLM client.
func NewTriageService(client llm.Client) *TriageService {
	return &TriageService{LLM: client}
}

// Reply builds the role-tagged conversation payload from the transcript so
// far plus the newest user utterance and requests a completion. System-role
// transcript entries are dropped from the payload; the system instruction is
// fixed per certificate type. On any gateway failure a canned reply is
// returned instead of the error, and an empty completion becomes a
// clarification prompt.
func (s *TriageService) Reply(ctx context.Context, transcript []pkg.Message, userText string, certType pkg.CertificateType) string {
	msgs := make([]llm.Message, 0, len(transcript)+2)
	msgs = append(msgs, llm.Message{Role: "system", Content: TriageInstruction(certType)})

	for _, m := range transcript {
		switch m.Role {
		case pkg.RoleUser:
			msgs = append(msgs, llm.Message{Role: "user", Content: m.Text})
		case pkg.RoleModel:
			msgs = append(msgs, llm.Message{Role: "assistant", Content: m.Text})
		}
	}
	msgs = append(msgs, llm.Message{Role: "user", Content: userText})

	reply, err := s.LLM.Chat(ctx, msgs)
	if err != nil {
		log.Printf("triage reply error: %v", err)
		return FallbackReply
	}
	if strings.TrimSpace(reply) == "" {
		return ClarifyReply
	}
	return reply
}
