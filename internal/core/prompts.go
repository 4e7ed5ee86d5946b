package core

import (
	"fmt"

	"medfast/pkg"
)

// prompts.go defines the prompt and fallback strings used by the triage chat
// and the summarizer. Keeping them in a separate file makes them easy to
// tweak without touching the rest of the code.

const (
	// triageInstruction is the system prompt for the triage assistant. The
	// certificate type the patient requested is interpolated into it.
	triageInstruction = `You are MedFast AI, a medical triage assistant.
Your goal is to gather information from a patient requesting a "%s".

Rules:
1. Be professional, empathetic, and concise.
2. Ask 1-2 relevant questions at a time about symptoms, duration, and severity.
3. DO NOT provide a diagnosis.
4. If you detect severe "red flag" symptoms (chest pain, difficulty breathing, severe bleeding), advise immediate emergency care.
5. Keep responses short (under 50 words) to mimic a chat interface.
6. Continue the conversation naturally based on previous messages.`

	// greetingFormat opens every triage session, naming the requested
	// certificate type.
	greetingFormat = "Hello, I'm MedFast AI. I see you're looking for a %s. To begin, could you please describe your main symptoms or the reason for this request?"

	// FallbackReply is returned when the gateway call fails outright.
	FallbackReply = "I am currently experiencing high traffic. Please describe your main symptom again."

	// ClarifyReply is returned when the gateway yields an empty completion.
	ClarifyReply = "I apologize, I didn't quite catch that. Could you clarify your symptoms?"

	// FallbackSummary replaces the AI summary when summarization fails. It is
	// a signal to the reviewing doctor, not a crash.
	FallbackSummary = "Error generating summary. Please review chat transcript manually."

	// SummaryFailedFlag is the single sentinel red flag attached to a
	// fallback summary so the failure is visible during review.
	SummaryFailedFlag = "System Error: AI Summary Failed"

	// summarySystem instructs the model to answer with the two-field JSON
	// object the doctor dashboard expects.
	summarySystem = `You are a medical triage summarizer. Respond with a JSON object containing exactly two fields: "summary" (a professional medical summary for the reviewing doctor, max 50 words) and "redFlags" (a list of short strings naming red flags or contraindications, empty if none).`

	summaryPromptFormat = `Analyze the following medical triage chat transcript for a "%s" request.

Transcript:
%s

Task:
1. Create a professional medical summary for a doctor to review (max 50 words).
2. Identify any "Red Flags" or contraindications.

Output JSON format.`
)

// TriageInstruction returns the system prompt for the given certificate type.
func TriageInstruction(certType pkg.CertificateType) string {
	return fmt.Sprintf(triageInstruction, certType)
}

// Greeting returns the assistant's opening message for a triage session.
func Greeting(certType pkg.CertificateType) string {
	return fmt.Sprintf(greetingFormat, certType)
}
