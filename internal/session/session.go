package session

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"medfast/internal/core"
	"medfast/pkg"
)

var (
	ErrUnknownCertificateType = errors.New("unknown certificate type")
	ErrEmptyMessage           = errors.New("message text is empty")
	ErrBusy                   = errors.New("a reply is already pending")
	ErrNoActiveTriage         = errors.New("no active triage session")
	ErrEmptyTranscript        = errors.New("transcript has no patient messages")
	ErrNoActiveCase           = errors.New("no active case")
	ErrInvalidTransition      = errors.New("invalid case status transition")
	ErrPaymentInProgress      = errors.New("payment is already being processed")
)

// Session is the single source of truth for one browser visit: the active
// view, the role toggle, the triage transcript and the in-progress case.
// All mutations funnel through the named operations below; each takes the
// session lock, so concurrent HTTP handlers cannot interleave partial
// updates. The typing and payment flags additionally reject re-entrant
// submissions while an asynchronous step is outstanding.
type Session struct {
	ID uuid.UUID

	mu                sync.Mutex
	view              pkg.View
	role              pkg.Role
	certType          pkg.CertificateType
	transcript        []pkg.Message
	typing            bool
	currentCase       *pkg.MedicalCase
	processingPayment bool
	patientName       string
	nextMsgID         int
	lastActive        time.Time
}

// Snapshot is a consistent read-only copy of the session state, taken under
// the session lock. Presentation code renders from snapshots only.
type Snapshot struct {
	ID                  uuid.UUID
	View                pkg.View
	Role                pkg.Role
	CertificateType     pkg.CertificateType
	Transcript          []pkg.Message
	IsTyping            bool
	Case                *pkg.MedicalCase
	IsProcessingPayment bool
}

// New creates a session on the landing view for the given demo patient.
func New(patientName string) *Session {
	return &Session{
		ID:          uuid.New(),
		view:        pkg.ViewLanding,
		role:        pkg.RolePatient,
		patientName: patientName,
		nextMsgID:   1,
		lastActive:  time.Now(),
	}
}

// StartTriage begins a new triage conversation for the given certificate
// type. The transcript is reset to a single assistant greeting and the view
// moves to the chat screen. Any previous case is left untouched.
func (s *Session) StartTriage(certType pkg.CertificateType) error {
	if !pkg.ValidCertificateType(certType) {
		return ErrUnknownCertificateType
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	s.certType = certType
	s.typing = false
	s.nextMsgID = 1
	s.transcript = []pkg.Message{{
		ID:        s.newMessageID(),
		Role:      pkg.RoleModel,
		Text:      core.Greeting(certType),
		Timestamp: time.Now(),
	}}
	s.view = pkg.ViewTriage
	return nil
}

// AppendUserMessage appends a patient turn and marks a reply as pending,
// which rejects further sends until the assistant has answered.
func (s *Session) AppendUserMessage(text string) (pkg.Message, error) {
	if strings.TrimSpace(text) == "" {
		return pkg.Message{}, ErrEmptyMessage
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if s.certType == "" {
		return pkg.Message{}, ErrNoActiveTriage
	}
	if s.typing {
		return pkg.Message{}, ErrBusy
	}

	msg := pkg.Message{
		ID:        s.newMessageID(),
		Role:      pkg.RoleUser,
		Text:      text,
		Timestamp: time.Now(),
	}
	s.transcript = append(s.transcript, msg)
	s.typing = true
	return msg, nil
}

// AppendModelMessage appends an assistant turn and clears the typing flag.
// The text is never empty: the gateway substitutes a fallback on failure.
func (s *Session) AppendModelMessage(text string) pkg.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	msg := pkg.Message{
		ID:        s.newMessageID(),
		Role:      pkg.RoleModel,
		Text:      text,
		Timestamp: time.Now(),
	}
	s.transcript = append(s.transcript, msg)
	s.typing = false
	return msg
}

// SetTyping toggles the pending-reply flag directly. Handlers use it to
// guarantee the flag is cleared on unexpected exits from the reply path.
func (s *Session) SetTyping(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.typing = v
}

// CreateCase closes the triage phase: it derives the symptom line from every
// user-authored message, attaches the summarization result and opens a case
// awaiting payment. Requires an active certificate type and at least one
// patient message.
func (s *Session) CreateCase(summary pkg.CaseSummary) (pkg.MedicalCase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if s.certType == "" {
		return pkg.MedicalCase{}, ErrNoActiveTriage
	}

	var userTexts []string
	for _, m := range s.transcript {
		if m.Role == pkg.RoleUser {
			userTexts = append(userTexts, m.Text)
		}
	}
	if len(userTexts) == 0 {
		return pkg.MedicalCase{}, ErrEmptyTranscript
	}

	redFlags := summary.RedFlags
	if redFlags == nil {
		redFlags = []string{}
	}

	c := pkg.MedicalCase{
		ID:              newCaseID(),
		PatientName:     s.patientName,
		CertificateType: s.certType,
		Symptoms:        strings.Join(userTexts, " "),
		Summary:         summary.Summary,
		RedFlags:        redFlags,
		Status:          pkg.StatusPendingPayment,
		CreatedAt:       time.Now(),
	}
	s.currentCase = &c
	s.view = pkg.ViewPayment
	return c, nil
}

// BeginPayment marks the payment simulation as in flight. A second submission
// while one is outstanding is rejected, as is paying a case that is not
// awaiting payment.
func (s *Session) BeginPayment() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if s.currentCase == nil {
		return ErrNoActiveCase
	}
	if s.currentCase.Status != pkg.StatusPendingPayment {
		return ErrInvalidTransition
	}
	if s.processingPayment {
		return ErrPaymentInProgress
	}
	s.processingPayment = true
	return nil
}

// CompletePayment finishes the simulated payment: the case moves to doctor
// review and, as a demo convenience, the session flips to the doctor role so
// the visitor can see the other side of the flow.
func (s *Session) CompletePayment() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	s.processingPayment = false
	if s.currentCase == nil {
		return ErrNoActiveCase
	}
	if s.currentCase.Status != pkg.StatusPendingPayment {
		return ErrInvalidTransition
	}
	s.currentCase.Status = pkg.StatusPendingDoctor
	s.view = pkg.ViewDoctorDashboard
	s.role = pkg.RoleDoctor
	return nil
}

// AbortPayment clears the in-flight payment flag without advancing the case,
// for when the simulation is interrupted (for example a client disconnect).
func (s *Session) AbortPayment() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.processingPayment = false
}

// ApproveCase records the doctor's approval, stamping the doctor name and the
// issue time. The session returns to the patient's side of the flow.
func (s *Session) ApproveCase(doctorName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if s.currentCase == nil {
		return ErrNoActiveCase
	}
	if s.currentCase.Status != pkg.StatusPendingDoctor {
		return ErrInvalidTransition
	}
	now := time.Now()
	s.currentCase.Status = pkg.StatusApproved
	s.currentCase.DoctorName = doctorName
	s.currentCase.IssuedAt = &now
	s.view = pkg.ViewPatientDashboard
	s.role = pkg.RolePatient
	return nil
}

// RejectCase records the doctor's rejection. No certificate is issued, so
// IssuedAt stays unset; the session returns to the patient dashboard.
func (s *Session) RejectCase(doctorName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if s.currentCase == nil {
		return ErrNoActiveCase
	}
	if s.currentCase.Status != pkg.StatusPendingDoctor {
		return ErrInvalidTransition
	}
	s.currentCase.Status = pkg.StatusRejected
	s.currentCase.DoctorName = doctorName
	s.view = pkg.ViewPatientDashboard
	s.role = pkg.RolePatient
	return nil
}

// OpenCertificate moves from the patient dashboard to the verification view.
// Only an approved case has a certificate to show.
func (s *Session) OpenCertificate() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if s.currentCase == nil {
		return ErrNoActiveCase
	}
	if s.currentCase.Status != pkg.StatusApproved {
		return ErrInvalidTransition
	}
	s.view = pkg.ViewVerify
	return nil
}

// ToggleRole is the footer dev tool: it flips the demo role and jumps to the
// matching home screen.
func (s *Session) ToggleRole() pkg.Role {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if s.role == pkg.RolePatient {
		s.role = pkg.RoleDoctor
		s.view = pkg.ViewDoctorDashboard
	} else {
		s.role = pkg.RolePatient
		s.view = pkg.ViewLanding
	}
	return s.role
}

// Reset returns the session to the landing view and clears the certificate
// type, transcript and case.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	s.view = pkg.ViewLanding
	s.role = pkg.RolePatient
	s.certType = ""
	s.transcript = nil
	s.typing = false
	s.currentCase = nil
	s.processingPayment = false
	s.nextMsgID = 1
}

// ActiveView resolves which screen to render. Views that require data the
// session does not hold degrade to the landing screen instead of rendering
// with missing fields.
func (s *Session) ActiveView() pkg.View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeViewLocked()
}

func (s *Session) activeViewLocked() pkg.View {
	switch s.view {
	case pkg.ViewTriage:
		if s.certType == "" {
			return pkg.ViewLanding
		}
	case pkg.ViewPayment, pkg.ViewPatientDashboard, pkg.ViewDoctorDashboard, pkg.ViewVerify:
		if s.currentCase == nil {
			return pkg.ViewLanding
		}
	}
	return s.view
}

// Snapshot returns a consistent copy of the session for rendering.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		ID:                  s.ID,
		View:                s.activeViewLocked(),
		Role:                s.role,
		CertificateType:     s.certType,
		Transcript:          append([]pkg.Message(nil), s.transcript...),
		IsTyping:            s.typing,
		IsProcessingPayment: s.processingPayment,
	}
	if s.currentCase != nil {
		c := *s.currentCase
		c.RedFlags = append([]string(nil), s.currentCase.RedFlags...)
		snap.Case = &c
	}
	return snap
}

// Transcript returns a copy of the current transcript in append order.
func (s *Session) Transcript() []pkg.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]pkg.Message(nil), s.transcript...)
}

// Case returns a copy of the current case, or nil if none exists.
func (s *Session) Case() *pkg.MedicalCase {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.currentCase == nil {
		return nil
	}
	c := *s.currentCase
	c.RedFlags = append([]string(nil), s.currentCase.RedFlags...)
	return &c
}

// CertificateType returns the active certificate type, or "" if none is set.
func (s *Session) CertificateType() pkg.CertificateType {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.certType
}

// LastActive reports when the session last handled an operation.
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

func (s *Session) touch() {
	s.lastActive = time.Now()
}

// newMessageID issues sequential ids so transcript order is derivable from
// ids alone. The opening greeting is always "system-1".
func (s *Session) newMessageID() string {
	id := s.nextMsgID
	s.nextMsgID++
	if id == 1 {
		return "system-1"
	}
	return fmt.Sprintf("msg-%d", id)
}

// newCaseID generates a short human-readable case token. Uniqueness is weak,
// demo-grade only: a four-digit random range with no collision detection,
// matching the product's non-production scope.
func newCaseID() string {
	return fmt.Sprintf("MF-%d", rand.Intn(10000))
}
