package pkg

import "time"

// View identifies which of the six screens the session is currently on.
type View string

const (
	ViewLanding          View = "LANDING"
	ViewTriage           View = "TRIAGE"
	ViewPayment          View = "PAYMENT"
	ViewPatientDashboard View = "DASHBOARD"
	ViewDoctorDashboard  View = "DOCTOR_DASHBOARD"
	ViewVerify           View = "VERIFY"
)

// Role is the demo-only role toggle. It is independent of the active view
// but conventionally kept consistent with it.
type Role string

const (
	RolePatient Role = "PATIENT"
	RoleDoctor  Role = "DOCTOR"
)

// CertificateType enumerates the certificates a patient can request. The
// values double as the human-readable labels shown in the UI and referenced
// in the triage system prompt.
type CertificateType string

const (
	CertSickLeave    CertificateType = "Sick Leave / Absence"
	CertGymClearance CertificateType = "Gym/Sports Clearance"
	CertHealthCheck  CertificateType = "General Health Check"
	CertWorkFitness  CertificateType = "Fit for Work"
)

// CertificateTypes lists every recognized certificate type in display order.
func CertificateTypes() []CertificateType {
	return []CertificateType{CertSickLeave, CertGymClearance, CertHealthCheck, CertWorkFitness}
}

// ValidCertificateType reports whether t is a recognized enumeration value.
func ValidCertificateType(t CertificateType) bool {
	switch t {
	case CertSickLeave, CertGymClearance, CertHealthCheck, CertWorkFitness:
		return true
	}
	return false
}

// MessageRole describes who authored a chat message.
type MessageRole string

const (
	RoleUser   MessageRole = "user"
	RoleModel  MessageRole = "model"
	RoleSystem MessageRole = "system"
)

// Message is a single turn in the triage transcript.
type Message struct {
	ID        string      `json:"id"`
	Role      MessageRole `json:"role"`
	Text      string      `json:"text"`
	Timestamp time.Time   `json:"timestamp"`
}

// CaseStatus tracks a medical case through its forward-only progression.
type CaseStatus string

const (
	StatusPendingPayment CaseStatus = "PENDING_PAYMENT"
	StatusPendingDoctor  CaseStatus = "PENDING_DOCTOR"
	StatusApproved       CaseStatus = "APPROVED"
	StatusRejected       CaseStatus = "REJECTED"
)

// MedicalCase is the record for one certificate request as it moves from
// triage through payment and doctor review. DoctorName and IssuedAt are
// populated only once a doctor has acted on the case.
type MedicalCase struct {
	ID              string          `json:"id"`
	PatientName     string          `json:"patient_name"`
	CertificateType CertificateType `json:"certificate_type"`
	Symptoms        string          `json:"symptoms"`
	Summary         string          `json:"summary"`
	RedFlags        []string        `json:"red_flags"`
	Status          CaseStatus      `json:"status"`
	CreatedAt       time.Time       `json:"created_at"`
	DoctorName      string          `json:"doctor_name,omitempty"`
	IssuedAt        *time.Time      `json:"issued_at,omitempty"`
}

// CaseSummary is the structured result of the summarization call. RedFlags
// is never nil; an empty list is the expected healthy signal.
type CaseSummary struct {
	Summary  string   `json:"summary"`
	RedFlags []string `json:"redFlags"`
}
