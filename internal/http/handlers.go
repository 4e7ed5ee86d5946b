package http

import (
	"encoding/json"
	"html/template"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"medfast/internal/config"
	"medfast/internal/core"
	"medfast/internal/payment"
	"medfast/internal/session"
	"medfast/pkg"
)

const sessionCookie = "medfast_session"

// Server bundles the dependencies required by the HTTP handlers. Each
// handler resolves the visitor's session from a cookie, dispatches one
// session operation, and re-renders whichever view the session resolves to.
type Server struct {
	Store      *session.Store
	Triage     *core.TriageService
	Summarizer *core.Summarizer
	Payments   *payment.Processor
	Notifier   *session.Notifier
	Cfg        config.Config
	Templates  *template.Template
}

// NewServer constructs a Server with templates parsed from the embedded FS.
func NewServer(store *session.Store, triage *core.TriageService, summarizer *core.Summarizer, payments *payment.Processor, notifier *session.Notifier, cfg config.Config) (*Server, error) {
	tmpl, err := parseTemplates()
	if err != nil {
		return nil, err
	}
	return &Server{
		Store:      store,
		Triage:     triage,
		Summarizer: summarizer,
		Payments:   payments,
		Notifier:   notifier,
		Cfg:        cfg,
		Templates:  tmpl,
	}, nil
}

// Router builds the route table.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware)

	r.Get("/", s.handleHome)
	r.Post("/triage/start", s.handleStartTriage)
	r.Post("/triage/message", s.handlePostMessage)
	r.Post("/triage/finish", s.handleFinishTriage)
	r.Post("/payment/complete", s.handleCompletePayment)
	r.Post("/case/approve", s.handleApproveCase)
	r.Post("/case/reject", s.handleRejectCase)
	r.Post("/certificate", s.handleOpenCertificate)
	r.Post("/role/toggle", s.handleToggleRole)
	r.Post("/reset", s.handleReset)
	r.Get("/doctor/stream", s.handleDoctorStream)
	r.Get("/health/live", s.handleLiveness)

	return r
}

// visitorSession returns the session bound to the request cookie, creating a
// fresh one (and setting the cookie) for first-time visitors.
func (s *Server) visitorSession(w http.ResponseWriter, r *http.Request) *session.Session {
	if c, err := r.Cookie(sessionCookie); err == nil {
		if id, err := uuid.Parse(c.Value); err == nil {
			if sess, ok := s.Store.Get(id); ok {
				return sess
			}
		}
	}

	sess := s.Store.Create(s.Cfg.PatientName)
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    sess.ID.String(),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return sess
}

// handleHome renders whichever screen the session currently resolves to.
func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	sess := s.visitorSession(w, r)
	snap := sess.Snapshot()

	var (
		name string
		data any
	)
	switch snap.View {
	case pkg.ViewTriage:
		name = "triage.html"
		data = struct {
			CertificateType pkg.CertificateType
			Transcript      []pkg.Message
			IsTyping        bool
		}{snap.CertificateType, snap.Transcript, snap.IsTyping}
	case pkg.ViewPayment:
		name = "payment.html"
		data = struct {
			Case         *pkg.MedicalCase
			Fee          string
			IsProcessing bool
		}{snap.Case, s.Cfg.ConsultationFee, snap.IsProcessingPayment}
	case pkg.ViewDoctorDashboard:
		name = "doctor.html"
		data = struct {
			Case          *pkg.MedicalCase
			DoctorName    string
			DoctorLicense string
		}{snap.Case, s.Cfg.DoctorName, s.Cfg.DoctorLicense}
	case pkg.ViewPatientDashboard:
		name = "patient.html"
		data = struct {
			Case *pkg.MedicalCase
		}{snap.Case}
	case pkg.ViewVerify:
		name = "verify.html"
		data = struct {
			Case          *pkg.MedicalCase
			DoctorLicense string
		}{snap.Case, s.Cfg.DoctorLicense}
	default:
		name = "landing.html"
		data = struct {
			Types []pkg.CertificateType
			Fee   string
		}{pkg.CertificateTypes(), s.Cfg.ConsultationFee}
	}

	if err := s.Templates.ExecuteTemplate(w, name, data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) handleStartTriage(w http.ResponseWriter, r *http.Request) {
	sess := s.visitorSession(w, r)
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_form", "could not parse form")
		return
	}
	if err := sess.StartTriage(pkg.CertificateType(r.FormValue("cert_type"))); err != nil {
		handleActionError(w, err)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handlePostMessage appends the patient message, asks the gateway for a
// reply, appends it, and returns an HTML snippet with both new bubbles for
// the chat area. The typing flag set by AppendUserMessage rejects a second
// send while this request is in flight.
func (s *Server) handlePostMessage(w http.ResponseWriter, r *http.Request) {
	sess := s.visitorSession(w, r)
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_form", "could not parse form")
		return
	}
	content := r.FormValue("content")

	history := sess.Transcript()
	if _, err := sess.AppendUserMessage(content); err != nil {
		handleActionError(w, err)
		return
	}

	reply := s.Triage.Reply(r.Context(), history, content, sess.CertificateType())
	sess.AppendModelMessage(reply)

	io.WriteString(w, `<div class="message user">`+template.HTMLEscapeString(content)+`</div>`)
	io.WriteString(w, `<div class="message model">`+template.HTMLEscapeString(reply)+`</div>`)
}

// handleFinishTriage summarizes the conversation and opens the case. A
// summarization failure does not block the flow: the case is created with
// the fallback summary and its sentinel red flag.
func (s *Server) handleFinishTriage(w http.ResponseWriter, r *http.Request) {
	sess := s.visitorSession(w, r)

	certType := sess.CertificateType()
	if certType == "" {
		handleActionError(w, session.ErrNoActiveTriage)
		return
	}

	summary := s.Summarizer.Summarize(r.Context(), sess.Transcript(), certType)
	if _, err := sess.CreateCase(summary); err != nil {
		handleActionError(w, err)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleCompletePayment(w http.ResponseWriter, r *http.Request) {
	sess := s.visitorSession(w, r)

	if err := sess.BeginPayment(); err != nil {
		handleActionError(w, err)
		return
	}
	if err := s.Payments.Process(r.Context()); err != nil {
		sess.AbortPayment()
		writeError(w, http.StatusInternalServerError, "payment_interrupted", err.Error())
		return
	}
	if err := sess.CompletePayment(); err != nil {
		handleActionError(w, err)
		return
	}

	if c := sess.Case(); c != nil {
		s.Notifier.Publish(session.Event{
			Type:      session.EventCaseSubmitted,
			SessionID: sess.ID.String(),
			CaseID:    c.ID,
			Status:    c.Status,
			At:        time.Now(),
		})
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleApproveCase(w http.ResponseWriter, r *http.Request) {
	sess := s.visitorSession(w, r)
	if err := sess.ApproveCase(s.Cfg.DoctorName); err != nil {
		handleActionError(w, err)
		return
	}
	s.publishCaseEvent(sess, session.EventCaseApproved)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleRejectCase(w http.ResponseWriter, r *http.Request) {
	sess := s.visitorSession(w, r)
	if err := sess.RejectCase(s.Cfg.DoctorName); err != nil {
		handleActionError(w, err)
		return
	}
	s.publishCaseEvent(sess, session.EventCaseRejected)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleOpenCertificate(w http.ResponseWriter, r *http.Request) {
	sess := s.visitorSession(w, r)
	if err := sess.OpenCertificate(); err != nil {
		handleActionError(w, err)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleToggleRole(w http.ResponseWriter, r *http.Request) {
	sess := s.visitorSession(w, r)
	sess.ToggleRole()
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	sess := s.visitorSession(w, r)
	sess.Reset()
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleDoctorStream streams case events over SSE until the client goes
// away. Doctors keep the dashboard open and see cases arrive for review.
func (s *Server) handleDoctorStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	flusher.Flush()

	events, cancel := s.Notifier.Subscribe()
	defer cancel()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				log.Printf("encode case event: %v", err)
				continue
			}
			if _, err := io.WriteString(w, "data: "+string(data)+"\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func (s *Server) handleLiveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"env":      s.Cfg.Env,
		"sessions": s.Store.Len(),
	})
}

func (s *Server) publishCaseEvent(sess *session.Session, eventType string) {
	c := sess.Case()
	if c == nil {
		return
	}
	s.Notifier.Publish(session.Event{
		Type:      eventType,
		SessionID: sess.ID.String(),
		CaseID:    c.ID,
		Status:    c.Status,
		At:        time.Now(),
	})
}
