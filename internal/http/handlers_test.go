package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"medfast/internal/config"
	"medfast/internal/core"
	"medfast/internal/llm"
	"medfast/internal/payment"
	"medfast/internal/session"
	"medfast/pkg"
)

type fakeClient struct {
	chatReply  string
	chatErr    error
	summaryRaw string
	summaryErr error
}

func (f *fakeClient) Chat(context.Context, []llm.Message) (string, error) {
	return f.chatReply, f.chatErr
}

func (f *fakeClient) Summarize(context.Context, string, string) (string, error) {
	return f.summaryRaw, f.summaryErr
}

func testConfig() config.Config {
	return config.Config{
		Env:             "test",
		PaymentDelay:    0,
		SessionTTL:      time.Hour,
		DoctorName:      "Dr. Sarah Aliyev",
		DoctorLicense:   "MD-2023-8842",
		PatientName:     "John Doe",
		ConsultationFee: "5000 ₸",
	}
}

func newTestServer(t *testing.T, fake *fakeClient) (*httptest.Server, *session.Store) {
	t.Helper()

	cfg := testConfig()
	store := session.NewStore(cfg.SessionTTL)
	srv, err := NewServer(
		store,
		core.NewTriageService(fake),
		core.NewSummarizer(fake),
		payment.NewProcessor(cfg.PaymentDelay),
		session.NewNotifier(),
		cfg,
	)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}

	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts, store
}

func newClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatal(err)
	}
	return &http.Client{Jar: jar}
}

// boundSession resolves the store session behind the client's cookie.
func boundSession(t *testing.T, ts *httptest.Server, client *http.Client, store *session.Store) *session.Session {
	t.Helper()
	u, _ := url.Parse(ts.URL)
	for _, c := range client.Jar.Cookies(u) {
		if c.Name == sessionCookie {
			id, err := uuid.Parse(c.Value)
			if err != nil {
				t.Fatalf("bad session cookie %q: %v", c.Value, err)
			}
			sess, ok := store.Get(id)
			if !ok {
				t.Fatalf("no session for cookie %s", id)
			}
			return sess
		}
	}
	t.Fatal("no session cookie set")
	return nil
}

func postForm(t *testing.T, client *http.Client, u string, form url.Values) *http.Response {
	t.Helper()
	resp, err := client.PostForm(u, form)
	if err != nil {
		t.Fatalf("POST %s: %v", u, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestFullCertificateFlow(t *testing.T) {
	fake := &fakeClient{
		chatReply:  "How long have you had these symptoms?",
		summaryRaw: `{"summary":"Fever and cough, short duration.","redFlags":[]}`,
	}
	ts, store := newTestServer(t, fake)
	client := newClient(t)

	resp, err := client.Get(ts.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(body), "Medical Certificate") {
		t.Errorf("landing page missing headline")
	}
	sess := boundSession(t, ts, client, store)

	if resp := postForm(t, client, ts.URL+"/triage/start", url.Values{"cert_type": {string(pkg.CertSickLeave)}}); resp.StatusCode != http.StatusOK {
		t.Fatalf("start status = %d", resp.StatusCode)
	}

	if resp := postForm(t, client, ts.URL+"/triage/message", url.Values{"content": {"fever and cough"}}); resp.StatusCode != http.StatusOK {
		t.Fatalf("message status = %d", resp.StatusCode)
	}
	snap := sess.Snapshot()
	if len(snap.Transcript) != 3 {
		t.Fatalf("transcript length = %d, want 3", len(snap.Transcript))
	}
	if snap.IsTyping {
		t.Error("typing flag still set after reply")
	}

	if resp := postForm(t, client, ts.URL+"/triage/finish", nil); resp.StatusCode != http.StatusOK {
		t.Fatalf("finish status = %d", resp.StatusCode)
	}
	c := sess.Case()
	if c == nil || c.Status != pkg.StatusPendingPayment {
		t.Fatalf("case after finish = %+v", c)
	}
	if c.Symptoms != "fever and cough" {
		t.Errorf("symptoms = %q", c.Symptoms)
	}

	// Approving before payment must be refused.
	if resp := postForm(t, client, ts.URL+"/case/approve", nil); resp.StatusCode != http.StatusConflict {
		t.Fatalf("early approve status = %d, want 409", resp.StatusCode)
	}

	if resp := postForm(t, client, ts.URL+"/payment/complete", nil); resp.StatusCode != http.StatusOK {
		t.Fatalf("payment status = %d", resp.StatusCode)
	}
	if got := sess.Case().Status; got != pkg.StatusPendingDoctor {
		t.Fatalf("status after payment = %q", got)
	}

	if resp := postForm(t, client, ts.URL+"/case/approve", nil); resp.StatusCode != http.StatusOK {
		t.Fatalf("approve status = %d", resp.StatusCode)
	}
	c = sess.Case()
	if c.Status != pkg.StatusApproved || c.DoctorName != "Dr. Sarah Aliyev" || c.IssuedAt == nil {
		t.Fatalf("case after approval = %+v", c)
	}

	if resp := postForm(t, client, ts.URL+"/certificate", nil); resp.StatusCode != http.StatusOK {
		t.Fatalf("certificate status = %d", resp.StatusCode)
	}
	if got := sess.ActiveView(); got != pkg.ViewVerify {
		t.Errorf("view = %q, want verify", got)
	}

	resp, err = client.Get(ts.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(body), "VALID DOCUMENT") || !strings.Contains(string(body), c.ID) {
		t.Errorf("verification page missing certificate details")
	}
}

// A summarization failure must not block the flow: the case is created with
// the fallback summary and its sentinel red flag, and the session advances
// to payment.
func TestFinishTriageSurvivesSummaryFailure(t *testing.T) {
	fake := &fakeClient{
		chatReply:  "Noted. Anything else?",
		summaryErr: errors.New("model unavailable"),
	}
	ts, store := newTestServer(t, fake)
	client := newClient(t)

	if _, err := client.Get(ts.URL + "/"); err != nil {
		t.Fatal(err)
	}
	sess := boundSession(t, ts, client, store)

	postForm(t, client, ts.URL+"/triage/start", url.Values{"cert_type": {string(pkg.CertHealthCheck)}})
	postForm(t, client, ts.URL+"/triage/message", url.Values{"content": {"routine check"}})

	if resp := postForm(t, client, ts.URL+"/triage/finish", nil); resp.StatusCode != http.StatusOK {
		t.Fatalf("finish status = %d", resp.StatusCode)
	}

	c := sess.Case()
	if c == nil {
		t.Fatal("no case created")
	}
	if len(c.RedFlags) != 1 || c.RedFlags[0] != core.SummaryFailedFlag {
		t.Errorf("redFlags = %#v, want exactly the failure sentinel", c.RedFlags)
	}
	if c.Summary != core.FallbackSummary {
		t.Errorf("summary = %q, want fallback", c.Summary)
	}
	if got := sess.ActiveView(); got != pkg.ViewPayment {
		t.Errorf("view = %q, want payment despite summary failure", got)
	}
}

func TestActionGuardStatusCodes(t *testing.T) {
	fake := &fakeClient{chatReply: "ok"}
	ts, _ := newTestServer(t, fake)
	client := newClient(t)

	if _, err := client.Get(ts.URL + "/"); err != nil {
		t.Fatal(err)
	}

	if resp := postForm(t, client, ts.URL+"/triage/start", url.Values{"cert_type": {"Pet Insurance"}}); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("unknown cert type status = %d, want 400", resp.StatusCode)
	}
	if resp := postForm(t, client, ts.URL+"/triage/message", url.Values{"content": {"hello"}}); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("message without triage status = %d, want 400", resp.StatusCode)
	}
	if resp := postForm(t, client, ts.URL+"/payment/complete", nil); resp.StatusCode != http.StatusNotFound {
		t.Errorf("payment without case status = %d, want 404", resp.StatusCode)
	}

	postForm(t, client, ts.URL+"/triage/start", url.Values{"cert_type": {string(pkg.CertSickLeave)}})
	if resp := postForm(t, client, ts.URL+"/triage/message", url.Values{"content": {"   "}}); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("blank message status = %d, want 400", resp.StatusCode)
	}
	if resp := postForm(t, client, ts.URL+"/triage/finish", nil); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("finish with no patient messages status = %d, want 400", resp.StatusCode)
	}
}

func TestResetReturnsToLanding(t *testing.T) {
	fake := &fakeClient{chatReply: "ok"}
	ts, store := newTestServer(t, fake)
	client := newClient(t)

	if _, err := client.Get(ts.URL + "/"); err != nil {
		t.Fatal(err)
	}
	sess := boundSession(t, ts, client, store)

	postForm(t, client, ts.URL+"/triage/start", url.Values{"cert_type": {string(pkg.CertGymClearance)}})
	postForm(t, client, ts.URL+"/reset", nil)

	snap := sess.Snapshot()
	if snap.View != pkg.ViewLanding || snap.CertificateType != "" || len(snap.Transcript) != 0 {
		t.Errorf("session after reset = %+v", snap)
	}
}
