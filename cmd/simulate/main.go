package main

import (
	"fmt"
	"log"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/brianvoe/gofakeit/v7"
)

// simulate plays complete patient journeys against a running medfast server:
// start triage, exchange a few messages, finish, pay, approve as the doctor,
// and open the certificate. Useful for demos and for smoke-testing the
// session flow end to end without a browser.

type stepCounter struct {
	attempts int64
	failures int64
}

func (c *stepCounter) record(ok bool) {
	atomic.AddInt64(&c.attempts, 1)
	if !ok {
		atomic.AddInt64(&c.failures, 1)
	}
}

type metrics struct {
	start       stepCounter
	message     stepCounter
	finish      stepCounter
	pay         stepCounter
	approve     stepCounter
	certificate stepCounter
}

var certTypes = []string{
	"Sick Leave / Absence",
	"Gym/Sports Clearance",
	"General Health Check",
	"Fit for Work",
}

var complaints = []string{
	"fever and cough",
	"sore throat and mild headache",
	"lower back pain after lifting",
	"seasonal allergies, runny nose",
	"stomach ache since yesterday",
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	baseURL := getEnv("SIM_BASE_URL", "http://localhost:8080")
	patients := getInt("SIM_PATIENTS", 5)

	gofakeit.Seed(time.Now().UnixNano())
	log.Printf("simulating %d patient journeys against %s", patients, baseURL)

	var m metrics
	var wg sync.WaitGroup
	for i := 0; i < patients; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runJourney(baseURL, &m)
		}()
	}
	wg.Wait()

	fmt.Println("SIMULATION REPORT")
	printStep("start triage", &m.start)
	printStep("send message", &m.message)
	printStep("finish triage", &m.finish)
	printStep("pay", &m.pay)
	printStep("approve", &m.approve)
	printStep("certificate", &m.certificate)
}

func runJourney(baseURL string, m *metrics) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		log.Printf("cookie jar: %v", err)
		return
	}
	client := &http.Client{Jar: jar, Timeout: 30 * time.Second}

	// First visit establishes the session cookie.
	if !get(client, baseURL+"/") {
		return
	}

	certType := certTypes[gofakeit.Number(0, len(certTypes)-1)]
	m.start.record(post(client, baseURL+"/triage/start", url.Values{"cert_type": {certType}}))

	turns := gofakeit.Number(2, 4)
	for i := 0; i < turns; i++ {
		content := complaints[gofakeit.Number(0, len(complaints)-1)]
		if i > 0 {
			content = gofakeit.Sentence(8)
		}
		m.message.record(post(client, baseURL+"/triage/message", url.Values{"content": {content}}))
	}

	m.finish.record(post(client, baseURL+"/triage/finish", nil))
	m.pay.record(post(client, baseURL+"/payment/complete", nil))
	m.approve.record(post(client, baseURL+"/case/approve", nil))
	m.certificate.record(post(client, baseURL+"/certificate", nil))
}

func get(client *http.Client, u string) bool {
	resp, err := client.Get(u)
	if err != nil {
		log.Printf("GET %s: %v", u, err)
		return false
	}
	resp.Body.Close()
	return resp.StatusCode < 400
}

func post(client *http.Client, u string, form url.Values) bool {
	resp, err := client.PostForm(u, form)
	if err != nil {
		log.Printf("POST %s: %v", u, err)
		return false
	}
	resp.Body.Close()
	return resp.StatusCode < 400
}

func printStep(name string, c *stepCounter) {
	attempts := atomic.LoadInt64(&c.attempts)
	failures := atomic.LoadInt64(&c.failures)
	fmt.Printf("  %-14s attempts=%d failures=%d\n", name, attempts, failures)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
