package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env             string        // dev, prod
	HTTPPort        string        // default 8080
	OpenAIKey       string        // empty is allowed: gateway calls fail soft into fallbacks
	ChatModel       string        // model for triage replies
	SummaryModel    string        // model for case summarization
	PaymentDelay    time.Duration // simulated payment processing time
	SessionTTL      time.Duration // how long an idle session is kept in memory
	JanitorInterval time.Duration // how often idle sessions are pruned
	ShutdownTimeout time.Duration // graceful shutdown timeout
	DoctorName      string        // demo reviewing doctor
	DoctorLicense   string        // demo license id
	PatientName     string        // demo patient identity
	ConsultationFee string        // display string for the flat fee
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Env:             getEnv("APP_ENV", "dev"),
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		OpenAIKey:       os.Getenv("OPENAI_API_KEY"),
		ChatModel:       getEnv("OPENAI_MODEL_CHAT", "gpt-4o-mini"),
		PaymentDelay:    getDuration("PAYMENT_DELAY", 2*time.Second),
		SessionTTL:      getDuration("SESSION_TTL", 30*time.Minute),
		JanitorInterval: getDuration("JANITOR_INTERVAL", 5*time.Minute),
		ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		DoctorName:      getEnv("DOCTOR_NAME", "Dr. Sarah Aliyev"),
		DoctorLicense:   getEnv("DOCTOR_LICENSE", "MD-2023-8842"),
		PatientName:     getEnv("PATIENT_NAME", "John Doe"),
		ConsultationFee: getEnv("CONSULTATION_FEE", "5000 ₸"),
	}
	cfg.SummaryModel = getEnv("OPENAI_MODEL_SUMMARY", cfg.ChatModel)

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		fmt.Fprintf(os.Stderr, "invalid duration for %s=%q, using default %s\n", key, v, def)
	}
	return def
}
