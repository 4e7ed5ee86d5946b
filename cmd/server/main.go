package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"medfast/internal/config"
	"medfast/internal/core"
	httpserver "medfast/internal/http"
	"medfast/internal/llm"
	"medfast/internal/payment"
	"medfast/internal/session"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("medfast server starting up")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}
	log.Printf("running in env=%s http_port=%s chat_model=%s", cfg.Env, cfg.HTTPPort, cfg.ChatModel)
	if cfg.OpenAIKey == "" {
		log.Println("OPENAI_API_KEY not set, triage will answer with fallback replies")
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	llmClient := llm.NewOpenAIClient(cfg.OpenAIKey, cfg.ChatModel, cfg.SummaryModel)
	triage := core.NewTriageService(llmClient)
	summarizer := core.NewSummarizer(llmClient)
	payments := payment.NewProcessor(cfg.PaymentDelay)
	notifier := session.NewNotifier()

	store := session.NewStore(cfg.SessionTTL)
	go store.RunJanitor(rootCtx, cfg.JanitorInterval)

	srv, err := httpserver.NewServer(store, triage, summarizer, payments, notifier, cfg)
	if err != nil {
		log.Fatalf("failed to construct server: %v", err)
	}

	httpSrv := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: srv.Router(),
	}

	go func() {
		log.Printf("listening on %s", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-rootCtx.Done()
	log.Println("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown error: %v", err)
	}
	log.Println("server stopped")
}
