// Command analyzer runs the workflow-failure analysis HTTP service.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tuannvm/youtrack-analyzer/internal/analyzer"
	"github.com/tuannvm/youtrack-analyzer/internal/cache"
	"github.com/tuannvm/youtrack-analyzer/internal/config"
	"github.com/tuannvm/youtrack-analyzer/internal/llm"
	"github.com/tuannvm/youtrack-analyzer/internal/logging"
	"github.com/tuannvm/youtrack-analyzer/internal/repository"
	"github.com/tuannvm/youtrack-analyzer/internal/server"
	"github.com/tuannvm/youtrack-analyzer/internal/youtrack"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatalf("configuration error: %v", err)
	}
	if err := config.ValidateLLM(cfg); err != nil {
		logging.Fatalf("configuration error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := cache.NewBadgerStore(cache.Config{
		Path:      cfg.Cache.Dir,
		InMemory:  cfg.Cache.InMemory,
		KeyPrefix: cfg.Cache.KeyPrefix,
	})
	if err != nil {
		logging.Fatalf("failed to open cache: %v", err)
	}
	defer store.Close()

	ytClient := youtrack.NewClient(youtrack.Config{
		BaseURL: cfg.YouTrack.BaseURL,
		Token:   cfg.YouTrack.Token,
		Timeout: cfg.YouTrack.Timeout,
	})

	policy := repository.RetryPolicy{
		MaxAttempts: cfg.Retry.MaxAttempts,
		Delay:       cfg.Retry.Delay,
	}
	issues := repository.NewCachedIssueRepository(
		repository.NewYouTrackIssueRepository(ytClient, policy), store)
	workflows := repository.NewCachedWorkflowRepository(
		repository.NewYouTrackWorkflowRepository(ytClient, policy), store)

	llmClient, err := llm.NewClient(llm.Config{
		Provider:    cfg.LLM.Provider,
		Model:       cfg.LLM.Model,
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout,
	})
	if err != nil {
		logging.Fatalf("failed to create LLM client: %v", err)
	}

	svc := analyzer.New(issues, workflows, llmClient, ytClient.BaseURL())

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := server.New(addr, svc, store, ytClient)

	go func() {
		<-ctx.Done()
		logging.Infof("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logging.Errorf("shutdown error: %v", err)
		}
	}()

	if err := srv.Start(); err != nil {
		logging.Fatalf("server error: %v", err)
	}
	logging.Infof("server stopped")
}
