package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/teddyhq/expense-assistant/internal/api"
	"github.com/teddyhq/expense-assistant/internal/config"
	"github.com/teddyhq/expense-assistant/internal/core"
	"github.com/teddyhq/expense-assistant/internal/expense"
)

func main() {
	// Load configuration
	config.LoadConfig()

	// Setup logging
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	if config.AppConfig.LogLevel == "DEBUG" {
		log.Println("Service starting in DEBUG mode")
	}

	// Initialize expense data fetcher
	fetcher := expense.NewFetcher(config.AppConfig.ExpenseAPIBaseURL, config.AppConfig.FetchTimeout)

	// Initialize LLM service
	llmService := core.NewLLMService()
	defer llmService.Close()

	// Initialize Chat service
	chatService := core.NewChatService(fetcher, llmService, core.Options{
		UserID:            config.AppConfig.UserID,
		HistoryLimit:      config.AppConfig.HistoryLimit,
		PromptMaxChars:    config.AppConfig.PromptMaxChars,
		RefreshInterval:   config.AppConfig.RefreshInterval,
		CompletionTimeout: config.AppConfig.CompletionTimeout,
	})

	// Warm the index up front so the first chat request doesn't pay the
	// fetch cost. A failure here leaves the service degraded, not dead:
	// the next chat or status request retries.
	warmCtx, warmCancel := context.WithTimeout(context.Background(), config.AppConfig.FetchTimeout+5*time.Second)
	if err := chatService.Refresh(warmCtx); err != nil {
		log.Printf("Initial expense index build failed (starting degraded): %v", err)
	}
	warmCancel()

	// Initialize API Handler and Router
	apiHandler := api.NewAPIHandler(chatService)
	router := api.NewRouter(apiHandler)

	// Start HTTP server
	serverAddr := fmt.Sprintf(":%s", config.AppConfig.HTTPPort)

	srv := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // LLM calls can take time
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown handling
	go func() {
		log.Printf("Starting server on %s. Press Ctrl+C to quit.", serverAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not listen on %s: %v\n", serverAddr, err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Give active connections time to finish.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting gracefully")
}
