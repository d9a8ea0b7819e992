// Meeting note server - records meetings, transcribes and summarizes them,
// and publishes the minutes to Notion.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ovthemoon/AutoMeetingNote/internal/audio"
	"github.com/ovthemoon/AutoMeetingNote/internal/config"
	"github.com/ovthemoon/AutoMeetingNote/internal/gemini"
	"github.com/ovthemoon/AutoMeetingNote/internal/notion"
	"github.com/ovthemoon/AutoMeetingNote/internal/server"
	"github.com/ovthemoon/AutoMeetingNote/internal/session"
	"github.com/ovthemoon/AutoMeetingNote/internal/summarize"
	"github.com/ovthemoon/AutoMeetingNote/internal/transcribe"
)

func main() {
	// Setup structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	slog.SetDefault(logger)

	cfg := config.Load()

	model, err := gemini.New(cfg.GeminiAPIKeys, cfg.GeminiModel)
	if err != nil {
		slog.Error("failed to create Gemini client", "error", err)
		os.Exit(1)
	}

	recorder := audio.NewRecorder(audio.Format{
		SampleRate:   cfg.SampleRate,
		Channels:     cfg.Channels,
		FramesPerBuf: cfg.FramesPerBuf,
	})
	transcriber := transcribe.New(model, cfg.Language, cfg.SegmentSeconds, cfg.MaxParallel)
	summarizer := summarize.New(model, cfg.WindowChars, cfg.MaxParallel)
	publisher := notion.NewPublisher(cfg.NotionToken, cfg.NotionDatabaseID)

	ctrl := session.NewController(recorder, transcriber, summarizer, publisher, session.Options{
		TempDir:         cfg.TempDir,
		DefaultDuration: cfg.DurationLimit(),
	})

	// Create HTTP/WebSocket server
	srv := server.New(ctrl)

	httpServer := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      srv.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("meeting note server starting", "http", cfg.HTTPAddr, "model", cfg.GeminiModel)
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			slog.Error("http server error", "error", err)
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	slog.Info("shutting down...")

	if ctrl.Abort() {
		slog.Warn("active meeting aborted, recording discarded")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("http shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
}
