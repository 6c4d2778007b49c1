// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/jaycherian/gcp-go-video-summarizer/internal/api"
	"github.com/jaycherian/gcp-go-video-summarizer/internal/telemetry"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	config, err := GetConfig()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	closeLog, err := telemetry.SetupLogging(config.Telemetry, os.Stdout)
	if err != nil {
		log.Fatalf("failed to setup logging: %v", err)
	}
	defer closeLog()
	slog.Info("Logging initialized", "format", config.Telemetry.LogFormat)

	shutdownTelemetry, err := telemetry.SetupOpenTelemetry(ctx, config)
	if err != nil {
		slog.Error("Failed to setup OpenTelemetry", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := shutdownTelemetry(context.Background()); err != nil {
			slog.Warn("telemetry shutdown failed", "error", err)
		}
	}()

	if err := InitState(ctx, config); err != nil {
		slog.Error("Failed to initialize state", "error", err)
		os.Exit(1)
	}
	defer state.cloud.Close()
	slog.Info("Initialized State", "backend", config.Application.Backend, "search", config.Search.Provider)

	r := gin.Default()
	r.Use(otelgin.Middleware(config.Application.Name))
	r.Use(cors.Default())
	api.NewHandler(state.summarizer, config).Register(r)

	srv := &http.Server{
		Addr:    config.Application.ListenAddress,
		Handler: r,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("failed to listen", "error", err)
			os.Exit(1)
		}
	}()
	slog.Info("Server Ready", "address", config.Application.ListenAddress)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutdown Server ...")

	// In-flight analyses hold the request open, so give them a moment.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server Shutdown Failed", "error", err)
	}
	slog.Info("Server exiting")
}
