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

// Package services exposes the summarizer to its front ends (HTTP and CLI).
// It runs the workflows, serializes analyses and remembers the most recent
// result so it can be exported.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/jaycherian/gcp-go-video-summarizer/internal/cloud"
	"github.com/jaycherian/gcp-go-video-summarizer/internal/core/commands"
	"github.com/jaycherian/gcp-go-video-summarizer/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-summarizer/internal/core/model"
	"golang.org/x/sync/semaphore"
)

var (
	ErrExportDisabled  = errors.New("export is disabled")
	ErrNothingToExport = errors.New("there is no summary to export yet, analyze a video first")
	ErrStaleResult     = errors.New("the requested summary is not the most recent result")
)

// Analysis is the outcome of a successful run.
type Analysis struct {
	Result  *model.InferenceResult
	Summary *model.Summary
}

type SummarizerService struct {
	config   *cloud.Config
	summary  cor.Command
	exporter cor.Command
	runs     *semaphore.Weighted

	mu     sync.RWMutex
	latest *model.InferenceResult
}

func NewSummarizerService(config *cloud.Config, summary cor.Command, exporter cor.Command) *SummarizerService {
	runs := int64(config.Application.MaxConcurrentRuns)
	if runs < 1 {
		runs = 1
	}
	return &SummarizerService{
		config:   config,
		summary:  summary,
		exporter: exporter,
		runs:     semaphore.NewWeighted(runs),
	}
}

// Analyze acquires the video, runs inference and renders the summary. The
// returned error is a *model.Warning, *model.DownloadError or
// *model.InferenceError, or the context error when the caller gave up while
// waiting for another run to finish.
func (s *SummarizerService) Analyze(ctx context.Context, query string, request *model.VideoRequest) (*Analysis, error) {
	if err := s.runs.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer s.runs.Release(1)

	if timeout := s.config.RunTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if request == nil {
		request = &model.VideoRequest{}
	}

	chainCtx := cor.NewBaseContext()
	chainCtx.SetContext(ctx)
	defer chainCtx.Close()
	chainCtx.Add(commands.RequestParam, request)
	chainCtx.Add(commands.QueryParam, query)

	start := time.Now()
	s.summary.Execute(chainCtx)

	if err := chainCtx.FirstError(); err != nil {
		var warning *model.Warning
		if errors.As(err, &warning) {
			slog.Info("analysis rejected", "field", warning.Field, "reason", warning.Message)
		} else {
			slog.Error("analysis failed", "error", err, "elapsed", time.Since(start))
		}
		return nil, err
	}

	result, _ := chainCtx.Get(commands.ResultParam).(*model.InferenceResult)
	summary, _ := chainCtx.Get(commands.SummaryParam).(*model.Summary)
	if result == nil || summary == nil {
		return nil, &model.InferenceError{Stage: model.StageGenerate, Err: errors.New("workflow finished without a result")}
	}

	s.mu.Lock()
	s.latest = result
	s.mu.Unlock()

	slog.Info("analysis completed", "result_id", result.ID, "source", result.Source, "elapsed", time.Since(start))
	return &Analysis{Result: result, Summary: summary}, nil
}

// Latest returns the most recent successful result, or nil.
func (s *SummarizerService) Latest() *model.InferenceResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

// DocumentName trims name and falls back to the configured default with a
// timestamp appended.
func (s *SummarizerService) DocumentName(name string) string {
	name = strings.TrimSpace(name)
	if name != "" {
		return name
	}
	return fmt.Sprintf("%s_%s", s.config.Export.DefaultDocumentName, time.Now().Format("20060102_150405"))
}

// Export writes the most recent result to the document store. When resultID
// is set it must name that result. All failures are *model.ExportError.
func (s *SummarizerService) Export(ctx context.Context, name string, resultID string) (*model.ExportedDocument, error) {
	if !s.config.Export.Enabled {
		return nil, &model.ExportError{Err: ErrExportDisabled}
	}
	latest := s.Latest()
	if latest == nil {
		return nil, &model.ExportError{Err: ErrNothingToExport}
	}
	if resultID != "" && resultID != latest.ID {
		return nil, &model.ExportError{Err: fmt.Errorf("%w: %s", ErrStaleResult, resultID)}
	}

	chainCtx := cor.NewBaseContext()
	chainCtx.SetContext(ctx)
	defer chainCtx.Close()
	chainCtx.Add(commands.ExportParam, &model.ExportRequest{Name: s.DocumentName(name), Content: latest.Text})

	s.exporter.Execute(chainCtx)
	if err := chainCtx.FirstError(); err != nil {
		slog.Error("export failed", "result_id", latest.ID, "error", err)
		return nil, err
	}
	doc, _ := chainCtx.Get(commands.DocumentParam).(*model.ExportedDocument)
	if doc == nil {
		return nil, &model.ExportError{Err: errors.New("document store returned no document")}
	}
	return doc, nil
}

// ExportMessage is the user facing outcome of an export.
func ExportMessage(doc *model.ExportedDocument, err error) string {
	if err != nil {
		return "Error: " + err.Error()
	}
	return doc.SuccessMessage()
}
