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

package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/jaycherian/gcp-go-video-summarizer/internal/core/model"
	"github.com/jaycherian/gcp-go-video-summarizer/internal/core/services"
)

const (
	StatusSuccess = "success"
	StatusWarning = "warning"
	StatusError   = "error"
)

type AnalyzeResponse struct {
	Status   string `json:"status"`
	ResultID string `json:"result_id"`
	Heading  string `json:"heading"`
	Summary  string `json:"summary"`
	Source   string `json:"source,omitempty"`
	Model    string `json:"model,omitempty"`
}

type MessageResponse struct {
	Status  string `json:"status"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

type ExportRequest struct {
	Name     string `json:"name"`
	ResultID string `json:"result_id"`
}

type ExportResponse struct {
	Status     string `json:"status"`
	Message    string `json:"message"`
	DocumentID string `json:"document_id"`
	Name       string `json:"name"`
}

type StatusResponse struct {
	Backend        string `json:"backend"`
	Model          string `json:"model"`
	Search         string `json:"search"`
	ExportEnabled  bool   `json:"export_enabled"`
	LatestResultID string `json:"latest_result_id,omitempty"`
}

func warningResponse(w *model.Warning) MessageResponse {
	return MessageResponse{Status: StatusWarning, Field: w.Field, Message: w.Message}
}

// analyzeErrorResponse maps an Analyze failure to a status code and the
// message shown to the user.
func analyzeErrorResponse(err error) (int, MessageResponse) {
	var (
		warning   *model.Warning
		download  *model.DownloadError
		inference *model.InferenceError
	)
	switch {
	case errors.As(err, &warning):
		return http.StatusBadRequest, warningResponse(warning)
	case errors.As(err, &download):
		return http.StatusUnprocessableEntity, MessageResponse{Status: StatusError, Message: "Failed to download video: " + download.Err.Error()}
	case errors.As(err, &inference):
		return http.StatusBadGateway, MessageResponse{Status: StatusError, Message: "An error occurred during analysis: " + inference.Err.Error()}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, MessageResponse{Status: StatusError, Message: "The analysis was cancelled before it could start."}
	default:
		return http.StatusInternalServerError, MessageResponse{Status: StatusError, Message: "An error occurred during analysis: " + err.Error()}
	}
}

func exportErrorStatus(err error) int {
	switch {
	case errors.Is(err, services.ErrExportDisabled):
		return http.StatusForbidden
	case errors.Is(err, services.ErrNothingToExport), errors.Is(err, services.ErrStaleResult):
		return http.StatusConflict
	default:
		return http.StatusBadGateway
	}
}
