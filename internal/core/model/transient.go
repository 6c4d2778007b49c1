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

// Package model defines the data structures passed between the commands of a
// workflow run. Everything here is transient: objects live for one Analyze or
// Export action and are never persisted by this process.
package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// VideoSource identifies where a VideoReference came from.
type VideoSource string

const (
	SourceUpload VideoSource = "upload"
	SourceURL    VideoSource = "url"
)

// UploadedVideo is the raw upload as received from the user.
type UploadedVideo struct {
	FileName string
	Content  []byte
}

// VideoRequest is the input of the acquisition step. When URL is non-empty it
// takes precedence over Upload.
type VideoRequest struct {
	URL    string
	Upload *UploadedVideo
}

// HasURL reports whether a non-blank URL was supplied.
func (r *VideoRequest) HasURL() bool {
	return r != nil && len(strings.TrimSpace(r.URL)) > 0
}

// HasUpload reports whether an upload with a file name was supplied.
func (r *VideoRequest) HasUpload() bool {
	return r != nil && r.Upload != nil && len(r.Upload.FileName) > 0
}

// VideoReference is a local, fully written video file.
type VideoReference struct {
	Path      string
	Source    VideoSource
	Origin    string // original file name or URL
	Title     string // yt-dlp title, when known
	MIMEType  string
	SizeBytes int64
}

func (v *VideoReference) String() string {
	return fmt.Sprintf("%s (%s)", v.Origin, v.Source)
}

// AssetState mirrors the provider's processing state for a registered file.
type AssetState string

const (
	AssetStateUnspecified AssetState = "STATE_UNSPECIFIED"
	AssetStateProcessing  AssetState = "PROCESSING"
	AssetStateActive      AssetState = "ACTIVE"
	AssetStateFailed      AssetState = "FAILED"
)

// AssetHandle is the provider-side reference to a registered video.
type AssetHandle struct {
	Name     string // provider identifier, used to refresh and release
	URI      string // URI attached to the inference request
	MIMEType string
	State    AssetState
	Reason   string // provider supplied failure reason, if any
}

// IsPending reports whether readiness polling should continue.
func (h *AssetHandle) IsPending() bool {
	return h.State == AssetStateProcessing || h.State == AssetStateUnspecified || h.State == ""
}

// InferenceRequest pairs a ready asset with the user's query.
type InferenceRequest struct {
	Asset *AssetHandle
	Query string
}

// TokenUsage is reported by the provider when available.
type TokenUsage struct {
	PromptTokens    int32
	CandidateTokens int32
}

// InferenceResult is the generated text of one Analyze run.
type InferenceResult struct {
	ID         string
	Text       string
	Model      string
	Source     string
	ToolCalls  int
	Usage      TokenUsage
	CreateDate time.Time
}

// NewInferenceResult stamps a result with a fresh ID and creation time.
func NewInferenceResult(text string, modelName string) *InferenceResult {
	return &InferenceResult{
		ID:         uuid.NewString(),
		Text:       text,
		Model:      modelName,
		CreateDate: time.Now(),
	}
}

// Summary is what the presenter hands to the UI.
type Summary struct {
	Heading string `json:"heading"`
	Body    string `json:"summary"`
}

// ExportRequest asks for the given text to be stored as a new document.
type ExportRequest struct {
	Name    string
	Content string
}

// ExportedDocument is the identifier returned by the document store.
type ExportedDocument struct {
	ID          string
	Name        string
	Destination string
}

// SuccessMessage is the user facing confirmation for an export.
func (d *ExportedDocument) SuccessMessage() string {
	return fmt.Sprintf("Success! File created with ID: %s", d.ID)
}
