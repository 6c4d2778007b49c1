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

package model

import (
	"fmt"
	"time"
)

// Warning is a user input problem. It blocks the action but is not a failure.
type Warning struct {
	Field   string
	Message string
}

func (w *Warning) Error() string {
	return w.Message
}

var (
	ErrEmptyQuery = &Warning{Field: "query", Message: "Please enter a query before analyzing the video."}
	ErrNoVideo    = &Warning{Field: "video", Message: "Please upload a video file or provide a YouTube link to begin analysis."}
)

// UnsupportedUpload builds the warning for a rejected upload.
func UnsupportedUpload(fileName string, reason string) *Warning {
	return &Warning{Field: "file", Message: fmt.Sprintf("Unsupported upload %q: %s", fileName, reason)}
}

// DownloadError reports a failed remote video fetch.
type DownloadError struct {
	URL string
	Err error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("failed to download %s: %v", e.URL, e.Err)
}

func (e *DownloadError) Unwrap() error {
	return e.Err
}

// Inference stages, used to say where an InferenceError happened.
const (
	StageConfigure = "configure"
	StageRegister  = "register"
	StagePoll      = "poll"
	StageGenerate  = "generate"
)

// InferenceError reports any failure while registering, polling or invoking
// the model.
type InferenceError struct {
	Stage string
	Err   error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("inference failed during %s: %v", e.Stage, e.Err)
}

func (e *InferenceError) Unwrap() error {
	return e.Err
}

// TimeoutError is returned when an asset does not become ready in time.
type TimeoutError struct {
	Asset  string
	Waited time.Duration
	Polls  int
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("asset %s still processing after %s (%d status checks)", e.Asset, e.Waited.Round(time.Millisecond), e.Polls)
}

// ExportError reports a credential or document creation failure.
type ExportError struct {
	Err error
}

func (e *ExportError) Error() string {
	return e.Err.Error()
}

func (e *ExportError) Unwrap() error {
	return e.Err
}
