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

// Package commands holds one cor.Command per step of the summarizer
// workflows. Commands exchange values through well-known context keys and
// record failures on the context instead of returning them.
package commands

// Context keys shared by the workflow commands.
const (
	RequestParam  = "__VIDEO_REQUEST__"     // *model.VideoRequest
	QueryParam    = "__QUERY__"             // string, trimmed
	VideoParam    = "__VIDEO_REFERENCE__"   // *model.VideoReference
	AssetParam    = "__ASSET_HANDLE__"      // *model.AssetHandle
	ResultParam   = "__INFERENCE_RESULT__"  // *model.InferenceResult
	SummaryParam  = "__SUMMARY__"           // *model.Summary
	ExportParam   = "__EXPORT_REQUEST__"    // *model.ExportRequest
	DocumentParam = "__EXPORTED_DOCUMENT__" // *model.ExportedDocument
)
