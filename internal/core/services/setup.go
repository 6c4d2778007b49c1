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

package services

import (
	"context"

	"github.com/jaycherian/gcp-go-video-summarizer/internal/cloud"
	"github.com/jaycherian/gcp-go-video-summarizer/internal/core/workflow"
	"github.com/jaycherian/gcp-go-video-summarizer/internal/search"
)

// NewFromConfig wires the search provider, both workflows and the service
// on top of already constructed clients.
func NewFromConfig(ctx context.Context, config *cloud.Config, clients *cloud.ServiceClients) (*SummarizerService, error) {
	searchProvider, err := search.New(ctx, config.Search)
	if err != nil {
		return nil, err
	}
	summary, err := workflow.NewMediaSummaryWorkflow(config, workflow.NewDependencies(config, clients, searchProvider))
	if err != nil {
		return nil, err
	}
	return NewSummarizerService(config, summary, workflow.NewExportWorkflow(clients.Documents)), nil
}
