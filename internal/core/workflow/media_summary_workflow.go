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

// Package workflow assembles the summarizer's commands into chains.
//
// The summary workflow runs, in order:
//
//	validate-request -> download-video | upload-to-temp-file -> media-upload ->
//	media-readiness -> generate-media-summary -> present-result
//
// with media-cleanup as a finalizer that always runs. The export workflow is
// a single document-export step, triggered separately.
package workflow

import (
	"fmt"
	"text/template"

	"github.com/jaycherian/gcp-go-video-summarizer/internal/cloud"
	"github.com/jaycherian/gcp-go-video-summarizer/internal/core/commands"
	"github.com/jaycherian/gcp-go-video-summarizer/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-summarizer/internal/search"
)

// Dependencies are the collaborators the summary workflow talks to. They are
// built once per process and shared by every run.
type Dependencies struct {
	Model   cloud.GenerativeModel
	Assets  cloud.AssetStore
	Fetcher commands.VideoFetcher
	Search  search.Provider
}

// NewDependencies picks the configured agent model, the asset store and a
// yt-dlp fetcher from the service clients.
func NewDependencies(config *cloud.Config, clients *cloud.ServiceClients, searchProvider search.Provider) *Dependencies {
	return &Dependencies{
		Model:   clients.AgentModel(config.Application.AgentModel),
		Assets:  clients.AssetStore(),
		Fetcher: commands.NewYtDlpFetcher(&config.Acquisition),
		Search:  searchProvider,
	}
}

type MediaSummaryWorkflow struct {
	cor.BaseCommand
	config          *cloud.Config
	deps            *Dependencies
	summaryTemplate *template.Template
	chain           cor.Chain
}

func (m *MediaSummaryWorkflow) IsExecutable(context cor.Context) bool {
	return m.chain.IsExecutable(context)
}

func (m *MediaSummaryWorkflow) Execute(context cor.Context) {
	m.chain.Execute(context)
}

func (m *MediaSummaryWorkflow) initializeChain() {
	modelConfig := m.config.AgentModels[m.config.Application.AgentModel]
	maxToolRounds := m.config.Search.MaxToolRounds

	out := cor.NewBaseChain(m.GetName())
	out.AddCommand(commands.NewRequestValidator("validate-request"))
	// Only one of the two acquisition steps is executable for a request.
	out.AddCommand(commands.NewVideoDownload("download-video", m.deps.Fetcher, &m.config.Acquisition))
	out.AddCommand(commands.NewUploadToTempFile("upload-to-temp-file", m.config))
	out.AddCommand(commands.NewMediaUpload("media-upload", m.deps.Assets))
	out.AddCommand(commands.NewMediaReadiness("media-readiness", m.deps.Assets, &m.config.Polling))
	out.AddCommand(commands.NewMediaSummaryCreator("generate-media-summary", m.deps.Model, m.summaryTemplate, m.deps.Search, maxToolRounds, modelConfig.MaxRetries))
	out.AddCommand(commands.NewResultPresenter("present-result"))
	out.AddFinalizer(commands.NewMediaCleanup("media-cleanup", m.deps.Assets))
	m.chain = out
}

// NewMediaSummaryWorkflow parses the analysis prompt and builds the chain.
func NewMediaSummaryWorkflow(config *cloud.Config, deps *Dependencies) (*MediaSummaryWorkflow, error) {
	summaryTemplate, err := template.New("analysis-template").Option("missingkey=error").Parse(config.PromptTemplates.AnalysisPrompt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse analysis prompt template: %w", err)
	}
	if deps.Search == nil {
		deps.Search = search.None{}
	}

	workflow := &MediaSummaryWorkflow{
		BaseCommand:     *cor.NewBaseCommand("media-summary-workflow"),
		config:          config,
		deps:            deps,
		summaryTemplate: summaryTemplate,
	}
	workflow.initializeChain()
	return workflow, nil
}
