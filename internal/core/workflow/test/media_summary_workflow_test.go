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

// Package workflow_test runs the summary and export chains end to end against
// in-memory services.
package workflow_test

import (
	"context"
	"testing"

	"github.com/jaycherian/gcp-go-video-summarizer/internal/core/commands"
	"github.com/jaycherian/gcp-go-video-summarizer/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-summarizer/internal/core/model"
	"github.com/jaycherian/gcp-go-video-summarizer/internal/core/workflow"
	test "github.com/jaycherian/gcp-go-video-summarizer/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("github.com/jaycherian/gcp-go-video-summarizer/tests/workflow")

type fixture struct {
	model   *test.FakeModel
	assets  *test.FakeAssetStore
	fetcher *test.FakeFetcher
	deps    *workflow.Dependencies
}

func newFixture() *fixture {
	f := &fixture{
		model:   test.NewFakeModel(),
		assets:  &test.FakeAssetStore{States: []model.AssetState{model.AssetStateProcessing, model.AssetStateActive}},
		fetcher: &test.FakeFetcher{},
	}
	f.deps = &workflow.Dependencies{Model: f.model, Assets: f.assets, Fetcher: f.fetcher}
	return f
}

func run(t *testing.T, wf cor.Command, query string, request *model.VideoRequest) cor.Context {
	t.Helper()
	traceCtx, span := tracer.Start(context.Background(), t.Name())
	defer span.End()

	chCtx := cor.NewBaseContext()
	chCtx.SetContext(traceCtx)
	chCtx.Add(commands.RequestParam, request)
	chCtx.Add(commands.QueryParam, query)
	wf.Execute(chCtx)
	chCtx.Close()

	if chCtx.HasErrors() {
		span.SetStatus(codes.Error, "workflow recorded errors")
	}
	return chCtx
}

func TestSummaryFromUpload(t *testing.T) {
	config := test.GetConfig(t)
	f := newFixture()
	wf, err := workflow.NewMediaSummaryWorkflow(config, f.deps)
	require.NoError(t, err)

	chCtx := run(t, wf, "What is this about?", &model.VideoRequest{
		Upload: &model.UploadedVideo{FileName: "clip.mp4", Content: test.MP4Header},
	})

	require.False(t, chCtx.HasErrors(), "%v", chCtx.FirstError())
	summary := chCtx.Get(commands.SummaryParam).(*model.Summary)
	assert.Equal(t, commands.SummaryHeading, summary.Heading)
	assert.Equal(t, test.TestSummary, summary.Body)

	assert.Equal(t, 1, f.model.CallCount())
	assert.Zero(t, f.fetcher.Count())
	assert.Equal(t, [][]byte{test.MP4Header}, f.assets.Contents)
	assert.Equal(t, []string{"files/test-1"}, f.assets.Released)
	assert.Empty(t, test.TempEntries(t, config.Acquisition.TempDir))
}

func TestSummaryFromURL(t *testing.T) {
	config := test.GetConfig(t)
	f := newFixture()
	wf, err := workflow.NewMediaSummaryWorkflow(config, f.deps)
	require.NoError(t, err)

	// The URL wins over the upload.
	chCtx := run(t, wf, "Summarize", &model.VideoRequest{
		URL:    "https://www.youtube.com/watch?v=abc",
		Upload: &model.UploadedVideo{FileName: "clip.mp4", Content: []byte("ignored")},
	})

	require.False(t, chCtx.HasErrors(), "%v", chCtx.FirstError())
	result := chCtx.Get(commands.ResultParam).(*model.InferenceResult)
	assert.Equal(t, "https://www.youtube.com/watch?v=abc (url)", result.Source)
	assert.Equal(t, 1, f.fetcher.Count())
	assert.Equal(t, [][]byte{test.MP4Header}, f.assets.Contents)
	assert.Empty(t, test.TempEntries(t, config.Acquisition.TempDir))
}

func TestEmptyQueryStopsBeforeAcquisition(t *testing.T) {
	config := test.GetConfig(t)
	f := newFixture()
	wf, err := workflow.NewMediaSummaryWorkflow(config, f.deps)
	require.NoError(t, err)

	chCtx := run(t, wf, "  ", &model.VideoRequest{URL: "https://www.youtube.com/watch?v=abc"})

	assert.Equal(t, model.ErrEmptyQuery, chCtx.FirstError())
	assert.Zero(t, f.fetcher.Count())
	assert.Zero(t, f.model.CallCount())
	assert.Empty(t, f.assets.Registered)
}

func TestNoVideoIsAWarning(t *testing.T) {
	config := test.GetConfig(t)
	f := newFixture()
	wf, err := workflow.NewMediaSummaryWorkflow(config, f.deps)
	require.NoError(t, err)

	chCtx := run(t, wf, "Summarize", &model.VideoRequest{})

	assert.Equal(t, model.ErrNoVideo, chCtx.FirstError())
	assert.Zero(t, f.model.CallCount())
}

func TestFailedAssetIsReleasedAndCleanedUp(t *testing.T) {
	config := test.GetConfig(t)
	f := newFixture()
	f.assets.States = []model.AssetState{model.AssetStateFailed}
	f.assets.Reason = "corrupt file"
	wf, err := workflow.NewMediaSummaryWorkflow(config, f.deps)
	require.NoError(t, err)

	chCtx := run(t, wf, "Summarize", &model.VideoRequest{
		Upload: &model.UploadedVideo{FileName: "clip.mov", Content: []byte("movie bytes")},
	})

	var inference *model.InferenceError
	require.ErrorAs(t, chCtx.FirstError(), &inference)
	assert.Equal(t, model.StagePoll, inference.Stage)
	assert.Zero(t, f.model.CallCount())
	assert.Equal(t, []string{"files/test-1"}, f.assets.Released)
	assert.Empty(t, test.TempEntries(t, config.Acquisition.TempDir))
}

func TestInvalidPromptTemplate(t *testing.T) {
	config := test.GetConfig(t)
	config.PromptTemplates.AnalysisPrompt = "{{.QUERY"
	_, err := workflow.NewMediaSummaryWorkflow(config, newFixture().deps)
	assert.Error(t, err)
}

func TestExportWorkflow(t *testing.T) {
	store := &test.FakeDocumentStore{}
	wf := workflow.NewExportWorkflow(store.Factory(nil))

	chCtx := cor.NewBaseContext()
	chCtx.Add(commands.ExportParam, &model.ExportRequest{Name: "Doc", Content: test.TestSummary})
	wf.Execute(chCtx)

	require.False(t, chCtx.HasErrors(), "%v", chCtx.FirstError())
	assert.Equal(t, test.TestSummary, store.Documents["Doc"])
	assert.NotNil(t, chCtx.Get(commands.DocumentParam))
}
