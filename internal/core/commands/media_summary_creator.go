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

package commands

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"text/template"

	"go.opentelemetry.io/otel/metric"

	"github.com/jaycherian/gcp-go-video-summarizer/internal/cloud"
	"github.com/jaycherian/gcp-go-video-summarizer/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-summarizer/internal/core/model"
	"github.com/jaycherian/gcp-go-video-summarizer/internal/search"
	"google.golang.org/genai"
)

// MediaSummaryCreator issues the inference call for a ready asset. When the
// search provider declares a function, calls requested by the model are
// executed and answered until the model produces text or the round limit
// is reached.
type MediaSummaryCreator struct {
	cor.BaseCommand
	generativeAIModel        cloud.GenerativeModel
	template                 *template.Template
	search                   search.Provider
	maxToolRounds            int
	maxRetries               int
	geminiInputTokenCounter  metric.Int64Counter
	geminiOutputTokenCounter metric.Int64Counter
	geminiRetryCounter       metric.Int64Counter
	toolCallCounter          metric.Int64Counter
}

func NewMediaSummaryCreator(
	name string,
	generativeAIModel cloud.GenerativeModel,
	template *template.Template,
	searchProvider search.Provider,
	maxToolRounds int,
	maxRetries int) *MediaSummaryCreator {

	out := &MediaSummaryCreator{
		BaseCommand:       *cor.NewBaseCommand(name),
		generativeAIModel: generativeAIModel,
		template:          template,
		search:            searchProvider,
		maxToolRounds:     maxToolRounds,
		maxRetries:        maxRetries,
	}
	if out.search == nil {
		out.search = search.None{}
	}
	out.InputParamName = AssetParam
	out.OutputParamName = ResultParam

	out.geminiInputTokenCounter, _ = out.GetMeter().Int64Counter(fmt.Sprintf("%s.gemini.token.input", out.GetName()))
	out.geminiOutputTokenCounter, _ = out.GetMeter().Int64Counter(fmt.Sprintf("%s.gemini.token.output", out.GetName()))
	out.geminiRetryCounter, _ = out.GetMeter().Int64Counter(fmt.Sprintf("%s.gemini.token.retry", out.GetName()))
	out.toolCallCounter, _ = out.GetMeter().Int64Counter(fmt.Sprintf("%s.tool.calls", out.GetName()))
	return out
}

func (t *MediaSummaryCreator) IsExecutable(context cor.Context) bool {
	query, _ := context.Get(QueryParam).(string)
	return t.BaseCommand.IsExecutable(context) && query != ""
}

// GenerateParams returns the template parameters for one run.
func (t *MediaSummaryCreator) GenerateParams(context cor.Context) map[string]interface{} {
	params := make(map[string]interface{})
	params["QUERY"] = context.Get(QueryParam).(string)
	return params
}

func (t *MediaSummaryCreator) Execute(context cor.Context) {
	ctx := context.GetContext()
	asset := context.Get(t.GetInputParam()).(*model.AssetHandle)

	var buffer bytes.Buffer
	if err := t.template.Execute(&buffer, t.GenerateParams(context)); err != nil {
		t.Fail(context, &model.InferenceError{Stage: model.StageGenerate, Err: fmt.Errorf("failed to execute prompt template: %w", err)})
		return
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromURI(asset.URI, asset.MIMEType),
			genai.NewPartFromText(buffer.String()),
		}, genai.RoleUser),
	}
	counters := cloud.ModelCounters{
		Input:  t.geminiInputTokenCounter,
		Output: t.geminiOutputTokenCounter,
		Retry:  t.geminiRetryCounter,
	}
	tools := t.search.Tools()

	usage := model.TokenUsage{}
	toolCalls := 0
	var resp *genai.GenerateContentResponse
	for round := 0; ; round++ {
		var err error
		resp, err = cloud.GenerateMultiModalResponse(ctx, counters, t.maxRetries, t.generativeAIModel, contents, tools...)
		if err == nil && resp == nil {
			err = errors.New("model returned an empty response")
		}
		if err != nil {
			t.Fail(context, &model.InferenceError{Stage: model.StageGenerate, Err: err})
			return
		}
		if resp.UsageMetadata != nil {
			usage.PromptTokens += resp.UsageMetadata.PromptTokenCount
			usage.CandidateTokens += resp.UsageMetadata.CandidatesTokenCount
		}

		calls := cloud.FunctionCalls(resp)
		if len(calls) == 0 {
			break
		}
		if round >= t.maxToolRounds {
			slog.Warn("tool round limit reached", "rounds", round, "pending_calls", len(calls))
			break
		}

		contents = append(contents, resp.Candidates[0].Content)
		parts := make([]*genai.Part, 0, len(calls))
		for _, call := range calls {
			toolCalls++
			if t.toolCallCounter != nil {
				t.toolCallCounter.Add(ctx, 1)
			}
			payload, err := t.search.Call(ctx, call)
			if err != nil {
				// The model gets the failure and decides how to continue.
				slog.Warn("tool call failed", "function", call.Name, "error", err)
				payload = map[string]any{"error": err.Error()}
			}
			part := genai.NewPartFromFunctionResponse(call.Name, payload)
			part.FunctionResponse.ID = call.ID
			parts = append(parts, part)
		}
		contents = append(contents, genai.NewContentFromParts(parts, genai.RoleUser))
	}

	text := cloud.ResponseText(resp)
	if text == "" {
		reason := "model returned no text"
		if len(resp.Candidates) > 0 && resp.Candidates[0].FinishReason != "" {
			reason = fmt.Sprintf("%s (finish reason %s)", reason, resp.Candidates[0].FinishReason)
		}
		t.Fail(context, &model.InferenceError{Stage: model.StageGenerate, Err: errors.New(reason)})
		return
	}

	result := model.NewInferenceResult(text, t.generativeAIModel.GetModelName())
	result.ToolCalls = toolCalls
	result.Usage = usage
	if video, ok := context.Get(VideoParam).(*model.VideoReference); ok {
		result.Source = video.String()
	}

	slog.Info("generated summary", "result_id", result.ID, "model", result.Model, "tool_calls", toolCalls,
		"prompt_tokens", usage.PromptTokens, "candidate_tokens", usage.CandidateTokens)
	t.Succeed(context)
	context.Add(t.GetOutputParam(), result)
}
