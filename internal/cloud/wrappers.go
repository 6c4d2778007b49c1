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

package cloud

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/googleapis/gax-go/v2"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// GenerativeModel is the part of a model wrapper the workflow depends on.
// Tools are attached per call so one wrapper serves every search provider.
type GenerativeModel interface {
	GetModelName() string
	GenerateContent(ctx context.Context, contents []*genai.Content, tools ...*genai.Tool) (*genai.GenerateContentResponse, error)
}

// QuotaAwareGenerativeAIModel decorates a genai model handle with a request
// rate limit. Calls block until the limiter admits them or ctx is done.
type QuotaAwareGenerativeAIModel struct {
	GenerativeContentConfig *genai.GenerateContentConfig
	ModelName               string
	ModelHandle             *genai.Models
	RateLimit               *rate.Limiter
}

// NewQuotaAwareModel wraps handle. A requestsPerSecond of zero or less
// disables rate limiting.
func NewQuotaAwareModel(wrapped *genai.GenerateContentConfig, name string, handle *genai.Models, requestsPerSecond int) *QuotaAwareGenerativeAIModel {
	limiter := rate.NewLimiter(rate.Inf, 0)
	if requestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
	return &QuotaAwareGenerativeAIModel{
		GenerativeContentConfig: wrapped,
		ModelName:               name,
		ModelHandle:             handle,
		RateLimit:               limiter,
	}
}

func (q *QuotaAwareGenerativeAIModel) GetModelName() string {
	return q.ModelName
}

func (q *QuotaAwareGenerativeAIModel) GenerateContent(ctx context.Context, contents []*genai.Content, tools ...*genai.Tool) (*genai.GenerateContentResponse, error) {
	if err := q.RateLimit.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}
	config := q.GenerativeContentConfig
	if len(tools) > 0 {
		withTools := *q.GenerativeContentConfig
		withTools.Tools = tools
		config = &withTools
	}
	return q.ModelHandle.GenerateContent(ctx, q.ModelName, contents, config)
}

// NewGenerateContentConfig translates a model entry of the configuration into
// the genai request settings.
func NewGenerateContentConfig(values VertexAiLLMModel) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr[float32](values.Temperature),
		MaxOutputTokens: values.MaxTokens,
		SafetySettings:  DefaultSafetySettings,
	}
	if values.TopP > 0 {
		config.TopP = genai.Ptr[float32](values.TopP)
	}
	if values.TopK > 0 {
		config.TopK = genai.Ptr[float32](values.TopK)
	}
	if values.SystemInstructions != "" {
		config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: values.SystemInstructions}}}
	}
	if values.OutputFormat != "" {
		config.ResponseMIMEType = values.OutputFormat
	}
	return config
}

// ModelCounters are the token and retry instruments recorded around a model
// call. Nil counters are skipped.
type ModelCounters struct {
	Input  metric.Int64Counter
	Output metric.Int64Counter
	Retry  metric.Int64Counter
}

// RetryBackoff is the pause schedule between failed model calls.
var RetryBackoff = gax.Backoff{
	Initial:    2 * time.Second,
	Max:        30 * time.Second,
	Multiplier: 2,
}

// GenerateMultiModalResponse calls the model, retrying up to maxRetries more
// times on error, and records token usage on success.
func GenerateMultiModalResponse(ctx context.Context, counters ModelCounters, maxRetries int, model GenerativeModel, contents []*genai.Content, tools ...*genai.Tool) (*genai.GenerateContentResponse, error) {
	backoff := RetryBackoff
	for try := 0; ; try++ {
		resp, err := model.GenerateContent(ctx, contents, tools...)
		if err == nil {
			if resp != nil && resp.UsageMetadata != nil {
				if counters.Input != nil {
					counters.Input.Add(ctx, int64(resp.UsageMetadata.PromptTokenCount))
				}
				if counters.Output != nil {
					counters.Output.Add(ctx, int64(resp.UsageMetadata.CandidatesTokenCount))
				}
			}
			return resp, nil
		}
		if try >= maxRetries || ctx.Err() != nil {
			return nil, err
		}
		slog.Warn("model call failed, retrying", "model", model.GetModelName(), "try", try+1, "error", err)
		if counters.Retry != nil {
			counters.Retry.Add(ctx, 1)
		}
		if sleepErr := gax.Sleep(ctx, backoff.Pause()); sleepErr != nil {
			return nil, err
		}
	}
}

// ResponseText joins the text parts of the first candidate, skipping thought
// summaries.
func ResponseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		sb.WriteString(part.Text)
	}
	return sb.String()
}

// FunctionCalls returns the function calls requested by the first candidate.
func FunctionCalls(resp *genai.GenerateContentResponse) []*genai.FunctionCall {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil
	}
	var calls []*genai.FunctionCall
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil && part.FunctionCall != nil {
			calls = append(calls, part.FunctionCall)
		}
	}
	return calls
}
