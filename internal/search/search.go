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

// Package search provides the web search capabilities the model may use
// while answering a query.
//
// Two kinds exist. Function tools (DuckDuckGo, Programmable Search) are
// declared to the model and executed locally when the model calls them.
// Grounding (Google Search) runs entirely on the provider side.
package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/tool/duckduckgo/v2"
	"github.com/cloudwego/eino-ext/components/tool/googlesearch"
	"github.com/cloudwego/eino/components/tool"
	"github.com/jaycherian/gcp-go-video-summarizer/internal/cloud"
	"google.golang.org/genai"
)

// FunctionName is the name the search function is declared under.
const FunctionName = "web_search"

// ErrNotCallable is returned by providers that have no local function.
var ErrNotCallable = errors.New("search provider has no callable function")

// Provider exposes search to the model.
type Provider interface {
	// Tools are attached to every generate call. Nil means no tools.
	Tools() []*genai.Tool
	// Call executes a function call requested by the model and returns the
	// function response payload.
	Call(ctx context.Context, call *genai.FunctionCall) (map[string]any, error)
}

// New builds the provider named in the configuration.
func New(ctx context.Context, config cloud.Search) (Provider, error) {
	timeout := time.Duration(config.TimeoutInSeconds) * time.Second
	switch config.Provider {
	case cloud.SearchNone, "":
		return None{}, nil
	case cloud.SearchGoogle:
		return GoogleGrounding{}, nil
	case cloud.SearchDuckDuckGo:
		ddg, err := duckduckgo.NewTextSearchTool(ctx, &duckduckgo.Config{
			ToolName:   FunctionName,
			ToolDesc:   "DuckDuckGo web search",
			MaxResults: config.MaxResults,
			Region:     duckduckgo.Region(config.Region),
			Timeout:    timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create duckduckgo search tool: %w", err)
		}
		return NewFunctionTool(ddg), nil
	case cloud.SearchCustom:
		cse, err := googlesearch.NewTool(ctx, &googlesearch.Config{
			ToolName:       FunctionName,
			ToolDesc:       "Google Programmable Search",
			APIKey:         config.APIKey,
			SearchEngineID: config.SearchEngineID,
			Lang:           config.Language,
			Num:            config.MaxResults,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create custom search tool: %w", err)
		}
		return NewFunctionTool(cse), nil
	default:
		return nil, fmt.Errorf("unknown search provider %q", config.Provider)
	}
}

// None grants no tools.
type None struct{}

func (None) Tools() []*genai.Tool {
	return nil
}

func (None) Call(context.Context, *genai.FunctionCall) (map[string]any, error) {
	return nil, ErrNotCallable
}

// GoogleGrounding enables the provider side Google Search tool.
type GoogleGrounding struct{}

func (GoogleGrounding) Tools() []*genai.Tool {
	return []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
}

func (GoogleGrounding) Call(context.Context, *genai.FunctionCall) (map[string]any, error) {
	return nil, ErrNotCallable
}

// FunctionTool declares a single web_search(query) function to the model
// and runs it with an eino invokable tool.
type FunctionTool struct {
	invokable tool.InvokableTool
}

func NewFunctionTool(invokable tool.InvokableTool) *FunctionTool {
	return &FunctionTool{invokable: invokable}
}

func (f *FunctionTool) Tools() []*genai.Tool {
	return []*genai.Tool{{
		FunctionDeclarations: []*genai.FunctionDeclaration{{
			Name:        FunctionName,
			Description: "Search the web for supplementary context about the video or the user's question.",
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"query": {
						Type:        genai.TypeString,
						Description: "Natural language search query",
					},
				},
				Required: []string{"query"},
			},
		}},
	}}
}

func (f *FunctionTool) Call(ctx context.Context, call *genai.FunctionCall) (map[string]any, error) {
	if call == nil || call.Name != FunctionName {
		return nil, fmt.Errorf("unknown function %v", call)
	}
	query, _ := call.Args["query"].(string)
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("web_search needs a non-empty query")
	}
	payload, err := json.Marshal(map[string]string{"query": query})
	if err != nil {
		return nil, err
	}
	result, err := f.invokable.InvokableRun(ctx, string(payload))
	if err != nil {
		return nil, fmt.Errorf("web search for %q failed: %w", query, err)
	}
	return map[string]any{"results": result}, nil
}
