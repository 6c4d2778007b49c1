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

package search_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"
	"github.com/jaycherian/gcp-go-video-summarizer/internal/cloud"
	"github.com/jaycherian/gcp-go-video-summarizer/internal/search"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

type stubTool struct {
	arguments []string
	result    string
	err       error
}

func (s *stubTool) Info(context.Context) (*schema.ToolInfo, error) {
	return &schema.ToolInfo{Name: search.FunctionName, Desc: "stub"}, nil
}

func (s *stubTool) InvokableRun(_ context.Context, argumentsInJSON string, _ ...tool.Option) (string, error) {
	s.arguments = append(s.arguments, argumentsInJSON)
	return s.result, s.err
}

func TestFunctionToolDeclaration(t *testing.T) {
	tools := search.NewFunctionTool(&stubTool{}).Tools()
	require.Len(t, tools, 1)
	require.Len(t, tools[0].FunctionDeclarations, 1)

	decl := tools[0].FunctionDeclarations[0]
	assert.Equal(t, search.FunctionName, decl.Name)
	assert.Equal(t, genai.TypeObject, decl.Parameters.Type)
	assert.Equal(t, []string{"query"}, decl.Parameters.Required)
}

func TestFunctionToolCall(t *testing.T) {
	stub := &stubTool{result: `[{"title":"Result","url":"https://example.com"}]`}
	provider := search.NewFunctionTool(stub)

	payload, err := provider.Call(context.Background(), &genai.FunctionCall{
		Name: search.FunctionName,
		Args: map[string]any{"query": "  golang release date "},
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"results": stub.result}, payload)

	require.Len(t, stub.arguments, 1)
	var args map[string]string
	require.NoError(t, json.Unmarshal([]byte(stub.arguments[0]), &args))
	assert.Equal(t, "golang release date", args["query"])
}

func TestFunctionToolCallErrors(t *testing.T) {
	stub := &stubTool{err: errors.New("rate limited")}
	provider := search.NewFunctionTool(stub)
	ctx := context.Background()

	_, err := provider.Call(ctx, &genai.FunctionCall{Name: "other", Args: map[string]any{"query": "x"}})
	assert.Error(t, err)
	_, err = provider.Call(ctx, &genai.FunctionCall{Name: search.FunctionName, Args: map[string]any{}})
	assert.Error(t, err)
	assert.Empty(t, stub.arguments)

	_, err = provider.Call(ctx, &genai.FunctionCall{Name: search.FunctionName, Args: map[string]any{"query": "x"}})
	assert.ErrorContains(t, err, "rate limited")
}

func TestNewProviders(t *testing.T) {
	ctx := context.Background()
	config := cloud.NewConfig().Search

	config.Provider = cloud.SearchNone
	none, err := search.New(ctx, config)
	require.NoError(t, err)
	assert.Nil(t, none.Tools())
	_, err = none.Call(ctx, &genai.FunctionCall{Name: search.FunctionName})
	assert.ErrorIs(t, err, search.ErrNotCallable)

	config.Provider = cloud.SearchGoogle
	grounding, err := search.New(ctx, config)
	require.NoError(t, err)
	require.Len(t, grounding.Tools(), 1)
	assert.NotNil(t, grounding.Tools()[0].GoogleSearch)

	config.Provider = cloud.SearchDuckDuckGo
	ddg, err := search.New(ctx, config)
	require.NoError(t, err)
	assert.IsType(t, &search.FunctionTool{}, ddg)

	config.Provider = "bing"
	_, err = search.New(ctx, config)
	assert.Error(t, err)
}
