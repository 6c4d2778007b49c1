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
	"github.com/jaycherian/gcp-go-video-summarizer/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-summarizer/internal/core/model"
)

const SummaryHeading = "Your AI Summary"

// RenderSummary wraps result text for display. The text is passed through
// untouched.
func RenderSummary(text string) *model.Summary {
	return &model.Summary{Heading: SummaryHeading, Body: text}
}

type ResultPresenter struct {
	cor.BaseCommand
}

func NewResultPresenter(name string) *ResultPresenter {
	out := &ResultPresenter{BaseCommand: *cor.NewBaseCommand(name)}
	out.InputParamName = ResultParam
	out.OutputParamName = SummaryParam
	return out
}

func (p *ResultPresenter) Execute(context cor.Context) {
	result := context.Get(p.GetInputParam()).(*model.InferenceResult)
	p.Succeed(context)
	context.Add(p.GetOutputParam(), RenderSummary(result.Text))
}
