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
	"strings"

	"github.com/jaycherian/gcp-go-video-summarizer/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-summarizer/internal/core/model"
)

// RequestValidator checks the user input before anything is downloaded or
// sent to the provider. Problems are recorded as *model.Warning.
type RequestValidator struct {
	cor.BaseCommand
}

func NewRequestValidator(name string) *RequestValidator {
	out := &RequestValidator{BaseCommand: *cor.NewBaseCommand(name)}
	out.InputParamName = RequestParam
	return out
}

func (v *RequestValidator) Execute(context cor.Context) {
	rawQuery, _ := context.Get(QueryParam).(string)
	query := strings.TrimSpace(rawQuery)
	if query == "" {
		v.Fail(context, model.ErrEmptyQuery)
		return
	}

	request, _ := context.Get(v.GetInputParam()).(*model.VideoRequest)
	if !request.HasURL() && !request.HasUpload() {
		v.Fail(context, model.ErrNoVideo)
		return
	}

	context.Add(QueryParam, query)
	v.Succeed(context)
}
