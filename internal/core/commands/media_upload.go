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
	"log/slog"

	"github.com/jaycherian/gcp-go-video-summarizer/internal/cloud"
	"github.com/jaycherian/gcp-go-video-summarizer/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-summarizer/internal/core/model"
)

// MediaUpload registers the local video with the provider's asset store.
// The returned handle may still be processing.
type MediaUpload struct {
	cor.BaseCommand
	assets cloud.AssetStore
}

func NewMediaUpload(name string, assets cloud.AssetStore) *MediaUpload {
	out := &MediaUpload{BaseCommand: *cor.NewBaseCommand(name), assets: assets}
	out.InputParamName = VideoParam
	out.OutputParamName = AssetParam
	return out
}

func (v *MediaUpload) Execute(context cor.Context) {
	video := context.Get(v.GetInputParam()).(*model.VideoReference)

	handle, err := v.assets.Register(context.GetContext(), video.Path, video.MIMEType)
	if err != nil {
		v.Fail(context, &model.InferenceError{Stage: model.StageRegister, Err: err})
		return
	}

	slog.Info("registered video", "video", video.String(), "asset", handle.Name, "state", handle.State)
	v.Succeed(context)
	context.Add(v.GetOutputParam(), handle)
}
