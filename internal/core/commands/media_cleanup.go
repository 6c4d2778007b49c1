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
	"context"
	"log/slog"
	"time"

	"github.com/jaycherian/gcp-go-video-summarizer/internal/cloud"
	"github.com/jaycherian/gcp-go-video-summarizer/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-summarizer/internal/core/model"
)

const releaseTimeout = 30 * time.Second

// MediaCleanup releases the remote asset and deletes the local video files.
// It runs as a chain finalizer; failures are logged and never recorded.
type MediaCleanup struct {
	cor.BaseCommand
	assets cloud.AssetStore
}

func NewMediaCleanup(name string, assets cloud.AssetStore) *MediaCleanup {
	out := &MediaCleanup{BaseCommand: *cor.NewBaseCommand(name), assets: assets}
	out.InputParamName = AssetParam
	return out
}

// IsExecutable holds whenever the run produced anything to clean up.
func (v *MediaCleanup) IsExecutable(context cor.Context) bool {
	return context != nil && context.GetContext() != nil &&
		(context.Get(AssetParam) != nil || len(context.GetTempFiles()) > 0)
}

func (v *MediaCleanup) Execute(chCtx cor.Context) {
	if handle, ok := chCtx.Get(v.GetInputParam()).(*model.AssetHandle); ok && v.assets != nil {
		// A cancelled request must still release what it registered.
		ctx, cancel := context.WithTimeout(context.WithoutCancel(chCtx.GetContext()), releaseTimeout)
		defer cancel()
		if err := v.assets.Release(ctx, handle); err != nil {
			slog.Debug("failed to release asset", "asset", handle.Name, "error", err)
		}
	}
	chCtx.Close()
	v.Succeed(chCtx)
}
