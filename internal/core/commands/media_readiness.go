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
	"fmt"
	"log/slog"
	"time"

	"github.com/googleapis/gax-go/v2"
	"github.com/jaycherian/gcp-go-video-summarizer/internal/cloud"
	"github.com/jaycherian/gcp-go-video-summarizer/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-summarizer/internal/core/model"
)

// MediaReadiness waits for a registered asset to leave the processing state.
// Status checks back off exponentially and stop after the configured timeout
// with a *model.TimeoutError.
type MediaReadiness struct {
	cor.BaseCommand
	assets  cloud.AssetStore
	backoff gax.Backoff
	timeout time.Duration
}

func NewMediaReadiness(name string, assets cloud.AssetStore, config *cloud.Polling) *MediaReadiness {
	out := &MediaReadiness{
		BaseCommand: *cor.NewBaseCommand(name),
		assets:      assets,
		backoff: gax.Backoff{
			Initial:    time.Duration(config.InitialIntervalInMillis) * time.Millisecond,
			Max:        time.Duration(config.MaxIntervalInMillis) * time.Millisecond,
			Multiplier: config.Multiplier,
		},
		timeout: time.Duration(config.TimeoutInSeconds) * time.Second,
	}
	out.InputParamName = AssetParam
	out.OutputParamName = AssetParam
	return out
}

func (m *MediaReadiness) Execute(context cor.Context) {
	ctx := context.GetContext()
	handle := context.Get(m.GetInputParam()).(*model.AssetHandle)
	backoff := m.backoff // the pause sequence restarts for every run
	start := time.Now()
	deadline := start.Add(m.timeout)
	polls := 0

	for handle.IsPending() {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			m.Fail(context, &model.InferenceError{
				Stage: model.StagePoll,
				Err:   &model.TimeoutError{Asset: handle.Name, Waited: time.Since(start), Polls: polls},
			})
			return
		}
		pause := backoff.Pause()
		if pause > remaining {
			pause = remaining
		}
		if err := gax.Sleep(ctx, pause); err != nil {
			m.Fail(context, &model.InferenceError{Stage: model.StagePoll, Err: err})
			return
		}

		refreshed, err := m.assets.Refresh(ctx, handle)
		polls++
		if err != nil {
			m.Fail(context, &model.InferenceError{Stage: model.StagePoll, Err: err})
			return
		}
		handle = refreshed
		slog.Debug("polled asset", "asset", handle.Name, "state", handle.State, "poll", polls)
	}

	if handle.State != model.AssetStateActive {
		reason := handle.Reason
		if reason == "" {
			reason = "no reason given"
		}
		m.Fail(context, &model.InferenceError{
			Stage: model.StagePoll,
			Err:   fmt.Errorf("asset %s ended in state %s: %s", handle.Name, handle.State, reason),
		})
		return
	}

	slog.Info("asset ready", "asset", handle.Name, "polls", polls, "waited", time.Since(start))
	m.Succeed(context)
	context.Add(m.GetOutputParam(), handle)
}
