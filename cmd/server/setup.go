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

package main

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/jaycherian/gcp-go-video-summarizer/internal/cloud"
	"github.com/jaycherian/gcp-go-video-summarizer/internal/core/services"
)

type StateManager struct {
	config     *cloud.Config
	cloud      *cloud.ServiceClients
	summarizer *services.SummarizerService
}

var state = &StateManager{}

// SetupOS points the config loader at ./configs and the local runtime unless
// the environment already says otherwise. A .env file, when present, is
// loaded first without overriding variables that are already set.
func SetupOS() (err error) {
	if err = godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	if os.Getenv(cloud.EnvConfigFilePrefix) == "" {
		if err = os.Setenv(cloud.EnvConfigFilePrefix, "configs"); err != nil {
			return err
		}
	}
	if os.Getenv(cloud.EnvConfigRuntime) == "" {
		err = os.Setenv(cloud.EnvConfigRuntime, cloud.DefaultRuntime)
	}
	return err
}

func GetConfig() (*cloud.Config, error) {
	if state.config == nil {
		if err := SetupOS(); err != nil {
			return nil, err
		}
		config := cloud.NewConfig()
		if err := cloud.LoadConfig(config); err != nil {
			return nil, err
		}
		warnings, err := config.Validate()
		for _, w := range warnings {
			slog.Warn(w)
		}
		if err != nil {
			return nil, err
		}
		state.config = config
	}
	return state.config, nil
}

func InitState(ctx context.Context, config *cloud.Config) error {
	cloudClients, err := cloud.NewCloudServiceClients(ctx, config)
	if err != nil {
		return err
	}
	state.cloud = cloudClients

	summarizer, err := services.NewFromConfig(ctx, config, cloudClients)
	if err != nil {
		cloudClients.Close()
		return err
	}
	state.summarizer = summarizer
	return nil
}
