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
	"errors"
	"fmt"
	"log/slog"

	"cloud.google.com/go/storage"
	"github.com/jaycherian/gcp-go-video-summarizer/internal/core/model"
	"google.golang.org/genai"
)

// ErrInferenceNotConfigured is returned when no API key was available at
// startup for the Gemini backend.
var ErrInferenceNotConfigured = errors.New("the inference client is not configured: set " + EnvAPIKey)

// Unconfigured stands in for the model and asset store when no inference
// client could be built. Every call fails with Err, so the problem surfaces on
// first use like it would with a client missing its key.
type Unconfigured struct {
	Err error
}

func (u Unconfigured) GetModelName() string {
	return "unconfigured"
}

func (u Unconfigured) GenerateContent(context.Context, []*genai.Content, ...*genai.Tool) (*genai.GenerateContentResponse, error) {
	return nil, u.Err
}

func (u Unconfigured) Register(context.Context, string, string) (*model.AssetHandle, error) {
	return nil, u.Err
}

func (u Unconfigured) Refresh(context.Context, *model.AssetHandle) (*model.AssetHandle, error) {
	return nil, u.Err
}

func (u Unconfigured) Release(context.Context, *model.AssetHandle) error {
	return u.Err
}

// ServiceClients holds the clients created once per process and shared by
// every workflow run. Nothing in here is mutated after construction.
type ServiceClients struct {
	StorageClient *storage.Client // only for the vertex backend
	GenAIClient   *genai.Client
	AgentModels   map[string]*QuotaAwareGenerativeAIModel
	Assets        AssetStore
	Documents     DocumentStoreFactory
}

func (c *ServiceClients) Close() {
	if c.StorageClient != nil {
		_ = c.StorageClient.Close()
	}
}

// AgentModel returns the named model wrapper, or an Unconfigured stand-in
// when there is no inference client.
func (c *ServiceClients) AgentModel(name string) GenerativeModel {
	if c.GenAIClient == nil {
		return Unconfigured{Err: ErrInferenceNotConfigured}
	}
	m, ok := c.AgentModels[name]
	if !ok {
		return Unconfigured{Err: fmt.Errorf("agent model %q is not configured", name)}
	}
	return m
}

// AssetStore returns the store videos are registered with, or an
// Unconfigured stand-in when there is no inference client.
func (c *ServiceClients) AssetStore() AssetStore {
	if c.Assets == nil {
		return Unconfigured{Err: ErrInferenceNotConfigured}
	}
	return c.Assets
}

// NewCloudServiceClients builds the clients for the configured backend. With
// the Gemini backend and no API key it returns clients without inference
// support instead of failing, so the page still loads and each analysis
// reports the missing key.
func NewCloudServiceClients(ctx context.Context, config *Config) (*ServiceClients, error) {
	clients := &ServiceClients{
		AgentModels: make(map[string]*QuotaAwareGenerativeAIModel),
		Documents:   NewDocumentStoreFactory(config),
	}

	var clientConfig *genai.ClientConfig
	switch config.Application.Backend {
	case BackendVertex:
		sc, err := storage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create storage client: %w", err)
		}
		clients.StorageClient = sc
		clients.Assets = NewGCSAssetStore(sc, config.Storage.StagingBucket, config.Storage.StagingPrefix)
		clientConfig = &genai.ClientConfig{
			Project:  config.Application.GoogleProjectId,
			Location: config.Application.GoogleLocation,
			Backend:  genai.BackendVertexAI,
		}
	default:
		if config.Application.APIKey == "" {
			slog.Warn("inference client not configured", "reason", EnvAPIKey+" is not set")
			return clients, nil
		}
		clientConfig = &genai.ClientConfig{
			APIKey:  config.Application.APIKey,
			Backend: genai.BackendGeminiAPI,
		}
	}

	gc, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		clients.Close()
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	clients.GenAIClient = gc
	if clients.Assets == nil {
		clients.Assets = NewGeminiFileStore(gc)
	}

	for key, values := range config.AgentModels {
		clients.AgentModels[key] = NewQuotaAwareModel(NewGenerateContentConfig(values), values.Model, gc.Models, values.RateLimit)
		slog.Debug("configured agent model", "key", key, "model", values.Model)
	}
	return clients, nil
}
