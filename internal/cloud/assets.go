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
	"path/filepath"

	"github.com/jaycherian/gcp-go-video-summarizer/internal/core/model"
	"google.golang.org/genai"
)

// AssetStore registers local videos with the inference provider so they can
// be attached to a generate call by URI.
type AssetStore interface {
	// Register uploads the file and returns its handle. The handle may still
	// be processing.
	Register(ctx context.Context, path string, mimeType string) (*model.AssetHandle, error)
	// Refresh fetches the current state of a registered asset.
	Refresh(ctx context.Context, handle *model.AssetHandle) (*model.AssetHandle, error)
	// Release deletes the remote copy.
	Release(ctx context.Context, handle *model.AssetHandle) error
}

// GeminiFileStore uses the Gemini API Files service. Uploaded videos are
// processed asynchronously and start in the PROCESSING state.
type GeminiFileStore struct {
	Files *genai.Files
}

func NewGeminiFileStore(client *genai.Client) *GeminiFileStore {
	return &GeminiFileStore{Files: client.Files}
}

func (s *GeminiFileStore) Register(ctx context.Context, path string, mimeType string) (*model.AssetHandle, error) {
	file, err := s.Files.UploadFromPath(ctx, path, &genai.UploadFileConfig{
		MIMEType:    mimeType,
		DisplayName: filepath.Base(path),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload %s: %w", filepath.Base(path), err)
	}
	return handleFromFile(file), nil
}

func (s *GeminiFileStore) Refresh(ctx context.Context, handle *model.AssetHandle) (*model.AssetHandle, error) {
	file, err := s.Files.Get(ctx, handle.Name, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get file %s: %w", handle.Name, err)
	}
	return handleFromFile(file), nil
}

func (s *GeminiFileStore) Release(ctx context.Context, handle *model.AssetHandle) error {
	_, err := s.Files.Delete(ctx, handle.Name, nil)
	return err
}

func handleFromFile(file *genai.File) *model.AssetHandle {
	handle := &model.AssetHandle{
		Name:     file.Name,
		URI:      file.URI,
		MIMEType: file.MIMEType,
		State:    model.AssetState(file.State),
	}
	if file.Error != nil {
		handle.Reason = file.Error.Message
	}
	return handle
}
