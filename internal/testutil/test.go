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

// Package test provides the configuration and in-memory stand-ins for the
// external services used across the test suite. Nothing here talks to the
// network.
package test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/jaycherian/gcp-go-video-summarizer/internal/cloud"
	"github.com/jaycherian/gcp-go-video-summarizer/internal/core/model"
	"google.golang.org/genai"
)

// TestSummary is the text the default FakeModel answers with.
const TestSummary = "Test summary"

// MP4Header is the start of an ISO base media file, enough for content
// sniffing to recognise an mp4.
var MP4Header = []byte{0x00, 0x00, 0x00, 0x18, 'f', 't', 'y', 'p', 'm', 'p', '4', '2', 0x00, 0x00, 0x00, 0x00, 'm', 'p', '4', '2', 'i', 's', 'o', 'm'}

// HandleErr fails the test on a non-nil error.
func HandleErr(err error, t *testing.T) {
	t.Helper()
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

// GetConfig returns the default configuration tuned for fast tests: temp
// files go to a per-test directory, polling uses millisecond pauses and the
// export credentials file is left unset.
func GetConfig(t *testing.T) *cloud.Config {
	t.Helper()
	config := cloud.NewConfig()
	config.Application.APIKey = "test-key"
	config.Acquisition.TempDir = t.TempDir()
	config.Polling = cloud.Polling{
		InitialIntervalInMillis: 1,
		MaxIntervalInMillis:     5,
		Multiplier:              1.5,
		TimeoutInSeconds:        2,
	}
	config.Search.Provider = cloud.SearchNone
	config.Export.CredentialsFile = ""
	config.Export.FolderID = "test-folder"
	return config
}

// TempEntries lists what is left in dir.
func TempEntries(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("failed to read %s: %v", dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

// FakeAssetStore registers files in memory. Refresh walks through States,
// repeating the last one once they run out.
type FakeAssetStore struct {
	mu            sync.Mutex
	RegisterState model.AssetState
	States        []model.AssetState
	Reason        string
	RegisterErr   error
	RefreshErr    error

	Registered []string
	Contents   [][]byte
	Refreshes  int
	Released   []string
}

func (f *FakeAssetStore) Register(_ context.Context, path string, mimeType string) (*model.AssetHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.RegisterErr != nil {
		return nil, f.RegisterErr
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	f.Registered = append(f.Registered, path)
	f.Contents = append(f.Contents, content)
	state := f.RegisterState
	if state == "" {
		state = model.AssetStateProcessing
	}
	name := fmt.Sprintf("files/test-%d", len(f.Registered))
	return &model.AssetHandle{
		Name:     name,
		URI:      "https://generativelanguage.googleapis.com/v1beta/" + name,
		MIMEType: mimeType,
		State:    state,
	}, nil
}

func (f *FakeAssetStore) Refresh(_ context.Context, handle *model.AssetHandle) (*model.AssetHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Refreshes++
	if f.RefreshErr != nil {
		return nil, f.RefreshErr
	}
	state := model.AssetStateActive
	if len(f.States) > 0 {
		i := f.Refreshes - 1
		if i >= len(f.States) {
			i = len(f.States) - 1
		}
		state = f.States[i]
	}
	out := *handle
	out.State = state
	if state == model.AssetStateFailed {
		out.Reason = f.Reason
	}
	return &out, nil
}

func (f *FakeAssetStore) Release(_ context.Context, handle *model.AssetHandle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Released = append(f.Released, handle.Name)
	return nil
}

// FakeModel answers with Responses in order, repeating the last one, or
// with a single text part holding Text.
type FakeModel struct {
	mu        sync.Mutex
	Name      string
	Text      string
	Responses []*genai.GenerateContentResponse
	Errs      []error // returned by the first calls, in order

	Calls [][]*genai.Content
	Tools [][]*genai.Tool
}

func NewFakeModel() *FakeModel {
	return &FakeModel{Name: "fake-model", Text: TestSummary}
}

func (f *FakeModel) GetModelName() string {
	return f.Name
}

func (f *FakeModel) GenerateContent(_ context.Context, contents []*genai.Content, tools ...*genai.Tool) (*genai.GenerateContentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	call := len(f.Calls)
	f.Calls = append(f.Calls, append([]*genai.Content(nil), contents...))
	f.Tools = append(f.Tools, tools)
	if call < len(f.Errs) && f.Errs[call] != nil {
		return nil, f.Errs[call]
	}
	if len(f.Responses) > 0 {
		i := call - len(f.Errs)
		if i < 0 {
			i = 0
		}
		if i >= len(f.Responses) {
			i = len(f.Responses) - 1
		}
		return f.Responses[i], nil
	}
	return TextResponse(f.Text), nil
}

// CallCount is safe to use while a run is in flight.
func (f *FakeModel) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Calls)
}

// TextResponse is a single candidate with one text part.
func TextResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content:      genai.NewContentFromText(text, genai.RoleModel),
			FinishReason: genai.FinishReasonStop,
		}},
		UsageMetadata: &genai.GenerateContentResponseUsageMetadata{
			PromptTokenCount:     10,
			CandidatesTokenCount: 5,
		},
	}
}

// FunctionCallResponse is a single candidate requesting one function call.
func FunctionCallResponse(id string, name string, args map[string]any) *genai.GenerateContentResponse {
	part := genai.NewPartFromFunctionCall(name, args)
	part.FunctionCall.ID = id
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: genai.NewContentFromParts([]*genai.Part{part}, genai.RoleModel),
		}},
	}
}

// FakeFetcher writes Content to dir/FileName instead of running yt-dlp.
type FakeFetcher struct {
	mu       sync.Mutex
	FileName string
	Content  []byte
	Err      error
	URLs     []string
}

func (f *FakeFetcher) Fetch(_ context.Context, videoURL string, dir string) (*model.VideoReference, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.URLs = append(f.URLs, videoURL)
	if f.Err != nil {
		return nil, f.Err
	}
	name := f.FileName
	if name == "" {
		name = "video.mp4"
	}
	content := f.Content
	if content == nil {
		content = MP4Header
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		return nil, err
	}
	return &model.VideoReference{
		Path:      path,
		Source:    model.SourceURL,
		Origin:    videoURL,
		MIMEType:  "video/mp4",
		SizeBytes: int64(len(content)),
	}, nil
}

func (f *FakeFetcher) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.URLs)
}

// FakeDocumentStore keeps created documents in memory.
type FakeDocumentStore struct {
	mu        sync.Mutex
	CreateErr error
	Documents map[string]string
	Closed    int
}

func (f *FakeDocumentStore) CreateDocument(_ context.Context, name string, content io.Reader) (*model.ExportedDocument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.CreateErr != nil {
		return nil, f.CreateErr
	}
	body, err := io.ReadAll(content)
	if err != nil {
		return nil, err
	}
	if f.Documents == nil {
		f.Documents = make(map[string]string)
	}
	f.Documents[name] = string(body)
	return &model.ExportedDocument{
		ID:          fmt.Sprintf("doc-%d", len(f.Documents)),
		Name:        name,
		Destination: "fake",
	}, nil
}

func (f *FakeDocumentStore) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed++
	return nil
}

// Factory returns a factory handing out f, or failing with err when set.
func (f *FakeDocumentStore) Factory(err error) cloud.DocumentStoreFactory {
	return func(context.Context) (cloud.DocumentStore, error) {
		if err != nil {
			return nil, err
		}
		return f, nil
	}
}

// ErrCredentials mimics a missing service account file.
var ErrCredentials = errors.New("credentials file not found: service_account.json")

// FakeSearch declares web_search and answers every call with Results.
type FakeSearch struct {
	mu      sync.Mutex
	Results string
	Err     error
	Queries []string
}

func (f *FakeSearch) Tools() []*genai.Tool {
	return []*genai.Tool{{FunctionDeclarations: []*genai.FunctionDeclaration{{Name: "web_search"}}}}
}

func (f *FakeSearch) Call(_ context.Context, call *genai.FunctionCall) (map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	query, _ := call.Args["query"].(string)
	f.Queries = append(f.Queries, query)
	if f.Err != nil {
		return nil, f.Err
	}
	return map[string]any{"results": f.Results}, nil
}
