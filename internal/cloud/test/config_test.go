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

package cloud_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jaycherian/gcp-go-video-summarizer/internal/cloud"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir string, name string, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func clearEnvironment(t *testing.T) {
	for _, key := range []string{
		cloud.EnvAPIKey, cloud.EnvAPIKeyFallback, cloud.EnvExportCredentials, cloud.EnvExportFolderID,
		cloud.EnvPort, cloud.EnvSearchAPIKey, cloud.EnvSearchEngineID,
	} {
		t.Setenv(key, "")
	}
}

func TestLoadConfigLayersRuntimeOverBase(t *testing.T) {
	clearEnvironment(t)
	dir := t.TempDir()
	writeFile(t, dir, ".env.toml", `
[application]
name = "base-name"
max_concurrent_runs = 2

[search]
provider = "none"

[export]
folder_id = "base-folder"
`)
	writeFile(t, dir, ".env.test.toml", `
[application]
name = "test-name"

[polling]
timeout_in_seconds = 42
`)
	t.Setenv(cloud.EnvConfigFilePrefix, dir)
	t.Setenv(cloud.EnvConfigRuntime, "test")

	config := cloud.NewConfig()
	require.NoError(t, cloud.LoadConfig(config))

	assert.Equal(t, "test-name", config.Application.Name)
	assert.Equal(t, 2, config.Application.MaxConcurrentRuns)
	assert.Equal(t, cloud.SearchNone, config.Search.Provider)
	assert.Equal(t, "base-folder", config.Export.FolderID)
	assert.Equal(t, 42, config.Polling.TimeoutInSeconds)
	// Untouched values keep their defaults.
	assert.Equal(t, cloud.BackendGemini, config.Application.Backend)
	assert.Equal(t, []string{"mp4", "mov", "avi"}, config.Acquisition.AllowedExtensions)
}

func TestLoadConfigWithoutFiles(t *testing.T) {
	clearEnvironment(t)
	t.Setenv(cloud.EnvConfigFilePrefix, t.TempDir())
	t.Setenv(cloud.EnvConfigRuntime, "")

	config := cloud.NewConfig()
	require.NoError(t, cloud.LoadConfig(config))
	assert.Equal(t, cloud.NewConfig().Application, config.Application)
}

func TestLoadConfigRejectsBadTOML(t *testing.T) {
	clearEnvironment(t)
	dir := t.TempDir()
	writeFile(t, dir, ".env.toml", "[application\nname = ")
	t.Setenv(cloud.EnvConfigFilePrefix, dir)

	assert.Error(t, cloud.LoadConfig(cloud.NewConfig()))
}

func TestApplyEnvironment(t *testing.T) {
	clearEnvironment(t)
	t.Setenv(cloud.EnvAPIKeyFallback, " fallback-key ")
	t.Setenv(cloud.EnvExportFolderID, "env-folder")
	t.Setenv(cloud.EnvPort, "9090")
	t.Setenv(cloud.EnvSearchAPIKey, "search-key")

	config := cloud.NewConfig()
	cloud.ApplyEnvironment(config)

	assert.Equal(t, "fallback-key", config.Application.APIKey)
	assert.Equal(t, "env-folder", config.Export.FolderID)
	assert.Equal(t, ":9090", config.Application.ListenAddress)
	assert.Equal(t, "search-key", config.Search.APIKey)

	t.Setenv(cloud.EnvAPIKey, "primary-key")
	cloud.ApplyEnvironment(config)
	assert.Equal(t, "primary-key", config.Application.APIKey)
}

func TestValidateDefaults(t *testing.T) {
	config := cloud.NewConfig()
	config.Export.CredentialsFile = writeFile(t, t.TempDir(), "sa.json", "{}")
	config.Export.FolderID = "folder"

	warnings, err := config.Validate()
	require.NoError(t, err)
	// Only the missing API key is reported.
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], cloud.EnvAPIKey)

	config.Application.APIKey = "key"
	warnings, err = config.Validate()
	require.NoError(t, err)
	assert.Empty(t, warnings)
}

func TestValidateErrors(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(c *cloud.Config)
	}{
		{name: "backend", mutate: func(c *cloud.Config) { c.Application.Backend = "openai" }},
		{name: "vertex project", mutate: func(c *cloud.Config) { c.Application.Backend = cloud.BackendVertex }},
		{name: "agent model", mutate: func(c *cloud.Config) { c.Application.AgentModel = "missing" }},
		{name: "runs", mutate: func(c *cloud.Config) { c.Application.MaxConcurrentRuns = 0 }},
		{name: "prompt", mutate: func(c *cloud.Config) { c.PromptTemplates.AnalysisPrompt = " " }},
		{name: "extensions", mutate: func(c *cloud.Config) { c.Acquisition.AllowedExtensions = nil }},
		{name: "polling", mutate: func(c *cloud.Config) { c.Polling.MaxIntervalInMillis = 1 }},
		{name: "search provider", mutate: func(c *cloud.Config) { c.Search.Provider = "bing" }},
		{name: "custom search key", mutate: func(c *cloud.Config) { c.Search.Provider = cloud.SearchCustom }},
		{name: "tool rounds", mutate: func(c *cloud.Config) { c.Search.MaxToolRounds = 0 }},
		{name: "export destination", mutate: func(c *cloud.Config) { c.Export.Destination = "dropbox" }},
		{name: "gcs bucket", mutate: func(c *cloud.Config) { c.Export.Destination = cloud.ExportGCS }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			config := cloud.NewConfig()
			config.Application.APIKey = "key"
			tc.mutate(config)
			_, err := config.Validate()
			assert.Error(t, err)
		})
	}
}

func TestValidateWarnsAboutExportSetup(t *testing.T) {
	config := cloud.NewConfig()
	config.Application.APIKey = "key"
	config.Export.CredentialsFile = filepath.Join(t.TempDir(), "missing.json")

	warnings, err := config.Validate()
	require.NoError(t, err)
	assert.Len(t, warnings, 2)

	config.Export.Enabled = false
	warnings, err = config.Validate()
	require.NoError(t, err)
	assert.Empty(t, warnings)
}

func TestAllowsExtension(t *testing.T) {
	config := cloud.NewConfig()
	assert.True(t, config.AllowsExtension(".MP4"))
	assert.True(t, config.AllowsExtension("mov"))
	assert.False(t, config.AllowsExtension("mkv"))
	assert.False(t, config.AllowsExtension(""))
}
