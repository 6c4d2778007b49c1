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
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	ConfigFileBaseName  = ".env"
	ConfigFileExtension = ".toml"
	ConfigSeparator     = "."
	EnvConfigFilePrefix = "GCP_CONFIG_PREFIX" // directory holding the TOML files
	EnvConfigRuntime    = "GCP_RUNTIME"       // selects .env.<runtime>.toml

	EnvAPIKey            = "GOOGLE_API_KEY"
	EnvAPIKeyFallback    = "GEMINI_API_KEY"
	EnvExportCredentials = "SUMMARIZER_EXPORT_CREDENTIALS"
	EnvExportFolderID    = "SUMMARIZER_EXPORT_FOLDER_ID"
	EnvPort              = "PORT"
	EnvSearchAPIKey      = "GOOGLE_SEARCH_API_KEY"
	EnvSearchEngineID    = "GOOGLE_SEARCH_ENGINE_ID"

	DefaultRuntime = "local"
)

func fileExists(in string) bool {
	_, err := os.Stat(in)
	return !errors.Is(err, os.ErrNotExist)
}

// ConfigFileNames returns the base and runtime specific file names LoadConfig
// reads, in that order.
func ConfigFileNames() (base string, runtime string) {
	prefix := os.Getenv(EnvConfigFilePrefix)
	if len(prefix) > 0 && !strings.HasSuffix(prefix, string(os.PathSeparator)) {
		prefix = prefix + string(os.PathSeparator)
	}
	env := os.Getenv(EnvConfigRuntime)
	if env == "" {
		env = DefaultRuntime
	}
	base = prefix + ConfigFileBaseName + ConfigFileExtension
	runtime = prefix + ConfigFileBaseName + ConfigSeparator + env + ConfigFileExtension
	return base, runtime
}

// LoadConfig decodes the base TOML file and then the runtime override into
// config, skipping files that do not exist, and finally applies environment
// overrides.
func LoadConfig(config *Config) error {
	baseName, runtimeName := ConfigFileNames()
	for _, name := range []string{baseName, runtimeName} {
		if !fileExists(name) {
			slog.Debug("configuration file not found, skipping", "file", name)
			continue
		}
		if _, err := toml.DecodeFile(name, config); err != nil {
			return fmt.Errorf("failed to decode configuration file %s: %w", name, err)
		}
		slog.Info("loaded configuration", "file", name)
	}
	ApplyEnvironment(config)
	return nil
}

// ApplyEnvironment copies secrets and deployment specific values from the
// environment into config.
func ApplyEnvironment(config *Config) {
	key := strings.TrimSpace(os.Getenv(EnvAPIKey))
	if key == "" {
		key = strings.TrimSpace(os.Getenv(EnvAPIKeyFallback))
	}
	config.Application.APIKey = key

	if v := strings.TrimSpace(os.Getenv(EnvExportCredentials)); v != "" {
		config.Export.CredentialsFile = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvExportFolderID)); v != "" {
		config.Export.FolderID = v
	}
	config.Search.APIKey = strings.TrimSpace(os.Getenv(EnvSearchAPIKey))
	if v := strings.TrimSpace(os.Getenv(EnvSearchEngineID)); v != "" {
		config.Search.SearchEngineID = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvPort)); v != "" {
		config.Application.ListenAddress = ":" + v
	}
}

// Validate checks the configuration once at startup. It returns the problems
// that make the configuration unusable as an error, and the ones that only
// disable a feature as warnings.
func (c *Config) Validate() (warnings []string, err error) {
	var errs []error

	switch c.Application.Backend {
	case BackendGemini:
		if c.Application.APIKey == "" {
			warnings = append(warnings, fmt.Sprintf("%s is not set; the inference client is not configured and every analysis will fail", EnvAPIKey))
		}
	case BackendVertex:
		if c.Application.GoogleProjectId == "" {
			errs = append(errs, errors.New("application.google_project_id is required for the vertex backend"))
		}
		if c.Storage.StagingBucket == "" {
			errs = append(errs, errors.New("storage.staging_bucket is required for the vertex backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("application.backend %q must be %q or %q", c.Application.Backend, BackendGemini, BackendVertex))
	}

	if _, ok := c.AgentModels[c.Application.AgentModel]; !ok {
		errs = append(errs, fmt.Errorf("application.agent_model %q has no [agent_models] entry", c.Application.AgentModel))
	}
	if c.Application.MaxConcurrentRuns < 1 {
		errs = append(errs, errors.New("application.max_concurrent_runs must be at least 1"))
	}
	if strings.TrimSpace(c.PromptTemplates.AnalysisPrompt) == "" {
		errs = append(errs, errors.New("prompt_templates.analysis must not be empty"))
	}

	if len(c.Acquisition.AllowedExtensions) == 0 {
		errs = append(errs, errors.New("acquisition.allowed_extensions must list at least one extension"))
	}
	if c.Acquisition.YtDlpPath == "" {
		errs = append(errs, errors.New("acquisition.ytdlp_path must not be empty"))
	}

	if c.Polling.InitialIntervalInMillis <= 0 {
		errs = append(errs, errors.New("polling.initial_interval_ms must be positive"))
	}
	if c.Polling.MaxIntervalInMillis < c.Polling.InitialIntervalInMillis {
		errs = append(errs, errors.New("polling.max_interval_ms must not be smaller than polling.initial_interval_ms"))
	}
	if c.Polling.Multiplier < 1 {
		errs = append(errs, errors.New("polling.multiplier must be at least 1"))
	}
	if c.Polling.TimeoutInSeconds <= 0 {
		errs = append(errs, errors.New("polling.timeout_in_seconds must be positive"))
	}

	switch c.Search.Provider {
	case SearchNone, SearchDuckDuckGo, SearchGoogle:
	case SearchCustom:
		if c.Search.SearchEngineID == "" || c.Search.APIKey == "" {
			errs = append(errs, fmt.Errorf("search provider %q needs search.search_engine_id and %s", SearchCustom, EnvSearchAPIKey))
		}
	default:
		errs = append(errs, fmt.Errorf("search.provider %q must be one of %q, %q, %q, %q", c.Search.Provider, SearchNone, SearchDuckDuckGo, SearchGoogle, SearchCustom))
	}
	if c.Search.Provider != SearchNone && c.Search.MaxToolRounds < 1 {
		errs = append(errs, errors.New("search.max_tool_rounds must be at least 1"))
	}

	if c.Export.Enabled {
		switch c.Export.Destination {
		case ExportDrive:
			if c.Export.FolderID == "" {
				warnings = append(warnings, "export.folder_id is not set; documents will be created in the service account's own drive")
			}
		case ExportGCS:
			if c.Export.Bucket == "" {
				errs = append(errs, errors.New("export.bucket is required for the gcs export destination"))
			}
		default:
			errs = append(errs, fmt.Errorf("export.destination %q must be %q or %q", c.Export.Destination, ExportDrive, ExportGCS))
		}
		if !fileExists(c.Export.CredentialsFile) {
			warnings = append(warnings, fmt.Sprintf("export credentials file %q not found; export will report an error until it exists", c.Export.CredentialsFile))
		}
	}

	return warnings, errors.Join(errs...)
}

// PollTimeout is the readiness polling budget.
func (c *Config) PollTimeout() time.Duration {
	return time.Duration(c.Polling.TimeoutInSeconds) * time.Second
}

// RunTimeout bounds one complete analysis; zero means no bound.
func (c *Config) RunTimeout() time.Duration {
	return time.Duration(c.Application.RunTimeoutInSeconds) * time.Second
}

// AllowsExtension reports whether ext (with or without the dot, any case) is
// in the upload allow-list.
func (c *Config) AllowsExtension(ext string) bool {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	if ext == "" {
		return false
	}
	for _, allowed := range c.Acquisition.AllowedExtensions {
		if strings.ToLower(strings.TrimPrefix(allowed, ".")) == ext {
			return true
		}
	}
	return false
}
