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

// Package cloud holds the configuration of the summarizer and the thin client
// wrappers around the external services it talks to: the Gemini / Vertex AI
// inference endpoint, the asset stores videos are registered with, and the
// document stores summaries are exported to.
//
// Configuration is loaded from TOML files (see LoadConfig). Every value has a
// default in NewConfig so the tool runs with nothing but GOOGLE_API_KEY set.
package cloud

import "google.golang.org/genai"

// Inference backends.
const (
	BackendGemini = "gemini"
	BackendVertex = "vertex"
)

// Web search providers exposed to the model.
const (
	SearchNone       = "none"
	SearchDuckDuckGo = "duckduckgo"
	SearchGoogle     = "google"
	SearchCustom     = "custom_search"
)

// Export destinations.
const (
	ExportDrive = "drive"
	ExportGCS   = "gcs"
)

// Log formats.
const (
	LogFormatJSON    = "json"
	LogFormatConsole = "console"
)

// DefaultAnalysisPrompt is the fixed instruction template wrapped around the
// user's query.
const DefaultAnalysisPrompt = `Analyze the uploaded video for content and context.
Respond to the following user query using video insights and relevant supplementary context:
{{.QUERY}}

Provide a detailed, user-friendly, and actionable summary.`

var DefaultSafetySettings = []*genai.SafetySetting{
	{
		Category:  genai.HarmCategoryDangerousContent,
		Threshold: genai.HarmBlockThresholdBlockOnlyHigh,
	},
	{
		Category:  genai.HarmCategoryHarassment,
		Threshold: genai.HarmBlockThresholdBlockOnlyHigh,
	},
	{
		Category:  genai.HarmCategoryHateSpeech,
		Threshold: genai.HarmBlockThresholdBlockOnlyHigh,
	},
	{
		Category:  genai.HarmCategorySexuallyExplicit,
		Threshold: genai.HarmBlockThresholdBlockOnlyHigh,
	},
}

// PromptTemplates holds text/template sources. The analysis template receives
// the user query as {{.QUERY}}.
type PromptTemplates struct {
	AnalysisPrompt string `toml:"analysis"`
}

// VertexAiLLMModel configures one generative model.
type VertexAiLLMModel struct {
	Model              string  `toml:"model"`
	SystemInstructions string  `toml:"system_instructions"`
	Temperature        float32 `toml:"temperature"`
	TopP               float32 `toml:"top_p"`
	TopK               float32 `toml:"top_k"`
	MaxTokens          int32   `toml:"max_tokens"`
	OutputFormat       string  `toml:"output_format"`
	RateLimit          int     `toml:"rate_limit"`  // requests per second, 0 = unlimited
	MaxRetries         int     `toml:"max_retries"` // extra attempts after a failed call
}

// Acquisition configures how videos are obtained.
type Acquisition struct {
	TempDir           string   `toml:"temp_dir"` // empty = os.TempDir()
	AllowedExtensions []string `toml:"allowed_extensions"`
	MaxUploadBytes    int64    `toml:"max_upload_bytes"` // 0 = unlimited
	YtDlpPath         string   `toml:"ytdlp_path"`
	FFmpegLocation    string   `toml:"ffmpeg_location"` // passed to yt-dlp when set
	Format            string   `toml:"format"`
	MergeOutputFormat string   `toml:"merge_output_format"`
	OutputTemplate    string   `toml:"output_template"`
	TimeoutInSeconds  int      `toml:"timeout_in_seconds"`
}

// Polling configures readiness polling of registered assets.
type Polling struct {
	InitialIntervalInMillis int     `toml:"initial_interval_ms"`
	MaxIntervalInMillis     int     `toml:"max_interval_ms"`
	Multiplier              float64 `toml:"multiplier"`
	TimeoutInSeconds        int     `toml:"timeout_in_seconds"`
}

// Storage configures Cloud Storage use. The staging bucket is only needed for
// the Vertex AI backend, which reads videos from gs:// URIs.
type Storage struct {
	StagingBucket string `toml:"staging_bucket"`
	StagingPrefix string `toml:"staging_prefix"`
}

// Search configures the optional web search tool. The custom_search provider
// needs a Programmable Search Engine ID and GOOGLE_SEARCH_API_KEY.
type Search struct {
	Provider         string `toml:"provider"`
	MaxResults       int    `toml:"max_results"`
	MaxToolRounds    int    `toml:"max_tool_rounds"`
	TimeoutInSeconds int    `toml:"timeout_in_seconds"`
	Region           string `toml:"region"` // duckduckgo region, e.g. "wt-wt"
	Language         string `toml:"language"`
	SearchEngineID   string `toml:"search_engine_id"`
	APIKey           string `toml:"-"`
}

// Export configures the document store summaries are exported to.
type Export struct {
	Enabled             bool   `toml:"enabled"`
	Destination         string `toml:"destination"`
	CredentialsFile     string `toml:"credentials_file"`
	FolderID            string `toml:"folder_id"`
	Bucket              string `toml:"bucket"` // gcs destination only
	DefaultDocumentName string `toml:"default_document_name"`
}

// Telemetry configures logging and OpenTelemetry export.
type Telemetry struct {
	LogFormat     string `toml:"log_format"`
	LogLevel      string `toml:"log_level"` // debug, info, warn, error
	LogFile       string `toml:"log_file"`  // also write logs here when set
	EnableTracing bool   `toml:"enable_tracing"`
}

type Config struct {
	Application struct {
		Name                string `toml:"name"`
		GoogleProjectId     string `toml:"google_project_id"`
		GoogleLocation      string `toml:"location"`
		Backend             string `toml:"backend"`
		AgentModel          string `toml:"agent_model"`
		ListenAddress       string `toml:"listen_address"`
		MaxConcurrentRuns   int    `toml:"max_concurrent_runs"`
		RunTimeoutInSeconds int    `toml:"run_timeout_in_seconds"`
		// APIKey comes from the environment only.
		APIKey string `toml:"-"`
	} `toml:"application"`
	Acquisition     Acquisition                 `toml:"acquisition"`
	Polling         Polling                     `toml:"polling"`
	Storage         Storage                     `toml:"storage"`
	PromptTemplates PromptTemplates             `toml:"prompt_templates"`
	AgentModels     map[string]VertexAiLLMModel `toml:"agent_models"`
	Search          Search                      `toml:"search"`
	Export          Export                      `toml:"export"`
	Telemetry       Telemetry                   `toml:"telemetry"`
}

// DefaultAgentModel is the key of the model configured by NewConfig.
const DefaultAgentModel = "summarizer-flash"

// NewConfig returns a Config populated with working defaults.
func NewConfig() *Config {
	c := &Config{
		AgentModels: map[string]VertexAiLLMModel{
			DefaultAgentModel: {
				Model:              "gemini-2.0-flash",
				SystemInstructions: "You are a video summarizer. Answer using what is seen and heard in the attached video, and use web search only for supplementary context.",
				Temperature:        0.4,
				MaxTokens:          8192,
				RateLimit:          1,
			},
		},
	}
	c.Application.Name = "video-summarizer"
	c.Application.GoogleLocation = "us-central1"
	c.Application.Backend = BackendGemini
	c.Application.AgentModel = DefaultAgentModel
	c.Application.ListenAddress = ":8080"
	c.Application.MaxConcurrentRuns = 1
	c.Application.RunTimeoutInSeconds = 900

	c.Acquisition = Acquisition{
		AllowedExtensions: []string{"mp4", "mov", "avi"},
		MaxUploadBytes:    2 << 30,
		YtDlpPath:         "yt-dlp",
		Format:            "best[ext=mp4]/best",
		MergeOutputFormat: "mp4",
		OutputTemplate:    "%(id)s.%(ext)s",
		TimeoutInSeconds:  600,
	}
	c.Polling = Polling{
		InitialIntervalInMillis: 1000,
		MaxIntervalInMillis:     10000,
		Multiplier:              1.5,
		TimeoutInSeconds:        300,
	}
	c.Storage.StagingPrefix = "summarizer-staging"
	c.PromptTemplates.AnalysisPrompt = DefaultAnalysisPrompt
	c.Search = Search{
		Provider:         SearchDuckDuckGo,
		MaxResults:       3,
		MaxToolRounds:    4,
		TimeoutInSeconds: 10,
		Region:           "wt-wt",
		Language:         "en",
	}
	c.Export = Export{
		Enabled:             true,
		Destination:         ExportDrive,
		CredentialsFile:     "service_account.json",
		DefaultDocumentName: "Video_Summary",
	}
	c.Telemetry.LogFormat = LogFormatJSON
	c.Telemetry.LogLevel = "info"
	return c
}
