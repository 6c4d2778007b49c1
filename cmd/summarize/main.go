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

// Command summarize runs one analysis from the terminal and optionally
// exports the result.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/jaycherian/gcp-go-video-summarizer/internal/cloud"
	"github.com/jaycherian/gcp-go-video-summarizer/internal/core/model"
	"github.com/jaycherian/gcp-go-video-summarizer/internal/core/services"
	"github.com/jaycherian/gcp-go-video-summarizer/internal/telemetry"
)

func main() {
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:          "summarize --query <text> (--url <link> | --file <video>)",
		Short:        "Answer a question about a video with Gemini",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE:         run,
	}
	root.SetOut(os.Stdout)
	root.SetErr(os.Stderr)
	root.SilenceErrors = true

	root.Flags().StringP("query", "q", "", "What you want to know about the video")
	root.Flags().StringP("url", "u", "", "Video URL to download with yt-dlp")
	root.Flags().StringP("file", "f", "", "Local video file")
	root.Flags().Bool("export", false, "Export the summary to the configured document store")
	root.Flags().String("name", "", "Document name used with --export")
	root.Flags().String("config-dir", "configs", "Directory holding the .env*.toml files")
	root.Flags().String("runtime", cloud.DefaultRuntime, "Configuration runtime (selects .env.<runtime>.toml)")
	root.Flags().String("log-level", "", "Override the configured log level")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	query, _ := cmd.Flags().GetString("query")
	videoURL, _ := cmd.Flags().GetString("url")
	file, _ := cmd.Flags().GetString("file")
	export, _ := cmd.Flags().GetBool("export")
	docName, _ := cmd.Flags().GetString("name")
	configDir, _ := cmd.Flags().GetString("config-dir")
	runtime, _ := cmd.Flags().GetString("runtime")
	logLevel, _ := cmd.Flags().GetString("log-level")

	if os.Getenv(cloud.EnvConfigFilePrefix) == "" || cmd.Flags().Changed("config-dir") {
		_ = os.Setenv(cloud.EnvConfigFilePrefix, configDir)
	}
	if os.Getenv(cloud.EnvConfigRuntime) == "" || cmd.Flags().Changed("runtime") {
		_ = os.Setenv(cloud.EnvConfigRuntime, runtime)
	}

	config := cloud.NewConfig()
	if err := cloud.LoadConfig(config); err != nil {
		return err
	}
	config.Telemetry.LogFormat = cloud.LogFormatConsole
	if logLevel != "" {
		config.Telemetry.LogLevel = logLevel
	}
	closeLog, err := telemetry.SetupLogging(config.Telemetry, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer closeLog()

	warnings, err := config.Validate()
	for _, w := range warnings {
		fmt.Fprintln(cmd.ErrOrStderr(), "warning:", w)
	}
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	request, err := videoRequest(videoURL, file)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	clients, err := cloud.NewCloudServiceClients(ctx, config)
	if err != nil {
		return err
	}
	defer clients.Close()

	svc, err := services.NewFromConfig(ctx, config, clients)
	if err != nil {
		return err
	}

	analysis, err := svc.Analyze(ctx, query, request)
	if err != nil {
		var warning *model.Warning
		if errors.As(err, &warning) {
			return errors.New(warning.Message)
		}
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s\n\n%s\n", analysis.Summary.Heading, analysis.Summary.Body)

	if export {
		doc, err := svc.Export(ctx, docName, analysis.Result.ID)
		fmt.Fprintln(out)
		fmt.Fprintln(out, services.ExportMessage(doc, err))
		if err != nil {
			return errors.New("export failed")
		}
	}
	return nil
}

// videoRequest reads a local file into an upload so it goes through the same
// checks as the browser path.
func videoRequest(videoURL string, file string) (*model.VideoRequest, error) {
	request := &model.VideoRequest{URL: videoURL}
	if file == "" {
		return request, nil
	}
	content, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", file, err)
	}
	request.Upload = &model.UploadedVideo{FileName: filepath.Base(file), Content: content}
	return request, nil
}
