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
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/jaycherian/gcp-go-video-summarizer/internal/cloud"
	"github.com/jaycherian/gcp-go-video-summarizer/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-summarizer/internal/core/model"
)

const DownloadTempDirPattern = "summarizer-download-"

// VideoFetcher downloads a remote video into dir.
type VideoFetcher interface {
	Fetch(ctx context.Context, videoURL string, dir string) (*model.VideoReference, error)
}

// YtDlpFetcher runs yt-dlp with -J --no-simulate so a single invocation both
// downloads the file and prints its info JSON.
type YtDlpFetcher struct {
	CommandPath       string
	FFmpegLocation    string
	Format            string
	MergeOutputFormat string
	OutputTemplate    string
}

func NewYtDlpFetcher(config *cloud.Acquisition) *YtDlpFetcher {
	return &YtDlpFetcher{
		CommandPath:       config.YtDlpPath,
		FFmpegLocation:    config.FFmpegLocation,
		Format:            config.Format,
		MergeOutputFormat: config.MergeOutputFormat,
		OutputTemplate:    config.OutputTemplate,
	}
}

type ytDlpInfo struct {
	ID                string `json:"id"`
	Title             string `json:"title"`
	Ext               string `json:"ext"`
	Filename          string `json:"_filename"`
	RequestedDownload []struct {
		FilePath string `json:"filepath"`
	} `json:"requested_downloads"`
}

// Path returns the final file yt-dlp wrote.
func (i *ytDlpInfo) Path() string {
	for _, d := range i.RequestedDownload {
		if d.FilePath != "" {
			return d.FilePath
		}
	}
	return i.Filename
}

// Args builds the yt-dlp argument list.
func (f *YtDlpFetcher) Args(videoURL string, dir string) []string {
	args := []string{
		"-J", "--no-simulate",
		"--no-playlist",
		"--no-progress",
		"-f", f.Format,
		"--merge-output-format", f.MergeOutputFormat,
		"-o", filepath.Join(dir, f.OutputTemplate),
	}
	if f.FFmpegLocation != "" {
		args = append(args, "--ffmpeg-location", f.FFmpegLocation)
	}
	return append(args, "--", videoURL)
}

func (f *YtDlpFetcher) Fetch(ctx context.Context, videoURL string, dir string) (*model.VideoReference, error) {
	cmd := exec.CommandContext(ctx, f.CommandPath, f.Args(videoURL, dir)...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if i := strings.LastIndex(msg, "ERROR:"); i >= 0 {
			msg = strings.TrimSpace(msg[i+len("ERROR:"):])
		}
		if msg == "" {
			return nil, fmt.Errorf("error running yt-dlp: %w", err)
		}
		return nil, fmt.Errorf("error running yt-dlp: %w: %s", err, msg)
	}

	info := &ytDlpInfo{}
	if err := json.Unmarshal(stdout.Bytes(), info); err != nil {
		return nil, fmt.Errorf("failed to parse yt-dlp metadata: %w", err)
	}
	path := info.Path()
	if path == "" {
		return nil, errors.New("yt-dlp metadata names no output file")
	}
	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("downloaded file is missing: %w", err)
	}
	if stat.Size() == 0 {
		return nil, fmt.Errorf("downloaded file %s is empty", filepath.Base(path))
	}

	return &model.VideoReference{
		Path:      path,
		Source:    model.SourceURL,
		Origin:    videoURL,
		Title:     info.Title,
		MIMEType:  VideoMIMEType(filepath.Ext(path)),
		SizeBytes: stat.Size(),
	}, nil
}

// ValidateVideoURL accepts absolute http(s) URLs with a host.
func ValidateVideoURL(raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported URL scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("URL has no host")
	}
	return nil
}

// VideoDownload fetches the video named by the request URL into a fresh temp
// directory. Every failure is recorded as a *model.DownloadError.
type VideoDownload struct {
	cor.BaseCommand
	fetcher VideoFetcher
	tempDir string
	timeout time.Duration
}

func NewVideoDownload(name string, fetcher VideoFetcher, config *cloud.Acquisition) *VideoDownload {
	out := &VideoDownload{
		BaseCommand: *cor.NewBaseCommand(name),
		fetcher:     fetcher,
		tempDir:     config.TempDir,
		timeout:     time.Duration(config.TimeoutInSeconds) * time.Second,
	}
	out.InputParamName = RequestParam
	out.OutputParamName = VideoParam
	return out
}

func (c *VideoDownload) IsExecutable(context cor.Context) bool {
	if !c.BaseCommand.IsExecutable(context) {
		return false
	}
	request, ok := context.Get(c.GetInputParam()).(*model.VideoRequest)
	return ok && request.HasURL()
}

func (c *VideoDownload) Execute(chCtx cor.Context) {
	videoURL := strings.TrimSpace(chCtx.Get(c.GetInputParam()).(*model.VideoRequest).URL)
	if err := ValidateVideoURL(videoURL); err != nil {
		c.Fail(chCtx, &model.DownloadError{URL: videoURL, Err: err})
		return
	}

	dir, err := os.MkdirTemp(c.tempDir, DownloadTempDirPattern)
	if err != nil {
		c.Fail(chCtx, &model.DownloadError{URL: videoURL, Err: err})
		return
	}
	chCtx.AddTempFile(dir)

	ctx := chCtx.GetContext()
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	video, err := c.fetcher.Fetch(ctx, videoURL, dir)
	if err != nil {
		c.Fail(chCtx, &model.DownloadError{URL: videoURL, Err: err})
		return
	}
	// Files outside the temp dir are registered on their own.
	if rel, relErr := filepath.Rel(dir, video.Path); relErr != nil || strings.HasPrefix(rel, "..") {
		chCtx.AddTempFile(video.Path)
	}

	slog.Info("downloaded video", "url", videoURL, "path", video.Path, "bytes", video.SizeBytes, "elapsed", time.Since(start))
	c.Succeed(chCtx)
	chCtx.Add(c.GetOutputParam(), video)
}
