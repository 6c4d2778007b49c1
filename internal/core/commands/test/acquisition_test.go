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

package commands_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jaycherian/gcp-go-video-summarizer/internal/cloud"
	"github.com/jaycherian/gcp-go-video-summarizer/internal/core/commands"
	"github.com/jaycherian/gcp-go-video-summarizer/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-summarizer/internal/core/model"
	test "github.com/jaycherian/gcp-go-video-summarizer/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newChainContext(request *model.VideoRequest, query string) cor.Context {
	chCtx := cor.NewBaseContext()
	chCtx.SetContext(context.Background())
	chCtx.Add(commands.RequestParam, request)
	chCtx.Add(commands.QueryParam, query)
	return chCtx
}

func TestRequestValidator(t *testing.T) {
	upload := &model.UploadedVideo{FileName: "clip.mp4", Content: test.MP4Header}
	cases := []struct {
		name    string
		query   string
		request *model.VideoRequest
		want    error
	}{
		{name: "empty query", query: "   ", request: &model.VideoRequest{Upload: upload}, want: model.ErrEmptyQuery},
		{name: "no video", query: "what happens?", request: &model.VideoRequest{}, want: model.ErrNoVideo},
		{name: "blank url", query: "what happens?", request: &model.VideoRequest{URL: "  "}, want: model.ErrNoVideo},
		{name: "upload", query: "what happens?", request: &model.VideoRequest{Upload: upload}},
		{name: "url", query: "what happens?", request: &model.VideoRequest{URL: "https://youtu.be/abc"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			chCtx := newChainContext(tc.request, tc.query)
			commands.NewRequestValidator("validate").Execute(chCtx)
			if tc.want == nil {
				assert.False(t, chCtx.HasErrors())
				assert.Equal(t, strings.TrimSpace(tc.query), chCtx.Get(commands.QueryParam))
				return
			}
			var warning *model.Warning
			require.ErrorAs(t, chCtx.FirstError(), &warning)
			assert.Equal(t, tc.want, warning)
		})
	}
}

func TestUploadToTempFileKeepsBytes(t *testing.T) {
	config := test.GetConfig(t)
	for _, name := range []string{"clip.mp4", "clip.MOV", "clip.avi"} {
		t.Run(name, func(t *testing.T) {
			content := append([]byte(nil), test.MP4Header...)
			if !strings.HasSuffix(name, ".mp4") {
				content = []byte("not a known container signature " + name)
			}
			chCtx := newChainContext(&model.VideoRequest{Upload: &model.UploadedVideo{FileName: name, Content: content}}, "q")

			cmd := commands.NewUploadToTempFile("upload", config)
			require.True(t, cmd.IsExecutable(chCtx))
			cmd.Execute(chCtx)
			require.False(t, chCtx.HasErrors(), "%v", chCtx.FirstError())

			video := chCtx.Get(commands.VideoParam).(*model.VideoReference)
			assert.Equal(t, model.SourceUpload, video.Source)
			assert.Equal(t, name, video.Origin)
			assert.Equal(t, int64(len(content)), video.SizeBytes)
			assert.Equal(t, strings.ToLower(filepath.Ext(name)), filepath.Ext(video.Path))
			assert.True(t, strings.HasPrefix(video.MIMEType, "video/"), video.MIMEType)

			written, err := os.ReadFile(video.Path)
			require.NoError(t, err)
			assert.Equal(t, content, written)
			assert.Contains(t, chCtx.GetTempFiles(), video.Path)

			chCtx.Close()
			_, err = os.Stat(video.Path)
			assert.True(t, os.IsNotExist(err))
		})
	}
}

func TestUploadToTempFileRejections(t *testing.T) {
	config := test.GetConfig(t)
	config.Acquisition.MaxUploadBytes = 64
	png := []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0}

	cases := []struct {
		name    string
		file    string
		content []byte
	}{
		{name: "extension", file: "notes.txt", content: []byte("hello")},
		{name: "too large", file: "big.mp4", content: make([]byte, 65)},
		{name: "empty", file: "empty.mp4", content: []byte{}},
		{name: "not a video", file: "image.mp4", content: png},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			chCtx := newChainContext(&model.VideoRequest{Upload: &model.UploadedVideo{FileName: tc.file, Content: tc.content}}, "q")
			commands.NewUploadToTempFile("upload", config).Execute(chCtx)

			var warning *model.Warning
			require.ErrorAs(t, chCtx.FirstError(), &warning)
			assert.Equal(t, "file", warning.Field)
			assert.Nil(t, chCtx.Get(commands.VideoParam))
			assert.Empty(t, test.TempEntries(t, config.Acquisition.TempDir))
		})
	}
}

func TestUploadIsSkippedWhenURLIsPresent(t *testing.T) {
	config := test.GetConfig(t)
	request := &model.VideoRequest{
		URL:    "https://www.youtube.com/watch?v=abc",
		Upload: &model.UploadedVideo{FileName: "clip.mp4", Content: test.MP4Header},
	}
	chCtx := newChainContext(request, "q")
	assert.False(t, commands.NewUploadToTempFile("upload", config).IsExecutable(chCtx))
}

func TestVideoDownload(t *testing.T) {
	config := test.GetConfig(t)
	fetcher := &test.FakeFetcher{}
	chCtx := newChainContext(&model.VideoRequest{URL: " https://www.youtube.com/watch?v=abc "}, "q")

	cmd := commands.NewVideoDownload("download", fetcher, &config.Acquisition)
	require.True(t, cmd.IsExecutable(chCtx))
	cmd.Execute(chCtx)
	require.False(t, chCtx.HasErrors(), "%v", chCtx.FirstError())

	video := chCtx.Get(commands.VideoParam).(*model.VideoReference)
	assert.Equal(t, []string{"https://www.youtube.com/watch?v=abc"}, fetcher.URLs)
	assert.Equal(t, model.SourceURL, video.Source)
	assert.FileExists(t, video.Path)

	// The download directory is the registered temp path.
	assert.Equal(t, []string{filepath.Dir(video.Path)}, chCtx.GetTempFiles())
	chCtx.Close()
	assert.Empty(t, test.TempEntries(t, config.Acquisition.TempDir))
}

func TestVideoDownloadInvalidURL(t *testing.T) {
	config := test.GetConfig(t)
	fetcher := &test.FakeFetcher{}
	for _, raw := range []string{"not a url", "ftp://example.com/video.mp4", "https://"} {
		chCtx := newChainContext(&model.VideoRequest{URL: raw}, "q")
		commands.NewVideoDownload("download", fetcher, &config.Acquisition).Execute(chCtx)

		var downloadErr *model.DownloadError
		require.ErrorAs(t, chCtx.FirstError(), &downloadErr, raw)
	}
	assert.Zero(t, fetcher.Count())
	assert.Empty(t, test.TempEntries(t, config.Acquisition.TempDir))
}

func TestVideoDownloadFetchFailure(t *testing.T) {
	config := test.GetConfig(t)
	cause := errors.New("ERROR: Video unavailable")
	chCtx := newChainContext(&model.VideoRequest{URL: "https://www.youtube.com/watch?v=gone"}, "q")

	commands.NewVideoDownload("download", &test.FakeFetcher{Err: cause}, &config.Acquisition).Execute(chCtx)

	var downloadErr *model.DownloadError
	require.ErrorAs(t, chCtx.FirstError(), &downloadErr)
	assert.ErrorIs(t, downloadErr, cause)
	assert.Nil(t, chCtx.Get(commands.VideoParam))
}

func TestYtDlpArgs(t *testing.T) {
	acquisition := cloud.NewConfig().Acquisition
	acquisition.FFmpegLocation = "/opt/ffmpeg"
	fetcher := commands.NewYtDlpFetcher(&acquisition)

	args := fetcher.Args("https://youtu.be/abc", "/tmp/dl")

	assert.Equal(t, []string{
		"-J", "--no-simulate",
		"--no-playlist",
		"--no-progress",
		"-f", "best[ext=mp4]/best",
		"--merge-output-format", "mp4",
		"-o", filepath.Join("/tmp/dl", "%(id)s.%(ext)s"),
		"--ffmpeg-location", "/opt/ffmpeg",
		"--", "https://youtu.be/abc",
	}, args)
}

func TestYtDlpFetcherMissingBinary(t *testing.T) {
	acquisition := cloud.NewConfig().Acquisition
	acquisition.YtDlpPath = filepath.Join(t.TempDir(), "no-such-yt-dlp")
	fetcher := commands.NewYtDlpFetcher(&acquisition)

	_, err := fetcher.Fetch(context.Background(), "https://youtu.be/abc", t.TempDir())
	assert.Error(t, err)
}

func TestVideoMIMEType(t *testing.T) {
	assert.Equal(t, "video/mp4", commands.VideoMIMEType(".MP4"))
	assert.Equal(t, "video/quicktime", commands.VideoMIMEType("mov"))
	assert.Equal(t, "video/x-msvideo", commands.VideoMIMEType(".avi"))
	assert.Equal(t, "application/octet-stream", commands.VideoMIMEType(".nope"))
}
