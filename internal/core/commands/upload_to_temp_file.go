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
	"fmt"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/h2non/filetype"
	"github.com/jaycherian/gcp-go-video-summarizer/internal/cloud"
	"github.com/jaycherian/gcp-go-video-summarizer/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-summarizer/internal/core/model"
)

const UploadTempFilePattern = "summarizer-upload-*"

var videoMIMETypes = map[string]string{
	"mp4":  "video/mp4",
	"mov":  "video/quicktime",
	"avi":  "video/x-msvideo",
	"mkv":  "video/x-matroska",
	"webm": "video/webm",
	"mpeg": "video/mpeg",
	"mpg":  "video/mpeg",
	"wmv":  "video/x-ms-wmv",
	"flv":  "video/x-flv",
	"3gp":  "video/3gpp",
}

// VideoMIMEType maps a file extension to a video MIME type, falling back to
// the system table and finally to application/octet-stream.
func VideoMIMEType(ext string) string {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	if m, ok := videoMIMETypes[ext]; ok {
		return m
	}
	if m := mime.TypeByExtension("." + ext); m != "" {
		return m
	}
	return "application/octet-stream"
}

// UploadToTempFile writes an uploaded video to a uniquely named temp file.
// It only runs when the request carries no URL, since a URL takes
// precedence.
type UploadToTempFile struct {
	cor.BaseCommand
	config *cloud.Acquisition
	allow  func(ext string) bool
}

func NewUploadToTempFile(name string, config *cloud.Config) *UploadToTempFile {
	out := &UploadToTempFile{
		BaseCommand: *cor.NewBaseCommand(name),
		config:      &config.Acquisition,
		allow:       config.AllowsExtension,
	}
	out.InputParamName = RequestParam
	out.OutputParamName = VideoParam
	return out
}

func (c *UploadToTempFile) IsExecutable(context cor.Context) bool {
	if !c.BaseCommand.IsExecutable(context) || context.Get(VideoParam) != nil {
		return false
	}
	request, ok := context.Get(c.GetInputParam()).(*model.VideoRequest)
	return ok && !request.HasURL() && request.HasUpload()
}

func (c *UploadToTempFile) Execute(context cor.Context) {
	upload := context.Get(c.GetInputParam()).(*model.VideoRequest).Upload
	baseName := filepath.Base(upload.FileName)
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(baseName), "."))

	if !c.allow(ext) {
		c.Fail(context, model.UnsupportedUpload(baseName, fmt.Sprintf("allowed extensions are %s", strings.Join(c.config.AllowedExtensions, ", "))))
		return
	}
	if c.config.MaxUploadBytes > 0 && int64(len(upload.Content)) > c.config.MaxUploadBytes {
		c.Fail(context, model.UnsupportedUpload(baseName, fmt.Sprintf("file is larger than %d bytes", c.config.MaxUploadBytes)))
		return
	}
	if len(upload.Content) == 0 {
		c.Fail(context, model.UnsupportedUpload(baseName, "file is empty"))
		return
	}

	// Only a positive match on a non-video signature is rejected; containers
	// filetype does not know are accepted on the strength of the extension.
	mimeType := VideoMIMEType(ext)
	if kind, err := filetype.Match(upload.Content); err == nil && kind != filetype.Unknown {
		if !filetype.IsVideo(upload.Content) {
			c.Fail(context, model.UnsupportedUpload(baseName, fmt.Sprintf("content looks like %s, not a video", kind.MIME.Value)))
			return
		}
		mimeType = kind.MIME.Value
	}

	tempFile, err := os.CreateTemp(c.config.TempDir, UploadTempFilePattern+"."+ext)
	if err != nil {
		c.Fail(context, fmt.Errorf("could not create temp file: %w", err))
		return
	}
	context.AddTempFile(tempFile.Name())

	written, err := tempFile.Write(upload.Content)
	if closeErr := tempFile.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		c.Fail(context, fmt.Errorf("failed to write upload to %s, %d bytes written: %w", tempFile.Name(), written, err))
		return
	}

	slog.Info("stored upload", "file", baseName, "path", tempFile.Name(), "bytes", written)
	c.Succeed(context)
	context.Add(c.GetOutputParam(), &model.VideoReference{
		Path:      tempFile.Name(),
		Source:    model.SourceUpload,
		Origin:    baseName,
		MIMEType:  mimeType,
		SizeBytes: int64(written),
	})
}
