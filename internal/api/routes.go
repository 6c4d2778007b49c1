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

// Package api hosts the single page and the JSON endpoints behind it.
package api

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jaycherian/gcp-go-video-summarizer/internal/cloud"
	"github.com/jaycherian/gcp-go-video-summarizer/internal/core/model"
	"github.com/jaycherian/gcp-go-video-summarizer/internal/core/services"
)

//go:embed templates/*.html
var templatesFS embed.FS

// formOverheadBytes is added to the upload limit for the non-file fields.
const formOverheadBytes = 1 << 20

// Summarizer is the part of services.SummarizerService the handlers use.
type Summarizer interface {
	Analyze(ctx context.Context, query string, request *model.VideoRequest) (*services.Analysis, error)
	Export(ctx context.Context, name string, resultID string) (*model.ExportedDocument, error)
	Latest() *model.InferenceResult
}

type Handler struct {
	summarizer Summarizer
	config     *cloud.Config
}

func NewHandler(summarizer Summarizer, config *cloud.Config) *Handler {
	return &Handler{summarizer: summarizer, config: config}
}

// Register installs the page, the health check and the /api/v1 routes.
func (h *Handler) Register(r *gin.Engine) {
	r.SetHTMLTemplate(template.Must(template.ParseFS(templatesFS, "templates/*.html")))
	r.GET("/", h.Index)
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	apiV1 := r.Group("/api/v1")
	{
		apiV1.POST("/analyze", h.Analyze)
		apiV1.POST("/export", h.Export)
		Dashboard(apiV1, h)
	}
}

func (h *Handler) Index(c *gin.Context) {
	accept := make([]string, 0, len(h.config.Acquisition.AllowedExtensions))
	for _, ext := range h.config.Acquisition.AllowedExtensions {
		accept = append(accept, "."+strings.TrimPrefix(ext, "."))
	}
	c.HTML(http.StatusOK, "index.html", gin.H{
		"Title":         "Video Summarizer",
		"Accept":        strings.Join(accept, ","),
		"ExportEnabled": h.config.Export.Enabled,
		"DefaultName":   h.config.Export.DefaultDocumentName,
	})
}

func (h *Handler) Analyze(c *gin.Context) {
	if limit := h.config.Acquisition.MaxUploadBytes; limit > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit+formOverheadBytes)
	}

	request := &model.VideoRequest{}
	fileHeader, err := c.FormFile("file")
	switch {
	case err == nil:
		upload, err := readUpload(fileHeader)
		if err != nil {
			slog.Warn("failed to read upload", "file", fileHeader.Filename, "error", err)
			c.JSON(http.StatusBadRequest, warningResponse(model.UnsupportedUpload(fileHeader.Filename, "could not read the uploaded file")))
			return
		}
		request.Upload = upload
	case errors.Is(err, http.ErrMissingFile):
	default:
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, warningResponse(&model.Warning{Field: "file", Message: "The uploaded file is too large."}))
			return
		}
		// A body that is not multipart still carries the url and query fields.
		if !errors.Is(err, http.ErrNotMultipart) {
			slog.Warn("failed to parse analyze form", "error", err)
		}
	}
	request.URL = strings.TrimSpace(c.PostForm("url"))
	query := c.PostForm("query")

	analysis, err := h.summarizer.Analyze(c.Request.Context(), query, request)
	if err != nil {
		status, body := analyzeErrorResponse(err)
		c.JSON(status, body)
		return
	}
	c.JSON(http.StatusOK, AnalyzeResponse{
		Status:   StatusSuccess,
		ResultID: analysis.Result.ID,
		Heading:  analysis.Summary.Heading,
		Summary:  analysis.Summary.Body,
		Source:   analysis.Result.Source,
		Model:    analysis.Result.Model,
	})
}

func (h *Handler) Export(c *gin.Context) {
	req := ExportRequest{}
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, MessageResponse{Status: StatusError, Message: "Error: invalid export request: " + err.Error()})
		return
	}

	doc, err := h.summarizer.Export(c.Request.Context(), req.Name, req.ResultID)
	if err != nil {
		c.JSON(exportErrorStatus(err), MessageResponse{Status: StatusError, Message: services.ExportMessage(nil, err)})
		return
	}
	c.JSON(http.StatusOK, ExportResponse{
		Status:     StatusSuccess,
		Message:    services.ExportMessage(doc, nil),
		DocumentID: doc.ID,
		Name:       doc.Name,
	})
}

// Dashboard reports what the running instance is configured to do and the
// id of the result an export would use.
func Dashboard(r *gin.RouterGroup, h *Handler) {
	stats := r.Group("/status")
	{
		stats.GET("", func(c *gin.Context) {
			out := StatusResponse{
				Backend:       h.config.Application.Backend,
				Model:         h.config.Application.AgentModel,
				Search:        h.config.Search.Provider,
				ExportEnabled: h.config.Export.Enabled,
			}
			if latest := h.summarizer.Latest(); latest != nil {
				out.LatestResultID = latest.ID
			}
			c.JSON(http.StatusOK, out)
		})
	}
}

func readUpload(fileHeader *multipart.FileHeader) (*model.UploadedVideo, error) {
	f, err := fileHeader.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	content, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	return &model.UploadedVideo{FileName: fileHeader.Filename, Content: content}, nil
}
