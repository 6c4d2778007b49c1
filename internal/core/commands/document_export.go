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
	"log/slog"
	"strings"

	"github.com/jaycherian/gcp-go-video-summarizer/internal/cloud"
	"github.com/jaycherian/gcp-go-video-summarizer/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-summarizer/internal/core/model"
)

// DocumentExport creates one remote document from the export request. Every
// failure, including credential problems, is recorded as *model.ExportError.
type DocumentExport struct {
	cor.BaseCommand
	documents cloud.DocumentStoreFactory
}

func NewDocumentExport(name string, documents cloud.DocumentStoreFactory) *DocumentExport {
	out := &DocumentExport{BaseCommand: *cor.NewBaseCommand(name), documents: documents}
	out.InputParamName = ExportParam
	out.OutputParamName = DocumentParam
	return out
}

func (c *DocumentExport) Execute(context cor.Context) {
	ctx := context.GetContext()
	request := context.Get(c.GetInputParam()).(*model.ExportRequest)

	store, err := c.documents(ctx)
	if err != nil {
		c.Fail(context, &model.ExportError{Err: err})
		return
	}
	defer func() {
		if err := store.Close(); err != nil {
			slog.Debug("failed to close document store", "error", err)
		}
	}()

	doc, err := store.CreateDocument(ctx, request.Name, strings.NewReader(request.Content))
	if err != nil {
		c.Fail(context, &model.ExportError{Err: err})
		return
	}

	slog.Info("exported summary", "document_id", doc.ID, "name", doc.Name, "destination", doc.Destination)
	c.Succeed(context)
	context.Add(c.GetOutputParam(), doc)
}
