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

package workflow

import (
	"github.com/jaycherian/gcp-go-video-summarizer/internal/cloud"
	"github.com/jaycherian/gcp-go-video-summarizer/internal/core/commands"
	"github.com/jaycherian/gcp-go-video-summarizer/internal/core/cor"
)

// ExportWorkflow writes one summary to the configured document store.
type ExportWorkflow struct {
	cor.BaseCommand
	documents cloud.DocumentStoreFactory
	chain     cor.Chain
}

func (e *ExportWorkflow) IsExecutable(context cor.Context) bool {
	return e.chain.IsExecutable(context)
}

func (e *ExportWorkflow) Execute(context cor.Context) {
	e.chain.Execute(context)
}

func (e *ExportWorkflow) initializeChain() {
	out := cor.NewBaseChain(e.GetName())
	out.AddCommand(commands.NewDocumentExport("document-export", e.documents))
	e.chain = out
}

func NewExportWorkflow(documents cloud.DocumentStoreFactory) *ExportWorkflow {
	workflow := &ExportWorkflow{
		BaseCommand: *cor.NewBaseCommand("export-workflow"),
		documents:   documents,
	}
	workflow.initializeChain()
	return workflow
}
