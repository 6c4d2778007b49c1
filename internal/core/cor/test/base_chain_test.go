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

package cor_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/jaycherian/gcp-go-video-summarizer/internal/core/cor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder appends its name to a shared log, optionally failing or writing
// an output value.
type recorder struct {
	cor.BaseCommand
	log    *[]string
	err    error
	output interface{}
	input  string
}

func newRecorder(name string, log *[]string) *recorder {
	return &recorder{BaseCommand: *cor.NewBaseCommand(name), log: log}
}

func (r *recorder) IsExecutable(context cor.Context) bool {
	if r.input == "" {
		return context != nil && context.GetContext() != nil
	}
	return r.BaseCommand.IsExecutable(context)
}

func (r *recorder) Execute(context cor.Context) {
	*r.log = append(*r.log, r.GetName())
	if r.err != nil {
		r.Fail(context, r.err)
		return
	}
	if r.output != nil {
		context.Add(r.GetOutputParam(), r.output)
	}
	r.Succeed(context)
}

func TestChainRunsCommandsInOrder(t *testing.T) {
	var log []string
	chain := cor.NewBaseChain("ordered")
	chain.AddCommand(newRecorder("first", &log))
	chain.AddCommand(newRecorder("second", &log))
	chain.AddCommand(newRecorder("third", &log))

	chCtx := cor.NewBaseContext()
	chain.Execute(chCtx)

	assert.Equal(t, []string{"first", "second", "third"}, log)
	assert.False(t, chCtx.HasErrors())
}

func TestChainStopsOnFailureButRunsFinalizers(t *testing.T) {
	var log []string
	boom := errors.New("boom")

	failing := newRecorder("failing", &log)
	failing.err = boom

	chain := cor.NewBaseChain("failing-chain")
	chain.AddCommand(newRecorder("first", &log))
	chain.AddCommand(failing)
	chain.AddCommand(newRecorder("skipped", &log))
	chain.AddFinalizer(newRecorder("cleanup", &log))

	chCtx := cor.NewBaseContext()
	chain.Execute(chCtx)

	assert.Equal(t, []string{"first", "failing", "cleanup"}, log)
	assert.True(t, chCtx.HasErrors())
	assert.ErrorIs(t, chCtx.FirstError(), boom)
}

func TestChainContinueOnFailure(t *testing.T) {
	var log []string
	failing := newRecorder("failing", &log)
	failing.err = errors.New("boom")

	chain := cor.NewBaseChain("tolerant").ContinueOnFailure(true)
	chain.AddCommand(failing)
	chain.AddCommand(newRecorder("after", &log))

	chCtx := cor.NewBaseContext()
	chain.Execute(chCtx)

	assert.Equal(t, []string{"failing", "after"}, log)
}

func TestChainPipesOutputToInput(t *testing.T) {
	var log []string
	producer := newRecorder("producer", &log)
	producer.output = "payload"
	consumer := newRecorder("consumer", &log)
	consumer.input = cor.CtxIn

	chain := cor.NewBaseChain("pipe")
	chain.AddCommand(producer)
	chain.AddCommand(consumer)

	chCtx := cor.NewBaseContext()
	chain.Execute(chCtx)

	// The consumer only runs when the producer's output arrived as its input.
	assert.Equal(t, []string{"producer", "consumer"}, log)
	assert.Nil(t, chCtx.Get(cor.CtxOut))
}

func TestChainSkipsCommandsThatAreNotExecutable(t *testing.T) {
	var log []string
	needsInput := newRecorder("needs-input", &log)
	needsInput.input = "missing"
	needsInput.InputParamName = "missing"

	chain := cor.NewBaseChain("skip")
	chain.AddCommand(needsInput)
	chain.AddCommand(newRecorder("runs", &log))

	chCtx := cor.NewBaseContext()
	chain.Execute(chCtx)

	assert.Equal(t, []string{"runs"}, log)
}

func TestFirstErrorKeepsInsertionOrder(t *testing.T) {
	chCtx := cor.NewBaseContext()
	first := errors.New("first")
	chCtx.AddError("z-command", first)
	chCtx.AddError("a-command", errors.New("second"))
	chCtx.AddError("ignored", nil)

	assert.Len(t, chCtx.GetErrors(), 2)
	assert.Equal(t, first, chCtx.FirstError())
}

func TestCloseRemovesTempFiles(t *testing.T) {
	dir := t.TempDir()
	nested, err := os.MkdirTemp(dir, "nested-")
	require.NoError(t, err)
	file := filepath.Join(nested, "video.mp4")
	require.NoError(t, os.WriteFile(file, []byte("data"), 0o600))

	chCtx := cor.NewBaseContext()
	chCtx.AddTempFile(nested)
	chCtx.AddTempFile(file)
	chCtx.AddTempFile("")
	assert.Len(t, chCtx.GetTempFiles(), 2)

	chCtx.Close()

	_, err = os.Stat(nested)
	assert.True(t, os.IsNotExist(err))
	assert.Empty(t, chCtx.GetTempFiles())

	// A second close is harmless.
	chCtx.Close()
}
