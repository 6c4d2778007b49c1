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

// Package cor (Chain of Responsibility) provides the building blocks used to
// express a workflow as an ordered sequence of commands sharing one Context.
//
// A Command reads its input from the Context, does one thing, and writes its
// output (or an error) back. A Chain is itself a Command that runs its members
// in order, stops on the first error, and then always runs its finalizers.
package cor

import (
	"context"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// CtxIn and CtxOut are the keys used to pipe one command's output into the
// next command's input.
const (
	CtxIn  = "__IN__"
	CtxOut = "__OUT__"
)

// Context is the property bag carried through a single workflow execution.
type Context interface {
	// SetContext replaces the Go context (tracing, cancellation).
	SetContext(ctx context.Context)
	GetContext() context.Context

	Add(key string, value interface{}) Context
	Get(key string) interface{}
	Remove(key string)

	// AddError records a failure for the named command. Errors keep their
	// insertion order so the first failure can be reported to the user.
	AddError(key string, err error)
	GetErrors() map[string]error
	FirstError() error
	HasErrors() bool

	// AddTempFile registers a local path (file or directory) that must be
	// removed when the context is closed.
	AddTempFile(path string)
	GetTempFiles() []string

	// Close removes every registered temp path. Removal failures are ignored.
	Close()
}

// Executable is anything that can run against a Context.
type Executable interface {
	Execute(context Context)
}

// Command is a single named step of a workflow.
type Command interface {
	Executable

	GetName() string
	GetInputParam() string
	GetOutputParam() string

	// IsExecutable reports whether the context holds what this command needs.
	// Chains skip commands that are not executable.
	IsExecutable(context Context) bool

	GetTracer() trace.Tracer
	GetMeter() metric.Meter
	GetSuccessCounter() metric.Int64Counter
	GetErrorCounter() metric.Int64Counter
}

// Chain is a Command composed of other commands.
type Chain interface {
	Command

	ContinueOnFailure(bool) Chain
	AddCommand(command Command) Chain

	// AddFinalizer registers a command that runs after the main sequence
	// whether or not it failed, e.g. releasing remote resources.
	AddFinalizer(command Command) Chain
}
