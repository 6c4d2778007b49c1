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

package cor

import (
	"fmt"

	"go.opentelemetry.io/otel/codes"
)

// BaseChain runs its commands in order inside one span. Each command gets a
// child span. After every command the CtxOut value, if any, becomes the next
// CtxIn. Once an error is recorded the remaining commands are skipped unless
// continueOnFailure is set. Finalizers always run.
type BaseChain struct {
	BaseCommand
	continueOnFailure bool
	commands          []Command
	finalizers        []Command
}

func NewBaseChain(name string) *BaseChain {
	return &BaseChain{BaseCommand: *NewBaseCommand(name)}
}

func (c *BaseChain) ContinueOnFailure(continueOnFailure bool) Chain {
	c.continueOnFailure = continueOnFailure
	return c
}

func (c *BaseChain) AddCommand(command Command) Chain {
	c.commands = append(c.commands, command)
	return c
}

func (c *BaseChain) AddFinalizer(command Command) Chain {
	c.finalizers = append(c.finalizers, command)
	return c
}

// IsExecutable only needs a Go context; individual commands decide for
// themselves whether they can run.
func (c *BaseChain) IsExecutable(context Context) bool {
	return context != nil && context.GetContext() != nil
}

func (c *BaseChain) Execute(chCtx Context) {
	parentCtx := chCtx.GetContext()
	outerCtx, chainSpan := c.Tracer.Start(parentCtx, fmt.Sprintf("%s_execute", c.GetName()))
	defer chainSpan.End()
	chCtx.SetContext(outerCtx)

	for _, command := range c.commands {
		if chCtx.HasErrors() && !c.continueOnFailure {
			break
		}
		c.run(chCtx, command, true)
	}

	for _, command := range c.finalizers {
		c.run(chCtx, command, false)
	}

	// The chain context is handed back to the caller in its original state.
	chCtx.SetContext(parentCtx)

	if chCtx.HasErrors() {
		chainSpan.SetStatus(codes.Error, "chain failed to execute")
		if c.ErrorCounter != nil {
			c.ErrorCounter.Add(parentCtx, 1)
		}
	} else {
		chainSpan.SetStatus(codes.Ok, "chain completed successfully")
		c.Succeed(chCtx)
	}
}

func (c *BaseChain) run(chCtx Context, command Command, pipe bool) {
	ctx := chCtx.GetContext()
	commandCtx, span := c.Tracer.Start(ctx, command.GetName())
	defer span.End()

	if !command.IsExecutable(chCtx) {
		span.SetStatus(codes.Unset, "skipped: command not executable")
		return
	}

	errorsBefore := len(chCtx.GetErrors())
	chCtx.SetContext(commandCtx)
	command.Execute(chCtx)
	chCtx.SetContext(ctx)

	if len(chCtx.GetErrors()) > errorsBefore {
		span.SetStatus(codes.Error, "error during command execution")
	} else {
		span.SetStatus(codes.Ok, "command completed successfully")
	}

	if !pipe {
		return
	}
	outputValue := chCtx.Get(CtxOut)
	chCtx.Remove(CtxIn)
	if outputValue != nil {
		chCtx.Add(CtxIn, outputValue)
	}
	chCtx.Remove(CtxOut)
}
