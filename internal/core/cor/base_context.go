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
	"context"
	"log/slog"
	"os"
)

// BaseContext is the default, map-backed Context. It is not safe for
// concurrent use; one workflow run owns one context.
type BaseContext struct {
	data       map[string]interface{}
	errors     map[string]error
	errorOrder []string
	tempFiles  []string
	context    context.Context
}

// NewBaseContext returns an empty context bound to context.Background().
// Callers normally replace the Go context with a request or span context.
func NewBaseContext() Context {
	return &BaseContext{
		data:      make(map[string]interface{}),
		errors:    make(map[string]error),
		tempFiles: make([]string, 0),
		context:   context.Background(),
	}
}

func (c *BaseContext) SetContext(ctx context.Context) {
	c.context = ctx
}

func (c *BaseContext) GetContext() context.Context {
	return c.context
}

// Close removes registered temp paths in reverse registration order so files
// are removed before the directories that hold them.
func (c *BaseContext) Close() {
	for i := len(c.tempFiles) - 1; i >= 0; i-- {
		path := c.tempFiles[i]
		if err := os.RemoveAll(path); err != nil {
			slog.Debug("failed to remove temporary path", "path", path, "error", err)
		}
	}
	c.tempFiles = c.tempFiles[:0]
}

func (c *BaseContext) Add(key string, value interface{}) Context {
	c.data[key] = value
	return c
}

func (c *BaseContext) AddTempFile(path string) {
	if len(path) == 0 {
		return
	}
	c.tempFiles = append(c.tempFiles, path)
}

func (c *BaseContext) GetTempFiles() []string {
	return c.tempFiles
}

func (c *BaseContext) AddError(key string, err error) {
	if err == nil {
		return
	}
	if _, seen := c.errors[key]; !seen {
		c.errorOrder = append(c.errorOrder, key)
	}
	c.errors[key] = err
}

func (c *BaseContext) GetErrors() map[string]error {
	return c.errors
}

// FirstError returns the earliest recorded error, or nil.
func (c *BaseContext) FirstError() error {
	if len(c.errorOrder) == 0 {
		return nil
	}
	return c.errors[c.errorOrder[0]]
}

func (c *BaseContext) Get(key string) interface{} {
	return c.data[key]
}

func (c *BaseContext) Remove(key string) {
	delete(c.data, key)
}

func (c *BaseContext) HasErrors() bool {
	return len(c.errors) > 0
}
