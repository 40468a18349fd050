// Copyright 2019 The kpt Authors
// Copyright 2025 The WASTool Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package cmdutil contains helpers shared by the wastool commands.
package cmdutil

import (
	"context"
	"os"
	"strings"

	"github.com/WAStudios/wastool/internal/config"
	"github.com/WAStudios/wastool/internal/manifest"
	"github.com/WAStudios/wastool/internal/vcs"
	"github.com/spf13/cobra"
)

const (
	StackTraceOnErrors = "WASTOOL_STACK_TRACE"
	trueString         = "true"
)

// StackOnError if true, will print a stack trace on failure.
var StackOnError bool

// PrintErrorStacktrace reports whether a stack trace should be printed
// for a failing command.
func PrintErrorStacktrace() bool {
	e := os.Getenv(StackTraceOnErrors)
	if StackOnError || e == trueString || e == "1" {
		return true
	}
	return false
}

// FixDocs replaces instances of old with new in the docs for c
func FixDocs(old, new string, c *cobra.Command) {
	c.Use = strings.ReplaceAll(c.Use, old, new)
	c.Short = strings.ReplaceAll(c.Short, old, new)
	c.Long = strings.ReplaceAll(c.Long, old, new)
	c.Example = strings.ReplaceAll(c.Example, old, new)
}

// Factory creates the clients the commands drive. Tests replace its
// functions with fakes.
type Factory struct {
	NewGit    func(commandLine string) (vcs.DistributedClient, error)
	NewSvn    func(commandLine string) (vcs.Client, error)
	NewSource func(ctx context.Context, cfg config.ManifestConfig) (manifest.Source, error)
}

// NewFactory returns a factory for the real git and svn executables.
func NewFactory() *Factory {
	return &Factory{
		NewGit: func(commandLine string) (vcs.DistributedClient, error) {
			return vcs.NewGitClient(commandLine)
		},
		NewSvn: func(commandLine string) (vcs.Client, error) {
			return vcs.NewSvnClient(commandLine)
		},
		NewSource: NewSource,
	}
}

// NewSource returns the manifest source the configuration selects: the
// GitHub contents API when a repository is configured, a plain url
// otherwise.
func NewSource(ctx context.Context, cfg config.ManifestConfig) (manifest.Source, error) {
	if cfg.GitHub.Repo != "" {
		return manifest.NewGitHubSource(ctx, cfg.GitHub.Repo, cfg.GitHub.Path, cfg.GitHub.Ref, cfg.GitHub.Token)
	}
	return &manifest.URLSource{URL: cfg.URL}, nil
}
