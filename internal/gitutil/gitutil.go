// Copyright 2019 Google LLC
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

// Package gitutil runs the git executable and interprets its output.
package gitutil

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/WAStudios/wastool/internal/errors"
	"k8s.io/klog/v2"
)

// DefaultProgram is the git executable looked up on the PATH when no
// explicit program is configured.
const DefaultProgram = "git"

// NewLocalGitRunner returns a new GitLocalRunner for a local directory.
func NewLocalGitRunner(dir string) (*GitLocalRunner, error) {
	return NewGitRunner(DefaultProgram, nil, dir)
}

// NewGitRunner returns a new GitLocalRunner that invokes program with the
// given global arguments (e.g. "-c", "core.autocrlf=false") before every
// command.
func NewGitRunner(program string, globalArgs []string, dir string) (*GitLocalRunner, error) {
	const op errors.Op = "gitutil.NewGitRunner"
	if program == "" {
		program = DefaultProgram
	}
	p, err := exec.LookPath(program)
	if err != nil {
		return nil, errors.E(op, errors.Git, &GitExecError{
			Type: GitExecutableNotFound,
			Err:  fmt.Errorf("no %q program on path: %w", program, err),
		})
	}

	return &GitLocalRunner{
		gitPath:    p,
		globalArgs: globalArgs,
		Dir:        dir,
	}, nil
}

// GitLocalRunner runs git commands in a local git repo.
type GitLocalRunner struct {
	// Path to the git executable.
	gitPath string

	// globalArgs are passed before the command.
	globalArgs []string

	// Dir is the directory the commands are run in.
	Dir string

	// Debug enables printing the command being run and its output.
	Debug bool
}

// In returns a copy of the runner that runs commands in dir.
func (g *GitLocalRunner) In(dir string) *GitLocalRunner {
	cp := *g
	cp.Dir = dir
	return &cp
}

type RunResult struct {
	Stdout string
	Stderr string
}

// Run runs a git command.
// Omit the 'git' part of the command.
// The first return value contains the output to Stdout and Stderr when
// running the command.
func (g *GitLocalRunner) Run(ctx context.Context, command string, args ...string) (RunResult, error) {
	const op errors.Op = "gitutil.Run"

	fullArgs := append([]string{}, g.globalArgs...)
	fullArgs = append(fullArgs, command)
	fullArgs = append(fullArgs, args...)

	cmd := exec.CommandContext(ctx, g.gitPath, fullArgs...)
	cmd.Dir = g.Dir
	// Disable git prompting the user for credentials.
	cmd.Env = append(os.Environ(),
		"GIT_TERMINAL_PROMPT=0")

	klog.V(3).Infof("running %s %s in %q", g.gitPath, strings.Join(fullArgs, " "), g.Dir)

	cmdStdout := &bytes.Buffer{}
	cmdStderr := &bytes.Buffer{}
	if g.Debug {
		cmd.Stdout = io.MultiWriter(cmdStdout, os.Stderr)
		cmd.Stderr = io.MultiWriter(cmdStderr, os.Stderr)
	} else {
		cmd.Stdout = cmdStdout
		cmd.Stderr = cmdStderr
	}

	err := cmd.Run()
	if err != nil {
		return RunResult{}, errors.E(op, errors.Git, &GitExecError{
			Type:    determineErrorType(cmdStdout.String(), cmdStderr.String()),
			Args:    args,
			Command: command,
			Err:     err,
			StdOut:  cmdStdout.String(),
			StdErr:  cmdStderr.String(),
		})
	}
	return RunResult{
		Stdout: cmdStdout.String(),
		Stderr: cmdStderr.String(),
	}, nil
}

// CurrentBranch returns the name of the branch checked out in the runner's
// directory. If HEAD is detached, the last return value is true and the
// branch name is empty.
func (g *GitLocalRunner) CurrentBranch(ctx context.Context) (string, bool, error) {
	const op errors.Op = "gitutil.CurrentBranch"
	rr, err := g.Run(ctx, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", false, errors.E(op, err)
	}
	branch := strings.TrimSpace(rr.Stdout)
	if branch == "HEAD" {
		return "", true, nil
	}
	return branch, false, nil
}

// ListRemoteRefs fetches all head and tag refs of the given remote without
// downloading any objects.
func (g *GitLocalRunner) ListRemoteRefs(ctx context.Context, remote string) (*RemoteRefs, error) {
	const op errors.Op = "gitutil.ListRemoteRefs"
	rr, err := g.Run(ctx, "ls-remote", "--heads", "--tags", "--refs", remote)
	if err != nil {
		AmendGitExecError(err, func(e *GitExecError) {
			e.Repo = remote
		})
		return nil, errors.E(op, errors.Repo(remote), err)
	}
	refs, err := ParseRemoteRefs(rr.Stdout)
	if err != nil {
		return nil, errors.E(op, errors.Repo(remote), errors.Git, err)
	}
	return refs, nil
}
