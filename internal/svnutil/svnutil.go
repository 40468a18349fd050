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

// Package svnutil runs the Subversion command line client.
package svnutil

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/WAStudios/wastool/internal/errors"
	"k8s.io/klog/v2"
)

// DefaultProgram is the svn executable looked up on the PATH when no
// explicit program is configured.
const DefaultProgram = "svn"

type SvnExecErrorType int

const (
	Unknown SvnExecErrorType = iota
	SvnExecutableNotFound
	RepositoryNotFound
	RepositoryUnavailable
	AuthRequired
	NotAWorkingCopy
)

// SvnExecError is returned when the svn executable exits with a failure.
type SvnExecError struct {
	Type    SvnExecErrorType
	Command string
	Args    []string
	Err     error
	Repo    string
	StdErr  string
	StdOut  string
}

func (e *SvnExecError) Error() string {
	b := new(strings.Builder)
	b.WriteString(e.Err.Error())
	if e.StdErr != "" {
		b.WriteString(": ")
		b.WriteString(strings.TrimSpace(e.StdErr))
	}
	return b.String()
}

func (e *SvnExecError) Unwrap() error {
	return e.Err
}

// Runner runs svn commands.
type Runner struct {
	svnPath    string
	globalArgs []string

	// Dir is the directory the commands are run in.
	Dir string
}

// NewRunner returns a Runner that invokes program with the given global
// arguments (e.g. "--non-interactive") after every command name.
func NewRunner(program string, globalArgs []string, dir string) (*Runner, error) {
	const op errors.Op = "svnutil.NewRunner"
	if program == "" {
		program = DefaultProgram
	}
	p, err := exec.LookPath(program)
	if err != nil {
		return nil, errors.E(op, errors.Svn, &SvnExecError{
			Type: SvnExecutableNotFound,
			Err:  fmt.Errorf("no %q program on path: %w", program, err),
		})
	}
	return &Runner{
		svnPath:    p,
		globalArgs: globalArgs,
		Dir:        dir,
	}, nil
}

// Run runs an svn command. Omit the 'svn' part of the command.
func (r *Runner) Run(ctx context.Context, command string, args ...string) (string, error) {
	const op errors.Op = "svnutil.Run"

	fullArgs := []string{command}
	fullArgs = append(fullArgs, r.globalArgs...)
	fullArgs = append(fullArgs, args...)

	cmd := exec.CommandContext(ctx, r.svnPath, fullArgs...)
	cmd.Dir = r.Dir
	cmd.Env = os.Environ()

	klog.V(3).Infof("running %s %s in %q", r.svnPath, strings.Join(fullArgs, " "), r.Dir)

	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	if err := cmd.Run(); err != nil {
		return "", errors.E(op, errors.Svn, &SvnExecError{
			Type:    determineErrorType(stderr.String()),
			Command: command,
			Args:    args,
			Err:     err,
			StdOut:  stdout.String(),
			StdErr:  stderr.String(),
		})
	}
	return stdout.String(), nil
}

// Checkout checks out url into dest.
func (r *Runner) Checkout(ctx context.Context, url, dest string) error {
	_, err := r.Run(ctx, "checkout", url, dest)
	amendRepo(err, url)
	return err
}

// Update brings the working copy at dir up to date.
func (r *Runner) Update(ctx context.Context, dir string) error {
	_, err := r.Run(ctx, "update", dir)
	return err
}

func amendRepo(err error, repo string) {
	var svnErr *SvnExecError
	if errors.As(err, &svnErr) {
		svnErr.Repo = repo
	}
}

// svn reports failures as "svn: E<code>: <message>"; the codes are stable
// across client versions.
func determineErrorType(stdErr string) SvnExecErrorType {
	switch {
	case strings.Contains(stdErr, "E170013"), strings.Contains(stdErr, "E670002"),
		strings.Contains(stdErr, "E175002"):
		return RepositoryUnavailable
	case strings.Contains(stdErr, "E170000"), strings.Contains(stdErr, "E160013"):
		return RepositoryNotFound
	case strings.Contains(stdErr, "E215004"), strings.Contains(stdErr, "E170001"):
		return AuthRequired
	case strings.Contains(stdErr, "E155007"):
		return NotAWorkingCopy
	}
	return Unknown
}
