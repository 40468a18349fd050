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

package vcs

import (
	"context"
	"strconv"
	"strings"

	"github.com/WAStudios/wastool/internal/errors"
	"github.com/WAStudios/wastool/internal/gitutil"
)

// GitClient drives the git executable.
type GitClient struct {
	program    string
	globalArgs []string
}

var _ DistributedClient = &GitClient{}

// NewGitClient returns a GitClient for the command line, e.g. "git" or
// "git -c core.autocrlf=false". An empty command line uses git from PATH.
func NewGitClient(commandLine string) (*GitClient, error) {
	const op errors.Op = "vcs.NewGitClient"
	program, args, err := SplitCommand(commandLine)
	if err != nil {
		return nil, errors.E(op, errors.InvalidParam, err)
	}
	return &GitClient{program: program, globalArgs: args}, nil
}

func (c *GitClient) Kind() Kind {
	return Git
}

func (c *GitClient) runner(dir string) (*gitutil.GitLocalRunner, error) {
	return gitutil.NewGitRunner(c.program, c.globalArgs, dir)
}

func (c *GitClient) run(ctx context.Context, dir, command string, args ...string) (gitutil.RunResult, error) {
	r, err := c.runner(dir)
	if err != nil {
		return gitutil.RunResult{}, err
	}
	return r.Run(ctx, command, args...)
}

func (c *GitClient) Clone(ctx context.Context, url, dest string, opts CloneOptions) error {
	const op errors.Op = "git.Clone"
	args := []string{}
	if opts.Depth > 0 {
		args = append(args, "--depth", strconv.Itoa(opts.Depth))
	}
	if opts.Branch != "" {
		args = append(args, "--branch", opts.Branch)
	}
	args = append(args, url, dest)
	if _, err := c.run(ctx, "", "clone", args...); err != nil {
		gitutil.AmendGitExecError(err, func(e *gitutil.GitExecError) {
			e.Repo = url
			e.Ref = opts.Branch
		})
		return errors.E(op, errors.Repo(url), err)
	}
	return nil
}

func (c *GitClient) Update(ctx context.Context, dir string) error {
	return c.Pull(ctx, dir)
}

func (c *GitClient) Fetch(ctx context.Context, dir string, opts FetchOptions) error {
	const op errors.Op = "git.Fetch"
	remote := opts.Remote
	if remote == "" {
		remote = "origin"
	}
	args := []string{}
	if opts.Tags {
		args = append(args, "--tags")
	}
	if opts.Depth > 0 {
		args = append(args, "--depth", strconv.Itoa(opts.Depth))
	}
	args = append(args, remote)
	args = append(args, opts.Refspecs...)
	if _, err := c.run(ctx, dir, "fetch", args...); err != nil {
		gitutil.AmendGitExecError(err, func(e *gitutil.GitExecError) {
			e.Repo = remote
			e.Ref = strings.Join(opts.Refspecs, " ")
		})
		return errors.E(op, err)
	}
	return nil
}

func (c *GitClient) Checkout(ctx context.Context, dir, ref string, opts CheckoutOptions) error {
	const op errors.Op = "git.Checkout"
	args := []string{"--force"}
	if opts.Branch != "" {
		args = append(args, "-B", opts.Branch)
	}
	args = append(args, ref)
	if _, err := c.run(ctx, dir, "checkout", args...); err != nil {
		gitutil.AmendGitExecError(err, func(e *gitutil.GitExecError) {
			e.Ref = ref
		})
		return errors.E(op, err)
	}
	return nil
}

func (c *GitClient) Pull(ctx context.Context, dir string) error {
	const op errors.Op = "git.Pull"
	if _, err := c.run(ctx, dir, "pull", "--ff-only"); err != nil {
		return errors.E(op, err)
	}
	return nil
}

func (c *GitClient) ResetHard(ctx context.Context, dir, ref string) error {
	const op errors.Op = "git.ResetHard"
	if _, err := c.run(ctx, dir, "reset", "--hard", ref); err != nil {
		gitutil.AmendGitExecError(err, func(e *gitutil.GitExecError) {
			e.Ref = ref
		})
		return errors.E(op, err)
	}
	return nil
}

func (c *GitClient) CurrentBranch(ctx context.Context, dir string) (string, bool, error) {
	r, err := c.runner(dir)
	if err != nil {
		return "", false, err
	}
	return r.CurrentBranch(ctx)
}

func (c *GitClient) ListRemoteRefs(ctx context.Context, dir, remote string) (*gitutil.RemoteRefs, error) {
	r, err := c.runner(dir)
	if err != nil {
		return nil, err
	}
	return r.ListRemoteRefs(ctx, remote)
}

func (c *GitClient) Init(ctx context.Context, dir, branch string) error {
	const op errors.Op = "git.Init"
	if _, err := c.run(ctx, dir, "init", "-b", branch); err != nil {
		return errors.E(op, err)
	}
	return nil
}

// SetRemote points the named remote at url, adding it if it doesn't exist.
func (c *GitClient) SetRemote(ctx context.Context, dir, name, url string) error {
	const op errors.Op = "git.SetRemote"
	if _, err := c.run(ctx, dir, "remote", "get-url", name); err != nil {
		if _, err := c.run(ctx, dir, "remote", "add", name, url); err != nil {
			return errors.E(op, errors.Repo(url), err)
		}
		return nil
	}
	if _, err := c.run(ctx, dir, "remote", "set-url", name, url); err != nil {
		return errors.E(op, errors.Repo(url), err)
	}
	return nil
}

func (c *GitClient) AddAll(ctx context.Context, dir string) error {
	const op errors.Op = "git.AddAll"
	if _, err := c.run(ctx, dir, "add", "-A"); err != nil {
		return errors.E(op, err)
	}
	return nil
}

func (c *GitClient) Commit(ctx context.Context, dir, message string) (bool, error) {
	const op errors.Op = "git.Commit"
	rr, err := c.run(ctx, dir, "status", "--porcelain")
	if err != nil {
		return false, errors.E(op, err)
	}
	if strings.TrimSpace(rr.Stdout) == "" {
		return false, nil
	}
	if _, err := c.run(ctx, dir, "commit", "-m", message); err != nil {
		if gitutil.IsType(err, gitutil.NothingToCommit) {
			return false, nil
		}
		return false, errors.E(op, err)
	}
	return true, nil
}

func (c *GitClient) Push(ctx context.Context, dir string, opts PushOptions) error {
	const op errors.Op = "git.Push"
	remote := opts.Remote
	if remote == "" {
		remote = "origin"
	}
	args := []string{remote}
	if opts.Branch != "" {
		args = append(args, opts.Branch)
	}
	if opts.Force {
		args = append(args, "--force")
	}
	if _, err := c.run(ctx, dir, "push", args...); err != nil {
		gitutil.AmendGitExecError(err, func(e *gitutil.GitExecError) {
			e.Repo = remote
			e.Ref = opts.Branch
		})
		return errors.E(op, err)
	}
	return nil
}
