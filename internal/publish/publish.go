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

// Package publish commits the workspace and pushes it to the aggregate
// repository.
package publish

import (
	"context"
	"os"

	"github.com/WAStudios/wastool/internal/errors"
	"github.com/WAStudios/wastool/internal/printer"
	"github.com/WAStudios/wastool/internal/util/strip"
	"github.com/WAStudios/wastool/internal/vcs"
	"k8s.io/klog/v2"
)

const (
	DefaultRemoteURL = "git@github.com:WAStudios/WASLibs.git"
	DefaultBranch    = "main"
	DefaultMessage   = "Update libraries from latest .pkgmeta"
	// RemoteName is the name the aggregate remote is configured under.
	RemoteName = "origin"
)

// Result is the outcome of Publish.
type Result struct {
	// Committed is true if a new commit was created.
	Committed bool
	// NoChanges is true if the workspace matched the last commit.
	NoChanges bool
	Pushed    bool
	// Err is the error that stopped publishing, if any.
	Err error
}

// OK reports whether publishing succeeded. No changes counts as success.
func (r Result) OK() bool {
	return r.Err == nil
}

// Publisher commits Workspace and pushes it to RemoteURL.
type Publisher struct {
	Git       vcs.DistributedClient
	Workspace string
	RemoteURL string
	Branch    string
	Message   string
	Force     bool
}

// Prepare makes sure the workspace directory exists. If it is missing or
// empty and not yet a repository, the aggregate repository is cloned into
// it so unchanged libraries produce no diff. A failed clone leaves an empty
// workspace that Publish initializes from scratch.
func (p *Publisher) Prepare(ctx context.Context) error {
	const op errors.Op = "publish.prepare"
	pr := printer.FromContextOrDie(ctx)
	if strip.HasMetadata(p.Workspace, vcs.Git) {
		return nil
	}
	entries, err := os.ReadDir(p.Workspace)
	if err != nil && !os.IsNotExist(err) {
		return errors.E(op, errors.IO, err)
	}
	if len(entries) > 0 {
		return nil
	}
	if err := strip.RemoveAll(p.Workspace); err != nil {
		return errors.E(op, errors.IO, err)
	}

	pr.Printf("Cloning %s into %s\n", p.RemoteURL, p.Workspace)
	err = p.Git.Clone(ctx, p.RemoteURL, p.Workspace, vcs.CloneOptions{Branch: p.Branch})
	if err != nil {
		pr.Printf("Could not clone %s, starting from an empty workspace\n", p.RemoteURL)
		klog.V(2).Infof("clone of aggregate repository failed: %v", err)
		if err := strip.RemoveAll(p.Workspace); err != nil {
			return errors.E(op, errors.IO, err)
		}
	}
	if err := os.MkdirAll(p.Workspace, 0755); err != nil {
		return errors.E(op, errors.IO, err)
	}
	return nil
}

// Publish stages everything in the workspace, commits it and pushes the
// commit. Errors are reported in the result, not returned, so callers can
// run their cleanup before deciding how to fail.
func (p *Publisher) Publish(ctx context.Context) Result {
	const op errors.Op = "publish.run"
	pr := printer.FromContextOrDie(ctx)
	var r Result

	if !strip.HasMetadata(p.Workspace, vcs.Git) {
		pr.Printf("Initializing repository in %s\n", p.Workspace)
		if err := p.Git.Init(ctx, p.Workspace, p.Branch); err != nil {
			r.Err = errors.E(op, err)
			return r
		}
	}
	if err := p.Git.SetRemote(ctx, p.Workspace, RemoteName, p.RemoteURL); err != nil {
		r.Err = errors.E(op, err)
		return r
	}

	pr.Printf("Staging all files for commit\n")
	if err := p.Git.AddAll(ctx, p.Workspace); err != nil {
		r.Err = errors.E(op, err)
		return r
	}
	committed, err := p.Git.Commit(ctx, p.Workspace, p.Message)
	if err != nil {
		r.Err = errors.E(op, err)
		return r
	}
	if !committed {
		pr.Printf("No changes to commit\n")
		r.NoChanges = true
		return r
	}
	r.Committed = true

	pr.Printf("Pushing to %s %s\n", p.RemoteURL, p.Branch)
	err = p.Git.Push(ctx, p.Workspace, vcs.PushOptions{
		Remote: RemoteName,
		Branch: p.Branch,
		Force:  p.Force,
	})
	if err != nil {
		pr.Printf("Push failed: %v\n", err)
		r.Err = errors.E(op, errors.Repo(p.RemoteURL), err)
		return r
	}
	r.Pushed = true
	pr.Printf("Aggregate repository updated\n")
	return r
}
