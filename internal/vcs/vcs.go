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

// Package vcs abstracts the version control clients wastool drives, so the
// synchronizer and the publisher can run against real executables or an
// in-memory fake.
package vcs

import (
	"context"
	"fmt"

	"github.com/WAStudios/wastool/internal/gitutil"
	"github.com/google/shlex"
)

// Kind identifies a version control system.
type Kind string

const (
	// Git is the distributed VCS; every checkout carries its full history
	// in a .git directory.
	Git Kind = "git"
	// Svn is the centralized VCS; checkouts are pointers to a central server
	// tracked in a .svn directory.
	Svn Kind = "svn"
)

// MetadataDir returns the name of the directory the VCS keeps its metadata
// in inside a working copy.
func (k Kind) MetadataDir() string {
	return "." + string(k)
}

type CloneOptions struct {
	// Depth limits the history fetched. Zero means a full clone.
	Depth int
	// Branch is the branch or tag to check out instead of the remote HEAD.
	Branch string
}

type FetchOptions struct {
	// Remote defaults to origin.
	Remote string
	// Tags fetches all tags from the remote.
	Tags bool
	// Depth limits the history fetched. Zero leaves it unchanged.
	Depth int
	// Refspecs are fetched in addition to the default refspec.
	Refspecs []string
}

type CheckoutOptions struct {
	// Branch, if set, is created or reset to point at the checked out ref.
	Branch string
}

type PushOptions struct {
	Remote string
	Branch string
	Force  bool
}

// Client is the set of operations both VCS backends support.
type Client interface {
	Kind() Kind
	// Clone creates a working copy of url at dest. For svn this is a
	// checkout.
	Clone(ctx context.Context, url, dest string, opts CloneOptions) error
	// Update brings the working copy at dir up to date with its remote.
	Update(ctx context.Context, dir string) error
}

// DistributedClient adds the branch and publishing operations only the
// distributed VCS supports.
type DistributedClient interface {
	Client
	Fetch(ctx context.Context, dir string, opts FetchOptions) error
	Checkout(ctx context.Context, dir, ref string, opts CheckoutOptions) error
	Pull(ctx context.Context, dir string) error
	ResetHard(ctx context.Context, dir, ref string) error
	// CurrentBranch returns the checked out branch, or true as the second
	// value if HEAD is detached.
	CurrentBranch(ctx context.Context, dir string) (string, bool, error)
	ListRemoteRefs(ctx context.Context, dir, remote string) (*gitutil.RemoteRefs, error)
	Init(ctx context.Context, dir, branch string) error
	SetRemote(ctx context.Context, dir, name, url string) error
	AddAll(ctx context.Context, dir string) error
	// Commit records the staged changes. It returns false if there was
	// nothing to commit.
	Commit(ctx context.Context, dir, message string) (bool, error)
	Push(ctx context.Context, dir string, opts PushOptions) error
}

// SplitCommand splits a shell-like command line such as
// "svn --non-interactive" into the program and its global arguments.
func SplitCommand(commandLine string) (string, []string, error) {
	parts, err := shlex.Split(commandLine)
	if err != nil {
		return "", nil, fmt.Errorf("invalid command line %q: %w", commandLine, err)
	}
	if len(parts) == 0 {
		return "", nil, nil
	}
	return parts[0], parts[1:], nil
}
