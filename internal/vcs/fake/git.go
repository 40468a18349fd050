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

package fake

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/WAStudios/wastool/internal/gitutil"
	"github.com/WAStudios/wastool/internal/vcs"
)

const (
	originFile   = "origin"
	headFile     = "HEAD"
	detachedHead = "detached"
)

// Git is a fake vcs.DistributedClient serving Remotes.
type Git struct {
	recorder
	Remotes map[string]*Remote

	// committed holds the tree of every working copy at its last commit.
	committed map[string]string
}

var _ vcs.DistributedClient = &Git{}

// NewGit returns a fake git client serving remotes keyed by url.
func NewGit(remotes map[string]*Remote) *Git {
	if remotes == nil {
		remotes = make(map[string]*Remote)
	}
	return &Git{
		recorder:  recorder{Errors: make(map[string]error)},
		Remotes:   remotes,
		committed: make(map[string]string),
	}
}

// SeedGit turns dir into a git working copy of url. An empty branch leaves
// HEAD detached.
func SeedGit(dir, url, branch string) error {
	if branch == "" {
		branch = detachedHead
	}
	if err := writeMeta(dir, ".git", originFile, url); err != nil {
		return err
	}
	return writeMeta(dir, ".git", headFile, branch)
}

func (g *Git) Kind() vcs.Kind {
	return vcs.Git
}

func (g *Git) remoteOf(dir string) (string, *Remote, error) {
	url := readMeta(dir, ".git", originFile)
	r, found := g.Remotes[url]
	if !found {
		return url, nil, notFound(vcs.Git, fmt.Sprintf("repository %q", url))
	}
	return url, r, nil
}

func (g *Git) Clone(_ context.Context, url, dest string, opts vcs.CloneOptions) error {
	args := []string{url, dest}
	if opts.Depth > 0 {
		args = append(args, fmt.Sprintf("--depth=%d", opts.Depth))
	}
	if opts.Branch != "" {
		args = append(args, "--branch="+opts.Branch)
	}
	if err := g.record("clone", "", args...); err != nil {
		return err
	}
	r, found := g.Remotes[url]
	if !found {
		return notFound(vcs.Git, fmt.Sprintf("repository %q", url))
	}
	ref := opts.Branch
	if ref == "" {
		ref = r.DefaultBranch
	}
	files, found := r.lookup(ref)
	if !found {
		return notFound(vcs.Git, fmt.Sprintf("ref %q", ref))
	}
	if err := os.MkdirAll(dest, 0700); err != nil {
		return err
	}
	if err := writeFiles(dest, ".git", files); err != nil {
		return err
	}
	head := ref
	if _, isBranch := r.Branches[ref]; !isBranch {
		head = ""
	}
	return SeedGit(dest, url, head)
}

func (g *Git) Update(ctx context.Context, dir string) error {
	return g.Pull(ctx, dir)
}

func (g *Git) Fetch(_ context.Context, dir string, opts vcs.FetchOptions) error {
	var args []string
	if opts.Tags {
		args = append(args, "--tags")
	}
	args = append(args, opts.Refspecs...)
	if err := g.record("fetch", dir, args...); err != nil {
		return err
	}
	_, _, err := g.remoteOf(dir)
	return err
}

func (g *Git) Checkout(_ context.Context, dir, ref string, opts vcs.CheckoutOptions) error {
	args := []string{ref}
	if opts.Branch != "" {
		args = append(args, "-B", opts.Branch)
	}
	if err := g.record("checkout", dir, args...); err != nil {
		return err
	}
	_, r, err := g.remoteOf(dir)
	if err != nil {
		return err
	}
	files, found := r.lookup(ref)
	if !found {
		return notFound(vcs.Git, fmt.Sprintf("ref %q", ref))
	}
	if err := writeFiles(dir, ".git", files); err != nil {
		return err
	}
	head := opts.Branch
	if head == "" {
		if _, isBranch := r.Branches[ref]; isBranch {
			head = ref
		} else {
			head = detachedHead
		}
	}
	return writeMeta(dir, ".git", headFile, head)
}

func (g *Git) Pull(_ context.Context, dir string) error {
	if err := g.record("pull", dir); err != nil {
		return err
	}
	_, r, err := g.remoteOf(dir)
	if err != nil {
		return err
	}
	head := readMeta(dir, ".git", headFile)
	files, found := r.Branches[head]
	if !found {
		return notFound(vcs.Git, fmt.Sprintf("upstream branch %q", head))
	}
	return writeFiles(dir, ".git", files)
}

func (g *Git) ResetHard(_ context.Context, dir, ref string) error {
	if err := g.record("reset", dir, ref); err != nil {
		return err
	}
	_, r, err := g.remoteOf(dir)
	if err != nil {
		return err
	}
	files, found := r.lookup(ref)
	if !found {
		return notFound(vcs.Git, fmt.Sprintf("ref %q", ref))
	}
	return writeFiles(dir, ".git", files)
}

func (g *Git) CurrentBranch(_ context.Context, dir string) (string, bool, error) {
	if err := g.record("current-branch", dir); err != nil {
		return "", false, err
	}
	head := readMeta(dir, ".git", headFile)
	if head == "" {
		return "", false, notFound(vcs.Git, "HEAD in "+dir)
	}
	if head == detachedHead {
		return "", true, nil
	}
	return head, false, nil
}

func (g *Git) ListRemoteRefs(_ context.Context, dir, remote string) (*gitutil.RemoteRefs, error) {
	if err := g.record("ls-remote", dir, remote); err != nil {
		return nil, err
	}
	if r, found := g.Remotes[remote]; found {
		return r.refs(), nil
	}
	_, r, err := g.remoteOf(dir)
	if err != nil {
		return nil, err
	}
	return r.refs(), nil
}

func (g *Git) Init(_ context.Context, dir, branch string) error {
	if err := g.record("init", dir, branch); err != nil {
		return err
	}
	return writeMeta(dir, ".git", headFile, branch)
}

func (g *Git) SetRemote(_ context.Context, dir, name, url string) error {
	if err := g.record("remote", dir, name, url); err != nil {
		return err
	}
	return writeMeta(dir, ".git", originFile, url)
}

func (g *Git) AddAll(_ context.Context, dir string) error {
	return g.record("add", dir)
}

func (g *Git) Commit(_ context.Context, dir, message string) (bool, error) {
	if err := g.record("commit", dir, message); err != nil {
		return false, err
	}
	tree, err := snapshot(dir)
	if err != nil {
		return false, err
	}
	key, _ := filepath.Abs(dir)
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.committed[key] == tree {
		return false, nil
	}
	g.committed[key] = tree
	return true, nil
}

func (g *Git) Push(_ context.Context, dir string, opts vcs.PushOptions) error {
	args := []string{opts.Remote, opts.Branch}
	if opts.Force {
		args = append(args, "--force")
	}
	return g.record("push", dir, args...)
}

// snapshot renders the content of dir, excluding VCS metadata, as a string.
func snapshot(dir string) (string, error) {
	var lines []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" || d.Name() == ".svn" {
				return filepath.SkipDir
			}
			return nil
		}
		b, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(dir, path)
		lines = append(lines, filepath.ToSlash(rel)+"\x00"+string(b))
		return nil
	})
	sort.Strings(lines)
	return strings.Join(lines, "\x01"), err
}
