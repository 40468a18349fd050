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

// Package inject copies library directories that the manifest doesn't
// declare from a separate repository into the workspace.
package inject

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/WAStudios/wastool/internal/errors"
	"github.com/WAStudios/wastool/internal/manifest"
	"github.com/WAStudios/wastool/internal/printer"
	"github.com/WAStudios/wastool/internal/syncer"
	"github.com/WAStudios/wastool/internal/util/strip"
	"github.com/WAStudios/wastool/internal/vcs"
	"github.com/otiai10/copy"
	"k8s.io/klog/v2"
)

const (
	// DefaultRepo provides the Ace3 libraries the manifest omits.
	DefaultRepo = "https://github.com/hurricup/WoW-Ace3.git"
)

// DefaultDirs are the directories copied from DefaultRepo.
var DefaultDirs = []string{"AceAddon-3.0", "AceTimer-3.0", "CallbackHandler-1.0"}

// Injector copies Dirs from the repository at RepoURL into Workspace.
type Injector struct {
	Git       vcs.Client
	RepoURL   string
	Dirs      []string
	Workspace string
	// TempDir is where the repository is cloned. Defaults to os.TempDir().
	TempDir string
}

// Inject shallow-clones the repository into a temporary directory and
// replaces each of the directories in the workspace with its copy from the
// clone. The temporary clone is always removed. Every directory gets a
// result; failures don't stop the remaining directories.
func (i *Injector) Inject(ctx context.Context) []syncer.Result {
	const op errors.Op = "inject.run"
	pr := printer.FromContextOrDie(ctx)

	results := make([]syncer.Result, len(i.Dirs))
	for n, dir := range i.Dirs {
		results[n] = syncer.Result{
			Entry:  manifest.Entry{Key: dir, Path: dir, URL: i.RepoURL},
			Action: syncer.ShallowClone,
		}
	}
	fail := func(err error) []syncer.Result {
		for n := range results {
			results[n].Status = syncer.Failed
			results[n].Err = err
		}
		return results
	}
	if len(i.Dirs) == 0 {
		return results
	}

	tmp, err := os.MkdirTemp(i.TempDir, "wastool-inject-")
	if err != nil {
		return fail(errors.E(op, errors.IO, err))
	}
	defer func() {
		if err := strip.RemoveAll(tmp); err != nil {
			klog.Warningf("failed to remove %s: %v", tmp, err)
		}
	}()

	pr.Printf("Injecting %d libraries from %s\n", len(i.Dirs), i.RepoURL)
	clone := filepath.Join(tmp, "repo")
	if err := i.Git.Clone(ctx, i.RepoURL, clone, vcs.CloneOptions{Depth: 1}); err != nil {
		pr.Printf("Failed to clone %s: %v\n", i.RepoURL, err)
		return fail(errors.E(op, errors.Repo(i.RepoURL), err))
	}

	for n, dir := range i.Dirs {
		opt := printer.NewOpt().Library(dir)
		if err := copyDir(ctx, filepath.Join(clone, dir), filepath.Join(i.Workspace, dir)); err != nil {
			results[n].Status = syncer.Failed
			results[n].Err = errors.E(op, errors.Entry(dir), errors.Repo(i.RepoURL), err)
			pr.OptPrintf(opt, "injection failed: %v\n", err)
			continue
		}
		results[n].Status = syncer.Synced
		results[n].Detail = "injected"
		pr.OptPrintf(opt, "injected\n")
	}
	return results
}

// copyDir replaces dst with a copy of src. The .git directory and symlinks
// are not copied.
func copyDir(ctx context.Context, src, dst string) error {
	pr := printer.FromContextOrDie(ctx)
	info, err := os.Stat(src)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%s does not exist in the repository", filepath.Base(src))
		}
		return errors.E(errors.IO, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", filepath.Base(src))
	}
	if err := strip.RemoveAll(dst); err != nil {
		return errors.E(errors.IO, err)
	}
	opts := copy.Options{
		Skip: func(_ os.FileInfo, path, _ string) (bool, error) {
			return filepath.Base(path) == ".git", nil
		},
		OnSymlink: func(path string) copy.SymlinkAction {
			displayPath, err := filepath.Rel(src, path)
			if err != nil {
				displayPath = path
			}
			pr.Printf("[Warn] Ignoring symlink %q\n", displayPath)
			return copy.Skip
		},
	}
	if err := copy.Copy(src, dst, opts); err != nil {
		return errors.E(errors.IO, err)
	}
	return nil
}
