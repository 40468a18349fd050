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

// Package testutil contains helpers shared by tests that drive a real git
// executable.
package testutil

import (
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-errors/errors"
	"github.com/stretchr/testify/assert"
)

// AssertNoError fails the test immediately if err is non-nil. Errors that
// carry a stack trace have it printed to stderr.
func AssertNoError(t *testing.T, err error, msgAndArgs ...interface{}) {
	t.Helper()
	if !assert.NoError(t, err, msgAndArgs...) {
		if err, ok := err.(*errors.Error); ok {
			fmt.Fprint(os.Stderr, err.ErrorStack())
		}
		t.FailNow()
	}
}

// RequireGit skips the test when no git executable is available.
func RequireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git is not installed")
	}
}

// ConfigureGitIdentity sets a commit identity through the environment so
// tests don't depend on the user's global git configuration.
func ConfigureGitIdentity(t *testing.T) {
	t.Helper()
	t.Setenv("GIT_AUTHOR_NAME", "wastool test")
	t.Setenv("GIT_AUTHOR_EMAIL", "test@wastool.invalid")
	t.Setenv("GIT_COMMITTER_NAME", "wastool test")
	t.Setenv("GIT_COMMITTER_EMAIL", "test@wastool.invalid")
	t.Setenv("GIT_CONFIG_NOSYSTEM", "1")
	t.Setenv("GIT_CONFIG_GLOBAL", os.DevNull)
}

// TestGitRepo manages a local git repository for testing
type TestGitRepo struct {
	// RepoDirectory is the temp directory of the git repo
	RepoDirectory string
}

// NewTestGitRepo creates a repository with a single commit on branch.
func NewTestGitRepo(t *testing.T, branch string) *TestGitRepo {
	t.Helper()
	RequireGit(t)
	ConfigureGitIdentity(t)

	g := &TestGitRepo{RepoDirectory: t.TempDir()}
	g.Git(t, "init", "-b", branch)
	g.WriteFile(t, "README.md", "initial\n")
	g.Commit(t, "initial commit")
	return g
}

// NewBareRepo creates an empty bare repository that can be pushed to.
func NewBareRepo(t *testing.T) string {
	t.Helper()
	RequireGit(t)
	dir := t.TempDir()
	runGit(t, dir, "init", "--bare")
	return dir
}

// URL returns the file url of the repository.
func (g *TestGitRepo) URL() string {
	return "file://" + filepath.ToSlash(g.RepoDirectory)
}

// Git runs a git command in the repository and returns its trimmed output.
func (g *TestGitRepo) Git(t *testing.T, args ...string) string {
	t.Helper()
	return runGit(t, g.RepoDirectory, args...)
}

// WriteFile writes content to the file at the path relative to the repo.
func (g *TestGitRepo) WriteFile(t *testing.T, name, content string) {
	t.Helper()
	WriteFile(t, filepath.Join(g.RepoDirectory, name), content)
}

// Commit stages everything and commits it.
func (g *TestGitRepo) Commit(t *testing.T, message string) {
	t.Helper()
	g.Git(t, "add", "-A")
	g.Git(t, "commit", "-m", message)
}

// Tag creates a lightweight tag at HEAD.
func (g *TestGitRepo) Tag(t *testing.T, tag string) {
	t.Helper()
	g.Git(t, "tag", tag)
}

// CheckoutBranch checks out the branch, creating it if create is true.
func (g *TestGitRepo) CheckoutBranch(t *testing.T, branch string, create bool) {
	t.Helper()
	if create {
		g.Git(t, "checkout", "-b", branch)
		return
	}
	g.Git(t, "checkout", branch)
}

// GetCommit returns the commit HEAD points to.
func (g *TestGitRepo) GetCommit(t *testing.T) string {
	t.Helper()
	return g.Git(t, "rev-parse", "HEAD")
}

// WriteFile writes content to path, creating parent directories.
func WriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
}

// ReadTree returns the content of every regular file under dir keyed by its
// slash separated relative path. Version control metadata is skipped.
func ReadTree(t *testing.T, dir string) map[string]string {
	t.Helper()
	tree := make(map[string]string)
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
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		tree[filepath.ToSlash(rel)] = string(b)
		return nil
	})
	AssertNoError(t, err)
	return tree
}

func runGit(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("git %s: %v\n%s", strings.Join(args, " "), err, out)
	}
	return strings.TrimSpace(string(out))
}
