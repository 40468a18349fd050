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

// Package fake provides in-memory implementations of the vcs clients.
//
// A working copy created by the fakes is a real directory: the files of the
// checked out ref are written to it and a metadata directory (.git or .svn)
// records the origin url and the checked out branch, so code that inspects
// the filesystem behaves the same as with the real clients.
package fake

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/WAStudios/wastool/internal/gitutil"
	"github.com/WAStudios/wastool/internal/vcs"
)

// Remote is a repository served by a fake client.
type Remote struct {
	// DefaultBranch is checked out by a clone without an explicit branch.
	DefaultBranch string
	// Branches maps branch names to the files on that branch.
	Branches map[string]map[string]string
	// Tags maps tag names to the files at that tag.
	Tags map[string]map[string]string
	// Commits maps commit ids to the files at that commit.
	Commits map[string]map[string]string
}

// NewRemote returns a remote with a single branch holding files.
func NewRemote(branch string, files map[string]string) *Remote {
	return &Remote{
		DefaultBranch: branch,
		Branches:      map[string]map[string]string{branch: files},
		Tags:          map[string]map[string]string{},
		Commits:       map[string]map[string]string{},
	}
}

func (r *Remote) lookup(ref string) (map[string]string, bool) {
	ref = strings.TrimPrefix(ref, "origin/")
	if files, found := r.Branches[strings.TrimPrefix(ref, "refs/heads/")]; found {
		return files, true
	}
	if files, found := r.Tags[strings.TrimPrefix(ref, "refs/tags/")]; found {
		return files, true
	}
	files, found := r.Commits[ref]
	return files, found
}

func (r *Remote) refs() *gitutil.RemoteRefs {
	refs := &gitutil.RemoteRefs{
		Heads: make(map[string]string),
		Tags:  make(map[string]string),
	}
	for name := range r.Branches {
		refs.Heads[name] = "refs/heads/" + name
	}
	for name := range r.Tags {
		refs.Tags[name] = "refs/tags/" + name
	}
	return refs
}

// Call records one operation performed through a fake client.
type Call struct {
	Op   string
	Dir  string
	Args []string
}

func (c Call) String() string {
	return strings.TrimSpace(c.Op + " " + strings.Join(c.Args, " "))
}

type recorder struct {
	mu    sync.Mutex
	calls []Call
	// Errors makes the operation fail. Keys are either the operation name
	// ("clone", "push", ...) or the operation followed by its first argument
	// ("clone https://example.com/x.git").
	Errors map[string]error
}

func (r *recorder) record(op, dir string, args ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, Call{Op: op, Dir: dir, Args: args})
	if len(args) > 0 {
		if err, found := r.Errors[op+" "+args[0]]; found {
			return err
		}
	}
	if err, found := r.Errors[op]; found {
		return err
	}
	return nil
}

// Calls returns the operations performed so far.
func (r *recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call{}, r.calls...)
}

// Ops returns the operations performed so far as strings.
func (r *recorder) Ops() []string {
	var ops []string
	for _, c := range r.Calls() {
		ops = append(ops, c.String())
	}
	return ops
}

// Reset forgets the recorded operations.
func (r *recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}

// writeFiles replaces everything in dir except the metadata directory with
// files.
func writeFiles(dir, keep string, files map[string]string) error {
	entries, err := os.ReadDir(dir)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	for _, e := range entries {
		if e.Name() == keep {
			continue
		}
		if err := os.RemoveAll(filepath.Join(dir, e.Name())); err != nil {
			return err
		}
	}
	for name, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0700); err != nil {
			return err
		}
		if err := os.WriteFile(p, []byte(content), 0600); err != nil {
			return err
		}
	}
	return nil
}

func readMeta(dir, metaDir, name string) string {
	b, err := os.ReadFile(filepath.Join(dir, metaDir, name))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(b))
}

func writeMeta(dir, metaDir, name, value string) error {
	p := filepath.Join(dir, metaDir)
	if err := os.MkdirAll(p, 0700); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(p, name), []byte(value+"\n"), 0600)
}

func notFound(kind vcs.Kind, what string) error {
	return fmt.Errorf("fake %s: %s not found", kind, what)
}
