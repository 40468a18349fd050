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
	"os"

	"github.com/WAStudios/wastool/internal/vcs"
)

// Svn is a fake vcs.Client for the centralized VCS. A checkout always
// receives the files of the remote's default branch.
type Svn struct {
	recorder
	Remotes map[string]*Remote
}

var _ vcs.Client = &Svn{}

// NewSvn returns a fake svn client serving remotes keyed by url.
func NewSvn(remotes map[string]*Remote) *Svn {
	if remotes == nil {
		remotes = make(map[string]*Remote)
	}
	return &Svn{
		recorder: recorder{Errors: make(map[string]error)},
		Remotes:  remotes,
	}
}

// SeedSvn turns dir into a svn working copy of url.
func SeedSvn(dir, url string) error {
	return writeMeta(dir, ".svn", originFile, url)
}

func (s *Svn) Kind() vcs.Kind {
	return vcs.Svn
}

func (s *Svn) files(url string) (map[string]string, error) {
	r, found := s.Remotes[url]
	if !found {
		return nil, notFound(vcs.Svn, fmt.Sprintf("repository %q", url))
	}
	return r.Branches[r.DefaultBranch], nil
}

func (s *Svn) Clone(_ context.Context, url, dest string, _ vcs.CloneOptions) error {
	if err := s.record("checkout", "", url, dest); err != nil {
		return err
	}
	files, err := s.files(url)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dest, 0700); err != nil {
		return err
	}
	if err := writeFiles(dest, ".svn", files); err != nil {
		return err
	}
	return SeedSvn(dest, url)
}

func (s *Svn) Update(_ context.Context, dir string) error {
	if err := s.record("update", dir); err != nil {
		return err
	}
	files, err := s.files(readMeta(dir, ".svn", originFile))
	if err != nil {
		return err
	}
	return writeFiles(dir, ".svn", files)
}
