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

package manifest

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/WAStudios/wastool/internal/errors"
	"github.com/google/go-github/v81/github"
	"golang.org/x/oauth2"
	"k8s.io/klog/v2"
)

// GitHubSource reads the manifest from a repository through the GitHub
// contents API. Unlike raw.githubusercontent.com this works for private
// repositories and is subject to the authenticated rate limit.
type GitHubSource struct {
	Owner string
	Repo  string
	Path  string
	// Ref is a branch, tag or commit. Empty means the default branch.
	Ref string

	Client *github.Client
}

// NewGitHubSource returns a source for path in repo ("owner/name"). A
// non-empty token authenticates the requests.
func NewGitHubSource(ctx context.Context, repo, path, ref, token string) (*GitHubSource, error) {
	const op errors.Op = "manifest.github"
	owner, name, found := strings.Cut(repo, "/")
	if !found || owner == "" || name == "" || strings.Contains(name, "/") {
		return nil, errors.E(op, errors.InvalidParam,
			fmt.Errorf("repository %q must have the form owner/name", repo))
	}
	if path == "" {
		path = ".pkgmeta"
	}

	var tc *http.Client
	if token != "" {
		tc = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))
	}
	return &GitHubSource{
		Owner:  owner,
		Repo:   name,
		Path:   path,
		Ref:    ref,
		Client: github.NewClient(tc),
	}, nil
}

func (s *GitHubSource) String() string {
	loc := fmt.Sprintf("github.com/%s/%s/%s", s.Owner, s.Repo, s.Path)
	if s.Ref != "" {
		loc += "@" + s.Ref
	}
	return loc
}

func (s *GitHubSource) Fetch(ctx context.Context) ([]byte, error) {
	const op errors.Op = "manifest.fetch"
	repo := errors.Repo(s.Owner + "/" + s.Repo)
	var opts *github.RepositoryContentGetOptions
	if s.Ref != "" {
		opts = &github.RepositoryContentGetOptions{Ref: s.Ref}
	}
	klog.V(3).Infof("GET contents %s", s)
	file, _, resp, err := s.Client.Repositories.GetContents(ctx, s.Owner, s.Repo, s.Path, opts)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return nil, errors.E(op, errors.Network, repo, fmt.Errorf("%s not found", s.Path))
		}
		return nil, errors.E(op, errors.Network, repo, err)
	}
	if file == nil {
		return nil, errors.E(op, errors.Manifest, repo, fmt.Errorf("%s is a directory", s.Path))
	}
	content, err := file.GetContent()
	if err != nil {
		return nil, errors.E(op, errors.Manifest, repo, err)
	}
	return []byte(content), nil
}
