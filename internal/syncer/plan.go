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

package syncer

import (
	"context"
	"net/url"
	"os"
	"strings"

	"github.com/WAStudios/wastool/internal/errors"
	"github.com/WAStudios/wastool/internal/manifest"
	"github.com/WAStudios/wastool/internal/util/strip"
	"github.com/WAStudios/wastool/internal/vcs"
)

// HostRules tells the synchronizer how to treat repositories by host.
type HostRules struct {
	// CentralizedHosts serve svn repositories.
	CentralizedHosts []string
	// FullCloneHosts serve git repositories whose history cannot be fetched
	// with a shallow clone.
	FullCloneHosts []string
}

// DefaultHostRules returns the rules for the hosts .pkgmeta externals
// commonly point at.
func DefaultHostRules() HostRules {
	return HostRules{
		CentralizedHosts: []string{"repos.curseforge.com", "repos.wowace.com"},
		FullCloneHosts:   []string{"townlong-yak.com"},
	}
}

// Classify returns the VCS serving the repository at rawURL.
func Classify(rawURL string, rules HostRules) vcs.Kind {
	scheme, host := splitURL(rawURL)
	if scheme == "svn" || strings.HasPrefix(scheme, "svn+") {
		return vcs.Svn
	}
	if matchHost(host, rules.CentralizedHosts) {
		return vcs.Svn
	}
	return vcs.Git
}

// NeedsFullClone reports whether the repository at rawURL must be cloned
// with its full history.
func NeedsFullClone(rawURL string, rules HostRules) bool {
	_, host := splitURL(rawURL)
	return matchHost(host, rules.FullCloneHosts)
}

// kindOf returns the VCS of e, preferring the type declared in the
// manifest over the one derived from the url.
func kindOf(e manifest.Entry, rules HostRules) vcs.Kind {
	if e.Type != "" {
		return e.Type
	}
	return Classify(e.URL, rules)
}

// splitURL returns the lower-cased scheme and host of rawURL. scp-like
// addresses (git@github.com:org/repo.git) have the ssh scheme.
func splitURL(rawURL string) (string, string) {
	if u, err := url.Parse(rawURL); err == nil && u.Scheme != "" && u.Host != "" {
		return strings.ToLower(u.Scheme), strings.ToLower(u.Hostname())
	}
	if at := strings.Index(rawURL, "@"); at >= 0 {
		if host, _, found := strings.Cut(rawURL[at+1:], ":"); found {
			return "ssh", strings.ToLower(host)
		}
	}
	return "", ""
}

func matchHost(host string, hosts []string) bool {
	if host == "" {
		return false
	}
	for _, h := range hosts {
		h = strings.ToLower(h)
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}

// TargetState is what Inspect found at the target directory of an entry.
type TargetState struct {
	Exists bool
	HasGit bool
	HasSvn bool
	// Detached is true when HasGit is true and HEAD is not on a branch.
	Detached bool
	// Branch is the checked out branch when HasGit is true and HEAD is
	// attached.
	Branch string
}

// Action is the operation chosen to bring a target directory up to date.
type Action int

const (
	ShallowClone Action = iota
	FullClone
	CentralizedCheckout
	BranchPull
	DetachedReset
	CentralizedUpdate
)

func (a Action) String() string {
	switch a {
	case ShallowClone:
		return "shallow clone"
	case FullClone:
		return "full clone"
	case CentralizedCheckout:
		return "svn checkout"
	case BranchPull:
		return "pull"
	case DetachedReset:
		return "reset detached checkout"
	case CentralizedUpdate:
		return "svn update"
	}
	return "unknown"
}

// Fresh reports whether the action creates the target directory.
func (a Action) Fresh() bool {
	return a == ShallowClone || a == FullClone || a == CentralizedCheckout
}

// Decide chooses the action for entry e given the state of its target
// directory. It has no side effects.
func Decide(e manifest.Entry, state TargetState, rules HostRules) Action {
	switch {
	case state.Exists && state.HasGit:
		if state.Detached {
			return DetachedReset
		}
		return BranchPull
	case state.Exists && state.HasSvn:
		return CentralizedUpdate
	case kindOf(e, rules) == vcs.Svn:
		return CentralizedCheckout
	case NeedsFullClone(e.URL, rules), e.RefKind == manifest.RefCommit:
		return FullClone
	default:
		return ShallowClone
	}
}

// Inspect reports the state of the target directory dir.
func Inspect(ctx context.Context, git vcs.DistributedClient, dir string) (TargetState, error) {
	const op errors.Op = "syncer.inspect"
	var state TargetState
	if _, err := os.Lstat(dir); err != nil {
		if os.IsNotExist(err) {
			return state, nil
		}
		return state, errors.E(op, errors.IO, err)
	}
	state.Exists = true
	state.HasGit = strip.HasMetadata(dir, vcs.Git)
	state.HasSvn = strip.HasMetadata(dir, vcs.Svn)
	if !state.HasGit {
		return state, nil
	}
	branch, detached, err := git.CurrentBranch(ctx, dir)
	if err != nil {
		return state, errors.E(op, err)
	}
	state.Branch, state.Detached = branch, detached
	return state, nil
}
