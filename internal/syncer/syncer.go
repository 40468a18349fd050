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

// Package syncer brings the libraries declared in a manifest into the
// workspace, one directory per library.
package syncer

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/WAStudios/wastool/internal/errors"
	"github.com/WAStudios/wastool/internal/gitutil"
	"github.com/WAStudios/wastool/internal/manifest"
	"github.com/WAStudios/wastool/internal/printer"
	"github.com/WAStudios/wastool/internal/util/strip"
	"github.com/WAStudios/wastool/internal/vcs"
	"k8s.io/klog/v2"
)

// DefaultFallbackBranches are tried in order when a detached checkout has
// to be moved and the requested ref does not exist on the remote.
var DefaultFallbackBranches = []string{"master", "main"}

// constraintChars mark a tag as a semantic version constraint rather than a
// literal tag name.
const constraintChars = "^~<>=*, |"

// Syncer synchronizes manifest entries into Workspace.
type Syncer struct {
	Git vcs.DistributedClient
	Svn vcs.Client

	Workspace string
	Rules     HostRules
	// StripCentralized removes .svn after a fresh svn checkout. Keeping it
	// lets the next run update the checkout in place.
	StripCentralized bool
	// FallbackBranches defaults to DefaultFallbackBranches.
	FallbackBranches []string
}

// Sync synchronizes every entry in order. A failing entry is recorded and
// does not stop the remaining entries.
func (s *Syncer) Sync(ctx context.Context, entries []manifest.Entry) *Summary {
	pr := printer.FromContextOrDie(ctx)
	summary := &Summary{}
	pr.Printf("Synchronizing %d libraries into %s\n", len(entries), s.Workspace)
	for _, e := range entries {
		if ctx.Err() != nil {
			summary.Add(Result{Entry: e, Status: Failed, Err: ctx.Err()})
			continue
		}
		r := s.SyncEntry(ctx, e)
		opt := printer.NewOpt().Library(e.Key)
		switch r.Status {
		case Synced:
			pr.OptPrintf(opt, "%s done%s\n", r.Action, detail(r.Detail))
		case Failed:
			pr.OptPrintf(opt, "%s failed: %v\n", r.Action, r.Err)
		}
		summary.Add(r)
	}
	return summary
}

func detail(d string) string {
	if d == "" {
		return ""
	}
	return " (" + d + ")"
}

// SyncEntry brings the target directory of e up to date.
func (s *Syncer) SyncEntry(ctx context.Context, e manifest.Entry) Result {
	const op errors.Op = "syncer.sync"
	dir := filepath.Join(s.Workspace, e.Path)
	r := Result{Entry: e}

	state, err := Inspect(ctx, s.Git, dir)
	if err != nil {
		r.Status, r.Err = Failed, errors.E(op, errors.Entry(e.Key), err)
		return r
	}
	r.Action = Decide(e, state, s.Rules)
	klog.V(2).Infof("library %q: state %+v, action %q", e.Key, state, r.Action)

	if r.Action.Fresh() && state.Exists {
		klog.V(2).Infof("library %q: removing %s before cloning", e.Key, dir)
		if err := strip.RemoveAll(dir); err != nil {
			r.Status, r.Err = Failed, errors.E(op, errors.Entry(e.Key), errors.IO, err)
			return r
		}
	}

	switch r.Action {
	case ShallowClone:
		r.Detail, err = s.cloneGit(ctx, e, dir, 1)
	case FullClone:
		r.Detail, err = s.cloneGit(ctx, e, dir, 0)
	case CentralizedCheckout:
		err = s.checkoutSvn(ctx, e, dir)
	case BranchPull:
		r.Detail = state.Branch
		err = s.Git.Pull(ctx, dir)
	case DetachedReset:
		r.Detail, err = s.resetDetached(ctx, e, dir)
	case CentralizedUpdate:
		err = s.Svn.Update(ctx, dir)
	}

	if err != nil {
		if r.Action.Fresh() {
			if rmErr := strip.RemoveAll(dir); rmErr != nil {
				klog.Warningf("library %q: failed to clean up %s: %v", e.Key, dir, rmErr)
			}
		}
		r.Status, r.Err = Failed, errors.E(op, errors.Entry(e.Key), err)
		return r
	}
	r.Status = Synced
	return r
}

// cloneGit clones e into dir, checks out the requested ref and strips the
// .git directory. A depth of zero clones the full history.
func (s *Syncer) cloneGit(ctx context.Context, e manifest.Entry, dir string, depth int) (string, error) {
	opts := vcs.CloneOptions{Depth: depth}
	var checkout string
	switch e.RefKind {
	case manifest.RefBranch:
		opts.Branch = e.Ref
	case manifest.RefCommit:
		// A shallow clone can't reach an arbitrary, possibly abbreviated,
		// commit.
		opts.Depth = 0
		checkout = e.Ref
	}

	if err := s.Git.Clone(ctx, e.URL, dir, opts); err != nil {
		return "", err
	}

	if e.RefKind == manifest.RefTag {
		if err := s.Git.Fetch(ctx, dir, vcs.FetchOptions{Tags: true}); err != nil {
			return "", err
		}
		tag := e.Ref
		if strings.ContainsAny(tag, constraintChars) {
			refs, err := s.Git.ListRemoteRefs(ctx, dir, "origin")
			if err != nil {
				return "", err
			}
			resolved, found := refs.ResolveTagConstraint(tag)
			if !found {
				return "", fmt.Errorf("no tag matches %q", tag)
			}
			tag = resolved
		}
		checkout = "refs/tags/" + tag
	}

	if checkout != "" {
		if err := s.Git.Checkout(ctx, dir, checkout, vcs.CheckoutOptions{}); err != nil {
			return "", err
		}
	}
	if err := strip.Metadata(dir, vcs.Git); err != nil {
		return "", errors.E(errors.IO, err)
	}
	return strings.TrimPrefix(checkout, "refs/tags/"), nil
}

func (s *Syncer) checkoutSvn(ctx context.Context, e manifest.Entry, dir string) error {
	if err := s.Svn.Clone(ctx, e.URL, dir, vcs.CloneOptions{}); err != nil {
		return err
	}
	if !s.StripCentralized {
		return nil
	}
	if err := strip.Metadata(dir, vcs.Svn); err != nil {
		return errors.E(errors.IO, err)
	}
	return nil
}

// resetDetached moves a detached checkout to the requested ref, or to the
// first fallback branch the remote has.
func (s *Syncer) resetDetached(ctx context.Context, e manifest.Entry, dir string) (string, error) {
	if err := s.Git.Fetch(ctx, dir, vcs.FetchOptions{Tags: true}); err != nil {
		return "", err
	}
	refs, err := s.Git.ListRemoteRefs(ctx, dir, "origin")
	if err != nil {
		return "", err
	}

	if e.RefKind == manifest.RefCommit {
		err := s.checkoutCommit(ctx, dir, e.Ref)
		if err == nil {
			return e.Ref, nil
		}
		klog.V(2).Infof("library %q: commit %q not available (%v), trying fallback branches", e.Key, e.Ref, err)
	}
	if e.Ref != "" && e.RefKind != manifest.RefCommit {
		if _, found := refs.ResolveBranch(e.Ref); found {
			return e.Ref, s.resetToBranch(ctx, dir, e.Ref)
		}
		if tag, found := resolveTag(refs, e.Ref); found {
			return tag, s.Git.Checkout(ctx, dir, "refs/tags/"+tag, vcs.CheckoutOptions{})
		}
		klog.V(2).Infof("library %q: %q not found on remote, trying fallback branches", e.Key, e.Ref)
	}

	fallbacks := s.FallbackBranches
	if len(fallbacks) == 0 {
		fallbacks = DefaultFallbackBranches
	}
	for _, b := range fallbacks {
		if _, found := refs.ResolveBranch(b); found {
			return b, s.resetToBranch(ctx, dir, b)
		}
	}
	return "", fmt.Errorf("remote has none of the branches %s", strings.Join(fallbacks, ", "))
}

// checkoutCommit fetches commit and checks it out. The fetch only works
// for full ids the remote allows to fetch directly; abbreviated ids are
// checked out if the object is already present.
func (s *Syncer) checkoutCommit(ctx context.Context, dir, commit string) error {
	if err := s.Git.Fetch(ctx, dir, vcs.FetchOptions{Refspecs: []string{commit}}); err != nil {
		klog.V(3).Infof("fetch of commit %q failed: %v", commit, err)
	}
	return s.Git.Checkout(ctx, dir, commit, vcs.CheckoutOptions{})
}

func resolveTag(refs *gitutil.RemoteRefs, tag string) (string, bool) {
	if _, found := refs.ResolveTag(tag); found {
		return tag, true
	}
	if strings.ContainsAny(tag, constraintChars) {
		return refs.ResolveTagConstraint(tag)
	}
	return "", false
}

func (s *Syncer) resetToBranch(ctx context.Context, dir, branch string) error {
	remoteRef := "origin/" + branch
	err := s.Git.Fetch(ctx, dir, vcs.FetchOptions{
		Refspecs: []string{fmt.Sprintf("+refs/heads/%s:refs/remotes/%s", branch, remoteRef)},
	})
	if err != nil {
		return err
	}
	if err := s.Git.Checkout(ctx, dir, remoteRef, vcs.CheckoutOptions{Branch: branch}); err != nil {
		return err
	}
	return s.Git.ResetHard(ctx, dir, remoteRef)
}
