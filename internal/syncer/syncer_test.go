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
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/WAStudios/wastool/internal/manifest"
	"github.com/WAStudios/wastool/internal/printer"
	printerfake "github.com/WAStudios/wastool/internal/printer/fake"
	"github.com/WAStudios/wastool/internal/testutil"
	"github.com/WAStudios/wastool/internal/vcs"
	"github.com/WAStudios/wastool/internal/vcs/fake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	libAURL = "https://github.com/org/LibA.git"
	libBURL = "https://repos.wowace.com/wow/libb/mainline/trunk"
	libCURL = "https://github.com/org/LibC.git"
)

func newFakeSyncer(t *testing.T) (*Syncer, *fake.Git, *fake.Svn) {
	libC := fake.NewRemote("master", map[string]string{"LibC.lua": "master"})
	libC.Branches["develop"] = map[string]string{"LibC.lua": "develop"}
	libC.Tags["v1.0"] = map[string]string{"LibC.lua": "v1.0"}
	libC.Tags["v1.2.0"] = map[string]string{"LibC.lua": "v1.2.0"}
	libC.Commits["0a1b2c3"] = map[string]string{"LibC.lua": "0a1b2c3"}

	git := fake.NewGit(map[string]*fake.Remote{
		libAURL: fake.NewRemote("main", map[string]string{
			"LibA.lua": "A",
			"LibA.toc": "## Interface: 110000",
		}),
		libCURL: libC,
	})
	svn := fake.NewSvn(map[string]*fake.Remote{
		libBURL: fake.NewRemote("trunk", map[string]string{"LibB.lua": "B"}),
	})
	return &Syncer{
		Git:       git,
		Svn:       svn,
		Workspace: t.TempDir(),
		Rules:     DefaultHostRules(),
	}, git, svn
}

func TestSync_freshShallowClone(t *testing.T) {
	s, git, _ := newFakeSyncer(t)
	e := manifest.Entry{Key: "LibA", Path: "LibA", URL: libAURL}

	summary := s.Sync(printerfake.CtxWithNopPrinter(), []manifest.Entry{e})

	require.Len(t, summary.Results, 1)
	r := summary.Results[0]
	assert.Equal(t, Synced, r.Status)
	assert.Equal(t, ShallowClone, r.Action)
	dir := filepath.Join(s.Workspace, "LibA")
	assert.Equal(t, []string{fmt.Sprintf("clone %s %s --depth=1", libAURL, dir)}, git.Ops())
	assert.Equal(t, map[string]string{
		"LibA.lua": "A",
		"LibA.toc": "## Interface: 110000",
	}, testutil.ReadTree(t, dir))
	assert.NoDirExists(t, filepath.Join(dir, ".git"))
}

func TestSync_freshClones(t *testing.T) {
	testCases := map[string]struct {
		entry          manifest.Entry
		expectedOps    []string
		expectedFile   string
		expectedDetail string
		expectedAction Action
	}{
		"tag": {
			entry: manifest.Entry{Key: "LibC", Path: "LibC", URL: libCURL, Ref: "v1.0", RefKind: manifest.RefTag},
			expectedOps: []string{
				"clone %[1]s %[2]s --depth=1",
				"fetch --tags",
				"checkout refs/tags/v1.0",
			},
			expectedFile:   "v1.0",
			expectedDetail: "v1.0",
		},
		"tag constraint": {
			entry: manifest.Entry{Key: "LibC", Path: "LibC", URL: libCURL, Ref: "^1.0", RefKind: manifest.RefTag},
			expectedOps: []string{
				"clone %[1]s %[2]s --depth=1",
				"fetch --tags",
				"ls-remote origin",
				"checkout refs/tags/v1.2.0",
			},
			expectedFile:   "v1.2.0",
			expectedDetail: "v1.2.0",
		},
		"branch": {
			entry: manifest.Entry{Key: "LibC", Path: "LibC", URL: libCURL, Ref: "develop", RefKind: manifest.RefBranch},
			expectedOps: []string{
				"clone %[1]s %[2]s --depth=1 --branch=develop",
			},
			expectedFile: "develop",
		},
		"commit": {
			entry: manifest.Entry{Key: "LibC", Path: "LibC", URL: libCURL, Ref: "0a1b2c3", RefKind: manifest.RefCommit},
			expectedOps: []string{
				"clone %[1]s %[2]s",
				"checkout 0a1b2c3",
			},
			expectedFile:   "0a1b2c3",
			expectedDetail: "0a1b2c3",
			expectedAction: FullClone,
		},
	}

	for tn, tc := range testCases {
		t.Run(tn, func(t *testing.T) {
			s, git, _ := newFakeSyncer(t)
			dir := filepath.Join(s.Workspace, tc.entry.Path)

			r := s.SyncEntry(printerfake.CtxWithNopPrinter(), tc.entry)

			require.NoError(t, r.Err)
			assert.Equal(t, Synced, r.Status)
			assert.Equal(t, tc.expectedAction, r.Action)
			assert.Equal(t, tc.expectedDetail, r.Detail)
			var expectedOps []string
			for _, op := range tc.expectedOps {
				if strings.Contains(op, "%") {
					op = fmt.Sprintf(op, libCURL, dir)
				}
				expectedOps = append(expectedOps, op)
			}
			assert.Equal(t, expectedOps, git.Ops())
			assert.Equal(t, map[string]string{"LibC.lua": tc.expectedFile}, testutil.ReadTree(t, dir))
			assert.NoDirExists(t, filepath.Join(dir, ".git"))
		})
	}
}

func TestSync_fullCloneHost(t *testing.T) {
	s, git, _ := newFakeSyncer(t)
	const url = "https://www.townlong-yak.com/libs/LibT.git"
	git.Remotes[url] = fake.NewRemote("master", map[string]string{"LibT.lua": "T"})
	dir := filepath.Join(s.Workspace, "LibT")

	r := s.SyncEntry(printerfake.CtxWithNopPrinter(), manifest.Entry{Key: "LibT", Path: "LibT", URL: url})

	require.NoError(t, r.Err)
	assert.Equal(t, FullClone, r.Action)
	assert.Equal(t, []string{fmt.Sprintf("clone %s %s", url, dir)}, git.Ops())
	assert.NoDirExists(t, filepath.Join(dir, ".git"))
}

func TestSync_centralizedCheckout(t *testing.T) {
	testCases := map[string]struct {
		stripCentralized bool
	}{
		"keep metadata":  {},
		"strip metadata": {stripCentralized: true},
	}

	for tn, tc := range testCases {
		t.Run(tn, func(t *testing.T) {
			s, git, svn := newFakeSyncer(t)
			s.StripCentralized = tc.stripCentralized
			dir := filepath.Join(s.Workspace, "LibB")

			r := s.SyncEntry(printerfake.CtxWithNopPrinter(), manifest.Entry{Key: "LibB", Path: "LibB", URL: libBURL})

			require.NoError(t, r.Err)
			assert.Equal(t, CentralizedCheckout, r.Action)
			assert.Empty(t, git.Ops())
			assert.Equal(t, []string{fmt.Sprintf("checkout %s %s", libBURL, dir)}, svn.Ops())
			assert.Equal(t, map[string]string{"LibB.lua": "B"}, testutil.ReadTree(t, dir))
			if tc.stripCentralized {
				assert.NoDirExists(t, filepath.Join(dir, ".svn"))
			} else {
				assert.DirExists(t, filepath.Join(dir, ".svn"))
			}
		})
	}
}

func TestSync_inPlace(t *testing.T) {
	testCases := map[string]struct {
		seed           func(t *testing.T, dir string)
		entry          manifest.Entry
		expectedAction Action
		expectedOps    []string
		expectedFiles  map[string]string
		expectedDetail string
	}{
		"svn update": {
			seed: func(t *testing.T, dir string) {
				testutil.WriteFile(t, filepath.Join(dir, "LibB.lua"), "old")
				require.NoError(t, fake.SeedSvn(dir, libBURL))
			},
			entry:          manifest.Entry{Key: "LibB", Path: "LibB", URL: libBURL},
			expectedAction: CentralizedUpdate,
			expectedOps:    []string{"update"},
			expectedFiles:  map[string]string{"LibB.lua": "B"},
		},
		"branch pull": {
			seed: func(t *testing.T, dir string) {
				testutil.WriteFile(t, filepath.Join(dir, "LibC.lua"), "old")
				require.NoError(t, fake.SeedGit(dir, libCURL, "develop"))
			},
			entry:          manifest.Entry{Key: "LibC", Path: "LibC", URL: libCURL},
			expectedAction: BranchPull,
			expectedOps:    []string{"current-branch", "pull"},
			expectedFiles:  map[string]string{"LibC.lua": "develop"},
			expectedDetail: "develop",
		},
		"detached to requested branch": {
			seed: func(t *testing.T, dir string) {
				testutil.WriteFile(t, filepath.Join(dir, "LibC.lua"), "old")
				require.NoError(t, fake.SeedGit(dir, libCURL, ""))
			},
			entry:          manifest.Entry{Key: "LibC", Path: "LibC", URL: libCURL, Ref: "develop", RefKind: manifest.RefBranch},
			expectedAction: DetachedReset,
			expectedOps: []string{
				"current-branch",
				"fetch --tags",
				"ls-remote origin",
				"fetch +refs/heads/develop:refs/remotes/origin/develop",
				"checkout origin/develop -B develop",
				"reset origin/develop",
			},
			expectedFiles:  map[string]string{"LibC.lua": "develop"},
			expectedDetail: "develop",
		},
		"detached to requested tag": {
			seed: func(t *testing.T, dir string) {
				testutil.WriteFile(t, filepath.Join(dir, "LibC.lua"), "old")
				require.NoError(t, fake.SeedGit(dir, libCURL, ""))
			},
			entry:          manifest.Entry{Key: "LibC", Path: "LibC", URL: libCURL, Ref: "v1.0", RefKind: manifest.RefTag},
			expectedAction: DetachedReset,
			expectedOps: []string{
				"current-branch",
				"fetch --tags",
				"ls-remote origin",
				"checkout refs/tags/v1.0",
			},
			expectedFiles:  map[string]string{"LibC.lua": "v1.0"},
			expectedDetail: "v1.0",
		},
		"detached with missing tag falls back to master": {
			seed: func(t *testing.T, dir string) {
				testutil.WriteFile(t, filepath.Join(dir, "LibC.lua"), "old")
				require.NoError(t, fake.SeedGit(dir, libCURL, ""))
			},
			entry:          manifest.Entry{Key: "LibC", Path: "LibC", URL: libCURL, Ref: "v2.0", RefKind: manifest.RefTag},
			expectedAction: DetachedReset,
			expectedOps: []string{
				"current-branch",
				"fetch --tags",
				"ls-remote origin",
				"fetch +refs/heads/master:refs/remotes/origin/master",
				"checkout origin/master -B master",
				"reset origin/master",
			},
			expectedFiles:  map[string]string{"LibC.lua": "master"},
			expectedDetail: "master",
		},
		"detached to requested commit": {
			seed: func(t *testing.T, dir string) {
				testutil.WriteFile(t, filepath.Join(dir, "LibC.lua"), "old")
				require.NoError(t, fake.SeedGit(dir, libCURL, ""))
			},
			entry:          manifest.Entry{Key: "LibC", Path: "LibC", URL: libCURL, Ref: "0a1b2c3", RefKind: manifest.RefCommit},
			expectedAction: DetachedReset,
			expectedOps: []string{
				"current-branch",
				"fetch --tags",
				"ls-remote origin",
				"fetch 0a1b2c3",
				"checkout 0a1b2c3",
			},
			expectedFiles:  map[string]string{"LibC.lua": "0a1b2c3"},
			expectedDetail: "0a1b2c3",
		},
		"detached with unknown commit falls back to master": {
			seed: func(t *testing.T, dir string) {
				testutil.WriteFile(t, filepath.Join(dir, "LibC.lua"), "old")
				require.NoError(t, fake.SeedGit(dir, libCURL, ""))
			},
			entry:          manifest.Entry{Key: "LibC", Path: "LibC", URL: libCURL, Ref: "ffffff0", RefKind: manifest.RefCommit},
			expectedAction: DetachedReset,
			expectedOps: []string{
				"current-branch",
				"fetch --tags",
				"ls-remote origin",
				"fetch ffffff0",
				"checkout ffffff0",
				"fetch +refs/heads/master:refs/remotes/origin/master",
				"checkout origin/master -B master",
				"reset origin/master",
			},
			expectedFiles:  map[string]string{"LibC.lua": "master"},
			expectedDetail: "master",
		},
		"existing directory without metadata is re-cloned": {
			seed: func(t *testing.T, dir string) {
				testutil.WriteFile(t, filepath.Join(dir, "stale.lua"), "stale")
			},
			entry:          manifest.Entry{Key: "LibA", Path: "LibA", URL: libAURL},
			expectedAction: ShallowClone,
			expectedOps:    []string{"clone"},
			expectedFiles: map[string]string{
				"LibA.lua": "A",
				"LibA.toc": "## Interface: 110000",
			},
		},
	}

	for tn, tc := range testCases {
		t.Run(tn, func(t *testing.T) {
			s, git, svn := newFakeSyncer(t)
			dir := filepath.Join(s.Workspace, tc.entry.Path)
			tc.seed(t, dir)

			r := s.SyncEntry(printerfake.CtxWithNopPrinter(), tc.entry)

			require.NoError(t, r.Err)
			assert.Equal(t, tc.expectedAction, r.Action)
			assert.Equal(t, tc.expectedDetail, r.Detail)
			var ops []string
			for _, c := range append(git.Calls(), svn.Calls()...) {
				if c.Op == "clone" {
					ops = append(ops, c.Op)
					continue
				}
				ops = append(ops, c.String())
			}
			assert.Equal(t, tc.expectedOps, ops)
			assert.Equal(t, tc.expectedFiles, testutil.ReadTree(t, dir))
		})
	}
}

func TestSync_detachedWithoutFallback(t *testing.T) {
	s, git, _ := newFakeSyncer(t)
	const url = "https://github.com/org/LibD.git"
	git.Remotes[url] = fake.NewRemote("trunk", map[string]string{"LibD.lua": "trunk"})
	dir := filepath.Join(s.Workspace, "LibD")
	require.NoError(t, fake.SeedGit(dir, url, ""))

	r := s.SyncEntry(printerfake.CtxWithNopPrinter(), manifest.Entry{
		Key: "LibD", Path: "LibD", URL: url, Ref: "v2.0", RefKind: manifest.RefTag,
	})

	assert.Equal(t, Failed, r.Status)
	assert.Equal(t, DetachedReset, r.Action)
	require.Error(t, r.Err)
	assert.Contains(t, r.Err.Error(), "master, main")
	// In-place updates never delete the checkout.
	assert.DirExists(t, filepath.Join(dir, ".git"))
}

func TestSync_failuresDoNotStopTheLoop(t *testing.T) {
	s, git, _ := newFakeSyncer(t)
	git.Errors["clone "+libCURL] = fmt.Errorf("fatal: could not read from remote repository")
	var errOut bytes.Buffer
	ctx := printer.WithContext(context.Background(), printer.New(&bytes.Buffer{}, &errOut))

	summary := s.Sync(ctx, []manifest.Entry{
		{Key: "LibC", Path: "LibC", URL: libCURL},
		{Key: "Libs/Missing", Path: "Missing", URL: "https://github.com/org/Missing.git"},
		{Key: "LibA", Path: "LibA", URL: libAURL},
	})

	require.Len(t, summary.Results, 3)
	assert.Equal(t, Failed, summary.Results[0].Status)
	assert.Equal(t, Failed, summary.Results[1].Status)
	assert.Equal(t, Synced, summary.Results[2].Status)
	assert.Equal(t, 2, summary.Count(Failed))
	assert.Len(t, summary.Failed(), 2)

	// Partial clones are removed.
	assert.NoDirExists(t, filepath.Join(s.Workspace, "LibC"))
	assert.NoDirExists(t, filepath.Join(s.Workspace, "Missing"))
	assert.DirExists(t, filepath.Join(s.Workspace, "LibA"))

	assert.Contains(t, errOut.String(), `Library "LibC": shallow clone failed`)
	assert.Contains(t, errOut.String(), `Library "LibA": shallow clone done`)
}

func TestSync_idempotent(t *testing.T) {
	s, _, _ := newFakeSyncer(t)
	entries := []manifest.Entry{
		{Key: "LibA", Path: "LibA", URL: libAURL},
		{Key: "LibB", Path: "LibB", URL: libBURL},
		{Key: "LibC", Path: "LibC", URL: libCURL, Ref: "v1.0", RefKind: manifest.RefTag},
	}
	ctx := printerfake.CtxWithNopPrinter()

	first := s.Sync(ctx, entries)
	require.Equal(t, 3, first.Count(Synced))
	after := testutil.ReadTree(t, s.Workspace)

	second := s.Sync(ctx, entries)
	require.Equal(t, 3, second.Count(Synced))
	assert.Equal(t, after, testutil.ReadTree(t, s.Workspace))
	assert.Equal(t, CentralizedUpdate, second.Results[1].Action)
}

func TestSync_cancelled(t *testing.T) {
	s, git, _ := newFakeSyncer(t)
	ctx, cancel := context.WithCancel(printerfake.CtxWithNopPrinter())
	cancel()

	summary := s.Sync(ctx, []manifest.Entry{{Key: "LibA", Path: "LibA", URL: libAURL}})

	assert.Equal(t, 1, summary.Count(Failed))
	assert.ErrorIs(t, summary.Results[0].Err, context.Canceled)
	assert.Empty(t, git.Calls())
}

func TestSummary_AddWarnings(t *testing.T) {
	var s Summary
	s.AddWarnings([]manifest.Warning{{Key: "LibList", Line: 3, Reason: "expected a url"}})
	s.Add(Result{Entry: manifest.Entry{Key: "LibA"}, Status: Synced})

	assert.Equal(t, 1, s.Count(Skipped))
	assert.Equal(t, 1, s.Count(Synced))
	assert.Equal(t, "LibList", s.Results[0].Entry.Key)
	assert.Equal(t, "expected a url", s.Results[0].Detail)
}

func TestSync_realGit(t *testing.T) {
	upstream := testutil.NewTestGitRepo(t, "master")
	upstream.WriteFile(t, "LibR.lua", "v1")
	upstream.Commit(t, "v1")
	upstream.Tag(t, "v1.0")
	upstream.WriteFile(t, "LibR.lua", "v2")
	upstream.Commit(t, "v2")

	git, err := vcs.NewGitClient("git")
	require.NoError(t, err)
	s := &Syncer{
		Git:       git,
		Workspace: t.TempDir(),
		Rules:     DefaultHostRules(),
	}
	ctx := printerfake.CtxWithNopPrinter()
	dir := filepath.Join(s.Workspace, "LibR")

	t.Run("fresh clone at tag", func(t *testing.T) {
		e := manifest.Entry{Key: "LibR", Path: "LibR", URL: upstream.URL(), Ref: "v1.0", RefKind: manifest.RefTag}
		for i := 0; i < 2; i++ {
			r := s.SyncEntry(ctx, e)
			testutil.AssertNoError(t, r.Err)
			assert.Equal(t, map[string]string{"README.md": "initial\n", "LibR.lua": "v1"}, testutil.ReadTree(t, dir))
			assert.NoDirExists(t, filepath.Join(dir, ".git"))
		}
	})

	t.Run("detached checkout falls back to master", func(t *testing.T) {
		require.NoError(t, os.RemoveAll(dir))
		require.NoError(t, git.Clone(ctx, upstream.URL(), dir, vcs.CloneOptions{}))
		require.NoError(t, git.Checkout(ctx, dir, "refs/tags/v1.0", vcs.CheckoutOptions{}))

		r := s.SyncEntry(ctx, manifest.Entry{
			Key: "LibR", Path: "LibR", URL: upstream.URL(), Ref: "v2.0", RefKind: manifest.RefTag,
		})

		testutil.AssertNoError(t, r.Err)
		assert.Equal(t, DetachedReset, r.Action)
		assert.Equal(t, "master", r.Detail)
		assert.Equal(t, "v2", testutil.ReadTree(t, dir)["LibR.lua"])
		branch, detached, err := git.CurrentBranch(ctx, dir)
		require.NoError(t, err)
		assert.False(t, detached)
		assert.Equal(t, "master", branch)
	})
}
