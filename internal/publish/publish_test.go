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

package publish

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/WAStudios/wastool/internal/printer"
	printerfake "github.com/WAStudios/wastool/internal/printer/fake"
	"github.com/WAStudios/wastool/internal/testutil"
	"github.com/WAStudios/wastool/internal/vcs"
	"github.com/WAStudios/wastool/internal/vcs/fake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const remoteURL = "git@github.com:WAStudios/WASLibs.git"

func newPublisher(t *testing.T, git vcs.DistributedClient) *Publisher {
	return &Publisher{
		Git:       git,
		Workspace: filepath.Join(t.TempDir(), "WASLibs"),
		RemoteURL: remoteURL,
		Branch:    DefaultBranch,
		Message:   DefaultMessage,
		Force:     true,
	}
}

func TestPrepare(t *testing.T) {
	testCases := map[string]struct {
		remotes     map[string]*fake.Remote
		seed        func(t *testing.T, ws string)
		expectedOps []string
		expectGit   bool
	}{
		"clones missing workspace": {
			remotes: map[string]*fake.Remote{
				remoteURL: fake.NewRemote("main", map[string]string{"LibA/LibA.lua": "A"}),
			},
			expectedOps: []string{"clone"},
			expectGit:   true,
		},
		"unreachable remote leaves empty workspace": {
			expectedOps: []string{"clone"},
		},
		"existing repository is reused": {
			seed: func(t *testing.T, ws string) {
				require.NoError(t, fake.SeedGit(ws, remoteURL, "main"))
			},
			expectGit: true,
		},
		"existing files are kept": {
			seed: func(t *testing.T, ws string) {
				testutil.WriteFile(t, filepath.Join(ws, "LibA", "LibA.lua"), "A")
			},
		},
	}

	for tn, tc := range testCases {
		t.Run(tn, func(t *testing.T) {
			git := fake.NewGit(tc.remotes)
			p := newPublisher(t, git)
			if tc.seed != nil {
				tc.seed(t, p.Workspace)
			}

			require.NoError(t, p.Prepare(printerfake.CtxWithNopPrinter()))

			assert.DirExists(t, p.Workspace)
			var ops []string
			for _, c := range git.Calls() {
				ops = append(ops, c.Op)
			}
			assert.Equal(t, tc.expectedOps, ops)
			if tc.expectGit {
				assert.DirExists(t, filepath.Join(p.Workspace, ".git"))
			} else {
				assert.NoDirExists(t, filepath.Join(p.Workspace, ".git"))
			}
		})
	}
}

func TestPublish(t *testing.T) {
	testCases := map[string]struct {
		errors         map[string]error
		commitTwice    bool
		expectedResult Result
		expectedOps    []string
		expectErr      bool
	}{
		"commit and push": {
			expectedResult: Result{Committed: true, Pushed: true},
			expectedOps: []string{
				"init main",
				"remote origin " + remoteURL,
				"add",
				"commit " + DefaultMessage,
				"push origin main --force",
			},
		},
		"no changes": {
			commitTwice:    true,
			expectedResult: Result{NoChanges: true},
			expectedOps: []string{
				"remote origin " + remoteURL,
				"add",
				"commit " + DefaultMessage,
			},
		},
		"push rejected": {
			errors: map[string]error{
				"push": fmt.Errorf("! [rejected] main -> main (fetch first)"),
			},
			expectedResult: Result{Committed: true},
			expectedOps: []string{
				"init main",
				"remote origin " + remoteURL,
				"add",
				"commit " + DefaultMessage,
				"push origin main --force",
			},
			expectErr: true,
		},
		"commit failure": {
			errors: map[string]error{
				"commit": fmt.Errorf("fatal: unable to auto-detect email address"),
			},
			expectedOps: []string{
				"init main",
				"remote origin " + remoteURL,
				"add",
				"commit " + DefaultMessage,
			},
			expectErr: true,
		},
	}

	for tn, tc := range testCases {
		t.Run(tn, func(t *testing.T) {
			git := fake.NewGit(nil)
			for k, v := range tc.errors {
				git.Errors[k] = v
			}
			p := newPublisher(t, git)
			testutil.WriteFile(t, filepath.Join(p.Workspace, "LibA", "LibA.lua"), "A")
			ctx := printerfake.CtxWithNopPrinter()
			if tc.commitTwice {
				require.True(t, p.Publish(ctx).Pushed)
				git.Reset()
			}

			r := p.Publish(ctx)

			if tc.expectErr {
				assert.Error(t, r.Err)
				assert.False(t, r.OK())
			} else {
				assert.NoError(t, r.Err)
				assert.True(t, r.OK())
			}
			r.Err = nil
			assert.Equal(t, tc.expectedResult, r)
			assert.Equal(t, tc.expectedOps, git.Ops())
		})
	}
}

func TestPublish_noChangesMessage(t *testing.T) {
	git := fake.NewGit(nil)
	p := newPublisher(t, git)
	require.NoError(t, fake.SeedGit(p.Workspace, remoteURL, "main"))
	var errOut bytes.Buffer
	ctx := printer.WithContext(context.Background(), printer.New(&bytes.Buffer{}, &errOut))

	// An empty workspace has nothing to commit.
	r := p.Publish(ctx)

	assert.True(t, r.NoChanges)
	assert.True(t, r.OK())
	assert.Contains(t, errOut.String(), "No changes to commit")
}

func TestPublish_realGit(t *testing.T) {
	bare := testutil.NewBareRepo(t)
	testutil.ConfigureGitIdentity(t)
	git, err := vcs.NewGitClient("git")
	require.NoError(t, err)
	ctx := printerfake.CtxWithNopPrinter()

	p := newPublisher(t, git)
	p.RemoteURL = "file://" + filepath.ToSlash(bare)
	require.NoError(t, p.Prepare(ctx))
	testutil.WriteFile(t, filepath.Join(p.Workspace, "LibA", "LibA.lua"), "A")

	r := p.Publish(ctx)
	testutil.AssertNoError(t, r.Err)
	assert.Equal(t, Result{Committed: true, Pushed: true}, r)

	r = p.Publish(ctx)
	testutil.AssertNoError(t, r.Err)
	assert.Equal(t, Result{NoChanges: true}, r)

	// A fresh workspace starts from the published state.
	next := newPublisher(t, git)
	next.RemoteURL = p.RemoteURL
	require.NoError(t, next.Prepare(ctx))
	assert.Equal(t, map[string]string{"LibA/LibA.lua": "A"}, testutil.ReadTree(t, next.Workspace))
	r = next.Publish(ctx)
	testutil.AssertNoError(t, r.Err)
	assert.True(t, r.NoChanges)
}
