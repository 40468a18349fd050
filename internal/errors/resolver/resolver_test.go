// Copyright 2021 The kpt Authors
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

package resolver

import (
	"fmt"
	"testing"

	"github.com/WAStudios/wastool/internal/errors"
	"github.com/WAStudios/wastool/internal/gitutil"
	"github.com/stretchr/testify/assert"
)

func TestResolveError_DefaultExitCode(t *testing.T) {
	org := errorResolvers
	AddErrorResolver(&TestErrorResolver{})
	defer func() {
		errorResolvers = org
	}()

	rr, ok := ResolveError(&TestError{})
	assert.True(t, ok)
	assert.Equal(t, 1, rr.ExitCode)
}

type TestErrorResolver struct{}

func (t *TestErrorResolver) Resolve(err error) (ResolvedResult, bool) {
	var testError *TestError
	if errors.As(err, &testError) {
		return ResolvedResult{}, true
	}
	return ResolvedResult{}, false
}

type TestError struct{}

func (e *TestError) Error() string {
	return "this is a test"
}

func TestResolveError_git(t *testing.T) {
	testCases := map[string]struct {
		err      error
		contains []string
	}{
		"unknown ref": {
			err: errors.E(errors.Op("syncer.clone"), &gitutil.GitExecError{
				Type:    gitutil.UnknownReference,
				Command: "checkout",
				Args:    []string{"refs/tags/v9"},
				Err:     fmt.Errorf("exit status 1"),
				Repo:    "https://github.com/org/LibA.git",
				Ref:     "v9",
				StdErr:  "error: pathspec 'refs/tags/v9' did not match any file(s) known to git",
			}),
			contains: []string{
				`Error: Unknown ref "v9".`,
				`"https://github.com/org/LibA.git"`,
				"Details:",
				"did not match any file(s)",
			},
		},
		"push rejected": {
			err: &gitutil.GitExecError{
				Type:    gitutil.PushRejected,
				Command: "push",
				Args:    []string{"origin", "main"},
				Err:     fmt.Errorf("exit status 1"),
				StdErr:  " ! [rejected]        main -> main (fetch first)",
			},
			contains: []string{
				"rejected the push",
				"--fresh",
				"main -> main (fetch first)",
			},
		},
		"generic": {
			err: &gitutil.GitExecError{
				Command: "commit",
				Args:    []string{"-m", "msg"},
				Err:     fmt.Errorf("exit status 128"),
				Repo:    "/tmp/WASLibs",
			},
			contains: []string{
				`Error: Failed to execute git command "git commit -m msg" against repo "/tmp/WASLibs".`,
			},
		},
	}

	for tn, tc := range testCases {
		t.Run(tn, func(t *testing.T) {
			rr, ok := ResolveError(tc.err)
			assert.True(t, ok)
			assert.Equal(t, 1, rr.ExitCode)
			for _, c := range tc.contains {
				assert.Contains(t, rr.Message, c)
			}
		})
	}
}

func TestResolveError_kinds(t *testing.T) {
	testCases := map[string]struct {
		err      error
		expected string
	}{
		"network": {
			err: errors.E(errors.Op("cmdsync.run"),
				errors.E(errors.Op("manifest.fetch"), errors.Network,
					fmt.Errorf(`unexpected response status "404 Not Found"`))),
			expected: "Error: The manifest could not be fetched.\n\nDetails:\n" +
				`unexpected response status "404 Not Found"`,
		},
		"manifest": {
			err: errors.E(errors.Op("manifest.parse"), errors.Manifest,
				fmt.Errorf("yaml: line 1: did not find expected node content")),
			expected: "Error: The manifest is not a valid .pkgmeta document.\n\nDetails:\n" +
				"yaml: line 1: did not find expected node content",
		},
		"missing param": {
			err: errors.E(errors.Op("config.validate"), errors.MissingParam,
				fmt.Errorf("workspace.path must not be empty")),
			expected: "Error: A required configuration value is missing.\n\nDetails:\n" +
				"workspace.path must not be empty",
		},
	}

	for tn, tc := range testCases {
		t.Run(tn, func(t *testing.T) {
			rr, ok := ResolveError(tc.err)
			assert.True(t, ok)
			assert.Equal(t, tc.expected, rr.Message)
		})
	}
}

func TestResolveError_unresolved(t *testing.T) {
	testCases := map[string]error{
		"plain":   fmt.Errorf("boom"),
		"io":      errors.E(errors.Op("cmdsync.run"), errors.IO, fmt.Errorf("disk full")),
		"no kind": errors.E(errors.Op("cmdsync.run"), fmt.Errorf("boom")),
	}

	for tn, err := range testCases {
		t.Run(tn, func(t *testing.T) {
			_, ok := ResolveError(err)
			assert.False(t, ok)
		})
	}
}
