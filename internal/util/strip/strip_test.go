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

package strip

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/WAStudios/wastool/internal/testutil"
	"github.com/WAStudios/wastool/internal/vcs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRemoveAll(t *testing.T) {
	testCases := map[string]struct {
		setup func(t *testing.T, root string)
	}{
		"plain tree": {
			setup: func(t *testing.T, root string) {
				testutil.WriteFile(t, filepath.Join(root, "a", "b.lua"), "b")
			},
		},
		"read-only files": {
			setup: func(t *testing.T, root string) {
				p := filepath.Join(root, "objects", "ab", "cdef")
				testutil.WriteFile(t, p, "blob")
				require.NoError(t, os.Chmod(p, 0400))
			},
		},
		"read-only directory": {
			setup: func(t *testing.T, root string) {
				testutil.WriteFile(t, filepath.Join(root, "pack", "pack-1.idx"), "idx")
				require.NoError(t, os.Chmod(filepath.Join(root, "pack"), 0500))
			},
		},
		"missing": {
			setup: func(t *testing.T, root string) {
				require.NoError(t, os.RemoveAll(root))
			},
		},
	}

	for tn, tc := range testCases {
		t.Run(tn, func(t *testing.T) {
			root := filepath.Join(t.TempDir(), "tree")
			require.NoError(t, os.MkdirAll(root, 0700))
			tc.setup(t, root)

			testutil.AssertNoError(t, RemoveAll(root))

			_, err := os.Stat(root)
			assert.True(t, os.IsNotExist(err))
		})
	}
}

func TestMetadata(t *testing.T) {
	testCases := map[string]struct {
		kind     vcs.Kind
		dirs     []string
		expected map[string]bool
	}{
		"strips git": {
			kind: vcs.Git,
			dirs: []string{".git", ".svn"},
			expected: map[string]bool{
				".git": false,
				".svn": true,
			},
		},
		"strips svn": {
			kind: vcs.Svn,
			dirs: []string{".svn"},
			expected: map[string]bool{
				".svn": false,
			},
		},
		"no metadata": {
			kind:     vcs.Git,
			expected: map[string]bool{".git": false},
		},
	}

	for tn, tc := range testCases {
		t.Run(tn, func(t *testing.T) {
			dir := t.TempDir()
			testutil.WriteFile(t, filepath.Join(dir, "lib.lua"), "lib")
			for _, d := range tc.dirs {
				testutil.WriteFile(t, filepath.Join(dir, d, "HEAD"), "ref")
			}

			testutil.AssertNoError(t, Metadata(dir, tc.kind))

			for d, present := range tc.expected {
				_, err := os.Stat(filepath.Join(dir, d))
				assert.Equal(t, present, err == nil, d)
			}
			assert.FileExists(t, filepath.Join(dir, "lib.lua"))
			assert.False(t, HasMetadata(dir, tc.kind))
		})
	}
}
