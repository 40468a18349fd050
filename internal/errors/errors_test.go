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

package errors

import (
	goerrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError(t *testing.T) {
	testCases := map[string]struct {
		err      error
		expected string
	}{
		"all fields": {
			err: E(Op("syncer.clone"), Entry("Libs/LibStub"), Repo("https://example.com/LibStub.git"),
				Git, fmt.Errorf("exit status 128")),
			expected: "syncer.clone: library Libs/LibStub: repo https://example.com/LibStub.git: git error: exit status 128",
		},
		"string error": {
			err:      E(Op("manifest.parse"), Manifest, "externals must be a mapping"),
			expected: "manifest.parse: manifest error: externals must be a mapping",
		},
		"nested": {
			err:      E(Op("cmdsync.run"), E(Op("manifest.fetch"), Network, fmt.Errorf("timeout"))),
			expected: "cmdsync.run:\n\tmanifest.fetch: network error: timeout",
		},
		"nested with duplicate fields": {
			err: E(Op("syncer.sync"), Entry("LibA"),
				E(Op("syncer.sync"), Entry("LibA"), IO, fmt.Errorf("permission denied"))),
			expected: "syncer.sync: library LibA:\n\tIO error: permission denied",
		},
		"empty": {
			err:      &Error{},
			expected: "no error",
		},
	}

	for tn, tc := range testCases {
		t.Run(tn, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.err.Error())
		})
	}
}

func TestE_panics(t *testing.T) {
	assert.Panics(t, func() { _ = E() })
	assert.Panics(t, func() { _ = E(42) })
}

func TestIs(t *testing.T) {
	err := E(Op("cmdsync.run"), E(Op("manifest.fetch"), Network, fmt.Errorf("timeout")))

	assert.True(t, Is(err, Network))
	assert.False(t, Is(err, Manifest))
	assert.False(t, Is(fmt.Errorf("plain"), Network))
}

func TestAs(t *testing.T) {
	sentinel := goerrors.New("sentinel")
	err := fmt.Errorf("wrapped: %w", E(Op("publish.push"), Git, sentinel))

	var e *Error
	assert.True(t, As(err, &e))
	assert.Equal(t, Op("publish.push"), e.Op)
	assert.True(t, goerrors.Is(err, sentinel))
}
