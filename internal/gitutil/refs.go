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

package gitutil

import (
	"bufio"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
	"k8s.io/klog/v2"
)

var lsRemoteLine = regexp.MustCompile(`^([a-z0-9]+)\s+refs/(heads|tags)/(.+)$`)

// RemoteRefs holds the head and tag refs advertised by a remote.
type RemoteRefs struct {
	// Heads contains all head refs in the remote repo as well as the
	// commit each of them is referencing.
	Heads map[string]string

	// Tags contains all tag refs in the remote repo as well as the
	// commit each of them is referencing.
	Tags map[string]string
}

// ParseRemoteRefs parses the output of `git ls-remote --heads --tags --refs`.
// Lines that don't describe a head or a tag are ignored.
func ParseRemoteRefs(out string) (*RemoteRefs, error) {
	refs := &RemoteRefs{
		Heads: make(map[string]string),
		Tags:  make(map[string]string),
	}
	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		res := lsRemoteLine.FindStringSubmatch(scanner.Text())
		if len(res) == 0 {
			continue
		}
		switch res[2] {
		case "heads":
			refs.Heads[res[3]] = res[1]
		case "tags":
			refs.Tags[res[3]] = res[1]
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error parsing response from git: %w", err)
	}
	return refs, nil
}

// ResolveBranch resolves the branch to a commit SHA. If the branch doesn't
// exist in the remote repo, the last return value will be false.
func (r *RemoteRefs) ResolveBranch(branch string) (string, bool) {
	branch = strings.TrimPrefix(branch, "refs/heads/")
	commit, found := r.Heads[branch]
	return commit, found
}

// ResolveTag resolves the tag to a commit SHA. If the tag doesn't exist
// in the remote repo, the last return value will be false.
func (r *RemoteRefs) ResolveTag(tag string) (string, bool) {
	tag = strings.TrimPrefix(tag, "refs/tags/")
	commit, found := r.Tags[tag]
	return commit, found
}

// ResolveRef resolves the ref (either tag or branch) to a commit SHA. If the
// ref doesn't exist in the remote repo, the last return value will be false.
func (r *RemoteRefs) ResolveRef(ref string) (string, bool) {
	commit, found := r.ResolveBranch(ref)
	if found {
		return commit, true
	}
	return r.ResolveTag(ref)
}

// ResolveTagConstraint returns the highest tag that satisfies the semantic
// version constraint (e.g. "^2.0" or "~1.3"). Tags that don't parse as a
// semantic version are ignored. If the constraint is invalid or nothing
// matches, the last return value will be false.
func (r *RemoteRefs) ResolveTagConstraint(constraint string) (string, bool) {
	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return "", false
	}

	var candidates []*semver.Version
	names := make(map[*semver.Version]string)
	for tag := range r.Tags {
		v, err := semver.NewVersion(tag)
		if err != nil {
			klog.V(3).Infof("Skipping tag %q because it is not a semantic version", tag)
			continue
		}
		if c.Check(v) {
			candidates = append(candidates, v)
			names[v] = tag
		}
	}
	if len(candidates) == 0 {
		return "", false
	}
	sort.Sort(semver.Collection(candidates))
	return names[candidates[len(candidates)-1]], true
}

// HeadNames returns the sorted names of all heads.
func (r *RemoteRefs) HeadNames() []string {
	return sortedKeys(r.Heads)
}

// TagNames returns the sorted names of all tags.
func (r *RemoteRefs) TagNames() []string {
	return sortedKeys(r.Tags)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
