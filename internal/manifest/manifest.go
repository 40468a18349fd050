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

// Package manifest reads the externals declared in a .pkgmeta manifest.
package manifest

import (
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/WAStudios/wastool/internal/errors"
	"github.com/WAStudios/wastool/internal/vcs"
	"gopkg.in/yaml.v3"
)

// ExternalsKey is the top level manifest key holding the externals mapping.
const ExternalsKey = "externals"

// RefKind describes which kind of reference an entry requests.
type RefKind int

const (
	// RefNone checks out the remote default branch.
	RefNone RefKind = iota
	RefTag
	RefCommit
	RefBranch
)

func (k RefKind) String() string {
	switch k {
	case RefTag:
		return "tag"
	case RefCommit:
		return "commit"
	case RefBranch:
		return "branch"
	}
	return "default"
}

// Entry is a single external library declared in the manifest.
type Entry struct {
	// Key is the manifest key, for example Libs/LibStub.
	Key string
	// Path is the directory the library is placed in below the workspace.
	// It is the last element of Key.
	Path string
	URL  string
	// Ref is the requested tag, commit or branch. Empty for RefNone.
	Ref     string
	RefKind RefKind
	// Type is the VCS the manifest declares for the entry, if any. When
	// empty the VCS is derived from the url.
	Type vcs.Kind
}

// Warning describes a manifest value that was skipped.
type Warning struct {
	Key    string
	Line   int
	Reason string
}

func (w Warning) String() string {
	return fmt.Sprintf("line %d: external %q skipped: %s", w.Line, w.Key, w.Reason)
}

// Manifest holds the externals of a manifest in document order.
type Manifest struct {
	Entries  []Entry
	Warnings []Warning
}

// external is the structured form of an externals value.
type external struct {
	URL    string `yaml:"url"`
	Tag    string `yaml:"tag"`
	Commit string `yaml:"commit"`
	Branch string `yaml:"branch"`
	Type   string `yaml:"type"`
}

// ReadFile parses the manifest stored at path.
func ReadFile(path string) (*Manifest, error) {
	const op errors.Op = "manifest.read"
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.E(op, errors.IO, err)
	}
	m, err := Parse(b)
	if err != nil {
		return nil, errors.E(op, err)
	}
	return m, nil
}

// Parse reads the externals from a manifest document. A document that is
// not valid YAML is an error; values of an unrecognized shape are skipped
// and reported as warnings.
func Parse(data []byte) (*Manifest, error) {
	const op errors.Op = "manifest.parse"
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.E(op, errors.Manifest, err)
	}
	m := &Manifest{}
	if len(doc.Content) == 0 {
		return m, nil
	}
	root := resolve(doc.Content[0])
	if root.Kind != yaml.MappingNode {
		if root.Tag == "!!null" {
			return m, nil
		}
		return nil, errors.E(op, errors.Manifest,
			fmt.Errorf("line %d: expected a mapping at the top level of the manifest", root.Line))
	}

	externals := lookup(root, ExternalsKey)
	if externals == nil || externals.Tag == "!!null" {
		return m, nil
	}
	if externals.Kind != yaml.MappingNode {
		m.Warnings = append(m.Warnings, Warning{
			Key:    ExternalsKey,
			Line:   externals.Line,
			Reason: "expected a mapping of library paths",
		})
		return m, nil
	}

	seen := make(map[string]string)
	for i := 0; i+1 < len(externals.Content); i += 2 {
		keyNode, valueNode := externals.Content[i], resolve(externals.Content[i+1])
		key := keyNode.Value
		entry, reason := parseEntry(key, valueNode)
		if reason == "" {
			if other, found := seen[entry.Path]; found {
				reason = fmt.Sprintf("directory %q is already used by %q", entry.Path, other)
			}
		}
		if reason != "" {
			m.Warnings = append(m.Warnings, Warning{Key: key, Line: keyNode.Line, Reason: reason})
			continue
		}
		seen[entry.Path] = key
		m.Entries = append(m.Entries, entry)
	}
	return m, nil
}

func parseEntry(key string, value *yaml.Node) (Entry, string) {
	entry := Entry{Key: key, Path: path.Base(strings.TrimRight(key, "/"))}
	if key == "" || entry.Path == "." || entry.Path == "/" || entry.Path == ".." {
		return entry, "key does not name a directory"
	}
	// The workspace is itself a working copy; hidden names would reach its
	// metadata.
	if strings.HasPrefix(entry.Path, ".") {
		return entry, fmt.Sprintf("directory %q is hidden", entry.Path)
	}

	switch {
	case value.Kind == yaml.ScalarNode && value.Tag == "!!str":
		entry.URL = strings.TrimSpace(value.Value)
	case value.Kind == yaml.MappingNode:
		var ext external
		if err := value.Decode(&ext); err != nil {
			return entry, fmt.Sprintf("unrecognized value: %v", err)
		}
		entry.URL = strings.TrimSpace(ext.URL)
		switch {
		case ext.Tag != "":
			entry.Ref, entry.RefKind = ext.Tag, RefTag
		case ext.Commit != "":
			entry.Ref, entry.RefKind = ext.Commit, RefCommit
		case ext.Branch != "":
			entry.Ref, entry.RefKind = ext.Branch, RefBranch
		}
		switch t := vcs.Kind(strings.ToLower(ext.Type)); t {
		case "":
		case vcs.Git, vcs.Svn:
			entry.Type = t
		default:
			return entry, fmt.Sprintf("unsupported repository type %q", ext.Type)
		}
	default:
		return entry, "expected a url or a mapping with a url"
	}

	if entry.URL == "" {
		return entry, "missing url"
	}
	return entry, ""
}

func lookup(mapping *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			return resolve(mapping.Content[i+1])
		}
	}
	return nil
}

func resolve(n *yaml.Node) *yaml.Node {
	for n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	return n
}
