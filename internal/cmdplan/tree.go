// Copyright 2019 Google LLC
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

package cmdplan

import (
	"fmt"
	"io"

	"github.com/WAStudios/wastool/internal/manifest"
	"github.com/WAStudios/wastool/internal/syncer"
	"github.com/xlab/treeprint"
)

// Step is the action planned for a single library.
type Step struct {
	Entry  manifest.Entry
	Action syncer.Action
	State  syncer.TargetState
}

// Plan is what a sync would do with the workspace.
type Plan struct {
	Steps    []Step
	Warnings []manifest.Warning
	// InjectRepo is empty when injection is disabled.
	InjectRepo string
	InjectDirs []string
}

type TreePrinter struct {
	Writer io.Writer
	Root   string
}

func (p TreePrinter) Write(plan *Plan) error {
	tree := treeprint.New()
	tree.SetValue(p.Root)

	for _, s := range plan.Steps {
		tree.AddMetaNode(s.Action.String(), describe(s))
	}
	if len(plan.Warnings) > 0 {
		skipped := tree.AddBranch("skipped")
		for _, w := range plan.Warnings {
			skipped.AddMetaNode(fmt.Sprintf("line %d", w.Line), fmt.Sprintf("%s: %s", w.Key, w.Reason))
		}
	}
	if plan.InjectRepo != "" {
		injected := tree.AddBranch("inject " + plan.InjectRepo)
		for _, d := range plan.InjectDirs {
			injected.AddNode(d)
		}
	}

	_, err := io.WriteString(p.Writer, tree.String())
	return err
}

func describe(s Step) string {
	value := fmt.Sprintf("%s %s", s.Entry.Path, s.Entry.URL)
	if s.Entry.RefKind != manifest.RefNone {
		value += fmt.Sprintf(" (%s %s)", s.Entry.RefKind, s.Entry.Ref)
	}
	if s.State.Exists && s.State.Branch != "" {
		value += fmt.Sprintf(" on %s", s.State.Branch)
	}
	return value
}
