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

// Package cmdplan contains the plan command
package cmdplan

import (
	"context"
	"path/filepath"

	"github.com/WAStudios/wastool/internal/config"
	"github.com/WAStudios/wastool/internal/errors"
	"github.com/WAStudios/wastool/internal/manifest"
	"github.com/WAStudios/wastool/internal/printer"
	"github.com/WAStudios/wastool/internal/syncer"
	"github.com/WAStudios/wastool/internal/util/cmdutil"
	"github.com/spf13/cobra"
	"k8s.io/klog/v2"
)

// NewRunner returns a command runner.
func NewRunner(ctx context.Context, parent string) *Runner {
	r := &Runner{
		ctx:     ctx,
		Factory: cmdutil.NewFactory(),
	}
	c := &cobra.Command{
		Use:     "plan",
		Short:   PlanShort,
		Long:    PlanLong,
		Example: PlanExamples,
		RunE:    r.runE,
		Args:    cobra.NoArgs,
	}

	c.Flags().StringVar(&r.ConfigFile, "config", "",
		"path to a YAML config file.")
	config.AddFlags(c.Flags())
	cmdutil.FixDocs("wastool", parent, c)
	r.Command = c
	return r
}

func NewCommand(ctx context.Context, parent string) *cobra.Command {
	return NewRunner(ctx, parent).Command
}

type Runner struct {
	ctx        context.Context
	Command    *cobra.Command
	Factory    *cmdutil.Factory
	ConfigFile string
}

func (r *Runner) runE(c *cobra.Command, _ []string) error {
	cfg, err := config.Load(config.LoadOptions{
		ConfigFile: r.ConfigFile,
		Flags:      c.Flags(),
	})
	if err != nil {
		return err
	}
	plan, err := r.Plan(r.ctx, cfg)
	if err != nil {
		return err
	}
	return TreePrinter{
		Writer: printer.FromContextOrDie(r.ctx).OutStream(),
		Root:   cfg.Workspace.Path,
	}.Write(plan)
}

// Plan reads the manifest and decides the action for every library
// without changing the workspace.
func (r *Runner) Plan(ctx context.Context, cfg *config.Config) (*Plan, error) {
	const op errors.Op = "cmdplan.plan"

	git, err := r.Factory.NewGit(cfg.Git.Command)
	if err != nil {
		return nil, errors.E(op, err)
	}
	src, err := r.Factory.NewSource(ctx, cfg.Manifest)
	if err != nil {
		return nil, errors.E(op, err)
	}
	data, err := src.Fetch(ctx)
	if err != nil {
		return nil, errors.E(op, err)
	}
	m, err := manifest.Parse(data)
	if err != nil {
		return nil, errors.E(op, err)
	}

	plan := &Plan{Warnings: m.Warnings}
	rules := cfg.HostRules()
	for _, e := range m.Entries {
		state, err := syncer.Inspect(ctx, git, filepath.Join(cfg.Workspace.Path, e.Path))
		if err != nil {
			return nil, errors.E(op, errors.Entry(e.Key), err)
		}
		action := syncer.Decide(e, state, rules)
		klog.V(2).Infof("%s: %s", e.Key, action)
		plan.Steps = append(plan.Steps, Step{Entry: e, Action: action, State: state})
	}
	if cfg.Inject.Enabled {
		plan.InjectRepo = cfg.Inject.Repo
		plan.InjectDirs = cfg.Inject.Dirs
	}
	return plan, nil
}

var PlanShort = `Show what sync would do with every library of the manifest`
var PlanLong = `
Plan fetches the manifest and inspects the workspace, then prints the action
sync would take for each library: a fresh clone or checkout, an in-place
update, or a reset of a detached checkout. Nothing is written.

Entries of the manifest that are skipped are listed with the reason.
`
var PlanExamples = `
  # show the plan for the default workspace
  wastool plan

  # show the plan for a manifest read through the GitHub API
  wastool plan --github-repo WeakAuras/WeakAuras2
`
