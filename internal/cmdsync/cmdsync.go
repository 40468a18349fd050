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

// Package cmdsync contains the sync command
package cmdsync

import (
	"context"
	"os"

	"github.com/WAStudios/wastool/internal/config"
	"github.com/WAStudios/wastool/internal/errors"
	"github.com/WAStudios/wastool/internal/inject"
	"github.com/WAStudios/wastool/internal/manifest"
	"github.com/WAStudios/wastool/internal/printer"
	"github.com/WAStudios/wastool/internal/publish"
	"github.com/WAStudios/wastool/internal/syncer"
	"github.com/WAStudios/wastool/internal/util/cmdutil"
	"github.com/WAStudios/wastool/internal/util/strip"
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
		Use:     "sync",
		Short:   SyncShort,
		Long:    SyncLong,
		Example: SyncExamples,
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

	// Summary holds the results of the last run.
	Summary *syncer.Summary
	// Published holds the publish result of the last run.
	Published publish.Result
}

func (r *Runner) runE(c *cobra.Command, _ []string) error {
	cfg, err := config.Load(config.LoadOptions{
		ConfigFile: r.ConfigFile,
		Flags:      c.Flags(),
	})
	if err != nil {
		return err
	}
	return r.Run(r.ctx, cfg)
}

// Run synchronizes the workspace with the manifest and publishes it.
// Failing libraries are reported in the summary but don't fail the run;
// failing to fetch or parse the manifest, or to publish, does.
func (r *Runner) Run(ctx context.Context, cfg *config.Config) error {
	const op errors.Op = "cmdsync.run"
	pr := printer.FromContextOrDie(ctx)

	git, err := r.Factory.NewGit(cfg.Git.Command)
	if err != nil {
		return errors.E(op, err)
	}
	svn, err := r.Factory.NewSvn(cfg.Svn.Command)
	if err != nil {
		return errors.E(op, err)
	}
	src, err := r.Factory.NewSource(ctx, cfg.Manifest)
	if err != nil {
		return errors.E(op, err)
	}

	ws := cfg.Workspace.Path
	if cfg.Workspace.Fresh {
		pr.Printf("Removing existing workspace %s\n", ws)
		if err := strip.RemoveAll(ws); err != nil {
			return errors.E(op, errors.IO, err)
		}
	}
	publisher := &publish.Publisher{
		Git:       git,
		Workspace: ws,
		RemoteURL: cfg.Publish.RemoteURL,
		Branch:    cfg.Publish.Branch,
		Message:   cfg.Publish.Message,
		Force:     cfg.Publish.Force,
	}
	if cfg.Publish.Enabled {
		if err := publisher.Prepare(ctx); err != nil {
			return errors.E(op, err)
		}
	} else if err := os.MkdirAll(ws, 0755); err != nil {
		return errors.E(op, errors.IO, err)
	}

	defer removeManifest(ctx, cfg.Manifest.File)
	pr.Printf("Fetching manifest from %s\n", src)
	if err := manifest.Download(ctx, src, cfg.Manifest.File); err != nil {
		return errors.E(op, err)
	}
	m, err := manifest.ReadFile(cfg.Manifest.File)
	if err != nil {
		return errors.E(op, err)
	}
	pr.Printf("Found %d externals in the manifest\n", len(m.Entries)+len(m.Warnings))
	for _, w := range m.Warnings {
		pr.Printf("[Warn] %s\n", w)
	}

	s := &syncer.Syncer{
		Git:              git,
		Svn:              svn,
		Workspace:        ws,
		Rules:            cfg.HostRules(),
		StripCentralized: cfg.Sync.StripCentralized,
		FallbackBranches: cfg.Sync.FallbackBranches,
	}
	summary := &syncer.Summary{}
	summary.AddWarnings(m.Warnings)
	for _, res := range s.Sync(ctx, m.Entries).Results {
		summary.Add(res)
	}

	if cfg.Inject.Enabled {
		injector := &inject.Injector{
			Git:       git,
			RepoURL:   cfg.Inject.Repo,
			Dirs:      cfg.Inject.Dirs,
			Workspace: ws,
		}
		for _, res := range injector.Inject(ctx) {
			summary.Add(res)
		}
	}
	r.Summary = summary

	var published publish.Result
	if cfg.Publish.Enabled {
		published = publisher.Publish(ctx)
		r.Published = published
		if published.OK() && cfg.Workspace.RemoveAfterPublish {
			pr.Printf("Removing workspace %s\n", ws)
			if err := strip.RemoveAll(ws); err != nil {
				klog.Warningf("failed to remove workspace %s: %v", ws, err)
			}
		}
	}

	PrintSummary(pr.OutStream(), summary, published, cfg.Publish.Enabled)
	if published.Err != nil {
		return errors.E(op, published.Err)
	}
	return nil
}

func removeManifest(ctx context.Context, file string) {
	pr := printer.FromContextOrDie(ctx)
	if err := os.Remove(file); err != nil {
		if !os.IsNotExist(err) {
			pr.Printf("[Warn] failed to remove %s: %v\n", file, err)
		}
		return
	}
	klog.V(2).Infof("removed %s", file)
}

var SyncShort = `Mirror the externals of a .pkgmeta manifest into the aggregate repository`
var SyncLong = `
Sync fetches a .pkgmeta manifest and brings every library listed under its
` + "`" + `externals` + "`" + ` key into the workspace, one directory per library named
after the last element of its key.

  git repositories are shallow cloned (full clones for hosts that need them)
  and svn repositories are checked out. Existing checkouts are updated in
  place; directories without version control metadata are re-cloned.
  Embedded .git directories are removed so the workspace can track the
  library files directly.

After the libraries are synchronized, the extra libraries are injected, and
the workspace is committed and pushed to the aggregate repository. A run
with nothing to commit succeeds without pushing.

#### Configuration

Every flag can also be set in the config file passed with --config, or
through the WASTOOL_ environment, e.g. WASTOOL_PUBLISH_BRANCH=main. The
manifest can be read through the GitHub API with --github-repo; the token
is taken from GITHUB_TOKEN.
`
var SyncExamples = `
  # mirror the default manifest and push the result
  wastool sync

  # start from scratch and delete the workspace once it is pushed
  wastool sync --fresh --remove-after-publish

  # only synchronize the libraries, don't commit anything
  wastool sync --publish=false --workspace /tmp/waslibs
`
