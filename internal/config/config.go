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

// Package config loads the wastool configuration.
//
// Values are layered, each layer overriding the previous one: built-in
// defaults, the YAML config file, WASTOOL_* environment variables (with
// dots in the key replaced by underscores, e.g. WASTOOL_PUBLISH_BRANCH)
// and command line flags.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/WAStudios/wastool/internal/errors"
	"github.com/WAStudios/wastool/internal/inject"
	"github.com/WAStudios/wastool/internal/manifest"
	"github.com/WAStudios/wastool/internal/publish"
	"github.com/WAStudios/wastool/internal/syncer"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// EnvPrefix prefixes the environment variables overriding config keys.
	EnvPrefix = "WASTOOL"
	// DefaultManifestFile is where the fetched manifest is stored during a
	// run.
	DefaultManifestFile = "pkgmeta_temp.yml"
	DefaultWorkspace    = "./WASLibs"
)

type (
	// Config is the complete wastool configuration.
	Config struct {
		Workspace WorkspaceConfig `json:"workspace" mapstructure:"workspace"`
		Manifest  ManifestConfig  `json:"manifest" mapstructure:"manifest"`
		Sync      SyncConfig      `json:"sync" mapstructure:"sync"`
		Inject    InjectConfig    `json:"inject" mapstructure:"inject"`
		Publish   PublishConfig   `json:"publish" mapstructure:"publish"`
		Git       CommandConfig   `json:"git" mapstructure:"git"`
		Svn       CommandConfig   `json:"svn" mapstructure:"svn"`
	}

	WorkspaceConfig struct {
		Path string `json:"path" mapstructure:"path"`
		// Fresh removes the workspace before the run.
		Fresh bool `json:"fresh" mapstructure:"fresh"`
		// RemoveAfterPublish removes the workspace after a successful
		// publish.
		RemoveAfterPublish bool `json:"remove_after_publish" mapstructure:"remove_after_publish"`
	}

	ManifestConfig struct {
		URL string `json:"url" mapstructure:"url"`
		// File is the transient copy of the manifest.
		File   string       `json:"file" mapstructure:"file"`
		GitHub GitHubConfig `json:"github" mapstructure:"github"`
	}

	// GitHubConfig selects the GitHub contents API as manifest source when
	// Repo is set.
	GitHubConfig struct {
		Repo  string `json:"repo" mapstructure:"repo"`
		Path  string `json:"path" mapstructure:"path"`
		Ref   string `json:"ref" mapstructure:"ref"`
		Token string `json:"-" mapstructure:"token"`
	}

	SyncConfig struct {
		StripCentralized bool     `json:"strip_centralized" mapstructure:"strip_centralized"`
		CentralizedHosts []string `json:"centralized_hosts" mapstructure:"centralized_hosts"`
		FullCloneHosts   []string `json:"full_clone_hosts" mapstructure:"full_clone_hosts"`
		FallbackBranches []string `json:"fallback_branches" mapstructure:"fallback_branches"`
	}

	InjectConfig struct {
		Enabled bool     `json:"enabled" mapstructure:"enabled"`
		Repo    string   `json:"repo" mapstructure:"repo"`
		Dirs    []string `json:"dirs" mapstructure:"dirs"`
	}

	PublishConfig struct {
		Enabled   bool   `json:"enabled" mapstructure:"enabled"`
		RemoteURL string `json:"remote_url" mapstructure:"remote_url"`
		Branch    string `json:"branch" mapstructure:"branch"`
		Message   string `json:"message" mapstructure:"message"`
		Force     bool   `json:"force" mapstructure:"force"`
	}

	// CommandConfig is the command line used to invoke a VCS executable,
	// e.g. "svn --non-interactive".
	CommandConfig struct {
		Command string `json:"command" mapstructure:"command"`
	}
)

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() *Config {
	rules := syncer.DefaultHostRules()
	return &Config{
		Workspace: WorkspaceConfig{
			Path: DefaultWorkspace,
		},
		Manifest: ManifestConfig{
			URL:  manifest.DefaultURL,
			File: DefaultManifestFile,
			GitHub: GitHubConfig{
				Path: ".pkgmeta",
			},
		},
		Sync: SyncConfig{
			CentralizedHosts: rules.CentralizedHosts,
			FullCloneHosts:   rules.FullCloneHosts,
			FallbackBranches: append([]string{}, syncer.DefaultFallbackBranches...),
		},
		Inject: InjectConfig{
			Enabled: true,
			Repo:    inject.DefaultRepo,
			Dirs:    append([]string{}, inject.DefaultDirs...),
		},
		Publish: PublishConfig{
			Enabled:   true,
			RemoteURL: publish.DefaultRemoteURL,
			Branch:    publish.DefaultBranch,
			Message:   publish.DefaultMessage,
			Force:     true,
		},
		Git: CommandConfig{Command: "git"},
		Svn: CommandConfig{Command: "svn --non-interactive"},
	}
}

// HostRules returns the host rules of the sync configuration.
func (c *Config) HostRules() syncer.HostRules {
	return syncer.HostRules{
		CentralizedHosts: c.Sync.CentralizedHosts,
		FullCloneHosts:   c.Sync.FullCloneHosts,
	}
}

// Validate reports missing or contradicting values.
func (c *Config) Validate() error {
	const op errors.Op = "config.validate"
	switch {
	case c.Workspace.Path == "":
		return errors.E(op, errors.MissingParam, "workspace.path must be set")
	case c.Manifest.File == "":
		return errors.E(op, errors.MissingParam, "manifest.file must be set")
	case c.Manifest.URL == "" && c.Manifest.GitHub.Repo == "":
		return errors.E(op, errors.MissingParam, "one of manifest.url or manifest.github.repo must be set")
	case c.Git.Command == "":
		return errors.E(op, errors.MissingParam, "git.command must be set")
	case c.Svn.Command == "":
		return errors.E(op, errors.MissingParam, "svn.command must be set")
	case c.Inject.Enabled && c.Inject.Repo == "":
		return errors.E(op, errors.MissingParam, "inject.repo must be set when injection is enabled")
	}
	if c.Publish.Enabled {
		switch {
		case c.Publish.RemoteURL == "":
			return errors.E(op, errors.MissingParam, "publish.remote_url must be set")
		case c.Publish.Branch == "":
			return errors.E(op, errors.MissingParam, "publish.branch must be set")
		case c.Publish.Message == "":
			return errors.E(op, errors.MissingParam, "publish.message must be set")
		}
	}
	return nil
}

// flagKeys maps command line flags to the config keys they override.
var flagKeys = map[string]string{
	"workspace":            "workspace.path",
	"fresh":                "workspace.fresh",
	"remove-after-publish": "workspace.remove_after_publish",
	"manifest-url":         "manifest.url",
	"manifest-file":        "manifest.file",
	"github-repo":          "manifest.github.repo",
	"github-path":          "manifest.github.path",
	"github-ref":           "manifest.github.ref",
	"strip-svn":            "sync.strip_centralized",
	"inject":               "inject.enabled",
	"publish":              "publish.enabled",
	"remote":               "publish.remote_url",
	"branch":               "publish.branch",
	"message":              "publish.message",
	"force":                "publish.force",
	"git":                  "git.command",
	"svn":                  "svn.command",
}

// AddFlags defines the flags overriding config keys on fs. Their defaults
// are only shown in the help; the effective default comes from the
// layering in Load.
func AddFlags(fs *pflag.FlagSet) {
	d := DefaultConfig()
	fs.String("workspace", d.Workspace.Path, "directory the libraries are synchronized into")
	fs.Bool("fresh", d.Workspace.Fresh, "remove the workspace before synchronizing")
	fs.Bool("remove-after-publish", d.Workspace.RemoveAfterPublish, "remove the workspace after a successful publish")
	fs.String("manifest-url", d.Manifest.URL, "url of the .pkgmeta manifest")
	fs.String("manifest-file", d.Manifest.File, "file the manifest is stored in while running")
	fs.String("github-repo", d.Manifest.GitHub.Repo, "read the manifest from this GitHub repository (owner/name) instead of manifest-url")
	fs.String("github-path", d.Manifest.GitHub.Path, "path of the manifest in the GitHub repository")
	fs.String("github-ref", d.Manifest.GitHub.Ref, "branch, tag or commit of the manifest in the GitHub repository")
	fs.Bool("strip-svn", d.Sync.StripCentralized, "remove .svn from fresh svn checkouts")
	fs.Bool("inject", d.Inject.Enabled, "inject the extra libraries")
	fs.Bool("publish", d.Publish.Enabled, "commit and push the workspace")
	fs.String("remote", d.Publish.RemoteURL, "aggregate repository the workspace is pushed to")
	fs.String("branch", d.Publish.Branch, "branch of the aggregate repository")
	fs.String("message", d.Publish.Message, "commit message")
	fs.Bool("force", d.Publish.Force, "force push the aggregate branch")
	fs.String("git", d.Git.Command, "git command line")
	fs.String("svn", d.Svn.Command, "svn command line")
}

// LoadOptions configures Load.
type LoadOptions struct {
	// ConfigFile is a YAML file to read. Empty means no file.
	ConfigFile string
	// Flags are bound to their config keys if set.
	Flags *pflag.FlagSet
}

// Load builds the configuration from defaults, the config file, the
// environment and flags, and validates it.
func Load(opts LoadOptions) (*Config, error) {
	const op errors.Op = "config.load"
	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("manifest.github.token", EnvPrefix+"_MANIFEST_GITHUB_TOKEN", "GITHUB_TOKEN"); err != nil {
		return nil, errors.E(op, errors.Internal, err)
	}

	if opts.ConfigFile != "" {
		if _, err := os.Stat(opts.ConfigFile); err != nil {
			return nil, errors.E(op, errors.InvalidParam,
				fmt.Errorf("config file not found: %s", opts.ConfigFile))
		}
		v.SetConfigFile(opts.ConfigFile)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.E(op, errors.InvalidParam,
				fmt.Errorf("failed to read config file %s: %w", opts.ConfigFile, err))
		}
	}

	if opts.Flags != nil {
		for name, key := range flagKeys {
			f := opts.Flags.Lookup(name)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, errors.E(op, errors.Internal, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.E(op, errors.InvalidParam, fmt.Errorf("failed to parse config: %w", err))
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.E(op, err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("workspace.path", d.Workspace.Path)
	v.SetDefault("workspace.fresh", d.Workspace.Fresh)
	v.SetDefault("workspace.remove_after_publish", d.Workspace.RemoveAfterPublish)
	v.SetDefault("manifest.url", d.Manifest.URL)
	v.SetDefault("manifest.file", d.Manifest.File)
	v.SetDefault("manifest.github.repo", d.Manifest.GitHub.Repo)
	v.SetDefault("manifest.github.path", d.Manifest.GitHub.Path)
	v.SetDefault("manifest.github.ref", d.Manifest.GitHub.Ref)
	v.SetDefault("manifest.github.token", d.Manifest.GitHub.Token)
	v.SetDefault("sync.strip_centralized", d.Sync.StripCentralized)
	v.SetDefault("sync.centralized_hosts", d.Sync.CentralizedHosts)
	v.SetDefault("sync.full_clone_hosts", d.Sync.FullCloneHosts)
	v.SetDefault("sync.fallback_branches", d.Sync.FallbackBranches)
	v.SetDefault("inject.enabled", d.Inject.Enabled)
	v.SetDefault("inject.repo", d.Inject.Repo)
	v.SetDefault("inject.dirs", d.Inject.Dirs)
	v.SetDefault("publish.enabled", d.Publish.Enabled)
	v.SetDefault("publish.remote_url", d.Publish.RemoteURL)
	v.SetDefault("publish.branch", d.Publish.Branch)
	v.SetDefault("publish.message", d.Publish.Message)
	v.SetDefault("publish.force", d.Publish.Force)
	v.SetDefault("git.command", d.Git.Command)
	v.SetDefault("svn.command", d.Svn.Command)
}
