// Copyright 2019 The kpt Authors
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

package run

import (
	"context"
	goflag "flag"
	"fmt"

	"github.com/WAStudios/wastool/commands"
	"github.com/WAStudios/wastool/internal/printer"
	"github.com/WAStudios/wastool/internal/util/cmdutil"
	"github.com/spf13/cobra"
	"k8s.io/klog/v2"
)

var CliShort = `wastool mirrors the externals of a .pkgmeta manifest into one git repository`
var CliLong = `
wastool keeps an aggregate repository of addon libraries in step with the
externals declared in a .pkgmeta manifest.

  sync   clone or update every library and push the result
  plan   show what sync would do, without changing anything

Use -v=2 to log the decisions taken for each library and -v=3 to log every
git and svn command.
`

func GetMain(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "wastool",
		Short:        CliShort,
		Long:         CliLong,
		SilenceUsage: true,
		// We handle all errors in main after return from cobra so we can
		// adjust the error message coming from libraries
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := cmd.Flags().GetBool("help")
			if err != nil {
				return err
			}
			if h {
				return cmd.Help()
			}
			return cmd.Usage()
		},
	}

	fs := goflag.NewFlagSet("", goflag.PanicOnError)
	klog.InitFlags(fs)
	cmd.PersistentFlags().AddGoFlagSet(fs)

	// wire the global printer
	pr := printer.New(cmd.OutOrStdout(), cmd.ErrOrStderr())

	// create context with associated printer
	ctx = printer.WithContext(ctx, pr)

	cmd.InitDefaultHelpCmd()
	cmd.AddCommand(commands.GetWASToolCommands(ctx, "wastool")...)

	// enable stack traces
	cmd.PersistentFlags().BoolVar(&cmdutil.StackOnError, "stack-trace", false,
		"Print a stack-trace on failure")

	cmd.AddCommand(versionCmd)
	hideFlags(cmd)
	return cmd
}

var version = "unknown"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of wastool",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "%s\n", version)
	},
}

// hideFlags hides any cobra flags that are unlikely to be used by
// customers.
func hideFlags(cmd *cobra.Command) {
	flags := []string{
		// Flags related to logging
		"add_dir_header",
		"alsologtostderr",
		"log_backtrace_at",
		"log_dir",
		"log_file",
		"log_file_max_size",
		"logtostderr",
		"one_output",
		"skip_headers",
		"skip_log_headers",
		"stack-trace",
		"stderrthreshold",
		"vmodule",
	}
	for _, f := range flags {
		_ = cmd.PersistentFlags().MarkHidden(f)
	}

	// We need to recurse into subcommands otherwise flags aren't hidden on leaf commands
	for _, child := range cmd.Commands() {
		hideFlags(child)
	}
}
