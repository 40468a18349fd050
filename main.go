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

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/WAStudios/wastool/internal/errors/resolver"
	"github.com/WAStudios/wastool/internal/util/cmdutil"
	"github.com/WAStudios/wastool/run"
	goerrors "github.com/go-errors/errors"
	"k8s.io/klog/v2"
)

func main() {
	os.Exit(runMain())
}

// runMain runs the root command and returns the exit code.
func runMain() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	defer klog.Flush()

	cmd := run.GetMain(ctx)
	err := cmd.Execute()
	if err != nil {
		return handleErr(err)
	}
	return 0
}

// handleErr prints the error and returns the exit code the process should
// end with.
func handleErr(err error) int {
	if cmdutil.PrintErrorStacktrace() {
		fmt.Fprintln(os.Stderr, goerrors.Wrap(err, 1).ErrorStack())
	}

	rr, resolved := resolver.ResolveError(err)
	if resolved {
		fmt.Fprintf(os.Stderr, "%s\n", rr.Message)
		return rr.ExitCode
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	return 1
}
