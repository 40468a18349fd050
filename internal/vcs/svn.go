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

package vcs

import (
	"context"

	"github.com/WAStudios/wastool/internal/errors"
	"github.com/WAStudios/wastool/internal/svnutil"
)

// SvnClient drives the svn executable.
type SvnClient struct {
	program    string
	globalArgs []string
}

var _ Client = &SvnClient{}

// NewSvnClient returns an SvnClient for the command line, e.g.
// "svn --non-interactive". An empty command line uses svn from PATH.
func NewSvnClient(commandLine string) (*SvnClient, error) {
	const op errors.Op = "vcs.NewSvnClient"
	program, args, err := SplitCommand(commandLine)
	if err != nil {
		return nil, errors.E(op, errors.InvalidParam, err)
	}
	return &SvnClient{program: program, globalArgs: args}, nil
}

func (c *SvnClient) Kind() Kind {
	return Svn
}

// Clone checks out url into dest. Centralized repositories have no history
// to limit, so opts are ignored.
func (c *SvnClient) Clone(ctx context.Context, url, dest string, _ CloneOptions) error {
	const op errors.Op = "svn.Checkout"
	r, err := svnutil.NewRunner(c.program, c.globalArgs, "")
	if err != nil {
		return errors.E(op, err)
	}
	if err := r.Checkout(ctx, url, dest); err != nil {
		return errors.E(op, errors.Repo(url), err)
	}
	return nil
}

func (c *SvnClient) Update(ctx context.Context, dir string) error {
	const op errors.Op = "svn.Update"
	r, err := svnutil.NewRunner(c.program, c.globalArgs, "")
	if err != nil {
		return errors.E(op, err)
	}
	if err := r.Update(ctx, dir); err != nil {
		return errors.E(op, err)
	}
	return nil
}
