// Copyright 2021 The kpt Authors
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

package resolver

import (
	goerrors "errors"
	"fmt"
	"strings"

	"github.com/WAStudios/wastool/internal/gitutil"
)

//nolint:gochecknoinits
func init() {
	AddErrorResolver(&gitExecErrorResolver{})
}

const (
	genericGitExecError = `
Error: Failed to execute git command {{ printf "%q" .gitcmd }}
{{- if gt (len .repo) 0 }} against repo {{ printf "%q" .repo }}{{ end }}
{{- if gt (len .ref) 0 }} for reference {{ printf "%q" .ref }}{{ end }}.
{{ template "ExecOutputDetails" . }}
`

	unknownRefGitExecError = `
Error: Unknown ref {{ printf "%q" .ref }}. Please verify that the reference exists in the repository {{ printf "%q" .repo }}.
{{ template "ExecOutputDetails" . }}
`

	noGitExecutableError = `
Error: No git executable found. wastool requires git to be installed and available in the path.
`

	httpsAuthRequiredGitExecError = `
Error: Repository {{ printf "%q" .repo }} requires authentication.
Configure a credential helper for https, or use an ssh url such as "git@github.com:owner/repo.git".
{{ template "ExecOutputDetails" . }}
`

	repositoryUnavailableGitExecError = `
Error: Unable to access repository {{ printf "%q" .repo }}.
{{ template "ExecOutputDetails" . }}
`

	repositoryNotFoundGitExecError = `
Error: Repository {{ printf "%q" .repo }} not found.
{{ template "ExecOutputDetails" . }}
`

	pushRejectedGitExecError = `
Error: The aggregate repository rejected the push.
The remote branch has commits that are not in the workspace. Push with --force, or
start from a fresh clone of the remote with --fresh.
{{ template "ExecOutputDetails" . }}
`
)

// gitExecErrorResolver is an implementation of the ErrorResolver interface
// that can produce error messages for errors of the gitutil.GitExecError type.
type gitExecErrorResolver struct{}

func (*gitExecErrorResolver) Resolve(err error) (ResolvedResult, bool) {
	var gitExecErr *gitutil.GitExecError
	if !goerrors.As(err, &gitExecErr) {
		return ResolvedResult{}, false
	}
	fullCommand := fmt.Sprintf("git %s %s", gitExecErr.Command,
		strings.Join(gitExecErr.Args, " "))
	tmplArgs := map[string]interface{}{
		"gitcmd": strings.TrimSpace(fullCommand),
		"repo":   gitExecErr.Repo,
		"ref":    gitExecErr.Ref,
		"stdout": gitExecErr.StdOut,
		"stderr": gitExecErr.StdErr,
	}

	var msg string
	switch gitExecErr.Type {
	case gitutil.UnknownReference:
		msg = ExecuteTemplate(unknownRefGitExecError, tmplArgs)
	case gitutil.GitExecutableNotFound:
		msg = ExecuteTemplate(noGitExecutableError, tmplArgs)
	case gitutil.HTTPSAuthRequired:
		msg = ExecuteTemplate(httpsAuthRequiredGitExecError, tmplArgs)
	case gitutil.RepositoryUnavailable:
		msg = ExecuteTemplate(repositoryUnavailableGitExecError, tmplArgs)
	case gitutil.RepositoryNotFound:
		msg = ExecuteTemplate(repositoryNotFoundGitExecError, tmplArgs)
	case gitutil.PushRejected:
		msg = ExecuteTemplate(pushRejectedGitExecError, tmplArgs)
	default:
		msg = ExecuteTemplate(genericGitExecError, tmplArgs)
	}
	return ResolvedResult{
		Message: msg,
	}, true
}
