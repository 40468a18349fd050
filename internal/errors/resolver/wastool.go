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
	"github.com/WAStudios/wastool/internal/errors"
)

//nolint:gochecknoinits
func init() {
	AddErrorResolver(&wastoolErrorResolver{})
}

const (
	networkError = `
Error: The manifest could not be fetched.
{{- template "NestedErrDetails" . }}
`

	manifestError = `
Error: The manifest is not a valid .pkgmeta document.
{{- template "NestedErrDetails" . }}
`

	missingParamError = `
Error: A required configuration value is missing.
{{- template "NestedErrDetails" . }}
`

	invalidParamError = `
Error: A configuration value is not valid.
{{- template "NestedErrDetails" . }}
`
)

var kindTemplates = map[errors.Kind]string{
	errors.Network:      networkError,
	errors.Manifest:     manifestError,
	errors.MissingParam: missingParamError,
	errors.InvalidParam: invalidParamError,
}

// wastoolErrorResolver resolves errors.Error values by the kind of the
// innermost error that has one.
type wastoolErrorResolver struct{}

func (*wastoolErrorResolver) Resolve(err error) (ResolvedResult, bool) {
	kerr, found := innermostKind(err)
	if !found {
		return ResolvedResult{}, false
	}
	tmpl, found := kindTemplates[kerr.Kind]
	if !found {
		return ResolvedResult{}, false
	}
	return ResolvedResult{
		Message: ExecuteTemplate(tmpl, map[string]interface{}{
			"err": kerr,
		}),
	}, true
}

func innermostKind(err error) (*errors.Error, bool) {
	var match *errors.Error
	var e *errors.Error
	for errors.As(err, &e) {
		if e.Kind != errors.Other {
			match = e
		}
		err = e.Err
	}
	return match, match != nil
}
