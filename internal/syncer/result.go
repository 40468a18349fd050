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

package syncer

import (
	"github.com/WAStudios/wastool/internal/manifest"
)

// Status is the outcome of synchronizing one entry.
type Status int

const (
	Synced Status = iota
	// Skipped entries were not attempted, for example because their
	// manifest value was not recognized.
	Skipped
	Failed
)

func (s Status) String() string {
	switch s {
	case Synced:
		return "synced"
	case Skipped:
		return "skipped"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Result describes what happened to one entry.
type Result struct {
	Entry  manifest.Entry
	Action Action
	Status Status
	// Detail is a short description of the outcome, such as the ref that
	// was checked out.
	Detail string
	// Err is set when Status is Failed.
	Err error
}

// Summary collects the results of a run.
type Summary struct {
	Results []Result
}

// Add records r.
func (s *Summary) Add(r Result) {
	s.Results = append(s.Results, r)
}

// AddWarnings records every manifest warning as a skipped result.
func (s *Summary) AddWarnings(warnings []manifest.Warning) {
	for _, w := range warnings {
		s.Add(Result{
			Entry:  manifest.Entry{Key: w.Key},
			Status: Skipped,
			Detail: w.Reason,
		})
	}
}

// Count returns the number of results with the status.
func (s *Summary) Count(status Status) int {
	n := 0
	for _, r := range s.Results {
		if r.Status == status {
			n++
		}
	}
	return n
}

// Failed returns the failed results.
func (s *Summary) Failed() []Result {
	var failed []Result
	for _, r := range s.Results {
		if r.Status == Failed {
			failed = append(failed, r)
		}
	}
	return failed
}
