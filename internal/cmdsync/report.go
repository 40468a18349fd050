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

package cmdsync

import (
	"fmt"
	"io"

	"github.com/WAStudios/wastool/internal/publish"
	"github.com/WAStudios/wastool/internal/syncer"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
)

var statusColors = map[syncer.Status]*color.Color{
	syncer.Synced:  color.New(color.FgGreen),
	syncer.Skipped: color.New(color.FgYellow),
	syncer.Failed:  color.New(color.FgRed),
}

// PrintSummary renders the results of a run as a table followed by the
// totals and the publish outcome.
func PrintSummary(w io.Writer, summary *syncer.Summary, published publish.Result, publishEnabled bool) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"LIBRARY", "ACTION", "STATUS", "DETAIL"})
	for _, r := range summary.Results {
		action := r.Action.String()
		if r.Status == syncer.Skipped {
			action = "-"
		}
		detail := r.Detail
		if r.Err != nil {
			detail = r.Err.Error()
		}
		t.AppendRow([]interface{}{
			r.Entry.Key,
			action,
			statusColors[r.Status].Sprint(r.Status),
			detail,
		})
	}
	t.AppendSeparator()
	t.Render()

	fmt.Fprintf(w, "%d synced, %d skipped, %d failed\n",
		summary.Count(syncer.Synced), summary.Count(syncer.Skipped), summary.Count(syncer.Failed))
	if !publishEnabled {
		return
	}
	switch {
	case published.Err != nil:
		fmt.Fprintf(w, "publish: %s\n", color.RedString("failed"))
	case published.NoChanges:
		fmt.Fprintf(w, "publish: no changes\n")
	case published.Pushed:
		fmt.Fprintf(w, "publish: %s\n", color.GreenString("pushed"))
	}
}
