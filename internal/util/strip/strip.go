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

// Package strip removes directory trees and version control metadata from
// working copies.
package strip

import (
	"io/fs"
	"os"
	"path/filepath"

	"github.com/WAStudios/wastool/internal/vcs"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// RemoveAll removes path and everything it contains. Git marks its object
// files read-only, so when removal fails with a permission error the write
// bit is restored on the offending path and its parent and the removal is
// retried. A path that does not exist is not an error.
func RemoveAll(path string) error {
	var last string
	for {
		err := os.RemoveAll(path)
		if err == nil {
			return nil
		}
		var pathErr *fs.PathError
		if !errors.As(err, &pathErr) || !os.IsPermission(err) || pathErr.Path == last {
			return errors.Wrapf(err, "failed to remove %s", path)
		}
		last = pathErr.Path
		klog.V(3).Infof("restoring write permission on %s", last)
		if err := makeWritable(last); err != nil {
			return errors.Wrapf(err, "failed to remove %s", path)
		}
	}
}

func makeWritable(path string) error {
	if parent := filepath.Dir(path); parent != path {
		if err := os.Chmod(parent, 0700); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	info, err := os.Lstat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	mode := os.FileMode(0600)
	if info.IsDir() {
		mode = 0700
	}
	if info.Mode()&os.ModeSymlink != 0 {
		return nil
	}
	return os.Chmod(path, mode)
}

// Metadata removes the metadata directory of kind from the working copy at
// dir, leaving a plain directory tree. Missing metadata is not an error.
func Metadata(dir string, kind vcs.Kind) error {
	p := filepath.Join(dir, kind.MetadataDir())
	if _, err := os.Lstat(p); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.WithStack(err)
	}
	klog.V(2).Infof("stripping %s from %s", kind.MetadataDir(), dir)
	return RemoveAll(p)
}

// HasMetadata reports whether dir contains the metadata directory of kind.
func HasMetadata(dir string, kind vcs.Kind) bool {
	info, err := os.Stat(filepath.Join(dir, kind.MetadataDir()))
	return err == nil && info.IsDir()
}
