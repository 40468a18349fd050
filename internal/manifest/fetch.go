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

package manifest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/WAStudios/wastool/internal/errors"
	"k8s.io/klog/v2"
)

// DefaultURL is the manifest wastool mirrors unless configured otherwise.
const DefaultURL = "https://raw.githubusercontent.com/WeakAuras/WeakAuras2/main/.pkgmeta"

// Source provides the raw manifest document.
type Source interface {
	Fetch(ctx context.Context) ([]byte, error)
	// String describes where the manifest comes from.
	String() string
}

// URLSource fetches the manifest with a plain HTTP GET.
type URLSource struct {
	URL string
	// Client defaults to http.DefaultClient.
	Client *http.Client
}

func (s *URLSource) String() string {
	return s.URL
}

func (s *URLSource) Fetch(ctx context.Context) ([]byte, error) {
	const op errors.Op = "manifest.fetch"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, errors.E(op, errors.InvalidParam, errors.Repo(s.URL), err)
	}
	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	klog.V(3).Infof("GET %s", s.URL)
	res, err := client.Do(req)
	if err != nil {
		return nil, errors.E(op, errors.Network, errors.Repo(s.URL), err)
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, errors.E(op, errors.Network, errors.Repo(s.URL),
			fmt.Errorf("unexpected response status %q", res.Status))
	}
	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, errors.E(op, errors.Network, errors.Repo(s.URL), err)
	}
	return body, nil
}

// Download fetches the manifest from src and stores it in file, so it can
// be inspected if parsing fails. The caller owns the file.
func Download(ctx context.Context, src Source, file string) error {
	const op errors.Op = "manifest.download"
	b, err := src.Fetch(ctx)
	if err != nil {
		return err
	}
	if err := os.WriteFile(file, b, 0600); err != nil {
		return errors.E(op, errors.IO, err)
	}
	klog.V(2).Infof("stored manifest from %s in %s (%d bytes)", src, file, len(b))
	return nil
}
