// Package scrape contains snapshot producers: pluggable sources that
// return one batch of candidate vehicle records per call. The contract
// is deliberately loose on the producer side — VINs may be empty or
// duplicated, numeric fields are integers or absent — because the
// reconciler is the component responsible for tolerating noisy input.
//
// The browser-driven dealership scraper lives outside this repository;
// these sources cover snapshot files exported by it and JSON endpoints
// that serve the same shape.
package scrape

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/lotwatch/lotwatch/pkg/errors"
	"github.com/lotwatch/lotwatch/pkg/inventory"
)

// snapshotFile is the on-disk snapshot shape: either a bare list or a
// document with a vehicles key.
type snapshotFile struct {
	Vehicles []inventory.Vehicle `json:"vehicles" yaml:"vehicles"`
}

// FileSource reads snapshots from a YAML or JSON file.
type FileSource struct {
	Path string
	Tag  string
}

// NewFileSource creates a producer over a snapshot file.
func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path, Tag: "file"}
}

// Source returns the producer's source tag for sync log entries.
func (s *FileSource) Source() string {
	if s.Tag != "" {
		return s.Tag
	}
	return "file"
}

// Scrape reads and decodes the snapshot file.
func (s *FileSource) Scrape(_ context.Context) ([]inventory.Vehicle, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, errors.NewUpstreamError(s.Source(), fmt.Sprintf("read %s", s.Path), err)
	}
	return decodeSnapshot(s.Source(), data)
}

// HTTPSource fetches snapshots from a JSON endpoint returning either a
// bare array of vehicles or {"vehicles": [...]}.
type HTTPSource struct {
	URL    string
	Tag    string
	Client *http.Client
}

// NewHTTPSource creates a producer over a snapshot endpoint.
func NewHTTPSource(url string) *HTTPSource {
	return &HTTPSource{
		URL:    url,
		Tag:    "http",
		Client: &http.Client{Timeout: 60 * time.Second},
	}
}

// Source returns the producer's source tag for sync log entries.
func (s *HTTPSource) Source() string {
	if s.Tag != "" {
		return s.Tag
	}
	return "http"
}

// Scrape performs one GET and decodes the response body.
func (s *HTTPSource) Scrape(ctx context.Context) ([]inventory.Vehicle, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, errors.NewUpstreamError(s.Source(), "build request", err)
	}
	req.Header.Set("Accept", "application/json")

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, errors.NewUpstreamError(s.Source(), "fetch snapshot", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.NewUpstreamError(s.Source(),
			fmt.Sprintf("unexpected status %d from %s", resp.StatusCode, s.URL), nil)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return nil, errors.NewUpstreamError(s.Source(), "read response", err)
	}
	return decodeSnapshot(s.Source(), body)
}

// decodeSnapshot accepts a bare vehicle list or a vehicles-keyed
// document. YAML is a superset of JSON here, so one decoder covers both
// file formats.
func decodeSnapshot(source string, data []byte) ([]inventory.Vehicle, error) {
	var list []inventory.Vehicle
	if err := yaml.Unmarshal(data, &list); err == nil {
		return list, nil
	}
	var doc snapshotFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.NewUpstreamError(source, "decode snapshot", err)
	}
	return doc.Vehicles, nil
}
