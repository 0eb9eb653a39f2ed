package boundaries

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"activity-heatmap/pkg/geomath"
)

// ErrRequiredLayer wraps a load failure for a layer marked required, so
// callers can distinguish "render must abort" from the degraded-render
// omissions logged for optional layers.
var ErrRequiredLayer = errors.New("required boundary layer failed")

// Fetcher retrieves a layer's raw GeoJSON from its source.  The narrow
// interface keeps the rendering core free of network concerns and lets
// tests substitute an in-memory fake.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// HTTPFetcher is the production Fetcher.  One bounded-timeout client,
// no retries: boundary sources are static files on CDNs, and a failed
// optional layer just re-fetches on the next render.
type HTTPFetcher struct {
	Client *http.Client
}

// Fetch downloads the URL, returning an error for any non-200 status so
// an HTML error page never lands in the cache.
func (f HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	client := f.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %s", url, resp.Status)
	}
	return io.ReadAll(resp.Body)
}

// Store loads boundary layers through an on-disk cache, one GeoJSON file
// per layer.  The first load of a layer fetches (or materializes the
// built-in data) and writes the cache atomically; every later load in
// any process is a plain file read.  The cache is the only resource that
// outlives a render.
type Store struct {
	CacheDir string
	Fetcher  Fetcher

	// Logf receives progress and degradation messages.  Nil means
	// silent, which tests use.
	Logf func(string, ...any)
}

func (s *Store) logf(format string, args ...any) {
	if s.Logf != nil {
		s.Logf(format, args...)
	}
}

func (s *Store) cachePath(spec LayerSpec) string {
	return filepath.Join(s.CacheDir, spec.Name+".geojson")
}

// Load returns a layer's full feature set, consulting the cache first.
// Refresh forces a refetch even when a cache file exists, replacing it
// atomically so a concurrent reader never sees a half-written file.
func (s *Store) Load(ctx context.Context, spec LayerSpec, refresh bool) (Layer, error) {
	path := s.cachePath(spec)

	if !refresh {
		if data, err := os.ReadFile(path); err == nil {
			layer, perr := ParseGeoJSON(spec, data)
			if perr == nil {
				return layer, nil
			}
			// A corrupt cache entry falls through to a refetch instead
			// of failing the layer outright.
			s.logf("layer %s: cache unreadable (%v), refetching", spec.Name, perr)
		}
	}

	data, err := s.materialize(ctx, spec)
	if err != nil {
		return Layer{}, err
	}
	layer, err := ParseGeoJSON(spec, data)
	if err != nil {
		return Layer{}, err
	}
	if err := writeFileAtomic(path, data); err != nil {
		// Cache write failure is not a render failure; the data is
		// already in memory.
		s.logf("layer %s: cache write failed: %v", spec.Name, err)
	}
	return layer, nil
}

// materialize produces the raw bytes for a layer: built-in data as-is,
// otherwise a network fetch.
func (s *Store) materialize(ctx context.Context, spec LayerSpec) ([]byte, error) {
	if spec.Builtin != nil {
		return spec.Builtin, nil
	}
	if spec.SourceURL == "" {
		return nil, fmt.Errorf("layer %s: no source", spec.Name)
	}
	fetcher := s.Fetcher
	if fetcher == nil {
		fetcher = HTTPFetcher{}
	}
	data, err := fetcher.Fetch(ctx, spec.SourceURL)
	if err != nil {
		return nil, fmt.Errorf("layer %s: %w", spec.Name, err)
	}
	return data, nil
}

// writeFileAtomic writes via a temp file in the destination directory
// and renames into place, so readers observe either the old file or the
// new one, never a torn write.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}

// Compose loads every planned layer and filters it to the render bounds.
// Optional layers degrade gracefully: a fetch or parse failure logs the
// omission and the render continues without that layer.  A required
// layer's failure aborts with ErrRequiredLayer in the chain.  Layers
// filtered down to zero features stay in the result so the composer
// still emits a valid (empty) group for them.
func (s *Store) Compose(ctx context.Context, specs []LayerSpec, renderBounds geomath.Bounds, refresh bool) ([]Layer, error) {
	layers := make([]Layer, 0, len(specs))
	for _, spec := range specs {
		layer, err := s.Load(ctx, spec, refresh)
		if err != nil {
			if spec.Required {
				return nil, fmt.Errorf("%w: %s: %v", ErrRequiredLayer, spec.Name, err)
			}
			s.logf("layer %s unavailable, rendering without it: %v", spec.Name, err)
			continue
		}
		filtered := FilterToBounds(layer, renderBounds)
		s.logf("layer %s: %d/%d features intersect render bounds", spec.Name, len(filtered.Features), len(layer.Features))
		layers = append(layers, filtered)
	}
	return layers, nil
}
