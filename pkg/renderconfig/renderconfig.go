// Package renderconfig loads, validates and defaults the render
// configuration.  Config files are JSON or YAML, chosen by extension,
// and a missing file can be materialized with sensible defaults so a
// first run works out of the box.
package renderconfig

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	yaml "gopkg.in/yaml.v2"

	"activity-heatmap/pkg/boundaries"
)

// Data names the input dataset and where imported activity files live.
type Data struct {
	GPSDataFile string `json:"gps_data_file" yaml:"gps_data_file"`
	ImportDir   string `json:"import_dir" yaml:"import_dir"`
}

// Output controls the document file and dimensions.
type Output struct {
	Filename string `json:"filename" yaml:"filename"`
	Width    int    `json:"width" yaml:"width"`
	Height   int    `json:"height" yaml:"height"`
}

// Style carries colors and stroke widths for tracks and boundaries.
type Style struct {
	TrackColor    string  `json:"track_color" yaml:"track_color"`
	TrackWidth    float64 `json:"track_width" yaml:"track_width"`
	TrackOpacity  float64 `json:"track_opacity" yaml:"track_opacity"`
	BoundaryColor string  `json:"boundary_color" yaml:"boundary_color"`
	BoundaryWidth float64 `json:"boundary_width" yaml:"boundary_width"`
	HeatColor     string  `json:"heat_color" yaml:"heat_color"`
}

// MarkerStyle controls how one marker layer draws its points.
type MarkerStyle struct {
	Shape string  `json:"shape" yaml:"shape"`
	Size  float64 `json:"size" yaml:"size"`
	Color string  `json:"color" yaml:"color"`
}

// Config is the whole render configuration.  Markers is the per-marker
// on/off map keyed by marker name, so one point of interest toggles
// without touching geometry data; MarkerStyles is keyed by marker layer
// name.  Decoding merges map keys over the defaults, so a config file
// flipping a single marker off leaves the rest enabled.
type Config struct {
	Data         Data                   `json:"data" yaml:"data"`
	Output       Output                 `json:"output" yaml:"output"`
	Style        Style                  `json:"style" yaml:"style"`
	Layers       []string               `json:"layers" yaml:"layers"`
	Markers      map[string]bool        `json:"markers" yaml:"markers"`
	MarkerStyles map[string]MarkerStyle `json:"marker_styles" yaml:"marker_styles"`
	Title        string                 `json:"title" yaml:"title"`
}

// Default returns the configuration a fresh install renders with: all
// boundary layers enabled, every built-in marker shown as a small
// circle.
func Default() Config {
	markers := make(map[string]bool)
	for _, name := range boundaries.BuiltinMarkerNames() {
		markers[name] = true
	}
	styles := make(map[string]MarkerStyle)
	for _, name := range boundaries.MarkerLayerNames() {
		styles[name] = MarkerStyle{Shape: "circle", Size: 6}
	}
	return Config{
		Data: Data{
			GPSDataFile: "gps_data.json",
			ImportDir:   "activity_data",
		},
		Output: Output{
			Filename: "heatmap.svg",
			Width:    1200,
			Height:   800,
		},
		Style: Style{
			TrackColor:    "#dc3545",
			TrackWidth:    1.5,
			TrackOpacity:  0.6,
			BoundaryColor: "#dee2e6",
			BoundaryWidth: 0.5,
			HeatColor:     "#dc3545",
		},
		Layers:       boundaries.LayerNames(),
		Markers:      markers,
		MarkerStyles: styles,
		Title:        "Activity Heatmap",
	}
}

// Load reads path and merges it over the defaults, so a partial config
// file only has to name what it changes.  An empty path returns the
// defaults untouched.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("parse yaml config %s: %w", path, err)
		}
	case ".json":
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("parse json config %s: %w", path, err)
		}
	default:
		return cfg, fmt.Errorf("config %s: unsupported extension %q (want .json, .yaml or .yml)", path, ext)
	}
	// Map decoding replaces a marker style wholesale, so a file naming
	// only the shape would zero the size; fill the gaps back in.
	for name, style := range cfg.MarkerStyles {
		if style.Shape == "" {
			style.Shape = "circle"
		}
		if style.Size == 0 {
			style.Size = 6
		}
		cfg.MarkerStyles[name] = style
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// WriteDefault materializes the default configuration at path, so a new
// user can edit a real file instead of reading docs.  Refuses to
// overwrite an existing file.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config %s already exists", path)
	}
	cfg := Default()
	var raw []byte
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		raw, err = yaml.Marshal(cfg)
	default:
		raw, err = json.MarshalIndent(cfg, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("encode default config: %w", err)
	}
	return os.WriteFile(path, raw, 0o644)
}

var colorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{3}(?:[0-9a-fA-F]{3})?$`)

// Validate rejects configurations that would produce a broken or empty
// document: non-positive dimensions, malformed colors, layer or marker
// names nothing can satisfy.
func (c Config) Validate() error {
	if c.Output.Width <= 0 || c.Output.Height <= 0 {
		return fmt.Errorf("output dimensions %dx%d must be positive", c.Output.Width, c.Output.Height)
	}
	if c.Output.Filename == "" {
		return fmt.Errorf("output filename is empty")
	}
	for _, pair := range []struct{ name, value string }{
		{"track_color", c.Style.TrackColor},
		{"boundary_color", c.Style.BoundaryColor},
		{"heat_color", c.Style.HeatColor},
	} {
		if !colorPattern.MatchString(pair.value) {
			return fmt.Errorf("style %s %q is not a hex color", pair.name, pair.value)
		}
	}
	if c.Style.TrackWidth <= 0 || c.Style.BoundaryWidth <= 0 {
		return fmt.Errorf("stroke widths must be positive")
	}
	if c.Style.TrackOpacity < 0 || c.Style.TrackOpacity > 1 {
		return fmt.Errorf("track_opacity %g out of [0,1]", c.Style.TrackOpacity)
	}
	for _, layer := range c.Layers {
		if _, ok := boundaries.SpecByName(layer); !ok {
			return fmt.Errorf("unknown boundary layer %q (known: %s)",
				layer, strings.Join(boundaries.LayerNames(), ", "))
		}
	}
	known := make(map[string]bool)
	for _, name := range boundaries.BuiltinMarkerNames() {
		known[name] = true
	}
	for marker := range c.Markers {
		if !known[marker] {
			return fmt.Errorf("unknown marker %q (known: %s)",
				marker, strings.Join(boundaries.BuiltinMarkerNames(), ", "))
		}
	}
	markerLayers := make(map[string]bool)
	for _, name := range boundaries.MarkerLayerNames() {
		markerLayers[name] = true
	}
	for layer, style := range c.MarkerStyles {
		if !markerLayers[layer] {
			return fmt.Errorf("marker_styles names unknown marker layer %q (known: %s)",
				layer, strings.Join(boundaries.MarkerLayerNames(), ", "))
		}
		switch style.Shape {
		case "circle", "triangle", "square":
		default:
			return fmt.Errorf("marker layer %s shape %q: want circle, triangle or square", layer, style.Shape)
		}
		if style.Size <= 0 {
			return fmt.Errorf("marker layer %s size %g must be positive", layer, style.Size)
		}
		if style.Color != "" && !colorPattern.MatchString(style.Color) {
			return fmt.Errorf("marker layer %s color %q is not a hex color", layer, style.Color)
		}
	}
	return nil
}
