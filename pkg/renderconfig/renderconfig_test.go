package renderconfig

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// TestDefaultValidates: the shipped defaults must pass their own
// validation, always.
func TestDefaultValidates(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

// TestLoadPartialJSON merges a partial file over the defaults: changed
// fields take, everything else keeps its default.
func TestLoadPartialJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	body := `{"output": {"filename": "mn.svg", "width": 2000, "height": 1400}, "style": {"track_color": "#0066cc", "track_width": 2, "track_opacity": 0.8, "boundary_color": "#aaaaaa", "boundary_width": 0.5, "heat_color": "#cc0000"}}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Output.Width != 2000 || cfg.Output.Filename != "mn.svg" {
		t.Errorf("output section not applied: %+v", cfg.Output)
	}
	if cfg.Style.TrackColor != "#0066cc" {
		t.Errorf("style section not applied: %+v", cfg.Style)
	}
	if cfg.Data.GPSDataFile != "gps_data.json" {
		t.Errorf("untouched section lost its default: %+v", cfg.Data)
	}
	if len(cfg.Layers) == 0 {
		t.Errorf("layer list should default to the full catalog")
	}
}

// TestLoadMarkerToggle: flipping one marker off in a config file leaves
// the other defaults enabled, and a partial marker style entry only
// changes what it names.
func TestLoadMarkerToggle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	body := `{"markers": {"Como Park": false}, "marker_styles": {"landmarks": {"shape": "triangle"}}}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Markers["Como Park"] {
		t.Error("Como Park should be toggled off")
	}
	if !cfg.Markers["Minnehaha Falls"] {
		t.Error("untouched markers must keep their default on state")
	}
	style := cfg.MarkerStyles["landmarks"]
	if style.Shape != "triangle" {
		t.Errorf("shape = %q, want triangle", style.Shape)
	}
	if style.Size != 6 {
		t.Errorf("size = %g, want the default 6 backfilled", style.Size)
	}
}

// TestLoadYAML exercises the YAML path by extension.
func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "title: Winter block\noutput:\n  filename: winter.svg\n  width: 800\n  height: 600\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Title != "Winter block" || cfg.Output.Width != 800 {
		t.Errorf("yaml values not applied: title=%q output=%+v", cfg.Title, cfg.Output)
	}
}

// TestLoadEmptyPathIsDefault: no -config flag means defaults, no file
// access.
func TestLoadEmptyPathIsDefault(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\"): %v", err)
	}
	if cfg.Output.Width != 1200 || cfg.Output.Height != 800 {
		t.Errorf("expected default dimensions, got %+v", cfg.Output)
	}
}

// TestValidateRejections walks the validation rules one bad field at a
// time.
func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"zero width", func(c *Config) { c.Output.Width = 0 }, "dimensions"},
		{"negative height", func(c *Config) { c.Output.Height = -5 }, "dimensions"},
		{"empty filename", func(c *Config) { c.Output.Filename = "" }, "filename"},
		{"bad color", func(c *Config) { c.Style.TrackColor = "red" }, "hex color"},
		{"short hex ok", func(c *Config) { c.Style.TrackColor = "#f00" }, ""},
		{"zero stroke", func(c *Config) { c.Style.BoundaryWidth = 0 }, "widths"},
		{"opacity range", func(c *Config) { c.Style.TrackOpacity = 1.5 }, "track_opacity"},
		{"unknown layer", func(c *Config) { c.Layers = []string{"atlantis"} }, "unknown boundary layer"},
		{"unknown marker", func(c *Config) { c.Markers = map[string]bool{"Area 51": true} }, "unknown marker"},
		{"unknown marker layer", func(c *Config) {
			c.MarkerStyles["roswell"] = MarkerStyle{Shape: "circle", Size: 6}
		}, "unknown marker layer"},
		{"bad marker shape", func(c *Config) {
			c.MarkerStyles["landmarks"] = MarkerStyle{Shape: "star", Size: 6}
		}, "shape"},
		{"bad marker size", func(c *Config) {
			c.MarkerStyles["landmarks"] = MarkerStyle{Shape: "square", Size: -1}
		}, "size"},
		{"bad marker color", func(c *Config) {
			c.MarkerStyles["landmarks"] = MarkerStyle{Shape: "square", Size: 6, Color: "green"}
		}, "hex color"},
		{"triangle ok", func(c *Config) {
			c.MarkerStyles["landmarks"] = MarkerStyle{Shape: "triangle", Size: 8, Color: "#2b8a3e"}
		}, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.want == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error = %v, want substring %q", err, tc.want)
			}
		})
	}
}

// TestWriteDefaultRoundTrip writes the default file and loads it back.
func TestWriteDefaultRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := WriteDefault(path); err != nil {
		t.Fatalf("WriteDefault: %v", err)
	}
	if err := WriteDefault(path); err == nil {
		t.Fatalf("WriteDefault should refuse to overwrite")
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load written default: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("written default invalid: %v", err)
	}
}

// TestUnsupportedExtension surfaces a clear error instead of guessing
// the format.
func TestUnsupportedExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("x = 1"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "unsupported extension") {
		t.Fatalf("error = %v, want unsupported extension", err)
	}
}
