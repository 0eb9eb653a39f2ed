package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"activity-heatmap/pkg/boundaries"
	"activity-heatmap/pkg/dataset"
	"activity-heatmap/pkg/drivers"
	"activity-heatmap/pkg/geomath"
	"activity-heatmap/pkg/preview"
	"activity-heatmap/pkg/progress"
	"activity-heatmap/pkg/raster"
	"activity-heatmap/pkg/regions"
	"activity-heatmap/pkg/renderconfig"
	"activity-heatmap/pkg/svgdoc"
	"activity-heatmap/pkg/trackfilter"
	"activity-heatmap/pkg/trackstore"
)

var configPath = flag.String("config", "", "Path to a JSON or YAML render configuration (defaults apply without one)")
var writeConfig = flag.String("write-config", "", "Write the default configuration to this path and exit")
var dataPath = flag.String("data", "", "Consolidated GPS dataset file (overrides the config)")
var outPath = flag.String("out", "", "Output SVG file (overrides the config)")
var regionName = flag.String("region", "all", "Region to render; see -list-regions")
var listRegions = flag.Bool("list-regions", false, "List known regions and exit")
var heatmap = flag.Bool("heatmap", false, "Render a density grid instead of raw track lines")
var cacheDir = flag.String("cache-dir", "map_cache", "Directory for cached boundary GeoJSON")
var refreshBoundaries = flag.Bool("refresh-boundaries", false, "Refetch boundary layers even when cached")
var qrLink = flag.String("qr-link", "", "URL to stamp as a QR code in the corner of the document")

var useStore = flag.Bool("use-store", false, "Load activities from the database instead of the dataset file")
var importDir = flag.String("import-dir", "", "Import activity_*.json files from this directory into the database")
var exportData = flag.String("export-data", "", "Write the consolidated dataset from the database to this file")
var dbType = flag.String("db-type", "sqlite", "Database driver: sqlite, chai, genji, duckdb, or pgx (postgresql)")
var dbPath = flag.String("db-path", "", "Path to the database file (file-based drivers)")
var dbHost = flag.String("db-host", "127.0.0.1", "Database host (pgx driver)")
var dbPort = flag.Int("db-port", 5432, "Database port (pgx driver)")
var dbUser = flag.String("db-user", "postgres", "Database user (pgx driver)")
var dbPass = flag.String("db-pass", "", "Database password (pgx driver)")
var dbName = flag.String("db-name", "ActivityHeatmap", "Database name (pgx driver)")
var pgSSLMode = flag.String("pg-ssl-mode", "prefer", "PostgreSQL SSL mode: disable, allow, prefer, require, verify-ca, or verify-full")

var serve = flag.Bool("serve", false, "Serve the rendered document over HTTP after rendering")
var port = flag.Int("port", 8765, "Port for the preview server")
var domain = flag.String("domain", "", "Use ports 80 and 443 with automatic HTTPS certs via Let's Encrypt")
var showVersion = flag.Bool("version", false, "Show the application version")

var CompileVersion = "dev"

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("activity-heatmap %s\n", CompileVersion)
		return
	}

	zerolog.TimeFieldFormat = time.RFC3339
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	if *listRegions {
		printRegions()
		return
	}
	if *writeConfig != "" {
		if err := renderconfig.WriteDefault(*writeConfig); err != nil {
			log.Fatal().Err(err).Msg("write default config")
		}
		log.Info().Str("file", *writeConfig).Msg("default configuration written; edit it and pass -config")
		return
	}

	if err := run(log); err != nil {
		log.Fatal().Err(err).Msg("render failed")
	}
}

// findConfig falls back to conventional file names next to the binary
// when no -config flag is given, so a project directory with a
// config.yaml just works.
func findConfig(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, candidate := range []string{"config.yaml", "config.json"} {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

func printRegions() {
	all := regions.All()
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	for _, r := range all {
		fmt.Printf("%-14s %s\n", r.Name, r.Description)
	}
}

func run(log zerolog.Logger) error {
	ctx := context.Background()
	report := progress.New(log)
	defer report.Close()

	logf := func(format string, args ...any) { log.Debug().Msgf(format, args...) }

	cfg, err := renderconfig.Load(findConfig(*configPath))
	if err != nil {
		return err
	}
	if *dataPath != "" {
		cfg.Data.GPSDataFile = *dataPath
	}
	if *outPath != "" {
		cfg.Output.Filename = *outPath
	}

	// ---------- dataset ----------

	report.Begin("load")
	if *importDir != "" || *exportData != "" {
		if err := maintainStore(ctx, report, logf); err != nil {
			report.Fail("load", err)
			return err
		}
		if !*useStore {
			// Maintenance-only invocation: the store is updated, no
			// render was asked for.
			report.Done("load", "store maintenance complete", -1)
			return nil
		}
	}
	collection, err := loadActivities(ctx, cfg, report, logf)
	if err != nil {
		report.Fail("load", err)
		return err
	}
	summary := collection.Summarize()
	report.Done("load", fmt.Sprintf("loaded %d activities, %d points", summary.Activities, summary.TotalPoints), summary.Activities)
	if summary.TotalPoints == 0 {
		return errors.New("dataset holds no usable GPS points")
	}

	// ---------- region filter ----------

	region, err := regions.Resolve(*regionName)
	if err != nil {
		return err
	}
	report.Begin("filter")
	filtered := trackfilter.ByRegion(collection, region)
	fsum := filtered.Summarize()
	report.Done("filter",
		fmt.Sprintf("region %s keeps %d of %d activities", region.Name, fsum.Activities, summary.Activities),
		fsum.Activities)

	// ---------- projection and frame ----------

	dataBounds := filtered.Bounds()
	renderBox := regions.EffectiveBounds(region)
	if renderBox.IsEmpty() {
		if fsum.TotalPoints == 0 {
			// Only the universal region frames itself from the data;
			// with nothing left there is nothing to draw around.
			return fmt.Errorf("region %s has no activity and no declared bounds to frame", region.Name)
		}
		renderBox = dataBounds.Pad(0.05)
	}
	proj := regions.ProjectionFor(region, dataBounds)
	log.Info().Str("projection", proj.String()).Str("region", region.Name).Msg("projection selected")

	extent, err := raster.PlanarBoundsOf(proj, renderBox)
	if err != nil {
		return fmt.Errorf("project render frame: %w", err)
	}
	doc := svgdoc.New(cfg.Output.Width, cfg.Output.Height, extent)

	// ---------- boundary layers ----------

	report.Begin("boundaries")
	specs, err := boundaries.Plan(region, renderBox, cfg.Layers)
	if err != nil {
		report.Fail("boundaries", err)
		return err
	}
	store := &boundaries.Store{
		CacheDir: *cacheDir,
		Fetcher:  boundaries.HTTPFetcher{},
		Logf:     func(format string, args ...any) { report.Step("boundaries", fmt.Sprintf(format, args...)) },
	}
	layers, err := store.Compose(ctx, specs, renderBox, *refreshBoundaries)
	if err != nil {
		report.Fail("boundaries", err)
		return err
	}
	markerLayers := addBoundaryLayers(doc, proj, cfg, renderBox, layers)
	report.Done("boundaries", fmt.Sprintf("%d layers drawn", len(layers)), len(layers))

	// ---------- density grid or raw tracks ----------

	// A retained track may wander outside the render box, beyond a
	// zoned projection's validity band; clipping to the box keeps the
	// projection contract for the tracks the same way it does for
	// boundaries, and only sheds geometry outside the visible frame.
	renderSet := filtered
	if proj.Family != geomath.Equirectangular {
		renderSet = trackfilter.ClipToBounds(filtered, renderBox)
	}

	switch {
	case fsum.TotalPoints == 0:
		// An empty filter result is not an error: boundary layers and
		// markers alone still make a valid document for the region.
		log.Warn().Str("region", region.Name).Msg("no activity in region, rendering boundaries only")
	case *heatmap:
		report.Begin("rasterize")
		cols, rows := raster.Resolution(renderBox, cfg.Output.Width, cfg.Output.Height, fsum.TotalPoints)
		grid := raster.NewGrid(extent, cols, rows)
		if err := raster.Rasterize(ctx, renderSet, proj, grid); err != nil {
			report.Fail("rasterize", err)
			return err
		}
		doc.AddHeatmap(grid, cfg.Style.HeatColor)
		report.Done("rasterize", fmt.Sprintf("%dx%d grid, %d visits, %.1f points/cell",
			cols, rows, grid.Total(), float64(fsum.TotalPoints)/float64(cols*rows)), cols*rows)
	default:
		addTrackPaths(doc, proj, cfg, renderSet)
	}

	// ---------- markers, title, legend ----------

	addMarkers(doc, proj, cfg, markerLayers)
	if cfg.Title != "" {
		doc.AddTitle(cfg.Title)
	}
	doc.AddLegend(legendFor(cfg, *heatmap))
	if *qrLink != "" {
		if err := doc.StampQR(*qrLink); err != nil {
			return err
		}
	}

	// ---------- write ----------

	if err := writeDocumentAtomic(cfg.Output.Filename, doc); err != nil {
		return err
	}
	log.Info().Str("file", cfg.Output.Filename).Msg("document written")

	if *serve || *domain != "" {
		srv := &preview.Server{SVGPath: cfg.Output.Filename, Version: CompileVersion, Logf: logf}
		if *domain != "" {
			return srv.ListenWithDomain(*domain)
		}
		return srv.ListenPlain(*port)
	}
	return nil
}

// openStore connects to the configured database engine.
func openStore(logf func(string, ...any)) (*trackstore.Store, error) {
	drivers.Ready()
	return trackstore.Open(trackstore.Config{
		DBType: *dbType, DBPath: *dbPath,
		DBHost: *dbHost, DBPort: *dbPort,
		DBUser: *dbUser, DBPass: *dbPass, DBName: *dbName,
		PGSSLMode: *pgSSLMode,
	}, logf)
}

// maintainStore runs the consolidation work: import a directory of
// per-activity files and/or export the consolidated dataset file.
func maintainStore(ctx context.Context, report *progress.Reporter, logf func(string, ...any)) error {
	store, err := openStore(logf)
	if err != nil {
		return err
	}
	defer store.Close()

	if *importDir != "" {
		stored, skipped, err := store.ImportDir(ctx, *importDir)
		if err != nil {
			return err
		}
		report.Step("load", fmt.Sprintf("imported %d activities (%d skipped) from %s", stored, skipped, *importDir))
	}
	if *exportData != "" {
		if err := store.ExportJSON(ctx, *exportData); err != nil {
			return err
		}
		report.Step("load", "exported consolidated dataset to "+*exportData)
	}
	return nil
}

// loadActivities picks the data source: the SQL store when requested,
// the consolidated JSON file otherwise.
func loadActivities(ctx context.Context, cfg renderconfig.Config, report *progress.Reporter, logf func(string, ...any)) (dataset.Collection, error) {
	if !*useStore {
		report.Step("load", "reading "+cfg.Data.GPSDataFile)
		return dataset.LoadFile(cfg.Data.GPSDataFile)
	}

	store, err := openStore(logf)
	if err != nil {
		return dataset.Collection{}, err
	}
	defer store.Close()
	return store.LoadAll(ctx)
}

// addBoundaryLayers projects and draws every composed layer, returning
// the marker-tier layers for the marker pass.  Conformal and conic
// projections only accept points inside their domain, so paths clip to
// the render box first for those.
func addBoundaryLayers(doc *svgdoc.Document, proj geomath.Projection, cfg renderconfig.Config, renderBox geomath.Bounds, layers []boundaries.Layer) []boundaries.Layer {
	var markerLayers []boundaries.Layer
	for _, layer := range layers {
		if layer.Spec.Tier == boundaries.TierMarker {
			markerLayers = append(markerLayers, layer)
			continue
		}
		if proj.Family != geomath.Equirectangular {
			layer = boundaries.ClipToBox(layer, renderBox)
		}
		style := svgdoc.Style{
			Color: cfg.Style.BoundaryColor,
			Width: cfg.Style.BoundaryWidth,
			Fill:  layer.Spec.Fill,
		}
		if layer.Spec.Color != "" {
			style.Color = layer.Spec.Color
		}
		if layer.Spec.Width > 0 {
			style.Width = layer.Spec.Width
		}
		var paths [][]geomath.Planar
		for _, feature := range layer.Features {
			for _, path := range feature.Paths {
				if projected := projectPath(proj, path); len(projected) >= 2 {
					paths = append(paths, projected)
				}
			}
		}
		doc.AddBoundaryLayer(layer.Spec.Name, style, paths)
	}
	return markerLayers
}

// addTrackPaths draws each activity as a polyline in data order.
func addTrackPaths(doc *svgdoc.Document, proj geomath.Projection, cfg renderconfig.Config, c dataset.Collection) {
	tracks := make([]svgdoc.TrackPath, 0, len(c.Tracks))
	for _, t := range c.Tracks {
		if projected := projectPath(proj, t.Points); len(projected) > 0 {
			tracks = append(tracks, svgdoc.TrackPath{ID: t.ID, Points: projected})
		}
	}
	doc.AddTracks(tracks, svgdoc.Style{
		Color:   cfg.Style.TrackColor,
		Width:   cfg.Style.TrackWidth,
		Opacity: cfg.Style.TrackOpacity,
	})
}

// addMarkers draws each marker layer's points through the per-marker
// on/off map, with the layer's configured shape, size, and color.
func addMarkers(doc *svgdoc.Document, proj geomath.Projection, cfg renderconfig.Config, layers []boundaries.Layer) {
	for _, layer := range layers {
		shape, size, color := markerStyleFor(cfg, layer.Spec)
		var markers []svgdoc.Marker
		for _, feature := range layer.Features {
			if !cfg.Markers[feature.Name] {
				continue
			}
			for _, pt := range feature.Markers {
				at, err := proj.Project(pt)
				if err != nil {
					continue
				}
				markers = append(markers, svgdoc.Marker{
					Name:  feature.Name,
					At:    at,
					Shape: shape,
					Size:  size,
					Color: color,
				})
			}
		}
		if len(markers) > 0 {
			doc.AddMarkers(layer.Spec.Name, markers)
		}
	}
}

// markerStyleFor resolves a marker layer's glyph styling, falling back
// to a small circle in the layer's catalog color when the configuration
// is silent.
func markerStyleFor(cfg renderconfig.Config, spec boundaries.LayerSpec) (svgdoc.MarkerShape, float64, string) {
	shape, size, color := svgdoc.ShapeCircle, 6.0, spec.Color
	style, ok := cfg.MarkerStyles[spec.Name]
	if !ok {
		return shape, size, color
	}
	switch style.Shape {
	case "triangle":
		shape = svgdoc.ShapeTriangle
	case "square":
		shape = svgdoc.ShapeSquare
	}
	if style.Size > 0 {
		size = style.Size
	}
	if style.Color != "" {
		color = style.Color
	}
	return shape, size, color
}

// projectPath projects a geographic path, dropping points the
// projection rejects.  Boundary data clipped to the render box should
// lose nothing; the guard is for features straddling the domain edge.
func projectPath(proj geomath.Projection, path []geomath.Point) []geomath.Planar {
	out := make([]geomath.Planar, 0, len(path))
	for _, pt := range path {
		p, err := proj.Project(pt)
		if err != nil {
			continue
		}
		out = append(out, p)
	}
	return out
}

func legendFor(cfg renderconfig.Config, heat bool) []svgdoc.LegendEntry {
	label := "Activities"
	color := cfg.Style.TrackColor
	if heat {
		label = "Visit density"
		color = cfg.Style.HeatColor
	}
	return []svgdoc.LegendEntry{
		{Label: label, Color: color},
		{Label: "Boundaries", Color: cfg.Style.BoundaryColor},
	}
}

// writeDocumentAtomic renders into a temp file in the target directory
// and renames it over the destination, so readers never see a partial
// document.
func writeDocumentAtomic(path string, doc *svgdoc.Document) error {
	tmp := path + ".tmp." + strconv.FormatInt(time.Now().UnixNano(), 36)
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create %s: %w", tmp, err)
	}
	if _, err := doc.WriteTo(f); err != nil {
		f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("write document: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("close %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename into %s: %w", path, err)
	}
	return nil
}
