package trackstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"activity-heatmap/pkg/dataset"
)

// Activity is one stored activity with its raw coordinate list.
type Activity struct {
	ID         int64
	ActivityID string
	Name       string
	Category   string
	StartDate  string
	Points     [][]float64 // [lat, lon] pairs, stored as JSON text
	ImportedAt int64
}

// activityFile mirrors the on-disk per-activity JSON produced by the
// downloader: identity fields plus the raw coordinate list.
type activityFile struct {
	ActivityID json.Number `json:"activity_id"`
	Type       string      `json:"activity_type"`
	Name       string      `json:"activity_name"`
	StartDate  string      `json:"start_date"`
	GPSPoints  [][]float64 `json:"gps_points"`
}

// Save inserts one activity.  A duplicate activity_id is silently
// skipped, which is what makes re-running an import harmless.
func (s *Store) Save(ctx context.Context, a Activity) (bool, error) {
	raw, err := json.Marshal(a.Points)
	if err != nil {
		return false, fmt.Errorf("encode points for %s: %w", a.ActivityID, err)
	}

	ph := s.placeholder
	query := fmt.Sprintf(`INSERT INTO activities
  (id, activity_id, name, category, start_date, points, point_count, imported_at)
  VALUES (%s, %s, %s, %s, %s, %s, %s, %s)
  ON CONFLICT (activity_id) DO NOTHING`,
		ph(1), ph(2), ph(3), ph(4), ph(5), ph(6), ph(7), ph(8))

	res, err := s.DB.ExecContext(ctx, query,
		<-s.idGenerator, a.ActivityID, a.Name, a.Category, a.StartDate,
		string(raw), len(a.Points), time.Now().Unix())
	if err != nil {
		return false, fmt.Errorf("insert activity %s: %w", a.ActivityID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		// Some engines cannot report it; treat the insert as applied.
		return true, nil
	}
	return affected > 0, nil
}

// ImportDir walks dir for activity_*.json files written by the
// downloader and stores each one.  Files that fail to parse are counted
// and skipped, a single bad download must not abort a thousand good
// ones.
func (s *Store) ImportDir(ctx context.Context, dir string) (stored, skipped int, err error) {
	paths, err := filepath.Glob(filepath.Join(dir, "activity_*.json"))
	if err != nil {
		return 0, 0, fmt.Errorf("scan %s: %w", dir, err)
	}
	sort.Strings(paths)

	for _, path := range paths {
		select {
		case <-ctx.Done():
			return stored, skipped, ctx.Err()
		default:
		}

		activity, perr := parseActivityFile(path)
		if perr != nil {
			s.logf("skipping %s: %v", filepath.Base(path), perr)
			skipped++
			continue
		}
		inserted, serr := s.Save(ctx, activity)
		if serr != nil {
			return stored, skipped, serr
		}
		if inserted {
			stored++
		}
	}
	return stored, skipped, nil
}

// parseActivityFile reads one per-activity JSON file.  Files without
// coordinates are an error so the caller counts them as skipped.
func parseActivityFile(path string) (Activity, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Activity{}, err
	}
	var f activityFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return Activity{}, fmt.Errorf("parse: %w", err)
	}
	if len(f.GPSPoints) == 0 {
		return Activity{}, fmt.Errorf("no gps points")
	}
	id := f.ActivityID.String()
	if id == "" || id == "0" {
		return Activity{}, fmt.Errorf("missing activity_id")
	}
	return Activity{
		ActivityID: id,
		Name:       f.Name,
		Category:   f.Type,
		StartDate:  f.StartDate,
		Points:     f.GPSPoints,
	}, nil
}

// LoadAll reads every stored activity into an in-memory collection,
// ordered by activity_id so renders are reproducible.
func (s *Store) LoadAll(ctx context.Context) (dataset.Collection, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT activity_id, category, points FROM activities ORDER BY activity_id`)
	if err != nil {
		return dataset.Collection{}, fmt.Errorf("query activities: %w", err)
	}
	defer rows.Close()

	raw := make(map[string][][]float64)
	categories := make(map[string]string)
	for rows.Next() {
		var id, category, points string
		if err := rows.Scan(&id, &category, &points); err != nil {
			return dataset.Collection{}, fmt.Errorf("scan activity: %w", err)
		}
		var coords [][]float64
		if err := json.Unmarshal([]byte(points), &coords); err != nil {
			s.logf("activity %s has corrupt point data: %v", id, err)
			continue
		}
		raw[id] = coords
		categories[id] = category
	}
	if err := rows.Err(); err != nil {
		return dataset.Collection{}, fmt.Errorf("iterate activities: %w", err)
	}

	collection := dataset.FromRaw(raw)
	for i := range collection.Tracks {
		collection.Tracks[i].Category = categories[collection.Tracks[i].ID]
	}
	return collection, nil
}

// Count reports how many activities the store holds.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM activities`).Scan(&n)
	return n, err
}

// ExportJSON writes the consolidated dataset file, the same shape the
// file loader reads: activity IDs mapped to coordinate lists.  The
// write goes through a temp file and rename so a crash cannot leave a
// half-written dataset behind.
func (s *Store) ExportJSON(ctx context.Context, path string) error {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT activity_id, points FROM activities ORDER BY activity_id`)
	if err != nil {
		return fmt.Errorf("query activities: %w", err)
	}
	defer rows.Close()

	out := make(map[string]json.RawMessage)
	for rows.Next() {
		var id, points string
		if err := rows.Scan(&id, &points); err != nil {
			return fmt.Errorf("scan activity: %w", err)
		}
		out[id] = json.RawMessage(points)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate activities: %w", err)
	}

	raw, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("encode dataset: %w", err)
	}

	tmp := path + ".tmp." + strconv.FormatInt(time.Now().UnixNano(), 36)
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename into %s: %w", path, err)
	}
	return nil
}
